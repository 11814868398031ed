package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/xxh3"

	"github.com/aretw0/projctx/pkg/core"
)

// DefaultContentDir is the folder, relative to the storage root, holding parsed file content.
const DefaultContentDir = "file-content-cache"

const defaultMemoryEntries = 256

// ContentKey derives the key of a file's content: a hash of its path, mtime,
// size and the additional context (usually a project ID).
func ContentKey(file core.File, additionalContext string) string {
	h := xxh3.HashString128(fmt.Sprintf("%s|%d|%d|%s", file.Path, file.Stat.Mtime, file.Stat.Size, additionalContext))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

type contentEntry struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ContentStore implements core.ContentStore as one JSON file per key, with an
// LRU of recently used content in front.
type ContentStore struct {
	storage core.Storage
	dir     string
	logger  *slog.Logger

	memory *lru.Cache[string, string]
}

var _ core.ContentStore = (*ContentStore)(nil)

// NewContentStore creates a ContentStore keeping its files under dir.
func NewContentStore(storage core.Storage, dir string, logger *slog.Logger) *ContentStore {
	return newContentStore(storage, dir, logger, defaultMemoryEntries)
}

func newContentStore(storage core.Storage, dir string, logger *slog.Logger, entries int) *ContentStore {
	if entries <= 0 {
		entries = defaultMemoryEntries
	}
	// lru.New only fails for a non-positive size.
	memory, _ := lru.New[string, string](entries)
	if dir == "" {
		dir = DefaultContentDir
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContentStore{
		storage: storage,
		dir:     dir,
		logger:  logger,
		memory:  memory,
	}
}

func (s *ContentStore) keyPath(key string) string {
	return path.Join(s.dir, key+".json")
}

// CacheKey implements core.ContentStore.
func (s *ContentStore) CacheKey(file core.File, additionalContext string) string {
	return ContentKey(file, additionalContext)
}

// Get implements core.ContentStore. An unreadable entry counts as a miss.
func (s *ContentStore) Get(ctx context.Context, key string) (string, bool, error) {
	if content, ok := s.memory.Get(key); ok {
		return content, true, nil
	}

	exists, err := s.storage.Exists(ctx, s.keyPath(key))
	if err != nil {
		return "", false, err
	}
	if !exists {
		return "", false, nil
	}
	data, err := s.storage.Read(ctx, s.keyPath(key))
	if err != nil {
		return "", false, err
	}

	var entry contentEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Warn("ignoring malformed content entry", "key", key, "error", err)
		return "", false, nil
	}

	s.memory.Add(key, entry.Content)
	return entry.Content, true, nil
}

// Set implements core.ContentStore.
func (s *ContentStore) Set(ctx context.Context, key string, content string) error {
	data, err := json.Marshal(contentEntry{Content: content, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	if err := s.storage.Write(ctx, s.keyPath(key), data); err != nil {
		return fmt.Errorf("failed to write content %s: %w", key, err)
	}
	s.memory.Add(key, content)
	return nil
}

// Remove implements core.ContentStore.
func (s *ContentStore) Remove(ctx context.Context, key string) error {
	s.memory.Remove(key)
	return s.storage.Remove(ctx, s.keyPath(key))
}

// Clear implements core.ContentStore.
func (s *ContentStore) Clear(ctx context.Context) error {
	s.memory.Purge()

	listing, err := s.storage.List(ctx, s.dir)
	if err != nil {
		return err
	}
	for _, f := range listing.Files {
		if !strings.HasSuffix(f, ".json") {
			continue
		}
		if err := s.storage.Remove(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
