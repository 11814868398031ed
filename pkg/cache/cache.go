// Package cache maintains the per-project context cache: one JSON document per
// project recording which vault files belong to it, the aggregated markdown
// context, and pointers into the content store holding each file's parsed text.
//
// Every write to a document goes through a safe update (read latest, apply,
// write) serialized per project, so concurrent callers never lose each
// other's changes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/aretw0/projctx/pkg/core"
)

// DefaultDir is the folder, relative to the storage root, holding the documents.
const DefaultDir = "project-context-cache"

// Config wires a Cache to its collaborators.
type Config struct {
	Storage core.Storage
	Content core.ContentStore
	Vault   core.Vault
	Matcher core.PatternMatcher
	Parsers core.ParserRegistry

	Logger   *slog.Logger
	Recorder Recorder

	// Dir overrides DefaultDir.
	Dir string
	// Now overrides the clock. Used by tests.
	Now func() time.Time
}

// Cache is the project context cache.
type Cache struct {
	storage  core.Storage
	content  core.ContentStore
	vault    core.Vault
	matcher  core.PatternMatcher
	parsers  core.ParserRegistry
	logger   *slog.Logger
	recorder Recorder
	dir      string
	now      func() time.Time

	locks *keyedMutex

	// mirror holds the last document seen per project. Reads always go to
	// storage; the mirror only backs State.
	mu     sync.RWMutex
	mirror map[string]*core.ContextCache
	writes int
}

// New creates a Cache. Storage, Content, Vault, Matcher and Parsers are required.
func New(cfg Config) (*Cache, error) {
	if cfg.Storage == nil || cfg.Content == nil || cfg.Vault == nil || cfg.Matcher == nil || cfg.Parsers == nil {
		return nil, errors.New("cache: storage, content store, vault, matcher and parsers are required")
	}

	c := &Cache{
		storage:  cfg.Storage,
		content:  cfg.Content,
		vault:    cfg.Vault,
		matcher:  cfg.Matcher,
		parsers:  cfg.Parsers,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		dir:      cfg.Dir,
		now:      cfg.Now,
		locks:    newKeyedMutex(),
		mirror:   make(map[string]*core.ContextCache),
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.dir == "" {
		c.dir = DefaultDir
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// DocumentPath returns the storage path of a project's document.
func (c *Cache) DocumentPath(projectID string) string {
	return path.Join(c.dir, fmt.Sprintf("%016x.json", xxh3.HashString(projectID)))
}

// GetOrInitializeCache returns the project's cache, creating and persisting an
// empty one if none exists (or the stored one is unreadable). The document on
// disk is authoritative: one removed or corrupted behind the cache's back is
// replaced.
func (c *Cache) GetOrInitializeCache(ctx context.Context, p core.ProjectConfig) (*core.ContextCache, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	unlock, err := c.locks.lock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cc, ok, err := c.load(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return cc.Clone(), nil
	}

	cc = core.NewContextCache(c.now())
	if err := c.save(ctx, p.ID, cc); err != nil {
		return nil, fmt.Errorf("failed to initialize cache for project %s: %w", p.ID, err)
	}
	c.logger.Debug("initialized project context cache", "project", p.ID)
	return cc.Clone(), nil
}

// Get returns the project's cache without creating it.
// It returns core.ErrCacheNotFound when the project has none.
func (c *Cache) Get(ctx context.Context, p core.ProjectConfig) (*core.ContextCache, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	unlock, err := c.locks.lock(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cc, ok, err := c.load(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("project %s: %w", p.ID, core.ErrCacheNotFound)
	}
	return cc.Clone(), nil
}

// ClearForProject drops the project's document and the stored content of every
// file it tracked.
func (c *Cache) ClearForProject(ctx context.Context, p core.ProjectConfig) error {
	if err := validate(p); err != nil {
		return err
	}

	unlock, err := c.locks.lock(ctx, p.ID)
	if err != nil {
		return err
	}
	defer unlock()

	cc, ok, err := c.load(ctx, p.ID)
	if err != nil {
		return err
	}
	if ok {
		c.removeContent(ctx, p.ID, cc.FileContexts)
	}

	docPath := c.DocumentPath(p.ID)
	exists, err := c.storage.Exists(ctx, docPath)
	if err != nil {
		return err
	}
	if exists {
		if err := c.storage.Remove(ctx, docPath); err != nil {
			return fmt.Errorf("failed to remove cache for project %s: %w", p.ID, err)
		}
	}

	c.forget(p.ID)
	c.logger.Info("cleared project context cache", "project", p.ID)
	return nil
}

// load reads the document from storage. A missing or malformed document
// reports ok=false. The mirror follows what was found. Callers must hold the
// project lock.
func (c *Cache) load(ctx context.Context, projectID string) (*core.ContextCache, bool, error) {
	docPath := c.DocumentPath(projectID)

	exists, err := c.storage.Exists(ctx, docPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat cache for project %s: %w", projectID, err)
	}
	if !exists {
		c.forget(projectID)
		return nil, false, nil
	}

	data, err := c.storage.Read(ctx, docPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache for project %s: %w", projectID, err)
	}

	var cc core.ContextCache
	if err := json.Unmarshal(data, &cc); err != nil {
		c.logger.Warn("ignoring malformed project context cache", "project", projectID, "path", docPath, "error", err)
		c.forget(projectID)
		return nil, false, nil
	}
	cc.Normalize()

	c.remember(projectID, &cc)
	return &cc, true, nil
}

// save persists cc and refreshes the mirror. Callers must hold the project lock.
func (c *Cache) save(ctx context.Context, projectID string, cc *core.ContextCache) error {
	cc.Normalize()
	cc.Timestamp = c.now().UnixMilli()

	data, err := json.Marshal(cc)
	if err != nil {
		return err
	}
	if err := c.storage.Mkdir(ctx, c.dir); err != nil {
		return err
	}
	if err := c.storage.Write(ctx, c.DocumentPath(projectID), data); err != nil {
		return err
	}

	c.remember(projectID, cc)
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	c.recorder.DocumentWritten()
	return nil
}

// removeContent evicts the content of the given entries. Failures are logged
// and skipped.
func (c *Cache) removeContent(ctx context.Context, projectID string, entries map[string]core.FileContextEntry) {
	for p, entry := range entries {
		if entry.CacheKey == "" {
			continue
		}
		if err := c.content.Remove(ctx, entry.CacheKey); err != nil {
			c.logger.Warn("failed to remove file content", "project", projectID, "path", p, "error", err)
		}
	}
}

func (c *Cache) remember(projectID string, cc *core.ContextCache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirror[projectID] = cc.Clone()
}

func (c *Cache) forget(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.mirror, projectID)
}

func validate(p core.ProjectConfig) error {
	if p.ID == "" {
		return core.ErrInvalidProject
	}
	return nil
}
