package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/projctx/pkg/core"
)

// Storage implements core.Storage on a directory. Paths are '/' separated and
// relative to Root; they may not escape it.
type Storage struct {
	Root   string
	logger *slog.Logger
}

var _ core.Storage = (*Storage)(nil)

// NewStorage creates a Storage rooted at root.
func NewStorage(root string, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Storage{Root: root, logger: logger}
}

func (s *Storage) resolve(p string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes storage root: %s", p)
	}
	return filepath.Join(s.Root, clean), nil
}

// Exists implements core.Storage.
func (s *Storage) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Read implements core.Storage.
func (s *Storage) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Write implements core.Storage. The write is atomic and creates missing parents.
func (s *Storage) Write(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	return writeFileAtomic(full, data, 0644)
}

// Remove implements core.Storage. Removing a missing path is not an error.
func (s *Storage) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Mkdir implements core.Storage.
func (s *Storage) Mkdir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, 0755)
}

// List implements core.Storage. Entries are returned as storage paths, sorted.
func (s *Storage) List(ctx context.Context, p string) (core.Listing, error) {
	if err := ctx.Err(); err != nil {
		return core.Listing{}, err
	}
	full, err := s.resolve(p)
	if err != nil {
		return core.Listing{}, err
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, os.ErrNotExist) {
		return core.Listing{}, nil
	}
	if err != nil {
		return core.Listing{}, err
	}

	var l core.Listing
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), TempFilePrefix) {
			continue
		}
		rel := filepath.ToSlash(filepath.Join(p, e.Name()))
		if e.IsDir() {
			l.Folders = append(l.Folders, rel)
		} else {
			l.Files = append(l.Files, rel)
		}
	}
	slices.Sort(l.Files)
	slices.Sort(l.Folders)
	return l, nil
}

// EnsureIgnore adds entry to Root/.gitignore when Root is a git checkout.
// It reports whether the file was modified.
func (s *Storage) EnsureIgnore(entry string) (bool, error) {
	if _, err := os.Stat(filepath.Join(s.Root, ".git")); err != nil {
		return false, nil
	}

	ignorePath := filepath.Join(s.Root, ".gitignore")
	ignoreEntry := strings.TrimSuffix(entry, "/") + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}

	s.logger.Debug("added system directory to .gitignore", "entry", ignoreEntry)
	return true, nil
}
