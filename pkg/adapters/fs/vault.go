package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/projctx/pkg/core"
)

// VaultConfig holds the configuration of a filesystem vault.
type VaultConfig struct {
	Path         string
	SystemDir    string // e.g. ".projctx"
	Logger       *slog.Logger
	ErrorHandler func(error)
}

// Vault implements core.Vault and core.FileReader on a directory tree.
// Dot directories (.git, .obsidian, the system dir) and dot files are not
// part of the vault.
type Vault struct {
	Path   string
	config VaultConfig

	mu            sync.RWMutex
	snapshot      map[string]core.FileStat
	watcherActive bool
	lastReconcile *time.Time
}

var (
	_ core.Vault      = (*Vault)(nil)
	_ core.FileReader = (*Vault)(nil)
)

// NewVault creates a Vault.
func NewVault(config VaultConfig) *Vault {
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Vault{Path: config.Path, config: config}
}

// Files implements core.Vault. Files are returned in lexical path order.
func (v *Vault) Files(ctx context.Context) ([]core.File, error) {
	var files []core.File
	err := filepath.WalkDir(v.Path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == v.Path {
			return nil
		}
		if d.IsDir() {
			if ignoredName(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoredName(d.Name()) || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// Removed while walking.
			return nil
		}
		rel, err := v.rel(p)
		if err != nil {
			return err
		}
		files = append(files, core.NewFile(rel, info.ModTime(), info.Size()))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault: %w", err)
	}
	return files, nil
}

// FileByPath implements core.Vault.
func (v *Vault) FileByPath(ctx context.Context, p string) (core.File, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.File{}, false, err
	}
	rel := core.FileFromPath(p).Path
	if !v.inVault(rel) {
		return core.File{}, false, nil
	}

	info, err := os.Stat(filepath.Join(v.Path, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return core.File{}, false, nil
	}
	if err != nil {
		return core.File{}, false, err
	}
	if !info.Mode().IsRegular() {
		return core.File{}, false, nil
	}
	return core.NewFile(rel, info.ModTime(), info.Size()), true, nil
}

// ReadFile implements core.FileReader.
func (v *Vault) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel := core.FileFromPath(p).Path
	if !v.inVault(rel) {
		return nil, fmt.Errorf("%s: %w", p, os.ErrNotExist)
	}
	return os.ReadFile(filepath.Join(v.Path, filepath.FromSlash(rel)))
}

// Reconcile compares the vault with the listing taken by the previous call and
// returns the changes as events. The first call only records the listing.
func (v *Vault) Reconcile(ctx context.Context) ([]core.Event, error) {
	files, err := v.Files(ctx)
	if err != nil {
		return nil, err
	}
	current := make(map[string]core.FileStat, len(files))
	for _, f := range files {
		current[f.Path] = f.Stat
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	v.lastReconcile = &now
	previous := v.snapshot
	v.snapshot = current
	if previous == nil {
		return nil, nil
	}

	var events []core.Event
	for _, f := range files {
		old, ok := previous[f.Path]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, Path: f.Path, Timestamp: now.Unix()})
		case old != f.Stat:
			events = append(events, core.Event{Type: core.EventModify, Path: f.Path, Timestamp: now.Unix()})
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			events = append(events, core.Event{Type: core.EventDelete, Path: p, Timestamp: now.Unix()})
		}
	}
	return events, nil
}

// Watch emits an event for every change to a vault file matching pattern
// (a doublestar glob; empty matches everything) until ctx is done.
func (v *Vault) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern: %q", pattern)
	}
	if _, err := v.Reconcile(ctx); err != nil {
		return nil, err
	}

	events := make(chan core.Event, 64)
	w := newWatchWorker(v, pattern, events)
	if err := w.Start(ctx); err != nil {
		close(events)
		return nil, err
	}

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.Stop(stopCtx); err != nil {
			v.config.Logger.Debug("watcher stop", "error", err)
		}
		close(events)
	}()

	return events, nil
}

func (v *Vault) rel(full string) (string, error) {
	rel, err := filepath.Rel(v.Path, full)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// inVault reports whether a vault relative path is visible as a vault file.
func (v *Vault) inVault(rel string) bool {
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if ignoredName(part) {
			return false
		}
	}
	return true
}

// recursiveAdd registers every vault directory with the watcher.
func (v *Vault) recursiveAdd(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != v.Path && ignoredName(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// shouldIgnore filters events for paths outside the vault or the pattern.
func (v *Vault) shouldIgnore(event fsnotify.Event, pattern string) bool {
	rel, err := v.rel(event.Name)
	if err != nil || !v.inVault(rel) {
		return true
	}
	if pattern == "" {
		return false
	}
	ok, err := doublestar.Match(pattern, rel)
	return err != nil || !ok
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

func (v *Vault) setWatcherActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watcherActive = active
}

func ignoredName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, TempFilePrefix)
}
