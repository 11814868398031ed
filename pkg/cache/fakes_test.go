package cache_test

import (
	"context"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/projctx/pkg/core"
)

// memStorage is an in-memory core.Storage that counts writes.
type memStorage struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes int
	// onWrite runs before each write is applied, outside the lock.
	onWrite func(path string)
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) Exists(ctx context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[p]
	return ok, nil
}

func (s *memStorage) Read(ctx context.Context, p string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[p]
	if !ok {
		return nil, os.ErrNotExist
	}
	return slices.Clone(data), nil
}

func (s *memStorage) Write(ctx context.Context, p string, data []byte) error {
	if s.onWrite != nil {
		s.onWrite(p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = slices.Clone(data)
	s.writes++
	return nil
}

func (s *memStorage) Remove(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, p)
	return nil
}

func (s *memStorage) Mkdir(ctx context.Context, p string) error { return nil }

func (s *memStorage) List(ctx context.Context, dir string) (core.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var l core.Listing
	for p := range s.files {
		if path.Dir(p) == dir {
			l.Files = append(l.Files, p)
		}
	}
	return l, nil
}

// seed stores data without counting it as a write.
func (s *memStorage) seed(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = data
}

func (s *memStorage) raw(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[p]
	return data, ok
}

func (s *memStorage) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// memContent is an in-memory core.ContentStore with readable keys.
type memContent struct {
	mu      sync.Mutex
	entries map[string]string
	removed []string
}

func newMemContent() *memContent {
	return &memContent{entries: make(map[string]string)}
}

func (m *memContent) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memContent) Set(ctx context.Context, key, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = content
	return nil
}

func (m *memContent) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memContent) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]string)
	return nil
}

func (m *memContent) CacheKey(file core.File, additional string) string {
	return fmt.Sprintf("key-%s-%d-%s", file.Path, file.Stat.Mtime, additional)
}

// memVault is an in-memory core.Vault.
type memVault struct {
	mu    sync.Mutex
	files map[string]core.File
}

func newMemVault(paths ...string) *memVault {
	v := &memVault{files: make(map[string]core.File)}
	for _, p := range paths {
		v.add(p, time.UnixMilli(1700000000000))
	}
	return v
}

func (v *memVault) add(p string, mtime time.Time) core.File {
	v.mu.Lock()
	defer v.mu.Unlock()
	f := core.NewFile(p, mtime, int64(len(p)))
	v.files[f.Path] = f
	return f
}

func (v *memVault) remove(p string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.files, p)
}

func (v *memVault) Files(ctx context.Context) ([]core.File, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]core.File, 0, len(v.files))
	for _, f := range v.files {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b core.File) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func (v *memVault) FileByPath(ctx context.Context, p string) (core.File, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, ok := v.files[p]
	return f, ok, nil
}

// extRegistry supports a fixed set of extensions.
type extRegistry []string

func (r extRegistry) SupportsExtension(ext string) bool {
	return slices.Contains(r, ext)
}
