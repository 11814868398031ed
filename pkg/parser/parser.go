// Package parser turns vault files into the plain text stored in a project's
// context. Parsers are registered per extension; the set of registered
// extensions also decides which files a project may track at all.
package parser

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/projctx/pkg/core"
)

// Manager is a registry of parsers keyed by extension.
type Manager struct {
	mu      sync.RWMutex
	parsers map[string]core.Parser
}

var _ core.ParserRegistry = (*Manager)(nil)

// NewManager creates a Manager with the given parsers registered.
func NewManager(parsers ...core.Parser) *Manager {
	m := &Manager{parsers: make(map[string]core.Parser)}
	for _, p := range parsers {
		m.Register(p)
	}
	return m
}

// NewDefaultManager registers markdown, canvas and the structured data parsers.
func NewDefaultManager() *Manager {
	return NewManager(
		MarkdownParser{},
		CanvasParser{},
		JSONParser{},
		YAMLParser{},
		CSVParser{},
	)
}

// Register adds p for each of its extensions, replacing earlier registrations.
func (m *Manager) Register(p core.Parser) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ext := range p.Extensions() {
		m.parsers[normalizeExt(ext)] = p
	}
}

// SupportsExtension implements core.ParserRegistry.
func (m *Manager) SupportsExtension(ext string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.parsers[normalizeExt(ext)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (m *Manager) Extensions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.parsers))
	for ext := range m.parsers {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// Parse dispatches to the parser registered for the file's extension.
func (m *Manager) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	m.mu.RLock()
	p, ok := m.parsers[normalizeExt(file.Extension)]
	m.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrNoParser, file.Extension)
	}
	return p.Parse(ctx, file, data)
}

// ErrorPlaceholder is the text stored for a file that failed to parse.
func ErrorPlaceholder(file core.File) string {
	return fmt.Sprintf("[Error: Could not parse %s]", file.Basename)
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
