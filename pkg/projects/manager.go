// Package projects loads project context: it keeps each project's cache in
// step with the vault, builds the aggregated markdown context, and fills in
// the parsed content of every other tracked file.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/aretw0/projctx/pkg/cache"
	"github.com/aretw0/projctx/pkg/core"
	"github.com/aretw0/projctx/pkg/parser"
)

const (
	defaultConcurrency = 4
	phaseMarkdown      = "markdown"
	phaseFiles         = "files"
)

// Parser turns a vault file into text.
type Parser interface {
	Parse(ctx context.Context, file core.File, data []byte) (string, error)
}

// Recorder receives loader events for metrics.
type Recorder interface {
	FileParsed(ok bool)
	LoadPhase(phase string, seconds float64)
	VaultEvent(eventType string)
}

// Config wires a Manager.
type Config struct {
	Cache    *cache.Cache
	Vault    core.Vault
	Reader   core.FileReader
	Parser   Parser
	Registry *Registry
	Logger   *slog.Logger
	Recorder Recorder

	// Concurrency bounds how many files are parsed at once.
	Concurrency int
	// RateLimit caps parses per second; zero means unlimited.
	RateLimit float64
	// Burst is the limiter burst; defaults to Concurrency.
	Burst int
}

// ProjectContext is the loaded context of a project.
type ProjectContext struct {
	Project  core.ProjectConfig
	Markdown string
	// Files maps the path of every tracked non-markdown file to its text.
	Files map[string]string
}

// Manager loads project context.
type Manager struct {
	cache    *cache.Cache
	vault    core.Vault
	reader   core.FileReader
	parser   Parser
	registry *Registry
	logger   *slog.Logger
	recorder Recorder

	concurrency int
	limiter     *rate.Limiter

	tracker loadTracker
	loading sync.Mutex
}

// NewManager creates a Manager. Cache, Vault, Reader and Parser are required.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Cache == nil || cfg.Vault == nil || cfg.Reader == nil || cfg.Parser == nil {
		return nil, errors.New("projects: cache, vault, reader and parser are required")
	}

	m := &Manager{
		cache:       cfg.Cache,
		vault:       cfg.Vault,
		reader:      cfg.Reader,
		parser:      cfg.Parser,
		registry:    cfg.Registry,
		logger:      cfg.Logger,
		recorder:    cfg.Recorder,
		concurrency: cfg.Concurrency,
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.recorder == nil {
		m.recorder = nopRecorder{}
	}
	if m.registry == nil {
		m.registry = &Registry{}
	}
	if m.concurrency <= 0 {
		m.concurrency = defaultConcurrency
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = m.concurrency
	}
	m.limiter = rate.NewLimiter(limit, burst)

	return m, nil
}

// Registry returns the project registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// LoadState returns a snapshot of the most recent load.
func (m *Manager) LoadState() LoadState {
	return m.tracker.snapshot()
}

// LoadContext brings the project's cache up to date and returns its context.
//
// The markdown phase reconciles the tracked files with the vault and, when
// flagged, rebuilds the aggregated markdown in the same safe update. The files
// phase then parses every tracked non-markdown file whose content is missing
// or stale.
func (m *Manager) LoadContext(ctx context.Context, p core.ProjectConfig) (*ProjectContext, error) {
	m.loading.Lock()
	defer m.loading.Unlock()
	m.tracker.reset()

	if _, err := m.cache.GetOrInitializeCache(ctx, p); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := m.cache.UpdateSafelyAsync(ctx, p, func(ctx context.Context, cc *core.ContextCache) (*core.ContextCache, error) {
		return m.refreshMarkdown(ctx, p, cc)
	}); err != nil {
		return nil, err
	}
	m.recorder.LoadPhase(phaseMarkdown, time.Since(start).Seconds())

	cc, err := m.cache.Get(ctx, p)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	files, err := m.populate(ctx, p, cc)
	if err != nil {
		return nil, err
	}
	m.recorder.LoadPhase(phaseFiles, time.Since(start).Seconds())

	state := m.tracker.snapshot()
	m.logger.Info("project context loaded",
		"project", p.ID,
		"files", len(cc.FileContexts),
		"succeeded", len(state.Success),
		"failed", len(state.Failed),
	)

	return &ProjectContext{
		Project:  p,
		Markdown: cc.MarkdownContext,
		Files:    files,
	}, nil
}

// Reload drops the markdown context and stale references, then loads again.
func (m *Manager) Reload(ctx context.Context, p core.ProjectConfig) (*ProjectContext, error) {
	if err := m.cache.InvalidateMarkdownContext(ctx, p, true); err != nil {
		return nil, err
	}
	return m.LoadContext(ctx, p)
}

// Rebuild discards everything cached for the project and loads from scratch.
func (m *Manager) Rebuild(ctx context.Context, p core.ProjectConfig) (*ProjectContext, error) {
	if err := m.cache.ClearForProject(ctx, p); err != nil {
		return nil, err
	}
	return m.LoadContext(ctx, p)
}

// refreshMarkdown runs inside a safe update. It returns nil when nothing changed.
func (m *Manager) refreshMarkdown(ctx context.Context, p core.ProjectConfig, cc *core.ContextCache) (*core.ContextCache, error) {
	next, err := m.cache.UpdateProjectFilesFromPatterns(ctx, p, cc)
	if err != nil {
		return nil, err
	}

	var notes []string
	for filePath := range next.FileContexts {
		if core.IsMarkdownPath(filePath) {
			notes = append(notes, filePath)
		}
	}
	slices.Sort(notes)
	m.tracker.addTotal(notes...)

	if !next.MarkdownNeedsReload {
		for _, n := range notes {
			m.tracker.succeeded(n)
		}
		if len(next.FileContexts) == len(cc.FileContexts) {
			return nil, nil
		}
		return next, nil
	}

	blocks := make([]string, 0, len(notes))
	for _, notePath := range notes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block, parseErr, err := m.renderNote(ctx, notePath)
		if err != nil {
			m.logger.Warn("failed to read note", "project", p.ID, "path", notePath, "error", err)
			m.tracker.failed(FailedItem{Path: notePath, Type: KindMarkdown, Error: err.Error(), Timestamp: time.Now().UnixMilli()})
			m.recorder.FileParsed(false)
			continue
		}
		blocks = append(blocks, block)
		if parseErr != nil {
			m.logger.Warn("failed to parse note", "project", p.ID, "path", notePath, "error", parseErr)
			m.tracker.failed(FailedItem{Path: notePath, Type: KindMarkdown, Error: parseErr.Error(), Timestamp: time.Now().UnixMilli()})
			m.recorder.FileParsed(false)
			continue
		}
		m.tracker.succeeded(notePath)
		m.recorder.FileParsed(true)
	}

	next.MarkdownContext = strings.Join(blocks, "\n\n")
	next.MarkdownNeedsReload = false
	return next, nil
}

// renderNote formats one note for the aggregated markdown context. A note
// that fails to parse renders as a placeholder and reports parseErr.
func (m *Manager) renderNote(ctx context.Context, notePath string) (block string, parseErr error, err error) {
	file, ok, err := m.vault.FileByPath(ctx, notePath)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("%s is no longer in the vault", notePath)
	}
	m.tracker.processing(notePath)

	data, err := m.reader.ReadFile(ctx, notePath)
	if err != nil {
		return "", nil, err
	}
	text, parseErr := m.parser.Parse(ctx, file, data)
	if parseErr != nil {
		text = parser.ErrorPlaceholder(file)
	}

	meta, _, _ := parser.SplitFrontmatter(data)
	return fmt.Sprintf("## %s\npath: %s\n\n%s", parser.Title(file, meta), file.Path, strings.TrimSpace(text)), parseErr, nil
}

// populate returns the text of every tracked non-markdown file, parsing and
// storing those the content store does not hold.
func (m *Manager) populate(ctx context.Context, p core.ProjectConfig, cc *core.ContextCache) (map[string]string, error) {
	var pending []string
	files := make(map[string]string)
	for filePath := range cc.FileContexts {
		if core.IsMarkdownPath(filePath) {
			continue
		}
		m.tracker.addTotal(filePath)
		content, ok, err := m.cache.GetOrReuseFileContext(ctx, p, filePath)
		if err != nil {
			return nil, err
		}
		if ok {
			files[filePath] = content
			m.tracker.succeeded(filePath)
			continue
		}
		pending = append(pending, filePath)
	}
	slices.Sort(pending)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, filePath := range pending {
		g.Go(func() error {
			if err := m.limiter.Wait(gctx); err != nil {
				return err
			}
			content, err := m.parseFile(gctx, p, filePath)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// A single file never fails the load.
				content = parser.ErrorPlaceholder(core.FileFromPath(filePath))
			}
			mu.Lock()
			files[filePath] = content
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// parseFile parses one file and stores the result. Failures are recorded in
// the load state and reported as an error.
func (m *Manager) parseFile(ctx context.Context, p core.ProjectConfig, filePath string) (string, error) {
	m.tracker.processing(filePath)

	fail := func(err error) (string, error) {
		m.logger.Warn("failed to process file", "project", p.ID, "path", filePath, "error", err)
		m.tracker.failed(FailedItem{Path: filePath, Type: KindNonMarkdown, Error: err.Error(), Timestamp: time.Now().UnixMilli()})
		m.recorder.FileParsed(false)
		return "", err
	}

	file, ok, err := m.vault.FileByPath(ctx, filePath)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(fmt.Errorf("%s is no longer in the vault", filePath))
	}
	data, err := m.reader.ReadFile(ctx, filePath)
	if err != nil {
		return fail(err)
	}
	text, err := m.parser.Parse(ctx, file, data)
	if err != nil {
		return fail(err)
	}
	if err := m.cache.SetFileContext(ctx, p, filePath, text); err != nil {
		return fail(err)
	}

	m.tracker.succeeded(filePath)
	m.recorder.FileParsed(true)
	return text, nil
}

type nopRecorder struct{}

func (nopRecorder) FileParsed(bool)           {}
func (nopRecorder) LoadPhase(string, float64) {}
func (nopRecorder) VaultEvent(string)         {}
