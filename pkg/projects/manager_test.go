package projects_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/projctx/pkg/adapters/fs"
	"github.com/aretw0/projctx/pkg/cache"
	"github.com/aretw0/projctx/pkg/core"
	"github.com/aretw0/projctx/pkg/parser"
	"github.com/aretw0/projctx/pkg/patterns"
	"github.com/aretw0/projctx/pkg/projects"
)

type env struct {
	root    string
	vault   *fs.Vault
	cache   *cache.Cache
	manager *projects.Manager
	project core.ProjectConfig
}

// failingParser fails every file whose path is listed and delegates the rest.
type failingParser struct {
	next  projects.Parser
	paths map[string]bool
}

func (p failingParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	if p.paths[file.Path] {
		return "", errors.New("boom")
	}
	return p.next.Parse(ctx, file, data)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func newEnv(t *testing.T, failing ...string) *env {
	t.Helper()
	root := t.TempDir()

	writeFile(t, root, "notes/a.md", "# Alpha\n\nfirst note")
	writeFile(t, root, "notes/b.md", "---\ntitle: Beta Note\n---\nsecond note")
	writeFile(t, root, "notes/data.json", `{"name": "projctx", "stars": 3}`)
	writeFile(t, root, "notes/table.csv", "id,name\n1,one\n2,two\n")
	writeFile(t, root, "other/c.md", "outside")

	storage := fs.NewStorage(filepath.Join(root, ".projctx"), nil)
	vault := fs.NewVault(fs.VaultConfig{Path: root, SystemDir: ".projctx"})
	registry := parser.NewDefaultManager()

	c, err := cache.New(cache.Config{
		Storage: storage,
		Content: fs.NewContentStore(storage, "", nil),
		Vault:   vault,
		Matcher: patterns.New(),
		Parsers: registry,
	})
	require.NoError(t, err)

	project := core.ProjectConfig{
		ID:            "p1",
		Name:          "Research",
		ContextSource: core.ContextSource{Inclusions: "notes/**"},
	}
	reg, err := projects.NewRegistry([]core.ProjectConfig{project})
	require.NoError(t, err)

	skip := make(map[string]bool)
	for _, f := range failing {
		skip[f] = true
	}
	m, err := projects.NewManager(projects.Config{
		Cache:       c,
		Vault:       vault,
		Reader:      vault,
		Parser:      failingParser{next: registry, paths: skip},
		Registry:    reg,
		Concurrency: 2,
	})
	require.NoError(t, err)

	return &env{root: root, vault: vault, cache: c, manager: m, project: project}
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	_, err := projects.NewManager(projects.Config{})
	assert.Error(t, err)
}

func TestLoadContext(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pc, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)

	want := "## a\npath: notes/a.md\n\n# Alpha\n\nfirst note" +
		"\n\n" +
		"## Beta Note\npath: notes/b.md\n\n---\ntitle: Beta Note\n---\nsecond note"
	assert.Equal(t, want, pc.Markdown)
	assert.NotContains(t, pc.Markdown, "outside")

	require.Len(t, pc.Files, 2)
	assert.Contains(t, pc.Files["notes/data.json"], "name: projctx")
	assert.Equal(t, "id: 1\nname: one\n\nid: 2\nname: two", pc.Files["notes/table.csv"])

	tracked, err := e.cache.TrackedFiles(ctx, e.project)
	require.NoError(t, err)
	assert.Equal(t, []string{"notes/a.md", "notes/b.md", "notes/data.json", "notes/table.csv"}, tracked)

	cc, err := e.cache.Get(ctx, e.project)
	require.NoError(t, err)
	assert.False(t, cc.MarkdownNeedsReload)

	state := e.manager.LoadState()
	assert.Len(t, state.Total, 4)
	assert.ElementsMatch(t, state.Total, state.Success)
	assert.Empty(t, state.Failed)
	assert.Empty(t, state.ProcessingFiles)
}

func TestLoadContext_ReusesStoredContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)

	// Content that is still fresh is served from the store, not re-parsed.
	content, ok, err := e.cache.GetOrReuseFileContext(ctx, e.project, "notes/table.csv")
	require.NoError(t, err)
	require.True(t, ok)

	writeFile(t, e.root, "notes/table.csv", "id,name\n3,three\n")
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(e.root, "notes", "table.csv"), later, later))

	_, ok, err = e.cache.GetOrReuseFileContext(ctx, e.project, "notes/table.csv")
	require.NoError(t, err)
	assert.False(t, ok, "a modified file must not reuse its old content")

	pc, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)
	assert.NotEqual(t, content, pc.Files["notes/table.csv"])
	assert.Equal(t, "id: 3\nname: three", pc.Files["notes/table.csv"])
}

func TestLoadContext_ParseFailures(t *testing.T) {
	e := newEnv(t, "notes/b.md", "notes/data.json")
	ctx := context.Background()

	pc, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)

	assert.Contains(t, pc.Markdown, "## Beta Note\npath: notes/b.md\n\n[Error: Could not parse b]")
	assert.Equal(t, "[Error: Could not parse data]", pc.Files["notes/data.json"])

	state := e.manager.LoadState()
	require.Len(t, state.Failed, 2)
	kinds := map[string]string{}
	for _, f := range state.Failed {
		kinds[f.Path] = f.Type
		assert.Equal(t, "boom", f.Error)
	}
	assert.Equal(t, map[string]string{
		"notes/b.md":      projects.KindMarkdown,
		"notes/data.json": projects.KindNonMarkdown,
	}, kinds)

	// Failed content is not stored.
	_, ok, err := e.cache.GetOrReuseFileContext(ctx, e.project, "notes/data.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadContext_PicksUpNewNotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)

	writeFile(t, e.root, "notes/d.md", "late note")
	pc, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)
	assert.Contains(t, pc.Markdown, "## d\npath: notes/d.md\n\nlate note")
}

func TestLoadContext_RecoversLostDocument(t *testing.T) {
	ctx := context.Background()
	docFile := func(e *env) string {
		return filepath.Join(e.root, ".projctx", filepath.FromSlash(e.cache.DocumentPath(e.project.ID)))
	}

	t.Run("removed", func(t *testing.T) {
		e := newEnv(t)
		first, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		require.NoError(t, os.Remove(docFile(e)))

		pc, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)
		assert.Equal(t, first.Markdown, pc.Markdown)
		assert.FileExists(t, docFile(e))
	})

	t.Run("corrupted", func(t *testing.T) {
		e := newEnv(t)
		first, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(docFile(e), []byte("{not json"), 0644))

		pc, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)
		assert.Equal(t, first.Markdown, pc.Markdown)
		assert.Equal(t, first.Files, pc.Files)
	})
}

func TestLoadContext_Cancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.manager.LoadContext(ctx, e.project)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)

	writeFile(t, e.root, "notes/a.md", "rewritten")
	require.NoError(t, os.Remove(filepath.Join(e.root, "notes", "data.json")))

	pc, err := e.manager.Reload(ctx, e.project)
	require.NoError(t, err)
	assert.Contains(t, pc.Markdown, "path: notes/a.md\n\nrewritten")
	assert.NotContains(t, pc.Files, "notes/data.json")

	tracked, err := e.cache.TrackedFiles(ctx, e.project)
	require.NoError(t, err)
	assert.NotContains(t, tracked, "notes/data.json")
}

func TestRebuild(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.manager.LoadContext(ctx, e.project)
	require.NoError(t, err)

	second, err := e.manager.Rebuild(ctx, e.project)
	require.NoError(t, err)
	assert.Equal(t, first.Markdown, second.Markdown)
	assert.Equal(t, first.Files, second.Files)
	assert.Len(t, e.manager.LoadState().Success, 4)
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("ignores projects without a cache", func(t *testing.T) {
		e := newEnv(t)
		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "notes/a.md"})
		require.NoError(t, err)
		assert.Empty(t, touched)

		_, err = e.cache.Get(ctx, e.project)
		assert.ErrorIs(t, err, core.ErrCacheNotFound)
	})

	t.Run("create adds a tracked file", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		writeFile(t, e.root, "notes/new.md", "fresh")
		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "notes/new.md"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, touched)

		cc, err := e.cache.Get(ctx, e.project)
		require.NoError(t, err)
		assert.Contains(t, cc.FileContexts, "notes/new.md")
		assert.True(t, cc.MarkdownNeedsReload)
	})

	t.Run("create adds a tracked data file", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		writeFile(t, e.root, "notes/board.canvas", `{"nodes": [], "edges": []}`)
		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "notes/board.canvas"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, touched)

		cc, err := e.cache.Get(ctx, e.project)
		require.NoError(t, err)
		assert.Contains(t, cc.FileContexts, "notes/board.canvas")
		assert.False(t, cc.MarkdownNeedsReload)
	})

	t.Run("create of an already listed file writes nothing", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)
		before, err := os.ReadFile(filepath.Join(e.root, ".projctx", filepath.FromSlash(e.cache.DocumentPath("p1"))))
		require.NoError(t, err)

		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "notes/data.json"})
		require.NoError(t, err)
		assert.Empty(t, touched)

		after, err := os.ReadFile(filepath.Join(e.root, ".projctx", filepath.FromSlash(e.cache.DocumentPath("p1"))))
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("create of an unsupported file is ignored", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		writeFile(t, e.root, "notes/image.bin", "\x00")
		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "notes/image.bin"})
		require.NoError(t, err)
		assert.Empty(t, touched)
	})

	t.Run("create outside the patterns is ignored", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		writeFile(t, e.root, "other/x.md", "x")
		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventCreate, Path: "other/x.md"})
		require.NoError(t, err)
		assert.Empty(t, touched)
	})

	t.Run("modify of a note invalidates the markdown", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: "notes/a.md"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, touched)

		cc, err := e.cache.Get(ctx, e.project)
		require.NoError(t, err)
		assert.Empty(t, cc.MarkdownContext)
		assert.True(t, cc.MarkdownNeedsReload)
	})

	t.Run("modify of a data file leaves the cache alone", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventModify, Path: "notes/data.json"})
		require.NoError(t, err)
		assert.Empty(t, touched)
	})

	t.Run("delete removes the reference", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(e.root, "notes", "b.md")))
		touched, err := e.manager.HandleEvent(ctx, core.Event{Type: core.EventDelete, Path: "notes/b.md"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, touched)

		cc, err := e.cache.Get(ctx, e.project)
		require.NoError(t, err)
		assert.NotContains(t, cc.FileContexts, "notes/b.md")
		assert.True(t, cc.MarkdownNeedsReload)

		pc, err := e.manager.LoadContext(ctx, e.project)
		require.NoError(t, err)
		assert.False(t, strings.Contains(pc.Markdown, "Beta Note"))
	})
}
