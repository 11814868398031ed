package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/projctx/pkg/core"
)

type stubParser struct {
	exts []string
	out  string
	err  error
}

func (s stubParser) Extensions() []string { return s.exts }

func (s stubParser) Parse(ctx context.Context, file core.File, data []byte) (string, error) {
	return s.out, s.err
}

func TestManager(t *testing.T) {
	m := NewDefaultManager()

	assert.Equal(t, []string{"canvas", "csv", "json", "md", "yaml", "yml"}, m.Extensions())
	assert.True(t, m.SupportsExtension("md"))
	assert.True(t, m.SupportsExtension(".MD"))
	assert.False(t, m.SupportsExtension("pdf"))

	m.Register(stubParser{exts: []string{"pdf"}, out: "pdf text"})
	assert.True(t, m.SupportsExtension("pdf"))

	out, err := m.Parse(context.Background(), core.FileFromPath("a.pdf"), nil)
	require.NoError(t, err)
	assert.Equal(t, "pdf text", out)

	_, err = m.Parse(context.Background(), core.FileFromPath("a.docx"), nil)
	assert.True(t, errors.Is(err, core.ErrNoParser))
}

func TestErrorPlaceholder(t *testing.T) {
	assert.Equal(t, "[Error: Could not parse board]", ErrorPlaceholder(core.FileFromPath("x/board.canvas")))
}

func TestCanvasParser(t *testing.T) {
	data := []byte(`{
		"nodes": [
			{"id": "1", "type": "text", "text": "Launch\nplan"},
			{"id": "2", "type": "file", "file": "notes/spec.md"},
			{"id": "3", "type": "link", "url": "https://example.com"},
			{"id": "4", "type": "group", "label": "Phase 1"}
		],
		"edges": [
			{"id": "e1", "fromNode": "1", "toNode": "2", "label": "details"},
			{"id": "e2", "fromNode": "2", "toNode": "3"}
		]
	}`)

	out, err := CanvasParser{}.Parse(context.Background(), core.FileFromPath("boards/roadmap.canvas"), data)
	require.NoError(t, err)

	assert.Equal(t, `Canvas: roadmap

Nodes:
- [text] Launch plan
- [file] notes/spec.md
- [link] https://example.com
- [group] Phase 1

Connections:
- Launch plan -> notes/spec.md (details)
- notes/spec.md -> https://example.com`, out)

	_, err = CanvasParser{}.Parse(context.Background(), core.FileFromPath("bad.canvas"), []byte("nope"))
	require.Error(t, err)
}
