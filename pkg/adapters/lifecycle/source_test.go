package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/projctx/pkg/core"
)

func TestSource_Bridges(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	in := make(chan core.Event, 3)
	src := NewSource(in, WithFilter(func(e core.Event) bool { return core.IsMarkdownPath(e.Path) }))
	require.NoError(t, src.Start(ctx))

	in <- core.Event{Type: core.EventCreate, Path: "a.pdf"}
	in <- core.Event{Type: core.EventModify, Path: "notes/b.md"}
	close(in)

	var got []string
	for e := range src.Events() {
		got = append(got, e.String())
	}
	assert.Equal(t, []string{"MODIFY notes/b.md"}, got)
}

func TestSource_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewSource(make(chan core.Event))
	require.NoError(t, src.Start(ctx))
	cancel()

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not close")
	}
}
