package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewStorage(root, nil)

	ok, err := s.Exists(ctx, "cache/p.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "cache/p.json", []byte("{}")))
	ok, err = s.Exists(ctx, "cache/p.json")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Read(ctx, "cache/p.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, s.Mkdir(ctx, "cache/nested"))
	listing, err := s.List(ctx, "cache")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache/p.json"}, listing.Files)
	assert.Equal(t, []string{"cache/nested"}, listing.Folders)

	require.NoError(t, s.Remove(ctx, "cache/p.json"))
	require.NoError(t, s.Remove(ctx, "cache/p.json"), "removing twice is fine")
	_, err = os.Stat(filepath.Join(root, "cache", "p.json"))
	assert.True(t, os.IsNotExist(err))

	listing, err = s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, listing.Files)
}

func TestStorage_RejectsEscapes(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(t.TempDir(), nil)

	assert.Error(t, s.Write(ctx, "../outside.json", []byte("x")))
	_, err := s.Read(ctx, "../../etc/passwd")
	assert.Error(t, err)
}

func TestStorage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStorage(t.TempDir(), nil)

	assert.ErrorIs(t, s.Write(ctx, "a.json", []byte("x")), context.Canceled)
}

func TestStorage_EnsureIgnore(t *testing.T) {
	t.Run("Not A Git Checkout", func(t *testing.T) {
		root := t.TempDir()
		mod, err := NewStorage(root, nil).EnsureIgnore(".projctx")
		require.NoError(t, err)
		assert.False(t, mod)
		_, err = os.Stat(filepath.Join(root, ".gitignore"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Appends Once", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/"), 0644))
		s := NewStorage(root, nil)

		mod, err := s.EnsureIgnore(".projctx")
		require.NoError(t, err)
		assert.True(t, mod)

		mod, err = s.EnsureIgnore(".projctx/")
		require.NoError(t, err)
		assert.False(t, mod)

		data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
		require.NoError(t, err)
		assert.Equal(t, "node_modules/\n.projctx/\n", string(data))
	})
}
