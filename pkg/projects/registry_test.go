package projects_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/projctx/pkg/core"
	"github.com/aretw0/projctx/pkg/projects"
)

func TestNewRegistry(t *testing.T) {
	t.Run("rejects a project without id", func(t *testing.T) {
		_, err := projects.NewRegistry([]core.ProjectConfig{{Name: "x"}})
		assert.ErrorIs(t, err, core.ErrInvalidProject)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		_, err := projects.NewRegistry([]core.ProjectConfig{{ID: "a"}, {ID: "a"}})
		assert.Error(t, err)
	})

	t.Run("keeps order", func(t *testing.T) {
		r, err := projects.NewRegistry([]core.ProjectConfig{{ID: "b"}, {ID: "a"}})
		require.NoError(t, err)
		all := r.All()
		require.Len(t, all, 2)
		assert.Equal(t, "b", all[0].ID)
		assert.Equal(t, "a", all[1].ID)
	})
}

func TestRegistry_Find(t *testing.T) {
	r, err := projects.NewRegistry([]core.ProjectConfig{
		{ID: "p1", Name: "Research"},
		{ID: "research", Name: "Other"},
	})
	require.NoError(t, err)

	p, err := r.Find("p1")
	require.NoError(t, err)
	assert.Equal(t, "Research", p.Name)

	// IDs win over names.
	p, err = r.Find("research")
	require.NoError(t, err)
	assert.Equal(t, "Other", p.Name)

	p, err = r.Find("OTHER")
	require.NoError(t, err)
	assert.Equal(t, "research", p.ID)

	_, err = r.Find("missing")
	assert.ErrorIs(t, err, projects.ErrProjectNotFound)
}

func TestRegistry_Add(t *testing.T) {
	r, err := projects.NewRegistry(nil)
	require.NoError(t, err)

	p, err := r.Add("  Writing ", core.ContextSource{Inclusions: "drafts/**"})
	require.NoError(t, err)
	assert.Equal(t, "Writing", p.Name)
	assert.NotZero(t, p.Created)
	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)

	found, err := r.Find(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, found)

	_, err = r.Add("writing", core.ContextSource{})
	assert.Error(t, err, "names are unique ignoring case")

	_, err = r.Add(" ", core.ContextSource{})
	assert.Error(t, err)
}
