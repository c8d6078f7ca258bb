package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

func TestLinkHandler(t *testing.T) {
	f := newFixture(t)
	h := NewLinkHandler(f.links)
	for _, uid := range []string{"a", "b", "c"} {
		f.person(t, uid, uid)
	}

	links, err := h.HandleCreate("a", "b", "knows", true)
	require.NoError(t, err)
	assert.Len(t, links, 2)
	_, err = h.HandleCreate("b", "c", "works with", false)
	require.NoError(t, err)

	t.Run("direct links", func(t *testing.T) {
		result, err := h.HandleList("a", ListOptions{Depth: 1})
		require.NoError(t, err)
		assert.Len(t, result.Links, 2)
		assert.Empty(t, result.Related)
	})

	t.Run("with depth", func(t *testing.T) {
		result, err := h.HandleList("a", ListOptions{Depth: 2})
		require.NoError(t, err)
		require.Len(t, result.Related, 2)
		assert.Equal(t, "b", result.Related[0].UID)
		assert.Equal(t, 1, result.Related[0].Depth)
		assert.Equal(t, "c", result.Related[1].UID)
		assert.Equal(t, 2, result.Related[1].Depth)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, h.HandleDelete("b", "c"))
		require.ErrorIs(t, h.HandleDelete("b", "c"), entities.ErrLinkNotFound)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		_, err := h.HandleCreate("a", "ghost", "x", false)
		require.ErrorIs(t, err, entities.ErrEntityNotFound)
		_, err = h.HandleList("ghost", ListOptions{})
		require.ErrorIs(t, err, entities.ErrEntityNotFound)
	})
}
