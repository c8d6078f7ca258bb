package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

func node(uid string) *entities.Entity {
	return &entities.Entity{UID: uid, Type: "Phrase", Attributes: entities.Attributes{{Key: "Phrase", Value: uid}}}
}

func link(src, dst string) *entities.Link {
	return &entities.Link{Key: entities.LinkKey{Source: src, Target: dst}}
}

// chain builds a -> b -> c plus an isolated d.
func chain(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, uid := range []string{"a", "b", "c", "d"} {
		g.PutNode(node(uid))
	}
	require.True(t, g.PutLink(link("a", "b")))
	require.True(t, g.PutLink(link("b", "c")))
	return g
}

func TestGraph_Adjacency(t *testing.T) {
	g := chain(t)

	assert.Equal(t, []string{"b"}, g.Successors("a"))
	assert.Equal(t, []string{"a"}, g.Predecessors("b"))
	assert.Equal(t, []string{"b", "c"}, g.Descendants("a"))
	assert.Equal(t, []string{"a", "b"}, g.Ancestors("c"))
	assert.True(t, g.HasPath("a", "c"))
	assert.False(t, g.HasPath("c", "a"))
	assert.Equal(t, 0, g.InDegree("a"))
	assert.Equal(t, 0, g.OutDegree("c"))
	assert.Empty(t, g.Descendants("d"))
}

func TestGraph_PutLinkNeedsEndpoints(t *testing.T) {
	g := chain(t)
	assert.False(t, g.PutLink(link("a", "missing")))
	assert.Equal(t, 2, g.LinkCount())
}

func TestGraph_RemoveNodeCascades(t *testing.T) {
	g := chain(t)

	removed := g.RemoveNode("b")
	require.Len(t, removed, 2)
	assert.Equal(t, entities.LinkKey{Source: "a", Target: "b"}, removed[0].Key)
	assert.Equal(t, entities.LinkKey{Source: "b", Target: "c"}, removed[1].Key)

	assert.False(t, g.HasNode("b"))
	assert.Empty(t, g.OutLinks("a"))
	assert.Empty(t, g.InLinks("c"))
	assert.Nil(t, g.OutLinks("b"))
	assert.Nil(t, g.RemoveNode("b"))
}

func TestGraph_PutNodeKeepsEdges(t *testing.T) {
	g := chain(t)
	replacement := node("b")
	replacement.Notes = "updated"
	g.PutNode(replacement)

	assert.Equal(t, "updated", g.Node("b").Notes)
	assert.True(t, g.HasLink(entities.LinkKey{Source: "a", Target: "b"}))
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := chain(t)
	c := g.Clone()

	c.RemoveNode("a")
	c.Node("b").Notes = "changed"

	assert.True(t, g.HasNode("a"))
	assert.Equal(t, "", g.Node("b").Notes)
	assert.Equal(t, []string{"b"}, g.Successors("a"))
}

func TestGraph_Cycle(t *testing.T) {
	g := chain(t)
	require.True(t, g.PutLink(link("c", "a")))

	assert.Equal(t, []string{"a", "b", "c"}, g.Descendants("a"))
	assert.True(t, g.HasPath("c", "b"))
}
