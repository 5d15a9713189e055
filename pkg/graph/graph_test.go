package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddEdgeIgnoresLoops(t *testing.T) {
	g := NewUndirected()
	g.AddEdge(3, 3)

	assert.False(t, g.HasVertex(3), "loop should not even create the vertex")
	assert.Equal(t, 0, g.Size())
}

func TestOrderAndSize(t *testing.T) {
	g := NewUndirected()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(0, 1) // duplicate collapses

	assert.Equal(t, 3, g.Order())
	assert.Equal(t, 2, g.Size())
	assert.Equal(t, 2, g.Degree(1))
	assert.Equal(t, 0, g.Degree(99), "absent vertex has degree 0")
}

func TestVerticesAndNeighborsSorted(t *testing.T) {
	g := NewUndirected()
	g.AddEdge(7, 2)
	g.AddEdge(7, 5)
	g.AddEdge(7, 1)

	assert.Equal(t, []int{1, 2, 5, 7}, g.Vertices())
	assert.Equal(t, []int{1, 2, 5}, g.Neighbors(7))
}

func TestInduce(t *testing.T) {
	// Square 0-1-2-3 with a diagonal 0-2.
	g := NewUndirected()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(3, 0)
	g.AddEdge(0, 2)

	sub := g.Induce([]int{0, 1, 2})
	assert.Equal(t, 3, sub.Order())
	assert.Equal(t, 3, sub.Size())
	assert.True(t, sub.HasEdge(0, 2))
	assert.False(t, sub.HasVertex(3))

	// The original graph is untouched.
	assert.Equal(t, 4, g.Order())
	assert.Equal(t, 5, g.Size())
}

func TestInduceUnknownVertexIsIsolated(t *testing.T) {
	g := NewUndirected()
	g.AddEdge(0, 1)

	sub := g.Induce([]int{0, 1, 42})
	assert.Equal(t, 3, sub.Order())
	assert.Equal(t, 0, sub.Degree(42))
}
