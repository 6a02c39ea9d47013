package graph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/graph"
)

func TestNodeAttributes(t *testing.T) {
	g := work(t)
	w := g.Node("w")

	require.NoError(t, w.Set("Title", "Dilbit on the Move"))
	v, err := w.Get("title")
	require.NoError(t, err)
	assert.Equal(t, "Dilbit on the Move", v)
	assert.Equal(t, map[string]any{"title": "Dilbit on the Move"}, w.Attrs(), "attributes are stored under their declared name")

	v, err = w.Get("description")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, w.Delete("title"))
	assert.Empty(t, w.Attrs())

	_, err = w.Get("ash")
	var ke *sharegraph.KeyError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, sharegraph.KindField, ke.Kind)
	assert.True(t, sharegraph.IsKeyError(w.Set("ash", 1)))
}

func TestNodeManyToOne(t *testing.T) {
	g := work(t)
	i := g.Node("i")

	v, err := i.Get("creative_work")
	require.NoError(t, err)
	assert.True(t, g.Node("w").Equal(v.(*graph.Node)))

	t.Run("Replace with a new id", func(t *testing.T) {
		require.NoError(t, i.Set("creative_work", "w2"))
		w2 := g.Node("w2")
		require.NotNil(t, w2, "writing a missing id creates the node")
		assert.Equal(t, "AbstractCreativeWork", w2.Type())
		assert.Equal(t, []string{"i"}, ids(g.ResolveNamedInEdges("w2", "identifiers")))
		assert.Empty(t, g.ResolveNamedInEdges("w", "identifiers"))
	})

	t.Run("Replace with a node", func(t *testing.T) {
		require.NoError(t, i.Set("creative_work", g.Node("w")))
		assert.Equal(t, "w", g.ResolveNamedOutEdge("i", "creative_work").ID())
	})

	t.Run("Wrong related type", func(t *testing.T) {
		err := i.Set("creative_work", g.Node("a"))
		assert.True(t, errors.Is(err, sharegraph.ErrInvalidFieldWrite))
		assert.Equal(t, "w", g.ResolveNamedOutEdge("i", "creative_work").ID())
	})

	t.Run("Foreign node", func(t *testing.T) {
		err := i.Set("creative_work", work(t).Node("w"))
		assert.True(t, errors.Is(err, sharegraph.ErrInvalidFieldWrite))
	})

	t.Run("Unsupported value", func(t *testing.T) {
		assert.Error(t, i.Set("creative_work", 42))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, i.Delete("creative_work"))
		v, err := i.Get("creative_work")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("Set nil", func(t *testing.T) {
		require.NoError(t, i.Set("creative_work", "w"))
		require.NoError(t, i.Set("creative_work", nil))
		assert.Nil(t, g.ResolveNamedOutEdge("i", "creative_work"))
	})
}

func TestNodeMultiValued(t *testing.T) {
	g := work(t)
	w := g.Node("w")

	v, err := w.Get("identifiers")
	require.NoError(t, err)
	assert.Equal(t, []string{"i"}, ids(v.([]*graph.Node)))

	err = w.Set("identifiers", "i")
	var fe *sharegraph.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "identifiers", fe.Field)
	assert.True(t, errors.Is(w.Delete("identifiers"), sharegraph.ErrInvalidFieldWrite))
	assert.True(t, errors.Is(w.Set("related_agents", "a"), sharegraph.ErrInvalidFieldWrite))
}

func TestNodeManyToManyThrough(t *testing.T) {
	g := work(t)
	_, err := g.AddNode("f", "Funder", nil)
	require.NoError(t, err)
	_, err = g.AddNode("o", "Institution", nil)
	require.NoError(t, err)
	g.AddNamedEdge("f", "w", "creative_work", "agent_relations")
	g.AddNamedEdge("f", "o", "agent", "work_relations")

	v, err := g.Node("w").Get("related_agents")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "o"}, ids(v.([]*graph.Node)))

	v, err = g.Node("a").Get("related_works")
	require.NoError(t, err)
	assert.Equal(t, []string{"w"}, ids(v.([]*graph.Node)))

	v, err = g.Node("w").Get("subjects")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestNodeSetType(t *testing.T) {
	g := work(t)
	w := g.Node("w")
	require.NoError(t, w.SetType("thesis"))
	assert.Equal(t, "Thesis", w.Type())
	assert.True(t, sharegraph.IsKeyError(w.SetType("Gravel")))
	assert.Equal(t, "Thesis(w)", w.String())
}

func TestRemovedNodeView(t *testing.T) {
	g := work(t)
	i := g.Node("i")
	g.RemoveNode("i", false)
	assert.Equal(t, "", i.Type())
	assert.Nil(t, i.Attrs())
	_, err := i.Get("uri")
	assert.Error(t, err)
	assert.Error(t, i.SetType("WorkIdentifier"))
}
