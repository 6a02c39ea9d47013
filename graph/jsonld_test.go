package graph_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/graph"
)

const record = `[
	{"@id": "_:w", "@type": "Preprint", "title": "Dilbit on the Move", "extra": {"volume": 3}, "tags": []},
	{"@id": "_:i1", "@type": "WorkIdentifier", "uri": "http://example.com/1",
	 "creative_work": {"@id": "_:w", "@type": "Preprint"}},
	{"@id": "_:i2", "@type": "WorkIdentifier", "uri": "http://example.com/2",
	 "creative_work": {"@id": "_:w"}},
	{"@id": "_:c", "@type": "Creator", "order_cited": 1, "cited_as": "Ash, C.",
	 "creative_work": {"@id": "_:w", "@type": "Preprint"},
	 "agent": {"@id": "_:p", "@type": "Person", "name": "C. Ash"}}
]`

func TestFromJSONLD(t *testing.T) {
	g, err := graph.DecodeJSONLD(share(t), strings.NewReader(record))
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []string{"_:w", "_:i1", "_:i2", "_:c", "_:p"}, ids(g.Nodes()))

	w := g.Node("_:w")
	assert.Equal(t, "Preprint", w.Type(), "a bare reference keeps the known type")
	assert.Equal(t, map[string]any{
		"title": "Dilbit on the Move",
		"extra": map[string]any{"volume": float64(3)},
	}, w.Attrs())
	assert.Equal(t, []string{"_:i1", "_:i2"}, ids(g.ResolveNamedInEdges("_:w", "identifiers")))

	p := g.Node("_:p")
	require.NotNil(t, p, "nested objects become nodes")
	assert.Equal(t, map[string]any{"name": "C. Ash"}, p.Attrs())
	assert.Equal(t, "_:p", g.ResolveNamedOutEdge("_:c", "agent").ID())
}

func TestFromJSONLDBlankNodes(t *testing.T) {
	g, err := graph.FromJSONLD(share(t), []map[string]any{{
		"@id":   "i",
		"@type": "WorkIdentifier",
		"creative_work": map[string]any{
			"title": "Untitled",
		},
	}})
	require.NoError(t, err)
	w := g.ResolveNamedOutEdge("i", "creative_work")
	require.NotNil(t, w)
	assert.True(t, strings.HasPrefix(w.ID(), graph.BlankPrefix))
	assert.Equal(t, "AbstractCreativeWork", w.Type())
	assert.Equal(t, map[string]any{"title": "Untitled"}, w.Attrs())
}

func TestFromJSONLDErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes []map[string]any
		is    error
	}{
		{
			name:  "missing id",
			nodes: []map[string]any{{"@type": "Preprint"}},
			is:    sharegraph.ErrInvalidRecord,
		},
		{
			name:  "missing type",
			nodes: []map[string]any{{"@id": "w"}},
			is:    sharegraph.ErrInvalidRecord,
		},
		{
			name:  "id is not a string",
			nodes: []map[string]any{{"@id": 7, "@type": "Preprint"}},
			is:    sharegraph.ErrInvalidRecord,
		},
		{
			name:  "unknown type",
			nodes: []map[string]any{{"@id": "w", "@type": "Gravel"}},
			is:    sharegraph.ErrSchemaKey,
		},
		{
			name:  "unknown field",
			nodes: []map[string]any{{"@id": "w", "@type": "Preprint", "ash": "grey"}},
			is:    sharegraph.ErrSchemaKey,
		},
		{
			name:  "object on a scalar attribute",
			nodes: []map[string]any{{"@id": "w", "@type": "Preprint", "title": map[string]any{"en": "x"}}},
			is:    sharegraph.ErrInvalidFieldWrite,
		},
		{
			name: "object on a multi-valued relation",
			nodes: []map[string]any{{"@id": "w", "@type": "Preprint",
				"identifiers": map[string]any{"@id": "i", "@type": "WorkIdentifier"}}},
			is: sharegraph.ErrInvalidFieldWrite,
		},
		{
			name:  "scalar on a relation",
			nodes: []map[string]any{{"@id": "i", "@type": "WorkIdentifier", "creative_work": "w"}},
			is:    sharegraph.ErrInvalidFieldWrite,
		},
		{
			name: "nested object of another concrete type",
			nodes: []map[string]any{{"@id": "i", "@type": "WorkIdentifier",
				"creative_work": map[string]any{"@id": "p", "@type": "Person"}}},
			is: sharegraph.ErrInvalidFieldWrite,
		},
		{
			name: "reference to a known node of another concrete type",
			nodes: []map[string]any{
				{"@id": "p", "@type": "Person", "name": "C. Ash"},
				{"@id": "i", "@type": "WorkIdentifier", "creative_work": map[string]any{"@id": "p"}},
			},
			is: sharegraph.ErrInvalidFieldWrite,
		},
		{
			name: "conflicting forward edges",
			nodes: []map[string]any{
				{"@id": "i", "@type": "WorkIdentifier", "creative_work": map[string]any{"@id": "w1", "@type": "Article"}},
				{"@id": "i", "@type": "WorkIdentifier", "creative_work": map[string]any{"@id": "w2", "@type": "Article"}},
			},
			is: sharegraph.ErrInvalidRecord,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := graph.FromJSONLD(share(t), tt.nodes)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
		})
	}
}

func TestFromJSONLDRepeatedEdge(t *testing.T) {
	g, err := graph.FromJSONLD(share(t), []map[string]any{
		{"@id": "i", "@type": "WorkIdentifier", "creative_work": map[string]any{"@id": "w", "@type": "Article"}},
		{"@id": "i", "@type": "WorkIdentifier", "creative_work": map[string]any{"@id": "w", "@type": "Article"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
}

func TestDecodeJSONLDEnvelope(t *testing.T) {
	g, err := graph.DecodeJSONLD(share(t), strings.NewReader(`{"@context": {}, "@graph": `+record+`}`))
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())

	_, err = graph.DecodeJSONLD(share(t), strings.NewReader(`[{"@id": `))
	assert.Error(t, err)
}

func TestToJSONLD(t *testing.T) {
	g, err := graph.DecodeJSONLD(share(t), strings.NewReader(record))
	require.NoError(t, err)

	out := g.ToJSONLD()
	require.Len(t, out, 5)
	assert.Equal(t, map[string]any{
		"@id":   "_:w",
		"@type": "Preprint",
		"title": "Dilbit on the Move",
		"extra": map[string]any{"volume": float64(3)},
		"identifiers": []any{
			map[string]any{"@id": "_:i1", "@type": "WorkIdentifier"},
			map[string]any{"@id": "_:i2", "@type": "WorkIdentifier"},
		},
		"agent_relations": []any{
			map[string]any{"@id": "_:c", "@type": "Creator"},
		},
	}, out[0])
	assert.Equal(t, map[string]any{
		"@id":           "_:c",
		"@type":         "Creator",
		"order_cited":   float64(1),
		"cited_as":      "Ash, C.",
		"creative_work": map[string]any{"@id": "_:w", "@type": "Preprint"},
		"agent":         map[string]any{"@id": "_:p", "@type": "Person"},
	}, out[3])
	assert.Equal(t, out[3], g.Node("_:c").JSONLD())
}

func TestToJSONLDSortsIncoming(t *testing.T) {
	g := work(t)
	for _, id := range []string{"z", "b", "m"} {
		_, err := g.AddNode(id, "WorkIdentifier", nil)
		require.NoError(t, err)
		g.AddNamedEdge(id, "w", "creative_work", "identifiers")
	}
	refs := g.Node("w").JSONLD()["identifiers"].([]any)
	var got []string
	for _, r := range refs {
		got = append(got, r.(map[string]any)["@id"].(string))
	}
	assert.Equal(t, []string{"b", "i", "m", "z"}, got)
}

func TestJSONLDRoundTrip(t *testing.T) {
	s := share(t)
	g, err := graph.DecodeJSONLD(s, strings.NewReader(record))
	require.NoError(t, err)

	again, err := graph.FromJSONLD(s, g.ToJSONLD())
	require.NoError(t, err)
	assert.Equal(t, g.ToJSONLD(), again.ToJSONLD())
	for _, n := range g.Nodes() {
		m := again.Node(n.ID())
		require.NotNil(t, m)
		assert.Equal(t, n.Type(), m.Type())
		assert.Equal(t, n.Attrs(), m.Attrs())
		assert.Equal(t, len(g.NamedOutEdges(n.ID())), len(again.NamedOutEdges(n.ID())))
	}
}

func TestSnapshot(t *testing.T) {
	s := share(t)
	g, err := graph.DecodeJSONLD(s, strings.NewReader(record))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, g.EncodeSnapshot(&buf))
	restored, err := graph.DecodeSnapshot(s, &buf)
	require.NoError(t, err)
	assert.Equal(t, g.ToJSONLD(), restored.ToJSONLD())

	_, err = graph.DecodeSnapshot(s, bytes.NewReader([]byte{0xc1}))
	assert.Error(t, err)
}
