package graph

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/sharegraph/schema"
)

// EncodeSnapshot writes the graph to w as a msgpack encoded JSON-LD node
// list, for handing a graph from one job to another.
func (g *Graph) EncodeSnapshot(w io.Writer) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(g.ToJSONLD()); err != nil {
		return fmt.Errorf("graph: encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a graph written by EncodeSnapshot.
func DecodeSnapshot(s *schema.Schema, r io.Reader) (*Graph, error) {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	var nodes []map[string]any
	if err := dec.Decode(&nodes); err != nil {
		return nil, fmt.Errorf("graph: decode snapshot: %w", err)
	}
	return FromJSONLD(s, nodes)
}
