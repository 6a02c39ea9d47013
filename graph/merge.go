package graph

import (
	"fmt"
	"slices"
)

// MergeNode folds the node from into the node into and removes from.
//
// Attributes missing on into are copied over. Every edge pointing at from
// is re-pointed at into. Out edges of from are moved to into when into has
// no out edge of the same name, and dropped otherwise. Edges between the
// two nodes are dropped rather than turned into loops on into. The type of
// into is left alone.
func (g *Graph) MergeNode(into, from string) error {
	if into == from {
		return fmt.Errorf("graph: merge node %q into itself", into)
	}
	dst, ok := g.nodes[into]
	if !ok {
		return fmt.Errorf("graph: merge into missing node %q", into)
	}
	src, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("graph: merge missing node %q", from)
	}
	for k, v := range src.attrs {
		if cur, ok := dst.attrs[k]; !ok || cur == nil {
			dst.attrs[k] = v
		}
	}
	for _, e := range slices.Clone(src.in) {
		if e.from == from {
			continue
		}
		g.RemoveNamedEdge(e.from, e.fromName)
		if e.from == into {
			continue
		}
		g.AddNamedEdge(e.from, into, e.fromName, e.toName)
	}
	for _, name := range src.outNames() {
		e := src.out[name]
		if _, taken := dst.out[name]; taken || e.to == from || e.to == into {
			continue
		}
		g.RemoveNamedEdge(from, name)
		g.AddNamedEdge(into, e.to, e.fromName, e.toName)
	}
	g.removeOne(from)
	return nil
}
