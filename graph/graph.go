package graph

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/schema"
)

// Graph is a mutable property graph of typed nodes joined by named edges.
//
// A Graph is owned by a single job and is not safe for concurrent use.
type Graph struct {
	schema *schema.Schema
	nodes  map[string]*vertex
	order  []string
}

type vertex struct {
	typ   string
	attrs map[string]any
	out   map[string]*edge // keyed by from name
	in    []*edge          // in insertion order
}

// edge links two nodes. fromName is the relation field on the source node,
// toName the inverse field on the target, which may be empty.
type edge struct {
	from, to         string
	fromName, toName string
}

// New returns an empty graph whose node types are checked against s.
func New(s *schema.Schema) *Graph {
	return &Graph{
		schema: s,
		nodes:  make(map[string]*vertex),
	}
}

// Schema returns the schema the graph validates against.
func (g *Graph) Schema() *schema.Schema { return g.schema }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns a view of the node with the given id, or nil if there is none.
func (g *Graph) Node(id string) *Node {
	if _, ok := g.nodes[id]; !ok {
		return nil
	}
	return &Node{graph: g, id: id}
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = &Node{graph: g, id: id}
	}
	return out
}

// FilterNodes yields the nodes matching pred, in insertion order. The node
// set is walked once; adding or removing nodes while iterating is the
// caller's responsibility.
func (g *Graph) FilterNodes(pred func(*Node) bool) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, id := range g.order {
			if _, ok := g.nodes[id]; !ok {
				continue
			}
			n := &Node{graph: g, id: id}
			if pred != nil && !pred(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// AddNode adds a node of the given type. If the id is already present, its
// type is replaced and attrs are merged into its attributes.
func (g *Graph) AddNode(id, typ string, attrs map[string]any) (*Node, error) {
	if id == "" {
		return nil, fmt.Errorf("graph: add node: empty id")
	}
	t, err := g.schema.Type(typ)
	if err != nil {
		return nil, fmt.Errorf("graph: add node %q: %w", id, err)
	}
	v, ok := g.nodes[id]
	if !ok {
		v = &vertex{
			attrs: make(map[string]any, len(attrs)),
			out:   make(map[string]*edge),
		}
		g.nodes[id] = v
		g.order = append(g.order, id)
	}
	v.typ = t.Name
	maps.Copy(v.attrs, attrs)
	return &Node{graph: g, id: id}, nil
}

// RemoveNode removes a node and every edge touching it. With cascade set,
// every node with an edge into the removed node is removed first,
// transitively, so that no node is left referencing a missing one.
func (g *Graph) RemoveNode(id string, cascade bool) {
	if _, ok := g.nodes[id]; !ok {
		return
	}
	if !cascade {
		g.removeOne(id)
		return
	}
	for _, victim := range g.predecessors(id) {
		g.removeOne(victim)
	}
}

// predecessors returns id and every node that reaches it through edges,
// farthest first.
func (g *Graph) predecessors(id string) []string {
	seen := map[string]bool{id: true}
	queue := []string{id}
	for i := 0; i < len(queue); i++ {
		for _, e := range g.nodes[queue[i]].in {
			if !seen[e.from] {
				seen[e.from] = true
				queue = append(queue, e.from)
			}
		}
	}
	slices.Reverse(queue)
	return queue
}

func (g *Graph) removeOne(id string) {
	v, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, e := range v.out {
		g.dropIn(e)
	}
	for _, e := range v.in {
		if src, ok := g.nodes[e.from]; ok && src.out[e.fromName] == e {
			delete(src.out, e.fromName)
		}
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
}

func (g *Graph) dropIn(e *edge) {
	if dst, ok := g.nodes[e.to]; ok {
		dst.in = slices.DeleteFunc(dst.in, func(x *edge) bool { return x == e })
	}
}

// AddNamedEdge links from to to under fromName, recording toName as the
// inverse field on to. A node has at most one out edge per name: adding a
// second one, or linking a missing node, panics with a
// sharegraph.InvariantViolation.
func (g *Graph) AddNamedEdge(from, to, fromName, toName string) {
	src, ok := g.nodes[from]
	if !ok {
		panic(sharegraph.InvariantViolation{Message: fmt.Sprintf("edge %s from missing node %q", fromName, from)})
	}
	dst, ok := g.nodes[to]
	if !ok {
		panic(sharegraph.InvariantViolation{Message: fmt.Sprintf("edge %s to missing node %q", fromName, to)})
	}
	if prev, ok := src.out[fromName]; ok {
		panic(sharegraph.InvariantViolation{Message: fmt.Sprintf("node %q already has edge %s to %q", from, fromName, prev.to)})
	}
	e := &edge{from: from, to: to, fromName: fromName, toName: toName}
	src.out[fromName] = e
	dst.in = append(dst.in, e)
}

// RemoveNamedEdge removes the out edge of from named fromName, if any.
func (g *Graph) RemoveNamedEdge(from, fromName string) {
	src, ok := g.nodes[from]
	if !ok {
		return
	}
	e, ok := src.out[fromName]
	if !ok {
		return
	}
	delete(src.out, fromName)
	g.dropIn(e)
}

// ResolveNamedOutEdge returns the target of the out edge of from named
// name, or nil.
func (g *Graph) ResolveNamedOutEdge(from, name string) *Node {
	src, ok := g.nodes[from]
	if !ok {
		return nil
	}
	e, ok := src.out[name]
	if !ok {
		return nil
	}
	return &Node{graph: g, id: e.to}
}

// ResolveNamedInEdges returns the sources of the edges into to whose
// inverse name is name, in the order the edges were added.
func (g *Graph) ResolveNamedInEdges(to, name string) []*Node {
	dst, ok := g.nodes[to]
	if !ok {
		return nil
	}
	var out []*Node
	for _, e := range dst.in {
		if e.toName == name {
			out = append(out, &Node{graph: g, id: e.from})
		}
	}
	return out
}

// NamedOutEdges returns the targets of every out edge of from, by name.
func (g *Graph) NamedOutEdges(from string) map[string]*Node {
	src, ok := g.nodes[from]
	if !ok {
		return nil
	}
	out := make(map[string]*Node, len(src.out))
	for name, e := range src.out {
		out[name] = &Node{graph: g, id: e.to}
	}
	return out
}

// NamedInEdges returns the sources of every edge into to, grouped by
// inverse name. Each group keeps the order the edges were added in.
func (g *Graph) NamedInEdges(to string) map[string][]*Node {
	dst, ok := g.nodes[to]
	if !ok {
		return nil
	}
	out := make(map[string][]*Node)
	for _, e := range dst.in {
		out[e.toName] = append(out[e.toName], &Node{graph: g, id: e.from})
	}
	return out
}

// outNames returns the names of the out edges of a vertex, sorted.
func (v *vertex) outNames() []string {
	return slices.Sorted(maps.Keys(v.out))
}
