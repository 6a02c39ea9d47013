package graph

import (
	"fmt"
	"maps"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/schema"
)

// Node is a view of one node of a Graph. Two views are equal when they
// belong to the same graph and carry the same id, so Node values may be
// used as map keys.
type Node struct {
	graph *Graph
	id    string
}

// ID returns the node id.
func (n *Node) ID() string { return n.id }

// Graph returns the graph the node belongs to.
func (n *Node) Graph() *Graph { return n.graph }

// Equal reports whether n and o view the same node of the same graph.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	return *n == *o
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.Type(), n.id)
}

func (n *Node) vertex() *vertex { return n.graph.nodes[n.id] }

// Type returns the schema type name of the node, or "" once it was removed.
func (n *Node) Type() string {
	if v := n.vertex(); v != nil {
		return v.typ
	}
	return ""
}

// ConcreteType returns the concrete type of the node.
func (n *Node) ConcreteType() string {
	t, err := n.graph.schema.Type(n.Type())
	if err != nil {
		return ""
	}
	return t.ConcreteType
}

// SetType changes the type of the node.
func (n *Node) SetType(typ string) error {
	v := n.vertex()
	if v == nil {
		return fmt.Errorf("graph: node %q was removed", n.id)
	}
	t, err := n.graph.schema.Type(typ)
	if err != nil {
		return err
	}
	v.typ = t.Name
	return nil
}

// Attrs returns a copy of the attribute bag.
func (n *Node) Attrs() map[string]any {
	if v := n.vertex(); v != nil {
		return maps.Clone(v.attrs)
	}
	return nil
}

func (n *Node) field(name string) (schema.Field, error) {
	if n.vertex() == nil {
		return nil, fmt.Errorf("graph: node %q was removed", n.id)
	}
	return n.graph.schema.Field(n.Type(), name)
}

// Get reads a field. Attributes return their stored value, or nil.
// A many-to-one relation returns the related *Node, or nil. One-to-many and
// many-to-many relations return a []*Node.
func (n *Node) Get(name string) (any, error) {
	f, err := n.field(name)
	if err != nil {
		return nil, err
	}
	switch f := f.(type) {
	case *schema.Attribute:
		return n.vertex().attrs[f.Name], nil
	case *schema.Relation:
		switch f.Shape {
		case schema.ManyToOne:
			if to := n.graph.ResolveNamedOutEdge(n.id, f.Name); to != nil {
				return to, nil
			}
			return nil, nil
		case schema.OneToMany:
			return n.graph.ResolveNamedInEdges(n.id, f.Name), nil
		default:
			return n.through(f), nil
		}
	}
	return nil, fmt.Errorf("graph: unexpected field %T", f)
}

// through walks a many-to-many relation across its join nodes.
func (n *Node) through(r *schema.Relation) []*Node {
	if r.ThroughConcreteType == "" {
		return nil
	}
	s := n.graph.schema
	seen := make(map[string]bool)
	var out []*Node
	for _, e := range n.vertex().in {
		join := n.graph.nodes[e.from]
		if join == nil || !s.SameConcreteType(join.typ, r.ThroughConcreteType) {
			continue
		}
		for _, name := range join.outNames() {
			o := join.out[name]
			if o == e || seen[o.to] {
				continue
			}
			if dst := n.graph.nodes[o.to]; dst != nil && s.SameConcreteType(dst.typ, r.RelatedConcreteType) {
				seen[o.to] = true
				out = append(out, &Node{graph: n.graph, id: o.to})
			}
		}
	}
	return out
}

// Set writes a field. A many-to-one relation accepts a *Node of the same
// graph, a node id, or nil; setting an id that is not in the graph yet
// creates that node with the related concrete type. Multi-valued relations
// cannot be set from this side and return a *sharegraph.FieldError.
func (n *Node) Set(name string, value any) error {
	f, err := n.field(name)
	if err != nil {
		return err
	}
	switch f := f.(type) {
	case *schema.Attribute:
		n.vertex().attrs[f.Name] = value
		return nil
	case *schema.Relation:
		if f.Shape != schema.ManyToOne {
			return sharegraph.NewFieldError(n.Type(), f.Name, fmt.Sprintf("cannot write a %s relation; set it from the related side", f.Shape))
		}
		var to string
		switch v := value.(type) {
		case nil:
			n.graph.RemoveNamedEdge(n.id, f.Name)
			return nil
		case *Node:
			if v == nil {
				n.graph.RemoveNamedEdge(n.id, f.Name)
				return nil
			}
			if v.graph != n.graph {
				return sharegraph.NewFieldError(n.Type(), f.Name, "node belongs to another graph")
			}
			to = v.id
		case string:
			to = v
		default:
			return sharegraph.NewFieldError(n.Type(), f.Name, fmt.Sprintf("cannot relate to %T", value))
		}
		if dst := n.graph.Node(to); dst == nil {
			if _, err := n.graph.AddNode(to, f.RelatedConcreteType, nil); err != nil {
				return err
			}
		} else if !n.graph.schema.SameConcreteType(dst.Type(), f.RelatedConcreteType) {
			return sharegraph.NewFieldError(n.Type(), f.Name, fmt.Sprintf("%s is not a %s", dst, f.RelatedConcreteType))
		}
		n.graph.RemoveNamedEdge(n.id, f.Name)
		n.graph.AddNamedEdge(n.id, to, f.Name, f.InverseRelation)
		return nil
	}
	return fmt.Errorf("graph: unexpected field %T", f)
}

// Delete clears a field. Deleting a many-to-one relation removes its edge.
func (n *Node) Delete(name string) error {
	f, err := n.field(name)
	if err != nil {
		return err
	}
	switch f := f.(type) {
	case *schema.Attribute:
		delete(n.vertex().attrs, f.Name)
		return nil
	case *schema.Relation:
		if f.Shape != schema.ManyToOne {
			return sharegraph.NewFieldError(n.Type(), f.Name, fmt.Sprintf("cannot delete a %s relation; delete it from the related side", f.Shape))
		}
		n.graph.RemoveNamedEdge(n.id, f.Name)
		return nil
	}
	return fmt.Errorf("graph: unexpected field %T", f)
}
