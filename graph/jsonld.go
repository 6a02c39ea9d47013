package graph

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/schema"
)

// JSON-LD keywords understood by the graph.
const (
	KeyID    = "@id"
	KeyType  = "@type"
	KeyGraph = "@graph"
)

// BlankPrefix starts the ids given to nested nodes that arrive without one.
const BlankPrefix = "_:"

// DecodeJSONLD reads a node list, or an object holding one under @graph,
// and builds a graph from it.
func DecodeJSONLD(s *schema.Schema, r io.Reader) (*Graph, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("graph: decode json-ld: %w", err)
	}
	var nodes []map[string]any
	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "{") {
		var doc struct {
			Graph []map[string]any `json:"@graph"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("graph: decode json-ld: %w", err)
		}
		nodes = doc.Graph
	} else if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("graph: decode json-ld: %w", err)
	}
	return FromJSONLD(s, nodes)
}

// FromJSONLD builds a graph from a flattened JSON-LD node list.
//
// Every element must carry @id and @type. Scalar values become attributes.
// An object under a relation field is added as a node of its own, linked by
// a forward edge; nested objects without @id get a blank node id and
// default to the related concrete type. An object under an object attribute
// is kept as the attribute value. Lists are skipped: multiplicities arrive
// as the forward edges of the other side.
func FromJSONLD(s *schema.Schema, nodes []map[string]any) (*Graph, error) {
	b := &builder{g: New(s)}
	for i, n := range nodes {
		id, typ, err := identity(n, "")
		if err != nil {
			return nil, fmt.Errorf("graph: node %d: %w", i, err)
		}
		if _, err := b.g.AddNode(id, typ, nil); err != nil {
			return nil, err
		}
	}
	for _, n := range nodes {
		if _, err := b.add(n, ""); err != nil {
			return nil, err
		}
	}
	for _, e := range b.edges {
		if prev := b.g.ResolveNamedOutEdge(e.from, e.fromName); prev != nil {
			if prev.id == e.to {
				continue
			}
			return nil, fmt.Errorf("%w: node %q relates %s to both %q and %q",
				sharegraph.ErrInvalidRecord, e.from, e.fromName, prev.id, e.to)
		}
		b.g.AddNamedEdge(e.from, e.to, e.fromName, e.toName)
	}
	return b.g, nil
}

type builder struct {
	g     *Graph
	edges []edge
}

func identity(n map[string]any, defaultType string) (id, typ string, err error) {
	switch v := n[KeyID].(type) {
	case string:
		id = v
	case nil:
		if defaultType == "" {
			return "", "", fmt.Errorf("%w: missing %s", sharegraph.ErrInvalidRecord, KeyID)
		}
		id = BlankPrefix + uuid.NewString()
	default:
		return "", "", fmt.Errorf("%w: %s must be a string, got %T", sharegraph.ErrInvalidRecord, KeyID, v)
	}
	switch v := n[KeyType].(type) {
	case string:
		typ = v
	case nil:
		if defaultType == "" {
			return "", "", fmt.Errorf("%w: node %q: missing %s", sharegraph.ErrInvalidRecord, id, KeyType)
		}
		typ = defaultType
	default:
		return "", "", fmt.Errorf("%w: node %q: %s must be a string, got %T", sharegraph.ErrInvalidRecord, id, KeyType, v)
	}
	if id == "" || typ == "" {
		return "", "", fmt.Errorf("%w: empty %s or %s", sharegraph.ErrInvalidRecord, KeyID, KeyType)
	}
	return id, typ, nil
}

// add adds one JSON-LD object and, recursively, the objects nested in it.
func (b *builder) add(n map[string]any, defaultType string) (string, error) {
	id, typ, err := identity(n, defaultType)
	if err != nil {
		return "", err
	}
	if existing, ok := b.g.nodes[id]; ok && n[KeyType] == nil {
		// A bare reference does not narrow the type of a known node.
		typ = existing.typ
	}
	if _, err := b.g.AddNode(id, typ, nil); err != nil {
		return "", err
	}
	v := b.g.nodes[id]
	s := b.g.schema
	for _, key := range slices.Sorted(maps.Keys(n)) {
		if strings.HasPrefix(key, "@") {
			continue
		}
		val := n[key]
		f, err := s.Field(typ, key)
		if err != nil {
			return "", fmt.Errorf("graph: node %q: %w", id, err)
		}
		switch f := f.(type) {
		case *schema.Attribute:
			switch val.(type) {
			case []any:
				continue
			case map[string]any:
				if f.DataType != schema.TypeObject {
					return "", sharegraph.NewFieldError(typ, f.Name, "object value on a scalar attribute")
				}
			}
			v.attrs[f.Name] = val
		case *schema.Relation:
			switch val := val.(type) {
			case nil, []any:
				continue
			case map[string]any:
				if f.Shape != schema.ManyToOne {
					return "", sharegraph.NewFieldError(typ, f.Name, fmt.Sprintf("nested object on a %s relation", f.Shape))
				}
				to, err := b.add(val, f.RelatedConcreteType)
				if err != nil {
					return "", err
				}
				if dst := b.g.nodes[to]; !s.SameConcreteType(dst.typ, f.RelatedConcreteType) {
					return "", sharegraph.NewFieldError(typ, f.Name, fmt.Sprintf("%s(%s) is not a %s", dst.typ, to, f.RelatedConcreteType))
				}
				b.edges = append(b.edges, edge{from: id, to: to, fromName: f.Name, toName: f.InverseRelation})
			default:
				return "", sharegraph.NewFieldError(typ, f.Name, fmt.Sprintf("relation value must be an object, got %T", val))
			}
		}
	}
	return id, nil
}

// ToJSONLD renders every node, in insertion order. See NodeJSONLD.
func (g *Graph) ToJSONLD() []map[string]any {
	out := make([]map[string]any, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.NodeJSONLD(&Node{graph: g, id: id}))
	}
	return out
}

// NodeJSONLD renders one node: its id, type and attributes, every out edge
// as a reference object under its name, and every group of in edges with a
// named inverse as a list of references sorted by id.
func (g *Graph) NodeJSONLD(n *Node) map[string]any {
	v := g.nodes[n.id]
	if v == nil {
		return nil
	}
	out := make(map[string]any, len(v.attrs)+len(v.out)+2)
	for k, val := range v.attrs {
		out[k] = val
	}
	for name, e := range v.out {
		out[name] = g.ref(e.to)
	}
	groups := make(map[string][]map[string]any)
	for _, e := range v.in {
		if e.toName != "" {
			groups[e.toName] = append(groups[e.toName], g.ref(e.from))
		}
	}
	for name, refs := range groups {
		slices.SortStableFunc(refs, func(a, b map[string]any) int {
			return cmp.Compare(a[KeyID].(string), b[KeyID].(string))
		})
		list := make([]any, len(refs))
		for i, r := range refs {
			list[i] = r
		}
		out[name] = list
	}
	out[KeyID] = n.id
	out[KeyType] = v.typ
	return out
}

func (g *Graph) ref(id string) map[string]any {
	return map[string]any{KeyID: id, KeyType: g.nodes[id].typ}
}

// JSONLD renders the node. See Graph.NodeJSONLD.
func (n *Node) JSONLD() map[string]any { return n.graph.NodeJSONLD(n) }
