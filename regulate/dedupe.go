package regulate

import (
	"maps"
	"slices"

	"github.com/syssam/sharegraph/graph"
	"github.com/syssam/sharegraph/schema"
)

// Identity lists, per concrete type, the fields whose values identify an
// entity. A field may be an attribute or a many-to-one relation, in which
// case the id of the related node is used.
type Identity map[string][]string

// DefaultIdentity identifies identifiers by uri and subjects and tags by
// name. Join rows are identified by the nodes they join.
func DefaultIdentity() Identity {
	return Identity{
		"WorkIdentifier":            {"uri"},
		"AgentIdentifier":           {"uri"},
		"Subject":                   {"name"},
		"Tag":                       {"name"},
		"ThroughSubjects":           {"subject", "creative_work"},
		"ThroughTags":               {"tag", "creative_work"},
		"AbstractAgentWorkRelation": {"creative_work", "agent"},
	}
}

func (id Identity) fields(concrete string) []string {
	if f, ok := id[concrete]; ok {
		return f
	}
	for k, f := range id {
		if schema.Fold(k) == schema.Fold(concrete) {
			return f
		}
	}
	return nil
}

// Deduplicate merges nodes of the same concrete type that share their
// identity. The first node in insertion order survives and takes the most
// specific type of the two. Merging can make join rows equal, so passes
// repeat until nothing merges. It returns the number of nodes merged away.
func Deduplicate(g *graph.Graph, identity Identity) (int, error) {
	merged := 0
	for {
		n, err := dedupePass(g, identity)
		if err != nil {
			return merged, err
		}
		if n == 0 {
			return merged, nil
		}
		merged += n
	}
}

func dedupePass(g *graph.Graph, identity Identity) (int, error) {
	type slot struct{ concrete, key string }
	var (
		s      = g.Schema()
		seen   = make(map[slot]*graph.Node)
		merged = 0
	)
	for _, n := range g.Nodes() {
		if g.Node(n.ID()) == nil {
			continue
		}
		concrete := n.ConcreteType()
		fields := identity.fields(concrete)
		if len(fields) == 0 {
			continue
		}
		values, ok := identityValues(n, fields)
		if !ok {
			continue
		}
		k := slot{concrete: schema.Fold(concrete), key: graph.CanonicalKey(values)}
		survivor, dup := seen[k], n
		if survivor == nil {
			seen[k] = n
			continue
		}
		if more, err := moreSpecific(s, dup.Type(), survivor.Type()); err == nil && more {
			if err := survivor.SetType(dup.Type()); err != nil {
				return merged, err
			}
		}
		if err := g.MergeNode(survivor.ID(), dup.ID()); err != nil {
			return merged, err
		}
		merged++
	}
	return merged, nil
}

func identityValues(n *graph.Node, fields []string) ([]any, bool) {
	values := make([]any, len(fields))
	for i, f := range fields {
		v, err := n.Get(f)
		if err != nil || v == nil {
			return nil, false
		}
		if ref, ok := v.(*graph.Node); ok {
			v = ref.ID()
		}
		values[i] = v
	}
	return values, true
}

func moreSpecific(s *schema.Schema, a, b string) (bool, error) {
	ta, err := s.Type(a)
	if err != nil {
		return false, err
	}
	tb, err := s.Type(b)
	if err != nil {
		return false, err
	}
	return ta.Distance > tb.Distance, nil
}

// Dependencies returns the ids of the nodes n points at, ordered by edge
// name. Those nodes have to be persisted before n.
func Dependencies(n *graph.Node) []string {
	out := n.Graph().NamedOutEdges(n.ID())
	names := slices.Sorted(maps.Keys(out))
	deps := make([]string, len(names))
	for i, name := range names {
		deps[i] = out[name].ID()
	}
	return deps
}
