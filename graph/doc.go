// Package graph provides the mutable, schema-validated property graph that
// harvested records are ingested into.
//
// Nodes are identified by opaque string ids and carry a schema type name and
// a bag of attributes. Edges are named on both ends: the forward name is the
// relation field on the source node and the inverse name is the mirrored
// field on the target. A node has at most one out edge per name, which
// models the many-to-one side of every relation; the "many" sides are read
// back through in edges.
//
// # Building a Graph
//
// Graphs are usually built from a flattened JSON-LD node list:
//
//	g, err := graph.FromJSONLD(s, []map[string]any{
//	    {"@id": "_:w", "@type": "Preprint", "title": "Dilbit on the Move"},
//	    {"@id": "_:i", "@type": "WorkIdentifier", "uri": "http://example.com/1",
//	        "creative_work": map[string]any{"@id": "_:w", "@type": "Preprint"}},
//	})
//
// ToJSONLD renders the graph back in the same shape, with every in edge
// group listed under its inverse name.
//
// # Field Access
//
// Node field access goes through the schema:
//
//	work := g.Node("_:w")
//	title, _ := work.Get("title")          // attribute value
//	ids, _ := work.Get("identifiers")      // []*graph.Node, one_to_many
//	err := g.Node("_:i").Set("creative_work", "_:other")
//
// Only many-to-one relations can be written. Setting one to an id that is
// not in the graph yet creates that node with the related concrete type.
//
// # Invariants
//
// Adding a second out edge under a name that is already used panics with a
// sharegraph.InvariantViolation: it means the caller misread the schema.
// RemoveNode with cascade removes every node that reaches the removed node
// through in edges, transitively.
package graph
