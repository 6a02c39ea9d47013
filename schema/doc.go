// Package schema describes the entity types of the metadata graph.
//
// A schema is a set of concrete types. Each concrete type owns a set of
// fields, which are either plain attributes or relations to another concrete
// type, and may be refined by a tree of subtypes that share its fields:
//
//	AbstractCreativeWork        (concrete, distance 0)
//	└── CreativeWork            (distance 1)
//	    └── Preprint            (distance 2)
//
// Lookups are case-insensitive. Type resolves any type name; Field resolves a
// type name to its concrete type and then finds the field on it:
//
//	s, err := load.LoadFile("schema.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	f, err := s.Field("preprint", "title")
//
// Field returns a tagged variant: switch on the dynamic type to tell
// attributes from relations.
//
//	switch f := f.(type) {
//	case *schema.Attribute:
//	    fmt.Println(f.DataType)
//	case *schema.Relation:
//	    fmt.Println(f.Shape, f.RelatedConcreteType)
//	}
//
// # Implicit relations
//
// Every explicit relation that names an inverse_relation causes a mirrored
// relation to be synthesized on the related concrete type, with Implicit set.
// many_to_many mirrors to many_to_many and many_to_one to one_to_many.
//
// # Registry
//
// A Schema is immutable once built. Registry wraps the build so that it runs
// once per process, no matter how many jobs ask for it concurrently:
//
//	reg := schema.NewRegistry(func() (*schema.Schema, error) {
//	    return load.LoadFile(path)
//	})
//	s, err := reg.Schema()
package schema
