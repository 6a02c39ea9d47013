// Package gen generates Go constants for the names declared in a schema,
// so collaborators can refer to types and fields without string literals.
package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/syssam/sharegraph/schema"
)

// Generate returns a file in package pkg declaring, for every concrete
// type, a Type<Name> constant per type name and a Field<Concrete><Field>
// constant per field. A ConcreteTypes variable lists the concrete types in
// declaration order.
func Generate(s *schema.Schema, pkg string) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by sharegraph gen, DO NOT EDIT.")

	concrete := s.ConcreteTypes()
	for _, c := range concrete {
		names := s.TypeNames(c)
		f.Commentf("Type names of %s.", c)
		f.Const().DefsFunc(func(g *jen.Group) {
			for _, name := range names {
				g.Id(TypeConst(name)).Op("=").Lit(name)
			}
		})

		fields := s.Fields(c)
		if len(fields) == 0 {
			continue
		}
		f.Commentf("Field names of %s.", c)
		f.Const().DefsFunc(func(g *jen.Group) {
			for _, fd := range fields {
				if doc := describe(c, fd); doc != "" {
					g.Comment(doc)
				}
				g.Id(FieldConst(c, fd.FieldName())).Op("=").Lit(fd.FieldName())
			}
		})
	}

	f.Comment("ConcreteTypes lists the concrete types in declaration order.")
	f.Var().Id("ConcreteTypes").Op("=").Index().String().ValuesFunc(func(g *jen.Group) {
		for _, c := range concrete {
			g.Id(TypeConst(c))
		}
	})
	return f
}

// Write generates the file and saves it to path.
func Write(s *schema.Schema, pkg, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("gen: %w", err)
	}
	if err := Generate(s, pkg).Save(path); err != nil {
		return fmt.Errorf("gen: write %s: %w", path, err)
	}
	return nil
}

// TypeConst returns the constant name of a type.
func TypeConst(name string) string {
	return "Type" + inflect.Camelize(name)
}

// FieldConst returns the constant name of a field on a concrete type.
func FieldConst(concrete, field string) string {
	return "Field" + inflect.Camelize(concrete) + inflect.Camelize(field)
}

func describe(concrete string, f schema.Field) string {
	r, ok := f.(*schema.Relation)
	if !ok {
		return ""
	}
	doc := fmt.Sprintf("%s is a %s relation to %s", FieldConst(concrete, r.Name), r.Shape, r.RelatedConcreteType)
	if r.ThroughConcreteType != "" {
		doc += " through " + r.ThroughConcreteType
	}
	return doc + "."
}
