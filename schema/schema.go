package schema

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/syssam/sharegraph"
)

// Schema is the resolved, immutable set of types and fields. It is safe
// for concurrent readers.
type Schema struct {
	types    map[string]*Type
	fields   map[fieldKey]Field
	concrete map[string][]string // folded concrete name -> sorted type names
	byOwner  map[string][]Field  // folded concrete name -> fields in declaration order
	names    []string            // concrete type names in declaration order
}

type fieldKey struct {
	concrete string
	field    string
}

// Fold returns the case-insensitive lookup key of a type or field name.
func Fold(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			return cases.Fold().String(name)
		}
	}
	return strings.ToLower(name)
}

// New assembles a Schema from types and from fields grouped by the name of
// their concrete type. Callers are expected to have validated both; use
// package load to build a Schema from a specification.
func New(types []*Type, fields map[string][]Field, concreteTypes []string) *Schema {
	s := &Schema{
		types:    make(map[string]*Type, len(types)),
		fields:   make(map[fieldKey]Field),
		concrete: make(map[string][]string),
		byOwner:  make(map[string][]Field, len(fields)),
		names:    slices.Clone(concreteTypes),
	}
	for _, t := range types {
		s.types[Fold(t.Name)] = t
		c := Fold(t.ConcreteType)
		s.concrete[c] = append(s.concrete[c], t.Name)
	}
	for c := range s.concrete {
		slices.Sort(s.concrete[c])
	}
	for owner, fs := range fields {
		c := Fold(owner)
		for _, f := range fs {
			s.fields[fieldKey{concrete: c, field: Fold(f.FieldName())}] = f
		}
		s.byOwner[c] = slices.Clone(fs)
	}
	return s
}

// Type returns the type with the given name, compared case-insensitively.
func (s *Schema) Type(name string) (*Type, error) {
	t, ok := s.types[Fold(name)]
	if !ok {
		return nil, sharegraph.NewTypeKeyError(name)
	}
	return t, nil
}

// Field resolves typeName to its concrete type and returns the field named
// fieldName declared on (or synthesized for) that concrete type.
func (s *Schema) Field(typeName, fieldName string) (Field, error) {
	t, err := s.Type(typeName)
	if err != nil {
		return nil, err
	}
	f, ok := s.fields[fieldKey{concrete: Fold(t.ConcreteType), field: Fold(fieldName)}]
	if !ok {
		return nil, sharegraph.NewFieldKeyError(typeName, fieldName)
	}
	return f, nil
}

// Relation is like Field but fails unless the field is a relation.
func (s *Schema) Relation(typeName, fieldName string) (*Relation, error) {
	f, err := s.Field(typeName, fieldName)
	if err != nil {
		return nil, err
	}
	r, ok := f.(*Relation)
	if !ok {
		return nil, sharegraph.NewFieldKeyError(typeName, fieldName)
	}
	return r, nil
}

// TypeNames returns the sorted names of all types, at any depth, that share
// the given concrete type. It returns nil for an unknown concrete type.
func (s *Schema) TypeNames(concreteType string) []string {
	return slices.Clone(s.concrete[Fold(concreteType)])
}

// ConcreteTypes returns the concrete type names in declaration order.
func (s *Schema) ConcreteTypes() []string {
	return slices.Clone(s.names)
}

// Fields returns the fields of a concrete type, explicit ones first in
// declaration order followed by synthesized inverses.
func (s *Schema) Fields(concreteType string) []Field {
	return slices.Clone(s.byOwner[Fold(concreteType)])
}

// SameConcreteType reports whether two type names share a concrete type.
func (s *Schema) SameConcreteType(a, b string) bool {
	ta, err := s.Type(a)
	if err != nil {
		return false
	}
	tb, err := s.Type(b)
	if err != nil {
		return false
	}
	return Fold(ta.ConcreteType) == Fold(tb.ConcreteType)
}
