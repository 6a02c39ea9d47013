package schema

import "fmt"

// DataType is the scalar type of an attribute.
type DataType uint8

// Attribute data types.
const (
	TypeInvalid DataType = iota
	TypeBoolean
	TypeString
	TypeInteger
	TypeDatetime
	TypeObject
)

var dataTypeNames = [...]string{
	TypeInvalid:  "invalid",
	TypeBoolean:  "boolean",
	TypeString:   "string",
	TypeInteger:  "integer",
	TypeDatetime: "datetime",
	TypeObject:   "object",
}

// String returns the schema file token of the data type.
func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return fmt.Sprintf("DataType(%d)", t)
}

// ParseDataType parses a data type token.
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if i != int(TypeInvalid) && name == s {
			return DataType(i), nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown data_type %q", s)
}

// DataFormat refines the interpretation of a string attribute.
type DataFormat uint8

// Attribute data formats.
const (
	FormatNone DataFormat = iota
	FormatURI
)

// String returns the schema file token of the data format.
func (f DataFormat) String() string {
	switch f {
	case FormatNone:
		return ""
	case FormatURI:
		return "uri"
	}
	return fmt.Sprintf("DataFormat(%d)", f)
}

// ParseDataFormat parses a data format token. The empty token means no format.
func ParseDataFormat(s string) (DataFormat, error) {
	switch s {
	case "":
		return FormatNone, nil
	case "uri":
		return FormatURI, nil
	}
	return FormatNone, fmt.Errorf("unknown data_format %q", s)
}

// RelationShape is the multiplicity of a relation as seen from its owner.
type RelationShape uint8

// Relation shapes.
const (
	ShapeInvalid RelationShape = iota
	ManyToMany
	ManyToOne
	OneToMany
)

// String returns the schema file token of the shape.
func (s RelationShape) String() string {
	switch s {
	case ManyToMany:
		return "many_to_many"
	case ManyToOne:
		return "many_to_one"
	case OneToMany:
		return "one_to_many"
	}
	return "invalid"
}

// Mirror returns the shape of the inverse relation.
func (s RelationShape) Mirror() RelationShape {
	switch s {
	case ManyToOne:
		return OneToMany
	case OneToMany:
		return ManyToOne
	}
	return s
}

// MultiValued reports whether the owner side holds many related entities.
func (s RelationShape) MultiValued() bool {
	return s == ManyToMany || s == OneToMany
}

// ParseRelationShape parses a relation shape token.
func ParseRelationShape(s string) (RelationShape, error) {
	switch s {
	case "many_to_many":
		return ManyToMany, nil
	case "many_to_one":
		return ManyToOne, nil
	case "one_to_many":
		return OneToMany, nil
	}
	return ShapeInvalid, fmt.Errorf("unknown relation_shape %q", s)
}

// Field is a field of a concrete type: either an *Attribute or a *Relation.
type Field interface {
	// FieldName returns the declared name of the field.
	FieldName() string
	// IsRelation reports whether the field is a *Relation.
	IsRelation() bool
	// IsRequired reports whether a value must be present.
	IsRequired() bool
}

// Attribute is a plain, scalar field.
type Attribute struct {
	Name       string
	DataType   DataType
	DataFormat DataFormat
	Required   bool
}

// FieldName implements Field.
func (a *Attribute) FieldName() string { return a.Name }

// IsRelation implements Field.
func (*Attribute) IsRelation() bool { return false }

// IsRequired implements Field.
func (a *Attribute) IsRequired() bool { return a.Required }

// Relation is a typed link between two concrete types.
type Relation struct {
	Name                string
	Shape               RelationShape
	RelatedConcreteType string
	// InverseRelation is the name of the mirrored field on RelatedConcreteType.
	// Empty when the relation has no inverse.
	InverseRelation string
	// ThroughConcreteType is the join type of a many_to_many relation.
	ThroughConcreteType string
	Required            bool
	// Implicit marks relations synthesized as the mirror of an explicit one.
	Implicit bool
}

// FieldName implements Field.
func (r *Relation) FieldName() string { return r.Name }

// IsRelation implements Field.
func (*Relation) IsRelation() bool { return true }

// IsRequired implements Field.
func (r *Relation) IsRequired() bool { return r.Required }

// Type is a named entity type. Subtypes share the field set and storage of
// their concrete type and differ only in name and distance.
type Type struct {
	Name         string
	ConcreteType string
	// ExplicitFields holds the sorted names of the fields declared directly on
	// the concrete type. Synthesized inverse relations are not included.
	ExplicitFields []string
	// Distance is 0 for the concrete type itself and grows by one for every
	// level down its type tree.
	Distance int
}

// HasExplicitField reports whether name was declared directly on the type.
func (t *Type) HasExplicitField(name string) bool {
	for _, f := range t.ExplicitFields {
		if f == name {
			return true
		}
	}
	return false
}
