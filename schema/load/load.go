package load

import (
	"fmt"
	"os"
	"slices"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/schema"
)

// LoadFile reads and loads the schema file at path.
func LoadFile(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sharegraph.NewLoadError("", "", "open specification", err)
	}
	defer f.Close()
	specs, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return Load(specs)
}

// Load resolves a list of concrete type specifications into a Schema.
//
// Loading runs in two passes. The first collects every attribute and
// relation, synthesizing the inverse of each relation on its related type.
// The second registers the type trees. Loading is all-or-nothing: the first
// problem found is returned as a *sharegraph.LoadError.
func Load(specs []TypeSpec) (*schema.Schema, error) {
	l := &loader{
		concrete: make(map[string]string, len(specs)),
		slots:    make(map[slot]schema.Field),
		order:    make(map[string][]slot, len(specs)),
		typeSeen: make(map[string]bool),
	}
	if err := l.collectConcreteTypes(specs); err != nil {
		return nil, err
	}
	for _, ts := range specs {
		if err := l.collectFields(ts); err != nil {
			return nil, err
		}
	}
	fields := l.fieldsByOwner()
	for _, ts := range specs {
		if err := l.registerTypes(ts, fields[ts.ConcreteType]); err != nil {
			return nil, err
		}
	}
	return schema.New(l.types, fields, l.names), nil
}

type slot struct {
	concrete string // folded
	field    string // folded
}

type loader struct {
	concrete map[string]string // folded name -> declared name
	names    []string
	slots    map[slot]schema.Field
	order    map[string][]slot // folded concrete -> slots in collection order
	types    []*schema.Type
	typeSeen map[string]bool
}

func (l *loader) collectConcreteTypes(specs []TypeSpec) error {
	for _, ts := range specs {
		if ts.ConcreteType == "" {
			return sharegraph.NewLoadError("", "", "concrete_type must not be empty", nil)
		}
		k := schema.Fold(ts.ConcreteType)
		if _, ok := l.concrete[k]; ok {
			return sharegraph.NewLoadError(ts.ConcreteType, "", "concrete type declared more than once", nil)
		}
		l.concrete[k] = ts.ConcreteType
		l.names = append(l.names, ts.ConcreteType)
	}
	return nil
}

// resolve returns the declared spelling of a concrete type name.
func (l *loader) resolve(name string) (string, bool) {
	declared, ok := l.concrete[schema.Fold(name)]
	return declared, ok
}

func (l *loader) collectFields(ts TypeSpec) error {
	owner := ts.ConcreteType
	for _, as := range ts.Attributes {
		a, err := newAttribute(owner, as)
		if err != nil {
			return err
		}
		if err := l.addExplicit(owner, a); err != nil {
			return err
		}
	}
	for _, rs := range ts.Relations {
		r, err := l.newRelation(owner, rs)
		if err != nil {
			return err
		}
		if err := l.addExplicit(owner, r); err != nil {
			return err
		}
		if r.InverseRelation == "" {
			continue
		}
		inverse := &schema.Relation{
			Name:                r.InverseRelation,
			Shape:               r.Shape.Mirror(),
			RelatedConcreteType: owner,
			InverseRelation:     r.Name,
			ThroughConcreteType: r.ThroughConcreteType,
			Implicit:            true,
		}
		if err := l.addImplicit(r.RelatedConcreteType, inverse); err != nil {
			return err
		}
	}
	return nil
}

func newAttribute(owner string, as AttributeSpec) (*schema.Attribute, error) {
	if as.Name == "" {
		return nil, sharegraph.NewLoadError(owner, "", "attribute name must not be empty", nil)
	}
	dt, err := schema.ParseDataType(as.DataType)
	if err != nil {
		return nil, sharegraph.NewLoadError(owner, as.Name, "", err)
	}
	df, err := schema.ParseDataFormat(as.DataFormat)
	if err != nil {
		return nil, sharegraph.NewLoadError(owner, as.Name, "", err)
	}
	return &schema.Attribute{
		Name:       as.Name,
		DataType:   dt,
		DataFormat: df,
		Required:   as.IsRequired,
	}, nil
}

func (l *loader) newRelation(owner string, rs RelationSpec) (*schema.Relation, error) {
	if rs.Name == "" {
		return nil, sharegraph.NewLoadError(owner, "", "relation name must not be empty", nil)
	}
	shape, err := schema.ParseRelationShape(rs.RelationShape)
	if err != nil {
		return nil, sharegraph.NewLoadError(owner, rs.Name, "", err)
	}
	related, ok := l.resolve(rs.RelatedConcreteType)
	if !ok {
		return nil, sharegraph.NewLoadError(owner, rs.Name, fmt.Sprintf("unknown related_concrete_type %q", rs.RelatedConcreteType), nil)
	}
	var through string
	if rs.ThroughConcreteType != "" {
		if through, ok = l.resolve(rs.ThroughConcreteType); !ok {
			return nil, sharegraph.NewLoadError(owner, rs.Name, fmt.Sprintf("unknown through_concrete_type %q", rs.ThroughConcreteType), nil)
		}
	}
	return &schema.Relation{
		Name:                rs.Name,
		Shape:               shape,
		RelatedConcreteType: related,
		InverseRelation:     rs.InverseRelation,
		ThroughConcreteType: through,
		Required:            rs.IsRequired,
	}, nil
}

// addExplicit places a declared field in its slot. A synthesized inverse
// already in the slot is replaced; a declared one is a conflict.
func (l *loader) addExplicit(owner string, f schema.Field) error {
	k := slot{concrete: schema.Fold(owner), field: schema.Fold(f.FieldName())}
	if prev, ok := l.slots[k]; ok {
		if r, ok := prev.(*schema.Relation); !ok || !r.Implicit {
			return sharegraph.NewLoadError(owner, f.FieldName(), "field declared more than once", nil)
		}
		l.slots[k] = f
		return nil
	}
	l.slots[k] = f
	l.order[k.concrete] = append(l.order[k.concrete], k)
	return nil
}

// addImplicit places a synthesized inverse in its slot, unless the slot
// already holds a relation that agrees with it.
func (l *loader) addImplicit(owner string, r *schema.Relation) error {
	k := slot{concrete: schema.Fold(owner), field: schema.Fold(r.Name)}
	prev, ok := l.slots[k]
	if !ok {
		l.slots[k] = r
		l.order[k.concrete] = append(l.order[k.concrete], k)
		return nil
	}
	existing, isRel := prev.(*schema.Relation)
	switch {
	case !isRel:
		return sharegraph.NewLoadError(owner, r.Name, fmt.Sprintf("inverse of %s.%s collides with an attribute", r.RelatedConcreteType, r.InverseRelation), nil)
	case existing.Implicit && *existing == *r:
		return nil
	case existing.Implicit:
		return sharegraph.NewLoadError(owner, r.Name, fmt.Sprintf("inverse of %s.%s collides with inverse of %s.%s", r.RelatedConcreteType, r.InverseRelation, existing.RelatedConcreteType, existing.InverseRelation), nil)
	case !agrees(existing, r):
		return sharegraph.NewLoadError(owner, r.Name, fmt.Sprintf("inverse of %s.%s conflicts with the declared relation", r.RelatedConcreteType, r.InverseRelation), nil)
	}
	return nil
}

// agrees reports whether a declared relation can stand in for a synthesized one.
func agrees(declared, implicit *schema.Relation) bool {
	return declared.Shape == implicit.Shape &&
		schema.Fold(declared.RelatedConcreteType) == schema.Fold(implicit.RelatedConcreteType) &&
		(declared.InverseRelation == "" || schema.Fold(declared.InverseRelation) == schema.Fold(implicit.InverseRelation))
}

// fieldsByOwner returns the collected fields of every concrete type,
// declared fields first.
func (l *loader) fieldsByOwner() map[string][]schema.Field {
	out := make(map[string][]schema.Field, len(l.names))
	for _, name := range l.names {
		var fields []schema.Field
		for _, k := range l.order[schema.Fold(name)] {
			fields = append(fields, l.slots[k])
		}
		slices.SortStableFunc(fields, func(a, b schema.Field) int {
			return boolRank(isImplicit(a)) - boolRank(isImplicit(b))
		})
		out[name] = fields
	}
	return out
}

func isImplicit(f schema.Field) bool {
	r, ok := f.(*schema.Relation)
	return ok && r.Implicit
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (l *loader) registerTypes(ts TypeSpec, fields []schema.Field) error {
	var explicit []string
	for _, f := range fields {
		if !isImplicit(f) {
			explicit = append(explicit, f.FieldName())
		}
	}
	slices.Sort(explicit)

	concrete := schema.Fold(ts.ConcreteType)
	rooted := slices.ContainsFunc(ts.TypeTree, func(n TypeNode) bool {
		return schema.Fold(n.Name) == concrete
	})
	if !rooted {
		if err := l.registerType(ts.ConcreteType, ts.ConcreteType, explicit, 0); err != nil {
			return err
		}
	}
	for _, n := range ts.TypeTree {
		depth := 1
		if schema.Fold(n.Name) == concrete {
			depth = 0
		}
		if err := l.registerTree(ts.ConcreteType, explicit, n, depth); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) registerTree(concrete string, explicit []string, n TypeNode, depth int) error {
	if err := l.registerType(n.Name, concrete, explicit, depth); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := l.registerTree(concrete, explicit, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) registerType(name, concrete string, explicit []string, depth int) error {
	if name == "" {
		return sharegraph.NewLoadError(concrete, "", "type_tree entry must have a name", nil)
	}
	k := schema.Fold(name)
	if l.typeSeen[k] {
		return sharegraph.NewLoadError(concrete, "", fmt.Sprintf("type %q declared more than once", name), nil)
	}
	l.typeSeen[k] = true
	l.types = append(l.types, &schema.Type{
		Name:           name,
		ConcreteType:   concrete,
		ExplicitFields: slices.Clone(explicit),
		Distance:       depth,
	})
	return nil
}
