package schema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/schema"
)

func pavement() *schema.Schema {
	cement := &schema.Relation{Name: "cement", Shape: schema.ManyToOne, RelatedConcreteType: "Cement", InverseRelation: "asphalts"}
	asphalts := &schema.Relation{Name: "asphalts", Shape: schema.OneToMany, RelatedConcreteType: "Asphalt", InverseRelation: "cement", Implicit: true}
	ash := &schema.Attribute{Name: "ash", DataType: schema.TypeString}
	return schema.New(
		[]*schema.Type{
			{Name: "Cement", ConcreteType: "Cement", ExplicitFields: []string{"ash"}},
			{Name: "Asphalt", ConcreteType: "Asphalt", ExplicitFields: []string{"cement"}},
			{Name: "Bitumen", ConcreteType: "Asphalt", ExplicitFields: []string{"cement"}, Distance: 1},
			{Name: "Dilbit", ConcreteType: "Asphalt", ExplicitFields: []string{"cement"}, Distance: 2},
		},
		map[string][]schema.Field{
			"Cement":  {ash, asphalts},
			"Asphalt": {cement},
		},
		[]string{"Cement", "Asphalt"},
	)
}

func TestSchemaLookup(t *testing.T) {
	s := pavement()

	t.Run("Type", func(t *testing.T) {
		for _, name := range []string{"Dilbit", "dilbit", "DILBIT"} {
			typ, err := s.Type(name)
			require.NoError(t, err)
			assert.Equal(t, "Dilbit", typ.Name)
		}
		_, err := s.Type("Gravel")
		require.Error(t, err)
		assert.True(t, errors.Is(err, sharegraph.ErrSchemaKey))
		var ke *sharegraph.KeyError
		require.True(t, errors.As(err, &ke))
		assert.Equal(t, sharegraph.KindType, ke.Kind)
	})

	t.Run("Field", func(t *testing.T) {
		f, err := s.Field("bitumen", "CEMENT")
		require.NoError(t, err)
		assert.True(t, f.IsRelation())
		assert.Equal(t, "cement", f.FieldName())

		_, err = s.Field("bitumen", "ash")
		require.Error(t, err)
		var ke *sharegraph.KeyError
		require.True(t, errors.As(err, &ke))
		assert.Equal(t, sharegraph.KindField, ke.Kind)

		_, err = s.Field("gravel", "ash")
		assert.True(t, sharegraph.IsKeyError(err))
	})

	t.Run("Relation", func(t *testing.T) {
		r, err := s.Relation("cement", "asphalts")
		require.NoError(t, err)
		assert.True(t, r.Implicit)
		assert.True(t, r.Shape.MultiValued())

		_, err = s.Relation("cement", "ash")
		assert.True(t, sharegraph.IsKeyError(err))
	})

	t.Run("TypeNames", func(t *testing.T) {
		assert.Equal(t, []string{"Asphalt", "Bitumen", "Dilbit"}, s.TypeNames("asphalt"))
		assert.Nil(t, s.TypeNames("gravel"))
	})

	t.Run("Fields", func(t *testing.T) {
		fields := s.Fields("cement")
		require.Len(t, fields, 2)
		assert.Equal(t, "ash", fields[0].FieldName())
		assert.False(t, fields[0].IsRequired())
	})

	t.Run("SameConcreteType", func(t *testing.T) {
		assert.True(t, s.SameConcreteType("dilbit", "Asphalt"))
		assert.False(t, s.SameConcreteType("dilbit", "cement"))
		assert.False(t, s.SameConcreteType("dilbit", "gravel"))
	})
}

func TestTypeHasExplicitField(t *testing.T) {
	typ, err := pavement().Type("dilbit")
	require.NoError(t, err)
	assert.True(t, typ.HasExplicitField("cement"))
	assert.False(t, typ.HasExplicitField("asphalts"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "creativework", schema.Fold("CreativeWork"))
	assert.Equal(t, schema.Fold("STRASSE"), schema.Fold("straße"))
}

func TestTokens(t *testing.T) {
	for _, tok := range []string{"boolean", "string", "integer", "datetime", "object"} {
		dt, err := schema.ParseDataType(tok)
		require.NoError(t, err)
		assert.Equal(t, tok, dt.String())
	}
	_, err := schema.ParseDataType("invalid")
	assert.Error(t, err)

	for _, tok := range []string{"many_to_many", "many_to_one", "one_to_many"} {
		shape, err := schema.ParseRelationShape(tok)
		require.NoError(t, err)
		assert.Equal(t, tok, shape.String())
	}
	assert.Equal(t, schema.OneToMany, schema.ManyToOne.Mirror())
	assert.Equal(t, schema.ManyToOne, schema.OneToMany.Mirror())
	assert.Equal(t, schema.ManyToMany, schema.ManyToMany.Mirror())

	df, err := schema.ParseDataFormat("")
	require.NoError(t, err)
	assert.Equal(t, schema.FormatNone, df)
	_, err = schema.ParseDataFormat("email")
	assert.Error(t, err)
}
