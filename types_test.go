package oberon_test

import (
	"oberon"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual_Primitives(t *testing.T) {
	primitives := []*oberon.Type{oberon.Integer, oberon.Boolean}
	for _, a := range primitives {
		for _, b := range primitives {
			assert.Equal(t, a == b, oberon.Equal(a, b), "%s and %s", a, b)
		}
	}
	assert.True(t, oberon.Equal(oberon.Integer, &oberon.Type{Tag: oberon.IntegerTag}))
}

func TestEqual_Error(t *testing.T) {
	assert.False(t, oberon.Equal(oberon.ErrorType, oberon.ErrorType))
	assert.False(t, oberon.Equal(oberon.ErrorType, oberon.Integer))
	assert.False(t, oberon.Equal(oberon.Integer, oberon.ErrorType))
	assert.False(t, oberon.Equal(nil, oberon.Integer))
}

func TestEqual_Aliases(t *testing.T) {
	assert.True(t, oberon.Equal(oberon.NewAlias("A"), oberon.NewAlias("A")))
	assert.False(t, oberon.Equal(oberon.NewAlias("A"), oberon.NewAlias("B")))
	assert.False(t, oberon.Equal(oberon.NewAlias("INTEGER"), oberon.Integer))
}

func TestEqual_Arrays(t *testing.T) {
	assert.True(t, oberon.Equal(oberon.NewArray(3, oberon.Integer), oberon.NewArray(3, oberon.Integer)))
	assert.False(t, oberon.Equal(oberon.NewArray(3, oberon.Integer), oberon.NewArray(4, oberon.Integer)))
	assert.False(t, oberon.Equal(oberon.NewArray(3, oberon.Integer), oberon.NewArray(3, oberon.Boolean)))
	// element types compare by identity
	assert.False(t, oberon.Equal(oberon.NewArray(3, oberon.NewAlias("A")), oberon.NewArray(3, oberon.NewAlias("A"))))
	elem := oberon.NewAlias("A")
	assert.True(t, oberon.Equal(oberon.NewArray(3, elem), oberon.NewArray(3, elem)))
}

func TestEqual_Records(t *testing.T) {
	fields := []oberon.Field{{Name: "x", Type: oberon.Integer}}
	r := oberon.NewRecord(fields)
	assert.True(t, oberon.Equal(r, r))
	assert.False(t, oberon.Equal(r, oberon.NewRecord(fields)))
}

func TestType_Fields(t *testing.T) {
	r := oberon.NewRecord([]oberon.Field{
		{Name: "x", Type: oberon.Integer},
		{Name: "ok", Type: oberon.Boolean},
	})
	assert.Equal(t, 1, r.FieldIndex("ok"))
	assert.Equal(t, -1, r.FieldIndex("z"))
	if assert.NotNil(t, r.Field("x")) {
		assert.Same(t, oberon.Integer, r.Field("x").Type)
	}
	assert.Nil(t, r.Field("z"))
	assert.True(t, r.IsComposite())
	assert.True(t, oberon.NewArray(1, oberon.Integer).IsComposite())
	assert.False(t, oberon.NewAlias("R").IsComposite())
}

func TestType_String(t *testing.T) {
	r := oberon.NewRecord([]oberon.Field{
		{Name: "x", Type: oberon.Integer},
		{Name: "v", Type: oberon.NewArray(2, oberon.NewAlias("T"))},
	})
	assert.Equal(t, "RECORD x: INTEGER; v: ARRAY 2 OF T END", r.String())
	assert.Equal(t, "BOOLEAN", oberon.Boolean.String())
	assert.Equal(t, "ERROR", oberon.ErrorType.String())
}
