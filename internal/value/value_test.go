package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

func TestTypeOfPrimitives(t *testing.T) {
	assert.Equal(t, "Int", value.TypeOf(value.Int(1)).String())
	assert.Equal(t, "Bool", value.TypeOf(value.Bool(true)).String())
	assert.Equal(t, "String", value.TypeOf(value.Str("hi")).String())
}

func TestTypeOfListUnifiesElements(t *testing.T) {
	list := value.ListVal([]value.Value{value.Int(1), value.LinExprVal(value.Value{}.Lin)})
	assert.Equal(t, "[Int | LinExpr]", value.TypeOf(list).String())
}

func TestTypeOfEmptyList(t *testing.T) {
	assert.Equal(t, "EmptyList", value.TypeOf(value.ListVal(nil)).String())
}

func TestEqualityAndHashKey(t *testing.T) {
	a := value.ObjectRef("Student", "1")
	b := value.ObjectRef("Student", "1")
	c := value.ObjectRef("Student", "2")
	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
	assert.Equal(t, value.HashKey(a), value.HashKey(b))
	assert.NotEqual(t, value.HashKey(a), value.HashKey(c))
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, value.IsTruthy(value.Bool(true)))
	assert.False(t, value.IsTruthy(value.Bool(false)))
	assert.False(t, value.IsTruthy(value.None()))
	assert.True(t, value.IsTruthy(value.Int(0)))
}
