package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/christophcharles/Collomatique-sub005/internal/types"
)

func TestSubtyping(t *testing.T) {
	assert.True(t, types.Subtype(types.Int(), types.LinExpr()))
	assert.True(t, types.Subtype(types.EmptyList(), types.List(types.Int())))
	assert.True(t, types.Subtype(types.Int(), types.Sum(types.Int(), types.Bool())))
	assert.True(t, types.Subtype(types.Int(), types.Optional(types.Int())))
	assert.False(t, types.Subtype(types.Bool(), types.Constraint()))
}

func TestUnify(t *testing.T) {
	u, ok := types.Unify(types.Int(), types.LinExpr())
	assert.True(t, ok)
	assert.Equal(t, "Int | LinExpr", u.String())

	u2, ok := types.Unify(types.List(types.Int()), types.EmptyList())
	assert.True(t, ok)
	assert.Equal(t, "[Int]", u2.String())

	_, ok = types.Unify(types.Int(), types.Bool())
	assert.False(t, ok)
}

func TestSumNormalization(t *testing.T) {
	s := types.Sum(types.Int(), types.Sum(types.Bool(), types.Int()))
	assert.Equal(t, "Bool | Int", s.String())
}

func TestTypeStrings(t *testing.T) {
	assert.Equal(t, "[Int]", types.List(types.Int()).String())
	assert.Equal(t, "Int?", types.Optional(types.Int()).String())
	assert.Equal(t, "(Int, Bool)", types.Tuple(types.Int(), types.Bool()).String())
	assert.Equal(t, "Student", types.Object("Student").String())
}
