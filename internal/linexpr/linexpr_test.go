package linexpr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/christophcharles/Collomatique-sub005/internal/linexpr"
)

func TestAddSubScale(t *testing.T) {
	a := linexpr.Var[string]("x").Add(linexpr.Constant[string](2))
	b := linexpr.Var[string]("y").Scale(3)
	sum := a.Add(b)
	assert.Equal(t, 1.0, sum.Coeff("x"))
	assert.Equal(t, 3.0, sum.Coeff("y"))
	assert.Equal(t, 2.0, sum.ConstantTerm())

	diff := sum.Sub(linexpr.Var[string]("x"))
	assert.Equal(t, 0.0, diff.Coeff("x"))
	assert.True(t, diff.IsConstant() == false) // y term remains
}

func TestCleanDropsZeroCoefficients(t *testing.T) {
	e := linexpr.Var[string]("x").Sub(linexpr.Var[string]("x"))
	assert.True(t, e.IsConstant())
	assert.Empty(t, e.Vars())
}

func TestConstraintConstruction(t *testing.T) {
	x := linexpr.Var[string]("x")
	c := linexpr.Leq(x, linexpr.Constant[string](5))
	assert.Equal(t, linexpr.Le, c.Sign)
	assert.Equal(t, 1.0, c.Expr.Coeff("x"))
	assert.Equal(t, -5.0, c.Expr.ConstantTerm())
}

func TestConstraintEqualUpToCleaning(t *testing.T) {
	x := linexpr.Var[string]("x")
	y := linexpr.Var[string]("y")
	c1 := linexpr.EqC(x.Add(y).Sub(y), linexpr.Constant[string](1))
	c2 := linexpr.EqC(x, linexpr.Constant[string](1))
	assert.True(t, c1.Equal(c2))
}

func TestBounds(t *testing.T) {
	x := linexpr.Var[string]("x")
	y := linexpr.Var[string]("y")
	e := x.Scale(2).Sub(y).Add(linexpr.Constant[string](1))
	lo, hi := e.Bounds(map[string][2]float64{
		"x": {0, 10},
		"y": {-5, 5},
	})
	assert.Equal(t, -4.0, lo) // 2*0 - 5 + 1
	assert.Equal(t, 26.0, hi) // 2*10 - (-5) + 1
}
