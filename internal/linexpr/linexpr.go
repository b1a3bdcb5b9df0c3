// Package linexpr implements the symbolic linear-expression algebra that
// backs the DSL's LinExpr and Constraint values (spec.md §3, component A).
//
// The coefficient-map representation, clean()/cleaned-equality, and
// sign-normalized Constraint are ported from the Rust original at
// original_source/collomatique-ilp/src/linexpr.rs, replacing its
// VariableName trait bound with a comparable Go generic parameter.
package linexpr

import (
	"fmt"
	"sort"
	"strings"
)

// Expr is a symbolic linear expression sum(coeff_v * v) + constant over an
// opaque, comparable variable identifier type V.
type Expr[V comparable] struct {
	coeffs   map[V]float64
	constant float64
}

// Constant returns the expression for the literal value c.
func Constant[V comparable](c float64) Expr[V] {
	return Expr[V]{constant: c}
}

// Var returns the expression for a single variable with coefficient 1.
func Var[V comparable](v V) Expr[V] {
	return Expr[V]{coeffs: map[V]float64{v: 1}}
}

// Clone returns a deep copy.
func (e Expr[V]) Clone() Expr[V] {
	out := Expr[V]{constant: e.constant}
	if len(e.coeffs) > 0 {
		out.coeffs = make(map[V]float64, len(e.coeffs))
		for k, v := range e.coeffs {
			out.coeffs[k] = v
		}
	}
	return out
}

// ConstantTerm returns the constant term.
func (e Expr[V]) ConstantTerm() float64 { return e.constant }

// Coeff returns the coefficient of v (zero if absent).
func (e Expr[V]) Coeff(v V) float64 { return e.coeffs[v] }

// Vars returns the variables with a non-zero coefficient, in map iteration
// order, which is unspecified and may differ between calls; callers that
// need determinism should sort by their own variable ordering.
func (e Expr[V]) Vars() []V {
	vars := make([]V, 0, len(e.coeffs))
	for v := range e.coeffs {
		vars = append(vars, v)
	}
	return vars
}

func (e Expr[V]) withCoeffs() map[V]float64 {
	if e.coeffs == nil {
		return map[V]float64{}
	}
	return e.coeffs
}

// Add returns e + other.
func (e Expr[V]) Add(other Expr[V]) Expr[V] {
	out := Expr[V]{coeffs: make(map[V]float64), constant: e.constant + other.constant}
	for v, c := range e.withCoeffs() {
		out.coeffs[v] += c
	}
	for v, c := range other.withCoeffs() {
		out.coeffs[v] += c
	}
	return out.clean()
}

// Sub returns e - other.
func (e Expr[V]) Sub(other Expr[V]) Expr[V] {
	return e.Add(other.Scale(-1))
}

// Scale returns e * k.
func (e Expr[V]) Scale(k float64) Expr[V] {
	out := Expr[V]{coeffs: make(map[V]float64), constant: e.constant * k}
	for v, c := range e.withCoeffs() {
		out.coeffs[v] = c * k
	}
	return out.clean()
}

// Neg returns -e.
func (e Expr[V]) Neg() Expr[V] { return e.Scale(-1) }

// clean drops zero coefficients, mirroring the Rust original's Expr::clean.
func (e Expr[V]) clean() Expr[V] {
	out := Expr[V]{constant: e.constant}
	for v, c := range e.coeffs {
		if c != 0 {
			if out.coeffs == nil {
				out.coeffs = make(map[V]float64)
			}
			out.coeffs[v] = c
		}
	}
	return out
}

// IsConstant reports whether e has no variables with non-zero coefficient.
func (e Expr[V]) IsConstant() bool { return len(e.clean().coeffs) == 0 }

// Bounds computes the minimum and maximum value of e given, for each
// variable, an inclusive [lo, hi] domain. Variables absent from bounds are
// treated as fixed at zero.
func (e Expr[V]) Bounds(bounds map[V][2]float64) (lo, hi float64) {
	lo, hi = e.constant, e.constant
	for v, c := range e.withCoeffs() {
		b, ok := bounds[v]
		vlo, vhi := 0.0, 0.0
		if ok {
			vlo, vhi = b[0], b[1]
		}
		if c >= 0 {
			lo += c * vlo
			hi += c * vhi
		} else {
			lo += c * vhi
			hi += c * vlo
		}
	}
	return lo, hi
}

// Sign is the relational operator of a Constraint, mirroring the Rust
// original's Sign enum (Equals/LessThan, with "greater" expressed by
// negating operands before construction).
type Sign int

const (
	Eq Sign = iota
	Le
)

func (s Sign) String() string {
	if s == Eq {
		return "="
	}
	return "<="
}

// Constraint is the symbolic relation `expr <sign> 0`, matching the Rust
// original's normalized "everything on one side" representation.
type Constraint[V comparable] struct {
	Expr Expr[V]
	Sign Sign
}

// Leq builds the constraint `lhs <= rhs`.
func Leq[V comparable](lhs, rhs Expr[V]) Constraint[V] {
	return Constraint[V]{Expr: lhs.Sub(rhs).clean(), Sign: Le}
}

// Geq builds the constraint `lhs >= rhs`, i.e. `rhs - lhs <= 0`.
func Geq[V comparable](lhs, rhs Expr[V]) Constraint[V] {
	return Constraint[V]{Expr: rhs.Sub(lhs).clean(), Sign: Le}
}

// EqC builds the constraint `lhs == rhs`.
func EqC[V comparable](lhs, rhs Expr[V]) Constraint[V] {
	return Constraint[V]{Expr: lhs.Sub(rhs).clean(), Sign: Eq}
}

// Bounds delegates to the underlying expression's Bounds.
func (c Constraint[V]) Bounds(bounds map[V][2]float64) (lo, hi float64) {
	return c.Expr.Bounds(bounds)
}

// cleanedEqual reports structural equality after cleaning both sides,
// mirroring the Rust original's Constraint PartialEq (== up to zero
// coefficients and floating point tolerance).
func cleanedEqual[V comparable](a, b Expr[V]) bool {
	ca, cb := a.clean(), b.clean()
	if len(ca.coeffs) != len(cb.coeffs) {
		return false
	}
	const eps = 1e-9
	if abs(ca.constant-cb.constant) > eps {
		return false
	}
	for v, c := range ca.coeffs {
		bc, ok := cb.coeffs[v]
		if !ok || abs(c-bc) > eps {
			return false
		}
	}
	return true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Equal reports whether c and other describe the same relation, up to
// cleaning (dropping zero coefficients).
func (c Constraint[V]) Equal(other Constraint[V]) bool {
	return c.Sign == other.Sign && cleanedEqual(c.Expr, other.Expr)
}

// String renders a deterministic, sorted-by-fmt.Sprint(variable)
// representation, useful for diagnostics and golden tests.
func (e Expr[V]) String() string {
	type term struct {
		key string
		c   float64
	}
	terms := make([]term, 0, len(e.coeffs))
	for v, c := range e.coeffs {
		if c == 0 {
			continue
		}
		terms = append(terms, term{key: fmt.Sprint(v), c: c})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].key < terms[j].key })
	var sb strings.Builder
	for i, t := range terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g*%s", t.c, t.key)
	}
	if e.constant != 0 || len(terms) == 0 {
		if len(terms) > 0 {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%g", e.constant)
	}
	return sb.String()
}

func (c Constraint[V]) String() string {
	return fmt.Sprintf("%s %s 0", c.Expr.String(), c.Sign.String())
}
