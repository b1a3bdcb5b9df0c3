// Package builder implements the problem builder (spec.md §4.5, component
// F): it binds named DSL functions as constraint sources or reified-
// variable definitions, drives internal/eval to evaluate them against a
// host.Env, and lowers the resulting symbolic constraints and reification
// obligations into an immutable ILP Problem.
package builder

import errors "gopkg.in/src-d/go-errors.v1"

// BindingError kinds, grounded on
// original_source/collo-ml/src/semantics/errors.rs's binding-error
// variants and spec.md §7's "Binding errors (problem builder): unknown
// function, wrong return type (constraint/reified), variable already
// defined (base/reified collision)".
var (
	ErrUnknownFunction        = errors.NewKind("%s::%s: unknown function")
	ErrWrongReturnType        = errors.NewKind("%s::%s: expected return type Constraint or [Constraint], found %s")
	ErrArgumentMismatch       = errors.NewKind("%s::%s: %d arguments expected but found %d")
	ErrVariableAlreadyDefined = errors.NewKind("variable %q is already defined (%s)")
	ErrUnboundedForReification = errors.NewKind("variable %q has an unbounded domain and cannot be used in a reification")

	// ErrReificationAlreadyBound is distinct from ErrVariableAlreadyDefined:
	// it fires when the SAME function is reified twice under two DIFFERENT
	// names, rather than two reify statements colliding on one name. Not a
	// literal variant of the Rust original (which has no enum covering this
	// binder specifically - see DESIGN.md), but a natural split of spec.md
	// §7's "variable already defined" binding-error family, since "same
	// function, two variables" and "two functions, same variable" are
	// different mistakes with different fixes.
	ErrReificationAlreadyBound = errors.NewKind("function %q is already reified as %q; cannot also reify it as %q")
)
