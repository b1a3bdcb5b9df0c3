// Package eval implements the tree-walking evaluator (spec.md §4.4,
// component E): it walks the checked AST, consumes a host.Env to resolve
// object collections and fields, and produces either a concrete value.Value
// or a symbolic LinExpr/Constraint form.
package eval

import errors "gopkg.in/src-d/go-errors.v1"

// EvaluationError kinds, grounded on spec.md §4.4/§7's enumerated runtime
// failures: "type assertion violation ... integer overflow, division by
// zero, $V(args) with an unknown variable name, object field access on an
// id the host rejects, exceeding the recursion depth bound."
var (
	ErrIntegerOverflow       = errors.NewKind("%s:%d: integer overflow evaluating %s")
	ErrDivisionByZero        = errors.NewKind("%s:%d: division by zero")
	ErrUnknownBaseVariable   = errors.NewKind("%s:%d: unknown function or module %q")
	ErrInvalidObjectID       = errors.NewKind("%s:%d: host rejected object id %q: %s")

	// $Name(args) resolution at eval time splits into three distinct
	// failures (SPEC_FULL.md supplemented feature), mirroring how
	// sema.checkVarRef already splits its own static checks into
	// ErrUnknownVariable/ErrVarArityMismatch/ErrVarArgTypeMismatch rather
	// than one generic "bad variable reference":
	ErrUnknownVariable          = errors.NewKind("%s:%d: %q names neither a host variable nor a reified one")
	ErrVariableArgumentCount    = errors.NewKind("%s:%d: variable %q expects %d arguments but the host schema and instance disagree (got %d)")
	ErrVariableInstanceRejected = errors.NewKind("%s:%d: host rejected variable %q for the given arguments: %s")
	ErrRecursionDepthExceeded = errors.NewKind("%s:%d: recursion depth limit (%d) exceeded evaluating %q")
	ErrOperationCountExceeded = errors.NewKind("evaluation aborted: operation count limit (%d) exceeded")
	ErrTypeAssertion         = errors.NewKind("%s:%d: internal error: expected %s at runtime but found %s (this indicates a type-soundness bug, not user error)")
	// ErrRecursionViaReification is raised by internal/builder while
	// lowering reification obligations, not by this package directly; it
	// lives here because it is an EvaluationError variant (spec.md §9's
	// "Reify cycles" edge case) and builder depends on eval, not the
	// reverse.
	ErrRecursionViaReification = errors.NewKind("reified variable %q forms a recursive definition via %s")
)
