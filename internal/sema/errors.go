package sema

import errors "gopkg.in/src-d/go-errors.v1"

// SemError kinds. Messages and variant coverage are grounded on
// original_source/collo-ml/src/semantics/errors.rs's SemError enum; this
// is a representative core subset (not every Rust variant has a Go
// twin — e.g. struct-field variants collapse into the generic
// UnknownField kind since this port's object model is
// host-schema-driven rather than a separate struct-type declaration
// form). Each Kind formats as "module:line: message".
var (
	ErrUnknownIdentifier       = errors.NewKind("%s:%d: unknown identifier %q")
	ErrUnknownVariable         = errors.NewKind("%s:%d: unknown variable %q")
	ErrUnknownFunction         = errors.NewKind("%s:%d: unknown function %q")
	ErrUnknownType             = errors.NewKind("%s:%d: unknown type %q")
	ErrUnknownModule           = errors.NewKind("%s:%d: unknown module %q")
	ErrFunctionAlreadyDefined  = errors.NewKind("%s:%d: function %q is already defined")
	ErrVariableAlreadyDefined  = errors.NewKind("%s:%d: variable %q is already defined")
	ErrParameterAlreadyDefined = errors.NewKind("%s:%d: parameter %q is already defined")
	ErrBodyTypeMismatch        = errors.NewKind("%s:%d: body of function %q has type %s but %s was declared")
	ErrTypeMismatch            = errors.NewKind("%s:%d: expected type %s but found %s (%s)")
	ErrArgumentCountMismatch   = errors.NewKind("%s:%d: %q expects %d arguments but found %d")
	ErrUnknownField            = errors.NewKind("%s:%d: unknown field %q on type %s")
	ErrFieldAccessOnNonObject  = errors.NewKind("%s:%d: cannot access field %q on non-object type %s")
	ErrTupleIndexOutOfBounds   = errors.NewKind("%s:%d: tuple index %d out of bounds for tuple of size %d")
	ErrTupleIndexOnNonTuple    = errors.NewKind("%s:%d: cannot access tuple index %d on non-tuple type %s")
	ErrNonConcreteType         = errors.NewKind("%s:%d: type %s is not concrete here (%s)")
	ErrImpossibleConversion    = errors.NewKind("%s:%d: cannot convert %s into %s")
	ErrLocalAlreadyDeclared    = errors.NewKind("%s:%d: local %q is already declared in this scope")
	ErrLocalShadowsFunction    = errors.NewKind("%s:%d: local %q shadows a function with the same name")
	ErrOverMatching            = errors.NewKind("%s:%d: match arm type %s is wider than the scrutinee type %s")
	ErrNonExhaustiveMatching   = errors.NewKind("%s:%d: match is not exhaustive; %s is not covered")
	ErrNullCoalesceOnNonMaybe  = errors.NewKind("%s:%d: '??' requires an optional type but found %s")
	ErrListIndexNotInt         = errors.NewKind("%s:%d: list index must be Int but found %s")
	ErrIndexOnNonList          = errors.NewKind("%s:%d: cannot index into non-list type %s")
	ErrSelfImport              = errors.NewKind("%s:%d: module %q cannot import itself")
	ErrSymbolConflict          = errors.NewKind("%s:%d: symbol %q conflicts with a symbol from module %q")
	ErrPrimitiveTypeAsValue    = errors.NewKind("%s:%d: primitive type %q cannot be used as a value")
	ErrUnsupportedFeature      = errors.NewKind("%s:%d: unsupported feature: %s")
	ErrVarArityMismatch        = errors.NewKind("%s:%d: variable %q expects %d arguments but found %d")
	ErrVarArgTypeMismatch      = errors.NewKind("%s:%d: argument %d to variable %q has type %s but %s expected")
)

// GlobalEnvError kinds, grounded on
// original_source/collo-ml/src/semantics/errors.rs's GlobalEnvError enum:
// these validate the host's own declarations before any module is
// analyzed, rather than a DSL program (hence no module/line in the
// format — a host schema error has no source span).
var (
	ErrUnknownTypeInField          = errors.NewKind("field %q of object type %q has unknown type %q")
	ErrUnknownTypeForVariableArg   = errors.NewKind("parameter %d for ILP variable %q has unknown type %q")
)

// SemWarning kinds, grounded on the same file's SemWarning enum.
var (
	WarnIdentifierShadowed      = errors.NewKind("%s:%d: identifier %q shadows a previous definition")
	WarnFunctionNamingConvention = errors.NewKind("%s:%d: function %q does not follow snake_case naming convention")
	WarnVariableNamingConvention = errors.NewKind("%s:%d: variable %q does not follow UpperCamelCase naming convention")
	WarnParameterNamingConvention = errors.NewKind("%s:%d: parameter %q does not follow snake_case naming convention")
	WarnUnusedIdentifier        = errors.NewKind("%s:%d: unused identifier %q")
	WarnUnusedFunction          = errors.NewKind("%s:%d: unused function %q")
	WarnUnusedParameter         = errors.NewKind("%s:%d: unused parameter %q")
)

// Diagnostic pairs a Kind-produced error with the suggestion text some
// warnings carry (SPEC_FULL.md's SUPPLEMENTED FEATURES #3: naming-convention
// warnings carry a corrected-name suggestion).
type Diagnostic struct {
	Err        error
	Suggestion string
}
