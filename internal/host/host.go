// Package host defines the façade contract (spec.md §6.2) the evaluator
// and problem builder consume: object enumeration, field access, type
// schemas, and ILP variable domain queries. All implementations must be
// pure, idempotent, and stable over a single compilation (spec.md §5);
// the GUI/TUI/RPC/SQLite-CRUD/CBC-solver/AppState-session layers that
// would implement Env in a full Collomatique deployment are explicit
// Non-goals and live outside this module.
package host

import "github.com/christophcharles/Collomatique-sub005/internal/value"

// FieldSchema maps a field name to its declared type, rendered with
// internal/types.ExprType.String() so this package stays free of a direct
// dependency on internal/types (kept to break an import cycle with
// internal/sema, which depends on both host and types).
type FieldSchema map[string]string

// VariableInstance describes one concrete instantiation of a declared ILP
// variable: its domain and, if the host has pinned it, a fixed value.
type VariableInstance struct {
	DomainMin float64
	DomainMax float64
	IsInteger bool
	FixedTo   *float64
}

// Env is the host environment contract. Every method must be pure and
// deterministic within one compilation (spec.md §5's "core is a pure
// function of (sources, env)").
type Env interface {
	// ObjectsWithType returns the ids of every object of the named type,
	// in ascending id order (spec.md's @[Type] ordering guarantee).
	ObjectsWithType(typeName string) ([]string, error)

	// TypeNameOf returns the declared object-type name for id.
	TypeNameOf(id string) (string, error)

	// FieldAccess returns the value of field on the object id, matching
	// the declared field type from TypeSchemas.
	FieldAccess(id, field string) (value.Value, error)

	// TypeSchemas returns, for every known object type, its field-name to
	// declared-type-string map.
	TypeSchemas() map[string]FieldSchema

	// VariableNames returns the name of every host-declared ILP variable,
	// for pre-flight validation of the host's own schema declarations
	// (sema.CheckHostSchema) ahead of analyzing any module.
	VariableNames() []string

	// VariableSchema returns the ordered parameter types (as type-string)
	// of the named host-declared ILP variable.
	VariableSchema(varName string) ([]string, bool)

	// VariableInstance resolves one concrete (varName, args) instantiation
	// to its domain and optional fixed value.
	VariableInstance(varName string, args []value.Value) (VariableInstance, error)
}
