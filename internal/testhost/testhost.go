// Package testhost is a concrete, in-memory host.Env (spec.md §6.2) for
// unit tests and the end-to-end scenarios in internal/builder: the
// GUI/TUI/RPC/SQLite-CRUD/solver layers that would back a production
// Env are explicit Non-goals and live outside this module, but the tree
// still needs one pure, deterministic implementation to drive tests
// against.
package testhost

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

// Fixer fixes a declared variable's value for a given argument tuple,
// mirroring original_source/collo-ml/src/problem/tests/
// complete_interrogation_scheduling.rs's EvalVar::fix: it lets a host
// variable pin out-of-domain argument tuples (e.g. an out-of-range Int
// index) to a constant rather than materializing a free ILP variable for
// them.
type Fixer func(args []value.Value) (fixed float64, ok bool)

type variable struct {
	params    []string
	domainMin float64
	domainMax float64
	isInteger bool
	fixer     Fixer
}

// Env is a hand-populated, in-memory host.Env. Zero value is not usable;
// construct with New.
type Env struct {
	schemas map[string]host.FieldSchema
	objects map[string][]string
	types   map[string]string
	fields  map[string]map[string]value.Value
	vars    map[string]variable
}

// New returns an empty Env ready for DeclareType/NewObject/DeclareVariable
// calls.
func New() *Env {
	return &Env{
		schemas: make(map[string]host.FieldSchema),
		objects: make(map[string][]string),
		types:   make(map[string]string),
		fields:  make(map[string]map[string]value.Value),
		vars:    make(map[string]variable),
	}
}

// DeclareType registers an object type's field schema.
func (e *Env) DeclareType(name string, fields host.FieldSchema) *Env {
	e.schemas[name] = fields
	return e
}

// NewObject creates an object of typeName with a fresh id (google/uuid,
// following Tangerg-lynx's idgenerators.UUIDGenerator pattern) and the
// given field values, returning the assigned id.
func (e *Env) NewObject(typeName string, fields map[string]value.Value) string {
	id := uuid.New().String()
	e.addObject(typeName, id, fields)
	return id
}

// NewObjectWithID is NewObject with a caller-chosen id, for scenarios
// that need a predictable correspondence between an id and its position
// (e.g. "student index i" tests) rather than an opaque random one.
func (e *Env) NewObjectWithID(typeName, id string, fields map[string]value.Value) string {
	e.addObject(typeName, id, fields)
	return id
}

func (e *Env) addObject(typeName, id string, fields map[string]value.Value) {
	e.objects[typeName] = append(e.objects[typeName], id)
	e.types[id] = typeName
	e.fields[id] = fields
}

// DeclareVariable registers a host-declared ILP variable's parameter
// types and domain. fixer may be nil; a nil fixer never fixes any
// argument tuple.
func (e *Env) DeclareVariable(name string, params []string, domainMin, domainMax float64, isInteger bool, fixer Fixer) *Env {
	e.vars[name] = variable{params: params, domainMin: domainMin, domainMax: domainMax, isInteger: isInteger, fixer: fixer}
	return e
}

func (e *Env) ObjectsWithType(typeName string) ([]string, error) {
	ids := append([]string(nil), e.objects[typeName]...)
	sort.Strings(ids)
	return ids, nil
}

func (e *Env) TypeNameOf(id string) (string, error) {
	t, ok := e.types[id]
	if !ok {
		return "", fmt.Errorf("testhost: unknown object id %q", id)
	}
	return t, nil
}

func (e *Env) FieldAccess(id, field string) (value.Value, error) {
	fields, ok := e.fields[id]
	if !ok {
		return value.Value{}, fmt.Errorf("testhost: unknown object id %q", id)
	}
	v, ok := fields[field]
	if !ok {
		return value.Value{}, fmt.Errorf("testhost: object %q has no field %q", id, field)
	}
	return v, nil
}

func (e *Env) TypeSchemas() map[string]host.FieldSchema { return e.schemas }

func (e *Env) VariableNames() []string {
	names := make([]string, 0, len(e.vars))
	for n := range e.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Env) VariableSchema(name string) ([]string, bool) {
	v, ok := e.vars[name]
	if !ok {
		return nil, false
	}
	return v.params, true
}

func (e *Env) VariableInstance(name string, args []value.Value) (host.VariableInstance, error) {
	v, ok := e.vars[name]
	if !ok {
		return host.VariableInstance{}, fmt.Errorf("testhost: unknown variable %q", name)
	}
	if v.fixer != nil {
		if fixed, ok := v.fixer(args); ok {
			return host.VariableInstance{DomainMin: v.domainMin, DomainMax: v.domainMax, IsInteger: v.isInteger, FixedTo: &fixed}, nil
		}
	}
	return host.VariableInstance{DomainMin: v.domainMin, DomainMax: v.domainMax, IsInteger: v.isInteger}, nil
}
