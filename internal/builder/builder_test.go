package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/builder"
	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/parser"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

// fakeEnv declares a handful of binary base variables (V, W, X), grounded
// on original_source/collo-ml/src/problem/tests/simple_constraints.rs's
// Var enum with all-binary EvalVar::vars().
type fakeEnv struct {
	vars map[string][]string
}

func (f *fakeEnv) ObjectsWithType(string) ([]string, error) { return nil, nil }
func (f *fakeEnv) TypeNameOf(string) (string, error)        { return "", nil }
func (f *fakeEnv) FieldAccess(string, string) (value.Value, error) {
	return value.Value{}, nil
}
func (f *fakeEnv) TypeSchemas() map[string]host.FieldSchema { return nil }
func (f *fakeEnv) VariableNames() []string {
	names := make([]string, 0, len(f.vars))
	for n := range f.vars {
		names = append(names, n)
	}
	return names
}
func (f *fakeEnv) VariableSchema(name string) ([]string, bool) {
	s, ok := f.vars[name]
	return s, ok
}
func (f *fakeEnv) VariableInstance(string, []value.Value) (host.VariableInstance, error) {
	return host.VariableInstance{DomainMin: 0, DomainMax: 1, IsInteger: true}, nil
}

func newFakeEnv(names ...string) *fakeEnv {
	vars := map[string][]string{}
	for _, n := range names {
		vars[n] = []string{}
	}
	return &fakeEnv{vars: vars}
}

func analyze(t *testing.T, env host.Env, sources map[string]string) *sema.Program {
	t.Helper()
	files := map[string]*ast.File{}
	for module, src := range sources {
		toks, lexErrs := lexer.New(module, []byte(src)).Scan()
		require.Empty(t, lexErrs)
		f, parseErrs := parser.New(module, toks).Parse()
		require.Empty(t, parseErrs)
		files[module] = f
	}
	a := sema.New(env)
	prog := a.Analyze(files)
	require.Empty(t, a.Errors())
	return prog
}

func TestBuildSingleConstraint(t *testing.T) {
	env := newFakeEnv("V")
	prog := analyze(t, env, map[string]string{
		"main": `pub let f() -> Constraint = $V() === 1;`,
	})
	prob, err := builder.New(env, prog).Build([]builder.ConstraintBinding{{Module: "main", Name: "f"}})
	require.NoError(t, err)
	require.Len(t, prob.Variables, 1)
	assert.Equal(t, "V", prob.Variables[0].Name)
	assert.NotEmpty(t, prob.Constraints)
}

func TestBuildMultipleConstraintsConjunction(t *testing.T) {
	env := newFakeEnv("V", "W", "X")
	prog := analyze(t, env, map[string]string{
		"main": `pub let constraints() -> Constraint = $V() === 1 and $W() === 0 and $X() === 1;`,
	})
	prob, err := builder.New(env, prog).Build([]builder.ConstraintBinding{{Module: "main", Name: "constraints"}})
	require.NoError(t, err)
	require.Len(t, prob.Variables, 3)
}

func TestBuildConstraintsFromDifferentModules(t *testing.T) {
	env := newFakeEnv("V", "W")
	prog := analyze(t, env, map[string]string{
		"module1": `pub let c1() -> Constraint = $V() === 1;`,
		"module2": `pub let c2() -> Constraint = $W() === 1;`,
	})
	prob, err := builder.New(env, prog).Build([]builder.ConstraintBinding{
		{Module: "module1", Name: "c1"},
		{Module: "module2", Name: "c2"},
	})
	require.NoError(t, err)
	require.Len(t, prob.Variables, 2)
}

func TestBuildUnknownFunctionRejected(t *testing.T) {
	env := newFakeEnv("V")
	prog := analyze(t, env, map[string]string{
		"main": `pub let f() -> Constraint = $V() === 1;`,
	})
	_, err := builder.New(env, prog).Build([]builder.ConstraintBinding{{Module: "main", Name: "missing"}})
	require.Error(t, err)
	assert.True(t, builder.ErrUnknownFunction.Is(err))
}

func TestBuildReificationLinearization(t *testing.T) {
	env := newFakeEnv("V")
	prog := analyze(t, env, map[string]string{
		"main": `
pub let c() -> Constraint = $V() === 1;
reify c as $B;
pub let top() -> Constraint = $B() === 1;
`,
	})
	prob, err := builder.New(env, prog).Build([]builder.ConstraintBinding{{Module: "main", Name: "top"}})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, v := range prob.Variables {
		names[v.Name] = true
	}
	assert.True(t, names["V"])
	assert.True(t, names["B"])
	assert.True(t, names["B#le"])
	assert.True(t, names["B#ge"])
	assert.NotEmpty(t, prob.Reifications)
}

func TestBuildReificationAlreadyBoundRejected(t *testing.T) {
	env := newFakeEnv("V")
	prog := analyze(t, env, map[string]string{
		"main": `
pub let c() -> Constraint = $V() === 1;
reify c as $B1;
reify c as $B2;
`,
	})
	_, err := builder.New(env, prog).Build(nil)
	require.Error(t, err)
	assert.True(t, builder.ErrReificationAlreadyBound.Is(err))
}

func TestBuildVariableAlreadyDefinedRejected(t *testing.T) {
	env := newFakeEnv("V")
	prog := analyze(t, env, map[string]string{
		"main": `
pub let c() -> Constraint = $V() === 1;
reify c as $V;
`,
	})
	_, err := builder.New(env, prog).Build(nil)
	require.Error(t, err)
	assert.True(t, builder.ErrVariableAlreadyDefined.Is(err))
}
