package sema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/parser"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

// fakeEnv is a tiny hand-rolled host.Env for analyzer unit tests; the
// full in-memory implementation backing end-to-end scenarios lives in
// internal/testhost.
type fakeEnv struct {
	schemas map[string]host.FieldSchema
	vars    map[string][]string
}

func (f *fakeEnv) ObjectsWithType(string) ([]string, error) { return nil, nil }
func (f *fakeEnv) TypeNameOf(string) (string, error)        { return "", nil }
func (f *fakeEnv) FieldAccess(string, string) (value.Value, error) {
	return value.Value{}, nil
}
func (f *fakeEnv) TypeSchemas() map[string]host.FieldSchema { return f.schemas }
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
	return host.VariableInstance{}, nil
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		schemas: map[string]host.FieldSchema{
			"Student": {"id": "Int", "name": "String"},
		},
		vars: map[string][]string{
			"Assign": {"Student", "Int"},
		},
	}
}

func mustParse(t *testing.T, module, src string) *ast.File {
	t.Helper()
	toks, lexErrs := lexer.New(module, []byte(src)).Scan()
	require.Empty(t, lexErrs)
	f, parseErrs := parser.New(module, toks).Parse()
	require.Empty(t, parseErrs)
	return f
}

func TestAnalyzeSimpleFunctionTypeChecks(t *testing.T) {
	file := mustParse(t, "m", `let double(x: Int) -> Int = x * 2;`)
	a := sema.New(newFakeEnv())
	prog := a.Analyze(map[string]*ast.File{"m": file})
	assert.Empty(t, a.Errors())
	sig, ok := prog.Modules["m"].Sigs["double"]
	require.True(t, ok)
	assert.Equal(t, "Int", sig.Ret.String())
}

func TestAnalyzeBodyTypeMismatchReported(t *testing.T) {
	file := mustParse(t, "m", `let oops(x: Int) -> Bool = x + 1;`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Errors())
	assert.True(t, sema.ErrBodyTypeMismatch.Is(a.Errors()[0]))
}

func TestAnalyzeUnknownIdentifierReported(t *testing.T) {
	file := mustParse(t, "m", `let bad() -> Int = missing_name;`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Errors())
	assert.True(t, sema.ErrUnknownIdentifier.Is(a.Errors()[0]))
}

func TestAnalyzeFunctionCallAcrossModules(t *testing.T) {
	libFile := mustParse(t, "lib", `pub let inc(x: Int) -> Int = x + 1;`)
	mainFile := mustParse(t, "main", `let two() -> Int = lib::inc(1);`)
	a := sema.New(newFakeEnv())
	prog := a.Analyze(map[string]*ast.File{"lib": libFile, "main": mainFile})
	assert.Empty(t, a.Errors())
	assert.Equal(t, "Int", prog.Modules["main"].Sigs["two"].Ret.String())
}

func TestAnalyzeUnqualifiedPublicCallResolves(t *testing.T) {
	libFile := mustParse(t, "lib", `pub let inc(x: Int) -> Int = x + 1;`)
	mainFile := mustParse(t, "main", `let two() -> Int = inc(1);`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"lib": libFile, "main": mainFile})
	assert.Empty(t, a.Errors())
}

func TestAnalyzeArgumentCountMismatch(t *testing.T) {
	file := mustParse(t, "m", `
let f(x: Int) -> Int = x;
let g() -> Int = f(1, 2);
`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Errors())
	assert.True(t, sema.ErrArgumentCountMismatch.Is(a.Errors()[len(a.Errors())-1]))
}

func TestAnalyzeVarRefResolvesHostSchema(t *testing.T) {
	file := mustParse(t, "m", `let c(s: Student) -> LinExpr = $Assign(s, 1);`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	assert.Empty(t, a.Errors())
}

func TestAnalyzeUnknownVariableReported(t *testing.T) {
	file := mustParse(t, "m", `let c() -> LinExpr = $NoSuchVar(1);`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Errors())
	assert.True(t, sema.ErrUnknownVariable.Is(a.Errors()[0]))
}

func TestAnalyzeForallProducesConstraint(t *testing.T) {
	file := mustParse(t, "m", `let all_pos() -> Constraint = forall i in [0..3] { i >== 0 };`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	assert.Empty(t, a.Errors())
}

func TestAnalyzeIfBranchMismatchReported(t *testing.T) {
	file := mustParse(t, "m", `let f() -> Int = if true { 1 } else { "two" };`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Errors())
}

func TestAnalyzeNamingConventionWarnings(t *testing.T) {
	file := mustParse(t, "m", `let BadName() -> Int = 1;`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Warnings())
	assert.True(t, sema.WarnFunctionNamingConvention.Is(a.Warnings()[0].Err))
	assert.Equal(t, "bad_name", a.Warnings()[0].Suggestion)
}

func TestAnalyzeFieldAccessOnObject(t *testing.T) {
	file := mustParse(t, "m", `let name_of(s: Student) -> String = s.name;`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	assert.Empty(t, a.Errors())
}

func TestAnalyzeUnknownFieldReported(t *testing.T) {
	file := mustParse(t, "m", `let bad(s: Student) -> String = s.nope;`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	require.NotEmpty(t, a.Errors())
	assert.True(t, sema.ErrUnknownField.Is(a.Errors()[0]))
}

func TestAnalyzeUnusedFunctionWarned(t *testing.T) {
	file := mustParse(t, "m", `
let helper() -> Int = 1;
pub let used() -> Int = 1;
`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	var found bool
	for _, w := range a.Warnings() {
		if sema.WarnUnusedFunction.Is(w.Err) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeUnusedParameterWarned(t *testing.T) {
	file := mustParse(t, "m", `pub let f(a: Int, b: Int) -> Int = a;`)
	a := sema.New(newFakeEnv())
	a.Analyze(map[string]*ast.File{"m": file})
	var found bool
	for _, w := range a.Warnings() {
		if sema.WarnUnusedParameter.Is(w.Err) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckHostSchemaAcceptsValidSchema(t *testing.T) {
	env := newFakeEnv()
	errs := sema.CheckHostSchema(env)
	assert.Empty(t, errs)
}

func TestCheckHostSchemaRejectsUnknownFieldType(t *testing.T) {
	env := &fakeEnv{
		schemas: map[string]host.FieldSchema{
			"Student": {"advisor": "Professor"},
		},
		vars: map[string][]string{},
	}
	errs := sema.CheckHostSchema(env)
	require.NotEmpty(t, errs)
	assert.True(t, sema.ErrUnknownTypeInField.Is(errs[0]))
}

func TestCheckHostSchemaRejectsUnknownVariableArgType(t *testing.T) {
	env := &fakeEnv{
		schemas: map[string]host.FieldSchema{},
		vars:    map[string][]string{"V": {"Ghost"}},
	}
	errs := sema.CheckHostSchema(env)
	require.NotEmpty(t, errs)
	assert.True(t, sema.ErrUnknownTypeForVariableArg.Is(errs[0]))
}
