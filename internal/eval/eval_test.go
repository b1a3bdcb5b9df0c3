package eval_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/eval"
	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/parser"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

type fakeEnv struct {
	schemas    map[string]host.FieldSchema
	objects    map[string][]string
	fields     map[string]map[string]value.Value
	vars       map[string][]string
	fixedTo    map[string]float64
	domain     [2]float64
}

func (f *fakeEnv) ObjectsWithType(t string) ([]string, error) { return f.objects[t], nil }
func (f *fakeEnv) TypeNameOf(id string) (string, error)       { return "", nil }
func (f *fakeEnv) FieldAccess(id, field string) (value.Value, error) {
	return f.fields[id][field], nil
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
func (f *fakeEnv) VariableInstance(name string, args []value.Value) (host.VariableInstance, error) {
	inst := host.VariableInstance{DomainMin: f.domain[0], DomainMax: f.domain[1], IsInteger: true}
	if fixed, ok := f.fixedTo[name+":"+value.HashKey(args[0])]; ok {
		inst.FixedTo = &fixed
	}
	return inst, nil
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		schemas: map[string]host.FieldSchema{
			"Student": {"id": "Int", "name": "String"},
		},
		objects: map[string][]string{
			"Student": {"1", "2", "3"},
		},
		fields: map[string]map[string]value.Value{
			"1": {"id": value.Int(1), "name": value.Str("Alice")},
			"2": {"id": value.Int(2), "name": value.Str("Bob")},
			"3": {"id": value.Int(3), "name": value.Str("Carol")},
		},
		vars:   map[string][]string{"Assign": {"Student"}},
		fixedTo: map[string]float64{},
		domain:  [2]float64{0, 1},
	}
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

func TestEvalArithmetic(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{"m": `let f() -> Int = (2 + 3) * 4 - 1;`})
	v, _, err := eval.New(env, prog).EvalFunction("m", "f", nil)
	require.NoError(t, err)
	i, _ := value.AsInt(v)
	assert.Equal(t, int64(19), i)
}

func TestEvalFloorDivAndMod(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{"m": "let f() -> Int = (-7) // 2;\nlet g() -> Int = (-7) % 2;"})
	v, _, err := eval.New(env, prog).EvalFunction("m", "f", nil)
	require.NoError(t, err)
	i, _ := value.AsInt(v)
	assert.Equal(t, int64(-4), i)

	v, _, err = eval.New(env, prog).EvalFunction("m", "g", nil)
	require.NoError(t, err)
	i, _ = value.AsInt(v)
	assert.Equal(t, int64(1), i)
}

func TestEvalDivisionByZero(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{"m": `let f() -> Int = 1 // 0;`})
	_, _, err := eval.New(env, prog).EvalFunction("m", "f", nil)
	require.Error(t, err)
	assert.True(t, eval.ErrDivisionByZero.Is(err))
}

func TestEvalStringConcatAndSum(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{"m": `let f() -> String = sum s in ["a","b","c"] { s };`})
	v, _, err := eval.New(env, prog).EvalFunction("m", "f", nil)
	require.NoError(t, err)
	s, _ := value.AsString(v)
	assert.Equal(t, "abc", s)
}

func TestEvalGlobalCollectionAndFieldAccess(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{"m": `let names() -> [String] = [s.name for s in @[Student]];`})
	v, _, err := eval.New(env, prog).EvalFunction("m", "names", nil)
	require.NoError(t, err)
	items, _ := value.AsList(v)
	require.Len(t, items, 3)
	first, _ := value.AsString(items[0])
	assert.Equal(t, "Alice", first)
}

func TestEvalForallProducesConjunction(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{
		"m": `let c() -> Constraint = forall s in @[Student] { $Assign(s) <== 1 };`,
	})
	v, _, err := eval.New(env, prog).EvalFunction("m", "c", nil)
	require.NoError(t, err)
	cs, _ := value.AsConstraints(v)
	assert.Len(t, cs, 3)
}

func TestEvalVariableFixedSubstitution(t *testing.T) {
	env := newFakeEnv()
	env.fixedTo["Assign:o:Student#1"] = 1
	prog := analyze(t, env, map[string]string{
		"m": `let c(s: Student) -> LinExpr = $Assign(s);`,
	})
	v, _, err := eval.New(env, prog).EvalFunction("m", "c", []value.Value{value.ObjectRef("Student", "1")})
	require.NoError(t, err)
	lx, _ := value.AsLinExpr(v)
	assert.True(t, lx.IsConstant())
	assert.Equal(t, 1.0, lx.ConstantTerm())
}

func TestEvalReifiedVariableRecordsObligation(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{
		"m": `
let base(s: Student) -> Constraint = $Assign(s) <== 1;
reify base as $Base;
let uses(s: Student) -> LinExpr = $Base(s);
`,
	})
	v, obligations, err := eval.New(env, prog).EvalFunction("m", "uses", []value.Value{value.ObjectRef("Student", "1")})
	require.NoError(t, err)
	assert.Equal(t, value.KindLinExpr, v.Kind)
	require.Len(t, obligations, 1)
	assert.Equal(t, "Base", obligations[0].VarName)
}

func TestEvalSetOperators(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{
		"m": `let f() -> [Int] = [1,2,3] union [3,4];`,
	})
	v, _, err := eval.New(env, prog).EvalFunction("m", "f", nil)
	require.NoError(t, err)
	items, _ := value.AsList(v)
	assert.Len(t, items, 4)
}

func TestEvalIfElse(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{"m": `let f(x: Int) -> Int = if x > 0 { x } else { -x };`})
	v, _, err := eval.New(env, prog).EvalFunction("m", "f", []value.Value{value.Int(-5)})
	require.NoError(t, err)
	i, _ := value.AsInt(v)
	assert.Equal(t, int64(5), i)
}

// rejectingEnv wraps fakeEnv but rejects every VariableInstance call, to
// exercise eval.ErrVariableInstanceRejected.
type rejectingEnv struct{ *fakeEnv }

func (r rejectingEnv) VariableInstance(string, []value.Value) (host.VariableInstance, error) {
	return host.VariableInstance{}, errors.New("no such instance")
}

func TestEvalVariableInstanceRejected(t *testing.T) {
	base := newFakeEnv()
	env := rejectingEnv{base}
	prog := analyze(t, env, map[string]string{
		"m": `let f(s: Student) -> LinExpr = $Assign(s);`,
	})
	_, _, err := eval.New(env, prog).EvalFunction("m", "f", []value.Value{value.ObjectRef("Student", "1")})
	require.Error(t, err)
	assert.True(t, eval.ErrVariableInstanceRejected.Is(err))
}

func TestEvalRecursionDepthExceeded(t *testing.T) {
	env := newFakeEnv()
	prog := analyze(t, env, map[string]string{
		"m": `let loop(x: Int) -> Int = loop(x + 1);`,
	})
	_, _, err := eval.New(env, prog).WithLimits(8, eval.DefaultOperationLimit).EvalFunction("m", "loop", []value.Value{value.Int(0)})
	require.Error(t, err)
	assert.True(t, eval.ErrRecursionDepthExceeded.Is(err))
}
