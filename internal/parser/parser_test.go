package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/parser"
)

func parseOK(t *testing.T, src string) *ast.File {
	t.Helper()
	toks, lexErrs := lexer.New("m", []byte(src)).Scan()
	require.Empty(t, lexErrs)
	file, errs := parser.New("m", toks).Parse()
	require.Empty(t, errs, "unexpected parse errors for: %s", src)
	return file
}

func TestParseLetFunction(t *testing.T) {
	file := parseOK(t, `let f(x: Int) -> Int = x + 1;`)
	require.Len(t, file.Stmts, 1)
	let, ok := file.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	assert.Equal(t, "f", let.Name)
	assert.False(t, let.Public)
	require.Len(t, let.Params, 1)
	assert.Equal(t, "x", let.Params[0].Ident)
	assert.Equal(t, "Int", let.RetType.String())
	_, ok = let.Body.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestParsePubAndDocstring(t *testing.T) {
	file := parseOK(t, "/// computes a thing\npub let f() -> Bool = true;")
	let := file.Stmts[0].(*ast.LetStmt)
	assert.True(t, let.Public)
	assert.Equal(t, []string{"computes a thing"}, let.Doc)
}

func TestParseReifyScalarAndList(t *testing.T) {
	file := parseOK(t, "reify g as $X;\nreify h as $[Y];")
	require.Len(t, file.Stmts, 2)
	r1 := file.Stmts[0].(*ast.ReifyStmt)
	assert.Equal(t, []string{"g"}, r1.Path)
	assert.False(t, r1.IsList)
	assert.Equal(t, "X", r1.VarName)
	r2 := file.Stmts[1].(*ast.ReifyStmt)
	assert.True(t, r2.IsList)
}

func TestParseQualifiedReifyPath(t *testing.T) {
	file := parseOK(t, "reify mod::g as $X;")
	r := file.Stmts[0].(*ast.ReifyStmt)
	assert.Equal(t, []string{"mod", "g"}, r.Path)
}

func TestParseIfElse(t *testing.T) {
	file := parseOK(t, `let f() -> Int = if true { 1 } else { 2 };`)
	let := file.Stmts[0].(*ast.LetStmt)
	ifE, ok := let.Body.(*ast.IfExpr)
	require.True(t, ok)
	assert.IsType(t, &ast.BoolLit{}, ifE.Cond)
}

func TestIfWithoutElseIsParseError(t *testing.T) {
	toks, _ := lexer.New("m", []byte(`let f() -> Int = if true { 1 };`)).Scan()
	_, errs := parser.New("m", toks).Parse()
	require.NotEmpty(t, errs)
}

func TestParseForallSumComprehension(t *testing.T) {
	file := parseOK(t, `
let f(xs: [Int]) -> Constraint = forall x in xs where x > 0 { x > 0 };
let g(xs: [Int]) -> LinExpr = sum x in xs { x };
let h(xs: [Int]) -> [Int] = [x for x in xs where x > 0];
`)
	require.Len(t, file.Stmts, 3)
	assert.IsType(t, &ast.ForallExpr{}, file.Stmts[0].(*ast.LetStmt).Body)
	assert.IsType(t, &ast.SumExpr{}, file.Stmts[1].(*ast.LetStmt).Body)
	assert.IsType(t, &ast.ListComprehension{}, file.Stmts[2].(*ast.LetStmt).Body)
}

func TestParseLetIn(t *testing.T) {
	file := parseOK(t, `let f() -> Int = let y = 1 { y + 1 };`)
	let := file.Stmts[0].(*ast.LetStmt)
	li, ok := let.Body.(*ast.LetInExpr)
	require.True(t, ok)
	assert.Equal(t, "y", li.Name)
}

func TestParseMatch(t *testing.T) {
	file := parseOK(t, `let f(x: Int | Bool) -> Int = match x { Int i { i } Bool b { 0 } };`)
	let := file.Stmts[0].(*ast.LetStmt)
	m, ok := let.Body.(*ast.MatchExpr)
	require.True(t, ok)
	require.Len(t, m.Arms, 2)
	assert.Equal(t, "Int", m.Arms[0].Pattern.String())
}

func TestParseVarRefAndGlobalColl(t *testing.T) {
	file := parseOK(t, `let f() -> Constraint = $X(1, 2) === 0;`)
	let := file.Stmts[0].(*ast.LetStmt)
	bin, ok := let.Body.(*ast.BinaryExpr)
	require.True(t, ok)
	vr, ok := bin.Left.(*ast.VarRef)
	require.True(t, ok)
	assert.Equal(t, "X", vr.Name)
	require.Len(t, vr.Args, 2)

	file2 := parseOK(t, `let g() -> [Object] = @[Student];`)
	gc, ok := file2.Stmts[0].(*ast.LetStmt).Body.(*ast.GlobalColl)
	require.True(t, ok)
	assert.Equal(t, "Student", gc.TypeName)
}

func TestParseRangeAndCardinality(t *testing.T) {
	file := parseOK(t, `let f() -> Int = |[0..10]|;`)
	let := file.Stmts[0].(*ast.LetStmt)
	card, ok := let.Body.(*ast.CardinalityExpr)
	require.True(t, ok)
	rng, ok := card.Inner.(*ast.RangeLit)
	require.True(t, ok)
	assert.IsType(t, &ast.IntLit{}, rng.Lo)
	assert.IsType(t, &ast.IntLit{}, rng.Hi)
}

func TestParseSetOperators(t *testing.T) {
	file := parseOK(t, `let f(a: [Object], b: [Object]) -> [Object] = a union b inter a \ b;`)
	let := file.Stmts[0].(*ast.LetStmt)
	assert.IsType(t, &ast.BinaryExpr{}, let.Body)
}

func TestParsePostfixFieldIndexCastCoalesce(t *testing.T) {
	file := parseOK(t, `let f(o: Object) -> Int = (o.field[0] as Int) ?? 0;`)
	let := file.Stmts[0].(*ast.LetStmt)
	_, ok := let.Body.(*ast.CoalesceExpr)
	require.True(t, ok)
}

func TestVarTimesVarIsRejected(t *testing.T) {
	toks, _ := lexer.New("m", []byte(`let f(a: Int, b: Int) -> Int = a * b;`)).Scan()
	_, errs := parser.New("m", toks).Parse()
	require.NotEmpty(t, errs)
}

func TestEmptyBranchIsRejected(t *testing.T) {
	toks, _ := lexer.New("m", []byte(`let f() -> Int = if true {} else { 1 };`)).Scan()
	_, errs := parser.New("m", toks).Parse()
	require.NotEmpty(t, errs)
}

func TestParseTuple(t *testing.T) {
	file := parseOK(t, `let f() -> (Int, Bool) = (1, true);`)
	let := file.Stmts[0].(*ast.LetStmt)
	tup, ok := let.Body.(*ast.TupleLit)
	require.True(t, ok)
	assert.Len(t, tup.Elements, 2)
}
