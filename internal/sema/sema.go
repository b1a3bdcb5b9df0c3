// Package sema implements the DSL's semantic analyzer (spec.md §4.3,
// component D): per-module passes collecting function signatures and
// reify bindings, a type checker over the full expression grammar, and
// the two diagnostic streams (SemError, SemWarning).
//
// The scope-stack mechanism generalizes the teacher interpreter's
// codecrafters/cmd/resolver.go ([]map[string]bool, declare/define/
// resolveLocal) from a pure name-resolution pass into a full type
// checker; the error/warning taxonomy is grounded on
// original_source/collo-ml/src/semantics/errors.rs.
package sema

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/types"
)

// FuncSig is the resolved signature of a `let` function.
type FuncSig struct {
	Module  string
	Name    string
	Public  bool
	Params  []ParamSig
	Ret     types.ExprType
	Span    ast.Span
	Stmt    *ast.LetStmt
}

type ParamSig struct {
	Name string
	Type types.ExprType
}

// ReifyBinding is a resolved `reify` declaration.
type ReifyBinding struct {
	Module  string
	Path    []string
	IsList  bool
	VarName string
	Span    ast.Span
}

// CheckedModule holds one module's resolved signatures, reify bindings,
// and the per-expression inferred-type side table (this port's
// equivalent of a separate checked-AST node type: Go's ast.Expr nodes are
// reused and annotated here rather than re-allocated into a parallel
// tree).
type CheckedModule struct {
	Name     string
	File     *ast.File
	Sigs     map[string]*FuncSig
	Reifies  []ReifyBinding
	Types    map[ast.Expr]types.ExprType
}

// Program is every analyzed module plus the flat namespace of public
// symbols (spec.md's "public functions of other modules" resolution
// tier).
type Program struct {
	Modules map[string]*CheckedModule
	Public  map[string]*FuncSig // name -> owning module's signature
}

// Analyzer runs the fixed-order pass sequence over a set of parsed
// modules.
type Analyzer struct {
	log  *logrus.Entry
	env  host.Env
	errs []error
	warn []Diagnostic

	// calledFuncs tracks every (module, name) function signature actually
	// reached by a CallExpr/bare-Ident call or a reify path during
	// analysis, feeding WarnUnusedFunction (SPEC_FULL.md SUPPLEMENTED
	// FEATURES #4).
	calledFuncs map[string]map[string]bool
}

// New creates an Analyzer querying env for object/variable schemas.
func New(env host.Env) *Analyzer {
	return &Analyzer{
		log:         logrus.WithField("component", "sema"),
		env:         env,
		calledFuncs: make(map[string]map[string]bool),
	}
}

func (a *Analyzer) markCalled(sig *FuncSig) {
	if a.calledFuncs[sig.Module] == nil {
		a.calledFuncs[sig.Module] = make(map[string]bool)
	}
	a.calledFuncs[sig.Module][sig.Name] = true
}

// Errors returns every SemError collected across Analyze.
func (a *Analyzer) Errors() []error { return a.errs }

// Warnings returns every SemWarning collected across Analyze.
func (a *Analyzer) Warnings() []Diagnostic { return a.warn }

func (a *Analyzer) fail(kind interface{ New(...interface{}) error }, args ...interface{}) {
	a.errs = append(a.errs, kind.New(args...))
}

func (a *Analyzer) warnf(kind interface{ New(...interface{}) error }, suggestion string, args ...interface{}) {
	a.warn = append(a.warn, Diagnostic{Err: kind.New(args...), Suggestion: suggestion})
}

// Analyze runs passes (b)-(e) over files (module name -> parsed File):
// signatures, reify statements, function bodies, then naming/usage
// warnings. There is no type-declaration pass (a): the grammar has no
// custom type declarations. It returns the resulting Program. Analysis
// never short-circuits on the first error: every module is fully processed so Errors()/Warnings()
// report everything found (spec.md §7 "Propagation").
func (a *Analyzer) Analyze(files map[string]*ast.File) *Program {
	prog := &Program{Modules: make(map[string]*CheckedModule), Public: make(map[string]*FuncSig)}

	// Pass (b): collect function signatures per module.
	for name, file := range files {
		prog.Modules[name] = &CheckedModule{
			Name: name, File: file,
			Sigs:  make(map[string]*FuncSig),
			Types: make(map[ast.Expr]types.ExprType),
		}
	}
	for name, file := range files {
		cm := prog.Modules[name]
		for _, stmt := range file.Stmts {
			let, ok := stmt.(*ast.LetStmt)
			if !ok {
				continue
			}
			if _, dup := cm.Sigs[let.Name]; dup {
				a.fail(ErrFunctionAlreadyDefined, name, let.Span().Line, let.Name)
				continue
			}
			sig := a.resolveSignature(name, let)
			cm.Sigs[let.Name] = sig
			if let.Public {
				if existing, dup := prog.Public[let.Name]; dup && existing.Module != name {
					a.fail(ErrSymbolConflict, name, let.Span().Line, let.Name, existing.Module)
				} else {
					prog.Public[let.Name] = sig
				}
			}
		}
	}

	// Pass (c): collect reify statements.
	for name, file := range files {
		cm := prog.Modules[name]
		for _, stmt := range file.Stmts {
			reify, ok := stmt.(*ast.ReifyStmt)
			if !ok {
				continue
			}
			if len(reify.Path) > 1 && reify.Path[0] == name {
				a.fail(ErrSelfImport, name, reify.Span().Line, name)
			}
			cm.Reifies = append(cm.Reifies, ReifyBinding{
				Module: name, Path: reify.Path, IsList: reify.IsList,
				VarName: reify.VarName, Span: reify.Span(),
			})
		}
	}

	// Pass (d): type-check every function body.
	for name, file := range files {
		cm := prog.Modules[name]
		for _, stmt := range file.Stmts {
			let, ok := stmt.(*ast.LetStmt)
			if !ok {
				continue
			}
			a.checkFunctionBody(prog, cm, let)
		}
	}

	// Pass (e): usage / naming warnings.
	for name, file := range files {
		a.namingAndUsageWarnings(name, file, prog.Modules[name])
	}

	return prog
}

func (a *Analyzer) resolveSignature(module string, let *ast.LetStmt) *FuncSig {
	sig := &FuncSig{Module: module, Name: let.Name, Public: let.Public, Span: let.Span(), Stmt: let}
	seen := map[string]bool{}
	for _, p := range let.Params {
		if seen[p.Ident] {
			a.fail(ErrParameterAlreadyDefined, module, let.Span().Line, p.Ident)
			continue
		}
		seen[p.Ident] = true
		t, err := a.resolveType(module, p.Type)
		if err != nil {
			continue
		}
		sig.Params = append(sig.Params, ParamSig{Name: p.Ident, Type: t})
	}
	ret, err := a.resolveType(module, let.RetType)
	if err == nil {
		sig.Ret = ret
	}
	return sig
}

var primitiveTypeNames = map[string]bool{
	"Int": true, "Bool": true, "String": true, "LinExpr": true, "Constraint": true,
}

// resolveType turns a surface TypeExpr into a types.ExprType, validating
// identifier types against the primitives and the host's object schemas.
func (a *Analyzer) resolveType(module string, t ast.TypeExpr) (types.ExprType, error) {
	switch t.Kind {
	case ast.KindIdent:
		switch t.Ident {
		case "Int":
			return types.Int(), nil
		case "Bool":
			return types.Bool(), nil
		case "String":
			return types.Str(), nil
		case "LinExpr":
			return types.LinExpr(), nil
		case "Constraint":
			return types.Constraint(), nil
		}
		if _, ok := a.env.TypeSchemas()[t.Ident]; ok {
			return types.Object(t.Ident), nil
		}
		a.fail(ErrUnknownType, module, t.Span.Line, t.Ident)
		return types.ExprType{}, fmt.Errorf("unknown type")
	case ast.KindList:
		elem, err := a.resolveType(module, *t.Elem)
		if err != nil {
			return types.ExprType{}, err
		}
		return types.List(elem), nil
	case ast.KindOptional:
		elem, err := a.resolveType(module, *t.Elem)
		if err != nil {
			return types.ExprType{}, err
		}
		return types.Optional(elem), nil
	case ast.KindTuple:
		items := make([]types.ExprType, 0, len(t.Items))
		for _, it := range t.Items {
			rt, err := a.resolveType(module, it)
			if err != nil {
				return types.ExprType{}, err
			}
			items = append(items, rt)
		}
		return types.Tuple(items...), nil
	case ast.KindSum:
		items := make([]types.ExprType, 0, len(t.Items))
		for _, it := range t.Items {
			rt, err := a.resolveType(module, it)
			if err != nil {
				return types.ExprType{}, err
			}
			items = append(items, rt)
		}
		return types.Sum(items...), nil
	}
	return types.ExprType{}, fmt.Errorf("unhandled type expr kind")
}

// scope is a stack of name->type maps, generalizing resolver.go's
// []map[string]bool scope stack to carry the bound type.
type scope struct {
	frames []map[string]types.ExprType
}

func newScope() *scope { return &scope{frames: []map[string]types.ExprType{{}}} }

func (s *scope) push() { s.frames = append(s.frames, map[string]types.ExprType{}) }
func (s *scope) pop()  { s.frames = s.frames[:len(s.frames)-1] }

func (s *scope) declare(name string, t types.ExprType) (shadowed bool) {
	top := s.frames[len(s.frames)-1]
	_, shadowed = s.lookup(name)
	top[name] = t
	return shadowed
}

func (s *scope) lookup(name string) (types.ExprType, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if t, ok := s.frames[i][name]; ok {
			return t, true
		}
	}
	return types.ExprType{}, false
}

func (a *Analyzer) checkFunctionBody(prog *Program, cm *CheckedModule, let *ast.LetStmt) {
	sig, ok := cm.Sigs[let.Name]
	if !ok {
		return
	}
	sc := newScope()
	for _, p := range sig.Params {
		sc.declare(p.Name, p.Type)
	}
	bodyType := a.checkExpr(prog, cm, sc, let.Body)
	if bodyType.Kind == -1 {
		return // a sub-expression already failed; avoid cascading diagnostics
	}
	if sig.Ret.String() != "" && !types.Coerce(bodyType, sig.Ret) {
		a.fail(ErrBodyTypeMismatch, cm.Name, let.Body.Span().Line, let.Name, bodyType.String(), sig.Ret.String())
	}
	used := map[string]bool{}
	collectIdentNames(let.Body, used)
	for _, p := range let.Params {
		if !used[p.Ident] {
			a.warnf(WarnUnusedParameter, "remove it or use it in the function body", cm.Name, let.Span().Line, p.Ident)
		}
	}
}

// collectIdentNames walks e and records every bare identifier name it
// references, so checkFunctionBody can tell which declared parameters are
// never read. It does not resolve names against any scope - a `let`-in
// local named the same as a parameter still counts as a reference to that
// name, which only makes the unused-parameter warning more conservative.
func collectIdentNames(e ast.Expr, out map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Ident:
		out[n.Name] = true
	case *ast.VarRef:
		for _, a := range n.Args {
			collectIdentNames(a, out)
		}
	case *ast.CallExpr:
		for _, a := range n.Args {
			collectIdentNames(a, out)
		}
	case *ast.ListLit:
		for _, el := range n.Elements {
			collectIdentNames(el, out)
		}
	case *ast.RangeLit:
		collectIdentNames(n.Lo, out)
		collectIdentNames(n.Hi, out)
	case *ast.TupleLit:
		for _, el := range n.Elements {
			collectIdentNames(el, out)
		}
	case *ast.ListComprehension:
		collectIdentNames(n.Body, out)
		collectIdentNames(n.Collection, out)
		collectIdentNames(n.Where, out)
	case *ast.GlobalColl:
		// no sub-expressions
	case *ast.FieldAccess:
		collectIdentNames(n.Object, out)
	case *ast.IndexExpr:
		collectIdentNames(n.Object, out)
		collectIdentNames(n.Index, out)
	case *ast.TupleIndex:
		collectIdentNames(n.Object, out)
	case *ast.CastExpr:
		collectIdentNames(n.Inner, out)
	case *ast.CoalesceExpr:
		collectIdentNames(n.Left, out)
		collectIdentNames(n.Right, out)
	case *ast.CardinalityExpr:
		collectIdentNames(n.Inner, out)
	case *ast.ParenExpr:
		collectIdentNames(n.Inner, out)
	case *ast.UnaryExpr:
		collectIdentNames(n.Right, out)
	case *ast.BinaryExpr:
		collectIdentNames(n.Left, out)
		collectIdentNames(n.Right, out)
	case *ast.LogicAndExpr:
		collectIdentNames(n.Left, out)
		collectIdentNames(n.Right, out)
	case *ast.LogicOrExpr:
		collectIdentNames(n.Left, out)
		collectIdentNames(n.Right, out)
	case *ast.IfExpr:
		collectIdentNames(n.Cond, out)
		collectIdentNames(n.Then, out)
		collectIdentNames(n.Else, out)
	case *ast.LetInExpr:
		collectIdentNames(n.Value, out)
		collectIdentNames(n.Body, out)
	case *ast.ForallExpr:
		collectIdentNames(n.Collection, out)
		collectIdentNames(n.Where, out)
		collectIdentNames(n.Body, out)
	case *ast.SumExpr:
		collectIdentNames(n.Collection, out)
		collectIdentNames(n.Where, out)
		collectIdentNames(n.Body, out)
	case *ast.MatchExpr:
		collectIdentNames(n.Scrutinee, out)
		for _, arm := range n.Arms {
			collectIdentNames(arm.Body, out)
		}
	}
}

// invalidType is returned by checkExpr after it has already reported an
// error for the offending sub-expression, so callers can skip
// cascading diagnostics.
var invalidType = types.ExprType{Kind: -1}

func isInvalid(t types.ExprType) bool { return t.Kind == -1 }

// lookupFunc resolves a (possibly qualified) call path through the three
// symbol-resolution tiers of spec.md §4.3: lexical scope is handled by
// the caller (CallExpr with len(path)==1 checked against scope first);
// this resolves the module/public tiers.
func (a *Analyzer) lookupFunc(prog *Program, callerModule string, path []string) (*FuncSig, bool) {
	if len(path) == 2 {
		mod, ok := prog.Modules[path[0]]
		if !ok {
			return nil, false
		}
		sig, ok := mod.Sigs[path[1]]
		if !ok || (!sig.Public && path[0] != callerModule) {
			return nil, false
		}
		return sig, true
	}
	name := path[0]
	if mod, ok := prog.Modules[callerModule]; ok {
		if sig, ok := mod.Sigs[name]; ok {
			return sig, true
		}
	}
	if sig, ok := prog.Public[name]; ok {
		return sig, true
	}
	return nil, false
}

func (a *Analyzer) checkExpr(prog *Program, cm *CheckedModule, sc *scope, e ast.Expr) types.ExprType {
	t := a.checkExprImpl(prog, cm, sc, e)
	cm.Types[e] = t
	return t
}

func (a *Analyzer) checkExprImpl(prog *Program, cm *CheckedModule, sc *scope, e ast.Expr) types.ExprType {
	switch n := e.(type) {
	case *ast.IntLit:
		return types.Int()
	case *ast.BoolLit:
		return types.Bool()
	case *ast.StringLit:
		return types.Str()
	case *ast.NoneLit:
		return types.Optional(types.EmptyList())
	case *ast.Ident:
		if t, ok := sc.lookup(n.Name); ok {
			return t
		}
		if sig, ok := a.lookupFunc(prog, cm.Name, []string{n.Name}); ok {
			a.markCalled(sig)
			if len(sig.Params) != 0 {
				a.fail(ErrArgumentCountMismatch, cm.Name, n.Span().Line, n.Name, len(sig.Params), 0)
				return invalidType
			}
			return sig.Ret
		}
		a.fail(ErrUnknownIdentifier, cm.Name, n.Span().Line, n.Name)
		return invalidType
	case *ast.CallExpr:
		return a.checkCall(prog, cm, sc, n)
	case *ast.VarRef:
		return a.checkVarRef(cm, sc, prog, n)
	case *ast.GlobalColl:
		if _, ok := a.env.TypeSchemas()[n.TypeName]; !ok {
			a.fail(ErrUnknownType, cm.Name, n.Span().Line, n.TypeName)
			return invalidType
		}
		return types.List(types.Object(n.TypeName))
	case *ast.ListLit:
		if len(n.Elements) == 0 {
			return types.EmptyList()
		}
		elem := a.checkExpr(prog, cm, sc, n.Elements[0])
		for _, el := range n.Elements[1:] {
			et := a.checkExpr(prog, cm, sc, el)
			if isInvalid(et) {
				return invalidType
			}
			u, ok := types.Unify(elem, et)
			if !ok {
				a.fail(ErrTypeMismatch, cm.Name, el.Span().Line, elem.String(), et.String(), "list literal element")
				return invalidType
			}
			elem = u
		}
		return types.List(elem)
	case *ast.RangeLit:
		lo := a.checkExpr(prog, cm, sc, n.Lo)
		hi := a.checkExpr(prog, cm, sc, n.Hi)
		if !types.Coerce(lo, types.Int()) || !types.Coerce(hi, types.Int()) {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, "Int", lo.String()+"/"+hi.String(), "range bounds")
			return invalidType
		}
		return types.List(types.Int())
	case *ast.TupleLit:
		items := make([]types.ExprType, len(n.Elements))
		for i, el := range n.Elements {
			items[i] = a.checkExpr(prog, cm, sc, el)
		}
		return types.Tuple(items...)
	case *ast.ListComprehension:
		collT := a.checkExpr(prog, cm, sc, n.Collection)
		elemT := elementType(collT)
		sc.push()
		sc.declare(n.Var, elemT)
		if n.Where != nil {
			wt := a.checkExpr(prog, cm, sc, n.Where)
			if !wt.Equal(types.Bool()) {
				a.fail(ErrTypeMismatch, cm.Name, n.Where.Span().Line, "Bool", wt.String(), "comprehension filter")
			}
		}
		bodyT := a.checkExpr(prog, cm, sc, n.Body)
		sc.pop()
		return types.List(bodyT)
	case *ast.FieldAccess:
		objT := a.checkExpr(prog, cm, sc, n.Object)
		if isInvalid(objT) {
			return invalidType
		}
		if objT.Kind != types.KindObject {
			a.fail(ErrFieldAccessOnNonObject, cm.Name, n.Span().Line, n.Name, objT.String())
			return invalidType
		}
		schema, ok := a.env.TypeSchemas()[objT.Name]
		if !ok {
			a.fail(ErrUnknownType, cm.Name, n.Span().Line, objT.Name)
			return invalidType
		}
		fieldTypeStr, ok := schema[n.Name]
		if !ok {
			a.fail(ErrUnknownField, cm.Name, n.Span().Line, n.Name, objT.Name)
			return invalidType
		}
		return parseSchemaType(fieldTypeStr)
	case *ast.TupleIndex:
		objT := a.checkExpr(prog, cm, sc, n.Object)
		if isInvalid(objT) {
			return invalidType
		}
		if objT.Kind != types.KindTuple {
			a.fail(ErrTupleIndexOnNonTuple, cm.Name, n.Span().Line, n.Index, objT.String())
			return invalidType
		}
		if n.Index < 0 || n.Index >= len(objT.Items) {
			a.fail(ErrTupleIndexOutOfBounds, cm.Name, n.Span().Line, n.Index, len(objT.Items))
			return invalidType
		}
		return objT.Items[n.Index]
	case *ast.IndexExpr:
		objT := a.checkExpr(prog, cm, sc, n.Object)
		idxT := a.checkExpr(prog, cm, sc, n.Index)
		if isInvalid(objT) || isInvalid(idxT) {
			return invalidType
		}
		if !idxT.Equal(types.Int()) {
			a.fail(ErrListIndexNotInt, cm.Name, n.Index.Span().Line, idxT.String())
			return invalidType
		}
		if objT.Kind != types.KindList {
			a.fail(ErrIndexOnNonList, cm.Name, n.Span().Line, objT.String())
			return invalidType
		}
		return *objT.Elem
	case *ast.CastExpr:
		_ = a.checkExpr(prog, cm, sc, n.Inner)
		t, err := a.resolveType(cm.Name, n.Type)
		if err != nil {
			return invalidType
		}
		return t
	case *ast.CoalesceExpr:
		lt := a.checkExpr(prog, cm, sc, n.Left)
		rt := a.checkExpr(prog, cm, sc, n.Right)
		if isInvalid(lt) || isInvalid(rt) {
			return invalidType
		}
		if lt.Kind != types.KindOptional {
			a.fail(ErrNullCoalesceOnNonMaybe, cm.Name, n.Span().Line, lt.String())
			return invalidType
		}
		u, ok := types.Unify(*lt.Elem, rt)
		if !ok {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, lt.Elem.String(), rt.String(), "'??' branches")
			return invalidType
		}
		return u
	case *ast.CardinalityExpr:
		it := a.checkExpr(prog, cm, sc, n.Inner)
		if isInvalid(it) {
			return invalidType
		}
		if it.Kind != types.KindList && it.Kind != types.KindEmptyList {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, "a list", it.String(), "cardinality operator")
			return invalidType
		}
		return types.Int()
	case *ast.UnaryExpr:
		rt := a.checkExpr(prog, cm, sc, n.Right)
		if isInvalid(rt) {
			return invalidType
		}
		return rt
	case *ast.BinaryExpr:
		return a.checkBinary(cm, prog, sc, n)
	case *ast.LogicAndExpr:
		return a.checkLogic(cm, prog, sc, n.Left, n.Right, n.Span())
	case *ast.LogicOrExpr:
		return a.checkLogic(cm, prog, sc, n.Left, n.Right, n.Span())
	case *ast.IfExpr:
		ct := a.checkExpr(prog, cm, sc, n.Cond)
		if !isInvalid(ct) && !ct.Equal(types.Bool()) {
			a.fail(ErrTypeMismatch, cm.Name, n.Cond.Span().Line, "Bool", ct.String(), "if condition")
		}
		tt := a.checkExpr(prog, cm, sc, n.Then)
		et := a.checkExpr(prog, cm, sc, n.Else)
		if isInvalid(tt) || isInvalid(et) {
			return invalidType
		}
		u, ok := types.Unify(tt, et)
		if !ok {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, tt.String(), et.String(), "if/else branches")
			return invalidType
		}
		return u
	case *ast.LetInExpr:
		vt := a.checkExpr(prog, cm, sc, n.Value)
		sc.push()
		if sc.declare(n.Name, vt) {
			a.warnf(WarnIdentifierShadowed, "", cm.Name, n.Span().Line, n.Name)
		}
		bt := a.checkExpr(prog, cm, sc, n.Body)
		sc.pop()
		return bt
	case *ast.ForallExpr:
		return a.checkForallSum(prog, cm, sc, n.Var, n.Collection, n.Where, n.Body, true)
	case *ast.SumExpr:
		return a.checkForallSum(prog, cm, sc, n.Var, n.Collection, n.Where, n.Body, false)
	case *ast.MatchExpr:
		return a.checkMatch(prog, cm, sc, n)
	case *ast.ParenExpr:
		return a.checkExpr(prog, cm, sc, n.Inner)
	}
	return invalidType
}

func elementType(t types.ExprType) types.ExprType {
	if t.Kind == types.KindList && t.Elem != nil {
		return *t.Elem
	}
	return invalidType
}

func (a *Analyzer) checkCall(prog *Program, cm *CheckedModule, sc *scope, n *ast.CallExpr) types.ExprType {
	var sig *FuncSig
	var ok bool
	if len(n.Path) == 1 {
		if _, isLocal := sc.lookup(n.Path[0]); isLocal {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, "a function", "a local variable", "call target "+n.Path[0])
			return invalidType
		}
	}
	sig, ok = a.lookupFunc(prog, cm.Name, n.Path)
	if !ok {
		a.fail(ErrUnknownFunction, cm.Name, n.Span().Line, strings.Join(n.Path, "::"))
		return invalidType
	}
	a.markCalled(sig)
	if len(sig.Params) != len(n.Args) {
		a.fail(ErrArgumentCountMismatch, cm.Name, n.Span().Line, strings.Join(n.Path, "::"), len(sig.Params), len(n.Args))
		return invalidType
	}
	anyInvalid := false
	for i, argExpr := range n.Args {
		at := a.checkExpr(prog, cm, sc, argExpr)
		if isInvalid(at) {
			anyInvalid = true
			continue
		}
		if !types.Coerce(at, sig.Params[i].Type) {
			a.fail(ErrTypeMismatch, cm.Name, argExpr.Span().Line, sig.Params[i].Type.String(), at.String(), fmt.Sprintf("argument %d to %s", i+1, sig.Name))
			anyInvalid = true
		}
	}
	if anyInvalid {
		return invalidType
	}
	return sig.Ret
}

// findReifyBinding locates a `reify ... as $Name` declaration anywhere in
// the program and resolves the signature of the function it binds, since
// reified variables occupy the same $Ident(args) namespace as host
// variables but carry no host.FieldSchema of their own (spec.md §4.3's
// "reify bindings name an ILP variable, not a function").
func (a *Analyzer) findReifyBinding(prog *Program, name string) (*ReifyBinding, *FuncSig, bool) {
	for _, cm := range prog.Modules {
		for i := range cm.Reifies {
			rb := &cm.Reifies[i]
			if rb.VarName != name {
				continue
			}
			sig, ok := a.lookupFunc(prog, rb.Module, rb.Path)
			if !ok {
				continue
			}
			a.markCalled(sig)
			return rb, sig, true
		}
	}
	return nil, nil, false
}

func (a *Analyzer) checkVarRef(cm *CheckedModule, sc *scope, prog *Program, n *ast.VarRef) types.ExprType {
	schema, ok := a.env.VariableSchema(n.Name)
	if !ok {
		if _, sig, found := a.findReifyBinding(prog, n.Name); found {
			if len(sig.Params) != len(n.Args) {
				a.fail(ErrVarArityMismatch, cm.Name, n.Span().Line, n.Name, len(sig.Params), len(n.Args))
				return invalidType
			}
			anyInvalid := false
			for i, argExpr := range n.Args {
				at := a.checkExpr(prog, cm, sc, argExpr)
				if isInvalid(at) {
					anyInvalid = true
					continue
				}
				if !types.Coerce(at, sig.Params[i].Type) {
					a.fail(ErrVarArgTypeMismatch, cm.Name, argExpr.Span().Line, i+1, n.Name, at.String(), sig.Params[i].Type.String())
					anyInvalid = true
				}
			}
			if anyInvalid {
				return invalidType
			}
			return types.LinExpr()
		}
		a.fail(ErrUnknownVariable, cm.Name, n.Span().Line, n.Name)
		return invalidType
	}
	if len(schema) != len(n.Args) {
		a.fail(ErrVarArityMismatch, cm.Name, n.Span().Line, n.Name, len(schema), len(n.Args))
		return invalidType
	}
	anyInvalid := false
	for i, argExpr := range n.Args {
		at := a.checkExpr(prog, cm, sc, argExpr)
		if isInvalid(at) {
			anyInvalid = true
			continue
		}
		expected := parseSchemaType(schema[i])
		if !types.Coerce(at, expected) {
			a.fail(ErrVarArgTypeMismatch, cm.Name, argExpr.Span().Line, i+1, n.Name, at.String(), expected.String())
			anyInvalid = true
		}
	}
	if anyInvalid {
		return invalidType
	}
	return types.LinExpr()
}

func (a *Analyzer) checkBinary(cm *CheckedModule, prog *Program, sc *scope, n *ast.BinaryExpr) types.ExprType {
	lt := a.checkExpr(prog, cm, sc, n.Left)
	rt := a.checkExpr(prog, cm, sc, n.Right)
	if isInvalid(lt) || isInvalid(rt) {
		return invalidType
	}
	switch n.Op {
	case ast.OpAdd:
		if lt.Equal(types.Str()) && rt.Equal(types.Str()) {
			return types.Str()
		}
		if lt.Kind == types.KindList || rt.Kind == types.KindList || lt.Kind == types.KindEmptyList || rt.Kind == types.KindEmptyList {
			u, ok := types.Unify(elementType(lt), elementType(rt))
			if !ok {
				a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, lt.String(), rt.String(), "list concatenation")
				return invalidType
			}
			return types.List(u)
		}
		return a.arithmeticResult(cm, n, lt, rt)
	case ast.OpSub:
		if lt.Kind == types.KindList {
			return lt
		}
		return a.arithmeticResult(cm, n, lt, rt)
	case ast.OpMul, ast.OpFloorDiv, ast.OpMod:
		return a.arithmeticResult(cm, n, lt, rt)
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		return types.Bool()
	case ast.OpConstraintEq, ast.OpConstraintLte, ast.OpConstraintGte:
		if !types.Coerce(lt, types.LinExpr()) || !types.Coerce(rt, types.LinExpr()) {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, "LinExpr", lt.String()+"/"+rt.String(), "constraint relation")
			return invalidType
		}
		return types.Constraint()
	case ast.OpIn, ast.OpNotIn:
		return types.Bool()
	case ast.OpUnion, ast.OpInter, ast.OpDiff:
		if lt.Kind != types.KindList && lt.Kind != types.KindEmptyList {
			a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, "a list", lt.String(), "set operator")
			return invalidType
		}
		return lt
	}
	return invalidType
}

func (a *Analyzer) arithmeticResult(cm *CheckedModule, n *ast.BinaryExpr, lt, rt types.ExprType) types.ExprType {
	if lt.Equal(types.Int()) && rt.Equal(types.Int()) {
		return types.Int()
	}
	if types.Coerce(lt, types.LinExpr()) && types.Coerce(rt, types.LinExpr()) {
		return types.LinExpr()
	}
	a.fail(ErrTypeMismatch, cm.Name, n.Span().Line, "Int or LinExpr", lt.String()+"/"+rt.String(), "arithmetic")
	return invalidType
}

func (a *Analyzer) checkLogic(cm *CheckedModule, prog *Program, sc *scope, l, r ast.Expr, span ast.Span) types.ExprType {
	lt := a.checkExpr(prog, cm, sc, l)
	rt := a.checkExpr(prog, cm, sc, r)
	if isInvalid(lt) || isInvalid(rt) {
		return invalidType
	}
	if lt.Equal(types.Bool()) && rt.Equal(types.Bool()) {
		return types.Bool()
	}
	if lt.Equal(types.Constraint()) && rt.Equal(types.Constraint()) {
		return types.Constraint()
	}
	a.fail(ErrTypeMismatch, cm.Name, span.Line, "Bool or Constraint (matching)", lt.String()+"/"+rt.String(), "logical operator")
	return invalidType
}

func (a *Analyzer) checkForallSum(prog *Program, cm *CheckedModule, sc *scope, varName string, coll, where, body ast.Expr, isForall bool) types.ExprType {
	collT := a.checkExpr(prog, cm, sc, coll)
	elemT := elementType(collT)
	sc.push()
	sc.declare(varName, elemT)
	if where != nil {
		wt := a.checkExpr(prog, cm, sc, where)
		if !isInvalid(wt) && !wt.Equal(types.Bool()) {
			a.fail(ErrTypeMismatch, cm.Name, where.Span().Line, "Bool", wt.String(), "where clause")
		}
	}
	bodyT := a.checkExpr(prog, cm, sc, body)
	sc.pop()
	if isInvalid(bodyT) {
		return invalidType
	}
	if isForall {
		if !bodyT.Equal(types.Bool()) && !bodyT.Equal(types.Constraint()) {
			a.fail(ErrTypeMismatch, cm.Name, body.Span().Line, "Bool or Constraint", bodyT.String(), "forall body")
			return invalidType
		}
		return types.Constraint()
	}
	if bodyT.Equal(types.Str()) {
		return types.Str()
	}
	if !types.Coerce(bodyT, types.LinExpr()) {
		a.fail(ErrTypeMismatch, cm.Name, body.Span().Line, "Int, LinExpr, or String", bodyT.String(), "sum body")
		return invalidType
	}
	return types.LinExpr()
}

func (a *Analyzer) checkMatch(prog *Program, cm *CheckedModule, sc *scope, n *ast.MatchExpr) types.ExprType {
	scrutT := a.checkExpr(prog, cm, sc, n.Scrutinee)
	if isInvalid(scrutT) {
		return invalidType
	}
	covered := make([]types.ExprType, 0, len(n.Arms))
	var result types.ExprType
	haveResult := false
	for _, arm := range n.Arms {
		patT, err := a.resolveType(cm.Name, arm.Pattern)
		if err != nil {
			continue
		}
		if !types.Subtype(patT, scrutT) {
			a.fail(ErrOverMatching, cm.Name, arm.Span.Line, patT.String(), scrutT.String())
			continue
		}
		covered = append(covered, patT)
		sc.push()
		sc.declare(arm.Var, patT)
		bt := a.checkExpr(prog, cm, sc, arm.Body)
		sc.pop()
		if isInvalid(bt) {
			continue
		}
		if !haveResult {
			result, haveResult = bt, true
			continue
		}
		u, ok := types.Unify(result, bt)
		if !ok {
			a.fail(ErrTypeMismatch, cm.Name, arm.Body.Span().Line, result.String(), bt.String(), "match arms")
			continue
		}
		result = u
	}
	union := types.Sum(covered...)
	if !union.Equal(scrutT) {
		a.fail(ErrNonExhaustiveMatching, cm.Name, n.Span().Line, scrutT.String())
	}
	if !haveResult {
		return invalidType
	}
	return result
}

// parseSchemaType resolves a host.FieldSchema's plain-string type (e.g.
// "Int", "[Student]") back into an ExprType. The host contract describes
// field/parameter types as strings so internal/host does not need to
// import internal/types (see host.FieldSchema's doc comment); this parser
// covers exactly the primitive/list/optional/object shapes the contract
// can express.
func parseSchemaType(s string) types.ExprType {
	s = strings.TrimSpace(s)
	switch s {
	case "Int":
		return types.Int()
	case "Bool":
		return types.Bool()
	case "String":
		return types.Str()
	case "LinExpr":
		return types.LinExpr()
	case "Constraint":
		return types.Constraint()
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return types.List(parseSchemaType(s[1 : len(s)-1]))
	}
	if strings.HasSuffix(s, "?") {
		return types.Optional(parseSchemaType(s[:len(s)-1]))
	}
	return types.Object(s)
}

// CheckHostSchema validates the host's own declarations before any module
// is analyzed (SPEC_FULL.md supplemented feature: "GlobalEnvError-style
// host-schema validation"): every field type named in env.TypeSchemas()
// and every parameter type named in env.VariableSchema(...) must itself
// resolve to a known type - a primitive, a list/optional of one, or the
// name of another declared object type. Analyze assumes this has already
// been called and passed; it is a separate entry point since a failing
// host schema is a configuration error, not a DSL program error, and has
// no module/line to attach to a SemError.
func CheckHostSchema(env host.Env) []error {
	schemas := env.TypeSchemas()
	known := make(map[string]bool, len(schemas))
	for name := range schemas {
		known[name] = true
	}
	var errs []error
	for typeName, fields := range schemas {
		for field, typeStr := range fields {
			if !isKnownSchemaType(typeStr, known) {
				errs = append(errs, ErrUnknownTypeInField.New(field, typeName, typeStr))
			}
		}
	}
	for _, varName := range env.VariableNames() {
		params, _ := env.VariableSchema(varName)
		for i, typeStr := range params {
			if !isKnownSchemaType(typeStr, known) {
				errs = append(errs, ErrUnknownTypeForVariableArg.New(i+1, varName, typeStr))
			}
		}
	}
	return errs
}

// isKnownSchemaType reports whether a host.FieldSchema type string resolves
// to a primitive or a declared object type, stripping any [list]/optional(?)
// wrapping first.
func isKnownSchemaType(s string, known map[string]bool) bool {
	s = strings.TrimSpace(s)
	if primitiveTypeNames[s] {
		return true
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return isKnownSchemaType(s[1:len(s)-1], known)
	}
	if strings.HasSuffix(s, "?") {
		return isKnownSchemaType(s[:len(s)-1], known)
	}
	return known[s]
}

func (a *Analyzer) namingAndUsageWarnings(module string, file *ast.File, cm *CheckedModule) {
	for _, stmt := range file.Stmts {
		let, ok := stmt.(*ast.LetStmt)
		if !ok {
			continue
		}
		if !isSnakeCase(let.Name) {
			a.warnf(WarnFunctionNamingConvention, toSnakeCase(let.Name), module, let.Span().Line, let.Name)
		}
		for _, p := range let.Params {
			if !isSnakeCase(p.Ident) {
				a.warnf(WarnParameterNamingConvention, toSnakeCase(p.Ident), module, let.Span().Line, p.Ident)
			}
		}
	}
	for _, stmt := range file.Stmts {
		reify, ok := stmt.(*ast.ReifyStmt)
		if !ok {
			continue
		}
		if !isUpperCamelCase(reify.VarName) {
			a.warnf(WarnVariableNamingConvention, toUpperCamelCase(reify.VarName), module, reify.Span().Line, reify.VarName)
		}
		if len(reify.Path) == 2 {
			a.markCalledByName(reify.Path[0], reify.Path[1])
		} else {
			a.markCalledByName(module, reify.Path[0])
		}
	}
	for _, stmt := range file.Stmts {
		let, ok := stmt.(*ast.LetStmt)
		if !ok || let.Public {
			continue
		}
		if !a.calledFuncs[module][let.Name] {
			a.warnf(WarnUnusedFunction, "remove it or mark it pub if another module should call it", module, let.Span().Line, let.Name)
		}
	}
}

// markCalledByName records a call reached via a raw (module, name) pair
// rather than a resolved *FuncSig, for call sites (like reify targets) that
// only need to mark usage and don't otherwise need the signature.
func (a *Analyzer) markCalledByName(module, name string) {
	if a.calledFuncs[module] == nil {
		a.calledFuncs[module] = make(map[string]bool)
	}
	a.calledFuncs[module][name] = true
}

func isSnakeCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func isUpperCamelCase(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsUpper([]rune(s)[0]) && !strings.Contains(s, "_")
}

func toSnakeCase(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func toUpperCamelCase(s string) string {
	parts := strings.Split(s, "_")
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		sb.WriteRune(unicode.ToUpper(r[0]))
		sb.WriteString(string(r[1:]))
	}
	return sb.String()
}
