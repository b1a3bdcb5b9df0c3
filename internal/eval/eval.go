package eval

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/linexpr"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/token"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

// DefaultRecursionDepth bounds ordinary function-call recursion
// (spec.md's "configurable recursion depth limit").
const DefaultRecursionDepth = 256

// DefaultOperationLimit bounds the total number of expression
// evaluations performed in a single EvalFunction call (spec.md §5's
// "cancellation & timeouts" operation-count bound).
const DefaultOperationLimit = 2_000_000

// Obligation is a recorded `$V(args)` reference encountered while
// evaluating a constraint or reified-variable body. Reified==true means
// `internal/builder` must resolve it by evaluating the bound function and
// lowering the result via Big-M linearization (spec.md §4.4's "the
// evaluator records the obligation; lowering happens in the problem
// builder"); Reified==false means it names a host-declared base variable,
// which the builder still needs to record (name, args, VarID) to compute
// Big-M bounds from host.VariableInstance when the variable appears inside
// some other reification's constraint.
type Obligation struct {
	VarName  string
	Args     []value.Value
	VarID    value.VarID
	Span     ast.Span
	Reified  bool
}

// Evaluator walks checked function bodies against a host.Env. One
// Evaluator may be reused across many EvalFunction calls; it holds no
// mutable state between them beyond configuration.
type Evaluator struct {
	log            *logrus.Entry
	env            host.Env
	prog           *sema.Program
	recursionLimit int
	opLimit        int
}

// New creates an Evaluator. prog supplies function bodies and reify
// bindings resolved by internal/sema.
func New(env host.Env, prog *sema.Program) *Evaluator {
	return &Evaluator{
		log:            logrus.WithField("component", "eval"),
		env:            env,
		prog:           prog,
		recursionLimit: DefaultRecursionDepth,
		opLimit:        DefaultOperationLimit,
	}
}

// WithLimits overrides the recursion-depth and operation-count bounds.
func (e *Evaluator) WithLimits(recursionLimit, opLimit int) *Evaluator {
	e.recursionLimit = recursionLimit
	e.opLimit = opLimit
	return e
}

// envScope is a lexical binding chain, generalizing the teacher
// interpreter's codecrafters/cmd/environment.go (parent pointer + name
// map) from mutable variable storage to the DSL's immutable let-bindings.
type envScope struct {
	parent *envScope
	name   string
	val    value.Value
}

func (s *envScope) lookup(name string) (value.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.val, true
		}
	}
	return value.Value{}, false
}

func (s *envScope) push(name string, v value.Value) *envScope {
	return &envScope{parent: s, name: name, val: v}
}

// frame threads per-call mutable evaluation state (call depth, operation
// budget, accumulated reification obligations) through the recursive walk
// without polluting envScope, which stays a pure persistent binding list.
type frame struct {
	depth       int
	ops         *int
	obligations *[]Obligation
}

// EvalFunction evaluates the named function's body with args bound to
// its parameters, returning the resulting value and any reification
// obligations encountered.
func (e *Evaluator) EvalFunction(module, name string, args []value.Value) (value.Value, []Obligation, error) {
	sig, body, err := e.lookupBody(module, name)
	if err != nil {
		return value.Value{}, nil, err
	}
	sc := (*envScope)(nil)
	for i, p := range sig.Params {
		sc = sc.push(p.Name, args[i])
	}
	ops := 0
	var obligations []Obligation
	fr := &frame{depth: 0, ops: &ops, obligations: &obligations}
	v, err := e.evalExpr(body, sc, fr, module)
	if err != nil {
		return value.Value{}, nil, err
	}
	return v, obligations, nil
}

func (e *Evaluator) lookupBody(module, name string) (*sema.FuncSig, ast.Expr, error) {
	cm, ok := e.prog.Modules[module]
	if !ok {
		return nil, nil, ErrUnknownBaseVariable.New(module, 0, module)
	}
	sig, ok := cm.Sigs[name]
	if !ok {
		sig, ok = e.prog.Public[name]
		if !ok {
			return nil, nil, ErrUnknownBaseVariable.New(module, 0, name)
		}
	}
	return sig, sig.Stmt.Body, nil
}

func callKey(module, name string, args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.HashKey(a)
	}
	return module + "::" + name + "(" + strings.Join(parts, ",") + ")"
}

func (e *Evaluator) tick(fr *frame, sp ast.Span) error {
	*fr.ops++
	if *fr.ops > e.opLimit {
		return ErrOperationCountExceeded.New(e.opLimit)
	}
	return nil
}

func (e *Evaluator) evalExpr(expr ast.Expr, sc *envScope, fr *frame, module string) (value.Value, error) {
	if err := e.tick(fr, expr.Span()); err != nil {
		return value.Value{}, err
	}
	switch n := expr.(type) {
	case *ast.IntLit:
		return value.Int(n.Value), nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.StringLit:
		return value.Str(n.Value), nil
	case *ast.NoneLit:
		return value.OptionalVal(nil), nil
	case *ast.Ident:
		if v, ok := sc.lookup(n.Name); ok {
			return v, nil
		}
		return e.callFunction(module, []string{n.Name}, nil, n.Span(), sc, fr)
	case *ast.CallExpr:
		args := make([]value.Value, len(n.Args))
		for i, a := range n.Args {
			v, err := e.evalExpr(a, sc, fr, module)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = v
		}
		return e.callFunction(module, n.Path, args, n.Span(), sc, fr)
	case *ast.VarRef:
		return e.evalVarRef(n, sc, fr, module)
	case *ast.GlobalColl:
		ids, err := e.env.ObjectsWithType(n.TypeName)
		if err != nil {
			return value.Value{}, ErrInvalidObjectID.New(module, n.Span().Line, n.TypeName, err.Error())
		}
		items := make([]value.Value, len(ids))
		for i, id := range ids {
			items[i] = value.ObjectRef(n.TypeName, id)
		}
		return value.ListVal(items), nil
	case *ast.ListLit:
		items := make([]value.Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := e.evalExpr(el, sc, fr, module)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.ListVal(items), nil
	case *ast.RangeLit:
		lo, err := e.evalExpr(n.Lo, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		hi, err := e.evalExpr(n.Hi, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		loI, _ := value.AsInt(lo)
		hiI, _ := value.AsInt(hi)
		var items []value.Value
		for i := loI; i < hiI; i++ {
			items = append(items, value.Int(i))
		}
		return value.ListVal(items), nil
	case *ast.TupleLit:
		items := make([]value.Value, len(n.Elements))
		for i, el := range n.Elements {
			v, err := e.evalExpr(el, sc, fr, module)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.TupleVal(items), nil
	case *ast.ListComprehension:
		collV, err := e.evalExpr(n.Collection, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		items, _ := value.AsList(collV)
		var out []value.Value
		for _, item := range items {
			inner := sc.push(n.Var, item)
			if n.Where != nil {
				wv, err := e.evalExpr(n.Where, inner, fr, module)
				if err != nil {
					return value.Value{}, err
				}
				if !value.IsTruthy(wv) {
					continue
				}
			}
			bv, err := e.evalExpr(n.Body, inner, fr, module)
			if err != nil {
				return value.Value{}, err
			}
			out = append(out, bv)
		}
		return value.ListVal(out), nil
	case *ast.FieldAccess:
		objV, err := e.evalExpr(n.Object, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		fv, err := e.env.FieldAccess(objV.ObjID, n.Name)
		if err != nil {
			return value.Value{}, ErrInvalidObjectID.New(module, n.Span().Line, objV.ObjID, err.Error())
		}
		return fv, nil
	case *ast.TupleIndex:
		objV, err := e.evalExpr(n.Object, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		return objV.Tuple[n.Index], nil
	case *ast.IndexExpr:
		objV, err := e.evalExpr(n.Object, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		idxV, err := e.evalExpr(n.Index, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		idx, _ := value.AsInt(idxV)
		items, _ := value.AsList(objV)
		if idx < 0 || int(idx) >= len(items) {
			return value.Value{}, ErrInvalidObjectID.New(module, n.Span().Line, "<list index>", "index out of range")
		}
		return items[idx], nil
	case *ast.CastExpr:
		return e.evalExpr(n.Inner, sc, fr, module)
	case *ast.CoalesceExpr:
		lv, err := e.evalExpr(n.Left, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		if lv.Kind == value.KindOptional {
			if lv.Opt != nil {
				return *lv.Opt, nil
			}
			return e.evalExpr(n.Right, sc, fr, module)
		}
		if lv.Kind == value.KindNone {
			return e.evalExpr(n.Right, sc, fr, module)
		}
		return lv, nil
	case *ast.CardinalityExpr:
		iv, err := e.evalExpr(n.Inner, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		items, _ := value.AsList(iv)
		return value.Int(int64(len(items))), nil
	case *ast.ParenExpr:
		return e.evalExpr(n.Inner, sc, fr, module)
	case *ast.UnaryExpr:
		rv, err := e.evalExpr(n.Right, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		return e.evalUnary(n, rv, module)
	case *ast.BinaryExpr:
		lv, err := e.evalExpr(n.Left, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		rv, err := e.evalExpr(n.Right, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		return e.evalBinary(n, lv, rv, module)
	case *ast.LogicAndExpr:
		lv, err := e.evalExpr(n.Left, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		if lv.Kind == value.KindBool {
			if !lv.Bool {
				return lv, nil
			}
			return e.evalExpr(n.Right, sc, fr, module)
		}
		// Constraint-valued `and` conjoins rather than short-circuits.
		rv, err := e.evalExpr(n.Right, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		lc, _ := value.AsConstraints(lv)
		rc, _ := value.AsConstraints(rv)
		return value.ConstraintVal(append(append([]linexpr.Constraint[value.VarID]{}, lc...), rc...)...), nil
	case *ast.LogicOrExpr:
		lv, err := e.evalExpr(n.Left, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		if lv.Kind == value.KindBool && lv.Bool {
			return lv, nil
		}
		return e.evalExpr(n.Right, sc, fr, module)
	case *ast.IfExpr:
		cv, err := e.evalExpr(n.Cond, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		if value.IsTruthy(cv) {
			return e.evalExpr(n.Then, sc, fr, module)
		}
		return e.evalExpr(n.Else, sc, fr, module)
	case *ast.LetInExpr:
		vv, err := e.evalExpr(n.Value, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		return e.evalExpr(n.Body, sc.push(n.Name, vv), fr, module)
	case *ast.ForallExpr:
		return e.evalForall(n, sc, fr, module)
	case *ast.SumExpr:
		return e.evalSum(n, sc, fr, module)
	case *ast.MatchExpr:
		return e.evalMatch(n, sc, fr, module)
	}
	return value.Value{}, ErrTypeAssertion.New(module, expr.Span().Line, "a known expression kind", "an unrecognized AST node")
}

func (e *Evaluator) callFunction(module string, path []string, args []value.Value, sp ast.Span, sc *envScope, fr *frame) (value.Value, error) {
	lookupModule, name := module, path[0]
	if len(path) == 2 {
		lookupModule, name = path[0], path[1]
	}
	sig, body, err := e.lookupBody(lookupModule, name)
	if err != nil {
		return value.Value{}, err
	}
	key := callKey(sig.Module, name, args)
	if fr.depth+1 > e.recursionLimit {
		return value.Value{}, ErrRecursionDepthExceeded.New(module, sp.Line, e.recursionLimit, key)
	}
	callSc := (*envScope)(nil)
	for i, p := range sig.Params {
		callSc = callSc.push(p.Name, args[i])
	}
	childFrame := &frame{depth: fr.depth + 1, ops: fr.ops, obligations: fr.obligations}
	return e.evalExpr(body, callSc, childFrame, sig.Module)
}

func (e *Evaluator) evalVarRef(n *ast.VarRef, sc *envScope, fr *frame, module string) (value.Value, error) {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.evalExpr(a, sc, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		args[i] = v
	}
	vid := value.VarID{Name: n.Name, Args: argsKey(args)}

	if schema, ok := e.env.VariableSchema(n.Name); ok {
		if len(schema) != len(args) {
			return value.Value{}, ErrVariableArgumentCount.New(module, n.Span().Line, n.Name, len(schema), len(args))
		}
		inst, err := e.env.VariableInstance(n.Name, args)
		if err != nil {
			return value.Value{}, ErrVariableInstanceRejected.New(module, n.Span().Line, n.Name, err.Error())
		}
		if inst.FixedTo != nil {
			return value.LinExprVal(linexpr.Constant[value.VarID](*inst.FixedTo)), nil
		}
		*fr.obligations = append(*fr.obligations, Obligation{VarName: n.Name, Args: args, VarID: vid, Span: n.Span(), Reified: false})
		return value.LinExprVal(linexpr.Var(vid)), nil
	}

	for _, cm := range e.prog.Modules {
		for _, rb := range cm.Reifies {
			if rb.VarName == n.Name {
				*fr.obligations = append(*fr.obligations, Obligation{VarName: n.Name, Args: args, VarID: vid, Span: n.Span(), Reified: true})
				return value.LinExprVal(linexpr.Var(vid)), nil
			}
		}
	}

	return value.Value{}, ErrUnknownVariable.New(module, n.Span().Line, n.Name)
}

func argsKey(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.HashKey(a)
	}
	return strings.Join(parts, ",")
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr, rv value.Value, module string) (value.Value, error) {
	if n.Op == token.NOT {
		return value.Bool(!value.IsTruthy(rv)), nil
	}
	// MINUS
	if rv.Kind == value.KindInt {
		if rv.Int == minInt64 {
			return value.Value{}, ErrIntegerOverflow.New(module, n.Span().Line, "unary negation")
		}
		return value.Int(-rv.Int), nil
	}
	lx, _ := value.AsLinExpr(rv)
	return value.LinExprVal(lx.Neg()), nil
}

const minInt64 = -1 << 63

func checkedAdd(a, b int64) (int64, bool) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, false
	}
	return r, true
}

func checkedSub(a, b int64) (int64, bool) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, false
	}
	return r, true
}

func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func (e *Evaluator) evalBinary(n *ast.BinaryExpr, lv, rv value.Value, module string) (value.Value, error) {
	switch n.Op {
	case ast.OpAdd:
		if lv.Kind == value.KindString {
			ls, _ := value.AsString(lv)
			rs, _ := value.AsString(rv)
			return value.Str(ls + rs), nil
		}
		if lv.Kind == value.KindList || rv.Kind == value.KindList {
			la, _ := value.AsList(lv)
			ra, _ := value.AsList(rv)
			return value.ListVal(append(append([]value.Value{}, la...), ra...)), nil
		}
		if lv.Kind == value.KindInt && rv.Kind == value.KindInt {
			r, ok := checkedAdd(lv.Int, rv.Int)
			if !ok {
				return value.Value{}, ErrIntegerOverflow.New(module, n.Span().Line, "+")
			}
			return value.Int(r), nil
		}
		l, _ := value.AsLinExpr(lv)
		r, _ := value.AsLinExpr(rv)
		return value.LinExprVal(l.Add(r)), nil
	case ast.OpSub:
		if lv.Kind == value.KindList {
			la, _ := value.AsList(lv)
			ra, _ := value.AsList(rv)
			return value.ListVal(setDiff(la, ra)), nil
		}
		if lv.Kind == value.KindInt && rv.Kind == value.KindInt {
			r, ok := checkedSub(lv.Int, rv.Int)
			if !ok {
				return value.Value{}, ErrIntegerOverflow.New(module, n.Span().Line, "-")
			}
			return value.Int(r), nil
		}
		l, _ := value.AsLinExpr(lv)
		r, _ := value.AsLinExpr(rv)
		return value.LinExprVal(l.Sub(r)), nil
	case ast.OpMul:
		if lv.Kind == value.KindInt && rv.Kind == value.KindInt {
			r, ok := checkedMul(lv.Int, rv.Int)
			if !ok {
				return value.Value{}, ErrIntegerOverflow.New(module, n.Span().Line, "*")
			}
			return value.Int(r), nil
		}
		if lv.Kind == value.KindInt {
			r, _ := value.AsLinExpr(rv)
			return value.LinExprVal(r.Scale(float64(lv.Int))), nil
		}
		l, _ := value.AsLinExpr(lv)
		return value.LinExprVal(l.Scale(float64(rv.Int))), nil
	case ast.OpFloorDiv:
		if rv.Int == 0 {
			return value.Value{}, ErrDivisionByZero.New(module, n.Span().Line)
		}
		if lv.Int == minInt64 && rv.Int == -1 {
			return value.Value{}, ErrIntegerOverflow.New(module, n.Span().Line, "//")
		}
		q := lv.Int / rv.Int
		if (lv.Int%rv.Int != 0) && ((lv.Int < 0) != (rv.Int < 0)) {
			q--
		}
		return value.Int(q), nil
	case ast.OpMod:
		if rv.Int == 0 {
			return value.Value{}, ErrDivisionByZero.New(module, n.Span().Line)
		}
		m := lv.Int % rv.Int
		if m != 0 && ((m < 0) != (rv.Int < 0)) {
			m += rv.Int
		}
		return value.Int(m), nil
	case ast.OpEq:
		return value.Bool(value.Equal(lv, rv)), nil
	case ast.OpNeq:
		return value.Bool(!value.Equal(lv, rv)), nil
	case ast.OpLt:
		return value.Bool(lv.Int < rv.Int), nil
	case ast.OpLte:
		return value.Bool(lv.Int <= rv.Int), nil
	case ast.OpGt:
		return value.Bool(lv.Int > rv.Int), nil
	case ast.OpGte:
		return value.Bool(lv.Int >= rv.Int), nil
	case ast.OpConstraintEq, ast.OpConstraintLte, ast.OpConstraintGte:
		l, _ := value.AsLinExpr(lv)
		r, _ := value.AsLinExpr(rv)
		switch n.Op {
		case ast.OpConstraintEq:
			return value.ConstraintVal(linexpr.EqC(l, r)), nil
		case ast.OpConstraintLte:
			return value.ConstraintVal(linexpr.Leq(l, r)), nil
		default:
			return value.ConstraintVal(linexpr.Geq(l, r)), nil
		}
	case ast.OpIn, ast.OpNotIn:
		items, _ := value.AsList(rv)
		found := false
		for _, it := range items {
			if value.Equal(it, lv) {
				found = true
				break
			}
		}
		if n.Op == ast.OpNotIn {
			found = !found
		}
		return value.Bool(found), nil
	case ast.OpUnion:
		la, _ := value.AsList(lv)
		ra, _ := value.AsList(rv)
		return value.ListVal(setUnion(la, ra)), nil
	case ast.OpInter:
		la, _ := value.AsList(lv)
		ra, _ := value.AsList(rv)
		return value.ListVal(setInter(la, ra)), nil
	case ast.OpDiff:
		la, _ := value.AsList(lv)
		ra, _ := value.AsList(rv)
		return value.ListVal(setDiff(la, ra)), nil
	}
	return value.Value{}, ErrTypeAssertion.New(module, n.Span().Line, "a known binary operator", n.Op.String())
}

// setUnion/setInter/setDiff implement the set-level list operators
// (spec.md §4.4) with a stable, input-order-preserving de-duplication via
// value.HashKey, matching the "first occurrence wins, order preserved"
// guarantee spec.md requires of set operators over object collections.
func setUnion(a, b []value.Value) []value.Value {
	seen := map[string]bool{}
	var out []value.Value
	for _, v := range append(append([]value.Value{}, a...), b...) {
		k := value.HashKey(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func setInter(a, b []value.Value) []value.Value {
	inB := map[string]bool{}
	for _, v := range b {
		inB[value.HashKey(v)] = true
	}
	seen := map[string]bool{}
	var out []value.Value
	for _, v := range a {
		k := value.HashKey(v)
		if inB[k] && !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func setDiff(a, b []value.Value) []value.Value {
	inB := map[string]bool{}
	for _, v := range b {
		inB[value.HashKey(v)] = true
	}
	seen := map[string]bool{}
	var out []value.Value
	for _, v := range a {
		k := value.HashKey(v)
		if !inB[k] && !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

func (e *Evaluator) evalForall(n *ast.ForallExpr, sc *envScope, fr *frame, module string) (value.Value, error) {
	collV, err := e.evalExpr(n.Collection, sc, fr, module)
	if err != nil {
		return value.Value{}, err
	}
	items, _ := value.AsList(collV)
	var conjuncts []linexpr.Constraint[value.VarID]
	for _, item := range items {
		inner := sc.push(n.Var, item)
		if n.Where != nil {
			wv, err := e.evalExpr(n.Where, inner, fr, module)
			if err != nil {
				return value.Value{}, err
			}
			if !value.IsTruthy(wv) {
				continue
			}
		}
		bv, err := e.evalExpr(n.Body, inner, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		if bv.Kind == value.KindBool {
			if !bv.Bool {
				// A `false` Bool forall body asserts an unconditional
				// contradiction: `1 == 0`, making the resulting problem
				// infeasible, exactly as a literal `false` guard should.
				conjuncts = append(conjuncts, linexpr.EqC(linexpr.Constant[value.VarID](1), linexpr.Constant[value.VarID](0)))
			}
			continue
		}
		cs, _ := value.AsConstraints(bv)
		conjuncts = append(conjuncts, cs...)
	}
	return value.ConstraintVal(conjuncts...), nil
}

func (e *Evaluator) evalSum(n *ast.SumExpr, sc *envScope, fr *frame, module string) (value.Value, error) {
	collV, err := e.evalExpr(n.Collection, sc, fr, module)
	if err != nil {
		return value.Value{}, err
	}
	items, _ := value.AsList(collV)
	acc := linexpr.Constant[value.VarID](0)
	var strAcc strings.Builder
	isString := false
	for _, item := range items {
		inner := sc.push(n.Var, item)
		if n.Where != nil {
			wv, err := e.evalExpr(n.Where, inner, fr, module)
			if err != nil {
				return value.Value{}, err
			}
			if !value.IsTruthy(wv) {
				continue
			}
		}
		bv, err := e.evalExpr(n.Body, inner, fr, module)
		if err != nil {
			return value.Value{}, err
		}
		if bv.Kind == value.KindString {
			isString = true
			strAcc.WriteString(bv.Str)
			continue
		}
		lx, _ := value.AsLinExpr(bv)
		acc = acc.Add(lx)
	}
	if isString {
		return value.Str(strAcc.String()), nil
	}
	return value.LinExprVal(acc), nil
}

func (e *Evaluator) evalMatch(n *ast.MatchExpr, sc *envScope, fr *frame, module string) (value.Value, error) {
	sv, err := e.evalExpr(n.Scrutinee, sc, fr, module)
	if err != nil {
		return value.Value{}, err
	}
	dynType := value.TypeOf(sv)
	type candidate struct {
		specificity int
		arm         ast.MatchArm
	}
	var best *candidate
	for _, arm := range n.Arms {
		if matchesPattern(arm.Pattern, sv) {
			c := candidate{specificity: patternSpecificity(arm.Pattern), arm: arm}
			if best == nil || c.specificity > best.specificity {
				cCopy := c
				best = &cCopy
			}
		}
	}
	if best == nil {
		return value.Value{}, ErrTypeAssertion.New(module, n.Span().Line, "a covered match pattern", dynType.String())
	}
	return e.evalExpr(best.arm.Body, sc.push(best.arm.Var, sv), fr, module)
}

func patternSpecificity(t ast.TypeExpr) int {
	if t.Kind == ast.KindIdent {
		return 1
	}
	return 0
}

// matchesPattern performs the runtime narrowing check for `match`: object
// types compare by name, everything else structurally by dynamic Kind.
func matchesPattern(pattern ast.TypeExpr, v value.Value) bool {
	switch pattern.Kind {
	case ast.KindIdent:
		switch pattern.Ident {
		case "Int":
			return v.Kind == value.KindInt
		case "Bool":
			return v.Kind == value.KindBool
		case "String":
			return v.Kind == value.KindString
		case "LinExpr":
			return v.Kind == value.KindLinExpr || v.Kind == value.KindInt
		case "Constraint":
			return v.Kind == value.KindConstraint
		default:
			return v.Kind == value.KindObject && v.ObjType == pattern.Ident
		}
	case ast.KindList:
		return v.Kind == value.KindList
	case ast.KindOptional:
		return v.Kind == value.KindOptional || v.Kind == value.KindNone || matchesPattern(*pattern.Elem, v)
	case ast.KindTuple:
		return v.Kind == value.KindTuple
	}
	return false
}

