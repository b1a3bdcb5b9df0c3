package builder

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/eval"
	"github.com/christophcharles/Collomatique-sub005/internal/host"
	"github.com/christophcharles/Collomatique-sub005/internal/linexpr"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/types"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

// ConstraintBinding names one function to evaluate as a constraint source
// (spec.md §4.5's constraint_bindings: list of (function_path,
// argument_list)).
type ConstraintBinding struct {
	Module string
	Name   string
	Args   []value.Value
}

// Variable is one ILP decision variable in the output Problem: either a
// host-declared base variable or a reify-bound boolean (Reified==true).
type Variable struct {
	ID        value.VarID
	Name      string
	Args      []value.Value
	DomainMin float64
	DomainMax float64
	IsInteger bool
	Reified   bool
}

// ProblemConstraint is one linear (in)equality over base and reified
// variables, canonicalized to lhs-vs-0 (spec.md §6.3).
type ProblemConstraint struct {
	Expr     linexpr.Expr[value.VarID]
	Sign     linexpr.Sign
	Span     ast.Span
	Function string
}

// Reification records one Big-M linearization of a reified boolean
// (spec.md §6.3's "reifications: list of (boolean_var, source_constraint,
// big-M constants)").
type Reification struct {
	Bool         value.VarID
	Source       linexpr.Constraint[value.VarID]
	BigMUpper    float64
	BigMLowerEps float64
}

// Problem is the immutable compiled output of Build.
type Problem struct {
	Variables    []Variable
	Constraints  []ProblemConstraint
	Reifications []Reification
}

// Builder drives evaluation and reification lowering over an already
// semantically-analyzed Program. Semantic analysis itself (spec.md §4.5
// step 1, "parse all modules; run semantic analysis") happens upstream via
// sema.Analyzer, unlike the Rust original's ProblemBuilder::new(env,
// modules), which runs analysis as part of construction
// (original_source/collo-ml/src/problem/tests/simple_constraints.rs).
type Builder struct {
	log *logrus.Entry
	env host.Env
	ev  *eval.Evaluator
	prog *sema.Program

	reifyOwner map[string]reifyEntry // VarName -> owning function signature
	reifiedFn  map[string]string     // "module::name" -> the VarName that first reified it

	vars      map[value.VarID]Variable
	bounds    map[value.VarID][2]float64
	resolving map[value.VarID]bool
}

type reifyEntry struct {
	sig *sema.FuncSig
}

// New creates a Builder over an analyzed Program.
func New(env host.Env, prog *sema.Program) *Builder {
	return &Builder{
		log:  logrus.WithField("component", "builder"),
		env:  env,
		ev:   eval.New(env, prog),
		prog: prog,
		reifyOwner: make(map[string]reifyEntry),
		reifiedFn: make(map[string]string),
		vars:     make(map[value.VarID]Variable),
		bounds:   make(map[value.VarID][2]float64),
		resolving: make(map[value.VarID]bool),
	}
}

// resolveFunc mirrors sema.Analyzer.lookupFunc's module/public resolution
// tiers (the lexical-scope tier does not apply to a top-level binding
// list): a two-segment path checks the named module directly, a
// one-segment path checks callerModule first and falls back to the flat
// public namespace.
func (b *Builder) resolveFunc(callerModule string, path []string) (*sema.FuncSig, bool) {
	if len(path) == 2 {
		mod, ok := b.prog.Modules[path[0]]
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
	if mod, ok := b.prog.Modules[callerModule]; ok {
		if sig, ok := mod.Sigs[name]; ok {
			return sig, true
		}
	}
	if sig, ok := b.prog.Public[name]; ok {
		return sig, true
	}
	return nil, false
}

func isConstraintReturning(t types.ExprType) bool {
	if t.Kind == types.KindConstraint {
		return true
	}
	return t.Kind == types.KindList && t.Elem != nil && t.Elem.Kind == types.KindConstraint
}

// Build runs spec.md §4.5 steps 2-6: register reify bindings, validate and
// evaluate constraint bindings, lower every reification obligation via
// Big-M linearization, and return the resulting immutable Problem.
func (b *Builder) Build(bindings []ConstraintBinding) (*Problem, error) {
	if err := b.registerReifyBindings(); err != nil {
		return nil, err
	}

	prob := &Problem{}

	for _, cb := range bindings {
		sig, ok := b.resolveFunc(cb.Module, []string{cb.Name})
		if !ok {
			return nil, ErrUnknownFunction.New(cb.Module, cb.Name)
		}
		if !isConstraintReturning(sig.Ret) {
			return nil, ErrWrongReturnType.New(cb.Module, cb.Name, sig.Ret.String())
		}
		if len(sig.Params) != len(cb.Args) {
			return nil, ErrArgumentMismatch.New(cb.Module, cb.Name, len(sig.Params), len(cb.Args))
		}

		result, obligations, err := b.ev.EvalFunction(sig.Module, cb.Name, cb.Args)
		if err != nil {
			return nil, err
		}

		fnLabel := sig.Module + "::" + sig.Name
		b.log.WithField("function", fnLabel).Debug("bound constraint")
		for _, c := range constraintsOf(result) {
			prob.Constraints = append(prob.Constraints, ProblemConstraint{
				Expr: c.Expr, Sign: c.Sign, Span: sig.Span, Function: fnLabel,
			})
		}

		if err := b.processObligations(obligations, prob); err != nil {
			return nil, err
		}
	}

	prob.Variables = b.sortedVariables()

	return prob, nil
}

func constraintsOf(v value.Value) []linexpr.Constraint[value.VarID] {
	if cs, ok := value.AsConstraints(v); ok {
		return cs
	}
	if items, ok := value.AsList(v); ok {
		var out []linexpr.Constraint[value.VarID]
		for _, it := range items {
			out = append(out, constraintsOf(it)...)
		}
		return out
	}
	return nil
}

// registerReifyBindings implements spec.md §4.5 step 2: every `reify`
// statement across every module is checked for a Constraint/[Constraint]
// return type and for a namespace collision against a host base variable
// or an earlier reify binding.
func (b *Builder) registerReifyBindings() error {
	for _, cm := range b.prog.Modules {
		for _, rb := range cm.Reifies {
			sig, ok := b.resolveFunc(rb.Module, rb.Path)
			if !ok {
				return ErrUnknownFunction.New(rb.Module, joinPath(rb.Path))
			}
			if !isConstraintReturning(sig.Ret) {
				return ErrWrongReturnType.New(rb.Module, sig.Name, sig.Ret.String())
			}
			if _, clash := b.env.VariableSchema(rb.VarName); clash {
				return ErrVariableAlreadyDefined.New(rb.VarName, "collides with a host base variable")
			}
			if existing, dup := b.reifyOwner[rb.VarName]; dup {
				return ErrVariableAlreadyDefined.New(rb.VarName, "already reified by "+existing.sig.Module+"::"+existing.sig.Name)
			}
			fnKey := sig.Module + "::" + sig.Name
			if owner, dup := b.reifiedFn[fnKey]; dup {
				return ErrReificationAlreadyBound.New(fnKey, owner, rb.VarName)
			}
			b.reifiedFn[fnKey] = rb.VarName
			b.reifyOwner[rb.VarName] = reifyEntry{sig: sig}
		}
	}
	return nil
}

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "::" + p
	}
	return out
}

// processObligations resolves every Obligation recorded while evaluating a
// constraint or reification body: base-variable obligations are recorded
// as Problem.Variables directly from host.VariableInstance; reified
// obligations are lowered recursively into their own Big-M constraints
// (spec.md §4.5 step 5), detecting reification cycles as
// eval.ErrRecursionViaReification (spec.md §9's "Reify cycles").
func (b *Builder) processObligations(obligations []eval.Obligation, prob *Problem) error {
	for _, ob := range obligations {
		if !ob.Reified {
			if err := b.registerBaseVariable(ob.VarName, ob.Args, ob.VarID); err != nil {
				return err
			}
			continue
		}
		if err := b.lowerReification(ob.VarName, ob.Args, ob.VarID, prob); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) registerBaseVariable(name string, args []value.Value, id value.VarID) error {
	if _, ok := b.vars[id]; ok {
		return nil
	}
	inst, err := b.env.VariableInstance(name, args)
	if err != nil {
		return err
	}
	b.vars[id] = Variable{
		ID: id, Name: name, Args: args,
		DomainMin: inst.DomainMin, DomainMax: inst.DomainMax, IsInteger: inst.IsInteger,
	}
	b.bounds[id] = [2]float64{inst.DomainMin, inst.DomainMax}
	return nil
}

// lowerReification evaluates the function bound by a `reify` statement
// for one concrete argument tuple, computes Big-M bounds for the
// resulting constraint's variables, and emits the linearization
// (spec.md §4.5 step 5). A constraint (`===`) is lowered as the
// conjunction of its `<==` and `>==` halves tied together by two
// synthetic helper booleans and a standard AND-linearization, since a
// single shared Big-M pair cannot make both directions of an exact
// equality sound at once.
func (b *Builder) lowerReification(varName string, args []value.Value, id value.VarID, prob *Problem) error {
	if _, ok := b.vars[id]; ok {
		return nil
	}
	if b.resolving[id] {
		return eval.ErrRecursionViaReification.New(varName, id.String())
	}
	b.resolving[id] = true
	defer delete(b.resolving, id)

	entry, ok := b.reifyOwner[varName]
	if !ok {
		return ErrUnknownFunction.New("", varName)
	}
	b.log.WithField("variable", id.String()).Debug("lowering reification")

	result, obligations, err := b.ev.EvalFunction(entry.sig.Module, entry.sig.Name, args)
	if err != nil {
		return err
	}
	if err := b.processObligations(obligations, prob); err != nil {
		return err
	}

	b.vars[id] = Variable{ID: id, Name: varName, Args: args, DomainMin: 0, DomainMax: 1, IsInteger: true, Reified: true}
	b.bounds[id] = [2]float64{0, 1}

	for _, c := range constraintsOf(result) {
		if err := b.lowerConstraint(id, c, prob); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) lowerConstraint(boolVar value.VarID, c linexpr.Constraint[value.VarID], prob *Problem) error {
	lo, hi, err := b.exprBounds(c.Expr)
	if err != nil {
		return err
	}
	if c.Sign == linexpr.Le {
		b.emitLeReification(boolVar, c.Expr, lo, hi, prob)
		prob.Reifications = append(prob.Reifications, Reification{Bool: boolVar, Source: c, BigMUpper: hi, BigMLowerEps: 1 - lo})
		return nil
	}

	// Sign == Eq: split into two halves, each reified by its own helper
	// boolean, then AND the halves together into boolVar.
	leHelper := value.VarID{Name: boolVar.Name + "#le", Args: boolVar.Args}
	geHelper := value.VarID{Name: boolVar.Name + "#ge", Args: boolVar.Args}
	b.vars[leHelper] = Variable{ID: leHelper, Name: leHelper.Name, DomainMin: 0, DomainMax: 1, IsInteger: true, Reified: true}
	b.vars[geHelper] = Variable{ID: geHelper, Name: geHelper.Name, DomainMin: 0, DomainMax: 1, IsInteger: true, Reified: true}
	b.bounds[leHelper] = [2]float64{0, 1}
	b.bounds[geHelper] = [2]float64{0, 1}

	b.emitLeReification(leHelper, c.Expr, lo, hi, prob)
	prob.Reifications = append(prob.Reifications, Reification{Bool: leHelper, Source: linexpr.Leq(c.Expr, linexpr.Constant[value.VarID](0)), BigMUpper: hi, BigMLowerEps: 1 - lo})

	negExpr := c.Expr.Neg()
	nlo, nhi := -hi, -lo
	b.emitLeReification(geHelper, negExpr, nlo, nhi, prob)
	prob.Reifications = append(prob.Reifications, Reification{Bool: geHelper, Source: linexpr.Leq(negExpr, linexpr.Constant[value.VarID](0)), BigMUpper: nhi, BigMLowerEps: 1 - nlo})

	// boolVar = leHelper AND geHelper, linearized the standard way:
	// boolVar <= leHelper, boolVar <= geHelper, boolVar >= leHelper+geHelper-1.
	one := linexpr.Constant[value.VarID](1)
	bv := linexpr.Var(boolVar)
	le := linexpr.Var(leHelper)
	ge := linexpr.Var(geHelper)
	prob.Constraints = append(prob.Constraints,
		ProblemConstraint{Expr: linexpr.Leq(bv, le).Expr, Sign: linexpr.Le, Function: "builder::and-lower"},
		ProblemConstraint{Expr: linexpr.Leq(bv, ge).Expr, Sign: linexpr.Le, Function: "builder::and-lower"},
		ProblemConstraint{Expr: linexpr.Leq(le.Add(ge).Sub(one), bv).Expr, Sign: linexpr.Le, Function: "builder::and-lower"},
	)
	return nil
}

// emitLeReification lowers `L(x) <= 0 <=> b == 1` via the two spec.md
// §4.5 step 5 inequalities: `L(x) <= U*(1-b)` and
// `L(x) >= eps - (eps - L_min)*b` with eps = 1 (every variable in this
// domain is integer-valued, so strict positivity means >= 1).
func (b *Builder) emitLeReification(boolVar value.VarID, l linexpr.Expr[value.VarID], lo, hi float64, prob *Problem) {
	const eps = 1.0
	bv := linexpr.Var(boolVar)

	upper := l.Add(bv.Scale(hi))
	prob.Constraints = append(prob.Constraints, ProblemConstraint{
		Expr: linexpr.Leq(upper, linexpr.Constant[value.VarID](hi)).Expr, Sign: linexpr.Le, Function: "builder::reify-le",
	})

	m := eps - lo
	lowerRHS := linexpr.Constant[value.VarID](eps).Sub(bv.Scale(m))
	prob.Constraints = append(prob.Constraints, ProblemConstraint{
		Expr: linexpr.Leq(lowerRHS, l).Expr, Sign: linexpr.Le, Function: "builder::reify-le",
	})
}

// exprBounds computes L(x)'s [min, max] over the declared domains of
// every variable it references, resolving base-variable domains from
// host.VariableInstance and reified-variable domains as the fixed [0,1]
// every reification boolean carries.
func (b *Builder) exprBounds(e linexpr.Expr[value.VarID]) (lo, hi float64, err error) {
	for _, v := range e.Vars() {
		if _, ok := b.bounds[v]; ok {
			continue
		}
		if _, ok := b.vars[v]; ok {
			continue
		}
		return 0, 0, ErrUnboundedForReification.New(v.String())
	}
	lo, hi = e.Bounds(b.bounds)
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 0, ErrUnboundedForReification.New("<expr>")
	}
	return lo, hi, nil
}

func (b *Builder) sortedVariables() []Variable {
	out := make([]Variable, 0, len(b.vars))
	for _, v := range b.vars {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}
