// Package ast defines the typed, span-annotated syntax tree produced by
// the parser: File -> Statement* -> Expr, following the BNF in spec §4.2.
//
// Node shapes mirror the teacher interpreter's ast.go (Stmt/Expr
// interfaces with a String() method) generalized with a Span on every
// node and the DSL's own statement/expression set.
package ast

import (
	"fmt"
	"strings"

	"github.com/christophcharles/Collomatique-sub005/internal/token"
)

// File is an ordered list of top-level statements (spec §3 "File / AST").
type File struct {
	Module string
	Stmts  []Statement
}

// Statement is either a Let or a Reify declaration.
type Statement interface {
	stmtNode()
	Span() Span
	String() string
}

// Param is one (name, type) parameter of a let function.
type Param struct {
	Name Span // span carries the identifier; Name.Module+text stored separately
	Ident string
	Type  TypeExpr
}

func (p Param) String() string {
	return p.Ident + ": " + p.Type.String()
}

// LetStmt declares a named DSL function: `pub? let name(params) -> type = body;`
type LetStmt struct {
	SpanV   Span
	Public  bool
	Doc     []string
	Name    string
	NameSpan Span
	Params  []Param
	RetType TypeExpr
	Body    Expr
}

func (s *LetStmt) stmtNode()   {}
func (s *LetStmt) Span() Span  { return s.SpanV }
func (s *LetStmt) String() string {
	sb := strings.Builder{}
	for _, d := range s.Doc {
		sb.WriteString("///" + d + "\n")
	}
	if s.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("let " + s.Name + "(")
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString(") -> " + s.RetType.String() + " = " + s.Body.String() + ";")
	return sb.String()
}

// ReifyStmt binds a named boolean ILP variable to a constraint-returning
// function: `pub? reify path as $Name;` or `$[Name]` (list form).
type ReifyStmt struct {
	SpanV    Span
	Public   bool
	Doc      []string
	Path     []string // qualified path segments, e.g. ["mod", "func"] or ["func"]
	IsList   bool
	VarName  string
}

func (s *ReifyStmt) stmtNode()  {}
func (s *ReifyStmt) Span() Span { return s.SpanV }
func (s *ReifyStmt) String() string {
	sb := strings.Builder{}
	for _, d := range s.Doc {
		sb.WriteString("///" + d + "\n")
	}
	if s.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("reify " + strings.Join(s.Path, "::") + " as ")
	if s.IsList {
		sb.WriteString("$[" + s.VarName + "]")
	} else {
		sb.WriteString("$" + s.VarName)
	}
	sb.WriteString(";")
	return sb.String()
}

// Expr is any DSL expression node.
type Expr interface {
	exprNode()
	Span() Span
	String() string
}

type Base struct{ SpanV Span }

func (b Base) Span() Span { return b.SpanV }

// ---- Literals ----

type IntLit struct {
	Base
	Value int64
}

func (e *IntLit) exprNode()      {}
func (e *IntLit) String() string { return fmt.Sprintf("%d", e.Value) }

type BoolLit struct {
	Base
	Value bool
}

func (e *BoolLit) exprNode()      {}
func (e *BoolLit) String() string { return fmt.Sprintf("%t", e.Value) }

type StringLit struct {
	Base
	Value string
	Raw   bool // true for ~"..."~ literals (no escape interpretation)
}

func (e *StringLit) exprNode() {}
func (e *StringLit) String() string {
	if e.Raw {
		return "~\"" + e.Value + "\"~"
	}
	return fmt.Sprintf("%q", e.Value)
}

type NoneLit struct{ Base }

func (e *NoneLit) exprNode()      {}
func (e *NoneLit) String() string { return "None" }

// ---- Collections ----

type ListLit struct {
	Base
	Elements []Expr
}

func (e *ListLit) exprNode() {}
func (e *ListLit) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RangeLit is `[a..b]`, producing integers a, a+1, ..., b-1.
type RangeLit struct {
	Base
	Lo, Hi Expr
}

func (e *RangeLit) exprNode()      {}
func (e *RangeLit) String() string { return fmt.Sprintf("[%s..%s]", e.Lo, e.Hi) }

type TupleLit struct {
	Base
	Elements []Expr
}

func (e *TupleLit) exprNode() {}
func (e *TupleLit) String() string {
	parts := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		parts[i] = el.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ListComprehension is `[body for x in coll where p]`.
type ListComprehension struct {
	Base
	Body       Expr
	Var        string
	VarSpan    Span
	Collection Expr
	Where      Expr // nil if absent
}

func (e *ListComprehension) exprNode() {}
func (e *ListComprehension) String() string {
	s := fmt.Sprintf("[%s for %s in %s", e.Body, e.Var, e.Collection)
	if e.Where != nil {
		s += " where " + e.Where.String()
	}
	return s + "]"
}

// ---- Identifiers, calls, variable references ----

// Ident is a bare identifier reference: a local/parameter or a 0-arg
// function call target, disambiguated by the semantic analyzer.
type Ident struct {
	Base
	Name string
}

func (e *Ident) exprNode()      {}
func (e *Ident) String() string { return e.Name }

// CallExpr is `(module::)?name(args)`.
type CallExpr struct {
	Base
	Path []string
	Args []Expr
}

func (e *CallExpr) exprNode() {}
func (e *CallExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return strings.Join(e.Path, "::") + "(" + strings.Join(parts, ", ") + ")"
}

// VarRef is `$Ident(args)`, a reference to a host-declared ILP variable or
// a reified boolean variable.
type VarRef struct {
	Base
	Name string
	Args []Expr
}

func (e *VarRef) exprNode() {}
func (e *VarRef) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return "$" + e.Name + "(" + strings.Join(parts, ", ") + ")"
}

// GlobalColl is `@[TypeName]`, materializing all host objects of a type.
type GlobalColl struct {
	Base
	TypeName string
}

func (e *GlobalColl) exprNode()      {}
func (e *GlobalColl) String() string { return "@[" + e.TypeName + "]" }

// ---- Postfix ----

type FieldAccess struct {
	Base
	Object Expr
	Name   string
}

func (e *FieldAccess) exprNode()      {}
func (e *FieldAccess) String() string { return e.Object.String() + "." + e.Name }

type IndexExpr struct {
	Base
	Object Expr
	Index  Expr
}

func (e *IndexExpr) exprNode() {}
func (e *IndexExpr) String() string {
	return fmt.Sprintf("%s[%s]", e.Object, e.Index)
}

// TupleIndex is `.0`, `.1`, ... on a tuple.
type TupleIndex struct {
	Base
	Object Expr
	Index  int
}

func (e *TupleIndex) exprNode() {}
func (e *TupleIndex) String() string {
	return fmt.Sprintf("%s.%d", e.Object, e.Index)
}

// CastExpr is `expr as Type`, which inhibits further implicit coercion.
type CastExpr struct {
	Base
	Inner Expr
	Type  TypeExpr
}

func (e *CastExpr) exprNode() {}
func (e *CastExpr) String() string {
	return fmt.Sprintf("(%s as %s)", e.Inner, e.Type)
}

// CoalesceExpr is `lhs ?? rhs`.
type CoalesceExpr struct {
	Base
	Left, Right Expr
}

func (e *CoalesceExpr) exprNode() {}
func (e *CoalesceExpr) String() string {
	return fmt.Sprintf("(%s ?? %s)", e.Left, e.Right)
}

// CardinalityExpr is `|expr|`.
type CardinalityExpr struct {
	Base
	Inner Expr
}

func (e *CardinalityExpr) exprNode()      {}
func (e *CardinalityExpr) String() string { return "|" + e.Inner.String() + "|" }

// ParenExpr preserves an explicit grouping for source-faithful printing.
type ParenExpr struct {
	Base
	Inner Expr
}

func (e *ParenExpr) exprNode()      {}
func (e *ParenExpr) String() string { return "(" + e.Inner.String() + ")" }

// ---- Unary / binary ----

type UnaryExpr struct {
	Base
	Op    token.Type
	Right Expr
}

func (e *UnaryExpr) exprNode() {}
func (e *UnaryExpr) String() string {
	op := "-"
	if e.Op == token.NOT {
		op = "not "
	}
	return fmt.Sprintf("(%s%s)", op, e.Right)
}

// BinOp enumerates the binary operators of the language, spanning
// arithmetic, value comparison, constraint relations, membership, and set
// operators - every operator whose grammar shape is `left OP right`.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpFloorDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpConstraintEq  // ===
	OpConstraintLte // <==
	OpConstraintGte // >==
	OpIn
	OpNotIn
	OpUnion
	OpInter
	OpDiff
)

var binOpSymbols = map[BinOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpFloorDiv: "//", OpMod: "%",
	OpEq: "==", OpNeq: "!=", OpLt: "<", OpLte: "<=", OpGt: ">", OpGte: ">=",
	OpConstraintEq: "===", OpConstraintLte: "<==", OpConstraintGte: ">==",
	OpIn: "in", OpNotIn: "not in", OpUnion: "union", OpInter: "inter", OpDiff: "\\",
}

func (o BinOp) String() string { return binOpSymbols[o] }

type BinaryExpr struct {
	Base
	Op          BinOp
	Left, Right Expr
}

func (e *BinaryExpr) exprNode() {}
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.Left, e.Right)
}

type LogicAndExpr struct {
	Base
	Left, Right Expr
}

func (e *LogicAndExpr) exprNode()      {}
func (e *LogicAndExpr) String() string { return fmt.Sprintf("(%s and %s)", e.Left, e.Right) }

type LogicOrExpr struct {
	Base
	Left, Right Expr
}

func (e *LogicOrExpr) exprNode()      {}
func (e *LogicOrExpr) String() string { return fmt.Sprintf("(%s or %s)", e.Left, e.Right) }

// ---- Control-flow-shaped expressions ----

type IfExpr struct {
	Base
	Cond, Then, Else Expr
}

func (e *IfExpr) exprNode() {}
func (e *IfExpr) String() string {
	return fmt.Sprintf("if %s { %s } else { %s }", e.Cond, e.Then, e.Else)
}

// LetInExpr is `let name = value { body }` - lexical, immutable binding.
type LetInExpr struct {
	Base
	Name    string
	NameSpan Span
	Value   Expr
	Body    Expr
}

func (e *LetInExpr) exprNode() {}
func (e *LetInExpr) String() string {
	return fmt.Sprintf("let %s = %s { %s }", e.Name, e.Value, e.Body)
}

// ForallExpr is `forall x in coll [where p] { body }`.
type ForallExpr struct {
	Base
	Var        string
	VarSpan    Span
	Collection Expr
	Where      Expr // nil if absent
	Body       Expr
}

func (e *ForallExpr) exprNode() {}
func (e *ForallExpr) String() string {
	s := fmt.Sprintf("forall %s in %s ", e.Var, e.Collection)
	if e.Where != nil {
		s += "where " + e.Where.String() + " "
	}
	return s + "{ " + e.Body.String() + " }"
}

// SumExpr is `sum x in coll [where p] { body }`.
type SumExpr struct {
	Base
	Var        string
	VarSpan    Span
	Collection Expr
	Where      Expr
	Body       Expr
}

func (e *SumExpr) exprNode() {}
func (e *SumExpr) String() string {
	s := fmt.Sprintf("sum %s in %s ", e.Var, e.Collection)
	if e.Where != nil {
		s += "where " + e.Where.String() + " "
	}
	return s + "{ " + e.Body.String() + " }"
}

// MatchArm is one `Pattern var { body }` arm of a match expression.
type MatchArm struct {
	Pattern TypeExpr
	Var     string
	VarSpan Span
	Body    Expr
	Span    Span
}

// MatchExpr narrows a sum-typed scrutinee via its arms.
type MatchExpr struct {
	Base
	Scrutinee Expr
	Arms      []MatchArm
}

func (e *MatchExpr) exprNode() {}
func (e *MatchExpr) String() string {
	parts := make([]string, len(e.Arms))
	for i, a := range e.Arms {
		parts[i] = fmt.Sprintf("%s %s { %s }", a.Pattern, a.Var, a.Body)
	}
	return fmt.Sprintf("match %s { %s }", e.Scrutinee, strings.Join(parts, " "))
}
