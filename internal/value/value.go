// Package value defines the runtime values produced by the evaluator: a
// closed sum type over concrete (Int/Bool/String/Object/List/Tuple/
// Optional/None) and symbolic (LinExpr/Constraint) forms.
//
// The "Kind tag + typed-accessor" pattern (one tagged Value struct rather
// than an interface per variant) generalizes the
// teacher interpreter's codecrafters/cmd/object.go (ObjectType enum,
// IsNumber/IsString/IsBool/IsTruthy helpers). Unlike the teacher's
// Object, there are no Function/Class/Instance variants: the DSL has no
// user-defined functions-as-values or classes (spec.md's evaluator is
// "total by construction", §4.4).
package value

import (
	"fmt"
	"strings"

	"github.com/christophcharles/Collomatique-sub005/internal/linexpr"
	"github.com/christophcharles/Collomatique-sub005/internal/types"
)

// VarID identifies one ILP decision variable: the declared variable name
// plus its evaluated, hashable argument tuple.
type VarID struct {
	Name string
	Args string // a canonical, comparable encoding of the evaluated args
}

func (v VarID) String() string { return v.Name + "(" + v.Args + ")" }

// Kind discriminates the shape of a Value.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindString
	KindLinExpr
	KindConstraint
	KindObject
	KindList
	KindTuple
	KindOptional
	KindNone
)

// Value is any runtime value the evaluator can produce.
type Value struct {
	Kind    Kind
	Int     int64
	Bool    bool
	Str     string
	Lin     linexpr.Expr[VarID]
	Con     []linexpr.Constraint[VarID] // a Constraint value holds zero or more conjuncts; zero is trivially satisfied
	ObjType string
	ObjID   string
	List    []Value
	Tuple   []Value
	Opt     *Value // nil means None
}

func Int(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Str(s string) Value    { return Value{Kind: KindString, Str: s} }
func None() Value            { return Value{Kind: KindNone} }
func ObjectRef(typeName, id string) Value {
	return Value{Kind: KindObject, ObjType: typeName, ObjID: id}
}

func LinExprVal(e linexpr.Expr[VarID]) Value { return Value{Kind: KindLinExpr, Lin: e} }

// ConstraintVal wraps zero or more conjoined constraints as a single
// Constraint value (spec.md's forall over Bool/Constraint bodies produces
// a conjunction; a forall over an empty collection produces zero).
func ConstraintVal(cs ...linexpr.Constraint[VarID]) Value {
	return Value{Kind: KindConstraint, Con: cs}
}

func ListVal(items []Value) Value   { return Value{Kind: KindList, List: items} }
func TupleVal(items []Value) Value  { return Value{Kind: KindTuple, Tuple: items} }
func OptionalVal(v *Value) Value    { return Value{Kind: KindOptional, Opt: v} }

// IsTruthy mirrors the teacher's IsTruthy, specialized to the DSL where
// only Bool values participate in truthiness (the type checker rejects
// anything else in a boolean-expected position; this is a defensive
// fallback for malformed checked ASTs).
func IsTruthy(v Value) bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNone:
		return false
	default:
		return true
	}
}

// AsInt extracts an Int payload.
func AsInt(v Value) (int64, bool) {
	if v.Kind == KindInt {
		return v.Int, true
	}
	return 0, false
}

// AsBool extracts a Bool payload.
func AsBool(v Value) (bool, bool) {
	if v.Kind == KindBool {
		return v.Bool, true
	}
	return false, false
}

// AsString extracts a String payload.
func AsString(v Value) (string, bool) {
	if v.Kind == KindString {
		return v.Str, true
	}
	return "", false
}

// AsLinExpr promotes Int to LinExpr per spec.md's comparison/arithmetic
// coercion rules, and passes LinExpr through unchanged.
func AsLinExpr(v Value) (linexpr.Expr[VarID], bool) {
	switch v.Kind {
	case KindLinExpr:
		return v.Lin, true
	case KindInt:
		return linexpr.Constant[VarID](float64(v.Int)), true
	default:
		return linexpr.Expr[VarID]{}, false
	}
}

// AsConstraints extracts a Constraint value's conjuncts.
func AsConstraints(v Value) ([]linexpr.Constraint[VarID], bool) {
	if v.Kind == KindConstraint {
		return v.Con, true
	}
	return nil, false
}

// AsList extracts a List payload (EmptyList values are represented as a
// nil-slice List, so this also serves as the EmptyList accessor).
func AsList(v Value) ([]Value, bool) {
	if v.Kind == KindList {
		return v.List, true
	}
	return nil, false
}

// TypeOf computes the static ExprType of v; the evaluator uses it to name
// the type of a value that no match arm covers.
func TypeOf(v Value) types.ExprType {
	switch v.Kind {
	case KindInt:
		return types.Int()
	case KindBool:
		return types.Bool()
	case KindString:
		return types.Str()
	case KindLinExpr:
		return types.LinExpr()
	case KindConstraint:
		return types.Constraint()
	case KindObject:
		return types.Object(v.ObjType)
	case KindNone:
		return types.Optional(types.EmptyList())
	case KindOptional:
		if v.Opt == nil {
			return types.Optional(types.EmptyList())
		}
		return types.Optional(TypeOf(*v.Opt))
	case KindList:
		if len(v.List) == 0 {
			return types.EmptyList()
		}
		elem := TypeOf(v.List[0])
		for _, item := range v.List[1:] {
			if u, ok := types.Unify(elem, TypeOf(item)); ok {
				elem = u
			}
		}
		return types.List(elem)
	case KindTuple:
		items := make([]types.ExprType, len(v.Tuple))
		for i, item := range v.Tuple {
			items[i] = TypeOf(item)
		}
		return types.Tuple(items...)
	}
	return types.ExprType{}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindString:
		return v.Str
	case KindLinExpr:
		return v.Lin.String()
	case KindConstraint:
		parts := make([]string, len(v.Con))
		for i, c := range v.Con {
			parts[i] = c.String()
		}
		return strings.Join(parts, " /\\ ")
	case KindObject:
		return v.ObjType + "#" + v.ObjID
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindTuple:
		parts := make([]string, len(v.Tuple))
		for i, item := range v.Tuple {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindOptional:
		if v.Opt == nil {
			return "None"
		}
		return v.Opt.String()
	case KindNone:
		return "None"
	}
	return "<invalid value>"
}

// Equal reports value equality for the value-level comparison operators
// (spec.md §4.3: Int/Bool/String/Object comparisons produce Bool).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindBool:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindObject:
		return a.ObjType == b.ObjType && a.ObjID == b.ObjID
	case KindNone:
		return true
	case KindTuple:
		if len(a.Tuple) != len(b.Tuple) {
			return false
		}
		for i := range a.Tuple {
			if !Equal(a.Tuple[i], b.Tuple[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// HashKey returns a canonical, comparable string encoding for v, used as
// the $Var(args) argument-tuple key and for set-operator de-duplication.
func HashKey(v Value) string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("i:%d", v.Int)
	case KindBool:
		return fmt.Sprintf("b:%t", v.Bool)
	case KindString:
		return fmt.Sprintf("s:%q", v.Str)
	case KindObject:
		return fmt.Sprintf("o:%s#%s", v.ObjType, v.ObjID)
	case KindNone:
		return "none"
	case KindTuple:
		parts := make([]string, len(v.Tuple))
		for i, item := range v.Tuple {
			parts[i] = HashKey(item)
		}
		return "t:(" + strings.Join(parts, ",") + ")"
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = HashKey(item)
		}
		return "l:[" + strings.Join(parts, ",") + "]"
	}
	return "?"
}
