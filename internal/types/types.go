// Package types implements the DSL's static type lattice: primitives,
// lists, tuples, optionals, sum (union) types, object types, and the
// subtyping/unification/coercion rules of spec.md §4.3.
package types

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Kind discriminates the shape of an ExprType.
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
	KindSum
	KindEmptyList
	KindCustom
)

// ExprType is a node in the type lattice. Object and Custom carry a Name;
// List and Optional carry a single Elem; Tuple and Sum carry Items.
type ExprType struct {
	Kind  Kind
	Name  string
	Elem  *ExprType
	Items []ExprType
}

func Int() ExprType        { return ExprType{Kind: KindInt} }
func Bool() ExprType       { return ExprType{Kind: KindBool} }
func Str() ExprType        { return ExprType{Kind: KindString} }
func LinExpr() ExprType    { return ExprType{Kind: KindLinExpr} }
func Constraint() ExprType { return ExprType{Kind: KindConstraint} }
func EmptyList() ExprType  { return ExprType{Kind: KindEmptyList} }

func Object(name string) ExprType { return ExprType{Kind: KindObject, Name: name} }
func Custom(name string) ExprType { return ExprType{Kind: KindCustom, Name: name} }

func List(elem ExprType) ExprType {
	e := elem
	return ExprType{Kind: KindList, Elem: &e}
}

func Optional(elem ExprType) ExprType {
	e := elem
	return ExprType{Kind: KindOptional, Elem: &e}
}

func Tuple(items ...ExprType) ExprType { return ExprType{Kind: KindTuple, Items: items} }

// Sum builds a normalized sum (union) type: flattens nested sums and
// de-duplicates members, collapsing to the single member when only one
// remains.
func Sum(items ...ExprType) ExprType {
	var flat []ExprType
	for _, it := range items {
		if it.Kind == KindSum {
			flat = append(flat, it.Items...)
		} else {
			flat = append(flat, it)
		}
	}
	flat = lo.UniqBy(flat, func(t ExprType) string { return t.String() })
	sort.Slice(flat, func(i, j int) bool { return flat[i].String() < flat[j].String() })
	if len(flat) == 1 {
		return flat[0]
	}
	return ExprType{Kind: KindSum, Items: flat}
}

func (t ExprType) String() string {
	switch t.Kind {
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindLinExpr:
		return "LinExpr"
	case KindConstraint:
		return "Constraint"
	case KindEmptyList:
		return "EmptyList"
	case KindObject:
		return t.Name
	case KindCustom:
		return t.Name
	case KindList:
		return "[" + t.Elem.String() + "]"
	case KindOptional:
		return t.Elem.String() + "?"
	case KindTuple:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = it.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindSum:
		parts := make([]string, len(t.Items))
		for i, it := range t.Items {
			parts[i] = it.String()
		}
		return strings.Join(parts, " | ")
	}
	return "<invalid>"
}

func (t ExprType) Equal(other ExprType) bool { return t.String() == other.String() }

// members returns the flattened set of concrete members of t (a
// non-sum type yields itself as the sole member).
func members(t ExprType) []ExprType {
	if t.Kind == KindSum {
		return t.Items
	}
	return []ExprType{t}
}

// Subtype reports whether sub is a subtype of sup per spec.md §4.3:
// Int <= LinExpr; EmptyList <= [T] for any T; A <= A|B; T <= T?.
func Subtype(sub, sup ExprType) bool {
	if sub.Equal(sup) {
		return true
	}
	if sub.Kind == KindInt && sup.Kind == KindLinExpr {
		return true
	}
	if sub.Kind == KindEmptyList && sup.Kind == KindList {
		return true
	}
	if sup.Kind == KindOptional {
		return Subtype(sub, *sup.Elem)
	}
	if sup.Kind == KindSum {
		for _, m := range sup.Items {
			if Subtype(sub, m) {
				return true
			}
		}
		return false
	}
	if sub.Kind == KindSum {
		for _, m := range sub.Items {
			if !Subtype(m, sup) {
				return false
			}
		}
		return true
	}
	if sub.Kind == KindList && sup.Kind == KindList {
		return Subtype(*sub.Elem, *sup.Elem)
	}
	if sub.Kind == KindTuple && sup.Kind == KindTuple && len(sub.Items) == len(sup.Items) {
		for i := range sub.Items {
			if !Subtype(sub.Items[i], sup.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Unify computes the least common supertype of a and b (spec.md §4.3),
// used for if/else arms and list-literal elements; Int and LinExpr unify
// to the union Int | LinExpr. Returns ok=false when
// no common concrete supertype exists (e.g. Int vs Bool).
func Unify(a, b ExprType) (ExprType, bool) {
	if a.Kind == KindEmptyList && b.Kind == KindList {
		return b, true
	}
	if b.Kind == KindEmptyList && a.Kind == KindList {
		return a, true
	}
	if a.Kind == KindEmptyList && b.Kind == KindEmptyList {
		return EmptyList(), true
	}
	if a.Equal(b) {
		return a, true
	}
	// Int and LinExpr join as the union Int | LinExpr rather than
	// collapsing into LinExpr, so an Int branch keeps its own type.
	if (a.Kind == KindInt && b.Kind == KindLinExpr) || (a.Kind == KindLinExpr && b.Kind == KindInt) {
		return Sum(a, b), true
	}
	if a.Kind == KindList && b.Kind == KindList {
		elem, ok := Unify(*a.Elem, *b.Elem)
		if !ok {
			return ExprType{}, false
		}
		return List(elem), true
	}
	if Subtype(a, b) {
		return b, true
	}
	if Subtype(b, a) {
		return a, true
	}
	// Neither is a subtype of the other: form a union of concrete
	// members, but only for members that are genuinely distinct
	// concrete value kinds that are allowed to coexist in a sum type
	// (Int/LinExpr commonly; Bool never joins a concrete type per
	// spec.md's "Bool is not a subtype of Constraint" rule and, by the
	// same reasoning, Int <-> Bool has no common supertype).
	if isIncompatiblePrimitive(a) || isIncompatiblePrimitive(b) {
		return ExprType{}, false
	}
	return Sum(a, b), true
}

func isIncompatiblePrimitive(t ExprType) bool {
	switch t.Kind {
	case KindBool, KindString:
		return true
	default:
		return false
	}
}

// Coerce reports whether a value of type from may be implicitly coerced
// to type to in a position context (spec.md §4.3: arithmetic operand,
// return value, function argument). It never crosses an `as T` boundary;
// callers enforce that separately by not calling Coerce for cast results.
func Coerce(from, to ExprType) bool { return Subtype(from, to) }
