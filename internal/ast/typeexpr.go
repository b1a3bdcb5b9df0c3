package ast

import "strings"

// TypeExpr is the surface syntax for a type annotation, as written by the
// user (parameter types, return types, `as T` casts, `match` arm patterns).
// It is resolved into a types.ExprType by the semantic analyzer.
type TypeExpr struct {
	Span Span
	Kind TypeExprKind
	// Ident holds the name for KindIdent (a primitive keyword or a
	// custom/object type name - the analyzer decides which).
	Ident string
	// Elem holds the element type for KindList and the wrapped type for
	// KindOptional.
	Elem *TypeExpr
	// Items holds tuple component types (KindTuple) or sum members
	// (KindSum).
	Items []TypeExpr
}

type TypeExprKind int

const (
	KindIdent TypeExprKind = iota
	KindList
	KindTuple
	KindOptional
	KindSum
)

func (t TypeExpr) String() string {
	switch t.Kind {
	case KindIdent:
		return t.Ident
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
	return "<invalid type>"
}
