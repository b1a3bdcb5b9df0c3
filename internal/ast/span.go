package ast

import "fmt"

// Span locates a range of source bytes within a named module. Every AST
// node carries one; diagnostics quote it verbatim.
type Span struct {
	Module string
	Start  int
	End    int
	Line   int
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d(%d-%d)", s.Module, s.Line, s.Start, s.End)
}

// Join returns the smallest span covering both a and b. Modules must match.
func Join(a, b Span) Span {
	start, end := a.Start, a.End
	if b.Start < start {
		start = b.Start
	}
	if b.End > end {
		end = b.End
	}
	line := a.Line
	return Span{Module: a.Module, Start: start, End: end, Line: line}
}
