package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/token"
)

func typesOf(toks []token.Token) []token.Type {
	out := make([]token.Type, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestScanPunctuationAndOperators(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []token.Type
	}{
		{"parens and braces", "(){}[]", []token.Type{
			token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
			token.LEFT_BRACKET, token.RIGHT_BRACKET, token.EOF,
		}},
		{"constraint ops", "a === b <== c >== d", []token.Type{
			token.IDENTIFIER, token.EQUAL_EQUAL_EQUAL, token.IDENTIFIER,
			token.LESS_EQUAL_EQUAL, token.IDENTIFIER, token.GREATER_EQUAL_EQUAL,
			token.IDENTIFIER, token.EOF,
		}},
		{"range and arrow", "[1..2] -> x", []token.Type{
			token.LEFT_BRACKET, token.NUMBER, token.DOTDOT, token.NUMBER,
			token.RIGHT_BRACKET, token.ARROW, token.IDENTIFIER, token.EOF,
		}},
		{"coalesce and question", "a ?? b", []token.Type{
			token.IDENTIFIER, token.QUESTIONQUESTION, token.IDENTIFIER, token.EOF,
		}},
		{"dollar var ref and global coll", "$Foo(1) @[Bar]", []token.Type{
			token.DOLLAR, token.IDENTIFIER, token.LEFT_PAREN, token.NUMBER, token.RIGHT_PAREN,
			token.AT, token.LEFT_BRACKET, token.IDENTIFIER, token.RIGHT_BRACKET, token.EOF,
		}},
		{"not in operator", "x not in y", []token.Type{
			token.IDENTIFIER, token.NOT_IN, token.IDENTIFIER, token.EOF,
		}},
		{"cardinality pipe", "|xs|", []token.Type{
			token.PIPE, token.IDENTIFIER, token.PIPE, token.EOF,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			toks, errs := lexer.New("m", []byte(tc.src)).Scan()
			require.Empty(t, errs)
			assert.Equal(t, tc.want, typesOf(toks))
		})
	}
}

func TestFloorDivisionVsLineComment(t *testing.T) {
	toks, errs := lexer.New("m", []byte("a // b\nc")).Scan()
	require.Empty(t, errs)
	// "//" after identifier `a` is floor division; the rest of the line
	// after "//" is just the identifier b, then newline, then c.
	assert.Equal(t, []token.Type{
		token.IDENTIFIER, token.SLASHSLASH, token.IDENTIFIER, token.IDENTIFIER, token.EOF,
	}, typesOf(toks))
}

func TestLineCommentAtStatementStart(t *testing.T) {
	toks, errs := lexer.New("m", []byte("// a comment\nlet x")).Scan()
	require.Empty(t, errs)
	assert.Equal(t, []token.Type{token.LET, token.IDENTIFIER, token.EOF}, typesOf(toks))
}

func TestDocstring(t *testing.T) {
	toks, errs := lexer.New("m", []byte("/// computes something\nlet f")).Scan()
	require.Empty(t, errs)
	require.Len(t, toks, 4)
	assert.Equal(t, token.DOCSTRING, toks[0].Type)
	assert.Equal(t, "computes something", toks[0].Lexeme)
}

func TestStringEscapesAndRawString(t *testing.T) {
	toks, errs := lexer.New("m", []byte(`"a\nb" ~"raw\n"~`)).Scan()
	require.Empty(t, errs)
	require.Len(t, toks, 3)
	assert.Equal(t, "a\nb", toks[0].Literal)
	assert.Equal(t, token.RAW_STRING, toks[1].Type)
	assert.Equal(t, `raw\n`, toks[1].Literal)
}

func TestUnterminatedStringReportsError(t *testing.T) {
	_, errs := lexer.New("m", []byte(`"unterminated`)).Scan()
	require.Len(t, errs, 1)
	assert.True(t, lexer.ErrUnterminatedString.Is(errs[0]))
}

func TestUnexpectedCharacterReportsError(t *testing.T) {
	_, errs := lexer.New("m", []byte("a ` b")).Scan()
	require.Len(t, errs, 1)
	assert.True(t, lexer.ErrUnexpectedChar.Is(errs[0]))
}

func TestKeywordsAndReservedWords(t *testing.T) {
	toks, errs := lexer.New("m", []byte("pub let reify as if else match for in where forall sum not and or union inter true false None")).Scan()
	require.Empty(t, errs)
	want := []token.Type{
		token.PUB, token.LET, token.REIFY, token.AS, token.IF, token.ELSE,
		token.MATCH, token.FOR, token.IN, token.WHERE, token.FORALL, token.SUM,
		token.NOT, token.AND, token.OR, token.UNION, token.INTER,
		token.TRUE, token.FALSE, token.NONE, token.EOF,
	}
	assert.Equal(t, want, typesOf(toks))
}
