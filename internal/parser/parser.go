// Package parser implements a recursive-descent, precedence-climbing
// parser for the colloscope DSL, generalizing the structure of the
// teacher interpreter's codecrafters/cmd/parser.go (program/declaration/
// statement/expression cascade, match/consume/check/advance helpers) to
// the DSL's eleven expression precedence levels (spec.md §4.2).
package parser

import (
	"strconv"

	"github.com/sirupsen/logrus"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/token"
)

// ErrUnexpectedToken reports a token that does not fit the expected production.
var ErrUnexpectedToken = errors.NewKind("%s:%d: expected %s, found %s %q")

// ErrIfWithoutElse reports an `if` expression missing its mandatory `else`.
var ErrIfWithoutElse = errors.NewKind("%s:%d: 'if' expression requires an 'else' branch")

// ErrEmptyBranch reports a `{}` branch body, which the grammar rejects.
var ErrEmptyBranch = errors.NewKind("%s:%d: branch body cannot be empty")

// ErrVarTimesVar reports multiplying two variable-producing sub-expressions,
// a structural restriction enforced before semantic analysis.
var ErrVarTimesVar = errors.NewKind("%s:%d: multiplying two non-constant expressions is not allowed")

// ErrFunctionCallInComputable reports a `$Var(...)`/`@[Type]`/user function
// call appearing where only a computable (variable-free) expression is
// allowed (the upper bound of a range literal).
var ErrFunctionCallInComputable = errors.NewKind("%s:%d: function calls are not allowed in this context")

// Parser consumes a token slice produced by internal/lexer and builds an ast.File.
type Parser struct {
	module string
	log    *logrus.Entry
	toks   []token.Token
	idx    int
	errs   []error
	noCalls bool
}

// New creates a Parser over toks, attributing diagnostics to module.
func New(module string, toks []token.Token) *Parser {
	return &Parser{
		module: module,
		log:    logrus.WithField("component", "parser").WithField("module", module),
		toks:   toks,
	}
}

func (p *Parser) current() token.Token  { return p.toks[p.idx] }
func (p *Parser) previous() token.Token { return p.toks[p.idx-1] }
func (p *Parser) atEnd() bool           { return p.current().Type == token.EOF }

func (p *Parser) advance() token.Token {
	if !p.atEnd() {
		p.idx++
	}
	return p.previous()
}

func (p *Parser) check(t token.Type) bool {
	if p.atEnd() {
		return t == token.EOF
	}
	return p.current().Type == t
}

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) errorf(kind *errors.Kind, args ...interface{}) error {
	err := kind.New(args...)
	p.errs = append(p.errs, err)
	return err
}

func (p *Parser) consume(t token.Type, what string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	cur := p.current()
	err := p.errorf(ErrUnexpectedToken, p.module, cur.Line, what, cur.Type.String(), cur.Lexeme)
	return cur, err
}

func (p *Parser) span(start token.Token) ast.Span {
	end := p.previous()
	return ast.Span{Module: p.module, Start: start.Start, End: end.End, Line: start.Line}
}

// synchronize discards tokens until a plausible statement boundary, used
// to keep parsing after an error so multiple diagnostics can surface.
func (p *Parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == token.SEMICOLON {
			return
		}
		switch p.current().Type {
		case token.LET, token.REIFY, token.PUB:
			return
		}
		p.advance()
	}
}

// Parse runs the full parse and returns the File plus any parse errors
// (parsing resumes at the next statement boundary after an error).
func (p *Parser) Parse() (*ast.File, []error) {
	file := &ast.File{Module: p.module}
	for !p.atEnd() {
		stmt, err := p.statement()
		if err != nil {
			p.synchronize()
			continue
		}
		file.Stmts = append(file.Stmts, stmt)
	}
	p.log.WithField("statements", len(file.Stmts)).WithField("errors", len(p.errs)).Debug("parse complete")
	return file, p.errs
}

func (p *Parser) collectDoc() []string {
	var doc []string
	for p.check(token.DOCSTRING) {
		doc = append(doc, p.advance().Lexeme)
	}
	return doc
}

func (p *Parser) statement() (ast.Statement, error) {
	doc := p.collectDoc()
	public := p.match(token.PUB)
	switch {
	case p.check(token.LET):
		return p.letStmt(doc, public)
	case p.check(token.REIFY):
		return p.reifyStmt(doc, public)
	default:
		cur := p.current()
		return nil, p.errorf(ErrUnexpectedToken, p.module, cur.Line, "'let' or 'reify'", cur.Type.String(), cur.Lexeme)
	}
}

func (p *Parser) letStmt(doc []string, public bool) (ast.Statement, error) {
	start := p.advance() // 'let'
	name, err := p.consume(token.IDENTIFIER, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LEFT_PAREN, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.check(token.RIGHT_PAREN) {
		for {
			pname, err := p.consume(token.IDENTIFIER, "parameter name")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.COLON, "':'"); err != nil {
				return nil, err
			}
			ptype, err := p.typeExpr()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{
				Ident: pname.Lexeme,
				Name:  ast.Span{Module: p.module, Start: pname.Start, End: pname.End, Line: pname.Line},
				Type:  ptype,
			})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RIGHT_PAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ARROW, "'->'"); err != nil {
		return nil, err
	}
	retType, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EQUAL, "'='"); err != nil {
		return nil, err
	}
	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return nil, err
	}
	return &ast.LetStmt{
		SpanV:    p.span(start),
		Public:   public,
		Doc:      doc,
		Name:     name.Lexeme,
		NameSpan: ast.Span{Module: p.module, Start: name.Start, End: name.End, Line: name.Line},
		Params:   params,
		RetType:  retType,
		Body:     body,
	}, nil
}

func (p *Parser) reifyStmt(doc []string, public bool) (ast.Statement, error) {
	start := p.advance() // 'reify'
	var path []string
	ident, err := p.consume(token.IDENTIFIER, "function path")
	if err != nil {
		return nil, err
	}
	path = append(path, ident.Lexeme)
	for p.check(token.COLON) {
		// qualified path segments use "::"; our lexer emits two COLON tokens
		p.advance()
		if _, err := p.consume(token.COLON, "':'"); err != nil {
			return nil, err
		}
		seg, err := p.consume(token.IDENTIFIER, "path segment")
		if err != nil {
			return nil, err
		}
		path = append(path, seg.Lexeme)
	}
	if _, err := p.consume(token.AS, "'as'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.DOLLAR, "'$'"); err != nil {
		return nil, err
	}
	isList := false
	if p.match(token.LEFT_BRACKET) {
		isList = true
	}
	name, err := p.consume(token.IDENTIFIER, "variable name")
	if err != nil {
		return nil, err
	}
	if isList {
		if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "';'"); err != nil {
		return nil, err
	}
	return &ast.ReifyStmt{
		SpanV:   p.span(start),
		Public:  public,
		Doc:     doc,
		Path:    path,
		IsList:  isList,
		VarName: name.Lexeme,
	}, nil
}

func (p *Parser) typeExpr() (ast.TypeExpr, error) {
	start := p.current()
	t, err := p.typeAtom()
	if err != nil {
		return ast.TypeExpr{}, err
	}
	if p.match(token.QUESTION) {
		elem := t
		t = ast.TypeExpr{Span: p.span(start), Kind: ast.KindOptional, Elem: &elem}
	}
	if p.check(token.PIPE) {
		items := []ast.TypeExpr{t}
		for p.match(token.PIPE) {
			next, err := p.typeAtom()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			items = append(items, next)
		}
		t = ast.TypeExpr{Span: p.span(start), Kind: ast.KindSum, Items: items}
	}
	return t, nil
}

func (p *Parser) typeAtom() (ast.TypeExpr, error) {
	start := p.current()
	switch {
	case p.match(token.LEFT_BRACKET):
		elem, err := p.typeExpr()
		if err != nil {
			return ast.TypeExpr{}, err
		}
		if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Span: p.span(start), Kind: ast.KindList, Elem: &elem}, nil
	case p.match(token.LEFT_PAREN):
		var items []ast.TypeExpr
		for {
			it, err := p.typeExpr()
			if err != nil {
				return ast.TypeExpr{}, err
			}
			items = append(items, it)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.consume(token.RIGHT_PAREN, "')'"); err != nil {
			return ast.TypeExpr{}, err
		}
		return ast.TypeExpr{Span: p.span(start), Kind: ast.KindTuple, Items: items}, nil
	case p.check(token.IDENTIFIER):
		id := p.advance()
		return ast.TypeExpr{Span: p.span(start), Kind: ast.KindIdent, Ident: id.Lexeme}, nil
	default:
		cur := p.current()
		return ast.TypeExpr{}, p.errorf(ErrUnexpectedToken, p.module, cur.Line, "a type", cur.Type.String(), cur.Lexeme)
	}
}

// ---- Expressions: precedence climbing, lowest to highest (spec.md §4.2) ----

func (p *Parser) expression() (ast.Expr, error) { return p.exprImpl(false) }

// computableExpr parses an expression in a "computable" context (spec.md
// §9's Open Question #2, resolved in DESIGN.md): function calls, `$Var`
// references, and `@[Type]` are rejected here.
func (p *Parser) computableExpr() (ast.Expr, error) { return p.exprImpl(true) }

func (p *Parser) exprImpl(noCalls bool) (ast.Expr, error) {
	prev := p.noCalls
	p.noCalls = noCalls || prev
	defer func() { p.noCalls = prev }()
	return p.orExpr()
}

// noCalls is threaded through the recursive descent rather than passed as
// a parameter on every level, since only the leaves (primary/call) check it.
var _ = 0

func (p *Parser) orExpr() (ast.Expr, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.match(token.OR, token.OR_OR) {
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicOrExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) andExpr() (ast.Expr, error) {
	left, err := p.notExpr()
	if err != nil {
		return nil, err
	}
	for p.match(token.AND, token.AND_AND) {
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicAndExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) notExpr() (ast.Expr, error) {
	if p.check(token.NOT) || p.check(token.BANG) {
		start := p.advance()
		right, err := p.notExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: ast.Base{SpanV: p.span(start)}, Op: token.NOT, Right: right}, nil
	}
	return p.comparisonExpr()
}

var comparisonOps = map[token.Type]ast.BinOp{
	token.EQUAL_EQUAL:         ast.OpEq,
	token.BANG_EQUAL:          ast.OpNeq,
	token.LESS:                ast.OpLt,
	token.LESS_EQUAL:          ast.OpLte,
	token.GREATER:             ast.OpGt,
	token.GREATER_EQUAL:       ast.OpGte,
	token.EQUAL_EQUAL_EQUAL:   ast.OpConstraintEq,
	token.LESS_EQUAL_EQUAL:    ast.OpConstraintLte,
	token.GREATER_EQUAL_EQUAL: ast.OpConstraintGte,
}

func (p *Parser) comparisonExpr() (ast.Expr, error) {
	left, err := p.setExpr()
	if err != nil {
		return nil, err
	}
	for {
		if op, ok := comparisonOps[p.current().Type]; ok {
			p.advance()
			right, err := p.setExpr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
			continue
		}
		if p.match(token.IN) {
			right, err := p.setExpr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Op: ast.OpIn, Left: left, Right: right}
			continue
		}
		if p.match(token.NOT_IN) {
			right, err := p.setExpr()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Op: ast.OpNotIn, Left: left, Right: right}
			continue
		}
		break
	}
	return left, nil
}

var setOps = map[token.Type]ast.BinOp{
	token.UNION:     ast.OpUnion,
	token.INTER:      ast.OpInter,
	token.BACKSLASH: ast.OpDiff,
}

func (p *Parser) setExpr() (ast.Expr, error) {
	left, err := p.termExpr()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := setOps[p.current().Type]
		if !ok {
			break
		}
		p.advance()
		right, err := p.termExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) termExpr() (ast.Expr, error) {
	left, err := p.factorExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch {
		case p.match(token.PLUS):
			op = ast.OpAdd
		case p.match(token.MINUS):
			op = ast.OpSub
		default:
			return left, nil
		}
		right, err := p.factorExpr()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) factorExpr() (ast.Expr, error) {
	left, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch {
		case p.match(token.STAR):
			op = ast.OpMul
		case p.match(token.SLASHSLASH):
			op = ast.OpFloorDiv
		case p.match(token.PERCENT):
			op = ast.OpMod
		default:
			return left, nil
		}
		right, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		if op == ast.OpMul && !isConstExpr(left) && !isConstExpr(right) {
			return nil, p.errorf(ErrVarTimesVar, p.module, left.Span().Line)
		}
		left = &ast.BinaryExpr{Base: ast.Base{SpanV: ast.Join(left.Span(), right.Span())}, Op: op, Left: left, Right: right}
	}
}

// isConstExpr is a coarse structural check (spec.md's "variable x variable
// multiplication" restriction is refined precisely by semantic analysis;
// the parser only rejects the unambiguous case of two non-literal operands).
func isConstExpr(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLit, *ast.BoolLit:
		return true
	case *ast.UnaryExpr:
		return isConstExpr(e.(*ast.UnaryExpr).Right)
	case *ast.ParenExpr:
		return isConstExpr(e.(*ast.ParenExpr).Inner)
	}
	return false
}

func (p *Parser) unaryExpr() (ast.Expr, error) {
	if p.check(token.MINUS) {
		start := p.advance()
		right, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: ast.Base{SpanV: p.span(start)}, Op: token.MINUS, Right: right}, nil
	}
	return p.cardinalityExpr()
}

func (p *Parser) cardinalityExpr() (ast.Expr, error) {
	if p.check(token.PIPE) {
		start := p.advance()
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.PIPE, "closing '|'"); err != nil {
			return nil, err
		}
		return &ast.CardinalityExpr{Base: ast.Base{SpanV: p.span(start)}, Inner: inner}, nil
	}
	return p.postfixExpr()
}

func (p *Parser) postfixExpr() (ast.Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		start := p.current()
		switch {
		case p.match(token.DOT):
			if p.check(token.NUMBER) {
				idxTok := p.advance()
				idx, _ := strconv.Atoi(idxTok.Lexeme)
				e = &ast.TupleIndex{Base: ast.Base{SpanV: p.span(start)}, Object: e, Index: idx}
				continue
			}
			name, err := p.consume(token.IDENTIFIER, "field name")
			if err != nil {
				return nil, err
			}
			e = &ast.FieldAccess{Base: ast.Base{SpanV: p.span(start)}, Object: e, Name: name.Lexeme}
		case p.match(token.LEFT_BRACKET):
			idx, err := p.expression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
				return nil, err
			}
			e = &ast.IndexExpr{Base: ast.Base{SpanV: p.span(start)}, Object: e, Index: idx}
		case p.match(token.AS):
			typ, err := p.typeExpr()
			if err != nil {
				return nil, err
			}
			e = &ast.CastExpr{Base: ast.Base{SpanV: p.span(start)}, Inner: e, Type: typ}
		case p.match(token.QUESTIONQUESTION):
			right, err := p.postfixExpr()
			if err != nil {
				return nil, err
			}
			e = &ast.CoalesceExpr{Base: ast.Base{SpanV: p.span(start)}, Left: e, Right: right}
		default:
			return e, nil
		}
	}
}

func (p *Parser) primary() (ast.Expr, error) {
	start := p.current()
	switch {
	case p.match(token.NUMBER):
		lit := p.previous()
		v, err := strconv.ParseInt(lit.Lexeme, 10, 64)
		if err != nil {
			return nil, p.errorf(ErrUnexpectedToken, p.module, lit.Line, "a valid integer literal", "NUMBER", lit.Lexeme)
		}
		return &ast.IntLit{Base: ast.Base{SpanV: p.span(start)}, Value: v}, nil
	case p.match(token.TRUE):
		return &ast.BoolLit{Base: ast.Base{SpanV: p.span(start)}, Value: true}, nil
	case p.match(token.FALSE):
		return &ast.BoolLit{Base: ast.Base{SpanV: p.span(start)}, Value: false}, nil
	case p.match(token.NONE):
		return &ast.NoneLit{Base: ast.Base{SpanV: p.span(start)}}, nil
	case p.match(token.STRING):
		lit := p.previous()
		return &ast.StringLit{Base: ast.Base{SpanV: p.span(start)}, Value: lit.Literal}, nil
	case p.match(token.RAW_STRING):
		lit := p.previous()
		return &ast.StringLit{Base: ast.Base{SpanV: p.span(start)}, Value: lit.Literal, Raw: true}, nil
	case p.check(token.DOLLAR):
		return p.varRef()
	case p.check(token.AT):
		return p.globalColl()
	case p.check(token.IF):
		return p.ifExpr()
	case p.check(token.FORALL):
		return p.forallExpr()
	case p.check(token.SUM):
		return p.sumExpr()
	case p.check(token.LET):
		return p.letInExpr()
	case p.check(token.MATCH):
		return p.matchExpr()
	case p.check(token.LEFT_BRACKET):
		return p.listLike()
	case p.match(token.LEFT_PAREN):
		return p.parenOrTuple(start)
	case p.check(token.IDENTIFIER):
		return p.identOrCall()
	default:
		cur := p.current()
		return nil, p.errorf(ErrUnexpectedToken, p.module, cur.Line, "an expression", cur.Type.String(), cur.Lexeme)
	}
}

func (p *Parser) varRef() (ast.Expr, error) {
	if p.noCalls {
		cur := p.current()
		return nil, p.errorf(ErrFunctionCallInComputable, p.module, cur.Line)
	}
	start := p.advance() // '$'
	name, err := p.consume(token.IDENTIFIER, "variable name")
	if err != nil {
		return nil, err
	}
	args, err := p.argList()
	if err != nil {
		return nil, err
	}
	return &ast.VarRef{Base: ast.Base{SpanV: p.span(start)}, Name: name.Lexeme, Args: args}, nil
}

func (p *Parser) globalColl() (ast.Expr, error) {
	if p.noCalls {
		cur := p.current()
		return nil, p.errorf(ErrFunctionCallInComputable, p.module, cur.Line)
	}
	start := p.advance() // '@'
	if _, err := p.consume(token.LEFT_BRACKET, "'['"); err != nil {
		return nil, err
	}
	name, err := p.consume(token.IDENTIFIER, "type name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
		return nil, err
	}
	return &ast.GlobalColl{Base: ast.Base{SpanV: p.span(start)}, TypeName: name.Lexeme}, nil
}

func (p *Parser) argList() ([]ast.Expr, error) {
	if _, err := p.consume(token.LEFT_PAREN, "'('"); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.check(token.RIGHT_PAREN) {
		for {
			a, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RIGHT_PAREN, "')'"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) identOrCall() (ast.Expr, error) {
	start := p.current()
	var path []string
	id := p.advance()
	path = append(path, id.Lexeme)
	for p.check(token.COLON) {
		save := p.idx
		p.advance()
		if !p.match(token.COLON) {
			p.idx = save
			break
		}
		seg, err := p.consume(token.IDENTIFIER, "path segment")
		if err != nil {
			return nil, err
		}
		path = append(path, seg.Lexeme)
	}
	if p.check(token.LEFT_PAREN) {
		if p.noCalls {
			cur := p.current()
			return nil, p.errorf(ErrFunctionCallInComputable, p.module, cur.Line)
		}
		args, err := p.argList()
		if err != nil {
			return nil, err
		}
		return &ast.CallExpr{Base: ast.Base{SpanV: p.span(start)}, Path: path, Args: args}, nil
	}
	if len(path) > 1 {
		cur := p.current()
		return nil, p.errorf(ErrUnexpectedToken, p.module, cur.Line, "'(' after qualified path", cur.Type.String(), cur.Lexeme)
	}
	return &ast.Ident{Base: ast.Base{SpanV: p.span(start)}, Name: id.Lexeme}, nil
}

func (p *Parser) parenOrTuple(start token.Token) (ast.Expr, error) {
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	if p.match(token.COMMA) {
		items := []ast.Expr{first}
		for {
			it, err := p.expression()
			if err != nil {
				return nil, err
			}
			items = append(items, it)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.consume(token.RIGHT_PAREN, "')'"); err != nil {
			return nil, err
		}
		return &ast.TupleLit{Base: ast.Base{SpanV: p.span(start)}, Elements: items}, nil
	}
	if _, err := p.consume(token.RIGHT_PAREN, "')'"); err != nil {
		return nil, err
	}
	return &ast.ParenExpr{Base: ast.Base{SpanV: p.span(start)}, Inner: first}, nil
}

func (p *Parser) listLike() (ast.Expr, error) {
	start := p.advance() // '['
	if p.match(token.RIGHT_BRACKET) {
		return &ast.ListLit{Base: ast.Base{SpanV: p.span(start)}}, nil
	}
	first, err := p.expression()
	if err != nil {
		return nil, err
	}
	switch {
	case p.match(token.DOTDOT):
		// range bounds are a "computable" context (spec.md §4.2's
		// structural restriction, resolved in DESIGN.md): no $Var/@[Type]/
		// function-call sub-expressions.
		hi, err := p.computableExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
			return nil, err
		}
		return &ast.RangeLit{Base: ast.Base{SpanV: p.span(start)}, Lo: first, Hi: hi}, nil
	case p.check(token.FOR):
		p.advance()
		v, err := p.consume(token.IDENTIFIER, "comprehension variable")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.IN, "'in'"); err != nil {
			return nil, err
		}
		coll, err := p.expression()
		if err != nil {
			return nil, err
		}
		var where ast.Expr
		if p.match(token.WHERE) {
			where, err = p.expression()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
			return nil, err
		}
		return &ast.ListComprehension{
			Base: ast.Base{SpanV: p.span(start)}, Body: first, Var: v.Lexeme,
			VarSpan: ast.Span{Module: p.module, Start: v.Start, End: v.End, Line: v.Line},
			Collection: coll, Where: where,
		}, nil
	default:
		elems := []ast.Expr{first}
		for p.match(token.COMMA) {
			e, err := p.expression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.consume(token.RIGHT_BRACKET, "']'"); err != nil {
			return nil, err
		}
		return &ast.ListLit{Base: ast.Base{SpanV: p.span(start)}, Elements: elems}, nil
	}
}

func (p *Parser) ifExpr() (ast.Expr, error) {
	start := p.advance() // 'if'
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	then, err := p.braceBody()
	if err != nil {
		return nil, err
	}
	if !p.check(token.ELSE) {
		cur := p.current()
		return nil, p.errorf(ErrIfWithoutElse, p.module, cur.Line)
	}
	p.advance()
	elseB, err := p.braceBody()
	if err != nil {
		return nil, err
	}
	return &ast.IfExpr{Base: ast.Base{SpanV: p.span(start)}, Cond: cond, Then: then, Else: elseB}, nil
}

// braceBody parses `{ expr }`, rejecting an empty body (spec.md's
// "empty branches" structural restriction).
func (p *Parser) braceBody() (ast.Expr, error) {
	if _, err := p.consume(token.LEFT_BRACE, "'{'"); err != nil {
		return nil, err
	}
	if p.check(token.RIGHT_BRACE) {
		cur := p.current()
		return nil, p.errorf(ErrEmptyBranch, p.module, cur.Line)
	}
	body, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RIGHT_BRACE, "'}'"); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *Parser) forallExpr() (ast.Expr, error) {
	start := p.advance() // 'forall'
	v, err := p.consume(token.IDENTIFIER, "loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.IN, "'in'"); err != nil {
		return nil, err
	}
	coll, err := p.expression()
	if err != nil {
		return nil, err
	}
	var where ast.Expr
	if p.match(token.WHERE) {
		where, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.braceBody()
	if err != nil {
		return nil, err
	}
	return &ast.ForallExpr{
		Base: ast.Base{SpanV: p.span(start)}, Var: v.Lexeme,
		VarSpan:    ast.Span{Module: p.module, Start: v.Start, End: v.End, Line: v.Line},
		Collection: coll, Where: where, Body: body,
	}, nil
}

func (p *Parser) sumExpr() (ast.Expr, error) {
	start := p.advance() // 'sum'
	v, err := p.consume(token.IDENTIFIER, "loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.IN, "'in'"); err != nil {
		return nil, err
	}
	coll, err := p.expression()
	if err != nil {
		return nil, err
	}
	var where ast.Expr
	if p.match(token.WHERE) {
		where, err = p.expression()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.braceBody()
	if err != nil {
		return nil, err
	}
	return &ast.SumExpr{
		Base: ast.Base{SpanV: p.span(start)}, Var: v.Lexeme,
		VarSpan:    ast.Span{Module: p.module, Start: v.Start, End: v.End, Line: v.Line},
		Collection: coll, Where: where, Body: body,
	}, nil
}

func (p *Parser) letInExpr() (ast.Expr, error) {
	start := p.advance() // 'let'
	name, err := p.consume(token.IDENTIFIER, "binding name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.EQUAL, "'='"); err != nil {
		return nil, err
	}
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	body, err := p.braceBody()
	if err != nil {
		return nil, err
	}
	return &ast.LetInExpr{
		Base: ast.Base{SpanV: p.span(start)}, Name: name.Lexeme,
		NameSpan: ast.Span{Module: p.module, Start: name.Start, End: name.End, Line: name.Line},
		Value:    value, Body: body,
	}, nil
}

func (p *Parser) matchExpr() (ast.Expr, error) {
	start := p.advance() // 'match'
	scrutinee, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LEFT_BRACE, "'{'"); err != nil {
		return nil, err
	}
	var arms []ast.MatchArm
	for !p.check(token.RIGHT_BRACE) {
		armStart := p.current()
		pat, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		v, err := p.consume(token.IDENTIFIER, "binding name")
		if err != nil {
			return nil, err
		}
		body, err := p.braceBody()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.MatchArm{
			Pattern: pat, Var: v.Lexeme,
			VarSpan: ast.Span{Module: p.module, Start: v.Start, End: v.End, Line: v.Line},
			Body:    body, Span: p.span(armStart),
		})
	}
	if _, err := p.consume(token.RIGHT_BRACE, "'}'"); err != nil {
		return nil, err
	}
	return &ast.MatchExpr{Base: ast.Base{SpanV: p.span(start)}, Scrutinee: scrutinee, Arms: arms}, nil
}
