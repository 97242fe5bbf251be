// Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"strconv"
	"strings"

	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/diag"
	"github.com/lython-go/lython/internal/token"
)

// opInfo is one entry of the operator-precedence table (spec.md §4.4):
// precedence climbs bottom to top, `or < and < ... < shifts < +- < */ <
// unary < ** < await < call/subscript/attr < atom`.
type opInfo struct {
	prec      int
	leftAssoc bool
}

// binOps maps a binary-operator token kind to its precedence entry.
// `**` is the one right-associative entry (spec.md §4.4).
var binOps = map[token.Kind]opInfo{
	token.Pipe:    {4, true},
	token.Caret:   {5, true},
	token.Amp:     {6, true},
	token.LShift:  {7, true},
	token.RShift:  {7, true},
	token.Plus:    {8, true},
	token.Minus:   {8, true},
	token.Star:    {9, true},
	token.Slash:   {9, true},
	token.DSlash:  {9, true},
	token.Percent: {9, true},
	token.DStar:   {11, false},
}

// cmpOps is every comparison-operator spelling, each producing a
// Compare node rather than a BinOp (chainable: `a < b < c`).
var cmpOps = map[token.Kind]string{
	token.Lt: "<", token.Gt: ">", token.Le: "<=", token.Ge: ">=",
	token.Eq: "==", token.Ne: "!=",
}

// parseExpressionList parses a single expression, or, if followed by
// a comma, an implicit tuple (`a, b, c`), used for assignment RHS,
// return values, and for-loop iterables.
func (p *Parser) parseExpressionList() ast.Expression {
	first := p.parseExpression()
	if p.cur.Kind != token.Comma {
		return first
	}
	elts := []ast.Expression{first}
	for p.cur.Kind == token.Comma {
		p.advance()
		if p.atExpressionListEnd() {
			break
		}
		elts = append(elts, p.parseExpression())
	}
	return &ast.Tuple{Elts: elts, Ctx: ast.Load}
}

func (p *Parser) atExpressionListEnd() bool {
	switch p.cur.Kind {
	case token.Newline, token.Semi, token.EOF, token.Dedent, token.Colon,
		token.RParen, token.RSquare, token.RCurly, token.Assign, token.In:
		return true
	}
	return false
}

// parseExpression is the top-level entry: a single conditional
// expression, lambda, or the top of the precedence climb.
func (p *Parser) parseExpression() ast.Expression {
	if p.cur.Kind == token.Lambda {
		return p.parseLambda()
	}
	body := p.parseOrExpr()
	if p.cur.Kind == token.If {
		return p.parseIfExp(body)
	}
	return body
}

func (p *Parser) parseIfExp(body ast.Expression) ast.Expression {
	pos := body.Position()
	p.advance() // 'if'
	test := p.parseOrExpr()
	var orelse ast.Expression
	if p.cur.Kind == token.Else {
		p.advance()
		orelse = p.parseExpression()
	} else {
		p.errorf(diag.ParseError, "expected else in conditional expression")
	}
	return at(pos, &ast.IfExp{Test: test, Body: body, Orelse: orelse})
}

func (p *Parser) parseLambda() ast.Expression {
	pos := p.pos()
	p.advance()
	args := &ast.Arguments{}
	if p.cur.Kind != token.Colon {
		args = p.parseParameters()
	}
	p.expect(token.Colon)
	body := p.parseExpression()
	return at(pos, &ast.Lambda{Args: args, Body: body})
}

func (p *Parser) parseOrExpr() ast.Expression {
	pos := p.pos()
	left := p.parseAndExpr()
	if p.cur.Kind != token.Or {
		return left
	}
	values := []ast.Expression{left}
	for p.cur.Kind == token.Or {
		p.advance()
		values = append(values, p.parseAndExpr())
	}
	return at(pos, &ast.BoolOp{Op: "or", Values: values})
}

func (p *Parser) parseAndExpr() ast.Expression {
	pos := p.pos()
	left := p.parseNotExpr()
	if p.cur.Kind != token.And {
		return left
	}
	values := []ast.Expression{left}
	for p.cur.Kind == token.And {
		p.advance()
		values = append(values, p.parseNotExpr())
	}
	return at(pos, &ast.BoolOp{Op: "and", Values: values})
}

func (p *Parser) parseNotExpr() ast.Expression {
	if p.cur.Kind == token.Not {
		pos := p.pos()
		p.advance()
		operand := p.parseNotExpr()
		return at(pos, &ast.UnaryOp{Op: "not", Operand: operand})
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expression {
	pos := p.pos()
	left := p.parseBinary(0)
	var ops []string
	var comparators []ast.Expression
	for {
		op, ok := p.tryConsumeCompareOp()
		if !ok {
			break
		}
		ops = append(ops, op)
		comparators = append(comparators, p.parseBinary(0))
	}
	if len(ops) == 0 {
		return left
	}
	return at(pos, &ast.Compare{Left: left, Ops: ops, Comparators: comparators})
}

func (p *Parser) tryConsumeCompareOp() (string, bool) {
	if sym, ok := cmpOps[p.cur.Kind]; ok {
		p.advance()
		return sym, true
	}
	if p.cur.Kind == token.In {
		p.advance()
		return "in", true
	}
	if p.cur.Kind == token.Not && p.peek.Kind == token.In {
		p.advance()
		p.advance()
		return "not in", true
	}
	if p.cur.Kind == token.Is {
		p.advance()
		if p.cur.Kind == token.Not {
			p.advance()
			return "is not", true
		}
		return "is", true
	}
	return "", false
}

// parseBinary climbs the binary-operator precedence table starting at
// minPrec, per spec.md §4.6's "min_precedence = op.precedence +
// (left_assoc ? 1 : 0)" recursion rule.
func (p *Parser) parseBinary(minPrec int) ast.Expression {
	left := p.parseUnary()
	for {
		info, ok := binOps[p.cur.Kind]
		if !ok || info.prec < minPrec {
			return left
		}
		opTok := p.advance()
		nextMin := info.prec
		if info.leftAssoc {
			nextMin++
		}
		right := p.parseBinary(nextMin)
		pos := left.Position()
		left = at(pos, &ast.BinOp{Left: left, Op: opSpelling(opTok.Kind), Right: right})
	}
}

func opSpelling(k token.Kind) string {
	switch k {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.Slash:
		return "/"
	case token.DSlash:
		return "//"
	case token.Percent:
		return "%"
	case token.DStar:
		return "**"
	case token.Amp:
		return "&"
	case token.Pipe:
		return "|"
	case token.Caret:
		return "^"
	case token.LShift:
		return "<<"
	case token.RShift:
		return ">>"
	}
	return k.String()
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur.Kind {
	case token.Plus, token.Minus, token.Tilde:
		pos := p.pos()
		opTok := p.advance()
		operand := p.parseUnary()
		return at(pos, &ast.UnaryOp{Op: opSpelling(opTok.Kind), Operand: operand})
	case token.Await:
		pos := p.pos()
		p.advance()
		value := p.parseUnary()
		return at(pos, &ast.Await{Value: value})
	}
	return p.parsePower()
}

// parsePower binds `**` tighter than unary minus on its left side but
// allows a unary operand on the right (`-2 ** 2 == -4`, `2 ** -2`),
// matching Python's rule.
func (p *Parser) parsePower() ast.Expression {
	base := p.parsePostfix()
	if p.cur.Kind == token.DStar {
		pos := base.Position()
		p.advance()
		exponent := p.parseUnary()
		return at(pos, &ast.BinOp{Left: base, Op: "**", Right: exponent})
	}
	return base
}

// parsePostfix parses a primary expression followed by any chain of
// call/subscript/attribute-access suffixes (spec.md §4.4's highest
// non-atom precedence tier).
func (p *Parser) parsePostfix() ast.Expression {
	expr := p.parsePrimary()
	for {
		switch p.cur.Kind {
		case token.LParen:
			expr = p.parseCall(expr)
		case token.Dot:
			pos := expr.Position()
			p.advance()
			attr := p.parseIdentName()
			expr = at(pos, &ast.Attribute{Value: expr, Attr: attr})
		case token.LSquare:
			pos := expr.Position()
			p.advance()
			index := p.parseSubscript()
			p.expect(token.RSquare)
			expr = at(pos, &ast.Subscript{Value: expr, Index: index})
		default:
			return expr
		}
	}
}

func (p *Parser) parseSubscript() ast.Expression {
	var lower, upper, step ast.Expression
	isSlice := false
	if p.cur.Kind != token.Colon {
		lower = p.parseExpression()
	}
	if p.cur.Kind == token.Colon {
		isSlice = true
		p.advance()
		if p.cur.Kind != token.Colon && p.cur.Kind != token.RSquare {
			upper = p.parseExpression()
		}
		if p.cur.Kind == token.Colon {
			p.advance()
			if p.cur.Kind != token.RSquare {
				step = p.parseExpression()
			}
		}
	}
	if !isSlice {
		return lower
	}
	return &ast.Slice{Lower: lower, Upper: upper, Step: step}
}

func (p *Parser) parseCall(fn ast.Expression) ast.Expression {
	pos := fn.Position()
	p.advance() // '('
	var args []ast.Expression
	var keywords []*ast.Keyword
	for p.cur.Kind != token.RParen && p.cur.Kind != token.EOF {
		switch {
		case p.cur.Kind == token.Star:
			p.advance()
			args = append(args, &ast.Starred{Value: p.parseExpression()})
		case p.cur.Kind == token.DStar:
			p.advance()
			keywords = append(keywords, &ast.Keyword{Value: p.parseExpression()})
		case p.cur.Kind == token.Identifier && p.peek.Kind == token.Assign:
			name := p.advance().Text
			p.advance() // '='
			keywords = append(keywords, &ast.Keyword{Name: name, Value: p.parseExpression()})
		default:
			args = append(args, p.parseExpression())
		}
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.expect(token.RParen)
	return at(pos, &ast.Call{Func: fn, Args: args, Keywords: keywords})
}

//
// Primary expressions
//

func (p *Parser) parsePrimary() ast.Expression {
	pos := p.pos()
	switch p.cur.Kind {
	case token.Int:
		return p.parseIntLiteral(pos)
	case token.Float:
		return p.parseFloatLiteral(pos)
	case token.String:
		t := p.advance()
		return at(pos, &ast.Constant{Kind: ast.ConstStr, S: t.Text})
	case token.Docstring:
		t := p.advance()
		return at(pos, &ast.Constant{Kind: ast.ConstStr, S: t.Text})
	case token.FString:
		return p.parseFString()
	case token.True:
		p.advance()
		return at(pos, &ast.Constant{Kind: ast.ConstBool, B: true})
	case token.False:
		p.advance()
		return at(pos, &ast.Constant{Kind: ast.ConstBool, B: false})
	case token.None:
		p.advance()
		return at(pos, &ast.Constant{Kind: ast.ConstNone})
	case token.Identifier:
		t := p.advance()
		return at(pos, &ast.Name{Id: t.Text, Ctx: ast.Load, Varid: -1})
	case token.LParen:
		return p.parseParenForm()
	case token.LSquare:
		return p.parseListForm()
	case token.LCurly:
		return p.parseBraceForm()
	case token.Yield:
		return p.parseYield()
	case token.If:
		// extension form: `if test: body else orelse`
		p.advance()
		test := p.parseOrExpr()
		p.expect(token.Colon)
		body := p.parseExpression()
		var orelse ast.Expression
		if _, ok := p.expect(token.Else); ok {
			orelse = p.parseExpression()
		}
		return at(pos, &ast.IfExp{Test: test, Body: body, Orelse: orelse})
	default:
		p.errorf(diag.ParseError, "unexpected token %s in expression", p.cur.Kind)
		msg := "unexpected token: " + p.cur.Kind.String()
		if p.cur.Kind != token.Newline && p.cur.Kind != token.EOF {
			p.advance()
		}
		return at(pos, &ast.NotImplementedExpr{Message: msg})
	}
}

func (p *Parser) parseIntLiteral(pos ast.Pos) ast.Expression {
	t := p.advance()
	text := strings.ReplaceAll(t.Text, "_", "")
	var v int64
	var err error
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		v, err = strconv.ParseInt(text[2:], 16, 64)
	case strings.HasPrefix(text, "0o") || strings.HasPrefix(text, "0O"):
		v, err = strconv.ParseInt(text[2:], 8, 64)
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		v, err = strconv.ParseInt(text[2:], 2, 64)
	default:
		v, err = strconv.ParseInt(text, 10, 64)
	}
	if err != nil {
		p.errorf(diag.ParseError, "invalid integer literal %q", t.Text)
	}
	return at(pos, &ast.Constant{Kind: ast.ConstInt, I: v})
}

func (p *Parser) parseFloatLiteral(pos ast.Pos) ast.Expression {
	t := p.advance()
	text := strings.ReplaceAll(t.Text, "_", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.errorf(diag.ParseError, "invalid float literal %q", t.Text)
	}
	return at(pos, &ast.Constant{Kind: ast.ConstFloat, F: v})
}

func (p *Parser) parseYield() ast.Expression {
	pos := p.pos()
	p.advance()
	if p.cur.Kind == token.From {
		p.advance()
		return at(pos, &ast.YieldFrom{Value: p.parseExpression()})
	}
	if p.atExpressionListEnd() {
		return at(pos, &ast.Yield{})
	}
	return at(pos, &ast.Yield{Value: p.parseExpressionList()})
}

// parseParenForm handles `(expr)`, `()` (empty tuple), `(a,)` and
// `(a, b, ...)` tuples, and generator expressions `(expr for ...)`.
func (p *Parser) parseParenForm() ast.Expression {
	pos := p.pos()
	p.advance() // '('
	if p.cur.Kind == token.RParen {
		p.advance()
		return at(pos, &ast.Tuple{})
	}
	first := p.parseExpression()
	if p.cur.Kind == token.For || (p.cur.Kind == token.Async && p.peek.Kind == token.For) {
		gens := p.parseComprehensionClauses()
		p.expect(token.RParen)
		return at(pos, &ast.GeneratorExp{Elt: first, Generators: gens})
	}
	if p.cur.Kind != token.Comma {
		p.expect(token.RParen)
		return first
	}
	elts := []ast.Expression{first}
	for p.cur.Kind == token.Comma {
		p.advance()
		if p.cur.Kind == token.RParen {
			break
		}
		elts = append(elts, p.parseExpression())
	}
	p.expect(token.RParen)
	return at(pos, &ast.Tuple{Elts: elts})
}

// parseListForm handles `[a, b]` list literals and list comprehensions.
func (p *Parser) parseListForm() ast.Expression {
	pos := p.pos()
	p.advance() // '['
	if p.cur.Kind == token.RSquare {
		p.advance()
		return at(pos, &ast.List{})
	}
	first := p.parseExpression()
	if p.cur.Kind == token.For || (p.cur.Kind == token.Async && p.peek.Kind == token.For) {
		gens := p.parseComprehensionClauses()
		p.expect(token.RSquare)
		return at(pos, &ast.ListComp{Elt: first, Generators: gens})
	}
	elts := []ast.Expression{first}
	for p.cur.Kind == token.Comma {
		p.advance()
		if p.cur.Kind == token.RSquare {
			break
		}
		elts = append(elts, p.parseExpression())
	}
	p.expect(token.RSquare)
	return at(pos, &ast.List{Elts: elts})
}

// parseBraceForm handles `{k: v}` dict literals/comprehensions and
// `{a, b}` set literals/comprehensions.
func (p *Parser) parseBraceForm() ast.Expression {
	pos := p.pos()
	p.advance() // '{'
	if p.cur.Kind == token.RCurly {
		p.advance()
		return at(pos, &ast.Dict{})
	}
	if p.cur.Kind == token.DStar {
		p.advance()
		entries := []*ast.DictEntry{{Value: p.parseExpression()}}
		for p.cur.Kind == token.Comma {
			p.advance()
			if p.cur.Kind == token.RCurly {
				break
			}
			entries = append(entries, p.parseDictEntry())
		}
		p.expect(token.RCurly)
		return at(pos, &ast.Dict{Entries: entries})
	}
	first := p.parseExpression()
	if p.cur.Kind == token.Colon {
		p.advance()
		firstVal := p.parseExpression()
		if p.cur.Kind == token.For || (p.cur.Kind == token.Async && p.peek.Kind == token.For) {
			gens := p.parseComprehensionClauses()
			p.expect(token.RCurly)
			return at(pos, &ast.DictComp{Key: first, Value: firstVal, Generators: gens})
		}
		entries := []*ast.DictEntry{{Key: first, Value: firstVal}}
		for p.cur.Kind == token.Comma {
			p.advance()
			if p.cur.Kind == token.RCurly {
				break
			}
			entries = append(entries, p.parseDictEntry())
		}
		p.expect(token.RCurly)
		return at(pos, &ast.Dict{Entries: entries})
	}
	if p.cur.Kind == token.For || (p.cur.Kind == token.Async && p.peek.Kind == token.For) {
		gens := p.parseComprehensionClauses()
		p.expect(token.RCurly)
		return at(pos, &ast.SetComp{Elt: first, Generators: gens})
	}
	elts := []ast.Expression{first}
	for p.cur.Kind == token.Comma {
		p.advance()
		if p.cur.Kind == token.RCurly {
			break
		}
		elts = append(elts, p.parseExpression())
	}
	p.expect(token.RCurly)
	return at(pos, &ast.Set{Elts: elts})
}

func (p *Parser) parseDictEntry() *ast.DictEntry {
	if p.cur.Kind == token.DStar {
		p.advance()
		return &ast.DictEntry{Value: p.parseExpression()}
	}
	key := p.parseExpression()
	p.expect(token.Colon)
	value := p.parseExpression()
	return &ast.DictEntry{Key: key, Value: value}
}

// parseComprehensionClauses parses one or more `[async] for target in
// iter [if cond]*` clauses shared by every comprehension form.
func (p *Parser) parseComprehensionClauses() []*ast.Comprehension {
	var out []*ast.Comprehension
	for p.cur.Kind == token.For || p.cur.Kind == token.Async {
		isAsync := false
		if p.cur.Kind == token.Async {
			p.advance()
			isAsync = true
		}
		p.expect(token.For)
		target := p.parseTargetList()
		p.expect(token.In)
		iter := p.parseOrExpr()
		var ifs []ast.Expression
		for p.cur.Kind == token.If {
			p.advance()
			ifs = append(ifs, p.parseOrExpr())
		}
		out = append(out, &ast.Comprehension{Target: target, Iter: iter, Ifs: ifs, IsAsync: isAsync})
	}
	return out
}

//
// Parameter lists (def / lambda)
//

func (p *Parser) parseParameters() *ast.Arguments {
	args := &ast.Arguments{Defaults: map[string]ast.Expression{}}
	seenStar := false
	for p.cur.Kind != token.RParen && p.cur.Kind != token.Colon && p.cur.Kind != token.EOF {
		switch p.cur.Kind {
		case token.Slash:
			p.advance()
			args.PositionalOnly = args.Positional
			args.Positional = nil
		case token.Star:
			p.advance()
			seenStar = true
			if p.cur.Kind == token.Identifier {
				args.Vararg = p.parseArg()
			}
		case token.DStar:
			p.advance()
			args.Kwarg = p.parseArg()
		default:
			arg := p.parseArg()
			if p.cur.Kind == token.Assign {
				p.advance()
				args.Defaults[arg.Name] = p.parseExpression()
			}
			if seenStar {
				args.KeywordOnly = append(args.KeywordOnly, arg)
			} else {
				args.Positional = append(args.Positional, arg)
			}
		}
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	return args
}

func (p *Parser) parseArg() *ast.Arg {
	name := p.parseIdentName()
	arg := &ast.Arg{Name: name}
	if p.cur.Kind == token.Colon {
		p.advance()
		arg.Annotation = p.parseExpression()
	}
	return arg
}
