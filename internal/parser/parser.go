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

// Package parser implements a hand-written recursive-descent parser with
// Pratt-style operator-precedence climbing (spec.md §4.6), grounded on
// original_source/src/parser/parser.h. It is deliberately single-pass
// (SPEC_FULL.md §9 resolves the source's "two-pass vs. single-pass"
// question in favor of single-pass): each grammar production directly
// builds the complete node for that form, with error recovery inserting
// sentinel nodes (ast.InvalidStatement, ast.NotImplementedExpr) and
// continuing rather than aborting the whole parse.
package parser

import (
	"fmt"

	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/diag"
	"github.com/lython-go/lython/internal/lexer"
	"github.com/lython-go/lython/internal/token"
)

// Parser holds all mutable parsing state: the lexer, a one-token
// lookahead buffer already provided by lexer.TokenSource, the
// async-function-nesting depth (spec.md §4.6 "a stack of async
// flags"), and the accumulated diagnostics.
type Parser struct {
	src  lexer.TokenSource
	file string
	diag diag.Bag

	cur  token.Token
	peek token.Token

	asyncDepth int
}

// New creates a Parser reading tokens from src. file is used only for
// diagnostic locations.
func New(src lexer.TokenSource, file string) *Parser {
	p := &Parser{src: src, file: file}
	p.cur = p.src.Next()
	p.peek = p.src.Peek()
	return p
}

// Diagnostics returns every diagnostic collected during the parse.
func (p *Parser) Diagnostics() *diag.Bag { return &p.diag }

// ParseModule parses an entire source unit, always returning a non-nil
// *ast.Module even in the presence of errors (spec.md §7: "callers
// inspect has_errors() before using the module").
func (p *Parser) ParseModule() *ast.Module {
	m := &ast.Module{}
	for p.cur.Kind != token.EOF {
		if p.cur.Kind == token.Newline {
			p.advance()
			continue
		}
		m.Body = append(m.Body, p.parseStatement())
	}
	return m
}

func (p *Parser) advance() token.Token {
	t := p.cur
	p.cur = p.src.Next()
	p.peek = p.src.Peek()
	return t
}

// expect consumes the current token if it has kind k, else records a
// ParseError diagnostic and returns false without consuming, letting
// the caller decide how to recover.
func (p *Parser) expect(k token.Kind) (token.Token, bool) {
	if p.cur.Kind != k {
		p.errorf(diag.ParseError, "expected %s, got %s", k, p.cur.Kind)
		return token.Token{}, false
	}
	return p.advance(), true
}

func (p *Parser) errorf(kind diag.Kind, format string, args ...any) {
	p.diag.Addf(kind, p.file, p.cur.Line, p.cur.Col, format, args...)
}

// syncToStatementBoundary advances past tokens until a NEWLINE/DEDENT/
// EOF is seen, so a malformed statement doesn't cascade into its
// siblings (spec.md §4.6 "Error recovery").
func (p *Parser) syncToStatementBoundary() {
	for p.cur.Kind != token.Newline && p.cur.Kind != token.Dedent && p.cur.Kind != token.EOF {
		p.advance()
	}
	if p.cur.Kind == token.Newline {
		p.advance()
	}
}

// pos captures the current token's location as an ast.Pos.
func (p *Parser) pos() ast.Pos { return ast.Pos{Line: p.cur.Line, Col: p.cur.Col} }

//
// Statements
//

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur.Kind {
	case token.Def:
		return p.parseFunctionDef(nil, false)
	case token.Async:
		return p.parseAsync()
	case token.Class:
		return p.parseClassDef(nil)
	case token.Return:
		return p.parseReturn()
	case token.If:
		return p.parseIf()
	case token.For:
		return p.parseFor()
	case token.While:
		return p.parseWhile()
	case token.With:
		return p.parseWith(false)
	case token.Try:
		return p.parseTry()
	case token.Raise:
		return p.parseRaise()
	case token.Assert:
		return p.parseAssert()
	case token.Import:
		return p.parseImport()
	case token.From:
		return p.parseImportFrom()
	case token.Global:
		return p.parseGlobal()
	case token.Nonlocal:
		return p.parseNonlocal()
	case token.Del:
		return p.parseDelete()
	case token.Pass:
		pos := p.pos()
		p.advance()
		p.endSimpleStatement()
		return at(pos, &ast.Pass{})
	case token.Break:
		pos := p.pos()
		p.advance()
		p.endSimpleStatement()
		return at(pos, &ast.Break{})
	case token.Continue:
		pos := p.pos()
		p.advance()
		p.endSimpleStatement()
		return at(pos, &ast.Continue{})
	case token.At:
		return p.parseDecorated()
	case token.Match:
		return p.parseMatch()
	case token.Comment:
		p.advance()
		return p.parseStatement()
	default:
		return p.parseExprOrAssignStatement()
	}
}

// endSimpleStatement consumes the NEWLINE (or ';') that terminates a
// simple statement, tolerating EOF/DEDENT for the last line of a file.
func (p *Parser) endSimpleStatement() {
	if p.cur.Kind == token.Comment {
		p.advance() // trailing comment: skipped, not attached to a node
	}
	switch p.cur.Kind {
	case token.Newline, token.Semi:
		p.advance()
	case token.EOF, token.Dedent:
		// last statement in a file/block with no trailing newline.
	default:
		p.errorf(diag.ParseError, "expected end of statement, got %s", p.cur.Kind)
		p.syncToStatementBoundary()
	}
}

func (p *Parser) parseAsync() ast.Statement {
	p.advance() // 'async'
	p.asyncDepth++
	defer func() { p.asyncDepth-- }()
	switch p.cur.Kind {
	case token.Def:
		return p.parseFunctionDef(nil, true)
	case token.For:
		return p.parseFor()
	case token.With:
		return p.parseWith(true)
	default:
		p.errorf(diag.ParseError, "expected def/for/with after async, got %s", p.cur.Kind)
		msg := fmt.Sprintf("unexpected token after async: %s", p.cur.Kind)
		p.syncToStatementBoundary()
		return &ast.InvalidStatement{Message: msg}
	}
}

func (p *Parser) parseDecorated() ast.Statement {
	var decs []ast.Expression
	for p.cur.Kind == token.At {
		p.advance()
		decs = append(decs, p.parseExpression())
		p.endSimpleStatement()
	}
	switch p.cur.Kind {
	case token.Def:
		return p.parseFunctionDef(decs, false)
	case token.Async:
		p.advance()
		if p.cur.Kind != token.Def {
			p.errorf(diag.ParseError, "expected def after async, got %s", p.cur.Kind)
			return &ast.InvalidStatement{Message: "expected def"}
		}
		return p.parseFunctionDef(decs, true)
	case token.Class:
		return p.parseClassDef(decs)
	default:
		p.errorf(diag.ParseError, "expected def or class after decorator, got %s", p.cur.Kind)
		p.syncToStatementBoundary()
		return &ast.InvalidStatement{Message: "expected def or class after decorator"}
	}
}

func (p *Parser) parseFunctionDef(decs []ast.Expression, isAsync bool) ast.Statement {
	pos := p.pos()
	p.advance() // 'def'
	name := p.parseIdentName()
	p.expect(token.LParen)
	args := p.parseParameters()
	p.expect(token.RParen)
	var returns ast.Expression
	if p.cur.Kind == token.Arrow {
		p.advance()
		returns = p.parseExpression()
	}
	p.expect(token.Colon)
	body := p.parseSuite()
	return at(pos, &ast.FunctionDef{Name: name, Args: args, Returns: returns, Body: body, Decorators: decs, IsAsync: isAsync})
}

func (p *Parser) parseClassDef(decs []ast.Expression) ast.Statement {
	pos := p.pos()
	p.advance() // 'class'
	name := p.parseIdentName()
	var bases []ast.Expression
	if p.cur.Kind == token.LParen {
		p.advance()
		for p.cur.Kind != token.RParen && p.cur.Kind != token.EOF {
			bases = append(bases, p.parseExpression())
			if p.cur.Kind == token.Comma {
				p.advance()
			}
		}
		p.expect(token.RParen)
	}
	p.expect(token.Colon)
	body := p.parseSuite()
	return at(pos, &ast.ClassDef{Name: name, Bases: bases, Body: body, Decorators: decs})
}

func (p *Parser) parseIdentName() string {
	if p.cur.Kind != token.Identifier {
		p.errorf(diag.ParseError, "expected identifier, got %s", p.cur.Kind)
		return ""
	}
	t := p.advance()
	return t.Text
}

// parseSuite parses a statement block: either an indented block
// (COLON already consumed, NEWLINE INDENT stmt* DEDENT) or a same-line
// simple-statement sequence (`if x: a; b`).
func (p *Parser) parseSuite() []ast.Statement {
	if p.cur.Kind == token.Comment && p.peek.Kind == token.Newline {
		p.advance() // trailing comment after the header's ':' is skipped
	}
	if p.cur.Kind == token.Newline {
		p.advance()
		if _, ok := p.expect(token.Indent); !ok {
			return []ast.Statement{&ast.InvalidStatement{Message: "expected an indented block"}}
		}
		var body []ast.Statement
		for p.cur.Kind != token.Dedent && p.cur.Kind != token.EOF {
			if p.cur.Kind == token.Newline {
				p.advance()
				continue
			}
			body = append(body, p.parseStatement())
		}
		if p.cur.Kind == token.Dedent {
			p.advance()
		}
		return body
	}
	// same-line suite: one or more simple statements separated by ';'
	var body []ast.Statement
	body = append(body, p.parseStatement())
	for p.cur.Kind == token.Semi {
		p.advance()
		if p.cur.Kind == token.Newline || p.cur.Kind == token.EOF {
			break
		}
		body = append(body, p.parseStatement())
	}
	return body
}

func (p *Parser) parseReturn() ast.Statement {
	pos := p.pos()
	p.advance()
	var value ast.Expression
	if p.cur.Kind != token.Newline && p.cur.Kind != token.Semi && p.cur.Kind != token.EOF && p.cur.Kind != token.Dedent {
		value = p.parseExpressionList()
	}
	p.endSimpleStatement()
	return at(pos, &ast.Return{Value: value})
}

func (p *Parser) parseIf() ast.Statement {
	pos := p.pos()
	p.advance()
	test := p.parseExpression()
	p.expect(token.Colon)
	body := p.parseSuite()
	var orelse []ast.Statement
	switch p.cur.Kind {
	case token.Elif:
		orelse = []ast.Statement{p.parseIf()}
	case token.Else:
		p.advance()
		p.expect(token.Colon)
		orelse = p.parseSuite()
	}
	return at(pos, &ast.If{Test: test, Body: body, Orelse: orelse})
}

func (p *Parser) parseFor() ast.Statement {
	pos := p.pos()
	p.advance()
	target := p.parseTargetList()
	if _, ok := p.expect(token.In); !ok {
		p.syncToStatementBoundary()
		return at(pos, &ast.InvalidStatement{Message: "expected 'in' in for statement"})
	}
	iter := p.parseExpressionList()
	p.expect(token.Colon)
	body := p.parseSuite()
	var orelse []ast.Statement
	if p.cur.Kind == token.Else {
		p.advance()
		p.expect(token.Colon)
		orelse = p.parseSuite()
	}
	return at(pos, &ast.For{Target: target, Iter: iter, Body: body, Orelse: orelse})
}

func (p *Parser) parseWhile() ast.Statement {
	pos := p.pos()
	p.advance()
	test := p.parseExpression()
	p.expect(token.Colon)
	body := p.parseSuite()
	var orelse []ast.Statement
	if p.cur.Kind == token.Else {
		p.advance()
		p.expect(token.Colon)
		orelse = p.parseSuite()
	}
	return at(pos, &ast.While{Test: test, Body: body, Orelse: orelse})
}

func (p *Parser) parseWith(isAsync bool) ast.Statement {
	pos := p.pos()
	p.advance()
	var items []*ast.WithItem
	for {
		expr := p.parseExpression()
		item := &ast.WithItem{ContextExpr: expr}
		if p.cur.Kind == token.As {
			p.advance()
			item.OptionalVar = p.parseTarget()
		}
		items = append(items, item)
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.expect(token.Colon)
	body := p.parseSuite()
	return at(pos, &ast.With{Items: items, Body: body, IsAsync: isAsync})
}

func (p *Parser) parseTry() ast.Statement {
	pos := p.pos()
	p.advance()
	p.expect(token.Colon)
	body := p.parseSuite()
	var handlers []*ast.ExceptHandler
	for p.cur.Kind == token.Except {
		hpos := p.pos()
		p.advance()
		var typ ast.Expression
		var name string
		if p.cur.Kind != token.Colon {
			typ = p.parseExpression()
			if p.cur.Kind == token.As {
				p.advance()
				name = p.parseIdentName()
			}
		}
		p.expect(token.Colon)
		hbody := p.parseSuite()
		handlers = append(handlers, at(hpos, &ast.ExceptHandler{Type: typ, Name: name, Body: hbody}))
	}
	var orelse, finally []ast.Statement
	if p.cur.Kind == token.Else {
		p.advance()
		p.expect(token.Colon)
		orelse = p.parseSuite()
	}
	if p.cur.Kind == token.Finally {
		p.advance()
		p.expect(token.Colon)
		finally = p.parseSuite()
	}
	return at(pos, &ast.Try{Body: body, Handlers: handlers, Orelse: orelse, Finally: finally})
}

func (p *Parser) parseRaise() ast.Statement {
	pos := p.pos()
	p.advance()
	var exc, cause ast.Expression
	if p.cur.Kind != token.Newline && p.cur.Kind != token.EOF && p.cur.Kind != token.Semi {
		exc = p.parseExpression()
		if p.cur.Kind == token.From {
			p.advance()
			cause = p.parseExpression()
		}
	}
	p.endSimpleStatement()
	return at(pos, &ast.Raise{Exc: exc, Cause: cause})
}

func (p *Parser) parseAssert() ast.Statement {
	pos := p.pos()
	p.advance()
	test := p.parseExpression()
	var msg ast.Expression
	if p.cur.Kind == token.Comma {
		p.advance()
		msg = p.parseExpression()
	}
	p.endSimpleStatement()
	return at(pos, &ast.Assert{Test: test, Msg: msg})
}

func (p *Parser) parseImport() ast.Statement {
	pos := p.pos()
	p.advance()
	var names []*ast.Alias
	for {
		names = append(names, p.parseDottedAlias())
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.endSimpleStatement()
	return at(pos, &ast.Import{Names: names})
}

func (p *Parser) parseDottedAlias() *ast.Alias {
	name := p.parseDottedName()
	alias := &ast.Alias{Name: name}
	if p.cur.Kind == token.As {
		p.advance()
		alias.AsName = p.parseIdentName()
	}
	return alias
}

func (p *Parser) parseDottedName() string {
	name := p.parseIdentName()
	for p.cur.Kind == token.Dot {
		p.advance()
		name += "." + p.parseIdentName()
	}
	return name
}

func (p *Parser) parseImportFrom() ast.Statement {
	pos := p.pos()
	p.advance() // 'from'
	module := p.parseDottedName()
	p.expect(token.Import)
	var names []*ast.Alias
	paren := false
	if p.cur.Kind == token.LParen {
		paren = true
		p.advance()
	}
	for {
		alias := &ast.Alias{Name: p.parseIdentName()}
		if p.cur.Kind == token.As {
			p.advance()
			alias.AsName = p.parseIdentName()
		}
		names = append(names, alias)
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
		if paren && p.cur.Kind == token.RParen {
			break
		}
	}
	if paren {
		p.expect(token.RParen)
	}
	p.endSimpleStatement()
	return at(pos, &ast.ImportFrom{Module: module, Names: names})
}

func (p *Parser) parseGlobal() ast.Statement {
	pos := p.pos()
	p.advance()
	names := p.parseNameList()
	p.endSimpleStatement()
	return at(pos, &ast.Global{Names: names})
}

func (p *Parser) parseNonlocal() ast.Statement {
	pos := p.pos()
	p.advance()
	names := p.parseNameList()
	p.endSimpleStatement()
	return at(pos, &ast.Nonlocal{Names: names})
}

func (p *Parser) parseNameList() []string {
	var out []string
	out = append(out, p.parseIdentName())
	for p.cur.Kind == token.Comma {
		p.advance()
		out = append(out, p.parseIdentName())
	}
	return out
}

func (p *Parser) parseDelete() ast.Statement {
	pos := p.pos()
	p.advance()
	var targets []ast.Expression
	targets = append(targets, p.parseTarget())
	for p.cur.Kind == token.Comma {
		p.advance()
		targets = append(targets, p.parseTarget())
	}
	p.endSimpleStatement()
	return at(pos, &ast.Delete{Targets: targets})
}

// parseExprOrAssignStatement handles expression statements, plain
// assignment, chained assignment, annotated assignment, and augmented
// assignment, which all begin by parsing an expression (or target
// list) and then dispatching on what follows.
func (p *Parser) parseExprOrAssignStatement() ast.Statement {
	pos := p.pos()
	first := p.parseExpressionList()

	switch p.cur.Kind {
	case token.Colon:
		p.advance()
		annotation := p.parseExpression()
		var value ast.Expression
		if p.cur.Kind == token.Assign {
			p.advance()
			value = p.parseExpressionList()
		}
		p.endSimpleStatement()
		return at(pos, &ast.AnnAssign{Target: first, Annotation: annotation, Value: value})

	case token.Assign:
		targets := []ast.Expression{markStore(first)}
		var value ast.Expression
		for p.cur.Kind == token.Assign {
			p.advance()
			value = p.parseExpressionList()
			if p.cur.Kind == token.Assign {
				targets = append(targets, markStore(value))
			}
		}
		p.endSimpleStatement()
		return at(pos, &ast.Assign{Targets: targets, Value: value})

	case token.AugAssign:
		opTok := p.advance()
		op := token.AugAssignOps[opTok.Text]
		value := p.parseExpressionList()
		p.endSimpleStatement()
		return at(pos, &ast.AugAssign{Target: markStore(first), Op: op, Value: value})

	default:
		p.endSimpleStatement()
		stmt := at(pos, &ast.ExprStmt{Value: first})
		if c, ok := first.(*ast.Constant); ok && c.Kind == ast.ConstStr {
			stmt.IsDocstr = true
		}
		return stmt
	}
}

// markStore rewrites a freshly-parsed expression's context to Store,
// for use as an assignment target (parseExpression always produces
// Load-context Name/Attribute/Subscript nodes).
func markStore(e ast.Expression) ast.Expression {
	switch n := e.(type) {
	case *ast.Name:
		n.Ctx = ast.Store
	case *ast.Tuple:
		for _, el := range n.Elts {
			markStore(el)
		}
	case *ast.List:
		for _, el := range n.Elts {
			markStore(el)
		}
	case *ast.Starred:
		markStore(n.Value)
	}
	return e
}

func (p *Parser) parseTarget() ast.Expression {
	return markStore(p.parseOrExpr())
}

func (p *Parser) parseTargetList() ast.Expression {
	first := p.parseTarget()
	if p.cur.Kind != token.Comma {
		return first
	}
	elts := []ast.Expression{first}
	for p.cur.Kind == token.Comma {
		p.advance()
		if p.cur.Kind == token.In {
			break
		}
		elts = append(elts, p.parseTarget())
	}
	return &ast.Tuple{Elts: elts, Ctx: ast.Store}
}

// posSetter is satisfied by every *ast.Node via the SetPos method
// promoted from ast's embedded base struct.
type posSetter interface {
	SetPos(ast.Pos)
}

// at stamps a freshly-built node with its starting position and
// returns it, so every parse* function can build the literal inline
// and attach position in one expression.
func at[T posSetter](pos ast.Pos, n T) T {
	n.SetPos(pos)
	return n
}
