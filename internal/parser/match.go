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
	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/token"
)

// parseMatch parses `match subject: case pattern [if guard]: body ...`
// (spec.md §4.6's pattern-matching statement).
func (p *Parser) parseMatch() ast.Statement {
	pos := p.pos()
	p.advance() // 'match'
	subject := p.parseExpressionList()
	p.expect(token.Colon)
	p.expect(token.Newline)
	if _, ok := p.expect(token.Indent); !ok {
		return at(pos, &ast.InvalidStatement{Message: "expected indented case block"})
	}
	var cases []*ast.MatchCase
	for p.cur.Kind == token.Case {
		cases = append(cases, p.parseMatchCase())
	}
	if p.cur.Kind == token.Dedent {
		p.advance()
	}
	return at(pos, &ast.Match{Subject: subject, Cases: cases})
}

func (p *Parser) parseMatchCase() *ast.MatchCase {
	pos := p.pos()
	p.advance() // 'case'
	pat := p.parsePatternList()
	var guard ast.Expression
	if p.cur.Kind == token.If {
		p.advance()
		guard = p.parseExpression()
	}
	p.expect(token.Colon)
	body := p.parseSuite()
	return at(pos, &ast.MatchCase{Pattern: pat, Guard: guard, Body: body})
}

// parsePatternList parses a top-level case pattern, handling the
// bare-comma sequence form `case a, b:` and the `as` binding suffix.
func (p *Parser) parsePatternList() ast.Pattern {
	first := p.parseOrPattern()
	if p.cur.Kind != token.Comma {
		return p.maybeAsPattern(first)
	}
	pats := []ast.Pattern{first}
	for p.cur.Kind == token.Comma {
		p.advance()
		if p.cur.Kind == token.Colon || p.cur.Kind == token.If {
			break
		}
		pats = append(pats, p.parseOrPattern())
	}
	return p.maybeAsPattern(&ast.MatchSequence{Patterns: pats})
}

func (p *Parser) maybeAsPattern(pat ast.Pattern) ast.Pattern {
	if p.cur.Kind != token.As {
		return pat
	}
	p.advance()
	name := p.parseIdentName()
	return &ast.MatchAs{Pattern: pat, Name: name}
}

func (p *Parser) parseOrPattern() ast.Pattern {
	first := p.parseClosedPattern()
	if p.cur.Kind != token.Pipe {
		return first
	}
	pats := []ast.Pattern{first}
	for p.cur.Kind == token.Pipe {
		p.advance()
		pats = append(pats, p.parseClosedPattern())
	}
	return &ast.MatchOr{Patterns: pats}
}

// parseClosedPattern parses one pattern with no top-level `as`/`|`,
// dispatching on the lookahead token.
func (p *Parser) parseClosedPattern() ast.Pattern {
	switch p.cur.Kind {
	case token.Identifier:
		if p.cur.Text == "_" && p.peek.Kind != token.LParen && p.peek.Kind != token.Dot {
			p.advance()
			return &ast.MatchAs{}
		}
		if p.peek.Kind == token.Dot || p.peek.Kind == token.LParen {
			return p.parseClassOrValuePattern()
		}
		name := p.advance().Text
		return &ast.MatchAs{Name: name}
	case token.Star:
		p.advance()
		if p.cur.Kind == token.Identifier && p.cur.Text != "_" {
			return &ast.MatchStar{Name: p.advance().Text}
		}
		if p.cur.Kind == token.Identifier {
			p.advance()
		}
		return &ast.MatchStar{}
	case token.LSquare, token.LParen:
		return p.parseSequencePattern()
	case token.LCurly:
		return p.parseMappingPattern()
	case token.None, token.True, token.False:
		return &ast.MatchSingleton{Value: p.parsePrimary()}
	default:
		value := p.parseBinary(0)
		return &ast.MatchValue{Value: value}
	}
}

// parseClassOrValuePattern handles `pkg.Const`, `Cls(...)`, and
// `Cls(p, kw=p)` forms, which all start with a dotted identifier.
func (p *Parser) parseClassOrValuePattern() ast.Pattern {
	expr := ast.Expression(&ast.Name{Id: p.advance().Text, Ctx: ast.Load, Varid: -1})
	for p.cur.Kind == token.Dot {
		p.advance()
		expr = &ast.Attribute{Value: expr, Attr: p.parseIdentName()}
	}
	if p.cur.Kind != token.LParen {
		return &ast.MatchValue{Value: expr}
	}
	p.advance()
	var pats []ast.Pattern
	var kwNames []string
	var kwPats []ast.Pattern
	for p.cur.Kind != token.RParen && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.Identifier && p.peek.Kind == token.Assign {
			name := p.advance().Text
			p.advance() // '='
			kwNames = append(kwNames, name)
			kwPats = append(kwPats, p.parseOrPattern())
		} else {
			pats = append(pats, p.parseOrPattern())
		}
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.expect(token.RParen)
	return &ast.MatchClass{Cls: expr, Patterns: pats, KeywordNames: kwNames, KeywordValues: kwPats}
}

func (p *Parser) parseSequencePattern() ast.Pattern {
	closeKind := token.RSquare
	if p.cur.Kind == token.LParen {
		closeKind = token.RParen
	}
	p.advance()
	var pats []ast.Pattern
	for p.cur.Kind != closeKind && p.cur.Kind != token.EOF {
		pats = append(pats, p.parseOrPattern())
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.expect(closeKind)
	return &ast.MatchSequence{Patterns: pats}
}

func (p *Parser) parseMappingPattern() ast.Pattern {
	p.advance() // '{'
	var keys []ast.Expression
	var pats []ast.Pattern
	var rest string
	for p.cur.Kind != token.RCurly && p.cur.Kind != token.EOF {
		if p.cur.Kind == token.DStar {
			p.advance()
			rest = p.parseIdentName()
		} else {
			keys = append(keys, p.parseBinary(0))
			p.expect(token.Colon)
			pats = append(pats, p.parseOrPattern())
		}
		if p.cur.Kind != token.Comma {
			break
		}
		p.advance()
	}
	p.expect(token.RCurly)
	return &ast.MatchMapping{Keys: keys, Patterns: pats, Rest: rest}
}
