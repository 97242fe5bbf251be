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
	"strings"

	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/diag"
	"github.com/lython-go/lython/internal/lexer"
)

// parseFString splits the raw contents of an f-string token into a
// JoinedStr of alternating literal-text Constants and FormattedValue
// interpolations, grounded on original_source/src/parser/
// format_spec.cpp's right-to-left `[[fill]align][sign][#][0][width]
// [.precision][type]` format-spec grammar (kept here as an unparsed
// string on FormattedValue; interpreting it is the evaluator's job).
func (p *Parser) parseFString() ast.Expression {
	pos := p.pos()
	raw := p.advance().Text
	values := splitFStringBody(raw, p)
	return at(pos, &ast.JoinedStr{Values: values})
}

func splitFStringBody(raw string, p *Parser) []ast.Expression {
	var values []ast.Expression
	var lit strings.Builder
	runes := []rune(raw)
	i := 0
	flushLit := func() {
		if lit.Len() > 0 {
			values = append(values, &ast.Constant{Kind: ast.ConstStr, S: lit.String()})
			lit.Reset()
		}
	}
	for i < len(runes) {
		r := runes[i]
		switch r {
		case '{':
			if i+1 < len(runes) && runes[i+1] == '{' {
				lit.WriteRune('{')
				i += 2
				continue
			}
			flushLit()
			end := matchingBrace(runes, i)
			if end < 0 {
				p.errorf(diag.ParseError, "unterminated replacement field in f-string")
				values = append(values, &ast.NotImplementedExpr{Message: "unterminated f-string replacement field"})
				i = len(runes)
				break
			}
			field := string(runes[i+1 : end])
			values = append(values, p.parseFStringField(field))
			i = end + 1
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				lit.WriteRune('}')
				i += 2
				continue
			}
			lit.WriteRune('}')
			i++
		default:
			lit.WriteRune(r)
			i++
		}
	}
	flushLit()
	return values
}

// matchingBrace finds the index of the '}' matching the '{' at open,
// tracking nested brackets/parens and quoted substrings so a dict
// literal or slice inside the replacement field doesn't confuse the
// scan.
func matchingBrace(runes []rune, open int) int {
	depth := 0
	var quote rune
	for i := open; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			if r == '\\' {
				i++
				continue
			}
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
			if depth == 0 && r == '}' {
				return i
			}
		}
	}
	return -1
}

// parseFStringField parses one `expr[:format]` replacement field by
// finding the top-level ':' (not nested inside brackets/parens/quotes)
// and recursively parsing the expression part with a fresh Parser over
// that substring. A `!conv` conversion is not recognised: it stays part
// of the expression text.
func (p *Parser) parseFStringField(field string) ast.Expression {
	exprText, spec := splitFormatSpec(field)
	if exprText == "" {
		p.errorf(diag.ParseError, "empty replacement field in f-string")
		return &ast.NotImplementedExpr{Message: "empty f-string replacement field"}
	}
	sub := New(lexer.New(lexer.NewStringStream(p.file, exprText+"\n"), false), p.file)
	value := sub.parseExpressionList()
	for _, d := range sub.Diagnostics().All() {
		p.diag.Add(d)
	}
	return &ast.FormattedValue{Value: value, FormatSpec: spec}
}

// splitFormatSpec finds the top-level ':' that separates a
// replacement field's expression from its format spec, ignoring any
// ':' nested inside brackets/parens/quotes (e.g. a slice or dict).
func splitFormatSpec(field string) (expr string, spec string) {
	runes := []rune(field)
	depth := 0
	var quote rune
	for i, r := range runes {
		if quote != 0 {
			if r == '\\' {
				continue
			}
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ':':
			if depth == 0 {
				return strings.TrimSpace(string(runes[:i])), string(runes[i+1:])
			}
		}
	}
	return strings.TrimSpace(field), ""
}
