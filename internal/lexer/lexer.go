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

package lexer

import (
	"strings"
	"unicode"

	"github.com/lython-go/lython/internal/token"
)

// combinedOperators merges token.Operators and token.AugAssignOps (mapped
// to AugAssign) into one table for the trie matcher. operatorPrefixes
// holds every proper prefix of every key (including the keys
// themselves), letting the matcher grow a candidate one rune at a time
// via Peek and stop the instant it can no longer be extended, with no
// over-consumption or pushback required.
var combinedOperators = buildCombinedOperators()
var operatorPrefixes = buildPrefixSet(combinedOperators)

func buildCombinedOperators() map[string]token.Kind {
	m := make(map[string]token.Kind, len(token.Operators)+len(token.AugAssignOps))
	for k, v := range token.Operators {
		m[k] = v
	}
	for k := range token.AugAssignOps {
		m[k] = token.AugAssign
	}
	return m
}

func buildPrefixSet(m map[string]token.Kind) map[string]bool {
	out := make(map[string]bool)
	for k := range m {
		r := []rune(k)
		for n := 1; n <= len(r); n++ {
			out[string(r[:n])] = true
		}
	}
	return out
}

// Lexer produces a lazy token stream over a CharStream, synthesizing
// INDENT/DEDENT per spec.md §4.4.
type Lexer struct {
	stream      CharStream
	interactive bool

	indents     []int
	atLineStart bool
	parenDepth  int
	atEOF       bool
	pending     []token.Token
	cur         token.Token

	newlineRun int // consecutive NEWLINE tokens just produced, for the interactive dedent rule
}

// New creates a Lexer reading from stream. interactive enables the REPL
// rule from spec.md §4.4: two successive NEWLINE tokens with a positive
// pending indent synthesize a DEDENT.
func New(stream CharStream, interactive bool) *Lexer {
	return &Lexer{
		stream:      stream,
		interactive: interactive,
		indents:     []int{0},
		atLineStart: true,
	}
}

// Token returns the most recently produced token (the "current" token
// per spec.md §4.4's next_token/peek_token/token contract).
func (l *Lexer) Token() token.Token { return l.cur }

// Next consumes and returns the next token.
func (l *Lexer) Next() token.Token {
	t := l.produce()
	l.cur = t
	return t
}

// Peek returns the next token without consuming it. Calling Peek
// multiple times in a row returns the same token until Next is called.
func (l *Lexer) Peek() token.Token {
	if len(l.pending) == 0 {
		// rawProduce may queue tokens that follow t (e.g. the real token
		// behind an INDENT), so t goes in front of them.
		t := l.rawProduce()
		l.pending = append([]token.Token{t}, l.pending...)
	}
	return l.pending[0]
}

func (l *Lexer) produce() token.Token {
	if len(l.pending) > 0 {
		t := l.pending[0]
		l.pending = l.pending[1:]
		return t
	}
	return l.rawProduce()
}

// rawProduce generates (and may queue) tokens, returning the first one.
func (l *Lexer) rawProduce() token.Token {
	if l.atEOF {
		return l.eofToken()
	}

	if l.atLineStart && l.parenDepth == 0 {
		for {
			l.skipLineLeadingWhitespace()
			r, ok := l.stream.Peek()
			if !ok {
				return l.flushIndentsThenEOF()
			}
			if r == '\n' {
				l.stream.Getc()
				// interactive: a blank line right after a NEWLINE is the
				// second of two successive newlines and closes one block.
				if l.interactive && l.newlineRun > 0 {
					if top := l.indents[len(l.indents)-1]; top > 0 {
						l.indents = l.indents[:len(l.indents)-1]
						l.newlineRun = 0
						return token.Token{Kind: token.Dedent, Line: l.stream.Line(), Col: l.stream.Col()}
					}
				}
				continue // blank line: no indent change, no token
			}
			if r == '#' {
				c := l.scanComment()
				// swallow the trailing newline of a comment-only line
				if nr, ok := l.stream.Peek(); ok && nr == '\n' {
					l.stream.Getc()
				} else if !ok {
					return l.tokenQueue(c, l.flushIndentsThenEOF())
				}
				continue
			}
			l.newlineRun = 0
			return l.handleIndentThenToken()
		}
	}

	return l.scanNonIndentContext()
}

// handleIndentThenToken compares the stream's current indent level to
// the indent stack and emits INDENT/DEDENT as needed, queuing the real
// token that triggered the comparison behind them.
func (l *Lexer) handleIndentThenToken() token.Token {
	line, col := l.stream.Line(), l.stream.Col()
	cur := l.stream.Indent()
	top := l.indents[len(l.indents)-1]
	l.atLineStart = false

	real := l.scanToken()

	switch {
	case cur > top:
		l.indents = append(l.indents, cur)
		return l.tokenQueue(token.Token{Kind: token.Indent, Line: line, Col: col}, real)
	case cur < top:
		var dedents []token.Token
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > cur {
			l.indents = l.indents[:len(l.indents)-1]
			dedents = append(dedents, token.Token{Kind: token.Dedent, Line: line, Col: col})
		}
		if l.indents[len(l.indents)-1] != cur {
			// Indentation does not match any enclosing level: record as
			// incorrect but keep going (error recovery, per spec.md §4.6).
			dedents = append(dedents, token.Token{Kind: token.Incorrect, Line: line, Col: col, Text: "inconsistent indentation"})
		}
		return l.tokenQueue(append(dedents, real)...)
	default:
		return real
	}
}

// scanNonIndentContext scans tokens when indentation is not being
// tracked (mid-line, or inside brackets where newlines are implicit
// continuations).
func (l *Lexer) scanNonIndentContext() token.Token {
	for {
		r, ok := l.stream.Peek()
		if !ok {
			if l.parenDepth > 0 {
				return l.flushIndentsThenEOF()
			}
			// synthesize a trailing NEWLINE before the EOF dedent flush
			l.atLineStart = true
			return token.Token{Kind: token.Newline, Line: l.stream.Line(), Col: l.stream.Col()}
		}
		switch {
		case r == '\n':
			l.stream.Getc()
			if l.parenDepth > 0 {
				continue
			}
			l.atLineStart = true
			l.newlineRun++
			if l.interactive && l.newlineRun >= 2 {
				if top := l.indents[len(l.indents)-1]; top > 0 {
					l.indents = l.indents[:len(l.indents)-1]
					l.newlineRun = 0
					return token.Token{Kind: token.Dedent, Line: l.stream.Line(), Col: l.stream.Col()}
				}
			}
			return token.Token{Kind: token.Newline, Line: l.stream.Line(), Col: l.stream.Col()}
		case r == ' ' || r == '\t':
			l.stream.Getc()
			continue
		case r == '#':
			return l.scanComment()
		default:
			l.newlineRun = 0
			return l.scanToken()
		}
	}
}

func (l *Lexer) skipLineLeadingWhitespace() {
	for {
		r, ok := l.stream.Peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		l.stream.Getc()
	}
}

func (l *Lexer) scanComment() token.Token {
	line, col := l.stream.Line(), l.stream.Col()
	l.stream.Getc() // consume '#'
	var b strings.Builder
	for {
		r, ok := l.stream.Peek()
		if !ok || r == '\n' {
			break
		}
		l.stream.Getc()
		b.WriteRune(r)
	}
	return token.Token{Kind: token.Comment, Line: line, Col: col, Text: b.String()}
}

func (l *Lexer) eofToken() token.Token {
	return token.Token{Kind: token.EOF, Line: l.stream.Line(), Col: l.stream.Col()}
}

// flushIndentsThenEOF pops every remaining indent level, queuing a
// DEDENT for each, then marks the lexer permanently at EOF (EOF is
// sticky per spec.md §4.4).
func (l *Lexer) flushIndentsThenEOF() token.Token {
	line, col := l.stream.Line(), l.stream.Col()
	var dedents []token.Token
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		dedents = append(dedents, token.Token{Kind: token.Dedent, Line: line, Col: col})
	}
	l.atEOF = true
	if len(dedents) == 0 {
		return l.eofToken()
	}
	return l.tokenQueue(dedents...)
}

// tokenQueue returns toks[0], queuing the remainder (if any) to be
// returned by subsequent calls to produce/rawProduce.
func (l *Lexer) tokenQueue(toks ...token.Token) token.Token {
	if len(toks) == 0 {
		return l.eofToken()
	}
	l.pending = append(toks[1:], l.pending...)
	return toks[0]
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || r == '?' || r == '!' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scanToken scans exactly one non-structural token: identifier/keyword,
// number, string/f-string, or operator/punctuation.
func (l *Lexer) scanToken() token.Token {
	line, col := l.stream.Line(), l.stream.Col()
	r, ok := l.stream.Peek()
	if !ok {
		return l.eofToken()
	}

	switch {
	case r == '"' || r == '\'':
		return l.scanString(line, col, "")
	case unicode.IsDigit(r):
		return l.scanNumber(line, col)
	case isIdentStart(r):
		return l.scanIdentOrKeywordOrString(line, col)
	default:
		return l.scanOperator(line, col)
	}
}

func (l *Lexer) scanIdentOrKeywordOrString(line, col int) token.Token {
	var b strings.Builder
	for {
		r, ok := l.stream.Peek()
		if !ok || !isIdentCont(r) {
			break
		}
		l.stream.Getc()
		b.WriteRune(r)
	}
	name := b.String()

	// string/f-string prefixes: f"...", r"...", fr"...", rb"..." etc. We
	// only special-case the f-prefix (format strings); other prefixes
	// lex as an ordinary string with the prefix preserved as a no-op.
	if r, ok := l.stream.Peek(); ok && (r == '"' || r == '\'') {
		lower := strings.ToLower(name)
		if lower == "f" || lower == "fr" || lower == "rf" {
			return l.scanString(line, col, "f")
		}
		if lower == "r" || lower == "b" || lower == "rb" || lower == "br" {
			return l.scanString(line, col, "")
		}
	}

	if kw, ok := token.Keywords[name]; ok {
		return token.Token{Kind: kw, Line: line, Col: col, Text: name}
	}
	return token.Token{Kind: token.Identifier, Line: line, Col: col, Text: name}
}

func (l *Lexer) scanNumber(line, col int) token.Token {
	var b strings.Builder
	first, _ := l.stream.Getc()
	b.WriteRune(first)

	if first == '0' {
		if r, ok := l.stream.Peek(); ok && (r == 'x' || r == 'X' || r == 'o' || r == 'O' || r == 'b' || r == 'B') {
			l.stream.Getc()
			b.WriteRune(r)
			for {
				r, ok := l.stream.Peek()
				if !ok || !(unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F') || r == '_') {
					break
				}
				l.stream.Getc()
				b.WriteRune(r)
			}
			return token.Token{Kind: token.Int, Line: line, Col: col, Text: b.String()}
		}
	}

	isFloat := false
	for {
		r, ok := l.stream.Peek()
		if !ok {
			break
		}
		if unicode.IsDigit(r) || r == '_' {
			l.stream.Getc()
			b.WriteRune(r)
			continue
		}
		if r == '.' {
			// every '.' reached here is consumed and makes the number a
			// float (`1.` is a float). The character after the '.' is not
			// examined, so `1..2` and a method-call dot such as `1.real`
			// are lexed as part of the number.
			isFloat = true
			l.stream.Getc()
			b.WriteRune(r)
			continue
		}
		if r == 'e' || r == 'E' {
			l.stream.Getc()
			b.WriteRune(r)
			isFloat = true
			if sign, ok := l.stream.Peek(); ok && (sign == '+' || sign == '-') {
				l.stream.Getc()
				b.WriteRune(sign)
			}
			continue
		}
		break
	}
	kind := token.Int
	if isFloat {
		kind = token.Float
	}
	return token.Token{Kind: kind, Line: line, Col: col, Text: b.String()}
}

// scanString scans a quoted string literal, including triple-quoted
// strings (lexed as token.Docstring; the parser decides whether to
// attach it as an actual docstring or treat it as a plain constant,
// per spec.md §4.4/§4.6). prefix is "f" for a format string.
func (l *Lexer) scanString(line, col int, prefix string) token.Token {
	quote, _ := l.stream.Getc()
	triple := false
	if r1, ok := l.stream.Peek(); ok && r1 == quote {
		l.stream.Getc()
		if r2, ok := l.stream.Peek(); ok && r2 == quote {
			l.stream.Getc()
			triple = true
		} else {
			// empty string literal ""
			kind := token.String
			if prefix == "f" {
				kind = token.FString
			}
			return token.Token{Kind: kind, Line: line, Col: col, Text: ""}
		}
	}

	var b strings.Builder
	for {
		r, ok := l.stream.Getc()
		if !ok {
			break // unterminated string: best-effort recovery
		}
		if r == '\\' {
			esc, ok := l.stream.Getc()
			if !ok {
				break
			}
			b.WriteRune(unescape(esc))
			continue
		}
		if r == quote {
			if !triple {
				break
			}
			if r2, ok := l.stream.Peek(); ok && r2 == quote {
				l.stream.Getc()
				if r3, ok := l.stream.Peek(); ok && r3 == quote {
					l.stream.Getc()
					break
				}
				b.WriteRune(quote)
				continue
			}
			b.WriteRune(quote)
			continue
		}
		b.WriteRune(r)
	}

	kind := token.String
	if prefix == "f" {
		kind = token.FString
	} else if triple {
		kind = token.Docstring
	}
	return token.Token{Kind: kind, Line: line, Col: col, Text: b.String()}
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return r
	}
}

// scanOperator grows a candidate operator spelling one rune at a time,
// consuming a rune only when doing so keeps the candidate a prefix of
// some entry in combinedOperators. It never consumes a rune it has to
// give back.
func (l *Lexer) scanOperator(line, col int) token.Token {
	acc := ""
	for {
		r, ok := l.stream.Peek()
		if !ok {
			break
		}
		candidate := acc + string(r)
		if !operatorPrefixes[candidate] {
			break
		}
		l.stream.Getc()
		acc = candidate
	}
	if acc == "" {
		r, ok := l.stream.Getc()
		if !ok {
			return l.eofToken()
		}
		return token.Token{Kind: token.Incorrect, Line: line, Col: col, Text: string(r)}
	}
	if kind, ok := combinedOperators[acc]; ok {
		l.adjustParenDepth(kind)
		// punctuation is identified by its kind alone; AugAssign covers
		// every `op=` spelling, so it keeps its text.
		text := ""
		if kind == token.AugAssign {
			text = acc
		}
		return token.Token{Kind: kind, Line: line, Col: col, Text: text}
	}
	// acc is a valid prefix of some operator (e.g. "!" before "!=") but
	// not itself a complete one: unrecognized punctuation.
	return token.Token{Kind: token.Incorrect, Line: line, Col: col, Text: acc}
}

func (l *Lexer) adjustParenDepth(kind token.Kind) {
	switch kind {
	case token.LParen, token.LSquare, token.LCurly:
		l.parenDepth++
	case token.RParen, token.RSquare, token.RCurly:
		if l.parenDepth > 0 {
			l.parenDepth--
		}
	}
}
