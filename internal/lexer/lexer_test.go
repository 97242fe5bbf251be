package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lython-go/lython/internal/token"
)

func kinds(src string) []token.Kind {
	l := New(NewStringStream("t", src), false)
	var out []token.Kind
	for {
		t := l.Next()
		out = append(out, t.Kind)
		if t.Kind == token.EOF {
			return out
		}
	}
}

func TestIndentDedentSynthesis(t *testing.T) {
	src := "def f():\n    return 1\nx = 2\n"
	got := kinds(src)
	require.Equal(t, []token.Kind{
		token.Def, token.Identifier, token.LParen, token.RParen, token.Colon, token.Newline,
		token.Indent, token.Return, token.Int, token.Newline,
		token.Dedent, token.Identifier, token.Assign, token.Int, token.Newline,
		token.EOF,
	}, got)
}

func TestNestedIndentProducesMultipleDedents(t *testing.T) {
	src := "if a:\n    if b:\n        x = 1\ny = 2\n"
	got := kinds(src)
	// two DEDENTs collapse back to column 0 before `y`.
	dedentCount := 0
	for _, k := range got {
		if k == token.Dedent {
			dedentCount++
		}
	}
	require.Equal(t, 2, dedentCount)
}

func TestKeywordVsIdentifier(t *testing.T) {
	l := New(NewStringStream("t", "if iffy"), false)
	first := l.Next()
	require.Equal(t, token.If, first.Kind)
	second := l.Next()
	require.Equal(t, token.Identifier, second.Kind)
	require.Equal(t, "iffy", second.Text)
}

func TestIdentifierAllowsTrailingPunctuation(t *testing.T) {
	l := New(NewStringStream("t", "valid? ok! done-thing"), false)
	tok := l.Next()
	require.Equal(t, token.Identifier, tok.Kind)
	require.Equal(t, "valid?", tok.Text)
	tok = l.Next()
	require.Equal(t, "ok!", tok.Text)
	tok = l.Next()
	require.Equal(t, "done-thing", tok.Text)
}

func TestOperatorLongestMatch(t *testing.T) {
	l := New(NewStringStream("t", "a **= b"), false)
	l.Next() // a
	tok := l.Next()
	require.Equal(t, token.AugAssign, tok.Kind)
	require.Equal(t, "**=", tok.Text)
}

func TestArrowVsMinusGreaterThan(t *testing.T) {
	l := New(NewStringStream("t", "->"), false)
	tok := l.Next()
	require.Equal(t, token.Arrow, tok.Kind)
}

func TestNumberLiterals(t *testing.T) {
	l := New(NewStringStream("t", "1 2.5 0x1F 1e10"), false)
	require.Equal(t, token.Int, l.Next().Kind)
	require.Equal(t, token.Float, l.Next().Kind)
	require.Equal(t, token.Int, l.Next().Kind)
	require.Equal(t, token.Float, l.Next().Kind)
}

func TestStringAndFString(t *testing.T) {
	l := New(NewStringStream("t", `"hi" f"hello {x}"`), false)
	s := l.Next()
	require.Equal(t, token.String, s.Kind)
	require.Equal(t, "hi", s.Text)
	f := l.Next()
	require.Equal(t, token.FString, f.Kind)
	require.Equal(t, "hello {x}", f.Text)
}

func TestTripleQuotedStringIsDocstring(t *testing.T) {
	l := New(NewStringStream("t", `"""hello
world"""`), false)
	tok := l.Next()
	require.Equal(t, token.Docstring, tok.Kind)
	require.Equal(t, "hello\nworld", tok.Text)
}

func TestCommentToken(t *testing.T) {
	l := New(NewStringStream("t", "x = 1 # trailing\n"), false)
	kinds := []token.Kind{}
	for {
		tk := l.Next()
		kinds = append(kinds, tk.Kind)
		if tk.Kind == token.EOF {
			break
		}
	}
	require.Contains(t, kinds, token.Comment)
}

func TestParensSuppressNewlineAndIndent(t *testing.T) {
	src := "x = (1 +\n    2)\n"
	got := kinds(src)
	newlineCount := 0
	for _, k := range got {
		if k == token.Newline {
			newlineCount++
		}
		require.NotEqual(t, token.Indent, k)
		require.NotEqual(t, token.Dedent, k)
	}
	require.Equal(t, 1, newlineCount)
}

func TestPeekDoesNotConsume(t *testing.T) {
	l := New(NewStringStream("t", "a b"), false)
	p1 := l.Peek()
	p2 := l.Peek()
	require.Equal(t, p1, p2)
	n := l.Next()
	require.Equal(t, p1, n)
}

func TestEOFIsSticky(t *testing.T) {
	l := New(NewStringStream("t", "x"), false)
	l.Next() // x
	l.Next() // synthesized trailing NEWLINE
	first := l.Next()
	require.Equal(t, token.EOF, first.Kind)
	second := l.Next()
	require.Equal(t, token.EOF, second.Kind)
}
