package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lython-go/lython/internal/token"
)

func TestReplayReproducesExactSequence(t *testing.T) {
	l := New(NewStringStream("t", "x = 1\n"), false)
	recorded := Record(l)

	var replayed []token.Kind
	for {
		tok := recorded.Next()
		replayed = append(replayed, tok.Kind)
		if tok.Kind == token.EOF {
			break
		}
	}
	require.Equal(t, []token.Kind{
		token.Identifier, token.Assign, token.Int, token.Newline, token.EOF,
	}, replayed)
}

func TestReplayEOFIsSticky(t *testing.T) {
	r := NewReplayTokenSource([]token.Token{{Kind: token.Int, Text: "1"}})
	r.Next()
	first := r.Next()
	require.Equal(t, token.EOF, first.Kind)
	second := r.Next()
	require.Equal(t, token.EOF, second.Kind)
}
