package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lython-go/lython/internal/ast"
)

// roundTrip parses src, pretty-prints the result, and reparses that
// output, returning both modules so the caller can compare them.
func roundTrip(t *testing.T, src string) (first, second *ast.Module) {
	t.Helper()
	first = parseSource(src)
	printed := ast.Unparse(first)
	second = parseSource(printed)
	return first, second
}

// TestParsePrintParseRoundTrip exercises spec.md §8 invariant 3:
// parse -> unparse -> reparse should be idempotent from the second
// iteration on, since Unparse has already normalized formatting. We
// assert on Unparse(second) == Unparse(first) rather than comparing
// the trees directly with ast.Equivalent, since the printer's own
// choices (e.g. always parenthesizing tuples) are themselves part of
// what must be stable, and a textual diff is far more legible than a
// field-by-field struct diff when this invariant breaks.
func TestParsePrintParseRoundTrip(t *testing.T) {
	cases := []string{
		"x = 1 + 2 * 3\n",
		"def add(a, b):\n    return a + b\n",
		"if a:\n    x = 1\nelse:\n    x = 2\n",
		"for i in items:\n    total += i\n",
		"while n > 0:\n    n -= 1\n",
		"class Dog(Animal):\n    def bark(self):\n        return 1\n",
		"x = [v for v in items if v > 0]\n",
		"try:\n    risky()\nexcept ValueError as e:\n    handle(e)\n",
	}
	for _, src := range cases {
		first, second := roundTrip(t, src)
		firstPrinted := ast.Unparse(first)
		secondPrinted := ast.Unparse(second)
		if diff := cmp.Diff(firstPrinted, secondPrinted); diff != "" {
			t.Fatalf("round trip not stable for %q (-first +second):\n%s", src, diff)
		}
	}
}

func TestParsePrintParseStructurallyEquivalent(t *testing.T) {
	src := "x = 1 + 2\ny = x * 3\n"
	first, second := roundTrip(t, src)
	require.True(t, ast.Equivalent(first, second), "expected %s to be structurally equivalent to its round-tripped form", src)
}
