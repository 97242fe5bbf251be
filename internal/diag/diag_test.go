package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBagAccumulatesWithoutAborting(t *testing.T) {
	var b Bag
	b.Addf(NameError, "m.ly", 1, 1, "name %q is not defined", "x")
	b.Addf(TypeError, "m.ly", 2, 3, "cannot add %s and %s", "i32", "str")
	require.True(t, b.HasErrors())
	require.Len(t, b.All(), 2)
	require.Error(t, b.Err())
}

func TestEmptyBagHasNoErrors(t *testing.T) {
	var b Bag
	require.False(t, b.HasErrors())
	require.NoError(t, b.Err())
}

func TestDiagnosticErrorFormat(t *testing.T) {
	d := Diagnostic{File: "m.ly", Line: 3, Col: 5, Kind: SyntaxError, Message: "unexpected token"}
	require.Equal(t, "m.ly:3:5: SyntaxError: unexpected token", d.Error())
}
