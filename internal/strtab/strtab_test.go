package strtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternEquality(t *testing.T) {
	tab := New()

	a := tab.Intern("hello")
	b := tab.Intern("hello")
	c := tab.Intern("world")

	require.Equal(t, a, b, "interning the same string twice must yield the same id")
	require.NotEqual(t, a, c)
	require.Equal(t, "hello", tab.Lookup(a))
	require.Equal(t, "world", tab.Lookup(c))
}

func TestEmptyStringIsZero(t *testing.T) {
	tab := New()
	require.Equal(t, String(0), tab.Intern(""))
	require.Equal(t, "", tab.Lookup(0))
}

func TestLookupOutOfRange(t *testing.T) {
	tab := New()
	require.Equal(t, "", tab.Lookup(9999))
}

func TestIDsAreStableAcrossBlockGrowth(t *testing.T) {
	tab := New()
	ids := make([]String, 0, blockSize*3)
	for i := 0; i < blockSize*3; i++ {
		ids = append(ids, tab.Intern(string(rune('a'+i%26))+string(rune(i))))
	}
	for i, id := range ids {
		want := string(rune('a'+i%26)) + string(rune(i))
		require.Equal(t, want, tab.Lookup(id))
	}
}

func TestRefUnref(t *testing.T) {
	tab := New()
	id := tab.Intern("x")
	tab.Ref(id)
	tab.Ref(id)
	_, live := tab.Stats()
	require.Equal(t, uint32(2), live)
	tab.Unref(id)
	_, live = tab.Stats()
	require.Equal(t, uint32(1), live)
}
