package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSmallTypeTagFidelity(t *testing.T) {
	v := I64(42)
	require.True(t, v.Is(TagI64))
	n, fault := v.AsI64()
	require.False(t, fault.Failed)
	require.Equal(t, int64(42), n)
}

func TestMismatchedAsReturnsFault(t *testing.T) {
	v := I64(1)
	_, fault := v.AsBool()
	require.True(t, fault.Failed)
	require.Equal(t, TagI64, fault.ValueTag)
	require.Equal(t, TagBool, fault.RequestedTag)
}

func TestEqualityBitwiseForSmallTypes(t *testing.T) {
	require.True(t, I64(3).Equal(I64(3)))
	require.False(t, I64(3).Equal(I64(4)))
	require.False(t, I64(3).Equal(F64(3)))
	require.True(t, None().Equal(None()))
	require.True(t, Bool(true).Equal(Bool(true)))
}

func TestAsI64PayloadsAdd(t *testing.T) {
	a, _ := I64(2).AsI64()
	b, _ := I64(3).AsI64()
	require.Equal(t, int64(5), a+b)
}

func TestHeapTypeRegistryRoundTrip(t *testing.T) {
	tag := RegisterHeapType("test.counter", Ops{
		Printer: func(a any) string { return "counter" },
		Equaler: func(a, b any) bool { return a.(*int) == b.(*int) },
		Hasher:  func(a any) uint64 { return uint64(*a.(*int)) },
	})
	n := 7
	v := Heap(tag, &n)
	require.Equal(t, "counter", v.String())
	require.Equal(t, uint64(7), v.Hash())
	require.True(t, v.Equal(v))
}

func TestTruthy(t *testing.T) {
	require.False(t, None().Truthy())
	require.False(t, I64(0).Truthy())
	require.True(t, I64(1).Truthy())
	require.False(t, Bool(false).Truthy())
	require.True(t, Bool(true).Truthy())
	require.False(t, F64(0).Truthy())
}
