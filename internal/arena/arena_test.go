package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeNode is a minimal arena.Node used only to exercise the package
// in isolation from the real AST node types.
type fakeNode struct {
	Owned
	name string
}

func newFake(parent Node, name string) *fakeNode {
	n := &fakeNode{name: name}
	Adopt(parent, n, "fakeNode")
	return n
}

func TestAdoptLinksParentAndChild(t *testing.T) {
	root := newFake(nil, "root")
	child := newFake(root, "child")

	require.Equal(t, Node(root), child.Parent())
	require.Len(t, root.Children(), 1)
	require.Equal(t, Node(child), root.Children()[0])
	require.NotZero(t, child.ClassID())
}

func TestMoveRelinksChild(t *testing.T) {
	root1 := newFake(nil, "root1")
	root2 := newFake(nil, "root2")
	child := newFake(root1, "child")

	require.NoError(t, Move(child, root2))
	require.Empty(t, root1.Children())
	require.Len(t, root2.Children(), 1)
	require.Equal(t, Node(root2), child.Parent())
}

func TestRemoveChildNotPresentIsLogicErrorNotPanic(t *testing.T) {
	root := newFake(nil, "root")
	other := newFake(nil, "other")
	stray := newFake(nil, "stray")

	err := RemoveChild(root, stray)
	require.Error(t, err)
	_ = other
}

func TestFreeSeversWholeSubtree(t *testing.T) {
	root := newFake(nil, "root")
	a := newFake(root, "a")
	newFake(a, "a1")
	newFake(a, "a2")

	Free(root)

	require.Empty(t, root.Children())
	require.Empty(t, a.Children())
	require.Nil(t, a.Parent())
}

func TestClassIDStableAcrossInstances(t *testing.T) {
	n1 := newFake(nil, "n1")
	n2 := newFake(nil, "n2")
	require.Equal(t, n1.ClassID(), n2.ClassID())
}
