package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleModule() *Module {
	return &Module{
		Path: "m",
		Body: []Statement{
			&Assign{
				Targets: []Expression{&Name{Id: "a", Ctx: Store}},
				Value: &BinOp{
					Left:  &Constant{Kind: ConstInt, I: 1},
					Op:    "+",
					Right: &Constant{Kind: ConstInt, I: 2},
				},
			},
			&ExprStmt{Value: &Call{
				Func: &Name{Id: "print", Ctx: Load},
				Args: []Expression{&Name{Id: "a", Ctx: Load}},
			}},
		},
	}
}

func TestWalkVisitsEveryNode(t *testing.T) {
	var kinds []string
	err := Inspect(sampleModule(), func(n Node) {
		kinds = append(kinds, nodeKind(n))
	})
	require.NoError(t, err)
	require.Contains(t, kinds, "Module")
	require.Contains(t, kinds, "BinOp")
	require.Contains(t, kinds, "Call")
	require.Contains(t, kinds, "Name")
	require.True(t, len(kinds) >= 8)
}

func TestWalkPropagatesVisitorError(t *testing.T) {
	sentinel := errStop{}
	err := Walk(&stoppingVisitor{after: 2}, sampleModule())
	require.ErrorIs(t, err, sentinel)
}

func TestEquivalentIgnoresPosition(t *testing.T) {
	a := sampleModule()
	b := sampleModule()
	a.Pos = Pos{Line: 1, Col: 0}
	b.Pos = Pos{Line: 99, Col: 12}
	require.True(t, Equivalent(a, b))
}

func TestEquivalentDetectsLiteralDifference(t *testing.T) {
	a := sampleModule()
	b := sampleModule()
	b.Body[0].(*Assign).Value.(*BinOp).Right.(*Constant).I = 999
	require.False(t, Equivalent(a, b))
}

func TestEquivalentDetectsShapeDifference(t *testing.T) {
	a := sampleModule()
	b := sampleModule()
	b.Body = b.Body[:1]
	require.False(t, Equivalent(a, b))
}

type errStop struct{}

func (errStop) Error() string { return "stop" }

type stoppingVisitor struct {
	after int
	seen  int
}

func (s *stoppingVisitor) Pre(Node) error { return nil }
func (s *stoppingVisitor) Post(Node) error {
	s.seen++
	if s.seen >= s.after {
		return errStop{}
	}
	return nil
}

func nodeKind(n Node) string {
	switch n.(type) {
	case *Module:
		return "Module"
	case *Assign:
		return "Assign"
	case *BinOp:
		return "BinOp"
	case *Call:
		return "Call"
	case *Name:
		return "Name"
	case *Constant:
		return "Constant"
	case *ExprStmt:
		return "ExprStmt"
	default:
		return "Other"
	}
}
