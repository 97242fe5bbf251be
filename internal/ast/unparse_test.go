package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnparseSimpleAssign(t *testing.T) {
	m := &Module{Body: []Statement{
		&Assign{
			Targets: []Expression{&Name{Id: "a", Ctx: Store}},
			Value: &BinOp{
				Left:  &Constant{Kind: ConstInt, I: 1},
				Op:    "+",
				Right: &Constant{Kind: ConstInt, I: 2},
			},
		},
	}}
	require.Equal(t, "a = 1 + 2\n", Unparse(m))
}

func TestUnparseFunctionDef(t *testing.T) {
	m := &Module{Body: []Statement{
		&FunctionDef{
			Name: "f",
			Args: &Arguments{Positional: []*Arg{{Name: "x"}}},
			Body: []Statement{&Return{Value: &BinOp{
				Left:  &Name{Id: "x", Ctx: Load},
				Op:    "*",
				Right: &Name{Id: "x", Ctx: Load},
			}}},
		},
	}}
	require.Equal(t, "def f(x):\n    return x * x\n", Unparse(m))
}
