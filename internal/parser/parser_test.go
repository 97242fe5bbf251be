package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/lexer"
)

func parseSource(src string) *ast.Module {
	l := lexer.New(lexer.NewStringStream("t.ly", src), false)
	p := New(l, "t.ly")
	return p.ParseModule()
}

func firstStmt(t *testing.T, src string) ast.Statement {
	t.Helper()
	m := parseSource(src)
	require.NotEmpty(t, m.Body)
	return m.Body[0]
}

func TestParseSimpleAssignment(t *testing.T) {
	stmt := firstStmt(t, "x = 1 + 2\n")
	assign, ok := stmt.(*ast.Assign)
	require.True(t, ok)
	require.Len(t, assign.Targets, 1)
	name, ok := assign.Targets[0].(*ast.Name)
	require.True(t, ok)
	require.Equal(t, "x", name.Id)
	require.Equal(t, ast.Store, name.Ctx)
	bin, ok := assign.Value.(*ast.BinOp)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
}

func TestParseBinaryPrecedence(t *testing.T) {
	stmt := firstStmt(t, "x = 1 + 2 * 3\n")
	assign := stmt.(*ast.Assign)
	bin := assign.Value.(*ast.BinOp)
	require.Equal(t, "+", bin.Op)
	_, leftIsConst := bin.Left.(*ast.Constant)
	require.True(t, leftIsConst)
	right := bin.Right.(*ast.BinOp)
	require.Equal(t, "*", right.Op)
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	stmt := firstStmt(t, "x = 2 ** 3 ** 2\n")
	assign := stmt.(*ast.Assign)
	top := assign.Value.(*ast.BinOp)
	require.Equal(t, "**", top.Op)
	_, leftIsConst := top.Left.(*ast.Constant)
	require.True(t, leftIsConst)
	_, rightIsBinOp := top.Right.(*ast.BinOp)
	require.True(t, rightIsBinOp)
}

func TestParseChainedComparison(t *testing.T) {
	stmt := firstStmt(t, "x = a < b <= c\n")
	assign := stmt.(*ast.Assign)
	cmp := assign.Value.(*ast.Compare)
	require.Equal(t, []string{"<", "<="}, cmp.Ops)
	require.Len(t, cmp.Comparators, 2)
}

func TestParseBoolOpFlattening(t *testing.T) {
	stmt := firstStmt(t, "x = a and b and c\n")
	assign := stmt.(*ast.Assign)
	b := assign.Value.(*ast.BoolOp)
	require.Equal(t, "and", b.Op)
	require.Len(t, b.Values, 3)
}

func TestParseFunctionDef(t *testing.T) {
	src := "def add(a, b=1, *args, c, **kwargs) -> int:\n    return a + b\n"
	stmt := firstStmt(t, src)
	fn, ok := stmt.(*ast.FunctionDef)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.NotNil(t, fn.Returns)
	require.Len(t, fn.Args.Positional, 2)
	require.Len(t, fn.Args.KeywordOnly, 1)
	require.NotNil(t, fn.Args.Vararg)
	require.NotNil(t, fn.Args.Kwarg)
	require.Contains(t, fn.Args.Defaults, "b")
	require.Len(t, fn.Body, 1)
	_, ok = fn.Body[0].(*ast.Return)
	require.True(t, ok)
}

func TestParseClassDefWithBases(t *testing.T) {
	src := "class Dog(Animal):\n    def bark(self):\n        return 1\n"
	stmt := firstStmt(t, src)
	cls, ok := stmt.(*ast.ClassDef)
	require.True(t, ok)
	require.Equal(t, "Dog", cls.Name)
	require.Len(t, cls.Bases, 1)
	require.Len(t, cls.Body, 1)
}

func TestParseIfElifElse(t *testing.T) {
	src := "if a:\n    x = 1\nelif b:\n    x = 2\nelse:\n    x = 3\n"
	stmt := firstStmt(t, src)
	ifs, ok := stmt.(*ast.If)
	require.True(t, ok)
	require.Len(t, ifs.Orelse, 1)
	elif, ok := ifs.Orelse[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, elif.Orelse, 1)
}

func TestParseForElse(t *testing.T) {
	src := "for x in items:\n    total += x\nelse:\n    total = 0\n"
	stmt := firstStmt(t, src)
	forStmt, ok := stmt.(*ast.For)
	require.True(t, ok)
	require.Len(t, forStmt.Body, 1)
	require.Len(t, forStmt.Orelse, 1)
}

func TestParseTryExceptElseFinally(t *testing.T) {
	src := "try:\n    risky()\nexcept ValueError as e:\n    handle(e)\nelse:\n    ok()\nfinally:\n    cleanup()\n"
	stmt := firstStmt(t, src)
	tryStmt, ok := stmt.(*ast.Try)
	require.True(t, ok)
	require.Len(t, tryStmt.Handlers, 1)
	require.Equal(t, "e", tryStmt.Handlers[0].Name)
	require.Len(t, tryStmt.Orelse, 1)
	require.Len(t, tryStmt.Finally, 1)
}

func TestParseCallWithAllArgumentForms(t *testing.T) {
	stmt := firstStmt(t, "f(1, *rest, key=2, **opts)\n")
	exprStmt, ok := stmt.(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := exprStmt.Value.(*ast.Call)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	_, isStarred := call.Args[1].(*ast.Starred)
	require.True(t, isStarred)
	require.Len(t, call.Keywords, 2)
	require.Equal(t, "key", call.Keywords[0].Name)
	require.Equal(t, "", call.Keywords[1].Name)
}

func TestParseSubscriptAndSlice(t *testing.T) {
	stmt := firstStmt(t, "x = a[1:2:3]\n")
	assign := stmt.(*ast.Assign)
	sub := assign.Value.(*ast.Subscript)
	sl, ok := sub.Index.(*ast.Slice)
	require.True(t, ok)
	require.NotNil(t, sl.Lower)
	require.NotNil(t, sl.Upper)
	require.NotNil(t, sl.Step)
}

func TestParseListDictSetComprehensions(t *testing.T) {
	stmt := firstStmt(t, "x = [v for v in items if v > 0]\n")
	assign := stmt.(*ast.Assign)
	lc, ok := assign.Value.(*ast.ListComp)
	require.True(t, ok)
	require.Len(t, lc.Generators, 1)
	require.Len(t, lc.Generators[0].Ifs, 1)

	stmt = firstStmt(t, "d = {k: v for k in items}\n")
	_, ok = stmt.(*ast.Assign).Value.(*ast.DictComp)
	require.True(t, ok)

	stmt = firstStmt(t, "s = {v for v in items}\n")
	_, ok = stmt.(*ast.Assign).Value.(*ast.SetComp)
	require.True(t, ok)
}

func TestParseLambda(t *testing.T) {
	stmt := firstStmt(t, "f = lambda x, y: x + y\n")
	assign := stmt.(*ast.Assign)
	lam, ok := assign.Value.(*ast.Lambda)
	require.True(t, ok)
	require.Len(t, lam.Args.Positional, 2)
}

func TestParseFString(t *testing.T) {
	stmt := firstStmt(t, `x = f"hello {name:>10} and {1 + 2}"` + "\n")
	assign := stmt.(*ast.Assign)
	js, ok := assign.Value.(*ast.JoinedStr)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(js.Values), 3)
	var fvs []*ast.FormattedValue
	for _, v := range js.Values {
		if fv, ok := v.(*ast.FormattedValue); ok {
			fvs = append(fvs, fv)
		}
	}
	require.Len(t, fvs, 2)
}

func TestParseMatchSequenceAndClass(t *testing.T) {
	src := "match p:\n    case Point(x=0, y=0):\n        origin()\n    case [a, b, *rest]:\n        many()\n    case _:\n        other()\n"
	stmt := firstStmt(t, src)
	m, ok := stmt.(*ast.Match)
	require.True(t, ok)
	require.Len(t, m.Cases, 3)
	cls, ok := m.Cases[0].Pattern.(*ast.MatchClass)
	require.True(t, ok)
	require.Len(t, cls.KeywordNames, 2)
	seq, ok := m.Cases[1].Pattern.(*ast.MatchSequence)
	require.True(t, ok)
	require.Len(t, seq.Patterns, 3)
	_, ok = m.Cases[1].Pattern.(*ast.MatchSequence).Patterns[2].(*ast.MatchStar)
	require.True(t, ok)
	wildcard, ok := m.Cases[2].Pattern.(*ast.MatchAs)
	require.True(t, ok)
	require.Nil(t, wildcard.Pattern)
}

func TestParseWithStatement(t *testing.T) {
	stmt := firstStmt(t, "with open(path) as f, lock():\n    use(f)\n")
	with, ok := stmt.(*ast.With)
	require.True(t, ok)
	require.Len(t, with.Items, 2)
	require.NotNil(t, with.Items[0].OptionalVar)
	require.Nil(t, with.Items[1].OptionalVar)
}

func TestParseAugAssign(t *testing.T) {
	stmt := firstStmt(t, "x += 1\n")
	aug, ok := stmt.(*ast.AugAssign)
	require.True(t, ok)
	require.Equal(t, "+", aug.Op)
}

func TestParseErrorRecoveryInsertsSentinel(t *testing.T) {
	m := parseSource("x = )\ny = 1\n")
	require.Len(t, m.Body, 2)
	first, ok := m.Body[0].(*ast.Assign)
	require.True(t, ok)
	_, isSentinel := first.Value.(*ast.NotImplementedExpr)
	require.True(t, isSentinel)
	assign, ok := m.Body[1].(*ast.Assign)
	require.True(t, ok)
	name := assign.Targets[0].(*ast.Name)
	require.Equal(t, "y", name.Id)
}

func TestParseConditionalExpression(t *testing.T) {
	stmt := firstStmt(t, "x = a if cond else b\n")
	assign := stmt.(*ast.Assign)
	ifExp, ok := assign.Value.(*ast.IfExp)
	require.True(t, ok)
	require.NotNil(t, ifExp.Test)
}
