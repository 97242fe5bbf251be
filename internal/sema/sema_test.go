// Copyright (c) 2023 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/diag"
	"github.com/lython-go/lython/internal/lexer"
	"github.com/lython-go/lython/internal/parser"
)

func parseModule(t *testing.T, src string) *ast.Module {
	t.Helper()
	l := lexer.New(lexer.NewStringStream("t.ly", src), false)
	p := parser.New(l, "t.ly")
	m := p.ParseModule()
	require.False(t, p.Diagnostics().HasErrors(), "unexpected parse errors: %v", p.Diagnostics().All())
	return m
}

func analyze(t *testing.T, src string) *Analyzer {
	t.Helper()
	mod := parseModule(t, src)
	a := New("t.ly", nil)
	a.Analyze(mod)
	return a
}

func kinds(diags []diag.Diagnostic) []diag.Kind {
	out := make([]diag.Kind, len(diags))
	for i, d := range diags {
		out[i] = d.Kind
	}
	return out
}

func TestAnalyzeSimpleAssignmentBindsVarid(t *testing.T) {
	a := analyze(t, "x = 1\ny = x + 2\n")
	require.False(t, a.Diagnostics().HasErrors())

	mod, _ := a.scopes.Resolve("x", EntireStack)
	require.NotNil(t, mod)
	require.Equal(t, TypeInt, mod.Type)

	yb, _ := a.scopes.Resolve("y", EntireStack)
	require.NotNil(t, yb)
	require.Equal(t, TypeInt, yb.Type)
}

func TestAnalyzeUndefinedNameReportsNameError(t *testing.T) {
	a := analyze(t, "y = x + 1\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.NameError)
}

func TestAnalyzeBinOpRecordsNativeSignature(t *testing.T) {
	mod := parseModule(t, "x = 1 + 2\n")
	a := New("t.ly", nil)
	a.Analyze(mod)
	require.False(t, a.Diagnostics().HasErrors())

	assign := mod.Body[0].(*ast.Assign)
	bin := assign.Value.(*ast.BinOp)
	require.Equal(t, sig("+", TypeInt, TypeInt), bin.NativeOp)
}

func TestAnalyzeUnsupportedOperandReportsError(t *testing.T) {
	a := analyze(t, "x = 1 + \"a\"\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.UnsupportedOperand)
}

func TestAnalyzeFunctionDefBuildsArrowAndAllowsRecursion(t *testing.T) {
	a := analyze(t, "def fact(n: int) -> int:\n    if n < 2:\n        return 1\n    return n * fact(n - 1)\n")
	require.False(t, a.Diagnostics().HasErrors())

	b, ok := a.scopes.Resolve("fact", EntireStack)
	require.True(t, ok)
	require.True(t, a.types.isArrow(b.Type))
	require.Equal(t, TypeInt, a.types.arrowReturn(b.Type))
	require.Equal(t, []TypeID{TypeInt}, a.types.arrowParams(b.Type))
}

func TestAnalyzeFunctionReturnTypeMismatchReportsTypeError(t *testing.T) {
	a := analyze(t, "def f() -> int:\n    return \"oops\"\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.TypeError)
}

func TestAnalyzeNestedReturnInsideIfIsTracked(t *testing.T) {
	// a return nested inside an if/else must still be checked against
	// the declared return type, not just a bare top-level return.
	a := analyze(t, "def f(n: int) -> int:\n    if n > 0:\n        return \"bad\"\n    return 0\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.TypeError)
}

func TestAnalyzeClassDefRecordsAttributesAndMethods(t *testing.T) {
	src := "class Point:\n" +
		"    def __init__(self, x: int, y: int):\n" +
		"        self.x = x\n" +
		"        self.y = y\n" +
		"    def sum(self) -> int:\n" +
		"        return self.x + self.y\n"
	a := analyze(t, src)
	require.False(t, a.Diagnostics().HasErrors())

	cls, ok := a.scopes.Resolve("Point", EntireStack)
	require.True(t, ok)
	require.True(t, a.types.isClass(cls.Type))

	xType, ok := a.classAttr(cls.Type, "x")
	require.True(t, ok)
	require.Equal(t, TypeInt, xType)

	sumType, ok := a.classAttr(cls.Type, "sum")
	require.True(t, ok)
	require.True(t, a.types.isArrow(sumType))
	require.Equal(t, TypeInt, a.types.arrowReturn(sumType))
}

func TestAnalyzeAttributeErrorOnUnknownAttribute(t *testing.T) {
	src := "class Point:\n" +
		"    def __init__(self, x: int):\n" +
		"        self.x = x\n" +
		"p = Point(1)\n" +
		"q = p.missing\n"
	a := analyze(t, src)
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.AttributeError)
}

func TestAnalyzeAnnAssignTypeMismatchReportsTypeError(t *testing.T) {
	a := analyze(t, "x: int = \"not an int\"\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.TypeError)
}

func TestAnalyzeCallArgumentTypeMismatchReportsTypeError(t *testing.T) {
	a := analyze(t, "def f(a: int, b: int) -> int:\n    return a + b\nx = f(1, \"two\")\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.TypeError)
}

func TestAnalyzeCallOnNonCallableReportsTypeError(t *testing.T) {
	a := analyze(t, "x = 1\ny = x()\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.TypeError)
}

func TestAnalyzeForLoopBindsTargetAndElse(t *testing.T) {
	a := analyze(t, "total = 0\nfor item in [1, 2, 3]:\n    total = total + item\nelse:\n    pass\n")
	require.False(t, a.Diagnostics().HasErrors())

	b, ok := a.scopes.Resolve("item", EntireStack)
	require.True(t, ok)
	require.Equal(t, TypeUnknown, b.Type)
}

func TestAnalyzeCompareRecordsNativeSignatures(t *testing.T) {
	mod := parseModule(t, "x = 1 < 2 < 3\n")
	a := New("t.ly", nil)
	a.Analyze(mod)
	require.False(t, a.Diagnostics().HasErrors())

	assign := mod.Body[0].(*ast.Assign)
	cmp := assign.Value.(*ast.Compare)
	require.Len(t, cmp.NativeOps, 2)
	require.Equal(t, sig("<", TypeInt, TypeInt), cmp.NativeOps[0])
}

func TestAnalyzeMagicMethodFallbackForUserDefinedOperator(t *testing.T) {
	src := "class Vector:\n" +
		"    def __init__(self, v: int):\n" +
		"        self.v = v\n" +
		"    def __add__(self, other: int) -> int:\n" +
		"        return self.v + other\n" +
		"a = Vector(1)\n" +
		"b = a + 2\n"
	a := analyze(t, src)
	require.False(t, a.Diagnostics().HasErrors())

	bBind, ok := a.scopes.Resolve("b", EntireStack)
	require.True(t, ok)
	require.Equal(t, TypeInt, bBind.Type)
}

// mockImporter is a minimal Importer used to exercise import
// resolution without a real module loader.
type mockImporter struct {
	modules map[string]map[string]TypeID
}

func (m *mockImporter) Import(path string) (map[string]TypeID, bool) {
	exports, ok := m.modules[path]
	return exports, ok
}

func TestAnalyzeImportFromResolvesExportedNames(t *testing.T) {
	mod := parseModule(t, "from mathutils import square\nx = square(2)\n")

	// Exported TypeIDs only mean the same thing across modules when
	// they share a registry, as a loader for a multi-module program does
	// via NewWithRegistry.
	registry := NewRegistry()
	squareType := registry.newArrow("square", []TypeID{TypeInt}, TypeInt)

	a := NewWithRegistry("t.ly", &mockImporter{modules: map[string]map[string]TypeID{
		"mathutils": {"square": squareType},
	}}, registry)
	a.Analyze(mod)
	require.False(t, a.Diagnostics().HasErrors())

	xBind, ok := a.scopes.Resolve("x", EntireStack)
	require.True(t, ok)
	require.Equal(t, TypeInt, xBind.Type)
}

func TestAnalyzeImportMissingModuleReportsModuleNotFoundError(t *testing.T) {
	a := analyze(t, "import does_not_exist\n")
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.ModuleNotFoundError)
}

func TestAnalyzeImportFromMissingNameReportsImportError(t *testing.T) {
	mod := parseModule(t, "from mathutils import missing_fn\n")
	a := New("t.ly", &mockImporter{modules: map[string]map[string]TypeID{
		"mathutils": {},
	}})
	a.Analyze(mod)
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.ImportError)
}

func TestAnalyzeErrorsDoNotAbortRemainingAnalysis(t *testing.T) {
	// one undefined name should not prevent the rest of the module
	// from being analyzed and reported.
	a := analyze(t, "a = undefined_one\nb = undefined_two\n")
	errs := a.Diagnostics().All()
	require.Len(t, errs, 2)
	for _, e := range errs {
		require.Equal(t, diag.NameError, e.Kind)
	}
}

func TestAnalyzeListCompInfersElementType(t *testing.T) {
	mod := parseModule(t, "xs = [2 for n in [1, 2, 3]]\n")
	a := New("t.ly", nil)
	a.Analyze(mod)
	require.False(t, a.Diagnostics().HasErrors())

	b, ok := a.scopes.Resolve("xs", EntireStack)
	require.True(t, ok)
	require.Equal(t, TypeInt, b.Type)
}

func TestAnalyzeIfExpBothArmsMustUnify(t *testing.T) {
	mod := parseModule(t, "x = 1 if True else \"two\"\n")
	a := New("t.ly", nil)
	a.Analyze(mod)
	require.True(t, a.Diagnostics().HasErrors())
	require.Contains(t, kinds(a.Diagnostics().All()), diag.TypeError)

	b, ok := a.scopes.Resolve("x", EntireStack)
	require.True(t, ok)
	require.Equal(t, TypeUnknown, b.Type)
}

func TestAnalyzeIfExpMatchingArmsUnify(t *testing.T) {
	mod := parseModule(t, "x = 1 if True else 2\n")
	a := New("t.ly", nil)
	a.Analyze(mod)
	require.False(t, a.Diagnostics().HasErrors())

	b, ok := a.scopes.Resolve("x", EntireStack)
	require.True(t, ok)
	require.Equal(t, TypeInt, b.Type)
}
