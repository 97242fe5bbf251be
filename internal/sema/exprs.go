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
	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/diag"
)

// inferExpr is sema's main expression dispatch: every expression kind
// is both type-checked and annotated in place (Name.Varid/TypeID,
// BinOp.NativeOp, UnaryOp.NativeOp, Compare.NativeOps) per spec.md
// §4.8.
func (a *Analyzer) inferExpr(e ast.Expression) TypeID {
	switch expr := e.(type) {
	case *ast.Constant:
		return a.inferConstant(expr)

	case *ast.Name:
		return a.resolveName(expr)

	case *ast.BinOp:
		return a.inferBinOp(expr)

	case *ast.BoolOp:
		return a.inferBoolOp(expr)

	case *ast.UnaryOp:
		return a.inferUnaryOp(expr)

	case *ast.Compare:
		return a.inferCompare(expr)

	case *ast.Call:
		return a.inferCall(expr)

	case *ast.Attribute:
		return a.inferAttribute(expr)

	case *ast.Subscript:
		a.inferExpr(expr.Value)
		a.inferExpr(expr.Index)
		return TypeUnknown

	case *ast.Slice:
		if expr.Lower != nil {
			a.inferExpr(expr.Lower)
		}
		if expr.Upper != nil {
			a.inferExpr(expr.Upper)
		}
		if expr.Step != nil {
			a.inferExpr(expr.Step)
		}
		return TypeUnknown

	case *ast.Starred:
		return a.inferExpr(expr.Value)

	case *ast.List:
		return elementType(a.inferAll(expr.Elts))

	case *ast.Tuple:
		a.inferAll(expr.Elts)
		return TypeUnknown

	case *ast.Set:
		return elementType(a.inferAll(expr.Elts))

	case *ast.Dict:
		for _, entry := range expr.Entries {
			if entry.Key != nil {
				a.inferExpr(entry.Key)
			}
			a.inferExpr(entry.Value)
		}
		return TypeUnknown

	case *ast.IfExp:
		a.inferExpr(expr.Test)
		bodyType := a.inferExpr(expr.Body)
		orelseType := a.inferExpr(expr.Orelse)
		if bodyType == TypeUnknown || orelseType == TypeUnknown {
			return TypeUnknown
		}
		if bodyType != orelseType {
			a.errorf(expr, diag.TypeError, "conditional expression arms have different types: %s and %s", a.types.Name(bodyType), a.types.Name(orelseType))
			return TypeUnknown
		}
		return bodyType

	case *ast.Lambda:
		return a.inferLambda(expr)

	case *ast.ListComp:
		a.analyzeComprehensions(expr.Generators)
		elt := a.inferExpr(expr.Elt)
		a.scopes.PopScope()
		return elt

	case *ast.SetComp:
		a.analyzeComprehensions(expr.Generators)
		elt := a.inferExpr(expr.Elt)
		a.scopes.PopScope()
		return elt

	case *ast.DictComp:
		a.analyzeComprehensions(expr.Generators)
		a.inferExpr(expr.Key)
		a.inferExpr(expr.Value)
		a.scopes.PopScope()
		return TypeUnknown

	case *ast.GeneratorExp:
		a.analyzeComprehensions(expr.Generators)
		a.inferExpr(expr.Elt)
		a.scopes.PopScope()
		return TypeUnknown

	case *ast.Yield:
		if expr.Value != nil {
			a.inferExpr(expr.Value)
		}
		return TypeUnknown

	case *ast.YieldFrom:
		a.inferExpr(expr.Value)
		return TypeUnknown

	case *ast.Await:
		a.inferExpr(expr.Value)
		return TypeUnknown

	case *ast.JoinedStr:
		a.inferAll(expr.Values)
		return TypeStr

	case *ast.FormattedValue:
		a.inferExpr(expr.Value)
		return TypeStr

	case *ast.NotImplementedExpr:
		return TypeUnknown

	default:
		return TypeUnknown
	}
}

func (a *Analyzer) inferAll(exprs []ast.Expression) []TypeID {
	types := make([]TypeID, 0, len(exprs))
	for _, e := range exprs {
		types = append(types, a.inferExpr(e))
	}
	return types
}

func (a *Analyzer) inferConstant(c *ast.Constant) TypeID {
	switch c.Kind {
	case ast.ConstInt:
		return TypeInt
	case ast.ConstFloat:
		return TypeFloat
	case ast.ConstStr:
		return TypeStr
	case ast.ConstBool:
		return TypeBool
	case ast.ConstNone:
		return TypeNone
	default:
		return TypeUnknown
	}
}

// resolveName dispatches on Ctx: Store declares (or updates) a binding
// in the current scope; Load/Del resolve against the full scope stack
// and report NameError when nothing matches, per spec.md §4.8's
// "unresolved identifiers are reported once, without aborting the
// analysis of the rest of the tree".
func (a *Analyzer) resolveName(n *ast.Name) TypeID {
	switch n.Ctx {
	case ast.Store:
		b := a.scopes.Declare(n.Id, TypeUnknown, n)
		n.Varid = b.Varid
		n.TypeID = int32(b.Type)
		return b.Type

	default: // Load, Del
		b, ok := a.scopes.Resolve(n.Id, EntireStack)
		if !ok {
			a.errorf(n, diag.NameError, "name %q is not defined", n.Id)
			return TypeUnknown
		}
		n.Varid = b.Varid
		n.TypeID = int32(b.Type)
		return b.Type
	}
}

func (a *Analyzer) inferBinOp(b *ast.BinOp) TypeID {
	left := a.inferExpr(b.Left)
	right := a.inferExpr(b.Right)
	return a.resolveBinaryType(b, b.Op, left, right)
}

// resolveBinaryType implements spec.md §4.8's operator resolution:
// the native signature table is tried first; failing that, the left
// operand's class attribute table is checked for the forward dunder
// method, then the right operand's for the reverse dunder method,
// mirroring Python's `lhs.__op__(rhs)` before `rhs.__rop__(lhs)`.
func (a *Analyzer) resolveBinaryType(node ast.Node, op string, left, right TypeID) TypeID {
	if key, result, ok := lookupBinary(op, left, right); ok {
		if binop, isBinOp := node.(*ast.BinOp); isBinOp {
			binop.NativeOp = key
		}
		return result
	}

	names, hasMagic := binaryMagicMethods[op]
	if hasMagic {
		if a.types.isClass(left) {
			if methodType, ok := a.classAttr(left, names[0]); ok {
				return a.types.arrowReturn(methodType)
			}
		}
		if a.types.isClass(right) {
			if methodType, ok := a.classAttr(right, names[1]); ok {
				return a.types.arrowReturn(methodType)
			}
		}
	}

	if left == TypeUnknown || right == TypeUnknown {
		return TypeUnknown
	}
	a.errorf(node, diag.UnsupportedOperand, "unsupported operand type(s) for %s: %q and %q", op, a.types.Name(left), a.types.Name(right))
	return TypeUnknown
}

func (a *Analyzer) inferBoolOp(b *ast.BoolOp) TypeID {
	types := a.inferAll(b.Values)
	if len(types) == 0 {
		return TypeBool
	}
	return elementType(types)
}

func (a *Analyzer) inferUnaryOp(u *ast.UnaryOp) TypeID {
	operand := a.inferExpr(u.Operand)
	if key, result, ok := lookupUnary(u.Op, operand); ok {
		u.NativeOp = key
		return result
	}
	if method, hasMagic := unaryMagicMethods[u.Op]; hasMagic && a.types.isClass(operand) {
		if methodType, ok := a.classAttr(operand, method); ok {
			return a.types.arrowReturn(methodType)
		}
	}
	if operand == TypeUnknown {
		return TypeUnknown
	}
	a.errorf(u, diag.UnsupportedOperand, "unsupported operand type for unary %s: %q", u.Op, a.types.Name(operand))
	return TypeUnknown
}

func (a *Analyzer) inferCompare(c *ast.Compare) TypeID {
	left := a.inferExpr(c.Left)
	natives := make([]string, len(c.Ops))
	result := TypeBool
	cur := left
	for i, op := range c.Ops {
		right := a.inferExpr(c.Comparators[i])
		if key, _, ok := lookupNativeCompare(op, cur, right); ok {
			natives[i] = key
		} else if method, hasMagic := comparisonMagicMethods[op]; hasMagic {
			resolved := false
			if a.types.isClass(cur) {
				if _, ok := a.classAttr(cur, method); ok {
					resolved = true
				}
			}
			if !resolved && cur != TypeUnknown && right != TypeUnknown {
				a.errorf(c, diag.UnsupportedOperand, "unsupported operand type(s) for %s: %q and %q", op, a.types.Name(cur), a.types.Name(right))
				result = TypeUnknown
			}
		}
		// "is", "is not", "in", "not in" always resolve natively to bool.
		cur = right
	}
	c.NativeOps = natives
	return result
}

func lookupNativeCompare(op string, left, right TypeID) (string, TypeID, bool) {
	switch op {
	case "is", "is not", "in", "not in":
		return unarySig(op, left), TypeBool, true
	default:
		return lookupBinary(op, left, right)
	}
}

func (a *Analyzer) inferCall(c *ast.Call) TypeID {
	funcType := a.inferExpr(c.Func)
	argTypes := a.inferAll(c.Args)
	for _, kw := range c.Keywords {
		a.inferExpr(kw.Value)
	}

	if a.types.isClass(funcType) {
		if ctor, ok := a.classAttr(funcType, "__init__"); ok {
			a.checkArity(c, ctor, argTypes)
		}
		return funcType
	}

	if a.types.isArrow(funcType) {
		a.checkArity(c, funcType, argTypes)
		return a.types.arrowReturn(funcType)
	}

	if funcType == TypeUnknown {
		return TypeUnknown
	}
	a.errorf(c, diag.TypeError, "%q is not callable", a.types.Name(funcType))
	return TypeUnknown
}

func (a *Analyzer) checkArity(node ast.Node, arrow TypeID, argTypes []TypeID) {
	params := a.types.arrowParams(arrow)
	// __init__'s first parameter is `self`, never supplied by the caller.
	if len(params) > 0 && len(params) == len(argTypes)+1 {
		params = params[1:]
	}
	if len(params) != len(argTypes) {
		return // variadic/defaulted calls are common; arity is advisory only
	}
	for i, want := range params {
		got := argTypes[i]
		if want != TypeUnknown && got != TypeUnknown && want != got {
			a.errorf(node, diag.TypeError, "argument %d: expected %s, got %s", i+1, a.types.Name(want), a.types.Name(got))
		}
	}
}

func (a *Analyzer) inferAttribute(attr *ast.Attribute) TypeID {
	objType := a.inferExpr(attr.Value)
	if objType == TypeUnknown {
		return TypeUnknown
	}
	if typ, ok := a.classAttr(objType, attr.Attr); ok {
		return typ
	}
	a.errorf(attr, diag.AttributeError, "%q object has no attribute %q", a.types.Name(objType), attr.Attr)
	return TypeUnknown
}

func (a *Analyzer) inferLambda(l *ast.Lambda) TypeID {
	params := a.collectParamTypes(l.Args)
	a.scopes.PushScope(false)
	a.declareParams(l.Args)
	bodyType := a.inferExpr(l.Body)
	a.scopes.PopScope()
	return a.types.newArrow("<lambda>", params, bodyType)
}

// analyzeComprehensions pushes one scope spanning every generator
// clause of a comprehension, binding each `for` target and analyzing
// each clause's `if` guards before the caller infers the element
// expression(s). The caller is responsible for popping the scope.
func (a *Analyzer) analyzeComprehensions(gens []*ast.Comprehension) {
	a.scopes.PushScope(false)
	for _, gen := range gens {
		iterType := a.inferExpr(gen.Iter)
		_ = iterType
		a.bindTarget(gen.Target, TypeUnknown)
		for _, cond := range gen.Ifs {
			a.inferExpr(cond)
		}
	}
}
