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

package ast

// Equivalent reports whether a and b are structurally the same program,
// ignoring source positions (Pos) and comments. It consolidates what
// was seven near-identical per-language `astEq`/`strip` pairs in the
// teacher (analyzer/{bazel,gomod,protobuf,sql,starlark,thrift,yaml}/
// ast_equivalence.go) into one generic comparison over this repo's own
// node set, used by the round-trip property test (spec.md §8 "Parser
// round-trip").
func Equivalent(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Module:
		y, ok := b.(*Module)
		return ok && x.Path == y.Path && stmtsEq(x.Body, y.Body)

	case *FunctionDef:
		y, ok := b.(*FunctionDef)
		return ok && x.Name == y.Name && x.IsAsync == y.IsAsync &&
			argsEq(x.Args, y.Args) && exprEq(x.Returns, y.Returns) &&
			exprsEq(x.Decorators, y.Decorators) && stmtsEq(x.Body, y.Body)

	case *Arguments:
		y, ok := b.(*Arguments)
		if !ok {
			return false
		}
		return argListEq(x.PositionalOnly, y.PositionalOnly) &&
			argListEq(x.Positional, y.Positional) &&
			argListEq(x.KeywordOnly, y.KeywordOnly) &&
			argEq(x.Vararg, y.Vararg) && argEq(x.Kwarg, y.Kwarg) &&
			defaultsEq(x.Defaults, y.Defaults)

	case *Arg:
		y, ok := b.(*Arg)
		return ok && x.Name == y.Name && exprEq(x.Annotation, y.Annotation)

	case *ClassDef:
		y, ok := b.(*ClassDef)
		return ok && x.Name == y.Name && exprsEq(x.Bases, y.Bases) &&
			exprsEq(x.Decorators, y.Decorators) && stmtsEq(x.Body, y.Body)

	case *Return:
		y, ok := b.(*Return)
		return ok && exprEq(x.Value, y.Value)

	case *Assign:
		y, ok := b.(*Assign)
		return ok && exprsEq(x.Targets, y.Targets) && exprEq(x.Value, y.Value)

	case *AnnAssign:
		y, ok := b.(*AnnAssign)
		return ok && exprEq(x.Target, y.Target) && exprEq(x.Annotation, y.Annotation) && exprEq(x.Value, y.Value)

	case *AugAssign:
		y, ok := b.(*AugAssign)
		return ok && x.Op == y.Op && exprEq(x.Target, y.Target) && exprEq(x.Value, y.Value)

	case *If:
		y, ok := b.(*If)
		return ok && exprEq(x.Test, y.Test) && stmtsEq(x.Body, y.Body) && stmtsEq(x.Orelse, y.Orelse)

	case *For:
		y, ok := b.(*For)
		return ok && exprEq(x.Target, y.Target) && exprEq(x.Iter, y.Iter) &&
			stmtsEq(x.Body, y.Body) && stmtsEq(x.Orelse, y.Orelse)

	case *While:
		y, ok := b.(*While)
		return ok && exprEq(x.Test, y.Test) && stmtsEq(x.Body, y.Body) && stmtsEq(x.Orelse, y.Orelse)

	case *With:
		y, ok := b.(*With)
		if !ok || len(x.Items) != len(y.Items) || x.IsAsync != y.IsAsync {
			return false
		}
		for i := range x.Items {
			if !Equivalent(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return stmtsEq(x.Body, y.Body)

	case *WithItem:
		y, ok := b.(*WithItem)
		return ok && exprEq(x.ContextExpr, y.ContextExpr) && exprEq(x.OptionalVar, y.OptionalVar)

	case *Try:
		y, ok := b.(*Try)
		if !ok || len(x.Handlers) != len(y.Handlers) {
			return false
		}
		for i := range x.Handlers {
			if !Equivalent(x.Handlers[i], y.Handlers[i]) {
				return false
			}
		}
		return stmtsEq(x.Body, y.Body) && stmtsEq(x.Orelse, y.Orelse) && stmtsEq(x.Finally, y.Finally)

	case *ExceptHandler:
		y, ok := b.(*ExceptHandler)
		return ok && x.Name == y.Name && exprEq(x.Type, y.Type) && stmtsEq(x.Body, y.Body)

	case *Raise:
		y, ok := b.(*Raise)
		return ok && exprEq(x.Exc, y.Exc) && exprEq(x.Cause, y.Cause)

	case *Assert:
		y, ok := b.(*Assert)
		return ok && exprEq(x.Test, y.Test) && exprEq(x.Msg, y.Msg)

	case *Import:
		y, ok := b.(*Import)
		if !ok || len(x.Names) != len(y.Names) {
			return false
		}
		for i := range x.Names {
			if !Equivalent(x.Names[i], y.Names[i]) {
				return false
			}
		}
		return true

	case *ImportFrom:
		y, ok := b.(*ImportFrom)
		if !ok || x.Module != y.Module || len(x.Names) != len(y.Names) {
			return false
		}
		for i := range x.Names {
			if !Equivalent(x.Names[i], y.Names[i]) {
				return false
			}
		}
		return true

	case *Alias:
		y, ok := b.(*Alias)
		return ok && x.Name == y.Name && x.AsName == y.AsName

	case *Global:
		y, ok := b.(*Global)
		return ok && stringsEq(x.Names, y.Names)

	case *Nonlocal:
		y, ok := b.(*Nonlocal)
		return ok && stringsEq(x.Names, y.Names)

	case *Delete:
		y, ok := b.(*Delete)
		return ok && exprsEq(x.Targets, y.Targets)

	case *Pass:
		_, ok := b.(*Pass)
		return ok

	case *Break:
		_, ok := b.(*Break)
		return ok

	case *Continue:
		_, ok := b.(*Continue)
		return ok

	case *ExprStmt:
		y, ok := b.(*ExprStmt)
		return ok && x.IsDocstr == y.IsDocstr && exprEq(x.Value, y.Value)

	case *Match:
		y, ok := b.(*Match)
		if !ok || len(x.Cases) != len(y.Cases) {
			return false
		}
		for i := range x.Cases {
			if !Equivalent(x.Cases[i], y.Cases[i]) {
				return false
			}
		}
		return exprEq(x.Subject, y.Subject)

	case *MatchCase:
		y, ok := b.(*MatchCase)
		return ok && patEq(x.Pattern, y.Pattern) && exprEq(x.Guard, y.Guard) && stmtsEq(x.Body, y.Body)

	case *InvalidStatement:
		y, ok := b.(*InvalidStatement)
		return ok && x.Message == y.Message

	case *BoolOp:
		y, ok := b.(*BoolOp)
		return ok && x.Op == y.Op && exprsEq(x.Values, y.Values)

	case *BinOp:
		y, ok := b.(*BinOp)
		return ok && x.Op == y.Op && exprEq(x.Left, y.Left) && exprEq(x.Right, y.Right)

	case *UnaryOp:
		y, ok := b.(*UnaryOp)
		return ok && x.Op == y.Op && exprEq(x.Operand, y.Operand)

	case *IfExp:
		y, ok := b.(*IfExp)
		return ok && exprEq(x.Test, y.Test) && exprEq(x.Body, y.Body) && exprEq(x.Orelse, y.Orelse)

	case *Lambda:
		y, ok := b.(*Lambda)
		return ok && argsEq(x.Args, y.Args) && exprEq(x.Body, y.Body)

	case *Compare:
		y, ok := b.(*Compare)
		return ok && exprEq(x.Left, y.Left) && stringsEq(x.Ops, y.Ops) && exprsEq(x.Comparators, y.Comparators)

	case *Call:
		y, ok := b.(*Call)
		if !ok || len(x.Keywords) != len(y.Keywords) {
			return false
		}
		for i := range x.Keywords {
			if !Equivalent(x.Keywords[i], y.Keywords[i]) {
				return false
			}
		}
		return exprEq(x.Func, y.Func) && exprsEq(x.Args, y.Args)

	case *Keyword:
		y, ok := b.(*Keyword)
		return ok && x.Name == y.Name && exprEq(x.Value, y.Value)

	case *Starred:
		y, ok := b.(*Starred)
		return ok && exprEq(x.Value, y.Value)

	case *Attribute:
		y, ok := b.(*Attribute)
		return ok && x.Attr == y.Attr && exprEq(x.Value, y.Value)

	case *Subscript:
		y, ok := b.(*Subscript)
		return ok && exprEq(x.Value, y.Value) && exprEq(x.Index, y.Index)

	case *Slice:
		y, ok := b.(*Slice)
		return ok && exprEq(x.Lower, y.Lower) && exprEq(x.Upper, y.Upper) && exprEq(x.Step, y.Step)

	case *List:
		y, ok := b.(*List)
		return ok && exprsEq(x.Elts, y.Elts)

	case *Tuple:
		y, ok := b.(*Tuple)
		return ok && exprsEq(x.Elts, y.Elts)

	case *Set:
		y, ok := b.(*Set)
		return ok && exprsEq(x.Elts, y.Elts)

	case *Dict:
		y, ok := b.(*Dict)
		if !ok || len(x.Entries) != len(y.Entries) {
			return false
		}
		for i := range x.Entries {
			if !Equivalent(x.Entries[i], y.Entries[i]) {
				return false
			}
		}
		return true

	case *DictEntry:
		y, ok := b.(*DictEntry)
		return ok && exprEq(x.Key, y.Key) && exprEq(x.Value, y.Value)

	case *ListComp:
		y, ok := b.(*ListComp)
		return ok && exprEq(x.Elt, y.Elt) && compsEq(x.Generators, y.Generators)

	case *SetComp:
		y, ok := b.(*SetComp)
		return ok && exprEq(x.Elt, y.Elt) && compsEq(x.Generators, y.Generators)

	case *DictComp:
		y, ok := b.(*DictComp)
		return ok && exprEq(x.Key, y.Key) && exprEq(x.Value, y.Value) && compsEq(x.Generators, y.Generators)

	case *GeneratorExp:
		y, ok := b.(*GeneratorExp)
		return ok && exprEq(x.Elt, y.Elt) && compsEq(x.Generators, y.Generators)

	case *Comprehension:
		y, ok := b.(*Comprehension)
		return ok && x.IsAsync == y.IsAsync && exprEq(x.Target, y.Target) && exprEq(x.Iter, y.Iter) && exprsEq(x.Ifs, y.Ifs)

	case *Yield:
		y, ok := b.(*Yield)
		return ok && exprEq(x.Value, y.Value)

	case *YieldFrom:
		y, ok := b.(*YieldFrom)
		return ok && exprEq(x.Value, y.Value)

	case *Await:
		y, ok := b.(*Await)
		return ok && exprEq(x.Value, y.Value)

	case *JoinedStr:
		y, ok := b.(*JoinedStr)
		return ok && exprsEq(x.Values, y.Values)

	case *FormattedValue:
		y, ok := b.(*FormattedValue)
		return ok && x.FormatSpec == y.FormatSpec && exprEq(x.Value, y.Value)

	case *Name:
		y, ok := b.(*Name)
		return ok && x.Id == y.Id && x.Ctx == y.Ctx

	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.Kind == y.Kind && x.I == y.I && x.F == y.F && x.S == y.S && x.B == y.B

	case *NotImplementedExpr:
		y, ok := b.(*NotImplementedExpr)
		return ok && x.Message == y.Message

	case *MatchValue:
		y, ok := b.(*MatchValue)
		return ok && exprEq(x.Value, y.Value)

	case *MatchSingleton:
		y, ok := b.(*MatchSingleton)
		return ok && exprEq(x.Value, y.Value)

	case *MatchSequence:
		y, ok := b.(*MatchSequence)
		return ok && patsEq(x.Patterns, y.Patterns)

	case *MatchMapping:
		y, ok := b.(*MatchMapping)
		return ok && x.Rest == y.Rest && exprsEq(x.Keys, y.Keys) && patsEq(x.Patterns, y.Patterns)

	case *MatchClass:
		y, ok := b.(*MatchClass)
		return ok && exprEq(x.Cls, y.Cls) && patsEq(x.Patterns, y.Patterns) &&
			stringsEq(x.KeywordNames, y.KeywordNames) && patsEq(x.KeywordValues, y.KeywordValues)

	case *MatchStar:
		y, ok := b.(*MatchStar)
		return ok && x.Name == y.Name

	case *MatchAs:
		y, ok := b.(*MatchAs)
		return ok && x.Name == y.Name && patEq(x.Pattern, y.Pattern)

	case *MatchOr:
		y, ok := b.(*MatchOr)
		return ok && patsEq(x.Patterns, y.Patterns)

	default:
		return false
	}
}

func stmtsEq(a, b []Statement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

func exprsEq(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !exprEq(a[i], b[i]) {
			return false
		}
	}
	return true
}

func patsEq(a, b []Pattern) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !patEq(a[i], b[i]) {
			return false
		}
	}
	return true
}

func compsEq(a, b []*Comprehension) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

func argListEq(a, b []*Arg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !argEq(a[i], b[i]) {
			return false
		}
	}
	return true
}

func argEq(a, b *Arg) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Equivalent(a, b)
}

func argsEq(a, b *Arguments) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Equivalent(a, b)
}

func defaultsEq(a, b map[string]Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || !exprEq(v, bv) {
			return false
		}
	}
	return true
}

func stringsEq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func exprEq(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Equivalent(a, b)
}

func patEq(a, b Pattern) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Equivalent(a, b)
}
