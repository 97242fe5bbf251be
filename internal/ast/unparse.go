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

import (
	"fmt"
	"strconv"
	"strings"
)

// Unparse renders m back to source text. It is the pretty-printer
// spec.md §4.7 describes as a pass that "subclasses" the generic
// traversal; since Go has no subclassing, this is a dedicated
// recursive printer with its own switch over the node kinds it
// supports, rather than a Visitor implementation (a Visitor's Pre/Post
// don't have a natural place to accumulate per-node return values).
// Used by the parser round-trip property test (spec.md §8 invariant 3):
// parse(source) -> Unparse -> parse again should yield an Equivalent
// tree to the first parse.
func Unparse(m *Module) string {
	p := &printer{}
	p.stmts(m.Body, 0)
	return p.b.String()
}

type printer struct {
	b strings.Builder
}

func (p *printer) indent(depth int) {
	p.b.WriteString(strings.Repeat("    ", depth))
}

func (p *printer) stmts(stmts []Statement, depth int) {
	if len(stmts) == 0 {
		p.indent(depth)
		p.b.WriteString("pass\n")
		return
	}
	for _, s := range stmts {
		p.stmt(s, depth)
	}
}

func (p *printer) stmt(s Statement, depth int) {
	p.indent(depth)
	switch n := s.(type) {
	case *FunctionDef:
		if n.IsAsync {
			p.b.WriteString("async ")
		}
		p.b.WriteString("def ")
		p.b.WriteString(n.Name)
		p.b.WriteString("(")
		p.arguments(n.Args)
		p.b.WriteString(")")
		if n.Returns != nil {
			p.b.WriteString(" -> ")
			p.expr(n.Returns)
		}
		p.b.WriteString(":\n")
		p.stmts(n.Body, depth+1)

	case *ClassDef:
		p.b.WriteString("class ")
		p.b.WriteString(n.Name)
		if len(n.Bases) > 0 {
			p.b.WriteString("(")
			p.exprList(n.Bases)
			p.b.WriteString(")")
		}
		p.b.WriteString(":\n")
		p.stmts(n.Body, depth+1)

	case *Return:
		p.b.WriteString("return")
		if n.Value != nil {
			p.b.WriteString(" ")
			p.expr(n.Value)
		}
		p.b.WriteString("\n")

	case *Assign:
		for _, t := range n.Targets {
			p.expr(t)
			p.b.WriteString(" = ")
		}
		p.expr(n.Value)
		p.b.WriteString("\n")

	case *AnnAssign:
		p.expr(n.Target)
		p.b.WriteString(": ")
		p.expr(n.Annotation)
		if n.Value != nil {
			p.b.WriteString(" = ")
			p.expr(n.Value)
		}
		p.b.WriteString("\n")

	case *AugAssign:
		p.expr(n.Target)
		p.b.WriteString(" " + n.Op + "= ")
		p.expr(n.Value)
		p.b.WriteString("\n")

	case *If:
		p.b.WriteString("if ")
		p.expr(n.Test)
		p.b.WriteString(":\n")
		p.stmts(n.Body, depth+1)
		if len(n.Orelse) > 0 {
			p.indent(depth)
			p.b.WriteString("else:\n")
			p.stmts(n.Orelse, depth+1)
		}

	case *For:
		p.b.WriteString("for ")
		p.expr(n.Target)
		p.b.WriteString(" in ")
		p.expr(n.Iter)
		p.b.WriteString(":\n")
		p.stmts(n.Body, depth+1)
		if len(n.Orelse) > 0 {
			p.indent(depth)
			p.b.WriteString("else:\n")
			p.stmts(n.Orelse, depth+1)
		}

	case *While:
		p.b.WriteString("while ")
		p.expr(n.Test)
		p.b.WriteString(":\n")
		p.stmts(n.Body, depth+1)
		if len(n.Orelse) > 0 {
			p.indent(depth)
			p.b.WriteString("else:\n")
			p.stmts(n.Orelse, depth+1)
		}

	case *With:
		p.b.WriteString("with ")
		for i, item := range n.Items {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(item.ContextExpr)
			if item.OptionalVar != nil {
				p.b.WriteString(" as ")
				p.expr(item.OptionalVar)
			}
		}
		p.b.WriteString(":\n")
		p.stmts(n.Body, depth+1)

	case *Try:
		p.b.WriteString("try:\n")
		p.stmts(n.Body, depth+1)
		for _, h := range n.Handlers {
			p.indent(depth)
			p.b.WriteString("except")
			if h.Type != nil {
				p.b.WriteString(" ")
				p.expr(h.Type)
				if h.Name != "" {
					p.b.WriteString(" as " + h.Name)
				}
			}
			p.b.WriteString(":\n")
			p.stmts(h.Body, depth+1)
		}
		if len(n.Orelse) > 0 {
			p.indent(depth)
			p.b.WriteString("else:\n")
			p.stmts(n.Orelse, depth+1)
		}
		if len(n.Finally) > 0 {
			p.indent(depth)
			p.b.WriteString("finally:\n")
			p.stmts(n.Finally, depth+1)
		}

	case *Raise:
		p.b.WriteString("raise")
		if n.Exc != nil {
			p.b.WriteString(" ")
			p.expr(n.Exc)
		}
		if n.Cause != nil {
			p.b.WriteString(" from ")
			p.expr(n.Cause)
		}
		p.b.WriteString("\n")

	case *Assert:
		p.b.WriteString("assert ")
		p.expr(n.Test)
		if n.Msg != nil {
			p.b.WriteString(", ")
			p.expr(n.Msg)
		}
		p.b.WriteString("\n")

	case *Import:
		p.b.WriteString("import ")
		for i, a := range n.Names {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(a.Name)
			if a.AsName != "" {
				p.b.WriteString(" as " + a.AsName)
			}
		}
		p.b.WriteString("\n")

	case *ImportFrom:
		p.b.WriteString("from " + n.Module + " import ")
		for i, a := range n.Names {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(a.Name)
			if a.AsName != "" {
				p.b.WriteString(" as " + a.AsName)
			}
		}
		p.b.WriteString("\n")

	case *Global:
		p.b.WriteString("global " + strings.Join(n.Names, ", ") + "\n")

	case *Nonlocal:
		p.b.WriteString("nonlocal " + strings.Join(n.Names, ", ") + "\n")

	case *Delete:
		p.b.WriteString("del ")
		p.exprList(n.Targets)
		p.b.WriteString("\n")

	case *Pass:
		p.b.WriteString("pass\n")

	case *Break:
		p.b.WriteString("break\n")

	case *Continue:
		p.b.WriteString("continue\n")

	case *ExprStmt:
		p.expr(n.Value)
		p.b.WriteString("\n")

	case *Match:
		p.b.WriteString("match ")
		p.expr(n.Subject)
		p.b.WriteString(":\n")
		for _, c := range n.Cases {
			p.indent(depth + 1)
			p.b.WriteString("case ")
			p.pattern(c.Pattern)
			if c.Guard != nil {
				p.b.WriteString(" if ")
				p.expr(c.Guard)
			}
			p.b.WriteString(":\n")
			p.stmts(c.Body, depth+2)
		}

	case *InvalidStatement:
		p.b.WriteString("# invalid statement: " + n.Message + "\n")

	default:
		p.b.WriteString(fmt.Sprintf("# unsupported statement %T\n", n))
	}
}

func (p *printer) exprList(exprs []Expression) {
	for i, e := range exprs {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.expr(e)
	}
}

func (p *printer) arguments(a *Arguments) {
	if a == nil {
		return
	}
	first := true
	sep := func() {
		if !first {
			p.b.WriteString(", ")
		}
		first = false
	}
	printArg := func(arg *Arg) {
		sep()
		p.b.WriteString(arg.Name)
		if arg.Annotation != nil {
			p.b.WriteString(": ")
			p.expr(arg.Annotation)
		}
		if d, ok := a.Defaults[arg.Name]; ok {
			p.b.WriteString(" = ")
			p.expr(d)
		}
	}
	for _, arg := range a.PositionalOnly {
		printArg(arg)
	}
	if len(a.PositionalOnly) > 0 {
		sep()
		p.b.WriteString("/")
	}
	for _, arg := range a.Positional {
		printArg(arg)
	}
	if len(a.KeywordOnly) > 0 {
		sep()
		p.b.WriteString("*")
	}
	for _, arg := range a.KeywordOnly {
		printArg(arg)
	}
	if a.Vararg != nil {
		sep()
		p.b.WriteString("*" + a.Vararg.Name)
	}
	if a.Kwarg != nil {
		sep()
		p.b.WriteString("**" + a.Kwarg.Name)
	}
}

func (p *printer) expr(e Expression) {
	switch n := e.(type) {
	case *BoolOp:
		for i, v := range n.Values {
			if i > 0 {
				p.b.WriteString(" " + n.Op + " ")
			}
			p.expr(v)
		}

	case *BinOp:
		p.expr(n.Left)
		p.b.WriteString(" " + n.Op + " ")
		p.expr(n.Right)

	case *UnaryOp:
		p.b.WriteString(n.Op)
		if n.Op == "not" {
			p.b.WriteString(" ")
		}
		p.expr(n.Operand)

	case *IfExp:
		p.expr(n.Body)
		p.b.WriteString(" if ")
		p.expr(n.Test)
		p.b.WriteString(" else ")
		p.expr(n.Orelse)

	case *Lambda:
		p.b.WriteString("lambda ")
		p.arguments(n.Args)
		p.b.WriteString(": ")
		p.expr(n.Body)

	case *Compare:
		p.expr(n.Left)
		for i, op := range n.Ops {
			p.b.WriteString(" " + op + " ")
			p.expr(n.Comparators[i])
		}

	case *Call:
		p.expr(n.Func)
		p.b.WriteString("(")
		first := true
		for _, a := range n.Args {
			if !first {
				p.b.WriteString(", ")
			}
			first = false
			p.expr(a)
		}
		for _, k := range n.Keywords {
			if !first {
				p.b.WriteString(", ")
			}
			first = false
			if k.Name != "" {
				p.b.WriteString(k.Name + "=")
			} else {
				p.b.WriteString("**")
			}
			p.expr(k.Value)
		}
		p.b.WriteString(")")

	case *Starred:
		p.b.WriteString("*")
		p.expr(n.Value)

	case *Attribute:
		p.expr(n.Value)
		p.b.WriteString("." + n.Attr)

	case *Subscript:
		p.expr(n.Value)
		p.b.WriteString("[")
		p.expr(n.Index)
		p.b.WriteString("]")

	case *Slice:
		if n.Lower != nil {
			p.expr(n.Lower)
		}
		p.b.WriteString(":")
		if n.Upper != nil {
			p.expr(n.Upper)
		}
		if n.Step != nil {
			p.b.WriteString(":")
			p.expr(n.Step)
		}

	case *List:
		p.b.WriteString("[")
		p.exprList(n.Elts)
		p.b.WriteString("]")

	case *Tuple:
		p.b.WriteString("(")
		p.exprList(n.Elts)
		if len(n.Elts) == 1 {
			p.b.WriteString(",")
		}
		p.b.WriteString(")")

	case *Set:
		p.b.WriteString("{")
		p.exprList(n.Elts)
		p.b.WriteString("}")

	case *Dict:
		p.b.WriteString("{")
		for i, entry := range n.Entries {
			if i > 0 {
				p.b.WriteString(", ")
			}
			if entry.Key == nil {
				p.b.WriteString("**")
				p.expr(entry.Value)
				continue
			}
			p.expr(entry.Key)
			p.b.WriteString(": ")
			p.expr(entry.Value)
		}
		p.b.WriteString("}")

	case *ListComp:
		p.b.WriteString("[")
		p.expr(n.Elt)
		p.comprehensions(n.Generators)
		p.b.WriteString("]")

	case *SetComp:
		p.b.WriteString("{")
		p.expr(n.Elt)
		p.comprehensions(n.Generators)
		p.b.WriteString("}")

	case *DictComp:
		p.b.WriteString("{")
		p.expr(n.Key)
		p.b.WriteString(": ")
		p.expr(n.Value)
		p.comprehensions(n.Generators)
		p.b.WriteString("}")

	case *GeneratorExp:
		p.b.WriteString("(")
		p.expr(n.Elt)
		p.comprehensions(n.Generators)
		p.b.WriteString(")")

	case *Yield:
		p.b.WriteString("yield")
		if n.Value != nil {
			p.b.WriteString(" ")
			p.expr(n.Value)
		}

	case *YieldFrom:
		p.b.WriteString("yield from ")
		p.expr(n.Value)

	case *Await:
		p.b.WriteString("await ")
		p.expr(n.Value)

	case *JoinedStr:
		p.b.WriteString("f\"")
		for _, v := range n.Values {
			switch f := v.(type) {
			case *Constant:
				p.b.WriteString(f.S)
			case *FormattedValue:
				p.b.WriteString("{")
				p.expr(f.Value)
				if f.FormatSpec != "" {
					p.b.WriteString(":" + f.FormatSpec)
				}
				p.b.WriteString("}")
			}
		}
		p.b.WriteString("\"")

	case *Name:
		p.b.WriteString(n.Id)

	case *Constant:
		p.constant(n)

	case *NotImplementedExpr:
		p.b.WriteString("# unparsed: " + n.Message)

	default:
		p.b.WriteString(fmt.Sprintf("<%T>", n))
	}
}

func (p *printer) constant(n *Constant) {
	switch n.Kind {
	case ConstInt:
		p.b.WriteString(strconv.FormatInt(n.I, 10))
	case ConstFloat:
		p.b.WriteString(strconv.FormatFloat(n.F, 'g', -1, 64))
	case ConstStr:
		p.b.WriteString(strconv.Quote(n.S))
	case ConstBool:
		if n.B {
			p.b.WriteString("True")
		} else {
			p.b.WriteString("False")
		}
	case ConstNone:
		p.b.WriteString("None")
	}
}

func (p *printer) comprehensions(comps []*Comprehension) {
	for _, c := range comps {
		if c.IsAsync {
			p.b.WriteString(" async for ")
		} else {
			p.b.WriteString(" for ")
		}
		p.expr(c.Target)
		p.b.WriteString(" in ")
		p.expr(c.Iter)
		for _, cond := range c.Ifs {
			p.b.WriteString(" if ")
			p.expr(cond)
		}
	}
}

func (p *printer) pattern(pat Pattern) {
	switch n := pat.(type) {
	case *MatchValue:
		p.expr(n.Value)
	case *MatchSingleton:
		p.expr(n.Value)
	case *MatchSequence:
		p.b.WriteString("[")
		for i, sub := range n.Patterns {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.pattern(sub)
		}
		p.b.WriteString("]")
	case *MatchMapping:
		p.b.WriteString("{")
		for i, k := range n.Keys {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(k)
			p.b.WriteString(": ")
			p.pattern(n.Patterns[i])
		}
		if n.Rest != "" {
			if len(n.Keys) > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString("**" + n.Rest)
		}
		p.b.WriteString("}")
	case *MatchClass:
		p.expr(n.Cls)
		p.b.WriteString("(")
		for i, sub := range n.Patterns {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.pattern(sub)
		}
		for i, name := range n.KeywordNames {
			if i > 0 || len(n.Patterns) > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(name + "=")
			p.pattern(n.KeywordValues[i])
		}
		p.b.WriteString(")")
	case *MatchStar:
		p.b.WriteString("*" + n.Name)
	case *MatchAs:
		if n.Pattern != nil {
			p.pattern(n.Pattern)
			p.b.WriteString(" as ")
		}
		if n.Name != "" {
			p.b.WriteString(n.Name)
		} else {
			p.b.WriteString("_")
		}
	case *MatchOr:
		for i, sub := range n.Patterns {
			if i > 0 {
				p.b.WriteString(" | ")
			}
			p.pattern(sub)
		}
	}
}
