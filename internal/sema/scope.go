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

import "github.com/lython-go/lython/internal/ast"

// SearchOption selects how Resolve searches the scope stack, mirroring
// analyzer/core/symbolication/scope.go's CurrentOnly/EntireStack
// options plus a SelfScope option replacing that file's "this" option.
type SearchOption int

const (
	// CurrentOnly searches only the innermost scope.
	CurrentOnly SearchOption = iota
	// EntireStack searches every enclosing scope in reverse order,
	// falling back to the module scope (spec.md §4.8: "searches the
	// current scope, then each ancestor").
	EntireStack
	// SelfScope searches the scope marked by MarkSelf, for resolving
	// `self.attr` inside a method body.
	SelfScope
)

// Binding is a resolved name entry: the global variable index (the
// "varid" of spec.md §4.8) plus the type inferred when the name was
// declared.
type Binding struct {
	Name  string
	Varid int
	Type  TypeID
	Node  ast.Node
}

// scope holds the declarations introduced at one lexical nesting
// level (function, class, comprehension, or the module itself).
type scope struct {
	table   map[string]*Binding
	offset  int // this scope's first varid, per spec.md's "offset = parent.size"
	isClass bool
}

func newScope(offset int, isClass bool) *scope {
	return &scope{table: make(map[string]*Binding), offset: offset, isClass: isClass}
}

// scopeManager is the nested lexical-scope stack sema walks the tree
// with. Adapted from analyzer/core/symbolication/scope.go's
// scopeManager: a single module-level scope plays the role of that
// file's package scope (this port has exactly one module per
// analysis), a stack of function/class/comprehension scopes replaces
// its per-declaration scopes, and a parallel "self" stack replaces its
// "this" stack for resolving attribute access inside method bodies.
type scopeManager struct {
	moduleScope *scope
	stack       []*scope
	selfStack   []*scope
	nextVarid   int
}

func newScopeManager() *scopeManager {
	return &scopeManager{moduleScope: newScope(0, false)}
}

func (m *scopeManager) current() *scope {
	if len(m.stack) == 0 {
		return m.moduleScope
	}
	return m.stack[len(m.stack)-1]
}

// PushScope enters a new nested scope (function body, class body, or
// comprehension).
func (m *scopeManager) PushScope(isClass bool) {
	m.stack = append(m.stack, newScope(m.nextVarid, isClass))
}

// PopScope leaves the innermost scope.
func (m *scopeManager) PopScope() {
	if len(m.stack) == 0 {
		return
	}
	m.stack = m.stack[:len(m.stack)-1]
}

// InClassBody reports whether the innermost scope belongs to a class
// body (used to decide whether a function's first parameter plays the
// role of `self`).
func (m *scopeManager) InClassBody() bool {
	return m.current().isClass
}

// MarkSelf records the innermost scope as the target of a `self.attr`
// lookup for the method body about to be visited.
func (m *scopeManager) MarkSelf() {
	m.selfStack = append(m.selfStack, m.current())
}

// ClearSelf undoes the most recent MarkSelf.
func (m *scopeManager) ClearSelf() {
	if len(m.selfStack) == 0 {
		return
	}
	m.selfStack = m.selfStack[:len(m.selfStack)-1]
}

// Declare introduces name into the current scope with a freshly
// allocated varid, per spec.md §4.8's "stores the varid (the global
// index) in the Name node". Re-declaring an existing name in the same
// scope updates its type rather than erroring, since the language
// allows reassignment to a different type.
func (m *scopeManager) Declare(name string, typ TypeID, node ast.Node) *Binding {
	cur := m.current()
	if b, ok := cur.table[name]; ok {
		b.Type = typ
		return b
	}
	b := &Binding{Name: name, Varid: m.nextVarid, Type: typ, Node: node}
	m.nextVarid++
	cur.table[name] = b
	return b
}

// Resolve searches for name according to option.
func (m *scopeManager) Resolve(name string, option SearchOption) (*Binding, bool) {
	switch option {
	case CurrentOnly:
		b, ok := m.current().table[name]
		return b, ok

	case SelfScope:
		if len(m.selfStack) == 0 {
			return nil, false
		}
		b, ok := m.selfStack[len(m.selfStack)-1].table[name]
		return b, ok

	default: // EntireStack
		for i := len(m.stack) - 1; i >= 0; i-- {
			if b, ok := m.stack[i].table[name]; ok {
				return b, true
			}
		}
		b, ok := m.moduleScope.table[name]
		return b, ok
	}
}
