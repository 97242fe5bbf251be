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

// Package sema implements the semantic analyzer (spec.md §4.8): name
// resolution, type inference, operator resolution and import
// resolution over a parsed *ast.Module, reporting through a
// diag.Bag that accumulates every error rather than aborting on the
// first one.
//
// Scope management is grounded on analyzer/core/symbolication/
// scope.go's scopeManager (see scope.go). Operator resolution and type
// inference follow original_source/src/builtin/operators.cpp's
// "Op-type1-type2" signature lookup and original_source/src/sema/
// sema_import.cpp's import-then-bind policy (see operators.go and the
// Import handling below).
package sema

import (
	"github.com/lython-go/lython/internal/ast"
	"github.com/lython-go/lython/internal/diag"
)

// Importer resolves a dotted module path to its exported top-level
// bindings. A module loader implements this interface; sema only
// depends on the interface so that a loader - which must call back
// into sema to analyze the modules it loads - does not create an
// import cycle.
type Importer interface {
	// Import resolves path (e.g. "a.b.c") and returns the analyzed
	// module's exported bindings (functions, classes, and annotated
	// or simple top-level assignments, per spec.md §4.8), or ok=false
	// if the module could not be found.
	Import(path string) (exports map[string]TypeID, ok bool)
}

// Analyzer walks a module once, resolving names, inferring types, and
// recording diagnostics.
type Analyzer struct {
	file     string
	diag     diag.Bag
	scopes   *scopeManager
	types    *typeTable
	importer Importer

	// classBases maps a class TypeID to the TypeIDs of its declared
	// bases, consulted by classAttr for inherited attribute lookup.
	classBases map[TypeID][]TypeID

	// currentSelfParam/currentSelfClass identify, while visiting a
	// method body, the parameter name that plays the role of `self`
	// and the enclosing class's TypeID, so `self.attr = value`
	// assignments can be recorded into the class's attribute table.
	currentSelfParam string
	currentSelfClass TypeID

	// returnCollector, when non-nil, receives the inferred type of
	// every `return` statement analyzeStmt encounters, however deeply
	// nested in the enclosing function's if/while/for/try blocks.
	returnCollector *[]TypeID
}

// New creates an Analyzer for a single module with its own fresh type
// registry. importer may be nil, in which case every import statement
// resolves to ModuleNotFoundError.
func New(file string, importer Importer) *Analyzer {
	return NewWithRegistry(file, importer, NewRegistry())
}

// NewWithRegistry creates an Analyzer that registers its Arrow and
// class types into registry rather than a fresh one. A module loader
// uses this to share one TypeRegistry across every module it analyzes
// for a program, so a TypeID handed back by Exports remains meaningful
// to whichever module imports it.
func NewWithRegistry(file string, importer Importer, registry *TypeRegistry) *Analyzer {
	return &Analyzer{
		file:       file,
		scopes:     newScopeManager(),
		types:      registry,
		importer:   importer,
		classBases: make(map[TypeID][]TypeID),
	}
}

// Diagnostics returns every diagnostic recorded during Analyze.
func (a *Analyzer) Diagnostics() *diag.Bag { return &a.diag }

// Exports returns the module-scope bindings suitable for
// `from module import name`, per spec.md §4.9's export rule (functions,
// classes, and top-level assignments).
func (a *Analyzer) Exports() map[string]TypeID {
	out := make(map[string]TypeID)
	for name, b := range a.scopes.moduleScope.table {
		out[name] = b.Type
	}
	return out
}

func (a *Analyzer) errorf(node ast.Node, kind diag.Kind, format string, args ...any) {
	pos := node.Position()
	a.diag.Addf(kind, a.file, pos.Line, pos.Col, format, args...)
}

// Analyze visits every top-level statement of mod in source order
// (spec.md §5's "sema visits definitions in source order to keep
// varids stable").
func (a *Analyzer) Analyze(mod *ast.Module) {
	for _, stmt := range mod.Body {
		a.analyzeStmt(stmt)
	}
}

//
// Statements
//

func (a *Analyzer) analyzeStmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		a.analyzeFunctionDef(s, TypeUnknown, "")

	case *ast.ClassDef:
		a.analyzeClassDef(s)

	case *ast.Return:
		retType := TypeNone
		if s.Value != nil {
			retType = a.inferExpr(s.Value)
		}
		if a.returnCollector != nil {
			*a.returnCollector = append(*a.returnCollector, retType)
		}

	case *ast.Assign:
		a.analyzeAssign(s)

	case *ast.AnnAssign:
		a.analyzeAnnAssign(s)

	case *ast.AugAssign:
		a.analyzeAugAssign(s)

	case *ast.If:
		a.inferExpr(s.Test)
		a.analyzeBlock(s.Body)
		a.analyzeBlock(s.Orelse)

	case *ast.For:
		a.inferExpr(s.Iter)
		a.bindTarget(s.Target, TypeUnknown)
		a.analyzeBlock(s.Body)
		a.analyzeBlock(s.Orelse)

	case *ast.While:
		a.inferExpr(s.Test)
		a.analyzeBlock(s.Body)
		a.analyzeBlock(s.Orelse)

	case *ast.With:
		for _, item := range s.Items {
			a.inferExpr(item.ContextExpr)
			if item.OptionalVar != nil {
				a.bindTarget(item.OptionalVar, TypeUnknown)
			}
		}
		a.analyzeBlock(s.Body)

	case *ast.Try:
		a.analyzeBlock(s.Body)
		for _, h := range s.Handlers {
			if h.Type != nil {
				a.inferExpr(h.Type)
			}
			if h.Name != "" {
				a.scopes.Declare(h.Name, TypeUnknown, h)
			}
			a.analyzeBlock(h.Body)
		}
		a.analyzeBlock(s.Orelse)
		a.analyzeBlock(s.Finally)

	case *ast.Raise:
		if s.Exc != nil {
			a.inferExpr(s.Exc)
		}
		if s.Cause != nil {
			a.inferExpr(s.Cause)
		}

	case *ast.Assert:
		a.inferExpr(s.Test)
		if s.Msg != nil {
			a.inferExpr(s.Msg)
		}

	case *ast.Import:
		a.analyzeImport(s)

	case *ast.ImportFrom:
		a.analyzeImportFrom(s)

	case *ast.Global, *ast.Nonlocal, *ast.Pass, *ast.Break, *ast.Continue, *ast.InvalidStatement:
		// no bindings or expressions to analyze

	case *ast.Delete:
		for _, target := range s.Targets {
			a.inferExpr(target)
		}

	case *ast.ExprStmt:
		if s.Value != nil {
			a.inferExpr(s.Value)
		}

	case *ast.Match:
		a.analyzeMatch(s)

	default:
		// unknown statement kind: nothing to analyze rather than panic,
		// so a future node addition fails a test instead of crashing.
	}
}

func (a *Analyzer) analyzeBlock(stmts []ast.Statement) {
	for _, s := range stmts {
		a.analyzeStmt(s)
	}
}

func (a *Analyzer) analyzeAssign(s *ast.Assign) {
	valType := a.inferExpr(s.Value)
	for _, target := range s.Targets {
		a.bindTarget(target, valType)
	}
}

func (a *Analyzer) analyzeAnnAssign(s *ast.AnnAssign) {
	annType := a.resolveAnnotation(s.Annotation)
	if s.Value != nil {
		valType := a.inferExpr(s.Value)
		if annType != TypeUnknown && valType != TypeUnknown && annType != valType {
			a.errorf(s, diag.TypeError, "cannot assign %s to variable of type %s", a.types.Name(valType), a.types.Name(annType))
		}
	}
	a.bindTarget(s.Target, annType)
}

func (a *Analyzer) analyzeAugAssign(s *ast.AugAssign) {
	curType := a.loadTypeOf(s.Target)
	valType := a.inferExpr(s.Value)
	result := a.resolveBinaryType(s, s.Op, curType, valType)
	a.bindTarget(s.Target, result)
}

func (a *Analyzer) analyzeImport(s *ast.Import) {
	for _, al := range s.Names {
		bindName := al.AsName
		if bindName == "" {
			bindName = al.Name
		}
		typ := a.importModule(s, al.Name)
		a.scopes.Declare(bindName, typ, al)
	}
}

func (a *Analyzer) analyzeImportFrom(s *ast.ImportFrom) {
	exports, ok := a.lookupModule(s, s.Module)
	if !ok {
		return
	}
	for _, al := range s.Names {
		bindName := al.AsName
		if bindName == "" {
			bindName = al.Name
		}
		typ, found := exports[al.Name]
		if !found {
			a.errorf(al, diag.ImportError, "cannot import name %q from %q", al.Name, s.Module)
			typ = TypeUnknown
		}
		a.scopes.Declare(bindName, typ, al)
	}
}

// importModule resolves path and wraps its exports as a class-shaped
// TypeID purely so `module.attr` can be resolved through the ordinary
// attribute-lookup path.
func (a *Analyzer) importModule(node ast.Node, path string) TypeID {
	exports, ok := a.lookupModule(node, path)
	if !ok {
		return TypeUnknown
	}
	modType := a.types.newClass("module:" + path)
	for name, typ := range exports {
		a.types.setAttr(modType, name, typ)
	}
	return modType
}

func (a *Analyzer) lookupModule(node ast.Node, path string) (map[string]TypeID, bool) {
	if a.importer == nil {
		a.errorf(node, diag.ModuleNotFoundError, "no module named %q", path)
		return nil, false
	}
	exports, ok := a.importer.Import(path)
	if !ok {
		a.errorf(node, diag.ModuleNotFoundError, "no module named %q", path)
		return nil, false
	}
	return exports, true
}

//
// Targets
//

// bindTarget introduces/updates every name a (possibly nested)
// assignment target declares, per spec.md §4.8's "bind the name
// (adding a new binding entry) carrying that type".
func (a *Analyzer) bindTarget(target ast.Expression, valType TypeID) {
	switch t := target.(type) {
	case *ast.Name:
		b := a.scopes.Declare(t.Id, valType, t)
		t.Varid = b.Varid
		t.TypeID = int32(valType)

	case *ast.Tuple:
		for _, el := range t.Elts {
			a.bindTarget(el, TypeUnknown)
		}

	case *ast.List:
		for _, el := range t.Elts {
			a.bindTarget(el, TypeUnknown)
		}

	case *ast.Starred:
		a.bindTarget(t.Value, TypeUnknown)

	case *ast.Attribute:
		a.bindAttribute(t, valType)

	case *ast.Subscript:
		a.loadTypeOf(t.Value)
		a.loadTypeOf(t.Index)

	default:
		a.loadTypeOf(target)
	}
}

func (a *Analyzer) bindAttribute(t *ast.Attribute, valType TypeID) {
	if name, ok := t.Value.(*ast.Name); ok && name.Id == a.currentSelfParam && a.currentSelfClass != TypeUnknown {
		a.types.setAttr(a.currentSelfClass, t.Attr, valType)
		// self's own binding was already resolved when the method's
		// parameters were declared; re-resolve to stamp varid/type.
		a.loadTypeOf(name)
		return
	}
	objType := a.loadTypeOf(t.Value)
	if a.types.isClass(objType) {
		a.types.setAttr(objType, t.Attr, valType)
	}
}

// loadTypeOf infers an expression's type for use as an already-bound
// reference (Load semantics), even when the expression's Ctx was
// marked Store by the parser (e.g. the object half of `obj.attr = v`
// is never itself a store target).
func (a *Analyzer) loadTypeOf(e ast.Expression) TypeID {
	return a.inferExpr(e)
}

//
// Functions and classes
//

// analyzeFunctionDef builds fn's Arrow type, binds it in the enclosing
// scope (before visiting the body, so recursive calls resolve), then
// visits the body in a fresh scope with parameters bound.
// owningClass/selfParam are set when fn is a method directly nested in
// a class body, so `self.attr = ...` assignments can be tracked.
func (a *Analyzer) analyzeFunctionDef(fn *ast.FunctionDef, owningClass TypeID, selfParam string) {
	for _, dec := range fn.Decorators {
		a.inferExpr(dec)
	}

	params := a.collectParamTypes(fn.Args)
	retType := TypeUnknown
	if fn.Returns != nil {
		retType = a.resolveAnnotation(fn.Returns)
	}
	arrow := a.types.newArrow(fn.Name, params, retType)

	if owningClass != TypeUnknown {
		a.types.setAttr(owningClass, fn.Name, arrow)
	} else {
		a.scopes.Declare(fn.Name, arrow, fn)
	}

	prevParam, prevClass := a.currentSelfParam, a.currentSelfClass
	a.currentSelfParam, a.currentSelfClass = selfParam, owningClass

	var returnTypes []TypeID
	prevCollector := a.returnCollector
	a.returnCollector = &returnTypes

	a.scopes.PushScope(false)
	a.declareParams(fn.Args)
	if selfParam != "" && owningClass != TypeUnknown {
		// the self parameter's declared annotation (if any) is ignored:
		// it always carries the enclosing class's type.
		a.scopes.Declare(selfParam, owningClass, fn.Args)
	}
	a.analyzeBlock(fn.Body)
	a.scopes.PopScope()

	a.returnCollector = prevCollector
	a.currentSelfParam, a.currentSelfClass = prevParam, prevClass

	if fn.Returns != nil {
		for _, rt := range returnTypes {
			if rt != TypeUnknown && retType != TypeUnknown && rt != retType {
				a.errorf(fn, diag.TypeError, "function %q returns %s, declared return type is %s", fn.Name, a.types.Name(rt), a.types.Name(retType))
			}
		}
	}
}

func (a *Analyzer) collectParamTypes(args *ast.Arguments) []TypeID {
	if args == nil {
		return nil
	}
	var params []TypeID
	for _, p := range args.PositionalOnly {
		params = append(params, a.resolveAnnotation(p.Annotation))
	}
	for _, p := range args.Positional {
		params = append(params, a.resolveAnnotation(p.Annotation))
	}
	for _, p := range args.KeywordOnly {
		params = append(params, a.resolveAnnotation(p.Annotation))
	}
	return params
}

func (a *Analyzer) declareParams(args *ast.Arguments) {
	if args == nil {
		return
	}
	declareOne := func(p *ast.Arg) {
		typ := a.resolveAnnotation(p.Annotation)
		if def, ok := args.Defaults[p.Name]; ok {
			a.inferExpr(def)
		}
		a.scopes.Declare(p.Name, typ, p)
	}
	for _, p := range args.PositionalOnly {
		declareOne(p)
	}
	for _, p := range args.Positional {
		declareOne(p)
	}
	for _, p := range args.KeywordOnly {
		declareOne(p)
	}
	if args.Vararg != nil {
		a.scopes.Declare(args.Vararg.Name, TypeUnknown, args.Vararg)
	}
	if args.Kwarg != nil {
		a.scopes.Declare(args.Kwarg.Name, TypeUnknown, args.Kwarg)
	}
}

// resolveAnnotation interprets a type annotation expression as a
// TypeID: a bare Name referencing `int`/`float`/`str`/`bool` or a
// previously declared class resolves to that type; anything else
// (subscripted generics, unresolved names) is TypeUnknown, so
// annotation checks degrade gracefully rather than false-positive.
func (a *Analyzer) resolveAnnotation(e ast.Expression) TypeID {
	if e == nil {
		return TypeUnknown
	}
	name, ok := e.(*ast.Name)
	if !ok {
		a.inferExpr(e)
		return TypeUnknown
	}
	switch name.Id {
	case "int":
		return TypeInt
	case "float":
		return TypeFloat
	case "str":
		return TypeStr
	case "bool":
		return TypeBool
	case "None":
		return TypeNone
	}
	if b, ok := a.scopes.Resolve(name.Id, EntireStack); ok {
		name.Varid = b.Varid
		name.TypeID = int32(b.Type)
		return b.Type
	}
	return TypeUnknown
}

// analyzeClassDef builds the class's TypeID, binds it in the enclosing
// scope (so the class name itself is usable as a constructor value),
// then visits the body with a class scope and a `self` scope active.
func (a *Analyzer) analyzeClassDef(cls *ast.ClassDef) {
	for _, dec := range cls.Decorators {
		a.inferExpr(dec)
	}

	classType := a.types.newClass(cls.Name)
	a.scopes.Declare(cls.Name, classType, cls)

	var bases []TypeID
	for _, baseExpr := range cls.Bases {
		baseType := a.inferExpr(baseExpr)
		bases = append(bases, baseType)
	}
	a.classBases[classType] = bases

	a.scopes.PushScope(true)
	a.scopes.MarkSelf()

	for _, stmt := range cls.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDef:
			selfParam := ""
			if len(s.Args.Positional) > 0 {
				selfParam = s.Args.Positional[0].Name
			} else if len(s.Args.PositionalOnly) > 0 {
				selfParam = s.Args.PositionalOnly[0].Name
			}
			a.analyzeFunctionDef(s, classType, selfParam)

		case *ast.Assign:
			valType := a.inferExpr(s.Value)
			for _, target := range s.Targets {
				if name, ok := target.(*ast.Name); ok {
					a.types.setAttr(classType, name.Id, valType)
				}
				a.bindTarget(target, valType)
			}

		case *ast.AnnAssign:
			annType := a.resolveAnnotation(s.Annotation)
			if s.Value != nil {
				a.inferExpr(s.Value)
			}
			if name, ok := s.Target.(*ast.Name); ok {
				a.types.setAttr(classType, name.Id, annType)
			}
			a.bindTarget(s.Target, annType)

		default:
			a.analyzeStmt(stmt)
		}
	}

	a.scopes.ClearSelf()
	a.scopes.PopScope()
}

// classAttr looks up name on cls's own attribute table, falling back
// to each declared base (depth-first, skipping types already visited
// to tolerate a malformed inheritance cycle).
func (a *Analyzer) classAttr(cls TypeID, name string) (TypeID, bool) {
	seen := map[TypeID]bool{}
	var search func(TypeID) (TypeID, bool)
	search = func(id TypeID) (TypeID, bool) {
		if seen[id] {
			return TypeUnknown, false
		}
		seen[id] = true
		if typ, ok := a.types.attr(id, name); ok {
			return typ, true
		}
		for _, base := range a.classBases[id] {
			if typ, ok := search(base); ok {
				return typ, true
			}
		}
		return TypeUnknown, false
	}
	return search(cls)
}

//
// Match
//

func (a *Analyzer) analyzeMatch(m *ast.Match) {
	subjectType := a.inferExpr(m.Subject)
	for _, c := range m.Cases {
		a.analyzePattern(c.Pattern, subjectType)
		if c.Guard != nil {
			a.inferExpr(c.Guard)
		}
		a.analyzeBlock(c.Body)
	}
}

// analyzePattern binds every capture name a pattern introduces into
// the current scope. Patterns don't push their own scope: captured
// names become ordinary bindings in the scope containing the `match`
// statement, matching this language's (and Python's) pattern-matching
// scoping rule.
func (a *Analyzer) analyzePattern(p ast.Pattern, subjectType TypeID) {
	switch pat := p.(type) {
	case *ast.MatchValue:
		a.inferExpr(pat.Value)

	case *ast.MatchSingleton:
		a.inferExpr(pat.Value)

	case *ast.MatchSequence:
		for _, sub := range pat.Patterns {
			a.analyzePattern(sub, TypeUnknown)
		}

	case *ast.MatchMapping:
		for _, k := range pat.Keys {
			a.inferExpr(k)
		}
		for _, sub := range pat.Patterns {
			a.analyzePattern(sub, TypeUnknown)
		}
		if pat.Rest != "" {
			a.scopes.Declare(pat.Rest, TypeUnknown, pat)
		}

	case *ast.MatchClass:
		clsType := a.inferExpr(pat.Cls)
		for _, sub := range pat.Patterns {
			a.analyzePattern(sub, TypeUnknown)
		}
		for i, sub := range pat.KeywordValues {
			fieldType := TypeUnknown
			if i < len(pat.KeywordNames) {
				if t, ok := a.classAttr(clsType, pat.KeywordNames[i]); ok {
					fieldType = t
				}
			}
			a.analyzePattern(sub, fieldType)
		}

	case *ast.MatchStar:
		if pat.Name != "" {
			a.scopes.Declare(pat.Name, TypeUnknown, pat)
		}

	case *ast.MatchAs:
		if pat.Pattern != nil {
			a.analyzePattern(pat.Pattern, subjectType)
		}
		if pat.Name != "" {
			a.scopes.Declare(pat.Name, subjectType, pat)
		}

	case *ast.MatchOr:
		for _, sub := range pat.Patterns {
			a.analyzePattern(sub, subjectType)
		}
	}
}
