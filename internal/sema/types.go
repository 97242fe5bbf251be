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

// TypeID identifies a resolved type. Primitive kinds occupy the first
// few ids; Arrow (function) and class types are registered the first
// time they're built, per spec.md §4.7's "every concrete node type has
// a stable class-id registered at first use" discipline - the same
// pattern internal/value's per-tag TypeRegistry follows for runtime
// values.
type TypeID int32

const (
	TypeUnknown TypeID = iota
	TypeNone
	TypeBool
	TypeInt
	TypeFloat
	TypeStr

	typeDynamicBase // first id handed out by newArrow/newClass
)

func primitiveName(t TypeID) string {
	switch t {
	case TypeNone:
		return "None"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeStr:
		return "str"
	default:
		return "unknown"
	}
}

type typeKind int

const (
	kindPrimitive typeKind = iota
	kindArrow
	kindClass
)

// typeInfo is the metadata registered for one TypeID. Arrow entries
// carry parameter/return types (spec.md's "build an Arrow from the
// declarations"); class entries carry an attribute table built in
// declaration order (spec.md's "record each attribute/method into the
// class metadata in declaration order, assigning offsets").
type typeInfo struct {
	kind   typeKind
	name   string
	params []TypeID
	ret    TypeID
	attrs  map[string]TypeID
	order  []string
}

// typeTable is the registry of dynamically allocated (function/class)
// types.
type typeTable struct {
	infos []*typeInfo
}

// TypeRegistry is the registry an Analyzer registers Arrow and class
// types into. A module loader holds a single TypeRegistry for an
// entire program (spec.md §4.7's "every concrete node type has a
// stable class-id registered at first use" is a program-wide
// guarantee, not a per-file one) and passes it to every module's
// Analyzer via NewWithRegistry, so a TypeID returned by one module's
// Exports stays valid when an importer reads it back.
type TypeRegistry = typeTable

// NewRegistry creates an empty TypeRegistry seeded with the primitive
// types.
func NewRegistry() *TypeRegistry { return newTypeTable() }

func newTypeTable() *typeTable {
	t := &typeTable{}
	for id := TypeUnknown; id < typeDynamicBase; id++ {
		t.infos = append(t.infos, &typeInfo{kind: kindPrimitive, name: primitiveName(id)})
	}
	return t
}

func (t *typeTable) info(id TypeID) *typeInfo {
	if int(id) < 0 || int(id) >= len(t.infos) {
		return nil
	}
	return t.infos[id]
}

// Name returns a human-readable name for id, used in diagnostic text.
func (t *typeTable) Name(id TypeID) string {
	if info := t.info(id); info != nil {
		return info.name
	}
	return "unknown"
}

func (t *typeTable) newArrow(name string, params []TypeID, ret TypeID) TypeID {
	id := TypeID(len(t.infos))
	t.infos = append(t.infos, &typeInfo{kind: kindArrow, name: name, params: params, ret: ret})
	return id
}

func (t *typeTable) newClass(name string) TypeID {
	id := TypeID(len(t.infos))
	t.infos = append(t.infos, &typeInfo{kind: kindClass, name: name, attrs: map[string]TypeID{}})
	return id
}

func (t *typeTable) isArrow(id TypeID) bool {
	info := t.info(id)
	return info != nil && info.kind == kindArrow
}

func (t *typeTable) isClass(id TypeID) bool {
	info := t.info(id)
	return info != nil && info.kind == kindClass
}

func (t *typeTable) arrowParams(id TypeID) []TypeID {
	if info := t.info(id); info != nil {
		return info.params
	}
	return nil
}

func (t *typeTable) arrowReturn(id TypeID) TypeID {
	if info := t.info(id); info != nil {
		return info.ret
	}
	return TypeUnknown
}

// setAttr records name's type on class id, appending to the
// declaration-order list the first time name is seen. Ids without an
// attribute table (primitives, arrows) are left unchanged.
func (t *typeTable) setAttr(id TypeID, name string, typ TypeID) {
	info := t.info(id)
	if info == nil || info.attrs == nil {
		return
	}
	if _, exists := info.attrs[name]; !exists {
		info.order = append(info.order, name)
	}
	info.attrs[name] = typ
}

func (t *typeTable) attr(id TypeID, name string) (TypeID, bool) {
	info := t.info(id)
	if info == nil || info.attrs == nil {
		return TypeUnknown, false
	}
	typ, ok := info.attrs[name]
	return typ, ok
}

// elementType deduces the "element type" of a literal container per
// spec.md §4.8: all elements agreeing on one type yields that type;
// anything else (including the empty case) yields TypeUnknown as the
// supertype marker.
func elementType(types []TypeID) TypeID {
	if len(types) == 0 {
		return TypeUnknown
	}
	first := types[0]
	for _, t := range types[1:] {
		if t != first {
			return TypeUnknown
		}
	}
	return first
}
