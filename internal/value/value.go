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

// Package value implements the polymorphic runtime Value the evaluator
// operates on. Value is a small tagged struct rather than a literal C-style
// union (Go cannot pack arbitrary bytes without unsafe); the small-type vs.
// heap-type split from spec.md §4.3 is preserved at the API level through a
// lazily-populated, per-tag TypeRegistry of copy/delete/print/hash/equal
// callbacks, even though the Go runtime always boxes non-trivial payloads.
//
// Where the source uses a checked-after-the-fact global error slot for
// mismatched type requests, this port returns the failure explicitly as a
// Fault alongside the result - ordinary Go multi-return is a better fit
// than a process-wide slot an embedder could race on.
package value

import (
	"fmt"
	"math"
	"sync"
)

// Tag identifies a Value's runtime type. Small tags (see the const block
// below) are reserved first; heap/user tags are assigned dynamically
// starting at TagMax, mirroring spec.md's "Small-type set (reserve IDs
// 0..Max)... User/heap types receive dynamically-allocated IDs starting at
// Max."
type Tag int32

const (
	TagInvalid Tag = iota
	TagNone
	TagBool
	TagI8
	TagI16
	TagI32
	TagI64
	TagU8
	TagU16
	TagU32
	TagU64
	TagF32
	TagF64
	TagFunc
	// TagMax is the first id available for dynamic (heap/user) registration.
	TagMax
)

// Value is the polymorphic runtime datum. num holds the raw bits for
// inline-able small types (bool/ints/floats/none); box holds the payload
// for function pointers and every heap/user type.
type Value struct {
	Tag Tag
	num uint64
	box any
}

// Fault describes a failed As* conversion, matching spec.md's
// {failed, value_type_id, requested_type_id} triple.
type Fault struct {
	Failed       bool
	ValueTag     Tag
	RequestedTag Tag
}

func faultFor(v Value, requested Tag) Fault {
	return Fault{Failed: true, ValueTag: v.Tag, RequestedTag: requested}
}

// Invalid returns the Invalid singleton value.
func Invalid() Value { return Value{Tag: TagInvalid} }

// None returns the None singleton value.
func None() Value { return Value{Tag: TagNone} }

// Bool constructs a bool Value.
func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{Tag: TagBool, num: n}
}

// I64 constructs a 64-bit signed integer Value (the language's default
// integer width).
func I64(i int64) Value { return Value{Tag: TagI64, num: uint64(i)} }

// I32 constructs a 32-bit signed integer Value.
func I32(i int32) Value { return Value{Tag: TagI32, num: uint64(uint32(i))} }

// F64 constructs a 64-bit float Value.
func F64(f float64) Value { return Value{Tag: TagF64, num: math.Float64bits(f)} }

// F32 constructs a 32-bit float Value.
func F32(f float32) Value { return Value{Tag: TagF32, num: uint64(math.Float32bits(f))} }

// Func constructs a function-pointer Value from any callable payload
// (the concrete closure/native-function types are defined by the caller
// and boxed here, so this package depends on no evaluator).
func Func(callable any) Value { return Value{Tag: TagFunc, box: callable} }

// Heap constructs a Value for a dynamically-registered (heap/user) tag,
// boxing payload directly.
func Heap(tag Tag, payload any) Value { return Value{Tag: tag, box: payload} }

// Is reports whether v's tag matches tag exactly.
func (v Value) Is(tag Tag) bool { return v.Tag == tag }

// AsBool retrieves the bool payload. On a tag mismatch it returns the
// zero value and a Fault describing the mismatch - callers may ignore
// the Fault when Is was already checked.
func (v Value) AsBool() (bool, Fault) {
	if v.Tag != TagBool {
		return false, faultFor(v, TagBool)
	}
	return v.num != 0, Fault{}
}

// AsI64 retrieves the int64 payload.
func (v Value) AsI64() (int64, Fault) {
	if v.Tag != TagI64 {
		return 0, faultFor(v, TagI64)
	}
	return int64(v.num), Fault{}
}

// AsI32 retrieves the int32 payload.
func (v Value) AsI32() (int32, Fault) {
	if v.Tag != TagI32 {
		return 0, faultFor(v, TagI32)
	}
	return int32(uint32(v.num)), Fault{}
}

// AsF64 retrieves the float64 payload.
func (v Value) AsF64() (float64, Fault) {
	if v.Tag != TagF64 {
		return 0, faultFor(v, TagF64)
	}
	return math.Float64frombits(v.num), Fault{}
}

// AsF32 retrieves the float32 payload.
func (v Value) AsF32() (float32, Fault) {
	if v.Tag != TagF32 {
		return 0, faultFor(v, TagF32)
	}
	return math.Float32frombits(uint32(v.num)), Fault{}
}

// AsFunc retrieves the boxed callable payload.
func (v Value) AsFunc() (any, Fault) {
	if v.Tag != TagFunc {
		return nil, faultFor(v, TagFunc)
	}
	return v.box, Fault{}
}

// AsHeap retrieves the boxed payload for a heap/user tag.
func (v Value) AsHeap(tag Tag) (any, Fault) {
	if v.Tag != tag {
		return nil, faultFor(v, tag)
	}
	return v.box, Fault{}
}

// Truthy implements the language's notion of boolean conversion used by
// if/while/boolop, consulting the registered Truther for heap tags.
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagInvalid, TagNone:
		return false
	case TagBool:
		return v.num != 0
	case TagI8, TagI16, TagI32, TagI64, TagU8, TagU16, TagU32, TagU64:
		return v.num != 0
	case TagF32, TagF64:
		f, _ := v.AsF64ish()
		return f != 0
	default:
		if ops, ok := registry.lookup(v.Tag); ok && ops.Truther != nil {
			return ops.Truther(v.box)
		}
		return true
	}
}

// AsF64ish normalizes either float width to a float64, for Truthy's use.
func (v Value) AsF64ish() (float64, bool) {
	switch v.Tag {
	case TagF64:
		return math.Float64frombits(v.num), true
	case TagF32:
		return float64(math.Float32frombits(uint32(v.num))), true
	default:
		return 0, false
	}
}

// Copy invokes the registered copier for v's tag, defaulting to
// returning v unchanged for small types (which are already value types
// in Go) and for heap tags with no registered copier (shallow copy by
// reference, matching a reference-counted string's semantics).
func (v Value) Copy() Value {
	if ops, ok := registry.lookup(v.Tag); ok && ops.Copier != nil {
		return Value{Tag: v.Tag, box: ops.Copier(v.box)}
	}
	return v
}

// Destroy invokes the registered deleter for v's tag and reports
// whether one ran. Since Go is garbage collected this exists for
// parity with spec.md's contract and for types that hold external
// resources (e.g. an open native handle) rather than for memory
// reclamation.
func (v Value) Destroy() bool {
	if ops, ok := registry.lookup(v.Tag); ok && ops.Deleter != nil {
		ops.Deleter(v.box)
		return true
	}
	return false
}

// Equal implements Value equality: bitwise for small types (same tag,
// same raw bits), delegated to the registered Equaler for heap types.
func (v Value) Equal(other Value) bool {
	if v.Tag != other.Tag {
		return false
	}
	switch v.Tag {
	case TagInvalid, TagNone:
		return true
	case TagBool, TagI8, TagI16, TagI32, TagI64, TagU8, TagU16, TagU32, TagU64, TagF32, TagF64:
		return v.num == other.num
	case TagFunc:
		return sameCallable(v.box, other.box)
	default:
		if ops, ok := registry.lookup(v.Tag); ok && ops.Equaler != nil {
			return ops.Equaler(v.box, other.box)
		}
		return v.box == other.box
	}
}

func sameCallable(a, b any) bool {
	// function values are compared by identity of the boxed pointer;
	// closures and native funcs are never trivially comparable with ==
	// when the underlying type holds a slice/map, so route through the
	// registered Equaler if present, else fall back to pointer-shaped
	// comparison via fmt (cheap, rare path - only hit by user code
	// comparing functions).
	if ops, ok := registry.lookup(TagFunc); ok && ops.Equaler != nil {
		return ops.Equaler(a, b)
	}
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}

// Hash returns 0 for invalid and None values and the raw payload bits
// for the other small types; any other tag delegates to its registered
// hasher, returning 0 if none is registered (matching spec.md's
// "absent -> 0").
func (v Value) Hash() uint64 {
	switch v.Tag {
	case TagInvalid, TagNone:
		return 0
	case TagBool, TagI8, TagI16, TagI32, TagI64, TagU8, TagU16, TagU32, TagU64, TagF32, TagF64:
		return v.num
	default:
		if ops, ok := registry.lookup(v.Tag); ok && ops.Hasher != nil {
			return ops.Hasher(v.box)
		}
		return 0
	}
}

// String renders v via the registered printer, or a small-type default.
func (v Value) String() string {
	switch v.Tag {
	case TagInvalid:
		return "<invalid>"
	case TagNone:
		return "None"
	case TagBool:
		b, _ := v.AsBool()
		if b {
			return "True"
		}
		return "False"
	case TagI8, TagI16, TagI32, TagI64, TagU8, TagU16, TagU32, TagU64:
		return fmt.Sprintf("%d", int64(v.num))
	case TagF32, TagF64:
		f, _ := v.AsF64ish()
		return fmt.Sprintf("%g", f)
	case TagFunc:
		return "<function>"
	default:
		if ops, ok := registry.lookup(v.Tag); ok && ops.Printer != nil {
			return ops.Printer(v.box)
		}
		return fmt.Sprintf("<value tag=%d>", v.Tag)
	}
}

//
// type registry
//

// Ops is the set of per-tag operations a heap/user type registers.
// Every field is optional; unset fields fall back to the defaults
// documented on the corresponding Value method.
type Ops struct {
	Copier  func(any) any
	Deleter func(any)
	Printer func(any) string
	Hasher  func(any) uint64
	Equaler func(a, b any) bool
	Truther func(any) bool
}

type typeRegistry struct {
	mu      sync.RWMutex
	ops     map[Tag]Ops
	names   map[string]Tag
	nextTag int32
}

var registry = &typeRegistry{
	ops:     make(map[Tag]Ops),
	names:   make(map[string]Tag),
	nextTag: int32(TagMax),
}

func (r *typeRegistry) lookup(tag Tag) (Ops, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops, ok := r.ops[tag]
	return ops, ok
}

// RegisterHeapType assigns (on first use) a stable dynamic Tag to name
// and records ops for it. Calling it again for the same name is
// idempotent and returns the same Tag, refreshing ops.
func RegisterHeapType(name string, ops Ops) Tag {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	tag, ok := registry.names[name]
	if !ok {
		tag = Tag(registry.nextTag)
		registry.nextTag++
		registry.names[name] = tag
	}
	registry.ops[tag] = ops
	return tag
}

// TagForName returns the Tag previously registered for name, if any.
func TagForName(name string) (Tag, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	tag, ok := registry.names[name]
	return tag, ok
}
