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

// Package strtab implements the interned string table shared by the
// lexer, parser, sema, and evaluator. A String is an opaque, stable
// integer id; equal ids always mean equal underlying strings and vice
// versa. Id 0 is reserved for the empty string.
package strtab

import "sync"

// blockSize is the number of entries allocated at once. Using a
// slice-of-blocks (rather than one growing slice) keeps previously
// returned ids stable: appending a new block never moves existing
// entries in memory.
const blockSize = 128

// String is an interned string id. The zero value refers to the empty
// string.
type String int32

// entry is one interned string plus its usage counters.
type entry struct {
	text      string
	creations uint32
	liveUses  uint32
}

// Table is a bijective string<->id mapping with reference counting.
// The zero value is not usable; use New.
type Table struct {
	mu      sync.Mutex
	byText  map[string]String
	blocks  []*[blockSize]entry
	nextID  int32
}

// New creates an empty table, with id 0 pre-bound to the empty string.
func New() *Table {
	t := &Table{byText: make(map[string]String)}
	t.intern("")
	return t
}

// Intern returns the stable id for s, allocating a new one if s has
// never been seen by this table. Concurrent calls are serialized.
func (t *Table) Intern(s string) String {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intern(s)
}

// intern must be called with t.mu held.
func (t *Table) intern(s string) String {
	if id, ok := t.byText[s]; ok {
		t.entryAt(id).creations++
		return id
	}
	id := String(t.nextID)
	t.nextID++
	blockIdx := int(id) / blockSize
	for blockIdx >= len(t.blocks) {
		t.blocks = append(t.blocks, new([blockSize]entry))
	}
	e := t.entryAt(id)
	e.text = s
	e.creations = 1
	t.byText[s] = id
	return id
}

// entryAt returns a pointer to the entry for id, which must already
// have a backing block (callers hold t.mu).
func (t *Table) entryAt(id String) *entry {
	return &t.blocks[int(id)/blockSize][int(id)%blockSize]
}

// Lookup returns the string for id, or "" if id is out of range (this
// is never an error: the empty string is a valid, if uninformative,
// answer for any id this table never assigned).
func (t *Table) Lookup(id String) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || int(id) >= int(t.nextID) {
		return ""
	}
	return t.entryAt(id).text
}

// Ref increments the live-use counter for id. Callers that hold onto a
// String beyond a single pass (e.g. a Name node after sema) should call
// Ref once and Unref when the reference is dropped, so diagnostic
// statistics reflect live usage rather than just creation count.
func (t *Table) Ref(id String) {
	if id == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < int(t.nextID) {
		t.entryAt(id).liveUses++
	}
}

// Unref decrements the live-use counter for id.
func (t *Table) Unref(id String) {
	if id == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < int(t.nextID) && t.entryAt(id).liveUses > 0 {
		t.entryAt(id).liveUses--
	}
}

// Stats returns the total number of interned strings (excluding the
// reserved empty string) and the sum of all live-use counters, for
// embedding diagnostics.
func (t *Table) Stats() (count int, liveUses uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	count = int(t.nextID) - 1
	for id := String(1); int(id) < int(t.nextID); id++ {
		liveUses += t.entryAt(id).liveUses
	}
	return count, liveUses
}
