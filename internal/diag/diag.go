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

// Package diag carries parse and sema diagnostics with source locations
// (spec.md §7). The parser and semantic analyzer both collect every
// diagnostic they encounter rather than aborting on the first one;
// Bag aggregates them the way analyzer.go aggregates recoverable errors,
// through go.uber.org/multierr.
package diag

import (
	"fmt"

	"go.uber.org/multierr"
)

// Kind classifies a Diagnostic, per spec.md §7's "Error kinds".
type Kind string

const (
	ParseError         Kind = "ParseError"
	SyntaxError        Kind = "SyntaxError"
	NameError          Kind = "NameError"
	TypeError          Kind = "TypeError"
	AttributeError     Kind = "AttributeError"
	UnsupportedOperand Kind = "UnsupportedOperand"
	ModuleNotFoundError Kind = "ModuleNotFoundError"
	ImportError         Kind = "ImportError"
	RuntimeError        Kind = "RuntimeError"
)

// Diagnostic is a single user-visible error or warning.
type Diagnostic struct {
	File    string
	Line    int
	Col     int
	Kind    Kind
	Message string
	Context string // a source snippet, filled in by the driver when available
}

// Error implements the error interface so a Diagnostic can be passed
// directly to multierr.Append / wrapped with %w.
func (d Diagnostic) Error() string {
	if d.File == "" {
		return fmt.Sprintf("%s:%d:%d: %s: %s", "<input>", d.Line, d.Col, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Col, d.Kind, d.Message)
}

// Bag accumulates diagnostics without aborting on the first, per
// spec.md §7's propagation policy for the parser and sema.
type Bag struct {
	err error
	all []Diagnostic
}

// Add records d.
func (b *Bag) Add(d Diagnostic) {
	b.all = append(b.all, d)
	b.err = multierr.Append(b.err, d)
}

// Addf is a convenience constructor for Add.
func (b *Bag) Addf(kind Kind, file string, line, col int, format string, args ...any) {
	b.Add(Diagnostic{File: file, Line: line, Col: col, Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any diagnostic was recorded.
func (b *Bag) HasErrors() bool { return len(b.all) > 0 }

// All returns every recorded diagnostic, in the order added.
func (b *Bag) All() []Diagnostic { return b.all }

// Err returns every diagnostic combined via multierr.Append, or nil if
// none were recorded. Suitable for returning from a function whose
// caller wants a single `error`.
func (b *Bag) Err() error { return b.err }
