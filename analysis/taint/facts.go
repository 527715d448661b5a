// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package taint

import (
	"sort"
	"strings"

	"github.com/awslabs/ifds-dataflow-engine/analysis/ifds"
)

// MaxAccessPathDepth bounds how many field selectors an AccessPath may
// carry, keeping the per-method fact domain finite. WithSelector simply
// stops growing a path once it reaches this depth rather than erroring
// or dropping the fact, so an unbounded chain of field reads degrades to
// a conservative, merged approximation instead of failing the analysis.
const MaxAccessPathDepth = 5

// defaultMark is the mark a source-generated fact carries when its
// matcher names none: ordinary taint, as opposed to a differently-marked
// property like nullness that a sanitizer might need to clear
// independently.
const defaultMark = "TAINT"

const (
	selectorSep = "."
	markSep     = ","
)

// AccessPath is the taint Fact: a base identifier together with a chain
// of field selectors narrowing it down - Base "a" with selectors
// ["b", "c"] names a.b.c - and the set of marks currently attached to
// it. A sanitizer, source or sink can be scoped to one mark, so clearing
// a TAINT mark on a value does not also clear an unrelated mark carried
// on the same access path.
//
// selectors and marks are stored as pre-joined, canonicalized strings
// rather than slices so AccessPath stays comparable and usable as a map
// key, the way every ifds.Fact value is throughout the engine.
type AccessPath struct {
	Base      string
	selectors string
	marks     string
}

// String implements ifds.Fact.
func (a AccessPath) String() string {
	if a.selectors == "" {
		return a.Base
	}
	return a.Base + selectorSep + a.selectors
}

var _ ifds.Fact = AccessPath{}

// Tainted is a convenience constructor for a whole-object fact carrying
// the default TAINT mark.
func Tainted(base string) AccessPath {
	return AccessPath{Base: base, marks: defaultMark}
}

// WithMark is a convenience constructor for a whole-object fact carrying
// exactly mark, letting a source matcher scoped to a mark other than
// TAINT (e.g. NULLNESS) generate the right kind of fact.
func WithMark(base, mark string) AccessPath {
	return AccessPath{Base: base, marks: mark}
}

// Selectors returns a's field selector chain, root first.
func (a AccessPath) Selectors() []string {
	if a.selectors == "" {
		return nil
	}
	return strings.Split(a.selectors, selectorSep)
}

// WithSelector returns a copy of a refined one field deeper, unless a
// has already reached MaxAccessPathDepth, in which case a is returned
// unchanged - the finite-domain bound is enforced by truncating growth,
// not by failing the match.
func (a AccessPath) WithSelector(field string) AccessPath {
	if len(a.Selectors()) >= MaxAccessPathDepth {
		return a
	}
	next := a
	if a.selectors == "" {
		next.selectors = field
	} else {
		next.selectors = a.selectors + selectorSep + field
	}
	return next
}

// DropSelector returns a copy of a with its last field selector
// removed, or a itself if it already names its base with no selectors.
func (a AccessPath) DropSelector() AccessPath {
	sel := a.Selectors()
	if len(sel) == 0 {
		return a
	}
	next := a
	next.selectors = strings.Join(sel[:len(sel)-1], selectorSep)
	return next
}

// HasPrefix reports whether a names the same location as root or a
// location nested inside it - true exactly when a's base matches root's
// and a's selector chain starts with root's, e.g. a.b.c has prefix a.b
// and a.
func (a AccessPath) HasPrefix(root AccessPath) bool {
	if a.Base != root.Base {
		return false
	}
	if root.selectors == "" {
		return true
	}
	if a.selectors == root.selectors {
		return true
	}
	return strings.HasPrefix(a.selectors, root.selectors+selectorSep)
}

// Marks returns the set of marks currently attached to a.
func (a AccessPath) Marks() []string {
	if a.marks == "" {
		return nil
	}
	return strings.Split(a.marks, markSep)
}

// HasMark reports whether a carries mark.
func (a AccessPath) HasMark(mark string) bool {
	for _, m := range a.Marks() {
		if m == mark {
			return true
		}
	}
	return false
}

// AddMark returns a copy of a with mark added to its mark set.
func (a AccessPath) AddMark(mark string) AccessPath {
	return a.withMarks(append(a.Marks(), mark))
}

// WithoutMark returns a copy of a with mark removed from its mark set -
// how a sanitizer scoped to one mark clears it without disturbing any
// other mark the same access path carries.
func (a AccessPath) WithoutMark(mark string) AccessPath {
	marks := a.Marks()
	out := make([]string, 0, len(marks))
	for _, m := range marks {
		if m != mark {
			out = append(out, m)
		}
	}
	return a.withMarks(out)
}

func (a AccessPath) withMarks(marks []string) AccessPath {
	next := a
	next.marks = joinMarks(marks)
	return next
}

// joinMarks canonicalizes marks into a sorted, deduplicated joined
// string so two AccessPath values carrying the same marks in a
// different order still compare equal.
func joinMarks(marks []string) string {
	if len(marks) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(marks))
	uniq := make([]string, 0, len(marks))
	for _, m := range marks {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		uniq = append(uniq, m)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, markSep)
}

// rebase returns a copy of a with its base identifier replaced by base,
// keeping its selector chain and marks - used wherever a flow function
// carries an access path across a renaming (argument to parameter,
// return value to result variable) without changing what it names
// beyond the root.
func (a AccessPath) rebase(base string) AccessPath {
	next := a
	next.Base = base
	return next
}
