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

import "testing"

func TestAccessPathWithSelectorGrowsAndStrings(t *testing.T) {
	a := Tainted("x").WithSelector("a").WithSelector("b")
	if a.String() != "x.a.b" {
		t.Fatalf("unexpected String(): %q", a.String())
	}
	if got := a.Selectors(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected Selectors(): %v", got)
	}
}

func TestAccessPathWithSelectorTruncatesAtMaxDepth(t *testing.T) {
	a := Tainted("x")
	for i := 0; i < MaxAccessPathDepth+3; i++ {
		a = a.WithSelector("f")
	}
	if len(a.Selectors()) != MaxAccessPathDepth {
		t.Fatalf("expected selector growth to stop at %d, got %d: %v", MaxAccessPathDepth, len(a.Selectors()), a.Selectors())
	}
}

func TestAccessPathDropSelector(t *testing.T) {
	a := Tainted("x").WithSelector("a").WithSelector("b")
	a = a.DropSelector()
	if a.String() != "x.a" {
		t.Fatalf("expected x.a after dropping one selector, got %q", a.String())
	}
	base := Tainted("x")
	if base.DropSelector() != base {
		t.Fatal("expected DropSelector on a bare base to be a no-op")
	}
}

func TestAccessPathHasPrefix(t *testing.T) {
	ab := Tainted("x").WithSelector("a").WithSelector("b")
	a := Tainted("x").WithSelector("a")
	other := Tainted("y").WithSelector("a")

	if !ab.HasPrefix(a) {
		t.Fatal("expected x.a.b to have prefix x.a")
	}
	if !a.HasPrefix(a) {
		t.Fatal("expected a path to have itself as a prefix")
	}
	if a.HasPrefix(ab) {
		t.Fatal("expected x.a to not have prefix x.a.b")
	}
	if ab.HasPrefix(other) {
		t.Fatal("expected a mismatched base to never be a prefix")
	}
}

func TestAccessPathMarks(t *testing.T) {
	a := Tainted("x")
	if !a.HasMark(defaultMark) {
		t.Fatal("expected Tainted to carry the default TAINT mark")
	}
	a = a.AddMark("NULLNESS")
	if !a.HasMark("NULLNESS") || !a.HasMark(defaultMark) {
		t.Fatalf("expected both marks present, got %v", a.Marks())
	}
	cleared := a.WithoutMark(defaultMark)
	if cleared.HasMark(defaultMark) {
		t.Fatal("expected TAINT to be cleared")
	}
	if !cleared.HasMark("NULLNESS") {
		t.Fatal("expected NULLNESS to survive clearing a different mark")
	}
}

func TestAccessPathRebasePreservesSelectorsAndMarks(t *testing.T) {
	a := Tainted("x").WithSelector("a").AddMark("NULLNESS")
	r := a.rebase("y")
	if r.Base != "y" {
		t.Fatalf("expected rebase to change Base, got %q", r.Base)
	}
	if r.String() != "y.a" {
		t.Fatalf("expected selectors to survive rebase, got %q", r.String())
	}
	if !r.HasMark(defaultMark) || !r.HasMark("NULLNESS") {
		t.Fatalf("expected marks to survive rebase, got %v", r.Marks())
	}
}

func TestAccessPathEqualityIsComparable(t *testing.T) {
	a := Tainted("x").WithSelector("a")
	b := Tainted("x").WithSelector("a")
	set := map[AccessPath]bool{a: true}
	if !set[b] {
		t.Fatal("expected two independently constructed but equal AccessPaths to be the same map key")
	}
}
