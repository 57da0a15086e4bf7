// Copyright 2010-2024 Google LLC
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

package localsearch

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// drainFragments enumerates all remaining neighbors of an LNS operator,
// returning the deactivated variable names of each.
func drainFragments(t *testing.T, op Operator, maxNeighbors int) []map[string]bool {
	t.Helper()
	delta := cs.NewAssignment()
	var fragments []map[string]bool
	for op.MakeNextNeighbor(delta, nil) {
		fragments = append(fragments, deactivatedNames(delta))
		delta.Clear()
		if len(fragments) > maxNeighbors {
			t.Fatalf("operator %v produced more than %v neighbors", op, maxNeighbors)
		}
	}
	return fragments
}

func TestSimpleLNS_SlidingWindowWrapsOnce(t *testing.T) {
	vars := newTestVars(5, 0, 10)
	assignment := newTestAssignment(vars, []int64{0, 1, 2, 3, 4})

	op := NewSimpleLNS(vars, 2)
	if !op.HasFragments() {
		t.Fatal("HasFragments() returned false on an LNS operator, want true")
	}
	op.Start(assignment)

	got := drainFragments(t, op, 100)
	want := []map[string]bool{
		{"x0": true, "x1": true},
		{"x1": true, "x2": true},
		{"x2": true, "x3": true},
		{"x3": true, "x4": true},
		{"x4": true, "x0": true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SimpleLNS produced unexpected fragments (-want+got);\n%s", diff)
	}

	op.Start(assignment)
	if got := drainFragments(t, op, 100); len(got) != 5 {
		t.Errorf("second round produced %v fragments, want 5", len(got))
	}
}

func TestRandomLNS_NeverExhausts(t *testing.T) {
	vars := newTestVars(6, 0, 10)
	assignment := newTestAssignment(vars, []int64{0, 0, 0, 0, 0, 0})

	op := NewRandomLNS(vars, 3, rand.New(rand.NewSource(1)))
	op.Start(assignment)

	delta := cs.NewAssignment()
	for i := 0; i < 50; i++ {
		if !op.MakeNextNeighbor(delta, nil) {
			t.Fatalf("MakeNextNeighbor returned false on call %v, want an endless enumeration", i)
		}
		names := deactivatedNames(delta)
		// Sampling with replacement: at most 3 distinct variables.
		if len(names) == 0 || len(names) > 3 {
			t.Fatalf("fragment %v has %v variables, want in [1,3]", i, len(names))
		}
		delta.Clear()
	}
}

func TestPathLNS_DeactivatesChains(t *testing.T) {
	// Open path 0 -> 1 -> 2 -> 3 -> end.
	vars, assignment := newPathAssignment([]int64{1, 2, 3, 4})

	op := NewPathLNS(vars, nil, 2)
	if !op.HasFragments() {
		t.Fatal("HasFragments() returned false on PathLNS, want true")
	}
	op.Start(assignment)

	delta := cs.NewAssignment()
	if !op.MakeNextNeighbor(delta, nil) {
		t.Fatal("MakeNextNeighbor returned false on the first neighbor")
	}
	got := deactivatedNames(delta)
	want := map[string]bool{"x0": true, "x1": true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("first fragment has unexpected variables (-want+got);\n%s", diff)
	}
}
