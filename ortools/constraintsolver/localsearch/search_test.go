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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// newMinimizeSumSetup is the shared fixture of the driver tests: variables at
// 5 whose sum is the objective, improved by decrementing one variable at a
// time.
func newMinimizeSumSetup(t *testing.T) ([]*cs.IntVar, *cs.Assignment, Operator, *FilterManager) {
	t.Helper()
	vars := newTestVars(3, 0, 10)
	assignment := newTestAssignment(vars, []int64{5, 5, 5})
	arena := cs.NewVarArena()
	objective := arena.NewIntVar(0, 100, "objective")
	assignment.AddObjective(objective)
	assignment.SetObjectiveValue(15)
	operator := NewDecrementValue(vars)
	manager := NewFilterManager([]Filter{
		NewVariableDomainFilter(),
		NewSumObjectiveFilter(vars, func(i int, value int64) int64 { return value }),
	})
	return vars, assignment, operator, manager
}

func TestImprove_ReachesLocalOptimum(t *testing.T) {
	vars, assignment, operator, manager := newMinimizeSumSetup(t)

	stats, err := Improve(assignment, operator, manager, nil, DefaultParameters(), nil)
	if err != nil {
		t.Fatalf("Improve returned error %v", err)
	}

	for i, v := range vars {
		if got := assignment.Value(v); got != 0 {
			t.Errorf("variable %v ended at %v, want 0", i, got)
		}
	}
	if got, want := assignment.ObjectiveValue(), int64(0); got != want {
		t.Errorf("objective ended at %v, want %v", got, want)
	}

	// 15 single-decrement moves, plus the out-of-domain candidates scanned
	// once their variable has hit its lower bound.
	want := &cs.SearchStatistics{
		Neighbors:         33,
		FilteredNeighbors: 15,
		AcceptedNeighbors: 15,
		Solutions:         16,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("unexpected statistics (-want+got);\n%s", diff)
	}
}

func TestFindOneNeighbor_WithoutFiltersAcceptsFirstNeighbor(t *testing.T) {
	vars := newTestVars(1, 0, 10)
	assignment := newTestAssignment(vars, []int64{3})
	operator := NewDecrementValue(vars)

	fn := NewFindOneNeighbor(assignment, nil, operator, nil, nil, DefaultParameters())
	ctx := cs.NewSearchContext()
	if _, err := fn.Next(ctx); err != nil {
		t.Fatalf("Next returned error %v", err)
	}
	if got, want := assignment.Value(vars[0]), int64(2); got != want {
		t.Errorf("variable ended at %v, want %v", got, want)
	}
	want := &cs.SearchStatistics{Neighbors: 1, FilteredNeighbors: 1, AcceptedNeighbors: 1}
	if diff := cmp.Diff(want, ctx.Stats); diff != "" {
		t.Errorf("unexpected statistics (-want+got);\n%s", diff)
	}
}

func TestLocalSearch_StopsAtNeighborLimit(t *testing.T) {
	vars, assignment, operator, manager := newMinimizeSumSetup(t)

	ctx := cs.NewSearchContext()
	ctx.Limit = &cs.NeighborLimit{Stats: ctx.Stats, MaxNeighbors: 3}
	pool := NewDefaultSolutionPool()
	ls := NewLocalSearch(assignment, nil, pool, operator, manager, nil, DefaultParameters())

	for {
		_, err := ls.Next(ctx)
		if errors.Is(err, cs.ErrSearchExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error %v", err)
		}
	}

	if got, want := ctx.Stats.Neighbors, int64(3); got != want {
		t.Errorf("search scanned %v neighbors under a limit of 3, want %v", got, want)
	}
	// Three improving decrements on the first variable went through before
	// the limit crossed.
	if got, want := assignment.Value(vars[0]), int64(2); got != want {
		t.Errorf("first variable ended at %v, want %v", got, want)
	}
	if got, want := assignment.Value(vars[1]), int64(5); got != want {
		t.Errorf("second variable ended at %v, want %v", got, want)
	}
}

func TestFindOneNeighbor_MoveAcceptorVetoesMoves(t *testing.T) {
	vars, assignment, operator, manager := newMinimizeSumSetup(t)

	fn := NewFindOneNeighbor(assignment, nil, operator, manager, nil, DefaultParameters())
	// A tabu-style criterion: moves touching the first variable are banned.
	fn.SetMoveAcceptor(func(delta, deltadelta *cs.Assignment) bool {
		return !delta.Has(vars[0])
	})

	ctx := cs.NewSearchContext()
	for {
		_, err := fn.Next(ctx)
		if errors.Is(err, cs.ErrSearchExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("Next returned error %v", err)
		}
	}

	// The banned variable never moved; the others walked to their floor.
	if got, want := assignment.Value(vars[0]), int64(5); got != want {
		t.Errorf("banned variable ended at %v, want %v", got, want)
	}
	if got, want := assignment.Value(vars[1]), int64(0); got != want {
		t.Errorf("second variable ended at %v, want %v", got, want)
	}
	if got, want := assignment.Value(vars[2]), int64(0); got != want {
		t.Errorf("third variable ended at %v, want %v", got, want)
	}
	// Vetoed moves never reach the filters.
	if got, want := ctx.Stats.FilteredNeighbors, int64(10); got != want {
		t.Errorf("FilteredNeighbors is %v, want %v", got, want)
	}
	if got, want := ctx.Stats.AcceptedNeighbors, int64(10); got != want {
		t.Errorf("AcceptedNeighbors is %v, want %v", got, want)
	}
}

// acceptAllChecker counts full model checks and passes them all.
type acceptAllChecker struct{ calls int }

func (c *acceptAllChecker) CheckDelta(delta, deltadelta *cs.Assignment) bool {
	c.calls++
	return true
}

func TestImprove_FastModeChecksFirstMoveAfterResync(t *testing.T) {
	vars, assignment, operator, manager := newMinimizeSumSetup(t)
	checker := &acceptAllChecker{}
	params := DefaultParameters()
	params.FastLocalSearch = true
	params.CheckSolutionPeriod = 100

	stats, err := Improve(assignment, operator, manager, checker, params, nil)
	if err != nil {
		t.Fatalf("Improve returned error %v", err)
	}
	for i, v := range vars {
		if got := assignment.Value(v); got != 0 {
			t.Errorf("variable %v ended at %v, want 0", i, got)
		}
	}
	// Filters resynchronize after every commit here, so each accepted move
	// is the first one after a resynchronization and must be verified even
	// though the periodic check is far from due.
	if got, want := int64(checker.calls), stats.AcceptedNeighbors; got != want {
		t.Errorf("checker ran %v times for %v accepted moves, want one check per move", got, want)
	}
	if stats.AcceptedNeighbors == 0 {
		t.Error("no moves were accepted")
	}
}

// rejectAllChecker simulates a full model check failing on every candidate.
type rejectAllChecker struct{ calls int }

func (c *rejectAllChecker) CheckDelta(delta, deltadelta *cs.Assignment) bool {
	c.calls++
	return false
}

func TestImprove_CheckerRejectionsKeepReferenceIntact(t *testing.T) {
	vars, assignment, operator, manager := newMinimizeSumSetup(t)
	checker := &rejectAllChecker{}

	stats, err := Improve(assignment, operator, manager, checker, DefaultParameters(), nil)
	if err != nil {
		t.Fatalf("Improve returned error %v", err)
	}
	if checker.calls == 0 {
		t.Fatal("checker was never consulted")
	}
	if got, want := stats.AcceptedNeighbors, int64(0); got != want {
		t.Errorf("AcceptedNeighbors is %v with an all-rejecting checker, want %v", got, want)
	}
	for i, v := range vars {
		if got := assignment.Value(v); got != 5 {
			t.Errorf("variable %v changed to %v with an all-rejecting checker, want 5", i, got)
		}
	}
}

// scriptedDecision fails Apply a fixed number of times before succeeding.
type scriptedDecision struct {
	failures int
	applies  int
	refutes  int
}

func (d *scriptedDecision) Apply(ctx *cs.SearchContext) error {
	d.applies++
	if d.applies <= d.failures {
		return cs.ErrSearchExhausted
	}
	return nil
}

func (d *scriptedDecision) Refute(ctx *cs.SearchContext) error {
	d.refutes++
	return nil
}

func (d *scriptedDecision) String() string { return "scriptedDecision" }

// scriptedBuilder hands out its decisions one by one, then reports done.
type scriptedBuilder struct {
	decisions []cs.Decision
	next      int
}

func (b *scriptedBuilder) Next(ctx *cs.SearchContext) (cs.Decision, error) {
	if b.next >= len(b.decisions) {
		return nil, nil
	}
	d := b.decisions[b.next]
	b.next++
	return d, nil
}

func TestSolve_RefutesFailedDecisions(t *testing.T) {
	failing := &scriptedDecision{failures: 1}
	passing := &scriptedDecision{}
	builder := &scriptedBuilder{decisions: []cs.Decision{failing, passing}}

	ctx := cs.NewSearchContext()
	if err := Solve(builder, ctx); err != nil {
		t.Fatalf("Solve returned error %v", err)
	}
	if failing.refutes != 1 {
		t.Errorf("failing decision was refuted %v times, want 1", failing.refutes)
	}
	if passing.refutes != 0 {
		t.Errorf("passing decision was refuted %v times, want 0", passing.refutes)
	}
}

// exhaustedBuilder always reports exhaustion.
type exhaustedBuilder struct{}

func (exhaustedBuilder) Next(ctx *cs.SearchContext) (cs.Decision, error) {
	return nil, cs.ErrSearchExhausted
}

func TestNestedSolveDecision_AbsorbsExhaustion(t *testing.T) {
	d := NewNestedSolveDecision(exhaustedBuilder{})
	ctx := cs.NewSearchContext()
	if err := d.Apply(ctx); err != nil {
		t.Fatalf("Apply returned error %v, want nil", err)
	}
	if d.FoundSolution() {
		t.Error("FoundSolution returned true after an exhausted nested solve")
	}
}

func TestNestedSolveDecision_ReportsSolutions(t *testing.T) {
	d := NewNestedSolveDecision(&scriptedBuilder{})
	ctx := cs.NewSearchContext()
	if err := d.Apply(ctx); err != nil {
		t.Fatalf("Apply returned error %v, want nil", err)
	}
	if !d.FoundSolution() {
		t.Error("FoundSolution returned false after a successful nested solve")
	}
}
