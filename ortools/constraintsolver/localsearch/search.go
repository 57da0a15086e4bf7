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
	"fmt"
	"math"

	log "github.com/golang/glog"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// DeltaChecker verifies a candidate move against the full model, catching
// what incremental filters miss. Filters are allowed to over-accept; the
// checker is the ground truth the driver falls back to.
type DeltaChecker interface {
	// CheckDelta returns whether the solution obtained by applying delta
	// to the current reference solution is feasible.
	CheckDelta(delta, deltadelta *cs.Assignment) bool
}

// FindOneNeighbor is the decision builder at the heart of local search: each
// Next call scans the operator's neighborhood from the reference solution
// and stops at the first move that improves the objective and passes the
// filters. It returns ErrSearchExhausted when the operator runs out of
// moves or the limit is crossed.
type FindOneNeighbor struct {
	reference *cs.Assignment
	pool      SolutionPool
	operator  Operator
	manager   *FilterManager
	checker   DeltaChecker
	params    Parameters

	delta      *cs.Assignment
	deltadelta *cs.Assignment
	lastDelta  *cs.Assignment
	acceptMove func(delta, deltadelta *cs.Assignment) bool

	started      bool
	synchronized bool
	// fastMode skips the full check between periodic verifications. It is
	// switched off for the rest of the search the first time a filter
	// over-accepts an infeasible move.
	fastMode bool
	// forceCheck demands a full verification of the first accepted move
	// after a filter resynchronization, even in fast mode.
	forceCheck            bool
	acceptedSinceCheck    int
	acceptedSinceFullSync int
}

// NewFindOneNeighbor creates the builder. The manager and checker may be
// nil; with both nil every syntactically valid improving move is accepted.
func NewFindOneNeighbor(reference *cs.Assignment, pool SolutionPool, operator Operator, manager *FilterManager, checker DeltaChecker, params Parameters) *FindOneNeighbor {
	if reference == nil || reference.Empty() {
		log.Fatal("FindOneNeighbor requires a non-empty reference solution")
	}
	return &FindOneNeighbor{
		reference:  reference,
		pool:       pool,
		operator:   operator,
		manager:    manager,
		checker:    checker,
		params:     params,
		delta:      cs.NewAssignment(),
		deltadelta: cs.NewAssignment(),
		fastMode:   params.FastLocalSearch,
	}
}

// SetMoveAcceptor installs an external acceptance criterion consulted on
// every candidate move before the filters run, giving metaheuristics such as
// tabu lists or annealing schedules a veto. A nil acceptor admits every move.
func (f *FindOneNeighbor) SetMoveAcceptor(accept func(delta, deltadelta *cs.Assignment) bool) {
	f.acceptMove = accept
}

// Next implements cs.DecisionBuilder. A nil, nil return means one improving
// neighbor was found and committed to the reference solution.
func (f *FindOneNeighbor) Next(ctx *cs.SearchContext) (cs.Decision, error) {
	if !f.started || (f.pool != nil && f.pool.SyncNeeded(f.reference)) {
		if f.pool != nil {
			f.pool.GetNextSolution(f.reference)
		}
		f.fullSynchronize()
		f.started = true
	} else if !f.synchronized {
		f.resynchronize()
	}
	for {
		if ctx.LimitCrossed() {
			return nil, cs.ErrSearchExhausted
		}
		f.delta.Clear()
		f.deltadelta.Clear()
		if !f.operator.MakeNextNeighbor(f.delta, f.deltadelta) {
			return nil, cs.ErrSearchExhausted
		}
		ctx.Stats.Neighbors++
		if f.acceptMove != nil && !f.acceptMove(f.delta, f.deltadelta) {
			continue
		}
		if !f.filterAccept() {
			continue
		}
		ctx.Stats.FilteredNeighbors++
		if f.needFullCheck() {
			f.forceCheck = false
			if !f.checker.CheckDelta(f.delta, f.deltadelta) {
				// A filter over-accepted. Fast mode is no longer
				// trustworthy; rewind the filters to the reference
				// solution and keep scanning.
				f.fastMode = false
				f.resynchronizeFilters(nil)
				continue
			}
			f.acceptedSinceCheck = 0
		} else {
			f.acceptedSinceCheck++
		}
		f.commitDelta()
		ctx.Stats.AcceptedNeighbors++
		return nil, nil
	}
}

func (f *FindOneNeighbor) filterAccept() bool {
	if f.manager == nil {
		return true
	}
	objectiveMax := int64(math.MaxInt64)
	if f.reference.HasObjective() {
		// Strict improvement: the candidate must beat the reference.
		objectiveMax = capSub(f.reference.ObjectiveValue(), 1)
	}
	return f.manager.Accept(f.delta, f.deltadelta, math.MinInt64, objectiveMax)
}

func (f *FindOneNeighbor) needFullCheck() bool {
	if f.checker == nil {
		return false
	}
	if !f.fastMode || f.forceCheck {
		return true
	}
	if f.operator.HasFragments() {
		return true
	}
	return f.acceptedSinceCheck >= f.params.CheckSolutionPeriod
}

func (f *FindOneNeighbor) commitDelta() {
	for _, e := range f.delta.Elements() {
		if !e.Activated() {
			// A deactivated element is an unassigned fragment variable;
			// the reference keeps its previous value.
			continue
		}
		if !f.reference.Has(e.Var()) {
			log.Fatalf("delta touches variable %s absent from the reference solution", e.Var().Name())
		}
		f.reference.SetValue(e.Var(), e.Value())
		f.reference.Activate(e.Var())
	}
	if f.manager != nil && f.reference.HasObjective() {
		f.reference.SetObjectiveValue(f.manager.AcceptedObjectiveValue())
	}
	if f.lastDelta == nil {
		f.lastDelta = cs.NewAssignment()
	}
	f.lastDelta.Copy(f.delta)
	if f.pool != nil {
		f.pool.RegisterNewSolution(f.reference)
	}
	f.synchronized = false
}

// fullSynchronize restarts the operator and rebuilds every filter from the
// reference solution.
func (f *FindOneNeighbor) fullSynchronize() {
	f.operator.Start(f.reference)
	f.resynchronizeFilters(nil)
	f.acceptedSinceFullSync = 0
	f.acceptedSinceCheck = 0
	f.forceCheck = true
	f.synchronized = true
}

// resynchronize restarts the operator around the updated reference. Filters
// resynchronize from the last accepted delta when possible; every
// SyncFrequency accepted solutions they are rebuilt from scratch to stop
// incremental drift.
func (f *FindOneNeighbor) resynchronize() {
	f.operator.Start(f.reference)
	f.acceptedSinceFullSync++
	if f.acceptedSinceFullSync >= f.params.SyncFrequency {
		f.resynchronizeFilters(nil)
		f.acceptedSinceFullSync = 0
	} else {
		f.resynchronizeFilters(f.lastDelta)
	}
	f.forceCheck = true
	f.synchronized = true
}

func (f *FindOneNeighbor) resynchronizeFilters(delta *cs.Assignment) {
	if f.manager != nil {
		f.manager.Synchronize(f.reference, delta)
	}
}

type nestedSolveState int

const (
	nestedSolvePending nestedSolveState = iota
	nestedSolveFailed
	nestedSolveFound
)

// NestedSolveDecision runs a decision builder to completion inside Apply
// and records the outcome instead of propagating the failure to the outer
// search.
type NestedSolveDecision struct {
	builder cs.DecisionBuilder
	state   nestedSolveState
}

// NewNestedSolveDecision wraps a builder.
func NewNestedSolveDecision(builder cs.DecisionBuilder) *NestedSolveDecision {
	return &NestedSolveDecision{builder: builder, state: nestedSolvePending}
}

// FoundSolution returns whether the nested solve ended on a solution.
func (d *NestedSolveDecision) FoundSolution() bool { return d.state == nestedSolveFound }

// Apply implements cs.Decision.
func (d *NestedSolveDecision) Apply(ctx *cs.SearchContext) error {
	err := Solve(d.builder, ctx)
	switch {
	case err == nil:
		d.state = nestedSolveFound
	case errors.Is(err, cs.ErrSearchExhausted):
		d.state = nestedSolveFailed
	default:
		return err
	}
	return nil
}

// Refute implements cs.Decision.
func (d *NestedSolveDecision) Refute(ctx *cs.SearchContext) error { return nil }

func (d *NestedSolveDecision) String() string { return "NestedSolveDecision" }

// LocalSearch chains an optional first-solution builder with repeated
// improving-neighbor searches. Every Next call that returns nil, nil has
// placed one more solution in the reference assignment; the search ends
// with ErrSearchExhausted when no improving neighbor remains.
type LocalSearch struct {
	assignment    *cs.Assignment
	firstSolution cs.DecisionBuilder
	findNeighbors *FindOneNeighbor
	pool          SolutionPool
	initialized   bool
}

// NewLocalSearch creates the outer builder. firstSolution may be nil when
// `assignment` already holds a complete initial solution.
func NewLocalSearch(assignment *cs.Assignment, firstSolution cs.DecisionBuilder, pool SolutionPool, operator Operator, manager *FilterManager, checker DeltaChecker, params Parameters) *LocalSearch {
	ls := &LocalSearch{
		assignment:    assignment,
		firstSolution: firstSolution,
		pool:          pool,
	}
	ls.findNeighbors = NewFindOneNeighbor(assignment, pool, operator, manager, checker, params)
	return ls
}

// SetMoveAcceptor installs an external acceptance criterion on the inner
// neighbor search; see FindOneNeighbor.SetMoveAcceptor.
func (ls *LocalSearch) SetMoveAcceptor(accept func(delta, deltadelta *cs.Assignment) bool) {
	ls.findNeighbors.SetMoveAcceptor(accept)
}

// Next implements cs.DecisionBuilder.
func (ls *LocalSearch) Next(ctx *cs.SearchContext) (cs.Decision, error) {
	if !ls.initialized {
		if ls.firstSolution != nil {
			nested := NewNestedSolveDecision(ls.firstSolution)
			if err := nested.Apply(ctx); err != nil {
				return nil, err
			}
			if !nested.FoundSolution() {
				return nil, cs.ErrSearchExhausted
			}
		}
		if ls.pool != nil {
			ls.pool.Initialize(ls.assignment)
		}
		ls.initialized = true
		ctx.Stats.Solutions++
		return nil, nil
	}
	d, err := ls.findNeighbors.Next(ctx)
	if err != nil || d != nil {
		return d, err
	}
	ctx.Stats.Solutions++
	return nil, nil
}

func (ls *LocalSearch) String() string { return "LocalSearch" }

// Solve drives a decision builder until it reports done, applying every
// decision and refuting failed ones. It returns ErrSearchExhausted when the
// builder runs out of candidates or the limit is crossed.
func Solve(builder cs.DecisionBuilder, ctx *cs.SearchContext) error {
	for {
		if ctx.LimitCrossed() {
			return cs.ErrSearchExhausted
		}
		d, err := builder.Next(ctx)
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}
		if err := d.Apply(ctx); err != nil {
			if !errors.Is(err, cs.ErrSearchExhausted) {
				return err
			}
			if err := d.Refute(ctx); err != nil {
				return err
			}
		}
	}
}

// Improve runs local search to completion on `assignment`, which must hold
// a complete initial solution, and returns the statistics of the run. The
// search stops normally on operator exhaustion or a crossed limit.
func Improve(assignment *cs.Assignment, operator Operator, manager *FilterManager, checker DeltaChecker, params Parameters, limit cs.Limit) (*cs.SearchStatistics, error) {
	ctx := cs.NewSearchContext()
	ctx.Limit = limit
	pool := NewDefaultSolutionPool()
	ls := NewLocalSearch(assignment, nil, pool, operator, manager, checker, params)
	for {
		_, err := ls.Next(ctx)
		if errors.Is(err, cs.ErrSearchExhausted) {
			return ctx.Stats, nil
		}
		if err != nil {
			return ctx.Stats, fmt.Errorf("local search: %w", err)
		}
	}
}
