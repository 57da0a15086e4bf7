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
	log "github.com/golang/glog"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// IntVarFilter is the base of filters over an array of integer variables. It
// caches the synchronized value and activation of each variable and exposes
// position lookups by variable; subclasses add their acceptance logic and
// plug post-synchronization work into the onSynchronize hook.
type IntVarFilter struct {
	vars     []*cs.IntVar
	values   []int64
	active   []bool
	position map[*cs.IntVar]int
	name     string

	onSynchronize func(delta *cs.Assignment)
}

func (f *IntVarFilter) initFilter(vars []*cs.IntVar, name string) {
	if len(vars) == 0 {
		log.Fatalf("filter %q built with no variables", name)
	}
	f.vars = vars
	f.values = make([]int64, len(vars))
	f.active = make([]bool, len(vars))
	f.position = make(map[*cs.IntVar]int, len(vars))
	for i, v := range vars {
		f.position[v] = i
	}
	f.name = name
}

// FindIndex returns the position of `v` in the filter, false if the filter
// does not watch it.
func (f *IntVarFilter) FindIndex(v *cs.IntVar) (int, bool) {
	i, ok := f.position[v]
	return i, ok
}

// Value returns the synchronized value at position i.
func (f *IntVarFilter) Value(i int) int64 { return f.values[i] }

// Synchronize implements Filter. An empty or fragment-holding delta forces a
// full re-read of the assignment; otherwise only the delta variables are
// re-read.
func (f *IntVarFilter) Synchronize(assignment, delta *cs.Assignment) {
	full := delta == nil || delta.Empty()
	if !full {
		for _, e := range delta.Elements() {
			if !e.Activated() {
				full = true
				break
			}
		}
	}
	if full {
		for i, v := range f.vars {
			if assignment.Has(v) {
				f.values[i] = assignment.Value(v)
				f.active[i] = assignment.Activated(v)
			}
		}
	} else {
		for _, e := range delta.Elements() {
			if i, ok := f.position[e.Var()]; ok {
				f.values[i] = e.Value()
				f.active[i] = e.Activated()
			}
		}
	}
	if f.onSynchronize != nil {
		f.onSynchronize(delta)
	}
}

// Relax implements Filter as a no-op.
func (f *IntVarFilter) Relax(delta, deltadelta *cs.Assignment) {}

// Revert implements Filter as a no-op.
func (f *IntVarFilter) Revert() {}

// SynchronizedObjectiveValue implements Filter.
func (f *IntVarFilter) SynchronizedObjectiveValue() int64 { return 0 }

// AcceptedObjectiveValue implements Filter.
func (f *IntVarFilter) AcceptedObjectiveValue() int64 { return 0 }

// IsIncremental implements Filter.
func (f *IntVarFilter) IsIncremental() bool { return false }

func (f *IntVarFilter) String() string { return f.name }

// VariableDomainFilter rejects any delta assigning an activated variable a
// value outside its domain. It is stateless.
type VariableDomainFilter struct{}

// NewVariableDomainFilter creates a domain filter.
func NewVariableDomainFilter() *VariableDomainFilter { return &VariableDomainFilter{} }

// Relax implements Filter as a no-op.
func (f *VariableDomainFilter) Relax(delta, deltadelta *cs.Assignment) {}

// Accept implements Filter.
func (f *VariableDomainFilter) Accept(delta, deltadelta *cs.Assignment, objectiveMin, objectiveMax int64) bool {
	for _, e := range delta.Elements() {
		if e.Activated() && !e.Var().Contains(e.Value()) {
			return false
		}
	}
	return true
}

// Synchronize implements Filter as a no-op.
func (f *VariableDomainFilter) Synchronize(assignment, delta *cs.Assignment) {}

// Revert implements Filter as a no-op.
func (f *VariableDomainFilter) Revert() {}

// SynchronizedObjectiveValue implements Filter.
func (f *VariableDomainFilter) SynchronizedObjectiveValue() int64 { return 0 }

// AcceptedObjectiveValue implements Filter.
func (f *VariableDomainFilter) AcceptedObjectiveValue() int64 { return 0 }

// IsIncremental implements Filter.
func (f *VariableDomainFilter) IsIncremental() bool { return false }

func (f *VariableDomainFilter) String() string { return "VariableDomainFilter" }

// SumObjectiveFilter tracks the sum of a per-variable cost over the
// synchronized solution and accepts a delta iff the re-evaluated sum stays
// within the objective bound window. Deactivated variables contribute
// nothing until they are reassigned by a full re-solve.
type SumObjectiveFilter struct {
	IntVarFilter
	evaluator       func(i int, value int64) int64
	synchronizedSum int64
	acceptedSum     int64
}

// NewSumObjectiveFilter creates a sum objective filter; `evaluator` returns
// the cost of assigning `value` to the variable at position i.
func NewSumObjectiveFilter(vars []*cs.IntVar, evaluator func(i int, value int64) int64) *SumObjectiveFilter {
	f := &SumObjectiveFilter{evaluator: evaluator}
	f.initFilter(vars, "SumObjectiveFilter")
	f.onSynchronize = func(*cs.Assignment) {
		var sum int64
		for i := range f.vars {
			if f.active[i] {
				sum = capAdd(sum, f.evaluator(i, f.values[i]))
			}
		}
		f.synchronizedSum = sum
		f.acceptedSum = sum
	}
	return f
}

// Accept implements Filter.
func (f *SumObjectiveFilter) Accept(delta, deltadelta *cs.Assignment, objectiveMin, objectiveMax int64) bool {
	sum := f.synchronizedSum
	for _, e := range delta.Elements() {
		i, ok := f.position[e.Var()]
		if !ok {
			continue
		}
		if f.active[i] {
			sum = capSub(sum, f.evaluator(i, f.values[i]))
		}
		if e.Activated() {
			sum = capAdd(sum, f.evaluator(i, e.Value()))
		}
	}
	f.acceptedSum = sum
	return sum >= objectiveMin && sum <= objectiveMax
}

// SynchronizedObjectiveValue implements Filter.
func (f *SumObjectiveFilter) SynchronizedObjectiveValue() int64 { return f.synchronizedSum }

// AcceptedObjectiveValue implements Filter.
func (f *SumObjectiveFilter) AcceptedObjectiveValue() int64 { return f.acceptedSum }

// WeightedSumFilter bounds a weighted sum of its variables through a
// transactional State: each candidate delta tightens the input domains to
// the candidate values and propagates; the move is rejected once any domain,
// in particular the bounded sum output, empties. All per-move state changes
// are undone by Revert.
type WeightedSumFilter struct {
	IntVarFilter
	state    *State
	inputIDs []VariableDomainID
	output   VariableDomainID
}

// NewWeightedSumFilter creates a filter enforcing
// outputMin <= sum(weights[i]*vars[i]) + offset <= outputMax.
func NewWeightedSumFilter(vars []*cs.IntVar, weights []int64, offset, outputMin, outputMax int64) *WeightedSumFilter {
	if len(weights) != len(vars) {
		log.Fatalf("NewWeightedSumFilter: %v variables vs %v weights", len(vars), len(weights))
	}
	f := &WeightedSumFilter{state: NewState()}
	f.initFilter(vars, "WeightedSumFilter")
	f.inputIDs = make([]VariableDomainID, len(vars))
	for i, v := range vars {
		f.inputIDs[i] = f.state.AddVariableDomain(v.Min(), v.Max())
	}
	f.output = f.state.AddVariableDomain(outputMin, outputMax)
	f.state.AddWeightedSumConstraint(f.inputIDs, weights, offset, f.output)
	f.state.CompileConstraints()
	f.onSynchronize = func(*cs.Assignment) {
		f.state.Revert()
		feasible := true
		for i, id := range f.inputIDs {
			if !f.active[i] {
				continue
			}
			f.state.RelaxVariableDomain(id)
			f.state.PropagateRelax(id)
			if !f.state.TightenVariableDomainMin(id, f.values[i]) ||
				!f.state.TightenVariableDomainMax(id, f.values[i]) ||
				!f.state.PropagateTighten(id) {
				feasible = false
			}
		}
		if !feasible {
			// The reference solution violates the bound; keep the relaxed
			// state so every move is re-checked from scratch.
			f.state.Revert()
			return
		}
		f.state.Commit()
	}
	return f
}

// Accept implements Filter.
func (f *WeightedSumFilter) Accept(delta, deltadelta *cs.Assignment, objectiveMin, objectiveMax int64) bool {
	for _, e := range delta.Elements() {
		i, ok := f.position[e.Var()]
		if !ok {
			continue
		}
		id := f.inputIDs[i]
		f.state.RelaxVariableDomain(id)
		f.state.PropagateRelax(id)
		if !e.Activated() {
			continue
		}
		value := e.Value()
		if !f.state.TightenVariableDomainMin(id, value) ||
			!f.state.TightenVariableDomainMax(id, value) ||
			!f.state.PropagateTighten(id) {
			return false
		}
	}
	return true
}

// Revert implements Filter.
func (f *WeightedSumFilter) Revert() { f.state.Revert() }

func (f *WeightedSumFilter) String() string { return "WeightedSumFilter" }
