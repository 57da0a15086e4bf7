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
	"math"

	log "github.com/golang/glog"
)

// capAdd returns a+b, saturated at MinInt64/MaxInt64.
func capAdd(a, b int64) int64 {
	s := a + b
	if b > 0 && s < a {
		return math.MaxInt64
	}
	if b < 0 && s > a {
		return math.MinInt64
	}
	return s
}

// capSub returns a-b, saturated at MinInt64/MaxInt64.
func capSub(a, b int64) int64 {
	if b == math.MinInt64 {
		if a >= 0 {
			return math.MaxInt64
		}
		return a + math.MaxInt64 + 1
	}
	return capAdd(a, -b)
}

// capProd returns a*b, saturated at MinInt64/MaxInt64.
func capProd(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a == -1 {
		a, b = b, a
	}
	if b == -1 {
		if a == math.MinInt64 {
			return math.MaxInt64
		}
		return -a
	}
	result := a * b
	if result/b != a {
		if (a > 0) == (b > 0) {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return result
}

// VariableDomainID identifies a variable domain inside a State.
type VariableDomainID int

type domainBounds struct {
	min, max int64
}

func (d domainBounds) empty() bool { return d.min > d.max }

type stateTrailEntry struct {
	id     VariableDomainID
	bounds domainBounds
}

// trigger is one constraint input watching a domain.
type trigger struct {
	constraint int
	input      int
}

// Constraint is an incremental propagator inside a State: it reads its input
// domains, maintains an internal invariant, and tightens its single output
// domain. The State snapshots and restores constraints through Commit and
// Revert together with the domain trail.
type Constraint interface {
	// Propagate updates the invariant after the input at `inputIndex`
	// changed and tightens the output domain.
	Propagate(inputIndex int)
	// Commit freezes the current invariant as the rollback point.
	Commit()
	// Revert restores the invariant of the last Commit.
	Revert()
	Inputs() []VariableDomainID
	Output() VariableDomainID
}

// State is a transactional store of variable domains with DAG-ordered
// incremental propagation. Filters relax the domains touched by a candidate
// delta, tighten them to the candidate values, and propagate; Commit keeps
// the result and Revert undoes exactly every domain and constraint change
// since the last Commit, in strict stack discipline.
type State struct {
	relaxed []domainBounds
	current []domainBounds
	trailed []bool
	trail   []stateTrailEntry

	numEmptyDomains int

	constraints     []Constraint
	constraintDirty []bool
	dirty           []int
	triggers        [][]trigger
	dependents      [][]int
	compiled        bool
}

// NewState creates an empty store.
func NewState() *State {
	return &State{}
}

// AddVariableDomain registers a domain `[min,max]` and returns its id. The
// given bounds also become the domain's relaxed domain, restored by
// RelaxVariableDomain.
func (s *State) AddVariableDomain(min, max int64) VariableDomainID {
	if min > max {
		log.Fatalf("AddVariableDomain(%v, %v): empty domain", min, max)
	}
	if s.compiled {
		log.Fatal("AddVariableDomain called after CompileConstraints")
	}
	id := VariableDomainID(len(s.current))
	bounds := domainBounds{min, max}
	s.relaxed = append(s.relaxed, bounds)
	s.current = append(s.current, bounds)
	s.trailed = append(s.trailed, false)
	return id
}

// VariableDomainMin returns the current lower bound of the domain.
func (s *State) VariableDomainMin(id VariableDomainID) int64 { return s.current[id].min }

// VariableDomainMax returns the current upper bound of the domain.
func (s *State) VariableDomainMax(id VariableDomainID) int64 { return s.current[id].max }

// AllDomainsNonempty returns whether every current domain is non-empty;
// Commit requires this to hold.
func (s *State) AllDomainsNonempty() bool { return s.numEmptyDomains == 0 }

func (s *State) setCurrent(id VariableDomainID, bounds domainBounds) {
	wasEmpty := s.current[id].empty()
	s.current[id] = bounds
	if isEmpty := bounds.empty(); isEmpty != wasEmpty {
		if isEmpty {
			s.numEmptyDomains++
		} else {
			s.numEmptyDomains--
		}
	}
}

func (s *State) ensureTrailed(id VariableDomainID) {
	if s.trailed[id] {
		return
	}
	s.trail = append(s.trail, stateTrailEntry{id, s.current[id]})
	s.trailed[id] = true
}

// RelaxVariableDomain snapshots the current domain onto the trail and
// replaces it by the pre-registered relaxed domain. It returns whether the
// relaxation happened now; a domain already touched since the last Commit is
// left as is.
func (s *State) RelaxVariableDomain(id VariableDomainID) bool {
	if s.trailed[id] {
		return false
	}
	s.ensureTrailed(id)
	s.setCurrent(id, s.relaxed[id])
	return true
}

// TightenVariableDomainMin intersects the domain with `[value, +inf)` and
// returns whether the whole store is still feasible. Tightening an already
// empty domain is a legal no-op.
func (s *State) TightenVariableDomainMin(id VariableDomainID, value int64) bool {
	s.ensureTrailed(id)
	d := s.current[id]
	if value > d.min {
		d.min = value
		s.setCurrent(id, d)
	}
	return s.numEmptyDomains == 0
}

// TightenVariableDomainMax intersects the domain with `(-inf, value]` and
// returns whether the whole store is still feasible.
func (s *State) TightenVariableDomainMax(id VariableDomainID, value int64) bool {
	s.ensureTrailed(id)
	d := s.current[id]
	if value < d.max {
		d.max = value
		s.setCurrent(id, d)
	}
	return s.numEmptyDomains == 0
}

// AddWeightedSumConstraint registers the constraint
// output = sum(weights[i]*inputs[i]) + offset and returns it.
func (s *State) AddWeightedSumConstraint(inputs []VariableDomainID, weights []int64, offset int64, output VariableDomainID) *WeightedSum {
	if s.compiled {
		log.Fatal("AddWeightedSumConstraint called after CompileConstraints")
	}
	if len(inputs) != len(weights) {
		log.Fatalf("AddWeightedSumConstraint: %v inputs vs %v weights", len(inputs), len(weights))
	}
	ws := newWeightedSum(s, inputs, weights, offset, output)
	s.constraints = append(s.constraints, ws)
	return ws
}

// CompileConstraints freezes the constraint set and builds the dependency
// DAG of domains and constraints. A dependency cycle is a wiring bug and
// aborts.
func (s *State) CompileConstraints() {
	if s.compiled {
		log.Fatal("CompileConstraints called twice")
	}
	s.triggers = make([][]trigger, len(s.current))
	for ci, c := range s.constraints {
		for k, in := range c.Inputs() {
			s.triggers[in] = append(s.triggers[in], trigger{ci, k})
		}
	}
	s.dependents = make([][]int, len(s.constraints))
	indegree := make([]int, len(s.constraints))
	for ci, c := range s.constraints {
		for _, t := range s.triggers[c.Output()] {
			s.dependents[ci] = append(s.dependents[ci], t.constraint)
			indegree[t.constraint]++
		}
	}
	var queue []int
	for ci := range s.constraints {
		if indegree[ci] == 0 {
			queue = append(queue, ci)
		}
	}
	processed := 0
	for len(queue) > 0 {
		ci := queue[0]
		queue = queue[1:]
		processed++
		for _, dep := range s.dependents[ci] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if processed != len(s.constraints) {
		log.Fatalf("CompileConstraints: dependency graph has a cycle (%v of %v constraints ordered)", processed, len(s.constraints))
	}
	s.constraintDirty = make([]bool, len(s.constraints))
	s.compiled = true
}

func (s *State) markDirty(ci int) {
	if !s.constraintDirty[ci] {
		s.constraintDirty[ci] = true
		s.dirty = append(s.dirty, ci)
	}
}

// reachableTopoOrder returns the constraints reachable from `id` in a
// topological order computed on demand with Kahn's algorithm over the
// reachable sub-DAG, correct for shared inputs.
func (s *State) reachableTopoOrder(id VariableDomainID) []int {
	if !s.compiled {
		log.Fatal("propagation requested before CompileConstraints")
	}
	inSet := make(map[int]bool)
	var stack []VariableDomainID
	stack = append(stack, id)
	seenDomain := map[VariableDomainID]bool{id: true}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range s.triggers[d] {
			if inSet[t.constraint] {
				continue
			}
			inSet[t.constraint] = true
			out := s.constraints[t.constraint].Output()
			if !seenDomain[out] {
				seenDomain[out] = true
				stack = append(stack, out)
			}
		}
	}
	indegree := make(map[int]int)
	for ci := range inSet {
		for _, dep := range s.dependents[ci] {
			if inSet[dep] {
				indegree[dep]++
			}
		}
	}
	var queue []int
	for ci := range inSet {
		if indegree[ci] == 0 {
			queue = append(queue, ci)
		}
	}
	var order []int
	for len(queue) > 0 {
		ci := queue[0]
		queue = queue[1:]
		order = append(order, ci)
		for _, dep := range s.dependents[ci] {
			if !inSet[dep] {
				continue
			}
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	return order
}

// PropagateRelax fans a relaxation of `id` out to all dependent constraints:
// each reachable output is relaxed and recomputed from the relaxed inputs.
func (s *State) PropagateRelax(id VariableDomainID) {
	changed := map[VariableDomainID]bool{id: true}
	for _, ci := range s.reachableTopoOrder(id) {
		c := s.constraints[ci]
		s.markDirty(ci)
		out := c.Output()
		s.RelaxVariableDomain(out)
		for k, in := range c.Inputs() {
			if changed[in] {
				c.Propagate(k)
			}
		}
		changed[out] = true
	}
}

// PropagateTighten fans a tightening of `id` out to all dependent
// constraints in topological order and returns whether the store is still
// feasible.
func (s *State) PropagateTighten(id VariableDomainID) bool {
	changed := map[VariableDomainID]bool{id: true}
	for _, ci := range s.reachableTopoOrder(id) {
		c := s.constraints[ci]
		s.markDirty(ci)
		out := c.Output()
		for k, in := range c.Inputs() {
			if changed[in] {
				c.Propagate(k)
			}
		}
		changed[out] = true
	}
	return s.numEmptyDomains == 0
}

// Commit drops the trail and freezes every touched constraint. The store
// must be feasible; committing an infeasible store is a wiring bug.
func (s *State) Commit() {
	if s.numEmptyDomains > 0 {
		log.Fatalf("Commit called with %v empty domains", s.numEmptyDomains)
	}
	for _, e := range s.trail {
		s.trailed[e.id] = false
	}
	s.trail = s.trail[:0]
	for _, ci := range s.dirty {
		s.constraints[ci].Commit()
		s.constraintDirty[ci] = false
	}
	s.dirty = s.dirty[:0]
}

// Revert restores every trailed domain and every touched constraint to its
// state at the last Commit, in reverse trail order, restoring the
// empty-domain accounting with it.
func (s *State) Revert() {
	for i := len(s.trail) - 1; i >= 0; i-- {
		e := s.trail[i]
		s.setCurrent(e.id, e.bounds)
		s.trailed[e.id] = false
	}
	s.trail = s.trail[:0]
	for _, ci := range s.dirty {
		s.constraints[ci].Revert()
		s.constraintDirty[ci] = false
	}
	s.dirty = s.dirty[:0]
}

// wsTerm is the contribution of one input to a weighted sum, with explicit
// infinity flags instead of saturating arithmetic.
type wsTerm struct {
	min, max       int64
	minInf, maxInf bool
}

// wsInvariant carries the finite parts of the sum bounds together with the
// number of inputs contributing an infinity on each side, making each input
// update O(1).
type wsInvariant struct {
	sumMin, sumMax       int64
	numNegInf, numPosInf int
}

// WeightedSum maintains `[min,max]` of sum(weights[i]*inputs[i]) + offset
// incrementally and propagates it into its output domain.
type WeightedSum struct {
	state   *State
	inputs  []VariableDomainID
	weights []int64
	output  VariableDomainID

	terms     []wsTerm
	invariant wsInvariant

	committedTerms     []wsTerm
	committedInvariant wsInvariant
}

func newWeightedSum(s *State, inputs []VariableDomainID, weights []int64, offset int64, output VariableDomainID) *WeightedSum {
	ws := &WeightedSum{
		state:   s,
		inputs:  append([]VariableDomainID(nil), inputs...),
		weights: append([]int64(nil), weights...),
		output:  output,
	}
	ws.terms = make([]wsTerm, len(inputs))
	ws.invariant = wsInvariant{sumMin: offset, sumMax: offset}
	for i := range inputs {
		term := ws.computeTerm(i)
		ws.terms[i] = term
		ws.addTerm(term)
	}
	ws.committedTerms = append([]wsTerm(nil), ws.terms...)
	ws.committedInvariant = ws.invariant
	return ws
}

// Inputs implements Constraint.
func (ws *WeightedSum) Inputs() []VariableDomainID { return ws.inputs }

// Output implements Constraint.
func (ws *WeightedSum) Output() VariableDomainID { return ws.output }

func (ws *WeightedSum) computeTerm(i int) wsTerm {
	w := ws.weights[i]
	if w == 0 {
		return wsTerm{}
	}
	lo := ws.state.VariableDomainMin(ws.inputs[i])
	hi := ws.state.VariableDomainMax(ws.inputs[i])
	var t wsTerm
	if w > 0 {
		if lo == math.MinInt64 {
			t.minInf = true
		} else {
			t.min = capProd(w, lo)
		}
		if hi == math.MaxInt64 {
			t.maxInf = true
		} else {
			t.max = capProd(w, hi)
		}
	} else {
		if hi == math.MaxInt64 {
			t.minInf = true
		} else {
			t.min = capProd(w, hi)
		}
		if lo == math.MinInt64 {
			t.maxInf = true
		} else {
			t.max = capProd(w, lo)
		}
	}
	return t
}

func (ws *WeightedSum) addTerm(t wsTerm) {
	if t.minInf {
		ws.invariant.numNegInf++
	} else {
		ws.invariant.sumMin = capAdd(ws.invariant.sumMin, t.min)
	}
	if t.maxInf {
		ws.invariant.numPosInf++
	} else {
		ws.invariant.sumMax = capAdd(ws.invariant.sumMax, t.max)
	}
}

func (ws *WeightedSum) removeTerm(t wsTerm) {
	if t.minInf {
		ws.invariant.numNegInf--
	} else {
		ws.invariant.sumMin = capSub(ws.invariant.sumMin, t.min)
	}
	if t.maxInf {
		ws.invariant.numPosInf--
	} else {
		ws.invariant.sumMax = capSub(ws.invariant.sumMax, t.max)
	}
}

// SumMin returns the current lower bound of the sum, MinInt64 while any
// input is still unbounded below after weighting.
func (ws *WeightedSum) SumMin() int64 {
	if ws.invariant.numNegInf > 0 {
		return math.MinInt64
	}
	return ws.invariant.sumMin
}

// SumMax returns the current upper bound of the sum, MaxInt64 while any
// input is still unbounded above after weighting.
func (ws *WeightedSum) SumMax() int64 {
	if ws.invariant.numPosInf > 0 {
		return math.MaxInt64
	}
	return ws.invariant.sumMax
}

// Propagate implements Constraint.
func (ws *WeightedSum) Propagate(inputIndex int) {
	old := ws.terms[inputIndex]
	term := ws.computeTerm(inputIndex)
	ws.terms[inputIndex] = term
	ws.removeTerm(old)
	ws.addTerm(term)
	if min := ws.SumMin(); min != math.MinInt64 {
		ws.state.TightenVariableDomainMin(ws.output, min)
	}
	if max := ws.SumMax(); max != math.MaxInt64 {
		ws.state.TightenVariableDomainMax(ws.output, max)
	}
}

// Commit implements Constraint.
func (ws *WeightedSum) Commit() {
	copy(ws.committedTerms, ws.terms)
	ws.committedInvariant = ws.invariant
}

// Revert implements Constraint.
func (ws *WeightedSum) Revert() {
	copy(ws.terms, ws.committedTerms)
	ws.invariant = ws.committedInvariant
}
