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

// Operator generates candidate moves over a reference solution. Operators are
// resumable generators: `Start` resets the cursors to the given reference,
// then each `MakeNextNeighbor` call yields at most one syntactically valid
// move or signals exhaustion by returning false. Callers must keep calling
// until false before reusing the operator; a subsequent Start allows the
// enumeration to resume from the beginning.
type Operator interface {
	// Start re-synchronizes the operator's cursors with the reference
	// solution for one search round.
	Start(assignment *cs.Assignment)
	// MakeNextNeighbor writes the next candidate move into delta (and its
	// incremental tail into deltadelta) and returns false once the
	// enumeration is exhausted.
	MakeNextNeighbor(delta, deltadelta *cs.Assignment) bool
	// HoldsDelta returns whether the caller can reuse delta across calls.
	HoldsDelta() bool
	// HasFragments returns whether the operator deactivates fragments of
	// variables (large neighborhood search); such deltas always need a full
	// re-solve.
	HasFragments() bool
	// IsIncremental returns whether the operator only touches deltadelta
	// since the last successful move.
	IsIncremental() bool
	String() string
}

// sparseSet records a set of small ints with O(1) insert and clear-by-replay.
type sparseSet struct {
	values []int
	member []bool
}

func newSparseSet(n int) sparseSet {
	return sparseSet{member: make([]bool, n)}
}

func (s *sparseSet) Add(i int) {
	if !s.member[i] {
		s.member[i] = true
		s.values = append(s.values, i)
	}
}

func (s *sparseSet) Clear() {
	for _, i := range s.values {
		s.member[i] = false
	}
	s.values = s.values[:0]
}

func (s *sparseSet) Values() []int { return s.values }

func (s *sparseSet) Empty() bool { return len(s.values) == 0 }

// IntVarOperator is the base of all operators iterating over an array of
// integer variables. It caches the last committed values and activation of
// its variables, records candidate changes in sparse sets, and turns them
// into deltas in ApplyChanges. Subclasses plug their cursor logic in through
// the oneNeighbor and onStart hooks.
type IntVarOperator struct {
	vars         []*cs.IntVar
	values       []int64
	oldValues    []int64
	activated    []bool
	wasActivated []bool
	changes      sparseSet
	deltaChanges sparseSet
	cleared      bool

	name         string
	incremental  bool
	hasFragments bool

	onStart       func()
	oneNeighbor   func() bool
	skipUnchanged func(i int) bool
}

func (o *IntVarOperator) init(vars []*cs.IntVar, name string) {
	if len(vars) == 0 {
		log.Fatalf("operator %q built with no variables", name)
	}
	n := len(vars)
	o.vars = vars
	o.values = make([]int64, n)
	o.oldValues = make([]int64, n)
	o.activated = make([]bool, n)
	o.wasActivated = make([]bool, n)
	o.changes = newSparseSet(n)
	o.deltaChanges = newSparseSet(n)
	o.name = name
}

// Size returns the number of primary variables.
func (o *IntVarOperator) Size() int { return len(o.vars) }

// Var returns the i-th primary variable.
func (o *IntVarOperator) Var(i int) *cs.IntVar { return o.vars[i] }

// Value returns the candidate value of the i-th variable.
func (o *IntVarOperator) Value(i int) int64 { return o.values[i] }

// OldValue returns the last committed value of the i-th variable.
func (o *IntVarOperator) OldValue(i int) int64 { return o.oldValues[i] }

// SetValue records a candidate value for the i-th variable.
func (o *IntVarOperator) SetValue(i int, value int64) {
	o.values[i] = value
	o.changes.Add(i)
	o.deltaChanges.Add(i)
}

// Activated returns the candidate activation of the i-th variable.
func (o *IntVarOperator) Activated(i int) bool { return o.activated[i] }

// Activate records a candidate activation of the i-th variable.
func (o *IntVarOperator) Activate(i int) {
	o.activated[i] = true
	o.changes.Add(i)
	o.deltaChanges.Add(i)
}

// Deactivate records a candidate deactivation of the i-th variable.
func (o *IntVarOperator) Deactivate(i int) {
	o.activated[i] = false
	o.changes.Add(i)
	o.deltaChanges.Add(i)
}

// Start implements Operator.
func (o *IntVarOperator) Start(assignment *cs.Assignment) {
	for i, v := range o.vars {
		value := assignment.Value(v)
		o.oldValues[i] = value
		o.values[i] = value
		act := assignment.Activated(v)
		o.wasActivated[i] = act
		o.activated[i] = act
	}
	o.changes.Clear()
	o.deltaChanges.Clear()
	o.cleared = false
	if o.onStart != nil {
		o.onStart()
	}
}

// RevertChanges restores the candidate values to the last committed ones. If
// incremental is false or the operator is not incremental, the whole change
// set is also considered cleared for the next ApplyChanges.
func (o *IntVarOperator) RevertChanges(incremental bool) {
	o.cleared = false
	o.deltaChanges.Clear()
	if !incremental || !o.incremental {
		o.cleared = true
	}
	for _, i := range o.changes.Values() {
		o.values[i] = o.oldValues[i]
		o.activated[i] = o.wasActivated[i]
	}
	o.changes.Clear()
}

func (o *IntVarOperator) addToAssignment(i int, a *cs.Assignment) {
	e := a.FastAdd(o.vars[i])
	e.SetValue(o.values[i])
	if o.activated[i] {
		e.Activate()
	} else {
		e.Deactivate()
	}
}

// ApplyChanges writes the recorded changes into delta, and into deltadelta
// when the operator is incremental. It returns false if the move is an empty
// no-op, which makes MakeNextNeighbor keep enumerating instead of yielding it.
func (o *IntVarOperator) ApplyChanges(delta, deltadelta *cs.Assignment) bool {
	if o.incremental && !o.cleared && deltadelta != nil {
		for _, i := range o.deltaChanges.Values() {
			o.addToAssignment(i, deltadelta)
			o.addToAssignment(i, delta)
		}
	} else {
		delta.Clear()
		if deltadelta != nil {
			deltadelta.Clear()
		}
		for _, i := range o.changes.Values() {
			unchanged := o.activated[i] && o.wasActivated[i] && o.values[i] == o.oldValues[i]
			if unchanged && o.skipUnchanged != nil && o.skipUnchanged(i) {
				continue
			}
			o.addToAssignment(i, delta)
		}
	}
	return !delta.Empty()
}

// MakeNextNeighbor implements Operator through the oneNeighbor hook.
func (o *IntVarOperator) MakeNextNeighbor(delta, deltadelta *cs.Assignment) bool {
	if o.oneNeighbor == nil {
		log.Fatalf("operator %q has no neighbor hook", o.name)
	}
	for {
		o.RevertChanges(true)
		if !o.oneNeighbor() {
			return false
		}
		if o.ApplyChanges(delta, deltadelta) {
			return true
		}
	}
}

// HoldsDelta implements Operator.
func (o *IntVarOperator) HoldsDelta() bool { return true }

// HasFragments implements Operator.
func (o *IntVarOperator) HasFragments() bool { return o.hasFragments }

// IsIncremental implements Operator.
func (o *IntVarOperator) IsIncremental() bool { return o.incremental }

func (o *IntVarOperator) String() string { return o.name }

// ChangeValue is the base of leaf operators flipping one variable at a time:
// it cycles over the variables, applying the injected modification to the
// current value of each.
type ChangeValue struct {
	IntVarOperator
	modify func(i int, value int64) int64
	index  int
}

// NewChangeValue creates an operator applying `modify` to each variable in
// turn.
func NewChangeValue(vars []*cs.IntVar, name string, modify func(i int, value int64) int64) *ChangeValue {
	c := &ChangeValue{modify: modify}
	c.init(vars, name)
	c.oneNeighbor = c.makeOneNeighbor
	c.onStart = func() { c.index = 0 }
	return c
}

func (c *ChangeValue) makeOneNeighbor() bool {
	if c.index >= c.Size() {
		return false
	}
	c.SetValue(c.index, c.modify(c.index, c.Value(c.index)))
	c.index++
	return true
}

// NewIncrementValue creates an operator adding one to each variable in turn.
func NewIncrementValue(vars []*cs.IntVar) *ChangeValue {
	return NewChangeValue(vars, "IncrementValue", func(_ int, value int64) int64 { return value + 1 })
}

// NewDecrementValue creates an operator subtracting one from each variable in
// turn.
func NewDecrementValue(vars []*cs.IntVar) *ChangeValue {
	return NewChangeValue(vars, "DecrementValue", func(_ int, value int64) int64 { return value - 1 })
}
