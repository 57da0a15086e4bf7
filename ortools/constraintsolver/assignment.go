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

// Package constraintsolver holds the surface of the constraint solver that the
// local search engine collaborates with: integer variables and sparse
// assignments over them, decisions and decision builders, search limits and
// per-search statistics.
//
// Variables are owned by a `VarArena` whose lifetime is the search; every
// other component refers to them by borrowed handle, never by ownership.
package constraintsolver

import (
	"fmt"
	"strings"

	log "github.com/golang/glog"
)

// VarIndex is the index of a variable in its arena.
type VarIndex int

// IntVar is a handle to an integer variable. The handle carries the variable's
// initial domain; the current value of a variable only exists inside an
// Assignment.
type IntVar struct {
	index  VarIndex
	domain Domain
	name   string
}

// Index returns the index of the variable in its arena.
func (v *IntVar) Index() VarIndex { return v.index }

// Min returns the lower bound of the variable's domain.
func (v *IntVar) Min() int64 {
	m, ok := v.domain.Min()
	if !ok {
		log.Fatalf("Min() called on variable %q with an empty domain", v.name)
	}
	return m
}

// Max returns the upper bound of the variable's domain.
func (v *IntVar) Max() int64 {
	m, ok := v.domain.Max()
	if !ok {
		log.Fatalf("Max() called on variable %q with an empty domain", v.name)
	}
	return m
}

// Contains returns true if `value` belongs to the variable's domain.
func (v *IntVar) Contains(value int64) bool { return v.domain.Contains(value) }

// Domain returns the variable's domain.
func (v *IntVar) Domain() Domain { return v.domain }

// Name returns the name of the variable.
func (v *IntVar) Name() string { return v.name }

func (v *IntVar) String() string {
	min, _ := v.domain.Min()
	max, _ := v.domain.Max()
	return fmt.Sprintf("%s(%v..%v)", v.name, min, max)
}

// VarArena owns the variables of one search. Operators, filters and
// assignments hold borrowed `*IntVar` handles into the arena; the arena must
// outlive all of them.
type VarArena struct {
	vars []*IntVar
}

// NewVarArena creates an empty arena.
func NewVarArena() *VarArena {
	return &VarArena{}
}

// NewIntVar adds a variable with domain `[min,max]` to the arena.
func (a *VarArena) NewIntVar(min, max int64, name string) *IntVar {
	return a.NewIntVarFromDomain(NewDomain(min, max), name)
}

// NewIntVarFromDomain adds a variable with the given domain to the arena.
func (a *VarArena) NewIntVarFromDomain(domain Domain, name string) *IntVar {
	if domain.IsEmpty() {
		log.Fatalf("NewIntVarFromDomain(%q): domain is empty", name)
	}
	v := &IntVar{index: VarIndex(len(a.vars)), domain: domain, name: name}
	a.vars = append(a.vars, v)
	return v
}

// Var returns the variable at `index`.
func (a *VarArena) Var(index VarIndex) *IntVar { return a.vars[index] }

// Size returns the number of variables in the arena.
func (a *VarArena) Size() int { return len(a.vars) }

// AssignmentElement is one entry of an Assignment: a variable, its value and
// whether the entry is activated. Deactivated entries mark variables whose
// value is to be recomputed by the solver (used by large neighborhood search).
type AssignmentElement struct {
	variable  *IntVar
	value     int64
	activated bool
}

// Var returns the element's variable.
func (e *AssignmentElement) Var() *IntVar { return e.variable }

// Value returns the element's value.
func (e *AssignmentElement) Value() int64 { return e.value }

// SetValue sets the element's value.
func (e *AssignmentElement) SetValue(value int64) { e.value = value }

// Activated returns whether the element is activated.
func (e *AssignmentElement) Activated() bool { return e.activated }

// Activate marks the element activated.
func (e *AssignmentElement) Activate() { e.activated = true }

// Deactivate marks the element deactivated.
func (e *AssignmentElement) Deactivate() { e.activated = false }

func (e *AssignmentElement) String() string {
	if !e.activated {
		return fmt.Sprintf("%s==%v(off)", e.variable.Name(), e.value)
	}
	return fmt.Sprintf("%s==%v", e.variable.Name(), e.value)
}

// Assignment is a sparse mapping variable -> (value, activated), plus an
// optional objective element. Element order is insertion order; lookups go
// through an index keyed by variable identity, so variables from different
// arenas never collide even though arena-local indices repeat. The same type
// serves as full solution, candidate delta and incremental deltadelta.
type Assignment struct {
	elements []*AssignmentElement
	index    map[*IntVar]int

	objective      *IntVar
	objectiveValue int64
	hasObjective   bool
}

// NewAssignment creates an empty assignment.
func NewAssignment() *Assignment {
	return &Assignment{index: make(map[*IntVar]int)}
}

// Add adds `v` to the assignment with value 0, activated, and returns its
// element. Adding a variable twice is a wiring bug.
func (a *Assignment) Add(v *IntVar) *AssignmentElement {
	if _, ok := a.index[v]; ok {
		log.Fatalf("Add(%s): variable already in assignment", v.Name())
	}
	e := &AssignmentElement{variable: v, activated: true}
	a.index[v] = len(a.elements)
	a.elements = append(a.elements, e)
	return e
}

// FastAdd returns the element of `v`, adding it first if absent.
func (a *Assignment) FastAdd(v *IntVar) *AssignmentElement {
	if i, ok := a.index[v]; ok {
		return a.elements[i]
	}
	return a.Add(v)
}

// Has returns whether `v` is contained in the assignment.
func (a *Assignment) Has(v *IntVar) bool {
	_, ok := a.index[v]
	return ok
}

// Element returns the element of `v`, or nil if absent.
func (a *Assignment) Element(v *IntVar) *AssignmentElement {
	if i, ok := a.index[v]; ok {
		return a.elements[i]
	}
	return nil
}

// SetValue sets the value of `v`, adding it first if absent.
func (a *Assignment) SetValue(v *IntVar, value int64) {
	a.FastAdd(v).SetValue(value)
}

// Value returns the value of `v`. Reading a variable that is not in the
// assignment is a wiring bug.
func (a *Assignment) Value(v *IntVar) int64 {
	i, ok := a.index[v]
	if !ok {
		log.Fatalf("Value(%s): variable not in assignment", v.Name())
	}
	return a.elements[i].Value()
}

// Activated returns whether the element of `v` is activated.
func (a *Assignment) Activated(v *IntVar) bool {
	i, ok := a.index[v]
	if !ok {
		log.Fatalf("Activated(%s): variable not in assignment", v.Name())
	}
	return a.elements[i].Activated()
}

// Activate activates the element of `v`.
func (a *Assignment) Activate(v *IntVar) { a.FastAdd(v).Activate() }

// Deactivate deactivates the element of `v`.
func (a *Assignment) Deactivate(v *IntVar) { a.FastAdd(v).Deactivate() }

// Elements returns the elements in insertion order. The slice is owned by the
// assignment.
func (a *Assignment) Elements() []*AssignmentElement { return a.elements }

// Size returns the number of elements.
func (a *Assignment) Size() int { return len(a.elements) }

// Empty returns whether the assignment has no element.
func (a *Assignment) Empty() bool { return len(a.elements) == 0 }

// Clear removes all elements and the objective.
func (a *Assignment) Clear() {
	a.elements = a.elements[:0]
	for k := range a.index {
		delete(a.index, k)
	}
	a.objective = nil
	a.hasObjective = false
	a.objectiveValue = 0
}

// AddObjective attaches `v` as the objective variable.
func (a *Assignment) AddObjective(v *IntVar) {
	a.objective = v
	a.hasObjective = true
	a.objectiveValue = 0
}

// HasObjective returns whether an objective element is attached.
func (a *Assignment) HasObjective() bool { return a.hasObjective }

// Objective returns the objective variable, nil if none.
func (a *Assignment) Objective() *IntVar { return a.objective }

// ObjectiveValue returns the value of the objective element.
func (a *Assignment) ObjectiveValue() int64 {
	if !a.hasObjective {
		log.Fatal("ObjectiveValue() called without an objective")
	}
	return a.objectiveValue
}

// SetObjectiveValue sets the value of the objective element.
func (a *Assignment) SetObjectiveValue(value int64) {
	if !a.hasObjective {
		log.Fatal("SetObjectiveValue() called without an objective")
	}
	a.objectiveValue = value
}

// Copy replaces the contents of the assignment with a deep copy of `other`.
func (a *Assignment) Copy(other *Assignment) {
	a.Clear()
	for _, e := range other.elements {
		ne := a.Add(e.variable)
		ne.value = e.value
		ne.activated = e.activated
	}
	a.objective = other.objective
	a.hasObjective = other.hasObjective
	a.objectiveValue = other.objectiveValue
}

// CopyIntersection copies values and activation from `other` for the variables
// already contained in the assignment, and the objective value if both carry
// the same objective variable.
func (a *Assignment) CopyIntersection(other *Assignment) {
	for _, e := range other.elements {
		if i, ok := a.index[e.variable]; ok {
			a.elements[i].value = e.value
			a.elements[i].activated = e.activated
		}
	}
	if a.hasObjective && other.hasObjective && a.objective == other.objective {
		a.objectiveValue = other.objectiveValue
	}
}

func (a *Assignment) String() string {
	var b strings.Builder
	b.WriteString("Assignment(")
	for i, e := range a.elements {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.String())
	}
	if a.hasObjective {
		fmt.Fprintf(&b, " obj:%s==%v", a.objective.Name(), a.objectiveValue)
	}
	b.WriteString(")")
	return b.String()
}
