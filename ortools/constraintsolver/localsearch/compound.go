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
	"math/rand"
	"sort"
	"strings"

	log "github.com/golang/glog"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// CompoundOperator round-robins a set of child operators: the current child
// produces neighbors until it exhausts, then the next child takes over. The
// compound is exhausted once every child has exhausted consecutively. On each
// Start children are re-ordered by the injected comparator, either keeping
// the current rotation or restarting from the first child.
type CompoundOperator struct {
	operators       []Operator
	order           []int
	index           int
	started         []bool
	startAssignment *cs.Assignment
	hasFragments    bool
	restart         bool
	reorder         func()
	name            string
}

func (c *CompoundOperator) initCompound(operators []Operator, name string) {
	if len(operators) == 0 {
		log.Fatalf("operator %q built with no children", name)
	}
	c.operators = operators
	c.order = make([]int, len(operators))
	for i := range c.order {
		c.order[i] = i
	}
	c.started = make([]bool, len(operators))
	for _, op := range operators {
		if op.HasFragments() {
			c.hasFragments = true
		}
	}
	c.name = name
}

// NewCompoundOperator creates a compound operator ordering its children by
// `less` on every Start. A nil `less` keeps the registration order. With
// restart false the rotation continues where the previous round stopped.
func NewCompoundOperator(operators []Operator, less func(i, j int) bool, restart bool) *CompoundOperator {
	c := &CompoundOperator{restart: restart}
	c.initCompound(operators, "CompoundOperator")
	if less != nil {
		c.reorder = func() { sort.SliceStable(c.order, func(a, b int) bool { return less(c.order[a], c.order[b]) }) }
	}
	return c
}

// Start implements Operator. Children are started lazily, the first time the
// round-robin reaches them.
func (c *CompoundOperator) Start(assignment *cs.Assignment) {
	c.startAssignment = assignment
	for i := range c.started {
		c.started[i] = false
	}
	if c.reorder != nil {
		c.reorder()
	}
	if c.restart {
		c.index = 0
	}
}

// MakeNextNeighbor implements Operator.
func (c *CompoundOperator) MakeNextNeighbor(delta, deltadelta *cs.Assignment) bool {
	for tried := 0; tried < len(c.operators); tried++ {
		opIndex := c.order[c.index]
		op := c.operators[opIndex]
		if !c.started[opIndex] {
			op.Start(c.startAssignment)
			c.started[opIndex] = true
		}
		if op.MakeNextNeighbor(delta, deltadelta) {
			return true
		}
		delta.Clear()
		if deltadelta != nil {
			deltadelta.Clear()
		}
		c.index = (c.index + 1) % len(c.operators)
	}
	return false
}

// HoldsDelta implements Operator.
func (c *CompoundOperator) HoldsDelta() bool { return true }

// HasFragments implements Operator.
func (c *CompoundOperator) HasFragments() bool { return c.hasFragments }

// IsIncremental implements Operator.
func (c *CompoundOperator) IsIncremental() bool { return false }

func (c *CompoundOperator) String() string {
	names := make([]string, len(c.operators))
	for i, op := range c.operators {
		names[i] = op.String()
	}
	return c.name + "(" + strings.Join(names, ", ") + ")"
}

// currentOperatorIndex returns the child the round-robin currently points at.
func (c *CompoundOperator) currentOperatorIndex() int { return c.order[c.index] }

// RandomCompoundOperator shuffles its children on every Start.
type RandomCompoundOperator struct {
	CompoundOperator
	rand *rand.Rand
}

// NewRandomCompoundOperator creates a compound operator visiting its
// children in a fresh random order each round.
func NewRandomCompoundOperator(operators []Operator, rng *rand.Rand) *RandomCompoundOperator {
	r := &RandomCompoundOperator{rand: rng}
	r.initCompound(operators, "RandomCompoundOperator")
	r.restart = true
	r.reorder = func() {
		r.rand.Shuffle(len(r.order), func(i, j int) { r.order[i], r.order[j] = r.order[j], r.order[i] })
	}
	return r
}

// MultiArmedBanditCompoundOperator orders its children by an upper confidence
// bound score: an exponential moving average of the improvement each child's
// accepted moves produced, plus an exploration term growing for rarely used
// children. Scores are recomputed once per accepted move, observed as an
// objective improvement between two Starts.
type MultiArmedBanditCompoundOperator struct {
	CompoundOperator
	avgImprovement []float64
	acceptedCount  []int64
	acceptedMoves  int64
	lastObjective  int64
	seenObjective  bool
	memory         float64
	exploration    float64
}

// NewMultiArmedBanditCompoundOperator creates a bandit compound operator.
// `memory` in [0,1) is the weight of past improvements in the moving
// average; `exploration` scales the confidence term.
func NewMultiArmedBanditCompoundOperator(operators []Operator, memory, exploration float64) *MultiArmedBanditCompoundOperator {
	if memory < 0 || memory >= 1 {
		log.Fatalf("NewMultiArmedBanditCompoundOperator: memory coefficient is %v, want in [0,1)", memory)
	}
	b := &MultiArmedBanditCompoundOperator{
		memory:      memory,
		exploration: exploration,
	}
	b.initCompound(operators, "MultiArmedBanditCompoundOperator")
	b.avgImprovement = make([]float64, len(operators))
	b.acceptedCount = make([]int64, len(operators))
	b.restart = true
	b.reorder = b.sortByScore
	return b
}

func (b *MultiArmedBanditCompoundOperator) score(i int) float64 {
	return b.avgImprovement[i] +
		b.exploration*math.Sqrt(2*math.Log(1+float64(b.acceptedMoves))/(1+float64(b.acceptedCount[i])))
}

func (b *MultiArmedBanditCompoundOperator) sortByScore() {
	sort.SliceStable(b.order, func(a, c int) bool { return b.score(b.order[a]) > b.score(b.order[c]) })
}

// Start implements Operator. An objective strictly below the one seen on the
// previous Start is credited to the child that produced the accepted move.
func (b *MultiArmedBanditCompoundOperator) Start(assignment *cs.Assignment) {
	if assignment.HasObjective() {
		objective := assignment.ObjectiveValue()
		if b.seenObjective && objective < b.lastObjective {
			improvement := b.lastObjective - objective
			credited := b.currentOperatorIndex()
			b.acceptedMoves++
			b.acceptedCount[credited]++
			b.avgImprovement[credited] = b.memory*b.avgImprovement[credited] + (1-b.memory)*float64(improvement)
		}
		b.lastObjective = objective
		b.seenObjective = true
	}
	b.CompoundOperator.Start(assignment)
}
