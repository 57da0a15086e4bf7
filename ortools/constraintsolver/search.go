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

package constraintsolver

import (
	"errors"
	"fmt"
	"time"
)

// ErrSearchExhausted signals that a decision builder has no further candidate
// and the search must unwind to the nearest choice point. It is a normal
// termination of one search round, not a failure of the engine.
var ErrSearchExhausted = errors.New("search exhausted")

// Decision is one reversible choice of the tree search.
type Decision interface {
	// Apply executes the decision on the left branch.
	Apply(ctx *SearchContext) error
	// Refute executes the decision on the right branch, after Apply failed.
	Refute(ctx *SearchContext) error
	String() string
}

// DecisionBuilder produces the next decision of a search. Returning a nil
// Decision with a nil error means the builder is done at this node; returning
// ErrSearchExhausted makes the search backtrack.
type DecisionBuilder interface {
	Next(ctx *SearchContext) (Decision, error)
}

// SearchStatistics are the per-search counters incremented by the local search
// driver. The struct is passed by reference into the driver loop; there is no
// ambient global state.
type SearchStatistics struct {
	// Neighbors counts candidate moves produced by operators.
	Neighbors int64
	// FilteredNeighbors counts moves accepted by the filter pipeline.
	FilteredNeighbors int64
	// AcceptedNeighbors counts moves kept as new solutions.
	AcceptedNeighbors int64
	// Solutions counts full solutions found.
	Solutions int64
}

func (s *SearchStatistics) String() string {
	return fmt.Sprintf("neighbors: %v, filtered neighbors: %v, accepted neighbors: %v, solutions: %v",
		s.Neighbors, s.FilteredNeighbors, s.AcceptedNeighbors, s.Solutions)
}

// Limit is a pollable resource limit. Check returns true once the limit has
// been crossed; the local search engine only polls it between moves and never
// implements limits itself.
type Limit interface {
	Check() bool
}

// TimeLimit crosses once the given wall-clock duration has elapsed.
type TimeLimit struct {
	deadline time.Time
}

// NewTimeLimit creates a TimeLimit expiring `d` from now.
func NewTimeLimit(d time.Duration) *TimeLimit {
	return &TimeLimit{deadline: time.Now().Add(d)}
}

// Check implements Limit.
func (l *TimeLimit) Check() bool { return !time.Now().Before(l.deadline) }

// NeighborLimit crosses once the search has produced MaxNeighbors candidate
// moves.
type NeighborLimit struct {
	Stats        *SearchStatistics
	MaxNeighbors int64
}

// Check implements Limit.
func (l *NeighborLimit) Check() bool { return l.Stats.Neighbors >= l.MaxNeighbors }

// SolutionLimit crosses once the search has found MaxSolutions solutions.
type SolutionLimit struct {
	Stats        *SearchStatistics
	MaxSolutions int64
}

// Check implements Limit.
func (l *SolutionLimit) Check() bool { return l.Stats.Solutions >= l.MaxSolutions }

// SearchContext carries the per-search collaborators of a decision builder:
// statistics and the limit polled between moves.
type SearchContext struct {
	Stats *SearchStatistics
	Limit Limit
}

// NewSearchContext creates a context with fresh statistics and no limit.
func NewSearchContext() *SearchContext {
	return &SearchContext{Stats: &SearchStatistics{}}
}

// LimitCrossed polls the limit, if any.
func (c *SearchContext) LimitCrossed() bool {
	return c.Limit != nil && c.Limit.Check()
}
