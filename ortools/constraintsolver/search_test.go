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
	"testing"
	"time"
)

func TestSearchContext_NoLimit(t *testing.T) {
	ctx := NewSearchContext()
	if ctx.LimitCrossed() {
		t.Errorf("LimitCrossed() returned true without a limit, want false")
	}
}

func TestNeighborLimit(t *testing.T) {
	ctx := NewSearchContext()
	ctx.Limit = &NeighborLimit{Stats: ctx.Stats, MaxNeighbors: 2}

	if ctx.LimitCrossed() {
		t.Errorf("LimitCrossed() returned true at 0 neighbors, want false")
	}
	ctx.Stats.Neighbors = 2
	if !ctx.LimitCrossed() {
		t.Errorf("LimitCrossed() returned false at 2 neighbors, want true")
	}
}

func TestSolutionLimit(t *testing.T) {
	ctx := NewSearchContext()
	ctx.Limit = &SolutionLimit{Stats: ctx.Stats, MaxSolutions: 1}

	if ctx.LimitCrossed() {
		t.Errorf("LimitCrossed() returned true at 0 solutions, want false")
	}
	ctx.Stats.Solutions = 1
	if !ctx.LimitCrossed() {
		t.Errorf("LimitCrossed() returned false at 1 solution, want true")
	}
}

func TestTimeLimit(t *testing.T) {
	expired := NewTimeLimit(-time.Second)
	if !expired.Check() {
		t.Errorf("Check() returned false on an expired limit, want true")
	}
	remote := NewTimeLimit(time.Hour)
	if remote.Check() {
		t.Errorf("Check() returned true on a one hour limit, want false")
	}
}

func TestSearchStatistics_String(t *testing.T) {
	s := &SearchStatistics{Neighbors: 4, FilteredNeighbors: 3, AcceptedNeighbors: 2, Solutions: 1}
	want := "neighbors: 4, filtered neighbors: 3, accepted neighbors: 2, solutions: 1"
	if got := s.String(); got != want {
		t.Errorf("String() returned %q, want %q", got, want)
	}
}
