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

// SolutionPool decides which reference solution local search restarts from.
// The driver registers every accepted solution and, whenever the pool
// reports SyncNeeded, reloads the reference solution before the next
// neighborhood scan. Implementations may keep one solution or a population.
type SolutionPool interface {
	// Initialize resets the pool around the given initial solution. It must
	// be called before any other method; using an uninitialized pool is a
	// wiring bug.
	Initialize(assignment *cs.Assignment)
	// RegisterNewSolution records a newly accepted solution.
	RegisterNewSolution(assignment *cs.Assignment)
	// GetNextSolution overwrites `into` with the solution to search from.
	GetNextSolution(into *cs.Assignment)
	// SyncNeeded reports whether the search should restart from
	// GetNextSolution instead of continuing from `reference`.
	SyncNeeded(reference *cs.Assignment) bool
}

// defaultSolutionPool keeps only the latest registered solution.
type defaultSolutionPool struct {
	reference *cs.Assignment
}

// NewDefaultSolutionPool returns a pool holding a single solution, always
// the last one registered.
func NewDefaultSolutionPool() SolutionPool {
	return &defaultSolutionPool{}
}

func (p *defaultSolutionPool) Initialize(assignment *cs.Assignment) {
	p.reference = cs.NewAssignment()
	p.reference.Copy(assignment)
}

func (p *defaultSolutionPool) RegisterNewSolution(assignment *cs.Assignment) {
	if p.reference == nil {
		log.Fatal("solution pool used before Initialize")
	}
	p.reference.CopyIntersection(assignment)
}

func (p *defaultSolutionPool) GetNextSolution(into *cs.Assignment) {
	if p.reference == nil {
		log.Fatal("solution pool used before Initialize")
	}
	into.CopyIntersection(p.reference)
}

func (p *defaultSolutionPool) SyncNeeded(reference *cs.Assignment) bool {
	return false
}
