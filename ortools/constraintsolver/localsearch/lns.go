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
	"math/rand"

	log "github.com/golang/glog"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// BaseLNS is the base of large neighborhood search operators: each neighbor
// deactivates a fragment of variables, leaving the surrounding search to
// recompute their values. Subclasses pick fragments through the nextFragment
// hook.
type BaseLNS struct {
	IntVarOperator
	fragment     []int
	nextFragment func() bool
}

func (l *BaseLNS) initLNS(vars []*cs.IntVar, name string) {
	l.init(vars, name)
	l.hasFragments = true
	l.oneNeighbor = l.makeOneNeighbor
}

// AppendToFragment adds variable index `i` to the current fragment.
func (l *BaseLNS) AppendToFragment(i int) {
	if i < 0 || i >= l.Size() {
		log.Fatalf("AppendToFragment(%v): index out of range [0,%v)", i, l.Size())
	}
	l.fragment = append(l.fragment, i)
}

// Fragment returns the indices deactivated by the current neighbor.
func (l *BaseLNS) Fragment() []int { return l.fragment }

func (l *BaseLNS) makeOneNeighbor() bool {
	l.fragment = l.fragment[:0]
	if !l.nextFragment() {
		return false
	}
	for _, i := range l.fragment {
		l.Deactivate(i)
	}
	return true
}

// SimpleLNS deactivates a deterministic sliding window of fixed size: on n
// variables with window w the fragments are {0..w-1}, {1..w}, ...,
// {n-1, ..., (n-2+w) mod n}, cycling over the variables exactly once.
type SimpleLNS struct {
	BaseLNS
	numberOfVariables int
	index             int
}

// NewSimpleLNS creates a sliding window LNS operator of the given window
// size.
func NewSimpleLNS(vars []*cs.IntVar, numberOfVariables int) *SimpleLNS {
	if numberOfVariables <= 0 {
		log.Fatalf("NewSimpleLNS: window size is %v, want > 0", numberOfVariables)
	}
	s := &SimpleLNS{numberOfVariables: numberOfVariables}
	s.initLNS(vars, "SimpleLNS")
	s.nextFragment = s.makeFragment
	s.onStart = func() { s.index = 0 }
	return s
}

func (s *SimpleLNS) makeFragment() bool {
	size := s.Size()
	if s.index >= size {
		return false
	}
	for i := s.index; i < s.index+s.numberOfVariables; i++ {
		s.AppendToFragment(i % size)
	}
	s.index++
	return true
}

// RandomLNS deactivates a uniformly random fragment on every call. Indices
// are sampled with replacement, so a fragment may contain duplicates; this
// mirrors the historical behavior of the engine and is kept rather than
// deduplicated. The enumeration never exhausts on its own; callers bound it
// with search limits.
type RandomLNS struct {
	BaseLNS
	numberOfVariables int
	rand              *rand.Rand
}

// NewRandomLNS creates a random LNS operator deactivating
// `numberOfVariables` indices per neighbor.
func NewRandomLNS(vars []*cs.IntVar, numberOfVariables int, rng *rand.Rand) *RandomLNS {
	if numberOfVariables <= 0 || numberOfVariables > len(vars) {
		log.Fatalf("NewRandomLNS: fragment size is %v, want in [1,%v]", numberOfVariables, len(vars))
	}
	r := &RandomLNS{numberOfVariables: numberOfVariables, rand: rng}
	r.initLNS(vars, "RandomLNS")
	r.nextFragment = r.makeFragment
	return r
}

func (r *RandomLNS) makeFragment() bool {
	for i := 0; i < r.numberOfVariables; i++ {
		r.AppendToFragment(r.rand.Intn(r.Size()))
	}
	return true
}

// PathLNS deactivates chains of nodes along paths: for each base position,
// the next variables of up to chunkSize consecutive nodes are deactivated and
// left for the surrounding search to reinsert.
type PathLNS struct {
	PathOperator
	chunkSize int
}

// NewPathLNS creates a path LNS operator deactivating chains of `chunkSize`
// nodes.
func NewPathLNS(nexts, paths []*cs.IntVar, chunkSize int, opts ...PathOption) *PathLNS {
	if chunkSize <= 0 {
		log.Fatalf("NewPathLNS: chunk size is %v, want > 0", chunkSize)
	}
	p := &PathLNS{chunkSize: chunkSize}
	p.initPath(nexts, paths, 1, []bool{false}, "PathLNS", buildPathOptions(opts))
	p.hasFragments = true
	p.makeNeighbor = p.makeOneMove
	return p
}

func (p *PathLNS) makeOneMove() bool {
	b := p.BaseNode(0)
	if p.IsInactive(b) {
		return false
	}
	count := 0
	node := b
	for count < p.chunkSize {
		if p.IsPathEnd(node) {
			break
		}
		p.Deactivate(node)
		count++
		node = p.Next(node)
		if node == b {
			break
		}
	}
	return count > 0
}
