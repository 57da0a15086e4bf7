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
	"sort"

	log "github.com/golang/glog"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// RouteSolver solves small traveling salesman subproblems exactly. The local
// search engine treats it as a black box; it is typically backed by a dynamic
// programming or branch and bound solver owned by the embedding solver.
type RouteSolver interface {
	// OptimalRoute returns an order visiting all of 0..len(costs)-1 starting
	// at 0, minimizing the sum of costs[order[i]][order[i+1]] plus the
	// closing arc costs[order[last]][0]. ok is false when no route was
	// computed, in which case the candidate move is abandoned.
	OptimalRoute(costs [][]int64) (order []int, ok bool)
}

// TSPOpt re-solves, for each base position, the sub-chain of up to `size`
// nodes starting at the base node as an exact TSP: arcs back to the first
// matrix index stand for leaving the chain towards its old successor.
type TSPOpt struct {
	PathOperator
	size      int
	evaluator func(from, to int) int64
	solver    RouteSolver
}

// NewTSPOpt creates a TSP sub-chain re-optimization operator. `evaluator`
// returns the cost of an arc and must accept path end sentinels as
// destination.
func NewTSPOpt(nexts, paths []*cs.IntVar, size int, evaluator func(from, to int) int64, solver RouteSolver, opts ...PathOption) *TSPOpt {
	if size <= 2 {
		log.Fatalf("NewTSPOpt: chain size is %v, want > 2", size)
	}
	t := &TSPOpt{size: size, evaluator: evaluator, solver: solver}
	t.initPath(nexts, paths, 1, []bool{false}, "TSPOpt", buildPathOptions(opts))
	t.makeNeighbor = t.makeOneMove
	return t
}

func (t *TSPOpt) makeOneMove() bool {
	b := t.BaseNode(0)
	if t.IsInactive(b) {
		return false
	}
	nodes := []int{b}
	cur := t.Next(b)
	for len(nodes) < t.size && !t.IsPathEnd(cur) && cur != b {
		nodes = append(nodes, cur)
		cur = t.Next(cur)
	}
	afterChain := cur
	m := len(nodes)
	if m < 3 {
		return false
	}
	costs := make([][]int64, m)
	for i := 0; i < m; i++ {
		costs[i] = make([]int64, m)
		for j := 0; j < m; j++ {
			if j == 0 {
				// Leaving the chain: back-arcs stand for the old successor
				// of the chain. On a full cycle afterChain is the base node
				// itself and this is the plain closing arc.
				costs[i][j] = t.evaluator(nodes[i], afterChain)
			} else {
				costs[i][j] = t.evaluator(nodes[i], nodes[j])
			}
		}
	}
	order, ok := t.solver.OptimalRoute(costs)
	if !ok || len(order) != m || order[0] != 0 {
		return false
	}
	path := t.Path(b)
	prev := b
	for i := 1; i < m; i++ {
		t.SetNext(prev, nodes[order[i]], path)
		prev = nodes[order[i]]
	}
	t.SetNext(prev, afterChain, path)
	return true
}

// TSPLns samples `size` break nodes on a cyclic path, splitting it into
// chains, and re-solves the order of the chains as an exact TSP over chain
// endpoints. Break positions are sampled with replacement, so fewer than
// `size` distinct breaks may result; this matches the historical sampling
// and is kept as is.
type TSPLns struct {
	PathOperator
	size      int
	evaluator func(from, to int) int64
	solver    RouteSolver
	rand      *rand.Rand
}

// NewTSPLns creates a TSP-based large neighborhood operator with `size`
// breaks per neighbor.
func NewTSPLns(nexts, paths []*cs.IntVar, size int, evaluator func(from, to int) int64, solver RouteSolver, rng *rand.Rand, opts ...PathOption) *TSPLns {
	if size <= 1 {
		log.Fatalf("NewTSPLns: number of breaks is %v, want > 1", size)
	}
	t := &TSPLns{size: size, evaluator: evaluator, solver: solver, rand: rng}
	t.initPath(nexts, paths, 1, []bool{false}, "TSPLns", buildPathOptions(opts))
	t.makeNeighbor = t.makeOneMove
	return t
}

func (t *TSPLns) makeOneMove() bool {
	start := t.StartNode(0)
	var pathNodes []int
	cur := start
	cyclic := false
	for {
		pathNodes = append(pathNodes, cur)
		next := t.Next(cur)
		if t.IsPathEnd(next) {
			break
		}
		if next == start {
			cyclic = true
			break
		}
		cur = next
	}
	// Chain reordering relies on the path closing on itself.
	if !cyclic || len(pathNodes) <= t.size {
		return false
	}
	positions := make([]int, 0, t.size)
	for i := 0; i < t.size; i++ {
		positions = append(positions, t.rand.Intn(len(pathNodes)))
	}
	sort.Ints(positions)
	breaks := positions[:0]
	for i, pos := range positions {
		if i == 0 || pos != positions[i-1] {
			breaks = append(breaks, pos)
		}
	}
	m := len(breaks)
	if m < 2 {
		return false
	}
	// Chain i runs from break i to the node before break i+1, wrapping.
	chainStart := make([]int, m)
	chainEnd := make([]int, m)
	for i := 0; i < m; i++ {
		chainStart[i] = pathNodes[breaks[i]]
		nextBreak := breaks[(i+1)%m]
		lastPos := nextBreak - 1
		if lastPos < 0 {
			lastPos = len(pathNodes) - 1
		}
		chainEnd[i] = pathNodes[lastPos]
	}
	costs := make([][]int64, m)
	for i := 0; i < m; i++ {
		costs[i] = make([]int64, m)
		for j := 0; j < m; j++ {
			costs[i][j] = t.evaluator(chainEnd[i], chainStart[j])
		}
	}
	order, ok := t.solver.OptimalRoute(costs)
	if !ok || len(order) != m || order[0] != 0 {
		return false
	}
	path := t.Path(start)
	for i := 0; i < m; i++ {
		from := chainEnd[order[i]]
		to := chainStart[order[(i+1)%m]]
		t.SetNext(from, to, path)
	}
	return true
}
