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

// PathOperator is the base of operators over a successor-array path
// representation. The primary variables are the "next" variables: node i's
// successor is the value of variable i. A node whose successor is itself is
// inactive; a successor value of at least len(nexts) is a path end sentinel.
// Optional secondary variables carry the path number of each node and are
// kept consistent by the chain algebra.
//
// The operator maintains k base nodes cycling over the positions of each
// path; subclasses express one move attempt in the makeNeighbor hook using
// the chain algebra (MoveChain, ReverseChain, SwapNodes, MakeActive,
// MakeChainInactive). An attempt returning false advances the base node
// odometer and tries again.
type PathOperator struct {
	IntVarOperator
	numberOfNexts  int
	ignorePathVars bool

	baseNodes     []int
	basePathIndex []int
	samePath      []bool

	pathStarts    []int
	pathOfNode    []int
	inactiveNodes []int
	noPaths       bool
	justStarted   bool

	makeNeighbor         func() bool
	pathClass            func(path int) int
	allowPathClassMixing bool

	neighbors     func(node int) []int
	neighborList  []int
	neighborIndex int

	// extraIncrement adds an outer enumeration ring around the base nodes,
	// e.g. a cursor over inactive nodes for activation operators.
	extraIncrement func() bool
	extraReset     func()
}

// pathOperatorOptions tunes a path operator beyond its variables.
type pathOperatorOptions struct {
	// pathClass maps a path index to its class; chains never move between
	// paths of different classes unless mixing is allowed.
	pathClass func(path int) int
	// allowPathClassMixing permits moves across path classes.
	allowPathClassMixing bool
	// neighbors restricts the second base node to the given candidates of
	// the first, skipping base-node enumeration.
	neighbors func(node int) []int
}

func (p *PathOperator) initPath(nexts, paths []*cs.IntVar, numberOfBaseNodes int, samePath []bool, name string, opts pathOperatorOptions) {
	if numberOfBaseNodes <= 0 {
		log.Fatalf("operator %q built with %v base nodes", name, numberOfBaseNodes)
	}
	if len(paths) > 0 && len(paths) != len(nexts) {
		log.Fatalf("operator %q: %v next variables vs %v path variables", name, len(nexts), len(paths))
	}
	if len(samePath) != numberOfBaseNodes {
		log.Fatalf("operator %q: same-path vector has size %v, want %v", name, len(samePath), numberOfBaseNodes)
	}
	vars := make([]*cs.IntVar, 0, len(nexts)+len(paths))
	vars = append(vars, nexts...)
	vars = append(vars, paths...)
	p.init(vars, name)
	p.numberOfNexts = len(nexts)
	p.ignorePathVars = len(paths) == 0
	p.baseNodes = make([]int, numberOfBaseNodes)
	p.basePathIndex = make([]int, numberOfBaseNodes)
	p.samePath = samePath
	p.pathClass = opts.pathClass
	p.allowPathClassMixing = opts.allowPathClassMixing
	p.neighbors = opts.neighbors
	p.skipUnchanged = func(i int) bool { return true }
	p.onStart = p.onPathStart
	p.oneNeighbor = p.makeOnePathNeighbor
}

func (p *PathOperator) onPathStart() {
	p.updatePaths()
	p.justStarted = true
	if len(p.pathStarts) == 0 {
		p.noPaths = true
		return
	}
	p.noPaths = false
	if p.extraReset != nil {
		p.extraReset()
	}
	for i := range p.baseNodes {
		p.resetBase(i)
	}
}

// updatePaths recomputes path starts, per-node path indices and the inactive
// node list from the committed successor values.
func (p *PathOperator) updatePaths() {
	n := p.numberOfNexts
	hasPred := make([]bool, n)
	inactive := make([]bool, n)
	for i := 0; i < n; i++ {
		next := p.OldValue(i)
		if next == int64(i) {
			inactive[i] = true
			continue
		}
		if next >= 0 && next < int64(n) {
			hasPred[int(next)] = true
		}
	}
	p.pathStarts = p.pathStarts[:0]
	p.inactiveNodes = p.inactiveNodes[:0]
	p.pathOfNode = make([]int, n)
	for i := range p.pathOfNode {
		p.pathOfNode[i] = -1
	}
	walk := func(start int) {
		path := len(p.pathStarts)
		p.pathStarts = append(p.pathStarts, start)
		for node := start; node < n && p.pathOfNode[node] < 0; node = int(p.OldValue(node)) {
			p.pathOfNode[node] = path
		}
	}
	// Open paths first, then the canonical start of each remaining cycle.
	for i := 0; i < n; i++ {
		if !inactive[i] && !hasPred[i] {
			walk(i)
		}
	}
	for i := 0; i < n; i++ {
		if !inactive[i] && p.pathOfNode[i] < 0 {
			walk(i)
		}
	}
	for i := 0; i < n; i++ {
		if inactive[i] {
			p.inactiveNodes = append(p.inactiveNodes, i)
		}
	}
}

func (p *PathOperator) makeOnePathNeighbor() bool {
	if p.noPaths {
		return false
	}
	for {
		if p.justStarted {
			p.justStarted = false
		} else {
			// A failed attempt may have recorded changes.
			p.RevertChanges(true)
			if !p.incrementPosition() {
				return false
			}
		}
		if p.makeNeighbor() {
			return true
		}
	}
}

// incrementPosition advances the base node odometer, last base first, and
// falls back to the extra ring once the odometer has wrapped.
func (p *PathOperator) incrementPosition() bool {
	k := len(p.baseNodes)
	i := k - 1
	for i >= 0 {
		if !p.advanceBase(i) {
			i--
			continue
		}
		j := i + 1
		for ; j < k; j++ {
			if !p.resetBase(j) {
				break
			}
		}
		if j == k {
			return true
		}
		// A later base has no valid position under this prefix; keep
		// advancing the same base.
	}
	if p.extraIncrement != nil && p.extraIncrement() {
		for i := range p.baseNodes {
			if !p.resetBase(i) {
				return false
			}
		}
		return true
	}
	return false
}

func (p *PathOperator) advanceBase(i int) bool {
	if p.neighbors != nil && i == 1 {
		for p.neighborIndex+1 < len(p.neighborList) {
			p.neighborIndex++
			if cand := p.neighborList[p.neighborIndex]; p.validNeighborCandidate(cand) {
				p.baseNodes[i] = cand
				p.basePathIndex[i] = p.pathOfNode[cand]
				return true
			}
		}
		return false
	}
	next := int(p.OldValue(p.baseNodes[i]))
	path := p.basePathIndex[i]
	wrapped := next >= p.numberOfNexts || next == p.pathStarts[path]
	if !wrapped {
		p.baseNodes[i] = next
		return true
	}
	if i > 0 && p.samePath[i] {
		return false
	}
	if path+1 >= len(p.pathStarts) {
		return false
	}
	p.basePathIndex[i] = path + 1
	p.baseNodes[i] = p.pathStarts[path+1]
	return true
}

func (p *PathOperator) resetBase(i int) bool {
	if p.neighbors != nil && i == 1 {
		p.neighborList = p.neighbors(p.baseNodes[0])
		p.neighborIndex = -1
		for p.neighborIndex+1 < len(p.neighborList) {
			p.neighborIndex++
			if cand := p.neighborList[p.neighborIndex]; p.validNeighborCandidate(cand) {
				p.baseNodes[i] = cand
				p.basePathIndex[i] = p.pathOfNode[cand]
				return true
			}
		}
		return false
	}
	if i > 0 && p.samePath[i] {
		p.basePathIndex[i] = p.basePathIndex[i-1]
	} else {
		p.basePathIndex[i] = 0
	}
	p.baseNodes[i] = p.pathStarts[p.basePathIndex[i]]
	return true
}

func (p *PathOperator) validNeighborCandidate(node int) bool {
	if node < 0 || node >= p.numberOfNexts || p.pathOfNode[node] < 0 {
		return false
	}
	if p.samePath[1] && p.pathOfNode[node] != p.basePathIndex[0] {
		return false
	}
	return true
}

// BaseNode returns the current position of the i-th base node.
func (p *PathOperator) BaseNode(i int) int { return p.baseNodes[i] }

// StartNode returns the start node of the path the i-th base node is on.
func (p *PathOperator) StartNode(i int) int { return p.pathStarts[p.basePathIndex[i]] }

// OnSamePathAsPreviousBase returns whether base i is constrained to the path
// of base i-1.
func (p *PathOperator) OnSamePathAsPreviousBase(i int) bool { return p.samePath[i] }

// HasNeighbors returns whether the operator iterates restricted neighbor
// candidates instead of enumerating base nodes.
func (p *PathOperator) HasNeighbors() bool { return p.neighbors != nil }

// IsPathEnd returns whether `node` is a path end sentinel.
func (p *PathOperator) IsPathEnd(node int) bool { return node >= p.numberOfNexts }

// Next returns the candidate successor of `node`.
func (p *PathOperator) Next(node int) int {
	if p.IsPathEnd(node) {
		log.Fatalf("Next(%v) called on a path end", node)
	}
	return int(p.Value(node))
}

// IsInactive returns whether `node` is currently out of all paths.
func (p *PathOperator) IsInactive(node int) bool {
	return !p.IsPathEnd(node) && p.Next(node) == node
}

// Path returns the committed path index of `node`, -1 for inactive nodes.
func (p *PathOperator) Path(node int) int {
	if p.IsPathEnd(node) {
		return -1
	}
	return p.pathOfNode[node]
}

// InactiveNodes returns the committed inactive nodes, ascending.
func (p *PathOperator) InactiveNodes() []int { return p.inactiveNodes }

func (p *PathOperator) classOfPath(path int) int {
	if path < 0 {
		return -1
	}
	if p.pathClass == nil {
		return 0
	}
	return p.pathClass(path)
}

func (p *PathOperator) samePathClass(pathA, pathB int) bool {
	return p.classOfPath(pathA) == p.classOfPath(pathB)
}

// SetNext records `next` as the candidate successor of `node` and, when path
// variables are present and `path` is non-negative, moves `node` to `path`.
func (p *PathOperator) SetNext(node, next, path int) {
	p.SetValue(node, int64(next))
	if !p.ignorePathVars && path >= 0 {
		p.SetValue(p.numberOfNexts+node, p.pathValue(path))
	}
}

// pathValue returns the committed value of the path variable of `path`.
func (p *PathOperator) pathValue(path int) int64 {
	return p.OldValue(p.numberOfNexts + p.pathStarts[path])
}

// checkChain returns whether chainEnd is reachable from beforeChain without
// crossing a path end, looping back, or passing through `excluded` (pass a
// negative value for no exclusion).
func (p *PathOperator) checkChain(beforeChain, chainEnd, excluded int) bool {
	cur := p.Next(beforeChain)
	for steps := 0; steps <= p.numberOfNexts; steps++ {
		if cur == chainEnd {
			return true
		}
		if p.IsPathEnd(cur) || cur == beforeChain || cur == excluded {
			return false
		}
		cur = p.Next(cur)
	}
	return false
}

// MoveChain moves the chain (beforeChain, chainEnd] of one path right after
// `destination`. Zero-length chains, chains containing the destination, path
// end crossings and moves across path classes are rejected.
func (p *PathOperator) MoveChain(beforeChain, chainEnd, destination int) bool {
	if beforeChain == chainEnd || destination == beforeChain || destination == chainEnd {
		return false
	}
	if p.IsPathEnd(beforeChain) || p.IsPathEnd(chainEnd) || p.IsPathEnd(destination) {
		return false
	}
	if p.IsInactive(beforeChain) || p.IsInactive(destination) {
		return false
	}
	if !p.checkChain(beforeChain, chainEnd, destination) {
		return false
	}
	if !p.allowPathClassMixing && !p.samePathClass(p.Path(beforeChain), p.Path(destination)) {
		return false
	}
	destPath := p.Path(destination)
	chainFirst := p.Next(beforeChain)
	afterChain := p.Next(chainEnd)
	afterDestination := p.Next(destination)
	if !p.ignorePathVars {
		for cur := chainFirst; cur != afterChain; cur = p.Next(cur) {
			p.SetValue(p.numberOfNexts+cur, p.pathValue(destPath))
		}
	}
	p.SetNext(chainEnd, afterDestination, destPath)
	p.SetNext(beforeChain, afterChain, p.Path(beforeChain))
	p.SetNext(destination, chainFirst, destPath)
	return true
}

// ReverseChain reverses the chain (beforeChain, chainEnd]. Empty and
// single-node chains are rejected rather than accepted as no-ops, as are
// chains crossing a path end.
func (p *PathOperator) ReverseChain(beforeChain, chainEnd int) bool {
	if beforeChain == chainEnd {
		return false
	}
	if p.IsPathEnd(beforeChain) || p.IsPathEnd(chainEnd) {
		return false
	}
	chainFirst := p.Next(beforeChain)
	if chainFirst == chainEnd {
		return false
	}
	if !p.checkChain(beforeChain, chainEnd, -1) {
		return false
	}
	afterChain := p.Next(chainEnd)
	path := p.Path(beforeChain)
	var chain []int
	for cur := chainFirst; cur != afterChain; cur = p.Next(cur) {
		chain = append(chain, cur)
	}
	p.SetNext(beforeChain, chainEnd, path)
	for i := len(chain) - 1; i > 0; i-- {
		p.SetNext(chain[i], chain[i-1], path)
	}
	p.SetNext(chain[0], afterChain, path)
	return true
}

// SwapNodes exchanges the positions of two active nodes, possibly on two
// different paths of the same class.
func (p *PathOperator) SwapNodes(a, b int) bool {
	if a == b || p.IsPathEnd(a) || p.IsPathEnd(b) {
		return false
	}
	if p.IsInactive(a) || p.IsInactive(b) {
		return false
	}
	if !p.allowPathClassMixing && !p.samePathClass(p.Path(a), p.Path(b)) {
		return false
	}
	prevA := p.findPrev(a)
	prevB := p.findPrev(b)
	if prevA < 0 || prevB < 0 {
		return false
	}
	pathA := p.Path(a)
	pathB := p.Path(b)
	switch {
	case p.Next(a) == b:
		nextB := p.Next(b)
		p.SetNext(prevA, b, pathA)
		p.SetNext(b, a, pathA)
		p.SetNext(a, nextB, pathA)
	case p.Next(b) == a:
		nextA := p.Next(a)
		p.SetNext(prevB, a, pathB)
		p.SetNext(a, b, pathB)
		p.SetNext(b, nextA, pathB)
	default:
		nextA := p.Next(a)
		nextB := p.Next(b)
		p.SetNext(prevA, b, pathA)
		p.SetNext(b, nextA, pathA)
		p.SetNext(prevB, a, pathB)
		p.SetNext(a, nextB, pathB)
	}
	return true
}

// findPrev returns the candidate predecessor of `node`, -1 if none.
func (p *PathOperator) findPrev(node int) int {
	for i := 0; i < p.numberOfNexts; i++ {
		if !p.IsInactive(i) && p.Next(i) == node {
			return i
		}
	}
	return -1
}

// MakeActive inserts the inactive `node` right after `destination`.
func (p *PathOperator) MakeActive(node, destination int) bool {
	if node == destination || p.IsPathEnd(node) || p.IsPathEnd(destination) {
		return false
	}
	if !p.IsInactive(node) || p.IsInactive(destination) {
		return false
	}
	destPath := p.Path(destination)
	p.SetNext(node, p.Next(destination), destPath)
	p.SetNext(destination, node, destPath)
	return true
}

// MakeChainInactive takes the chain (beforeChain, chainEnd] out of its path,
// leaving each removed node as a self loop.
func (p *PathOperator) MakeChainInactive(beforeChain, chainEnd int) bool {
	if beforeChain == chainEnd || p.IsPathEnd(beforeChain) || p.IsPathEnd(chainEnd) {
		return false
	}
	if p.IsInactive(beforeChain) {
		return false
	}
	if !p.checkChain(beforeChain, chainEnd, -1) {
		return false
	}
	afterChain := p.Next(chainEnd)
	cur := p.Next(beforeChain)
	for cur != afterChain {
		next := p.Next(cur)
		p.SetNext(cur, cur, -1)
		cur = next
	}
	p.SetNext(beforeChain, afterChain, p.Path(beforeChain))
	return true
}
