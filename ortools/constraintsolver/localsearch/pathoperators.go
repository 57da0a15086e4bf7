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

// PathOption tunes a path operator at construction.
type PathOption func(*pathOperatorOptions)

// WithPathClass declares the class of each path. Chains never move between
// paths of different classes unless mixing is allowed.
func WithPathClass(f func(path int) int) PathOption {
	return func(o *pathOperatorOptions) { o.pathClass = f }
}

// WithPathClassMixing permits moves across path classes.
func WithPathClassMixing() PathOption {
	return func(o *pathOperatorOptions) { o.allowPathClassMixing = true }
}

// WithNeighbors restricts the second base node to the given candidates of the
// first base node, skipping base-node enumeration.
func WithNeighbors(f func(node int) []int) PathOption {
	return func(o *pathOperatorOptions) { o.neighbors = f }
}

func buildPathOptions(opts []PathOption) pathOperatorOptions {
	var o pathOperatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TwoOpt reverses a sub-chain of one path: with base nodes b0 and b1 on the
// same path, the chain (b0, b1] is reversed.
type TwoOpt struct {
	PathOperator
}

// NewTwoOpt creates a 2-opt operator. `paths` may be empty when the model has
// no path variables.
func NewTwoOpt(nexts, paths []*cs.IntVar, opts ...PathOption) *TwoOpt {
	t := &TwoOpt{}
	t.initPath(nexts, paths, 2, []bool{false, true}, "TwoOpt", buildPathOptions(opts))
	t.makeNeighbor = t.makeOneMove
	return t
}

func (t *TwoOpt) makeOneMove() bool {
	return t.ReverseChain(t.BaseNode(0), t.BaseNode(1))
}

// Relocate moves a chain of fixed length starting right after base node b0 to
// the position right after base node b1, possibly on another path of the same
// class.
type Relocate struct {
	PathOperator
	chainLength int
}

// NewRelocate creates a relocate (or-opt) operator moving chains of
// `chainLength` nodes.
func NewRelocate(nexts, paths []*cs.IntVar, chainLength int, opts ...PathOption) *Relocate {
	if chainLength <= 0 {
		log.Fatalf("NewRelocate: chain length is %v, want > 0", chainLength)
	}
	r := &Relocate{chainLength: chainLength}
	r.initPath(nexts, paths, 2, []bool{false, false}, "Relocate", buildPathOptions(opts))
	r.makeNeighbor = r.makeOneMove
	return r
}

func (r *Relocate) makeOneMove() bool {
	before := r.BaseNode(0)
	if r.IsInactive(before) {
		return false
	}
	chainEnd := before
	for i := 0; i < r.chainLength; i++ {
		chainEnd = r.Next(chainEnd)
		if r.IsPathEnd(chainEnd) || chainEnd == before {
			return false
		}
	}
	return r.MoveChain(before, chainEnd, r.BaseNode(1))
}

// Exchange swaps the successors of its two base nodes.
type Exchange struct {
	PathOperator
}

// NewExchange creates an exchange operator swapping two nodes, possibly
// across paths of the same class.
func NewExchange(nexts, paths []*cs.IntVar, opts ...PathOption) *Exchange {
	e := &Exchange{}
	e.initPath(nexts, paths, 2, []bool{false, false}, "Exchange", buildPathOptions(opts))
	e.makeNeighbor = e.makeOneMove
	return e
}

func (e *Exchange) makeOneMove() bool {
	b0, b1 := e.BaseNode(0), e.BaseNode(1)
	if e.IsInactive(b0) || e.IsInactive(b1) {
		return false
	}
	a := e.Next(b0)
	b := e.Next(b1)
	if e.IsPathEnd(a) || e.IsPathEnd(b) {
		return false
	}
	return e.SwapNodes(a, b)
}

// Cross exchanges the tails of two different open paths after its two base
// nodes.
type Cross struct {
	PathOperator
}

// NewCross creates a cross operator.
func NewCross(nexts, paths []*cs.IntVar, opts ...PathOption) *Cross {
	c := &Cross{}
	c.initPath(nexts, paths, 2, []bool{false, false}, "Cross", buildPathOptions(opts))
	c.makeNeighbor = c.makeOneMove
	return c
}

// tailOpen reports whether walking from `node` reaches a path end sentinel.
func (c *Cross) tailOpen(node int) bool {
	cur := c.Next(node)
	for steps := 0; steps <= c.numberOfNexts; steps++ {
		if c.IsPathEnd(cur) {
			return true
		}
		if cur == node {
			return false
		}
		cur = c.Next(cur)
	}
	return false
}

func (c *Cross) makeOneMove() bool {
	b0, b1 := c.BaseNode(0), c.BaseNode(1)
	p0, p1 := c.Path(b0), c.Path(b1)
	if p0 < 0 || p1 < 0 || p0 == p1 {
		return false
	}
	if !c.allowPathClassMixing && !c.samePathClass(p0, p1) {
		return false
	}
	n0, n1 := c.Next(b0), c.Next(b1)
	if c.IsPathEnd(n0) && c.IsPathEnd(n1) {
		return false
	}
	if !c.tailOpen(b0) || !c.tailOpen(b1) {
		return false
	}
	if !c.ignorePathVars {
		for cur := n0; !c.IsPathEnd(cur); cur = c.Next(cur) {
			c.SetValue(c.numberOfNexts+cur, c.pathValue(p1))
		}
		for cur := n1; !c.IsPathEnd(cur); cur = c.Next(cur) {
			c.SetValue(c.numberOfNexts+cur, c.pathValue(p0))
		}
	}
	c.SetNext(b0, n1, p0)
	c.SetNext(b1, n0, p1)
	return true
}

// MakeActiveOperator inserts one inactive node after each possible
// destination in turn.
type MakeActiveOperator struct {
	PathOperator
	inactiveCursor int
}

// NewMakeActiveOperator creates an operator activating inactive nodes.
func NewMakeActiveOperator(nexts, paths []*cs.IntVar, opts ...PathOption) *MakeActiveOperator {
	m := &MakeActiveOperator{}
	m.initPath(nexts, paths, 1, []bool{false}, "MakeActiveOperator", buildPathOptions(opts))
	m.makeNeighbor = m.makeOneMove
	m.extraReset = func() { m.inactiveCursor = 0 }
	m.extraIncrement = func() bool {
		m.inactiveCursor++
		return m.inactiveCursor < len(m.InactiveNodes())
	}
	return m
}

func (m *MakeActiveOperator) makeOneMove() bool {
	if m.inactiveCursor >= len(m.InactiveNodes()) {
		return false
	}
	return m.MakeActive(m.InactiveNodes()[m.inactiveCursor], m.BaseNode(0))
}

// MakeInactiveOperator takes the successor of each base node out of its path.
type MakeInactiveOperator struct {
	PathOperator
}

// NewMakeInactiveOperator creates an operator deactivating one node at a
// time.
func NewMakeInactiveOperator(nexts, paths []*cs.IntVar, opts ...PathOption) *MakeInactiveOperator {
	m := &MakeInactiveOperator{}
	m.initPath(nexts, paths, 1, []bool{false}, "MakeInactiveOperator", buildPathOptions(opts))
	m.makeNeighbor = m.makeOneMove
	return m
}

func (m *MakeInactiveOperator) makeOneMove() bool {
	b := m.BaseNode(0)
	if m.IsInactive(b) {
		return false
	}
	end := m.Next(b)
	if m.IsPathEnd(end) {
		return false
	}
	return m.MakeChainInactive(b, end)
}

// MakeChainInactiveOperator takes the chain between its two base nodes out of
// its path.
type MakeChainInactiveOperator struct {
	PathOperator
}

// NewMakeChainInactiveOperator creates an operator deactivating chains.
func NewMakeChainInactiveOperator(nexts, paths []*cs.IntVar, opts ...PathOption) *MakeChainInactiveOperator {
	m := &MakeChainInactiveOperator{}
	m.initPath(nexts, paths, 2, []bool{false, true}, "MakeChainInactiveOperator", buildPathOptions(opts))
	m.makeNeighbor = m.makeOneMove
	return m
}

func (m *MakeChainInactiveOperator) makeOneMove() bool {
	return m.MakeChainInactive(m.BaseNode(0), m.BaseNode(1))
}

// SwapActiveOperator replaces the successor of each base node by an inactive
// node.
type SwapActiveOperator struct {
	PathOperator
	inactiveCursor int
}

// NewSwapActiveOperator creates an operator swapping active and inactive
// nodes.
func NewSwapActiveOperator(nexts, paths []*cs.IntVar, opts ...PathOption) *SwapActiveOperator {
	s := &SwapActiveOperator{}
	s.initPath(nexts, paths, 1, []bool{false}, "SwapActiveOperator", buildPathOptions(opts))
	s.makeNeighbor = s.makeOneMove
	s.extraReset = func() { s.inactiveCursor = 0 }
	s.extraIncrement = func() bool {
		s.inactiveCursor++
		return s.inactiveCursor < len(s.InactiveNodes())
	}
	return s
}

func (s *SwapActiveOperator) makeOneMove() bool {
	if s.inactiveCursor >= len(s.InactiveNodes()) {
		return false
	}
	node := s.InactiveNodes()[s.inactiveCursor]
	b := s.BaseNode(0)
	if s.IsInactive(b) {
		return false
	}
	out := s.Next(b)
	if s.IsPathEnd(out) {
		return false
	}
	if !s.MakeChainInactive(b, out) {
		return false
	}
	return s.MakeActive(node, b)
}
