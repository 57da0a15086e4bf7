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

	log "github.com/golang/glog"

	cs "github.com/google/or-tools-sub046/ortools/constraintsolver"
)

// Filter is one stage of the cheap incremental acceptance pipeline for
// candidate deltas. A filter is synchronized against each committed solution
// and then asked to accept or reject candidate moves; Relax/Revert bracket
// the per-move state changes of filters that maintain incremental structures.
type Filter interface {
	// Relax prepares the filter's incremental state for the candidate delta.
	Relax(delta, deltadelta *cs.Assignment)
	// Accept returns whether the candidate delta is feasible for this
	// filter, given the remaining objective bound window.
	Accept(delta, deltadelta *cs.Assignment, objectiveMin, objectiveMax int64) bool
	// Synchronize commits the filter's state to the given solution; delta
	// holds the accepted move when synchronizing after one, and may be nil.
	Synchronize(assignment, delta *cs.Assignment)
	// Revert undoes the effects of the last Relax.
	Revert()
	// SynchronizedObjectiveValue is the objective contribution of the last
	// synchronized solution.
	SynchronizedObjectiveValue() int64
	// AcceptedObjectiveValue is the objective contribution of the last
	// accepted candidate.
	AcceptedObjectiveValue() int64
	// IsIncremental returns whether the filter must observe every delta,
	// even after another filter already rejected the move.
	IsIncremental() bool
	String() string
}

// FilterEventType distinguishes the two calls the manager schedules per
// filter.
type FilterEventType int

// Filter event types, in call order within one priority.
const (
	FilterEventRelax FilterEventType = iota
	FilterEventAccept
)

// FilterEvent is one scheduled filter call with its priority. Lower
// priorities run first.
type FilterEvent struct {
	Filter    Filter
	EventType FilterEventType
	Priority  int
}

// FilterManager runs a pipeline of filters over candidate deltas. Events are
// ordered by priority, then registration order; after a rejection only
// incremental filters still observe the delta, and the rejecting filter's
// events are rotated to the front of their priority bucket so the next
// identical delta fails at least as early.
type FilterManager struct {
	events               []FilterEvent
	incrementalEventsEnd int
	synchronizedValue    int64
	acceptedValue        int64
	lastEventCalled      int
}

// NewFilterManager creates a manager running `filters` at equal priority in
// registration order.
func NewFilterManager(filters []Filter) *FilterManager {
	events := make([]FilterEvent, 0, 2*len(filters))
	for _, f := range filters {
		events = append(events, FilterEvent{f, FilterEventRelax, 0})
		events = append(events, FilterEvent{f, FilterEventAccept, 0})
	}
	return NewFilterManagerFromEvents(events)
}

// NewFilterManagerFromEvents creates a manager from explicit events. Events
// are stably sorted by priority; the relax event of a filter must precede its
// accept event within one priority.
func NewFilterManagerFromEvents(events []FilterEvent) *FilterManager {
	m := &FilterManager{events: append([]FilterEvent(nil), events...), lastEventCalled: -1}
	m.stableSortByPriority()
	m.computeIncrementalEventsEnd()
	return m
}

func (m *FilterManager) stableSortByPriority() {
	// Insertion sort keeps registration order within one priority.
	for i := 1; i < len(m.events); i++ {
		for j := i; j > 0 && m.events[j].Priority < m.events[j-1].Priority; j-- {
			m.events[j], m.events[j-1] = m.events[j-1], m.events[j]
		}
	}
}

// computeIncrementalEventsEnd finds the cutoff after which no incremental
// filter appears; event processing after a rejection stops there.
func (m *FilterManager) computeIncrementalEventsEnd() {
	m.incrementalEventsEnd = 0
	for i, e := range m.events {
		if e.Filter.IsIncremental() {
			m.incrementalEventsEnd = i + 1
		}
	}
}

// Revert undoes the Relax effects of the previous Accept call, in reverse
// event order.
func (m *FilterManager) Revert() {
	for e := m.lastEventCalled; e >= 0; e-- {
		if m.events[e].EventType == FilterEventRelax {
			m.events[e].Filter.Revert()
		}
	}
	m.lastEventCalled = -1
}

// Accept runs the pipeline on a candidate delta within the objective window
// [objectiveMin, objectiveMax]. Each accepting filter consumes its accepted
// objective contribution from the window passed to the filters after it.
func (m *FilterManager) Accept(delta, deltadelta *cs.Assignment, objectiveMin, objectiveMax int64) bool {
	m.Revert()
	m.acceptedValue = 0
	ok := true
	eventsEnd := len(m.events)
	rejecting := -1
	for e := 0; e < eventsEnd; e++ {
		m.lastEventCalled = e
		event := m.events[e]
		switch event.EventType {
		case FilterEventRelax:
			if ok || event.Filter.IsIncremental() {
				event.Filter.Relax(delta, deltadelta)
			}
		case FilterEventAccept:
			if ok {
				remainingMin := capSub(objectiveMin, m.acceptedValue)
				remainingMax := capSub(objectiveMax, m.acceptedValue)
				if event.Filter.Accept(delta, deltadelta, remainingMin, remainingMax) {
					m.acceptedValue = capAdd(m.acceptedValue, event.Filter.AcceptedObjectiveValue())
				} else {
					ok = false
					rejecting = e
					if m.incrementalEventsEnd < eventsEnd {
						eventsEnd = m.incrementalEventsEnd
					}
				}
			} else if event.Filter.IsIncremental() {
				event.Filter.Accept(delta, deltadelta, math.MinInt64, math.MaxInt64)
			}
		}
	}
	if rejecting >= 0 {
		m.promoteEventsOf(m.events[rejecting].Filter)
	}
	return ok
}

// promoteEventsOf rotates the filter's event pair to the front of its
// priority bucket. This is a fail-fast heuristic, not a general re-sort, and
// happens at most once per Accept call.
func (m *FilterManager) promoteEventsOf(f Filter) {
	var pair []FilterEvent
	kept := m.events[:0]
	priority := 0
	for _, e := range m.events {
		if e.Filter == f {
			priority = e.Priority
			pair = append(pair, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(pair) == 0 {
		return
	}
	bucket := 0
	for bucket < len(kept) && kept[bucket].Priority < priority {
		bucket++
	}
	events := make([]FilterEvent, 0, len(kept)+len(pair))
	events = append(events, kept[:bucket]...)
	events = append(events, pair...)
	events = append(events, kept[bucket:]...)
	m.events = events
	m.computeIncrementalEventsEnd()
}

// Synchronize commits every filter to the given solution: a forward pass
// relaxes each filter against the (possibly empty) delta, then a backward
// pass in reverse registration order synchronizes them, so a filter observes
// its dependencies' already committed values before committing its own state.
func (m *FilterManager) Synchronize(assignment, delta *cs.Assignment) {
	if assignment == nil {
		log.Fatal("FilterManager.Synchronize called without an assignment")
	}
	for _, e := range m.events {
		if e.EventType == FilterEventRelax && delta != nil && !delta.Empty() {
			e.Filter.Relax(delta, nil)
		}
	}
	m.synchronizedValue = 0
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.EventType == FilterEventAccept {
			e.Filter.Synchronize(assignment, delta)
			m.synchronizedValue = capAdd(m.synchronizedValue, e.Filter.SynchronizedObjectiveValue())
		}
	}
	m.lastEventCalled = -1
}

// SynchronizedObjectiveValue is the sum of the filters' synchronized
// objective contributions.
func (m *FilterManager) SynchronizedObjectiveValue() int64 { return m.synchronizedValue }

// AcceptedObjectiveValue is the sum of the filters' contributions for the
// last accepted candidate.
func (m *FilterManager) AcceptedObjectiveValue() int64 { return m.acceptedValue }
