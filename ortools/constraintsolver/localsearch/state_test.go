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
	"testing"
)

func TestCapAdd(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{1, 2, 3},
		{-1, -2, -3},
		{math.MaxInt64, 1, math.MaxInt64},
		{math.MaxInt64, math.MaxInt64, math.MaxInt64},
		{math.MinInt64, -1, math.MinInt64},
		{math.MinInt64, math.MinInt64, math.MinInt64},
		{math.MaxInt64, math.MinInt64, -1},
	}
	for _, test := range tests {
		if got := capAdd(test.a, test.b); got != test.want {
			t.Errorf("capAdd(%v, %v) returned %v, want %v", test.a, test.b, got, test.want)
		}
	}
}

func TestCapSub(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{5, 3, 2},
		{math.MinInt64, 1, math.MinInt64},
		{math.MaxInt64, -1, math.MaxInt64},
		{0, math.MinInt64, math.MaxInt64},
		{-1, math.MinInt64, math.MaxInt64},
		{math.MinInt64, math.MinInt64, 0},
	}
	for _, test := range tests {
		if got := capSub(test.a, test.b); got != test.want {
			t.Errorf("capSub(%v, %v) returned %v, want %v", test.a, test.b, got, test.want)
		}
	}
}

func TestCapProd(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{3, 4, 12},
		{-3, 4, -12},
		{0, math.MinInt64, 0},
		{math.MinInt64, -1, math.MaxInt64},
		{-1, math.MinInt64, math.MaxInt64},
		{math.MaxInt64, 2, math.MaxInt64},
		{math.MaxInt64, -2, math.MinInt64},
		{math.MinInt64, 2, math.MinInt64},
	}
	for _, test := range tests {
		if got := capProd(test.a, test.b); got != test.want {
			t.Errorf("capProd(%v, %v) returned %v, want %v", test.a, test.b, got, test.want)
		}
	}
}

func TestState_TightenAndRevert(t *testing.T) {
	s := NewState()
	x := s.AddVariableDomain(0, 10)
	s.CompileConstraints()

	if !s.RelaxVariableDomain(x) {
		t.Fatal("RelaxVariableDomain returned false on an untouched domain")
	}
	if s.RelaxVariableDomain(x) {
		t.Error("RelaxVariableDomain relaxed an already touched domain")
	}
	if !s.TightenVariableDomainMin(x, 5) {
		t.Fatal("TightenVariableDomainMin(5) on [0,10] reported infeasible")
	}
	if got, want := s.VariableDomainMin(x), int64(5); got != want {
		t.Errorf("VariableDomainMin returned %v, want %v", got, want)
	}

	s.Revert()
	if got, want := s.VariableDomainMin(x), int64(0); got != want {
		t.Errorf("VariableDomainMin after Revert returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMax(x), int64(10); got != want {
		t.Errorf("VariableDomainMax after Revert returned %v, want %v", got, want)
	}
}

func TestState_TightenToEmptyIsRevertible(t *testing.T) {
	s := NewState()
	x := s.AddVariableDomain(0, 10)
	s.CompileConstraints()

	if s.TightenVariableDomainMin(x, 20) {
		t.Fatal("TightenVariableDomainMin(20) on [0,10] reported feasible")
	}
	if s.AllDomainsNonempty() {
		t.Error("AllDomainsNonempty returned true with an empty domain")
	}
	// Tightening an already empty domain stays a legal no-op.
	if s.TightenVariableDomainMax(x, 5) {
		t.Error("TightenVariableDomainMax on an empty store reported feasible")
	}

	s.Revert()
	if !s.AllDomainsNonempty() {
		t.Error("AllDomainsNonempty returned false after Revert")
	}
	if got, want := s.VariableDomainMax(x), int64(10); got != want {
		t.Errorf("VariableDomainMax after Revert returned %v, want %v", got, want)
	}
}

func TestState_CommitMovesTheRollbackPoint(t *testing.T) {
	s := NewState()
	x := s.AddVariableDomain(0, 10)
	s.CompileConstraints()

	s.TightenVariableDomainMin(x, 5)
	s.Commit()

	// Relaxation always restores the registered domain, not the committed
	// one.
	s.RelaxVariableDomain(x)
	if got, want := s.VariableDomainMin(x), int64(0); got != want {
		t.Errorf("VariableDomainMin after relax returned %v, want %v", got, want)
	}

	// Revert goes back to the committed domain.
	s.Revert()
	if got, want := s.VariableDomainMin(x), int64(5); got != want {
		t.Errorf("VariableDomainMin after Revert returned %v, want %v", got, want)
	}
}

func TestWeightedSum_InfinityCounting(t *testing.T) {
	s := NewState()
	x := s.AddVariableDomain(math.MinInt64, math.MaxInt64)
	y := s.AddVariableDomain(0, 5)
	out := s.AddVariableDomain(math.MinInt64, math.MaxInt64)
	ws := s.AddWeightedSumConstraint([]VariableDomainID{x, y}, []int64{1, 2}, 1, out)
	s.CompileConstraints()

	if got, want := ws.SumMin(), int64(math.MinInt64); got != want {
		t.Fatalf("SumMin() with unbounded input returned %v, want %v", got, want)
	}
	if got, want := ws.SumMax(), int64(math.MaxInt64); got != want {
		t.Fatalf("SumMax() with unbounded input returned %v, want %v", got, want)
	}

	if !s.TightenVariableDomainMin(x, 3) || !s.PropagateTighten(x) {
		t.Fatal("tightening x to >= 3 reported infeasible")
	}
	if got, want := ws.SumMin(), int64(4); got != want {
		t.Errorf("SumMin() after bounding x below returned %v, want %v", got, want)
	}
	if got, want := ws.SumMax(), int64(math.MaxInt64); got != want {
		t.Errorf("SumMax() after bounding x below returned %v, want %v", got, want)
	}

	if !s.TightenVariableDomainMax(x, 10) || !s.PropagateTighten(x) {
		t.Fatal("tightening x to <= 10 reported infeasible")
	}
	if got, want := ws.SumMax(), int64(21); got != want {
		t.Errorf("SumMax() after bounding x above returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMin(out), int64(4); got != want {
		t.Errorf("output min returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMax(out), int64(21); got != want {
		t.Errorf("output max returned %v, want %v", got, want)
	}

	s.Revert()
	if got, want := ws.SumMin(), int64(math.MinInt64); got != want {
		t.Errorf("SumMin() after Revert returned %v, want %v", got, want)
	}
	if got, want := ws.SumMax(), int64(math.MaxInt64); got != want {
		t.Errorf("SumMax() after Revert returned %v, want %v", got, want)
	}
}

func TestState_PropagatesThroughChainedConstraints(t *testing.T) {
	s := NewState()
	x := s.AddVariableDomain(0, 10)
	mid := s.AddVariableDomain(math.MinInt64, math.MaxInt64)
	out := s.AddVariableDomain(math.MinInt64, math.MaxInt64)
	// mid = 2*x, out = mid + 5.
	s.AddWeightedSumConstraint([]VariableDomainID{x}, []int64{2}, 0, mid)
	s.AddWeightedSumConstraint([]VariableDomainID{mid}, []int64{1}, 5, out)
	s.CompileConstraints()

	if !s.TightenVariableDomainMin(x, 3) || !s.TightenVariableDomainMax(x, 4) || !s.PropagateTighten(x) {
		t.Fatal("tightening x to [3,4] reported infeasible")
	}
	if got, want := s.VariableDomainMin(mid), int64(6); got != want {
		t.Errorf("mid min returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMax(mid), int64(8); got != want {
		t.Errorf("mid max returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMin(out), int64(11); got != want {
		t.Errorf("out min returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMax(out), int64(13); got != want {
		t.Errorf("out max returned %v, want %v", got, want)
	}
}

func TestState_PropagateRelaxRecomputesOutputs(t *testing.T) {
	s := NewState()
	x := s.AddVariableDomain(0, 10)
	out := s.AddVariableDomain(math.MinInt64, math.MaxInt64)
	s.AddWeightedSumConstraint([]VariableDomainID{x}, []int64{1}, 0, out)
	s.CompileConstraints()

	s.TightenVariableDomainMin(x, 7)
	s.TightenVariableDomainMax(x, 7)
	if !s.PropagateTighten(x) {
		t.Fatal("tightening x to 7 reported infeasible")
	}
	s.Commit()
	if got, want := s.VariableDomainMin(out), int64(7); got != want {
		t.Fatalf("out min after commit returned %v, want %v", got, want)
	}

	// Relaxing x widens out back to the bounds of x's registered domain.
	s.RelaxVariableDomain(x)
	s.PropagateRelax(x)
	if got, want := s.VariableDomainMin(out), int64(0); got != want {
		t.Errorf("out min after relax returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMax(out), int64(10); got != want {
		t.Errorf("out max after relax returned %v, want %v", got, want)
	}

	s.Revert()
	if got, want := s.VariableDomainMin(out), int64(7); got != want {
		t.Errorf("out min after Revert returned %v, want %v", got, want)
	}
	if got, want := s.VariableDomainMax(out), int64(7); got != want {
		t.Errorf("out max after Revert returned %v, want %v", got, want)
	}
}
