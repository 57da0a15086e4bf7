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

// Parameters configures the local search driver and the subproblem operators.
// It is a plain config struct filled by the embedding solver, not flags.
type Parameters struct {
	// SyncFrequency is the number of moves between checks that the solution
	// pool wants the reference solution resynchronized.
	SyncFrequency int
	// CheckSolutionPeriod is the number of accepted-but-unverified moves
	// between forced full verifications in fast local search mode.
	CheckSolutionPeriod int
	// FastLocalSearch commits accepted moves on filter approval alone,
	// periodically cross-checked by full re-verification.
	FastLocalSearch bool
	// TSPOptSize is the size of the chain re-optimized by the TSPOpt operator.
	TSPOptSize int
	// TSPLnsSize is the number of break nodes sampled by the TSPLns operator.
	TSPLnsSize int
	// Seed seeds the random operators.
	Seed int64
}

// DefaultParameters returns the default driver configuration.
func DefaultParameters() Parameters {
	return Parameters{
		SyncFrequency:       16,
		CheckSolutionPeriod: 100,
		FastLocalSearch:     false,
		TSPOptSize:          13,
		TSPLnsSize:          10,
		Seed:                1,
	}
}
