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

// Package localsearch implements the local search layer of the constraint
// solver: move operators over sparse assignments, an incremental filter
// pipeline validating candidate moves, a transactional domain store for
// filters that propagate derived bounds, and the driver loop tying move
// generation, filtering and commit/revert into the surrounding tree search.
//
// Operators produce moves one at a time through hand-rolled cursors: a call
// to `MakeNextNeighbor` either yields one syntactically valid move as a
// sparse delta or signals that the enumeration is exhausted. Filters accept
// or reject a delta incrementally and are synchronized against each accepted
// solution. Everything is strictly single-threaded; re-entrancy across calls
// is carried by explicit per-operator state, never by goroutines.
package localsearch
