// Copyright 2025 The termalg Authors
//
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

package series

import "errors"

var (
	// ErrSymbolSetMismatch is returned when the two operands of a
	// multiplication do not carry structurally identical symbol sets.
	ErrSymbolSetMismatch = errors.New("series: incompatible symbol sets")

	// ErrDuplicateSymbol is returned by NewSymbolSet when the same name
	// appears more than once.
	ErrDuplicateSymbol = errors.New("series: duplicate symbol")

	// ErrIncompatibleTerm is returned when a term's key is not consistent
	// with the symbol set of the collection it is being inserted into.
	ErrIncompatibleTerm = errors.New("series: term incompatible with symbol set")

	// ErrZeroBuckets is returned by BucketIndex when the table holds no
	// bucket storage: there is no valid index space to map a key into.
	ErrZeroBuckets = errors.New("series: bucket index requested on a table with no buckets")

	// ErrBucketOverflow is returned when a requested bucket count exceeds
	// the representable allocation size for the bucket array.
	ErrBucketOverflow = errors.New("series: bucket count overflows representable size")

	// ErrInvalidWorkerCount is returned by RehashParallel when called with
	// zero workers.
	ErrInvalidWorkerCount = errors.New("series: worker count must be at least 1")

	// ErrInvalidSetting is returned by the Set* tunable functions for
	// out-of-range values.
	ErrInvalidSetting = errors.New("series: setting value must be at least 1")

	// ErrOverflow is returned when arithmetic on sizes or coefficients
	// overflows. Overflow is never silently clamped.
	ErrOverflow = errors.New("series: arithmetic overflow")
)
