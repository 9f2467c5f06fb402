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

// Truncator is the pruning policy consulted during a multiplication.
// An inactive truncator is never consulted further. A skipping
// truncator imposes an ordering on the operand terms (CompareTerms)
// which makes early termination of the inner multiplication loop valid
// (Skip). A filtering truncator discards individual result terms
// (Filter); when a truncator is both skipping and filtering, the engine
// assumes Skip subsumes Filter and does not filter on insertion.
//
// A Truncator is shared between workers and must be safe for
// concurrent, read-only use.
type Truncator[K comparable, C any] interface {
	// IsActive reports whether the truncator takes part in the
	// multiplication at all.
	IsActive() bool

	// IsSkipping reports whether the truncator imposes an ordering for
	// early pruning.
	IsSkipping() bool

	// IsFiltering reports whether the truncator filters individual
	// result terms.
	IsFiltering() bool

	// CompareTerms reports whether a sorts before b. Only consulted for
	// skipping truncators.
	CompareTerms(a, b *Term[K, C]) bool

	// Skip reports that the product of a with b, and with every term
	// sorting after b, can be discarded. Only valid after the operands
	// have been sorted with CompareTerms.
	Skip(a, b *Term[K, C]) bool

	// Filter reports that the result term t must be discarded.
	Filter(t *Term[K, C]) bool
}

// NoTruncation is the default, inactive truncator.
type NoTruncation[K comparable, C any] struct{}

func (NoTruncation[K, C]) IsActive() bool { return false }

func (NoTruncation[K, C]) IsSkipping() bool { return false }

func (NoTruncation[K, C]) IsFiltering() bool { return false }

func (NoTruncation[K, C]) CompareTerms(_, _ *Term[K, C]) bool { return false }

func (NoTruncation[K, C]) Skip(_, _ *Term[K, C]) bool { return false }

func (NoTruncation[K, C]) Filter(_ *Term[K, C]) bool { return false }
