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

// Package series implements a sparse term collection for symbolic
// algebra and an engine computing the exact product of two collections.
//
// A collection holds unique (coefficient, key) pairs over a fixed
// ordered symbol set. The key is a light, comparable value identifying
// the monomial; the coefficient type is opaque and operated on only
// through the Algebra contract, so any exact coefficient arithmetic
// (machine integers, big rationals, nested series) can sit underneath.
//
// Multiplication is O(n*m) term-by-term products deduplicated into a
// destination collection whose final size is unknown in advance. The
// engine picks single- or multi-threaded execution from the estimated
// workload and runs a three-phase pipeline: randomized size estimation,
// cache-blocked multiplication, and (in multi-threaded mode) a merge
// whose destination bucket space is statically partitioned among
// workers, so no bucket is ever written by two workers.
//
// A multiplication either returns a correct result or fails atomically:
// the operands are never mutated and a partially-computed result is
// never observable.
package series

import (
	"fmt"
)

// Term is a (coefficient, key) pair stored in a collection.
type Term[K comparable, C any] struct {
	Key K
	Cf  C
}

// Algebra is the operation contract for the opaque coefficient and key
// types of a collection. All collections taking part in one
// multiplication must carry the same algebra. Implementations must be
// safe for concurrent use; fallible operations report errors, which
// abort the surrounding operation.
type Algebra[K comparable, C any] interface {
	// AddCf returns a+b. On error the result is discarded by the
	// caller, so a partially-updated value is acceptable.
	AddCf(a, b C) (C, error)

	// CloneCf returns an independent copy of c. Needed because
	// coefficient types may share underlying storage (big integers,
	// nested collections).
	CloneCf(c C) (C, error)

	// CfIsZero reports whether c is structurally zero. A term with a
	// zero coefficient is ignorable and is dropped from collections.
	CfIsZero(c C) bool

	// CfEqual reports coefficient equality.
	CfEqual(a, b C) bool

	// Compatible reports whether key k is consistent with the symbol
	// set s.
	Compatible(k K, s *SymbolSet) bool

	// MultiplyTerm computes the product of terms a and b relative to
	// symbol set s, writing exactly Arity() result terms into dst.
	MultiplyTerm(dst []Term[K, C], a, b *Term[K, C], s *SymbolSet) error

	// Arity returns the fixed number of result terms produced by one
	// term-by-term product. Plain polynomial keys have arity 1;
	// product-to-sum identities (trigonometric keys) have arity 2.
	Arity() int
}

// Collection is an unordered set of terms with unique keys, plus the
// symbol set the keys are relative to and the algebra operating on
// them. Inserting a term whose key is already present accumulates the
// coefficients; a term whose coefficient becomes zero is removed.
//
// A Collection is NOT goroutine-safe. The zero value is not usable.
type Collection[K comparable, C any] struct {
	symbols *SymbolSet
	alg     Algebra[K, C]
	table   Table[K, C]
}

// NewCollection constructs an empty collection over the given symbol
// set and algebra.
func NewCollection[K comparable, C any](symbols *SymbolSet, alg Algebra[K, C], options ...TableOption[K, C]) *Collection[K, C] {
	if symbols == nil || alg == nil {
		panic("series: collection requires a symbol set and an algebra")
	}
	c := &Collection[K, C]{symbols: symbols, alg: alg}
	initTable(&c.table, options...)
	return c
}

// FromTerms constructs a collection from a range of terms, accumulating
// duplicate keys.
func FromTerms[K comparable, C any](symbols *SymbolSet, alg Algebra[K, C], terms []Term[K, C], options ...TableOption[K, C]) (*Collection[K, C], error) {
	c := NewCollection(symbols, alg, options...)
	if len(terms) > 0 {
		if err := c.table.Rehash(c.table.minBuckets(len(terms))); err != nil {
			return nil, err
		}
	}
	for _, t := range terms {
		if err := c.Insert(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SymbolSet returns the symbol set shared by the collection's terms.
func (c *Collection[K, C]) SymbolSet() *SymbolSet {
	return c.symbols
}

// Algebra returns the algebra operating on the collection's terms.
func (c *Collection[K, C]) Algebra() Algebra[K, C] {
	return c.alg
}

// Container returns the underlying term hash container.
func (c *Collection[K, C]) Container() *Table[K, C] {
	return &c.table
}

// Len returns the number of terms.
func (c *Collection[K, C]) Len() int {
	return c.table.Len()
}

// All calls yield sequentially for each term. If yield returns false,
// iteration stops.
func (c *Collection[K, C]) All(yield func(t *Term[K, C]) bool) {
	c.table.All(yield)
}

// Terms returns a snapshot of the terms in unspecified order.
func (c *Collection[K, C]) Terms() []Term[K, C] {
	out := make([]Term[K, C], 0, c.Len())
	c.table.All(func(t *Term[K, C]) bool {
		out = append(out, *t)
		return true
	})
	return out
}

// Find returns a pointer to the term with the given key, if present.
// The pointer stays valid until the term is erased.
func (c *Collection[K, C]) Find(key K) (*Term[K, C], bool) {
	h, ok := c.table.Find(key)
	if !ok {
		return nil, false
	}
	return h.Term(), true
}

// Clear removes all terms and releases the container storage.
func (c *Collection[K, C]) Clear() {
	c.table.Clear()
}

// Insert adds term t to the collection. A term incompatible with the
// symbol set is an error; an ignorable term is dropped silently. If a
// term with an equal key exists, the coefficients are accumulated and
// the term is removed if the sum is zero.
func (c *Collection[K, C]) Insert(t Term[K, C]) error {
	if !c.alg.Compatible(t.Key, c.symbols) {
		return fmt.Errorf("%w: key %v in %v", ErrIncompatibleTerm, t.Key, c.symbols)
	}
	if c.alg.CfIsZero(t.Cf) {
		return nil
	}
	h, inserted, err := c.table.Insert(t)
	if err != nil || inserted {
		return err
	}
	// The key exists: accumulate into the stored coefficient. Whether
	// or not the addition fails, a term left with a zero coefficient is
	// erased before returning.
	sum, err := c.alg.AddCf(h.Term().Cf, t.Cf)
	if err == nil {
		h.Term().Cf = sum
	}
	if c.alg.CfIsZero(h.Term().Cf) {
		c.table.Erase(h)
	}
	return err
}

func (c *Collection[K, C]) cloneTerm(t *Term[K, C]) (Term[K, C], error) {
	cf, err := c.alg.CloneCf(t.Cf)
	if err != nil {
		return Term[K, C]{}, err
	}
	return Term[K, C]{Key: t.Key, Cf: cf}, nil
}

// Clone returns an independent copy of the collection, cloning every
// coefficient through the algebra.
func (c *Collection[K, C]) Clone() (*Collection[K, C], error) {
	n := &Collection[K, C]{symbols: c.symbols, alg: c.alg}
	initTable(&n.table)
	if err := n.table.CopyFrom(&c.table, c.cloneTerm); err != nil {
		return nil, err
	}
	return n, nil
}

// CopyFrom replaces the contents of c with a copy of src. If cloning
// any coefficient fails, c is left exactly as it was before the call.
func (c *Collection[K, C]) CopyFrom(src *Collection[K, C]) error {
	if err := c.table.CopyFrom(&src.table, src.cloneTerm); err != nil {
		return err
	}
	c.symbols = src.symbols
	c.alg = src.alg
	return nil
}

// Equal reports whether c and o hold structurally equal symbol sets and
// the same set of terms with equal coefficients. Insertion order and
// container geometry are irrelevant.
func (c *Collection[K, C]) Equal(o *Collection[K, C]) bool {
	if !c.symbols.Equal(o.symbols) || c.Len() != o.Len() {
		return false
	}
	eq := true
	c.table.All(func(t *Term[K, C]) bool {
		ot, ok := o.Find(t.Key)
		if !ok || !c.alg.CfEqual(t.Cf, ot.Cf) {
			eq = false
			return false
		}
		return true
	})
	return eq
}
