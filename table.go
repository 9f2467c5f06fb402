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

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

const (
	// maxBucketBits bounds the bucket array so that index arithmetic can
	// never overflow a uintptr. Requests beyond this report
	// ErrBucketOverflow rather than wrapping.
	maxBucketBits   = bits.UintSize - 8
	maxBucketCount  = 1 << maxBucketBits
	defaultMaxLoad  = 1.0
	minTableBuckets = 1
)

// entry is a node in a bucket chain. Entries are individually heap
// allocated, so a *Term obtained through a Handle remains valid across
// rehashing: rehash relinks the existing nodes into a new bucket array
// without copying terms.
type entry[K comparable, C any] struct {
	term Term[K, C]
	next *entry[K, C]
}

// Table is a chained-bucket hash table holding unique terms. It exposes
// a safe high-level API (Insert, Find, Erase, Rehash) and a set of
// low-level primitives (FindInBucket, InsertUniqueUnchecked, EraseAt,
// AdjustSize) that let the multiplication engine bypass redundant
// hashing and size bookkeeping in its hot insertion path. After any use
// of the low-level primitives the caller owns the load-factor and
// size-counter invariants, and must restore them via AdjustSize and, if
// needed, Rehash.
//
// The bucket count is always zero or a power of two, so a hash is
// mapped to a bucket with a mask rather than a modulus. By default a
// Table hashes keys with the same hash function as Go's builtin map,
// with a per-table random seed; a different hash function can be
// specified using the WithHash option.
//
// A Table is NOT goroutine-safe. The zero value is not usable; use
// NewTable (or a Collection, which embeds a ready table).
type Table[K comparable, C any] struct {
	hash    hashFn
	seed    uintptr
	buckets []*entry[K, C]
	size    int
	maxLoad float64
}

// NewTable constructs a table with at least initialCapacity buckets
// (rounded up to a power of two). An initialCapacity of 0 yields an
// empty, unallocated table that grows on first insert.
func NewTable[K comparable, C any](initialCapacity int, options ...TableOption[K, C]) (*Table[K, C], error) {
	t := &Table[K, C]{}
	initTable(t, options...)
	if initialCapacity > 0 {
		if err := t.Rehash(initialCapacity); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// initTable readies a zero Table value in place. Used by NewTable and
// by Collection, which embeds its table by value.
func initTable[K comparable, C any](t *Table[K, C], options ...TableOption[K, C]) {
	t.hash = getRuntimeHasher[K]()
	t.seed = newTableSeed()
	t.maxLoad = defaultMaxLoad
	for _, op := range options {
		op.applyTable(t)
	}
}

// Handle refers to a live entry in a table. A handle is invalidated by
// any operation that rehashes the table; Erase returns a handle to the
// next live entry so that forward iteration with deletion is safe as
// long as no growth happens in between.
type Handle[K comparable, C any] struct {
	t      *Table[K, C]
	bucket uintptr
	e      *entry[K, C]
}

// Valid reports whether the handle refers to an entry.
func (h Handle[K, C]) Valid() bool {
	return h.e != nil
}

// Term returns a pointer to the referenced term. The pointer stays
// valid until the entry is erased, even across rehashing.
func (h Handle[K, C]) Term() *Term[K, C] {
	return &h.e.term
}

// Next returns a handle to the next live entry in bucket order, or an
// invalid handle if h was the last one.
func (h Handle[K, C]) Next() Handle[K, C] {
	if h.e != nil && h.e.next != nil {
		return Handle[K, C]{t: h.t, bucket: h.bucket, e: h.e.next}
	}
	for i := h.bucket + 1; i < uintptr(len(h.t.buckets)); i++ {
		if e := h.t.buckets[i]; e != nil {
			return Handle[K, C]{t: h.t, bucket: i, e: e}
		}
	}
	return Handle[K, C]{t: h.t}
}

// First returns a handle to the first live entry, or an invalid handle
// for an empty table.
func (t *Table[K, C]) First() Handle[K, C] {
	for i := uintptr(0); i < uintptr(len(t.buckets)); i++ {
		if e := t.buckets[i]; e != nil {
			return Handle[K, C]{t: t, bucket: i, e: e}
		}
	}
	return Handle[K, C]{t: t}
}

// Len returns the number of terms in the table.
func (t *Table[K, C]) Len() int {
	return t.size
}

// BucketCount returns the length of the bucket array.
func (t *Table[K, C]) BucketCount() int {
	return len(t.buckets)
}

// LoadFactor returns size divided by bucket count, or 0 for an
// unallocated table.
func (t *Table[K, C]) LoadFactor() float64 {
	if len(t.buckets) == 0 {
		return 0
	}
	return float64(t.size) / float64(len(t.buckets))
}

// MaxLoadFactor returns the load factor above which automatic growth is
// triggered by the safe mutating operations.
func (t *Table[K, C]) MaxLoadFactor() float64 {
	return t.maxLoad
}

// All calls yield sequentially for each term in the table. If yield
// returns false, iteration stops. The table must not be mutated during
// iteration except through Erase on the handle being visited.
func (t *Table[K, C]) All(yield func(term *Term[K, C]) bool) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			if !yield(&e.term) {
				return
			}
		}
	}
}

func (t *Table[K, C]) hashKey(key *K) uintptr {
	return t.hash(noescape(unsafe.Pointer(key)), t.seed)
}

// BucketIndexUnchecked maps a key to its bucket index. The table must
// have at least one bucket; this is not checked.
func (t *Table[K, C]) BucketIndexUnchecked(key K) uintptr {
	return t.hashKey(&key) & uintptr(len(t.buckets)-1)
}

// BucketIndex maps a key to its bucket index, reporting ErrZeroBuckets
// when the table has no bucket storage.
func (t *Table[K, C]) BucketIndex(key K) (int, error) {
	if len(t.buckets) == 0 {
		return 0, ErrZeroBuckets
	}
	return int(t.BucketIndexUnchecked(key)), nil
}

// FindInBucket looks key up in the chain of the given bucket index,
// previously computed with BucketIndex or BucketIndexUnchecked. Returns
// an invalid handle if the key is not present.
func (t *Table[K, C]) FindInBucket(key K, bucket uintptr) Handle[K, C] {
	for e := t.buckets[bucket]; e != nil; e = e.next {
		if e.term.Key == key {
			return Handle[K, C]{t: t, bucket: bucket, e: e}
		}
	}
	return Handle[K, C]{t: t}
}

// Find looks key up in the table.
func (t *Table[K, C]) Find(key K) (Handle[K, C], bool) {
	if len(t.buckets) == 0 {
		return Handle[K, C]{t: t}, false
	}
	h := t.FindInBucket(key, t.BucketIndexUnchecked(key))
	return h, h.Valid()
}

// Insert adds term to the table. If an entry with an equal key already
// exists, its handle is returned with inserted=false and the table is
// not modified. Insertion may trigger automatic growth; a growth
// failure leaves the table in its prior valid state.
func (t *Table[K, C]) Insert(term Term[K, C]) (handle Handle[K, C], inserted bool, err error) {
	if len(t.buckets) > 0 {
		if h := t.FindInBucket(term.Key, t.BucketIndexUnchecked(term.Key)); h.Valid() {
			return h, false, nil
		}
	}
	if err := t.reserve(t.size + 1); err != nil {
		return Handle[K, C]{t: t}, false, err
	}
	h := t.InsertUniqueUnchecked(term, t.BucketIndexUnchecked(term.Key))
	t.size++
	t.checkInvariants()
	return h, true, nil
}

// InsertUniqueUnchecked links term into the chain of the given bucket
// index. The caller guarantees that no equal key is present, that the
// bucket index was computed against the current bucket array, and that
// capacity suffices: there is no growth check and the size counter is
// not updated (use AdjustSize afterwards).
func (t *Table[K, C]) InsertUniqueUnchecked(term Term[K, C], bucket uintptr) Handle[K, C] {
	e := &entry[K, C]{term: term, next: t.buckets[bucket]}
	t.buckets[bucket] = e
	return Handle[K, C]{t: t, bucket: bucket, e: e}
}

// Erase removes the entry referenced by h and returns a handle to the
// next live entry, so that erasing while iterating forward is safe.
func (t *Table[K, C]) Erase(h Handle[K, C]) Handle[K, C] {
	next := h.Next()
	t.unlink(h)
	t.size--
	t.checkInvariants()
	return next
}

// EraseAt removes the entry referenced by h without updating the size
// counter. Engine-only; pair with AdjustSize.
func (t *Table[K, C]) EraseAt(h Handle[K, C]) {
	t.unlink(h)
}

func (t *Table[K, C]) unlink(h Handle[K, C]) {
	if t.buckets[h.bucket] == h.e {
		t.buckets[h.bucket] = h.e.next
		h.e.next = nil
		return
	}
	for p := t.buckets[h.bucket]; p != nil; p = p.next {
		if p.next == h.e {
			p.next = h.e.next
			h.e.next = nil
			return
		}
	}
	panic("series: erase of a handle not in its bucket chain")
}

// AdjustSize applies a deferred size-counter correction after a run of
// InsertUniqueUnchecked/EraseAt calls.
func (t *Table[K, C]) AdjustSize(delta int) {
	t.size += delta
}

// Clear removes all entries and releases the bucket storage: the bucket
// count returns to 0.
func (t *Table[K, C]) Clear() {
	t.buckets = nil
	t.size = 0
}

// minBuckets returns the smallest bucket count keeping n entries within
// the maximum load factor.
func (t *Table[K, C]) minBuckets(n int) int {
	if n <= 0 {
		return minTableBuckets
	}
	return int(math.Ceil(float64(n) / t.maxLoad))
}

// reserve grows the table, if needed, so that n entries fit without
// exceeding the maximum load factor.
func (t *Table[K, C]) reserve(n int) error {
	if len(t.buckets) > 0 && float64(n) <= t.maxLoad*float64(len(t.buckets)) {
		return nil
	}
	return t.Rehash(t.minBuckets(n))
}

// targetBucketCount resolves a rehash request against the monotonicity
// rule: the result is at least the current bucket count, at least the
// minimum for the current size, and a power of two.
func (t *Table[K, C]) targetBucketCount(n int) (int, error) {
	target := n
	if mb := t.minBuckets(t.size); mb > target {
		target = mb
	}
	if target < minTableBuckets {
		target = minTableBuckets
	}
	if target > maxBucketCount {
		return 0, fmt.Errorf("%w: %d buckets requested", ErrBucketOverflow, target)
	}
	nb := ceilPow2(target)
	if nb < len(t.buckets) {
		nb = len(t.buckets)
	}
	if nb > maxBucketCount {
		return 0, fmt.Errorf("%w: %d buckets requested", ErrBucketOverflow, nb)
	}
	return nb, nil
}

// Rehash ensures the bucket count is at least max(n, minimum for the
// current size). Rehash never shrinks the bucket array, with a single
// exception: requesting 0 buckets on an empty table releases the
// storage entirely.
func (t *Table[K, C]) Rehash(n int) error {
	if n == 0 && t.size == 0 {
		t.buckets = nil
		return nil
	}
	nb, err := t.targetBucketCount(n)
	if err != nil {
		return err
	}
	if nb == len(t.buckets) {
		return nil
	}
	newBuckets := make([]*entry[K, C], nb)
	mask := uintptr(nb - 1)
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.next
			i := t.hashKey(&e.term.Key) & mask
			e.next = newBuckets[i]
			newBuckets[i] = e
			e = next
		}
	}
	t.buckets = newBuckets
	t.checkInvariants()
	return nil
}

// RehashParallel is the parallel variant of Rehash: the existing
// entries are redistributed into the new bucket array by workers
// cooperating on disjoint sub-ranges of the old array. Because bucket
// counts are powers of two and the hash seed is retained, an entry in
// old bucket i can only land in a new bucket j with j mod oldCount == i;
// disjoint old-bucket ranges therefore map to disjoint new-bucket sets
// and no two workers ever write the same destination bucket.
//
// A worker count of 0 is a contract violation.
func (t *Table[K, C]) RehashParallel(n, workers int) error {
	if workers == 0 {
		return ErrInvalidWorkerCount
	}
	if n == 0 && t.size == 0 {
		t.buckets = nil
		return nil
	}
	nb, err := t.targetBucketCount(n)
	if err != nil {
		return err
	}
	if nb == len(t.buckets) {
		return nil
	}
	oldBuckets := t.buckets
	oldCount := len(oldBuckets)
	newBuckets := make([]*entry[K, C], nb)
	if workers > oldCount {
		workers = oldCount
	}
	if workers <= 1 || oldCount == 0 {
		mask := uintptr(nb - 1)
		for _, head := range oldBuckets {
			for e := head; e != nil; {
				next := e.next
				i := t.hashKey(&e.term.Key) & mask
				e.next = newBuckets[i]
				newBuckets[i] = e
				e = next
			}
		}
		t.buckets = newBuckets
		t.checkInvariants()
		return nil
	}
	mask := uintptr(nb - 1)
	blockSize := oldCount / workers
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * blockSize
		end := start + blockSize
		if w == workers-1 {
			end = oldCount
		}
		g.Go(func() error {
			for _, head := range oldBuckets[start:end] {
				for e := head; e != nil; {
					next := e.next
					i := t.hashKey(&e.term.Key) & mask
					e.next = newBuckets[i]
					newBuckets[i] = e
					e = next
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	t.buckets = newBuckets
	t.checkInvariants()
	return nil
}

// CopyFrom replaces the contents of t with a copy of src, cloning each
// term through clone. If cloning any term fails, t is left exactly as
// it was before the call: the copy is constructed off to the side and
// committed only on full success. The source's geometry (bucket count,
// hash seed, load factor) is adopted so that bucket indices stay valid.
func (t *Table[K, C]) CopyFrom(src *Table[K, C], clone func(term *Term[K, C]) (Term[K, C], error)) error {
	newBuckets := make([]*entry[K, C], len(src.buckets))
	size := 0
	for i, head := range src.buckets {
		for e := head; e != nil; e = e.next {
			term, err := clone(&e.term)
			if err != nil {
				return err
			}
			newBuckets[i] = &entry[K, C]{term: term, next: newBuckets[i]}
			size++
		}
	}
	t.hash = src.hash
	t.seed = src.seed
	t.maxLoad = src.maxLoad
	t.buckets = newBuckets
	t.size = size
	t.checkInvariants()
	return nil
}

// EvaluateSparsity returns a diagnostic histogram mapping chain length
// to the number of buckets with that length.
func (t *Table[K, C]) EvaluateSparsity() map[int]int {
	out := make(map[int]int)
	for _, head := range t.buckets {
		n := 0
		for e := head; e != nil; e = e.next {
			n++
		}
		out[n]++
	}
	return out
}

func (t *Table[K, C]) checkInvariants() {
	if invariants {
		if len(t.buckets) != 0 && len(t.buckets)&(len(t.buckets)-1) != 0 {
			panic(fmt.Sprintf("invariant failed: bucket count %d is not a power of two", len(t.buckets)))
		}
		var n int
		for i, head := range t.buckets {
			for e := head; e != nil; e = e.next {
				n++
				if got := t.hashKey(&e.term.Key) & uintptr(len(t.buckets)-1); got != uintptr(i) {
					panic(fmt.Sprintf("invariant failed: entry in bucket %d hashes to bucket %d\n%s", i, got, t.debugString()))
				}
			}
		}
		if n != t.size {
			panic(fmt.Sprintf("invariant failed: found %d entries, but size is %d\n%s", n, t.size, t.debugString()))
		}
		if len(t.buckets) > 0 && t.LoadFactor() > t.maxLoad {
			panic(fmt.Sprintf("invariant failed: load factor %f exceeds %f", t.LoadFactor(), t.maxLoad))
		}
	}
}

func (t *Table[K, C]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "buckets=%d  size=%d  max-load=%f\n", len(t.buckets), t.size, t.maxLoad)
	for i, head := range t.buckets {
		if head == nil {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", i)
		for e := head; e != nil; e = e.next {
			fmt.Fprintf(&buf, " %v", e.term.Key)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}

// ceilPow2 returns the smallest power of two >= n.
func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
