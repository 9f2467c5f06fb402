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
	"golang.org/x/sync/errgroup"
)

// executeParallel splits the first operand into n contiguous blocks,
// multiplies each block against the full second operand into a private
// destination, and merges the private results into one collection. The
// operands are only ever read, so workers need no synchronization until
// the merge.
func (m *Multiplier[K, C]) executeParallel(n int) (*Collection[K, C], error) {
	size1 := len(m.v1)
	blockSize := size1 / n
	partials := make([]*Collection[K, C], n)
	for i := range partials {
		partials[i] = NewCollection(m.s1.SymbolSet(), m.s1.Algebra())
	}
	var g errgroup.Group
	for w := 0; w < n; w++ {
		start := w * blockSize
		end := start + blockSize
		if w == n-1 {
			end = size1
		}
		dst := partials[w]
		g.Go(func() error {
			workerDepth.Add(1)
			defer workerDepth.Add(-1)
			f := m.newState(m.v1[start:end], m.v2, dst)
			estimate, estimated := m.presize(f)
			if err := m.blockedMultiplication(f); err != nil {
				return err
			}
			if estimated {
				recordEstimate(m.logger, dst.Len(), estimate)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		clearAll(partials)
		return nil, err
	}

	// Size the merged destination from an estimate over the full
	// operands rather than the sum of the partial sizes, which counts
	// terms that will collapse into one during the merge. Unlike the
	// per-worker pre-sizing, a failure here aborts the multiplication:
	// there is no cheap fallback once the partial results exist.
	scratch := NewCollection(m.s1.SymbolSet(), m.s1.Algebra())
	finalEstimate, err := m.estimateSize(m.newState(m.v1, m.v2, scratch))
	if err != nil {
		clearAll(partials)
		return nil, err
	}
	if finalEstimate == 0 {
		finalEstimate = 1
	}

	// Reuse a partial as the destination when its bucket storage already
	// fits the estimate, saving one allocation of the largest array in
	// the pipeline.
	var retval *Collection[K, C]
	for i, p := range partials {
		if float64(p.Container().BucketCount())*p.Container().MaxLoadFactor() >= float64(finalEstimate) {
			retval = p
			partials = append(partials[:i], partials[i+1:]...)
			break
		}
	}
	if retval == nil {
		retval = NewCollection(m.s1.SymbolSet(), m.s1.Algebra())
		if err := retval.table.Rehash(retval.table.minBuckets(finalEstimate)); err != nil {
			clearAll(partials)
			return nil, err
		}
	}

	if err := m.finalMerge(retval, partials, n); err != nil {
		retval.Clear()
		clearAll(partials)
		return nil, err
	}
	recordEstimate(m.logger, retval.Len(), finalEstimate)
	clearAll(partials)
	return retval, nil
}

func clearAll[K comparable, C any](cs []*Collection[K, C]) {
	for _, c := range cs {
		c.Clear()
	}
}

// mergeRef pairs a term of a partial result with its destination bucket
// index, precomputed so the merge workers never hash.
type mergeRef[K comparable, C any] struct {
	bucket uintptr
	term   *Term[K, C]
}

// finalMerge folds the partial results into retval in two phases. Phase
// one computes, in parallel per partial, the destination bucket of
// every term. Phase two partitions the destination bucket range among n
// workers; each worker owns its range exclusively and applies exactly
// the refs that fall inside it, so no lock is needed on the table.
// Insertions and cancellation erasures bypass the size counter; each
// worker tallies its net term count and the counter is corrected once
// after the join, followed by a corrective rehash if the merged size
// overshoots the load factor the estimate was sized for.
func (m *Multiplier[K, C]) finalMerge(retval *Collection[K, C], partials []*Collection[K, C], n int) error {
	refs := make([][]mergeRef[K, C], len(partials))
	var g errgroup.Group
	for i, p := range partials {
		g.Go(func() error {
			rs := make([]mergeRef[K, C], 0, p.Len())
			p.All(func(t *Term[K, C]) bool {
				rs = append(rs, mergeRef[K, C]{
					bucket: retval.table.BucketIndexUnchecked(t.Key),
					term:   t,
				})
				return true
			})
			refs[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bucketCount := retval.table.BucketCount()
	blockSize := bucketCount / n
	deltas := make([]int, n)
	var mg errgroup.Group
	for w := 0; w < n; w++ {
		bStart := uintptr(w * blockSize)
		bEnd := bStart + uintptr(blockSize)
		if w == n-1 {
			bEnd = uintptr(bucketCount)
		}
		mg.Go(func() error {
			alg := retval.alg
			plus, minus := 0, 0
			defer func() { deltas[w] = plus - minus }()
			for _, rs := range refs {
				for _, r := range rs {
					if r.bucket < bStart || r.bucket >= bEnd {
						continue
					}
					h := retval.table.FindInBucket(r.term.Key, r.bucket)
					if !h.Valid() {
						retval.table.InsertUniqueUnchecked(*r.term, r.bucket)
						plus++
						continue
					}
					sum, err := alg.AddCf(h.Term().Cf, r.term.Cf)
					if err == nil {
						h.Term().Cf = sum
					}
					if alg.CfIsZero(h.Term().Cf) {
						retval.table.EraseAt(h)
						minus++
					}
					if err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	err := mg.Wait()
	// The size correction must land even on failure so that the table
	// stays consistent for the cleanup path.
	total := 0
	for _, d := range deltas {
		total += d
	}
	retval.table.AdjustSize(total)
	if err != nil {
		return err
	}
	if retval.table.LoadFactor() > retval.table.MaxLoadFactor() {
		return retval.table.RehashParallel(retval.table.minBuckets(retval.Len()), n)
	}
	return nil
}
