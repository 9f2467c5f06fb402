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
	"math"
	"math/big"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

const (
	// multiplicationBlockSize is the square block edge used by the
	// cache-blocked multiplication loops.
	multiplicationBlockSize = 256

	// estimationThreshold is the number of term-by-term products below
	// which size estimation is not worth its overhead and the
	// destination is left to grow incrementally.
	estimationThreshold = 100000

	// estimationTrials and estimationMultiplier are heuristic knobs of
	// the size estimator: number of randomized trials averaged, and the
	// safety factor applied to the squared mean. They trade memory for
	// regrowth avoidance and carry no correctness weight.
	estimationTrials     = 10
	estimationMultiplier = 4

	// estimationSeed makes the estimator's pairing order reproducible;
	// the estimate affects only pre-sizing, never the result.
	estimationSeed = 0x5eed5e71e5
)

// workerDepth counts live engine workers in the process. A
// multiplication started while workers are live (e.g. from a
// coefficient algebra whose coefficients are themselves collections)
// runs single-threaded: there is no nested parallelism.
var workerDepth atomic.Int32

// Multiplier computes the product of two collections sharing a symbol
// set. It is created by NewMultiplier, holds flat views of the operand
// terms for the duration of the call, and never mutates the operands.
type Multiplier[K comparable, C any] struct {
	s1, s2     *Collection[K, C]
	v1, v2     []*Term[K, C]
	trunc      Truncator[K, C]
	maxThreads int
	minWork    int
	logger     hclog.Logger
}

// Multiply returns the product of a and b as a new collection. The
// operands must share a structurally equal symbol set and the same
// algebra; they are never modified, even on failure.
func Multiply[K comparable, C any](a, b *Collection[K, C], options ...Option[K, C]) (*Collection[K, C], error) {
	m, err := NewMultiplier(a, b, options...)
	if err != nil {
		return nil, err
	}
	return m.Execute()
}

// NewMultiplier validates the operands and prepares a multiplication.
// Symbol set mismatch fails immediately. The operand terms are
// flattened into stable arrays of references and, when the truncator is
// skipping, sorted with its comparator so that Skip can terminate inner
// loops early.
func NewMultiplier[K comparable, C any](a, b *Collection[K, C], options ...Option[K, C]) (*Multiplier[K, C], error) {
	if !a.SymbolSet().Equal(b.SymbolSet()) {
		return nil, ErrSymbolSetMismatch
	}
	m := &Multiplier[K, C]{
		s1:         a,
		s2:         b,
		trunc:      NoTruncation[K, C]{},
		maxThreads: MaxThreads(),
		minWork:    MinWorkPerThread(),
		logger:     getTraceLogger(),
	}
	for _, op := range options {
		op.apply(m)
	}
	if a.Len() == 0 || b.Len() == 0 {
		return m, nil
	}
	m.v1 = flattenTerms(a)
	m.v2 = flattenTerms(b)
	if m.trunc.IsActive() && m.trunc.IsSkipping() {
		sort.Slice(m.v1, func(i, j int) bool { return m.trunc.CompareTerms(m.v1[i], m.v1[j]) })
		sort.Slice(m.v2, func(i, j int) bool { return m.trunc.CompareTerms(m.v2[i], m.v2[j]) })
	}
	return m, nil
}

func flattenTerms[K comparable, C any](c *Collection[K, C]) []*Term[K, C] {
	v := make([]*Term[K, C], 0, c.Len())
	c.All(func(t *Term[K, C]) bool {
		v = append(v, t)
		return true
	})
	return v
}

// Execute computes the product. Either operand empty yields the empty
// collection. A workload heuristic picks between the single-threaded
// and multi-threaded paths; the numeric result does not depend on the
// choice.
func (m *Multiplier[K, C]) Execute() (*Collection[K, C], error) {
	if m.s1.Len() == 0 || m.s2.Len() == 0 {
		return NewCollection(m.s1.SymbolSet(), m.s1.Algebra()), nil
	}
	if n := m.threadCount(); n > 1 {
		return m.executeParallel(n)
	}
	return m.executeSerial()
}

// threadCount derives the worker count from the estimated workload
// size1*size2, computed in big integers so the product cannot overflow.
// The count is reduced until every worker has at least minWork products
// to perform, clamped to the size of the first operand (which is what
// gets split), and forced to 1 inside a worker context.
func (m *Multiplier[K, C]) threadCount() int {
	n := m.maxThreads
	if n < 1 {
		n = 1
	}
	size1 := len(m.v1)
	if n > 1 {
		work := new(big.Int).Mul(big.NewInt(int64(size1)), big.NewInt(int64(len(m.v2))))
		minWork := big.NewInt(int64(m.minWork))
		perThread := new(big.Int).Div(work, big.NewInt(int64(n)))
		if perThread.Cmp(minWork) < 0 {
			nt := new(big.Int).Div(work, minWork)
			switch {
			case nt.Sign() <= 0:
				n = 1
			case nt.IsInt64() && nt.Int64() < int64(n):
				n = int(nt.Int64())
			}
		}
	}
	if n > size1 {
		n = size1
	}
	if workerDepth.Load() > 0 {
		n = 1
	}
	return n
}

func (m *Multiplier[K, C]) executeSerial() (*Collection[K, C], error) {
	dst := NewCollection(m.s1.SymbolSet(), m.s1.Algebra())
	f := m.newState(m.v1, m.v2, dst)
	estimate, estimated := m.presize(f)
	if err := m.blockedMultiplication(f); err != nil {
		return nil, err
	}
	if estimated {
		recordEstimate(m.logger, dst.Len(), estimate)
	}
	return dst, nil
}

// multState is the per-worker multiplication context: views of the
// operand term arrays, the private destination, and a reusable buffer
// for the fixed-arity result of one term-by-term product.
type multState[K comparable, C any] struct {
	m         *Multiplier[K, C]
	v1, v2    []*Term[K, C]
	dst       *Collection[K, C]
	tmp       []Term[K, C]
	skipping  bool
	filtering bool
}

func (m *Multiplier[K, C]) newState(v1, v2 []*Term[K, C], dst *Collection[K, C]) *multState[K, C] {
	active := m.trunc.IsActive()
	return &multState[K, C]{
		m:         m,
		v1:        v1,
		v2:        v2,
		dst:       dst,
		tmp:       make([]Term[K, C], m.s1.Algebra().Arity()),
		skipping:  active && m.trunc.IsSkipping(),
		filtering: active && m.trunc.IsFiltering(),
	}
}

func (f *multState[K, C]) multiply(i, j int) error {
	return f.m.s1.Algebra().MultiplyTerm(f.tmp, f.v1[i], f.v2[j], f.dst.SymbolSet())
}

func (f *multState[K, C]) skip(i, j int) bool {
	return f.skipping && f.m.trunc.Skip(f.v1[i], f.v2[j])
}

func (f *multState[K, C]) filter(t *Term[K, C]) bool {
	return f.filtering && f.m.trunc.Filter(t)
}

// insert accumulates the product terms in tmp into the destination.
// When the truncator is skipping, any necessary filtering is assumed to
// have been performed by skip and the terms are inserted
// unconditionally.
func (f *multState[K, C]) insert(checkFilter bool) error {
	for i := range f.tmp {
		if !f.skipping && checkFilter && f.filter(&f.tmp[i]) {
			continue
		}
		if err := f.dst.Insert(f.tmp[i]); err != nil {
			return err
		}
	}
	return nil
}

// presize estimates the final size and pre-sizes the destination with a
// single rehash, so that bulk insertion does not regrow incrementally.
// Small workloads skip the analysis. Estimation failures (overflow, a
// failing algebra operation during trials) are swallowed: the absence
// of an estimate is only ever a performance effect.
func (m *Multiplier[K, C]) presize(f *multState[K, C]) (estimate int, ok bool) {
	s1, s2 := len(f.v1), len(f.v2)
	if s2 == 0 || s1 < estimationThreshold/s2 {
		return 0, false
	}
	estimate, err := m.estimateSize(f)
	if err == nil {
		err = f.dst.table.Rehash(f.dst.table.minBuckets(estimate))
	}
	if err != nil {
		f.dst.Clear()
		return 0, false
	}
	return estimate, true
}

// estimateSize runs randomized pairing trials to predict the number of
// unique terms the multiplication will produce. Each trial shuffles
// index arrays for both operands and multiplies paired indices into the
// (empty) destination until the destination's size stops matching the
// running product count, which signals the first duplicate key; the
// pair count reached by then, averaged over the trials and squared,
// scaled by the safety multiplier and by the fraction of terms the
// truncator would filter out, is the estimate. The destination is left
// cleared.
func (m *Multiplier[K, C]) estimateSize(f *multState[K, C]) (int, error) {
	s1, s2 := len(f.v1), len(f.v2)
	if s1 == 0 || s2 == 0 {
		return 0, nil
	}
	idx1 := make([]int, s1)
	for i := range idx1 {
		idx1[i] = i
	}
	idx2 := make([]int, s2)
	for i := range idx2 {
		idx2[i] = i
	}
	// Cap on the number of pairings per trial before which a duplicate
	// must be generated: sqrt(size1*size2/multiplier).
	pairCap := new(big.Int).Mul(big.NewInt(int64(s1)), big.NewInt(int64(s2)))
	pairCap.Div(pairCap, big.NewInt(estimationMultiplier))
	pairCap.Sqrt(pairCap)
	maxM := int64(math.MaxInt64)
	if pairCap.IsInt64() {
		maxM = pairCap.Int64()
	}
	rng := rand.New(rand.NewSource(estimationSeed))
	var total, filtered int64
	for trial := 0; trial < estimationTrials; trial++ {
		rng.Shuffle(s1, func(i, j int) { idx1[i], idx1[j] = idx1[j], idx1[i] })
		rng.Shuffle(s2, func(i, j int) { idx2[i], idx2[j] = idx2[j], idx2[i] })
		var count, countFiltered int64
		i1, i2 := 0, 0
		for count < maxM {
			if i1 == s1 {
				// Each time the first operand wraps around, wrap the
				// second one too and rotate it by one position so that
				// new pairings are visited.
				i1 = 0
				last := idx2[s2-1]
				copy(idx2[1:], idx2[:s2-1])
				idx2[0] = last
				i2 = 0
			}
			if i2 == s2 {
				i2 = 0
			}
			if err := f.multiply(idx1[i1], idx2[i2]); err != nil {
				f.dst.Clear()
				return 0, err
			}
			if err := f.insert(false); err != nil {
				f.dst.Clear()
				return 0, err
			}
			arity := int64(len(f.tmp))
			if int64(f.dst.Len()) != count+arity {
				break
			}
			for i := range f.tmp {
				if f.filter(&f.tmp[i]) {
					countFiltered++
				}
			}
			count += arity
			i1++
			i2++
		}
		total += count
		filtered += countFiltered
		f.dst.Clear()
	}
	if total == 0 {
		return 0, nil
	}
	mean := total / estimationTrials
	est := new(big.Int).SetInt64(mean)
	est.Mul(est, est)
	est.Mul(est, big.NewInt(estimationMultiplier))
	est.Mul(est, big.NewInt(total-filtered))
	est.Div(est, big.NewInt(total))
	if !est.IsInt64() || est.Int64() > int64(maxBucketCount) {
		return 0, ErrOverflow
	}
	return int(est.Int64()), nil
}

// blockedMultiplication visits all index pairs (i, j) in fixed-size
// square blocks plus irregular remainder blocks, in the order
// full*full, full*remainder, remainder*full, remainder*remainder. The
// blocking keeps both operand ranges hot in cache; the visitation order
// does not affect the numeric result because accumulation is
// commutative and associative. A skipping truncator terminates each
// inner loop at the first skipped pair.
func (m *Multiplier[K, C]) blockedMultiplication(f *multState[K, C]) error {
	size1, size2 := len(f.v1), len(f.v2)
	const bs = multiplicationBlockSize
	nblocks1, nblocks2 := size1/bs, size2/bs
	irStart1, irStart2 := nblocks1*bs, nblocks2*bs

	inner := func(iStart, iEnd, jStart, jEnd int) error {
		for i := iStart; i < iEnd; i++ {
			for j := jStart; j < jEnd; j++ {
				if f.skip(i, j) {
					break
				}
				if err := f.multiply(i, j); err != nil {
					return err
				}
				if err := f.insert(true); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for n1 := 0; n1 < nblocks1; n1++ {
		iStart := n1 * bs
		for n2 := 0; n2 < nblocks2; n2++ {
			jStart := n2 * bs
			if err := inner(iStart, iStart+bs, jStart, jStart+bs); err != nil {
				return err
			}
		}
		if err := inner(iStart, iStart+bs, irStart2, size2); err != nil {
			return err
		}
	}
	for n2 := 0; n2 < nblocks2; n2++ {
		jStart := n2 * bs
		if err := inner(irStart1, size1, jStart, jStart+bs); err != nil {
			return err
		}
	}
	return inner(irStart1, size1, irStart2, size2)
}
