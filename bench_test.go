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
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	var cases = []int{
		16,
		128,
		1024,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func genTableTerms(start, end int) []Term[int64, int64] {
	terms := make([]Term[int64, int64], end-start)
	for i := range terms {
		terms[i] = Term[int64, int64]{Key: int64(start + i), Cf: int64(start + i)}
	}
	return terms
}

func BenchmarkTableInsertGrow(b *testing.B) {
	b.Run("m=Builtin", benchSizes(func(b *testing.B, n int) {
		terms := genTableTerms(0, n)
		counters := perfbench.Open(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			m := make(map[int64]int64)
			for _, term := range terms {
				m[term.Key] = term.Cf
			}
		}
		counters.Stop()
	}))
	b.Run("m=Table", benchSizes(func(b *testing.B, n int) {
		terms := genTableTerms(0, n)
		counters := perfbench.Open(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			tbl, _ := NewTable[int64, int64](0)
			for _, term := range terms {
				_, _, _ = tbl.Insert(term)
			}
		}
		counters.Stop()
	}))
}

func BenchmarkTableFindHit(b *testing.B) {
	b.Run("m=Builtin", benchSizes(func(b *testing.B, n int) {
		terms := genTableTerms(0, n)
		m := make(map[int64]int64, n)
		for _, term := range terms {
			m[term.Key] = term.Cf
		}
		counters := perfbench.Open(b)
		b.ResetTimer()
		var sink int64
		for i := 0; i < b.N; i++ {
			sink += m[terms[i%n].Key]
		}
		counters.Stop()
	}))
	b.Run("m=Table", benchSizes(func(b *testing.B, n int) {
		terms := genTableTerms(0, n)
		tbl, _ := NewTable[int64, int64](n)
		for _, term := range terms {
			_, _, _ = tbl.Insert(term)
		}
		counters := perfbench.Open(b)
		b.ResetTimer()
		var sink int64
		for i := 0; i < b.N; i++ {
			h, _ := tbl.Find(terms[i%n].Key)
			sink += h.Term().Cf
		}
		counters.Stop()
	}))
}

func BenchmarkTableFindMiss(b *testing.B) {
	b.Run("m=Table", benchSizes(func(b *testing.B, n int) {
		terms := genTableTerms(0, n)
		miss := genTableTerms(-n, 0)
		tbl, _ := NewTable[int64, int64](n)
		for _, term := range terms {
			_, _, _ = tbl.Insert(term)
		}
		counters := perfbench.Open(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = tbl.Find(miss[i%n].Key)
		}
		counters.Stop()
	}))
}

func BenchmarkTableRehash(b *testing.B) {
	benchSizes(func(b *testing.B, n int) {
		terms := genTableTerms(0, n)
		counters := perfbench.Open(b)
		for i := 0; i < b.N; i++ {
			b.StopTimer()
			tbl, _ := NewTable[int64, int64](0)
			for _, term := range terms {
				_, _, _ = tbl.Insert(term)
			}
			target := tbl.BucketCount() * 4
			b.StartTimer()
			_ = tbl.Rehash(target)
		}
		counters.Stop()
	})(b)
}

func benchGridCollection(side int) *Collection[PackedMonomial, int64] {
	c := NewCollection[PackedMonomial, int64](testSymbols, Int64Algebra{})
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			_ = c.Insert(Term[PackedMonomial, int64]{Key: mono(uint(i), uint(j)), Cf: int64(i + j + 1)})
		}
	}
	return c
}

func BenchmarkMultiply(b *testing.B) {
	sides := []int{8, 16, 32, 64}
	threads := []int{1, 2, 4}
	for _, side := range sides {
		c := benchGridCollection(side)
		for _, n := range threads {
			b.Run("side="+strconv.Itoa(side)+"/threads="+strconv.Itoa(n), func(b *testing.B) {
				counters := perfbench.Open(b)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					_, err := Multiply(c, c,
						WithMaxThreads[PackedMonomial, int64](n),
						WithMinWorkPerThread[PackedMonomial, int64](1))
					if err != nil {
						b.Fatal(err)
					}
				}
				counters.Stop()
			})
		}
	}
}
