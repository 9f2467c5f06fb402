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
	"math/bits"
	"strings"
)

// packedFields is the number of exponent slots in a PackedMonomial.
const packedFields = 8

// PackedMonomial is a monomial key packing up to 8 unsigned exponents
// of 8 bits each into one word. Field i occupies bits [8i, 8i+8);
// symbols beyond the symbol set's length must stay zero. Monomial
// multiplication is field-wise exponent addition.
type PackedMonomial uint64

// NewPackedMonomial packs the given exponents, field 0 first. More than
// 8 exponents or an exponent above 255 reports ErrOverflow.
func NewPackedMonomial(exps ...uint) (PackedMonomial, error) {
	if len(exps) > packedFields {
		return 0, fmt.Errorf("%w: %d exponent fields", ErrOverflow, len(exps))
	}
	var p PackedMonomial
	for i, e := range exps {
		if e > 0xff {
			return 0, fmt.Errorf("%w: exponent %d in field %d", ErrOverflow, e, i)
		}
		p |= PackedMonomial(e) << (8 * i)
	}
	return p, nil
}

// MustPackedMonomial is NewPackedMonomial panicking on error, for
// literals in tests and examples.
func MustPackedMonomial(exps ...uint) PackedMonomial {
	p, err := NewPackedMonomial(exps...)
	if err != nil {
		panic(err)
	}
	return p
}

// Exponent returns the exponent stored in field i.
func (p PackedMonomial) Exponent(i int) uint {
	return uint(p>>(8*i)) & 0xff
}

// Degree returns the sum of all exponent fields.
func (p PackedMonomial) Degree() uint {
	var d uint
	for i := 0; i < packedFields; i++ {
		d += p.Exponent(i)
	}
	return d
}

// Mul returns the product monomial, adding exponents field by field. A
// field sum above 255 reports ErrOverflow.
func (p PackedMonomial) Mul(o PackedMonomial) (PackedMonomial, error) {
	// A field overflows exactly when the word-wide addition carries out
	// of the field's top bit, so one add plus the bitwise carry-out
	// recovery checks all 8 fields at once.
	const highBits = 0x8080808080808080
	sum := uint64(p) + uint64(o)
	carries := (uint64(p) & uint64(o)) | ((uint64(p) | uint64(o)) &^ sum)
	if carries&highBits != 0 {
		return 0, fmt.Errorf("%w: exponent field in %v * %v", ErrOverflow, p, o)
	}
	return PackedMonomial(sum), nil
}

func (p PackedMonomial) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < packedFields; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", p.Exponent(i))
	}
	b.WriteByte(']')
	return b.String()
}

// Int64Algebra is the algebra of polynomials with int64 coefficients
// and PackedMonomial keys. All operations are exact: coefficient or
// exponent overflow reports ErrOverflow instead of wrapping.
type Int64Algebra struct{}

func (Int64Algebra) AddCf(a, b int64) (int64, error) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

func (Int64Algebra) CloneCf(c int64) (int64, error) { return c, nil }

func (Int64Algebra) CfIsZero(c int64) bool { return c == 0 }

func (Int64Algebra) CfEqual(a, b int64) bool { return a == b }

// Compatible requires that the symbol set fits the packed fields and
// that fields beyond it are zero.
func (Int64Algebra) Compatible(k PackedMonomial, s *SymbolSet) bool {
	n := s.Len()
	if n > packedFields {
		return false
	}
	return n == packedFields || uint64(k)>>(8*n) == 0
}

func (Int64Algebra) MultiplyTerm(dst []Term[PackedMonomial, int64], a, b *Term[PackedMonomial, int64], _ *SymbolSet) error {
	key, err := a.Key.Mul(b.Key)
	if err != nil {
		return err
	}
	hi, lo := bits.Mul64(uint64(abs64(a.Cf)), uint64(abs64(b.Cf)))
	neg := (a.Cf < 0) != (b.Cf < 0)
	if hi != 0 || (!neg && lo > 1<<63-1) || (neg && lo > 1<<63) {
		return fmt.Errorf("%w: %d * %d", ErrOverflow, a.Cf, b.Cf)
	}
	cf := int64(lo)
	if neg {
		cf = -int64(lo)
	}
	dst[0] = Term[PackedMonomial, int64]{Key: key, Cf: cf}
	return nil
}

func (Int64Algebra) Arity() int { return 1 }

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
