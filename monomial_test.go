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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackedMonomial(t *testing.T) {
	p, err := NewPackedMonomial(1, 2, 3, 4, 5, 6, 7, 255)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		require.Equal(t, uint(i+1), p.Exponent(i))
	}
	require.Equal(t, uint(255), p.Exponent(7))
	require.Equal(t, uint(1+2+3+4+5+6+7+255), p.Degree())

	zero, err := NewPackedMonomial()
	require.NoError(t, err)
	require.EqualValues(t, 0, zero)
	require.Equal(t, uint(0), zero.Degree())

	require.Equal(t, "[1 2 0 0 0 0 0 0]", MustPackedMonomial(1, 2).String())
}

func TestPackedMonomialErrors(t *testing.T) {
	_, err := NewPackedMonomial(1, 2, 3, 4, 5, 6, 7, 8, 9)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = NewPackedMonomial(256)
	require.ErrorIs(t, err, ErrOverflow)
	require.Panics(t, func() { MustPackedMonomial(1000) })
}

func TestPackedMonomialMul(t *testing.T) {
	a := MustPackedMonomial(1, 2, 3)
	b := MustPackedMonomial(10, 20, 30)
	p, err := a.Mul(b)
	require.NoError(t, err)
	require.Equal(t, MustPackedMonomial(11, 22, 33), p)

	// A field may reach exactly 255.
	p, err = MustPackedMonomial(200).Mul(MustPackedMonomial(55))
	require.NoError(t, err)
	require.Equal(t, uint(255), p.Exponent(0))

	// One more overflows, and the overflow must not leak into the
	// neighboring field.
	_, err = MustPackedMonomial(200).Mul(MustPackedMonomial(56))
	require.ErrorIs(t, err, ErrOverflow)
	_, err = MustPackedMonomial(255, 1).Mul(MustPackedMonomial(1, 1))
	require.ErrorIs(t, err, ErrOverflow)

	// Overflow in the top field is detected too.
	_, err = MustPackedMonomial(0, 0, 0, 0, 0, 0, 0, 255).Mul(MustPackedMonomial(0, 0, 0, 0, 0, 0, 0, 1))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestInt64AlgebraAddCf(t *testing.T) {
	var alg Int64Algebra
	sum, err := alg.AddCf(3, -5)
	require.NoError(t, err)
	require.EqualValues(t, -2, sum)

	_, err = alg.AddCf(math.MaxInt64, 1)
	require.ErrorIs(t, err, ErrOverflow)
	_, err = alg.AddCf(math.MinInt64, -1)
	require.ErrorIs(t, err, ErrOverflow)

	require.True(t, alg.CfIsZero(0))
	require.False(t, alg.CfIsZero(1))
	require.True(t, alg.CfEqual(4, 4))
	require.False(t, alg.CfEqual(4, -4))
}

func TestInt64AlgebraCompatible(t *testing.T) {
	var alg Int64Algebra
	xy := MustSymbolSet("x", "y")
	require.True(t, alg.Compatible(mono(1, 2), xy))
	require.False(t, alg.Compatible(MustPackedMonomial(0, 0, 1), xy))

	all := MustSymbolSet("a", "b", "c", "d", "e", "f", "g", "h")
	require.True(t, alg.Compatible(MustPackedMonomial(1, 1, 1, 1, 1, 1, 1, 1), all))

	nine := MustSymbolSet("a", "b", "c", "d", "e", "f", "g", "h", "i")
	require.False(t, alg.Compatible(0, nine))
}

func TestInt64AlgebraMultiplyTerm(t *testing.T) {
	var alg Int64Algebra
	require.Equal(t, 1, alg.Arity())

	dst := make([]Term[PackedMonomial, int64], 1)
	a := Term[PackedMonomial, int64]{Key: mono(1, 2), Cf: -3}
	b := Term[PackedMonomial, int64]{Key: mono(4, 0), Cf: 7}
	require.NoError(t, alg.MultiplyTerm(dst, &a, &b, testSymbols))
	require.Equal(t, Term[PackedMonomial, int64]{Key: mono(5, 2), Cf: -21}, dst[0])

	big := Term[PackedMonomial, int64]{Key: mono(0, 0), Cf: math.MaxInt64}
	two := Term[PackedMonomial, int64]{Key: mono(0, 0), Cf: 2}
	require.ErrorIs(t, alg.MultiplyTerm(dst, &big, &two, testSymbols), ErrOverflow)

	// MinInt64 * 1 is representable; MinInt64 * -1 is not.
	min := Term[PackedMonomial, int64]{Key: mono(0, 0), Cf: math.MinInt64}
	one := Term[PackedMonomial, int64]{Key: mono(0, 0), Cf: 1}
	negOne := Term[PackedMonomial, int64]{Key: mono(0, 0), Cf: -1}
	require.NoError(t, alg.MultiplyTerm(dst, &min, &one, testSymbols))
	require.EqualValues(t, math.MinInt64, dst[0].Cf)
	require.ErrorIs(t, alg.MultiplyTerm(dst, &min, &negOne, testSymbols), ErrOverflow)
}
