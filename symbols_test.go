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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolSet(t *testing.T) {
	s, err := NewSymbolSet("y", "x", "z")
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	require.Equal(t, []string{"x", "y", "z"}, s.Names())
	require.Equal(t, "x", s.Name(0))

	i, ok := s.Index("y")
	require.True(t, ok)
	require.Equal(t, 1, i)
	_, ok = s.Index("w")
	require.False(t, ok)

	require.Equal(t, "{x, y, z}", s.String())
}

func TestSymbolSetDuplicate(t *testing.T) {
	_, err := NewSymbolSet("x", "y", "x")
	require.ErrorIs(t, err, ErrDuplicateSymbol)
	require.Panics(t, func() { MustSymbolSet("x", "x") })
}

func TestSymbolSetEqual(t *testing.T) {
	a := MustSymbolSet("x", "y")
	b := MustSymbolSet("y", "x")
	c := MustSymbolSet("x", "z")
	d := MustSymbolSet("x")

	// Construction normalizes ordering, so a permutation of the same
	// names builds an equal set.
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(d))
}

func TestSymbolSetNil(t *testing.T) {
	var s *SymbolSet
	require.Equal(t, 0, s.Len())
	_, ok := s.Index("x")
	require.False(t, ok)
	require.True(t, s.Equal(MustSymbolSet()))
}
