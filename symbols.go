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
	"sort"
	"strings"
)

// SymbolSet is an ordered, immutable set of variable names shared by all
// terms of a collection. Two collections are multipliable only if their
// symbol sets are structurally equal: same names in the same positions.
// A SymbolSet is normalized at construction (sorted, no duplicates) and
// is safe for concurrent use.
type SymbolSet struct {
	names []string
}

// NewSymbolSet constructs a symbol set from the given names. The names
// are sorted; a duplicate name is an error.
func NewSymbolSet(names ...string) (*SymbolSet, error) {
	s := &SymbolSet{names: make([]string, len(names))}
	copy(s.names, names)
	sort.Strings(s.names)
	for i := 1; i < len(s.names); i++ {
		if s.names[i] == s.names[i-1] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSymbol, s.names[i])
		}
	}
	return s, nil
}

// MustSymbolSet is like NewSymbolSet but panics on error. Intended for
// fixed symbol sets known at compile time.
func MustSymbolSet(names ...string) *SymbolSet {
	s, err := NewSymbolSet(names...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of symbols in the set.
func (s *SymbolSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Name returns the i-th symbol name.
func (s *SymbolSet) Name(i int) string {
	return s.names[i]
}

// Names returns a copy of the ordered symbol names.
func (s *SymbolSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Index returns the position of name in the set, or ok=false if absent.
func (s *SymbolSet) Index(name string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i := sort.SearchStrings(s.names, name)
	if i < len(s.names) && s.names[i] == name {
		return i, true
	}
	return 0, false
}

// Equal reports structural equality: same names in the same order.
// Equality by permutation does not count.
func (s *SymbolSet) Equal(o *SymbolSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s == nil {
		return true
	}
	for i := range s.names {
		if s.names[i] != o.names[i] {
			return false
		}
	}
	return true
}

func (s *SymbolSet) String() string {
	return "{" + strings.Join(s.names, ", ") + "}"
}
