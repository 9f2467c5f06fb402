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
	"unsafe"

	"github.com/hashicorp/go-hclog"
)

// TableOption provides an interface to do work on a Table while it is
// being created.
type TableOption[K comparable, C any] interface {
	applyTable(t *Table[K, C])
}

type hashOption[K comparable, C any] struct {
	hash func(key *K, seed uintptr) uintptr
}

func (op hashOption[K, C]) applyTable(t *Table[K, C]) {
	t.hash = *(*hashFn)(noescape(unsafe.Pointer(&op.hash)))
}

// WithHash is an option to specify the hash function to use for a
// Table[K,C] in place of the runtime map hasher.
func WithHash[K comparable, C any](hash func(key *K, seed uintptr) uintptr) TableOption[K, C] {
	return hashOption[K, C]{hash}
}

type maxLoadFactorOption[K comparable, C any] struct {
	maxLoad float64
}

func (op maxLoadFactorOption[K, C]) applyTable(t *Table[K, C]) {
	if op.maxLoad > 0 {
		t.maxLoad = op.maxLoad
	}
}

// WithMaxLoadFactor is an option to specify the load factor above which
// the safe mutating operations of a Table[K,C] trigger growth. The
// default is 1.0. Non-positive values are ignored.
func WithMaxLoadFactor[K comparable, C any](maxLoad float64) TableOption[K, C] {
	return maxLoadFactorOption[K, C]{maxLoad}
}

// Option provides an interface to configure a single multiplication.
// Options override the process-wide tunables for the call they are
// passed to.
type Option[K comparable, C any] interface {
	apply(m *Multiplier[K, C])
}

type truncatorOption[K comparable, C any] struct {
	trunc Truncator[K, C]
}

func (op truncatorOption[K, C]) apply(m *Multiplier[K, C]) {
	if op.trunc != nil {
		m.trunc = op.trunc
	}
}

// WithTruncator is an option binding a truncator policy to a
// multiplication. The default truncator is inactive.
func WithTruncator[K comparable, C any](trunc Truncator[K, C]) Option[K, C] {
	return truncatorOption[K, C]{trunc}
}

type maxThreadsOption[K comparable, C any] struct {
	n int
}

func (op maxThreadsOption[K, C]) apply(m *Multiplier[K, C]) {
	if op.n >= 1 {
		m.maxThreads = op.n
	}
}

// WithMaxThreads is an option bounding the number of workers used by a
// multiplication, overriding the process-wide MaxThreads setting.
// Values below 1 are ignored.
func WithMaxThreads[K comparable, C any](n int) Option[K, C] {
	return maxThreadsOption[K, C]{n}
}

type minWorkOption[K comparable, C any] struct {
	n int
}

func (op minWorkOption[K, C]) apply(m *Multiplier[K, C]) {
	if op.n >= 1 {
		m.minWork = op.n
	}
}

// WithMinWorkPerThread is an option overriding the process-wide minimum
// number of term-by-term products each worker must have before an
// additional worker is used. Values below 1 are ignored.
func WithMinWorkPerThread[K comparable, C any](n int) Option[K, C] {
	return minWorkOption[K, C]{n}
}

type loggerOption[K comparable, C any] struct {
	logger hclog.Logger
}

func (op loggerOption[K, C]) apply(m *Multiplier[K, C]) {
	if op.logger != nil {
		m.logger = op.logger
	}
}

// WithLogger is an option directing a multiplication's size-estimate
// diagnostics to the given logger instead of the process-wide one.
func WithLogger[K comparable, C any](logger hclog.Logger) Option[K, C] {
	return loggerOption[K, C]{logger}
}
