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
	"math/rand"
	"unsafe"
)

// hashFn hashes the pointed-to key with the given seed. In order to
// support hashing of arbitrary comparable keys, the hash function is
// extracted from Go's implementation of map[K]struct{} by reaching into
// the internals of the type. (This might break in a future version of
// Go, but is likely fixable unless the runtime does something drastic.)
type hashFn func(key unsafe.Pointer, seed uintptr) uintptr

func getRuntimeHasher[K comparable]() hashFn {
	a := any(make(map[K]struct{}))
	i := (*mapiface)(unsafe.Pointer(&a))
	return i.typ.hasher
}

// mapiface mirrors the memory layout of an interface holding a map, as
// laid out by the Go runtime.
type mapiface struct {
	typ *maptype
	val unsafe.Pointer
}

// maptype mirrors runtime.maptype (internal/abi.MapType). Only the
// hasher field is used; the leading fields exist to get its offset
// right.
type maptype struct {
	typ    _type
	key    *_type
	elem   *_type
	bucket *_type
	// hasher is the function for hashing keys: (ptr to key, seed) -> hash.
	hasher     func(unsafe.Pointer, uintptr) uintptr
	keysize    uint8
	elemsize   uint8
	bucketsize uint16
	flags      uint32
}

// _type mirrors runtime._type (internal/abi.Type).
type _type struct {
	size       uintptr
	ptrdata    uintptr
	hash       uint32
	tflag      uint8
	align      uint8
	fieldAlign uint8
	kind       uint8
	equal      func(unsafe.Pointer, unsafe.Pointer) bool
	gcdata     *byte
	str        int32
	ptrToThis  int32
}

// newTableSeed returns a per-table hash seed. Each table hashes with its
// own seed so that bucket placement is not reproducible across tables,
// except where a table deliberately copies another's geometry.
func newTableSeed() uintptr {
	return uintptr(rand.Uint64())
}

// noescape hides a pointer from escape analysis. noescape is the
// identity function but escape analysis doesn't think the output
// depends on the input. noescape is inlined and currently compiles down
// to zero instructions.
// USE CAREFULLY!
//
//go:nosplit
//go:nocheckptr
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
