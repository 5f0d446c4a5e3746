// Copyright 2024 The Cockroach Authors
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

package dense

import (
	"bytes"
	"encoding/binary"

	"github.com/pierrec/xxHash/xxHash64"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/constraints"
)

// HashFunc maps a key to an unsigned integer. It must return the same value
// for the same key for the lifetime of a Table.
type HashFunc[K any] func(key K) uint64

// EqualFunc reports whether two keys are equal. Keys that are equal must
// have equal hashes; a Table does not verify this.
type EqualFunc[K any] func(a, b K) bool

// HashString hashes s with XXH3.
func HashString(s string) uint64 {
	return xxh3.HashString(s)
}

// HashBytes hashes b with XXH64 and a zero seed.
func HashBytes(b []byte) uint64 {
	return xxHash64.Checksum(b, 0)
}

// HashInteger hashes the 8-byte little-endian encoding of k with XXH3.
func HashInteger[K constraints.Integer](k K) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	return xxh3.Hash(buf[:])
}

// Equal is an EqualFunc for comparable keys.
func Equal[K comparable](a, b K) bool {
	return a == b
}

// EqualBytes is an EqualFunc for []byte keys.
func EqualBytes(a, b []byte) bool {
	return bytes.Equal(a, b)
}
