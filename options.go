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
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/phuslu/log"
)

// arrayOption provide an interface to do work on Array while it is being
// created.
type arrayOption[T any] interface {
	apply(a *Array[T])
}

// tableOption provide an interface to do work on Table while it is being
// created.
type tableOption[K, V any] interface {
	apply(t *Table[K, V])
}

// Allocator specifies an interface for allocating and releasing the buffers
// used by an Array. The default allocator utilizes Go's builtin make() and
// allows the GC to reclaim memory.
//
// Implementations must reject a negative count, or a count whose size in
// bytes overflows a uintptr, with ErrCapacityOverflow before attempting any
// allocation, and must return a nil slice without error for a count of zero.
// If the allocator is manually managing memory then Array.Close (or
// Table.Close) must be called to ensure Free is called.
type Allocator[T any] interface {
	// Alloc should return a slice equivalent to make([]T, n).
	Alloc(n int) ([]T, error)

	// Realloc should return a slice of n elements whose prefix holds
	// old[:min(len(old), n)]. On success ownership of old passes to the
	// allocator. On error old must be left untouched and is still owned by
	// the caller.
	Realloc(old []T, n int) ([]T, error)

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc or Realloc.
	Free(v []T)
}

type defaultAllocator[T any] struct{}

func (defaultAllocator[T]) Alloc(n int) (v []T, err error) {
	if err := checkAlloc[T](n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrAllocatorFailure, r)
		}
	}()
	return make([]T, n), nil
}

func (defaultAllocator[T]) Realloc(old []T, n int) (v []T, err error) {
	if err := checkAlloc[T](n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrAllocatorFailure, r)
		}
	}()
	v = make([]T, n)
	copy(v, old)
	return v, nil
}

func (defaultAllocator[T]) Free(v []T) {
}

// checkAlloc verifies that n elements of type T can be described by a byte
// count that fits in a uintptr.
func checkAlloc[T any](n int) error {
	if n < 0 {
		return fmt.Errorf("%w: count %d", ErrCapacityOverflow, n)
	}
	var t T
	if mulOverflows(uintptr(n), unsafe.Sizeof(t)) {
		return fmt.Errorf("%w: %d elements of %d bytes", ErrCapacityOverflow, n, unsafe.Sizeof(t))
	}
	return nil
}

// mulOverflows returns true if a*b does not fit in a uintptr.
func mulOverflows(a, b uintptr) bool {
	hi, _ := bits.Mul(uint(a), uint(b))
	return hi != 0
}

type allocatorOption[T any] struct {
	allocator Allocator[T]
}

func (op allocatorOption[T]) apply(a *Array[T]) {
	a.allocator = op.allocator
}

// WithAllocator is an option for specifying the Allocator to use for an
// Array[T].
func WithAllocator[T any](allocator Allocator[T]) arrayOption[T] {
	return allocatorOption[T]{allocator}
}

type arrayLoggerOption[T any] struct {
	logger *log.Logger
}

func (op arrayLoggerOption[T]) apply(a *Array[T]) {
	a.logger = op.logger
}

// WithArrayLogger is an option to trace resizes of an Array[T] at debug
// level. By default an Array does not log.
func WithArrayLogger[T any](logger *log.Logger) arrayOption[T] {
	return arrayLoggerOption[T]{logger}
}

type recordAllocatorOption[K, V any] struct {
	allocator Allocator[Record[K, V]]
}

func (op recordAllocatorOption[K, V]) apply(t *Table[K, V]) {
	t.recordAllocator = op.allocator
}

// WithRecordAllocator is an option for specifying the Allocator used for the
// dense record array of a Table[K,V].
func WithRecordAllocator[K, V any](allocator Allocator[Record[K, V]]) tableOption[K, V] {
	return recordAllocatorOption[K, V]{allocator}
}

type tableLoggerOption[K, V any] struct {
	logger *log.Logger
}

func (op tableLoggerOption[K, V]) apply(t *Table[K, V]) {
	t.logger = op.logger
}

// WithTableLogger is an option to trace tombstone reuse and compaction of a
// Table[K,V], and resizes of its record array, at debug level.
func WithTableLogger[K, V any](logger *log.Logger) tableOption[K, V] {
	return tableLoggerOption[K, V]{logger}
}
