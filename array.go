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

// Package dense provides two generic in-memory containers: Array, a
// resizable contiguous array of fixed-size elements, and Table, a
// fixed-capacity open-addressing hash table that keeps its records densely
// packed in an Array.
//
// # Array
//
// An Array owns a single buffer of Cap() elements of which the first Len()
// are live. Inserting into a full Array doubles its capacity (or raises it to
// 4 if it is smaller than that) before shifting elements right to open a
// hole. Removing an element shifts the tail left, and if the Array is left at
// most a quarter full its capacity is halved (but never below 4). Growing at
// 100% load and shrinking at 25% load leaves a hysteresis band so that
// alternating Insert and Remove at a boundary never reallocates repeatedly.
//
// Elements are stored by value. Anything an element owns is released by a
// caller-supplied Destructor when the element is replaced, removed or when
// the Array is closed.
//
// # Table
//
// A Table is a fixed array of slots, each of which is empty, a tombstone, or
// holds the index of a record in the Table's record Array. Keys are placed by
// linear probing starting at hash(key) mod capacity. Deleting a key turns its
// slot into a tombstone rather than back into an empty slot: an empty slot
// terminates a probe, so reverting to empty would hide every key that probed
// past the deleted one. Tombstones are reused by later inserts and are
// dropped altogether by Compact, which rebuilds the slots from the live
// records.
//
// Neither container is goroutine-safe. Pointers returned by Search are
// borrowed and become invalid on the next mutating call.
package dense

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/phuslu/log"
)

// minCapacity is the smallest capacity an Array grows to or shrinks to.
const minCapacity = 4

// Destructor releases whatever the element pointed to by item owns. A nil
// Destructor is a no-op. An error returned by a Destructor is passed back to
// the caller unchanged.
type Destructor[T any] func(item *T) error

// Array is a resizable contiguous array of elements of type T with explicit
// growth and shrink policy. The zero value for an Array is not usable; use
// NewArray.
//
// An Array is NOT goroutine-safe.
type Array[T any] struct {
	// items is capacity in length. Only items[:length] are live, the
	// remainder is zeroed.
	items    []T
	length   int
	capacity int
	// elemSize is unsafe.Sizeof(T). It is recorded at construction so that
	// a zero value Array is detectably malformed.
	elemSize  uintptr
	allocator Allocator[T]
	logger    *log.Logger
}

// NewArray constructs a new Array with room for capacity elements. A
// capacity of 0 is permitted and the Array will allocate on the first insert.
// NewArray fails with ErrElementSizeZero if T occupies no memory.
func NewArray[T any](capacity int, options ...arrayOption[T]) (*Array[T], error) {
	var t T
	a := &Array[T]{
		elemSize:  unsafe.Sizeof(t),
		allocator: defaultAllocator[T]{},
	}
	if a.elemSize == 0 {
		return nil, ErrElementSizeZero
	}

	for _, op := range options {
		op.apply(a)
	}

	items, err := a.allocator.Alloc(capacity)
	if err != nil {
		return nil, err
	}
	if len(items) != capacity {
		a.allocator.Free(items)
		return nil, fmt.Errorf("%w: allocator returned %d elements, wanted %d",
			ErrAllocatorFailure, len(items), capacity)
	}
	a.items = items
	a.capacity = capacity

	a.checkInvariants()
	return a, nil
}

// Close runs destroy over every live element in index order and releases the
// buffer back to the allocator. If destroy fails for some element the
// remaining elements are still destroyed and the buffer still released; the
// first error is returned. Afterwards the Array is empty with zero capacity.
// Close is idempotent.
func (a *Array[T]) Close(destroy Destructor[T]) error {
	if err := a.checkMalformed(); err != nil {
		return err
	}

	var firstErr error
	for i := 0; i < a.length; i++ {
		if err := callDestructor(destroy, &a.items[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.capacity > 0 {
		a.allocator.Free(a.items)
	}
	a.items = nil
	a.length = 0
	a.capacity = 0
	return firstErr
}

// Insert inserts item at index i, shifting the elements at [i, Len()) one
// position to the right. The valid range for i is [0, Len()]; inserting at
// Len() appends. If the Array is full it is grown first, and a failed
// growth leaves the Array unmodified.
func (a *Array[T]) Insert(i int, item T) error {
	if err := a.checkMalformed(); err != nil {
		return err
	}
	if i < 0 || i > a.length {
		return fmt.Errorf("%w: insert at %d with length %d", ErrOutOfBounds, i, a.length)
	}

	// Grow before opening the hole so that the shift always has room.
	if a.length == a.capacity {
		if err := a.resize(growCapacity(a.capacity)); err != nil {
			return err
		}
	}

	copy(a.items[i+1:a.length+1], a.items[i:a.length])
	a.length++
	a.items[i] = item

	a.checkInvariants()
	return nil
}

// Append inserts item at the end of the Array.
func (a *Array[T]) Append(item T) error {
	if err := a.checkMalformed(); err != nil {
		return err
	}
	return a.Insert(a.length, item)
}

// Search returns a pointer to the element at index i. The pointer is only
// valid until the next mutating operation on the Array.
func (a *Array[T]) Search(i int) (*T, error) {
	if err := a.checkMalformed(); err != nil {
		return nil, err
	}
	if err := a.checkIndex(i); err != nil {
		return nil, err
	}
	return &a.items[i], nil
}

// Replace destroys the element at index i and copies item into its place. If
// destroy fails its error is returned and the element is left as is.
func (a *Array[T]) Replace(i int, item T, destroy Destructor[T]) error {
	if err := a.checkMalformed(); err != nil {
		return err
	}
	if err := a.checkIndex(i); err != nil {
		return err
	}
	if err := callDestructor(destroy, &a.items[i]); err != nil {
		return err
	}
	a.items[i] = item
	return nil
}

// Remove destroys the element at index i and shifts the elements at
// (i, Len()) one position to the left. If destroy fails its error is
// returned and the Array is left unmodified. After the removal the Array is
// shrunk if it is at most a quarter full. A failure to shrink is not
// reported: the element is gone and the Array keeps its larger buffer.
func (a *Array[T]) Remove(i int, destroy Destructor[T]) error {
	if err := a.checkMalformed(); err != nil {
		return err
	}
	if err := a.checkIndex(i); err != nil {
		return err
	}
	if err := callDestructor(destroy, &a.items[i]); err != nil {
		return err
	}

	copy(a.items[i:a.length-1], a.items[i+1:a.length])
	a.length--
	var zero T
	a.items[a.length] = zero

	if a.length <= a.capacity/4 {
		if newCapacity := shrinkCapacity(a.capacity); newCapacity < a.capacity {
			if err := a.resize(newCapacity); err != nil && a.logger != nil {
				a.logger.Debug().Err(err).
					Int("capacity", a.capacity).
					Int("length", a.length).
					Msg("dense: array shrink failed")
			}
		}
	}

	a.checkInvariants()
	return nil
}

// Pop removes the last element of the Array.
func (a *Array[T]) Pop(destroy Destructor[T]) error {
	if err := a.checkMalformed(); err != nil {
		return err
	}
	return a.Remove(a.length-1, destroy)
}

// Len returns the number of live elements in the Array.
func (a *Array[T]) Len() int {
	return a.length
}

// Cap returns the number of elements the Array can hold before growing.
func (a *Array[T]) Cap() int {
	return a.capacity
}

// ElemSize returns the size in bytes of a single element.
func (a *Array[T]) ElemSize() uintptr {
	return a.elemSize
}

// MemoryFootprint returns the size in bytes of the Array's buffer.
func (a *Array[T]) MemoryFootprint() uintptr {
	if a == nil {
		return 0
	}
	return uintptr(a.capacity) * a.elemSize
}

// String returns a debug representation of the Array of the form
// "(len: 2, cap: 4, size: 8) [1, 2]".
func (a *Array[T]) String() string {
	if a == nil {
		return "<nil>"
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "(len: %d, cap: %d, size: %d) [", a.length, a.capacity, a.elemSize)
	for i := 0; i < a.length && i < len(a.items); i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%v", a.items[i])
	}
	buf.WriteString("]")
	return buf.String()
}

// resize reallocates the buffer to hold newCapacity elements. The caller
// guarantees newCapacity >= length. On failure the Array is unchanged.
func (a *Array[T]) resize(newCapacity int) error {
	items, err := a.allocator.Realloc(a.items, newCapacity)
	if err != nil {
		return err
	}
	if len(items) != newCapacity {
		a.allocator.Free(items)
		return fmt.Errorf("%w: allocator returned %d elements, wanted %d",
			ErrAllocatorFailure, len(items), newCapacity)
	}

	if a.logger != nil {
		a.logger.Debug().
			Int("from", a.capacity).
			Int("to", newCapacity).
			Int("length", a.length).
			Msg("dense: array resize")
	}

	a.items = items
	a.capacity = newCapacity
	return nil
}

// checkMalformed verifies the structural invariants every operation relies
// on.
func (a *Array[T]) checkMalformed() error {
	switch {
	case a == nil:
		return fmt.Errorf("%w: nil array", ErrMalformed)
	case a.elemSize == 0:
		return fmt.Errorf("%w: element size is zero", ErrMalformed)
	case a.allocator == nil:
		return fmt.Errorf("%w: no allocator", ErrMalformed)
	case a.capacity > 0 && a.items == nil:
		return fmt.Errorf("%w: capacity %d without buffer", ErrMalformed, a.capacity)
	case len(a.items) != a.capacity:
		return fmt.Errorf("%w: buffer holds %d elements, capacity is %d",
			ErrMalformed, len(a.items), a.capacity)
	case a.length < 0 || a.capacity < a.length:
		return fmt.Errorf("%w: length %d exceeds capacity %d", ErrMalformed, a.length, a.capacity)
	case mulOverflows(uintptr(a.capacity), a.elemSize):
		return fmt.Errorf("%w: capacity %d overflows", ErrMalformed, a.capacity)
	}
	return nil
}

func (a *Array[T]) checkIndex(i int) error {
	if i < 0 || i >= a.length {
		return fmt.Errorf("%w: index %d with length %d", ErrOutOfBounds, i, a.length)
	}
	return nil
}

func (a *Array[T]) checkInvariants() {
	if invariants {
		if err := a.checkMalformed(); err != nil {
			panic(fmt.Sprintf("invariant failed: %v\n%s", err, a))
		}
		for i := a.length; i < a.capacity; i++ {
			if !reflect.ValueOf(&a.items[i]).Elem().IsZero() {
				panic(fmt.Sprintf("invariant failed: dead element %d not zeroed\n%s", i, a))
			}
		}
	}
}

func growCapacity(capacity int) int {
	if capacity >= minCapacity {
		return capacity * 2
	}
	return minCapacity
}

func shrinkCapacity(capacity int) int {
	return max(capacity/2, minCapacity)
}

func callDestructor[T any](destroy Destructor[T], item *T) error {
	if destroy == nil {
		return nil
	}
	return destroy(item)
}
