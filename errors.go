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

import "errors"

// Errors returned by Array, Table and the default Allocator. Callers should
// test for them with errors.Is as most call sites wrap them with context.
// Errors returned by caller-supplied destructors are never wrapped.
var (
	// ErrMalformed indicates that a container's internal invariants were
	// violated on entry to an operation (nil receiver, zero value, or
	// inconsistent length and capacity).
	ErrMalformed = errors.New("dense: malformed container")

	// ErrOutOfBounds indicates an index outside the valid range.
	ErrOutOfBounds = errors.New("dense: index out of bounds")

	// ErrElementSizeZero indicates an element type with a size of zero.
	ErrElementSizeZero = errors.New("dense: element size is zero")

	// ErrCapacityOverflow indicates that capacity*elementSize does not fit
	// in a uintptr, or that a negative capacity was requested.
	ErrCapacityOverflow = errors.New("dense: capacity overflows")

	// ErrAllocatorFailure indicates that the allocator could not provide the
	// requested memory.
	ErrAllocatorFailure = errors.New("dense: allocation failed")

	// ErrNullArgument indicates a required argument (receiver, hash function,
	// equality function) was nil.
	ErrNullArgument = errors.New("dense: nil argument")

	// ErrDivisionByZero indicates a hash operation on a zero-capacity table.
	ErrDivisionByZero = errors.New("dense: table has zero capacity")

	// ErrNoRoom indicates that a table cannot accept another entry.
	ErrNoRoom = errors.New("dense: table is full")
)
