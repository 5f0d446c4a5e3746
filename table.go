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
	"strings"
	"unsafe"

	"github.com/phuslu/log"
)

// Each slot in the table is in one of three states. The zero value of a slot
// is empty.
//
//	    empty: never held an entry since the last Compact; ends a probe
//	tombstone: held an entry that was removed; probing continues past it
//	 occupied: holds the index of a live Record in Table.items
type slotState uint8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

type slot struct {
	state slotState
	// index is only meaningful when state == slotOccupied.
	index int
}

func (s slot) String() string {
	switch s.state {
	case slotEmpty:
		return "empty"
	case slotTombstone:
		return "tombstone"
	default:
		return fmt.Sprintf("%d", s.index)
	}
}

// Record holds a key, its value and the key's cached hash. Records are
// stored densely in a Table's record Array and are addressed by the Table's
// slots. A removed record is reset to the zero Record, which is never live.
type Record[K, V any] struct {
	hashcode uint64
	key      K
	value    V
	live     bool
}

// Table is a fixed-capacity hash table from keys to values using linear
// probing over a slot array. Records are appended to a dense Array and slots
// refer to them by index. The hash and equality functions are supplied by the
// caller and must be consistent with each other.
//
// A Table never grows: once Len() == Cap() inserts of new keys fail with
// ErrNoRoom until a key is removed.
//
// A Table is NOT goroutine-safe.
type Table[K, V any] struct {
	// slots is capacity in length.
	slots []slot
	// The number of slots, fixed at construction.
	capacity int
	// The number of live entries.
	used int
	// The number of slots in the tombstone state.
	tombstones int
	hash       HashFunc[K]
	equal      EqualFunc[K]
	// items holds every record appended since the last Compact, live or not.
	items           *Array[Record[K, V]]
	recordAllocator Allocator[Record[K, V]]
	logger          *log.Logger
}

// NewTable constructs a new Table with capacity slots, all empty. A
// capacity of 0 is accepted, but every Insert and Remove on such a table
// fails with ErrDivisionByZero.
func NewTable[K, V any](
	capacity int, hash HashFunc[K], equal EqualFunc[K], options ...tableOption[K, V],
) (*Table[K, V], error) {
	if hash == nil {
		return nil, fmt.Errorf("%w: hash function", ErrNullArgument)
	}
	if equal == nil {
		return nil, fmt.Errorf("%w: equality function", ErrNullArgument)
	}

	t := &Table[K, V]{
		capacity:        capacity,
		hash:            hash,
		equal:           equal,
		recordAllocator: defaultAllocator[Record[K, V]]{},
	}
	for _, op := range options {
		op.apply(t)
	}

	// Freshly allocated slots are zeroed, which is slotEmpty.
	slots, err := defaultAllocator[slot]{}.Alloc(capacity)
	if err != nil {
		return nil, err
	}
	t.slots = slots

	t.items, err = NewArray[Record[K, V]](capacity,
		WithAllocator[Record[K, V]](t.recordAllocator),
		WithArrayLogger[Record[K, V]](t.logger))
	if err != nil {
		return nil, err
	}

	t.checkInvariants()
	return t, nil
}

// Close runs destroyKey and destroyValue over every live entry in record
// order and releases the record array and the slots. Destructor failures do
// not stop the teardown; the first error is returned. Afterwards the Table
// has zero capacity. Close is idempotent.
func (t *Table[K, V]) Close(destroyKey Destructor[K], destroyValue Destructor[V]) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrNullArgument)
	}
	err := t.items.Close(func(r *Record[K, V]) error {
		if !r.live {
			return nil
		}
		return destroyRecord(r, destroyKey, destroyValue)
	})
	t.slots = nil
	t.capacity = 0
	t.used = 0
	t.tombstones = 0
	return err
}

// Insert associates value with key. If key is already present its current
// value is passed to destroyValue and then overwritten; the stored key is
// kept. If destroyValue fails its error is returned and the old value is
// left in place. Inserting a new key into a table holding Cap() entries
// fails with ErrNoRoom.
func (t *Table[K, V]) Insert(key K, value V, destroyValue Destructor[V]) error {
	if err := t.checkUsable(); err != nil {
		return err
	}

	// Dead records are only reclaimed by Compact. Bound them so that the
	// record array does not grow without limit under churn.
	if t.items.Len()-t.used >= t.capacity {
		if err := t.Compact(); err != nil {
			return err
		}
	}

	h := t.hash(key)
	pos, err := t.probe(key, h, true /* preferTombstone */)
	if err != nil {
		return err
	}

	s := &t.slots[pos]
	if s.state == slotOccupied {
		r, err := t.record(s.index)
		if err != nil {
			return err
		}
		if err := callDestructor(destroyValue, &r.value); err != nil {
			return err
		}
		r.value = value
		t.checkInvariants()
		return nil
	}

	// probe can hand back an empty or tombstone slot even when every entry
	// is live, so the live count is the authority on whether there is room.
	if t.used >= t.capacity {
		return fmt.Errorf("%w: %d entries", ErrNoRoom, t.used)
	}
	if err := t.items.Append(Record[K, V]{hashcode: h, key: key, value: value, live: true}); err != nil {
		return err
	}
	if s.state == slotTombstone {
		t.tombstones--
		if t.logger != nil {
			t.logger.Debug().Int("slot", pos).Int("tombstones", t.tombstones).
				Msg("dense: table reused tombstone")
		}
	}
	*s = slot{state: slotOccupied, index: t.items.Len() - 1}
	t.used++

	t.checkInvariants()
	return nil
}

// Search returns a pointer to the value associated with key, or nil if key
// is not present or the table has zero capacity. The pointer is only valid
// until the next mutating operation on the Table.
func (t *Table[K, V]) Search(key K) *V {
	if t == nil || t.capacity == 0 {
		return nil
	}
	pos, err := t.probe(key, t.hash(key), false /* preferTombstone */)
	if err != nil || pos == notFound {
		return nil
	}
	s := t.slots[pos]
	if s.state != slotOccupied {
		return nil
	}
	r, err := t.record(s.index)
	if err != nil {
		return nil
	}
	return &r.value
}

// Get retrieves the value for the specified key, returning ok=false if the
// key is not present.
func (t *Table[K, V]) Get(key K) (value V, ok bool) {
	if v := t.Search(key); v != nil {
		return *v, true
	}
	return value, false
}

// Contains reports whether key is present.
func (t *Table[K, V]) Contains(key K) bool {
	return t.Search(key) != nil
}

// Remove deletes the entry for key, passing its key to destroyKey and its
// value to destroyValue. It is a noop to remove a non-existent key. The entry
// is removed even if a destructor fails; destroyValue is called even if
// destroyKey failed, and the first failure is returned.
func (t *Table[K, V]) Remove(key K, destroyKey Destructor[K], destroyValue Destructor[V]) error {
	if err := t.checkUsable(); err != nil {
		return err
	}

	pos, err := t.probe(key, t.hash(key), false /* preferTombstone */)
	if err != nil {
		return err
	}
	if pos == notFound || t.slots[pos].state != slotOccupied {
		return nil
	}

	r, err := t.record(t.slots[pos].index)
	if err != nil {
		return err
	}
	// The slot must never go back to empty: a later key whose probe passed
	// through this slot would become unreachable.
	t.slots[pos] = slot{state: slotTombstone}
	t.tombstones++
	err = destroyRecord(r, destroyKey, destroyValue)
	*r = Record[K, V]{}
	t.used--

	t.checkInvariants()
	return err
}

// Len returns the number of entries in the table.
func (t *Table[K, V]) Len() int {
	return t.used
}

// Cap returns the number of slots in the table, which is also the maximum
// number of entries.
func (t *Table[K, V]) Cap() int {
	return t.capacity
}

// Tombstones returns the number of slots holding a tombstone.
func (t *Table[K, V]) Tombstones() int {
	return t.tombstones
}

// MemoryFootprint returns the size in bytes of the slot array plus the
// record array, including dead records not yet reclaimed by Compact.
func (t *Table[K, V]) MemoryFootprint() uintptr {
	if t == nil {
		return 0
	}
	n := uintptr(len(t.slots)) * unsafe.Sizeof(slot{})
	if t.items != nil {
		n += t.items.MemoryFootprint()
	}
	return n
}

// String returns a debug representation of the table listing every slot.
func (t *Table[K, V]) String() string {
	if t == nil {
		return "<nil>"
	}
	records := 0
	if t.items != nil {
		records = t.items.Len()
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  tombstones=%d  records=%d\n",
		t.capacity, t.used, t.tombstones, records)
	for i, s := range t.slots {
		if s.state != slotOccupied {
			fmt.Fprintf(&buf, "  %4d: %s\n", i, s)
			continue
		}
		r, err := t.record(s.index)
		if err != nil {
			fmt.Fprintf(&buf, "  %4d: %s [%v]\n", i, s, err)
			continue
		}
		fmt.Fprintf(&buf, "  %4d: %s [hash=%016x] %v => %v\n", i, s, r.hashcode, r.key, r.value)
	}
	return buf.String()
}

func (t *Table[K, V]) checkUsable() error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrNullArgument)
	}
	if t.capacity == 0 {
		return ErrDivisionByZero
	}
	return nil
}

// record returns the record at index i of the record array.
func (t *Table[K, V]) record(i int) (*Record[K, V], error) {
	r, err := t.items.Search(i)
	if err != nil {
		return nil, fmt.Errorf("%w: slot refers to record %d: %v", ErrMalformed, i, err)
	}
	return r, nil
}

func destroyRecord[K, V any](r *Record[K, V], destroyKey Destructor[K], destroyValue Destructor[V]) error {
	keyErr := callDestructor(destroyKey, &r.key)
	valueErr := callDestructor(destroyValue, &r.value)
	if keyErr != nil {
		return keyErr
	}
	return valueErr
}

func (t *Table[K, V]) checkInvariants() {
	if invariants {
		if t.used > t.capacity {
			panic(fmt.Sprintf("invariant failed: %d entries exceed capacity %d\n%s",
				t.used, t.capacity, t))
		}

		var used, tombstones int
		seen := make(map[int]int)
		for i, s := range t.slots {
			switch s.state {
			case slotEmpty:
			case slotTombstone:
				tombstones++
			case slotOccupied:
				used++
				if j, ok := seen[s.index]; ok {
					panic(fmt.Sprintf("invariant failed: slots %d and %d share record %d\n%s",
						j, i, s.index, t))
				}
				seen[s.index] = i
				r, err := t.record(s.index)
				if err != nil {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v\n%s", i, err, t))
				}
				if !r.live {
					panic(fmt.Sprintf("invariant failed: slot(%d): record %d is dead\n%s",
						i, s.index, t))
				}
				// Every live key must be reachable by a probe, and must be
				// reached at this slot since keys are unique.
				if pos, err := t.probe(r.key, r.hashcode, false); err != nil || pos != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v found at %d (%v)\n%s",
						i, r.key, pos, err, t))
				}
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): unknown state %d", i, s.state))
			}
		}

		if used != t.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, t.used, t))
		}
		if tombstones != t.tombstones {
			panic(fmt.Sprintf("invariant failed: found %d tombstones, but tombstone count is %d\n%s",
				tombstones, t.tombstones, t))
		}

		var live int
		for i := 0; i < t.items.Len(); i++ {
			if r, _ := t.record(i); r.live {
				live++
			}
		}
		if live != t.used {
			panic(fmt.Sprintf("invariant failed: found %d live records, but used count is %d\n%s",
				live, t.used, t))
		}
	}
}
