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

import "fmt"

// notFound is returned by probe when the sequence was exhausted without
// finding the key or a slot to place it in.
const notFound = -1

// probeSeq maintains the state for a linear probe sequence that starts at
// hash mod capacity and visits every slot exactly once, wrapping around at
// the end of the slot array:
//
//	p(i) := (home + i) mod capacity
type probeSeq struct {
	home     int
	offset   int
	capacity int
}

func makeProbeSeq(hash uint64, capacity int) probeSeq {
	return probeSeq{
		home:     int(hash % uint64(capacity)),
		capacity: capacity,
	}
}

func (s probeSeq) pos() int {
	p := s.home + s.offset
	if p >= s.capacity {
		p -= s.capacity
	}
	return p
}

func (s probeSeq) next() probeSeq {
	s.offset++
	return s
}

func (s probeSeq) done() bool {
	return s.offset >= s.capacity
}

// probe walks the probe sequence for key. It returns the position of the
// slot holding key if present. Otherwise it returns the position of the
// first empty slot on the sequence, since the key cannot lie beyond it.
//
// If the sequence is exhausted without meeting an empty slot, a search
// (preferTombstone == false) gets notFound. An insert (preferTombstone ==
// true) gets the first tombstone seen, or ErrNoRoom if there was none.
//
// The caller distinguishes a hit from a landing slot by the state of the
// returned slot. The capacity must be non-zero.
func (t *Table[K, V]) probe(key K, hash uint64, preferTombstone bool) (int, error) {
	firstTombstone := notFound
	for seq := makeProbeSeq(hash, t.capacity); !seq.done(); seq = seq.next() {
		pos := seq.pos()
		switch s := t.slots[pos]; s.state {
		case slotEmpty:
			return pos, nil
		case slotTombstone:
			if firstTombstone == notFound {
				firstTombstone = pos
			}
		case slotOccupied:
			r, err := t.record(s.index)
			if err != nil {
				return notFound, err
			}
			if r.hashcode == hash && t.equal(r.key, key) {
				return pos, nil
			}
		}
	}

	if !preferTombstone {
		return notFound, nil
	}
	if firstTombstone == notFound {
		return notFound, fmt.Errorf("%w: all %d slots occupied", ErrNoRoom, t.capacity)
	}
	return firstTombstone, nil
}

// place stores index in the first empty slot on the probe sequence for hash.
// It does not compare keys and never considers tombstones, so it is only
// valid while rebuilding slots whose keys are known to be distinct.
func (t *Table[K, V]) place(hash uint64, index int) error {
	for seq := makeProbeSeq(hash, t.capacity); !seq.done(); seq = seq.next() {
		if pos := seq.pos(); t.slots[pos].state == slotEmpty {
			t.slots[pos] = slot{state: slotOccupied, index: index}
			return nil
		}
	}
	return fmt.Errorf("%w: no empty slot for record %d", ErrNoRoom, index)
}
