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

// Compact removes every tombstone from the table and every dead record from
// the record array. Live records are moved to the front of the record array
// in their existing order, all slots are reset to empty, and each live record
// is placed again by its cached hash. The set of entries is unchanged, but
// pointers previously returned by Search are invalidated.
//
// Insert calls Compact on its own once the number of dead records reaches
// Cap(), so explicit calls are only needed to shorten probe sequences sooner.
func (t *Table[K, V]) Compact() error {
	if err := t.checkUsable(); err != nil {
		return err
	}

	records := t.items.Len()
	live := 0
	for i := 0; i < records; i++ {
		r, err := t.record(i)
		if err != nil {
			return err
		}
		if !r.live {
			continue
		}
		if i != live {
			dst, err := t.record(live)
			if err != nil {
				return err
			}
			*dst = *r
			*r = Record[K, V]{}
		}
		live++
	}
	// Every record past live is now the zero Record, so there is nothing
	// to destroy.
	for t.items.Len() > live {
		if err := t.items.Pop(nil); err != nil {
			return err
		}
	}

	for i := range t.slots {
		t.slots[i] = slot{}
	}
	t.tombstones = 0
	for i := 0; i < live; i++ {
		r, err := t.record(i)
		if err != nil {
			return err
		}
		if err := t.place(r.hashcode, i); err != nil {
			return err
		}
	}

	if t.logger != nil {
		t.logger.Debug().
			Int("records", records).
			Int("live", live).
			Int("capacity", t.capacity).
			Msg("dense: table compacted")
	}

	t.checkInvariants()
	return nil
}
