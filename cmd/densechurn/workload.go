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

package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/cockroachdb/dense"
	"github.com/phuslu/log"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

var containers = []string{"array", "table"}

// Workload describes a randomized sequence of operations against a single
// container. It is read from YAML:
//
//	container: table
//	capacity: 64
//	seed: 1
//	ops: 10000
//	insert_ratio: 0.6
//	key_space: 128
//	compact_every: 1000
type Workload struct {
	// Container is either "array" or "table".
	Container string `yaml:"container"`
	// Capacity is the initial capacity of an array or the fixed capacity of
	// a table.
	Capacity int   `yaml:"capacity"`
	Seed     int64 `yaml:"seed"`
	Ops      int   `yaml:"ops"`
	// InsertRatio is the probability of an operation being an insert rather
	// than a removal. Defaults to 0.5.
	InsertRatio float64 `yaml:"insert_ratio"`
	// KeySpace is the number of distinct table keys. Defaults to twice the
	// capacity.
	KeySpace int `yaml:"key_space"`
	// CompactEvery compacts a table after every CompactEvery operations. Zero
	// disables explicit compaction.
	CompactEvery int `yaml:"compact_every"`
}

// Result summarizes the state of a container after a workload.
type Result struct {
	Container   string `json:"container"`
	Ops         int    `json:"ops"`
	Inserts     int    `json:"inserts"`
	Updates     int    `json:"updates"`
	Removes     int    `json:"removes"`
	Rejected    int    `json:"rejected"`
	Compactions int    `json:"compactions"`
	Len         int    `json:"len"`
	Cap         int    `json:"cap"`
	Tombstones  int    `json:"tombstones"`
	Bytes       uint64 `json:"bytes"`
}

// loadWorkload decodes and validates a workload. Unknown fields are
// rejected.
func loadWorkload(r io.Reader) (Workload, error) {
	w := Workload{InsertRatio: 0.5}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		return Workload{}, fmt.Errorf("failed to decode workload: %w", err)
	}
	if w.KeySpace == 0 {
		w.KeySpace = 2 * w.Capacity
	}
	if err := w.validate(); err != nil {
		return Workload{}, err
	}
	return w, nil
}

func (w Workload) validate() error {
	switch {
	case !slices.Contains(containers, w.Container):
		return fmt.Errorf("invalid container %q, expected one of %v", w.Container, containers)
	case w.Capacity < 0:
		return fmt.Errorf("invalid capacity %d", w.Capacity)
	case w.Container == "table" && w.Capacity == 0:
		return errors.New("a table requires a non-zero capacity")
	case w.Ops < 0:
		return fmt.Errorf("invalid ops %d", w.Ops)
	case w.InsertRatio < 0 || w.InsertRatio > 1:
		return fmt.Errorf("invalid insert_ratio %g, expected a value in [0, 1]", w.InsertRatio)
	case w.KeySpace < 0:
		return fmt.Errorf("invalid key_space %d", w.KeySpace)
	case w.CompactEvery < 0:
		return fmt.Errorf("invalid compact_every %d", w.CompactEvery)
	case w.Container == "array" && w.CompactEvery > 0:
		return errors.New("compact_every only applies to tables")
	}
	return nil
}

// run executes the workload. Container tracing goes to logger at debug level.
func (w Workload) run(logger *log.Logger) (Result, error) {
	rng := rand.New(rand.NewSource(w.Seed))
	var (
		r   Result
		err error
	)
	switch w.Container {
	case "array":
		r, err = w.runArray(rng, logger)
	case "table":
		r, err = w.runTable(rng, logger)
	default:
		return Result{}, fmt.Errorf("invalid container %q", w.Container)
	}
	if err != nil {
		return Result{}, err
	}
	r.Container = w.Container
	r.Ops = w.Ops

	logger.Info().
		Str("container", r.Container).
		Int("ops", r.Ops).
		Int("len", r.Len).
		Int("cap", r.Cap).
		Msg("densechurn: workload finished")
	return r, nil
}

func (w Workload) runArray(rng *rand.Rand, logger *log.Logger) (Result, error) {
	a, err := dense.NewArray[int64](w.Capacity, dense.WithArrayLogger[int64](logger))
	if err != nil {
		return Result{}, err
	}

	var r Result
	for i := 0; i < w.Ops; i++ {
		if rng.Float64() < w.InsertRatio {
			if err := a.Insert(rng.Intn(a.Len()+1), rng.Int63()); err != nil {
				return Result{}, fmt.Errorf("op %d: %w", i, err)
			}
			r.Inserts++
		} else if a.Len() > 0 {
			if err := a.Remove(rng.Intn(a.Len()), nil); err != nil {
				return Result{}, fmt.Errorf("op %d: %w", i, err)
			}
			r.Removes++
		}
	}

	r.Len = a.Len()
	r.Cap = a.Cap()
	r.Bytes = uint64(a.MemoryFootprint())
	return r, a.Close(nil)
}

func (w Workload) runTable(rng *rand.Rand, logger *log.Logger) (Result, error) {
	t, err := dense.NewTable[string, int64](w.Capacity, dense.HashString, dense.Equal[string],
		dense.WithTableLogger[string, int64](logger))
	if err != nil {
		return Result{}, err
	}

	var r Result
	keySpace := w.KeySpace
	if keySpace == 0 {
		keySpace = 1
	}
	for i := 0; i < w.Ops; i++ {
		key := fmt.Sprintf("key-%d", rng.Intn(keySpace))
		if rng.Float64() < w.InsertRatio {
			exists := t.Contains(key)
			err := t.Insert(key, rng.Int63(), nil)
			switch {
			case errors.Is(err, dense.ErrNoRoom):
				r.Rejected++
			case err != nil:
				return Result{}, fmt.Errorf("op %d: %w", i, err)
			case exists:
				r.Updates++
			default:
				r.Inserts++
			}
		} else if t.Contains(key) {
			if err := t.Remove(key, nil, nil); err != nil {
				return Result{}, fmt.Errorf("op %d: %w", i, err)
			}
			r.Removes++
		}

		if w.CompactEvery > 0 && (i+1)%w.CompactEvery == 0 {
			if err := t.Compact(); err != nil {
				return Result{}, fmt.Errorf("op %d: %w", i, err)
			}
			r.Compactions++
		}
	}

	r.Len = t.Len()
	r.Cap = t.Cap()
	r.Tombstones = t.Tombstones()
	r.Bytes = uint64(t.MemoryFootprint())
	return r, t.Close(nil, nil)
}
