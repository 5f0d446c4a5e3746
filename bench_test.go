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
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkArrayAppend(b *testing.B) {
	b.Run("impl=slice", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkSliceAppend[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkSliceAppend[string], genKeys[string]))
	})
	b.Run("impl=denseArray", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkArrayAppend[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkArrayAppend[string], genKeys[string]))
	})
}

func BenchmarkArrayInsertFront(b *testing.B) {
	b.Run("impl=denseArray", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkArrayInsertFront[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkArrayInsertFront[int32], genKeys[int32]))
	})
}

func BenchmarkArrayPop(b *testing.B) {
	b.Run("impl=denseArray", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkArrayPop[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkArrayPop[string], genKeys[string]))
	})
}

func BenchmarkTableGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetHit[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapGetHit[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapGetHit[string], genKeys[string]))
	})
	b.Run("impl=denseTable", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableGetHit[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkTableGetHit[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkTableGetHit[string], genKeys[string]))
	})
}

func BenchmarkTableGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetMiss[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapGetMiss[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapGetMiss[string], genKeys[string]))
	})
	b.Run("impl=denseTable", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableGetMiss[int64], genKeys[int64]))
		b.Run("t=Int32", benchSizes(benchmarkTableGetMiss[int32], genKeys[int32]))
		b.Run("t=String", benchSizes(benchmarkTableGetMiss[string], genKeys[string]))
	})
}

func BenchmarkTableInsertPreAllocate(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutPreAllocate[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapPutPreAllocate[string], genKeys[string]))
	})
	b.Run("impl=denseTable", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableInsertPreAllocate[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkTableInsertPreAllocate[string], genKeys[string]))
	})
}

func BenchmarkTableInsertRemove(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutDelete[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkRuntimeMapPutDelete[string], genKeys[string]))
	})
	b.Run("impl=denseTable", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkTableInsertRemove[int64], genKeys[int64]))
		b.Run("t=String", benchSizes(benchmarkTableInsertRemove[string], genKeys[string]))
	})
}

type benchTypes interface {
	int32 | int64 | string
}

func benchSizes[T benchTypes](
	f func(b *testing.B, n int, genKeys func(start, end int) []T), genKeys func(start, end int) []T,
) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, genKeys) })
		}
	}
}

func genKeys[T benchTypes](start, end int) []T {
	var t T
	switch any(t).(type) {
	case int32:
		keys := make([]int32, end-start)
		for i := range keys {
			keys[i] = int32(start + i)
		}
		return any(keys).([]T)
	case int64:
		keys := make([]int64, end-start)
		for i := range keys {
			keys[i] = int64(start + i)
		}
		return any(keys).([]T)
	case string:
		keys := make([]string, end-start)
		for i := range keys {
			keys[i] = strconv.Itoa(start + i)
		}
		return any(keys).([]T)
	default:
		panic("not reached")
	}
}

func benchHash[T benchTypes]() HashFunc[T] {
	var t T
	switch any(t).(type) {
	case int32:
		return any(HashFunc[int32](HashInteger[int32])).(HashFunc[T])
	case int64:
		return any(HashFunc[int64](HashInteger[int64])).(HashFunc[T])
	case string:
		return any(HashFunc[string](HashString)).(HashFunc[T])
	default:
		panic("not reached")
	}
}

// newBenchTable returns a Table holding keys at a load factor of 50%.
func newBenchTable[T benchTypes](b *testing.B, keys []T) *Table[T, T] {
	m, err := NewTable[T, T](2*len(keys), benchHash[T](), Equal[T])
	if err != nil {
		b.Fatal(err)
	}
	for _, k := range keys {
		if err := m.Insert(k, k, nil); err != nil {
			b.Fatal(err)
		}
	}
	return m
}

func benchmarkSliceAppend[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s []T
		for _, k := range keys {
			s = append(s, k)
		}
	}
}

func benchmarkArrayAppend[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a, _ := NewArray[T](0)
		for _, k := range keys {
			_ = a.Append(k)
		}
	}
}

func benchmarkArrayInsertFront[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a, _ := NewArray[T](n)
		for _, k := range keys {
			_ = a.Insert(0, k)
		}
	}
}

func benchmarkArrayPop[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	keys := genKeys(0, n)
	a, err := NewArray[T](n)
	if err != nil {
		b.Fatal(err)
	}
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if a.Len() == 0 {
			b.StopTimer()
			for _, k := range keys {
				_ = a.Append(k)
			}
			b.StartTimer()
		}
		_ = a.Pop(nil)
	}
}

func benchmarkRuntimeMapGetHit[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	m := make(map[T]T, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}

	// Go's builtin map has an optimization to avoid string comparisons if
	// there is pointer equality. Defeat this optimization to get a better
	// apples-to-apples comparison.
	keys = genKeys(0, n)

	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[keys[i%n]]
	}
}

func benchmarkTableGetHit[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := newBenchTable(b, genKeys(0, n))
	keys := genKeys(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Get(keys[i%n])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapGetMiss[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	m := make(map[T]T)
	keys := genKeys(0, n)
	miss := genKeys(-n, 0)
	for _, k := range keys {
		m[k] = k
	}
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[miss[i%len(miss)]]
	}
}

func benchmarkTableGetMiss[T benchTypes](b *testing.B, n int, genKeys func(start, end int) []T) {
	m := newBenchTable(b, genKeys(0, n))
	miss := genKeys(-n, 0)
	perfbench.Open(b)
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = m.Contains(miss[i%len(miss)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutPreAllocate[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	keys := genKeys(0, n)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := make(map[T]T, n)
		for _, k := range keys {
			m[k] = k
		}
	}
}

func benchmarkTableInsertPreAllocate[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	keys := genKeys(0, n)
	hash := benchHash[T]()
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m, _ := NewTable[T, T](2*n, hash, Equal[T])
		for _, k := range keys {
			_ = m.Insert(k, k, nil)
		}
	}
}

func benchmarkRuntimeMapPutDelete[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	m := make(map[T]T, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = keys[j]
	}
}

func benchmarkTableInsertRemove[T benchTypes](
	b *testing.B, n int, genKeys func(start, end int) []T,
) {
	keys := genKeys(0, n)
	m := newBenchTable(b, keys)
	perfbench.Open(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		_ = m.Remove(keys[j], nil, nil)
		_ = m.Insert(keys[j], keys[j], nil)
	}
}
