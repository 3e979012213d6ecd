package benchmark_test

import (
	"runtime"
	"testing"
)

// WarmupIterations is the number of iterations run before measurement.
const WarmupIterations = 10

// BenchLoop runs fn WarmupIterations times, forces a GC so setup garbage
// does not land in the measurement, then runs fn b.N times. fn receives
// the iteration index modulo n.
func BenchLoop(b *testing.B, n int, fn func(i int)) {
	b.Helper()

	for i := 0; i < WarmupIterations; i++ {
		fn(i % n)
	}

	runtime.GC()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		fn(i % n)
	}
}
