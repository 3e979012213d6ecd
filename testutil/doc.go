// Package testutil provides testing utilities for appendbuf.
//
// This package is intended for use in tests and benchmarks only.
// It provides deterministic random payloads and helpers for checking that
// concurrent readers observe well-formed prefixes of what a writer appended.
//
// # Random Payloads
//
//	rng := testutil.NewRNG(seed)
//	p := rng.Bytes(512)          // uniform bytes
//	chunks := rng.Chunks(64, 32) // 64 chunks of 1..32 bytes
//
// # Patterned Streams
//
//	testutil.Pattern(n)              // byte i == byte(i % 251)
//	testutil.IsPatternPrefix(view)   // true when view matches Pattern(len(view))
package testutil
