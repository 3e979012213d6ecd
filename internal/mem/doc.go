// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides cache-line aligned heap slabs so that block headers holding
// atomic counters never straddle a cache line.
package mem
