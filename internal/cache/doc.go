// Package cache provides byte-budgeted LRU caches for immutable values.
//
// Values are charged by length against the cache capacity and, when a
// memory acquirer is configured, against a shared memory budget. A value
// that would not fit is simply not cached.
package cache
