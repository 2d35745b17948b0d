package util

import "runtime"

// MaxShards caps the number of tracker shards.
const MaxShards = 256

// ShardCount rounds a requested shard count up to a power of two.
// n == 0 picks nextPow2(2*GOMAXPROCS); the result is clamped to [1..MaxShards].
func ShardCount(n int) int {
	if n == 0 {
		n = 2 * runtime.GOMAXPROCS(0)
	}
	if n <= 1 {
		return 1
	}
	if n > MaxShards {
		return MaxShards
	}
	return int(NextPow2(uint64(n)))
}

// ShardIndex maps a 64-bit hash to a shard index.
// The mask path is taken for power-of-two counts, modulo otherwise.
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}

// Share returns part i of total split across n parts. The first total%n
// parts get one extra unit, so the shares always sum to total.
func Share(total, n int64, i int) int64 {
	if n <= 1 {
		return total
	}
	q := total / n
	if int64(i) < total%n {
		q++
	}
	return q
}
