package util

import (
	"runtime"
	"testing"
)

func TestNextPow2(t *testing.T) {
	t.Parallel()

	cases := map[uint64]uint64{
		0:             1,
		1:             1,
		2:             2,
		3:             4,
		1000:          1024,
		1 << 40:       1 << 40,
		1<<63 + 1:     1 << 63,
		^uint64(0):    1 << 63,
		(1 << 62) + 5: 1 << 63,
	}
	for in, want := range cases {
		if got := NextPow2(in); got != want {
			t.Errorf("NextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestShardCount(t *testing.T) {
	t.Parallel()

	if got := ShardCount(1); got != 1 {
		t.Fatalf("ShardCount(1) = %d", got)
	}
	if got := ShardCount(5); got != 8 {
		t.Fatalf("ShardCount(5) = %d, want 8", got)
	}
	if got := ShardCount(10_000); got != MaxShards {
		t.Fatalf("ShardCount(10000) = %d, want %d", got, MaxShards)
	}
	auto := ShardCount(0)
	if !IsPowerOfTwo(uint64(auto)) || auto > MaxShards {
		t.Fatalf("auto shard count %d", auto)
	}
	if runtime.GOMAXPROCS(0) >= 1 && auto < 2 {
		t.Fatalf("auto shard count %d below 2*GOMAXPROCS", auto)
	}
}

func TestShardIndex(t *testing.T) {
	t.Parallel()

	for _, shards := range []int{1, 4, 6, 256} {
		for _, k := range []string{"", "a", "user:42", "😀"} {
			i := ShardIndex(Fnv64a([]byte(k)), shards)
			if i < 0 || i >= shards {
				t.Fatalf("ShardIndex out of range: %d of %d", i, shards)
			}
			if j := ShardIndex(Fnv64aString(k), shards); j != i {
				t.Fatalf("string/bytes hash disagree for %q", k)
			}
		}
	}
}

func TestShare(t *testing.T) {
	t.Parallel()

	want := []int64{3, 3, 2, 2}
	var sum int64
	for i, w := range want {
		if got := Share(10, 4, i); got != w {
			t.Fatalf("Share(10,4,%d) = %d, want %d", i, got, w)
		}
		sum += Share(10, 4, i)
	}
	if sum != 10 {
		t.Fatalf("shares sum to %d", sum)
	}
	if got := Share(7, 1, 0); got != 7 {
		t.Fatalf("Share(7,1,0) = %d", got)
	}
}
