package rng

import "testing"

func TestNew_SameTripleSameSequence(t *testing.T) {
	a := New("world-1", "patrol", 7)
	b := New("world-1", "patrol", 7)
	for i := 0; i < 64; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestNew_DistinctInputsDiverge(t *testing.T) {
	base := New("world-1", "patrol", 7).Uint64()
	cases := []struct {
		name string
		r    *RNG
	}{
		{"world", New("world-2", "patrol", 7)},
		{"stream", New("world-1", "alert", 7)},
		{"tick", New("world-1", "patrol", 8)},
		// "ab"+"c" must not collide with "a"+"bc".
		{"separator", New("world-1p", "atrol", 7)},
	}
	for _, tc := range cases {
		if tc.r.Uint64() == base {
			t.Fatalf("%s: first draw collided with base stream", tc.name)
		}
	}
}

func TestNew_NoCarryOverBetweenCalls(t *testing.T) {
	first := New("w", "s", 3)
	for i := 0; i < 10; i++ {
		first.Uint64()
	}
	again := New("w", "s", 3)
	fresh := New("w", "s", 3)
	if again.Uint64() != fresh.Uint64() {
		t.Fatalf("stream state leaked between constructions")
	}
}

func TestFromSeed_ZeroStateIsReplaced(t *testing.T) {
	r := FromSeed(0, 0)
	if r.Uint64() == 0 && r.Uint64() == 0 {
		t.Fatalf("zero seed produced a stuck generator")
	}
}

func TestIntn_Bounds(t *testing.T) {
	r := New("w", "bounds", 1)
	if r.Intn(0) != 0 || r.Intn(-4) != 0 {
		t.Fatalf("non-positive n must yield 0")
	}
	for i := 0; i < 1000; i++ {
		if v := r.Intn(7); v < 0 || v >= 7 {
			t.Fatalf("Intn out of range: %d", v)
		}
		if v := r.Range(5, 2); v < 2 || v > 5 {
			t.Fatalf("Range out of range: %d", v)
		}
		if f := r.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %f", f)
		}
	}
	if r.Pick(0) != -1 {
		t.Fatalf("Pick on empty must be -1")
	}
	if r.Chance(0) || !r.Chance(1000) {
		t.Fatalf("Chance edge cases wrong")
	}
}

func TestShuffle_IsPermutation(t *testing.T) {
	xs := []int{0, 1, 2, 3, 4, 5, 6, 7}
	New("w", "shuffle", 2).Shuffle(len(xs), func(i, j int) { xs[i], xs[j] = xs[j], xs[i] })
	seen := make(map[int]bool, len(xs))
	for _, x := range xs {
		seen[x] = true
	}
	if len(seen) != 8 {
		t.Fatalf("shuffle lost elements: %v", xs)
	}
}
