// Package rng provides the per-tick deterministic random streams handed to
// systems. A stream is a pure function of (world id, stream id, tick): asking
// for the same triple twice yields the same sequence, and nothing is carried
// over between ticks.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/bits"
)

// RNG is a xoroshiro128** generator. It is not safe for concurrent use; each
// system gets its own instance per stream.
type RNG struct {
	s0, s1 uint64
}

// New seeds a generator from sha256(worldID 0x00 streamID 0x00 tick-le64).
func New(worldID, streamID string, tick uint64) *RNG {
	h := sha256.New()
	h.Write([]byte(worldID))
	h.Write([]byte{0})
	h.Write([]byte(streamID))
	h.Write([]byte{0})
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], tick)
	h.Write(tmp[:])
	sum := h.Sum(nil)
	return FromSeed(binary.LittleEndian.Uint64(sum[0:8]), binary.LittleEndian.Uint64(sum[8:16]))
}

// FromSeed builds a generator from raw state words. The all-zero state is a
// fixed point of xoroshiro and is replaced with a constant.
func FromSeed(s0, s1 uint64) *RNG {
	if s0 == 0 && s1 == 0 {
		s0, s1 = 0x9E3779B97F4A7C15, 0xD1B54A32D192ED03
	}
	return &RNG{s0: s0, s1: s1}
}

func (r *RNG) Uint64() uint64 {
	s0, s1 := r.s0, r.s1
	out := bits.RotateLeft64(s0*5, 7) * 9
	s1 ^= s0
	r.s0 = bits.RotateLeft64(s0, 24) ^ s1 ^ (s1 << 16)
	r.s1 = bits.RotateLeft64(s1, 37)
	return out
}

// Intn returns a uniform value in [0, n). n <= 0 yields 0.
func (r *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	bound := uint64(n)
	// Rejection sampling keeps the distribution exact.
	limit := math.MaxUint64 - (math.MaxUint64 % bound)
	for {
		v := r.Uint64()
		if v < limit {
			return int(v % bound)
		}
	}
}

// Range returns a uniform value in [lo, hi]. Swapped bounds are reordered.
func (r *RNG) Range(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Float64 returns a value in [0, 1) with 53 bits of precision.
func (r *RNG) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// Chance reports true with probability permille/1000.
func (r *RNG) Chance(permille int) bool {
	if permille <= 0 {
		return false
	}
	if permille >= 1000 {
		return true
	}
	return r.Intn(1000) < permille
}

// Pick returns a uniform index into a collection of length n, or -1 when empty.
func (r *RNG) Pick(n int) int {
	if n <= 0 {
		return -1
	}
	return r.Intn(n)
}

// Shuffle permutes n elements with Fisher-Yates using swap.
func (r *RNG) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}
