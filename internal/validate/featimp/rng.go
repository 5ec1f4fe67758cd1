package featimp

import (
	"hash/fnv"
	"math/rand"
)

// splitmix64 is the finalizer of the SplitMix64 generator, used here purely
// as a seed mixer: it turns correlated inputs (base seed, tag hash, trial
// index) into well-separated sub-stream seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// trialRand returns the dedicated PRNG for one permutation trial. Every
// (seed, tag, trial) triple maps to its own sub-stream, so trials can run in
// any order, on any number of workers, and still consume bit-identical
// random sequences.
func trialRand(baseSeed int64, tag string, trial int) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(tag))
	mixed := splitmix64(uint64(baseSeed) ^ splitmix64(h.Sum64()^uint64(trial)))
	return rand.New(rand.NewSource(int64(mixed)))
}
