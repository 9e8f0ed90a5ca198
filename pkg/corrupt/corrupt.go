// Package corrupt injects channel impairments for tests and experiments:
// additive Gaussian noise on an intensity series, random bit flips, and
// contrast collapse. All functions are deterministic for a given seed and
// never mutate their input.
package corrupt

import "math/rand"

// AddGaussian returns a copy of samples with zero-mean Gaussian noise of the
// given standard deviation added.
func AddGaussian(samples []float64, sigma float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v + rng.NormFloat64()*sigma
	}
	return out
}

// FlipBits flips num distinct randomly chosen bits in a copy of the slice.
func FlipBits(bits []int, num int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))
	out := make([]int, len(bits))
	copy(out, bits)
	if num > len(bits) {
		num = len(bits)
	}
	flips := make(map[int]bool)
	for len(flips) < num {
		flips[rng.Intn(len(bits))] = true
	}
	for i := range flips {
		out[i] ^= 1
	}
	return out
}

// Collapse flattens a series to its mean value, the zero-contrast channel
// where every symbol should come back as an erasure.
func Collapse(samples []float64) []float64 {
	out := make([]float64, len(samples))
	if len(samples) == 0 {
		return out
	}
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))
	for i := range out {
		out[i] = mean
	}
	return out
}
