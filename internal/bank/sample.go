package bank

import "math/rand/v2"

// Sample returns min(n, count) records for (topic, mode) in unbiased
// random order, drawn from a non-deterministic source.
func (ix *Index) Sample(topic string, mode Mode, n int) []Record {
	return ix.sample(topic, mode, n, rand.IntN)
}

// SampleSeeded performs the identical shuffle drawn from a deterministic
// generator seeded by seed: the same (topic, mode, n, seed) always yields
// the same ordered output. Required for reproducible calibration runs and
// regression tests.
func (ix *Index) SampleSeeded(topic string, mode Mode, n int, seed uint64) []Record {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return ix.sample(topic, mode, n, r.IntN)
}

// sample is a Fisher-Yates shuffle over a copy of the record set,
// truncated to n.
func (ix *Index) sample(topic string, mode Mode, n int, intn func(int) int) []Record {
	recs := ix.All(topic, mode)
	for i := len(recs) - 1; i > 0; i-- {
		j := intn(i + 1)
		recs[i], recs[j] = recs[j], recs[i]
	}
	if n < 0 {
		n = 0
	}
	if n > len(recs) {
		n = len(recs)
	}
	return recs[:n]
}
