package sim

import (
	"github.com/iti/rngstream"
)

// rngSet bundles the independent random streams the policy draws from.
// Streams created by newRngSet follow the package-wide stream sequence, so
// their state depends on how many streams the process created before them.
// newSeededRngSet derives every stream state from the seed alone and is the
// construction to use for exact replay.
type rngSet struct {
	latency     *rngstream.RngStream
	loss        *rngstream.RngStream
	duplication *rngstream.RngStream
}

func newRngSet(name string) *rngSet {
	return &rngSet{
		latency:     rngstream.New(name + "-latency"),
		loss:        rngstream.New(name + "-loss"),
		duplication: rngstream.New(name + "-duplication"),
	}
}

// seedSpace keeps derived seed values within the smaller MRG component
// modulus, which is what RngStream.SetSeed accepts.
const seedSpace = 4294944442

func newSeededRngSet(name string, seed uint64) *rngSet {
	r := newRngSet(name)

	streams := []*rngstream.RngStream{r.latency, r.loss, r.duplication}
	for i, s := range streams {
		// Six successive values per stream, offset so the three streams
		// start apart. Mapping into [1, seedSpace] keeps every value
		// legal and non-zero.
		vec := make([]uint64, 6)
		for j := range vec {
			vec[j] = (seed+uint64(i*6+j))%seedSpace + 1
		}
		s.SetSeed(vec)
	}

	return r
}

// drawLatency draws a uniform delay in [min, max] milliseconds, rounded to
// the simulated-time resolution.
func (r *rngSet) drawLatency(minMs, maxMs float64) VTimeInMs {
	if maxMs <= minMs {
		return VTimeInMs(minMs).Round()
	}

	u := r.latency.RandU01()
	return VTimeInMs(minMs + u*(maxMs-minMs)).Round()
}

// drawLoss runs a Bernoulli trial against the packet loss rate.
func (r *rngSet) drawLoss(rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}

	return r.loss.RandU01() < rate
}

// drawDuplication runs a Bernoulli trial against the duplication rate.
func (r *rngSet) drawDuplication(rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}

	return r.duplication.RandU01() < rate
}
