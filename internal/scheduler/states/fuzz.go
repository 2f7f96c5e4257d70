package states

import (
	"math"
	"math/rand/v2"
)

type fuzzRange struct {
	start, end float32
	factor     float32
}

var fuzzRanges = []fuzzRange{
	{2.5, 7.0, 0.15},
	{7.0, 20.0, 0.1},
	{20.0, math.MaxFloat32, 0.05},
}

// FuzzFactor derives a value in [0, 1) from the card and the day, so that
// the same card answered on the same day, from the same row, always gets
// the same interval. It is drawn from a PCG generator, so it does not
// reproduce the values Anki computes for the same card.
func FuzzFactor(cardID int64, mtime int64, today uint32) float32 {
	rng := rand.New(rand.NewPCG(uint64(cardID), uint64(mtime)<<20^uint64(today)))
	return rng.Float32()
}

// WithReviewFuzz picks a day from the fuzz range around interval, bounded
// by [minimum, maximum]. Without a fuzz factor the interval is rounded and
// clamped.
func (c *StateContext) WithReviewFuzz(interval float32, minimum, maximum uint32) uint32 {
	if c.FuzzFactor == nil {
		return clampU32(roundU32(interval), minimum, maximum)
	}
	lower, upper := ConstrainedFuzzBounds(interval, minimum, maximum)
	return lower + uint32(*c.FuzzFactor*float32(1+upper-lower))
}

// ConstrainedFuzzBounds returns the inclusive fuzz range for interval,
// kept inside [minimum, maximum].
func ConstrainedFuzzBounds(interval float32, minimum, maximum uint32) (uint32, uint32) {
	minimum = min(minimum, maximum)
	interval = min(max(interval, float32(minimum)), float32(maximum))
	lower, upper := fuzzBounds(interval)
	lower = clampU32(lower, minimum, maximum)
	upper = clampU32(upper, minimum, maximum)
	if upper == lower && upper > 2 && upper < maximum {
		upper = lower + 1
	}
	return lower, upper
}

func fuzzBounds(interval float32) (uint32, uint32) {
	delta := fuzzDelta(interval)
	return roundU32(interval - delta), roundU32(interval + delta)
}

func fuzzDelta(interval float32) float32 {
	if interval < 2.5 {
		return 0
	}
	delta := float32(1.0)
	for _, r := range fuzzRanges {
		delta += r.factor * max(min(interval, r.end)-r.start, 0)
	}
	return delta
}

func roundU32(f float32) uint32 {
	if f <= 0 {
		return 0
	}
	return uint32(math.Round(float64(f)))
}

func clampU32(v, lo, hi uint32) uint32 {
	return min(max(v, lo), hi)
}
