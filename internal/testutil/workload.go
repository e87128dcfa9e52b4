package testutil

import "math/rand/v2"

// Step is one randomized allocator operation.
type Step struct {
	Free   bool
	Victim int // index into the caller's live set, when Free

	Size  uint32
	Align uint32
}

// Workload generates a reproducible mix of allocations and frees.
type Workload struct {
	rng *rand.Rand

	MinSize     uint32 // Smallest request
	MaxSize     uint32 // Largest request
	MaxAlignLog int    // Alignments are 1 << [0, MaxAlignLog]
	FreePercent int    // Chance of a free when something is live
}

// NewWorkload returns a workload seeded with seed, requesting 8..256 bytes
// at alignments up to 64 and freeing 40% of the time.
func NewWorkload(seed uint64) *Workload {
	return &Workload{
		rng:         rand.New(rand.NewPCG(seed, seed+1)),
		MinSize:     8,
		MaxSize:     256,
		MaxAlignLog: 6,
		FreePercent: 40,
	}
}

// Next returns the following step given how many handles are live.
func (w *Workload) Next(live int) Step {
	if live > 0 && w.rng.IntN(100) < w.FreePercent {
		return Step{Free: true, Victim: w.rng.IntN(live)}
	}
	return Step{
		Size:  w.MinSize + uint32(w.rng.IntN(int(w.MaxSize-w.MinSize)+1)),
		Align: 1 << w.rng.IntN(w.MaxAlignLog+1),
	}
}
