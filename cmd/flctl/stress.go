package main

import (
	"errors"
	"fmt"
	"math/bits"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/joshuapare/freelist/alloc"
	"github.com/joshuapare/freelist/alloc/verify"
	"github.com/joshuapare/freelist/cmd/flctl/logger"
)

var (
	stressOps    int
	stressSeed   uint64
	stressMin    uint32
	stressMax    uint32
	stressAlign  uint32
	stressArena  string
	stressMmap   bool
	stressVerify bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of allocate/free operations")
	cmd.Flags().Uint64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().Uint32Var(&stressMin, "min", 8, "Minimum request size in bytes")
	cmd.Flags().Uint32Var(&stressMax, "max", 512, "Maximum request size in bytes")
	cmd.Flags().Uint32Var(&stressAlign, "align", 64, "Maximum alignment (power of two)")
	cmd.Flags().StringVar(&stressArena, "arena", "64KiB", "Arena size (accepts units, e.g. 1MiB)")
	cmd.Flags().BoolVar(&stressMmap, "mmap", false, "Back the arena with an anonymous mapping")
	cmd.Flags().BoolVar(&stressVerify, "verify", true, "Check free-list invariants after every operation")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run a seeded random allocate/free workload",
		Long: `Stress runs a reproducible random mix of allocations and frees, then
frees everything that is still live and checks that the arena coalesces back
into a single free block.

Example:
  flctl stress --ops 100000 --seed 7 --max 4096 --arena 1MiB --mmap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

// stressConfig is one workload's parameters.
type stressConfig struct {
	Ops      int    `json:"ops"`
	Seed     uint64 `json:"seed"`
	MinSize  uint32 `json:"min"`
	MaxSize  uint32 `json:"max"`
	MaxAlign uint32 `json:"align"`
	Verify   bool   `json:"verify"`
}

// stressResult is the outcome of a workload.
type stressResult struct {
	Config   stressConfig `json:"config"`
	Mapped   bool         `json:"mapped"`
	Allocs   int          `json:"allocs"`
	Frees    int          `json:"frees"`
	NoSpace  int          `json:"noSpace"`
	PeakLive int          `json:"peakLive"`
	Stats    statsReport  `json:"stats"` // before the final drain
	Drained  bool         `json:"drained"`
}

func (c stressConfig) validate() error {
	switch {
	case c.Ops < 0:
		return fmt.Errorf("--ops must not be negative")
	case c.MinSize < 8:
		return fmt.Errorf("--min %d below minimum 8", c.MinSize)
	case c.MaxSize < c.MinSize:
		return fmt.Errorf("--max %d below --min %d", c.MaxSize, c.MinSize)
	case c.MaxAlign == 0 || c.MaxAlign&(c.MaxAlign-1) != 0:
		return fmt.Errorf("--align %d is not a power of two", c.MaxAlign)
	}
	return nil
}

func runStress() error {
	cfg := stressConfig{
		Ops:      stressOps,
		Seed:     stressSeed,
		MinSize:  stressMin,
		MaxSize:  stressMax,
		MaxAlign: stressAlign,
		Verify:   stressVerify,
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	ar, err := openArena(stressArena, stressMmap, "")
	if err != nil {
		return err
	}
	defer ar.Close()

	a := alloc.New(ar.Bytes(), alloc.WithName("stress"), alloc.WithChecks(cfg.Verify))
	logger.Info("stress start", "ops", cfg.Ops, "seed", cfg.Seed, "arena", ar.Len(), "mapped", ar.Mapped())

	res, err := stress(a, cfg)
	if err != nil {
		return err
	}
	res.Mapped = ar.Mapped()
	logger.Info("stress done", "allocs", res.Allocs, "frees", res.Frees, "noSpace", res.NoSpace)

	if jsonOut {
		return printJSON(res)
	}
	printInfo("Ran %d operations (seed %d): %d allocs, %d frees, %d out of space, peak %d live\n\n",
		cfg.Ops, cfg.Seed, res.Allocs, res.Frees, res.NoSpace, res.PeakLive)
	printSummary(res.Stats.Stats)
	return nil
}

// stress runs the workload and drains the allocator afterwards. It fails if
// an invariant breaks or the drained arena is not one free block.
func stress(a *alloc.Allocator, cfg stressConfig) (stressResult, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9E3779B97F4A7C15))
	alignSteps := bits.TrailingZeros32(cfg.MaxAlign) + 1
	res := stressResult{Config: cfg}

	var live []alloc.Handle
	free := func(i int) error {
		h := live[i]
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
		if err := a.Free(h); err != nil {
			return err
		}
		res.Frees++
		return nil
	}

	for step := range cfg.Ops {
		if len(live) == 0 || rng.IntN(5) < 3 {
			size := cfg.MinSize + uint32(rng.Uint64N(uint64(cfg.MaxSize-cfg.MinSize)+1))
			align := uint32(1) << rng.IntN(alignSteps)
			h, err := a.Allocate(size, align)
			switch {
			case errors.Is(err, alloc.ErrNoSpace):
				res.NoSpace++
				if len(live) > 0 {
					if err := free(rng.IntN(len(live))); err != nil {
						return res, fmt.Errorf("step %d: %w", step, err)
					}
				}
			case err != nil:
				return res, fmt.Errorf("step %d: %w", step, err)
			default:
				res.Allocs++
				live = append(live, h)
				res.PeakLive = max(res.PeakLive, len(live))
			}
		} else if err := free(rng.IntN(len(live))); err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}

		if cfg.Verify {
			if err := verify.AllInvariants(a, live); err != nil {
				logger.Error("invariant violated", "step", step, "err", err)
				return res, fmt.Errorf("step %d: %w", step, err)
			}
		}
	}
	res.Stats = newStatsReport(a.Stats())

	for len(live) > 0 {
		if err := free(len(live) - 1); err != nil {
			return res, fmt.Errorf("drain: %w", err)
		}
	}
	final := a.Stats()
	if final.FreeBlocks != 1 || final.FreeBytes != final.ArenaSize {
		return res, fmt.Errorf("drain: arena did not coalesce: %s", a)
	}
	res.Drained = true
	return res, nil
}
