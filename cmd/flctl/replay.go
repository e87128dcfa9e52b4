package main

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/joshuapare/freelist/alloc"
	"github.com/joshuapare/freelist/alloc/verify"
	"github.com/joshuapare/freelist/cmd/flctl/logger"
)

var (
	replayArena  string
	replayVerify bool
	replayChecks bool
	replayImage  string
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayArena, "arena", "64KiB", "Arena size (accepts units, e.g. 1MiB)")
	cmd.Flags().BoolVar(&replayVerify, "verify", false, "Check free-list invariants after every step")
	cmd.Flags().BoolVar(&replayChecks, "checks", false, "Enable handle generation checks")
	cmd.Flags().StringVar(&replayImage, "image", "", "Back the arena with this file and leave the final image in it")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay an allocation script",
		Long: `Replay runs a script of allocations and frees against a fresh arena.

Script lines:
  alloc <name> <size> [align]   reserve size bytes, bound to name
  free <name>                   release the named allocation
  dump                          print the free list
  # comment

Example:
  flctl replay workload.txt --arena 4KiB --verify
  flctl replay workload.txt --image arena.img   # inspect with xxd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args)
		},
	}
}

// replayResult is the JSON form of a replay run.
type replayResult struct {
	Script   string      `json:"script"`
	Steps    int         `json:"steps"`
	Failures []string    `json:"failures,omitempty"`
	Stats    statsReport `json:"stats"`
}

func runReplay(args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	ops, err := parseScript(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	ar, err := openArena(replayArena, false, replayImage)
	if err != nil {
		return err
	}
	defer ar.Close()

	a := alloc.New(ar.Bytes(), alloc.WithName(args[0]), alloc.WithChecks(replayChecks))
	logger.Info("replay start", "script", args[0], "ops", len(ops), "arena", ar.Len())

	failures, err := replay(a, ops, replayVerify)
	if err != nil {
		return err
	}

	if replayImage != "" {
		if err := ar.Sync(); err != nil {
			return err
		}
		printVerbose("Arena image written to %s\n", replayImage)
	}

	if jsonOut {
		return printJSON(replayResult{
			Script:   args[0],
			Steps:    len(ops),
			Failures: failures,
			Stats:    newStatsReport(a.Stats()),
		})
	}
	for _, msg := range failures {
		printInfo("%s\n", msg)
	}
	printInfo("Replayed %d steps from %s\n\n", len(ops), args[0])
	printSummary(a.Stats())
	return nil
}

// replay executes ops in order. Allocation failures are collected and the
// run continues; script errors and invariant violations stop it.
func replay(a *alloc.Allocator, ops []scriptOp, check bool) ([]string, error) {
	live := make(map[string]alloc.Handle)
	var failures []string

	for _, op := range ops {
		switch op.kind {
		case opAlloc:
			if _, ok := live[op.name]; ok {
				return failures, fmt.Errorf("line %d: %q is already allocated", op.line, op.name)
			}
			h, err := a.Allocate(op.size, op.align)
			if errors.Is(err, alloc.ErrNoSpace) {
				msg := fmt.Sprintf("line %d: alloc %s %d (align %d): no space", op.line, op.name, op.size, op.align)
				failures = append(failures, msg)
				logger.Warn("alloc failed", "line", op.line, "name", op.name, "size", op.size, "align", op.align)
				continue
			}
			if err != nil {
				return failures, fmt.Errorf("line %d: %w", op.line, err)
			}
			live[op.name] = h
			printVerbose("alloc %-10s offset=0x%08X pad=%d size=%d\n", op.name, h.Offset(), h.Padding(), h.Size())
			logger.Debug("alloc", "line", op.line, "name", op.name, "offset", h.Offset(), "size", h.Size())

		case opFree:
			h, ok := live[op.name]
			if !ok {
				return failures, fmt.Errorf("line %d: %q is not allocated", op.line, op.name)
			}
			if err := a.Free(h); err != nil {
				return failures, fmt.Errorf("line %d: free %s: %w", op.line, op.name, err)
			}
			delete(live, op.name)
			printVerbose("free  %-10s offset=0x%08X\n", op.name, h.Offset())
			logger.Debug("free", "line", op.line, "name", op.name, "offset", h.Offset())

		case opDump:
			if !quiet && !jsonOut {
				a.DumpState(os.Stdout)
			}
		}

		if check {
			if err := verify.AllInvariants(a, slices.Collect(maps.Values(live))); err != nil {
				logger.Error("invariant violated", "line", op.line, "err", err)
				return failures, fmt.Errorf("line %d: %w", op.line, err)
			}
		}
	}
	return failures, nil
}
