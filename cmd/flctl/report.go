package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/freelist/alloc"
	"github.com/joshuapare/freelist/arena"
)

// statsReport is the JSON form of alloc.Stats.
type statsReport struct {
	alloc.Stats
	Fragmentation float64 `json:"Fragmentation"`
}

func newStatsReport(s alloc.Stats) statsReport {
	return statsReport{Stats: s, Fragmentation: s.Fragmentation()}
}

// printSummary prints the humanized one-screen summary, plus the full
// counter table in verbose mode.
func printSummary(s alloc.Stats) {
	printInfo("Arena:         %s\n", humanize.IBytes(s.ArenaSize))
	printInfo("Free:          %s in %s blocks (largest %s)\n",
		humanize.IBytes(s.FreeBytes), humanize.Comma(int64(s.FreeBlocks)),
		humanize.IBytes(uint64(s.LargestFree)))
	printInfo("Live:          %s in %s allocations\n",
		humanize.IBytes(s.LiveBytes), humanize.Comma(int64(s.LiveAllocs)))
	printInfo("Fragmentation: %.1f%%\n", s.Fragmentation()*100)
	if verbose && !quiet {
		fmt.Fprintln(os.Stdout)
		alloc.PrintStats(os.Stdout, s)
	}
}

// openArena builds the backing region for a run: a file mapping when image
// is set, an anonymous mapping when mapped, heap memory otherwise.
func openArena(sizeFlag string, mapped bool, image string) (*arena.Arena, error) {
	size, err := parseSize(sizeFlag)
	if err != nil {
		return nil, fmt.Errorf("--arena: %w", err)
	}
	switch {
	case image != "":
		return arena.MapFile(image, int(size))
	case mapped:
		return arena.Map(int(size))
	}
	return arena.New(int(size))
}
