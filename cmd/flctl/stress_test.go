package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStressCommand(t *testing.T) {
	tests := []struct {
		name        string
		ops         int
		seed        uint64
		arena       string
		mmap        bool
		min, max    uint32
		align       uint32
		wantErr     string
		wantContain []string
	}{
		{
			name:        "small arena under pressure",
			ops:         3000,
			seed:        42,
			arena:       "4KiB",
			min:         8,
			max:         512,
			align:       64,
			wantContain: []string{"Ran 3000 operations (seed 42)", "Arena:         4.0 KiB"},
		},
		{
			name:        "mapped arena",
			ops:         500,
			seed:        7,
			arena:       "1MiB",
			mmap:        true,
			min:         16,
			max:         4096,
			align:       4096,
			wantContain: []string{"Ran 500 operations (seed 7)", "Arena:         1.0 MiB"},
		},
		{name: "min below header", ops: 10, arena: "4KiB", min: 4, max: 16, align: 8, wantErr: "--min 4"},
		{name: "max below min", ops: 10, arena: "4KiB", min: 64, max: 32, align: 8, wantErr: "--max 32"},
		{name: "align not power of two", ops: 10, arena: "4KiB", min: 8, max: 16, align: 24, wantErr: "--align 24"},
		{name: "negative ops", ops: -1, arena: "4KiB", min: 8, max: 16, align: 8, wantErr: "--ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			stressOps = tt.ops
			stressSeed = tt.seed
			stressArena = tt.arena
			stressMmap = tt.mmap
			stressMin = tt.min
			stressMax = tt.max
			stressAlign = tt.align

			output, err := captureOutput(t, runStress)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantContain {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestStressJSON(t *testing.T) {
	resetFlags()
	stressOps = 2000
	stressSeed = 3
	stressArena = "2KiB"
	jsonOut = true

	output, err := captureOutput(t, runStress)
	require.NoError(t, err)

	var res stressResult
	decodeJSON(t, output, &res)
	assert.True(t, res.Drained)
	assert.Equal(t, 2000, res.Config.Ops)
	assert.Equal(t, uint64(3), res.Config.Seed)
	assert.Equal(t, uint64(2048), res.Stats.ArenaSize)
	assert.Equal(t, res.Allocs, res.Stats.AllocCalls-res.Stats.AllocFailures)
	assert.Equal(t, res.NoSpace, res.Stats.AllocFailures)
	assert.Positive(t, res.PeakLive)
}

func TestStressIsReproducible(t *testing.T) {
	resetFlags()
	stressOps = 1500
	stressSeed = 99
	stressArena = "4KiB"
	jsonOut = true

	first, err := captureOutput(t, runStress)
	require.NoError(t, err)
	second, err := captureOutput(t, runStress)
	require.NoError(t, err)

	var a, b stressResult
	decodeJSON(t, first, &a)
	decodeJSON(t, second, &b)
	assert.Equal(t, a.Stats.Stats, b.Stats.Stats)
	assert.Equal(t, a.PeakLive, b.PeakLive)
}
