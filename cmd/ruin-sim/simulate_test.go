package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/ruin-slot/internal/game/slot"
)

func TestSimulate(t *testing.T) {
	opts := simOptions{
		Game:      slot.DefaultGameConfig(),
		Sessions:  20,
		MaxRounds: 100000,
		Workers:   4,
		Seed:      42,
	}

	calls := 0
	report, err := simulate(context.Background(), opts, func() { calls++ })
	require.NoError(t, err)

	assert.Equal(t, 20, report.Sessions)
	assert.Equal(t, 20, calls)
	assert.Equal(t, report.Sessions, report.Ruined+report.Victories+report.Unfinished)
	assert.Len(t, report.FinalBalances, 20)
	assert.Greater(t, report.TotalRounds, 0)
	assert.GreaterOrEqual(t, report.RuinRate(), 0.0)
	assert.LessOrEqual(t, report.RuinRate()+report.VictoryRate(), 1.0)
}

func TestSimulateRoundCap(t *testing.T) {
	cfg := slot.DefaultGameConfig()
	cfg.InitialBalance = 1000
	cfg.WinTarget = 5000
	cfg.BetAmount = 1

	report, err := simulate(context.Background(), simOptions{
		Game:      cfg,
		Sessions:  3,
		MaxRounds: 5,
		BatchSize: 2,
		Workers:   2,
		Seed:      7,
	}, nil)
	require.NoError(t, err)

	// 每轮最多输 1，5 轮内既不会破产也不会胜利
	assert.Equal(t, 3, report.Unfinished)
	assert.Equal(t, 15, report.TotalRounds)
	assert.Equal(t, 5, report.MaxRounds)
}

func TestSimulateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulate(ctx, simOptions{
		Game:      slot.DefaultGameConfig(),
		Sessions:  10,
		MaxRounds: 1000,
		Workers:   2,
		Seed:      1,
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulateSeededIsReproducible(t *testing.T) {
	opts := simOptions{
		Game:      slot.DefaultGameConfig(),
		Sessions:  5,
		MaxRounds: 100000,
		Workers:   1,
		Seed:      99,
	}

	a, err := simulate(context.Background(), opts, nil)
	require.NoError(t, err)
	b, err := simulate(context.Background(), opts, nil)
	require.NoError(t, err)

	assert.Equal(t, a.TotalRounds, b.TotalRounds)
	assert.Equal(t, a.Ruined, b.Ruined)
	assert.Equal(t, a.TotalPayout, b.TotalPayout)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want float64
	}{
		{"空", nil, 0},
		{"奇数个", []float64{1, 2, 9}, 2},
		{"偶数个", []float64{0, 10, 20, 200}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.in))
		})
	}
}

func TestBuildGameConfig(t *testing.T) {
	cfg, err := buildGameConfig("", slot.GameConfig{
		InitialBalance: 100,
		HouseBalance:   10000,
		BetAmount:      500,
		WinTarget:      200,
		Difficulty:     "HARD",
	})
	require.NoError(t, err)
	assert.Equal(t, slot.DifficultyHard, cfg.Difficulty)
	assert.Equal(t, int64(100), cfg.BetAmount)

	_, err = buildGameConfig("", slot.GameConfig{
		InitialBalance: 100,
		HouseBalance:   10000,
		BetAmount:      10,
		WinTarget:      200,
		Difficulty:     "insane",
	})
	assert.Error(t, err)
}
