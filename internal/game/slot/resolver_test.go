package slot

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSymbols(t *testing.T) {
	tests := []struct {
		name          string
		symbols       [ReelCount]Symbol
		difficulty    Difficulty
		balanceBefore float64
		bet           int64
		wantResult    Result
		wantPayout    int64
		wantBalance   float64
		wantEdge      float64
	}{
		{
			name:          "三个七中等难度",
			symbols:       [ReelCount]Symbol{SymbolSeven, SymbolSeven, SymbolSeven},
			difficulty:    DifficultyMedium,
			balanceBefore: 100, bet: 10,
			wantResult: ResultWin, wantPayout: 450, wantBalance: 540, wantEdge: -44,
		},
		{
			name:          "三个樱桃简单难度",
			symbols:       [ReelCount]Symbol{SymbolCherry, SymbolCherry, SymbolCherry},
			difficulty:    DifficultyEasy,
			balanceBefore: 100, bet: 10,
			wantResult: ResultWin, wantPayout: 19, wantBalance: 109, wantEdge: -0.9,
		},
		{
			name:          "三个樱桃困难难度向下取整",
			symbols:       [ReelCount]Symbol{SymbolCherry, SymbolCherry, SymbolCherry},
			difficulty:    DifficultyHard,
			balanceBefore: 100, bet: 7,
			wantResult: ResultWin, wantPayout: 11, wantBalance: 104, wantEdge: -4.0 / 7.0,
		},
		{
			name:          "三个铃铛",
			symbols:       [ReelCount]Symbol{SymbolBell, SymbolBell, SymbolBell},
			difficulty:    DifficultyMedium,
			balanceBefore: 50, bet: 5,
			wantResult: ResultWin, wantPayout: 45, wantBalance: 90, wantEdge: -8,
		},
		{
			name:          "不同符号",
			symbols:       [ReelCount]Symbol{SymbolCherry, SymbolBar, SymbolBell},
			difficulty:    DifficultyMedium,
			balanceBefore: 15, bet: 10,
			wantResult: ResultLoss, wantPayout: 0, wantBalance: 5, wantEdge: 1,
		},
		{
			name:          "两个相同不算中奖",
			symbols:       [ReelCount]Symbol{SymbolSeven, SymbolSeven, SymbolBar},
			difficulty:    DifficultyEasy,
			balanceBefore: 100, bet: 10,
			wantResult: ResultLoss, wantPayout: 0, wantBalance: 90, wantEdge: 1,
		},
		{
			name:          "余额不足一注时归零",
			symbols:       [ReelCount]Symbol{SymbolBar, SymbolBell, SymbolSeven},
			difficulty:    DifficultyMedium,
			balanceBefore: 4, bet: 10,
			wantResult: ResultLoss, wantPayout: 0, wantBalance: 0, wantEdge: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGameConfig().WithBet(tt.bet)
			cfg.Difficulty = tt.difficulty

			round := ResolveSymbols(cfg, tt.balanceBefore, tt.symbols)

			assert.Equal(t, tt.wantResult, round.Result)
			assert.Equal(t, tt.wantPayout, round.Payout)
			assert.Equal(t, tt.wantBalance, round.BalanceAfter)
			assert.InDelta(t, tt.wantEdge, round.HouseEdge, 1e-9)
			assert.Equal(t, tt.balanceBefore, round.BalanceBefore)
			assert.Equal(t, tt.bet, round.Bet)
			assert.Equal(t, tt.symbols, round.Symbols)
			assert.Zero(t, round.RoundNumber)
		})
	}
}

func TestResolve_ForcedSevensReachVictory(t *testing.T) {
	resolver := NewResolver(NewSequenceGenerator(0.95))
	cfg := DefaultGameConfig()

	round := resolver.Resolve(cfg, 100)

	require.Equal(t, [ReelCount]Symbol{SymbolSeven, SymbolSeven, SymbolSeven}, round.Symbols)
	assert.Equal(t, int64(450), round.Payout)
	assert.Equal(t, 540.0, round.BalanceAfter)

	over := CheckGameOver(round.BalanceAfter, cfg.WinTarget, cfg.BetAmount)
	assert.True(t, over.IsOver)
	assert.Equal(t, ReasonVictory, over.Reason)
}

func TestResolve_ForcedMixedSymbols(t *testing.T) {
	// 0.1 -> cherry, 0.5 -> bar, 0.8 -> bell
	resolver := NewResolver(NewSequenceGenerator(0.1, 0.5, 0.8))
	cfg := DefaultGameConfig()

	round := resolver.Resolve(cfg, 15)

	assert.Equal(t, [ReelCount]Symbol{SymbolCherry, SymbolBar, SymbolBell}, round.Symbols)
	assert.Equal(t, ResultLoss, round.Result)
	assert.Equal(t, 5.0, round.BalanceAfter)

	over := CheckGameOver(round.BalanceAfter, cfg.WinTarget, cfg.BetAmount)
	assert.False(t, over.IsOver)
	assert.Equal(t, ReasonNone, over.Reason)
}

func TestResolve_RoundProperties(t *testing.T) {
	resolver := NewResolver(NewSeededRandomGenerator(2024))
	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard} {
		cfg := DefaultGameConfig()
		cfg.Difficulty = d

		for i := 0; i < 2000; i++ {
			balance := float64(i%300) + 0.5
			r := resolver.Resolve(cfg, balance)

			if r.Payout < 0 {
				t.Fatalf("payout %d < 0", r.Payout)
			}
			if (r.Payout > 0) != r.IsWin() {
				t.Fatalf("payout %d inconsistent with result %s", r.Payout, r.Result)
			}
			want := math.Max(0, r.BalanceBefore-float64(r.Bet)+float64(r.Payout))
			if r.BalanceAfter != want {
				t.Fatalf("balanceAfter = %v, want %v", r.BalanceAfter, want)
			}
			if r.BalanceAfter < 0 {
				t.Fatalf("balanceAfter %v < 0", r.BalanceAfter)
			}
			if !r.IsWin() && r.HouseEdge != 1 {
				t.Fatalf("loss house edge = %v, want 1", r.HouseEdge)
			}
		}
	}
}

func TestResolve_WinRateWithinBounds(t *testing.T) {
	resolver := NewResolver(NewSeededRandomGenerator(11))
	cfg := DefaultGameConfig()

	wins := 0
	const spins = 500
	for i := 0; i < spins; i++ {
		if resolver.Resolve(cfg, 1000).IsWin() {
			wins++
		}
	}

	rate := float64(wins) / spins
	assert.Greater(t, rate, 0.02)
	assert.Less(t, rate, 0.25)
}
