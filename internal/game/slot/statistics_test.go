package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRounds() []Round {
	cfg := DefaultGameConfig()
	seven := [ReelCount]Symbol{SymbolSeven, SymbolSeven, SymbolSeven}
	mixed := [ReelCount]Symbol{SymbolCherry, SymbolBar, SymbolBell}

	r1 := ResolveSymbols(cfg, 100, mixed)
	r1.RoundNumber = 1
	r2 := ResolveSymbols(cfg, r1.BalanceAfter, mixed)
	r2.RoundNumber = 2
	r3 := ResolveSymbols(cfg, r2.BalanceAfter, seven)
	r3.RoundNumber = 3
	return []Round{r1, r2, r3}
}

func TestCalculateStatistics_Empty(t *testing.T) {
	assert.Equal(t, Statistics{}, CalculateStatistics(nil))
	assert.Equal(t, Statistics{}, CalculateStatistics([]Round{}))
}

func TestCalculateStatistics(t *testing.T) {
	stats := CalculateStatistics(sampleRounds())

	assert.Equal(t, 3, stats.TotalRounds)
	assert.Equal(t, 1, stats.TotalWins)
	assert.Equal(t, 2, stats.TotalLosses)
	assert.InDelta(t, 1.0/3.0, stats.WinRate, 1e-9)
	assert.Equal(t, int64(30), stats.TotalBetAmount)
	assert.Equal(t, int64(450), stats.TotalPayoutAmount)
	assert.Equal(t, int64(420), stats.NetProfit)
	// (1 + 1 + (-44)) / 3
	assert.InDelta(t, -14.0, stats.AverageHouseEdge, 1e-9)

	assert.Equal(t, stats.TotalRounds, stats.TotalWins+stats.TotalLosses)
	assert.Equal(t, stats.TotalPayoutAmount-stats.TotalBetAmount, stats.NetProfit)
}

func TestCalculateStatistics_Idempotent(t *testing.T) {
	rounds := sampleRounds()
	assert.Equal(t, CalculateStatistics(rounds), CalculateStatistics(rounds))
}

func TestBalanceHistory(t *testing.T) {
	points := BalanceHistory(sampleRounds())

	assert.Equal(t, []BalancePoint{
		{RoundNumber: 1, Balance: 90},
		{RoundNumber: 2, Balance: 80},
		{RoundNumber: 3, Balance: 520},
	}, points)
	assert.Empty(t, BalanceHistory(nil))
}

func TestSymbolFrequency(t *testing.T) {
	counts := SymbolFrequency(sampleRounds())

	assert.Equal(t, 2, counts[SymbolCherry])
	assert.Equal(t, 2, counts[SymbolBar])
	assert.Equal(t, 2, counts[SymbolBell])
	assert.Equal(t, 3, counts[SymbolSeven])

	empty := SymbolFrequency(nil)
	assert.Len(t, empty, 4)
}
