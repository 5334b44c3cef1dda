package slot

// CalculateStatistics 对完整回合日志做全量汇总。空日志返回全零统计。
func CalculateStatistics(rounds []Round) Statistics {
	var stats Statistics
	stats.TotalRounds = len(rounds)
	if stats.TotalRounds == 0 {
		return stats
	}

	var edgeSum float64
	for _, r := range rounds {
		if r.IsWin() {
			stats.TotalWins++
		}
		stats.TotalBetAmount += r.Bet
		stats.TotalPayoutAmount += r.Payout
		edgeSum += r.HouseEdge
	}

	stats.TotalLosses = stats.TotalRounds - stats.TotalWins
	stats.WinRate = float64(stats.TotalWins) / float64(stats.TotalRounds)
	stats.NetProfit = stats.TotalPayoutAmount - stats.TotalBetAmount
	stats.AverageHouseEdge = edgeSum / float64(stats.TotalRounds)
	return stats
}

// BalancePoint 余额曲线上的一个点
type BalancePoint struct {
	RoundNumber int     `json:"round_number"`
	Balance     float64 `json:"balance"`
}

// BalanceHistory 按回合顺序生成余额曲线（展示破产趋势）
func BalanceHistory(rounds []Round) []BalancePoint {
	points := make([]BalancePoint, 0, len(rounds))
	for _, r := range rounds {
		points = append(points, BalancePoint{RoundNumber: r.RoundNumber, Balance: r.BalanceAfter})
	}
	return points
}

// SymbolFrequency 统计各符号在所有卷轴上出现的次数
func SymbolFrequency(rounds []Round) map[Symbol]int {
	counts := make(map[Symbol]int, len(symbolTable))
	for _, info := range symbolTable {
		counts[info.Symbol] = 0
	}
	for _, r := range rounds {
		for _, s := range r.Symbols {
			counts[s]++
		}
	}
	return counts
}
