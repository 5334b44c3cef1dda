package slot

import "math"

// Resolver 回合解析器：抽取三个符号并结算，无状态
type Resolver struct {
	randomizer *Randomizer
}

// NewResolver 创建解析器，gen 为 nil 时使用加密随机数
func NewResolver(gen RandomGenerator) *Resolver {
	return &Resolver{randomizer: NewRandomizer(gen)}
}

// Resolve 以当前余额解析一轮转动。RoundNumber 由调用方分配。
func (r *Resolver) Resolve(cfg GameConfig, balanceBefore float64) Round {
	var symbols [ReelCount]Symbol
	// 各卷轴独立抽取（有放回）
	for i := range symbols {
		symbols[i] = r.randomizer.Draw()
	}
	return ResolveSymbols(cfg, balanceBefore, symbols)
}

// ResolveSymbols 对给定的卷轴结果结算。只有三连算中奖，没有部分赔付。
func ResolveSymbols(cfg GameConfig, balanceBefore float64, symbols [ReelCount]Symbol) Round {
	bet := cfg.BetAmount
	isWin := symbols[0] == symbols[1] && symbols[1] == symbols[2]

	var payout int64
	if isWin {
		basePayout := bet * PayoutMultiplier(symbols[0])
		// 庄家优势只作用于中奖赔付
		payout = int64(math.Floor(float64(basePayout) * cfg.Difficulty.RetentionFactor()))
	}

	// 余额不会为负，超出部分直接吸收，不记为欠款
	balanceAfter := math.Max(0, balanceBefore-float64(bet)+float64(payout))

	houseEdge := 1.0
	if payout > 0 {
		houseEdge = float64(bet-payout) / float64(bet)
	}

	result := ResultLoss
	if isWin && payout > 0 {
		result = ResultWin
	}

	return Round{
		Bet:           bet,
		Symbols:       symbols,
		Result:        result,
		Payout:        payout,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		HouseEdge:     houseEdge,
	}
}
