package slot

import "fmt"

// Symbol 卷轴符号
type Symbol string

const (
	SymbolCherry Symbol = "cherry" // 樱桃
	SymbolBar    Symbol = "bar"    // BAR
	SymbolBell   Symbol = "bell"   // 铃铛
	SymbolSeven  Symbol = "seven"  // 7
)

// ReelCount 每轮转动的卷轴数
const ReelCount = 3

// Result 单轮结果
type Result string

const (
	ResultWin  Result = "win"  // 三连中奖
	ResultLoss Result = "loss" // 未中奖
)

// Difficulty 难度（决定庄家优势）
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// GameOverReason 终局原因
type GameOverReason string

const (
	ReasonNone    GameOverReason = "none"    // 未结束
	ReasonRuin    GameOverReason = "ruin"    // 破产
	ReasonVictory GameOverReason = "victory" // 达成目标
)

// Round 一次已结算的转动记录，创建后不再修改
type Round struct {
	RoundNumber   int               `json:"round_number"`   // 由会话分配，解析器不设置
	Bet           int64             `json:"bet"`            // 投注金额
	Symbols       [ReelCount]Symbol `json:"symbols"`        // 三个卷轴的符号
	Result        Result            `json:"result"`         // win / loss
	Payout        int64             `json:"payout"`         // 赔付金额（已扣除庄家优势）
	BalanceBefore float64           `json:"balance_before"` // 转动前余额
	BalanceAfter  float64           `json:"balance_after"`  // 转动后余额，最低为0
	HouseEdge     float64           `json:"house_edge"`     // 本轮庄家优势
}

// IsWin 是否中奖
func (r Round) IsWin() bool {
	return r.Result == ResultWin
}

// String 便于日志输出
func (r Round) String() string {
	return fmt.Sprintf("#%d [%s %s %s] %s bet=%d payout=%d balance=%.2f->%.2f",
		r.RoundNumber, r.Symbols[0], r.Symbols[1], r.Symbols[2],
		r.Result, r.Bet, r.Payout, r.BalanceBefore, r.BalanceAfter)
}

// GameOverResult 终局检查结果
type GameOverResult struct {
	IsOver bool           `json:"is_over"`
	Reason GameOverReason `json:"reason"`
}

// Statistics 回合日志的汇总统计，空日志时为全零值
type Statistics struct {
	TotalRounds       int     `json:"total_rounds"`
	TotalWins         int     `json:"total_wins"`
	TotalLosses       int     `json:"total_losses"`
	WinRate           float64 `json:"win_rate"`
	TotalBetAmount    int64   `json:"total_bet_amount"`
	TotalPayoutAmount int64   `json:"total_payout_amount"`
	NetProfit         int64   `json:"net_profit"`
	AverageHouseEdge  float64 `json:"average_house_edge"`
}
