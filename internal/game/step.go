package game

import "github.com/wfunc/ruin-slot/internal/game/slot"

// State 会话状态快照（值类型，可自由复制）
type State struct {
	PlayerBalance float64             `json:"player_balance"`
	HouseBalance  float64             `json:"house_balance"`
	CurrentBet    int64               `json:"current_bet"`
	RoundNumber   int                 `json:"round_number"`
	IsOver        bool                `json:"is_over"`
	Reason        slot.GameOverReason `json:"reason"`
	BatchRunning  bool                `json:"batch_running"`
}

// InitialState 由配置生成初始状态
func InitialState(cfg slot.GameConfig) State {
	return State{
		PlayerBalance: cfg.InitialBalance,
		HouseBalance:  cfg.HouseBalance,
		CurrentBet:    slot.ClampBet(cfg.BetAmount, cfg.InitialBalance),
		Reason:        slot.ReasonNone,
	}
}

// Step 纯函数：在给定状态上结算一轮，返回新状态和回合记录。
// 实际投注按当前余额限制在 [1, floor(余额)] 内。
func Step(s State, cfg slot.GameConfig, resolver *slot.Resolver) (State, slot.Round) {
	bet := slot.ClampBet(s.CurrentBet, s.PlayerBalance)
	round := resolver.Resolve(cfg.WithBet(bet), s.PlayerBalance)
	round.RoundNumber = s.RoundNumber + 1

	next := s
	next.RoundNumber = round.RoundNumber
	next.PlayerBalance = round.BalanceAfter
	next.HouseBalance += float64(round.Bet - round.Payout)

	over := slot.CheckGameOver(next.PlayerBalance, cfg.WinTarget, bet)
	next.IsOver = over.IsOver
	next.Reason = over.Reason
	return next, round
}

// thresholdReached 原始余额是否已越过终局阈值
func thresholdReached(s State, cfg slot.GameConfig) bool {
	return s.PlayerBalance <= 0 || s.PlayerBalance >= cfg.WinTarget
}
