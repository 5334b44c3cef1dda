package models

import "time"

// SimulationRun 一次批量模拟的汇总
type SimulationRun struct {
	BaseModel
	RunID      string `gorm:"uniqueIndex;size:36;not null" json:"run_id"`
	Difficulty string `gorm:"size:10;index;not null" json:"difficulty"` // easy, medium, hard

	// 游戏配置
	InitialBalance float64 `json:"initial_balance"`
	HouseBalance   float64 `json:"house_balance"`
	BetAmount      int64   `json:"bet_amount"`
	WinTarget      float64 `json:"win_target"`
	Seed           int64   `gorm:"default:0" json:"seed"` // 0 为加密随机数

	// 结果
	Sessions         int     `json:"sessions"`
	Ruined           int     `json:"ruined"`
	Victories        int     `json:"victories"`
	Unfinished       int     `json:"unfinished"`
	TotalRounds      int64   `json:"total_rounds"`
	MaxRounds        int     `json:"max_rounds"`
	TotalBet         int64   `json:"total_bet"`
	TotalPayout      int64   `json:"total_payout"`
	ObservedRTP      float64 `json:"observed_rtp"`
	TheoreticalRTP   float64 `json:"theoretical_rtp"`
	AverageHouseEdge float64 `json:"average_house_edge"`

	StartedAt time.Time `json:"started_at"`
	Duration  int64     `json:"duration"` // 毫秒

	Outcomes []SimulationOutcome `gorm:"foreignKey:RunID;references:RunID" json:"outcomes,omitempty"`
}

// TableName 表名
func (SimulationRun) TableName() string {
	return "simulation_runs"
}

// RuinRate 破产比例
func (r *SimulationRun) RuinRate() float64 {
	if r.Sessions == 0 {
		return 0
	}
	return float64(r.Ruined) / float64(r.Sessions)
}

// SimulationOutcome 单个会话的结局
type SimulationOutcome struct {
	ID           uint    `gorm:"primarykey" json:"id"`
	RunID        string  `gorm:"size:36;index;not null" json:"run_id"`
	SessionIndex int     `gorm:"not null" json:"session_index"`
	Reason       string  `gorm:"size:10;not null" json:"reason"` // ruin, victory, none
	Rounds       int     `json:"rounds"`
	FinalBalance float64 `json:"final_balance"`
	TotalBet     int64   `json:"total_bet"`
	TotalPayout  int64   `json:"total_payout"`
}

// TableName 表名
func (SimulationOutcome) TableName() string {
	return "simulation_outcomes"
}
