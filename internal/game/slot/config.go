package slot

import (
	"math"
	"strings"

	"github.com/wfunc/ruin-slot/internal/errors"
)

// GameConfig 单个会话的游戏配置，会话内不可变（直到显式重置）
type GameConfig struct {
	InitialBalance float64    `json:"initial_balance" mapstructure:"initial_balance"` // 玩家初始余额 (>0)
	HouseBalance   float64    `json:"house_balance" mapstructure:"house_balance"`     // 庄家初始余额 (>=0)
	BetAmount      int64      `json:"bet_amount" mapstructure:"bet_amount"`           // 每轮投注 (>=1)
	WinTarget      float64    `json:"win_target" mapstructure:"win_target"`           // 胜利目标 (>初始余额)
	Difficulty     Difficulty `json:"difficulty" mapstructure:"difficulty"`           // easy / medium / hard
}

// DefaultGameConfig 默认配置
func DefaultGameConfig() GameConfig {
	return GameConfig{
		InitialBalance: 100,
		HouseBalance:   10000,
		BetAmount:      10,
		WinTarget:      200,
		Difficulty:     DifficultyMedium,
	}
}

// Validate 校验配置取值范围
func (c GameConfig) Validate() error {
	var problems []string
	if !(c.InitialBalance > 0) || math.IsInf(c.InitialBalance, 0) {
		problems = append(problems, "initial_balance 必须大于0")
	}
	if !(c.HouseBalance >= 0) || math.IsInf(c.HouseBalance, 0) {
		problems = append(problems, "house_balance 不能为负数")
	}
	if c.BetAmount < 1 {
		problems = append(problems, "bet_amount 必须 >= 1")
	}
	if !(c.WinTarget > c.InitialBalance) || math.IsInf(c.WinTarget, 0) {
		problems = append(problems, "win_target 必须大于 initial_balance")
	}
	if !c.Difficulty.IsValid() {
		problems = append(problems, "difficulty 必须是 easy/medium/hard")
	}
	if len(problems) > 0 {
		return errors.New(errors.ErrConfigValidate, problems...)
	}
	return nil
}

// WithBet 返回替换投注额后的副本
func (c GameConfig) WithBet(bet int64) GameConfig {
	c.BetAmount = bet
	return c
}

// ClampBet 将投注额限制在 [1, limit] 内，limit 按整数向下取整，最小为1
func ClampBet(bet int64, limit float64) int64 {
	upper := int64(1)
	if limit >= 1 {
		if limit >= math.MaxInt64 {
			upper = math.MaxInt64
		} else {
			upper = int64(math.Floor(limit))
		}
	}
	if bet > upper {
		bet = upper
	}
	if bet < 1 {
		bet = 1
	}
	return bet
}

// retentionFactors 难度 -> 中奖赔付保留系数，1-系数为名义庄家优势
var retentionFactors = map[Difficulty]float64{
	DifficultyEasy:   0.95,
	DifficultyMedium: 0.90,
	DifficultyHard:   0.85,
}

// ParseDifficulty 解析难度字符串（不区分大小写）
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", errors.Newf(errors.ErrInvalidDifficulty, "未知难度: %q", s)
	}
	return d, nil
}

// IsValid 是否为已知难度
func (d Difficulty) IsValid() bool {
	_, ok := retentionFactors[d]
	return ok
}

// RetentionFactor 中奖赔付保留系数，未知难度按 medium 处理
func (d Difficulty) RetentionFactor() float64 {
	if f, ok := retentionFactors[d]; ok {
		return f
	}
	return retentionFactors[DifficultyMedium]
}

// HouseEdge 名义庄家优势
func (d Difficulty) HouseEdge() float64 {
	return 1 - d.RetentionFactor()
}

// WinProbability 三连中奖概率 Σp³
func WinProbability() float64 {
	total := 0.0
	for _, info := range symbolTable {
		total += info.Probability * info.Probability * info.Probability
	}
	return total
}

// ExpectedValue 单轮期望收益（不计赔付取整），对投注额线性
func ExpectedValue(bet int64, d Difficulty) float64 {
	expectedReturn := 0.0
	for _, info := range symbolTable {
		p := info.Probability * info.Probability * info.Probability
		expectedReturn += p * float64(info.Payout)
	}
	return float64(bet) * (expectedReturn*d.RetentionFactor() - 1)
}

// ReturnToPlayer 理论返还率（RTP）
func ReturnToPlayer(d Difficulty) float64 {
	return 1 + ExpectedValue(1, d)
}
