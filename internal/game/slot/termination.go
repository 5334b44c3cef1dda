package slot

// CheckGameOver 根据余额与胜利目标判断是否终局。
// 破产优先判断；余额低于一注但大于0时仍可继续游戏，投注额不参与判断。
func CheckGameOver(balance, winTarget float64, _ int64) GameOverResult {
	if balance <= 0 {
		return GameOverResult{IsOver: true, Reason: ReasonRuin}
	}
	if balance >= winTarget {
		return GameOverResult{IsOver: true, Reason: ReasonVictory}
	}
	return GameOverResult{IsOver: false, Reason: ReasonNone}
}
