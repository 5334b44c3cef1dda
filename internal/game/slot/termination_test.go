package slot

import "testing"

func TestCheckGameOver(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		target  float64
		bet     int64
		want    GameOverResult
	}{
		{name: "余额为0破产", balance: 0, target: 200, bet: 10, want: GameOverResult{IsOver: true, Reason: ReasonRuin}},
		{name: "余额为负破产", balance: -5, target: 200, bet: 10, want: GameOverResult{IsOver: true, Reason: ReasonRuin}},
		{name: "恰好达到目标", balance: 200, target: 200, bet: 10, want: GameOverResult{IsOver: true, Reason: ReasonVictory}},
		{name: "超过目标", balance: 540, target: 200, bet: 10, want: GameOverResult{IsOver: true, Reason: ReasonVictory}},
		{name: "低于一注仍继续", balance: 5, target: 200, bet: 10, want: GameOverResult{IsOver: false, Reason: ReasonNone}},
		{name: "正常进行", balance: 150, target: 200, bet: 10, want: GameOverResult{IsOver: false, Reason: ReasonNone}},
		{name: "破产优先于胜利", balance: 0, target: 0, bet: 10, want: GameOverResult{IsOver: true, Reason: ReasonRuin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckGameOver(tt.balance, tt.target, tt.bet)
			if got != tt.want {
				t.Errorf("CheckGameOver(%v, %v, %d) = %+v, want %+v", tt.balance, tt.target, tt.bet, got, tt.want)
			}
		})
	}
}

func TestCheckGameOver_BetDoesNotMatter(t *testing.T) {
	for _, bet := range []int64{1, 10, 1000} {
		if got := CheckGameOver(50, 200, bet); got.IsOver {
			t.Errorf("bet %d changed the outcome: %+v", bet, got)
		}
	}
}
