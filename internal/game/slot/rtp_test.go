package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRTP(t *testing.T) {
	tests := []struct {
		name     string
		totalWin int64
		totalBet int64
		want     float64
	}{
		{name: "无投注", totalWin: 0, totalBet: 0, want: 0},
		{name: "全输", totalWin: 0, totalBet: 100, want: 0},
		{name: "持平", totalWin: 100, totalBet: 100, want: 1},
		{name: "部分返还", totalWin: 45, totalBet: 50, want: 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateRTP(tt.totalWin, tt.totalBet), 1e-9)
		})
	}
}

func TestRTPMonitor_Record(t *testing.T) {
	m := NewRTPMonitor(DifficultyMedium)

	stats := m.GetStatistics()
	assert.InDelta(t, ReturnToPlayer(DifficultyMedium), stats.TargetRTP, 1e-9)
	assert.Zero(t, stats.LongTermSamples)
	assert.True(t, stats.LastUpdate.IsZero())

	m.Record(10, 0)
	m.Record(10, 450)

	stats = m.GetStatistics()
	assert.Equal(t, 2, stats.ShortTermSamples)
	assert.Equal(t, 2, stats.LongTermSamples)
	assert.InDelta(t, 22.5, stats.LongTermRTP, 1e-9)
	assert.False(t, stats.LastUpdate.IsZero())
}

func TestRTPMonitor_WindowEviction(t *testing.T) {
	m := NewRTPMonitor(DifficultyEasy)

	m.Record(10, 100)
	for i := 0; i < 99; i++ {
		m.Record(10, 0)
	}

	// 第 100 轮仍在短期窗口内
	stats := m.GetStatistics()
	assert.Equal(t, ShortTermWindow, stats.ShortTermSamples)
	assert.Greater(t, stats.ShortTermRTP, 0.0)

	m.Record(10, 0)
	stats = m.GetStatistics()
	assert.Equal(t, ShortTermWindow, stats.ShortTermSamples)
	assert.Equal(t, 0.0, stats.ShortTermRTP)
	assert.Equal(t, ShortTermWindow+1, stats.LongTermSamples)
	assert.Greater(t, stats.LongTermRTP, 0.0)
}

func TestRTPMonitor_Reset(t *testing.T) {
	m := NewRTPMonitor(DifficultyEasy)
	m.Record(10, 20)

	m.Reset(DifficultyHard)

	stats := m.GetStatistics()
	assert.Zero(t, stats.LongTermSamples)
	assert.InDelta(t, ReturnToPlayer(DifficultyHard), stats.TargetRTP, 1e-9)
}
