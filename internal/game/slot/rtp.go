package slot

import (
	"sync"
	"time"
)

// 滑动窗口大小（回合数）
const (
	ShortTermWindow = 100
	LongTermWindow  = 1000
)

// RTPMonitor 观测实际返还率，只记录不干预赔率
type RTPMonitor struct {
	mu        sync.RWMutex
	targetRTP float64
	shortTerm *RTPHistory
	longTerm  *RTPHistory
	updatedAt time.Time
}

// RTPHistory 固定样本数的滑动窗口
type RTPHistory struct {
	totalBet   int64
	totalWin   int64
	samples    []RTPSample
	maxSamples int
}

// RTPSample RTP样本
type RTPSample struct {
	Bet int64
	Win int64
}

// NewRTPMonitor 创建监视器，目标值取该难度的理论返还率
func NewRTPMonitor(d Difficulty) *RTPMonitor {
	return &RTPMonitor{
		targetRTP: ReturnToPlayer(d),
		shortTerm: newRTPHistory(ShortTermWindow),
		longTerm:  newRTPHistory(LongTermWindow),
	}
}

func newRTPHistory(maxSamples int) *RTPHistory {
	return &RTPHistory{
		samples:    make([]RTPSample, 0, maxSamples),
		maxSamples: maxSamples,
	}
}

// Record 记录一轮投注与赔付
func (m *RTPMonitor) Record(bet, win int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sample := RTPSample{Bet: bet, Win: win}
	m.shortTerm.addSample(sample)
	m.longTerm.addSample(sample)
	m.updatedAt = time.Now()
}

// Reset 清空样本并切换目标难度
func (m *RTPMonitor) Reset(d Difficulty) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.targetRTP = ReturnToPlayer(d)
	m.shortTerm = newRTPHistory(m.shortTerm.maxSamples)
	m.longTerm = newRTPHistory(m.longTerm.maxSamples)
	m.updatedAt = time.Time{}
}

// GetStatistics 获取统计信息
func (m *RTPMonitor) GetStatistics() RTPStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return RTPStatistics{
		TargetRTP:        m.targetRTP,
		ShortTermRTP:     m.shortTerm.currentRTP(),
		LongTermRTP:      m.longTerm.currentRTP(),
		ShortTermSamples: len(m.shortTerm.samples),
		LongTermSamples:  len(m.longTerm.samples),
		LastUpdate:       m.updatedAt,
	}
}

// CalculateRTP 赔付/投注，投注为0时返回0
func CalculateRTP(totalWin, totalBet int64) float64 {
	if totalBet == 0 {
		return 0
	}
	return float64(totalWin) / float64(totalBet)
}

func (h *RTPHistory) addSample(sample RTPSample) {
	h.samples = append(h.samples, sample)
	h.totalBet += sample.Bet
	h.totalWin += sample.Win

	if len(h.samples) > h.maxSamples {
		removed := h.samples[0]
		h.samples = h.samples[1:]
		h.totalBet -= removed.Bet
		h.totalWin -= removed.Win
	}
}

func (h *RTPHistory) currentRTP() float64 {
	return CalculateRTP(h.totalWin, h.totalBet)
}

// RTPStatistics RTP统计信息
type RTPStatistics struct {
	TargetRTP        float64   `json:"target_rtp"`
	ShortTermRTP     float64   `json:"short_term_rtp"`
	LongTermRTP      float64   `json:"long_term_rtp"`
	ShortTermSamples int       `json:"short_term_samples"`
	LongTermSamples  int       `json:"long_term_samples"`
	LastUpdate       time.Time `json:"last_update"`
}
