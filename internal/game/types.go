package game

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wfunc/ruin-slot/internal/game/slot"
)

// EventType 会话事件类型
type EventType string

const (
	EventRound       EventType = "round"        // 一轮结算完成
	EventPhase       EventType = "phase"        // 阶段变更
	EventGameOver    EventType = "game_over"    // 破产或胜利
	EventReset       EventType = "reset"        // 会话重置
	EventBetChanged  EventType = "bet_changed"  // 投注额变更
	EventBatchStart  EventType = "batch_start"  // 自动游戏开始
	EventBatchFinish EventType = "batch_finish" // 自动游戏结束
)

// SessionEvent 推送给观察者的会话事件
type SessionEvent struct {
	Type      EventType           `json:"type"`
	SessionID string              `json:"session_id"`
	Phase     Phase               `json:"phase"`
	State     State               `json:"state"`
	Round     *slot.Round         `json:"round,omitempty"`
	Reason    slot.GameOverReason `json:"reason,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Observer 会话事件观察者，在会话锁外同步调用
type Observer func(event SessionEvent)

// Pacer 每轮结束后由表现层控制节奏（动画、延迟），返回错误将停止自动游戏
type Pacer interface {
	Pace(ctx context.Context, round slot.Round) error
}

// PacerFunc 函数适配器
type PacerFunc func(ctx context.Context, round slot.Round) error

// Pace 实现 Pacer
func (f PacerFunc) Pace(ctx context.Context, round slot.Round) error {
	return f(ctx, round)
}

// StopFlag 协作式停止标志，只在回合边界检查
type StopFlag struct {
	v atomic.Bool
}

// Set 请求停止
func (f *StopFlag) Set() { f.v.Store(true) }

// Clear 清除
func (f *StopFlag) Clear() { f.v.Store(false) }

// IsSet 是否已请求停止
func (f *StopFlag) IsSet() bool { return f.v.Load() }

// StopReason 自动游戏结束原因
type StopReason string

const (
	StopCompleted StopReason = "completed" // 打满 n 轮
	StopRequested StopReason = "stopped"   // 用户停止
	StopCanceled  StopReason = "canceled"  // 上下文取消或节奏控制出错
	StopGameOver  StopReason = "game_over" // 破产或胜利
	StopRejected  StopReason = "rejected"  // 已有自动游戏或会话已结束
)

// BatchResult 自动游戏结果
type BatchResult struct {
	Requested  int          `json:"requested"`
	Played     int          `json:"played"`
	Rounds     []slot.Round `json:"rounds"`
	StopReason StopReason   `json:"stop_reason"`
	Final      State        `json:"final"`
}

// Rejected 是否被拒绝执行
func (r BatchResult) Rejected() bool {
	return r.StopReason == StopRejected
}

type batchOptions struct {
	pacer   Pacer
	onRound func(round slot.Round, state State)
}

// BatchOption 自动游戏选项
type BatchOption func(*batchOptions)

func newBatchOptions(opts []BatchOption) batchOptions {
	var o batchOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPacer 设置节奏控制
func WithPacer(p Pacer) BatchOption {
	return func(o *batchOptions) { o.pacer = p }
}

// WithRoundCallback 每轮结算后回调（会话锁外）
func WithRoundCallback(fn func(round slot.Round, state State)) BatchOption {
	return func(o *batchOptions) { o.onRound = fn }
}

// SessionSummary 会话概要
type SessionSummary struct {
	SessionID    string             `json:"session_id"`
	Phase        Phase              `json:"phase"`
	State        State              `json:"state"`
	Config       slot.GameConfig    `json:"config"`
	Statistics   slot.Statistics    `json:"statistics"`
	RTP          slot.RTPStatistics `json:"rtp"`
	StartTime    time.Time          `json:"start_time"`
	LastActivity time.Time          `json:"last_activity"`
	Duration     float64            `json:"duration"`
	ValidEvents  []string           `json:"valid_events"`
}
