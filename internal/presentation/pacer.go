package presentation

import (
	"context"
	"time"

	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/game/slot"
)

// DelayPacer 自动游戏每轮之间等待卷轴动画和结果展示
type DelayPacer struct {
	SpinDelay   time.Duration
	ResultDelay time.Duration
}

// NewDelayPacer 由配置创建
func NewDelayPacer(cfg config.PacingConfig) DelayPacer {
	return DelayPacer{SpinDelay: cfg.SpinDelay, ResultDelay: cfg.ResultDelay}
}

// Pace 实现 game.Pacer，ctx 取消时立即返回
func (p DelayPacer) Pace(ctx context.Context, _ slot.Round) error {
	d := p.SpinDelay + p.ResultDelay
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
