package presentation

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/game"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"go.uber.org/zap"
)

// CueType 提示音类型
type CueType string

const (
	CueSpin    CueType = "spin"    // 开始转动
	CueWin     CueType = "win"     // 中奖
	CueLoss    CueType = "loss"    // 未中奖
	CueVictory CueType = "victory" // 达成目标
	CueRuin    CueType = "ruin"    // 破产
	CueClick   CueType = "click"   // 按钮操作
)

// Cue 一次提示音
type Cue struct {
	Type      CueType   `json:"type"`
	SessionID string    `json:"session_id"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink 提示音输出端（浏览器推送、终端响铃等）
type Sink interface {
	PlayCue(cue Cue) error
}

// SinkFunc 函数适配器
type SinkFunc func(cue Cue) error

// PlayCue 实现 Sink
func (f SinkFunc) PlayCue(cue Cue) error {
	return f(cue)
}

// CueService 把会话事件转换为提示音，显式创建、启动和关闭
type CueService struct {
	mu     sync.RWMutex
	muted  bool
	volume float64

	queue  chan Cue
	sink   Sink
	logger *zap.Logger

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewCueService 创建提示音服务
func NewCueService(cfg config.PresentationConfig, sink Sink, logger *zap.Logger) *CueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 64
	}
	return &CueService{
		muted:  cfg.Muted,
		volume: clampVolume(cfg.Volume),
		queue:  make(chan Cue, size),
		sink:   sink,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start 启动分发协程，ctx 取消或 Close 后退出
func (s *CueService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.loop(ctx)
	})
}

// Close 停止分发，丢弃未播放的提示音
func (s *CueService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *CueService) loop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case cue := <-s.queue:
			if s.sink == nil {
				continue
			}
			if err := s.sink.PlayCue(cue); err != nil {
				s.logger.Warn("提示音输出失败",
					zap.String("cue", string(cue.Type)),
					zap.String("session_id", cue.SessionID),
					zap.Error(err))
			}
		}
	}
}

// Play 排队一次提示音；静音、已关闭或队列已满时返回 false
func (s *CueService) Play(cueType CueType, sessionID string) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	s.mu.RLock()
	muted, volume := s.muted, s.volume
	s.mu.RUnlock()
	if muted {
		return false
	}

	cue := Cue{Type: cueType, SessionID: sessionID, Volume: volume, Timestamp: time.Now()}
	select {
	case s.queue <- cue:
		return true
	default:
		s.logger.Debug("提示音队列已满，丢弃", zap.String("cue", string(cueType)))
		return false
	}
}

// HandleSessionEvent 会话事件到提示音的映射，可作为 game.Observer 注册
func (s *CueService) HandleSessionEvent(event game.SessionEvent) {
	switch event.Type {
	case game.EventRound:
		if event.Round == nil {
			return
		}
		s.Play(CueSpin, event.SessionID)
		if event.Round.IsWin() {
			s.Play(CueWin, event.SessionID)
		} else {
			s.Play(CueLoss, event.SessionID)
		}
	case game.EventGameOver:
		switch event.Reason {
		case slot.ReasonVictory:
			s.Play(CueVictory, event.SessionID)
		case slot.ReasonRuin:
			s.Play(CueRuin, event.SessionID)
		}
	case game.EventReset, game.EventBetChanged, game.EventBatchStart:
		s.Play(CueClick, event.SessionID)
	}
}

// Observer 返回可注册到会话管理器的观察者
func (s *CueService) Observer() game.Observer {
	return s.HandleSessionEvent
}

// SetMuted 设置静音
func (s *CueService) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// ToggleMute 切换静音，返回切换后的状态
func (s *CueService) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted
}

// Muted 是否静音
func (s *CueService) Muted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// SetVolume 设置音量，超出 [0,1] 时截断，返回实际音量
func (s *CueService) SetVolume(volume float64) float64 {
	v := clampVolume(volume)
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
	return v
}

// Volume 当前音量
func (s *CueService) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// Apply 应用重载后的配置
func (s *CueService) Apply(cfg config.PresentationConfig) {
	s.mu.Lock()
	s.muted = cfg.Muted
	s.volume = clampVolume(cfg.Volume)
	s.mu.Unlock()
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
