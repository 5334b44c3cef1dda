package game

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"go.uber.org/zap"
)

// Session 单个玩家的游戏会话，同一时刻最多只有一轮或一次自动游戏在进行
type Session struct {
	mu       sync.RWMutex
	id       string
	cfg      slot.GameConfig
	state    State
	rounds   []slot.Round
	stats    slot.Statistics
	resolver *slot.Resolver
	machine  *StateMachine
	rtp      *slot.RTPMonitor
	stop     StopFlag
	logger   *zap.Logger

	observers []Observer
	pending   []SessionEvent

	startTime    time.Time
	lastActivity time.Time
}

// SessionOption 会话选项
type SessionOption func(*Session)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRandomGenerator 设置随机数来源（测试或可复现模拟）
func WithRandomGenerator(gen slot.RandomGenerator) SessionOption {
	return func(s *Session) { s.resolver = slot.NewResolver(gen) }
}

// WithObserver 注册事件观察者
func WithObserver(fn Observer) SessionOption {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// NewSession 创建并初始化会话
func NewSession(id string, cfg slot.GameConfig, opts ...SessionOption) (*Session, error) {
	s := &Session{
		id:        id,
		logger:    zap.NewNop(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = slot.NewResolver(nil)
	}
	s.machine = NewStateMachine(id, s.logger)
	s.logger = s.logger.With(zap.String("session_id", id))
	s.machine.OnStateChange(s.onPhaseChange)
	s.rtp = slot.NewRTPMonitor(cfg.Difficulty)

	if err := s.Initialize(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// Subscribe 追加观察者
func (s *Session) Subscribe(fn Observer) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Initialize 以新配置初始化会话
func (s *Session) Initialize(cfg slot.GameConfig) error {
	return s.Reset(cfg)
}

// Reset 校验配置并重置余额、回合日志和统计；自动游戏进行中时拒绝
func (s *Session) Reset(cfg slot.GameConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state.BatchRunning {
		s.mu.Unlock()
		return errors.New(errors.ErrBatchInProgress)
	}
	if err := s.machine.Trigger(TriggerReset); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, errors.ErrGameStateError)
	}

	cfg.BetAmount = slot.ClampBet(cfg.BetAmount, cfg.InitialBalance)
	s.cfg = cfg
	s.state = InitialState(cfg)
	s.rounds = nil
	s.stats = slot.Statistics{}
	s.rtp.Reset(cfg.Difficulty)
	s.stop.Clear()
	s.lastActivity = time.Now()
	s.queueLocked(EventReset, nil)
	events := s.takePendingLocked()
	s.mu.Unlock()

	s.logger.Info("会话重置",
		zap.Float64("initial_balance", cfg.InitialBalance),
		zap.Int64("bet_amount", cfg.BetAmount),
		zap.Float64("win_target", cfg.WinTarget),
		zap.String("difficulty", string(cfg.Difficulty)))
	s.emit(events)
	return nil
}

// ResetWithDifficulty 切换难度，总是伴随完整重置
func (s *Session) ResetWithDifficulty(d slot.Difficulty) error {
	if !d.IsValid() {
		return errors.Newf(errors.ErrInvalidDifficulty, "未知难度: %q", d)
	}
	cfg := s.Config()
	cfg.Difficulty = d
	return s.Reset(cfg)
}

// UpdateBetAmount 更新投注额，限制在 [1, 初始余额] 内，返回实际生效值
func (s *Session) UpdateBetAmount(bet int64) int64 {
	s.mu.Lock()
	clamped := slot.ClampBet(bet, s.cfg.InitialBalance)
	changed := clamped != s.state.CurrentBet
	s.cfg.BetAmount = clamped
	s.state.CurrentBet = clamped
	s.lastActivity = time.Now()
	if changed {
		s.queueLocked(EventBetChanged, nil)
	}
	events := s.takePendingLocked()
	s.mu.Unlock()

	if changed {
		s.logger.Debug("投注额变更", zap.Int64("requested", bet), zap.Int64("bet", clamped))
	}
	s.emit(events)
	return clamped
}

// PlayOne 结算一轮。自动游戏进行中或会话已结束时忽略并返回 false
func (s *Session) PlayOne() (slot.Round, bool) {
	s.mu.Lock()
	if s.state.IsOver || s.state.BatchRunning {
		s.mu.Unlock()
		return slot.Round{}, false
	}
	if err := s.machine.Trigger(TriggerSpin); err != nil {
		s.mu.Unlock()
		return slot.Round{}, false
	}

	round := s.advanceLocked()
	if s.state.IsOver {
		_ = s.machine.Trigger(TriggerGameOver)
		s.queueLocked(EventGameOver, nil)
	} else {
		_ = s.machine.Trigger(TriggerSpinDone)
	}
	over := s.state.IsOver
	reason := s.state.Reason
	events := s.takePendingLocked()
	s.mu.Unlock()

	if over {
		s.logger.Info("游戏结束", zap.String("reason", string(reason)), zap.Int("rounds", round.RoundNumber))
	}
	s.emit(events)
	return round, true
}

// PlayBatch 连续结算最多 n 轮。每轮开始前检查停止标志、上下文和余额阈值，
// 结束时重新做一次终局判断。已有自动游戏或会话已结束时拒绝。
func (s *Session) PlayBatch(ctx context.Context, n int, opts ...BatchOption) BatchResult {
	o := newBatchOptions(opts)
	result, started := s.beginBatch(n)
	if !started {
		return result
	}
	return s.runBatch(ctx, n, o, result)
}

// StartBatch 同步占用自动游戏后在后台结算，结果写入返回的通道。
// 被拒绝时返回 false，通道中是 StopRejected 结果。
func (s *Session) StartBatch(ctx context.Context, n int, opts ...BatchOption) (<-chan BatchResult, bool) {
	o := newBatchOptions(opts)
	done := make(chan BatchResult, 1)
	result, started := s.beginBatch(n)
	if !started {
		done <- result
		close(done)
		return done, !result.Rejected()
	}
	go func() {
		done <- s.runBatch(ctx, n, o, result)
		close(done)
	}()
	return done, true
}

// beginBatch 在锁内占用自动游戏，返回 false 时 result 即最终结果
func (s *Session) beginBatch(n int) (BatchResult, bool) {
	result := BatchResult{Requested: n}

	s.mu.Lock()
	if n <= 0 {
		result.StopReason = StopCompleted
		result.Final = s.state
		s.mu.Unlock()
		return result, false
	}
	if s.state.IsOver || s.state.BatchRunning {
		result.StopReason = StopRejected
		result.Final = s.state
		s.mu.Unlock()
		return result, false
	}
	if err := s.machine.Trigger(TriggerStartBatch); err != nil {
		result.StopReason = StopRejected
		result.Final = s.state
		s.mu.Unlock()
		return result, false
	}
	s.stop.Clear()
	s.state.BatchRunning = true
	s.queueLocked(EventBatchStart, nil)
	events := s.takePendingLocked()
	s.mu.Unlock()

	s.logger.Info("自动游戏开始", zap.Int("rounds", n))
	s.emit(events)
	return result, true
}

func (s *Session) runBatch(ctx context.Context, n int, o batchOptions, result BatchResult) BatchResult {
	var events []SessionEvent
	result.StopReason = StopCompleted
	for i := 0; i < n; i++ {
		if s.stop.IsSet() {
			result.StopReason = StopRequested
			break
		}
		if ctx.Err() != nil {
			result.StopReason = StopCanceled
			break
		}

		s.mu.Lock()
		if thresholdReached(s.state, s.cfg) {
			s.mu.Unlock()
			result.StopReason = StopGameOver
			break
		}
		round := s.advanceLocked()
		state := s.state
		events = s.takePendingLocked()
		s.mu.Unlock()

		result.Rounds = append(result.Rounds, round)
		s.emit(events)
		if o.onRound != nil {
			o.onRound(round, state)
		}

		if o.pacer != nil {
			if err := o.pacer.Pace(ctx, round); err != nil {
				result.StopReason = StopCanceled
				break
			}
		}
	}
	result.Played = len(result.Rounds)

	s.mu.Lock()
	over := slot.CheckGameOver(s.state.PlayerBalance, s.cfg.WinTarget, s.state.CurrentBet)
	s.state.IsOver = over.IsOver
	s.state.Reason = over.Reason
	s.state.BatchRunning = false
	s.stop.Clear()
	if over.IsOver {
		_ = s.machine.Trigger(TriggerGameOver)
		s.queueLocked(EventGameOver, nil)
		if result.StopReason == StopCompleted {
			result.StopReason = StopGameOver
		}
	} else {
		_ = s.machine.Trigger(TriggerBatchDone)
	}
	s.queueLocked(EventBatchFinish, nil)
	result.Final = s.state
	events = s.takePendingLocked()
	s.mu.Unlock()

	s.logger.Info("自动游戏结束",
		zap.Int("played", result.Played),
		zap.String("stop_reason", string(result.StopReason)),
		zap.Float64("balance", result.Final.PlayerBalance),
		zap.String("reason", string(result.Final.Reason)))
	s.emit(events)
	return result
}

// StopBatch 请求停止自动游戏，返回当前是否有自动游戏在进行
func (s *Session) StopBatch() bool {
	s.mu.RLock()
	running := s.state.BatchRunning
	s.mu.RUnlock()
	if running {
		s.stop.Set()
		s.logger.Info("请求停止自动游戏")
	}
	return running
}

// State 当前状态快照
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Phase 当前阶段
func (s *Session) Phase() Phase {
	return s.machine.GetPhase()
}

// Config 当前配置副本
func (s *Session) Config() slot.GameConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Rounds 回合日志副本，按回合顺序
func (s *Session) Rounds() []slot.Round {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]slot.Round, len(s.rounds))
	copy(out, s.rounds)
	return out
}

// RecentRounds 最新在前的回合副本，limit <= 0 表示全部
func (s *Session) RecentRounds(limit int) []slot.Round {
	rounds := s.Rounds()
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].RoundNumber > rounds[j].RoundNumber
	})
	if limit > 0 && len(rounds) > limit {
		rounds = rounds[:limit]
	}
	return rounds
}

// Statistics 当前统计
func (s *Session) Statistics() slot.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// RTP 观测返还率
func (s *Session) RTP() slot.RTPStatistics {
	return s.rtp.GetStatistics()
}

// LastActivity 最后活动时间
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Touch 刷新活动时间
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// Summary 会话概要
func (s *Session) Summary() SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSummary{
		SessionID:    s.id,
		Phase:        s.machine.GetPhase(),
		State:        s.state,
		Config:       s.cfg,
		Statistics:   s.stats,
		RTP:          s.rtp.GetStatistics(),
		StartTime:    s.startTime,
		LastActivity: s.lastActivity,
		Duration:     time.Since(s.startTime).Seconds(),
		ValidEvents:  s.machine.GetValidEvents(),
	}
}

// advanceLocked 结算一轮并更新日志与统计，调用方持有写锁
func (s *Session) advanceLocked() slot.Round {
	next, round := Step(s.state, s.cfg, s.resolver)
	s.state = next
	s.rounds = append(s.rounds, round)
	s.stats = slot.CalculateStatistics(s.rounds)
	s.rtp.Record(round.Bet, round.Payout)
	s.lastActivity = time.Now()

	r := round
	s.queueLocked(EventRound, &r)
	return round
}

// onPhaseChange 状态机回调，Trigger 均在会话写锁内调用
func (s *Session) onPhaseChange(from, to Phase) {
	s.queueLocked(EventPhase, nil)
}

func (s *Session) queueLocked(t EventType, round *slot.Round) {
	if len(s.observers) == 0 {
		return
	}
	event := SessionEvent{
		Type:      t,
		SessionID: s.id,
		Phase:     s.machine.GetPhase(),
		State:     s.state,
		Round:     round,
		Timestamp: time.Now(),
	}
	if t == EventGameOver {
		event.Reason = s.state.Reason
	}
	s.pending = append(s.pending, event)
}

func (s *Session) takePendingLocked() []SessionEvent {
	if len(s.pending) == 0 {
		return nil
	}
	events := s.pending
	s.pending = nil
	return events
}

// emit 在锁外通知观察者
func (s *Session) emit(events []SessionEvent) {
	if len(events) == 0 {
		return
	}
	s.mu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, event := range events {
		for _, fn := range observers {
			fn(event)
		}
	}
}
