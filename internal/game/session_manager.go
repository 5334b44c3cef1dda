package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"go.uber.org/zap"
)

// SessionManager 游戏会话管理器（仅内存，不跨进程保存）
type SessionManager struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	logger         *zap.Logger
	defaultConfig  slot.GameConfig
	sessionTimeout time.Duration
	maxSessions    int
	maxBatchRounds int
	generator      func() slot.RandomGenerator
	observers      []Observer
}

// SessionConfig 会话管理器配置
type SessionConfig struct {
	Logger         *zap.Logger
	DefaultGame    slot.GameConfig
	SessionTimeout time.Duration
	MaxSessions    int
	MaxBatchRounds int
	// Generator 为每个新会话提供随机数来源，nil 时使用加密随机数
	Generator func() slot.RandomGenerator
}

// NewSessionManager 创建会话管理器
func NewSessionManager(config *SessionConfig) *SessionManager {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultGame := config.DefaultGame
	if defaultGame.Validate() != nil {
		defaultGame = slot.DefaultGameConfig()
	}
	maxSessions := config.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	maxBatch := config.MaxBatchRounds
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	timeout := config.SessionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	return &SessionManager{
		sessions:       make(map[string]*Session),
		logger:         logger,
		defaultConfig:  defaultGame,
		sessionTimeout: timeout,
		maxSessions:    maxSessions,
		maxBatchRounds: maxBatch,
		generator:      config.Generator,
	}
}

// Subscribe 注册所有会话共享的观察者（对之后创建的会话生效）
func (sm *SessionManager) Subscribe(fn Observer) {
	if fn == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.observers = append(sm.observers, fn)
}

// DefaultConfig 新会话使用的默认配置
func (sm *SessionManager) DefaultConfig() slot.GameConfig {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.defaultConfig
}

// SetDefaultConfig 更新默认配置（配置热加载时调用），不影响已有会话
func (sm *SessionManager) SetDefaultConfig(cfg slot.GameConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sm.mu.Lock()
	sm.defaultConfig = cfg
	sm.mu.Unlock()

	sm.logger.Info("默认游戏配置已更新",
		zap.Float64("initial_balance", cfg.InitialBalance),
		zap.Int64("bet_amount", cfg.BetAmount),
		zap.String("difficulty", string(cfg.Difficulty)))
	return nil
}

// MaxBatchRounds 单次自动游戏的最大轮数
func (sm *SessionManager) MaxBatchRounds() int {
	return sm.maxBatchRounds
}

// CreateSession 创建新会话，cfg 为 nil 时使用默认配置
func (sm *SessionManager) CreateSession(cfg *slot.GameConfig) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.maxSessions {
		return nil, errors.New(errors.ErrTooManySessions)
	}

	gameCfg := sm.defaultConfig
	if cfg != nil {
		gameCfg = *cfg
	}

	sessionID := uuid.New().String()
	opts := []SessionOption{WithLogger(sm.logger)}
	if sm.generator != nil {
		opts = append(opts, WithRandomGenerator(sm.generator()))
	}
	for _, fn := range sm.observers {
		opts = append(opts, WithObserver(fn))
	}

	session, err := NewSession(sessionID, gameCfg, opts...)
	if err != nil {
		return nil, err
	}
	sm.sessions[sessionID] = session

	sm.logger.Info("创建游戏会话",
		zap.String("session_id", sessionID),
		zap.String("difficulty", string(gameCfg.Difficulty)),
		zap.Int("active", len(sm.sessions)))

	return session, nil
}

// GetSession 获取会话并刷新活动时间
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrSessionNotFound, "会话不存在: %s", sessionID)
	}
	session.Touch()
	return session, nil
}

// RemoveSession 移除会话，进行中的自动游戏会被请求停止
func (sm *SessionManager) RemoveSession(sessionID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	if !exists {
		sm.mu.Unlock()
		return errors.Newf(errors.ErrSessionNotFound, "会话不存在: %s", sessionID)
	}
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	session.StopBatch()
	stats := session.Statistics()
	sm.logger.Info("移除游戏会话",
		zap.String("session_id", sessionID),
		zap.Int("total_rounds", stats.TotalRounds),
		zap.Int64("total_bet", stats.TotalBetAmount),
		zap.Int64("total_payout", stats.TotalPayoutAmount))
	return nil
}

// CleanupInactiveSessions 清理超时会话，正在自动游戏的会话不清理
func (sm *SessionManager) CleanupInactiveSessions() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	removed := 0
	for sessionID, session := range sm.sessions {
		if session.State().BatchRunning {
			continue
		}
		inactive := now.Sub(session.LastActivity())
		if inactive <= sm.sessionTimeout {
			continue
		}
		delete(sm.sessions, sessionID)
		removed++

		sm.logger.Info("清理超时会话",
			zap.String("session_id", sessionID),
			zap.Duration("inactive", inactive))
	}
	return removed
}

// StartCleanupTask 启动清理任务
func (sm *SessionManager) StartCleanupTask(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				sm.logger.Info("停止会话清理任务")
				return
			case <-ticker.C:
				sm.CleanupInactiveSessions()
			}
		}
	}()
}

// GetActiveSessions 获取活跃会话数
func (sm *SessionManager) GetActiveSessions() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// StopAll 停止所有自动游戏（服务关闭时调用）
func (sm *SessionManager) StopAll() {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		s.StopBatch()
	}
}

// GetSessionStats 获取会话概要
func (sm *SessionManager) GetSessionStats(sessionID string) (SessionSummary, error) {
	session, err := sm.GetSession(sessionID)
	if err != nil {
		return SessionSummary{}, err
	}
	return session.Summary(), nil
}
