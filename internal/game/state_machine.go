package game

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase 会话阶段
type Phase string

const (
	PhaseIdle        Phase = "idle"         // 可以转动
	PhaseSpinning    Phase = "spinning"     // 单轮结算中
	PhaseAutoPlaying Phase = "auto_playing" // 自动游戏中
	PhaseGameOver    Phase = "game_over"    // 破产或达成目标
)

// 状态机触发事件
const (
	TriggerSpin       = "spin"
	TriggerSpinDone   = "spin_done"
	TriggerStartBatch = "start_batch"
	TriggerBatchDone  = "batch_done"
	TriggerGameOver   = "game_over"
	TriggerReset      = "reset"
)

// StateTransition 状态转换定义
type StateTransition struct {
	From  Phase
	Event string
	To    Phase
}

// StateMachine 会话状态机，只负责阶段流转，余额等数据由 Session 持有
type StateMachine struct {
	mu           sync.RWMutex
	currentPhase Phase
	sessionID    string
	transitions  map[string]StateTransition
	logger       *zap.Logger
	lastUpdate   time.Time

	onStateChange func(from, to Phase)
}

// NewStateMachine 创建状态机，初始为 idle
func NewStateMachine(sessionID string, logger *zap.Logger) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StateMachine{
		currentPhase: PhaseIdle,
		sessionID:    sessionID,
		transitions:  make(map[string]StateTransition),
		logger:       logger,
		lastUpdate:   time.Now(),
	}
	sm.initTransitions()
	return sm
}

func (sm *StateMachine) initTransitions() {
	// 单轮
	sm.addTransition(StateTransition{From: PhaseIdle, Event: TriggerSpin, To: PhaseSpinning})
	sm.addTransition(StateTransition{From: PhaseSpinning, Event: TriggerSpinDone, To: PhaseIdle})
	sm.addTransition(StateTransition{From: PhaseSpinning, Event: TriggerGameOver, To: PhaseGameOver})

	// 自动游戏
	sm.addTransition(StateTransition{From: PhaseIdle, Event: TriggerStartBatch, To: PhaseAutoPlaying})
	sm.addTransition(StateTransition{From: PhaseAutoPlaying, Event: TriggerBatchDone, To: PhaseIdle})
	sm.addTransition(StateTransition{From: PhaseAutoPlaying, Event: TriggerGameOver, To: PhaseGameOver})

	// 重置只能在没有进行中的转动时发生
	sm.addTransition(StateTransition{From: PhaseIdle, Event: TriggerReset, To: PhaseIdle})
	sm.addTransition(StateTransition{From: PhaseGameOver, Event: TriggerReset, To: PhaseIdle})
}

func (sm *StateMachine) addTransition(transition StateTransition) {
	sm.transitions[transitionKey(transition.From, transition.Event)] = transition
}

func transitionKey(phase Phase, event string) string {
	return fmt.Sprintf("%s:%s", phase, event)
}

// Trigger 触发事件，非法转换返回错误且保持原阶段
func (sm *StateMachine) Trigger(event string) error {
	sm.mu.Lock()
	transition, exists := sm.transitions[transitionKey(sm.currentPhase, event)]
	if !exists {
		from := sm.currentPhase
		sm.mu.Unlock()
		return fmt.Errorf("无效的状态转换: 阶段=%s, 事件=%s", from, event)
	}

	oldPhase := sm.currentPhase
	sm.currentPhase = transition.To
	sm.lastUpdate = time.Now()
	callback := sm.onStateChange
	sm.mu.Unlock()

	sm.logger.Debug("状态转换",
		zap.String("session_id", sm.sessionID),
		zap.String("from", string(oldPhase)),
		zap.String("to", string(transition.To)),
		zap.String("event", event))

	if callback != nil && oldPhase != transition.To {
		callback(oldPhase, transition.To)
	}
	return nil
}

// GetPhase 获取当前阶段
func (sm *StateMachine) GetPhase() Phase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentPhase
}

// CanTransition 检查当前阶段是否接受该事件
func (sm *StateMachine) CanTransition(event string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, exists := sm.transitions[transitionKey(sm.currentPhase, event)]
	return exists
}

// GetValidEvents 获取当前阶段下的有效事件
func (sm *StateMachine) GetValidEvents() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var events []string
	for _, t := range sm.transitions {
		if t.From == sm.currentPhase {
			events = append(events, t.Event)
		}
	}
	return events
}

// OnStateChange 设置阶段变更回调（在状态机锁外调用）
func (sm *StateMachine) OnStateChange(fn func(from, to Phase)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onStateChange = fn
}

// LastUpdate 最后一次转换时间
func (sm *StateMachine) LastUpdate() time.Time {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.lastUpdate
}
