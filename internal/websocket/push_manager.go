package websocket

import (
	stderrors "errors"

	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game"
	"github.com/wfunc/ruin-slot/internal/logger"
	"go.uber.org/zap"
)

// PushManager 把会话事件推送给订阅该会话的客户端
type PushManager struct {
	hub    *Hub
	logger *zap.Logger
}

// NewPushManager 创建推送管理器
func NewPushManager(hub *Hub, logger *zap.Logger) *PushManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushManager{hub: hub, logger: logger}
}

// HandleSessionEvent 处理会话事件，可直接作为 game.Observer 注册
func (pm *PushManager) HandleSessionEvent(event game.SessionEvent) {
	err := pm.hub.Publish(event.SessionID, string(event.Type), event)
	switch {
	case err == nil:
		logger.LogWebSocketMessage("send", string(event.Type), zap.String("session_id", event.SessionID))
	case stderrors.Is(err, ErrNoSubscribers):
		// 没有客户端订阅（例如纯 HTTP 调用），忽略
	case errors.Is(err, errors.ErrWebSocketClosed):
		pm.logger.Debug("Hub已停止，丢弃会话事件",
			zap.String("session_id", event.SessionID),
			zap.String("type", string(event.Type)))
	default:
		pm.logger.Error("推送会话事件失败",
			zap.String("session_id", event.SessionID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
}

// Observer 返回可注册到会话管理器的观察者
func (pm *PushManager) Observer() game.Observer {
	return pm.HandleSessionEvent
}
