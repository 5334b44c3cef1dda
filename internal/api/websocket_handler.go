package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game"
	ws "github.com/wfunc/ruin-slot/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler WebSocket处理器，同时处理客户端发来的游戏请求
type WebSocketHandler struct {
	hub      *ws.Hub
	manager  *game.SessionManager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器并注册为 Hub 的消息处理器
func NewWebSocketHandler(hub *ws.Hub, manager *game.SessionManager, cfg config.WebSocketConfig, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WebSocketHandler{
		hub:     hub,
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				// 本地模拟器，不限制来源
				return true
			},
		},
		logger: logger,
	}
	hub.SetMessageHandler(h)
	return h
}

// GameWebSocket 游戏WebSocket连接，session_id 可选
func (h *WebSocketHandler) GameWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID != "" {
		if _, err := h.manager.GetSession(sessionID); err != nil {
			respondError(c, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了错误响应
		h.logger.Error("WebSocket升级失败", zap.Error(errors.Wrap(err, errors.ErrWebSocketConnect)))
		return
	}

	client := ws.NewClient(h.hub, conn, sessionID)
	if !h.hub.Register(client) {
		h.logger.Warn("Hub已停止，拒绝连接", zap.Error(errors.New(errors.ErrWebSocketClosed)))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("WebSocket连接建立",
		zap.String("client_id", client.ID),
		zap.String("session_id", sessionID),
		zap.String("ip", c.ClientIP()))
}

// HandleClientMessage 实现 ws.MessageHandler
func (h *WebSocketHandler) HandleClientMessage(client *ws.Client, msg *ws.Message) {
	session, err := h.manager.GetSession(msg.SessionID)
	if err != nil {
		client.SendError(err.Error())
		return
	}

	switch msg.Type {
	case ws.MessageTypeState:
		_ = client.SendMessage(ws.MessageTypeState, session.Summary())

	case ws.MessageTypeSpin:
		// 结果通过 round 事件推送给订阅者
		if _, ok := session.PlayOne(); !ok {
			client.SendError(rejection(session.State()).Error())
		}

	case ws.MessageTypeStop:
		_ = client.SendMessage(ws.MessageTypeStop, gin.H{"stopping": session.StopBatch()})

	default:
		client.SendError("不支持的消息类型: " + msg.Type)
	}
}
