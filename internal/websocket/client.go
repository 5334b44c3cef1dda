package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/ruin-slot/internal/logger"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrClientNotFound = errors.New("客户端未找到")
	ErrSendBufferFull = errors.New("发送缓冲区已满")
	ErrNoSubscribers  = errors.New("会话没有订阅的客户端")
	ErrInvalidMessage = errors.New("无效的消息格式")
)

// Client WebSocket客户端
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu        sync.RWMutex
	sessionID string
}

// NewClient 创建新客户端，sessionID 可为空，之后通过 subscribe 消息绑定
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		ID:        uuid.New().String(),
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, hub.options.SendBuffer),
		sessionID: sessionID,
	}
}

// SessionID 当前订阅的会话
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setSessionID(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// ReadPump 读取消息
func (c *Client) ReadPump() {
	opts := c.hub.options
	// 注销后 send 关闭，由 WritePump 发出关闭帧并关闭连接
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("WebSocket读取错误",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			break
		}

		if !c.handleMessage(message) {
			break
		}
	}
}

// WritePump 写入消息
func (c *Client) WritePump() {
	opts := c.hub.options
	ticker := time.NewTicker(opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// Hub关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// 每条消息单独一帧，客户端按帧解析JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息，返回 false 时断开连接
func (c *Client) handleMessage(data []byte) bool {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Warn("解析WebSocket消息失败",
			zap.String("client_id", c.ID),
			zap.Error(err))
		c.sendError(ErrInvalidMessage.Error())
		return false
	}

	if msg.Type == "" {
		c.hub.logger.Warn("收到空消息类型", zap.String("client_id", c.ID))
		c.sendError("消息类型不能为空")
		return false
	}

	logger.LogWebSocketMessage("receive", msg.Type, zap.String("client_id", c.ID))

	switch msg.Type {
	case MessageTypePing:
		_ = c.SendMessage(MessageTypePong, nil)

	case MessageTypePong:
		// 客户端响应ping

	case MessageTypeSubscribe:
		if msg.SessionID == "" {
			c.sendError("订阅需要 session_id")
			return true
		}
		c.hub.Subscribe(c, msg.SessionID)
		if c.hub.messageHandler != nil {
			// 订阅后立即推送一次状态
			c.hub.messageHandler.HandleClientMessage(c, &Message{Type: MessageTypeState, SessionID: msg.SessionID})
		}

	default:
		if c.hub.messageHandler == nil {
			c.sendError("不支持的消息类型: " + msg.Type)
			return true
		}
		if msg.SessionID == "" {
			msg.SessionID = c.SessionID()
		}
		c.hub.messageHandler.HandleClientMessage(c, &msg)
	}
	return true
}

// sendError 发送错误消息
func (c *Client) sendError(message string) {
	_ = c.SendMessage(MessageTypeError, map[string]string{"error": message})
}

// SendError 发送错误消息（供业务处理器使用）
func (c *Client) SendError(message string) {
	c.sendError(message)
}

// SendMessage 发送消息给客户端
func (c *Client) SendMessage(msgType string, data interface{}) error {
	msg := &Message{
		Type:      msgType,
		SessionID: c.SessionID(),
	}
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = jsonData
	}
	return c.hub.SendToClient(c.ID, msg)
}
