package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wfunc/ruin-slot/internal/errors"
	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心，按会话分组推送
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 会话ID到客户端的映射
	sessionClients map[string]map[string]*Client

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	options        Options
	messageHandler MessageHandler
	logger         *zap.Logger
}

// Options 连接参数
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration // 必须小于 PongWait
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultOptions 默认连接参数
func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 8192,
		SendBuffer:     256,
	}
}

// MessageHandler 处理默认类型以外的客户端消息
type MessageHandler interface {
	HandleClientMessage(client *Client, msg *Message)
}

// MessageHandlerFunc 函数适配器
type MessageHandlerFunc func(client *Client, msg *Message)

// HandleClientMessage 实现 MessageHandler
func (f MessageHandlerFunc) HandleClientMessage(client *Client, msg *Message) {
	f(client, msg)
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"` // 消息类型
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"` // 消息数据
	Timestamp int64           `json:"timestamp"`      // 毫秒时间戳
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeSubscribe = "subscribe" // 客户端切换订阅的会话

	// 游戏消息（服务端推送，类型与会话事件一致）
	MessageTypeRound       = "round"
	MessageTypePhase       = "phase"
	MessageTypeGameOver    = "game_over"
	MessageTypeReset       = "reset"
	MessageTypeBetChanged  = "bet_changed"
	MessageTypeBatchStart  = "batch_start"
	MessageTypeBatchFinish = "batch_finish"
	MessageTypeCue         = "cue"

	// 客户端请求
	MessageTypeState = "state" // 请求当前状态
	MessageTypeSpin  = "spin"  // 转动一轮
	MessageTypeStop  = "stop"  // 停止自动游戏
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger, options Options) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultOptions()
	if options.WriteWait <= 0 {
		options.WriteWait = defaults.WriteWait
	}
	if options.PongWait <= 0 {
		options.PongWait = defaults.PongWait
	}
	if options.PingPeriod <= 0 || options.PingPeriod >= options.PongWait {
		options.PingPeriod = options.PongWait * 9 / 10
	}
	if options.MaxMessageSize <= 0 {
		options.MaxMessageSize = defaults.MaxMessageSize
	}
	if options.SendBuffer <= 0 {
		options.SendBuffer = defaults.SendBuffer
	}

	return &Hub{
		clients:        make(map[string]*Client),
		sessionClients: make(map[string]map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		options:        options,
		logger:         logger,
	}
}

// SetMessageHandler 设置业务消息处理器（在 Run 之前调用）
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.messageHandler = handler
}

// Run 运行Hub，ctx 取消时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.addToSessionLocked(client)
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("session_id", client.SessionID()))

	payload, _ := json.Marshal(map[string]string{
		"client_id":  client.ID,
		"session_id": client.SessionID(),
	})
	_ = h.SendToClient(client.ID, &Message{
		Type:      MessageTypeConnected,
		SessionID: client.SessionID(),
		Data:      payload,
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		h.removeFromSessionLocked(client)
		close(client.send)
	}
	h.clientsMu.Unlock()

	h.logger.Info("WebSocket客户端断开", zap.String("client_id", client.ID))
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
	h.sessionClients = make(map[string]map[string]*Client)
}

func (h *Hub) addToSessionLocked(client *Client) {
	sessionID := client.SessionID()
	if sessionID == "" {
		return
	}
	group, ok := h.sessionClients[sessionID]
	if !ok {
		group = make(map[string]*Client)
		h.sessionClients[sessionID] = group
	}
	group[client.ID] = client
}

func (h *Hub) removeFromSessionLocked(client *Client) {
	sessionID := client.SessionID()
	group, ok := h.sessionClients[sessionID]
	if !ok {
		return
	}
	delete(group, client.ID)
	if len(group) == 0 {
		delete(h.sessionClients, sessionID)
	}
}

// Subscribe 把客户端切换到另一个会话
func (h *Hub) Subscribe(client *Client, sessionID string) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.removeFromSessionLocked(client)
	client.setSessionID(sessionID)
	h.addToSessionLocked(client)
}

// SendToClient 发送消息给指定客户端，Hub 停止后返回 ErrWebSocketClosed
func (h *Hub) SendToClient(clientID string, message *Message) error {
	if h.stopped() {
		return errors.New(errors.ErrWebSocketClosed, clientID)
	}
	data, err := encode(message)
	if err != nil {
		return errors.Wrap(err, errors.ErrMessageFormat)
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	client, ok := h.clients[clientID]
	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.send <- data:
		return nil
	default:
		return errors.Wrap(ErrSendBufferFull, errors.ErrWebSocketSend, clientID)
	}
}

// SendToSession 发送消息给订阅该会话的所有客户端
func (h *Hub) SendToSession(sessionID string, message *Message) error {
	if h.stopped() {
		return errors.New(errors.ErrWebSocketClosed, sessionID)
	}
	message.SessionID = sessionID
	data, err := encode(message)
	if err != nil {
		return errors.Wrap(err, errors.ErrMessageFormat)
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	group := h.sessionClients[sessionID]
	if len(group) == 0 {
		return ErrNoSubscribers
	}
	for _, client := range group {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("会话客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("session_id", sessionID))
		}
	}
	return nil
}

// Publish 序列化负载并推送到会话
func (h *Hub) Publish(sessionID, msgType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.SendToSession(sessionID, &Message{Type: msgType, Data: data})
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端（公开方法），Hub 已停止时返回 false
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func encode(message *Message) ([]byte, error) {
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}
	return json.Marshal(message)
}
