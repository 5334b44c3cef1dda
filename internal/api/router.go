package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/game"
	"github.com/wfunc/ruin-slot/internal/middleware"
	"github.com/wfunc/ruin-slot/internal/presentation"
	ws "github.com/wfunc/ruin-slot/internal/websocket"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	manager        *game.SessionManager
	hub            *ws.Hub
	sessionHandler *SessionHandler
	wsHandler      *WebSocketHandler
	cueHandler     *PresentationHandler
	wsPath         string
	log            *zap.Logger
}

// RouterOptions 路由器依赖
type RouterOptions struct {
	// BaseContext 服务生命周期，取消时停止所有异步自动游戏
	BaseContext context.Context
	Manager     *game.SessionManager
	Hub         *ws.Hub
	Pacer       game.Pacer
	Cues        *presentation.CueService // 可选，为空时不注册提示音接口
	WebSocket   config.WebSocketConfig
	Logger      *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(opts RouterOptions) *Router {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()

	// 全局中间件
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.AccessLog())

	wsPath := opts.WebSocket.Path
	if wsPath == "" {
		wsPath = "/ws"
	}

	router := &Router{
		engine:         engine,
		manager:        opts.Manager,
		hub:            opts.Hub,
		sessionHandler: NewSessionHandler(opts.BaseContext, opts.Manager, opts.Pacer, log),
		wsHandler:      NewWebSocketHandler(opts.Hub, opts.Manager, opts.WebSocket, log),
		wsPath:         wsPath,
		log:            log,
	}

	if opts.Cues != nil {
		router.cueHandler = NewPresentationHandler(opts.Cues)
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/sessions", r.sessionHandler.CreateSession)

		session := v1.Group("/sessions/:id")
		{
			session.GET("/state", r.sessionHandler.GetState)
			session.GET("/rounds", r.sessionHandler.GetRounds)
			session.GET("/statistics", r.sessionHandler.GetStatistics)
			session.POST("/spin", r.sessionHandler.Spin)
			session.POST("/autoplay", r.sessionHandler.Autoplay)
			session.POST("/autoplay/stop", r.sessionHandler.StopAutoplay)
			session.POST("/reset", r.sessionHandler.Reset)
			session.PUT("/bet", r.sessionHandler.UpdateBet)
			session.PUT("/difficulty", r.sessionHandler.UpdateDifficulty)
			session.DELETE("", r.sessionHandler.DeleteSession)
		}

		if r.cueHandler != nil {
			v1.GET("/presentation", r.cueHandler.GetSettings)
			v1.PUT("/presentation", r.cueHandler.UpdateSettings)
			v1.POST("/presentation/mute", r.cueHandler.ToggleMute)
		}
	}

	// WebSocket路由
	r.engine.GET(r.wsPath, r.wsHandler.GameWebSocket)

	registerOpenAPIRoutes(r.engine)
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"message":         "服务运行正常",
		"active_sessions": r.manager.GetActiveSessions(),
		"online_clients":  r.hub.GetOnlineCount(),
	})
}

// Handler 返回 http.Handler，供 http.Server 使用
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
