package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/ruin-slot/internal/api"
	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game"
	"github.com/wfunc/ruin-slot/internal/logger"
	"github.com/wfunc/ruin-slot/internal/presentation"
	ws "github.com/wfunc/ruin-slot/internal/websocket"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

// 版本信息
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Server 服务器实例
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	manager    *game.SessionManager
	hub        *ws.Hub
	cues       *presentation.CueService
	httpServer *http.Server

	// 关闭控制
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func main() {
	// 命令行参数
	var (
		configPath  = flag.String("config", "", "配置文件路径")
		showVersion = flag.Bool("version", false, "显示版本信息")
		showHelp    = flag.Bool("help", false, "显示帮助信息")
	)

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	// 加载配置
	if err := config.Init(*configPath); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	// 初始化日志系统
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	printStartInfo(cfg)

	server := NewServer(cfg)

	if err := server.Start(); err != nil {
		logger.Fatal("服务器启动失败", zap.Error(err))
	}

	// 等待退出信号
	server.WaitForShutdown()

	// 优雅关闭
	if err := server.Shutdown(); err != nil {
		logger.Error("服务器关闭失败", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("服务器已安全关闭")
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		cfg:    cfg,
		logger: logger.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("正在启动破产老虎机模拟服务器...",
		zap.String("version", Version),
		zap.String("mode", s.cfg.Server.Mode),
	)

	s.initComponents()

	if err := s.startServices(); err != nil {
		return errors.Wrap(err, errors.ErrUnknown, "启动服务失败")
	}

	// 监听配置变化
	config.Watch(func(newCfg *config.Config) {
		s.logger.Info("配置已更新，正在重新加载...")
		s.reloadConfig(newCfg)
	}, func(err error) {
		s.logger.Warn("配置重载被拒绝，继续使用旧配置", zap.Error(err))
	})

	s.logger.Info("服务器启动成功",
		zap.String("http", s.addr()),
		zap.String("websocket", s.cfg.WebSocket.Path),
	)
	return nil
}

// initComponents 初始化组件
func (s *Server) initComponents() {
	s.logger.Info("初始化组件...")

	s.manager = game.NewSessionManager(&game.SessionConfig{
		Logger:         logger.GetModuleLogger(logger.ModuleGame),
		DefaultGame:    s.cfg.Game,
		SessionTimeout: s.cfg.Session.Timeout,
		MaxSessions:    s.cfg.Session.MaxSessions,
		MaxBatchRounds: s.cfg.Session.MaxBatchRounds,
	})

	wsLogger := logger.GetModuleLogger(logger.ModuleWebSocket)
	s.hub = ws.NewHub(wsLogger, ws.Options{
		WriteWait:      s.cfg.WebSocket.WriteTimeout,
		PongWait:       s.cfg.WebSocket.PongTimeout,
		PingPeriod:     s.cfg.WebSocket.PingInterval,
		MaxMessageSize: s.cfg.WebSocket.MaxMessageSize,
	})
	s.manager.Subscribe(ws.NewPushManager(s.hub, wsLogger).Observer())

	// 提示音推送给订阅会话的浏览器
	s.cues = presentation.NewCueService(s.cfg.Presentation, presentation.SinkFunc(func(cue presentation.Cue) error {
		err := s.hub.Publish(cue.SessionID, ws.MessageTypeCue, cue)
		if stderrors.Is(err, ws.ErrNoSubscribers) || errors.Is(err, errors.ErrWebSocketClosed) {
			return nil
		}
		return err
	}), logger.GetModuleLogger(logger.ModulePresentation))
	s.manager.Subscribe(s.cues.Observer())
	s.manager.Subscribe(logSessionOutcome)

	if s.cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterOptions{
		BaseContext: s.ctx,
		Manager:     s.manager,
		Hub:         s.hub,
		Pacer:       presentation.NewDelayPacer(s.cfg.Pacing),
		Cues:        s.cues,
		WebSocket:   s.cfg.WebSocket,
		Logger:      logger.GetModuleLogger(logger.ModuleAPI),
	})

	s.httpServer = &http.Server{
		Addr:         s.addr(),
		Handler:      router.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("所有组件初始化完成")
}

// startServices 启动服务
func (s *Server) startServices() error {
	s.logger.Info("启动服务...")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run(s.ctx)
	}()

	s.cues.Start(s.ctx)

	s.manager.StartCleanupTask(s.ctx, s.cfg.Session.CleanupInterval)

	// 先同步监听，端口占用时直接返回错误
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.cancel()
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP服务异常退出", zap.Error(err))
		}
	}()

	s.logger.Info("所有服务启动完成")
	return nil
}

// WaitForShutdown 等待关闭信号
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // kill命令
		syscall.SIGQUIT, // Ctrl+\
	)

	sig := <-sigCh
	signal.Stop(sigCh)
	s.logger.Info("收到退出信号", zap.String("signal", sig.String()))
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	s.logger.Info("正在优雅关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 停止接收新请求
	s.logger.Info("停止接收新请求...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP服务关闭异常", zap.Error(err))
	}

	// 停止所有自动游戏，再取消主上下文
	s.manager.StopAll()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("所有服务已正常关闭")
	case <-shutdownCtx.Done():
		s.logger.Warn("关闭超时，强制退出")
		return errors.New(errors.ErrTimeout, "关闭超时")
	}

	s.cues.Close()
	logger.Cleanup()
	return nil
}

// logSessionOutcome 记录会话结局
func logSessionOutcome(event game.SessionEvent) {
	if event.Type != game.EventGameOver {
		return
	}
	logger.LogGameEvent(string(event.Type), event.SessionID,
		zap.String("reason", string(event.Reason)),
		zap.Int("rounds", event.State.RoundNumber),
		zap.Float64("player_balance", event.State.PlayerBalance),
	)
}

// reloadConfig 重新加载配置，只影响之后创建的会话
func (s *Server) reloadConfig(newCfg *config.Config) {
	s.cfg = newCfg

	if err := s.manager.SetDefaultConfig(newCfg.Game); err != nil {
		s.logger.Warn("默认游戏配置未更新", zap.Error(err))
	}
	logger.SetLevel(newCfg.Log.Level)
	s.cues.Apply(newCfg.Presentation)

	s.logger.Info("配置重新加载完成", zap.Stringer("log_level", logger.Level()))
}

func (s *Server) addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("破产老虎机模拟服务器\n")
	fmt.Printf("版本: %s\n", Version)
	fmt.Printf("构建时间: %s\n", BuildTime)
	fmt.Printf("Git提交: %s\n", GitCommit)
	fmt.Printf("Go版本: %s\n", runtime.Version())
	fmt.Printf("操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("破产老虎机模拟服务器")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  ruin-slot-server [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("环境变量:")
	fmt.Printf("  %s_SERVER_PORT        HTTP端口\n", config.EnvPrefix)
	fmt.Printf("  %s_GAME_DIFFICULTY    默认难度 (easy/medium/hard)\n", config.EnvPrefix)
	fmt.Printf("  %s_GAME_BET_AMOUNT    默认投注额\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  ruin-slot-server -config=./config/config.yaml")
	fmt.Println("  ruin-slot-server -version")
}

// printStartInfo 打印启动信息
func printStartInfo(cfg *config.Config) {
	banner := `
╔═══════════════════════════════════════════════════════════════╗
║                                                               ║
║        ____        _          ____  _       _                 ║
║       |  _ \ _   _(_)_ __    / ___|| | ___ | |_               ║
║       | |_) | | | | | '_ \   \___ \| |/ _ \| __|              ║
║       |  _ <| |_| | | | | |   ___) | | (_) | |_               ║
║       |_| \_\\__,_|_|_| |_|  |____/|_|\___/ \__|              ║
║                                                               ║
║                    赌徒破产老虎机模拟器                       ║
║                                                               ║
╚═══════════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("版本: %s | 模式: %s | PID: %d\n", Version, cfg.Server.Mode, os.Getpid())
	fmt.Printf("默认难度: %s | 初始余额: %.0f | 目标: %.0f | 投注: %d\n",
		cfg.Game.Difficulty, cfg.Game.InitialBalance, cfg.Game.WinTarget, cfg.Game.BetAmount)
	fmt.Println("═══════════════════════════════════════════════════════════════")
}
