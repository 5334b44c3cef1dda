package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game/slot"
)

// EnvPrefix 环境变量前缀，例如 RUIN_SLOT_GAME_BET_AMOUNT
const EnvPrefix = "RUIN_SLOT"

// Config 全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	WebSocket    WebSocketConfig    `mapstructure:"websocket"`
	Game         slot.GameConfig    `mapstructure:"game"`
	Session      SessionConfig      `mapstructure:"session"`
	Pacing       PacingConfig       `mapstructure:"pacing"`
	Presentation PresentationConfig `mapstructure:"presentation"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// WebSocketConfig WebSocket配置
type WebSocketConfig struct {
	Path              string        `mapstructure:"path"`
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	PingInterval      time.Duration `mapstructure:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// SessionConfig 会话管理配置
type SessionConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxBatchRounds  int           `mapstructure:"max_batch_rounds"`
}

// PacingConfig 自动游戏节奏（由表现层使用，核心不等待）
type PacingConfig struct {
	SpinDelay   time.Duration `mapstructure:"spin_delay"`   // 卷轴动画时长
	ResultDelay time.Duration `mapstructure:"result_delay"` // 结果展示时长
}

// PresentationConfig 提示音配置
type PresentationConfig struct {
	Muted      bool    `mapstructure:"muted"`
	Volume     float64 `mapstructure:"volume"`
	BufferSize int     `mapstructure:"buffer_size"`
}

// DatabaseConfig 模拟结果归档库配置，只有 ruin-sim 使用
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level   string            `mapstructure:"level"`
	Format  string            `mapstructure:"format"`
	Output  string            `mapstructure:"output"`
	File    LogFileConfig     `mapstructure:"file"`
	Modules map[string]string `mapstructure:"modules"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Path       string `mapstructure:"path"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
	v    *viper.Viper
)

// Init 初始化全局配置
func Init(configPath string) error {
	var err error
	once.Do(func() {
		var loaded *Config
		loaded, v, err = load(configPath)
		if err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()
	})
	return err
}

// Load 读取配置文件（可为空，只用默认值和环境变量），不影响全局配置
func Load(configPath string) (*Config, error) {
	c, _, err := load(configPath)
	return c, err
}

func load(configPath string) (*Config, *viper.Viper, error) {
	vp := viper.New()

	if configPath != "" {
		vp.SetConfigFile(configPath)
	} else {
		vp.SetConfigName("config")
		vp.SetConfigType("yaml")
		vp.AddConfigPath("./config")
		vp.AddConfigPath(".")
	}

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	if err := vp.ReadInConfig(); err != nil {
		// 配置文件不存在时使用默认配置
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, errors.Wrap(err, errors.ErrConfigLoad, vp.ConfigFileUsed())
		}
	}

	c, err := decode(vp)
	if err != nil {
		return nil, nil, err
	}
	return c, vp, nil
}

// decode 解析并校验；game 段严格解析，未知选项直接拒绝
func decode(vp *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := vp.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse)
	}
	game, err := decodeGame(vp, "game.")
	if err != nil {
		return nil, err
	}
	c.Game = game

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// decodeGame 从展平的键合并默认值、文件和环境变量后严格解析游戏配置
func decodeGame(vp *viper.Viper, prefix string) (slot.GameConfig, error) {
	raw := make(map[string]interface{})
	for _, key := range vp.AllKeys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		raw[strings.TrimPrefix(key, prefix)] = vp.Get(key)
	}

	game := slot.GameConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           &game,
	})
	if err != nil {
		return game, errors.Wrap(err, errors.ErrConfigParse)
	}
	if err := decoder.Decode(raw); err != nil {
		if strings.Contains(err.Error(), "invalid keys") {
			return game, errors.Wrap(err, errors.ErrUnknownOption)
		}
		return game, errors.Wrap(err, errors.ErrConfigParse)
	}
	return game, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// WebSocket默认配置
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.max_message_size", 8192)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_timeout", "60s")
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.enable_compression", true)

	setGameDefaults(v, "game.")

	// 会话
	v.SetDefault("session.timeout", "30m")
	v.SetDefault("session.max_sessions", 1000)
	v.SetDefault("session.cleanup_interval", "5m")
	v.SetDefault("session.max_batch_rounds", 1000)

	// 自动游戏节奏
	v.SetDefault("pacing.spin_delay", "800ms")
	v.SetDefault("pacing.result_delay", "600ms")

	// 提示音
	v.SetDefault("presentation.muted", false)
	v.SetDefault("presentation.volume", 0.5)
	v.SetDefault("presentation.buffer_size", 64)

	// 归档库
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/ruin-sim.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.log_level", "warn")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file.path", "./logs")
	v.SetDefault("log.file.filename", "ruin-slot.log")
	v.SetDefault("log.file.max_size", 100)
	v.SetDefault("log.file.max_age", 30)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.compress", true)
}

func setGameDefaults(v *viper.Viper, prefix string) {
	d := slot.DefaultGameConfig()
	v.SetDefault(prefix+"initial_balance", d.InitialBalance)
	v.SetDefault(prefix+"house_balance", d.HouseBalance)
	v.SetDefault(prefix+"bet_amount", d.BetAmount)
	v.SetDefault(prefix+"win_target", d.WinTarget)
	v.SetDefault(prefix+"difficulty", string(d.Difficulty))
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return err
	}

	var problems []string
	if c.Session.MaxSessions <= 0 {
		problems = append(problems, "session.max_sessions 必须大于0")
	}
	if c.Session.MaxBatchRounds <= 0 {
		problems = append(problems, "session.max_batch_rounds 必须大于0")
	}
	if c.Session.Timeout <= 0 || c.Session.CleanupInterval <= 0 {
		problems = append(problems, "session.timeout 和 session.cleanup_interval 必须大于0")
	}
	if c.Pacing.SpinDelay < 0 || c.Pacing.ResultDelay < 0 {
		problems = append(problems, "pacing 延迟不能为负数")
	}
	if c.Presentation.Volume < 0 || c.Presentation.Volume > 1 {
		problems = append(problems, "presentation.volume 必须在 [0,1] 内")
	}
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "mysql", "postgres", "postgresql":
	default:
		problems = append(problems, "database.driver 必须是 sqlite/mysql/postgres")
	}
	if len(problems) > 0 {
		return errors.New(errors.ErrConfigValidate, problems...)
	}
	return nil
}

// LoadGameConfig 读取独立的游戏配置文件（只允许五个游戏选项，缺省项取默认值）
func LoadGameConfig(path string) (slot.GameConfig, error) {
	if path == "" {
		return slot.GameConfig{}, errors.New(errors.ErrConfigMissing, "游戏配置文件路径为空")
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	setGameDefaults(vp, "")

	if err := vp.ReadInConfig(); err != nil {
		return slot.GameConfig{}, errors.Wrap(err, errors.ErrConfigLoad, path)
	}

	game, err := decodeGame(vp, "")
	if err != nil {
		return slot.GameConfig{}, err
	}
	if err := game.Validate(); err != nil {
		return slot.GameConfig{}, err
	}
	return game, nil
}

// Get 获取配置实例
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// Watch 监听配置文件变化，解析或校验失败时保留旧配置
func Watch(callback func(*Config), onError func(error)) {
	if v == nil {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		newCfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("配置重载失败 (%s): %w", e.Name, err))
			}
			return
		}

		mu.Lock()
		cfg = newCfg
		mu.Unlock()

		if callback != nil {
			callback(newCfg)
		}
	})
	v.WatchConfig()
}
