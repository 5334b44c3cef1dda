// ruin-sim 无界面批量模拟：把 N 个会话跑到破产或胜利，输出汇总表
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"github.com/wfunc/ruin-slot/internal/logger"
	_ "go.uber.org/automaxprocs"
)

func main() {
	defaults := slot.DefaultGameConfig()

	var (
		sessions   = flag.Int("sessions", 1000, "模拟会话数")
		initial    = flag.Float64("initial", defaults.InitialBalance, "玩家初始余额")
		house      = flag.Float64("house", defaults.HouseBalance, "庄家初始余额")
		bet        = flag.Int64("bet", defaults.BetAmount, "每轮投注额")
		target     = flag.Float64("target", defaults.WinTarget, "胜利目标余额")
		difficulty = flag.String("difficulty", string(defaults.Difficulty), "难度 (easy/medium/hard)")
		gamePath   = flag.String("game", "", "独立的游戏配置文件，设置后忽略上面的游戏参数")
		settings   = flag.String("config", "", "应用配置文件 (日志与归档库)")
		maxRounds  = flag.Int("max-rounds", 100000, "单个会话回合上限")
		workers    = flag.Int("workers", runtime.GOMAXPROCS(0), "并发数")
		seed       = flag.Uint64("seed", 0, "随机种子，0 表示加密随机数")
		archive    = flag.Bool("archive", false, "把结果写入归档库")
		dsn        = flag.String("db", "", "归档库 DSN，覆盖配置文件")
		history    = flag.Int("history", 0, "显示最近 N 次归档结果后退出")
		logLevel   = flag.String("log-level", "warn", "日志级别")
	)
	flag.Parse()

	appCfg, err := config.Load(*settings)
	if err != nil {
		pterm.Error.Printfln("加载配置失败: %v", err)
		os.Exit(1)
	}
	appCfg.Log.Level = *logLevel
	if err := logger.Init(&appCfg.Log); err != nil {
		pterm.Error.Printfln("初始化日志失败: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dbCfg := appCfg.Database
	if *dsn != "" {
		dbCfg.DSN = *dsn
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		os.Exit(runHistory(ctx, dbCfg, *history))
	}

	// 应用配置里的 game 段为基础，显式给出的参数覆盖
	fromFlags := appCfg.Game
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "initial":
			fromFlags.InitialBalance = *initial
		case "house":
			fromFlags.HouseBalance = *house
		case "bet":
			fromFlags.BetAmount = *bet
		case "target":
			fromFlags.WinTarget = *target
		case "difficulty":
			fromFlags.Difficulty = slot.Difficulty(*difficulty)
		}
	})
	cfg, err := buildGameConfig(*gamePath, fromFlags)
	if err != nil {
		pterm.Error.Printfln("游戏配置无效: %v", err)
		os.Exit(1)
	}
	if *sessions <= 0 || *maxRounds <= 0 {
		pterm.Error.Println("sessions 与 max-rounds 必须为正数")
		os.Exit(1)
	}

	printHeader(cfg, *sessions)

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(*sessions).
		WithTitle("模拟中").
		WithRemoveWhenDone(true).
		Start()

	opts := simOptions{
		Game:      cfg,
		Sessions:  *sessions,
		MaxRounds: *maxRounds,
		Workers:   *workers,
		Seed:      *seed,
	}
	started := time.Now()
	report, err := simulate(ctx, opts, func() { bar.Increment() })
	elapsed := time.Since(started)
	_, _ = bar.Stop()

	if err != nil {
		pterm.Warning.Printfln("模拟提前结束: %v (已完成 %d 个会话)", err, report.Sessions)
	}
	if report.Sessions == 0 {
		os.Exit(1)
	}

	printReport(cfg, report)
	pterm.Info.Printfln("耗时 %s", elapsed.Round(time.Millisecond))

	if *archive {
		if err := saveRun(dbCfg, opts, report, started, elapsed); err != nil {
			pterm.Error.Printfln("归档失败: %v", err)
			os.Exit(1)
		}
	}
}

// runHistory 打印历史记录，返回退出码
func runHistory(ctx context.Context, dbCfg config.DatabaseConfig, limit int) int {
	repo, closeDB, err := openArchive(dbCfg, logger.GetModuleLogger(logger.ModuleDatabase))
	if err != nil {
		pterm.Error.Printfln("打开归档库失败: %v", err)
		return 1
	}
	defer closeDB()

	if err := printHistory(ctx, repo, limit); err != nil {
		pterm.Error.Printfln("读取归档失败: %v", err)
		return 1
	}
	return 0
}

// saveRun 写入归档库，使用独立上下文，中断后的部分结果也能保存
func saveRun(dbCfg config.DatabaseConfig, opts simOptions, report simReport, started time.Time, elapsed time.Duration) error {
	repo, closeDB, err := openArchive(dbCfg, logger.GetModuleLogger(logger.ModuleDatabase))
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run, outcomes := buildRunRecord(opts, report, started, elapsed)
	if err := repo.Create(ctx, run, outcomes); err != nil {
		return err
	}
	pterm.Success.Printfln("已归档 %s (%s)", run.RunID, dbCfg.DSN)
	return nil
}

// buildGameConfig 配置文件优先，否则使用命令行参数
func buildGameConfig(path string, fromFlags slot.GameConfig) (slot.GameConfig, error) {
	if path != "" {
		return config.LoadGameConfig(path)
	}
	d, err := slot.ParseDifficulty(string(fromFlags.Difficulty))
	if err != nil {
		return slot.GameConfig{}, err
	}
	fromFlags.Difficulty = d
	fromFlags.BetAmount = slot.ClampBet(fromFlags.BetAmount, fromFlags.InitialBalance)
	if err := fromFlags.Validate(); err != nil {
		return slot.GameConfig{}, err
	}
	return fromFlags, nil
}

func printHeader(cfg slot.GameConfig, sessions int) {
	_ = pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("RUIN", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("SIM", pterm.FgLightYellow.ToStyle()),
	).Render()

	pterm.Info.Printfln("会话数 %d | 难度 %s | 初始 %.0f | 目标 %.0f | 投注 %d | 庄家 %.0f",
		sessions, cfg.Difficulty, cfg.InitialBalance, cfg.WinTarget, cfg.BetAmount, cfg.HouseBalance)
}

func printReport(cfg slot.GameConfig, r simReport) {
	pterm.DefaultSection.Println("结果")

	outcomes := pterm.TableData{
		{"结果", "会话数", "比例"},
		{"破产", fmt.Sprint(r.Ruined), percent(r.RuinRate())},
		{"胜利", fmt.Sprint(r.Victories), percent(r.VictoryRate())},
		{"未结束", fmt.Sprint(r.Unfinished), percent(ratio(r.Unfinished, r.Sessions))},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(outcomes).Render()

	_ = pterm.DefaultBarChart.WithHorizontal().WithShowValue().WithBars(pterm.Bars{
		{Label: "破产", Value: r.Ruined, Style: pterm.NewStyle(pterm.FgRed)},
		{Label: "胜利", Value: r.Victories, Style: pterm.NewStyle(pterm.FgGreen)},
		{Label: "未结束", Value: r.Unfinished, Style: pterm.NewStyle(pterm.FgGray)},
	}).Render()

	pterm.DefaultSection.Println("统计")

	balances := append([]float64(nil), r.FinalBalances...)
	sort.Float64s(balances)

	stats := pterm.TableData{
		{"指标", "数值"},
		{"平均回合数", fmt.Sprintf("%.1f", r.AverageRounds())},
		{"最长回合数", fmt.Sprint(r.MaxRounds)},
		{"中奖率 (观测)", percent(r.WinRate())},
		{"中奖率 (理论)", percent(slot.WinProbability())},
		{"返还率 (观测)", percent(r.ObservedRTP())},
		{"返还率 (理论)", percent(slot.ReturnToPlayer(cfg.Difficulty))},
		{"每轮期望收益", fmt.Sprintf("%.3f", slot.ExpectedValue(cfg.BetAmount, cfg.Difficulty))},
		{"平均庄家优势", fmt.Sprintf("%.3f", r.AverageHouseEdge())},
		{"最终余额中位数", fmt.Sprintf("%.0f", median(balances))},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(stats).Render()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// median 输入需已排序
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
