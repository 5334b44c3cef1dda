package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/wfunc/ruin-slot/internal/config"
	"github.com/wfunc/ruin-slot/internal/database"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"github.com/wfunc/ruin-slot/internal/models"
	"github.com/wfunc/ruin-slot/internal/repository"
	"go.uber.org/zap"
)

// openArchive 打开归档库并迁移表结构
func openArchive(cfg config.DatabaseConfig, log *zap.Logger) (repository.SimulationRunRepository, func(), error) {
	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrate(db, log); err != nil {
		database.Close(db)
		return nil, nil, err
	}
	return repository.NewSimulationRunRepository(db), func() { database.Close(db) }, nil
}

// buildRunRecord 把汇总结果转换成归档记录
func buildRunRecord(opts simOptions, r simReport, started time.Time, elapsed time.Duration) (*models.SimulationRun, []*models.SimulationOutcome) {
	run := &models.SimulationRun{
		RunID:            uuid.NewString(),
		Difficulty:       string(opts.Game.Difficulty),
		InitialBalance:   opts.Game.InitialBalance,
		HouseBalance:     opts.Game.HouseBalance,
		BetAmount:        opts.Game.BetAmount,
		WinTarget:        opts.Game.WinTarget,
		Seed:             int64(opts.Seed),
		Sessions:         r.Sessions,
		Ruined:           r.Ruined,
		Victories:        r.Victories,
		Unfinished:       r.Unfinished,
		TotalRounds:      int64(r.TotalRounds),
		MaxRounds:        r.MaxRounds,
		TotalBet:         r.TotalBet,
		TotalPayout:      r.TotalPayout,
		ObservedRTP:      r.ObservedRTP(),
		TheoreticalRTP:   slot.ReturnToPlayer(opts.Game.Difficulty),
		AverageHouseEdge: r.AverageHouseEdge(),
		StartedAt:        started,
		Duration:         elapsed.Milliseconds(),
	}

	outcomes := make([]*models.SimulationOutcome, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, &models.SimulationOutcome{
			SessionIndex: o.Index,
			Reason:       string(o.Reason),
			Rounds:       o.Rounds,
			FinalBalance: o.Final,
			TotalBet:     o.Statistics.TotalBetAmount,
			TotalPayout:  o.Statistics.TotalPayoutAmount,
		})
	}
	return run, outcomes
}

// printHistory 打印最近的归档记录和按难度的汇总
func printHistory(ctx context.Context, repo repository.SimulationRunRepository, limit int) error {
	p := repository.NewPagination(1, limit)
	runs, err := repo.FindRecent(ctx, p)
	if err != nil {
		return err
	}

	pterm.DefaultSection.Printfln("最近 %d 次模拟 (共 %d 次)", len(runs), p.Total)
	if len(runs) > 0 {
		data := pterm.TableData{{"时间", "难度", "会话", "破产率", "返还率", "平均回合", "耗时"}}
		for _, run := range runs {
			avgRounds := 0.0
			if run.Sessions > 0 {
				avgRounds = float64(run.TotalRounds) / float64(run.Sessions)
			}
			data = append(data, []string{
				run.StartedAt.Format("2006-01-02 15:04:05"),
				run.Difficulty,
				fmt.Sprint(run.Sessions),
				percent(run.RuinRate()),
				percent(run.ObservedRTP),
				fmt.Sprintf("%.1f", avgRounds),
				(time.Duration(run.Duration) * time.Millisecond).String(),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
	}

	summary, err := repo.GetDifficultySummary(ctx)
	if err != nil {
		return err
	}
	if len(summary) == 0 {
		return nil
	}

	pterm.DefaultSection.Println("按难度汇总")
	data := pterm.TableData{{"难度", "模拟次数", "会话", "破产率", "返还率 (观测)", "返还率 (理论)"}}
	for _, row := range summary {
		data = append(data, []string{
			row.Difficulty,
			fmt.Sprint(row.Runs),
			fmt.Sprint(row.Sessions),
			percent(row.RuinRate),
			percent(row.ObservedRTP),
			percent(slot.ReturnToPlayer(slot.Difficulty(row.Difficulty))),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()
}
