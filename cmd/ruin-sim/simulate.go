package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/wfunc/ruin-slot/internal/game"
	"github.com/wfunc/ruin-slot/internal/game/slot"
)

// simOptions 模拟参数
type simOptions struct {
	Game      slot.GameConfig
	Sessions  int
	MaxRounds int // 单个会话的回合上限，防止极端配置下跑不完
	BatchSize int
	Workers   int
	Seed      uint64 // 0 表示使用加密随机数
}

// sessionOutcome 单个会话的结果
type sessionOutcome struct {
	Index      int
	Reason     slot.GameOverReason
	Rounds     int
	Final      float64
	Statistics slot.Statistics
}

// simReport 汇总结果
type simReport struct {
	Sessions      int
	Ruined        int
	Victories     int
	Unfinished    int
	TotalRounds   int
	MaxRounds     int
	TotalBet      int64
	TotalPayout   int64
	TotalWins     int
	HouseEdgeSum  float64
	FinalBalances []float64
	Outcomes      []sessionOutcome
}

// RuinRate 破产比例
func (r simReport) RuinRate() float64 {
	if r.Sessions == 0 {
		return 0
	}
	return float64(r.Ruined) / float64(r.Sessions)
}

// VictoryRate 胜利比例
func (r simReport) VictoryRate() float64 {
	if r.Sessions == 0 {
		return 0
	}
	return float64(r.Victories) / float64(r.Sessions)
}

// AverageRounds 平均回合数
func (r simReport) AverageRounds() float64 {
	if r.Sessions == 0 {
		return 0
	}
	return float64(r.TotalRounds) / float64(r.Sessions)
}

// ObservedRTP 观测返还率
func (r simReport) ObservedRTP() float64 {
	return slot.CalculateRTP(r.TotalPayout, r.TotalBet)
}

// WinRate 中奖率
func (r simReport) WinRate() float64 {
	if r.TotalRounds == 0 {
		return 0
	}
	return float64(r.TotalWins) / float64(r.TotalRounds)
}

// AverageHouseEdge 所有会话平均庄家优势的均值
func (r simReport) AverageHouseEdge() float64 {
	if r.Sessions == 0 {
		return 0
	}
	return r.HouseEdgeSum / float64(r.Sessions)
}

func (r *simReport) add(o sessionOutcome) {
	r.Sessions++
	switch o.Reason {
	case slot.ReasonRuin:
		r.Ruined++
	case slot.ReasonVictory:
		r.Victories++
	default:
		r.Unfinished++
	}
	r.TotalRounds += o.Rounds
	if o.Rounds > r.MaxRounds {
		r.MaxRounds = o.Rounds
	}
	r.TotalBet += o.Statistics.TotalBetAmount
	r.TotalPayout += o.Statistics.TotalPayoutAmount
	r.TotalWins += o.Statistics.TotalWins
	r.HouseEdgeSum += o.Statistics.AverageHouseEdge
	r.FinalBalances = append(r.FinalBalances, o.Final)
	r.Outcomes = append(r.Outcomes, o)
}

// runSession 用自动游戏把一个会话跑到破产、胜利或回合上限
func runSession(ctx context.Context, id int, opts simOptions) (sessionOutcome, error) {
	var sessOpts []game.SessionOption
	if opts.Seed != 0 {
		sessOpts = append(sessOpts, game.WithRandomGenerator(slot.NewSeededRandomGenerator(opts.Seed+uint64(id))))
	}
	session, err := game.NewSession(fmt.Sprintf("sim-%d", id), opts.Game, sessOpts...)
	if err != nil {
		return sessionOutcome{}, err
	}

	played := 0
	for played < opts.MaxRounds {
		n := opts.BatchSize
		if remaining := opts.MaxRounds - played; remaining < n {
			n = remaining
		}
		result := session.PlayBatch(ctx, n)
		played += result.Played
		if result.Final.IsOver || result.StopReason != game.StopCompleted || result.Played == 0 {
			break
		}
	}

	state := session.State()
	return sessionOutcome{
		Index:      id,
		Reason:     state.Reason,
		Rounds:     state.RoundNumber,
		Final:      state.PlayerBalance,
		Statistics: session.Statistics(),
	}, ctx.Err()
}

// simulate 并发跑完所有会话，progress 在每个会话结束后调用
func simulate(ctx context.Context, opts simOptions, progress func()) (simReport, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	jobs := make(chan int)
	results := make(chan sessionOutcome, workers)
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				outcome, err := runSession(ctx, id, opts)
				if err != nil {
					// 只保留第一个错误，继续消费任务让投递方退出
					select {
					case errCh <- err:
					default:
					}
					continue
				}
				results <- outcome
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < opts.Sessions; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var report simReport
	for outcome := range results {
		report.add(outcome)
		if progress != nil {
			progress()
		}
	}

	select {
	case err := <-errCh:
		return report, err
	default:
	}
	return report, ctx.Err()
}
