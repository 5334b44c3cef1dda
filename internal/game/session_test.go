package game

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"go.uber.org/zap"
)

type SessionTestSuite struct {
	suite.Suite
	cfg slot.GameConfig
}

func (s *SessionTestSuite) SetupTest() {
	s.cfg = slot.DefaultGameConfig()
}

func (s *SessionTestSuite) newSession(values ...float64) *Session {
	session, err := NewSession("test-session", s.cfg,
		WithLogger(zap.NewNop()),
		WithRandomGenerator(slot.NewSequenceGenerator(values...)))
	s.Require().NoError(err)
	return session
}

func (s *SessionTestSuite) TestNewSession() {
	session := s.newSession(losingSequence...)

	state := session.State()
	s.Equal(100.0, state.PlayerBalance)
	s.Equal(10000.0, state.HouseBalance)
	s.Equal(int64(10), state.CurrentBet)
	s.Zero(state.RoundNumber)
	s.False(state.IsOver)
	s.Equal(slot.ReasonNone, state.Reason)
	s.Equal(PhaseIdle, session.Phase())
	s.Empty(session.Rounds())
	s.Equal(slot.Statistics{}, session.Statistics())
}

func (s *SessionTestSuite) TestNewSession_InvalidConfig() {
	s.cfg.WinTarget = 50
	_, err := NewSession("bad", s.cfg)
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrConfigValidate))
}

func (s *SessionTestSuite) TestPlayOne_Loss() {
	session := s.newSession(losingSequence...)

	round, ok := session.PlayOne()

	s.Require().True(ok)
	s.Equal(1, round.RoundNumber)
	s.Equal(slot.ResultLoss, round.Result)
	state := session.State()
	s.Equal(90.0, state.PlayerBalance)
	s.Equal(10010.0, state.HouseBalance)
	s.Equal(1, state.RoundNumber)
	s.Equal(PhaseIdle, session.Phase())
	s.Equal(1, session.Statistics().TotalRounds)
}

func (s *SessionTestSuite) TestPlayOne_VictoryIsTerminal() {
	session := s.newSession(0.95)

	round, ok := session.PlayOne()
	s.Require().True(ok)
	s.Equal(int64(450), round.Payout)

	state := session.State()
	s.Equal(540.0, state.PlayerBalance)
	s.True(state.IsOver)
	s.Equal(slot.ReasonVictory, state.Reason)
	s.Equal(PhaseGameOver, session.Phase())

	// 终局后忽略转动
	_, ok = session.PlayOne()
	s.False(ok)
	s.Len(session.Rounds(), 1)

	result := session.PlayBatch(context.Background(), 5)
	s.True(result.Rejected())
	s.Zero(result.Played)
}

func (s *SessionTestSuite) TestPlayBatch_Ruin() {
	session := s.newSession(losingSequence...)

	result := session.PlayBatch(context.Background(), 50)

	s.Equal(10, result.Played)
	s.Equal(StopGameOver, result.StopReason)
	s.Equal(0.0, result.Final.PlayerBalance)
	s.True(result.Final.IsOver)
	s.Equal(slot.ReasonRuin, result.Final.Reason)
	s.False(result.Final.BatchRunning)
	s.Equal(PhaseGameOver, session.Phase())
	s.Len(session.Rounds(), 10)
}

func (s *SessionTestSuite) TestPlayBatch_Victory() {
	session := s.newSession(0.95)

	result := session.PlayBatch(context.Background(), 10)

	s.Equal(1, result.Played)
	s.Equal(StopGameOver, result.StopReason)
	s.Equal(slot.ReasonVictory, result.Final.Reason)
}

func (s *SessionTestSuite) TestPlayBatch_Completed() {
	session := s.newSession(losingSequence...)

	result := session.PlayBatch(context.Background(), 3)

	s.Equal(3, result.Requested)
	s.Equal(3, result.Played)
	s.Equal(StopCompleted, result.StopReason)
	s.Equal(70.0, result.Final.PlayerBalance)
	s.False(result.Final.IsOver)
	s.Equal(PhaseIdle, session.Phase())
}

func (s *SessionTestSuite) TestPlayBatch_StopAfterThirdRound() {
	session := s.newSession(losingSequence...)

	result := session.PlayBatch(context.Background(), 8,
		WithRoundCallback(func(round slot.Round, state State) {
			if round.RoundNumber == 3 {
				s.True(session.StopBatch())
			}
		}))

	s.Equal(3, result.Played)
	s.Equal(StopRequested, result.StopReason)
	s.Equal(70.0, result.Final.PlayerBalance)
	s.False(result.Final.IsOver)
	s.False(session.State().BatchRunning)
	s.Equal(PhaseIdle, session.Phase())

	// 停止后可以继续单轮游戏
	_, ok := session.PlayOne()
	s.True(ok)
}

func (s *SessionTestSuite) TestPlayBatch_ContextCanceled() {
	session := s.newSession(losingSequence...)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := session.PlayBatch(ctx, 8,
		WithRoundCallback(func(round slot.Round, state State) {
			if round.RoundNumber == 2 {
				cancel()
			}
		}))

	s.Equal(2, result.Played)
	s.Equal(StopCanceled, result.StopReason)
}

func (s *SessionTestSuite) TestPlayBatch_PacerError() {
	session := s.newSession(losingSequence...)
	calls := 0

	result := session.PlayBatch(context.Background(), 8,
		WithPacer(PacerFunc(func(ctx context.Context, round slot.Round) error {
			calls++
			if calls == 4 {
				return stderrors.New("animation aborted")
			}
			return nil
		})))

	s.Equal(4, result.Played)
	s.Equal(StopCanceled, result.StopReason)
}

func (s *SessionTestSuite) TestPlayBatch_NonPositiveCount() {
	session := s.newSession(losingSequence...)

	for _, n := range []int{0, -3} {
		result := session.PlayBatch(context.Background(), n)
		s.Zero(result.Played)
		s.False(result.Rejected())
	}
	s.Zero(session.State().RoundNumber)
}

func (s *SessionTestSuite) TestPlayBatch_ExclusiveWhileRunning() {
	session := s.newSession(losingSequence...)

	var (
		nestedOK     bool
		nestedBatch  BatchResult
		resetErr     error
		observedFlag bool
	)
	result := session.PlayBatch(context.Background(), 2,
		WithRoundCallback(func(round slot.Round, state State) {
			if round.RoundNumber != 1 {
				return
			}
			observedFlag = session.State().BatchRunning
			_, nestedOK = session.PlayOne()
			nestedBatch = session.PlayBatch(context.Background(), 5)
			resetErr = session.Reset(s.cfg)
		}))

	s.Equal(2, result.Played)
	s.True(observedFlag)
	s.False(nestedOK)
	s.True(nestedBatch.Rejected())
	s.Require().Error(resetErr)
	s.True(errors.Is(resetErr, errors.ErrBatchInProgress))
	s.Equal(PhaseIdle, session.Phase())
}

func (s *SessionTestSuite) TestPlayBatch_ConcurrentStop() {
	session := s.newSession(losingSequence...)
	started := make(chan struct{})
	release := make(chan struct{})

	var once sync.Once
	done := make(chan BatchResult, 1)
	go func() {
		done <- session.PlayBatch(context.Background(), 100,
			WithPacer(PacerFunc(func(ctx context.Context, round slot.Round) error {
				once.Do(func() {
					close(started)
					<-release
				})
				return nil
			})))
	}()

	<-started
	s.True(session.State().BatchRunning)
	s.Equal(PhaseAutoPlaying, session.Phase())
	_, ok := session.PlayOne()
	s.False(ok)
	s.True(session.StopBatch())
	close(release)

	select {
	case result := <-done:
		s.Equal(1, result.Played)
		s.Equal(StopRequested, result.StopReason)
	case <-time.After(2 * time.Second):
		s.Fail("batch did not stop")
	}
}

func (s *SessionTestSuite) TestStartBatch_OnlyOneCallerWins() {
	session := s.newSession(losingSequence...)
	release := make(chan struct{})
	pacer := WithPacer(PacerFunc(func(ctx context.Context, round slot.Round) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []<-chan BatchResult
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, ok := session.StartBatch(context.Background(), 5, pacer)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				accepted = append(accepted, done)
				return
			}
			if (<-done).Rejected() {
				rejected++
			}
		}()
	}
	wg.Wait()

	// 返回时已经占用，不需要等后台协程
	s.Require().Len(accepted, 1)
	s.Equal(callers-1, rejected)
	s.True(session.State().BatchRunning)
	s.Equal(PhaseAutoPlaying, session.Phase())

	close(release)
	select {
	case result := <-accepted[0]:
		s.Equal(5, result.Played)
		s.Equal(StopCompleted, result.StopReason)
		s.False(result.Final.BatchRunning)
	case <-time.After(2 * time.Second):
		s.Fail("batch did not finish")
	}
}

func (s *SessionTestSuite) TestStartBatch_ZeroRounds() {
	session := s.newSession(losingSequence...)

	done, ok := session.StartBatch(context.Background(), 0)
	s.True(ok)
	result := <-done
	s.Equal(StopCompleted, result.StopReason)
	s.Zero(result.Played)
	s.False(session.State().BatchRunning)
}

func (s *SessionTestSuite) TestStopBatch_NoBatch() {
	session := s.newSession(losingSequence...)
	s.False(session.StopBatch())

	// 空闲时的停止请求不影响下一次自动游戏
	result := session.PlayBatch(context.Background(), 2)
	s.Equal(2, result.Played)
}

func (s *SessionTestSuite) TestLiveBetClamp() {
	s.cfg.BetAmount = 30
	session := s.newSession(losingSequence...)

	result := session.PlayBatch(context.Background(), 10)

	s.Equal(4, result.Played)
	rounds := session.Rounds()
	s.Equal([]int64{30, 30, 30, 10}, []int64{rounds[0].Bet, rounds[1].Bet, rounds[2].Bet, rounds[3].Bet})
	s.Equal(slot.ReasonRuin, result.Final.Reason)
	// 配置的投注额不受单轮限制影响
	s.Equal(int64(30), session.State().CurrentBet)
}

func (s *SessionTestSuite) TestUpdateBetAmount() {
	session := s.newSession(losingSequence...)

	tests := []struct {
		name string
		bet  int64
		want int64
	}{
		{name: "正常值", bet: 25, want: 25},
		{name: "超过初始余额", bet: 500, want: 100},
		{name: "为0", bet: 0, want: 1},
		{name: "负数", bet: -10, want: 1},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.Equal(tt.want, session.UpdateBetAmount(tt.bet))
			s.Equal(tt.want, session.State().CurrentBet)
			s.Equal(tt.want, session.Config().BetAmount)
		})
	}
}

func (s *SessionTestSuite) TestReset() {
	session := s.newSession(losingSequence...)
	session.PlayBatch(context.Background(), 50)
	s.Require().True(session.State().IsOver)

	cfg := s.cfg
	cfg.InitialBalance = 500
	cfg.WinTarget = 1000
	s.Require().NoError(session.Reset(cfg))

	state := session.State()
	s.Equal(500.0, state.PlayerBalance)
	s.Zero(state.RoundNumber)
	s.False(state.IsOver)
	s.Equal(slot.ReasonNone, state.Reason)
	s.Empty(session.Rounds())
	s.Equal(slot.Statistics{}, session.Statistics())
	s.Equal(PhaseIdle, session.Phase())
	s.Zero(session.RTP().LongTermSamples)

	_, ok := session.PlayOne()
	s.True(ok)
}

func (s *SessionTestSuite) TestReset_InvalidConfigKeepsState() {
	session := s.newSession(losingSequence...)
	session.PlayOne()

	bad := s.cfg
	bad.BetAmount = 0
	err := session.Reset(bad)

	s.Require().Error(err)
	s.Equal(1, session.State().RoundNumber)
	s.Len(session.Rounds(), 1)
}

func (s *SessionTestSuite) TestReset_ClampsConfiguredBet() {
	session := s.newSession(losingSequence...)

	cfg := s.cfg.WithBet(1000)
	s.Require().NoError(session.Reset(cfg))

	s.Equal(int64(100), session.Config().BetAmount)
	s.Equal(int64(100), session.State().CurrentBet)
}

func (s *SessionTestSuite) TestResetWithDifficulty() {
	session := s.newSession(losingSequence...)
	session.PlayOne()

	s.Require().NoError(session.ResetWithDifficulty(slot.DifficultyHard))
	s.Equal(slot.DifficultyHard, session.Config().Difficulty)
	s.Zero(session.State().RoundNumber)
	s.Empty(session.Rounds())

	err := session.ResetWithDifficulty("insane")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrInvalidDifficulty))
	s.Equal(slot.DifficultyHard, session.Config().Difficulty)
}

func (s *SessionTestSuite) TestRoundsReturnsCopy() {
	session := s.newSession(losingSequence...)
	session.PlayBatch(context.Background(), 3)

	rounds := session.Rounds()
	rounds[0].Payout = 9999

	s.Zero(session.Rounds()[0].Payout)
}

func (s *SessionTestSuite) TestRecentRounds() {
	session := s.newSession(losingSequence...)
	session.PlayBatch(context.Background(), 5)

	recent := session.RecentRounds(3)
	s.Require().Len(recent, 3)
	s.Equal([]int{5, 4, 3}, []int{recent[0].RoundNumber, recent[1].RoundNumber, recent[2].RoundNumber})

	s.Len(session.RecentRounds(0), 5)
	// 原日志顺序不变
	s.Equal(1, session.Rounds()[0].RoundNumber)
}

func (s *SessionTestSuite) TestObserverEvents() {
	var mu sync.Mutex
	var types []EventType
	session, err := NewSession("observed", s.cfg,
		WithRandomGenerator(slot.NewSequenceGenerator(0.95)),
		WithObserver(func(e SessionEvent) {
			mu.Lock()
			defer mu.Unlock()
			types = append(types, e.Type)
			// 观察者可以在回调中读取会话
			_ = e.State.PlayerBalance
		}))
	s.Require().NoError(err)

	session.PlayOne()

	mu.Lock()
	defer mu.Unlock()
	s.Contains(types, EventReset)
	s.Contains(types, EventRound)
	s.Contains(types, EventGameOver)
	s.Contains(types, EventPhase)
}

func (s *SessionTestSuite) TestObserverCanReadSession() {
	session := s.newSession(losingSequence...)
	var balances []float64
	session.Subscribe(func(e SessionEvent) {
		if e.Type == EventRound {
			balances = append(balances, session.State().PlayerBalance)
		}
	})

	session.PlayBatch(context.Background(), 2)

	s.Equal([]float64{90, 80}, balances)
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func TestSession_RandomPlayInvariants(t *testing.T) {
	for _, d := range []slot.Difficulty{slot.DifficultyEasy, slot.DifficultyMedium, slot.DifficultyHard} {
		t.Run(string(d), func(t *testing.T) {
			cfg := slot.DefaultGameConfig()
			cfg.Difficulty = d
			session, err := NewSession("random", cfg, WithRandomGenerator(slot.NewSeededRandomGenerator(5)))
			require.NoError(t, err)

			result := session.PlayBatch(context.Background(), 1000)
			rounds := session.Rounds()
			stats := session.Statistics()
			state := session.State()

			assert.Equal(t, result.Played, len(rounds))
			assert.Equal(t, len(rounds), stats.TotalRounds)
			assert.Equal(t, stats.TotalRounds, stats.TotalWins+stats.TotalLosses)
			assert.Equal(t, slot.CalculateStatistics(rounds), stats)
			// 整数投注和赔付下资金守恒
			assert.InDelta(t, cfg.InitialBalance+cfg.HouseBalance, state.PlayerBalance+state.HouseBalance, 1e-6)

			for i, r := range rounds {
				assert.Equal(t, i+1, r.RoundNumber)
				if i > 0 {
					assert.Equal(t, rounds[i-1].BalanceAfter, r.BalanceBefore)
				}
				assert.GreaterOrEqual(t, r.BalanceAfter, 0.0)
			}
			if state.IsOver {
				assert.Contains(t, []slot.GameOverReason{slot.ReasonRuin, slot.ReasonVictory}, state.Reason)
			}
		})
	}
}
