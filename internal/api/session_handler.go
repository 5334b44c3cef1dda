package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/ruin-slot/internal/errors"
	"github.com/wfunc/ruin-slot/internal/game"
	"github.com/wfunc/ruin-slot/internal/game/slot"
	"github.com/wfunc/ruin-slot/internal/logger"
	"github.com/wfunc/ruin-slot/internal/middleware"
	"go.uber.org/zap"
)

// SessionHandler 游戏会话处理器
type SessionHandler struct {
	manager *game.SessionManager
	pacer   game.Pacer
	baseCtx context.Context
	logger  *zap.Logger
}

// NewSessionHandler 创建会话处理器，baseCtx 取消时正在进行的自动游戏随之停止
func NewSessionHandler(baseCtx context.Context, manager *game.SessionManager, pacer game.Pacer, logger *zap.Logger) *SessionHandler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		manager: manager,
		pacer:   pacer,
		baseCtx: baseCtx,
		logger:  logger,
	}
}

// GameConfigRequest 游戏选项，未给出的字段沿用当前值
type GameConfigRequest struct {
	InitialBalance *float64 `json:"initial_balance,omitempty"`
	HouseBalance   *float64 `json:"house_balance,omitempty"`
	BetAmount      *int64   `json:"bet_amount,omitempty"`
	WinTarget      *float64 `json:"win_target,omitempty"`
	Difficulty     *string  `json:"difficulty,omitempty"`
}

// apply 合并到基础配置
func (r GameConfigRequest) apply(base slot.GameConfig) slot.GameConfig {
	if r.InitialBalance != nil {
		base.InitialBalance = *r.InitialBalance
	}
	if r.HouseBalance != nil {
		base.HouseBalance = *r.HouseBalance
	}
	if r.BetAmount != nil {
		base.BetAmount = *r.BetAmount
	}
	if r.WinTarget != nil {
		base.WinTarget = *r.WinTarget
	}
	if r.Difficulty != nil {
		base.Difficulty = slot.Difficulty(strings.ToLower(*r.Difficulty))
	}
	return base
}

// BetRequest 修改投注额请求
type BetRequest struct {
	BetAmount int64 `json:"bet_amount"`
}

// DifficultyRequest 切换难度请求
type DifficultyRequest struct {
	Difficulty string `json:"difficulty"`
}

// AutoplayRequest 自动游戏请求
type AutoplayRequest struct {
	Rounds int `json:"rounds"`
}

// SessionResponse 会话状态响应
type SessionResponse struct {
	SessionID string          `json:"session_id"`
	Phase     game.Phase      `json:"phase"`
	State     game.State      `json:"state"`
	Config    slot.GameConfig `json:"config"`
}

// SpinResponse 单轮结果响应
type SpinResponse struct {
	Round slot.Round `json:"round"`
	State game.State `json:"state"`
	Phase game.Phase `json:"phase"`
}

// StatisticsResponse 统计响应
type StatisticsResponse struct {
	Statistics      slot.Statistics     `json:"statistics"`
	BalanceHistory  []slot.BalancePoint `json:"balance_history"`
	SymbolFrequency map[slot.Symbol]int `json:"symbol_frequency"`
	RTP             slot.RTPStatistics  `json:"rtp"`
	ExpectedValue   float64             `json:"expected_value"`
	WinProbability  float64             `json:"win_probability"`
}

func newSessionResponse(s *game.Session) SessionResponse {
	return SessionResponse{
		SessionID: s.ID(),
		Phase:     s.Phase(),
		State:     s.State(),
		Config:    s.Config(),
	}
}

// CreateSession 创建会话
// @Summary 创建会话
// @Tags Session
// @Accept json
// @Produce json
// @Param request body GameConfigRequest false "游戏选项"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req GameConfigRequest
	if err := bindStrict(c, &req, true); err != nil {
		respondError(c, err)
		return
	}

	cfg := req.apply(h.manager.DefaultConfig())
	session, err := h.manager.CreateSession(&cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

// GetState 获取会话状态
// @Summary 会话状态
// @Tags Session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} game.SessionSummary
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/sessions/{id}/state [get]
func (h *SessionHandler) GetState(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Summary())
}

// GetRounds 回合日志，order=desc 时最新在前，limit 限制条数
// @Summary 回合日志
// @Tags Session
// @Produce json
// @Param id path string true "会话ID"
// @Param order query string false "asc 或 desc"
// @Param limit query int false "最多返回条数"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sessions/{id}/rounds [get]
func (h *SessionHandler) GetRounds(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, errors.New(errors.ErrInvalidParam, "limit 必须是非负整数"))
			return
		}
		limit = n
	}

	var rounds []slot.Round
	switch order := c.DefaultQuery("order", "asc"); order {
	case "desc":
		rounds = session.RecentRounds(limit)
	case "asc":
		rounds = session.Rounds()
		if limit > 0 && len(rounds) > limit {
			rounds = rounds[:limit]
		}
	default:
		respondError(c, errors.Newf(errors.ErrInvalidParam, "未知排序: %s", order))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"total":      len(session.Rounds()),
		"rounds":     rounds,
	})
}

// GetStatistics 统计与余额曲线
// @Summary 会话统计
// @Tags Session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} StatisticsResponse
// @Router /api/v1/sessions/{id}/statistics [get]
func (h *SessionHandler) GetStatistics(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	rounds := session.Rounds()
	cfg := session.Config()
	c.JSON(http.StatusOK, StatisticsResponse{
		Statistics:      session.Statistics(),
		BalanceHistory:  slot.BalanceHistory(rounds),
		SymbolFrequency: slot.SymbolFrequency(rounds),
		RTP:             session.RTP(),
		ExpectedValue:   slot.ExpectedValue(session.State().CurrentBet, cfg.Difficulty),
		WinProbability:  slot.WinProbability(),
	})
}

// Spin 结算一轮
// @Summary 转动一轮
// @Tags Session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} SpinResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/sessions/{id}/spin [post]
func (h *SessionHandler) Spin(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	round, played := session.PlayOne()
	if !played {
		respondError(c, rejection(session.State()))
		return
	}
	c.JSON(http.StatusOK, SpinResponse{Round: round, State: session.State(), Phase: session.Phase()})
}

// Autoplay 异步自动游戏，进度通过 WebSocket 推送
// @Summary 自动游戏
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body AutoplayRequest true "轮数"
// @Success 202 {object} map[string]interface{}
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/sessions/{id}/autoplay [post]
func (h *SessionHandler) Autoplay(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req AutoplayRequest
	if err := bindStrict(c, &req, false); err != nil {
		respondError(c, err)
		return
	}
	limit := h.manager.MaxBatchRounds()
	if req.Rounds <= 0 || req.Rounds > limit {
		respondError(c, errors.Newf(errors.ErrInvalidRounds, "rounds 必须在 1 到 %d 之间", limit))
		return
	}

	var opts []game.BatchOption
	if h.pacer != nil {
		opts = append(opts, game.WithPacer(h.pacer))
	}
	// 占用在返回前完成，并发请求只有一个能拿到 202
	done, ok := session.StartBatch(h.baseCtx, req.Rounds, opts...)
	if !ok {
		respondError(c, rejection((<-done).Final))
		return
	}
	go func() {
		result := <-done
		h.logger.Debug("自动游戏完成",
			zap.String("session_id", session.ID()),
			zap.Int("played", result.Played),
			zap.String("stop_reason", string(result.StopReason)))
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"session_id": session.ID(),
		"rounds":     req.Rounds,
	})
}

// StopAutoplay 请求停止自动游戏，在当前回合结束后生效
// @Summary 停止自动游戏
// @Tags Session
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sessions/{id}/autoplay/stop [post]
func (h *SessionHandler) StopAutoplay(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID(),
		"stopping":   session.StopBatch(),
	})
}

// Reset 重置会话，可同时修改游戏选项
// @Summary 重置会话
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body GameConfigRequest false "游戏选项"
// @Success 200 {object} SessionResponse
// @Router /api/v1/sessions/{id}/reset [post]
func (h *SessionHandler) Reset(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req GameConfigRequest
	if err := bindStrict(c, &req, true); err != nil {
		respondError(c, err)
		return
	}
	if err := session.Reset(req.apply(session.Config())); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// UpdateBet 修改投注额，超出 [1, 初始余额] 时截断
// @Summary 修改投注额
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body BetRequest true "投注额"
// @Success 200 {object} SessionResponse
// @Router /api/v1/sessions/{id}/bet [put]
func (h *SessionHandler) UpdateBet(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req BetRequest
	if err := bindStrict(c, &req, false); err != nil {
		respondError(c, err)
		return
	}
	session.UpdateBetAmount(req.BetAmount)
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// UpdateDifficulty 切换难度并重置会话
// @Summary 切换难度
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body DifficultyRequest true "难度"
// @Success 200 {object} SessionResponse
// @Router /api/v1/sessions/{id}/difficulty [put]
func (h *SessionHandler) UpdateDifficulty(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req DifficultyRequest
	if err := bindStrict(c, &req, false); err != nil {
		respondError(c, err)
		return
	}
	d, err := slot.ParseDifficulty(req.Difficulty)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := session.ResetWithDifficulty(d); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// DeleteSession 结束会话
// @Summary 结束会话
// @Tags Session
// @Param id path string true "会话ID"
// @Success 204
// @Router /api/v1/sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.manager.RemoveSession(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) session(c *gin.Context) (*game.Session, bool) {
	session, err := h.manager.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return session, true
}

// rejection 单轮或自动游戏被拒绝的原因
func rejection(state game.State) error {
	if state.IsOver {
		return errors.Newf(errors.ErrGameOver, "reason=%s", state.Reason)
	}
	return errors.New(errors.ErrBatchInProgress)
}

// bindStrict 严格解析 JSON，未知字段视为未知选项；allowEmpty 时空请求体合法
func bindStrict(c *gin.Context, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			if allowEmpty {
				return nil
			}
			return errors.New(errors.ErrInvalidParam, "请求体为空")
		}
		if strings.Contains(err.Error(), "unknown field") {
			return errors.Wrap(err, errors.ErrUnknownOption)
		}
		return errors.Wrap(err, errors.ErrInvalidParam)
	}
	return nil
}

// respondError 统一错误响应
func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.GetModuleLogger(logger.ModuleAPI).Error("请求处理失败",
			zap.Int("code", int(errors.GetCode(appErr))),
			zap.String("path", c.Request.URL.Path),
			zap.Error(appErr),
			zap.String("stack", appErr.GetStack()))
	}
	c.AbortWithStatusJSON(status, errors.NewErrorResponse(appErr, middleware.GetRequestID(c)))
}
