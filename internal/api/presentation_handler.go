package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/ruin-slot/internal/presentation"
)

// PresentationHandler 提示音开关与音量
type PresentationHandler struct {
	cues *presentation.CueService
}

// NewPresentationHandler 创建处理器
func NewPresentationHandler(cues *presentation.CueService) *PresentationHandler {
	return &PresentationHandler{cues: cues}
}

// PresentationRequest 部分更新，未给出的字段保持不变
type PresentationRequest struct {
	Muted  *bool    `json:"muted,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

// PresentationResponse 当前提示音设置
type PresentationResponse struct {
	Muted  bool    `json:"muted"`
	Volume float64 `json:"volume"`
}

func (h *PresentationHandler) current() PresentationResponse {
	return PresentationResponse{Muted: h.cues.Muted(), Volume: h.cues.Volume()}
}

// GetSettings 获取提示音设置
// @Summary 提示音设置
// @Tags Presentation
// @Produce json
// @Success 200 {object} PresentationResponse
// @Router /api/v1/presentation [get]
func (h *PresentationHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.current())
}

// UpdateSettings 修改静音与音量，音量截断到 [0,1]
// @Summary 修改提示音设置
// @Tags Presentation
// @Accept json
// @Produce json
// @Param request body PresentationRequest true "设置"
// @Success 200 {object} PresentationResponse
// @Router /api/v1/presentation [put]
func (h *PresentationHandler) UpdateSettings(c *gin.Context) {
	var req PresentationRequest
	if err := bindStrict(c, &req, false); err != nil {
		respondError(c, err)
		return
	}
	if req.Muted != nil {
		h.cues.SetMuted(*req.Muted)
	}
	if req.Volume != nil {
		h.cues.SetVolume(*req.Volume)
	}
	c.JSON(http.StatusOK, h.current())
}

// ToggleMute 切换静音
// @Summary 切换静音
// @Tags Presentation
// @Produce json
// @Success 200 {object} PresentationResponse
// @Router /api/v1/presentation/mute [post]
func (h *PresentationHandler) ToggleMute(c *gin.Context) {
	h.cues.ToggleMute()
	c.JSON(http.StatusOK, h.current())
}
