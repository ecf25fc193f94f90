package transcript

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/support-desk/backend/internal/logging"
	transcriptModel "github.com/zhouzirui/support-desk/backend/internal/model/transcript"
	"github.com/zhouzirui/support-desk/backend/pkg/utils"
)

// Exporter renders and sends a captured transcript.
type Exporter interface {
	Export(ctx context.Context, req transcriptModel.Request) (*transcriptModel.Document, error)
}

// Handler 聊天记录导出的HTTP处理器
type Handler struct {
	exporter Exporter
	log      *logging.Logger
}

// New 创建导出处理器
func New(exporter Exporter, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{exporter: exporter, log: log.Sub("email-transcript")}
}

// RegisterRoutes 注册导出路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/email-transcript", h.handleEmailTranscript)
}

// handleEmailTranscript 等待邮件服务商确认后再返回
func (h *Handler) handleEmailTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptModel.Request
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondErr(w, err)
		return
	}

	if _, err := h.exporter.Export(r.Context(), req); err != nil {
		h.log.Warn().Err(err).Str("customer", req.Email).Int("messages", len(req.Messages)).Msg("transcript export failed")
		utils.RespondErr(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
