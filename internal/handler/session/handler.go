package session

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/support-desk/backend/internal/logging"
	sessionModel "github.com/zhouzirui/support-desk/backend/internal/model/session"
	"github.com/zhouzirui/support-desk/backend/pkg/utils"
)

// Bootstrapper opens a customer support session.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, firstName, lastName string) (sessionModel.Descriptor, error)
}

// Handler 客服会话登录的HTTP处理器
type Handler struct {
	svc Bootstrapper
	log *logging.Logger
}

// New 创建登录处理器
func New(svc Bootstrapper, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{svc: svc, log: log.Sub("login")}
}

// RegisterRoutes 注册登录路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/customer-login", h.handleCustomerLogin)
}

type loginRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// handleCustomerLogin 注册客户与客服，创建频道并返回客户令牌
func (h *Handler) handleCustomerLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondErr(w, err)
		return
	}

	desc, err := h.svc.Bootstrap(r.Context(), req.FirstName, req.LastName)
	if err != nil {
		h.log.Warn().Err(err).Str("first_name", req.FirstName).Msg("customer login failed")
		utils.RespondErr(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, desc)
}
