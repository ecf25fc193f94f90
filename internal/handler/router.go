package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sessionHandler "github.com/zhouzirui/support-desk/backend/internal/handler/session"
	transcriptHandler "github.com/zhouzirui/support-desk/backend/internal/handler/transcript"
	"github.com/zhouzirui/support-desk/backend/internal/handler/watch"
	"github.com/zhouzirui/support-desk/backend/internal/logging"
	middlewarePkg "github.com/zhouzirui/support-desk/backend/internal/middleware"
	"github.com/zhouzirui/support-desk/backend/pkg/utils"
)

// Dependencies 路由需要的服务
type Dependencies struct {
	Sessions       sessionHandler.Bootstrapper
	Exporter       transcriptHandler.Exporter
	Watch          *watch.Handler // nil 表示未开启服务端监听
	AllowedOrigins []string
	Log            *logging.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	sessionHandler.New(deps.Sessions, log).RegisterRoutes(r)
	transcriptHandler.New(deps.Exporter, log).RegisterRoutes(r)

	if deps.Watch != nil {
		deps.Watch.RegisterRoutes(r)
	}

	return r
}
