package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"kartobot/internal/auth"
	"kartobot/internal/config"
	"kartobot/internal/http/handler"
	mw "kartobot/internal/http/middleware"
)

type Deps struct {
	Webhook  *handler.WebhookHandler
	Generate *handler.GenerateHandler
	// Admin is nil when the admin surface is not configured.
	Admin *handler.AdminHandler
	JWT   *auth.JWT
}

func NewRouter(cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/telegram/webhook", deps.Webhook.Webhook)
	r.Post("/generate", deps.Generate.Generate)

	if deps.Admin != nil {
		r.Post("/admin/login", deps.Admin.Login)
		r.With(auth.RequireAdmin(deps.JWT)).
			Get("/admin/users/{telegramID}/quota", deps.Admin.UserQuota)
	}

	return r
}
