// Package tracker собирает HTTP API трекера пробных подписок и websocket-шлюз уведомлений.
package tracker

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация описания API для swagger UI.
	_ "github.com/magabrotheeeer/trial-tracker/internal/docs"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/health"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/settings/emailconfig"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/settings/emailtest"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/settings/popupconfig"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/trial/create"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/trial/list"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/trial/read"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/trial/remove"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/trial/stats"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/trial/update"
	"github.com/magabrotheeeer/trial-tracker/internal/http/middlewarectx"
)

// TrialService операции с подписками, нужные обработчикам.
type TrialService interface {
	create.Service
	read.Service
	update.Service
	remove.Service
	list.Service
	stats.Service
}

// SettingsService операции с настройками каналов, нужные обработчикам.
type SettingsService interface {
	emailconfig.Service
	emailtest.Service
	popupconfig.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Trials    TrialService
	Settings  SettingsService
	Gateway   http.Handler
	Checks    map[string]health.Checker
	RateLimit float64
	RateBurst int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, deps.RateLimit, deps.RateBurst))

		r.Post("/trials", create.New(logger, deps.Trials).ServeHTTP)
		r.Get("/trials", list.New(logger, deps.Trials).ServeHTTP)
		// stats регистрируется раньше {id}
		r.Get("/trials/stats", stats.New(logger, deps.Trials).ServeHTTP)
		r.Get("/trials/{id}", read.New(logger, deps.Trials).ServeHTTP)
		r.Put("/trials/{id}", update.New(logger, deps.Trials).ServeHTTP)
		r.Delete("/trials/{id}", remove.New(logger, deps.Trials).ServeHTTP)

		r.Get("/settings/email", emailconfig.NewGet(logger, deps.Settings).ServeHTTP)
		r.Put("/settings/email", emailconfig.NewPut(logger, deps.Settings).ServeHTTP)
		r.Post("/settings/email/test", emailtest.New(logger, deps.Settings).ServeHTTP)
		r.Get("/settings/popup", popupconfig.NewGet(logger, deps.Settings).ServeHTTP)
		r.Put("/settings/popup", popupconfig.NewPut(logger, deps.Settings).ServeHTTP)
	})

	if deps.Gateway != nil {
		r.Get("/ws/notifications", deps.Gateway.ServeHTTP)
	}
	r.Get("/health", health.New(logger, deps.Checks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
