// Package health реализует проверку готовности API.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
)

// Checker проверяет доступность зависимости.
type Checker func(ctx context.Context) error

type Handler struct {
	log    *slog.Logger
	checks map[string]Checker
}

// New создает Handler. checks проверяются на каждый запрос.
func New(log *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{
		log:    log,
		checks: checks,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.log.Warn("dependency unhealthy", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		render.JSON(w, r, response.Response{Status: response.StatusError, Error: "unhealthy", Data: status})
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":       "ok",
		"dependencies": status,
	}))
}
