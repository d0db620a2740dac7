// Package list реализует HTTP-обработчик списка пробных подписок.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Handler возвращает все подписки с днями до окончания и статусом.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс получения списка подписок.
type Service interface {
	List(ctx context.Context) ([]models.TrialView, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список пробных подписок
// @Tags Trials
// @Produce  json
// @Success 200 {object} response.Response "Подписки"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	trials, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list trials", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list trials"))
		return
	}

	log.Debug("trials listed", slog.Int("count", len(trials)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"trials": trials,
	}))
}
