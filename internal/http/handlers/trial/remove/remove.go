// Package remove реализует HTTP-обработчик для удаления пробной подписки.
package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	trialservice "github.com/magabrotheeeer/trial-tracker/internal/services/trial"
)

// Handler обрабатывает запросы на удаление подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики удаления подписки.
type Service interface {
	Remove(ctx context.Context, id string) error
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Удалить пробную подписку
// @Tags Trials
// @Produce  json
// @Param id path string true "ID подписки"
// @Success 200 {object} response.Response "Удалено"
// @Failure 404 {object} response.ErrorResponse "Не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	err := h.service.Remove(r.Context(), id)
	if errors.Is(err, trialservice.ErrNotFound) {
		log.Info("trial not found", sl.TrialID(id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("trial not found"))
		return
	}
	if err != nil {
		log.Error("failed to remove trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not remove trial"))
		return
	}

	log.Info("trial removed", sl.TrialID(id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted_id": id,
	}))
}
