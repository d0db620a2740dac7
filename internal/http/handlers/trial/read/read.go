// Package read реализует HTTP-обработчик для получения пробной подписки по ID.
package read

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
	"github.com/magabrotheeeer/trial-tracker/internal/models"
	trialservice "github.com/magabrotheeeer/trial-tracker/internal/services/trial"
)

// Handler обрабатывает запросы на получение подписки по идентификатору.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики чтения подписки.
type Service interface {
	Read(ctx context.Context, id string) (models.TrialView, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить пробную подписку
// @Tags Trials
// @Produce  json
// @Param id path string true "ID подписки"
// @Success 200 {object} response.Response "Подписка"
// @Failure 404 {object} response.ErrorResponse "Не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	view, err := h.service.Read(r.Context(), id)
	if errors.Is(err, trialservice.ErrNotFound) {
		log.Info("trial not found", sl.TrialID(id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("trial not found"))
		return
	}
	if err != nil {
		log.Error("failed to read trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read trial"))
		return
	}

	render.JSON(w, r, response.OKWithData(view))
}
