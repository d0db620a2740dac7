// Package update реализует HTTP-обработчик для изменения пробной подписки.
//
// Идентификатор подписки сохраняется, дата окончания пересчитывается по правилам формы.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
	trialservice "github.com/magabrotheeeer/trial-tracker/internal/services/trial"
)

// Handler обрабатывает запросы на изменение подписки.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики изменения подписки.
type Service interface {
	Update(ctx context.Context, id string, req models.DummyTrial) (models.TrialView, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменить пробную подписку
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param id path string true "ID подписки"
// @Param request body models.DummyTrial true "Новые данные подписки"
// @Success 200 {object} response.Response "Измененная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.update"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")

	var req models.DummyTrial
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err))
		return
	}

	view, err := h.service.Update(r.Context(), id, req)
	switch {
	case err == nil:
	case errors.Is(err, trialservice.ErrNotFound):
		log.Info("trial not found", sl.TrialID(id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("trial not found"))
		return
	case trialservice.IsValidationError(err):
		log.Warn("invalid trial", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error(err.Error()))
		return
	default:
		log.Error("failed to update trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update trial"))
		return
	}

	log.Info("trial updated", sl.TrialID(id))
	render.JSON(w, r, response.OKWithData(view))
}
