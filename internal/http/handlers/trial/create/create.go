// Package create реализует HTTP-обработчик для добавления пробной подписки.
//
// Handler принимает JSON-запрос с данными подписки, валидирует его, вызывает сервис
// и возвращает созданную подписку с вычисленными днями до окончания.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
	trialservice "github.com/magabrotheeeer/trial-tracker/internal/services/trial"
)

// Handler управляет HTTP-запросами на создание пробных подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, req models.DummyTrial) (models.TrialView, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Добавить пробную подписку
// @Description Для фиксированной длительности дата окончания вычисляется от даты начала, для Custom обязательна end_date.
// @Tags Trials
// @Accept  json
// @Produce  json
// @Param request body models.DummyTrial true "Данные подписки"
// @Success 201 {object} response.Response "Созданная подписка"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /trials [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.trial.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	view, err := h.service.Create(r.Context(), req)
	if err != nil {
		if trialservice.IsValidationError(err) {
			log.Warn("invalid trial", sl.Err(err))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error(err.Error()))
			return
		}
		log.Error("failed to create trial", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create trial"))
		return
	}

	log.Info("trial created", sl.TrialID(view.ID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(view))
}
