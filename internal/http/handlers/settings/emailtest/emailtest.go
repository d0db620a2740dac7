// Package emailtest реализует отправку тестового письма из диалога настроек.
package emailtest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/trial-tracker/internal/channel/email"
	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	TestEmail(ctx context.Context, to string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Отправить тестовое письмо
// @Description Отправляет синтетическое уведомление независимо от флага enabled. Журнал уведомлений не меняется.
// @Tags Settings
// @Accept  json
// @Produce  json
// @Param request body models.DummyEmailTest true "Адрес получателя"
// @Success 200 {object} response.Response "Письмо отправлено"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Почта не настроена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Провайдер отклонил отправку"
// @Router /settings/email/test [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings.emailtest"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyEmailTest
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

	err := h.service.TestEmail(r.Context(), req.Email)
	if errors.Is(err, email.ErrNotConfigured) {
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("email is not configured"))
		return
	}
	if err != nil {
		log.Warn("test email failed", sl.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		render.JSON(w, r, response.Error("failed to send test email: "+err.Error()))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"sent_to": req.Email,
	}))
}
