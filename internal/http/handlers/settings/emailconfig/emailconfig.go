// Package emailconfig реализует чтение и сохранение настроек канала электронной почты.
package emailconfig

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/trial-tracker/internal/http/response"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Service описывает интерфейс настроек почты.
type Service interface {
	EmailConfig(ctx context.Context) (models.EmailConfig, error)
	SaveEmailConfig(ctx context.Context, req models.DummyEmailConfig) (models.EmailConfig, error)
}

// GetHandler возвращает текущие настройки почты.
type GetHandler struct {
	log     *slog.Logger
	service Service
}

// NewGet создает новый GetHandler.
func NewGet(log *slog.Logger, service Service) *GetHandler {
	return &GetHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Настройки почты
// @Tags Settings
// @Produce  json
// @Success 200 {object} response.Response "Настройки"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /settings/email [get]
func (h *GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings.emailconfig.get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	cfg, err := h.service.EmailConfig(r.Context())
	if err != nil {
		log.Error("failed to read email settings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read email settings"))
		return
	}
	render.JSON(w, r, response.OKWithData(cfg))
}

// PutHandler сохраняет настройки почты.
type PutHandler struct {
	log     *slog.Logger
	service Service
}

// NewPut создает новый PutHandler.
func NewPut(log *slog.Logger, service Service) *PutHandler {
	return &PutHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сохранить настройки почты
// @Tags Settings
// @Accept  json
// @Produce  json
// @Param request body models.DummyEmailConfig true "Учетные данные провайдера и флаг включения"
// @Success 200 {object} response.Response "Сохраненные настройки"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /settings/email [put]
func (h *PutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings.emailconfig.put"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyEmailConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	cfg, err := h.service.SaveEmailConfig(r.Context(), req)
	if err != nil {
		log.Error("failed to save email settings", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not save email settings"))
		return
	}
	render.JSON(w, r, response.OKWithData(cfg))
}
