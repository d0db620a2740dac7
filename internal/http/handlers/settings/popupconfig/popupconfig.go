// Package popupconfig реализует чтение и изменение разрешения на всплывающие уведомления.
//
// PUT используется клиентом как ответ на запрос разрешения, пришедший через websocket.
package popupconfig

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
)

// Service описывает интерфейс настроек всплывающих уведомлений.
type Service interface {
	PopupConfig(ctx context.Context) (models.PopupConfig, error)
	SetPopupPermission(ctx context.Context, state models.PermissionState) (models.PopupConfig, error)
}

type GetHandler struct {
	log     *slog.Logger
	service Service
}

func NewGet(log *slog.Logger, service Service) *GetHandler {
	return &GetHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Разрешение на всплывающие уведомления
// @Tags Settings
// @Produce  json
// @Success 200 {object} response.Response "Текущее состояние"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /settings/popup [get]
func (h *GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings.popupconfig.get"
	cfg, err := h.service.PopupConfig(r.Context())
	if err != nil {
		h.log.Error("failed to read popup settings", slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read popup settings"))
		return
	}
	render.JSON(w, r, response.OKWithData(cfg))
}

type PutHandler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func NewPut(log *slog.Logger, service Service) *PutHandler {
	return &PutHandler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Изменить разрешение на всплывающие уведомления
// @Tags Settings
// @Accept  json
// @Produce  json
// @Param request body models.DummyPopupConfig true "undetermined, granted или denied"
// @Success 200 {object} response.Response "Новое состояние"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /settings/popup [put]
func (h *PutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.settings.popupconfig.put"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyPopupConfig
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

	cfg, err := h.service.SetPopupPermission(r.Context(), req.Permission)
	if err != nil {
		log.Error("failed to save popup permission", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not save popup permission"))
		return
	}
	render.JSON(w, r, response.OKWithData(cfg))
}
