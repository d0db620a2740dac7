// Package settings управляет настройками каналов уведомлений.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Repository хранилище настроек каналов.
type Repository interface {
	GetChannelConfig(ctx context.Context) (*models.ChannelConfig, error)
	SaveEmailConfig(ctx context.Context, cfg models.EmailConfig) error
	SetPopupPermission(ctx context.Context, state models.PermissionState) error
}

// EmailTester отправляет тестовое письмо по текущим настройкам.
type EmailTester interface {
	TestConnection(ctx context.Context, to string) error
}

// InvalidPermissionError неизвестное состояние разрешения.
type InvalidPermissionError struct {
	State models.PermissionState
}

func (e *InvalidPermissionError) Error() string {
	return fmt.Sprintf("invalid popup permission %q", e.State)
}

// SettingsService бизнес-логика диалога настроек.
type SettingsService struct {
	repo   Repository
	tester EmailTester
	log    *slog.Logger
}

// NewSettingsService создает новый экземпляр SettingsService.
func NewSettingsService(repo Repository, tester EmailTester, log *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		tester: tester,
		log:    log,
	}
}

// EmailConfig возвращает настройки почты.
func (s *SettingsService) EmailConfig(ctx context.Context) (models.EmailConfig, error) {
	const op = "services.settings.EmailConfig"
	cfg, err := s.repo.GetChannelConfig(ctx)
	if err != nil {
		return models.EmailConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg.Email, nil
}

// SaveEmailConfig сохраняет настройки почты. Пробелы по краям значений отбрасываются.
func (s *SettingsService) SaveEmailConfig(ctx context.Context, req models.DummyEmailConfig) (models.EmailConfig, error) {
	const op = "services.settings.SaveEmailConfig"
	cfg := models.EmailConfig{
		ServiceID:  strings.TrimSpace(req.ServiceID),
		TemplateID: strings.TrimSpace(req.TemplateID),
		PublicKey:  strings.TrimSpace(req.PublicKey),
		Enabled:    req.Enabled,
	}
	if err := s.repo.SaveEmailConfig(ctx, cfg); err != nil {
		return models.EmailConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email settings saved",
		slog.Bool("enabled", cfg.Enabled), slog.Bool("configured", cfg.Configured()))
	return cfg, nil
}

// PopupConfig возвращает настройки всплывающих уведомлений.
func (s *SettingsService) PopupConfig(ctx context.Context) (models.PopupConfig, error) {
	const op = "services.settings.PopupConfig"
	cfg, err := s.repo.GetChannelConfig(ctx)
	if err != nil {
		return models.PopupConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	if !cfg.Popup.Permission.Valid() {
		cfg.Popup.Permission = models.PermissionUndetermined
	}
	return cfg.Popup, nil
}

// SetPopupPermission сохраняет ответ пользователя на запрос разрешения.
func (s *SettingsService) SetPopupPermission(ctx context.Context, state models.PermissionState) (models.PopupConfig, error) {
	const op = "services.settings.SetPopupPermission"
	if !state.Valid() {
		return models.PopupConfig{}, &InvalidPermissionError{State: state}
	}
	if err := s.repo.SetPopupPermission(ctx, state); err != nil {
		return models.PopupConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("popup permission changed", slog.String("permission", string(state)))
	return models.PopupConfig{Permission: state}, nil
}

// TestEmail отправляет тестовое письмо на адрес to.
func (s *SettingsService) TestEmail(ctx context.Context, to string) error {
	const op = "services.settings.TestEmail"
	if err := s.tester.TestConnection(ctx, strings.TrimSpace(to)); err != nil {
		s.log.Warn("test email failed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("test email sent")
	return nil
}
