package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// GetChannelConfig возвращает текущие настройки каналов.
func (s *Storage) GetChannelConfig(ctx context.Context) (*models.ChannelConfig, error) {
	const op = "storage.GetChannelConfig"

	query := `SELECT popup_permission, email_service_id, email_template_id, email_public_key, email_enabled
			  FROM channel_settings WHERE id = 1`
	var (
		cfg        models.ChannelConfig
		permission string
	)
	err := s.DB.QueryRowContext(ctx, query).Scan(&permission,
		&cfg.Email.ServiceID, &cfg.Email.TemplateID, &cfg.Email.PublicKey, &cfg.Email.Enabled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Popup.Permission = models.PermissionState(permission)
	return &cfg, nil
}

// SaveEmailConfig сохраняет настройки канала электронной почты.
func (s *Storage) SaveEmailConfig(ctx context.Context, cfg models.EmailConfig) error {
	const op = "storage.SaveEmailConfig"

	query := `INSERT INTO channel_settings (id, email_service_id, email_template_id, email_public_key, email_enabled, updated_at)
			  VALUES (1, $1, $2, $3, $4, NOW())
			  ON CONFLICT (id) DO UPDATE
			  SET email_service_id = EXCLUDED.email_service_id,
			      email_template_id = EXCLUDED.email_template_id,
			      email_public_key = EXCLUDED.email_public_key,
			      email_enabled = EXCLUDED.email_enabled,
			      updated_at = NOW()`
	if _, err := s.DB.ExecContext(ctx, query, cfg.ServiceID, cfg.TemplateID, cfg.PublicKey, cfg.Enabled); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetPopupPermission сохраняет состояние разрешения на всплывающие уведомления.
func (s *Storage) SetPopupPermission(ctx context.Context, state models.PermissionState) error {
	const op = "storage.SetPopupPermission"

	query := `INSERT INTO channel_settings (id, popup_permission, updated_at)
			  VALUES (1, $1, NOW())
			  ON CONFLICT (id) DO UPDATE
			  SET popup_permission = EXCLUDED.popup_permission, updated_at = NOW()`
	if _, err := s.DB.ExecContext(ctx, query, string(state)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
