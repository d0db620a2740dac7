// Package email реализует канал уведомлений по электронной почте
// через внешний провайдер транзакционных писем.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/trial-tracker/internal/channel"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/day"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Name имя канала в логах и метриках.
const Name = "email"

// Параметры шаблона письма.
const (
	ParamToEmail     = "to_email"
	ParamServiceName = "service_name"
	ParamDaysLeft    = "days_left"
	ParamExpiryDate  = "expiry_date"
	ParamMessage     = "message"
)

// ErrNotConfigured не заполнены учетные данные провайдера.
var ErrNotConfigured = errors.New("email channel is not configured")

// Provider отправляет письмо по шаблону провайдера.
type Provider interface {
	Send(ctx context.Context, serviceID, templateID, publicKey string, params map[string]string) error
}

// SettingsReader читает настройки каналов. Вызывается при каждой отправке.
type SettingsReader interface {
	GetChannelConfig(ctx context.Context) (*models.ChannelConfig, error)
}

// Channel канал электронной почты.
type Channel struct {
	settings SettingsReader
	provider Provider
	log      *slog.Logger
	now      func() time.Time
}

var _ channel.Channel = (*Channel)(nil)

// New создает канал электронной почты.
func New(settings SettingsReader, provider Provider, log *slog.Logger) *Channel {
	return &Channel{settings: settings, provider: provider, log: log, now: time.Now}
}

// Name возвращает имя канала.
func (c *Channel) Name() string { return Name }

// Deliver отправляет письмо о подписке. Выключенный или не настроенный канал
// пропускается без ошибки.
func (c *Channel) Deliver(ctx context.Context, trial models.Trial, daysLeft int) models.DeliveryResult {
	cfg, err := c.settings.GetChannelConfig(ctx)
	if err != nil {
		return channel.Failed(Name, fmt.Errorf("read channel config: %w", err))
	}
	if !cfg.Email.Enabled || !cfg.Email.Configured() {
		return channel.Skipped(Name)
	}

	params := map[string]string{
		ParamToEmail:     trial.Email,
		ParamServiceName: trial.ServiceName,
		ParamDaysLeft:    strconv.Itoa(daysLeft),
		ParamExpiryDate:  day.Format(trial.EndDate),
		ParamMessage:     channel.Summary(trial.ServiceName, daysLeft),
	}
	if err := c.send(ctx, cfg.Email, params); err != nil {
		c.log.Error("email sending failed", sl.TrialID(trial.ID), sl.Err(err))
		return channel.Failed(Name, err)
	}
	return channel.Delivered(Name)
}

// TestConnection отправляет тестовое письмо на адрес to, считая канал включенным.
// Не работает с журналом уведомлений.
func (c *Channel) TestConnection(ctx context.Context, to string) error {
	const op = "email.TestConnection"
	cfg, err := c.settings.GetChannelConfig(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !cfg.Email.Configured() {
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	params := map[string]string{
		ParamToEmail:     to,
		ParamServiceName: "Test Service",
		ParamDaysLeft:    "3",
		ParamExpiryDate:  day.Format(c.now()),
		ParamMessage:     "This is a test notification from Trial Monitor.",
	}
	if err := c.send(ctx, cfg.Email, params); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Channel) send(ctx context.Context, cfg models.EmailConfig, params map[string]string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("email provider panic: %v", r)
		}
	}()
	return c.provider.Send(ctx, cfg.ServiceID, cfg.TemplateID, cfg.PublicKey, params)
}
