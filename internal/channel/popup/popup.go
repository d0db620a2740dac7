// Package popup реализует канал всплывающих уведомлений.
//
// Сам канал ничего не показывает: он проверяет разрешение через Permission
// и передает уведомление в Display. Конкретные реализации платформы
// (хранилище разрешения, очередь до браузера) лежат в этом же пакете.
package popup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/trial-tracker/internal/channel"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Name имя канала в логах и метриках.
const Name = "popup"

var (
	// ErrPermissionDenied пользователь запретил всплывающие уведомления.
	ErrPermissionDenied = errors.New("popup permission denied")
	// ErrPermissionUndetermined пользователь еще не ответил на запрос разрешения.
	ErrPermissionUndetermined = errors.New("popup permission not granted yet")
)

// Permission возможность платформы, хранящая разрешение пользователя.
type Permission interface {
	// Status возвращает текущее состояние без запроса у пользователя.
	Status(ctx context.Context) (models.PermissionState, error)
	// Request запрашивает разрешение, если оно еще не определено, иначе ничего не делает.
	Request(ctx context.Context) (models.PermissionState, error)
}

// Notification всплывающее уведомление.
type Notification struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Tag     string `json:"tag"`
	TrialID string `json:"trial_id"`
	Icon    string `json:"icon,omitempty"`
}

// Display показывает уведомление пользователю.
type Display interface {
	Show(ctx context.Context, n Notification) error
}

// Channel канал всплывающих уведомлений.
type Channel struct {
	permission Permission
	display    Display
	log        *slog.Logger
}

var (
	_ channel.Channel  = (*Channel)(nil)
	_ channel.Preparer = (*Channel)(nil)
)

// New создает канал всплывающих уведомлений.
func New(permission Permission, display Display, log *slog.Logger) *Channel {
	return &Channel{permission: permission, display: display, log: log}
}

// Name возвращает имя канала.
func (c *Channel) Name() string { return Name }

// Prepare запрашивает разрешение, если пользователь еще не решил.
// После отказа повторный запрос не делается.
func (c *Channel) Prepare(ctx context.Context) {
	state, err := c.permission.Status(ctx)
	if err != nil {
		c.log.Warn("failed to read popup permission", sl.Err(err))
		return
	}
	if state != models.PermissionUndetermined {
		return
	}
	state, err = c.permission.Request(ctx)
	if err != nil {
		c.log.Warn("failed to request popup permission", sl.Err(err))
		return
	}
	c.log.Debug("popup permission requested", slog.String("state", string(state)))
}

// Deliver показывает уведомление, если разрешение выдано.
func (c *Channel) Deliver(ctx context.Context, trial models.Trial, daysLeft int) models.DeliveryResult {
	state, err := c.permission.Status(ctx)
	if err != nil {
		return channel.Failed(Name, fmt.Errorf("read permission: %w", err))
	}
	switch state {
	case models.PermissionGranted:
	case models.PermissionDenied:
		return channel.Failed(Name, ErrPermissionDenied)
	default:
		return channel.Failed(Name, ErrPermissionUndetermined)
	}

	if err := c.display.Show(ctx, Build(trial, daysLeft)); err != nil {
		return channel.Failed(Name, err)
	}
	return channel.Delivered(Name)
}

// Build формирует текст уведомления.
func Build(trial models.Trial, daysLeft int) Notification {
	body := fmt.Sprintf("Only %d days left for %s. Cancel now if needed.", daysLeft, trial.ServiceName)
	if daysLeft <= 0 {
		body = fmt.Sprintf("Your %s trial has expired!", trial.ServiceName)
	}
	return Notification{
		Title:   fmt.Sprintf("Trial Expiring: %s", trial.ServiceName),
		Body:    body,
		Tag:     Tag(trial.ID),
		TrialID: trial.ID,
	}
}

// Tag стабильный тег уведомления, по которому отображение схлопывает дубликаты.
func Tag(trialID string) string {
	return "trial-" + trialID
}
