package popup

import (
	"context"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
	"github.com/magabrotheeeer/trial-tracker/internal/rabbitmq"
)

// Ключи маршрутизации в обменнике notifications.
const (
	RoutingKeyPopup      = rabbitmq.RoutingKeyPopup
	RoutingKeyPermission = rabbitmq.RoutingKeyPermission
)

// Publisher публикует сообщение в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// SettingsReader читает настройки каналов.
type SettingsReader interface {
	GetChannelConfig(ctx context.Context) (*models.ChannelConfig, error)
}

// PermissionPrompt сообщение клиенту с просьбой спросить разрешение у пользователя.
type PermissionPrompt struct {
	Permission models.PermissionState `json:"permission"`
}

// SettingsPermission хранит разрешение в настройках. Request не меняет состояние:
// он публикует запрос клиенту, ответ пользователя приходит через API настроек.
// Запрос публикуется один раз за время жизни процесса.
type SettingsPermission struct {
	settings  SettingsReader
	publisher Publisher

	mu       sync.Mutex
	prompted bool
}

// NewSettingsPermission создает разрешение поверх настроек и брокера.
func NewSettingsPermission(settings SettingsReader, publisher Publisher) *SettingsPermission {
	return &SettingsPermission{settings: settings, publisher: publisher}
}

// Status возвращает сохраненное состояние разрешения.
func (p *SettingsPermission) Status(ctx context.Context) (models.PermissionState, error) {
	const op = "popup.SettingsPermission.Status"
	cfg, err := p.settings.GetChannelConfig(ctx)
	if err != nil {
		return models.PermissionUndetermined, fmt.Errorf("%s: %w", op, err)
	}
	if !cfg.Popup.Permission.Valid() {
		return models.PermissionUndetermined, nil
	}
	return cfg.Popup.Permission, nil
}

// Request публикует запрос разрешения, если состояние не определено и запрос еще не отправлялся.
func (p *SettingsPermission) Request(ctx context.Context) (models.PermissionState, error) {
	const op = "popup.SettingsPermission.Request"
	state, err := p.Status(ctx)
	if err != nil || state != models.PermissionUndetermined {
		return state, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prompted {
		return state, nil
	}
	if err := p.publisher.Publish(ctx, RoutingKeyPermission, PermissionPrompt{Permission: state}); err != nil {
		return state, fmt.Errorf("%s: %w", op, err)
	}
	p.prompted = true
	return state, nil
}

// QueueDisplay отправляет уведомления в брокер, откуда их забирает шлюз веб-сокетов.
type QueueDisplay struct {
	publisher Publisher
	icon      string
}

// NewQueueDisplay создает отображение через брокер.
func NewQueueDisplay(publisher Publisher, icon string) *QueueDisplay {
	return &QueueDisplay{publisher: publisher, icon: icon}
}

// Show публикует уведомление.
func (d *QueueDisplay) Show(ctx context.Context, n Notification) error {
	const op = "popup.QueueDisplay.Show"
	if n.Icon == "" {
		n.Icon = d.icon
	}
	if err := d.publisher.Publish(ctx, RoutingKeyPopup, n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
