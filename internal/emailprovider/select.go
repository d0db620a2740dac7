package emailprovider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/trial-tracker/internal/config"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/smtp"
)

// Поддерживаемые значения email_provider.kind.
const (
	KindEmailJS = "emailjs"
	KindSMTP    = "smtp"
)

// Sender отправка письма по шаблону провайдера.
type Sender interface {
	Send(ctx context.Context, serviceID, templateID, publicKey string, params map[string]string) error
}

// FromConfig выбирает провайдера по cfg.Kind.
func FromConfig(cfg *config.Config, log *slog.Logger) (Sender, error) {
	const op = "emailprovider.FromConfig"
	switch cfg.Kind {
	case KindEmailJS, "":
		return NewClient(cfg.APIURL, cfg.EmailProvider.Timeout), nil
	case KindSMTP:
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("%s: smtp_host is required for smtp provider", op)
		}
		transport := smtp.NewTransport(cfg.SMTP, cfg.EmailProvider.Timeout, log)
		return smtp.NewProvider(transport, log), nil
	default:
		return nil, fmt.Errorf("%s: unknown email provider %q", op, cfg.Kind)
	}
}
