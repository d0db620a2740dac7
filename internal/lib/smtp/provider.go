package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
)

// ErrNoRecipient в параметрах письма нет адреса получателя.
var ErrNoRecipient = errors.New("smtp: recipient address is empty")

// ErrInvalidHeader значение заголовка содержит перевод строки.
var ErrInvalidHeader = errors.New("smtp: header value contains line break")

// Provider отправляет письмо, собранное из параметров шаблона, через SMTP.
// Учетные данные берутся из конфигурации транспорта, идентификаторы сервиса
// и шаблона провайдера не используются.
type Provider struct {
	transport TransportInterface
	log       *slog.Logger
}

// NewProvider создает SMTP-провайдер.
func NewProvider(transport TransportInterface, log *slog.Logger) *Provider {
	return &Provider{transport: transport, log: log}
}

// Send собирает письмо из параметров to_email, service_name, expiry_date, message и отправляет его.
func (p *Provider) Send(ctx context.Context, _, _, _ string, params map[string]string) error {
	const op = "smtp.Provider.Send"
	to := params["to_email"]
	if to == "" {
		return fmt.Errorf("%s: %w", op, ErrNoRecipient)
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("%s: to_email: %w", op, ErrInvalidHeader)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	subject := "Trial Expiring: " + params["service_name"]
	body := params["message"]
	if expiry := params["expiry_date"]; expiry != "" {
		body += "\n\nTrial end date: " + expiry
	}

	if err := p.sendEmail([]string{to}, subject, body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *Provider) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + p.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := p.transport.Connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(p.transport.GetSMTPUser()); err != nil {
		p.log.Error("failed to set MAIL FROM", slog.String("from", p.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			p.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		return err
	}
	if err = wc.Close(); err != nil {
		return err
	}
	if err = client.Quit(); err != nil {
		return err
	}

	p.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
