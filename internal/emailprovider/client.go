// Package emailprovider клиент REST API провайдера транзакционных писем
// (совместим с EmailJS: POST /email/send с service_id, template_id и публичным ключом).
package emailprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL адрес API по умолчанию.
const DefaultAPIURL = "https://api.emailjs.com/api/v1.0"

// ProviderError ответ провайдера с неуспешным статусом.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("email provider responded %d: %s", e.StatusCode, e.Message)
}

// sendRequest тело запроса на отправку письма.
type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// Client клиент API провайдера.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient создает клиента. Пустой apiURL заменяется адресом по умолчанию.
func NewClient(apiURL string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Send отправляет письмо по шаблону templateID сервиса serviceID.
func (c *Client) Send(ctx context.Context, serviceID, templateID, publicKey string, params map[string]string) error {
	const op = "emailprovider.Send"
	req, err := c.newRequest(ctx, http.MethodPost, "/email/send", sendRequest{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         publicKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: %w", op, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		})
	}
	return nil
}
