package emailtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trial-tracker/internal/channel/email"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) TestEmail(ctx context.Context, to string) error {
	return m.Called(ctx, to).Error(0)
}

func TestEmailTestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		err            error
		callsService   bool
		expectedStatus int
		expectedBody   string
	}{
		{name: "отправлено", body: `{"email":"me@example.com"}`, callsService: true,
			expectedStatus: http.StatusOK, expectedBody: `"sent_to":"me@example.com"`},
		{name: "нет адреса", body: `{}`,
			expectedStatus: http.StatusUnprocessableEntity, expectedBody: `field Email is a required field`},
		{name: "неверный адрес", body: `{"email":"me"}`,
			expectedStatus: http.StatusUnprocessableEntity, expectedBody: `must be a valid email`},
		{name: "не настроено", body: `{"email":"me@example.com"}`, callsService: true,
			err:            fmt.Errorf("services.settings.TestEmail: %w", email.ErrNotConfigured),
			expectedStatus: http.StatusConflict, expectedBody: `email is not configured`},
		{name: "ошибка провайдера", body: `{"email":"me@example.com"}`, callsService: true,
			err:            errors.New("provider returned 403"),
			expectedStatus: http.StatusBadGateway, expectedBody: `provider returned 403`},
		{name: "некорректный JSON", body: `{`,
			expectedStatus: http.StatusBadRequest, expectedBody: `invalid request body`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockService)
			if tt.callsService {
				m.On("TestEmail", mock.Anything, "me@example.com").Return(tt.err).Once()
			}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/settings/email/test", strings.NewReader(tt.body))
			New(logger, m).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			m.AssertExpectations(t)
		})
	}
}
