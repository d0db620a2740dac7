package create

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
	trialservice "github.com/magabrotheeeer/trial-tracker/internal/services/trial"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req models.DummyTrial) (models.TrialView, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.TrialView), args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное создание",
			body: `{"service_name":"Netflix","start_date":"2025-06-01","duration_label":"7 Days"}`,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(r models.DummyTrial) bool {
					return r.ServiceName == "Netflix" && r.DurationLabel == models.Duration7Days
				})).Return(models.TrialView{ID: "abc", ServiceName: "Netflix", EndDate: "2025-06-08"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"end_date":"2025-06-08"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"service_name":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:           "нет обязательных полей",
			body:           `{"service_name":"Netflix"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field StartDate is a required field`,
		},
		{
			name:           "неверный email",
			body:           `{"service_name":"Netflix","start_date":"2025-06-01","duration_label":"7 Days","email":"nope"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `must be a valid email`,
		},
		{
			name: "правила формы",
			body: `{"service_name":"Netflix","start_date":"2025-06-01","duration_label":"Custom"}`,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).Return(models.TrialView{},
					&trialservice.ValidationError{Field: "end_date", Msg: "is required for custom duration"}).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `end_date: is required for custom duration`,
		},
		{
			name: "ошибка сервиса",
			body: `{"service_name":"Netflix","start_date":"2025-06-01","duration_label":"7 Days"}`,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, mock.Anything).Return(models.TrialView{}, errors.New("db error")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `could not create trial`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodPost, "/trials", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			New(logger, mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
