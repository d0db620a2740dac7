package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context) ([]models.TrialView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TrialView), args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("список", func(t *testing.T) {
		m := new(MockService)
		m.On("List", mock.Anything).Return([]models.TrialView{
			{ID: "a", ServiceName: "Netflix", Status: models.StatusExpired},
			{ID: "b", ServiceName: "Spotify", Status: models.StatusActive},
		}, nil)

		w := httptest.NewRecorder()
		New(logger, m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trials", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"service_name":"Spotify"`)
		assert.Contains(t, w.Body.String(), `"status":"Expired"`)
	})

	t.Run("ошибка сервиса", func(t *testing.T) {
		m := new(MockService)
		m.On("List", mock.Anything).Return(nil, errors.New("db error"))

		w := httptest.NewRecorder()
		New(logger, m).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/trials", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), `could not list trials`)
	})
}
