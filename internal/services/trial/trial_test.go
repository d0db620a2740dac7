package trial

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateTrial(ctx context.Context, trial models.Trial) error {
	return m.Called(ctx, trial).Error(0)
}

func (m *RepoMock) ReadTrial(ctx context.Context, id string) (*models.Trial, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Trial), args.Error(1)
}

func (m *RepoMock) UpdateTrial(ctx context.Context, trial models.Trial) error {
	return m.Called(ctx, trial).Error(0)
}

func (m *RepoMock) RemoveTrial(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) ListTrials(ctx context.Context) ([]models.Trial, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Trial), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	return m.Called(ctx, routingKey, message).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

const trialID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newService(r *RepoMock, c *CacheMock, p *PublisherMock) *TrialService {
	s := NewTrialService(r, c, p, newNoopLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestBuildTrial(t *testing.T) {
	price := decimal.RequireFromString("12.50")
	negative := decimal.RequireFromString("-1")

	tests := []struct {
		name      string
		req       models.DummyTrial
		wantEnd   string
		wantCur   string
		wantField string
	}{
		{
			name:    "7 дней",
			req:     models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", DurationLabel: models.Duration7Days},
			wantEnd: "2025-06-08",
		},
		{
			name:    "30 дней через границу месяца",
			req:     models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-01-15", DurationLabel: models.Duration30Days},
			wantEnd: "2025-02-14",
		},
		{
			name: "фиксированная длительность игнорирует end_date",
			req: models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", EndDate: "2025-12-31",
				DurationLabel: models.Duration14Days},
			wantEnd: "2025-06-15",
		},
		{
			name: "custom",
			req: models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", EndDate: "2025-06-03",
				DurationLabel: models.DurationCustom},
			wantEnd: "2025-06-03",
		},
		{
			name: "валюта по умолчанию",
			req: models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", DurationLabel: models.Duration7Days,
				Price: &price},
			wantEnd: "2025-06-08",
			wantCur: "USD",
		},
		{
			name: "валюта приводится к верхнему регистру",
			req: models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", DurationLabel: models.Duration7Days,
				Price: &price, Currency: "eur"},
			wantEnd: "2025-06-08",
			wantCur: "EUR",
		},
		{
			name:      "пустое имя",
			req:       models.DummyTrial{ServiceName: "  ", StartDate: "2025-06-01", DurationLabel: models.Duration7Days},
			wantField: "service_name",
		},
		{
			name: "перевод строки в имени",
			req: models.DummyTrial{ServiceName: "Netflix\r\nBcc: attacker@evil.test", StartDate: "2025-06-01",
				DurationLabel: models.Duration7Days},
			wantField: "service_name",
		},
		{
			name:      "неверная дата начала",
			req:       models.DummyTrial{ServiceName: "Netflix", StartDate: "01-06-2025", DurationLabel: models.Duration7Days},
			wantField: "start_date",
		},
		{
			name:      "custom без даты окончания",
			req:       models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", DurationLabel: models.DurationCustom},
			wantField: "end_date",
		},
		{
			name: "окончание раньше начала",
			req: models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-10", EndDate: "2025-06-01",
				DurationLabel: models.DurationCustom},
			wantField: "end_date",
		},
		{
			name:      "неизвестная длительность",
			req:       models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", DurationLabel: "3 Weeks"},
			wantField: "duration_label",
		},
		{
			name: "отрицательная цена",
			req: models.DummyTrial{ServiceName: "Netflix", StartDate: "2025-06-01", DurationLabel: models.Duration7Days,
				Price: &negative},
			wantField: "price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildTrial(tt.req)
			if tt.wantField != "" {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnd, got.EndDate.Format("2006-01-02"))
			assert.Equal(t, tt.wantCur, got.Currency)
		})
	}
}

func TestTrialService_Create(t *testing.T) {
	req := models.DummyTrial{
		ServiceName:   "Netflix",
		StartDate:     "2025-06-10",
		DurationLabel: models.Duration7Days,
	}

	t.Run("success", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		r.On("CreateTrial", mock.Anything, mock.MatchedBy(func(tr models.Trial) bool {
			return tr.ID != "" && tr.IsActive && tr.ServiceName == "Netflix"
		})).Return(nil).Once()
		c.On("Set", mock.Anything, mock.MatchedBy(func(key string) bool { return len(key) > len("trial:") }),
			mock.Anything, CacheTTL).Return(nil).Once()
		p.On("Publish", mock.Anything, "trials.changed", mock.MatchedBy(func(msg models.TrialsChanged) bool {
			return msg.Action == models.ActionCreated && msg.TrialID != ""
		})).Return(nil).Once()

		view, err := newService(r, c, p).Create(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "2025-06-17", view.EndDate)
		assert.Equal(t, 2, view.DaysLeft)
		assert.Equal(t, models.StatusExpiringSoon, view.Status)
		r.AssertExpectations(t)
		c.AssertExpectations(t)
		p.AssertExpectations(t)
	})

	t.Run("publish failure does not fail create", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		r.On("CreateTrial", mock.Anything, mock.Anything).Return(nil).Once()
		c.On("Set", mock.Anything, mock.Anything, mock.Anything, CacheTTL).Return(errors.New("redis down")).Once()
		p.On("Publish", mock.Anything, "trials.changed", mock.Anything).Return(errors.New("broker down")).Once()

		_, err := newService(r, c, p).Create(context.Background(), req)
		require.NoError(t, err)
	})

	t.Run("validation error skips storage", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		bad := req
		bad.StartDate = ""

		_, err := newService(r, c, p).Create(context.Background(), bad)
		require.True(t, IsValidationError(err))
		r.AssertNotCalled(t, "CreateTrial", mock.Anything, mock.Anything)
		p.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage error", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		r.On("CreateTrial", mock.Anything, mock.Anything).Return(errors.New("db error")).Once()

		_, err := newService(r, c, p).Create(context.Background(), req)
		require.Error(t, err)
		assert.False(t, IsValidationError(err))
		p.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTrialService_Read(t *testing.T) {
	stored := &models.Trial{
		ID:          trialID,
		ServiceName: "Spotify",
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		IsActive:    true,
	}

	t.Run("cache miss reads storage and caches", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		c.On("Get", mock.Anything, "trial:"+trialID, mock.Anything).Return(false, nil).Once()
		r.On("ReadTrial", mock.Anything, trialID).Return(stored, nil).Once()
		c.On("Set", mock.Anything, "trial:"+trialID, *stored, CacheTTL).Return(nil).Once()

		view, err := newService(r, c, p).Read(context.Background(), trialID)
		require.NoError(t, err)
		assert.Equal(t, "Spotify", view.ServiceName)
		assert.Equal(t, 15, view.DaysLeft)
		assert.Equal(t, models.StatusActive, view.Status)
		r.AssertExpectations(t)
		c.AssertExpectations(t)
	})

	t.Run("cache hit", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		c.On("Get", mock.Anything, "trial:"+trialID, mock.Anything).Run(func(args mock.Arguments) {
			*(args.Get(2).(*models.Trial)) = *stored
		}).Return(true, nil).Once()

		view, err := newService(r, c, p).Read(context.Background(), trialID)
		require.NoError(t, err)
		assert.Equal(t, trialID, view.ID)
		r.AssertNotCalled(t, "ReadTrial", mock.Anything, mock.Anything)
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		_, err := newService(r, c, p).Read(context.Background(), "42")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not found", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		c.On("Get", mock.Anything, "trial:"+trialID, mock.Anything).Return(false, nil).Once()
		r.On("ReadTrial", mock.Anything, trialID).Return(nil, ErrNotFound).Once()

		_, err := newService(r, c, p).Read(context.Background(), trialID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTrialService_UpdatePreservesIDAndActive(t *testing.T) {
	existing := &models.Trial{ID: trialID, ServiceName: "Old", IsActive: false}
	r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
	c.On("Get", mock.Anything, "trial:"+trialID, mock.Anything).Return(false, nil).Once()
	r.On("ReadTrial", mock.Anything, trialID).Return(existing, nil).Once()
	c.On("Set", mock.Anything, "trial:"+trialID, mock.Anything, CacheTTL).Return(nil)
	r.On("UpdateTrial", mock.Anything, mock.MatchedBy(func(tr models.Trial) bool {
		return tr.ID == trialID && !tr.IsActive && tr.ServiceName == "New"
	})).Return(nil).Once()
	p.On("Publish", mock.Anything, "trials.changed",
		models.TrialsChanged{TrialID: trialID, Action: models.ActionUpdated}).Return(nil).Once()

	view, err := newService(r, c, p).Update(context.Background(), trialID, models.DummyTrial{
		ServiceName:   "New",
		StartDate:     "2025-06-01",
		DurationLabel: models.Duration30Days,
	})
	require.NoError(t, err)
	assert.Equal(t, trialID, view.ID)
	assert.Equal(t, "2025-07-01", view.EndDate)
	r.AssertExpectations(t)
	p.AssertExpectations(t)
}

func TestTrialService_UpdateCanDeactivate(t *testing.T) {
	existing := &models.Trial{ID: trialID, ServiceName: "Old", IsActive: true}
	inactive := false
	r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
	c.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	r.On("ReadTrial", mock.Anything, trialID).Return(existing, nil)
	c.On("Set", mock.Anything, mock.Anything, mock.Anything, CacheTTL).Return(nil)
	r.On("UpdateTrial", mock.Anything, mock.MatchedBy(func(tr models.Trial) bool { return !tr.IsActive })).Return(nil).Once()
	p.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	view, err := newService(r, c, p).Update(context.Background(), trialID, models.DummyTrial{
		ServiceName: "Old", StartDate: "2025-06-01", DurationLabel: models.Duration7Days, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, view.IsActive)
	r.AssertExpectations(t)
}

func TestTrialService_Remove(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		c.On("Invalidate", mock.Anything, "trial:"+trialID).Return(nil).Once()
		r.On("RemoveTrial", mock.Anything, trialID).Return(nil).Once()
		p.On("Publish", mock.Anything, "trials.changed",
			models.TrialsChanged{TrialID: trialID, Action: models.ActionRemoved}).Return(nil).Once()

		require.NoError(t, newService(r, c, p).Remove(context.Background(), trialID))
		r.AssertExpectations(t)
		c.AssertExpectations(t)
		p.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
		c.On("Invalidate", mock.Anything, "trial:"+trialID).Return(nil).Once()
		r.On("RemoveTrial", mock.Anything, trialID).Return(ErrNotFound).Once()

		err := newService(r, c, p).Remove(context.Background(), trialID)
		require.ErrorIs(t, err, ErrNotFound)
		p.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTrialService_ListAndStats(t *testing.T) {
	price := decimal.RequireFromString("10")
	trials := []models.Trial{
		{ID: "a", ServiceName: "A", EndDate: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), IsActive: true, Price: &price, Currency: "USD"},
		{ID: "b", ServiceName: "B", EndDate: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), IsActive: true},
		{ID: "c", ServiceName: "C", EndDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), IsActive: false},
	}
	r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
	r.On("ListTrials", mock.Anything).Return(trials, nil)
	s := newService(r, c, p)

	views, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, models.StatusExpiringSoon, views[0].Status)
	assert.Equal(t, models.StatusExpired, views[1].Status)
	assert.Equal(t, -5, views[1].DaysLeft)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveTrials)
	assert.Equal(t, 1, stats.ExpiringSoon)
	assert.True(t, price.Equal(stats.TotalsByCurrency["USD"]))
}

func TestTrialService_ListError(t *testing.T) {
	r, c, p := new(RepoMock), new(CacheMock), new(PublisherMock)
	r.On("ListTrials", mock.Anything).Return(nil, errors.New("db down"))

	_, err := newService(r, c, p).List(context.Background())
	require.Error(t, err)
	_, err = newService(r, c, p).Stats(context.Background())
	require.Error(t, err)
}
