package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trial-tracker/internal/channel/email"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetChannelConfig(ctx context.Context) (*models.ChannelConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChannelConfig), args.Error(1)
}

func (m *RepoMock) SaveEmailConfig(ctx context.Context, cfg models.EmailConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *RepoMock) SetPopupPermission(ctx context.Context, state models.PermissionState) error {
	return m.Called(ctx, state).Error(0)
}

type TesterMock struct{ mock.Mock }

func (m *TesterMock) TestConnection(ctx context.Context, to string) error {
	return m.Called(ctx, to).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestSettingsService_EmailConfig(t *testing.T) {
	repo := new(RepoMock)
	want := models.EmailConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk", Enabled: true}
	repo.On("GetChannelConfig", mock.Anything).Return(&models.ChannelConfig{Email: want}, nil).Once()

	got, err := NewSettingsService(repo, new(TesterMock), newNoopLogger()).EmailConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsService_SaveEmailConfigTrims(t *testing.T) {
	repo := new(RepoMock)
	repo.On("SaveEmailConfig", mock.Anything,
		models.EmailConfig{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk", Enabled: true}).Return(nil).Once()

	got, err := NewSettingsService(repo, new(TesterMock), newNoopLogger()).SaveEmailConfig(context.Background(),
		models.DummyEmailConfig{ServiceID: " svc ", TemplateID: "tpl\n", PublicKey: "pk", Enabled: true})
	require.NoError(t, err)
	assert.True(t, got.Configured())
	repo.AssertExpectations(t)
}

func TestSettingsService_SaveEmailConfigError(t *testing.T) {
	repo := new(RepoMock)
	repo.On("SaveEmailConfig", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	_, err := NewSettingsService(repo, new(TesterMock), newNoopLogger()).SaveEmailConfig(context.Background(),
		models.DummyEmailConfig{})
	require.Error(t, err)
}

func TestSettingsService_PopupConfig(t *testing.T) {
	tests := []struct {
		name   string
		stored models.PermissionState
		want   models.PermissionState
	}{
		{name: "granted", stored: models.PermissionGranted, want: models.PermissionGranted},
		{name: "denied", stored: models.PermissionDenied, want: models.PermissionDenied},
		{name: "unknown value", stored: "maybe", want: models.PermissionUndetermined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("GetChannelConfig", mock.Anything).
				Return(&models.ChannelConfig{Popup: models.PopupConfig{Permission: tt.stored}}, nil).Once()

			got, err := NewSettingsService(repo, new(TesterMock), newNoopLogger()).PopupConfig(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Permission)
		})
	}
}

func TestSettingsService_SetPopupPermission(t *testing.T) {
	repo := new(RepoMock)
	repo.On("SetPopupPermission", mock.Anything, models.PermissionDenied).Return(nil).Once()
	s := NewSettingsService(repo, new(TesterMock), newNoopLogger())

	got, err := s.SetPopupPermission(context.Background(), models.PermissionDenied)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionDenied, got.Permission)

	_, err = s.SetPopupPermission(context.Background(), "sometimes")
	var invalid *InvalidPermissionError
	require.ErrorAs(t, err, &invalid)
	repo.AssertExpectations(t)
}

func TestSettingsService_TestEmail(t *testing.T) {
	tester := new(TesterMock)
	tester.On("TestConnection", mock.Anything, "me@example.com").Return(nil).Once()
	tester.On("TestConnection", mock.Anything, "other@example.com").Return(email.ErrNotConfigured).Once()
	s := NewSettingsService(new(RepoMock), tester, newNoopLogger())

	require.NoError(t, s.TestEmail(context.Background(), " me@example.com "))
	require.ErrorIs(t, s.TestEmail(context.Background(), "other@example.com"), email.ErrNotConfigured)
	tester.AssertExpectations(t)
}
