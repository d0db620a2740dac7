// Package trial содержит бизнес-логику работы с пробными подписками:
// правила формы, кеширование и оповещение планировщика об изменениях.
package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/trial-tracker/internal/cache"
	"github.com/magabrotheeeer/trial-tracker/internal/expiry"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/day"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
	"github.com/magabrotheeeer/trial-tracker/internal/rabbitmq"
	"github.com/magabrotheeeer/trial-tracker/internal/storage/repository"
)

// CacheTTL время жизни записи о подписке в кеше.
const CacheTTL = time.Hour

// ErrNotFound подписка не найдена.
var ErrNotFound = repository.ErrNotFound

// ValidationError ошибка входных данных, отдается клиенту как есть.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// TrialRepository определяет методы для работы с подписками в хранилище.
type TrialRepository interface {
	CreateTrial(ctx context.Context, trial models.Trial) error
	ReadTrial(ctx context.Context, id string) (*models.Trial, error)
	UpdateTrial(ctx context.Context, trial models.Trial) error
	RemoveTrial(ctx context.Context, id string) error
	ListTrials(ctx context.Context) ([]models.Trial, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Publisher отправляет событие об изменении подписок планировщику.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// TrialService реализует бизнес-логику работы с пробными подписками.
type TrialService struct {
	repo      TrialRepository
	cache     Cache
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewTrialService создает новый экземпляр TrialService.
func NewTrialService(repo TrialRepository, cache Cache, publisher Publisher, log *slog.Logger) *TrialService {
	return &TrialService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Create проверяет запрос, сохраняет новую активную подписку и возвращает ее представление.
func (s *TrialService) Create(ctx context.Context, req models.DummyTrial) (models.TrialView, error) {
	const op = "services.trial.Create"

	trial, err := buildTrial(req)
	if err != nil {
		return models.TrialView{}, err
	}
	trial.ID = uuid.NewString()
	trial.IsActive = true
	if req.IsActive != nil {
		trial.IsActive = *req.IsActive
	}

	if err := s.repo.CreateTrial(ctx, trial); err != nil {
		return models.TrialView{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created new trial", sl.TrialID(trial.ID), slog.String("service", trial.ServiceName))

	s.cacheTrial(ctx, trial)
	s.notify(ctx, trial.ID, models.ActionCreated)
	return expiry.View(trial, s.now()), nil
}

// Read возвращает подписку по ID, используя кеш или репозиторий.
func (s *TrialService) Read(ctx context.Context, id string) (models.TrialView, error) {
	trial, err := s.read(ctx, id)
	if err != nil {
		return models.TrialView{}, err
	}
	return expiry.View(*trial, s.now()), nil
}

func (s *TrialService) read(ctx context.Context, id string) (*models.Trial, error) {
	const op = "services.trial.Read"
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	var cached models.Trial
	found, err := s.cache.Get(ctx, cache.TrialKey(id), &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", cache.TrialKey(id)), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	trial, err := s.repo.ReadTrial(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.cacheTrial(ctx, *trial)
	return trial, nil
}

// Update перезаписывает подписку, сохраняя ее идентификатор. Если is_active не передан,
// сохраняется прежнее значение.
func (s *TrialService) Update(ctx context.Context, id string, req models.DummyTrial) (models.TrialView, error) {
	const op = "services.trial.Update"

	existing, err := s.read(ctx, id)
	if err != nil {
		return models.TrialView{}, err
	}
	trial, err := buildTrial(req)
	if err != nil {
		return models.TrialView{}, err
	}
	trial.ID = existing.ID
	trial.IsActive = existing.IsActive
	if req.IsActive != nil {
		trial.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateTrial(ctx, trial); err != nil {
		return models.TrialView{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("updated trial", sl.TrialID(trial.ID))

	s.cacheTrial(ctx, trial)
	s.notify(ctx, trial.ID, models.ActionUpdated)
	return expiry.View(trial, s.now()), nil
}

// Remove удаляет подписку и инвалидирует кеш. Запись в журнале уведомлений остается.
func (s *TrialService) Remove(ctx context.Context, id string) error {
	const op = "services.trial.Remove"
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if err := s.cache.Invalidate(ctx, cache.TrialKey(id)); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", cache.TrialKey(id)), sl.Err(err))
	}
	if err := s.repo.RemoveTrial(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("removed trial", sl.TrialID(id))

	s.notify(ctx, id, models.ActionRemoved)
	return nil
}

// List возвращает все подписки с вычисленными днями до окончания и статусом.
func (s *TrialService) List(ctx context.Context) ([]models.TrialView, error) {
	const op = "services.trial.List"
	trials, err := s.repo.ListTrials(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now()
	views := make([]models.TrialView, 0, len(trials))
	for _, t := range trials {
		views = append(views, expiry.View(t, now))
	}
	return views, nil
}

// Stats возвращает сводку для дашборда.
func (s *TrialService) Stats(ctx context.Context) (models.Stats, error) {
	const op = "services.trial.Stats"
	trials, err := s.repo.ListTrials(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}
	return expiry.Summarize(trials, s.now()), nil
}

func (s *TrialService) cacheTrial(ctx context.Context, trial models.Trial) {
	key := cache.TrialKey(trial.ID)
	if err := s.cache.Set(ctx, key, trial, CacheTTL); err != nil {
		s.log.Warn("failed to cache trial", slog.String("key", key), sl.Err(err))
	}
}

// notify будит планировщик. Ошибка не возвращается клиенту: подписка уже сохранена,
// и следующий плановый проход ее учтет.
func (s *TrialService) notify(ctx context.Context, id, action string) {
	msg := models.TrialsChanged{TrialID: id, Action: action}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyTrialsChanged, msg); err != nil {
		s.log.Warn("failed to publish trials change", sl.TrialID(id), sl.Err(err))
	}
}

// buildTrial применяет правила формы: вычисление даты окончания по длительности,
// проверку дат и цены, валюту по умолчанию.
func buildTrial(req models.DummyTrial) (models.Trial, error) {
	serviceName := strings.TrimSpace(req.ServiceName)
	if serviceName == "" {
		return models.Trial{}, &ValidationError{Field: "service_name", Msg: "is required"}
	}
	if strings.ContainsAny(serviceName, "\r\n") {
		return models.Trial{}, &ValidationError{Field: "service_name", Msg: "must be a single line"}
	}

	start, err := day.Parse(req.StartDate)
	if err != nil {
		return models.Trial{}, &ValidationError{Field: "start_date", Msg: err.Error()}
	}

	var end time.Time
	if n, fixed := req.DurationLabel.Days(); fixed {
		end = day.AddDays(start, n)
	} else if req.DurationLabel == models.DurationCustom {
		if req.EndDate == "" {
			return models.Trial{}, &ValidationError{Field: "end_date", Msg: "is required for custom duration"}
		}
		end, err = day.Parse(req.EndDate)
		if err != nil {
			return models.Trial{}, &ValidationError{Field: "end_date", Msg: err.Error()}
		}
	} else {
		return models.Trial{}, &ValidationError{
			Field: "duration_label",
			Msg:   fmt.Sprintf("unknown duration %q", req.DurationLabel),
		}
	}
	if end.Before(start) {
		return models.Trial{}, &ValidationError{Field: "end_date", Msg: "must not be earlier than start_date"}
	}

	trial := models.Trial{
		ServiceName:   serviceName,
		Email:         strings.TrimSpace(req.Email),
		StartDate:     start,
		EndDate:       end,
		DurationLabel: req.DurationLabel,
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return models.Trial{}, &ValidationError{Field: "price", Msg: "must not be negative"}
		}
		price := *req.Price
		trial.Price = &price
		trial.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
		if trial.Currency == "" {
			trial.Currency = models.DefaultCurrency
		}
	}
	return trial, nil
}

// IsValidationError сообщает, является ли err ошибкой входных данных.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
