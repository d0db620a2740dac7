// Package scheduler содержит планировщик уведомлений о заканчивающихся пробных подписках.
//
// Единица работы планировщика - проход: оценка всех подписок, отсев уже
// уведомленных сегодня, доставка по всем каналам и сохранение журнала.
// Проходы выполняются строго по одному.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/trial-tracker/internal/channel"
	"github.com/magabrotheeeer/trial-tracker/internal/expiry"
	"github.com/magabrotheeeer/trial-tracker/internal/ledger"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/day"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/metrics"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Значения по умолчанию.
const (
	DefaultInterval        = time.Hour
	DefaultDeliveryTimeout = 15 * time.Second
	DefaultWorkers         = 4
)

// TrialRepository источник текущего набора подписок.
type TrialRepository interface {
	ListTrials(ctx context.Context) ([]models.Trial, error)
}

// Options настройки планировщика. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Interval        time.Duration
	DeliveryTimeout time.Duration
	Workers         int
	Now             func() time.Time
	Metrics         *metrics.Metrics
}

// Report итог одного прохода.
type Report struct {
	Today       string
	Trials      int
	AlertWorthy int
	Suppressed  int
	Attempted   int
	Failures    int
}

// SchedulerService планировщик уведомлений. В процессе должен быть один экземпляр.
type SchedulerService struct {
	repo     TrialRepository
	ledger   *ledger.Ledger
	channels []channel.Channel
	opts     Options
	log      *slog.Logger

	passMu sync.Mutex

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	rearm  chan struct{}
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo TrialRepository, l *ledger.Ledger, channels []channel.Channel, opts Options, log *slog.Logger) *SchedulerService {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SchedulerService{
		repo:     repo,
		ledger:   l,
		channels: channels,
		opts:     opts,
		log:      log,
	}
}

// Start запускает проход сразу и далее с интервалом Options.Interval.
// Предыдущий запуск, если был, сначала останавливается.
func (s *SchedulerService) Start(ctx context.Context) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	rearm := make(chan struct{}, 1)
	s.cancel, s.done, s.rearm = cancel, done, rearm

	go s.loop(loopCtx, rearm, done)
	s.log.Info("notification scheduler started", slog.Duration("interval", s.opts.Interval))
}

// Stop останавливает таймер и дожидается завершения текущего прохода.
func (s *SchedulerService) Stop() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.stopLocked()
}

func (s *SchedulerService) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done, s.rearm = nil, nil, nil
	s.log.Info("notification scheduler stopped")
}

// Rearm сообщает об изменении набора подписок: проход запускается без ожидания,
// отсчет интервала начинается заново. Повторные вызовы до начала прохода схлопываются.
func (s *SchedulerService) Rearm() {
	s.lifeMu.Lock()
	rearm := s.rearm
	s.lifeMu.Unlock()
	if rearm == nil {
		return
	}
	select {
	case rearm <- struct{}{}:
	default:
	}
}

func (s *SchedulerService) loop(ctx context.Context, rearm <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// проход не прерывается остановкой, его ограничивают таймауты доставки
	passCtx := context.WithoutCancel(ctx)

	s.RunOnce(passCtx)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(passCtx)
		case <-rearm:
			ticker.Reset(s.opts.Interval)
			s.RunOnce(passCtx)
		}
	}
}

type dueTrial struct {
	trial    models.Trial
	daysLeft int
}

// RunOnce выполняет один проход. Проходы сериализуются: параллельный вызов
// ждет завершения текущего, включая сохранение журнала.
func (s *SchedulerService) RunOnce(ctx context.Context) Report {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	started := time.Now()
	s.prepareChannels(ctx)

	now := s.opts.Now()
	report := Report{Today: day.Format(now)}
	log := s.log.With(slog.String("today", report.Today))

	s.ledger.Begin(ctx)

	trials, err := s.repo.ListTrials(ctx)
	if err != nil {
		log.Error("failed to list trials, treating as empty", sl.Err(err))
		trials = nil
	}
	report.Trials = len(trials)

	var due []dueTrial
	for _, trial := range trials {
		ev := expiry.Evaluate(trial, now)
		if !ev.AlertWorthy {
			continue
		}
		report.AlertWorthy++
		if s.ledger.WasAlertedToday(trial.ID, report.Today) {
			report.Suppressed++
			continue
		}
		due = append(due, dueTrial{trial: trial, daysLeft: ev.DaysLeft})
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for _, d := range due {
		g.Go(func() error {
			results := s.deliver(ctx, d.trial, d.daysLeft)
			s.ledger.RecordAlert(d.trial.ID, report.Today)

			failures := 0
			for _, res := range results {
				if res.Err != nil {
					failures++
				}
			}
			mu.Lock()
			report.Attempted++
			report.Failures += failures
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := s.ledger.Flush(ctx); err != nil {
		log.Warn("failed to persist notification history", sl.Err(err))
	}

	s.opts.Metrics.ObservePass(time.Since(started), report.Suppressed)
	log.Info("notification pass finished",
		slog.Int("trials", report.Trials),
		slog.Int("alert_worthy", report.AlertWorthy),
		slog.Int("suppressed", report.Suppressed),
		slog.Int("attempted", report.Attempted),
		slog.Int("failures", report.Failures),
	)
	return report
}

func (s *SchedulerService) prepareChannels(ctx context.Context) {
	for _, ch := range s.channels {
		p, ok := ch.(channel.Preparer)
		if !ok {
			continue
		}
		func() {
			ctx, cancel := context.WithTimeout(ctx, s.opts.DeliveryTimeout)
			defer cancel()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("channel prepare panicked", slog.String("channel", ch.Name()), slog.Any("panic", r))
				}
			}()
			p.Prepare(ctx)
		}()
	}
}

// deliver вызывает все каналы параллельно, каждый со своим таймаутом,
// и ждет их завершения.
func (s *SchedulerService) deliver(ctx context.Context, trial models.Trial, daysLeft int) []models.DeliveryResult {
	results := make([]models.DeliveryResult, len(s.channels))

	var wg sync.WaitGroup
	for i, ch := range s.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.deliverOne(ctx, ch, trial, daysLeft)
		}()
	}
	wg.Wait()

	for _, res := range results {
		s.opts.Metrics.ObserveDelivery(res)
		switch {
		case res.Err != nil:
			s.log.Warn("alert delivery failed",
				sl.TrialID(trial.ID), slog.String("channel", res.Channel), sl.Err(res.Err))
		case res.Delivered:
			s.log.Info("alert delivered",
				sl.TrialID(trial.ID), slog.String("channel", res.Channel), slog.Int("days_left", daysLeft))
		default:
			s.log.Debug("channel skipped", sl.TrialID(trial.ID), slog.String("channel", res.Channel))
		}
	}
	return results
}

func (s *SchedulerService) deliverOne(ctx context.Context, ch channel.Channel, trial models.Trial, daysLeft int) (res models.DeliveryResult) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.DeliveryTimeout)
	defer cancel()

	// канал, игнорирующий ctx, не должен задерживать проход дольше таймаута
	resCh := make(chan models.DeliveryResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- channel.Failed(ch.Name(), fmt.Errorf("channel panic: %v", r))
			}
		}()
		resCh <- ch.Deliver(ctx, trial, daysLeft)
	}()

	select {
	case res = <-resCh:
	case <-ctx.Done():
		res = channel.Failed(ch.Name(), fmt.Errorf("delivery timed out: %w", ctx.Err()))
	}
	if res.Channel == "" {
		res.Channel = ch.Name()
	}
	return res
}

// HandleTrialsChanged обработчик события trials.changed из брокера: перевзводит планировщик.
// Непонятное сообщение тоже считается изменением, чтобы не оставлять набор непроверенным.
func (s *SchedulerService) HandleTrialsChanged(body []byte) error {
	var msg models.TrialsChanged
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Warn("malformed trials.changed message", sl.Err(err))
	} else {
		s.log.Debug("trials changed", sl.TrialID(msg.TrialID), slog.String("action", msg.Action))
	}
	s.Rearm()
	return nil
}
