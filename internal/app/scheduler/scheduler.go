// Package scheduler собирает процесс планировщика уведомлений о заканчивающихся пробных подписках.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/trial-tracker/internal/cache"
	"github.com/magabrotheeeer/trial-tracker/internal/channel"
	"github.com/magabrotheeeer/trial-tracker/internal/channel/email"
	"github.com/magabrotheeeer/trial-tracker/internal/channel/popup"
	"github.com/magabrotheeeer/trial-tracker/internal/config"
	"github.com/magabrotheeeer/trial-tracker/internal/emailprovider"
	"github.com/magabrotheeeer/trial-tracker/internal/ledger"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/metrics"
	"github.com/magabrotheeeer/trial-tracker/internal/rabbitmq"
	schedulerservice "github.com/magabrotheeeer/trial-tracker/internal/services/scheduler"
	"github.com/magabrotheeeer/trial-tracker/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	metricsServer    *http.Server
	db               *repository.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

// waitForDB ждет, пока API применит миграции.
func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(ctx, db)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := append(rabbitmq.SchedulerQueues(), rabbitmq.GatewayQueues()...)
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	provider, err := emailprovider.FromConfig(cfg, logger)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	publisher := rabbitmq.NewPublisher(ch)
	channels := []channel.Channel{
		popup.New(
			popup.NewSettingsPermission(db, publisher),
			popup.NewDedup(popup.NewQueueDisplay(publisher, cfg.PopupIcon), cfg.PopupDedupTTL),
			logger,
		),
		email.New(db, provider, logger),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	schedulerService := schedulerservice.NewSchedulerService(
		db,
		ledger.New(ledger.NewRedisStore(cacheRedis.Db, ledger.DefaultKey), logger),
		channels,
		schedulerservice.Options{
			Interval:        cfg.Interval,
			DeliveryTimeout: cfg.DeliveryTimeout,
			Workers:         cfg.Workers,
			Metrics:         metrics.New(reg),
		},
		logger,
	)

	return &App{
		schedulerService: schedulerService,
		metricsServer: &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		},
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик, потребителя trials.changed и сервер метрик до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueueTrialsChanged, a.schedulerService.HandleTrialsChanged, a.logger)
	if err != nil {
		a.logger.Error("failed to start trials.changed consumer", sl.Err(err))
		return err
	}

	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metricsServer.Addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", sl.Err(err))
		}
	}()

	a.schedulerService.Start(ctx)

	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")
	a.schedulerService.Stop()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.metricsServer.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}

	closeResources(a.ch, a.conn, a.logger)
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
