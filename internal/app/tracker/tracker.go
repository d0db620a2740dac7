package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/trial-tracker/internal/cache"
	"github.com/magabrotheeeer/trial-tracker/internal/channel/email"
	"github.com/magabrotheeeer/trial-tracker/internal/config"
	"github.com/magabrotheeeer/trial-tracker/internal/emailprovider"
	"github.com/magabrotheeeer/trial-tracker/internal/http/handlers/health"
	"github.com/magabrotheeeer/trial-tracker/internal/http/ws"
	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/trial-tracker/internal/migrations"
	"github.com/magabrotheeeer/trial-tracker/internal/rabbitmq"
	settingsservice "github.com/magabrotheeeer/trial-tracker/internal/services/settings"
	trialservice "github.com/magabrotheeeer/trial-tracker/internal/services/trial"
	"github.com/magabrotheeeer/trial-tracker/internal/storage/repository"
)

// App HTTP API трекера.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
	hub    *ws.Hub
}

// New создает приложение: подключает хранилища и брокер, применяет миграции, собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	// обе стороны объявляют все очереди, чтобы порядок запуска процессов был не важен
	queues := append(rabbitmq.GatewayQueues(), rabbitmq.SchedulerQueues()...)
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}
	publisher := rabbitmq.NewPublisher(ch)

	provider, err := emailprovider.FromConfig(cfg, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, err
	}

	trialService := trialservice.NewTrialService(db, cacheRedis, publisher, logger)
	settingsService := settingsservice.NewSettingsService(db, email.New(db, provider, logger), logger)
	hub := ws.NewHub(logger, settingsService)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Trials:   trialService,
		Settings: settingsService,
		Gateway:  hub,
		Checks: map[string]health.Checker{
			"postgres": func(ctx context.Context) error { return db.DB.PingContext(ctx) },
			"redis":    func(ctx context.Context) error { return cacheRedis.Db.Ping(ctx).Err() },
			"rabbitmq": func(context.Context) error {
				if conn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			},
		},
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
		hub:    hub,
	}, nil
}

// Run запускает потребителей уведомлений и HTTP-сервер до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueuePopup, a.hub.Handler(ws.EventPopup), a.logger); err != nil {
		a.logger.Error("failed to start popup consumer", sl.Err(err))
		return err
	}
	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.QueuePermission, a.hub.Handler(ws.EventPermissionRequest), a.logger); err != nil {
		a.logger.Error("failed to start permission consumer", sl.Err(err))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	a.hub.Close()
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
