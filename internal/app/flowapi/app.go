package flowapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/flow-builder/internal/cache"
	"github.com/magabrotheeeer/flow-builder/internal/config"
	"github.com/magabrotheeeer/flow-builder/internal/http/handlers/health"
	"github.com/magabrotheeeer/flow-builder/internal/http/middlewarectx"
	"github.com/magabrotheeeer/flow-builder/internal/lib/jwt"
	"github.com/magabrotheeeer/flow-builder/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/metrics"
	"github.com/magabrotheeeer/flow-builder/internal/migrations"
	"github.com/magabrotheeeer/flow-builder/internal/paymentprovider"
	billingservice "github.com/magabrotheeeer/flow-builder/internal/services/billing"
	catalogservice "github.com/magabrotheeeer/flow-builder/internal/services/catalog"
	flowservice "github.com/magabrotheeeer/flow-builder/internal/services/flow"
	shareservice "github.com/magabrotheeeer/flow-builder/internal/services/share"
	"github.com/magabrotheeeer/flow-builder/internal/storage/repository"
)

type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	cache    *cache.Cache
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
	cfg      *config.Config
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "flowapi.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = repository.CheckDatabaseReady(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	catalogService := catalogservice.New(db, cacheRedis, cfg.Redis.PoseTTL, logger)
	flowService := flowservice.New(db, catalogService, collector, logger)
	shareService := shareservice.New(db, flowService, collector, cfg.BaseURL, logger)
	billingService := billingservice.New(
		db,
		paymentprovider.NewClient(cfg.Stripe, cfg.BaseURL, nil),
		rabbitmq.NewNotifier(ch),
		cacheRedis,
		collector,
		cfg.Redis.EventTTL,
		logger,
	)

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:             logger,
		Tokens:          jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL),
		Flows:           flowService,
		Shares:          shareService,
		Catalog:         catalogService,
		Billing:         billingService,
		Metrics:         collector,
		Gatherer:        reg,
		PublicLimiter:   middlewarectx.NewClientRateLimiter(cfg.HTTPServer.PublicRateLimit, cfg.HTTPServer.PublicRateBurst),
		Health:          map[string]health.Pinger{"postgres": db, "redis": cacheRedis},
		MaxWebhookBytes: cfg.HTTPServer.MaxWebhookBodyKB << 10,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		cache:    cacheRedis,
		amqpConn: conn,
		amqpCh:   ch,
		cfg:      cfg,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
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
		timeoutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.amqpCh.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.amqpConn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
