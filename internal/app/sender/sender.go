// Package sender собирает воркер уведомлений: потребитель RabbitMQ и SMTP-транспорт.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/flow-builder/internal/config"
	"github.com/magabrotheeeer/flow-builder/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/lib/smtp"
	"github.com/magabrotheeeer/flow-builder/internal/metrics"
	senderservice "github.com/magabrotheeeer/flow-builder/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	metricsServer *http.Server
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "sender.New"

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	router := chi.NewRouter()
	router.Handle("/metrics", metrics.Handler(reg))

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(transport, collector, cfg.BaseURL, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		metricsServer: &http.Server{
			Addr:        cfg.HTTPServer.AddressHTTP,
			Handler:     router,
			ReadTimeout: cfg.HTTPServer.TimeoutHTTP,
			IdleTimeout: cfg.HTTPServer.IdleTimeout,
		},
		logger: logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.BillingQueue, a.senderService.SendBillingNotification)
	if err != nil {
		a.logger.Error("failed to start billing consumer", sl.Err(err))
		return err
	}
	a.logger.Info("consuming queue", slog.String("queue", rabbitmq.BillingQueue))

	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", sl.Err(err))
		}
	}()

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.metricsServer.Shutdown(context.Background()); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}

	return nil
}
