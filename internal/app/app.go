package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/locoloco/internal/health"
	"github.com/vladislavdragonenkov/locoloco/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/locoloco/internal/metrics"
	"github.com/vladislavdragonenkov/locoloco/internal/service/access"
	"github.com/vladislavdragonenkov/locoloco/internal/service/catalog"
	"github.com/vladislavdragonenkov/locoloco/internal/service/checkout"
	"github.com/vladislavdragonenkov/locoloco/internal/service/notify"
	"github.com/vladislavdragonenkov/locoloco/internal/service/outbox"
	"github.com/vladislavdragonenkov/locoloco/internal/service/payment"
	"github.com/vladislavdragonenkov/locoloco/internal/service/rest"
	"github.com/vladislavdragonenkov/locoloco/internal/version"
)

// Run собирает зависимости и держит HTTP-серверы до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Мок платёжного провайдера для локальной разработки и демо;
	// в бою здесь подключается клиент реального провайдера.
	paymentSvc := payment.NewMockService()
	notifier := notify.NewLogNotifier(logger.WithField("component", "notifier"))
	guard := access.NewGuard(deps.restaurants, deps.orders, logger.WithField("component", "access-guard"))
	checkoutMetrics := metrics.NewCheckoutMetrics()

	catalogSvc := catalog.NewService(deps.restaurants, paymentSvc, guard,
		catalog.WithLogger(logger.WithField("component", "catalog")),
		catalog.WithNotifier(notifier),
		catalog.WithBlobStorage(deps.blobs),
		catalog.WithOutbox(deps.outboxRepo),
	)
	checkoutSvc := checkout.NewService(deps.restaurants, deps.orders, deps.counters, paymentSvc, guard,
		checkout.WithLogger(logger.WithField("component", "checkout")),
		checkout.WithMetrics(checkoutMetrics),
		checkout.WithOutbox(deps.outboxRepo),
	)

	// Kafka опционален: без брокеров события остаются в outbox.
	kafkaProducer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger)
	if kafkaErr != nil {
		logger.WithError(kafkaErr).Warn("continuing without kafka")
	}
	defer closeKafka(kafkaProducer, logger)

	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents, kafka.TopicRestaurantEvents)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(deps.outboxRepo, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		go worker.Run(ctx)
	}

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.store != nil {
		store := deps.store
		healthHandler.Register("postgres", func(ctx context.Context) error {
			return store.Ping(ctx)
		})
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	adminHandler := rest.NewAdminHandler(catalogSvc, checkoutSvc, logger.WithField("component", "admin-api"))
	adminSrv := startHTTPServer(ctx, cfg.AdminAddr, adminHandler, logger.WithField("server", "admin"))

	var publicSrv *http.Server
	if cfg.PublicAddr != "" {
		publicHandler := rest.NewPublicHandler(catalogSvc, logger.WithField("component", "public-api"))
		publicSrv = startHTTPServer(ctx, cfg.PublicAddr, publicHandler, logger.WithField("server", "public"))
	}

	<-ctx.Done()
	logger.Info("получен сигнал остановки, останавливаем HTTP-серверы")

	shutdownHTTP(adminSrv, logger)
	shutdownHTTP(publicSrv, logger)
	shutdownHTTP(metricsSrv, logger)

	return ctx.Err()
}

// startHTTPServer запускает HTTP-сервер и останавливает его при отмене ctx.
func startHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *log.Entry) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		logger.Infof("HTTP-сервер слушает %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
