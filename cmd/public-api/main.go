package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/service/access"
	"github.com/vladislavdragonenkov/locoloco/internal/service/catalog"
	"github.com/vladislavdragonenkov/locoloco/internal/service/payment"
	"github.com/vladislavdragonenkov/locoloco/internal/service/rest"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/memory"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/postgres"
)

// Переменные окружения публичного каталога.
const (
	envPublicAddr    = "LOCO_PUBLIC_ADDR"
	envStorageDriver = "LOCO_STORAGE_DRIVER"
	envPostgresDSN   = "LOCO_POSTGRES_DSN"

	defaultPublicAddr = ":8081"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// config — конфигурация публичного каталога.
type config struct {
	Addr          string
	StorageDriver string
	PostgresDSN   string
}

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv читает конфигурацию из окружения; пустые значения
// остаются значениями по умолчанию.
func readConfigFromEnv(lookup envLookup) config {
	cfg := config{Addr: defaultPublicAddr}

	if v, ok := lookup(envPublicAddr); ok && strings.TrimSpace(v) != "" {
		cfg.Addr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(envPostgresDSN); ok {
		cfg.PostgresDSN = strings.TrimSpace(v)
	}

	return cfg
}

// openRestaurants открывает репозиторий заведений по выбранному драйверу.
// Публичному каталогу нужен только read-доступ к заведениям.
func openRestaurants(ctx context.Context, cfg config, logger *log.Entry) (domain.RestaurantRepository, func(), error) {
	if cfg.StorageDriver == "" || cfg.StorageDriver == "memory" {
		logger.Info("using in-memory storage, catalog will be empty")
		return memory.NewRestaurantRepository(), func() {}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewRestaurantRepository(store), func() { _ = store.Close() }, nil
}

// newCatalogService собирает read-only сервис каталога поверх репозитория.
func newCatalogService(restaurants domain.RestaurantRepository, logger *log.Entry) *catalog.Service {
	guard := access.NewGuard(restaurants, memory.NewOrderRepository(), logger.WithField("component", "access-guard"))
	return catalog.NewService(restaurants, payment.NewMockService(), guard)
}

func main() {
	setupLogger()
	logger := log.WithField("component", "public-api")

	cfg := readConfigFromEnv(os.LookupEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restaurants, closeStorage, err := openRestaurants(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("не удалось открыть хранилище")
	}
	defer closeStorage()

	handler := rest.NewPublicHandler(newCatalogService(restaurants, logger), logger)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		logger.Infof("публичный каталог слушает %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("получен сигнал остановки")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown with error")
	}

	logger.Info("public-api остановлен")
}
