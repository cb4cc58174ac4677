package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/memory"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/postgres"
)

// runtimeDependencies — хранилища, собранные по выбранному драйверу.
type runtimeDependencies struct {
	restaurants domain.RestaurantRepository
	orders      domain.OrderRepository
	counters    domain.CounterRepository
	outboxRepo  domain.OutboxRepository
	blobs       domain.BlobStorage
	// store не nil только для postgres; нужен для health-проверки и Close.
	store *postgres.Store
}

func (d *runtimeDependencies) Close() {
	if d.store != nil {
		_ = d.store.Close()
	}
}

// initRuntimeDependencies собирает репозитории по cfg.StorageDriver.
// Пустой драйвер трактуется как memory.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		return &runtimeDependencies{
			restaurants: memory.NewRestaurantRepository(),
			orders:      memory.NewOrderRepository(),
			counters:    memory.NewCounterRepository(),
			outboxRepo:  memory.NewOutboxRepository(),
			blobs:       memory.NewBlobStore(),
		}, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage driver requires a DSN")
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		return &runtimeDependencies{
			restaurants: postgres.NewRestaurantRepository(store),
			orders:      postgres.NewOrderRepository(store),
			counters:    postgres.NewCounterRepository(store),
			outboxRepo:  postgres.NewOutboxRepository(store),
			// Файлы заведений живут в памяти независимо от драйвера,
			// в репозитории попадает только opaque-ссылка.
			blobs: memory.NewBlobStore(),
			store: store,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}
