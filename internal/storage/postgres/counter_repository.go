package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

const opTimeout = 5 * time.Second

type counterRepository struct {
	db *sql.DB
}

// NewCounterRepository создаёт PostgreSQL-реализацию CounterRepository.
func NewCounterRepository(store *Store) domain.CounterRepository {
	return &counterRepository{db: store.DB()}
}

// Next атомарно выделяет следующий номер для ключа. Upsert с инкрементом
// в одном стейтменте гарантирует плотную последовательность без гонок:
// конкурентные вызовы сериализуются блокировкой строки счётчика.
func (r *counterRepository) Next(key string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO order_counters (restaurant_id, current_value)
		VALUES ($1, 1)
		ON CONFLICT (restaurant_id)
		DO UPDATE SET current_value = order_counters.current_value + 1
		RETURNING current_value
	`, key).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("allocate counter value: %w", err)
	}

	return value, nil
}

// Init заводит строку счётчика с нулём, если её ещё нет.
// Повторный вызов не трогает уже выданные значения.
func (r *counterRepository) Init(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_counters (restaurant_id, current_value)
		VALUES ($1, 0)
		ON CONFLICT (restaurant_id) DO NOTHING
	`, key)
	if err != nil {
		return fmt.Errorf("init counter: %w", err)
	}

	return nil
}

var _ domain.CounterRepository = (*counterRepository)(nil)
