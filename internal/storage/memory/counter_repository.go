package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// counterRepositoryInMemory — in-memory реализация CounterRepository.
// Инкремент выполняется под мьютексом, что даёт ту же атомарность
// read-modify-write, что и upsert-инкремент в PostgreSQL.
type counterRepositoryInMemory struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounterRepository возвращает in-memory счётчики для локальной разработки и тестов.
func NewCounterRepository() domain.CounterRepository {
	return &counterRepositoryInMemory{
		values: make(map[string]int64),
	}
}

// Next атомарно увеличивает счётчик ключа и возвращает новое значение.
// Свежий ключ стартует с нуля, первый вызов возвращает 1.
func (r *counterRepositoryInMemory) Next(key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key]++
	return r.values[key], nil
}

// Init явно заводит счётчик со значением 0; существующий счётчик не сбрасывается.
func (r *counterRepositoryInMemory) Init(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.values[key]; !exists {
		r.values[key] = 0
	}
	return nil
}

var _ domain.CounterRepository = (*counterRepositoryInMemory)(nil)
