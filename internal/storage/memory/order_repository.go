package memory

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// orderRecord хранит заказ и порядковый номер вставки для стабильной сортировки.
type orderRecord struct {
	order domain.Order
	seq   int64
}

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]*orderRecord
	nextSeq int64
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]*orderRecord),
	}
}

// Create назначает идентификатор и сохраняет копию заказа.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = uuid.NewString()
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	order.Basket = cloneBasket(order.Basket)

	r.nextSeq++
	r.items[order.ID] = &orderRecord{order: order, seq: r.nextSeq}
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(record.order), nil
}

// ListByOwner возвращает заказы клиента в порядке вставки с опциональным фильтром статуса.
func (r *orderRepositoryInMemory) ListByOwner(owner string, status domain.OrderStatus) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(rec *orderRecord) bool {
		return rec.order.OwnerEmail == owner && matchStatus(rec.order, status)
	}), nil
}

// ListByRestaurant возвращает заказы заведения в порядке вставки с опциональным фильтром статуса.
func (r *orderRepositoryInMemory) ListByRestaurant(restaurantID string, status domain.OrderStatus) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(rec *orderRecord) bool {
		return rec.order.RestaurantID == restaurantID && matchStatus(rec.order, status)
	}), nil
}

func (r *orderRepositoryInMemory) listLocked(keep func(*orderRecord) bool) []domain.Order {
	records := make([]*orderRecord, 0, len(r.items))
	for _, rec := range r.items {
		if keep(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	result := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		result = append(result, cloneOrder(rec.order))
	}
	return result
}

// Patch обновляет изменяемые поля заказа; неизвестные ключи отклоняются.
func (r *orderRepositoryInMemory) Patch(id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}

	for key, value := range fields {
		switch key {
		case "status":
			status, ok := value.(string)
			if !ok {
				return domain.ErrStatusUnknown
			}
			record.order.Status = domain.OrderStatus(status)
		default:
			return domain.ErrUnknownPatchField
		}
	}

	record.order.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateStatus меняет статус, только если текущий статус равен from.
func (r *orderRepositoryInMemory) UpdateStatus(id string, from, to domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if record.order.Status != from {
		return domain.ErrStatusTransition
	}

	record.order.Status = to
	record.order.UpdatedAt = time.Now().UTC()
	return nil
}

func matchStatus(order domain.Order, status domain.OrderStatus) bool {
	return status == "" || order.Status == status
}

func cloneOrder(order domain.Order) domain.Order {
	order.Basket = cloneBasket(order.Basket)
	return order
}

func cloneBasket(basket []json.RawMessage) []json.RawMessage {
	if basket == nil {
		return nil
	}
	clone := make([]json.RawMessage, len(basket))
	for i, item := range basket {
		clone[i] = append(json.RawMessage(nil), item...)
	}
	return clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
