package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// restaurantRecord хранит карточку и порядковый номер вставки для стабильной сортировки.
type restaurantRecord struct {
	restaurant domain.Restaurant
	seq        int64
}

// restaurantRepositoryInMemory — простая in-memory реализация RestaurantRepository.
type restaurantRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]*restaurantRecord
	nextSeq int64
}

// NewRestaurantRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewRestaurantRepository() domain.RestaurantRepository {
	return &restaurantRepositoryInMemory{
		items: make(map[string]*restaurantRecord),
	}
}

// Create назначает идентификатор и сохраняет копию карточки.
func (r *restaurantRepositoryInMemory) Create(restaurant domain.Restaurant) (domain.Restaurant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	restaurant.ID = uuid.NewString()
	now := time.Now().UTC()
	if restaurant.CreatedAt.IsZero() {
		restaurant.CreatedAt = now
	}
	restaurant.UpdatedAt = restaurant.CreatedAt
	// Сохраняем копии слайсов и профиля, чтобы избежать мутаций извне.
	restaurant.Profile = restaurant.CloneProfile()
	restaurant.Files = append([]string(nil), restaurant.Files...)

	r.nextSeq++
	r.items[restaurant.ID] = &restaurantRecord{restaurant: restaurant, seq: r.nextSeq}
	return restaurant, nil
}

// Get возвращает заведение или ErrRestaurantNotFound.
func (r *restaurantRepositoryInMemory) Get(id string) (domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[id]
	if !ok {
		return domain.Restaurant{}, domain.ErrRestaurantNotFound
	}
	return cloneRestaurant(record.restaurant), nil
}

// ListAll возвращает все заведения в порядке вставки.
func (r *restaurantRepositoryInMemory) ListAll() ([]domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(*restaurantRecord) bool { return true }), nil
}

// ListByOwner возвращает заведения вендора в порядке вставки.
func (r *restaurantRepositoryInMemory) ListByOwner(owner string) ([]domain.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked(func(rec *restaurantRecord) bool {
		return rec.restaurant.OwnerEmail == owner
	}), nil
}

func (r *restaurantRepositoryInMemory) listLocked(keep func(*restaurantRecord) bool) []domain.Restaurant {
	records := make([]*restaurantRecord, 0, len(r.items))
	for _, rec := range r.items {
		if keep(rec) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })

	result := make([]domain.Restaurant, 0, len(records))
	for _, rec := range records {
		result = append(result, cloneRestaurant(rec.restaurant))
	}
	return result
}

// Update заменяет изменяемые поля карточки, сохраняя ID, владельца и платёжный суб-аккаунт.
func (r *restaurantRepositoryInMemory) Update(restaurant domain.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[restaurant.ID]
	if !ok {
		return domain.ErrRestaurantNotFound
	}

	current := record.restaurant
	current.Name = restaurant.Name
	current.Status = restaurant.Status
	current.Profile = restaurant.CloneProfile()
	current.Files = append([]string(nil), restaurant.Files...)
	current.UpdatedAt = time.Now().UTC()
	record.restaurant = current
	return nil
}

// Patch выполняет shallow merge: name/status перезаписываются, остальное уходит в профиль.
func (r *restaurantRepositoryInMemory) Patch(id string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return domain.ErrRestaurantNotFound
	}

	current := record.restaurant
	profile := current.CloneProfile()
	if profile == nil {
		profile = make(map[string]any)
	}

	for key, value := range fields {
		switch key {
		case "name":
			if name, ok := value.(string); ok {
				current.Name = name
			}
		case "status":
			if status, ok := value.(string); ok {
				current.Status = status
			}
		default:
			profile[key] = value
		}
	}

	current.Profile = profile
	current.UpdatedAt = time.Now().UTC()
	record.restaurant = current
	return nil
}

// AppendFile добавляет ссылку на файл в конец списка.
func (r *restaurantRepositoryInMemory) AppendFile(id, fileRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return domain.ErrRestaurantNotFound
	}
	record.restaurant.Files = append(record.restaurant.Files, fileRef)
	record.restaurant.UpdatedAt = time.Now().UTC()
	return nil
}

// SetPaymentAccount подключает суб-аккаунт один раз; повторный вызов — ErrAlreadyConnected.
func (r *restaurantRepositoryInMemory) SetPaymentAccount(id, account string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.items[id]
	if !ok {
		return domain.ErrRestaurantNotFound
	}
	if record.restaurant.PaymentAccount != "" {
		return domain.ErrAlreadyConnected
	}
	record.restaurant.PaymentAccount = account
	record.restaurant.UpdatedAt = time.Now().UTC()
	return nil
}

// ExistsOwned — точечная проверка владения без выборки всех карточек.
func (r *restaurantRepositoryInMemory) ExistsOwned(id, owner string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.items[id]
	if !ok {
		return false, nil
	}
	return record.restaurant.OwnerEmail == owner, nil
}

// DeleteAll очищает хранилище (сброс фикстур в тестах).
func (r *restaurantRepositoryInMemory) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[string]*restaurantRecord)
	r.nextSeq = 0
	return nil
}

func cloneRestaurant(restaurant domain.Restaurant) domain.Restaurant {
	restaurant.Profile = restaurant.CloneProfile()
	restaurant.Files = append([]string(nil), restaurant.Files...)
	return restaurant
}

var _ domain.RestaurantRepository = (*restaurantRepositoryInMemory)(nil)
