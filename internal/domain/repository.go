package domain

// RestaurantRepository описывает требования к хранилищу заведений.
type RestaurantRepository interface {
	// Create сохраняет новую карточку, назначает идентификатор и возвращает сохранённую запись.
	Create(r Restaurant) (Restaurant, error)
	// Get возвращает заведение по идентификатору или ErrRestaurantNotFound.
	Get(id string) (Restaurant, error)
	// ListAll возвращает все заведения в порядке вставки (публичный каталог).
	ListAll() ([]Restaurant, error)
	// ListByOwner возвращает заведения вендора в порядке вставки.
	ListByOwner(owner string) ([]Restaurant, error)
	// Update полностью заменяет изменяемые поля карточки; ID, владелец,
	// платёжный суб-аккаунт и created_at не трогаются.
	Update(r Restaurant) error
	// Patch выполняет shallow merge: известные поля (name, status) перезаписываются,
	// остальные ключи сливаются в профиль. Отсутствующие в patch ключи не трогаются.
	Patch(id string, fields map[string]any) error
	// AppendFile добавляет ссылку на загруженный файл в конец списка.
	AppendFile(id, fileRef string) error
	// SetPaymentAccount подключает платёжный суб-аккаунт; повторное подключение
	// возвращает ErrAlreadyConnected.
	SetPaymentAccount(id, account string) error
	// ExistsOwned — индексная проверка "заведение существует и принадлежит owner"
	// одним предикатным запросом.
	ExistsOwned(id, owner string) (bool, error)
	// DeleteAll удаляет все карточки. Используется только для сброса фикстур в тестах.
	DeleteAll() error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ, назначает идентификатор и возвращает сохранённую запись.
	Create(o Order) (Order, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// ListByOwner возвращает заказы клиента в порядке вставки; status == "" значит без фильтра.
	ListByOwner(owner string, status OrderStatus) ([]Order, error)
	// ListByRestaurant возвращает заказы заведения в порядке вставки; status == "" значит без фильтра.
	ListByRestaurant(restaurantID string, status OrderStatus) ([]Order, error)
	// Patch выполняет shallow merge изменяемых полей заказа (сейчас это только status);
	// неизвестные ключи отклоняются с ErrUnknownPatchField.
	Patch(id string, fields map[string]any) error
	// UpdateStatus — compare-and-set статуса: запись меняется только если текущий
	// статус равен from, иначе ErrStatusTransition. Закрывает гонку между чтением
	// снапшота и записью при конкурентных patch одного заказа.
	UpdateStatus(id string, from, to OrderStatus) error
}

// CounterRepository — последовательности номеров заказов, по одному счётчику на заведение.
type CounterRepository interface {
	// Next атомарно увеличивает счётчик ключа и возвращает новое значение.
	// Свежий ключ инициализируется нулём в той же атомарной операции, первый
	// вызов возвращает 1. Никакие два конкурентных вызова не получают одно значение.
	Next(key string) (int64, error)
	// Init явно заводит счётчик со значением 0. Идемпотентен: существующий
	// счётчик не сбрасывается.
	Init(key string) error
}
