package catalog

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/locoloco/internal/service/access"
)

// Options задаёт необязательные зависимости каталога.
type Options struct {
	Logger   *log.Entry
	Notifier domain.Notifier
	Blobs    domain.BlobStorage
	Outbox   domain.OutboxRepository
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger каталога.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithNotifier включает приветственные письма при регистрации заведения.
func WithNotifier(notifier domain.Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

// WithBlobStorage включает загрузку файлов заведений.
func WithBlobStorage(blobs domain.BlobStorage) Option {
	return func(opts *Options) {
		opts.Blobs = blobs
	}
}

// WithOutbox включает публикацию событий заведений через transactional outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = repo
	}
}

// Service управляет каталогом заведений: регистрация, правки карточки,
// подключение платёжного суб-аккаунта и загрузка файлов.
type Service struct {
	restaurants domain.RestaurantRepository
	payments    domain.PaymentService
	guard       *access.Guard
	notifier    domain.Notifier
	blobs       domain.BlobStorage
	outbox      domain.OutboxRepository
	logger      *log.Entry
}

// NewService создаёт сервис каталога.
func NewService(
	restaurants domain.RestaurantRepository,
	payments domain.PaymentService,
	guard *access.Guard,
	options ...Option,
) *Service {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}

	return &Service{
		restaurants: restaurants,
		payments:    payments,
		guard:       guard,
		notifier:    opts.Notifier,
		blobs:       opts.Blobs,
		outbox:      opts.Outbox,
		logger:      logger,
	}
}

// CreateRestaurant регистрирует заведение за identity и отправляет
// приветственное письмо. Сбой письма не откатывает регистрацию.
func (s *Service) CreateRestaurant(identity string, restaurant domain.Restaurant) (domain.Restaurant, error) {
	if identity == "" {
		return domain.Restaurant{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.ErrOwnerRequired)
	}
	if restaurant.Name == "" {
		return domain.Restaurant{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.ErrNameRequired)
	}

	restaurant.OwnerEmail = identity
	restaurant.PaymentAccount = ""

	created, err := s.restaurants.Create(restaurant)
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("persist restaurant: %w", err)
	}

	if s.notifier != nil {
		if err := s.notifier.SendWelcome(created.OwnerEmail); err != nil {
			s.logger.WithError(err).WithField("owner", created.OwnerEmail).Warn("failed to send welcome email")
		}
	}

	s.enqueueRestaurantEvent(kafka.EventTypeRestaurantCreated, created)

	s.logger.WithFields(log.Fields{
		"restaurant_id": created.ID,
		"owner":         created.OwnerEmail,
	}).Info("restaurant registered")

	return created, nil
}

// PatchRestaurant выполняет частичное изменение карточки от имени владельца.
func (s *Service) PatchRestaurant(identity, restaurantID string, fields map[string]any) error {
	if err := s.guard.OwnsRestaurant(identity, restaurantID); err != nil {
		return err
	}
	return s.restaurants.Patch(restaurantID, fields)
}

// UpdateRestaurant полностью заменяет изменяемые поля карточки.
func (s *Service) UpdateRestaurant(identity string, restaurant domain.Restaurant) error {
	if restaurant.Name == "" {
		return fmt.Errorf("%w: %s", domain.ErrValidation, domain.ErrNameRequired)
	}
	if err := s.guard.OwnsRestaurant(identity, restaurant.ID); err != nil {
		return err
	}
	return s.restaurants.Update(restaurant)
}

// ConnectRestaurant обменивает одноразовый auth-код на платёжный суб-аккаунт
// и привязывает его к заведению. Повторное подключение отклоняется до
// обращения к провайдеру: обмен кода необратим и не должен создавать
// суб-аккаунт, который некуда привязать.
func (s *Service) ConnectRestaurant(identity, restaurantID, code string) (string, error) {
	if err := s.guard.OwnsRestaurant(identity, restaurantID); err != nil {
		return "", err
	}

	restaurant, err := s.restaurants.Get(restaurantID)
	if err != nil {
		return "", err
	}
	if restaurant.Connected() {
		return "", domain.ErrAlreadyConnected
	}

	account, err := s.payments.ConnectAccount(code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	if err := s.restaurants.SetPaymentAccount(restaurantID, account); err != nil {
		return "", err
	}

	restaurant.PaymentAccount = account
	s.enqueueRestaurantEvent(kafka.EventTypeRestaurantConnected, restaurant)

	s.logger.WithFields(log.Fields{
		"restaurant_id": restaurantID,
		"account":       account,
	}).Info("payment account connected")

	return account, nil
}

// ListRestaurantsForOwner возвращает заведения владельца.
func (s *Service) ListRestaurantsForOwner(identity string) ([]domain.Restaurant, error) {
	return s.restaurants.ListByOwner(identity)
}

// ListAll возвращает публичный каталог заведений.
func (s *Service) ListAll() ([]domain.Restaurant, error) {
	return s.restaurants.ListAll()
}

// AttachFile сохраняет файл в blob-хранилище и привязывает ссылку к заведению.
func (s *Service) AttachFile(identity, restaurantID, name string, data []byte) (string, error) {
	if err := s.guard.OwnsRestaurant(identity, restaurantID); err != nil {
		return "", err
	}
	if s.blobs == nil {
		return "", fmt.Errorf("blob storage is not configured")
	}

	ref, err := s.blobs.Put(name, data)
	if err != nil {
		return "", fmt.Errorf("store file: %w", err)
	}
	if err := s.restaurants.AppendFile(restaurantID, ref); err != nil {
		return "", err
	}

	return ref, nil
}

// DeleteAll очищает каталог. Используется только для сброса фикстур в тестах.
func (s *Service) DeleteAll() error {
	return s.restaurants.DeleteAll()
}

func (s *Service) enqueueRestaurantEvent(eventType kafka.EventType, restaurant domain.Restaurant) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewRestaurantEvent(eventType, restaurant.ID, restaurant.OwnerEmail, restaurant.Name)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("restaurant_id", restaurant.ID).Warn("failed to marshal restaurant event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeRestaurant,
		AggregateID:   restaurant.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("restaurant_id", restaurant.ID).Warn("failed to enqueue restaurant event")
	}
}
