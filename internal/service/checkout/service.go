package checkout

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/locoloco/internal/metrics"
	"github.com/vladislavdragonenkov/locoloco/internal/service/access"
)

// Валюта списаний платформы.
const defaultCurrency = "gbp"

// Options задаёт необязательные зависимости конвейера.
type Options struct {
	Logger  *log.Entry
	Metrics *metrics.CheckoutMetrics
	Outbox  domain.OutboxRepository
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger конвейера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics задаёт метрики конвейера.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithOutbox включает публикацию событий заказов через transactional outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = repo
	}
}

// Service — конвейер оформления заказов: платёж (если у заведения подключён
// суб-аккаунт), затем атомарное выделение номера, затем запись заказа.
// Порядок шагов фиксирован: неудачное списание не расходует номер и не
// оставляет заказа.
type Service struct {
	restaurants domain.RestaurantRepository
	orders      domain.OrderRepository
	counters    domain.CounterRepository
	payments    domain.PaymentService
	guard       *access.Guard
	outbox      domain.OutboxRepository
	metrics     *metrics.CheckoutMetrics
	logger      *log.Entry
}

// NewService создаёт конвейер оформления заказов.
func NewService(
	restaurants domain.RestaurantRepository,
	orders domain.OrderRepository,
	counters domain.CounterRepository,
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
		logger = log.WithField("component", "checkout")
	}

	return &Service{
		restaurants: restaurants,
		orders:      orders,
		counters:    counters,
		payments:    payments,
		guard:       guard,
		outbox:      opts.Outbox,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// CreateOrderInput — входные данные оформления заказа. Source — одноразовый
// платёжный токен; он передаётся провайдеру и никогда не сохраняется.
type CreateOrderInput struct {
	Identity     string
	RestaurantID string
	AmountMinor  int64
	Source       string
	Basket       []json.RawMessage
}

// CreateOrder выполняет шаги оформления и возвращает сохранённый заказ.
func (s *Service) CreateOrder(in CreateOrderInput) (domain.Order, error) {
	started := time.Now()

	if in.Identity == "" {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.ErrOwnerRequired)
	}
	if in.RestaurantID == "" {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.ErrRestaurantIDRequired)
	}
	if in.AmountMinor <= 0 {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrValidation, domain.ErrAmountInvalid)
	}

	restaurant, err := s.restaurants.Get(in.RestaurantID)
	if err != nil {
		return domain.Order{}, err
	}

	// Списание выполняется до выделения номера: провал платежа не должен
	// прожигать номера и оставлять заказы без оплаты.
	var capture domain.PaymentCapture
	if restaurant.Connected() {
		capture, err = s.payments.Capture(in.AmountMinor, defaultCurrency, in.Source, restaurant.PaymentAccount)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordPaymentFailed()
			}
			s.logger.WithError(err).WithField("restaurant_id", restaurant.ID).Warn("payment capture failed")
			return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
		}
		if s.metrics != nil {
			s.metrics.RecordPaymentCaptured()
		}
	}

	number, err := s.counters.Next(restaurant.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("allocate order number: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordNumberAllocated()
	}

	created, err := s.orders.Create(domain.Order{
		RestaurantID: restaurant.ID,
		OwnerEmail:   in.Identity,
		AmountMinor:  in.AmountMinor,
		Currency:     defaultCurrency,
		Basket:       in.Basket,
		Number:       number,
		Status:       domain.OrderStatusOpen,
		PaymentRef:   capture.Ref,
		ReceiptURL:   capture.ReceiptURL,
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	s.enqueueOrderEvent(kafka.EventTypeOrderCreated, created)

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
		s.metrics.RecordCheckoutDuration(time.Since(started))
	}

	s.logger.WithFields(log.Fields{
		"order_id":      created.ID,
		"restaurant_id": created.RestaurantID,
		"number":        created.Number,
	}).Info("order created")

	return created, nil
}

// PatchOrder применяет частичное изменение заказа от имени владельца заведения.
func (s *Service) PatchOrder(identity, orderID string, fields map[string]any) error {
	order, err := s.guard.OwnsOrder(identity, orderID)
	if err != nil {
		if domain.IsAccessDenied(err) && s.metrics != nil {
			s.metrics.RecordAccessDenied()
		}
		return err
	}

	nextStatus := order.Status
	for key, raw := range fields {
		switch key {
		case "status":
			text, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%w: status must be a string", domain.ErrStatusUnknown)
			}
			status := domain.OrderStatus(text)
			if !domain.KnownStatus(status) {
				return fmt.Errorf("%w: %s", domain.ErrStatusUnknown, text)
			}
			if !domain.ValidStatusTransition(order.Status, status) {
				return fmt.Errorf("%w: %s -> %s", domain.ErrStatusTransition, order.Status, status)
			}
			nextStatus = status
		default:
			return fmt.Errorf("%w: %s", domain.ErrUnknownPatchField, key)
		}
	}

	if nextStatus == order.Status {
		return nil
	}

	// Compare-and-set от статуса снапшота: если конкурентный patch успел
	// раньше, запись не перетирается, а переход отклоняется.
	if err := s.orders.UpdateStatus(orderID, order.Status, nextStatus); err != nil {
		return err
	}

	if nextStatus == domain.OrderStatusClosed {
		order.Status = nextStatus
		s.enqueueOrderEvent(kafka.EventTypeOrderClosed, order)
	}

	return nil
}

// ListOrdersForOwner возвращает заказы клиента, опционально по статусу.
func (s *Service) ListOrdersForOwner(identity string, status domain.OrderStatus) ([]domain.Order, error) {
	return s.orders.ListByOwner(identity, status)
}

// ListOrdersForRestaurant возвращает заказы заведения для его владельца.
func (s *Service) ListOrdersForRestaurant(identity, restaurantID string, status domain.OrderStatus) ([]domain.Order, error) {
	if err := s.guard.OwnsRestaurant(identity, restaurantID); err != nil {
		if domain.IsAccessDenied(err) && s.metrics != nil {
			s.metrics.RecordAccessDenied()
		}
		return nil, err
	}
	return s.orders.ListByRestaurant(restaurantID, status)
}

// enqueueOrderEvent ставит событие заказа в outbox. Сбой постановки не
// откатывает уже сохранённый заказ, только логируется.
func (s *Service) enqueueOrderEvent(eventType kafka.EventType, order domain.Order) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.RestaurantID, order.Number,
		string(order.Status), order.AmountMinor, order.Currency)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: kafka.AggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue order event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
