package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События заказов
	EventTypeOrderCreated EventType = "order.created"
	EventTypeOrderClosed  EventType = "order.closed"

	// События заведений
	EventTypeRestaurantCreated   EventType = "restaurant.created"
	EventTypeRestaurantConnected EventType = "restaurant.connected"
)

// Topics для Kafka
const (
	TopicOrderEvents      = "loco.order.events"
	TopicRestaurantEvents = "loco.restaurant.events"
	TopicDeadLetterQueue  = "loco.dlq" // Dead Letter Queue для failed messages
)

// Aggregate types, по которым outbox-паблишер выбирает topic.
const (
	AggregateTypeOrder      = "order"
	AggregateTypeRestaurant = "restaurant"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType    EventType `json:"event_type"`
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	Number       int64     `json:"number"`
	Status       string    `json:"status"`
	AmountMinor  int64     `json:"amount_minor"`
	Currency     string    `json:"currency"`
	Timestamp    time.Time `json:"timestamp"`
}

// RestaurantEvent представляет событие заведения
type RestaurantEvent struct {
	EventType    EventType `json:"event_type"`
	RestaurantID string    `json:"restaurant_id"`
	OwnerEmail   string    `json:"owner_email"`
	Name         string    `json:"name"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, restaurantID string, number int64, status string, amountMinor int64, currency string) *OrderEvent {
	return &OrderEvent{
		EventType:    eventType,
		OrderID:      orderID,
		RestaurantID: restaurantID,
		Number:       number,
		Status:       status,
		AmountMinor:  amountMinor,
		Currency:     currency,
		Timestamp:    time.Now(),
	}
}

// NewRestaurantEvent создает новое событие заведения
func NewRestaurantEvent(eventType EventType, restaurantID, ownerEmail, name string) *RestaurantEvent {
	return &RestaurantEvent{
		EventType:    eventType,
		RestaurantID: restaurantID,
		OwnerEmail:   ownerEmail,
		Name:         name,
		Timestamp:    time.Now(),
	}
}
