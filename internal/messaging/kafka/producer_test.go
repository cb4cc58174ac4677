package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	// Создаем mock producer
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидания
	mockProducer.ExpectSendMessageAndSucceed()

	// Создаем тестовое событие
	event := NewOrderEvent(EventTypeOrderCreated, "order-123", "rest-1", 1, "open", 900, "gbp")

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Проверяем, что все ожидания выполнены
	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	// Создаем mock producer с ошибкой
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	// Настраиваем ожидание ошибки
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(EventTypeOrderCreated, "order-123", "rest-1", 1, "open", 900, "gbp")

	// Публикуем событие
	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderClosed, "order-123", "rest-1", 7, "closed", 1500, "gbp")

	if event.EventType != EventTypeOrderClosed {
		t.Errorf("expected event type %s, got %s", EventTypeOrderClosed, event.EventType)
	}
	if event.OrderID != "order-123" || event.RestaurantID != "rest-1" {
		t.Errorf("unexpected identifiers: %+v", event)
	}
	if event.Number != 7 {
		t.Errorf("expected number 7, got %d", event.Number)
	}
	if event.AmountMinor != 1500 || event.Currency != "gbp" {
		t.Errorf("unexpected amount fields: %+v", event)
	}

	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewRestaurantEvent(t *testing.T) {
	event := NewRestaurantEvent(EventTypeRestaurantCreated, "rest-1", "vendor@example.com", "casa-uno")

	if event.EventType != EventTypeRestaurantCreated {
		t.Errorf("expected event type %s, got %s", EventTypeRestaurantCreated, event.EventType)
	}
	if event.RestaurantID != "rest-1" || event.OwnerEmail != "vendor@example.com" || event.Name != "casa-uno" {
		t.Errorf("unexpected fields: %+v", event)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
