package domain

import "time"

// PaymentCapture — результат успешного списания у платёжного провайдера.
type PaymentCapture struct {
	// Ref — идентификатор списания на стороне провайдера.
	Ref string
	// ReceiptURL — ссылка на чек для клиента.
	ReceiptURL string
}

// PaymentService описывает взаимодействие с платёжным провайдером.
type PaymentService interface {
	// Capture списывает amountMinor с source в пользу суб-аккаунта accountID.
	Capture(amountMinor int64, currency, source, accountID string) (PaymentCapture, error)
	// ConnectAccount обменивает одноразовый auth-код на идентификатор суб-аккаунта.
	ConnectAccount(code string) (string, error)
}

// Notifier отправляет письма вендорам.
type Notifier interface {
	// SendWelcome отправляет приветственное письмо после регистрации заведения.
	SendWelcome(email string) error
}

// BlobStorage принимает файл и возвращает непрозрачную ссылку на него.
type BlobStorage interface {
	Put(name string, data []byte) (string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
