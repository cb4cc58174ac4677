package domain

import (
	"encoding/json"
	"time"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusOpen — заказ создан и ещё не закрыт заведением.
	OrderStatusOpen OrderStatus = "open"
	// OrderStatusClosed — терминальный статус: заказ выдан/обработан.
	OrderStatusClosed OrderStatus = "closed"
)

// KnownStatus сообщает, входит ли значение в набор допустимых статусов.
func KnownStatus(status OrderStatus) bool {
	return status == OrderStatusOpen || status == OrderStatusClosed
}

// ValidStatusTransition проверяет переход статусов: open → closed, обратного пути нет.
// Переход в тот же статус допустим как no-op.
func ValidStatusTransition(from, to OrderStatus) bool {
	if !KnownStatus(from) || !KnownStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	return from == OrderStatusOpen && to == OrderStatusClosed
}

// Order — заказ клиента в конкретном заведении.
type Order struct {
	// ID назначается хранилищем при вставке.
	ID string
	// RestaurantID — заведение, к которому привязан заказ; неизменен.
	RestaurantID string
	// OwnerEmail — проверенный email клиента, оформившего заказ; неизменен.
	OwnerEmail string
	// AmountMinor — сумма в минимальных денежных единицах.
	AmountMinor int64
	// Currency — код валюты списания.
	Currency string
	// Basket — позиции корзины как есть, порядок сохраняется, содержимое непрозрачно для ядра.
	Basket []json.RawMessage
	// Number — сквозной номер заказа внутри заведения, назначается атомарно при создании.
	Number int64
	Status OrderStatus
	// PaymentRef — ссылка на списание у платёжного провайдера; пустая для заказов без суб-аккаунта.
	PaymentRef string
	// ReceiptURL — ссылка на чек от провайдера, если списание выполнялось.
	ReceiptURL string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.RestaurantID == "" {
		errs = append(errs, ErrRestaurantIDRequired)
	}
	if o.OwnerEmail == "" {
		errs = append(errs, ErrOwnerRequired)
	}
	if o.AmountMinor <= 0 {
		errs = append(errs, ErrAmountInvalid)
	}
	if !KnownStatus(o.Status) {
		errs = append(errs, ErrStatusUnknown)
	}
	if o.Number < 0 {
		errs = append(errs, ErrNumberInvalid)
	}

	return errs
}
