package domain

import "errors"

var (
	// Ошибка отсутствующего email владельца.
	ErrOwnerRequired = errors.New("owner email is required")
	// Ошибка отсутствующего названия заведения.
	ErrNameRequired = errors.New("restaurant name is required")
	// Ошибка отсутствующего идентификатора заведения в заказе/запросе.
	ErrRestaurantIDRequired = errors.New("restaurant_id is required")
	// Ошибка некорректной суммы списания (<= 0).
	ErrAmountInvalid = errors.New("amount_minor must be greater than zero")
	// Ошибка неизвестного статуса заказа.
	ErrStatusUnknown = errors.New("unknown order status")
	// Ошибка отрицательного номера заказа.
	ErrNumberInvalid = errors.New("order number must be non-negative")
	// ErrRestaurantNotFound возвращается, если заведение не найдено в репозитории.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAccessDenied — вызывающая сторона не владеет заведением (напрямую или через заказ).
	// Отсутствующий ресурс тоже трактуется как отказ в доступе.
	ErrAccessDenied = errors.New("access denied")
	// ErrAlreadyConnected — платёжный суб-аккаунт уже подключён, повторный connect запрещён.
	ErrAlreadyConnected = errors.New("payment account already connected")
	// ErrPaymentDeclined — провайдер отклонил списание (бизнес-ошибка).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentTemporary — временная ошибка платёжного провайдера (сеть, таймаут).
	ErrPaymentTemporary = errors.New("payment temporary error")
	// ErrPaymentFailed оборачивает любую неудачу capture; заказ и номер при этом не создаются.
	ErrPaymentFailed = errors.New("payment capture failed")
	// ErrValidation оборачивает ошибки валидации входных полей.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownPatchField — patch содержит поле, которое нельзя изменять.
	ErrUnknownPatchField = errors.New("unknown patch field")
	// ErrStatusTransition — запрошенный переход статуса заказа запрещён.
	ErrStatusTransition = errors.New("invalid order status transition")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsAccessDenied проверяет, является ли ошибка отказом в доступе.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsNotFound проверяет, является ли ошибка отсутствием заведения или заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRestaurantNotFound) || errors.Is(err, ErrOrderNotFound)
}

// IsPaymentFailed проверяет, является ли ошибка неудачей списания.
func IsPaymentFailed(err error) bool {
	return errors.Is(err, ErrPaymentFailed)
}
