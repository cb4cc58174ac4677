package integration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/locoloco/internal/service/access"
	"github.com/vladislavdragonenkov/locoloco/internal/service/catalog"
	"github.com/vladislavdragonenkov/locoloco/internal/service/checkout"
	"github.com/vladislavdragonenkov/locoloco/internal/service/notify"
	"github.com/vladislavdragonenkov/locoloco/internal/service/payment"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/memory"
)

type platform struct {
	catalog  *catalog.Service
	checkout *checkout.Service
	payments *payment.MockService
	notifier *notify.MockNotifier
	outbox   domain.OutboxRepository
}

func newPlatform(t *testing.T) *platform {
	t.Helper()

	restaurants := memory.NewRestaurantRepository()
	orders := memory.NewOrderRepository()
	counters := memory.NewCounterRepository()
	outbox := memory.NewOutboxRepository()
	payments := payment.NewMockService()
	notifier := notify.NewMockNotifier()
	guard := access.NewGuard(restaurants, orders, nil)

	return &platform{
		catalog: catalog.NewService(restaurants, payments, guard,
			catalog.WithNotifier(notifier),
			catalog.WithBlobStorage(memory.NewBlobStore()),
			catalog.WithOutbox(outbox),
		),
		checkout: checkout.NewService(restaurants, orders, counters, payments, guard,
			checkout.WithOutbox(outbox),
		),
		payments: payments,
		notifier: notifier,
		outbox:   outbox,
	}
}

// Полный жизненный цикл: регистрация заведения, подключение платёжного
// суб-аккаунта, оформление заказа со списанием, закрытие заказа вендором.
func TestVendorLifecycle(t *testing.T) {
	p := newPlatform(t)

	restaurant, err := p.catalog.CreateRestaurant("vendor@example.com", domain.Restaurant{
		Name:    "casa-uno",
		Profile: map[string]any{"cuisine": "spanish"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vendor@example.com"}, p.notifier.Sent())

	account, err := p.catalog.ConnectRestaurant("vendor@example.com", restaurant.ID, "auth-code")
	require.NoError(t, err)
	require.NotEmpty(t, account)

	order, err := p.checkout.CreateOrder(checkout.CreateOrderInput{
		Identity:     "diner@example.com",
		RestaurantID: restaurant.ID,
		AmountMinor:  1250,
		Source:       "tok_visa",
		Basket:       []json.RawMessage{json.RawMessage(`{"dish":"paella","qty":1}`)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.Number)
	assert.NotEmpty(t, order.PaymentRef)

	calls := p.payments.CaptureCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, account, calls[0].AccountID)

	require.NoError(t, p.checkout.PatchOrder("vendor@example.com", order.ID, map[string]any{"status": "closed"}))

	closed, err := p.checkout.ListOrdersForRestaurant("vendor@example.com", restaurant.ID, domain.OrderStatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, order.ID, closed[0].ID)

	// Outbox собрал всю историю событий.
	pending, err := p.outbox.PullPending(10)
	require.NoError(t, err)
	var types []string
	for _, msg := range pending {
		types = append(types, msg.EventType)
	}
	assert.Equal(t, []string{
		string(kafka.EventTypeRestaurantCreated),
		string(kafka.EventTypeRestaurantConnected),
		string(kafka.EventTypeOrderCreated),
		string(kafka.EventTypeOrderClosed),
	}, types)
}

// Платёж падает, номер не расходуется, заказ не появляется; следующий
// успешный заказ получает номер 1.
func TestFailedCaptureLeavesNoTrace(t *testing.T) {
	p := newPlatform(t)

	restaurant, err := p.catalog.CreateRestaurant("vendor@example.com", domain.Restaurant{Name: "casa-uno"})
	require.NoError(t, err)
	_, err = p.catalog.ConnectRestaurant("vendor@example.com", restaurant.ID, "auth-code")
	require.NoError(t, err)

	p.payments.CaptureErr = assert.AnError
	_, err = p.checkout.CreateOrder(checkout.CreateOrderInput{
		Identity:     "diner@example.com",
		RestaurantID: restaurant.ID,
		AmountMinor:  500,
		Source:       "tok_bad",
	})
	require.ErrorIs(t, err, domain.ErrPaymentFailed)

	p.payments.CaptureErr = nil
	order, err := p.checkout.CreateOrder(checkout.CreateOrderInput{
		Identity:     "diner@example.com",
		RestaurantID: restaurant.ID,
		AmountMinor:  500,
		Source:       "tok_good",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), order.Number)
}

// Два вендора не видят и не трогают чужие данные, их нумерация независима.
func TestTenantIsolation(t *testing.T) {
	p := newPlatform(t)

	first, err := p.catalog.CreateRestaurant("a@example.com", domain.Restaurant{Name: "first"})
	require.NoError(t, err)
	second, err := p.catalog.CreateRestaurant("b@example.com", domain.Restaurant{Name: "second"})
	require.NoError(t, err)

	for _, restaurantID := range []string{first.ID, second.ID, first.ID} {
		_, err := p.checkout.CreateOrder(checkout.CreateOrderInput{
			Identity:     "diner@example.com",
			RestaurantID: restaurantID,
			AmountMinor:  100,
		})
		require.NoError(t, err)
	}

	firstOrders, err := p.checkout.ListOrdersForRestaurant("a@example.com", first.ID, "")
	require.NoError(t, err)
	require.Len(t, firstOrders, 2)
	assert.Equal(t, int64(2), firstOrders[1].Number)

	secondOrders, err := p.checkout.ListOrdersForRestaurant("b@example.com", second.ID, "")
	require.NoError(t, err)
	require.Len(t, secondOrders, 1)
	assert.Equal(t, int64(1), secondOrders[0].Number)

	_, err = p.checkout.ListOrdersForRestaurant("b@example.com", first.ID, "")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	err = p.catalog.PatchRestaurant("b@example.com", first.ID, map[string]any{"name": "stolen"})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}
