package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/storage/memory"
)

func newGuardFixture(t *testing.T) (*Guard, domain.RestaurantRepository, domain.OrderRepository) {
	t.Helper()

	restaurants := memory.NewRestaurantRepository()
	orders := memory.NewOrderRepository()
	return NewGuard(restaurants, orders, nil), restaurants, orders
}

func TestGuard_OwnsRestaurant(t *testing.T) {
	guard, restaurants, _ := newGuardFixture(t)

	created, err := restaurants.Create(domain.Restaurant{
		OwnerEmail: "vendor@example.com",
		Name:       "casa-uno",
	})
	require.NoError(t, err)

	assert.NoError(t, guard.OwnsRestaurant("vendor@example.com", created.ID))

	err = guard.OwnsRestaurant("other@example.com", created.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestGuard_OwnsRestaurant_MissingIsDenied(t *testing.T) {
	guard, _, _ := newGuardFixture(t)

	err := guard.OwnsRestaurant("vendor@example.com", "missing")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestGuard_OwnsOrder_ViaRestaurant(t *testing.T) {
	guard, restaurants, orders := newGuardFixture(t)

	restaurant, err := restaurants.Create(domain.Restaurant{
		OwnerEmail: "vendor@example.com",
		Name:       "casa-uno",
	})
	require.NoError(t, err)

	created, err := orders.Create(domain.Order{
		RestaurantID: restaurant.ID,
		OwnerEmail:   "diner@example.com",
		AmountMinor:  500,
		Currency:     "gbp",
		Number:       1,
		Status:       domain.OrderStatusOpen,
	})
	require.NoError(t, err)

	// Доступ к заказу есть у владельца заведения, а не у клиента.
	order, err := guard.OwnsOrder("vendor@example.com", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, order.ID)

	_, err = guard.OwnsOrder("diner@example.com", created.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestGuard_OwnsOrder_MissingIsDenied(t *testing.T) {
	guard, _, _ := newGuardFixture(t)

	_, err := guard.OwnsOrder("diner@example.com", "missing")
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}
