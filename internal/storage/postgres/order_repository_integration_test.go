package postgres

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

func seedIntegrationOrder(t *testing.T, store *Store, restaurantID, owner string, number int64) domain.Order {
	t.Helper()

	repo := NewOrderRepository(store)
	created, err := repo.Create(domain.Order{
		RestaurantID: restaurantID,
		OwnerEmail:   owner,
		AmountMinor:  900,
		Currency:     "gbp",
		Basket:       []json.RawMessage{json.RawMessage(`{"dish":"tapas"}`)},
		Number:       number,
		Status:       domain.OrderStatusOpen,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return created
}

func TestOrderRepository_Integration_CreateAndGet(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	restaurant := seedIntegrationRestaurant(t, NewRestaurantRepository(store), "vendor@example.com", "casa-uno")

	created := seedIntegrationOrder(t, store, restaurant.ID, "diner@example.com", 1)

	got, err := NewOrderRepository(store).Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RestaurantID != restaurant.ID || got.Number != 1 || got.Status != domain.OrderStatusOpen {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Basket) != 1 {
		t.Fatalf("basket did not survive round trip: %v", got.Basket)
	}
}

func TestOrderRepository_Integration_NumberUniquePerRestaurant(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewRestaurantRepository(store)
	first := seedIntegrationRestaurant(t, repo, "vendor@example.com", "casa-uno")
	second := seedIntegrationRestaurant(t, repo, "vendor@example.com", "casa-dos")

	seedIntegrationOrder(t, store, first.ID, "diner@example.com", 1)

	orders := NewOrderRepository(store)
	_, err := orders.Create(domain.Order{
		RestaurantID: first.ID,
		OwnerEmail:   "diner@example.com",
		AmountMinor:  500,
		Currency:     "gbp",
		Number:       1,
		Status:       domain.OrderStatusOpen,
	})
	if !errors.Is(err, domain.ErrNumberInvalid) {
		t.Fatalf("expected ErrNumberInvalid for duplicate number, got %v", err)
	}

	// Другое заведение может использовать тот же номер.
	if _, err := orders.Create(domain.Order{
		RestaurantID: second.ID,
		OwnerEmail:   "diner@example.com",
		AmountMinor:  500,
		Currency:     "gbp",
		Number:       1,
		Status:       domain.OrderStatusOpen,
	}); err != nil {
		t.Fatalf("expected same number to be valid for another restaurant: %v", err)
	}
}

func TestOrderRepository_Integration_ListFilters(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	restaurant := seedIntegrationRestaurant(t, NewRestaurantRepository(store), "vendor@example.com", "casa-uno")
	orders := NewOrderRepository(store)

	first := seedIntegrationOrder(t, store, restaurant.ID, "diner@example.com", 1)
	seedIntegrationOrder(t, store, restaurant.ID, "other@example.com", 2)

	if err := orders.Patch(first.ID, map[string]any{"status": string(domain.OrderStatusClosed)}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	byOwner, err := orders.ListByOwner("diner@example.com", "")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].ID != first.ID {
		t.Fatalf("unexpected owner orders: %+v", byOwner)
	}

	closed, err := orders.ListByRestaurant(restaurant.ID, domain.OrderStatusClosed)
	if err != nil {
		t.Fatalf("list closed: %v", err)
	}
	if len(closed) != 1 || closed[0].Status != domain.OrderStatusClosed {
		t.Fatalf("unexpected closed orders: %+v", closed)
	}

	all, err := orders.ListByRestaurant(restaurant.ID, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
}

func TestOrderRepository_Integration_UpdateStatusCompareAndSet(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	restaurant := seedIntegrationRestaurant(t, NewRestaurantRepository(store), "vendor@example.com", "casa-uno")
	orders := NewOrderRepository(store)

	created := seedIntegrationOrder(t, store, restaurant.ID, "diner@example.com", 1)

	if err := orders.UpdateStatus(created.ID, domain.OrderStatusOpen, domain.OrderStatusClosed); err != nil {
		t.Fatalf("update status: %v", err)
	}

	// Повторный переход от устаревшего ожидаемого статуса проигрывает CAS.
	err := orders.UpdateStatus(created.ID, domain.OrderStatusOpen, domain.OrderStatusClosed)
	if !errors.Is(err, domain.ErrStatusTransition) {
		t.Fatalf("expected ErrStatusTransition, got %v", err)
	}

	if err := orders.UpdateStatus("00000000-0000-0000-0000-000000000000", domain.OrderStatusOpen, domain.OrderStatusClosed); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	got, err := orders.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusClosed {
		t.Fatalf("expected closed after winning CAS, got %s", got.Status)
	}
}

func TestOrderRepository_Integration_PatchRejectsUnknownFields(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	restaurant := seedIntegrationRestaurant(t, NewRestaurantRepository(store), "vendor@example.com", "casa-uno")
	orders := NewOrderRepository(store)

	created := seedIntegrationOrder(t, store, restaurant.ID, "diner@example.com", 1)

	if err := orders.Patch(created.ID, map[string]any{"number": 42}); !errors.Is(err, domain.ErrUnknownPatchField) {
		t.Fatalf("expected ErrUnknownPatchField, got %v", err)
	}
	if err := orders.Patch("00000000-0000-0000-0000-000000000000", map[string]any{"status": "closed"}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
