package memory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

func seedOrder(t *testing.T, repo domain.OrderRepository, restaurantID, owner string, number int64) domain.Order {
	t.Helper()

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
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}
	return created
}

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo := NewOrderRepository()
	created := seedOrder(t, repo, "rest-1", "diner@example.com", 1)

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RestaurantID != "rest-1" || got.Number != 1 || got.Status != domain.OrderStatusOpen {
		t.Fatalf("unexpected order: %+v", got)
	}
	if len(got.Basket) != 1 {
		t.Fatalf("expected basket to survive round trip, got %v", got.Basket)
	}
}

func TestOrderRepository_GetMissing(t *testing.T) {
	repo := NewOrderRepository()
	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_ListByOwnerFiltersStatus(t *testing.T) {
	repo := NewOrderRepository()
	first := seedOrder(t, repo, "rest-1", "diner@example.com", 1)
	seedOrder(t, repo, "rest-1", "other@example.com", 2)
	seedOrder(t, repo, "rest-2", "diner@example.com", 1)

	if err := repo.Patch(first.ID, map[string]any{"status": string(domain.OrderStatusClosed)}); err != nil {
		t.Fatalf("patch: %v", err)
	}

	all, err := repo.ListByOwner("diner@example.com", "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders for owner, got %d", len(all))
	}

	closed, err := repo.ListByOwner("diner@example.com", domain.OrderStatusClosed)
	if err != nil {
		t.Fatalf("list closed: %v", err)
	}
	if len(closed) != 1 || closed[0].ID != first.ID {
		t.Fatalf("unexpected closed orders: %+v", closed)
	}
}

func TestOrderRepository_ListByRestaurant(t *testing.T) {
	repo := NewOrderRepository()
	seedOrder(t, repo, "rest-1", "a@example.com", 1)
	seedOrder(t, repo, "rest-1", "b@example.com", 2)
	seedOrder(t, repo, "rest-2", "a@example.com", 1)

	list, err := repo.ListByRestaurant("rest-1", "")
	if err != nil {
		t.Fatalf("list by restaurant: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(list))
	}
	if list[0].Number != 1 || list[1].Number != 2 {
		t.Fatalf("expected insertion order, got %d, %d", list[0].Number, list[1].Number)
	}
}

func TestOrderRepository_PatchRejectsUnknownFields(t *testing.T) {
	repo := NewOrderRepository()
	created := seedOrder(t, repo, "rest-1", "diner@example.com", 1)

	if err := repo.Patch(created.ID, map[string]any{"number": 42}); !errors.Is(err, domain.ErrUnknownPatchField) {
		t.Fatalf("expected ErrUnknownPatchField, got %v", err)
	}
	if err := repo.Patch("missing", map[string]any{"status": "closed"}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Number != 1 {
		t.Fatal("rejected patch must not mutate the order")
	}
}

func TestOrderRepository_UpdateStatusCompareAndSet(t *testing.T) {
	repo := NewOrderRepository()
	created := seedOrder(t, repo, "rest-1", "diner@example.com", 1)

	if err := repo.UpdateStatus(created.ID, domain.OrderStatusOpen, domain.OrderStatusClosed); err != nil {
		t.Fatalf("update status: %v", err)
	}

	// Второй переход от того же ожидаемого статуса проигрывает CAS.
	err := repo.UpdateStatus(created.ID, domain.OrderStatusOpen, domain.OrderStatusClosed)
	if !errors.Is(err, domain.ErrStatusTransition) {
		t.Fatalf("expected ErrStatusTransition, got %v", err)
	}

	if err := repo.UpdateStatus("missing", domain.OrderStatusOpen, domain.OrderStatusClosed); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.OrderStatusClosed {
		t.Fatalf("expected closed after winning CAS, got %s", got.Status)
	}
}

func TestOrderRepository_BasketDoesNotAlias(t *testing.T) {
	repo := NewOrderRepository()
	basket := []json.RawMessage{json.RawMessage(`{"dish":"tapas"}`)}
	created, err := repo.Create(domain.Order{
		RestaurantID: "rest-1",
		OwnerEmail:   "diner@example.com",
		AmountMinor:  500,
		Currency:     "gbp",
		Basket:       basket,
		Number:       1,
		Status:       domain.OrderStatusOpen,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	basket[0][2] = 'X'

	got, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Basket[0]) != `{"dish":"tapas"}` {
		t.Fatalf("stored basket was mutated through the caller's slice: %s", got.Basket[0])
	}
}
