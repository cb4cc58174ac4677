package access

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// Guard проверяет, что вызывающий владеет ресурсом, прежде чем операция
// продолжится. Проверка владения заведением выполняется одним индексным
// предикатом без выборки списка. Отсутствующий ресурс неотличим от чужого:
// в обоих случаях возвращается ErrAccessDenied, чтобы не раскрывать
// существование чужих ресурсов.
type Guard struct {
	restaurants domain.RestaurantRepository
	orders      domain.OrderRepository
	logger      *log.Entry
}

// NewGuard создаёт Guard поверх репозиториев.
func NewGuard(restaurants domain.RestaurantRepository, orders domain.OrderRepository, logger *log.Entry) *Guard {
	if logger == nil {
		logger = log.WithField("component", "access-guard")
	}
	return &Guard{
		restaurants: restaurants,
		orders:      orders,
		logger:      logger,
	}
}

// OwnsRestaurant возвращает nil, если заведение существует и принадлежит identity.
func (g *Guard) OwnsRestaurant(identity, restaurantID string) error {
	owned, err := g.restaurants.ExistsOwned(restaurantID, identity)
	if err != nil {
		return fmt.Errorf("check restaurant ownership: %w", err)
	}
	if !owned {
		g.logger.WithFields(log.Fields{
			"identity":      identity,
			"restaurant_id": restaurantID,
		}).Warn("restaurant access denied")
		return domain.ErrAccessDenied
	}
	return nil
}

// OwnsOrder возвращает заказ, если identity владеет заведением этого заказа.
// Владение заказом транзитивно: заказ принадлежит тому, кто владеет его
// заведением, а не клиенту, который его оформил.
func (g *Guard) OwnsOrder(identity, orderID string) (domain.Order, error) {
	order, err := g.orders.Get(orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			g.logger.WithFields(log.Fields{
				"identity": identity,
				"order_id": orderID,
			}).Warn("order access denied: order not found")
			return domain.Order{}, domain.ErrAccessDenied
		}
		return domain.Order{}, fmt.Errorf("load order for ownership check: %w", err)
	}

	if err := g.OwnsRestaurant(identity, order.RestaurantID); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}
