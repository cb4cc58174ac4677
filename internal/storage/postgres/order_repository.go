package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	basketJSON, err := marshalBasket(order.Basket)
	if err != nil {
		return domain.Order{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, restaurant_id, owner_email, amount_minor, currency, basket,
			number, status, payment_ref, receipt_url, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		order.ID, order.RestaurantID, order.OwnerEmail, order.AmountMinor,
		order.Currency, basketJSON, order.Number, string(order.Status),
		order.PaymentRef, order.ReceiptURL, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Уникальный индекс (restaurant_id, number) ловит повторное
			// использование номера, выданного счётчиком.
			return domain.Order{}, fmt.Errorf("%w: order number %d already taken for restaurant %s",
				domain.ErrNumberInvalid, order.Number, order.RestaurantID)
		}
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, owner_email, amount_minor, currency, basket,
		       number, status, payment_ref, receipt_url, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListByOwner(owner string, status domain.OrderStatus) ([]domain.Order, error) {
	return r.listFiltered(`owner_email = $1`, owner, status)
}

func (r *orderRepository) ListByRestaurant(restaurantID string, status domain.OrderStatus) ([]domain.Order, error) {
	return r.listFiltered(`restaurant_id = $1`, restaurantID, status)
}

func (r *orderRepository) listFiltered(where, arg string, status domain.OrderStatus) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, restaurant_id, owner_email, amount_minor, currency, basket,
		       number, status, payment_ref, receipt_url, created_at, updated_at
		FROM orders
		WHERE ` + where

	args := []any{arg}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func (r *orderRepository) Patch(id string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var status string
	for key, value := range fields {
		switch key {
		case "status":
			text, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: status must be a string", domain.ErrStatusUnknown)
			}
			status = text
		default:
			return fmt.Errorf("%w: %s", domain.ErrUnknownPatchField, key)
		}
	}
	if status == "" {
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    updated_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("patch order: %w", err)
	}

	return requireAffected(res, domain.ErrOrderNotFound)
}

// UpdateStatus — compare-and-set: строка меняется только если статус всё ещё from.
func (r *orderRepository) UpdateStatus(id string, from, to domain.OrderStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3,
		    updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Ноль строк: либо заказа нет, либо статус успел смениться конкурентно.
	if _, err := r.Get(id); err != nil {
		return err
	}
	return fmt.Errorf("%w: order %s is no longer %s", domain.ErrStatusTransition, id, from)
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order      domain.Order
		status     string
		basketJSON []byte
	)

	err := row.Scan(
		&order.ID, &order.RestaurantID, &order.OwnerEmail, &order.AmountMinor,
		&order.Currency, &basketJSON, &order.Number, &status,
		&order.PaymentRef, &order.ReceiptURL, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)

	if len(basketJSON) > 0 {
		if err := json.Unmarshal(basketJSON, &order.Basket); err != nil {
			return domain.Order{}, fmt.Errorf("unmarshal order basket: %w", err)
		}
	}

	return order, nil
}

func marshalBasket(basket []json.RawMessage) ([]byte, error) {
	if basket == nil {
		basket = []json.RawMessage{}
	}
	basketJSON, err := json.Marshal(basket)
	if err != nil {
		return nil, fmt.Errorf("marshal order basket: %w", err)
	}
	return basketJSON, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
