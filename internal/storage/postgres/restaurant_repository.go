package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

type restaurantRepository struct {
	db *sql.DB
}

// NewRestaurantRepository создаёт PostgreSQL-реализацию RestaurantRepository.
func NewRestaurantRepository(store *Store) domain.RestaurantRepository {
	return &restaurantRepository{db: store.DB()}
}

func (r *restaurantRepository) Create(rest domain.Restaurant) (domain.Restaurant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if rest.ID == "" {
		rest.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rest.CreatedAt = now
	rest.UpdatedAt = now

	profileJSON, filesJSON, err := marshalRestaurantJSON(rest)
	if err != nil {
		return domain.Restaurant{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO restaurants (
			id, owner_email, name, status, profile, files, payment_account, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		rest.ID, rest.OwnerEmail, rest.Name, rest.Status,
		profileJSON, filesJSON, rest.PaymentAccount, rest.CreatedAt, rest.UpdatedAt,
	)
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("insert restaurant: %w", err)
	}

	return rest, nil
}

func (r *restaurantRepository) Get(id string) (domain.Restaurant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_email, name, status, profile, files, payment_account, created_at, updated_at
		FROM restaurants
		WHERE id = $1
	`, id)

	rest, err := scanRestaurant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Restaurant{}, domain.ErrRestaurantNotFound
		}
		return domain.Restaurant{}, fmt.Errorf("select restaurant: %w", err)
	}

	return rest, nil
}

func (r *restaurantRepository) ListAll() ([]domain.Restaurant, error) {
	return r.list(`
		SELECT id, owner_email, name, status, profile, files, payment_account, created_at, updated_at
		FROM restaurants
		ORDER BY created_at, id
	`)
}

func (r *restaurantRepository) ListByOwner(owner string) ([]domain.Restaurant, error) {
	return r.list(`
		SELECT id, owner_email, name, status, profile, files, payment_account, created_at, updated_at
		FROM restaurants
		WHERE owner_email = $1
		ORDER BY created_at, id
	`, owner)
}

func (r *restaurantRepository) list(query string, args ...any) ([]domain.Restaurant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Restaurant, 0)
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan restaurant row: %w", err)
		}
		result = append(result, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurant rows: %w", err)
	}

	return result, nil
}

func (r *restaurantRepository) Update(rest domain.Restaurant) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	profileJSON, filesJSON, err := marshalRestaurantJSON(rest)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE restaurants
		SET name = $2,
		    status = $3,
		    profile = $4,
		    files = $5,
		    updated_at = $6
		WHERE id = $1
	`, rest.ID, rest.Name, rest.Status, profileJSON, filesJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update restaurant: %w", err)
	}

	return requireAffected(res, domain.ErrRestaurantNotFound)
}

func (r *restaurantRepository) Patch(id string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	extra := make(map[string]any)
	var (
		name, status       string
		hasName, hasStatus bool
	)
	for key, value := range fields {
		switch key {
		case "name":
			if text, ok := value.(string); ok {
				name, hasName = text, true
			}
		case "status":
			if text, ok := value.(string); ok {
				status, hasStatus = text, true
			}
		default:
			extra[key] = value
		}
	}

	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("marshal profile patch: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE restaurants
		SET name = CASE WHEN $2 THEN $3 ELSE name END,
		    status = CASE WHEN $4 THEN $5 ELSE status END,
		    profile = profile || $6::jsonb,
		    updated_at = $7
		WHERE id = $1
	`, id, hasName, name, hasStatus, status, extraJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("patch restaurant: %w", err)
	}

	return requireAffected(res, domain.ErrRestaurantNotFound)
}

func (r *restaurantRepository) AppendFile(id, fileRef string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	refJSON, err := json.Marshal(fileRef)
	if err != nil {
		return fmt.Errorf("marshal file ref: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE restaurants
		SET files = files || $2::jsonb,
		    updated_at = $3
		WHERE id = $1
	`, id, refJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append restaurant file: %w", err)
	}

	return requireAffected(res, domain.ErrRestaurantNotFound)
}

func (r *restaurantRepository) SetPaymentAccount(id, account string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE restaurants
		SET payment_account = $2,
		    updated_at = $3
		WHERE id = $1
		  AND payment_account = ''
	`, id, account, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set payment account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrRestaurantNotFound
		}
		return domain.ErrAlreadyConnected
	}

	return nil
}

func (r *restaurantRepository) ExistsOwned(id, owner string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM restaurants WHERE id = $1 AND owner_email = $2
		)
	`, id, owner).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check restaurant ownership: %w", err)
	}

	return exists, nil
}

func (r *restaurantRepository) DeleteAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM restaurants`); err != nil {
		return fmt.Errorf("delete all restaurants: %w", err)
	}

	return nil
}

func (r *restaurantRepository) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM restaurants WHERE id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check restaurant exists: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row rowScanner) (domain.Restaurant, error) {
	var (
		rest        domain.Restaurant
		profileJSON []byte
		filesJSON   []byte
	)

	err := row.Scan(
		&rest.ID, &rest.OwnerEmail, &rest.Name, &rest.Status,
		&profileJSON, &filesJSON, &rest.PaymentAccount, &rest.CreatedAt, &rest.UpdatedAt,
	)
	if err != nil {
		return domain.Restaurant{}, err
	}

	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &rest.Profile); err != nil {
			return domain.Restaurant{}, fmt.Errorf("unmarshal restaurant profile: %w", err)
		}
	}
	if len(filesJSON) > 0 {
		if err := json.Unmarshal(filesJSON, &rest.Files); err != nil {
			return domain.Restaurant{}, fmt.Errorf("unmarshal restaurant files: %w", err)
		}
	}

	return rest, nil
}

func marshalRestaurantJSON(rest domain.Restaurant) ([]byte, []byte, error) {
	profile := rest.Profile
	if profile == nil {
		profile = map[string]any{}
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal restaurant profile: %w", err)
	}

	files := rest.Files
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal restaurant files: %w", err)
	}

	return profileJSON, filesJSON, nil
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

var _ domain.RestaurantRepository = (*restaurantRepository)(nil)
