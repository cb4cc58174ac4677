package rest

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

type restaurantResponse struct {
	ID             string         `json:"id"`
	OwnerEmail     string         `json:"owner_email,omitempty"`
	Name           string         `json:"name"`
	Status         string         `json:"status,omitempty"`
	Profile        map[string]any `json:"profile,omitempty"`
	Files          []string       `json:"files,omitempty"`
	PaymentEnabled bool           `json:"payment_enabled"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// toRestaurantResponse скрывает идентификатор платёжного суб-аккаунта:
// наружу уходит только факт подключения.
func toRestaurantResponse(r domain.Restaurant) restaurantResponse {
	return restaurantResponse{
		ID:             r.ID,
		OwnerEmail:     r.OwnerEmail,
		Name:           r.Name,
		Status:         r.Status,
		Profile:        r.Profile,
		Files:          r.Files,
		PaymentEnabled: r.Connected(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toRestaurantResponses(restaurants []domain.Restaurant) []restaurantResponse {
	out := make([]restaurantResponse, 0, len(restaurants))
	for _, r := range restaurants {
		out = append(out, toRestaurantResponse(r))
	}
	return out
}

// publicRestaurantResponse — карточка для неаутентифицированного каталога,
// без email владельца.
type publicRestaurantResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Status  string         `json:"status,omitempty"`
	Profile map[string]any `json:"profile,omitempty"`
	Files   []string       `json:"files,omitempty"`
}

func toPublicRestaurantResponses(restaurants []domain.Restaurant) []publicRestaurantResponse {
	out := make([]publicRestaurantResponse, 0, len(restaurants))
	for _, r := range restaurants {
		out = append(out, publicRestaurantResponse{
			ID:      r.ID,
			Name:    r.Name,
			Status:  r.Status,
			Profile: r.Profile,
			Files:   r.Files,
		})
	}
	return out
}

type orderResponse struct {
	ID           string            `json:"id"`
	RestaurantID string            `json:"restaurant_id"`
	OwnerEmail   string            `json:"owner_email"`
	AmountMinor  int64             `json:"amount_minor"`
	Currency     string            `json:"currency"`
	Basket       []json.RawMessage `json:"basket,omitempty"`
	Number       int64             `json:"number"`
	Status       string            `json:"status"`
	ReceiptURL   string            `json:"receipt_url,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// toOrderResponse не раскрывает payment_ref: ссылка на списание у провайдера
// остаётся внутренней, клиенту достаточно чека.
func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:           o.ID,
		RestaurantID: o.RestaurantID,
		OwnerEmail:   o.OwnerEmail,
		AmountMinor:  o.AmountMinor,
		Currency:     o.Currency,
		Basket:       o.Basket,
		Number:       o.Number,
		Status:       string(o.Status),
		ReceiptURL:   o.ReceiptURL,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type createRestaurantRequest struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Profile map[string]any `json:"profile"`
}

type updateRestaurantRequest struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Profile map[string]any `json:"profile"`
}

type connectRestaurantRequest struct {
	Code string `json:"code"`
}

type connectRestaurantResponse struct {
	Account string `json:"account"`
}

type attachFileResponse struct {
	Ref string `json:"ref"`
}

type createOrderRequest struct {
	RestaurantID string            `json:"restaurant_id"`
	AmountMinor  int64             `json:"amount_minor"`
	Source       string            `json:"source"`
	Basket       []json.RawMessage `json:"basket"`
}
