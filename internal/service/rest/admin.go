package rest

import (
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
	"github.com/vladislavdragonenkov/locoloco/internal/service/catalog"
	"github.com/vladislavdragonenkov/locoloco/internal/service/checkout"
)

// Лимит на размер загружаемого файла заведения.
const maxUploadBytes = 8 << 20

// AdminHandler — JSON/HTTP-слой вендорского API: каталог заведений и заказы.
// Identity берётся из заголовка шлюза, вся авторизация выполняется сервисами.
type AdminHandler struct {
	catalog  *catalog.Service
	checkout *checkout.Service
	logger   *log.Entry
	handler  http.Handler
}

// NewAdminHandler создаёт handler вендорского API.
func NewAdminHandler(catalogSvc *catalog.Service, checkoutSvc *checkout.Service, logger *log.Entry) *AdminHandler {
	if logger == nil {
		logger = log.WithField("component", "admin-api")
	}

	h := &AdminHandler{
		catalog:  catalogSvc,
		checkout: checkoutSvc,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /restaurants", h.createRestaurant)
	mux.HandleFunc("GET /restaurants", h.listRestaurants)
	mux.HandleFunc("PATCH /restaurants/{id}", h.patchRestaurant)
	mux.HandleFunc("PUT /restaurants/{id}", h.updateRestaurant)
	mux.HandleFunc("POST /restaurants/{id}/connect", h.connectRestaurant)
	mux.HandleFunc("POST /restaurants/{id}/files", h.attachFile)
	mux.HandleFunc("GET /restaurants/{id}/orders", h.listRestaurantOrders)
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("PATCH /orders/{id}", h.patchOrder)
	h.handler = withCORS(mux)

	return h
}

func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *AdminHandler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	created, err := h.catalog.CreateRestaurant(callerIdentity(r), domain.Restaurant{
		Name:    req.Name,
		Status:  req.Status,
		Profile: req.Profile,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRestaurantResponse(created))
}

func (h *AdminHandler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.catalog.ListRestaurantsForOwner(callerIdentity(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toRestaurantResponses(restaurants))
}

func (h *AdminHandler) patchRestaurant(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	if err := h.catalog.PatchRestaurant(callerIdentity(r), r.PathValue("id"), fields); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req updateRestaurantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	err := h.catalog.UpdateRestaurant(callerIdentity(r), domain.Restaurant{
		ID:      r.PathValue("id"),
		Name:    req.Name,
		Status:  req.Status,
		Profile: req.Profile,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) connectRestaurant(w http.ResponseWriter, r *http.Request) {
	var req connectRestaurantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if req.Code == "" {
		writeError(w, h.logger, fmt.Errorf("%w: code is required", domain.ErrValidation))
		return
	}

	account, err := h.catalog.ConnectRestaurant(callerIdentity(r), r.PathValue("id"), req.Code)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, connectRestaurantResponse{Account: account})
}

func (h *AdminHandler) attachFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: file field is required", domain.ErrValidation))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("read upload: %w", err))
		return
	}

	ref, err := h.catalog.AttachFile(callerIdentity(r), r.PathValue("id"), header.Filename, data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, attachFileResponse{Ref: ref})
}

func (h *AdminHandler) listRestaurantOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.checkout.ListOrdersForRestaurant(callerIdentity(r), r.PathValue("id"), status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *AdminHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	order, err := h.checkout.CreateOrder(checkout.CreateOrderInput{
		Identity:     callerIdentity(r),
		RestaurantID: req.RestaurantID,
		AmountMinor:  req.AmountMinor,
		Source:       req.Source,
		Basket:       req.Basket,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *AdminHandler) patchOrder(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}

	if err := h.checkout.PatchOrder(callerIdentity(r), r.PathValue("id"), fields); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.checkout.ListOrdersForOwner(callerIdentity(r), status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}
