package rest

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/service/catalog"
)

// PublicHandler — неаутентифицированный каталог заведений.
type PublicHandler struct {
	catalog *catalog.Service
	logger  *log.Entry
	handler http.Handler
}

// NewPublicHandler создаёт handler публичного API.
func NewPublicHandler(catalogSvc *catalog.Service, logger *log.Entry) *PublicHandler {
	if logger == nil {
		logger = log.WithField("component", "public-api")
	}

	h := &PublicHandler{
		catalog: catalogSvc,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /restaurants", h.listRestaurants)
	mux.HandleFunc("GET /ping", h.ping)
	h.handler = withCORS(mux)

	return h
}

func (h *PublicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *PublicHandler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.catalog.ListAll()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicRestaurantResponses(restaurants))
}

func (h *PublicHandler) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
