package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/locoloco/internal/domain"
)

// Identity приходит из API-шлюза, который уже проверил подпись токена.
// Без шлюза (локальная разработка) подставляется identity по умолчанию.
const (
	identityHeader  = "X-User-Email"
	defaultIdentity = "default@email.com"
)

func callerIdentity(r *http.Request) string {
	if identity := r.Header.Get(identityHeader); identity != "" {
		return identity
	}
	return defaultIdentity
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusForError переводит доменные ошибки в HTTP-статусы.
func statusForError(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsAccessDenied(err):
		return http.StatusForbidden
	case domain.IsPaymentFailed(err):
		return http.StatusPaymentRequired
	case isValidation(err):
		return http.StatusBadRequest
	case isConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func isValidation(err error) bool {
	for _, target := range []error{
		domain.ErrValidation,
		domain.ErrStatusUnknown,
		domain.ErrStatusTransition,
		domain.ErrUnknownPatchField,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrAlreadyConnected)
}

func writeError(w http.ResponseWriter, logger *log.Entry, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}

// withCORS разрешает браузерные запросы с любого origin, как это делал
// фронтенд-шлюз оригинальной платформы.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+identityHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
