// Package health отдаёт состояние зависимостей сервиса для /healthz,
// /readyz и /livez.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Бюджет на одну проверку зависимости.
const checkTimeout = 3 * time.Second

// CheckFunc проверяет доступность одной зависимости.
type CheckFunc func(ctx context.Context) error

// componentReport — результат одной проверки в ответе /healthz.
type componentReport struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed"`
}

// report — полный ответ /healthz.
type report struct {
	OK         bool                       `json:"ok"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]componentReport `json:"components,omitempty"`
}

// Handler держит именованные проверки зависимостей и отдаёт их состояние.
type Handler struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	version string
	started time.Time
}

// NewHandler создаёт Handler без проверок.
func NewHandler(version string) *Handler {
	return &Handler{
		checks:  make(map[string]CheckFunc),
		version: version,
		started: time.Now(),
	}
}

// Register добавляет проверку зависимости под именем name.
// Повторная регистрация того же имени заменяет проверку.
func (h *Handler) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *Handler) snapshot() map[string]CheckFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()

	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	return checks
}

// runChecks выполняет все зарегистрированные проверки; общий статус здоров,
// только если здорова каждая зависимость.
func (h *Handler) runChecks(ctx context.Context) (bool, map[string]componentReport) {
	checks := h.snapshot()
	if len(checks) == 0 {
		return true, nil
	}

	healthy := true
	components := make(map[string]componentReport, len(checks))
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		started := time.Now()
		err := check(checkCtx)
		cancel()

		component := componentReport{
			OK:      err == nil,
			Elapsed: time.Since(started).Round(time.Millisecond).String(),
		}
		if err != nil {
			component.Error = err.Error()
			healthy = false
		}
		components[name] = component
	}

	return healthy, components
}

// ServeHTTP отдаёт развёрнутый отчёт по всем зависимостям.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	healthy, components := h.runChecks(r.Context())

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report{
		OK:         healthy,
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: components,
	})
}

// ReadinessHandler — короткий ответ для readiness-пробы оркестратора.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	healthy, _ := h.runChecks(r.Context())
	if !healthy {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LivenessHandler отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
