package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
)

const msgNotReady = "сервис не готов"

// Status результат проверки зависимостей
type Status struct {
	Checks map[string]string `json:"checks"`
}

type Handler struct {
	checks  map[string]Check
	timeout time.Duration
	logger  Logger
}

func NewHandler(checks map[string]Check, timeout time.Duration, logger Logger) *Handler {
	return &Handler{
		checks:  checks,
		timeout: timeout,
		logger:  logger,
	}
}

// Live GET /health/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, nil)
}

// Ready GET /health/ready
// Проверки выполняются параллельно с общим таймаутом
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			results[i] = check(ctx)
		}(i, h.checks[name])
	}
	wg.Wait()

	status := Status{Checks: make(map[string]string, len(names))}
	ready := true
	for i, name := range names {
		if results[i] != nil {
			ready = false
			status.Checks[name] = results[i].Error()
			h.logger.Warn("GET /health/ready - %s is not available: %v", name, results[i])
			continue
		}
		status.Checks[name] = "ok"
	}

	if !ready {
		handlers.RespondErrorData(w, http.StatusServiceUnavailable, msgNotReady, status)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, status)
}
