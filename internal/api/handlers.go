package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"github.com/trogers1052/quote-refresh-service/internal/scheduler"
	"go.uber.org/zap"
)

// SchedulerService is the part of the scheduler exposed over HTTP
type SchedulerService interface {
	Status() scheduler.Status
	Tick(ctx context.Context) (*scheduler.TickReport, error)
}

// QuoteReader looks up cached quotes
type QuoteReader interface {
	GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error)
}

// RunStateReader loads the persisted scheduler state
type RunStateReader interface {
	LoadRunState(ctx context.Context, id string) (*models.RunState, error)
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scheduler SchedulerService
	quotes    QuoteReader
	runState  RunStateReader
	checks    map[string]HealthCheck
	logger    *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(s SchedulerService, quotes QuoteReader, runState RunStateReader, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	return &Handler{
		scheduler: s,
		quotes:    quotes,
		runState:  runState,
		checks:    checks,
		logger:    logger,
	}
}

type statusResponse struct {
	scheduler.Status
	RunState *models.RunState `json:"run_state,omitempty"`
}

// GetStatus handles GET /scheduler/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: h.scheduler.Status()}

	state, err := h.runState.LoadRunState(r.Context(), models.RunStateID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp.RunState = state

	respondJSON(w, http.StatusOK, resp)
}

// RunScheduler handles POST /scheduler/run. The tick runs to completion
// even if the client disconnects.
func (h *Handler) RunScheduler(w http.ResponseWriter, r *http.Request) {
	report, err := h.scheduler.Tick(context.WithoutCancel(r.Context()))
	if errors.Is(err, scheduler.ErrTickInProgress) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Manual scheduler tick", zap.String("action", report.Action))
	respondJSON(w, http.StatusOK, report)
}

// GetQuote handles GET /quotes/{symbol}
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["symbol"])

	quote, err := h.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if quote == nil {
		http.Error(w, "quote not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := map[string]string{"status": "healthy"}

	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			result[name] = err.Error()
			result["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}

	respondJSON(w, status, result)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
