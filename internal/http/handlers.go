package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/client"
	"github.com/kjstillabower/weatherlog/internal/lifecycle"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/service"
)

// HealthConfig holds the dependency probes used by the health handler.
type HealthConfig struct {
	StartTime time.Time
	// DBPing checks database reachability.
	DBPing func(ctx context.Context) error
	// CachePing, when set, checks cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Services groups the domain services behind the handlers.
type Services struct {
	Accounts *service.AccountService
	Weather  *service.WeatherService
	History  *service.HistoryService
	Admin    *service.AdminService
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	accounts *service.AccountService
	weather  *service.WeatherService
	history  *service.HistoryService
	admin    *service.AdminService

	sessions     *auth.SessionManager
	views        *Renderer
	healthConfig *HealthConfig
	logger       *zap.Logger

	cityMinLength int
	cityMaxLength int

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	svc Services,
	sessions *auth.SessionManager,
	views *Renderer,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	cityMinLength, cityMaxLength int,
) *Handler {
	return &Handler{
		accounts:      svc.Accounts,
		weather:       svc.Weather,
		history:       svc.History,
		admin:         svc.Admin,
		sessions:      sessions,
		views:         views,
		healthConfig:  healthConfig,
		logger:        logger,
		cityMinLength: cityMinLength,
		cityMaxLength: cityMaxLength,
	}
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weatherlog",
		"version":   "dev",
		"checks":    result.checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptimeSeconds"] = int64(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down, database, cache.
// An unreachable database is unhealthy (503); an unreachable cache only degrades (200)
// because lookups fall through to the provider.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := make(map[string]string)
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", checks}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	result := healthResult{"healthy", http.StatusOK, "", checks}
	if h.healthConfig.DBPing != nil {
		if err := h.healthConfig.DBPing(ctx); err != nil {
			checks["database"] = "unhealthy"
			h.logger.Warn("database ping failed", zap.Error(err))
			result = healthResult{"unhealthy", http.StatusServiceUnavailable, "database_unreachable", checks}
		} else {
			checks["database"] = "healthy"
		}
	}
	if h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			if result.status == "healthy" {
				result = healthResult{"degraded", http.StatusOK, "cache_unreachable", checks}
			}
		}
	}
	return result
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError maps a lookup failure to a JSON error response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFrom(r.Context()).Debug("upstream error",
		zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
	switch {
	case errors.Is(err, client.ErrLocationNotFound):
		writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "City not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Weather provider timed out")
	default:
		writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	}
}

// serverError logs err and renders the generic error page.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFrom(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	h.views.Render(w, r, http.StatusInternalServerError, "error", view{Title: "Something went wrong"})
}

// principal returns the session principal. Routes using it sit behind RequireUser or an admin gate.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
