package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/daap14/tempaccess/internal/api/middleware"
	"github.com/daap14/tempaccess/internal/api/response"
)

// pingTimeout bounds each dependency check.
const pingTimeout = 2 * time.Second

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. db checks Postgres, cache checks Redis.
func NewHealthHandler(db, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, version: version}
}

type dependencyStatus struct {
	Connected bool `json:"connected"`
}

type healthData struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Database dependencyStatus `json:"database"`
	Redis    dependencyStatus `json:"redis"`
}

// ServeHTTP handles the health check request. A failed dependency reports
// "degraded" with status 503.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: dependencyStatus{Connected: h.check(r.Context(), "database", h.db)},
		Redis:    dependencyStatus{Connected: h.check(r.Context(), "redis", h.cache)},
	}

	status := http.StatusOK
	if !data.Database.Connected || !data.Redis.Connected {
		data.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	response.Success(w, status, data, requestID)
}

func (h *HealthHandler) check(ctx context.Context, name string, p Pinger) bool {
	if p == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		slog.Warn("health: dependency unreachable", "dependency", name, "error", err)
		return false
	}
	return true
}
