package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"restopos/internal/caching"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker is satisfied by *minio.Client.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// HealthHandlers handles health check endpoints. cache and storage are optional.
type HealthHandlers struct {
	db      Pinger
	cache   caching.CacheService
	storage BucketChecker
	bucket  string
	clock   clockwork.Clock
	started time.Time
	version string
}

func NewHealthHandlers(db Pinger, cache caching.CacheService, storage BucketChecker, bucket string, clock clockwork.Clock, version string) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		storage: storage,
		bucket:  bucket,
		clock:   clock,
		started: clock.Now(),
		version: version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

// HealthCheck handles GET /health. A failing dependency degrades the status
// without failing the request.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	now := h.clock.Now()
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: now.UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Version:   h.version,
		Uptime:    now.Sub(h.started).Truncate(time.Second).String(),
	}

	check := func(name string, enabled bool, fn func(context.Context) error) {
		switch {
		case !enabled:
			health.Services[name] = "disabled"
		case fn(ctx) != nil:
			health.Services[name] = "unhealthy"
			health.Status = "degraded"
		default:
			health.Services[name] = "healthy"
		}
	}
	check("database", h.db != nil, h.checkDatabase)
	check("redis", h.cache != nil, h.checkRedis)
	check("storage", h.storage != nil, h.checkStorage)

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

// LivenessCheck handles GET /health/live
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": h.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandlers) checkDatabase(ctx context.Context) error {
	return h.db.Ping(ctx)
}

func (h *HealthHandlers) checkRedis(ctx context.Context) error {
	return h.cache.Ping(ctx)
}

func (h *HealthHandlers) checkStorage(ctx context.Context) error {
	ok, err := h.storage.BucketExists(ctx, h.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %s does not exist", h.bucket)
	}
	return nil
}
