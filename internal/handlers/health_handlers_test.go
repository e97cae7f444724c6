package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restopos/internal/caching"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type pingCache struct {
	caching.CacheService
	err error
}

func (c pingCache) Ping(ctx context.Context) error { return c.err }

type bucketFunc func(ctx context.Context, bucket string) (bool, error)

func (f bucketFunc) BucketExists(ctx context.Context, bucket string) (bool, error) { return f(ctx, bucket) }

func runHealth(t *testing.T, h *HealthHandlers) (int, HealthStatus) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, h.HealthCheck(c))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return rec.Code, status
}

func TestHealthCheck_AllHealthy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ok := pingFunc(func(context.Context) error { return nil })
	var checked string
	storage := bucketFunc(func(_ context.Context, bucket string) (bool, error) {
		checked = bucket
		return true, nil
	})
	h := NewHealthHandlers(ok, pingCache{}, storage, "receipts", clock, "1.2.0")
	clock.Advance(90 * time.Second)

	code, status := runHealth(t, h)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1m30s", status.Uptime)
	assert.Equal(t, "1.2.0", status.Version)
	assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy", "storage": "healthy"}, status.Services)
	assert.Equal(t, "receipts", checked)
}

func TestHealthCheck_DegradedAndDisabled(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })
	h := NewHealthHandlers(down, nil, nil, "receipts", clockwork.NewFakeClock(), "1.2.0")

	code, status := runHealth(t, h)

	assert.Equal(t, http.StatusPartialContent, code)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unhealthy", status.Services["database"])
	assert.Equal(t, "disabled", status.Services["redis"])
	assert.Equal(t, "disabled", status.Services["storage"])
}

func TestHealthCheck_MissingBucketIsUnhealthy(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	storage := bucketFunc(func(context.Context, string) (bool, error) { return false, nil })
	h := NewHealthHandlers(ok, pingCache{err: errors.New("redis down")}, storage, "receipts", clockwork.NewFakeClock(), "1.2.0")

	code, status := runHealth(t, h)

	assert.Equal(t, http.StatusPartialContent, code)
	assert.Equal(t, "unhealthy", status.Services["redis"])
	assert.Equal(t, "unhealthy", status.Services["storage"])
}
