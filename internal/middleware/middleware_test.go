package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restopos/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "kitchen-secret"

func newServer(logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.Use(RequestLogger(logger))
	g := e.Group("/v1", VersionHeader("v1", "1.2.0"), StaffAuth(testSecret))
	g.GET("/whoami", func(c echo.Context) error {
		staffID, ok := common.GetStaffIDFromContext(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, staffID.String())
	})
	return e
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStaffAuth_AcceptsValidToken(t *testing.T) {
	staffID := uuid.New()
	token, err := IssueStaffToken(testSecret, staffID, "WAITER", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	rec := call(newServer(zerolog.Nop()), token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, staffID.String(), rec.Body.String())
	assert.Equal(t, "v1", rec.Header().Get("X-API-Version"))
	assert.Equal(t, "1.2.0", rec.Header().Get("X-Server-Version"))
}

func TestStaffAuth_FallsBackToSubject(t *testing.T) {
	staffID := uuid.New()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: staffID.String()})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec := call(newServer(zerolog.Nop()), signed)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, staffID.String(), rec.Body.String())
}

func TestStaffAuth_Rejects(t *testing.T) {
	expired, err := IssueStaffToken(testSecret, uuid.New(), "", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	require.NoError(t, err)
	wrongKey, err := IssueStaffToken("other-secret", uuid.New(), "", jwt.RegisteredClaims{})
	require.NoError(t, err)
	noStaff, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "bob"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	e := newServer(zerolog.Nop())
	for name, token := range map[string]string{
		"missing":   "",
		"expired":   expired,
		"wrong key": wrongKey,
		"no staff":  noStaff,
		"garbage":   "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(e, token).Code)
		})
	}
}

func TestStaffAuth_RequiresBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	newServer(zerolog.Nop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestLogger_LogsStatusAndStaff(t *testing.T) {
	var buf bytes.Buffer
	e := newServer(zerolog.New(&buf))
	staffID := uuid.New()
	token, err := IssueStaffToken(testSecret, staffID, "", jwt.RegisteredClaims{})
	require.NoError(t, err)

	rec := call(e, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "/v1/whoami", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, staffID.String(), line["staff_id"])
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), line["request_id"])
}

func TestRequestLogger_LogsRejectedRequestAsWarning(t *testing.T) {
	var buf bytes.Buffer
	rec := call(newServer(zerolog.New(&buf)), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, float64(http.StatusUnauthorized), line["status"])
	assert.NotContains(t, line, "staff_id")
}
