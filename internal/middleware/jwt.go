package middleware

import (
	"context"
	"net/http"
	"strings"

	"restopos/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// StaffClaims are the claims carried by a terminal's staff token.
type StaffClaims struct {
	StaffID string `json:"staff_id"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// StaffAuth validates an HMAC signed bearer token and stores the staff id in
// the request context under common.StaffIDKey.
func StaffAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			claims := &StaffClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			subject := claims.StaffID
			if subject == "" {
				subject = claims.Subject
			}
			staffID, err := uuid.Parse(subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid staff_id in token")
			}

			ctx := context.WithValue(c.Request().Context(), common.StaffIDKey, staffID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("staff_role", claims.Role)

			return next(c)
		}
	}
}

// IssueStaffToken signs a token for staffID. Used by the enrolment tooling and tests.
func IssueStaffToken(secret string, staffID uuid.UUID, role string, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, StaffClaims{
		StaffID:          staffID.String(),
		Role:             role,
		RegisteredClaims: claims,
	})
	return token.SignedString([]byte(secret))
}
