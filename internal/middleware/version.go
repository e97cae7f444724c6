package middleware

import (
	"github.com/labstack/echo/v4"
)

// VersionHeader stamps the API and build versions on every response.
func VersionHeader(apiVersion, build string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-API-Version", apiVersion)
			if build != "" {
				c.Response().Header().Set("X-Server-Version", build)
			}
			return next(c)
		}
	}
}
