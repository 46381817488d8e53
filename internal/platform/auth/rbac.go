package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that rejects callers not holding one of roles.
// Unauthenticated requests get 401, authenticated callers with the wrong role 403.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, r := range roles {
				if caller.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

// ContextCaller returns the authenticated caller for a handler, or a 401.
func ContextCaller(c echo.Context) (Caller, error) {
	caller, ok := CallerFromContext(c.Request().Context())
	if !ok {
		return Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return caller, nil
}
