package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const (
	PermAnalysisRun   = "analysis.run"
	PermSessionCreate = "session.create"
	PermSessionView   = "session.view"
	PermSessionDelete = "session.delete"
)

// AllPermissions is granted to the master key user.
var AllPermissions = []string{
	PermAnalysisRun,
	PermSessionCreate,
	PermSessionView,
	PermSessionDelete,
}

func HasPermission(user *AppUser, permission string) bool {
	if user == nil {
		return false
	}
	return slices.Contains(user.Permissions, permission)
}

// RequirePermission rejects requests whose user lacks permission.
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := c.(*AppContext)
			if !ok || ac.User == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			if !HasPermission(ac.User, permission) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "Missing permission " + permission})
			}
			return next(c)
		}
	}
}
