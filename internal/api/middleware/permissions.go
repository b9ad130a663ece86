package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// RequirePermission gates a route on one capability of the caller's
// resolved permission set. The resolver itself only reports flags; this is
// where they become enforcement. An unrecognized or missing role resolves
// to the guest set, so an unauthenticated request can never gain a
// capability guests lack.
func RequirePermission(capability func(domain.PermissionSet) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if !capability(domain.ResolvePermissions(role)) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
