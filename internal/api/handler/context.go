package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-manager/internal/core/domain"
)

// principal is the authenticated caller extracted from the Auth middleware's
// context values.
type principal struct {
	ID    string
	Email string
	Name  string
	Role  domain.Role
	// Permissions is resolved once per request from the normalized role.
	Permissions domain.PermissionSet
	// TokenID is the jti of the presented token, used for sign-out.
	TokenID string
}

// ctxPrincipal extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call: the subject must be
// non-empty (presence proves the middleware ran). The role is normalized
// here, at the boundary, so downstream code never sees a raw role string.
func ctxPrincipal(c echo.Context) (principal, error) {
	id, _ := c.Get("user_id").(string)
	if id == "" {
		return principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	email, _ := c.Get("email").(string)
	name, _ := c.Get("name").(string)
	roleStr, _ := c.Get("role").(string)
	jti, _ := c.Get("jti").(string)

	role := domain.NormalizeRole(roleStr)
	return principal{
		ID:          id,
		Email:       email,
		Name:        name,
		Role:        role,
		Permissions: role.Permissions(),
		TokenID:     jti,
	}, nil
}
