package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// UserHandler exposes the current principal's profile and permission set.
type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type updateProfileRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type permissionsResponse struct {
	Role        string               `json:"role"`
	Permissions domain.PermissionSet `json:"permissions"`
}

// Me handles GET /v1/users/me. A missing profile row resolves to the
// default profile instead of an error.
//
// @Summary      Current user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Router       /v1/users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.authService.GetUser(c.Request().Context(), p.ID)
	if err != nil {
		return err
	}
	resp := toUserResponse(user)
	if resp.Email == "" {
		resp.Email = p.Email
	}
	return c.JSON(http.StatusOK, resp)
}

// UpdateMe handles PATCH /v1/users/me.
//
// @Summary      Update current user profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Router       /v1/users/me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.authService.UpdateUser(c.Request().Context(), p.ID, ports.UpdateProfileInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Permissions handles GET /v1/permissions — the caller's resolved
// capability set, what the web client keys its controls on.
//
// @Summary      Resolved permission set for the caller
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  permissionsResponse
// @Router       /v1/permissions [get]
func (h *UserHandler) Permissions(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permissionsResponse{
		Role:        string(p.Role),
		Permissions: p.Permissions,
	})
}
