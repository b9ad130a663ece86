package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// PresenceHandler exposes who is currently active in the workspace.
type PresenceHandler struct {
	store ports.PresenceStore
}

func NewPresenceHandler(store ports.PresenceStore) *PresenceHandler {
	return &PresenceHandler{store: store}
}

type heartbeatRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=online away busy"`
}

type presenceResponse struct {
	Users []domain.PresenceEntry `json:"users"`
}

// Heartbeat handles POST /v1/presence/heartbeat. The client calls this
// periodically; a principal with no heartbeat inside the liveness window
// drops off the online list.
//
// @Summary      Report presence
// @Tags         presence
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  heartbeatRequest  false  "Availability status, defaults to online"
// @Success      204
// @Router       /v1/presence/heartbeat [post]
func (h *PresenceHandler) Heartbeat(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req heartbeatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	status := domain.PresenceStatus(req.Status)
	if !domain.ValidPresence(status) {
		status = domain.PresenceOnline
	}

	if err := h.store.Heartbeat(c.Request().Context(), domain.PresenceEntry{
		UserID: p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Status: status,
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Online handles GET /v1/presence.
//
// @Summary      List active users
// @Tags         presence
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  presenceResponse
// @Router       /v1/presence [get]
func (h *PresenceHandler) Online(c echo.Context) error {
	users, err := h.store.Online(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []domain.PresenceEntry{}
	}
	return c.JSON(http.StatusOK, presenceResponse{Users: users})
}
