package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// NotificationHandler exposes the per-principal notification inbox.
// Inboxes are keyed by the same identifier tasks use for assignment, the
// principal's email.
type NotificationHandler struct {
	service ports.NotificationService
}

func NewNotificationHandler(service ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type inboxResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// Inbox handles GET /v1/notifications — newest first, capped.
//
// @Summary      Notification inbox
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  inboxResponse
// @Router       /v1/notifications [get]
func (h *NotificationHandler) Inbox(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inboxResponse{
		Notifications: h.service.Inbox(p.Email),
		Unread:        h.service.UnreadCount(p.Email),
	})
}

// MarkRead handles POST /v1/notifications/:id/read.
//
// @Summary      Mark one notification read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id  path  string  true  "Notification id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.MarkRead(p.Email, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead handles POST /v1/notifications/read-all.
//
// @Summary      Mark all notifications read
// @Tags         notifications
// @Security     BearerAuth
// @Success      204
// @Router       /v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	h.service.MarkAllRead(p.Email)
	return c.NoContent(http.StatusNoContent)
}

// Remove handles DELETE /v1/notifications/:id.
//
// @Summary      Remove a notification
// @Tags         notifications
// @Security     BearerAuth
// @Param        id  path  string  true  "Notification id"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /v1/notifications/{id} [delete]
func (h *NotificationHandler) Remove(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Remove(p.Email, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
