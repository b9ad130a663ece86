package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhub/task-manager/internal/api/handler"
	"github.com/taskhub/task-manager/internal/api/middleware"
	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// Deps carries everything the router needs, constructed by the composition
// root.
type Deps struct {
	TaskService   ports.TaskService
	AuthService   ports.AuthService
	Notifications ports.NotificationService
	Presence      ports.PresenceStore
	Revocations   middleware.RevocationChecker

	// Mongo and Redis may be nil in memory-storage mode; the readiness
	// probe then skips them.
	Mongo *mongo.Database
	Redis *redis.Client

	JWTSecret string
	// ResetRedirect is the web client URL mailed in recovery links.
	ResetRedirect string

	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("taskmanager"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.ResetRedirect)
	userHandler := handler.NewUserHandler(deps.AuthService)
	taskHandler := handler.NewTaskHandler(deps.TaskService)
	notificationHandler := handler.NewNotificationHandler(deps.Notifications)
	presenceHandler := handler.NewPresenceHandler(deps.Presence)
	dashboardHandler := handler.NewDashboardHandler(deps.TaskService)

	// --- Public routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/reset-password", authHandler.RequestReset)
	e.POST("/auth/reset-password/confirm", authHandler.ConfirmReset)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Protected routes ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret, deps.Revocations))

	v1.POST("/auth/logout", authHandler.Logout)
	v1.GET("/users/me", userHandler.Me)
	v1.PATCH("/users/me", userHandler.UpdateMe)
	v1.GET("/permissions", userHandler.Permissions)

	// Capability gates mirror the permission table; the own-task rules are
	// applied inside the task handler.
	v1.GET("/tasks", taskHandler.List)
	v1.GET("/tasks/calendar", taskHandler.Calendar,
		middleware.RequirePermission(func(p domain.PermissionSet) bool { return p.CanAccessCalendar }))
	v1.GET("/tasks/:id", taskHandler.Get)
	v1.POST("/tasks", taskHandler.Create,
		middleware.RequirePermission(func(p domain.PermissionSet) bool { return p.CanCreateTasks }))
	v1.PATCH("/tasks/:id", taskHandler.Update)
	v1.DELETE("/tasks/:id", taskHandler.Delete,
		middleware.RequirePermission(func(p domain.PermissionSet) bool {
			return p.CanDeleteAllTasks || p.CanDeleteOwnTasks
		}))
	v1.POST("/tasks/:id/toggle", taskHandler.Toggle)

	v1.GET("/notifications", notificationHandler.Inbox)
	v1.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	v1.POST("/notifications/:id/read", notificationHandler.MarkRead)
	v1.DELETE("/notifications/:id", notificationHandler.Remove)

	v1.GET("/presence", presenceHandler.Online)
	v1.POST("/presence/heartbeat", presenceHandler.Heartbeat)

	v1.GET("/dashboard/summary", dashboardHandler.Summary)
	v1.GET("/reports", dashboardHandler.Reports,
		middleware.RequirePermission(func(p domain.PermissionSet) bool { return p.CanAccessReports }))

	return e
}
