package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskhub/task-manager/internal/api/metrics"
	"github.com/taskhub/task-manager/internal/core/domain"
	"github.com/taskhub/task-manager/internal/core/ports"
)

// TaskHandler handles HTTP requests for task operations. Capability checks
// that depend on the specific task (the own-task rules) live here; the
// coarse capability gates are route middleware.
type TaskHandler struct {
	service ports.TaskService
}

func NewTaskHandler(service ports.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List handles GET /v1/tasks with optional status, priority, assignee, and
// search filters.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status    query     string  false  "Filter by status"
// @Param        priority  query     string  false  "Filter by priority"
// @Param        assignee  query     string  false  "Filter by assignee"
// @Param        search    query     string  false  "Search in title and description"
// @Success      200       {object}  taskListResponse
// @Router       /v1/tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	tasks := h.service.List(ports.ListTasksFilter{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Assignee: c.QueryParam("assignee"),
		Search:   c.QueryParam("search"),
	})
	return c.JSON(http.StatusOK, toTaskListResponse(tasks))
}

// Get handles GET /v1/tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task id"
// @Success      200  {object}  taskResponse
// @Failure      404  {object}  map[string]string
// @Router       /v1/tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	task, err := h.service.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Create handles POST /v1/tasks. Assigning to someone else requires the
// assign capability; without it the task lands on the caller.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTaskRequest  true  "Task details"
// @Success      201   {object}  taskResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	assignedTo := req.AssignedTo
	if assignedTo == "" {
		assignedTo = p.Email
	}
	if assignedTo != p.Email && !p.Permissions.CanAssignTasks {
		return domain.ErrForbidden
	}

	task, err := h.service.Create(c.Request().Context(), ports.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssignedTo:  assignedTo,
		Actor:       ports.Actor{Email: p.Email, Name: p.Name},
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(task.Priority)).Inc()
	return c.JSON(http.StatusCreated, toTaskResponse(task))
}

// Update handles PATCH /v1/tasks/:id. Without the edit-all capability only
// the task's creator may update it.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task id"
// @Param        body  body      updateTaskRequest  true  "Fields to change"
// @Success      200   {object}  taskResponse
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/tasks/{id} [patch]
func (h *TaskHandler) Update(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	id := c.Param("id")
	if err := h.authorizeMutation(p, id, p.Permissions.CanEditAllTasks); err != nil {
		return err
	}

	if req.AssignedTo != nil && *req.AssignedTo != p.Email && !p.Permissions.CanAssignTasks {
		return domain.ErrForbidden
	}

	task, err := h.service.Update(c.Request().Context(), id, ports.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
		Tags:        req.Tags,
		Actor:       ports.Actor{Email: p.Email, Name: p.Name},
	})
	if err != nil {
		return err
	}

	metrics.TaskMutationsTotal.WithLabelValues("update").Inc()
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Delete handles DELETE /v1/tasks/:id. Without the delete-all capability
// only the task's creator may delete it.
//
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id  path  string  true  "Task id"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if err := h.authorizeMutation(p, id, p.Permissions.CanDeleteAllTasks); err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id, ports.Actor{Email: p.Email, Name: p.Name}); err != nil {
		return err
	}

	metrics.TaskMutationsTotal.WithLabelValues("delete").Inc()
	return c.NoContent(http.StatusNoContent)
}

// Toggle handles POST /v1/tasks/:id/toggle, cycling the task status.
//
// @Summary      Cycle a task's status
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task id"
// @Success      200  {object}  taskResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	if err := h.authorizeMutation(p, id, p.Permissions.CanEditAllTasks); err != nil {
		return err
	}

	if err := h.service.ToggleStatus(c.Request().Context(), id, ports.Actor{Email: p.Email, Name: p.Name}); err != nil {
		return err
	}

	task, err := h.service.Get(id)
	if err != nil {
		return err
	}

	metrics.TaskMutationsTotal.WithLabelValues("toggle").Inc()
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Calendar handles GET /v1/tasks/calendar?from=&to= — tasks bucketed by due
// date. Dates are YYYY-MM-DD; the default window is the next 30 days.
//
// @Summary      Tasks bucketed by due date
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        from  query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to    query     string  false  "End date (YYYY-MM-DD)"
// @Success      200   {object}  calendarResponse
// @Failure      400   {object}  map[string]string
// @Router       /v1/tasks/calendar [get]
func (h *TaskHandler) Calendar(c echo.Context) error {
	now := time.Now().UTC()
	from := now.Truncate(24 * time.Hour)
	to := from.Add(30 * 24 * time.Hour)

	var err error
	if s := c.QueryParam("from"); s != "" {
		if from, err = time.Parse("2006-01-02", s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from must be YYYY-MM-DD")
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = time.Parse("2006-01-02", s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		// Include the whole end day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	buckets := h.service.CalendarRange(from, to)
	resp := calendarResponse{
		From:    from.Format("2006-01-02"),
		To:      to.Format("2006-01-02"),
		Buckets: make([]calendarBucket, 0, len(buckets)),
	}
	for _, b := range buckets {
		cb := calendarBucket{Date: b.Date, Tasks: make([]taskResponse, 0, len(b.Tasks))}
		for _, t := range b.Tasks {
			cb.Tasks = append(cb.Tasks, toTaskResponse(t))
		}
		resp.Buckets = append(resp.Buckets, cb)
	}
	return c.JSON(http.StatusOK, resp)
}

// authorizeMutation applies the own-task rule: a principal without the
// *All* capability may only touch tasks they created. The lookup doubles as
// the 404 check, so a missing id is reported instead of silently ignored.
func (h *TaskHandler) authorizeMutation(p principal, id string, hasAll bool) error {
	task, err := h.service.Get(id)
	if err != nil {
		return err
	}
	if hasAll {
		return nil
	}
	if task.CreatedBy != p.Email {
		return domain.ErrForbidden
	}
	return nil
}
