package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	dom "Tripboard/internal/domain"
	"Tripboard/internal/due"
	"Tripboard/internal/dto"
	"Tripboard/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTaskRequest  true  "Task body"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.AddTask(c.Request.Context(), dom.Task{
		ID:           strings.TrimSpace(req.ID),
		Title:        req.Title,
		Category:     req.Category,
		Assignee:     req.Assignee,
		Status:       dom.ParseStatus(req.Status),
		Details:      req.Details,
		Deadline:     req.Deadline.Ptr(),
		ReminderLead: req.ReminderLead,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(t, h.svc.Now()))
}

// List godoc
// @Summary      List tasks, newest first
// @Tags         tasks
// @Produce      json
// @Param        assignee  query     string  false  "Only tasks for this assignee"
// @Param        status    query     string  false  "Only tasks with this status"
// @Success      200  {object}  dto.ListTasksResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	assignee := strings.TrimSpace(c.Query("assignee"))
	status := strings.TrimSpace(c.Query("status"))
	list := h.svc.Tasks()
	out := list[:0]
	for _, t := range list {
		if assignee != "" && t.Assignee != assignee {
			continue
		}
		if status != "" && t.Status != dom.ParseStatus(status) {
			continue
		}
		out = append(out, t)
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{Items: tasksToResponses(out, h.svc.Now())})
}

// GetByID godoc
// @Summary      Get a task by ID
// @Tags         tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	t, err := h.svc.Task(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t, h.svc.Now()))
}

// Update godoc
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      string  true  "Task ID"
// @Param        body  body      dto.UpdateTaskRequest  true  "Partial update"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.Modify(c.Request.Context(), c.Param("id"), func(t *dom.Task) bool {
		applyUpdate(t, req)
		return true
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t, h.svc.Now()))
}

func applyUpdate(t *dom.Task, req dto.UpdateTaskRequest) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Assignee != nil {
		t.Assignee = *req.Assignee
	}
	if req.Status != nil {
		t.Status = dom.ParseStatus(*req.Status)
	}
	if req.Details.Set {
		t.Details = req.Details.Value
	}
	if req.Deadline.Set {
		t.Deadline = req.Deadline.Ptr()
	}
	if req.ReminderLead.Set {
		t.ReminderLead = req.ReminderLead.Value
	}
}

// Delete godoc
// @Summary      Delete a task
// @Tags         tasks
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Complete godoc
// @Summary      Mark a task as done
// @Tags         tasks
// @Produce      json
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	t, err := h.svc.Modify(c.Request.Context(), c.Param("id"), func(t *dom.Task) bool {
		if t.Status == dom.StatusDone {
			return false
		}
		t.Status = dom.StatusDone
		return true
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t, h.svc.Now()))
}

// Overdue godoc
// @Summary      List overdue tasks
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  dto.ListTasksResponse
// @Router       /tasks/overdue [get]
func (h *TaskHandler) Overdue(c *gin.Context) {
	h.filtered(c, func(s due.State) bool { return s.Overdue })
}

// DueSoon godoc
// @Summary      List tasks due within the next four hours
// @Tags         tasks
// @Produce      json
// @Success      200  {object}  dto.ListTasksResponse
// @Router       /tasks/due-soon [get]
func (h *TaskHandler) DueSoon(c *gin.Context) {
	h.filtered(c, func(s due.State) bool { return s.DueSoon })
}

func (h *TaskHandler) filtered(c *gin.Context, keep func(due.State) bool) {
	now := h.svc.Now()
	items := []dto.TaskResponse{}
	for _, t := range h.svc.Tasks() {
		if t.Deadline == nil || t.Status == dom.StatusDone {
			continue
		}
		if keep(due.Classify(t, now)) {
			items = append(items, taskToResponse(t, now))
		}
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{Items: items})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrTaskExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidLead), errors.Is(err, service.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrServiceClose):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func taskToResponse(t dom.Task, now time.Time) dto.TaskResponse {
	state := due.Classify(t, now)
	return dto.TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Category:     t.Category,
		Assignee:     t.Assignee,
		Status:       string(t.Status),
		Details:      t.Details,
		Deadline:     t.Deadline,
		ReminderLead: t.ReminderLead,
		ReminderSent: t.ReminderSent,
		Due:          dto.DueResponse{State: state, Label: state.Label()},
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func tasksToResponses(list []dom.Task, now time.Time) []dto.TaskResponse {
	out := make([]dto.TaskResponse, len(list))
	for i := range list {
		out[i] = taskToResponse(list[i], now)
	}
	return out
}
