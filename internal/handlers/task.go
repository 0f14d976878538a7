package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ymatsuda/taskboard/internal/dto"
	apierrors "github.com/ymatsuda/taskboard/internal/errors"
	"github.com/ymatsuda/taskboard/internal/events"
	"github.com/ymatsuda/taskboard/internal/middleware"
	"github.com/ymatsuda/taskboard/internal/models"
	"github.com/ymatsuda/taskboard/internal/services"
)

// TaskHandler maps task routes onto the task service and triggers the
// broadcaster exactly once per successful mutation (twice for an
// assignment change: updated, then assigned).
type TaskHandler struct {
	taskService *services.TaskService
	publisher   events.Publisher
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, publisher events.Publisher) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		publisher:   publisher,
	}
}

// ListTasks returns every task, newest-created-first.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.taskService.ListTasks()
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskList(tasks))
}

// GetTask returns a single task. The task is loaded (or 404'd) by the
// RequireTask middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskWithRelations(*task))
}

// CreateTask creates a new task owned by the caller.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title        string  `json:"title" binding:"required,max=200"`
		Description  string  `json:"description"`
		DueDate      *string `json:"dueDate"`
		Priority     *string `json:"priority"`
		Status       *string `json:"status"`
		AssignedToID *string `json:"assignedToId"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
		CreatorID:    userID,
	}
	if req.Priority != nil {
		input.Priority = models.TaskPriority(*req.Priority)
	}
	if req.Status != nil {
		input.Status = models.TaskStatus(*req.Status)
	}

	task, err := h.taskService.CreateTask(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	data := dto.ToTaskWithRelations(*task)
	h.publisher.Publish(events.TaskCreated, events.TaskEventPayload{
		TaskID: task.ID,
		Data:   &data,
	})

	c.JSON(http.StatusCreated, data)
}

// UpdateTask applies a partial update. The raw body is inspected so an
// explicit null (dueDate, assignedToId) clears the field while an absent
// field leaves it untouched.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	prev, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := buildUpdateInput(rawReq)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(prev.ID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	data := dto.ToTaskWithRelations(*task)
	h.publisher.Publish(events.TaskUpdated, events.TaskEventPayload{
		TaskID: task.ID,
		Data:   &data,
	})

	if assigneeChanged(prev.AssignedToID, task.AssignedToID) {
		h.publisher.Publish(events.TaskAssigned, events.TaskEventPayload{
			TaskID: task.ID,
			UserID: *task.AssignedToID,
			Data:   &data,
		})
	}

	c.JSON(http.StatusOK, data)
}

// DeleteTask removes a task unconditionally.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, exists := middleware.GetTask(c)
	if !exists {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if err := h.taskService.DeleteTask(task.ID); err != nil {
		respondTaskError(c, err)
		return
	}

	h.publisher.Publish(events.TaskDeleted, events.TaskEventPayload{
		TaskID: task.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// assigneeChanged reports whether the update set a non-null assignee that
// differs from the previous one. Clearing the assignee or re-setting the
// same value is not an assignment.
func assigneeChanged(prev, next *string) bool {
	if next == nil {
		return false
	}
	return prev == nil || *prev != *next
}

// buildUpdateInput translates the raw JSON body into an UpdateTaskInput,
// distinguishing explicit nulls from absent fields.
func buildUpdateInput(rawReq map[string]any) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	if value, ok := rawReq["title"]; ok {
		title, ok := value.(string)
		if !ok {
			return input, errors.New("title must be a string")
		}
		input.Title = &title
	}
	if value, ok := rawReq["description"]; ok {
		description, ok := value.(string)
		if !ok {
			return input, errors.New("description must be a string")
		}
		input.Description = &description
	}
	if value, ok := rawReq["priority"]; ok {
		raw, ok := value.(string)
		if !ok {
			return input, errors.New("priority must be a string")
		}
		priority := models.TaskPriority(raw)
		input.Priority = &priority
	}
	if value, ok := rawReq["status"]; ok {
		raw, ok := value.(string)
		if !ok {
			return input, errors.New("status must be a string")
		}
		status := models.TaskStatus(raw)
		input.Status = &status
	}
	if value, ok := rawReq["dueDate"]; ok {
		if value == nil {
			input.ClearDueDate = true
		} else if raw, ok := value.(string); ok {
			input.DueDate = &raw
		} else {
			return input, errors.New("dueDate must be a string or null")
		}
	}
	if value, ok := rawReq["assignedToId"]; ok {
		if value == nil {
			input.ClearAssignee = true
		} else if raw, ok := value.(string); ok {
			input.AssignedToID = &raw
		} else {
			return input, errors.New("assignedToId must be a string or null")
		}
	}

	return input, nil
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidDueDate),
		errors.Is(err, services.ErrAssigneeNotFound):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
