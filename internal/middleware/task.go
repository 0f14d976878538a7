package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ymatsuda/taskboard/internal/constants"
	apierrors "github.com/ymatsuda/taskboard/internal/errors"
	"github.com/ymatsuda/taskboard/internal/models"
	"github.com/ymatsuda/taskboard/internal/services"
)

// RequireTask loads the task named by the :id parameter into the request
// context, with creator/assignee resolved. A nonexistent id yields a 404
// before the handler runs, so mutations never silently no-op. The loaded
// task is also the pre-mutation snapshot handlers compare assignees
// against; the load and the mutation are separate statements, so a racing
// delete between them is possible and accepted.
func RequireTask(taskService *services.TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		if taskID == "" {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		task, err := taskService.GetTask(taskID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				apierrors.InternalError(c, "")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask retrieves the preloaded task from context.
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}

	task, ok := value.(*models.Task)
	if !ok {
		return nil, false
	}
	return task, true
}
