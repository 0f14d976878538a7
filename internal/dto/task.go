package dto

import (
	"time"

	"github.com/ymatsuda/taskboard/internal/models"
)

// TaskWithRelations is the only shape tasks leave the server in: the task
// row plus the public projections of its creator and assignee, resolved at
// response time from current user state.
type TaskWithRelations struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	DueDate      *time.Time          `json:"dueDate"`
	Priority     models.TaskPriority `json:"priority"`
	Status       models.TaskStatus   `json:"status"`
	CreatorID    string              `json:"creatorId"`
	AssignedToID *string             `json:"assignedToId"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Creator      PublicUser          `json:"creator"`
	AssignedTo   *PublicUser         `json:"assignedTo"`
}

// ToTaskWithRelations converts a Task model with preloaded relations.
func ToTaskWithRelations(task models.Task) TaskWithRelations {
	out := TaskWithRelations{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		DueDate:      task.DueDate,
		Priority:     task.Priority,
		Status:       task.Status,
		CreatorID:    task.CreatorID,
		AssignedToID: task.AssignedToID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
		Creator:      ToPublicUser(task.Creator),
	}

	if task.AssignedTo != nil {
		assignee := ToPublicUser(*task.AssignedTo)
		out.AssignedTo = &assignee
	}

	return out
}

// ToTaskList converts a slice of Task models.
func ToTaskList(tasks []models.Task) []TaskWithRelations {
	out := make([]TaskWithRelations, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskWithRelations(t)
	}
	return out
}
