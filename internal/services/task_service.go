package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ymatsuda/taskboard/internal/constants"
	"github.com/ymatsuda/taskboard/internal/models"
	"github.com/ymatsuda/taskboard/internal/repository"
	"github.com/ymatsuda/taskboard/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title is too long")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDueDate   = errors.New("invalid due date")
	ErrAssigneeNotFound = errors.New("assigned user does not exist")
)

// TaskService handles task business logic. Every result carries resolved
// creator/assignee relations, reloaded from current user state per call.
type TaskService struct {
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
	}
}

// CreateTaskInput represents input for creating a task. DueDate is the raw
// client string; it is parsed here.
type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      *string
	Priority     models.TaskPriority
	Status       models.TaskStatus
	AssignedToID *string
	CreatorID    string
}

// UpdateTaskInput represents a partial task update. Nil pointer fields are
// untouched; the Clear flags carry an explicit JSON null, which is
// distinguishable from an absent field.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	DueDate       *string
	ClearDueDate  bool
	Priority      *models.TaskPriority
	Status        *models.TaskStatus
	AssignedToID  *string
	ClearAssignee bool
}

// CreateTask creates a task owned by its creator, defaulting priority to
// medium and status to todo when omitted.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if len(title) > constants.MaxTitleLength {
		return nil, ErrTitleTooLong
	}

	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      input.Status,
		CreatorID:   input.CreatorID,
	}

	if input.DueDate != nil && *input.DueDate != "" {
		parsed, err := utils.ParseDueDate(*input.DueDate)
		if err != nil {
			return nil, ErrInvalidDueDate
		}
		task.DueDate = parsed
	}

	if input.AssignedToID != nil && *input.AssignedToID != "" {
		if err := s.ensureUserExists(*input.AssignedToID); err != nil {
			return nil, err
		}
		task.AssignedToID = input.AssignedToID
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID)
}

// GetTask returns a task with its creator and assignee resolved.
func (s *TaskService) GetTask(taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// ListTasks returns all tasks, newest-created-first.
func (s *TaskService) ListTasks() ([]models.Task, error) {
	tasks, err := s.taskRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTask applies only the provided fields. updatedAt is refreshed on
// every call; the creator reference never changes.
func (s *TaskService) UpdateTask(taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if len(title) > constants.MaxTitleLength {
			return nil, ErrTitleTooLong
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		parsed, err := utils.ParseDueDate(*input.DueDate)
		if err != nil {
			return nil, ErrInvalidDueDate
		}
		task.DueDate = parsed
	}
	if input.ClearAssignee {
		task.AssignedToID = nil
		task.AssignedTo = nil
	} else if input.AssignedToID != nil {
		if err := s.ensureUserExists(*input.AssignedToID); err != nil {
			return nil, err
		}
		task.AssignedToID = input.AssignedToID
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID)
}

// DeleteTask deletes a task unconditionally. Deleting an absent id is a
// soft not-found, not an exception.
func (s *TaskService) DeleteTask(taskID string) error {
	existed, err := s.taskRepo.Delete(taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !existed {
		return ErrTaskNotFound
	}

	return nil
}

// ensureUserExists verifies an assignee id references a real user.
func (s *TaskService) ensureUserExists(userID string) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to verify user: %w", err)
	}
	return nil
}
