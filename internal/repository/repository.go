package repository

import (
	"github.com/ymatsuda/taskboard/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// List retrieves all users
	List() ([]models.User, error)

	// Update updates a user
	Update(user *models.User) error
}

// TaskRepository defines the interface for task data access.
// Every read resolves the creator and assignee relations fresh from the
// store; enrichment is never cached.
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with creator/assignee resolved
	FindByID(id string) (*models.Task, error)

	// List retrieves all tasks, newest-created-first, with relations resolved
	List() ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete removes a task. Returns true iff a row existed and was removed.
	Delete(id string) (bool, error)
}
