package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ymatsuda/taskboard/internal/models"
	"github.com/ymatsuda/taskboard/internal/repository"
	"gorm.io/gorm"
)

var ErrUsernameRequired = errors.New("username is required")

// UserService handles user listing and profile updates.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// ListUsers returns every registered user.
func (s *UserService) ListUsers() ([]models.User, error) {
	users, err := s.userRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateProfileInput represents a partial profile update. Pointer fields
// left nil are untouched; ClearDisplayName distinguishes an explicit null
// from an absent field.
type UpdateProfileInput struct {
	Username         *string
	DisplayName      *string
	ClearDisplayName bool
}

// UpdateProfile applies the provided fields to the user's profile. Task
// enrichment reads user rows fresh on every fetch, so a rename is visible
// on the next task read without touching task rows.
func (s *UserService) UpdateProfile(userID string, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, ErrUsernameRequired
		}
		if username != user.Username {
			if _, err := s.userRepo.FindByUsername(username); err == nil {
				return nil, ErrUsernameTaken
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			user.Username = username
		}
	}

	if input.ClearDisplayName {
		user.DisplayName = nil
	} else if input.DisplayName != nil {
		user.DisplayName = input.DisplayName
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}
