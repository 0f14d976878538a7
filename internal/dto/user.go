package dto

import (
	"time"

	"github.com/ymatsuda/taskboard/internal/models"
)

// PublicUser is the user projection exposed by the API and broadcast
// payloads. It has no credential field at all, so a password hash can
// never leak through serialization.
type PublicUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToPublicUser converts a User model to its public projection.
func ToPublicUser(user models.User) PublicUser {
	return PublicUser{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

// ToPublicUsers converts a slice of User models.
func ToPublicUsers(users []models.User) []PublicUser {
	out := make([]PublicUser, len(users))
	for i, u := range users {
		out[i] = ToPublicUser(u)
	}
	return out
}
