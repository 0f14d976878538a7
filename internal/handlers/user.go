package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ymatsuda/taskboard/internal/dto"
	apierrors "github.com/ymatsuda/taskboard/internal/errors"
	"github.com/ymatsuda/taskboard/internal/middleware"
	"github.com/ymatsuda/taskboard/internal/services"
)

// UserHandler serves user listing and profile updates.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers returns the public projection of every registered user.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userService.ListUsers()
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch users")
		return
	}

	c.JSON(http.StatusOK, dto.ToPublicUsers(users))
}

// UpdateMe applies a partial profile update to the caller. The raw body is
// inspected so an explicit null displayName clears it while an absent
// field leaves it untouched.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateProfileInput
	if value, ok := rawReq["username"]; ok {
		username, ok := value.(string)
		if !ok {
			apierrors.BadRequest(c, "username must be a string")
			return
		}
		input.Username = &username
	}
	if value, ok := rawReq["displayName"]; ok {
		if value == nil {
			input.ClearDisplayName = true
		} else if displayName, ok := value.(string); ok {
			input.DisplayName = &displayName
		} else {
			apierrors.BadRequest(c, "displayName must be a string or null")
			return
		}
	}

	user, err := h.userService.UpdateProfile(userID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			apierrors.NotFound(c, err.Error())
		case errors.Is(err, services.ErrUsernameTaken):
			apierrors.Conflict(c, err.Error())
		case errors.Is(err, services.ErrUsernameRequired):
			apierrors.BadRequest(c, err.Error())
		default:
			apierrors.InternalError(c, "Failed to update profile")
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToPublicUser(*user))
}
