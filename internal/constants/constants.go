package constants

import "time"

// Session
const (
	SessionCookieName = "task_session"
	SessionTokenTTL   = 7 * 24 * time.Hour
)

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserEmail = "user_email"
	ContextKeyTask      = "task"
)

// Validation bounds
const (
	MinPasswordLength = 8
	MaxTitleLength    = 200
	MaxUsernameLength = 50
)
