package events

import (
	"encoding/json"

	"github.com/ymatsuda/taskboard/internal/dto"
)

// Event names pushed to connected clients. An assignment change always
// produces both TaskUpdated and TaskAssigned, in that order: updated is
// the generic cache-invalidation cue, assigned the directed notification.
const (
	TaskCreated  = "task:created"
	TaskUpdated  = "task:updated"
	TaskAssigned = "task:assigned"
	TaskDeleted  = "task:deleted"
)

// Envelope is the wire frame for server→client pushes.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// TaskEventPayload carries a mutation event. UserID is set only on
// task:assigned (the new assignee); Data is absent on task:deleted.
type TaskEventPayload struct {
	TaskID string                 `json:"taskId"`
	UserID string                 `json:"userId,omitempty"`
	Data   *dto.TaskWithRelations `json:"data,omitempty"`
}

// Publisher is the fan-out primitive the gateway triggers after each
// successful mutation.
type Publisher interface {
	Publish(event string, payload any)
}
