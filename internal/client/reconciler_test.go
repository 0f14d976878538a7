package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ymatsuda/taskboard/internal/dto"
	"github.com/ymatsuda/taskboard/internal/events"
)

// newTestReconciler wires a reconciler against a stub gateway that serves
// the given task list.
func newTestReconciler(t *testing.T, tasks []dto.TaskWithRelations) (*Reconciler, *int) {
	t.Helper()

	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/tasks" {
			http.NotFound(w, req)
			return
		}
		fetches++
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(tasks))
	}))
	t.Cleanup(server.Close)

	r, err := New(server.URL)
	require.NoError(t, err)
	return r, &fetches
}

func assignedPayload(t *testing.T, taskID, userID, title string) json.RawMessage {
	t.Helper()

	raw, err := json.Marshal(events.TaskEventPayload{
		TaskID: taskID,
		UserID: userID,
		Data:   &dto.TaskWithRelations{ID: taskID, Title: title},
	})
	require.NoError(t, err)
	return raw
}

func TestReconciler_EventTriggersRefetch(t *testing.T) {
	serverTasks := []dto.TaskWithRelations{{ID: "t1", Title: "from server"}}
	r, fetches := newTestReconciler(t, serverTasks)

	payload, err := json.Marshal(events.TaskEventPayload{TaskID: "t1"})
	require.NoError(t, err)
	r.handleEvent(context.Background(), events.TaskCreated, payload)

	// The pushed payload is never merged; the cache comes from the refetch.
	require.Equal(t, 1, *fetches)
	require.False(t, r.Stale())
	tasks := r.Tasks()
	require.Len(t, tasks, 1)
	require.Equal(t, "from server", tasks[0].Title)
}

func TestReconciler_UnknownEventIsIgnored(t *testing.T) {
	r, fetches := newTestReconciler(t, nil)

	r.handleEvent(context.Background(), "task:archived", json.RawMessage(`{}`))

	require.Equal(t, 0, *fetches)
	require.False(t, r.Stale())
	require.Empty(t, r.Notifications())
}

func TestReconciler_FailedRefetchLeavesCacheStale(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	r, err := New(server.URL)
	require.NoError(t, err)

	r.handleEvent(context.Background(), events.TaskUpdated, json.RawMessage(`{"taskId":"t1"}`))
	require.True(t, r.Stale())
}

func TestReconciler_AssignedNotifiesMatchedUserOnly(t *testing.T) {
	r, _ := newTestReconciler(t, nil)
	r.userID = "u2"

	var delivered []Notification
	r.OnNotification = func(n Notification) {
		delivered = append(delivered, n)
	}

	ctx := context.Background()
	r.handleEvent(ctx, events.TaskAssigned, assignedPayload(t, "t1", "u1", "someone else's task"))
	require.Empty(t, delivered, "assignment for another user stays silent")

	r.handleEvent(ctx, events.TaskAssigned, assignedPayload(t, "t2", "u2", "review the release"))
	require.Len(t, delivered, 1)
	require.Equal(t, "t2", delivered[0].TaskID)
	require.Contains(t, delivered[0].Message, "review the release")
	require.NotEmpty(t, delivered[0].ID)
}

func TestReconciler_NotificationIDsAreUnique(t *testing.T) {
	r, _ := newTestReconciler(t, nil)
	r.userID = "u2"

	ctx := context.Background()
	r.handleEvent(ctx, events.TaskAssigned, assignedPayload(t, "t1", "u2", "one"))
	r.handleEvent(ctx, events.TaskAssigned, assignedPayload(t, "t1", "u2", "two"))

	notifications := r.Notifications()
	require.Len(t, notifications, 2)
	require.NotEqual(t, notifications[0].ID, notifications[1].ID)
}

func TestReconciler_UpdateNotifiesOnlyInDashboardMode(t *testing.T) {
	payload := json.RawMessage(`{"taskId":"t1"}`)
	ctx := context.Background()

	quiet, _ := newTestReconciler(t, nil)
	quiet.handleEvent(ctx, events.TaskUpdated, payload)
	require.Empty(t, quiet.Notifications())

	dashboard, _ := newTestReconciler(t, nil)
	dashboard.NotifyOnUpdate = true
	dashboard.handleEvent(ctx, events.TaskUpdated, payload)
	require.Len(t, dashboard.Notifications(), 1)
}

func TestReconciler_Dismiss(t *testing.T) {
	r, _ := newTestReconciler(t, nil)
	r.userID = "u2"

	ctx := context.Background()
	r.handleEvent(ctx, events.TaskAssigned, assignedPayload(t, "t1", "u2", "keep"))
	r.handleEvent(ctx, events.TaskAssigned, assignedPayload(t, "t2", "u2", "dismiss"))

	notifications := r.Notifications()
	require.Len(t, notifications, 2)

	r.Dismiss(notifications[1].ID)
	remaining := r.Notifications()
	require.Len(t, remaining, 1)
	require.Equal(t, notifications[0].ID, remaining[0].ID)
}

func TestReconciler_NotificationsExpire(t *testing.T) {
	r, _ := newTestReconciler(t, nil)
	r.userID = "u2"
	r.notificationTTL = 10 * time.Millisecond

	r.handleEvent(context.Background(), events.TaskAssigned, assignedPayload(t, "t1", "u2", "fleeting"))
	require.Len(t, r.Notifications(), 1)

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, r.Notifications(), "notifications auto-dismiss after the TTL")
}
