// Package client implements the per-client reconciliation logic: it treats
// every pushed event as a doorbell, not a payload to trust, and always
// re-reads canonical state from the task list endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/ymatsuda/taskboard/internal/constants"
	"github.com/ymatsuda/taskboard/internal/dto"
	"github.com/ymatsuda/taskboard/internal/events"
)

// DefaultNotificationTTL is how long a notification stays visible before
// it auto-dismisses.
const DefaultNotificationTTL = 5 * time.Second

// Notification is an ephemeral user-facing notice derived from a push.
// Each one carries a freshly generated id, so no two share one.
type Notification struct {
	ID        string
	TaskID    string
	Message   string
	CreatedAt time.Time
}

// Reconciler keeps a client's local task view in sync with the server. Its
// cache is always either fully fresh or known-stale-until-refetch, never
// partially reconciled.
type Reconciler struct {
	baseURL    string
	httpClient *http.Client

	// NotifyOnUpdate mirrors the dashboard behavior of raising a generic
	// notice on every task:updated regardless of relevance, alongside the
	// directed task:assigned matching. Off by default.
	NotifyOnUpdate bool

	// OnNotification, when set, is invoked for each derived notification.
	OnNotification func(Notification)

	notificationTTL time.Duration

	mu            sync.Mutex
	userID        string
	tasks         []dto.TaskWithRelations
	stale         bool
	notifications []Notification
}

// New creates a Reconciler against the given server base URL.
func New(baseURL string) (*Reconciler, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Reconciler{
		baseURL:         baseURL,
		httpClient:      &http.Client{Jar: jar},
		notificationTTL: DefaultNotificationTTL,
	}, nil
}

// Login authenticates against the gateway and stores the session cookie
// and the caller's identity for notification matching.
func (r *Reconciler) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var user dto.PublicUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	r.mu.Lock()
	r.userID = user.ID
	r.mu.Unlock()

	return nil
}

// Listen connects to the realtime channel and processes pushes until the
// context is cancelled or the connection drops. The session token is sent
// as an explicit query parameter when available, with the cookie header as
// fallback.
func (r *Reconciler) Listen(ctx context.Context) error {
	wsURL := r.baseURL + "/api/ws"
	if token := r.sessionToken(); token != "" {
		wsURL += "?token=" + url.QueryEscape(token)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to connect realtime channel: %w", err)
	}
	defer conn.CloseNow()

	// Initial full fetch so the cache starts fresh.
	if err := r.refetch(ctx); err != nil {
		return err
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var envelope events.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		r.handleEvent(ctx, envelope.Event, envelope.Payload)
	}
}

// handleEvent merges one push into local state. Any task event invalidates
// the cached list and triggers a full refetch; field-level merging is
// never attempted.
func (r *Reconciler) handleEvent(ctx context.Context, event string, payload json.RawMessage) {
	switch event {
	case events.TaskCreated, events.TaskUpdated, events.TaskAssigned, events.TaskDeleted:
	default:
		return
	}

	r.mu.Lock()
	r.stale = true
	r.mu.Unlock()

	var p events.TaskEventPayload
	if err := json.Unmarshal(payload, &p); err == nil {
		r.deriveNotification(event, p)
	}

	// A failed refetch leaves the cache flagged stale; the next event
	// retries. Existing cached state is never rolled back.
	_ = r.refetch(ctx)
}

// deriveNotification applies the id-matching rule: task:assigned notifies
// only the matched user; task:updated raises a generic notice only in
// dashboard mode. Other events never notify by themselves.
func (r *Reconciler) deriveNotification(event string, p events.TaskEventPayload) {
	switch event {
	case events.TaskAssigned:
		r.mu.Lock()
		matched := r.userID != "" && p.UserID == r.userID
		r.mu.Unlock()
		if !matched {
			return
		}
		title := p.TaskID
		if p.Data != nil {
			title = p.Data.Title
		}
		r.push(Notification{
			ID:        uuid.NewString(),
			TaskID:    p.TaskID,
			Message:   fmt.Sprintf("You were assigned to %q", title),
			CreatedAt: time.Now(),
		})
	case events.TaskUpdated:
		if !r.NotifyOnUpdate {
			return
		}
		r.push(Notification{
			ID:        uuid.NewString(),
			TaskID:    p.TaskID,
			Message:   "A task was updated",
			CreatedAt: time.Now(),
		})
	}
}

func (r *Reconciler) push(n Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()

	if r.OnNotification != nil {
		r.OnNotification(n)
	}
}

// refetch re-reads the full task list from the gateway.
func (r *Reconciler) refetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/tasks", nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("task fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("task fetch failed: status %d", resp.StatusCode)
	}

	var tasks []dto.TaskWithRelations
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return fmt.Errorf("failed to decode task list: %w", err)
	}

	r.mu.Lock()
	r.tasks = tasks
	r.stale = false
	r.mu.Unlock()

	return nil
}

// Tasks returns the current cached task list.
func (r *Reconciler) Tasks() []dto.TaskWithRelations {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]dto.TaskWithRelations, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// Stale reports whether the cache is known-stale pending a refetch.
func (r *Reconciler) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

// Notifications returns the live notifications, pruning any past their TTL.
func (r *Reconciler) Notifications() []Notification {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.notifications[:0]
	for _, n := range r.notifications {
		if now.Sub(n.CreatedAt) < r.notificationTTL {
			live = append(live, n)
		}
	}
	r.notifications = live

	out := make([]Notification, len(live))
	copy(out, live)
	return out
}

// Dismiss removes a single notification by id.
func (r *Reconciler) Dismiss(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.notifications {
		if n.ID == id {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return
		}
	}
}

// sessionToken pulls the session cookie value from the jar, if present.
func (r *Reconciler) sessionToken() string {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range r.httpClient.Jar.Cookies(u) {
		if cookie.Name == constants.SessionCookieName {
			return cookie.Value
		}
	}
	return ""
}
