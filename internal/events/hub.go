package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// Conn is the subset of *websocket.Conn the hub writes through.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
}

// Client is a registered realtime connection. UserID is empty for
// connections whose handshake carried no verifiable identity; they still
// receive every broadcast.
type Client struct {
	ID     string
	UserID string
	conn   Conn
}

// NewClient creates a hub client for a connection.
func NewClient(id, userID string, conn Conn) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
	}
}

// Hub fans every published event out to all connected clients. There is no
// per-subscriber filtering, no rooms, and no delivery guarantee: a write
// failure is logged and dropped, and a disconnected client's only recovery
// path is its next full fetch.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[hub] client %s registered (user=%q)", client.ID, client.UserID)
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[clientID]; ok {
		delete(h.clients, clientID)
		log.Printf("[hub] client %s unregistered", clientID)
	}
}

// Publish marshals the payload once and pushes it to every connected
// client, unconditionally.
func (h *Hub) Publish(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[hub] failed to marshal %s payload: %v", event, err)
		return
	}

	frame, err := json.Marshal(Envelope{Event: event, Payload: raw})
	if err != nil {
		log.Printf("[hub] failed to marshal %s envelope: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := client.conn.Write(ctx, websocket.MessageText, frame); err != nil {
			log.Printf("[hub] failed to send %s to client %s: %v", event, client.ID, err)
		}
		cancel()
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
