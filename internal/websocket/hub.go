package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"wastejobs-backend/internal/models"
)

// Hub maintains active WebSocket connections and routes job events to them
type Hub struct {
	// Registered clients (client ID -> Client); a user may hold several
	clients map[string]*Client

	// Outbound messages waiting to be routed
	broadcast chan *Message

	register   chan *Client
	unregister chan *Client

	// closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// Message is one payload and the audience it goes to.
type Message struct {
	ClientID    string
	UserIDs     []string
	Contractors bool
	Data        []byte
}

// Envelope is the frame format sent to clients.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run routes messages until ctx ends, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			zap.L().Info("websocket: client connected",
				zap.String("client_id", client.ID),
				zap.String("user_id", client.UserID),
				zap.Bool("contractor_feed", client.ContractorFeed),
				zap.Int("clients", total),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				zap.L().Info("websocket: client disconnected",
					zap.String("client_id", client.ID),
					zap.String("user_id", client.UserID),
					zap.Int("clients", len(h.clients)),
				)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message *Message) {
	targets := make(map[string]bool, len(message.UserIDs))
	for _, id := range message.UserIDs {
		if id != "" {
			targets[id] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		if id != message.ClientID && !targets[client.UserID] && !(message.Contractors && client.ContractorFeed) {
			continue
		}
		select {
		case client.send <- message.Data:
		default:
			// Client buffer full, disconnect
			close(client.send)
			delete(h.clients, id)
			zap.L().Warn("websocket: client buffer full, disconnecting",
				zap.String("client_id", id),
				zap.String("user_id", client.UserID),
			)
		}
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Send queues a frame without blocking; it is dropped when the queue is full.
func (h *Hub) Send(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		zap.L().Warn("websocket: broadcast queue full, dropping message")
	}
}

// PublishJobEvent sends the event to the requester and the assigned
// contractor. Newly active jobs also go to every contractor feed.
func (h *Hub) PublishJobEvent(event models.JobEvent) {
	data, err := json.Marshal(Envelope{Type: "job_event", Data: event})
	if err != nil {
		zap.L().Error("websocket: marshal job event", zap.Error(err))
		return
	}
	users := []string{event.Job.RequesterID}
	if event.Job.ContractorID != nil {
		users = append(users, *event.Job.ContractorID)
	}
	h.Send(&Message{
		UserIDs:     users,
		Contractors: event.Type == models.EventJobActivated,
		Data:        data,
	})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// IsUserConnected checks if a user has at least one open connection
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}
