package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event types pushed to staff dashboards.
const (
	EventOrderStatus = "order_status"
	EventOrderReady  = "order_ready"
	EventTableStatus = "table_status"
	EventHelpRequest = "help_request"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event. A payload that cannot marshal is
// a programming error; the event is sent with a null payload.
func NewEvent(eventType string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("null")
	}
	return Event{Type: eventType, Payload: raw}
}

// cafeEvent is an internal struct for routing events to specific cafes
type cafeEvent struct {
	CafeID uuid.UUID
	Event  Event
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	// Registered clients by cafe ID
	rooms map[uuid.UUID]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *cafeEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *cafeEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.cafeID] == nil {
				h.rooms[client.cafeID] = make(map[*Client]bool)
			}
			h.rooms[client.cafeID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.cafeID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.cafeID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.CafeID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients in this cafe's room
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.CafeID], client)
					if len(h.rooms[event.CafeID]) == 0 {
						delete(h.rooms, event.CafeID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToCafe sends an event to all clients subscribed to a specific cafe
// This is the public API for handlers to broadcast events
func (h *Hub) BroadcastToCafe(cafeID uuid.UUID, event Event) {
	h.broadcast <- &cafeEvent{
		CafeID: cafeID,
		Event:  event,
	}
}
