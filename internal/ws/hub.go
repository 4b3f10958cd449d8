// Package ws pushes change notifications to admin dashboards so they redraw
// without polling: schedule-set changes, playback state, settings flips.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Event is one notification frame.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Event types.
const (
	EventSchedulesChanged = "schedules_changed"
	EventPlaybackStarted  = "playback_started"
	EventPlaybackStopped  = "playback_stopped"
	EventSettingsChanged  = "settings_changed"
)

// Hub maintains the set of connected dashboard clients and broadcasts
// events to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
}

// NewHub creates an idle hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("total", n).Msg("dashboard client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("total", n).Msg("dashboard client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client send buffer full; drop the connection.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every connected client. Never blocks the
// caller; if the hub is saturated the event is dropped.
func (h *Hub) Broadcast(ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("could not encode event")
		return
	}
	select {
	case h.broadcast <- raw:
	default:
		log.Warn().Str("type", ev.Type).Msg("broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
