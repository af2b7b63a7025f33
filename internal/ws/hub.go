// Package ws fans chat messages out to the live connections of a session.
package ws

import (
	"log"
	"sync"
)

// Hub maintains the active chat connections grouped by session room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage
}

type roomMessage struct {
	sessionID int
	payload   []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
	}
}

// Run starts the hub's event loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.sessionID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.sessionID] = room
			}
			room[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.sessionID]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
				}
				if len(room) == 0 {
					delete(h.rooms, client.sessionID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[msg.sessionID] {
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer; drop the connection.
					close(client.send)
					delete(h.rooms[msg.sessionID], client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a payload to every connection in the session's room.
func (h *Hub) Broadcast(sessionID int, payload []byte) {
	select {
	case h.broadcast <- roomMessage{sessionID: sessionID, payload: payload}:
	default:
		log.Println("Chat broadcast channel full, dropping message")
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
