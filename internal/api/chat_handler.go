package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"valetpartner/internal/auth"
	"valetpartner/internal/db"
	"valetpartner/internal/entities"
	"valetpartner/internal/repository"
	"valetpartner/internal/service"
	"valetpartner/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth already gates the endpoint; the apps connect from webviews.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatHandler serves the per-session owner chat: message history over REST
// and live messages over a websocket room.
type ChatHandler struct {
	Sessions *service.SessionService
	Messages *repository.ChatRepository
	Hub      *ws.Hub
}

func NewChatHandler(sessions *service.SessionService, messages *repository.ChatRepository, hub *ws.Hub) *ChatHandler {
	return &ChatHandler{Sessions: sessions, Messages: messages, Hub: hub}
}

func chatMessageResponse(m *db.ChatMessage) entities.ChatMessageResponse {
	return entities.ChatMessageResponse{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender:    m.Sender,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.Sessions.Get(auth.PartnerID(r), id); err != nil {
		writeError(w, err)
		return
	}
	messages, err := h.Messages.ListBySession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]entities.ChatMessageResponse, 0, len(messages))
	for i := range messages {
		result = append(result, chatMessageResponse(&messages[i]))
	}
	writeJSON(w, http.StatusOK, result)
}

// Connect upgrades the request to a websocket bound to the session's room.
// Inbound frames are persisted as partner messages and fanned back out.
func (h *ChatHandler) Connect(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.Sessions.Get(auth.PartnerID(r), id); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Chat upgrade failed for session %d: %v", id, err)
		return
	}

	client := ws.NewClient(h.Hub, conn, id, func(payload []byte) {
		var in entities.ChatMessageInput
		if err := json.Unmarshal(payload, &in); err != nil || in.Body == "" {
			return
		}
		msg := &db.ChatMessage{SessionID: id, Sender: "partner", Body: in.Body}
		if err := h.Messages.Insert(msg); err != nil {
			log.Printf("Error persisting chat message for session %d: %v", id, err)
			return
		}
		out, err := json.Marshal(chatMessageResponse(msg))
		if err != nil {
			return
		}
		h.Hub.Broadcast(id, out)
	})
	client.Serve()
}
