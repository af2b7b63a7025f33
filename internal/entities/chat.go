package entities

import "time"

type ChatMessageInput struct {
	Body string `json:"body"`
}

type ChatMessageResponse struct {
	ID        int       `json:"id"`
	SessionID int       `json:"session_id"`
	Sender    string    `json:"sender"` // partner | owner
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
