package entities

import "time"

type TicketInput struct {
	Subject     string `json:"subject"`
	Category    string `json:"category"` // payment | technical | session | other
	Description string `json:"description"`
}

type TicketResponse struct {
	ID          int       `json:"id"`
	Subject     string    `json:"subject"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
