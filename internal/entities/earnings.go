package entities

import "time"

type EarningsSummary struct {
	Period       string `json:"period"` // today | week | month
	Total        int    `json:"total"`
	Commission   int    `json:"commission"`
	Net          int    `json:"net"`
	SessionCount int    `json:"session_count"`
	Average      int    `json:"average"`
}

type TransactionResponse struct {
	ID         int       `json:"id"`
	SessionID  int       `json:"session_id"`
	Amount     int       `json:"amount"`
	Commission int       `json:"commission"`
	Net        int       `json:"net"`
	PaidOut    bool      `json:"paid_out"`
	CreatedAt  time.Time `json:"created_at"`
}

type PayoutResponse struct {
	PayoutID string `json:"payout_id"`
	Amount   int    `json:"amount"`
}
