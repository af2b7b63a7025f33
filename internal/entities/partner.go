package entities

import "time"

type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	City  string `json:"city"`
	Zone  string `json:"zone"`
}

type LoginRequest struct {
	Phone string `json:"phone"`
}

type LoginChallengeResponse struct {
	ChallengeID string `json:"challenge_id"`
}

type VerifyLoginRequest struct {
	Phone       string `json:"phone"`
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type PartnerResponse struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	City         string    `json:"city"`
	Zone         string    `json:"zone"`
	KycStatus    string    `json:"kyc_status"`
	Availability string    `json:"availability"`
	CreatedAt    time.Time `json:"created_at"`
}

type AvailabilityRequest struct {
	Availability string `json:"availability"`
}

type DashboardResponse struct {
	Availability    string `json:"availability"`
	EarningsToday   int    `json:"earnings_today"`
	ActiveSessions  int    `json:"active_sessions"`
	PendingOffers   int    `json:"pending_offers"`
	OpenTicketCount int    `json:"open_ticket_count"`
}
