package db

import (
	"time"

	"github.com/lib/pq"
)

// Partner KYC statuses.
const (
	KycPending  = "pending"
	KycApproved = "approved"
	KycRejected = "rejected"
)

// Partner availability states. A partner is on_trip iff it holds exactly one
// session that has not reached a terminal state.
const (
	AvailabilityOffline = "offline"
	AvailabilityOnline  = "online"
	AvailabilityOnTrip  = "on_trip"
)

// Session lifecycle states.
const (
	SessionPickupPending = "pickup_pending"
	SessionActive        = "active"
	SessionReturnPending = "return_pending"
	SessionCompleted     = "completed"
	SessionDisputed      = "disputed"
	SessionCanceled      = "canceled"
)

// Parking request and offer states.
const (
	RequestOpen     = "open"
	RequestOffered  = "offered"
	RequestAccepted = "accepted"

	OfferOffered  = "offered"
	OfferAccepted = "accepted"
	OfferRejected = "rejected"
	OfferExpired  = "expired"
)

type Partner struct {
	ID              int
	Name            string
	Phone           string
	Email           string
	City            string
	Zone            string
	KycStatus       string
	Availability    string
	StripeAccountID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type KycDocument struct {
	ID        string
	PartnerID int
	Kind      string
	CreatedAt time.Time
}

type ParkingLocation struct {
	ID            int
	PartnerID     int
	Name          string
	Address       string
	TotalSlots    int
	BaseRate      int
	MinHours      int
	ExtensionRate int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ParkingRequest struct {
	ID            int
	Code          string
	LocationID    int
	OwnerName     string
	OwnerPhone    string
	OwnerEmail    string
	VehiclePlate  string
	VehicleModel  string
	ReservedHours int
	Status        string
	CreatedAt     time.Time
}

type Offer struct {
	ID        string
	RequestID int
	PartnerID int
	Status    string
	Deadline  time.Time
	CreatedAt time.Time
}

type Session struct {
	ID             int
	Code           string
	PartnerID      int
	LocationID     int
	RequestID      int
	OwnerName      string
	OwnerPhone     string
	OwnerEmail     string
	VehiclePlate   string
	VehicleModel   string
	SlotLabel      string
	Status         string
	ReservedHours  int
	MinHours       int
	BaseRate       int
	ExtensionRate  int
	StartTime      *time.Time
	ScheduledEnd   *time.Time
	ReturnedAt     *time.Time
	PickupOdometer int
	ReturnOdometer int
	PickupFuel     int
	ReturnFuel     int
	PickupDamage   pq.StringArray
	ReturnDamage   pq.StringArray
	OtpChallengeID string
	Fare           int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Transaction struct {
	ID         int
	PartnerID  int
	SessionID  int
	Amount     int
	Commission int
	Net        int
	PaidOut    bool
	PayoutID   string
	CreatedAt  time.Time
}

type SupportTicket struct {
	ID          int
	PartnerID   int
	Subject     string
	Category    string
	Description string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ChatMessage struct {
	ID        int
	SessionID int
	Sender    string
	Body      string
	CreatedAt time.Time
}
