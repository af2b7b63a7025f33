package entities

import "time"

// InspectionReport is recorded once at pickup and once at return. Photos are
// keyed by angle (front, back, left, right), base64 encoded.
type InspectionReport struct {
	Odometer      int               `json:"odometer"`
	FuelPercent   int               `json:"fuel_percent"`
	DamageMarkers []string          `json:"damage_markers"`
	Photos        map[string]string `json:"photos"`
}

type InspectionConfirmRequest struct {
	OTPCode    string           `json:"otp_code"`
	Inspection InspectionReport `json:"inspection"`
}

type SessionResponse struct {
	ID            int        `json:"id"`
	Code          string     `json:"code"`
	LocationID    int        `json:"location_id"`
	OwnerName     string     `json:"owner_name"`
	VehiclePlate  string     `json:"vehicle_plate"`
	VehicleModel  string     `json:"vehicle_model"`
	SlotLabel     string     `json:"slot_label"`
	Status        string     `json:"status"`
	ReservedHours int        `json:"reserved_hours"`
	BaseRate      int        `json:"base_rate"`
	ExtensionRate int        `json:"extension_rate"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	ScheduledEnd  *time.Time `json:"scheduled_end,omitempty"`
	ReturnedAt    *time.Time `json:"returned_at,omitempty"`
	Fare          int        `json:"fare"`
	CreatedAt     time.Time  `json:"created_at"`
}

type OTPChallengeResponse struct {
	ChallengeID string `json:"challenge_id"`
}
