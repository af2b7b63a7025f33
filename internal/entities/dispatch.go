package entities

import "time"

type ParkingRequestInput struct {
	LocationID    int    `json:"location_id"`
	OwnerName     string `json:"owner_name"`
	OwnerPhone    string `json:"owner_phone"`
	OwnerEmail    string `json:"owner_email"`
	VehiclePlate  string `json:"vehicle_plate"`
	VehicleModel  string `json:"vehicle_model"`
	ReservedHours int    `json:"reserved_hours"`
}

type ParkingRequestResponse struct {
	ID            int       `json:"id"`
	Code          string    `json:"code"`
	LocationID    int       `json:"location_id"`
	OwnerName     string    `json:"owner_name"`
	VehiclePlate  string    `json:"vehicle_plate"`
	VehicleModel  string    `json:"vehicle_model"`
	ReservedHours int       `json:"reserved_hours"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

type OfferInput struct {
	PartnerID int `json:"partner_id"`
}

type OfferResponse struct {
	OfferID   string    `json:"offer_id"`
	RequestID int       `json:"request_id"`
	Status    string    `json:"status"`
	Deadline  time.Time `json:"deadline"`
}
