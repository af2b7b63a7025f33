package entities

type LocationInput struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	TotalSlots    int    `json:"total_slots"`
	BaseRate      int    `json:"base_rate"`
	MinHours      int    `json:"min_hours"`
	ExtensionRate int    `json:"extension_rate"`
	Active        bool   `json:"active"`
}

// LocationStatus includes the derived slot availability:
// available_slots = total_slots - count(active sessions at the location).
type LocationStatus struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	TotalSlots     int    `json:"total_slots"`
	AvailableSlots int    `json:"available_slots"`
	BaseRate       int    `json:"base_rate"`
	MinHours       int    `json:"min_hours"`
	ExtensionRate  int    `json:"extension_rate"`
	Active         bool   `json:"active"`
}
