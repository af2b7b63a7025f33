package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"valetpartner/internal/db"
	"valetpartner/internal/entities"
)

// occupyingStates lists the session states that hold a slot at a location.
const occupyingStates = `('pickup_pending', 'active', 'return_pending')`

type LocationRepository interface {
	Create(l *db.ParkingLocation) error
	Update(l *db.ParkingLocation) error
	GetByID(id int) (*db.ParkingLocation, error)
	// ListWithAvailability returns the partner's locations with
	// available_slots derived from the active session count.
	ListWithAvailability(partnerID int) ([]entities.LocationStatus, error)
	AvailableSlots(id int) (int, error)
}

type locationRepository struct {
	db *sql.DB
}

func NewLocationRepository(database *sql.DB) LocationRepository {
	return &locationRepository{db: database}
}

func (r *locationRepository) Create(l *db.ParkingLocation) error {
	query := `
		INSERT INTO parking_locations (partner_id, name, address, total_slots, base_rate, min_hours, extension_rate, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query,
		l.PartnerID, l.Name, l.Address, l.TotalSlots, l.BaseRate, l.MinHours, l.ExtensionRate, l.Active,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating parking location: %w", err)
	}
	return nil
}

func (r *locationRepository) Update(l *db.ParkingLocation) error {
	query := `
		UPDATE parking_locations
		SET name = $2, address = $3, total_slots = $4, base_rate = $5, min_hours = $6, extension_rate = $7, active = $8, updated_at = NOW()
		WHERE id = $1`
	_, err := r.db.Exec(query, l.ID, l.Name, l.Address, l.TotalSlots, l.BaseRate, l.MinHours, l.ExtensionRate, l.Active)
	if err != nil {
		return fmt.Errorf("error updating parking location: %w", err)
	}
	return nil
}

func (r *locationRepository) GetByID(id int) (*db.ParkingLocation, error) {
	var l db.ParkingLocation
	query := `
		SELECT id, partner_id, name, address, total_slots, base_rate, min_hours, extension_rate, active, created_at, updated_at
		FROM parking_locations WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&l.ID, &l.PartnerID, &l.Name, &l.Address, &l.TotalSlots,
		&l.BaseRate, &l.MinHours, &l.ExtensionRate, &l.Active, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying parking location: %w", err)
	}
	return &l, nil
}

func (r *locationRepository) ListWithAvailability(partnerID int) ([]entities.LocationStatus, error) {
	query := `
		SELECT
			l.id, l.name, l.address, l.total_slots,
			l.total_slots - COUNT(s.id) AS available_slots,
			l.base_rate, l.min_hours, l.extension_rate, l.active
		FROM parking_locations l
		LEFT JOIN sessions s
			ON s.location_id = l.id
			AND s.status IN ` + occupyingStates + `
		WHERE l.partner_id = $1
		GROUP BY l.id
		ORDER BY l.name`

	rows, err := r.db.Query(query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("error querying location availability: %w", err)
	}
	defer rows.Close()

	var result []entities.LocationStatus
	for rows.Next() {
		var ls entities.LocationStatus
		if err := rows.Scan(
			&ls.ID, &ls.Name, &ls.Address, &ls.TotalSlots, &ls.AvailableSlots,
			&ls.BaseRate, &ls.MinHours, &ls.ExtensionRate, &ls.Active,
		); err != nil {
			return nil, fmt.Errorf("error scanning location availability: %w", err)
		}
		result = append(result, ls)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating location rows: %w", err)
	}
	return result, nil
}

func (r *locationRepository) AvailableSlots(id int) (int, error) {
	var available int
	query := `
		SELECT l.total_slots - COUNT(s.id)
		FROM parking_locations l
		LEFT JOIN sessions s ON s.location_id = l.id AND s.status IN ` + occupyingStates + `
		WHERE l.id = $1
		GROUP BY l.total_slots`
	err := r.db.QueryRow(query, id).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("parking location %d not found", id)
		}
		return 0, fmt.Errorf("error querying available slots: %w", err)
	}
	return available, nil
}
