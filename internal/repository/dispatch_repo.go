package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"valetpartner/internal/db"
)

// Outcomes of offer mutations that lost to a concurrent writer or a deadline.
var (
	ErrOfferNotFound    = errors.New("offer not found")
	ErrOfferConsumed    = errors.New("offer already consumed")
	ErrOfferExpired     = errors.New("offer deadline has passed")
	ErrOfferOutstanding = errors.New("partner already has an outstanding offer")
	ErrPartnerNotOnline = errors.New("partner is not online")
	ErrNoFreeSlots      = errors.New("no free slots at location")
)

type RequestRepository interface {
	Create(req *db.ParkingRequest) error
	GetByID(id int) (*db.ParkingRequest, error)
	List(status string) ([]db.ParkingRequest, error)
}

type OfferRepository interface {
	// Create inserts the offer and flips its request open->offered in one
	// transaction. At most one outstanding offer per partner is enforced.
	Create(o *db.Offer) error
	GetByID(id string) (*db.Offer, error)
	OutstandingForPartner(partnerID int) (*db.Offer, error)
	// Accept atomically consumes the offer, assigns a slot, inserts the
	// session, flips the partner to on_trip and the request to accepted.
	Accept(offerID string, now time.Time, sess *db.Session) error
	// Release marks an outstanding offer rejected or expired and reopens its
	// request. Returns false when the offer was already consumed; a late
	// expiry firing after accept is a no-op.
	Release(offerID, toStatus string) (bool, error)
	// ExpireOverdue is the restart-safe backstop behind the per-offer timers.
	ExpireOverdue(now time.Time) ([]string, error)
}

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(database *sql.DB) RequestRepository {
	return &requestRepository{db: database}
}

func (r *requestRepository) Create(req *db.ParkingRequest) error {
	query := `
		INSERT INTO parking_requests (code, location_id, owner_name, owner_phone, owner_email, vehicle_plate, vehicle_model, reserved_hours, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at`
	err := r.db.QueryRow(query,
		req.Code, req.LocationID, req.OwnerName, req.OwnerPhone, req.OwnerEmail,
		req.VehiclePlate, req.VehicleModel, req.ReservedHours, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating parking request: %w", err)
	}
	return nil
}

func (r *requestRepository) GetByID(id int) (*db.ParkingRequest, error) {
	var req db.ParkingRequest
	query := `
		SELECT id, code, location_id, owner_name, owner_phone, COALESCE(owner_email, ''), vehicle_plate, vehicle_model, reserved_hours, status, created_at
		FROM parking_requests WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&req.ID, &req.Code, &req.LocationID, &req.OwnerName, &req.OwnerPhone, &req.OwnerEmail,
		&req.VehiclePlate, &req.VehicleModel, &req.ReservedHours, &req.Status, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying parking request: %w", err)
	}
	return &req, nil
}

func (r *requestRepository) List(status string) ([]db.ParkingRequest, error) {
	query := `
		SELECT id, code, location_id, owner_name, owner_phone, COALESCE(owner_email, ''), vehicle_plate, vehicle_model, reserved_hours, status, created_at
		FROM parking_requests WHERE status = $1 ORDER BY created_at`
	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("error querying parking requests: %w", err)
	}
	defer rows.Close()

	var result []db.ParkingRequest
	for rows.Next() {
		var req db.ParkingRequest
		if err := rows.Scan(
			&req.ID, &req.Code, &req.LocationID, &req.OwnerName, &req.OwnerPhone, &req.OwnerEmail,
			&req.VehiclePlate, &req.VehicleModel, &req.ReservedHours, &req.Status, &req.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning parking request: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

type offerRepository struct {
	db *sql.DB
}

func NewOfferRepository(database *sql.DB) OfferRepository {
	return &offerRepository{db: database}
}

func (r *offerRepository) Create(o *db.Offer) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting offer transaction: %w", err)
	}
	defer tx.Rollback()

	// Partial unique index: offers(partner_id) WHERE status = 'offered'.
	query := `
		INSERT INTO offers (id, request_id, partner_id, status, deadline, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at`
	err = tx.QueryRow(query, o.ID, o.RequestID, o.PartnerID, o.Status, o.Deadline).Scan(&o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrOfferOutstanding
		}
		return fmt.Errorf("error creating offer: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE parking_requests SET status = $2 WHERE id = $1 AND status = $3`,
		o.RequestID, db.RequestOffered, db.RequestOpen,
	)
	if err != nil {
		return fmt.Errorf("error marking request offered: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return ErrOfferConsumed
	}
	return tx.Commit()
}

func (r *offerRepository) GetByID(id string) (*db.Offer, error) {
	return r.get(r.db.QueryRow(
		`SELECT id, request_id, partner_id, status, deadline, created_at FROM offers WHERE id = $1`, id,
	))
}

func (r *offerRepository) OutstandingForPartner(partnerID int) (*db.Offer, error) {
	return r.get(r.db.QueryRow(
		`SELECT id, request_id, partner_id, status, deadline, created_at
		 FROM offers WHERE partner_id = $1 AND status = $2`, partnerID, db.OfferOffered,
	))
}

func (r *offerRepository) get(row *sql.Row) (*db.Offer, error) {
	var o db.Offer
	err := row.Scan(&o.ID, &o.RequestID, &o.PartnerID, &o.Status, &o.Deadline, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying offer: %w", err)
	}
	return &o, nil
}

func (r *offerRepository) Accept(offerID string, now time.Time, sess *db.Session) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting accept transaction: %w", err)
	}
	defer tx.Rollback()

	// Exactly one concurrent accept can flip offered->accepted.
	result, err := tx.Exec(
		`UPDATE offers SET status = $2 WHERE id = $1 AND status = $3 AND deadline > $4`,
		offerID, db.OfferAccepted, db.OfferOffered, now,
	)
	if err != nil {
		return fmt.Errorf("error accepting offer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return r.classifyAcceptFailure(offerID, now)
	}

	// Serialize slot assignment per location on the location row.
	var totalSlots int
	err = tx.QueryRow(`SELECT total_slots FROM parking_locations WHERE id = $1 FOR UPDATE`, sess.LocationID).Scan(&totalSlots)
	if err != nil {
		return fmt.Errorf("error locking location %d: %w", sess.LocationID, err)
	}
	var occupied int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE location_id = $1 AND status IN `+occupyingStates,
		sess.LocationID,
	).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("error counting occupied slots: %w", err)
	}
	if occupied >= totalSlots {
		return ErrNoFreeSlots
	}
	sess.SlotLabel = fmt.Sprintf("S-%02d", occupied+1)

	query := `
		INSERT INTO sessions
		(code, partner_id, location_id, request_id, owner_name, owner_phone, owner_email, vehicle_plate, vehicle_model,
		 slot_label, status, reserved_hours, min_hours, base_rate, extension_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err = tx.QueryRow(query,
		sess.Code, sess.PartnerID, sess.LocationID, sess.RequestID,
		sess.OwnerName, sess.OwnerPhone, sess.OwnerEmail, sess.VehiclePlate, sess.VehicleModel,
		sess.SlotLabel, sess.Status, sess.ReservedHours, sess.MinHours, sess.BaseRate, sess.ExtensionRate,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating session from offer: %w", err)
	}

	result, err = tx.Exec(
		`UPDATE partners SET availability = $2, updated_at = NOW() WHERE id = $1 AND availability = $3`,
		sess.PartnerID, db.AvailabilityOnTrip, db.AvailabilityOnline,
	)
	if err != nil {
		return fmt.Errorf("error flipping partner on_trip: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return ErrPartnerNotOnline
	}

	if _, err = tx.Exec(
		`UPDATE parking_requests SET status = $2 WHERE id = $1`,
		sess.RequestID, db.RequestAccepted,
	); err != nil {
		return fmt.Errorf("error marking request accepted: %w", err)
	}

	return tx.Commit()
}

func (r *offerRepository) classifyAcceptFailure(offerID string, now time.Time) error {
	o, err := r.GetByID(offerID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrOfferNotFound
	}
	if o.Status == db.OfferOffered && !o.Deadline.After(now) {
		// The in-process timer has not fired yet; expire eagerly.
		if _, err := r.Release(offerID, db.OfferExpired); err != nil {
			return err
		}
		return ErrOfferExpired
	}
	if o.Status == db.OfferExpired {
		return ErrOfferExpired
	}
	return ErrOfferConsumed
}

func (r *offerRepository) Release(offerID, toStatus string) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("error starting release transaction: %w", err)
	}
	defer tx.Rollback()

	var requestID int
	err = tx.QueryRow(
		`UPDATE offers SET status = $2 WHERE id = $1 AND status = $3 RETURNING request_id`,
		offerID, toStatus, db.OfferOffered,
	).Scan(&requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("error releasing offer: %w", err)
	}

	if _, err = tx.Exec(
		`UPDATE parking_requests SET status = $2 WHERE id = $1 AND status = $3`,
		requestID, db.RequestOpen, db.RequestOffered,
	); err != nil {
		return false, fmt.Errorf("error reopening request: %w", err)
	}
	return true, tx.Commit()
}

func (r *offerRepository) ExpireOverdue(now time.Time) ([]string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting expiry sweep: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`UPDATE offers SET status = $1 WHERE status = $2 AND deadline < $3 RETURNING id, request_id`,
		db.OfferExpired, db.OfferOffered, now,
	)
	if err != nil {
		return nil, fmt.Errorf("error expiring overdue offers: %w", err)
	}
	var ids []string
	var requestIDs []int
	for rows.Next() {
		var id string
		var requestID int
		if err := rows.Scan(&id, &requestID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning expired offer: %w", err)
		}
		ids = append(ids, id)
		requestIDs = append(requestIDs, requestID)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating expired offers: %w", err)
	}

	if len(requestIDs) > 0 {
		if _, err = tx.Exec(
			`UPDATE parking_requests SET status = $1 WHERE id = ANY($2) AND status = $3`,
			db.RequestOpen, pq.Array(requestIDs), db.RequestOffered,
		); err != nil {
			return nil, fmt.Errorf("error reopening expired requests: %w", err)
		}
	}
	return ids, tx.Commit()
}
