package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"valetpartner/internal/db"
)

type SessionRepository interface {
	GetByID(id int) (*db.Session, error)
	ListByPartner(partnerID int) ([]db.Session, error)
	CountActiveByPartner(partnerID int) (int, error)
	SetOtpChallenge(id int, challengeID string) error
	// ConfirmPickup applies the pickup inspection and moves
	// pickup_pending -> active. Returns false when the guard did not hold.
	ConfirmPickup(sess *db.Session) (bool, error)
	SetStatusFrom(id int, from, to string) (bool, error)
	// FinishReturn applies the return inspection, moves return_pending to a
	// terminal state, flips the partner back online and records the earnings
	// transaction (nil for disputed returns), all in one transaction.
	FinishReturn(sess *db.Session, txn *db.Transaction) (bool, error)
	// CancelPickup moves pickup_pending -> canceled and flips the partner
	// back online in one transaction.
	CancelPickup(sessionID, partnerID int) (bool, error)
	ActiveIDsPastScheduledEnd(now time.Time) ([]int, error)
	MarkReturnPending(ids []int) error
}

type sessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(database *sql.DB) SessionRepository {
	return &sessionRepository{db: database}
}

const sessionColumns = `
	id, code, partner_id, location_id, request_id, owner_name, owner_phone,
	COALESCE(owner_email, ''), vehicle_plate, vehicle_model, slot_label, status, reserved_hours, min_hours,
	base_rate, extension_rate, start_time, scheduled_end, returned_at,
	pickup_odometer, return_odometer, pickup_fuel, return_fuel,
	pickup_damage, return_damage, otp_challenge_id, fare, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*db.Session, error) {
	var s db.Session
	var challenge sql.NullString
	err := row.Scan(
		&s.ID, &s.Code, &s.PartnerID, &s.LocationID, &s.RequestID, &s.OwnerName, &s.OwnerPhone,
		&s.OwnerEmail, &s.VehiclePlate, &s.VehicleModel, &s.SlotLabel, &s.Status, &s.ReservedHours, &s.MinHours,
		&s.BaseRate, &s.ExtensionRate, &s.StartTime, &s.ScheduledEnd, &s.ReturnedAt,
		&s.PickupOdometer, &s.ReturnOdometer, &s.PickupFuel, &s.ReturnFuel,
		&s.PickupDamage, &s.ReturnDamage, &challenge, &s.Fare, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.OtpChallengeID = challenge.String
	return &s, nil
}

func (r *sessionRepository) GetByID(id int) (*db.Session, error) {
	s, err := scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) ListByPartner(partnerID int) ([]db.Session, error) {
	rows, err := r.db.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE partner_id = $1 ORDER BY created_at DESC`,
		partnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying partner sessions: %w", err)
	}
	defer rows.Close()

	var result []db.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning session: %w", err)
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *sessionRepository) CountActiveByPartner(partnerID int) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE partner_id = $1 AND status IN `+occupyingStates,
		partnerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting active sessions: %w", err)
	}
	return count, nil
}

func (r *sessionRepository) SetOtpChallenge(id int, challengeID string) error {
	_, err := r.db.Exec(
		`UPDATE sessions SET otp_challenge_id = $2, updated_at = NOW() WHERE id = $1`,
		id, challengeID,
	)
	if err != nil {
		return fmt.Errorf("error storing otp challenge: %w", err)
	}
	return nil
}

func (r *sessionRepository) ConfirmPickup(sess *db.Session) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE sessions
		SET status = $2, start_time = $3, scheduled_end = $4,
		    pickup_odometer = $5, pickup_fuel = $6, pickup_damage = $7,
		    otp_challenge_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $8`,
		sess.ID, db.SessionActive, sess.StartTime, sess.ScheduledEnd,
		sess.PickupOdometer, sess.PickupFuel, sess.PickupDamage,
		db.SessionPickupPending,
	)
	if err != nil {
		return false, fmt.Errorf("error confirming pickup: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *sessionRepository) SetStatusFrom(id int, from, to string) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE sessions SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("error updating session status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *sessionRepository) FinishReturn(sess *db.Session, txn *db.Transaction) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("error starting return transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE sessions
		SET status = $2, returned_at = $3, return_odometer = $4, return_fuel = $5,
		    return_damage = $6, fare = $7, otp_challenge_id = NULL, updated_at = NOW()
		WHERE id = $1 AND status = $8`,
		sess.ID, sess.Status, sess.ReturnedAt, sess.ReturnOdometer, sess.ReturnFuel,
		sess.ReturnDamage, sess.Fare, db.SessionReturnPending,
	)
	if err != nil {
		return false, fmt.Errorf("error finishing return: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows != 1 {
		return false, nil
	}

	if _, err = tx.Exec(
		`UPDATE partners SET availability = $2, updated_at = NOW() WHERE id = $1 AND availability = $3`,
		sess.PartnerID, db.AvailabilityOnline, db.AvailabilityOnTrip,
	); err != nil {
		return false, fmt.Errorf("error flipping partner online: %w", err)
	}

	if txn != nil {
		err = tx.QueryRow(`
			INSERT INTO transactions (partner_id, session_id, amount, commission, net, paid_out, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
			RETURNING id, created_at`,
			txn.PartnerID, txn.SessionID, txn.Amount, txn.Commission, txn.Net,
		).Scan(&txn.ID, &txn.CreatedAt)
		if err != nil {
			return false, fmt.Errorf("error recording transaction: %w", err)
		}
	}
	return true, tx.Commit()
}

func (r *sessionRepository) CancelPickup(sessionID, partnerID int) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("error starting cancel transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE sessions SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		sessionID, db.SessionCanceled, db.SessionPickupPending,
	)
	if err != nil {
		return false, fmt.Errorf("error canceling session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows != 1 {
		return false, nil
	}

	if _, err = tx.Exec(
		`UPDATE partners SET availability = $2, updated_at = NOW() WHERE id = $1 AND availability = $3`,
		partnerID, db.AvailabilityOnline, db.AvailabilityOnTrip,
	); err != nil {
		return false, fmt.Errorf("error flipping partner online: %w", err)
	}
	return true, tx.Commit()
}

func (r *sessionRepository) ActiveIDsPastScheduledEnd(now time.Time) ([]int, error) {
	rows, err := r.db.Query(
		`SELECT id FROM sessions WHERE status = $1 AND scheduled_end < $2`,
		db.SessionActive, now,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying sessions past scheduled end: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sessionRepository) MarkReturnPending(ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(
		`UPDATE sessions SET status = $1, updated_at = NOW() WHERE id = ANY($2) AND status = $3`,
		db.SessionReturnPending, pq.Array(ids), db.SessionActive,
	)
	if err != nil {
		return fmt.Errorf("error marking sessions return_pending: %w", err)
	}
	return nil
}
