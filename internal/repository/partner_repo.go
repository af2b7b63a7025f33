package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"valetpartner/internal/db"
)

// ErrDuplicatePartner reports a phone number that is already registered.
var ErrDuplicatePartner = errors.New("partner with this phone already exists")

type PartnerRepository interface {
	Create(p *db.Partner) error
	GetByID(id int) (*db.Partner, error)
	GetByPhone(phone string) (*db.Partner, error)
	SetKycStatus(id int, status string) error
	// SetKycStatusFrom updates the KYC status only when the current status
	// matches from. Returns false when the guard did not hold.
	SetKycStatusFrom(id int, from, to string) (bool, error)
	// SetAvailabilityFrom updates availability only when the current state
	// matches from. Returns false when the guard did not hold.
	SetAvailabilityFrom(id int, from, to string) (bool, error)
	SetStripeAccount(id int, accountID string) error
}

type partnerRepository struct {
	db *sql.DB
}

func NewPartnerRepository(database *sql.DB) PartnerRepository {
	return &partnerRepository{db: database}
}

func (r *partnerRepository) Create(p *db.Partner) error {
	query := `
		INSERT INTO partners (name, phone, email, city, zone, kyc_status, availability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query,
		p.Name, p.Phone, p.Email, p.City, p.Zone, p.KycStatus, p.Availability,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePartner
		}
		return fmt.Errorf("error creating partner: %w", err)
	}
	return nil
}

func (r *partnerRepository) GetByID(id int) (*db.Partner, error) {
	return r.get("id = $1", id)
}

func (r *partnerRepository) GetByPhone(phone string) (*db.Partner, error) {
	return r.get("phone = $1", phone)
}

func (r *partnerRepository) get(where string, arg interface{}) (*db.Partner, error) {
	var p db.Partner
	var stripeAccount sql.NullString
	query := `
		SELECT id, name, phone, email, city, zone, kyc_status, availability, stripe_account_id, created_at, updated_at
		FROM partners WHERE ` + where
	err := r.db.QueryRow(query, arg).Scan(
		&p.ID, &p.Name, &p.Phone, &p.Email, &p.City, &p.Zone,
		&p.KycStatus, &p.Availability, &stripeAccount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying partner: %w", err)
	}
	p.StripeAccountID = stripeAccount.String
	return &p, nil
}

func (r *partnerRepository) SetKycStatus(id int, status string) error {
	_, err := r.db.Exec(`UPDATE partners SET kyc_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("error updating kyc status: %w", err)
	}
	return nil
}

func (r *partnerRepository) SetKycStatusFrom(id int, from, to string) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE partners SET kyc_status = $3, updated_at = NOW() WHERE id = $1 AND kyc_status = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("error updating kyc status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *partnerRepository) SetAvailabilityFrom(id int, from, to string) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE partners SET availability = $3, updated_at = NOW() WHERE id = $1 AND availability = $2`,
		id, from, to,
	)
	if err != nil {
		return false, fmt.Errorf("error updating availability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *partnerRepository) SetStripeAccount(id int, accountID string) error {
	_, err := r.db.Exec(`UPDATE partners SET stripe_account_id = $2, updated_at = NOW() WHERE id = $1`, id, accountID)
	if err != nil {
		return fmt.Errorf("error updating stripe account: %w", err)
	}
	return nil
}
