package repository

import (
	"database/sql"
	"fmt"

	"valetpartner/internal/db"
)

type SupportRepository interface {
	Create(t *db.SupportTicket) error
	ListByPartner(partnerID int) ([]db.SupportTicket, error)
	CountOpenByPartner(partnerID int) (int, error)
	// Resolve moves an open ticket to resolved. Returns false when the
	// ticket was not open.
	Resolve(id int) (bool, error)
}

type supportRepository struct {
	db *sql.DB
}

func NewSupportRepository(database *sql.DB) SupportRepository {
	return &supportRepository{db: database}
}

func (r *supportRepository) Create(t *db.SupportTicket) error {
	query := `
		INSERT INTO support_tickets (partner_id, subject, category, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, t.PartnerID, t.Subject, t.Category, t.Description, t.Status).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating support ticket: %w", err)
	}
	return nil
}

func (r *supportRepository) ListByPartner(partnerID int) ([]db.SupportTicket, error) {
	query := `
		SELECT id, partner_id, subject, category, description, status, created_at, updated_at
		FROM support_tickets WHERE partner_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(query, partnerID)
	if err != nil {
		return nil, fmt.Errorf("error querying support tickets: %w", err)
	}
	defer rows.Close()

	var result []db.SupportTicket
	for rows.Next() {
		var t db.SupportTicket
		if err := rows.Scan(&t.ID, &t.PartnerID, &t.Subject, &t.Category, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning support ticket: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *supportRepository) CountOpenByPartner(partnerID int) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM support_tickets WHERE partner_id = $1 AND status = 'open'`,
		partnerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting open tickets: %w", err)
	}
	return count, nil
}

func (r *supportRepository) Resolve(id int) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE support_tickets SET status = 'resolved', updated_at = NOW() WHERE id = $1 AND status = 'open'`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("error resolving support ticket: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
