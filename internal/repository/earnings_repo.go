package repository

import (
	"database/sql"
	"fmt"
	"time"

	"valetpartner/internal/db"
)

type EarningsRepository interface {
	// SummaryForPartner totals completed-session transactions since the
	// given time.
	SummaryForPartner(partnerID int, since time.Time) (total, count int, err error)
	ListTransactions(partnerID, limit, offset int) ([]db.Transaction, error)
	// UnpaidNet returns the payable balance: net totals not yet paid out.
	UnpaidNet(partnerID int) (int, error)
	MarkPaidOut(partnerID int, payoutID string) error
}

type earningsRepository struct {
	db *sql.DB
}

func NewEarningsRepository(database *sql.DB) EarningsRepository {
	return &earningsRepository{db: database}
}

func (r *earningsRepository) SummaryForPartner(partnerID int, since time.Time) (total, count int, err error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions
		WHERE partner_id = $1 AND created_at >= $2`
	err = r.db.QueryRow(query, partnerID, since).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("error querying earnings summary: %w", err)
	}
	return total, count, nil
}

func (r *earningsRepository) ListTransactions(partnerID, limit, offset int) ([]db.Transaction, error) {
	query := `
		SELECT id, partner_id, session_id, amount, commission, net, paid_out, COALESCE(payout_id, ''), created_at
		FROM transactions
		WHERE partner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(query, partnerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var result []db.Transaction
	for rows.Next() {
		var t db.Transaction
		if err := rows.Scan(
			&t.ID, &t.PartnerID, &t.SessionID, &t.Amount, &t.Commission, &t.Net,
			&t.PaidOut, &t.PayoutID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *earningsRepository) UnpaidNet(partnerID int) (int, error) {
	var net int
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(net), 0) FROM transactions WHERE partner_id = $1 AND paid_out = FALSE`,
		partnerID,
	).Scan(&net)
	if err != nil {
		return 0, fmt.Errorf("error querying unpaid balance: %w", err)
	}
	return net, nil
}

func (r *earningsRepository) MarkPaidOut(partnerID int, payoutID string) error {
	_, err := r.db.Exec(
		`UPDATE transactions SET paid_out = TRUE, payout_id = $2 WHERE partner_id = $1 AND paid_out = FALSE`,
		partnerID, payoutID,
	)
	if err != nil {
		return fmt.Errorf("error marking transactions paid out: %w", err)
	}
	return nil
}
