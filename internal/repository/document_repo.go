package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"valetpartner/internal/db"
)

// DocumentStore holds uploaded document images (KYC sets, inspection photos).
// One row per (partner, kind): storing the same kind again replaces the
// content, so a retried upload never leaves a stale duplicate behind.
type DocumentStore interface {
	Store(partnerID int, kind string, content []byte) (string, error)
	Fetch(documentID string) (*db.KycDocument, []byte, error)
}

type documentStore struct {
	db *sql.DB
}

func NewDocumentStore(database *sql.DB) DocumentStore {
	return &documentStore{db: database}
}

func (r *documentStore) Store(partnerID int, kind string, content []byte) (string, error) {
	var id string
	query := `
		INSERT INTO documents (id, partner_id, kind, content, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NOW())
		ON CONFLICT (partner_id, kind)
		DO UPDATE SET content = EXCLUDED.content, created_at = NOW()
		RETURNING id`
	err := r.db.QueryRow(query, partnerID, kind, content).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("error storing document: %w", err)
	}
	return id, nil
}

func (r *documentStore) Fetch(documentID string) (*db.KycDocument, []byte, error) {
	var doc db.KycDocument
	var content []byte
	query := `SELECT id, partner_id, kind, content, created_at FROM documents WHERE id = $1`
	err := r.db.QueryRow(query, documentID).Scan(&doc.ID, &doc.PartnerID, &doc.Kind, &content, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("document '%s' not found: %w", documentID, err)
		}
		return nil, nil, fmt.Errorf("error fetching document: %w", err)
	}
	return &doc, content, nil
}
