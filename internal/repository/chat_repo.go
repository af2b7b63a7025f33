package repository

import (
	"database/sql"
	"fmt"

	"valetpartner/internal/db"
)

type ChatRepository struct {
	DB *sql.DB
}

func NewChatRepository(database *sql.DB) *ChatRepository {
	return &ChatRepository{DB: database}
}

func (r *ChatRepository) Insert(m *db.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (session_id, sender, body, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at`
	err := r.DB.QueryRow(query, m.SessionID, m.Sender, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting chat message: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListBySession(sessionID int) ([]db.ChatMessage, error) {
	query := `
		SELECT id, session_id, sender, body, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at`
	rows, err := r.DB.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying chat messages: %w", err)
	}
	defer rows.Close()

	var result []db.ChatMessage
	for rows.Next() {
		var m db.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning chat message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
