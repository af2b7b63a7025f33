package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Admin is a back-office account: the KYC reviewer and dispatcher role.
type Admin struct {
	ID           int
	Email        string
	PasswordHash string
}

type AdminRepository interface {
	GetByEmail(email string) (*Admin, error)
	Create(email, password string) error
}

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(database *sql.DB) AdminRepository {
	return &adminRepository{db: database}
}

func (r *adminRepository) GetByEmail(email string) (*Admin, error) {
	var admin Admin
	err := r.db.QueryRow(`SELECT id, email, password_hash FROM admins WHERE email = $1`, email).
		Scan(&admin.ID, &admin.Email, &admin.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying admin: %w", err)
	}
	return &admin, nil
}

func (r *adminRepository) Create(email, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err = r.db.Exec(`INSERT INTO admins (email, password_hash) VALUES ($1, $2)`, email, hashed); err != nil {
		return fmt.Errorf("error creating admin: %w", err)
	}
	return nil
}
