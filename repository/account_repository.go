package repository

import (
	"database/sql"
	"fmt"
	"time"

	"secureauth/entity"

	"github.com/jmoiron/sqlx"
)

// AccountRepository interface defines account data operations
type AccountRepository interface {
	Create(account *entity.Account) (*entity.Account, error)
	GetByEmail(email string) (*entity.Account, error)
	GetByPhoneNumber(phoneNumber string) (*entity.Account, error)
	MarkVerified(email string) error
	UpdatePasswordHash(email, passwordHash string) error
	UpdateTOTPSecret(email, secret string) error
}

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *sqlx.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

const accountColumns = `id, email, password_hash, first_name, last_name, auth_method, phone_number, totp_secret, verified, created_at, updated_at`

// Create creates a new account
func (r *accountRepository) Create(account *entity.Account) (*entity.Account, error) {
	query := `
		INSERT INTO accounts (email, password_hash, first_name, last_name, auth_method, phone_number, totp_secret, verified, created_at, updated_at)
		VALUES (:email, :password_hash, :first_name, :last_name, :auth_method, :phone_number, :totp_secret, :verified, :created_at, :updated_at)
		RETURNING ` + accountColumns

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	account.Verified = false

	rows, err := r.db.NamedQuery(query, account)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("failed to get created account")
	}

	var created entity.Account
	if err := rows.StructScan(&created); err != nil {
		return nil, fmt.Errorf("failed to scan created account: %w", err)
	}

	return &created, nil
}

// GetByEmail retrieves an account by email
func (r *accountRepository) GetByEmail(email string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	var account entity.Account
	err := r.db.Get(&account, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}

	return &account, nil
}

// GetByPhoneNumber retrieves an account by phone number
func (r *accountRepository) GetByPhoneNumber(phoneNumber string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE phone_number = $1`

	var account entity.Account
	err := r.db.Get(&account, query, phoneNumber)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account by phone number: %w", err)
	}

	return &account, nil
}

// MarkVerified flips the verified flag after the account's channel succeeded
func (r *accountRepository) MarkVerified(email string) error {
	query := `
		UPDATE accounts
		SET verified = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE email = $1
	`

	result, err := r.db.Exec(query, email)
	if err != nil {
		return fmt.Errorf("failed to mark account as verified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account not found")
	}

	return nil
}

// UpdatePasswordHash replaces the stored password hash
func (r *accountRepository) UpdatePasswordHash(email, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = CURRENT_TIMESTAMP
		WHERE email = $1
	`

	result, err := r.db.Exec(query, email, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account not found")
	}

	return nil
}

// UpdateTOTPSecret stores a newly provisioned authenticator secret
func (r *accountRepository) UpdateTOTPSecret(email, secret string) error {
	query := `
		UPDATE accounts
		SET totp_secret = $2, updated_at = CURRENT_TIMESTAMP
		WHERE email = $1
	`

	result, err := r.db.Exec(query, email, secret)
	if err != nil {
		return fmt.Errorf("failed to update TOTP secret: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account not found")
	}

	return nil
}
