package repository

import (
	"database/sql"
	"fmt"
	"time"

	"secureauth/entity"

	"github.com/jmoiron/sqlx"
)

// OTPRepository interface defines OTP data operations. There is at most one
// row per (subject, purpose); Upsert replaces any prior unconsumed code.
type OTPRepository interface {
	Upsert(otp *entity.OTPCode) (*entity.OTPCode, error)
	GetActive(subject string, purpose entity.Purpose) (*entity.OTPCode, error)
	IncrementAttempts(id int) error
	MarkVerified(id int) error
	MarkConsumed(id int) error
	Delete(id int) error
	DeleteExpired() (int64, error)
}

// otpRepository implements OTPRepository interface
type otpRepository struct {
	db *sqlx.DB
}

// NewOTPRepository creates a new OTP repository instance
func NewOTPRepository(db *sqlx.DB) OTPRepository {
	return &otpRepository{
		db: db,
	}
}

// Upsert stores the active code for a (subject, purpose) pair, replacing any
// prior record so only the most recently issued code can validate.
func (r *otpRepository) Upsert(otp *entity.OTPCode) (*entity.OTPCode, error) {
	query := `
		INSERT INTO otp_codes (subject, purpose, code, expires_at, attempts, consumed, verified, created_at, consumed_at)
		VALUES (:subject, :purpose, :code, :expires_at, 0, FALSE, FALSE, :created_at, NULL)
		ON CONFLICT (subject, purpose)
		DO UPDATE SET
			code = EXCLUDED.code,
			expires_at = EXCLUDED.expires_at,
			attempts = 0,
			consumed = FALSE,
			verified = FALSE,
			created_at = EXCLUDED.created_at,
			consumed_at = NULL
		RETURNING id, subject, purpose, code, expires_at, attempts, consumed, verified, created_at, consumed_at
	`

	otp.CreatedAt = time.Now()
	otp.Attempts = 0
	otp.Consumed = false
	otp.Verified = false

	rows, err := r.db.NamedQuery(query, otp)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert OTP: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, fmt.Errorf("failed to get upserted OTP")
	}

	var stored entity.OTPCode
	if err := rows.StructScan(&stored); err != nil {
		return nil, fmt.Errorf("failed to scan upserted OTP: %w", err)
	}

	return &stored, nil
}

// GetActive retrieves the unconsumed record for a (subject, purpose) pair.
// Expiry is not filtered here so the caller can distinguish expired from
// not-found and reap the record.
func (r *otpRepository) GetActive(subject string, purpose entity.Purpose) (*entity.OTPCode, error) {
	query := `
		SELECT id, subject, purpose, code, expires_at, attempts, consumed, verified, created_at, consumed_at
		FROM otp_codes
		WHERE subject = $1 AND purpose = $2 AND consumed = FALSE
	`

	var otp entity.OTPCode
	err := r.db.Get(&otp, query, subject, purpose)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	return &otp, nil
}

// IncrementAttempts records one more failed match against the active code
func (r *otpRepository) IncrementAttempts(id int) error {
	query := `
		UPDATE otp_codes
		SET attempts = attempts + 1
		WHERE id = $1 AND consumed = FALSE
	`

	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to increment OTP attempts: %w", err)
	}

	return nil
}

// MarkVerified flags a recovery code as verified without consuming it
func (r *otpRepository) MarkVerified(id int) error {
	query := `
		UPDATE otp_codes
		SET verified = TRUE
		WHERE id = $1 AND consumed = FALSE
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to mark OTP as verified: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("OTP not found or already consumed")
	}

	return nil
}

// MarkConsumed terminally consumes a code. The transition happens at most
// once; a second call fails.
func (r *otpRepository) MarkConsumed(id int) error {
	query := `
		UPDATE otp_codes
		SET consumed = TRUE, consumed_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND consumed = FALSE
	`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to mark OTP as consumed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("OTP not found or already consumed")
	}

	return nil
}

// Delete removes a record, used when an expired code is reaped on read
func (r *otpRepository) Delete(id int) error {
	query := `DELETE FROM otp_codes WHERE id = $1`

	if _, err := r.db.Exec(query, id); err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}

	return nil
}

// DeleteExpired deletes expired OTP records and reports how many were removed
func (r *otpRepository) DeleteExpired() (int64, error) {
	query := `DELETE FROM otp_codes WHERE expires_at < CURRENT_TIMESTAMP`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired OTPs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return rowsAffected, nil
}
