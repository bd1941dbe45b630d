package repository

import (
	"fmt"
	"testing"
	"time"

	"secureauth/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "postgres"), mock
}

func otpRows(otp *entity.OTPCode) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "subject", "purpose", "code", "expires_at", "attempts", "consumed", "verified", "created_at", "consumed_at",
	}).AddRow(otp.ID, otp.Subject, otp.Purpose, otp.Code, otp.ExpiresAt, otp.Attempts, otp.Consumed, otp.Verified, otp.CreatedAt, otp.ConsumedAt)
}

func TestOTPRepository_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	expiresAt := time.Now().Add(10 * time.Minute)
	stored := &entity.OTPCode{
		ID:        1,
		Subject:   "+1234567890",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "123456",
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	mock.ExpectQuery("INSERT INTO otp_codes").
		WillReturnRows(otpRows(stored))

	result, err := repo.Upsert(&entity.OTPCode{
		Subject:   "+1234567890",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "123456",
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ID)
	assert.Equal(t, "123456", result.Code)
	assert.Equal(t, entity.PurposeSMSLogin, result.Purpose)
	assert.False(t, result.Consumed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_Upsert_ResetsState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	stored := &entity.OTPCode{
		ID:        1,
		Subject:   "+1234567890",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "654321",
		ExpiresAt: time.Now().Add(10 * time.Minute),
		CreatedAt: time.Now(),
	}

	mock.ExpectQuery("INSERT INTO otp_codes").
		WillReturnRows(otpRows(stored))

	// Passing a record with stale state still produces a fresh one
	result, err := repo.Upsert(&entity.OTPCode{
		Subject:   "+1234567890",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "654321",
		ExpiresAt: stored.ExpiresAt,
		Attempts:  5,
		Consumed:  true,
		Verified:  true,
	})
	require.NoError(t, err)
	assert.Zero(t, result.Attempts)
	assert.False(t, result.Consumed)
	assert.False(t, result.Verified)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_GetActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	stored := &entity.OTPCode{
		ID:        3,
		Subject:   "user@example.com",
		Purpose:   entity.PurposeEmailLogin,
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute),
		CreatedAt: time.Now(),
	}

	mock.ExpectQuery("SELECT (.+) FROM otp_codes").
		WithArgs("user@example.com", entity.PurposeEmailLogin).
		WillReturnRows(otpRows(stored))

	result, err := repo.GetActive("user@example.com", entity.PurposeEmailLogin)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.ID)
	assert.Equal(t, "123456", result.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_GetActive_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM otp_codes").
		WithArgs("user@example.com", entity.PurposeEmailLogin).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := repo.GetActive("user@example.com", entity.PurposeEmailLogin)
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_IncrementAttempts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec("UPDATE otp_codes").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.IncrementAttempts(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_MarkVerified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec("UPDATE otp_codes").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkVerified(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_MarkVerified_AlreadyConsumed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec("UPDATE otp_codes").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkVerified(7)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_MarkConsumed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec("UPDATE otp_codes").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkConsumed(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_MarkConsumed_AtMostOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	// The guarded update matches no rows on the second call
	mock.ExpectExec("UPDATE otp_codes").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkConsumed(7)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec("DELETE FROM otp_codes").
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectExec("DELETE FROM otp_codes").
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPRepository_Upsert_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOTPRepository(db)

	mock.ExpectQuery("INSERT INTO otp_codes").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := repo.Upsert(&entity.OTPCode{
		Subject: "+1234567890",
		Purpose: entity.PurposeSMSLogin,
		Code:    "123456",
	})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
