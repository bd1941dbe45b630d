package test

import (
	"fmt"
	"os"
	"testing"
	"time"

	"secureauth/entity"
	"secureauth/migrations"
	"secureauth/pkg/logger"
	"secureauth/repository"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// TestDB wraps a test database connection
type TestDB struct {
	DB *sqlx.DB
}

// SetupTestDB connects to the test database and runs migrations. Tests are
// skipped when no database is reachable so the unit suite still runs on
// machines without Postgres.
func SetupTestDB(t *testing.T) *TestDB {
	host := getEnvOrDefault("TEST_DB_HOST", "localhost")
	port := getEnvOrDefault("TEST_DB_PORT", "5432")
	user := getEnvOrDefault("TEST_DB_USER", "secureauth")
	password := getEnvOrDefault("TEST_DB_PASSWORD", "secureauth")

	baseDBName := getEnvOrDefault("POSTGRES_DB", "secureauth")
	dbName := getEnvOrDefault("TEST_DB_NAME", baseDBName+"_test")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbName)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Skipf("Test database not available: %v", err)
	}

	// Run migrations - check multiple possible paths
	migrationPaths := []string{"./migrations", "../migrations", "/app/migrations"}
	for _, path := range migrationPaths {
		err = migrations.RunMigrations(db.DB, path)
		if err == nil {
			break
		}
	}
	require.NoError(t, err, "Failed to run test migrations")

	return &TestDB{DB: db}
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if tdb.DB != nil {
		tdb.DB.Close()
	}
}

// CleanTables removes all data from tables (for test isolation)
func (tdb *TestDB) CleanTables(t *testing.T) {
	_, err := tdb.DB.Exec("TRUNCATE TABLE otp_codes, accounts RESTART IDENTITY CASCADE")
	require.NoError(t, err, "Failed to clean test tables")
}

// CreateTestAccount creates a test account in the database
func (tdb *TestDB) CreateTestAccount(t *testing.T, email string, method entity.AuthMethod, phone string) *entity.Account {
	account := &entity.Account{
		Email:        email,
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		FirstName:    "Test",
		LastName:     "Account",
		AuthMethod:   method,
	}
	if phone != "" {
		account.PhoneNumber = &phone
	}

	accountRepo := repository.NewAccountRepository(tdb.DB)
	created, err := accountRepo.Create(account)
	require.NoError(t, err, "Failed to create test account")

	return created
}

// CreateTestOTP creates an active code in the database
func (tdb *TestDB) CreateTestOTP(t *testing.T, subject string, purpose entity.Purpose, code string, expiresAt time.Time) *entity.OTPCode {
	otp := &entity.OTPCode{
		Subject:   subject,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	otpRepo := repository.NewOTPRepository(tdb.DB)
	created, err := otpRepo.Upsert(otp)
	require.NoError(t, err, "Failed to create test OTP")

	return created
}

// CreateExpiredOTP creates an already expired code for testing
func (tdb *TestDB) CreateExpiredOTP(t *testing.T, subject string, purpose entity.Purpose, code string) *entity.OTPCode {
	return tdb.CreateTestOTP(t, subject, purpose, code, time.Now().Add(-5*time.Minute))
}

// CreateValidOTP creates a code that expires in 2 minutes
func (tdb *TestDB) CreateValidOTP(t *testing.T, subject string, purpose entity.Purpose, code string) *entity.OTPCode {
	return tdb.CreateTestOTP(t, subject, purpose, code, time.Now().Add(2*time.Minute))
}

// GetTestLogger creates a test logger
func GetTestLogger() *logger.Logger {
	log, err := logger.New("debug", "development")
	if err != nil {
		panic(fmt.Sprintf("Failed to create test logger: %v", err))
	}
	return log
}

// AssertAccountExists asserts that an account exists with the given email
func (tdb *TestDB) AssertAccountExists(t *testing.T, email string) *entity.Account {
	accountRepo := repository.NewAccountRepository(tdb.DB)
	account, err := accountRepo.GetByEmail(email)
	require.NoError(t, err, "Failed to get account")
	require.NotNil(t, account, "Account should exist")
	return account
}

// AssertAccountCount asserts the total number of accounts in the database
func (tdb *TestDB) AssertAccountCount(t *testing.T, expectedCount int) {
	var count int
	err := tdb.DB.Get(&count, "SELECT COUNT(*) FROM accounts")
	require.NoError(t, err, "Failed to count accounts")
	require.Equal(t, expectedCount, count, "Account count mismatch")
}

// AssertOTPConsumed asserts that a code is marked as consumed
func (tdb *TestDB) AssertOTPConsumed(t *testing.T, otpID int) {
	var consumed bool
	var consumedAt *time.Time
	err := tdb.DB.QueryRow("SELECT consumed, consumed_at FROM otp_codes WHERE id = $1", otpID).Scan(&consumed, &consumedAt)
	require.NoError(t, err, "Failed to get OTP status")
	require.True(t, consumed, "OTP should be marked as consumed")
	require.NotNil(t, consumedAt, "OTP should have consumed_at timestamp")
}

// AssertOTPNotConsumed asserts that a code is still active
func (tdb *TestDB) AssertOTPNotConsumed(t *testing.T, otpID int) {
	var consumed bool
	err := tdb.DB.Get(&consumed, "SELECT consumed FROM otp_codes WHERE id = $1", otpID)
	require.NoError(t, err, "Failed to get OTP status")
	require.False(t, consumed, "OTP should not be marked as consumed")
}

// GetActiveOTPCount returns the number of active codes for a subject and purpose
func (tdb *TestDB) GetActiveOTPCount(t *testing.T, subject string, purpose entity.Purpose) int {
	var count int
	err := tdb.DB.Get(&count,
		"SELECT COUNT(*) FROM otp_codes WHERE subject = $1 AND purpose = $2 AND consumed = FALSE AND expires_at > NOW()",
		subject, purpose)
	require.NoError(t, err, "Failed to count active OTPs")
	return count
}

// GetTotalOTPCount returns the total number of codes for a subject
func (tdb *TestDB) GetTotalOTPCount(t *testing.T, subject string) int {
	var count int
	err := tdb.DB.Get(&count, "SELECT COUNT(*) FROM otp_codes WHERE subject = $1", subject)
	require.NoError(t, err, "Failed to count total OTPs")
	return count
}

// GenerateTestPhoneNumber generates a test phone number with optional suffix
func GenerateTestPhoneNumber(suffix string) string {
	if suffix == "" {
		return "+1234567890"
	}
	return fmt.Sprintf("+12345678%s", suffix)
}

// GenerateTestOTPCode generates a test OTP code
func GenerateTestOTPCode(suffix string) string {
	if suffix == "" {
		return "123456"
	}
	return fmt.Sprintf("12345%s", suffix)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
