package entity

import (
	"time"
)

// Purpose identifies which flow an OTP code belongs to. Each (subject, purpose)
// pair has at most one active code at any time.
type Purpose string

const (
	PurposeSMSLogin         Purpose = "sms_login"
	PurposeEmailLogin       Purpose = "email_login"
	PurposePasswordRecovery Purpose = "password_recovery"
)

// CheckResult is the outcome of checking a code against the active record.
type CheckResult int

const (
	CheckNotFound CheckResult = iota
	CheckExpired
	CheckMismatch
	CheckLocked
	CheckMatch
)

func (r CheckResult) String() string {
	switch r {
	case CheckNotFound:
		return "not_found"
	case CheckExpired:
		return "expired"
	case CheckMismatch:
		return "mismatch"
	case CheckLocked:
		return "locked"
	case CheckMatch:
		return "match"
	default:
		return "unknown"
	}
}

// OTPCode represents the single active code for a (subject, purpose) pair.
// Subject is a phone number or email address depending on the channel.
type OTPCode struct {
	ID         int        `db:"id" json:"id"`
	Subject    string     `db:"subject" json:"subject"`
	Purpose    Purpose    `db:"purpose" json:"purpose"`
	Code       string     `db:"code" json:"code"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	Attempts   int        `db:"attempts" json:"attempts"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	Verified   bool       `db:"verified" json:"verified"` // password recovery only
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at"`
}

// TableName returns the table name for the OTPCode entity
func (OTPCode) TableName() string {
	return "otp_codes"
}

// IsExpired reports whether the code's TTL has elapsed at the given instant.
func (o *OTPCode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// SendSMSOTPRequest represents the request to send an OTP over SMS
type SendSMSOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone_number"`
}

// VerifySMSOTPRequest represents the request to verify an SMS OTP
type VerifySMSOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone_number"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// SendEmailOTPRequest represents the request to send an OTP over email
type SendEmailOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyEmailOTPRequest represents the request to verify an email OTP
type VerifyEmailOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// VerifyTOTPRequest represents the request to verify a time-based code
type VerifyTOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// TOTPSetupRequest represents the request to (re)configure TOTP for a user
type TOTPSetupRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RecoveryRequest represents the request to start password recovery
type RecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RecoveryVerifyRequest represents the request to verify a recovery code
type RecoveryVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// RecoveryResetRequest represents the final password reset step
type RecoveryResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,user_password"`
}

// SendOTPResponse represents the response after issuing a code
type SendOTPResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyOTPResponse represents the response after checking a code
type VerifyOTPResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// TOTPSetupResponse carries the provisioning URI for authenticator apps
type TOTPSetupResponse struct {
	Success bool   `json:"success"`
	TOTPURI string `json:"totp_uri"`
	Message string `json:"message"`
}
