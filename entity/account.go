package entity

import (
	"time"
)

// AuthMethod selects the second-factor channel fixed at registration.
type AuthMethod string

const (
	AuthMethodSMS   AuthMethod = "sms"
	AuthMethodTOTP  AuthMethod = "totp"
	AuthMethodEmail AuthMethod = "email"
)

// Valid reports whether the method is one of the supported channels.
func (m AuthMethod) Valid() bool {
	switch m {
	case AuthMethodSMS, AuthMethodTOTP, AuthMethodEmail:
		return true
	}
	return false
}

// Account represents a registered identity in the system
type Account struct {
	ID           int        `db:"id" json:"id"`
	Email        string     `db:"email" json:"email" validate:"required,email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	AuthMethod   AuthMethod `db:"auth_method" json:"auth_method"`
	PhoneNumber  *string    `db:"phone_number" json:"phone_number,omitempty"`
	TOTPSecret   *string    `db:"totp_secret" json:"-"`
	Verified     bool       `db:"verified" json:"verified"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for the Account entity
func (Account) TableName() string {
	return "accounts"
}

// RegisterRequest represents the unified registration request
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,user_password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AuthMethod  string `json:"auth_method" validate:"required,oneof=sms totp email"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,phone_number"`
}

// LoginRequest represents the unified login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResendOTPRequest represents the request to re-issue a code for an account
type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// AccountResponse represents the public view of an account
type AccountResponse struct {
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	AuthMethod  AuthMethod `json:"auth_method"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	Verified    bool       `json:"verified"`
}

// RegisterResponse represents the registration outcome
type RegisterResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequiresOTP bool   `json:"requires_otp,omitempty"`
	RequiresQR  bool   `json:"requires_qr,omitempty"`
	TOTPURI     string `json:"totp_uri,omitempty"`
	AuthMethod  string `json:"auth_method"`
	Email       string `json:"email"`
}

// LoginResponse represents the first-phase login outcome
type LoginResponse struct {
	Success     bool   `json:"success"`
	RequiresOTP bool   `json:"requires_otp"`
	AuthMethod  string `json:"auth_method"`
	Message     string `json:"message,omitempty"`
	Email       string `json:"email"`
}
