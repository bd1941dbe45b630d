package service

import (
	"errors"
	"fmt"

	"secureauth/entity"
	"secureauth/pkg/logger"
	"secureauth/repository"
)

// Business errors mapped to HTTP statuses by the controllers.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongAuthMethod   = errors.New("account uses a different authentication method")
	ErrPhoneRequired     = errors.New("phone number is required for SMS authentication")
	ErrTOTPNotConfigured = errors.New("TOTP is not configured for this account")
)

// AuthService orchestrates registration, login and per-channel verification
type AuthService interface {
	Register(req *entity.RegisterRequest) (*entity.RegisterResponse, error)
	Login(req *entity.LoginRequest) (*entity.LoginResponse, error)
	ResendOTP(email string) error
	SendSMSOTP(phone string) (*entity.SendOTPResponse, error)
	VerifySMSOTP(phone, code string) (bool, error)
	SendEmailOTP(email string) (*entity.SendOTPResponse, error)
	VerifyEmailOTP(email, code string) (bool, error)
	GetAccount(email string) (*entity.AccountResponse, error)
}

// authService implements AuthService interface
type authService struct {
	accountRepo repository.AccountRepository
	smsOTP      OTPService
	emailOTP    OTPService
	totp        TOTPService
	hasher      PasswordHasher
	logger      *logger.Logger
}

// NewAuthService creates a new auth service instance
func NewAuthService(
	accountRepo repository.AccountRepository,
	smsOTP OTPService,
	emailOTP OTPService,
	totp TOTPService,
	hasher PasswordHasher,
	logger *logger.Logger,
) AuthService {
	return &authService{
		accountRepo: accountRepo,
		smsOTP:      smsOTP,
		emailOTP:    emailOTP,
		totp:        totp,
		hasher:      hasher,
		logger:      logger,
	}
}

// Register creates an account and starts verification for its channel
func (s *authService) Register(req *entity.RegisterRequest) (*entity.RegisterResponse, error) {
	method := entity.AuthMethod(req.AuthMethod)
	if !method.Valid() {
		return nil, fmt.Errorf("unsupported auth method %q", req.AuthMethod)
	}

	existing, err := s.accountRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	if method == entity.AuthMethodSMS && req.PhoneNumber == "" {
		return nil, ErrPhoneRequired
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &entity.Account{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		AuthMethod:   method,
	}
	if method == entity.AuthMethodSMS {
		phone := req.PhoneNumber
		account.PhoneNumber = &phone
	}

	created, err := s.accountRepo.Create(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Infow("Account registered", "email", created.Email, "auth_method", method)

	resp := &entity.RegisterResponse{
		Success:    true,
		AuthMethod: string(method),
		Email:      created.Email,
	}

	switch method {
	case entity.AuthMethodSMS:
		if _, err := s.smsOTP.Send(req.PhoneNumber); err != nil {
			return nil, err
		}
		resp.RequiresOTP = true
		resp.Message = "User registered. OTP sent to phone."

	case entity.AuthMethodEmail:
		if _, err := s.emailOTP.Send(req.Email); err != nil {
			return nil, err
		}
		resp.RequiresOTP = true
		resp.Message = "User registered. OTP sent to email."

	case entity.AuthMethodTOTP:
		uri, err := s.totp.Setup(req.Email)
		if err != nil {
			return nil, err
		}
		resp.RequiresQR = true
		resp.TOTPURI = uri
		resp.Message = "User registered. Scan the QR code with an authenticator app."
	}

	return resp, nil
}

// Login validates credentials and dispatches the account's second factor
func (s *authService) Login(req *entity.LoginRequest) (*entity.LoginResponse, error) {
	account, err := s.accountRepo.GetByEmail(req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash) {
		s.logger.Warnw("Password check failed", "email", req.Email)
		return nil, ErrInvalidCredentials
	}

	resp := &entity.LoginResponse{
		Success:    true,
		AuthMethod: string(account.AuthMethod),
		Email:      account.Email,
	}

	switch account.AuthMethod {
	case entity.AuthMethodSMS:
		if account.PhoneNumber == nil || *account.PhoneNumber == "" {
			return nil, ErrPhoneRequired
		}
		if _, err := s.smsOTP.Send(*account.PhoneNumber); err != nil {
			return nil, err
		}
		resp.RequiresOTP = true
		resp.Message = "OTP sent to your phone"

	case entity.AuthMethodEmail:
		if _, err := s.emailOTP.Send(account.Email); err != nil {
			return nil, err
		}
		resp.RequiresOTP = true
		resp.Message = "OTP sent to your email"

	case entity.AuthMethodTOTP:
		// Codes come from the authenticator app; nothing to issue
		resp.RequiresOTP = account.TOTPSecret != nil && *account.TOTPSecret != ""
	}

	return resp, nil
}

// ResendOTP re-issues a code for the account's channel, overwriting the
// previous one
func (s *authService) ResendOTP(email string) error {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return ErrAccountNotFound
	}

	switch account.AuthMethod {
	case entity.AuthMethodSMS:
		if account.PhoneNumber == nil || *account.PhoneNumber == "" {
			return ErrPhoneRequired
		}
		_, err := s.smsOTP.Send(*account.PhoneNumber)
		return err

	case entity.AuthMethodEmail:
		_, err := s.emailOTP.Send(account.Email)
		return err

	default:
		return ErrWrongAuthMethod
	}
}

// SendSMSOTP issues a code to a phone number that belongs to an SMS account
func (s *authService) SendSMSOTP(phone string) (*entity.SendOTPResponse, error) {
	account, err := s.accountRepo.GetByPhoneNumber(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.AuthMethod != entity.AuthMethodSMS {
		return nil, ErrWrongAuthMethod
	}

	return s.smsOTP.Send(phone)
}

// VerifySMSOTP checks a code and marks the owning account verified on match
func (s *authService) VerifySMSOTP(phone, code string) (bool, error) {
	result, err := s.smsOTP.Verify(phone, code)
	if err != nil {
		return false, err
	}
	if result != entity.CheckMatch {
		return false, nil
	}

	s.markAccountVerifiedByPhone(phone)
	return true, nil
}

// SendEmailOTP issues a code to an email address that belongs to an email
// OTP account
func (s *authService) SendEmailOTP(email string) (*entity.SendOTPResponse, error) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.AuthMethod != entity.AuthMethodEmail {
		return nil, ErrWrongAuthMethod
	}

	return s.emailOTP.Send(email)
}

// VerifyEmailOTP checks a code and marks the account verified on match
func (s *authService) VerifyEmailOTP(email, code string) (bool, error) {
	result, err := s.emailOTP.Verify(email, code)
	if err != nil {
		return false, err
	}
	if result != entity.CheckMatch {
		return false, nil
	}

	if err := s.accountRepo.MarkVerified(email); err != nil {
		s.logger.Errorw("Failed to mark account as verified", "email", email, "error", err)
	}
	return true, nil
}

// GetAccount returns the public view of an account
func (s *authService) GetAccount(email string) (*entity.AccountResponse, error) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	return &entity.AccountResponse{
		Email:       account.Email,
		FirstName:   account.FirstName,
		AuthMethod:  account.AuthMethod,
		PhoneNumber: account.PhoneNumber,
		Verified:    account.Verified,
	}, nil
}

func (s *authService) markAccountVerifiedByPhone(phone string) {
	account, err := s.accountRepo.GetByPhoneNumber(phone)
	if err != nil || account == nil {
		s.logger.Warnw("No account found for verified phone", "phone", phone, "error", err)
		return
	}
	if account.Verified {
		return
	}
	if err := s.accountRepo.MarkVerified(account.Email); err != nil {
		s.logger.Errorw("Failed to mark account as verified", "email", account.Email, "error", err)
	}
}
