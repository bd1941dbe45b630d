package service

import (
	"bytes"
	"fmt"
	"image/png"
	"net/url"
	"time"

	"secureauth/config"
	"secureauth/pkg/logger"
	"secureauth/repository"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPService manages authenticator-app second factors. The shared secret is
// long-lived; codes are derived client-side, so nothing is issued or stored
// per login.
type TOTPService interface {
	// Setup provisions a new secret for the account and returns the
	// otpauth:// URI for authenticator apps.
	Setup(email string) (string, error)
	// Verify validates a code against the account's secret and marks the
	// account verified on success.
	Verify(email, code string) (bool, error)
	// QRCode renders the provisioning URI as a PNG image.
	QRCode(email string, size int) ([]byte, error)
}

// totpService implements TOTPService interface
type totpService struct {
	accountRepo repository.AccountRepository
	cfg         *config.Config
	logger      *logger.Logger
}

// NewTOTPService creates a new TOTP service instance
func NewTOTPService(accountRepo repository.AccountRepository, cfg *config.Config, logger *logger.Logger) TOTPService {
	return &totpService{
		accountRepo: accountRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// Setup provisions a new shared secret for the account
func (s *totpService) Setup(email string) (string, error) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return "", fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return "", ErrAccountNotFound
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.TOTP.Issuer,
		AccountName: email,
		Period:      s.cfg.TOTP.Period,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	if err := s.accountRepo.UpdateTOTPSecret(email, key.Secret()); err != nil {
		return "", fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	s.logger.Infow("TOTP secret provisioned", "email", email)
	return key.URL(), nil
}

// Verify validates a code against the account's stored secret
func (s *totpService) Verify(email, code string) (bool, error) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return false, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return false, ErrAccountNotFound
	}
	if account.TOTPSecret == nil || *account.TOTPSecret == "" {
		return false, ErrTOTPNotConfigured
	}

	valid, err := totp.ValidateCustom(code, *account.TOTPSecret, time.Now(), totp.ValidateOpts{
		Period:    s.cfg.TOTP.Period,
		Skew:      s.cfg.TOTP.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !valid {
		s.logger.Warnw("TOTP verification failed", "email", email)
		return false, nil
	}

	if !account.Verified {
		if err := s.accountRepo.MarkVerified(email); err != nil {
			s.logger.Errorw("Failed to mark account as verified", "email", email, "error", err)
			return false, fmt.Errorf("failed to mark account as verified: %w", err)
		}
	}

	s.logger.Infow("TOTP verified", "email", email)
	return true, nil
}

// QRCode renders the account's provisioning URI as a PNG
func (s *totpService) QRCode(email string, size int) ([]byte, error) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.TOTPSecret == nil || *account.TOTPSecret == "" {
		return nil, ErrTOTPNotConfigured
	}

	key, err := otp.NewKeyFromURL(s.provisioningURI(email, *account.TOTPSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to build provisioning key: %w", err)
	}

	img, err := key.Image(size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode QR image: %w", err)
	}

	return buf.Bytes(), nil
}

// provisioningURI rebuilds the otpauth URI from a stored secret
func (s *totpService) provisioningURI(email, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", s.cfg.TOTP.Issuer)
	v.Set("period", fmt.Sprintf("%d", s.cfg.TOTP.Period))
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + s.cfg.TOTP.Issuer + ":" + email,
		RawQuery: v.Encode(),
	}
	return u.String()
}
