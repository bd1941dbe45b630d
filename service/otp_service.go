package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"secureauth/config"
	"secureauth/entity"
	"secureauth/gateway"
	"secureauth/pkg/logger"
	"secureauth/repository"
)

// Sentinel errors surfaced to controllers for status mapping. Everything else
// is reported as a generic internal failure.
var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrDeliveryFailed = errors.New("failed to deliver OTP")
)

// OTPService is the generic OTP engine for one channel. It is instantiated
// once per purpose with the delivery gateway for that channel.
type OTPService interface {
	// Send generates a code, persists it (replacing any active code for the
	// subject) and delivers it. A persisted-but-undelivered code is left in
	// place; the next Send overwrites it.
	Send(subject string) (*entity.SendOTPResponse, error)
	// Verify checks a code and consumes the record on match.
	Verify(subject, code string) (entity.CheckResult, error)
	// Inspect checks a code without consuming it. Expired records are reaped
	// and failed matches are counted, same as Verify.
	Inspect(subject, code string) (entity.CheckResult, *entity.OTPCode, error)
	// MarkVerified flags the record as verified without consuming it
	// (password recovery intermediate state).
	MarkVerified(id int) error
	// Consume terminally consumes the record.
	Consume(id int) error
	// CleanupExpired removes expired records across all subjects.
	CleanupExpired() (int64, error)
}

// otpService implements OTPService interface
type otpService struct {
	purpose       entity.Purpose
	sender        gateway.Sender
	otpRepo       repository.OTPRepository
	rateLimitRepo repository.RateLimitRepository
	cfg           *config.Config
	logger        *logger.Logger
}

// NewOTPService creates an OTP engine for one channel
func NewOTPService(
	purpose entity.Purpose,
	sender gateway.Sender,
	otpRepo repository.OTPRepository,
	rateLimitRepo repository.RateLimitRepository,
	cfg *config.Config,
	logger *logger.Logger,
) OTPService {
	return &otpService{
		purpose:       purpose,
		sender:        sender,
		otpRepo:       otpRepo,
		rateLimitRepo: rateLimitRepo,
		cfg:           cfg,
		logger:        logger,
	}
}

// Send generates, persists and delivers a code for the subject
func (s *otpService) Send(subject string) (*entity.SendOTPResponse, error) {
	limited, err := s.isRateLimited(subject)
	if err != nil {
		s.logger.Errorw("Failed to check rate limit", "subject", subject, "error", err)
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if limited {
		return nil, ErrRateLimited
	}

	code, err := s.generateCode()
	if err != nil {
		s.logger.Errorw("Failed to generate OTP code", "error", err)
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	otp := &entity.OTPCode{
		Subject:   subject,
		Purpose:   s.purpose,
		Code:      code,
		ExpiresAt: time.Now().Add(s.cfg.OTP.ExpirationTime),
	}

	stored, err := s.otpRepo.Upsert(otp)
	if err != nil {
		s.logger.Errorw("Failed to store OTP", "subject", subject, "purpose", s.purpose, "error", err)
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	if err := s.updateRateLimit(subject); err != nil {
		// The code was stored; rate limit bookkeeping failure is not fatal
		s.logger.Errorw("Failed to update rate limit", "subject", subject, "error", err)
	}

	if err := s.sender.Send(subject, code); err != nil {
		// The stored code stays; a resend overwrites it
		s.logger.Errorw("Failed to deliver OTP", "subject", subject, "purpose", s.purpose, "error", err)
		return nil, ErrDeliveryFailed
	}

	s.logger.Infow("OTP issued", "subject", subject, "purpose", s.purpose, "expires_at", stored.ExpiresAt)

	return &entity.SendOTPResponse{
		Success:   true,
		Message:   "OTP sent successfully",
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Verify checks a code and consumes the record on match
func (s *otpService) Verify(subject, code string) (entity.CheckResult, error) {
	result, otp, err := s.Inspect(subject, code)
	if err != nil {
		return result, err
	}

	if result != entity.CheckMatch {
		return result, nil
	}

	if err := s.otpRepo.MarkConsumed(otp.ID); err != nil {
		// A concurrent verify already consumed it; treat as not found
		s.logger.Warnw("Failed to consume OTP", "subject", subject, "otp_id", otp.ID, "error", err)
		return entity.CheckNotFound, nil
	}

	s.logger.Infow("OTP verified", "subject", subject, "purpose", s.purpose)
	return entity.CheckMatch, nil
}

// Inspect checks a code without consuming the record
func (s *otpService) Inspect(subject, code string) (entity.CheckResult, *entity.OTPCode, error) {
	otp, err := s.otpRepo.GetActive(subject, s.purpose)
	if err != nil {
		s.logger.Errorw("Failed to look up OTP", "subject", subject, "purpose", s.purpose, "error", err)
		return entity.CheckNotFound, nil, fmt.Errorf("failed to look up OTP: %w", err)
	}

	if otp == nil {
		return entity.CheckNotFound, nil, nil
	}

	if otp.IsExpired(time.Now()) {
		if err := s.otpRepo.Delete(otp.ID); err != nil {
			s.logger.Errorw("Failed to reap expired OTP", "otp_id", otp.ID, "error", err)
		}
		return entity.CheckExpired, nil, nil
	}

	if s.cfg.OTP.MaxAttempts > 0 && otp.Attempts >= s.cfg.OTP.MaxAttempts {
		s.logger.Warnw("OTP attempt limit reached", "subject", subject, "purpose", s.purpose, "attempts", otp.Attempts)
		return entity.CheckLocked, nil, nil
	}

	if otp.Code != code {
		if err := s.otpRepo.IncrementAttempts(otp.ID); err != nil {
			s.logger.Errorw("Failed to count failed attempt", "otp_id", otp.ID, "error", err)
		}
		return entity.CheckMismatch, nil, nil
	}

	return entity.CheckMatch, otp, nil
}

// MarkVerified flags the record as verified without consuming it
func (s *otpService) MarkVerified(id int) error {
	return s.otpRepo.MarkVerified(id)
}

// Consume terminally consumes the record
func (s *otpService) Consume(id int) error {
	return s.otpRepo.MarkConsumed(id)
}

// CleanupExpired removes expired records across all subjects
func (s *otpService) CleanupExpired() (int64, error) {
	removed, err := s.otpRepo.DeleteExpired()
	if err != nil {
		s.logger.Errorw("Failed to delete expired OTPs", "error", err)
		return 0, fmt.Errorf("failed to delete expired OTPs: %w", err)
	}

	if removed > 0 {
		s.logger.Infow("Expired OTPs removed", "count", removed)
	}

	if err := s.rateLimitRepo.CleanupRateLimits(time.Now().Add(-24 * time.Hour)); err != nil {
		s.logger.Errorw("Failed to cleanup rate limits", "error", err)
	}

	return removed, nil
}

// isRateLimited checks if the subject has exceeded the issuance rate limit
func (s *otpService) isRateLimited(subject string) (bool, error) {
	info, err := s.rateLimitRepo.GetRateLimit(subject)
	if err != nil {
		return false, fmt.Errorf("failed to get rate limit info: %w", err)
	}

	if info == nil || info.WindowStartAt.IsZero() {
		return false, nil
	}

	if time.Since(info.WindowStartAt) >= s.cfg.RateLimit.WindowDuration {
		return false, nil
	}

	return info.RequestCount >= s.cfg.RateLimit.MaxRequests, nil
}

// updateRateLimit records one more issuance for the subject
func (s *otpService) updateRateLimit(subject string) error {
	info, err := s.rateLimitRepo.GetRateLimit(subject)
	if err != nil {
		return fmt.Errorf("failed to get rate limit info: %w", err)
	}

	now := time.Now()

	if info == nil || info.WindowStartAt.IsZero() {
		info = &entity.RateLimitInfo{
			Subject:       subject,
			RequestCount:  1,
			LastRequestAt: now,
			WindowStartAt: now,
		}
	} else {
		if now.Sub(info.WindowStartAt) >= s.cfg.RateLimit.WindowDuration {
			info.RequestCount = 1
			info.WindowStartAt = now
		} else {
			info.RequestCount++
		}
		info.LastRequestAt = now
	}

	return s.rateLimitRepo.UpdateRateLimit(info)
}

// generateCode produces a fixed-length numeric code from crypto/rand
func (s *otpService) generateCode() (string, error) {
	maxValue := big.NewInt(1)
	for i := 0; i < s.cfg.OTP.Length; i++ {
		maxValue.Mul(maxValue, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, maxValue)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	format := fmt.Sprintf("%%0%dd", s.cfg.OTP.Length)
	return fmt.Sprintf(format, n), nil
}
