package service

import (
	"fmt"

	"secureauth/entity"
	"secureauth/pkg/logger"
	"secureauth/repository"
)

// RecoveryService implements the three-phase password recovery flow:
// request a code, verify it, then reset the password with the same code.
type RecoveryService interface {
	Request(email string) (*entity.SendOTPResponse, error)
	Verify(email, code string) (bool, error)
	Reset(email, code, newPassword string) (bool, error)
}

// recoveryService implements RecoveryService interface
type recoveryService struct {
	accountRepo repository.AccountRepository
	recoveryOTP OTPService
	hasher      PasswordHasher
	logger      *logger.Logger
}

// NewRecoveryService creates a new recovery service instance
func NewRecoveryService(
	accountRepo repository.AccountRepository,
	recoveryOTP OTPService,
	hasher PasswordHasher,
	logger *logger.Logger,
) RecoveryService {
	return &recoveryService{
		accountRepo: accountRepo,
		recoveryOTP: recoveryOTP,
		hasher:      hasher,
		logger:      logger,
	}
}

// Request issues a recovery code to a registered email address. Unknown
// addresses get no code and no stored record.
func (s *recoveryService) Request(email string) (*entity.SendOTPResponse, error) {
	account, err := s.accountRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	resp, err := s.recoveryOTP.Send(email)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Recovery code issued", "email", email)
	return resp, nil
}

// Verify checks a recovery code without consuming it, so the same code can
// still authorize the reset step.
func (s *recoveryService) Verify(email, code string) (bool, error) {
	result, record, err := s.recoveryOTP.Inspect(email, code)
	if err != nil {
		return false, err
	}
	if result != entity.CheckMatch {
		return false, nil
	}

	if err := s.recoveryOTP.MarkVerified(record.ID); err != nil {
		s.logger.Errorw("Failed to flag recovery code as verified", "email", email, "error", err)
	}
	return true, nil
}

// Reset re-checks the code, updates the password hash and consumes the
// code. The code is consumed only after the hash is stored, so a storage
// failure leaves it usable for a retry.
func (s *recoveryService) Reset(email, code, newPassword string) (bool, error) {
	result, record, err := s.recoveryOTP.Inspect(email, code)
	if err != nil {
		return false, err
	}
	if result != entity.CheckMatch {
		return false, nil
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.accountRepo.UpdatePasswordHash(email, passwordHash); err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.recoveryOTP.Consume(record.ID); err != nil {
		s.logger.Errorw("Failed to consume recovery code", "email", email, "error", err)
	}

	s.logger.Infow("Password reset completed", "email", email)
	return true, nil
}
