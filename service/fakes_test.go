package service

import (
	"fmt"
	"time"

	"secureauth/config"
	"secureauth/entity"
	"secureauth/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		OTP: config.OTP{
			Length:         6,
			ExpirationTime: 10 * time.Minute,
			MaxAttempts:    0,
		},
		RateLimit: config.RateLimit{
			MaxRequests:    3,
			WindowDuration: 10 * time.Minute,
		},
		TOTP: config.TOTP{
			Issuer: "SecureAuth",
			Period: 30,
			Skew:   1,
		},
		Bcrypt: config.Bcrypt{
			Cost: 4, // MinCost, keeps the suite fast
		},
	}
}

func testLogger() *logger.Logger {
	log, err := logger.New("error", "development")
	if err != nil {
		panic(err)
	}
	return log
}

// fakeOTPRepo is an in-memory OTPRepository with the same single active
// record per (subject, purpose) behavior as the Postgres implementation.
type fakeOTPRepo struct {
	records map[string]*entity.OTPCode
	byID    map[int]*entity.OTPCode
	nextID  int
}

func newFakeOTPRepo() *fakeOTPRepo {
	return &fakeOTPRepo{
		records: make(map[string]*entity.OTPCode),
		byID:    make(map[int]*entity.OTPCode),
		nextID:  1,
	}
}

func otpKey(subject string, purpose entity.Purpose) string {
	return subject + "|" + string(purpose)
}

func (r *fakeOTPRepo) Upsert(otp *entity.OTPCode) (*entity.OTPCode, error) {
	key := otpKey(otp.Subject, otp.Purpose)
	if old, ok := r.records[key]; ok {
		delete(r.byID, old.ID)
	}

	stored := &entity.OTPCode{
		ID:        r.nextID,
		Subject:   otp.Subject,
		Purpose:   otp.Purpose,
		Code:      otp.Code,
		ExpiresAt: otp.ExpiresAt,
		CreatedAt: time.Now(),
	}
	r.nextID++
	r.records[key] = stored
	r.byID[stored.ID] = stored

	copied := *stored
	return &copied, nil
}

func (r *fakeOTPRepo) GetActive(subject string, purpose entity.Purpose) (*entity.OTPCode, error) {
	rec, ok := r.records[otpKey(subject, purpose)]
	if !ok || rec.Consumed {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeOTPRepo) IncrementAttempts(id int) error {
	rec, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("otp record not found")
	}
	rec.Attempts++
	return nil
}

func (r *fakeOTPRepo) MarkVerified(id int) error {
	rec, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("otp record not found")
	}
	rec.Verified = true
	return nil
}

func (r *fakeOTPRepo) MarkConsumed(id int) error {
	rec, ok := r.byID[id]
	if !ok || rec.Consumed {
		return fmt.Errorf("otp record not found or already consumed")
	}
	now := time.Now()
	rec.Consumed = true
	rec.ConsumedAt = &now
	return nil
}

func (r *fakeOTPRepo) Delete(id int) error {
	rec, ok := r.byID[id]
	if !ok {
		return nil
	}
	delete(r.records, otpKey(rec.Subject, rec.Purpose))
	delete(r.byID, id)
	return nil
}

func (r *fakeOTPRepo) DeleteExpired() (int64, error) {
	var removed int64
	now := time.Now()
	for key, rec := range r.records {
		if now.After(rec.ExpiresAt) {
			delete(r.records, key)
			delete(r.byID, rec.ID)
			removed++
		}
	}
	return removed, nil
}

// active returns the raw stored record for assertions.
func (r *fakeOTPRepo) active(subject string, purpose entity.Purpose) *entity.OTPCode {
	return r.records[otpKey(subject, purpose)]
}

// fakeRateLimitRepo is an in-memory RateLimitRepository.
type fakeRateLimitRepo struct {
	limits map[string]*entity.RateLimitInfo
}

func newFakeRateLimitRepo() *fakeRateLimitRepo {
	return &fakeRateLimitRepo{limits: make(map[string]*entity.RateLimitInfo)}
}

func (r *fakeRateLimitRepo) GetRateLimit(subject string) (*entity.RateLimitInfo, error) {
	info, ok := r.limits[subject]
	if !ok {
		return nil, nil
	}
	copied := *info
	return &copied, nil
}

func (r *fakeRateLimitRepo) UpdateRateLimit(info *entity.RateLimitInfo) error {
	copied := *info
	r.limits[info.Subject] = &copied
	return nil
}

func (r *fakeRateLimitRepo) CleanupRateLimits(olderThan time.Time) error {
	for subject, info := range r.limits {
		if info.LastRequestAt.Before(olderThan) {
			delete(r.limits, subject)
		}
	}
	return nil
}

// fakeSender records delivered codes and can be told to fail.
type fakeSender struct {
	sent []sentCode
	fail bool
}

type sentCode struct {
	to   string
	code string
}

func (s *fakeSender) Send(to, code string) error {
	if s.fail {
		return fmt.Errorf("provider unavailable")
	}
	s.sent = append(s.sent, sentCode{to: to, code: code})
	return nil
}

func (s *fakeSender) lastCode() string {
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1].code
}

// fakeAccountRepo is an in-memory AccountRepository.
type fakeAccountRepo struct {
	byEmail map[string]*entity.Account
	nextID  int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byEmail: make(map[string]*entity.Account), nextID: 1}
}

func (r *fakeAccountRepo) Create(account *entity.Account) (*entity.Account, error) {
	if _, ok := r.byEmail[account.Email]; ok {
		return nil, fmt.Errorf("duplicate email")
	}
	stored := *account
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.nextID++
	r.byEmail[account.Email] = &stored

	copied := stored
	return &copied, nil
}

func (r *fakeAccountRepo) GetByEmail(email string) (*entity.Account, error) {
	account, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) GetByPhoneNumber(phoneNumber string) (*entity.Account, error) {
	for _, account := range r.byEmail {
		if account.PhoneNumber != nil && *account.PhoneNumber == phoneNumber {
			copied := *account
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) MarkVerified(email string) error {
	account, ok := r.byEmail[email]
	if !ok {
		return fmt.Errorf("account not found")
	}
	account.Verified = true
	return nil
}

func (r *fakeAccountRepo) UpdatePasswordHash(email, passwordHash string) error {
	account, ok := r.byEmail[email]
	if !ok {
		return fmt.Errorf("account not found")
	}
	account.PasswordHash = passwordHash
	return nil
}

func (r *fakeAccountRepo) UpdateTOTPSecret(email, secret string) error {
	account, ok := r.byEmail[email]
	if !ok {
		return fmt.Errorf("account not found")
	}
	account.TOTPSecret = &secret
	return nil
}
