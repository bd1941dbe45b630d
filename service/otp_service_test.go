package service

import (
	"testing"
	"time"

	"secureauth/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(purpose entity.Purpose) (OTPService, *fakeOTPRepo, *fakeRateLimitRepo, *fakeSender) {
	otpRepo := newFakeOTPRepo()
	rateLimitRepo := newFakeRateLimitRepo()
	sender := &fakeSender{}
	svc := NewOTPService(purpose, sender, otpRepo, rateLimitRepo, testConfig(), testLogger())
	return svc, otpRepo, rateLimitRepo, sender
}

func TestOTPService_Send_IssuesCode(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposeSMSLogin)

	resp, err := svc.Send("+1234567890")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), resp.ExpiresAt, 5*time.Second)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+1234567890", sender.sent[0].to)
	assert.Len(t, sender.sent[0].code, 6)

	stored := otpRepo.active("+1234567890", entity.PurposeSMSLogin)
	require.NotNil(t, stored)
	assert.Equal(t, sender.sent[0].code, stored.Code)
	assert.False(t, stored.Consumed)
	assert.Zero(t, stored.Attempts)
}

func TestOTPService_Send_ReplacesActiveCode(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposeSMSLogin)

	_, err := svc.Send("+1234567890")
	require.NoError(t, err)
	first := sender.lastCode()

	_, err = svc.Send("+1234567890")
	require.NoError(t, err)
	second := sender.lastCode()

	// Only the most recent code validates
	stored := otpRepo.active("+1234567890", entity.PurposeSMSLogin)
	require.NotNil(t, stored)
	assert.Equal(t, second, stored.Code)

	if first != second {
		result, err := svc.Verify("+1234567890", first)
		require.NoError(t, err)
		assert.Equal(t, entity.CheckMismatch, result)
	}

	result, err := svc.Verify("+1234567890", second)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckMatch, result)
}

func TestOTPService_Send_RateLimited(t *testing.T) {
	svc, _, _, sender := newTestEngine(entity.PurposeSMSLogin)

	for i := 0; i < 3; i++ {
		_, err := svc.Send("+1234567890")
		require.NoError(t, err)
	}

	_, err := svc.Send("+1234567890")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, sender.sent, 3)

	// Other subjects are unaffected
	_, err = svc.Send("+1987654321")
	assert.NoError(t, err)
}

func TestOTPService_Send_RateLimitWindowExpires(t *testing.T) {
	svc, _, rateLimitRepo, _ := newTestEngine(entity.PurposeSMSLogin)

	rateLimitRepo.limits["+1234567890"] = &entity.RateLimitInfo{
		Subject:       "+1234567890",
		RequestCount:  3,
		LastRequestAt: time.Now().Add(-11 * time.Minute),
		WindowStartAt: time.Now().Add(-11 * time.Minute),
	}

	_, err := svc.Send("+1234567890")
	assert.NoError(t, err)

	// The counter restarted with the new window
	info := rateLimitRepo.limits["+1234567890"]
	assert.Equal(t, 1, info.RequestCount)
}

func TestOTPService_Send_DeliveryFailureKeepsRecord(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposeSMSLogin)
	sender.fail = true

	_, err := svc.Send("+1234567890")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	// The stored code stays; a later resend overwrites it
	stored := otpRepo.active("+1234567890", entity.PurposeSMSLogin)
	require.NotNil(t, stored)

	sender.fail = false
	_, err = svc.Send("+1234567890")
	require.NoError(t, err)
	assert.Equal(t, sender.lastCode(), otpRepo.active("+1234567890", entity.PurposeSMSLogin).Code)
}

func TestOTPService_Verify_ConsumesOnMatch(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposeEmailLogin)

	_, err := svc.Send("user@example.com")
	require.NoError(t, err)
	code := sender.lastCode()

	result, err := svc.Verify("user@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckMatch, result)

	stored := otpRepo.byID[1]
	require.NotNil(t, stored)
	assert.True(t, stored.Consumed)
	require.NotNil(t, stored.ConsumedAt)

	// A second verify with the same code finds nothing
	result, err = svc.Verify("user@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckNotFound, result)
}

func TestOTPService_Verify_Mismatch(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposeEmailLogin)

	_, err := svc.Send("user@example.com")
	require.NoError(t, err)
	code := sender.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}

	result, err := svc.Verify("user@example.com", wrong)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckMismatch, result)

	// Failed attempts are counted and the code stays valid
	stored := otpRepo.active("user@example.com", entity.PurposeEmailLogin)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.Attempts)

	result, err = svc.Verify("user@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckMatch, result)
}

func TestOTPService_Verify_NotFound(t *testing.T) {
	svc, _, _, _ := newTestEngine(entity.PurposeSMSLogin)

	result, err := svc.Verify("+1234567890", "123456")
	require.NoError(t, err)
	assert.Equal(t, entity.CheckNotFound, result)
}

func TestOTPService_Verify_ExpiredReapsRecord(t *testing.T) {
	svc, otpRepo, _, _ := newTestEngine(entity.PurposeSMSLogin)

	_, err := otpRepo.Upsert(&entity.OTPCode{
		Subject:   "+1234567890",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "123456",
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	})
	require.NoError(t, err)

	result, err := svc.Verify("+1234567890", "123456")
	require.NoError(t, err)
	assert.Equal(t, entity.CheckExpired, result)

	// The expired record was removed
	assert.Nil(t, otpRepo.active("+1234567890", entity.PurposeSMSLogin))
}

func TestOTPService_Verify_LockedAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxAttempts = 3

	otpRepo := newFakeOTPRepo()
	sender := &fakeSender{}
	svc := NewOTPService(entity.PurposeSMSLogin, sender, otpRepo, newFakeRateLimitRepo(), cfg, testLogger())

	_, err := svc.Send("+1234567890")
	require.NoError(t, err)
	code := sender.lastCode()

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		result, err := svc.Verify("+1234567890", wrong)
		require.NoError(t, err)
		assert.Equal(t, entity.CheckMismatch, result)
	}

	// Even the right code is rejected once locked
	result, err := svc.Verify("+1234567890", code)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckLocked, result)
}

func TestOTPService_PurposesAreIsolated(t *testing.T) {
	otpRepo := newFakeOTPRepo()
	rateLimitRepo := newFakeRateLimitRepo()
	loginSender := &fakeSender{}
	recoverySender := &fakeSender{}
	cfg := testConfig()
	log := testLogger()

	loginSvc := NewOTPService(entity.PurposeEmailLogin, loginSender, otpRepo, rateLimitRepo, cfg, log)
	recoverySvc := NewOTPService(entity.PurposePasswordRecovery, recoverySender, otpRepo, rateLimitRepo, cfg, log)

	_, err := loginSvc.Send("user@example.com")
	require.NoError(t, err)
	_, err = recoverySvc.Send("user@example.com")
	require.NoError(t, err)

	// A recovery code does not validate against the login flow
	result, err := loginSvc.Verify("user@example.com", recoverySender.lastCode())
	require.NoError(t, err)
	if recoverySender.lastCode() != loginSender.lastCode() {
		assert.Equal(t, entity.CheckMismatch, result)
	}

	result, err = recoverySvc.Verify("user@example.com", recoverySender.lastCode())
	require.NoError(t, err)
	assert.Equal(t, entity.CheckMatch, result)
}

func TestOTPService_Inspect_DoesNotConsume(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposePasswordRecovery)

	_, err := svc.Send("user@example.com")
	require.NoError(t, err)
	code := sender.lastCode()

	result, record, err := svc.Inspect("user@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckMatch, result)
	require.NotNil(t, record)

	// The record is still active after inspection
	stored := otpRepo.active("user@example.com", entity.PurposePasswordRecovery)
	require.NotNil(t, stored)
	assert.False(t, stored.Consumed)

	// And can still be consumed afterwards
	require.NoError(t, svc.Consume(record.ID))
	assert.True(t, otpRepo.byID[record.ID].Consumed)
}

func TestOTPService_MarkVerified(t *testing.T) {
	svc, otpRepo, _, sender := newTestEngine(entity.PurposePasswordRecovery)

	_, err := svc.Send("user@example.com")
	require.NoError(t, err)

	_, record, err := svc.Inspect("user@example.com", sender.lastCode())
	require.NoError(t, err)
	require.NotNil(t, record)

	require.NoError(t, svc.MarkVerified(record.ID))
	stored := otpRepo.byID[record.ID]
	assert.True(t, stored.Verified)
	assert.False(t, stored.Consumed)
}

func TestOTPService_CleanupExpired(t *testing.T) {
	svc, otpRepo, rateLimitRepo, _ := newTestEngine(entity.PurposeSMSLogin)

	_, err := otpRepo.Upsert(&entity.OTPCode{
		Subject:   "+1111111111",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "111111",
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	})
	require.NoError(t, err)
	_, err = otpRepo.Upsert(&entity.OTPCode{
		Subject:   "+2222222222",
		Purpose:   entity.PurposeSMSLogin,
		Code:      "222222",
		ExpiresAt: time.Now().Add(1 * time.Hour),
	})
	require.NoError(t, err)

	rateLimitRepo.limits["stale"] = &entity.RateLimitInfo{
		Subject:       "stale",
		LastRequestAt: time.Now().Add(-48 * time.Hour),
	}

	removed, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	assert.Nil(t, otpRepo.active("+1111111111", entity.PurposeSMSLogin))
	assert.NotNil(t, otpRepo.active("+2222222222", entity.PurposeSMSLogin))
	assert.NotContains(t, rateLimitRepo.limits, "stale")
}

func TestOTPService_GeneratedCodesAreNumeric(t *testing.T) {
	svc, _, _, sender := newTestEngine(entity.PurposeSMSLogin)

	subjects := []string{"+1000000001", "+1000000002", "+1000000003"}
	for _, subject := range subjects {
		_, err := svc.Send(subject)
		require.NoError(t, err)
	}

	for _, sent := range sender.sent {
		assert.Len(t, sent.code, 6)
		for _, r := range sent.code {
			assert.True(t, r >= '0' && r <= '9', "code %q should be numeric", sent.code)
		}
	}
}
