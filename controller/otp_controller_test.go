package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"secureauth/entity"
	"secureauth/pkg/logger"
	"secureauth/service"
	"secureauth/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthService returns canned results for the OTP endpoints.
type stubAuthService struct {
	sendErr   error
	verifyOK  bool
	verifyErr error
}

func (s *stubAuthService) Register(req *entity.RegisterRequest) (*entity.RegisterResponse, error) {
	return nil, nil
}

func (s *stubAuthService) Login(req *entity.LoginRequest) (*entity.LoginResponse, error) {
	return nil, nil
}

func (s *stubAuthService) ResendOTP(email string) error { return nil }

func (s *stubAuthService) SendSMSOTP(phone string) (*entity.SendOTPResponse, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &entity.SendOTPResponse{Success: true, Message: "OTP sent successfully", ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (s *stubAuthService) VerifySMSOTP(phone, code string) (bool, error) {
	return s.verifyOK, s.verifyErr
}

func (s *stubAuthService) SendEmailOTP(email string) (*entity.SendOTPResponse, error) {
	return s.SendSMSOTP(email)
}

func (s *stubAuthService) VerifyEmailOTP(email, code string) (bool, error) {
	return s.verifyOK, s.verifyErr
}

func (s *stubAuthService) GetAccount(email string) (*entity.AccountResponse, error) {
	return nil, service.ErrAccountNotFound
}

func newOTPTestContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func controllerTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New("error", "development")
	require.NoError(t, err)
	return log
}

func TestOTPController_SendSMSOTP_Success(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/send-otp", `{"phone":"+1234567890"}`)

	require.NoError(t, ctrl.SendSMSOTP(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestOTPController_SendSMSOTP_InvalidPhone(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/send-otp", `{"phone":"not-a-phone"}`)

	require.NoError(t, ctrl.SendSMSOTP(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOTPController_SendSMSOTP_RateLimited(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{sendErr: service.ErrRateLimited}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/send-otp", `{"phone":"+1234567890"}`)

	require.NoError(t, ctrl.SendSMSOTP(ctx))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestOTPController_SendSMSOTP_UnknownAccount(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{sendErr: service.ErrAccountNotFound}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/send-otp", `{"phone":"+1234567890"}`)

	require.NoError(t, ctrl.SendSMSOTP(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOTPController_SendSMSOTP_DeliveryFailure(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{sendErr: service.ErrDeliveryFailed}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/send-otp", `{"phone":"+1234567890"}`)

	require.NoError(t, ctrl.SendSMSOTP(ctx))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOTPController_VerifySMSOTP_Match(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{verifyOK: true}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/verify-otp", `{"phone":"+1234567890","code":"123456"}`)

	require.NoError(t, ctrl.VerifySMSOTP(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)
}

func TestOTPController_VerifySMSOTP_Mismatch(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{verifyOK: false}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/sms/verify-otp", `{"phone":"+1234567890","code":"123456"}`)

	require.NoError(t, ctrl.VerifySMSOTP(ctx))
	// Mismatch, expired and missing all map to the same response
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired OTP")
}

func TestOTPController_VerifyEmailOTP_Match(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{verifyOK: true}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/email/verify-otp", `{"email":"user@example.com","otp":"123456"}`)

	require.NoError(t, ctrl.VerifyEmailOTP(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOTPController_VerifyEmailOTP_BadPayload(t *testing.T) {
	ctrl := NewOTPController(&stubAuthService{}, validator.New(), controllerTestLogger(t))
	ctx, rec := newOTPTestContext(t, http.MethodPost, "/api/auth/email/verify-otp", `{"email":"user@example.com"}`)

	require.NoError(t, ctrl.VerifyEmailOTP(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
