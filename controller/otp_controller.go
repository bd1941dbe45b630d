package controller

import (
	"errors"
	"net/http"

	"secureauth/entity"
	"secureauth/pkg/logger"
	"secureauth/service"
	"secureauth/validator"

	"github.com/labstack/echo/v4"
)

// OTPController handles the per-channel SMS and email OTP endpoints
type OTPController struct {
	authService service.AuthService
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewOTPController creates a new OTP controller instance
func NewOTPController(authService service.AuthService, validator *validator.Validator, logger *logger.Logger) *OTPController {
	return &OTPController{
		authService: authService,
		validator:   validator,
		logger:      logger,
	}
}

// SendSMSOTP handles SMS OTP generation and sending
// @Summary Send SMS OTP
// @Description Generate and send an OTP to the provided phone number
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.SendSMSOTPRequest true "Send SMS OTP Request"
// @Success 200 {object} entity.SendOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/sms/send-otp [post]
func (c *OTPController) SendSMSOTP(ctx echo.Context) error {
	var req entity.SendSMSOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "phone", req.Phone, "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	response, err := c.authService.SendSMSOTP(req.Phone)
	if err != nil {
		return c.sendErrorResponse(ctx, "phone", req.Phone, err)
	}

	c.logger.Infow("SMS OTP sent", "phone", req.Phone)
	return ctx.JSON(http.StatusOK, response)
}

// VerifySMSOTP handles SMS OTP verification
// @Summary Verify SMS OTP
// @Description Verify an SMS OTP; a matching code is consumed
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.VerifySMSOTPRequest true "Verify SMS OTP Request"
// @Success 200 {object} entity.VerifyOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/sms/verify-otp [post]
func (c *OTPController) VerifySMSOTP(ctx echo.Context) error {
	var req entity.VerifySMSOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "phone", req.Phone, "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	valid, err := c.authService.VerifySMSOTP(req.Phone, req.Code)
	if err != nil {
		c.logger.Errorw("Failed to verify SMS OTP", "phone", req.Phone, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to verify OTP",
			"details": "Internal server error",
		})
	}
	if !valid {
		c.logger.Warnw("SMS OTP verification failed", "phone", req.Phone)
		return invalidOTPResponse(ctx)
	}

	c.logger.Infow("SMS OTP verified", "phone", req.Phone)
	return ctx.JSON(http.StatusOK, entity.VerifyOTPResponse{
		Valid:   true,
		Message: "OTP verified successfully",
	})
}

// SendEmailOTP handles email OTP generation and sending
// @Summary Send Email OTP
// @Description Generate and email an OTP to the provided address
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.SendEmailOTPRequest true "Send Email OTP Request"
// @Success 200 {object} entity.SendOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/email/send-otp [post]
func (c *OTPController) SendEmailOTP(ctx echo.Context) error {
	var req entity.SendEmailOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	response, err := c.authService.SendEmailOTP(req.Email)
	if err != nil {
		return c.sendErrorResponse(ctx, "email", req.Email, err)
	}

	c.logger.Infow("Email OTP sent", "email", req.Email)
	return ctx.JSON(http.StatusOK, response)
}

// VerifyEmailOTP handles email OTP verification
// @Summary Verify Email OTP
// @Description Verify an email OTP; a matching code is consumed
// @Tags OTP
// @Accept json
// @Produce json
// @Param request body entity.VerifyEmailOTPRequest true "Verify Email OTP Request"
// @Success 200 {object} entity.VerifyOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/email/verify-otp [post]
func (c *OTPController) VerifyEmailOTP(ctx echo.Context) error {
	var req entity.VerifyEmailOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Errorw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.logger.Warnw("Validation failed", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	valid, err := c.authService.VerifyEmailOTP(req.Email, req.OTP)
	if err != nil {
		c.logger.Errorw("Failed to verify email OTP", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to verify OTP",
			"details": "Internal server error",
		})
	}
	if !valid {
		c.logger.Warnw("Email OTP verification failed", "email", req.Email)
		return invalidOTPResponse(ctx)
	}

	c.logger.Infow("Email OTP verified", "email", req.Email)
	return ctx.JSON(http.StatusOK, entity.VerifyOTPResponse{
		Valid:   true,
		Message: "OTP verified successfully",
	})
}

func (c *OTPController) sendErrorResponse(ctx echo.Context, field, value string, err error) error {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		return accountNotFoundResponse(ctx)
	case errors.Is(err, service.ErrWrongAuthMethod):
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Send failed",
			"details": "This account uses a different authentication method",
		})
	case errors.Is(err, service.ErrRateLimited):
		return rateLimitedResponse(ctx)
	}

	c.logger.Errorw("Failed to send OTP", field, value, "error", err)
	return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error":   "Failed to send OTP",
		"details": "Internal server error",
	})
}
