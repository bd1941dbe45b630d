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

// RecoveryController handles the password recovery endpoints
type RecoveryController struct {
	recoveryService service.RecoveryService
	validator       *validator.Validator
	logger          *logger.Logger
}

// NewRecoveryController creates a new recovery controller instance
func NewRecoveryController(recoveryService service.RecoveryService, validator *validator.Validator, logger *logger.Logger) *RecoveryController {
	return &RecoveryController{
		recoveryService: recoveryService,
		validator:       validator,
		logger:          logger,
	}
}

// Request starts password recovery for an email address
// @Summary Request password recovery
// @Description Email a recovery code to a registered address
// @Tags Password Recovery
// @Accept json
// @Produce json
// @Param request body entity.RecoveryRequest true "Recovery Request"
// @Success 200 {object} entity.SendOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/password-recovery/request [post]
func (c *RecoveryController) Request(ctx echo.Context) error {
	var req entity.RecoveryRequest

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

	response, err := c.recoveryService.Request(req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return accountNotFoundResponse(ctx)
		case errors.Is(err, service.ErrRateLimited):
			return rateLimitedResponse(ctx)
		}

		c.logger.Errorw("Failed to start recovery", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Recovery request failed",
			"details": "Internal server error",
		})
	}

	c.logger.Infow("Recovery requested", "email", req.Email)
	return ctx.JSON(http.StatusOK, response)
}

// VerifyOTP checks a recovery code without consuming it
// @Summary Verify recovery code
// @Description Check a recovery code; the code stays valid for the reset step
// @Tags Password Recovery
// @Accept json
// @Produce json
// @Param request body entity.RecoveryVerifyRequest true "Recovery Verify Request"
// @Success 200 {object} entity.VerifyOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/password-recovery/verify-otp [post]
func (c *RecoveryController) VerifyOTP(ctx echo.Context) error {
	var req entity.RecoveryVerifyRequest

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

	valid, err := c.recoveryService.Verify(req.Email, req.OTP)
	if err != nil {
		c.logger.Errorw("Failed to verify recovery code", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to verify code",
			"details": "Internal server error",
		})
	}
	if !valid {
		c.logger.Warnw("Recovery code verification failed", "email", req.Email)
		return invalidOTPResponse(ctx)
	}

	c.logger.Infow("Recovery code verified", "email", req.Email)
	return ctx.JSON(http.StatusOK, entity.VerifyOTPResponse{
		Valid:   true,
		Message: "Code verified. You may now reset your password.",
	})
}

// Reset sets a new password after re-checking the recovery code
// @Summary Reset password
// @Description Reset the account password; the recovery code is consumed on success
// @Tags Password Recovery
// @Accept json
// @Produce json
// @Param request body entity.RecoveryResetRequest true "Recovery Reset Request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/password-recovery/reset [post]
func (c *RecoveryController) Reset(ctx echo.Context) error {
	var req entity.RecoveryResetRequest

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

	ok, err := c.recoveryService.Reset(req.Email, req.OTP, req.NewPassword)
	if err != nil {
		c.logger.Errorw("Failed to reset password", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Password reset failed",
			"details": "Internal server error",
		})
	}
	if !ok {
		c.logger.Warnw("Password reset rejected", "email", req.Email)
		return invalidOTPResponse(ctx)
	}

	c.logger.Infow("Password reset", "email", req.Email)
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset successfully",
	})
}
