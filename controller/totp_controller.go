package controller

import (
	"errors"
	"net/http"
	"strconv"

	"secureauth/entity"
	"secureauth/pkg/logger"
	"secureauth/service"
	"secureauth/validator"

	"github.com/labstack/echo/v4"
)

const defaultQRSize = 256

// TOTPController handles authenticator-app enrollment and verification
type TOTPController struct {
	totpService service.TOTPService
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewTOTPController creates a new TOTP controller instance
func NewTOTPController(totpService service.TOTPService, validator *validator.Validator, logger *logger.Logger) *TOTPController {
	return &TOTPController{
		totpService: totpService,
		validator:   validator,
		logger:      logger,
	}
}

// Setup provisions a TOTP secret for an account
// @Summary Setup TOTP
// @Description Generate a TOTP secret and return the otpauth provisioning URI
// @Tags TOTP
// @Accept json
// @Produce json
// @Param request body entity.TOTPSetupRequest true "TOTP Setup Request"
// @Success 200 {object} entity.TOTPSetupResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/totp/setup [post]
func (c *TOTPController) Setup(ctx echo.Context) error {
	var req entity.TOTPSetupRequest

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

	uri, err := c.totpService.Setup(req.Email)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return accountNotFoundResponse(ctx)
		}

		c.logger.Errorw("Failed to set up TOTP", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "TOTP setup failed",
			"details": "Internal server error",
		})
	}

	c.logger.Infow("TOTP secret provisioned", "email", req.Email)
	return ctx.JSON(http.StatusOK, entity.TOTPSetupResponse{
		Success: true,
		TOTPURI: uri,
		Message: "Scan the QR code with an authenticator app",
	})
}

// QRCode renders the provisioning URI as a PNG
// @Summary TOTP QR code
// @Description Render the account's TOTP provisioning URI as a PNG image
// @Tags TOTP
// @Produce png
// @Param email query string true "Account email"
// @Param size query int false "Image size in pixels" default(256)
// @Success 200 {file} binary
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/totp/qr [get]
func (c *TOTPController) QRCode(ctx echo.Context) error {
	email := ctx.QueryParam("email")
	if email == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request",
			"details": "Query parameter 'email' is required",
		})
	}

	size := defaultQRSize
	if sizeParam := ctx.QueryParam("size"); sizeParam != "" {
		if s, err := strconv.Atoi(sizeParam); err == nil && s >= 64 && s <= 1024 {
			size = s
		}
	}

	png, err := c.totpService.QRCode(email, size)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return accountNotFoundResponse(ctx)
		case errors.Is(err, service.ErrTOTPNotConfigured):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "TOTP not configured",
				"details": "Run TOTP setup before requesting a QR code",
			})
		}

		c.logger.Errorw("Failed to render QR code", "email", email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "QR rendering failed",
			"details": "Internal server error",
		})
	}

	return ctx.Blob(http.StatusOK, "image/png", png)
}

// Verify validates an authenticator code
// @Summary Verify TOTP
// @Description Validate a code from the authenticator app
// @Tags TOTP
// @Accept json
// @Produce json
// @Param request body entity.VerifyTOTPRequest true "Verify TOTP Request"
// @Success 200 {object} entity.VerifyOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/totp/verify [post]
func (c *TOTPController) Verify(ctx echo.Context) error {
	var req entity.VerifyTOTPRequest

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

	valid, err := c.totpService.Verify(req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return accountNotFoundResponse(ctx)
		case errors.Is(err, service.ErrTOTPNotConfigured):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "TOTP not configured",
				"details": "Run TOTP setup before verifying codes",
			})
		}

		c.logger.Errorw("Failed to verify TOTP code", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to verify code",
			"details": "Internal server error",
		})
	}
	if !valid {
		c.logger.Warnw("TOTP verification failed", "email", req.Email)
		return invalidOTPResponse(ctx)
	}

	c.logger.Infow("TOTP code verified", "email", req.Email)
	return ctx.JSON(http.StatusOK, entity.VerifyOTPResponse{
		Valid:   true,
		Message: "Code verified successfully",
	})
}
