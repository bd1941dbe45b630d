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

// AuthController handles registration, login and account endpoints
type AuthController struct {
	authService service.AuthService
	validator   *validator.Validator
	logger      *logger.Logger
}

// NewAuthController creates a new auth controller instance
func NewAuthController(authService service.AuthService, validator *validator.Validator, logger *logger.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		validator:   validator,
		logger:      logger,
	}
}

// Register handles account registration
// @Summary Register account
// @Description Register a new account and start verification for its auth method
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.RegisterRequest true "Register Request"
// @Success 200 {object} entity.RegisterResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/register [post]
func (c *AuthController) Register(ctx echo.Context) error {
	var req entity.RegisterRequest

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

	response, err := c.authService.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountExists):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "Registration failed",
				"details": "An account with this email already exists",
			})
		case errors.Is(err, service.ErrPhoneRequired):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "Registration failed",
				"details": "Phone number is required for SMS authentication",
			})
		case errors.Is(err, service.ErrRateLimited):
			return rateLimitedResponse(ctx)
		}

		c.logger.Errorw("Failed to register account", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Registration failed",
			"details": "Internal server error",
		})
	}

	c.logger.Infow("Account registered", "email", req.Email, "auth_method", req.AuthMethod)
	return ctx.JSON(http.StatusOK, response)
}

// Login handles the password step of login
// @Summary Login
// @Description Check credentials and dispatch the account's second factor
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.LoginRequest true "Login Request"
// @Success 200 {object} entity.LoginResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/login [post]
func (c *AuthController) Login(ctx echo.Context) error {
	var req entity.LoginRequest

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

	response, err := c.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return accountNotFoundResponse(ctx)
		case errors.Is(err, service.ErrInvalidCredentials):
			return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
				"error":   "Login failed",
				"details": "Invalid email or password",
			})
		case errors.Is(err, service.ErrRateLimited):
			return rateLimitedResponse(ctx)
		}

		c.logger.Errorw("Failed to log in", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Login failed",
			"details": "Internal server error",
		})
	}

	c.logger.Infow("Login password step passed", "email", req.Email)
	return ctx.JSON(http.StatusOK, response)
}

// ResendOTP re-issues a code for the account's channel
// @Summary Resend OTP
// @Description Re-issue a verification code for the account's auth method
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.ResendOTPRequest true "Resend Request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/resend-otp [post]
func (c *AuthController) ResendOTP(ctx echo.Context) error {
	var req entity.ResendOTPRequest

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

	if err := c.authService.ResendOTP(req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			return accountNotFoundResponse(ctx)
		case errors.Is(err, service.ErrWrongAuthMethod):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "Resend failed",
				"details": "This account's authentication method does not use sent codes",
			})
		case errors.Is(err, service.ErrRateLimited):
			return rateLimitedResponse(ctx)
		}

		c.logger.Errorw("Failed to resend OTP", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Resend failed",
			"details": "Internal server error",
		})
	}

	c.logger.Infow("OTP resent", "email", req.Email)
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Verification code resent",
	})
}

// UserInfo returns the public view of an account
// @Summary Account info
// @Description Get account details by email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param email query string true "Account email"
// @Success 200 {object} entity.AccountResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/user-info [get]
func (c *AuthController) UserInfo(ctx echo.Context) error {
	email := ctx.QueryParam("email")
	if email == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request",
			"details": "Query parameter 'email' is required",
		})
	}

	account, err := c.authService.GetAccount(email)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return accountNotFoundResponse(ctx)
		}

		c.logger.Errorw("Failed to get account", "email", email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":   "Failed to retrieve account",
			"details": "Internal server error",
		})
	}

	return ctx.JSON(http.StatusOK, account)
}

func accountNotFoundResponse(ctx echo.Context) error {
	return ctx.JSON(http.StatusNotFound, map[string]interface{}{
		"error":   "Account not found",
		"details": "No account exists for the given identifier",
	})
}

func rateLimitedResponse(ctx echo.Context) error {
	return ctx.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"error":   "Rate limit exceeded",
		"details": "Too many code requests. Please try again later.",
	})
}

func invalidOTPResponse(ctx echo.Context) error {
	return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":   "Invalid or expired OTP",
		"details": "Please request a new code",
	})
}
