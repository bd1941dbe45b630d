package handler

import (
	"secureauth/config"
	"secureauth/controller"
	_ "secureauth/docs" // Import for swagger docs
	"secureauth/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// RegisterRoutes registers all HTTP routes and middleware
func RegisterRoutes(
	e *echo.Echo,
	authController *controller.AuthController,
	otpController *controller.OTPController,
	totpController *controller.TOTPController,
	recoveryController *controller.RecoveryController,
	healthController *controller.HealthController,
	cfg *config.Config,
	logger *logger.Logger,
) {
	// Add common middleware
	e.Use(middleware.Recover())
	e.Use(CORSMiddleware())
	e.Use(RequestLoggerMiddleware(logger))

	// System endpoints
	e.GET("/health", healthController.HealthCheck)
	e.GET("/", healthController.ServiceInfo)

	// Swagger documentation
	if cfg.Swagger.Enabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
		e.GET("/docs/*", echoSwagger.WrapHandler)
	}

	auth := e.Group("/api/auth")

	// Account lifecycle
	auth.POST("/register", authController.Register)
	auth.POST("/login", authController.Login)
	auth.POST("/resend-otp", authController.ResendOTP)
	auth.GET("/user-info", authController.UserInfo)

	// SMS channel
	sms := auth.Group("/sms")
	sms.POST("/send-otp", otpController.SendSMSOTP)
	sms.POST("/verify-otp", otpController.VerifySMSOTP)
	sms.GET("/user-info", authController.UserInfo)

	// Email channel
	email := auth.Group("/email")
	email.POST("/send-otp", otpController.SendEmailOTP)
	email.POST("/verify-otp", otpController.VerifyEmailOTP)
	email.GET("/user-info", authController.UserInfo)

	// Authenticator app channel
	totp := auth.Group("/totp")
	totp.POST("/setup", totpController.Setup)
	totp.GET("/qr", totpController.QRCode)
	totp.POST("/verify", totpController.Verify)

	// Password recovery
	recovery := auth.Group("/password-recovery")
	recovery.POST("/request", recoveryController.Request)
	recovery.POST("/verify-otp", recoveryController.VerifyOTP)
	recovery.POST("/reset", recoveryController.Reset)
}
