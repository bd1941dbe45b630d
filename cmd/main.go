package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secureauth/config"
	"secureauth/controller"
	_ "secureauth/docs" // Import for swagger
	"secureauth/entity"
	"secureauth/gateway"
	"secureauth/handler"
	"secureauth/migrations"
	"secureauth/pkg/logger"
	"secureauth/repository"
	"secureauth/service"
	"secureauth/validator"

	"github.com/redis/go-redis/v9"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
)

// @title SecureAuth Service API
// @version 1.0
// @description A backend service for multi-channel authentication: SMS, email and authenticator-app OTP plus password recovery
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api
// @schemes http https
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Mode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Infow("Starting SecureAuth Service",
		"version", "1.0.0",
		"port", cfg.HTTPServer.Port,
		"log_level", cfg.Logger.Level,
		"log_mode", cfg.Logger.Mode,
	)

	// Connect to database
	db, err := connectDB(cfg)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	log.Infow("Database connected successfully",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	// Run migrations
	if err := migrations.RunMigrations(db.DB, "./migrations"); err != nil {
		log.Fatalw("Failed to run database migrations", "error", err)
	}

	log.Infow("Database migrations completed successfully")

	// Connect to Redis for rate limiting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("Failed to connect to Redis", "error", err)
	}

	log.Infow("Redis connected successfully", "host", cfg.Redis.Host, "port", cfg.Redis.Port)

	// Initialize validator
	v := validator.New()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	rateLimitRepo := repository.NewRedisRateLimitRepository(redisClient, cfg, log)

	// Initialize delivery gateways; fall back to console logging when a
	// provider is not configured so local setups work without credentials
	var smsSender gateway.Sender
	twilioSender := gateway.NewTwilioSender(cfg, log)
	if twilioSender.Configured() {
		smsSender = twilioSender
	} else {
		log.Warnw("Twilio not configured, SMS codes will be logged")
		smsSender = gateway.NewConsoleSender("sms", log)
	}

	var emailSender, recoverySender gateway.Sender
	brevoClient := gateway.NewBrevoClient(cfg, log)
	if brevoClient.Configured() {
		emailSender = gateway.NewEmailOTPSender(brevoClient)
		recoverySender = gateway.NewRecoveryEmailSender(brevoClient)
	} else {
		log.Warnw("Brevo not configured, email codes will be logged")
		emailSender = gateway.NewConsoleSender("email", log)
		recoverySender = gateway.NewConsoleSender("recovery", log)
	}

	// Initialize services, one OTP engine per purpose
	smsOTP := service.NewOTPService(entity.PurposeSMSLogin, smsSender, otpRepo, rateLimitRepo, cfg, log)
	emailOTP := service.NewOTPService(entity.PurposeEmailLogin, emailSender, otpRepo, rateLimitRepo, cfg, log)
	recoveryOTP := service.NewOTPService(entity.PurposePasswordRecovery, recoverySender, otpRepo, rateLimitRepo, cfg, log)

	hasher := service.NewPasswordHasher(cfg)
	totpService := service.NewTOTPService(accountRepo, cfg, log)
	authService := service.NewAuthService(accountRepo, smsOTP, emailOTP, totpService, hasher, log)
	recoveryService := service.NewRecoveryService(accountRepo, recoveryOTP, hasher, log)

	// Initialize controllers
	authController := controller.NewAuthController(authService, v, log)
	otpController := controller.NewOTPController(authService, v, log)
	totpController := controller.NewTOTPController(totpService, v, log)
	recoveryController := controller.NewRecoveryController(recoveryService, v, log)
	healthController := controller.NewHealthController()

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Register routes
	handler.RegisterRoutes(e, authController, otpController, totpController, recoveryController, healthController, cfg, log)

	// Start cleanup routine in background
	go startCleanupRoutine(smsOTP, log)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	go func() {
		log.Infow("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Infow("Shutting down server gracefully...")

	// Create a deadline for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Application.GracefulShutdownTimeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Failed to shutdown server gracefully", "error", err)
		os.Exit(1)
	}

	log.Infow("Server shutdown completed successfully")
}

func connectDB(cfg *config.Config) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var db *sqlx.DB
	var err error

	// Retry connection up to 30 times with 1 second delay
	for i := 0; i < 30; i++ {
		db, err = sqlx.Connect("postgres", connStr)
		if err == nil {
			// Test connection
			if err = db.Ping(); err == nil {
				break
			}
			db.Close()
		}

		if i == 0 {
			fmt.Printf("Waiting for database to be ready...\n")
		}
		fmt.Printf("Database connection attempt %d/30 failed: %v\n", i+1, err)
		time.Sleep(1 * time.Second)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after 30 attempts: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// startCleanupRoutine periodically removes expired codes and stale rate
// limit records. The otp_codes table is shared across purposes, so one
// engine's sweep covers all of them.
func startCleanupRoutine(otpService service.OTPService, logger *logger.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		removed, err := otpService.CleanupExpired()
		if err != nil {
			logger.Errorw("Failed to cleanup expired codes", "error", err)
			continue
		}
		if removed > 0 {
			logger.Debugw("Cleanup routine removed expired codes", "count", removed)
		}
	}
}
