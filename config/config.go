package config

import (
	"os"
	"strconv"
	"time"
)

type Application struct {
	GracefulShutdownTimeout time.Duration
}

type HTTPServer struct {
	Port int
}

type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type Logger struct {
	Level string
	Mode  string // development or production
}

type Swagger struct {
	Enabled bool `json:"enabled"`
}

// OTP configures the one-time-passcode engine shared by all channels.
// MaxAttempts of 0 means failed attempts are tracked but never enforced.
type OTP struct {
	Length         int
	ExpirationTime time.Duration
	MaxAttempts    int
}

type RateLimit struct {
	MaxRequests    int
	WindowDuration time.Duration
}

type Twilio struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type Brevo struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

type TOTP struct {
	Issuer string
	Period uint
	Skew   uint
}

type Bcrypt struct {
	Cost int
}

type Config struct {
	Application Application
	HTTPServer  HTTPServer
	Database    Database
	Redis       Redis
	Logger      Logger
	Swagger     Swagger
	OTP         OTP
	RateLimit   RateLimit
	Twilio      Twilio
	Brevo       Brevo
	TOTP        TOTP
	Bcrypt      Bcrypt
}

func Load() (*Config, error) {
	cfg := &Config{
		Application: Application{
			GracefulShutdownTimeout: parseDurationWithDefault("APPLICATION_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		HTTPServer: HTTPServer{
			Port: parseIntWithDefault("HTTP_SERVER_PORT", 8080),
		},
		Database: Database{
			Host:     getEnvWithDefault("DATABASE_HOST", "db"),
			Port:     parseIntWithDefault("DATABASE_PORT", 5432),
			User:     getEnvWithDefault("DATABASE_USER", "secureauth"),
			Password: getEnvWithDefault("DATABASE_PASSWORD", "secureauth"),
			Name:     getEnvWithDefault("DATABASE_NAME", "secureauth"),
			SSLMode:  getEnvWithDefault("DATABASE_SSL_MODE", "disable"),
		},
		Logger: Logger{
			Level: getEnvWithDefault("LOGGER_LEVEL", "info"),
			Mode:  getEnvWithDefault("LOGGER_MODE", "production"),
		},
		Swagger: Swagger{
			Enabled: getEnvBoolWithDefault("SWAGGER_ENABLED", true),
		},
		OTP: OTP{
			Length:         parseIntWithDefault("OTP_LENGTH", 6),
			ExpirationTime: parseDurationWithDefault("OTP_EXPIRATION_TIME", 10*time.Minute),
			MaxAttempts:    parseIntWithDefault("OTP_MAX_ATTEMPTS", 0),
		},
		Redis: Redis{
			Host:     getEnvWithDefault("REDIS_HOST", "redis"),
			Port:     parseIntWithDefault("REDIS_PORT", 6379),
			Password: getEnvWithDefault("REDIS_PASSWORD", ""),
			DB:       parseIntWithDefault("REDIS_DB", 0),
		},
		RateLimit: RateLimit{
			MaxRequests:    parseIntWithDefault("RATE_LIMIT_MAX_REQUESTS", 3),
			WindowDuration: parseDurationWithDefault("RATE_LIMIT_WINDOW_DURATION", 10*time.Minute),
		},
		Twilio: Twilio{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
		Brevo: Brevo{
			APIKey:      os.Getenv("BREVO_API_KEY"),
			SenderEmail: getEnvWithDefault("BREVO_SENDER_EMAIL", "no-reply@secureauth.local"),
			SenderName:  getEnvWithDefault("BREVO_SENDER_NAME", "SecureAuth"),
		},
		TOTP: TOTP{
			Issuer: getEnvWithDefault("TOTP_ISSUER", "SecureAuth"),
			Period: uint(parseIntWithDefault("TOTP_PERIOD_SECONDS", 30)),
			Skew:   uint(parseIntWithDefault("TOTP_SKEW", 1)),
		},
		Bcrypt: Bcrypt{
			Cost: parseIntWithDefault("BCRYPT_COST", 10),
		},
	}

	// Support legacy environment variables for backwards compatibility
	if port := os.Getenv("APP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTPServer.Port = p
		}
	}

	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
