package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL           string
	Port                  string
	GoEnv                 string
	Auth0Domain           string
	Auth0Audience         string
	AWSRegion             string
	AWSS3Bucket           string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	StripeSecretKey       string
	StripeWebhookSecret   string
	StickerUnitPriceCents int64
	StickerCurrency       string
	AppURL                string
	CORSAllowedOrigins    []string
	LogLevel              string
}

var appConfig *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// Deployed environments set variables directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	unitPrice, err := strconv.ParseInt(getEnv("STICKER_UNIT_PRICE_CENTS", "100"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("STICKER_UNIT_PRICE_CENTS must be an integer: %w", err)
	}

	config := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		Port:                  getEnv("PORT", "8080"),
		GoEnv:                 getEnv("GO_ENV", "development"),
		Auth0Domain:           getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:         getEnv("AUTH0_AUDIENCE", ""),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:           getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StickerUnitPriceCents: unitPrice,
		StickerCurrency:       getEnv("STICKER_CURRENCY", "usd"),
		AppURL:                strings.TrimRight(getEnv("APP_URL", "http://localhost:8081"), "/"),
		CORSAllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Config {
	return appConfig
}

// SetConfig sets the configuration instance (primarily for testing)
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.StickerUnitPriceCents <= 0 {
		return fmt.Errorf("STICKER_UNIT_PRICE_CENTS must be positive")
	}
	return nil
}

// ValidatePayments checks the Stripe settings needed for checkout and webhooks
func (c *Config) ValidatePayments() error {
	if c.StripeSecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// GetDatabaseURL returns the database URL
func (c *Config) GetDatabaseURL() string {
	return c.DatabaseURL
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
