package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/discr/discr-api/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// It fails the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// SetTestEnvironment sets the variables config.Load needs for a suite. The
// database URL is never dialed; suites install their own in-memory database.
func SetTestEnvironment(t *testing.T) {
	t.Helper()

	for key, value := range map[string]string{
		"GO_ENV":                   "test",
		"DATABASE_URL":             "sqlite://file::memory:",
		"AUTH0_DOMAIN":             "test.auth0.com",
		"AUTH0_AUDIENCE":           "https://api.discr.test",
		"PORT":                     "8080",
		"AWS_REGION":               "us-east-1",
		"AWS_S3_BUCKET":            "test-bucket",
		"STICKER_UNIT_PRICE_CENTS": "100",
		"APP_URL":                  "https://app.discr.test",
		"STRIPE_WEBHOOK_SECRET":    WebhookSecret,
	} {
		if err := os.Setenv(key, value); err != nil {
			t.Fatalf("Failed to set %s: %v", key, err)
		}
	}
}

// WebhookSecret is the Stripe signing secret suites sign test events with
const WebhookSecret = "whsec_suite"

// NewTestDB opens a migrated in-memory sqlite database and installs it as the
// application database
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// one connection keeps every query on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	if err := config.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	config.SetDB(db)
	return db
}

// CloseDB closes the connection behind db
func CloseDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// PrintEnvironmentInfo prints the current test environment configuration.
func PrintEnvironmentInfo() {
	fmt.Printf("Test Environment Info:\n")
	fmt.Printf("  GO_ENV: %s\n", os.Getenv("GO_ENV"))
	fmt.Printf("  DATABASE_URL: %s\n", maskDatabaseURL(os.Getenv("DATABASE_URL")))
	fmt.Printf("  PORT: %s\n", os.Getenv("PORT"))
}

// maskDatabaseURL hides credentials in a database URL
func maskDatabaseURL(url string) string {
	if url == "" {
		return "(not set)"
	}
	scheme, rest, found := strings.Cut(url, "://")
	if !found {
		return "(unparseable)"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***" + rest[at:]
	}
	return scheme + "://" + rest
}
