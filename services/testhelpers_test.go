package services

import (
	"testing"

	"github.com/discr/discr-api/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to connect to test database")

	// A single connection keeps every statement on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.ShippingAddress{},
		&models.StickerOrder{},
		&models.QRCode{},
		&models.StickerOrderItem{},
		&models.Disc{},
		&models.DiscPhoto{},
		&models.RecoveryEvent{},
	), "Failed to migrate test database")

	return db
}

func createTestOrder(t *testing.T, db *gorm.DB, userID string, quantity int, status models.OrderStatus) *models.StickerOrder {
	suffix := uuid.NewString()
	sessionID := "cs_test_" + suffix
	order := &models.StickerOrder{
		OrderNumber:             "ORD-20250101-" + suffix[:8],
		UserID:                  userID,
		Quantity:                quantity,
		UnitPriceCents:          100,
		TotalPriceCents:         int64(quantity) * 100,
		Status:                  status,
		StripeCheckoutSessionID: &sessionID,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func createTestDisc(t *testing.T, db *gorm.DB, ownerID *string) *models.Disc {
	mold := "Destroyer"
	disc := &models.Disc{
		OwnerID:       ownerID,
		Name:          mold,
		Mold:          &mold,
		FlightNumbers: models.FlightNumbers{Speed: 12, Glide: 5, Turn: -1, Fade: 3},
	}
	require.NoError(t, db.Create(disc).Error)
	return disc
}

func strPtr(s string) *string {
	return &s
}
