package services

import (
	"context"
	"log"
	"strings"

	"github.com/discr/discr-api/models"
	"gorm.io/gorm"
)

// ClaimDisc gives an ownerless disc to userID and closes every abandoned
// recovery of that disc. Both changes commit in one transaction.
func ClaimDisc(ctx context.Context, db *gorm.DB, discID, userID string) (*models.Disc, error) {
	if strings.TrimSpace(discID) == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "disc_id is required")
	}
	if userID == "" {
		return nil, NewUnauthorizedError("UNAUTHORIZED", "Authentication required")
	}

	var disc models.Disc
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Disc{}).
			Where("id = ? AND owner_id IS NULL", discID).
			Update("owner_id", userID)
		if result.Error != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to claim disc", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Disc{}).Where("id = ?", discID).Count(&count).Error; err != nil {
				return NewInternalError("DATABASE_ERROR", "Failed to claim disc", err)
			}
			if count == 0 {
				return NewNotFoundError("DISC_NOT_FOUND", "Disc not found")
			}
			return NewConflictError("DISC_ALREADY_OWNED", "This disc already has an owner and cannot be claimed")
		}

		if err := tx.Model(&models.RecoveryEvent{}).
			Where("disc_id = ? AND status = ?", discID, models.RecoveryStatusAbandoned).
			Updates(map[string]interface{}{
				"status":       models.RecoveryStatusRecovered,
				"recovered_at": now(),
			}).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to close abandoned recoveries", err)
		}

		return tx.Preload("QRCode").Preload("Photos").First(&disc, "id = ?", discID).Error
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			if svcErr.Err != nil {
				log.Printf("Claim of disc %s by %s rolled back: %v", discID, userID, svcErr.Err)
			}
			return nil, svcErr
		}
		log.Printf("Claim of disc %s by %s rolled back: %v", discID, userID, err)
		return nil, NewInternalError("DATABASE_ERROR", "Failed to claim disc", err)
	}

	log.Printf("Disc %s claimed by %s", discID, userID)
	return &disc, nil
}
