package services

import (
	"context"
	"errors"
	"log"

	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/utils"
	"gorm.io/gorm"
)

// BindCodeToDisc attaches one of the caller's unused sticker codes to a disc
// they own. The code moves to assigned and becomes resolvable by lookups.
func BindCodeToDisc(ctx context.Context, db *gorm.DB, discID, userID, rawCode string) (*models.Disc, error) {
	shortCode := utils.NormalizeShortCode(rawCode)
	if shortCode == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: short_code")
	}
	if !utils.IsValidShortCode(shortCode) {
		return nil, NewValidationError("INVALID_CODE", "Invalid QR code format")
	}

	var disc models.Disc
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&disc, "id = ?", discID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("DISC_NOT_FOUND", "Disc not found")
			}
			return NewInternalError("DATABASE_ERROR", "Failed to load disc", err)
		}
		if !disc.IsOwnedBy(userID) {
			return NewForbiddenError("FORBIDDEN", "Forbidden: You do not own this disc")
		}
		if disc.QRCodeID != nil {
			return NewConflictError("DISC_HAS_CODE", "This disc already has a QR code")
		}

		var code models.QRCode
		if err := tx.First(&code, "short_code = ?", shortCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("QR_CODE_NOT_FOUND", "QR code not found")
			}
			return NewInternalError("DATABASE_ERROR", "Failed to load QR code", err)
		}
		if code.AssignedTo != userID {
			return NewForbiddenError("FORBIDDEN", "This QR code does not belong to you")
		}

		claim := tx.Model(&models.QRCode{}).
			Where("id = ? AND status = ?", code.ID, models.QRCodeStatusGenerated).
			Update("status", models.QRCodeStatusAssigned)
		if claim.Error != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to assign QR code", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return NewConflictError("QR_CODE_IN_USE", "This QR code is already assigned")
		}

		link := tx.Model(&models.Disc{}).
			Where("id = ? AND qr_code_id IS NULL", disc.ID).
			Update("qr_code_id", code.ID)
		if link.Error != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to assign QR code", link.Error)
		}
		if link.RowsAffected == 0 {
			return NewConflictError("DISC_HAS_CODE", "This disc already has a QR code")
		}

		return tx.Preload("QRCode").First(&disc, "id = ?", disc.ID).Error
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			return nil, svcErr
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to assign QR code", err)
	}

	log.Printf("QR code %s bound to disc %s", shortCode, disc.ID)
	return &disc, nil
}

// DeleteDisc removes a disc owned by userID. Its code is deactivated so the
// sticker stops resolving, and the photo rows go with it. The returned storage
// paths are for the caller to purge from object storage after commit.
func DeleteDisc(ctx context.Context, db *gorm.DB, discID, userID string) ([]string, error) {
	var photoPaths []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var disc models.Disc
		if err := tx.First(&disc, "id = ?", discID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("DISC_NOT_FOUND", "Disc not found")
			}
			return NewInternalError("DATABASE_ERROR", "Failed to load disc", err)
		}
		if !disc.IsOwnedBy(userID) {
			return NewForbiddenError("FORBIDDEN", "Forbidden: You do not own this disc")
		}

		if err := tx.Model(&models.DiscPhoto{}).Where("disc_id = ?", disc.ID).Pluck("storage_path", &photoPaths).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to load disc photos", err)
		}
		if err := tx.Where("disc_id = ?", disc.ID).Delete(&models.DiscPhoto{}).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to delete disc photos", err)
		}

		if disc.QRCodeID != nil {
			if err := tx.Model(&models.QRCode{}).Where("id = ?", *disc.QRCodeID).
				Update("status", models.QRCodeStatusDeactivated).Error; err != nil {
				return NewInternalError("DATABASE_ERROR", "Failed to deactivate QR code", err)
			}
			if err := tx.Model(&disc).Update("qr_code_id", nil).Error; err != nil {
				return NewInternalError("DATABASE_ERROR", "Failed to release QR code", err)
			}
		}

		if err := tx.Delete(&disc).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to delete disc", err)
		}
		return nil
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			return nil, svcErr
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to delete disc", err)
	}
	return photoPaths, nil
}
