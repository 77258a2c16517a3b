package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/discr/discr-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportFound opens a recovery for an owned disc on behalf of the finder
func ReportFound(ctx context.Context, db *gorm.DB, discID, finderID string, notes *string) (*models.RecoveryEvent, error) {
	if finderID == "" {
		return nil, NewUnauthorizedError("UNAUTHORIZED", "Could not extract user information")
	}
	if strings.TrimSpace(discID) == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: disc_id")
	}

	var event models.RecoveryEvent
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var disc models.Disc
		// the row lock serializes finders racing on the same disc
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&disc, "id = ?", discID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("DISC_NOT_FOUND", "Disc not found")
			}
			return NewInternalError("DATABASE_ERROR", "Failed to load disc", err)
		}
		if disc.IsClaimable() {
			return NewConflictError("DISC_CLAIMABLE", "This disc has no owner and can be claimed instead")
		}
		if disc.IsOwnedBy(finderID) {
			return NewConflictError("OWN_DISC", "You cannot report your own disc as found")
		}

		var active int64
		if err := tx.Model(&models.RecoveryEvent{}).
			Where("disc_id = ? AND status IN ?", disc.ID, models.ActiveRecoveryStatuses).
			Count(&active).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to check recoveries", err)
		}
		if active > 0 {
			return NewConflictError("RECOVERY_IN_PROGRESS", "This disc already has an active recovery")
		}

		event = models.RecoveryEvent{
			DiscID:   disc.ID,
			FinderID: finderID,
			Status:   models.RecoveryStatusFound,
			Notes:    notes,
			FoundAt:  now(),
		}
		if err := tx.Omit("Disc").Create(&event).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to create recovery", err)
		}
		return nil
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			return nil, svcErr
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to create recovery", err)
	}

	log.Printf("Disc %s reported found (recovery %d)", event.DiscID, event.ID)
	return &event, nil
}

// GetRecovery returns a recovery visible to userID, who must be the finder or
// the disc owner.
func GetRecovery(ctx context.Context, db *gorm.DB, recoveryID uint, userID string) (*models.RecoveryEvent, error) {
	event, err := loadRecovery(db.WithContext(ctx), recoveryID)
	if err != nil {
		return nil, err
	}
	if event.FinderID != userID && !event.Disc.IsOwnedBy(userID) {
		return nil, NewForbiddenError("FORBIDDEN", "You do not have access to this recovery")
	}
	return event, nil
}

// AbandonDisc lets the owner give a disc up during a recovery. The recovery
// closes as abandoned and the disc loses its owner, which makes it claimable.
func AbandonDisc(ctx context.Context, db *gorm.DB, recoveryID uint, ownerID string) (*models.RecoveryEvent, error) {
	return closeRecovery(ctx, db, recoveryID, ownerID, models.RecoveryStatusAbandoned)
}

// MarkRecovered lets the owner close a recovery once the disc is back
func MarkRecovered(ctx context.Context, db *gorm.DB, recoveryID uint, ownerID string) (*models.RecoveryEvent, error) {
	return closeRecovery(ctx, db, recoveryID, ownerID, models.RecoveryStatusRecovered)
}

func closeRecovery(ctx context.Context, db *gorm.DB, recoveryID uint, ownerID string, target models.RecoveryStatus) (*models.RecoveryEvent, error) {
	db = db.WithContext(ctx)
	event, err := loadRecovery(db, recoveryID)
	if err != nil {
		return nil, err
	}
	if !event.Disc.IsOwnedBy(ownerID) {
		return nil, NewForbiddenError("FORBIDDEN", "Only the disc owner can update this recovery")
	}
	if !event.Status.IsActive() || !event.Status.CanTransitionTo(target) {
		return nil, NewConflictError("INVALID_RECOVERY_TRANSITION",
			"Cannot change recovery from "+string(event.Status)+" to "+string(target))
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": target}
		if target == models.RecoveryStatusRecovered {
			updates["recovered_at"] = now()
		}
		result := tx.Model(&models.RecoveryEvent{}).
			Where("id = ? AND status = ?", event.ID, event.Status).
			Updates(updates)
		if result.Error != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to update recovery", result.Error)
		}
		if result.RowsAffected == 0 {
			return NewConflictError("STATUS_CHANGED", "Recovery status changed while updating, please retry")
		}

		if target == models.RecoveryStatusAbandoned {
			release := tx.Model(&models.Disc{}).
				Where("id = ? AND owner_id = ?", event.DiscID, ownerID).
				Update("owner_id", nil)
			if release.Error != nil {
				return NewInternalError("DATABASE_ERROR", "Failed to release disc", release.Error)
			}
			if release.RowsAffected == 0 {
				return NewConflictError("STATUS_CHANGED", "Disc ownership changed while updating, please retry")
			}
		}
		return nil
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			return nil, svcErr
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to update recovery", err)
	}

	log.Printf("Recovery %d moved to %s", event.ID, target)
	return loadRecovery(db, recoveryID)
}

func loadRecovery(db *gorm.DB, recoveryID uint) (*models.RecoveryEvent, error) {
	var event models.RecoveryEvent
	if err := db.Preload("Disc").First(&event, recoveryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("RECOVERY_NOT_FOUND", "Recovery not found")
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to load recovery", err)
	}
	return &event, nil
}
