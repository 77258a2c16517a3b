package services

import (
	"context"
	"errors"
	"log"

	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/utils"
	"gorm.io/gorm"
)

// Owner display names used when no profile name applies
const (
	ClaimableOwnerDisplayName = "No Owner - Available to Claim"
	AnonymousOwnerDisplayName = "Anonymous"
)

// PublicDisc is the finder-facing view of a disc. It never carries the
// owner's identity.
type PublicDisc struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Manufacturer     *string  `json:"manufacturer"`
	Mold             *string  `json:"mold"`
	Plastic          *string  `json:"plastic"`
	Color            *string  `json:"color"`
	RewardAmount     *float64 `json:"reward_amount"`
	OwnerDisplayName string   `json:"owner_display_name"`
	PhotoURL         *string  `json:"photo_url"`
}

// CodeLookup is the result of scanning a sticker code
type CodeLookup struct {
	Found             bool        `json:"found"`
	Disc              *PublicDisc `json:"disc,omitempty"`
	HasActiveRecovery bool        `json:"has_active_recovery"`
	IsOwner           bool        `json:"is_owner"`
	IsClaimable       bool        `json:"is_claimable"`
}

var notFoundLookup = &CodeLookup{Found: false}

// LookupCode resolves a scanned code to its disc. callerID is "" for anonymous
// callers. Unknown, malformed and unbound codes all yield Found=false so the
// response does not reveal which codes exist.
func LookupCode(ctx context.Context, db *gorm.DB, images ImageService, rawCode, callerID string) (*CodeLookup, error) {
	shortCode := utils.NormalizeShortCode(rawCode)
	if !utils.IsValidShortCode(shortCode) {
		return notFoundLookup, nil
	}

	db = db.WithContext(ctx)

	var code models.QRCode
	if err := db.First(&code, "short_code = ?", shortCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundLookup, nil
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to look up QR code", err)
	}
	if !code.Status.Resolvable() {
		return notFoundLookup, nil
	}

	var disc models.Disc
	err := db.Preload("Photos", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).First(&disc, "qr_code_id = ?", code.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundLookup, nil
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to look up disc", err)
	}

	ownerName, err := ownerDisplayName(db, disc)
	if err != nil {
		return nil, err
	}

	var activeRecoveries int64
	if err := db.Model(&models.RecoveryEvent{}).
		Where("disc_id = ? AND status IN ?", disc.ID, models.ActiveRecoveryStatuses).
		Count(&activeRecoveries).Error; err != nil {
		return nil, NewInternalError("DATABASE_ERROR", "Failed to check recoveries", err)
	}

	public := &PublicDisc{
		ID:               disc.ID,
		Name:             disc.Name,
		Manufacturer:     disc.Manufacturer,
		Mold:             disc.Mold,
		Plastic:          disc.Plastic,
		Color:            disc.Color,
		RewardAmount:     disc.RewardAmount,
		OwnerDisplayName: ownerName,
	}
	if len(disc.Photos) > 0 && images != nil {
		url, err := images.GetImageURL(ctx, disc.Photos[0].StoragePath)
		if err != nil {
			log.Printf("Failed to sign photo for disc %s: %v", disc.ID, err)
		} else if url != "" {
			public.PhotoURL = &url
		}
	}

	return &CodeLookup{
		Found:             true,
		Disc:              public,
		HasActiveRecovery: activeRecoveries > 0,
		IsOwner:           callerID != "" && disc.IsOwnedBy(callerID),
		IsClaimable:       disc.IsClaimable(),
	}, nil
}

func ownerDisplayName(db *gorm.DB, disc models.Disc) (string, error) {
	if disc.IsClaimable() {
		return ClaimableOwnerDisplayName, nil
	}

	var profile models.Profile
	if err := db.First(&profile, "auth0_id = ?", *disc.OwnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AnonymousOwnerDisplayName, nil
		}
		return "", NewInternalError("DATABASE_ERROR", "Failed to load owner profile", err)
	}
	return profile.DisplayName(), nil
}
