package controllers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateDiscRequest represents the request body for creating a disc
type CreateDiscRequest struct {
	Name          *string               `json:"name"`
	Manufacturer  *string               `json:"manufacturer"`
	Mold          *string               `json:"mold"`
	Plastic       *string               `json:"plastic"`
	Color         *string               `json:"color"`
	Weight        *int                  `json:"weight" binding:"omitempty,gt=0"`
	FlightNumbers *models.FlightNumbers `json:"flight_numbers" binding:"required"`
	RewardAmount  *float64              `json:"reward_amount" binding:"omitempty,gte=0"`
	Notes         *string               `json:"notes"`
}

// UpdateDiscRequest represents the request body for updating a disc.
// Only the fields present in the body are changed.
type UpdateDiscRequest struct {
	Manufacturer  *string               `json:"manufacturer"`
	Mold          *string               `json:"mold"`
	Plastic       *string               `json:"plastic"`
	Color         *string               `json:"color"`
	Weight        *int                  `json:"weight" binding:"omitempty,gt=0"`
	FlightNumbers *models.FlightNumbers `json:"flight_numbers"`
	RewardAmount  *float64              `json:"reward_amount" binding:"omitempty,gte=0"`
	Notes         *string               `json:"notes"`
}

// ClaimDiscRequest represents the request body for claiming an ownerless disc
type ClaimDiscRequest struct {
	DiscID string `json:"disc_id"`
}

// AssignQRCodeRequest represents the request body for binding a sticker code to a disc
type AssignQRCodeRequest struct {
	ShortCode string `json:"short_code"`
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// bindValidationError writes the 400 for a body that fails binding
func bindValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// attachPhotoURLs fills in presigned URLs for the disc's photos. A photo whose
// URL cannot be signed is returned without one.
func attachPhotoURLs(c *gin.Context, disc *models.Disc) {
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	for i := range disc.Photos {
		url, err := imageService.GetImageURL(c.Request.Context(), disc.Photos[i].StoragePath)
		if err != nil {
			log.Printf("Failed to sign photo %s: %v", disc.Photos[i].StoragePath, err)
			continue
		}
		disc.Photos[i].URL = &url
	}
}

// loadOwnedDisc loads a disc and checks that userID owns it, writing the error
// response itself when it does not.
func loadOwnedDisc(c *gin.Context, discID, userID string) (*models.Disc, bool) {
	db := config.GetDB()
	var disc models.Disc
	if err := db.Preload("QRCode").Preload("Photos").First(&disc, "id = ?", discID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "DISC_NOT_FOUND", "Disc not found")
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load disc")
		return nil, false
	}
	if !disc.IsOwnedBy(userID) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "Forbidden: You do not own this disc")
		return nil, false
	}
	return &disc, true
}

// CreateDisc handles POST /api/v1/discs - registers a disc owned by the caller
func CreateDisc(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse request body
	var req CreateDiscRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	// The name falls back to the mold
	mold := trimmedOrNil(req.Mold)
	name := trimmedOrNil(req.Name)
	if name == nil {
		name = mold
	}
	if name == nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing required field: mold")
		return
	}
	// Validate flight number ranges
	if err := req.FlightNumbers.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	// Create disc owned by the caller
	disc := models.Disc{
		OwnerID:       &userID,
		Name:          *name,
		Manufacturer:  trimmedOrNil(req.Manufacturer),
		Mold:          mold,
		Plastic:       trimmedOrNil(req.Plastic),
		Color:         trimmedOrNil(req.Color),
		Weight:        req.Weight,
		FlightNumbers: *req.FlightNumbers,
		RewardAmount:  req.RewardAmount,
		Notes:         req.Notes,
	}

	db := config.GetDB()
	if err := db.Create(&disc).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create disc")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    disc,
	})
}

// ListDiscs handles GET /api/v1/discs - lists the caller's discs with pagination
func ListDiscs(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p := parsePagination(c)
	db := config.GetDB()

	// Count total discs for pagination
	var total int64
	if err := db.Model(&models.Disc{}).Where("owner_id = ?", userID).Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count discs")
		return
	}

	// Fetch the requested page with codes and photos
	var discs []models.Disc
	if err := db.Preload("QRCode").Preload("Photos").
		Where("owner_id = ?", userID).
		Order("created_at " + sortDirection(c)).
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&discs).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to retrieve discs")
		return
	}

	for i := range discs {
		attachPhotoURLs(c, &discs[i])
	}

	respondPage(c, discs, p, total)
}

// GetDisc handles GET /api/v1/discs/:id - returns one of the caller's discs
func GetDisc(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	disc, ok := loadOwnedDisc(c, c.Param("id"), userID)
	if !ok {
		return
	}
	attachPhotoURLs(c, disc)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    disc,
	})
}

// UpdateDisc handles PUT /api/v1/discs/:id - edits a disc the caller owns
func UpdateDisc(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse request body
	var req UpdateDiscRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	// Find the disc and check ownership
	disc, ok := loadOwnedDisc(c, c.Param("id"), userID)
	if !ok {
		return
	}

	// Collect the fields that were provided
	updates := make(map[string]interface{})
	if req.Mold != nil {
		mold := trimmedOrNil(req.Mold)
		if mold == nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "mold cannot be empty")
			return
		}
		// the display name follows the mold
		updates["mold"] = *mold
		updates["name"] = *mold
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = trimmedOrNil(req.Manufacturer)
	}
	if req.Plastic != nil {
		updates["plastic"] = trimmedOrNil(req.Plastic)
	}
	if req.Color != nil {
		updates["color"] = trimmedOrNil(req.Color)
	}
	if req.Weight != nil {
		updates["weight"] = *req.Weight
	}
	if req.FlightNumbers != nil {
		if err := req.FlightNumbers.Validate(); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		updates["flight_speed"] = req.FlightNumbers.Speed
		updates["flight_glide"] = req.FlightNumbers.Glide
		updates["flight_turn"] = req.FlightNumbers.Turn
		updates["flight_fade"] = req.FlightNumbers.Fade
	}
	if req.RewardAmount != nil {
		updates["reward_amount"] = *req.RewardAmount
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	db := config.GetDB()
	if len(updates) > 0 {
		if err := db.Model(&models.Disc{}).Where("id = ?", disc.ID).Updates(updates).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update disc")
			return
		}
	}

	// Fetch updated disc to return
	var updated models.Disc
	if err := db.Preload("QRCode").Preload("Photos").First(&updated, "id = ?", disc.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated disc")
		return
	}
	attachPhotoURLs(c, &updated)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}

// DeleteDisc handles DELETE /api/v1/discs/:id - deletes a disc and its photos
func DeleteDisc(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Delete the disc rows, keeping the photo keys for storage cleanup
	photoPaths, err := services.DeleteDisc(c.Request.Context(), config.GetDB(), c.Param("id"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Storage cleanup is best effort once the rows are gone
	if imageService := services.GetImageService(); imageService != nil {
		for _, path := range photoPaths {
			if err := imageService.DeleteImage(c.Request.Context(), path); err != nil {
				log.Printf("Failed to delete photo %s: %v", path, err)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":      c.Param("id"),
			"deleted": true,
		},
	})
}

// ClaimDisc handles POST /api/v1/discs/claim - takes ownership of an ownerless disc
func ClaimDisc(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse request body
	var req ClaimDiscRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	disc, err := services.ClaimDisc(c.Request.Context(), config.GetDB(), strings.TrimSpace(req.DiscID), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	attachPhotoURLs(c, disc)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    disc,
	})
}

// AssignQRCode handles POST /api/v1/discs/:id/qr-code - binds one of the caller's sticker codes
func AssignQRCode(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse request body
	var req AssignQRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	disc, err := services.BindCodeToDisc(c.Request.Context(), config.GetDB(), c.Param("id"), userID, req.ShortCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    disc,
	})
}
