package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/services"
	"github.com/discr/discr-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MaxPhotosPerDisc caps how many photos one disc can carry
const MaxPhotosPerDisc = 4

// UploadDiscPhoto handles POST /api/v1/discs/:id/photos - uploads a photo of a disc the caller owns
func UploadDiscPhoto(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Find the disc and check ownership
	disc, ok := loadOwnedDisc(c, c.Param("id"), userID)
	if !ok {
		return
	}
	if len(disc.Photos) >= MaxPhotosPerDisc {
		respondError(c, http.StatusBadRequest, "PHOTO_LIMIT_REACHED", "A disc can have at most "+strconv.Itoa(MaxPhotosPerDisc)+" photos")
		return
	}

	// Get the uploaded file from the multipart form
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing required field: photo")
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "Image storage is not configured")
		return
	}

	// Validate and upload the image
	storagePath, err := imageService.UploadDiscPhoto(c.Request.Context(), disc.ID, fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return
		}
		log.Printf("Failed to upload photo for disc %s: %v", disc.ID, err)
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload photo")
		return
	}

	// Record the photo against the disc
	photo := models.DiscPhoto{
		DiscID:      disc.ID,
		StoragePath: storagePath,
	}
	db := config.GetDB()
	if err := db.Create(&photo).Error; err != nil {
		// drop the orphaned object so storage matches the table
		if delErr := imageService.DeleteImage(c.Request.Context(), storagePath); delErr != nil {
			log.Printf("Failed to clean up photo %s: %v", storagePath, delErr)
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save photo")
		return
	}

	// Sign a URL for the response
	if url, err := imageService.GetImageURL(c.Request.Context(), storagePath); err == nil {
		photo.URL = &url
	} else {
		log.Printf("Failed to sign photo %s: %v", storagePath, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    photo,
	})
}

// DeleteDiscPhoto handles DELETE /api/v1/discs/:id/photos/:photoId - removes one photo
func DeleteDiscPhoto(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Find the disc and check ownership
	disc, ok := loadOwnedDisc(c, c.Param("id"), userID)
	if !ok {
		return
	}

	// Parse photo ID from URL
	photoID, err := strconv.ParseUint(c.Param("photoId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid photo ID")
		return
	}

	db := config.GetDB()
	var photo models.DiscPhoto
	if err := db.Where("id = ? AND disc_id = ?", photoID, disc.ID).First(&photo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "PHOTO_NOT_FOUND", "Photo not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load photo")
		return
	}

	if err := db.Delete(&photo).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete photo")
		return
	}

	// Remove the stored object, best effort once the row is gone
	if imageService := services.GetImageService(); imageService != nil {
		if err := imageService.DeleteImage(c.Request.Context(), photo.StoragePath); err != nil {
			log.Printf("Failed to delete photo %s: %v", photo.StoragePath, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":      photo.ID,
			"deleted": true,
		},
	})
}
