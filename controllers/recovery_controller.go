package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportFoundRequest represents the request body for reporting a found disc
type ReportFoundRequest struct {
	DiscID string  `json:"disc_id"`
	Notes  *string `json:"notes" binding:"omitempty,max=1000"`
}

func recoveryIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid recovery ID")
		return 0, false
	}
	return uint(id), true
}

func respondRecovery(c *gin.Context, status int, event *models.RecoveryEvent) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    event,
	})
}

// ReportFound handles POST /api/v1/recoveries - a finder reports an owned disc as found
func ReportFound(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse request body
	var req ReportFoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	event, err := services.ReportFound(c.Request.Context(), config.GetDB(), req.DiscID, userID, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondRecovery(c, http.StatusCreated, event)
}

// GetRecovery handles GET /api/v1/recoveries/:id - visible to the finder and the owner
func GetRecovery(c *gin.Context) {
	recoveryFor(c, services.GetRecovery)
}

// AbandonDisc handles POST /api/v1/recoveries/:id/abandon - the owner gives the disc up
func AbandonDisc(c *gin.Context) {
	recoveryFor(c, services.AbandonDisc)
}

// MarkRecovered handles POST /api/v1/recoveries/:id/recover - the owner has the disc back
func MarkRecovered(c *gin.Context) {
	recoveryFor(c, services.MarkRecovered)
}

type recoveryAction func(ctx context.Context, db *gorm.DB, recoveryID uint, userID string) (*models.RecoveryEvent, error)

func recoveryFor(c *gin.Context, action recoveryAction) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse recovery ID from URL
	recoveryID, ok := recoveryIDParam(c)
	if !ok {
		return
	}

	event, err := action(c.Request.Context(), config.GetDB(), recoveryID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondRecovery(c, http.StatusOK, event)
}
