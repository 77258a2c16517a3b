package controllers

import (
	"net/http"
	"strings"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/middleware"
	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
)

// UpdateProfileRequest represents the request body for updating a profile
type UpdateProfileRequest struct {
	Username          *string `json:"username" binding:"omitempty,min=3,max=30"`
	FullName          *string `json:"full_name" binding:"omitempty,max=100"`
	DisplayPreference *string `json:"display_preference" binding:"omitempty,oneof=username full_name"`
}

// isUniqueViolation recognizes duplicate key errors from both PostgreSQL and SQLite
func isUniqueViolation(err error) bool {
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "unique")
}

// CreateProfile handles POST /api/v1/profiles - creates the caller's profile from Auth0 userinfo
func CreateProfile(c *gin.Context) {
	// Get the Auth0 user ID from the validated JWT
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token")
		return
	}

	// Get the access token to call Auth0's /userinfo endpoint
	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found")
		return
	}

	// Fetch user info from Auth0
	auth0Service := services.NewAuth0Service(config.GetConfig())
	userInfo, err := auth0Service.GetUserInfo(c.Request.Context(), accessToken)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0")
		return
	}

	profile, err := userInfo.NewProfile(auth0ID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0")
		return
	}

	// Create profile in database
	db := config.GetDB()
	if err := db.Create(profile).Error; err != nil {
		// Check for duplicate Auth0ID or email (works with both PostgreSQL and SQLite)
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "PROFILE_EXISTS", "A profile with this Auth0 ID or email already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create profile")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    profile,
	})
}

// GetMyProfile handles GET /api/v1/profiles/me - gets the caller's profile
func GetMyProfile(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	auth0ID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Find profile by Auth0ID
	db := config.GetDB()
	var profile models.Profile
	if err := db.Where("auth0_id = ?", auth0ID).First(&profile).Error; err != nil {
		respondError(c, http.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found. Please create a profile first.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}

// UpdateMyProfile handles PUT /api/v1/profiles/me - updates the caller's profile
func UpdateMyProfile(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	auth0ID, ok := requireUserID(c)
	if !ok {
		return
	}

	// Parse request body
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	db := config.GetDB()
	var profile models.Profile
	if err := db.Where("auth0_id = ?", auth0ID).First(&profile).Error; err != nil {
		respondError(c, http.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found")
		return
	}

	// Update fields if provided
	updates := make(map[string]interface{})
	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.DisplayPreference != nil {
		updates["display_preference"] = *req.DisplayPreference
	}

	// If no fields to update, return current profile
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    profile,
		})
		return
	}

	if err := db.Model(&profile).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			respondError(c, http.StatusConflict, "USERNAME_TAKEN", "This username is already taken")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update profile")
		return
	}

	// Fetch updated profile to return
	if err := db.Where("auth0_id = ?", auth0ID).First(&profile).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    profile,
	})
}
