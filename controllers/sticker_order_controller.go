package controllers

import (
	"errors"
	"net/http"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateStickerOrder handles POST /api/v1/sticker-orders - places an order and opens checkout
func CreateStickerOrder(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.NewStickerOrder
	if err := c.ShouldBindJSON(&req); err != nil {
		bindValidationError(c, err)
		return
	}

	db := config.GetDB()

	// The buyer's email pre-fills checkout when a profile exists
	var customerEmail string
	var profile models.Profile
	if err := db.Select("email").Where("auth0_id = ?", userID).First(&profile).Error; err == nil {
		customerEmail = profile.Email
	}

	// Create the order and open checkout
	cfg := config.GetConfig()
	orders := &services.StickerOrderService{
		DB:             db,
		Payments:       services.GetPaymentService(),
		UnitPriceCents: cfg.StickerUnitPriceCents,
		Currency:       cfg.StickerCurrency,
		AppURL:         cfg.AppURL,
	}

	result, err := orders.CreateOrder(c.Request.Context(), userID, customerEmail, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result,
	})
}

// ListStickerOrders handles GET /api/v1/sticker-orders - lists the caller's orders with pagination
func ListStickerOrders(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p := parsePagination(c)
	db := config.GetDB()

	// Build query for the caller's orders with optional status filter
	query := db.Model(&models.StickerOrder{}).Where("user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		if !models.OrderStatus(status).IsValid() {
			respondError(c, http.StatusBadRequest, "INVALID_STATUS", "Invalid status")
			return
		}
		query = query.Where("status = ?", status)
	}

	// Count total orders for pagination
	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count orders")
		return
	}

	var orders []models.StickerOrder
	if err := query.Preload("ShippingAddress").
		Order("created_at " + sortDirection(c)).
		Limit(p.Limit).
		Offset(p.Offset()).
		Find(&orders).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to retrieve orders")
		return
	}

	respondPage(c, orders, p, total)
}

// GetStickerOrder handles GET /api/v1/sticker-orders/:id - returns one of the caller's orders with its codes
func GetStickerOrder(c *gin.Context) {
	// Extract Auth0 user ID from JWT token
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	db := config.GetDB()
	// Fetch order with its address and codes
	var order models.StickerOrder
	err := db.Preload("ShippingAddress").
		Preload("Items.QRCode").
		First(&order, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load order")
		return
	}

	// Only the buyer can see the order
	if order.UserID != userID {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You do not have access to this order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GenerateOrderQRCodes handles POST /api/v1/sticker-orders/:id/qr-codes - issues the codes of a paid order
func GenerateOrderQRCodes(c *gin.Context) {
	orderID := c.Param("id")

	codes, err := services.NewCodeIssuer(config.GetDB()).IssueOrderCodes(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_id": orderID,
			"qr_codes": codes,
		},
	})
}
