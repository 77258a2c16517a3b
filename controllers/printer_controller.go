package controllers

import (
	"net/http"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
)

// UpdateOrderStatusRequest is sent by the print shop. The printer token is the
// only credential.
type UpdateOrderStatusRequest struct {
	PrinterToken   string `json:"printer_token"`
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

// GenerateStickerPDFRequest asks for the printable sheet of an order
type GenerateStickerPDFRequest struct {
	PrinterToken string `json:"printer_token"`
}

// UpdateOrderStatus handles POST /api/v1/printer/orders/status - advances an order through fulfilment
func UpdateOrderStatus(c *gin.Context) {
	// Parse request body
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}

	// The printer token identifies the order
	order, err := services.UpdateOrderStatusByPrinterToken(
		c.Request.Context(),
		config.GetDB(),
		req.PrinterToken,
		models.OrderStatus(req.Status),
		req.TrackingNumber,
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GenerateStickerPDF handles POST /api/v1/printer/orders/pdf - renders and stores the sticker sheet
func GenerateStickerPDF(c *gin.Context) {
	// Parse request body
	var req GenerateStickerPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}

	// Sticker sheets go straight to object storage
	storage := services.GetS3Service()
	if storage == nil {
		respondError(c, http.StatusInternalServerError, "STORAGE_ERROR", "Object storage is not configured")
		return
	}

	sheets := &services.StickerSheetService{
		DB:       config.GetDB(),
		Storage:  storage,
		Renderer: services.FPDFStickerRenderer{BaseURL: config.GetConfig().AppURL},
	}
	sheet, err := sheets.GenerateSheet(c.Request.Context(), req.PrinterToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sheet,
	})
}
