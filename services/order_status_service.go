package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/discr/discr-api/models"
	"gorm.io/gorm"
)

// now is swapped in tests that need stable timestamps
var now = time.Now

// UpdateOrderStatusByPrinterToken advances the order identified by its printer
// token to target. The token is the only credential; no user session is involved.
func UpdateOrderStatusByPrinterToken(ctx context.Context, db *gorm.DB, printerToken string, target models.OrderStatus, trackingNumber string) (*models.StickerOrder, error) {
	if strings.TrimSpace(printerToken) == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: printer_token")
	}
	if target == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: status")
	}
	if !target.IsPrinterSettable() {
		return nil, NewValidationError("INVALID_STATUS", "Invalid status")
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if target == models.OrderStatusShipped && trackingNumber == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "tracking_number is required when marking as shipped")
	}

	db = db.WithContext(ctx)
	order, err := FindOrderByPrinterToken(ctx, db, printerToken)
	if err != nil {
		return nil, err
	}

	if err := models.ValidateTransition(order.Status, target); err != nil {
		return nil, NewConflictError("INVALID_STATUS_TRANSITION", err.Error())
	}

	updates := map[string]interface{}{"status": target}
	stamp := now()
	switch target {
	case models.OrderStatusPrinted:
		updates["printed_at"] = stamp
	case models.OrderStatusShipped:
		updates["shipped_at"] = stamp
		updates["tracking_number"] = trackingNumber
	}

	// Guard on the observed status so a concurrent change is reported, not overwritten
	result := db.Model(&models.StickerOrder{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, NewInternalError("DATABASE_ERROR", "Failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, NewConflictError("STATUS_CHANGED", "Order status changed while updating, please retry")
	}

	var updated models.StickerOrder
	if err := db.First(&updated, "id = ?", order.ID).Error; err != nil {
		return nil, NewInternalError("DATABASE_ERROR", "Failed to load updated order", err)
	}
	return &updated, nil
}

// FindOrderByPrinterToken loads the order a printer token grants access to
func FindOrderByPrinterToken(ctx context.Context, db *gorm.DB, printerToken string) (*models.StickerOrder, error) {
	var order models.StickerOrder
	if err := db.WithContext(ctx).Where("printer_token = ?", printerToken).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to load order", err)
	}
	return &order, nil
}
