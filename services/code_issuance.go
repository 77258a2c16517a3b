package services

import (
	"context"
	"errors"
	"log"

	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/utils"
	"gorm.io/gorm"
)

// CodeIssuer turns a paid sticker order into registered QR codes
type CodeIssuer struct {
	DB       *gorm.DB
	Generate CodeGeneratorFunc
}

// NewCodeIssuer creates an issuer backed by db and the crypto-random generator
func NewCodeIssuer(db *gorm.DB) *CodeIssuer {
	return &CodeIssuer{
		DB:       db,
		Generate: utils.GenerateShortCodes,
	}
}

// IssueOrderCodes creates order.Quantity codes held by the purchaser, links them
// to the order and moves the order to processing.
//
// Preconditions are checked up front for precise errors and re-checked inside
// the transaction, where the conditional paid -> processing update is what
// makes concurrent callers lose. Codes, items and the status change commit
// together or not at all.
func (s *CodeIssuer) IssueOrderCodes(ctx context.Context, orderID string) ([]models.QRCode, error) {
	db := s.DB.WithContext(ctx)

	var order models.StickerOrder
	if err := db.Select("id", "user_id", "quantity", "status").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, NewInternalError("DATABASE_ERROR", "Failed to load order", err)
	}

	if order.Status != models.OrderStatusPaid {
		return nil, errOrderNotPaid()
	}

	var existingItems int64
	if err := db.Model(&models.StickerOrderItem{}).Where("order_id = ?", order.ID).Count(&existingItems).Error; err != nil {
		return nil, NewInternalError("DATABASE_ERROR", "Failed to check existing QR codes", err)
	}
	if existingItems > 0 {
		return nil, errCodesAlreadyGenerated()
	}

	var codes []models.QRCode
	err := db.Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.StickerOrder{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPaid).
			Update("status", models.OrderStatusProcessing)
		if claim.Error != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to update order status", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return errOrderNotPaid()
		}

		var items int64
		if err := tx.Model(&models.StickerOrderItem{}).Where("order_id = ?", order.ID).Count(&items).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to check existing QR codes", err)
		}
		if items > 0 {
			return errCodesAlreadyGenerated()
		}

		shortCodes, err := ResolveUniqueCodes(ctx, GormCodeRegistry{DB: tx}, s.Generate, order.Quantity)
		if err != nil {
			if errors.Is(err, ErrCodePoolExhausted) {
				log.Printf("Failed to generate %d unique short codes for order %s after %d attempts", order.Quantity, order.ID, MaxCodeResolutionAttempts)
				return NewInternalError("CODE_GENERATION_FAILED", "Failed to generate unique QR codes", err)
			}
			return NewInternalError("DATABASE_ERROR", "Failed to check existing QR codes", err)
		}

		codes = make([]models.QRCode, len(shortCodes))
		for i, code := range shortCodes {
			codes[i] = models.QRCode{
				ShortCode:  code,
				Status:     models.QRCodeStatusGenerated,
				AssignedTo: order.UserID,
			}
		}
		if err := tx.Create(&codes).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to create QR codes", err)
		}

		orderItems := make([]models.StickerOrderItem, len(codes))
		for i, code := range codes {
			orderItems[i] = models.StickerOrderItem{OrderID: order.ID, QRCodeID: code.ID}
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return NewInternalError("DATABASE_ERROR", "Failed to link QR codes to order", err)
		}

		return nil
	})
	if err != nil {
		if svcErr, ok := AsServiceError(err); ok {
			if svcErr.Err != nil {
				log.Printf("Code issuance for order %s rolled back: %v", order.ID, svcErr.Err)
			}
			return nil, svcErr
		}
		log.Printf("Code issuance for order %s rolled back: %v", order.ID, err)
		return nil, NewInternalError("DATABASE_ERROR", "Failed to create QR codes", err)
	}

	log.Printf("Issued %d QR codes for order %s", len(codes), order.ID)
	return codes, nil
}

func errOrderNotPaid() *ServiceError {
	return NewConflictError("INVALID_ORDER_STATUS", "Order must be in paid status to generate QR codes")
}

func errCodesAlreadyGenerated() *ServiceError {
	return NewConflictError("CODES_ALREADY_GENERATED", "QR codes already generated for this order")
}
