package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/discr/discr-api/models"
	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// Sticker sheet geometry in millimetres on US Letter
const (
	stickerColumns   = 4
	stickerRows      = 6
	stickerCellSize  = 44.0
	stickerQRSize    = 32.0
	stickerMarginX   = 19.95
	stickerMarginY   = 7.7
	stickerQRPixels  = 256
	stickersPerSheet = stickerColumns * stickerRows
)

// StickerSheetRenderer renders printable sticker sheets for a batch of codes
type StickerSheetRenderer interface {
	Render(orderNumber string, codes []string) ([]byte, error)
}

// FPDFStickerRenderer lays codes out on Letter pages with fpdf. Each sticker is
// a QR image pointing at baseURL/d/<code> with the code printed underneath.
type FPDFStickerRenderer struct {
	BaseURL string
}

// StickerURL is the address a printed sticker resolves to
func StickerURL(baseURL, code string) string {
	return fmt.Sprintf("%s/d/%s", baseURL, code)
}

// Render returns the PDF document bytes
func (r FPDFStickerRenderer) Render(orderNumber string, codes []string) ([]byte, error) {
	if len(codes) == 0 {
		return nil, errors.New("no codes to render")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(fmt.Sprintf("Discr stickers %s", orderNumber), true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Courier", "B", 9)

	for i, code := range codes {
		slot := i % stickersPerSheet
		if slot == 0 {
			pdf.AddPage()
		}

		png, err := qrcode.Encode(StickerURL(r.BaseURL, code), qrcode.Medium, stickerQRPixels)
		if err != nil {
			return nil, fmt.Errorf("failed to encode QR code %s: %w", code, err)
		}

		name := "qr-" + code
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))

		cellX := stickerMarginX + float64(slot%stickerColumns)*stickerCellSize
		cellY := stickerMarginY + float64(slot/stickerColumns)*stickerCellSize
		qrX := cellX + (stickerCellSize-stickerQRSize)/2
		pdf.ImageOptions(name, qrX, cellY+2, stickerQRSize, stickerQRSize, false, opts, 0, "")

		textX := cellX + (stickerCellSize-pdf.GetStringWidth(code))/2
		pdf.Text(textX, cellY+stickerQRSize+7, code)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render sticker sheet: %w", err)
	}
	return buf.Bytes(), nil
}

// StickerSheetService renders an order's codes and stores the sheet
type StickerSheetService struct {
	DB       *gorm.DB
	Storage  S3Interface
	Renderer StickerSheetRenderer
}

// StickerSheet is the stored PDF for an order
type StickerSheet struct {
	StoragePath string `json:"pdf_storage_path"`
	URL         string `json:"pdf_url"`
}

// StickerSheetPath is the object key of an order's sticker sheet
func StickerSheetPath(orderID string) string {
	return fmt.Sprintf("orders/%s.pdf", orderID)
}

// GenerateSheet renders the sticker sheet for the order the printer token
// belongs to, uploads it and records its storage path. A sheet is generated once.
func (s *StickerSheetService) GenerateSheet(ctx context.Context, printerToken string) (*StickerSheet, error) {
	if printerToken == "" {
		return nil, NewValidationError("VALIDATION_ERROR", "Missing required field: printer_token")
	}

	db := s.DB.WithContext(ctx)
	order, err := FindOrderByPrinterToken(ctx, db, printerToken)
	if err != nil {
		return nil, err
	}
	if order.PDFStoragePath != nil && *order.PDFStoragePath != "" {
		return nil, NewConflictError("PDF_ALREADY_GENERATED", "PDF already generated for this order")
	}

	var codes []string
	if err := db.Model(&models.QRCode{}).
		Joins("JOIN sticker_order_items ON sticker_order_items.qr_code_id = qr_codes.id").
		Where("sticker_order_items.order_id = ?", order.ID).
		Order("sticker_order_items.id").
		Pluck("qr_codes.short_code", &codes).Error; err != nil {
		return nil, NewInternalError("DATABASE_ERROR", "Failed to load QR codes", err)
	}
	if len(codes) == 0 {
		return nil, NewConflictError("NO_QR_CODES", "No QR codes found for this order")
	}

	// Claim the sheet before rendering so concurrent printer requests render it once
	path := StickerSheetPath(order.ID)
	claim := db.Model(&models.StickerOrder{}).
		Where("id = ? AND pdf_storage_path IS NULL", order.ID).
		Update("pdf_storage_path", path)
	if claim.Error != nil {
		return nil, NewInternalError("DATABASE_ERROR", "Failed to update order", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil, NewConflictError("PDF_ALREADY_GENERATED", "PDF already generated for this order")
	}

	document, err := s.Renderer.Render(order.OrderNumber, codes)
	if err != nil {
		s.releaseSheet(ctx, order.ID, path)
		return nil, NewInternalError("PDF_GENERATION_FAILED", "Failed to generate PDF", err)
	}

	// Upload the rendered sheet
	if err := s.Storage.PutObject(ctx, path, document, "application/pdf"); err != nil {
		s.releaseSheet(ctx, order.ID, path)
		return nil, NewInternalError("STORAGE_ERROR", "Failed to upload PDF", err)
	}

	url, err := s.Storage.GetPresignedURL(ctx, path)
	if err != nil {
		return nil, NewInternalError("STORAGE_ERROR", "Failed to generate PDF URL", err)
	}

	log.Printf("Generated sticker sheet for order %s (%d codes)", order.ID, len(codes))
	return &StickerSheet{StoragePath: path, URL: url}, nil
}

// releaseSheet clears a claimed storage path so the printer can retry
func (s *StickerSheetService) releaseSheet(ctx context.Context, orderID, path string) {
	if err := s.DB.WithContext(ctx).Model(&models.StickerOrder{}).
		Where("id = ? AND pdf_storage_path = ?", orderID, path).
		Update("pdf_storage_path", nil).Error; err != nil {
		log.Printf("Failed to release sticker sheet claim for order %s: %v", orderID, err)
	}
}
