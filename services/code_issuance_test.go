package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/discr/discr-api/models"
	"github.com/discr/discr-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func reloadOrder(t *testing.T, db *gorm.DB, id string) models.StickerOrder {
	var order models.StickerOrder
	require.NoError(t, db.First(&order, "id = ?", id).Error)
	return order
}

func requireServiceError(t *testing.T, err error, status int, code string) *ServiceError {
	require.Error(t, err)
	svcErr, ok := AsServiceError(err)
	require.True(t, ok, "expected *ServiceError, got %T: %v", err, err)
	assert.Equal(t, status, svcErr.Status)
	assert.Equal(t, code, svcErr.Code)
	return svcErr
}

func TestIssueOrderCodes_Success(t *testing.T) {
	db := setupTestDB(t)
	order := createTestOrder(t, db, "auth0|buyer", 5, models.OrderStatusPaid)

	codes, err := NewCodeIssuer(db).IssueOrderCodes(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, codes, 5)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.Len(t, code.ShortCode, utils.ShortCodeLength)
		assert.True(t, utils.IsValidShortCode(code.ShortCode))
		assert.Equal(t, "auth0|buyer", code.AssignedTo)
		assert.Equal(t, models.QRCodeStatusGenerated, code.Status)
		assert.NotEmpty(t, code.ID)
		assert.False(t, seen[code.ShortCode], "duplicate short code %s", code.ShortCode)
		seen[code.ShortCode] = true
	}

	assert.Equal(t, int64(5), countRows(t, db, &models.QRCode{}))
	assert.Equal(t, int64(5), countRows(t, db, &models.StickerOrderItem{}))

	var items []models.StickerOrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	assert.Len(t, items, 5)

	var holders []string
	require.NoError(t, db.Model(&models.QRCode{}).Distinct().Pluck("assigned_to", &holders).Error)
	assert.Equal(t, []string{"auth0|buyer"}, holders)

	assert.Equal(t, models.OrderStatusProcessing, reloadOrder(t, db, order.ID).Status)
}

func TestIssueOrderCodes_ReissueAfterProcessingIsRejected(t *testing.T) {
	db := setupTestDB(t)
	order := createTestOrder(t, db, "auth0|buyer", 3, models.OrderStatusPaid)
	issuer := NewCodeIssuer(db)

	_, err := issuer.IssueOrderCodes(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = issuer.IssueOrderCodes(context.Background(), order.ID)
	svcErr := requireServiceError(t, err, http.StatusBadRequest, "INVALID_ORDER_STATUS")
	assert.Equal(t, "Order must be in paid status to generate QR codes", svcErr.Message)

	assert.Equal(t, int64(3), countRows(t, db, &models.QRCode{}))
	assert.Equal(t, int64(3), countRows(t, db, &models.StickerOrderItem{}))
}

func TestIssueOrderCodes_ExistingItemsConflict(t *testing.T) {
	db := setupTestDB(t)
	order := createTestOrder(t, db, "auth0|buyer", 2, models.OrderStatusPaid)
	issuer := NewCodeIssuer(db)

	_, err := issuer.IssueOrderCodes(context.Background(), order.ID)
	require.NoError(t, err)

	// Force the status back so only the item guard stands in the way
	require.NoError(t, db.Model(&models.StickerOrder{}).Where("id = ?", order.ID).Update("status", models.OrderStatusPaid).Error)

	_, err = issuer.IssueOrderCodes(context.Background(), order.ID)
	svcErr := requireServiceError(t, err, http.StatusBadRequest, "CODES_ALREADY_GENERATED")
	assert.Equal(t, "QR codes already generated for this order", svcErr.Message)

	assert.Equal(t, int64(2), countRows(t, db, &models.QRCode{}))
	assert.Equal(t, int64(2), countRows(t, db, &models.StickerOrderItem{}))
	assert.Equal(t, models.OrderStatusPaid, reloadOrder(t, db, order.ID).Status)
}

func TestIssueOrderCodes_OrderNotPaid(t *testing.T) {
	for _, status := range []models.OrderStatus{
		models.OrderStatusPendingPayment,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			db := setupTestDB(t)
			order := createTestOrder(t, db, "auth0|buyer", 2, status)

			_, err := NewCodeIssuer(db).IssueOrderCodes(context.Background(), order.ID)
			requireServiceError(t, err, http.StatusBadRequest, "INVALID_ORDER_STATUS")

			assert.Equal(t, int64(0), countRows(t, db, &models.QRCode{}))
			assert.Equal(t, status, reloadOrder(t, db, order.ID).Status)
		})
	}
}

func TestIssueOrderCodes_OrderNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewCodeIssuer(db).IssueOrderCodes(context.Background(), "00000000-0000-0000-0000-000000000000")
	svcErr := requireServiceError(t, err, http.StatusNotFound, "ORDER_NOT_FOUND")
	assert.Equal(t, "Order not found", svcErr.Message)
}

func TestIssueOrderCodes_PoolExhaustedRollsBack(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&models.QRCode{
		ShortCode:  "TAKENTAKEN22",
		Status:     models.QRCodeStatusAssigned,
		AssignedTo: "auth0|someone",
	}).Error)
	order := createTestOrder(t, db, "auth0|buyer", 1, models.OrderStatusPaid)

	issuer := NewCodeIssuer(db)
	issuer.Generate = func(count int) []string {
		out := make([]string, count)
		for i := range out {
			out[i] = "TAKENTAKEN22"
		}
		return out
	}

	_, err := issuer.IssueOrderCodes(context.Background(), order.ID)
	svcErr := requireServiceError(t, err, http.StatusInternalServerError, "CODE_GENERATION_FAILED")
	assert.ErrorIs(t, svcErr, ErrCodePoolExhausted)

	assert.Equal(t, int64(1), countRows(t, db, &models.QRCode{}))
	assert.Equal(t, int64(0), countRows(t, db, &models.StickerOrderItem{}))
	assert.Equal(t, models.OrderStatusPaid, reloadOrder(t, db, order.ID).Status)
}

func TestIssueOrderCodes_LinkFailureRollsBackCodesAndStatus(t *testing.T) {
	db := setupTestDB(t)
	order := createTestOrder(t, db, "auth0|buyer", 4, models.OrderStatusPaid)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_order_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "sticker_order_items" {
			_ = tx.AddError(errors.New("simulated link failure"))
		}
	}))

	_, err := NewCodeIssuer(db).IssueOrderCodes(context.Background(), order.ID)
	svcErr := requireServiceError(t, err, http.StatusInternalServerError, "DATABASE_ERROR")
	assert.Equal(t, "Failed to link QR codes to order", svcErr.Message)

	assert.Equal(t, int64(0), countRows(t, db, &models.QRCode{}))
	assert.Equal(t, int64(0), countRows(t, db, &models.StickerOrderItem{}))
	assert.Equal(t, models.OrderStatusPaid, reloadOrder(t, db, order.ID).Status)
}

func TestIssueOrderCodes_ConcurrentCallersIssueOnce(t *testing.T) {
	db := setupTestDB(t)
	order := createTestOrder(t, db, "auth0|buyer", 3, models.OrderStatusPaid)
	issuer := NewCodeIssuer(db)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = issuer.IssueOrderCodes(context.Background(), order.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		svcErr, ok := AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, svcErr.Status)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(3), countRows(t, db, &models.QRCode{}))
	assert.Equal(t, int64(3), countRows(t, db, &models.StickerOrderItem{}))
	assert.Equal(t, models.OrderStatusProcessing, reloadOrder(t, db, order.ID).Status)
}
