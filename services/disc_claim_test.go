package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/discr/discr-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createRecovery(t *testing.T, db *gorm.DB, discID, finderID string, status models.RecoveryStatus) *models.RecoveryEvent {
	event := &models.RecoveryEvent{
		DiscID:   discID,
		FinderID: finderID,
		Status:   status,
		FoundAt:  time.Now(),
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func TestClaimDisc_Success(t *testing.T) {
	db := setupTestDB(t)
	disc := createTestDisc(t, db, nil)
	abandoned := createRecovery(t, db, disc.ID, "auth0|finder", models.RecoveryStatusAbandoned)
	claimedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	freezeNow(t, claimedAt)

	claimed, err := ClaimDisc(context.Background(), db, disc.ID, "auth0|claimer")

	require.NoError(t, err)
	require.NotNil(t, claimed.OwnerID)
	assert.Equal(t, "auth0|claimer", *claimed.OwnerID)

	var event models.RecoveryEvent
	require.NoError(t, db.First(&event, abandoned.ID).Error)
	assert.Equal(t, models.RecoveryStatusRecovered, event.Status)
	require.NotNil(t, event.RecoveredAt)
	assert.True(t, event.RecoveredAt.Equal(claimedAt))
}

func TestClaimDisc_OnlyAbandonedRecoveriesAreClosed(t *testing.T) {
	db := setupTestDB(t)
	disc := createTestDisc(t, db, nil)
	abandoned := createRecovery(t, db, disc.ID, "auth0|finder", models.RecoveryStatusAbandoned)
	recovered := createRecovery(t, db, disc.ID, "auth0|finder", models.RecoveryStatusRecovered)
	other := createTestDisc(t, db, nil)
	otherAbandoned := createRecovery(t, db, other.ID, "auth0|finder", models.RecoveryStatusAbandoned)

	_, err := ClaimDisc(context.Background(), db, disc.ID, "auth0|claimer")
	require.NoError(t, err)

	var events []models.RecoveryEvent
	require.NoError(t, db.Order("id").Find(&events).Error)
	statuses := map[uint]models.RecoveryStatus{}
	for _, e := range events {
		statuses[e.ID] = e.Status
	}
	assert.Equal(t, models.RecoveryStatusRecovered, statuses[abandoned.ID])
	assert.Equal(t, models.RecoveryStatusRecovered, statuses[recovered.ID])
	assert.Equal(t, models.RecoveryStatusAbandoned, statuses[otherAbandoned.ID])
}

func TestClaimDisc_AlreadyOwned(t *testing.T) {
	owner := "auth0|owner"

	// The caller's identity makes no difference, not even the owner's own
	for _, caller := range []string{"auth0|someone-else", owner} {
		t.Run(caller, func(t *testing.T) {
			db := setupTestDB(t)
			disc := createTestDisc(t, db, strPtr(owner))
			event := createRecovery(t, db, disc.ID, "auth0|finder", models.RecoveryStatusAbandoned)

			_, err := ClaimDisc(context.Background(), db, disc.ID, caller)
			svcErr := requireServiceError(t, err, http.StatusBadRequest, "DISC_ALREADY_OWNED")
			assert.Equal(t, "This disc already has an owner and cannot be claimed", svcErr.Message)

			var reloaded models.Disc
			require.NoError(t, db.First(&reloaded, "id = ?", disc.ID).Error)
			require.NotNil(t, reloaded.OwnerID)
			assert.Equal(t, owner, *reloaded.OwnerID)

			var unchanged models.RecoveryEvent
			require.NoError(t, db.First(&unchanged, event.ID).Error)
			assert.Equal(t, models.RecoveryStatusAbandoned, unchanged.Status)
			assert.Nil(t, unchanged.RecoveredAt)
		})
	}
}

func TestClaimDisc_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := ClaimDisc(context.Background(), db, "00000000-0000-0000-0000-000000000000", "auth0|claimer")
	svcErr := requireServiceError(t, err, http.StatusNotFound, "DISC_NOT_FOUND")
	assert.Equal(t, "Disc not found", svcErr.Message)
}

func TestClaimDisc_MissingDiscID(t *testing.T) {
	db := setupTestDB(t)

	_, err := ClaimDisc(context.Background(), db, " ", "auth0|claimer")
	svcErr := requireServiceError(t, err, http.StatusBadRequest, "VALIDATION_ERROR")
	assert.Equal(t, "disc_id is required", svcErr.Message)
}

func TestClaimDisc_SecondClaimLoses(t *testing.T) {
	db := setupTestDB(t)
	disc := createTestDisc(t, db, nil)

	_, err := ClaimDisc(context.Background(), db, disc.ID, "auth0|first")
	require.NoError(t, err)

	_, err = ClaimDisc(context.Background(), db, disc.ID, "auth0|second")
	requireServiceError(t, err, http.StatusBadRequest, "DISC_ALREADY_OWNED")

	var reloaded models.Disc
	require.NoError(t, db.First(&reloaded, "id = ?", disc.ID).Error)
	assert.Equal(t, "auth0|first", *reloaded.OwnerID)
}
