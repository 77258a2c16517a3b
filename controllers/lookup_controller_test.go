package controllers

import (
	"net/http"
	"testing"

	"github.com/discr/discr-api/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupRouter(identity gin.HandlerFunc) *gin.Engine {
	router := setupTestRouter()
	if identity != nil {
		router.GET("/qr-codes/:code", identity, GetQRCodeLookup)
	} else {
		router.GET("/qr-codes/:code", GetQRCodeLookup)
	}
	return router
}

func TestGetQRCodeLookup(t *testing.T) {
	db := setupTestDB(t)
	owner := "auth0|owner"
	fullName := "Paige Pierce"
	require.NoError(t, db.Create(&models.Profile{
		Auth0ID:           owner,
		Email:             "paige@example.com",
		FullName:          &fullName,
		DisplayPreference: models.DisplayPreferenceFullName,
	}).Error)

	disc := seedDisc(t, db, strPtr(owner), "Thunderbird")
	reward := 20.0
	require.NoError(t, db.Model(disc).Update("reward_amount", reward).Error)
	code := models.QRCode{ShortCode: "ABCDEFGHJKLM", Status: models.QRCodeStatusActive, AssignedTo: owner}
	require.NoError(t, db.Create(&code).Error)
	require.NoError(t, db.Model(disc).Update("qr_code_id", code.ID).Error)

	t.Run("anonymous finder", func(t *testing.T) {
		w := performJSON(lookupRouter(nil), http.MethodGet, "/qr-codes/abcdefghjklm", nil)

		assert.Equal(t, http.StatusOK, w.Code, "Response body: %s", w.Body.String())
		response := decodeResponse(t, w)
		assert.Equal(t, true, response["found"])
		assert.Equal(t, false, response["is_owner"])
		assert.Equal(t, false, response["is_claimable"])
		assert.Equal(t, false, response["has_active_recovery"])
		assert.NotContains(t, response, "success")

		found := response["disc"].(map[string]interface{})
		assert.Equal(t, disc.ID, found["id"])
		assert.Equal(t, "Thunderbird", found["name"])
		assert.Equal(t, fullName, found["owner_display_name"])
		assert.Equal(t, reward, found["reward_amount"])
		assert.NotContains(t, found, "owner_id")
		assert.NotContains(t, w.Body.String(), "paige@example.com")
	})

	t.Run("owner scanning their own disc", func(t *testing.T) {
		w := performJSON(lookupRouter(mockAuthMiddleware(owner, "", "token")), http.MethodGet, "/qr-codes/ABCDEFGHJKLM", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeResponse(t, w)["is_owner"])
	})

	t.Run("unknown code", func(t *testing.T) {
		w := performJSON(lookupRouter(nil), http.MethodGet, "/qr-codes/ZZZZZZZZZZZZ", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		response := decodeResponse(t, w)
		assert.Equal(t, false, response["found"])
		assert.NotContains(t, response, "disc")
	})
}
