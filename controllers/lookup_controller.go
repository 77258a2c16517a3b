package controllers

import (
	"net/http"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/middleware"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
)

// GetQRCodeLookup handles GET /api/v1/qr-codes/:code - public lookup of a scanned sticker.
// A bearer token is optional and only used to tell owners apart from finders.
func GetQRCodeLookup(c *gin.Context) {
	result, err := services.LookupCode(
		c.Request.Context(),
		config.GetDB(),
		services.GetImageService(),
		c.Param("code"),
		middleware.GetOptionalUserID(c),
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
