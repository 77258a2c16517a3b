package controllers

import (
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/discr/discr-api/middleware"
	"github.com/discr/discr-api/services"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// respondError writes the standard error envelope
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondServiceError maps a workflow error onto the envelope. Anything that is
// not a *services.ServiceError is logged and reported as a generic 500.
func respondServiceError(c *gin.Context, err error) {
	if svcErr, ok := services.AsServiceError(err); ok {
		if svcErr.Status >= http.StatusInternalServerError && svcErr.Err != nil {
			log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), svcErr.Err)
		}
		respondError(c, svcErr.Status, svcErr.Code, svcErr.Message)
		return
	}

	log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// requireUserID returns the authenticated caller or writes a 401
func requireUserID(c *gin.Context) (string, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil || userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return "", false
	}
	return userID, true
}

// pagination is the page window requested through ?page= and ?limit=
type pagination struct {
	Page  int
	Limit int
}

func (p pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func parsePagination(c *gin.Context) pagination {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return pagination{Page: page, Limit: limit}
}

// sortDirection reads ?order= and defaults to newest first
func sortDirection(c *gin.Context) string {
	if c.Query("order") == "asc" {
		return "ASC"
	}
	return "DESC"
}

func respondPage(c *gin.Context, data interface{}, p pagination, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":       p.Page,
			"limit":      p.Limit,
			"total":      total,
			"totalPages": int(math.Ceil(float64(total) / float64(p.Limit))),
		},
	})
}
