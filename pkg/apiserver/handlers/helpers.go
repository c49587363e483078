package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Every response uses the same envelope: {"success": true, "data": ...} on
// 2xx, {"success": false, "error": ...} otherwise.

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func respondInternal(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "internal error")
}

// parsePage rejects values below 1; absence means the first page.
func parsePage(value string) (int, bool) {
	if value == "" {
		return 1, true
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return 0, false
	}
	return parsed, true
}

// parseLimit rejects values outside [1, max].
func parseLimit(value string, fallback, max int) (int, bool) {
	if value == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 || parsed > max {
		return 0, false
	}
	return parsed, true
}

// mustUUID parses a value already validated by the binding layer.
func mustUUID(value string) uuid.UUID {
	id, _ := uuid.Parse(value)
	return id
}

func parseDate(value string, fallback time.Time) (time.Time, bool) {
	if value == "" {
		return fallback, true
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
