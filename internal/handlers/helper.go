package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParseUintIDParam reads a positive numeric path parameter. On failure it
// writes a 400 response and returns 0.
func ParseUintIDParam(c *gin.Context, param string) uint {
	idStr := strings.TrimSpace(c.Param(param))
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		details := "ID must be a positive integer"
		if idStr == "" {
			details = "ID cannot be empty"
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid " + param,
			Code:    CodeValidationFailed,
			Details: details,
		})
		return 0
	}
	return uint(id)
}
