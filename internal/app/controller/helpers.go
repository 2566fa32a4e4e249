package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	apperrors "github.com/ikkim/bookstore-backend/internal/errors"
	"github.com/ikkim/bookstore-backend/internal/middleware"
)

// parseIDParam reads a positive uint path parameter; on failure it has already responded.
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID parameter", map[string]interface{}{
			"param": name,
			"value": c.Param(name),
		})
		apperrors.NotFound(c, apperrors.ValidationInvalidID, "Not found.")
		return 0, false
	}
	return uint(id), true
}

// currentRequester builds the requester from the authenticated context; on failure
// it has already responded with 401.
func currentRequester(c *gin.Context) (service.Requester, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return service.Requester{}, false
	}
	role, _ := middleware.GetUserRole(c)
	return service.Requester{UserID: userID, Role: role}, true
}
