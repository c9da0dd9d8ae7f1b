package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bloodbank/pkg/documents"
	"bloodbank/pkg/service"
)

func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// handleError maps service errors onto status codes. Unknown errors are logged
// and reported without detail.
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, documents.ErrUnsupportedType),
		errors.Is(err, documents.ErrEmptyFile):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrConflict):
		fail(c, http.StatusConflict, "Account already exists")
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
