package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jayascript1/menubot/internal/logger"
	"github.com/jayascript1/menubot/internal/service"
)

// respondError maps service errors onto HTTP status codes and writes
// {"error": "..."}. Unexpected errors are logged with the request context.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrScanNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedImage):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrExtractionFailed):
		status = http.StatusBadGateway
	case errors.Is(err, service.ErrVisionUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).WithError(err).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
