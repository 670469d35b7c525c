// Package respond writes the JSON shapes shared by every handler.
package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/renobook/renobook/internal/errors"
)

// OK writes a success envelope with a message and optional payload fields.
func OK(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Data writes a success envelope around a single data value.
func Data(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Error writes a consistent JSON error response. AppErrors carry their own
// status and user-facing message; anything else is logged in full and
// returned as a generic internal error so no detail leaks to the client.
func Error(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("code", appErr.Code),
				slog.String("path", c.Request.URL.Path),
				slog.Any("error", appErr.Internal))
		}
		c.JSON(appErr.StatusCode, gin.H{
			"success": false,
			"error":   gin.H{"code": appErr.Code, "message": appErr.Message},
		})
		return
	}

	slog.Error("unexpected error",
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.Any("error", err))
	c.JSON(apperrors.ErrInternal.StatusCode, gin.H{
		"success": false,
		"error":   gin.H{"code": apperrors.ErrInternal.Code, "message": apperrors.ErrInternal.Message},
	})
}
