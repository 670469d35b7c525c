// Package middleware holds the Gin middleware shared by all routes.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/renobook/renobook/internal/errors"
	"github.com/renobook/renobook/internal/respond"
)

const requestIDKey = "requestID"

// RequestLogging tags each request with an id and logs method, path,
// status and latency once the handler chain completes.
func RequestLogging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		logger.Info("request",
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			slog.String("client_ip", c.ClientIP()))
	}
}

const passwordHeader = "X-Access-Password"

// PasswordGate guards every route behind a single shared password, taken
// from a header or, for direct download links, a query parameter. An empty
// configured password disables the gate.
func PasswordGate(password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.Next()
			return
		}
		supplied := c.GetHeader(passwordHeader)
		if supplied == "" {
			supplied = c.Query("password")
		}
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(password)) != 1 {
			respond.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
