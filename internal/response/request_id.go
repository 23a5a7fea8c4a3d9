package response

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyRequestID is the Gin context key for the request ID.
	ContextKeyRequestID = "request_id"
	// ContextKeySessionID holds the student session a request acts on, once authenticated.
	ContextKeySessionID = "session_id"
)

const maxRequestIDLength = 64

// RequestIDMiddleware tags every request with an ID, reusing a well-formed
// X-Request-ID from the client.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if !validRequestID(reqID) {
			reqID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

// validRequestID keeps client IDs short and log-safe.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// RequestID returns the request's ID, or "" outside RequestIDMiddleware.
func RequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// SetSessionID records the session the request acts on for logging.
func SetSessionID(c *gin.Context, sessionID uuid.UUID) {
	c.Set(ContextKeySessionID, sessionID.String())
}

// Logger returns log tagged with the request ID and, when known, the session ID.
func Logger(c *gin.Context, log zerolog.Logger) zerolog.Logger {
	ctx := log.With()
	if id := RequestID(c); id != "" {
		ctx = ctx.Str("request_id", id)
	}
	if id := c.GetString(ContextKeySessionID); id != "" {
		ctx = ctx.Str("session_id", id)
	}
	return ctx.Logger()
}
