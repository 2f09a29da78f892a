package middlewares

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const HeaderRequestID = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or mints one, and exposes it on
// both the gin context and the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(string(RequestIDKey), reqID)
		c.Header(HeaderRequestID, reqID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), RequestIDKey, reqID))
		c.Next()
	}
}

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
