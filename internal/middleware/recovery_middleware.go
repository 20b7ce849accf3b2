// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"luckylogic-crm/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MsgUnexpected is shown to the operator when a handler panics.
const MsgUnexpected = "Something went wrong on our side. Please try again later."

// RecoveryMiddleware turns a handler panic into a 500 envelope. When the
// handler already started writing, the connection is left as is.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("handler panicked",
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("actor", Actor(c)),
				zap.Stack("stack"),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, http.StatusInternalServerError, MsgUnexpected, nil)
		}()
		c.Next()
	}
}
