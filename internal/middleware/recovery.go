package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medbot/internal/handler"
	"github.com/jwalitptl/medbot/pkg/logger"
)

// Recovery turns a panic into a 500 and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(fmt.Errorf("%v", r), "Request panic recovered",
					"stack", string(debug.Stack()),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"client_ip", c.ClientIP(),
					"request_id", c.GetString(ContextRequestID))

				c.AbortWithStatusJSON(http.StatusInternalServerError,
					handler.NewErrorResponse("internal server error"))
			}
		}()
		c.Next()
	}
}
