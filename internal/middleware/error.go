package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medbot/internal/handler"
	apperrors "github.com/jwalitptl/medbot/pkg/errors"
	"github.com/jwalitptl/medbot/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// AppErrors keep their status and message; anything else is a 500 whose
// detail stays in the log.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error(e.Err, "Request error",
				"request_id", requestID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"client_ip", c.ClientIP())
		}

		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"
		if appErr, ok := apperrors.As(c.Errors.Last().Err); ok {
			status = appErr.StatusCode()
			message = appErr.Message
		}
		c.JSON(status, handler.NewErrorResponse(message))
	}
}
