package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medbot/internal/handler"
)

// SizeLimitConfig represents size limit configuration
type SizeLimitConfig struct {
	MaxBodySize   int64 // in bytes
	MaxHeaderSize int   // in bytes
	SkipPaths     []string
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   64 << 10, // 64KB
		MaxHeaderSize: 1 << 14,  // 16KB
	}
}

// SizeLimit rejects oversized requests up front and caps the body reader for
// requests that do not declare a length.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		if config.MaxBodySize > 0 {
			if c.Request.ContentLength > config.MaxBodySize {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, handler.NewErrorResponse(
					fmt.Sprintf("request body exceeds %d bytes", config.MaxBodySize)))
				return
			}
			if c.Request.Body != nil {
				c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxBodySize)
			}
		}

		if config.MaxHeaderSize > 0 {
			headerSize := 0
			for name, values := range c.Request.Header {
				headerSize += len(name)
				for _, value := range values {
					headerSize += len(value)
				}
			}
			if headerSize > config.MaxHeaderSize {
				c.AbortWithStatusJSON(http.StatusRequestHeaderFieldsTooLarge, handler.NewErrorResponse(
					fmt.Sprintf("request headers exceed %d bytes", config.MaxHeaderSize)))
				return
			}
		}

		c.Next()
	}
}
