package middleware

import (
	"github.com/gin-gonic/gin"
)

const (
	HeaderAPIVersion  = "X-API-Version"
	ContextAPIVersion = "api_version"
)

// Version stamps responses with the API version a route group serves.
func Version(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextAPIVersion, version)
		c.Header(HeaderAPIVersion, version)
		c.Next()
	}
}
