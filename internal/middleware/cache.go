package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheConfig represents cache control configuration
type CacheConfig struct {
	MaxAge         int
	Private        bool
	NoStore        bool
	NoCache        bool
	MustRevalidate bool
	Vary           []string
}

// NoStoreConfig keeps replies and per-user data out of every cache.
func NoStoreConfig() CacheConfig {
	return CacheConfig{Private: true, NoStore: true}
}

// Cache sets Cache-Control on GET responses. Other methods are always
// no-store.
func Cache(config CacheConfig) gin.HandlerFunc {
	directives := make([]string, 0, 5)
	if config.Private {
		directives = append(directives, "private")
	} else {
		directives = append(directives, "public")
	}
	if config.MaxAge > 0 {
		directives = append(directives, "max-age="+strconv.Itoa(config.MaxAge))
	}
	if config.NoStore {
		directives = append(directives, "no-store")
	}
	if config.NoCache {
		directives = append(directives, "no-cache")
	}
	if config.MustRevalidate {
		directives = append(directives, "must-revalidate")
	}
	value := strings.Join(directives, ", ")
	vary := strings.Join(config.Vary, ", ")

	return func(c *gin.Context) {
		if c.Request.Method != "GET" {
			c.Header("Cache-Control", "no-store")
			c.Next()
			return
		}

		c.Header("Cache-Control", value)
		if vary != "" {
			c.Header("Vary", vary)
		}
		c.Next()
	}
}
