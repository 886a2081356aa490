package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const APIKeyHeader = "X-CRM-API-KEY"

type APIKeyConfig struct {
	HeaderName  string
	ValidAPIKey string
}

// APIKeyMiddleware rejects requests without the shared service key.
func APIKeyMiddleware(config APIKeyConfig) gin.HandlerFunc {
	headerName := config.HeaderName
	if headerName == "" {
		headerName = APIKeyHeader
	}
	valid := []byte(config.ValidAPIKey)

	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(headerName))
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing API key"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), valid) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}
		c.Next()
	}
}
