package authorization

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// Guard protects mutating routes with a static API key. Deployments without
// STUDIO_API_KEY run open, mirroring the upstream generation service where an
// absent key header is valid.
type Guard struct {
	apiKey string
}

// NewGuardFromEnv builds the guard from STUDIO_API_KEY.
func NewGuardFromEnv() *Guard {
	return &Guard{apiKey: strings.TrimSpace(os.Getenv("STUDIO_API_KEY"))}
}

// Enabled reports whether requests must present the API key.
func (g *Guard) Enabled() bool {
	return g != nil && g.apiKey != ""
}

// RequireAPIKey validates the X-API-Key header (or a bearer token) against the
// configured key. A nil or unconfigured guard lets every request through.
func (g *Guard) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Enabled() {
			c.Next()
			return
		}

		candidate := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if candidate == "" {
			header := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(header), "bearer ") {
				candidate = strings.TrimSpace(header[len("bearer "):])
			}
		}

		if candidate == "" || subtle.ConstantTimeCompare([]byte(candidate), []byte(g.apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "valid API key required"})
			return
		}

		c.Next()
	}
}
