package storage

import (
	"net/http"

	"atelier_back/authorization"
	"github.com/gin-gonic/gin"
)

// Module exposes the reference-image upload endpoint.
type Module struct {
	storage *ReferenceStorage
}

// RegisterRoutes mounts POST /upload. The route exists even when storage is
// unconfigured so the front end gets a clear "disabled" answer.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard) (*Module, error) {
	refStorage, err := NewReferenceStorageFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{storage: refStorage}

	handlers := []gin.HandlerFunc{}
	if guard != nil {
		handlers = append(handlers, guard.RequireAPIKey())
	}
	handlers = append(handlers, module.handleUpload)
	router.POST("/upload", handlers...)

	return module, nil
}

func (m *Module) handleUpload(c *gin.Context) {
	if !m.storage.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reference storage is disabled"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	url, err := m.storage.Upload(c.Request.Context(), fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
