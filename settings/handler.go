package settings

import (
	"net/http"
	"os"
	"strings"

	"atelier_back/persist"
	"github.com/gin-gonic/gin"
)

// Module exposes the avatar settings endpoints and resolves the effective
// checkpoint for other modules.
type Module struct {
	store         *Store
	catalog       []CheckpointOption
	globalDefault string
}

// RegisterRoutes mounts the settings endpoints under /settings.
func RegisterRoutes(router *gin.Engine, store persist.Store) (*Module, error) {
	module := &Module{
		store:         NewStore(store),
		catalog:       loadCheckpointCatalog(),
		globalDefault: strings.TrimSpace(os.Getenv("STUDIO_GLOBAL_CHECKPOINT")),
	}

	group := router.Group("/settings")
	group.GET("/avatar", module.handleGetSettings)
	group.PUT("/avatar", module.handleUpdateSettings)
	group.GET("/checkpoints", module.handleListCheckpoints)

	return module, nil
}

// Current returns the settings snapshot in effect right now.
func (m *Module) Current() AvatarSettings {
	if m == nil {
		return defaultAvatarSettings()
	}
	return m.store.Current()
}

// Catalog returns the curated checkpoint catalog.
func (m *Module) Catalog() []CheckpointOption {
	if m == nil {
		return nil
	}
	return m.catalog
}

// EffectiveCheckpoint resolves the checkpoint filename a generation call
// should use under the given settings snapshot.
func (m *Module) EffectiveCheckpoint(snapshot AvatarSettings) string {
	if m == nil {
		return ""
	}
	return ResolveCheckpoint(m.catalog, snapshot, m.globalDefault)
}

func (m *Module) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": m.store.Current()})
}

type updateSettingsRequest struct {
	CheckpointSource        string `json:"checkpoint_source" binding:"required"`
	RecommendedCheckpointID string `json:"recommended_checkpoint_id"`
}

func (m *Module) handleUpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	source := CheckpointSource(strings.ToLower(strings.TrimSpace(req.CheckpointSource)))
	if source != CheckpointSourceGlobal && source != CheckpointSourceRecommended {
		c.JSON(http.StatusBadRequest, gin.H{"error": "checkpoint_source must be \"recommended\" or \"global\""})
		return
	}

	updated := m.store.Update(AvatarSettings{
		CheckpointSource:        source,
		RecommendedCheckpointID: strings.TrimSpace(req.RecommendedCheckpointID),
	})

	c.JSON(http.StatusOK, gin.H{"settings": updated})
}

func (m *Module) handleListCheckpoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"checkpoints":    m.catalog,
		"global_default": m.globalDefault,
	})
}
