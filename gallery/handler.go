package gallery

import (
	"net/http"
	"strings"

	"atelier_back/authorization"
	"atelier_back/persist"
	"github.com/gin-gonic/gin"
)

// Module exposes the gallery collection and wardrobe views over HTTP.
type Module struct {
	store *Store
}

// RegisterRoutes mounts the gallery endpoints under /gallery. Reads are open;
// mutations go through the API-key guard.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, store persist.Store) (*Module, error) {
	module := &Module{store: NewStoreFromEnv(store)}

	group := router.Group("/gallery")
	group.GET("", module.handleList)
	group.GET("/scenarios", module.handleScenarios)
	group.GET("/:id/outfits", module.handleOutfits)

	protected := group.Group("")
	if guard != nil {
		protected.Use(guard.RequireAPIKey())
	}
	protected.DELETE("", module.handleClear)
	protected.DELETE("/:id", module.handleRemove)
	protected.POST("/:id/tags", module.handleTag)
	protected.POST("/:id/persona", module.handleLinkPersona)

	return module, nil
}

// Store returns the backing gallery store for other modules to commit into.
func (m *Module) Store() *Store {
	if m == nil {
		return nil
	}
	return m.store
}

func (m *Module) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": m.store.Items()})
}

func (m *Module) handleScenarios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scenarios": ScenarioTags()})
}

func (m *Module) handleOutfits(c *gin.Context) {
	rootID := strings.TrimSpace(c.Param("id"))
	if _, ok := m.store.ItemByID(rootID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery item not found"})
		return
	}

	outfits := m.store.OutfitsOf(rootID)
	filtered := FilterByScenario(outfits, strings.TrimSpace(c.Query("tag")))

	c.JSON(http.StatusOK, gin.H{
		"outfits":        filtered,
		"available_tags": m.store.AvailableScenarioTags(rootID),
	})
}

func (m *Module) handleRemove(c *gin.Context) {
	m.store.RemoveItem(strings.TrimSpace(c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"items": m.store.Items()})
}

func (m *Module) handleClear(c *gin.Context) {
	m.store.ClearAll()
	c.JSON(http.StatusOK, gin.H{"items": []GalleryItem{}})
}

type tagRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

func (m *Module) handleTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	m.store.TagItem(id, req.Tags)

	item, ok := m.store.ItemByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

type linkPersonaRequest struct {
	PersonaProjectID string `json:"persona_project_id" binding:"required"`
}

func (m *Module) handleLinkPersona(c *gin.Context) {
	var req linkPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if _, ok := m.store.ItemByID(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "gallery item not found"})
		return
	}

	m.store.LinkToPersona(id, req.PersonaProjectID)
	item, _ := m.store.ItemByID(id)
	c.JSON(http.StatusOK, gin.H{"item": item})
}
