package generation

import (
	"errors"
	"net/http"
	"strings"

	"atelier_back/authorization"
	"atelier_back/gallery"
	"atelier_back/settings"
	"github.com/gin-gonic/gin"
)

// outfitPresets maps wardrobe scenario ids to the outfit description used to
// build the variation prompt when the caller picks a preset instead of typing
// free text.
var outfitPresets = map[string]string{
	"business": "tailored business suit, office setting",
	"casual":   "relaxed casual outfit, jeans and a t-shirt",
	"evening":  "elegant evening wear, formal event",
	"sporty":   "athletic sportswear, gym setting",
	"beach":    "summer beachwear, seaside background",
	"fantasy":  "fantasy adventurer costume, ornate details",
	"lingerie": "elegant lingerie, tasteful boudoir setting",
}

// Module wires the generation clients to the gallery store and the avatar
// settings, and exposes the generation endpoints.
type Module struct {
	avatars  *Client
	outfits  *OutfitClient
	gallery  *gallery.Store
	settings *settings.Module
	hub      *eventHub
}

// RegisterRoutes mounts the generation endpoints under /avatars.
func RegisterRoutes(router *gin.Engine, guard *authorization.Guard, store *gallery.Store, settingsModule *settings.Module) (*Module, error) {
	avatars, err := NewClientFromEnv()
	if err != nil {
		return nil, err
	}
	outfits, err := NewOutfitClientFromEnv()
	if err != nil {
		return nil, err
	}

	module := &Module{
		avatars:  avatars,
		outfits:  outfits,
		gallery:  store,
		settings: settingsModule,
		hub:      newEventHub(),
	}

	group := router.Group("/avatars")
	group.GET("/status", module.handleStatus)
	group.GET("/events", module.handleEvents)

	protected := group.Group("")
	if guard != nil {
		protected.Use(guard.RequireAPIKey())
	}
	protected.POST("/generate", module.handleGenerate)
	protected.POST("/outfits", module.handleOutfits)
	protected.POST("/cancel", module.handleCancel)

	return module, nil
}

type generateRequest struct {
	Mode         string   `json:"mode"`
	Count        int      `json:"count"`
	Prompt       string   `json:"prompt"`
	ReferenceURL string   `json:"reference_url"`
	Checkpoint   string   `json:"checkpoint"`
	Seed         *int64   `json:"seed"`
	Truncation   *float64 `json:"truncation"`
}

func (m *Module) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	mode, ok := parseMode(req.Mode)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown generation mode"})
		return
	}

	// Resolve the checkpoint once, against a settings snapshot taken now, so a
	// settings change mid-flight cannot race this call.
	checkpoint := strings.TrimSpace(req.Checkpoint)
	if checkpoint == "" {
		checkpoint = m.settings.EffectiveCheckpoint(m.settings.Current())
	}

	m.hub.publish(LifecycleEvent{Kind: "avatar", Phase: phaseStarted})

	result, err := m.avatars.Generate(c.Request.Context(), GenerateRequest{
		Mode:         mode,
		Count:        req.Count,
		Prompt:       strings.TrimSpace(req.Prompt),
		ReferenceURL: strings.TrimSpace(req.ReferenceURL),
		Checkpoint:   checkpoint,
		Seed:         req.Seed,
		Truncation:   req.Truncation,
	})
	if err != nil {
		m.respondGenerationError(c, "avatar", err)
		return
	}

	items := m.gallery.AddBatch(toBatchResults(result.Results), mode,
		req.Prompt, req.ReferenceURL, "", nil)

	m.hub.publish(LifecycleEvent{Kind: "avatar", Phase: phaseCompleted, BatchSize: len(items)})
	c.JSON(http.StatusOK, gin.H{"items": items, "warnings": result.Warnings})
}

type outfitRequest struct {
	ReferenceURL    string `json:"reference_url" binding:"required"`
	ParentID        string `json:"parent_id"`
	ScenarioTag     string `json:"scenario_tag"`
	OutfitPrompt    string `json:"outfit_prompt"`
	CharacterPrompt string `json:"character_prompt"`
	Count           int    `json:"count"`
	Seed            *int64 `json:"seed"`
	Checkpoint      string `json:"checkpoint"`
	GenerationMode  string `json:"generation_mode"`
	NSFW            *bool  `json:"nsfw"`
	VibeTag         string `json:"vibe_tag"`
}

func (m *Module) handleOutfits(c *gin.Context) {
	var req outfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	scenarioTag := strings.TrimSpace(req.ScenarioTag)
	outfitPrompt := strings.TrimSpace(req.OutfitPrompt)
	switch {
	case outfitPrompt != "" && scenarioTag == "":
		// Free-text outfit: tagged as custom wardrobe entry.
		scenarioTag = "custom"
	case outfitPrompt == "" && scenarioTag != "":
		preset, ok := outfitPresets[scenarioTag]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown scenario preset"})
			return
		}
		outfitPrompt = preset
	case outfitPrompt == "" && scenarioTag == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "outfit_prompt or scenario_tag is required"})
		return
	}
	if _, known := gallery.ScenarioTagByID(scenarioTag); !known {
		scenarioTag = "custom"
	}

	checkpoint := strings.TrimSpace(req.Checkpoint)
	if checkpoint == "" {
		checkpoint = m.settings.EffectiveCheckpoint(m.settings.Current())
	}

	m.hub.publish(LifecycleEvent{Kind: "outfit", Phase: phaseStarted})

	result, err := m.outfits.Generate(c.Request.Context(), OutfitRequest{
		ReferenceURL:    strings.TrimSpace(req.ReferenceURL),
		OutfitPrompt:    outfitPrompt,
		CharacterPrompt: strings.TrimSpace(req.CharacterPrompt),
		Count:           req.Count,
		Seed:            req.Seed,
		Checkpoint:      checkpoint,
		GenerationMode:  strings.TrimSpace(req.GenerationMode),
	})
	if err != nil {
		m.respondGenerationError(c, "outfit", err)
		return
	}

	// Linkage and tagging happen here, at commit time: the clients know
	// nothing about presets or parent characters.
	items := m.gallery.AddBatch(toBatchResults(result.Results), gallery.ModeFromReference,
		outfitPrompt, req.ReferenceURL, scenarioTag, &gallery.BatchExtra{
			ParentID: strings.TrimSpace(req.ParentID),
			NSFW:     req.NSFW,
			VibeTag:  strings.TrimSpace(req.VibeTag),
		})

	m.hub.publish(LifecycleEvent{Kind: "outfit", Phase: phaseCompleted, BatchSize: len(items)})
	c.JSON(http.StatusOK, gin.H{"items": items, "warnings": result.Warnings})
}

type cancelRequest struct {
	Target string `json:"target"`
}

func (m *Module) handleCancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	cancelled := false
	target := strings.ToLower(strings.TrimSpace(req.Target))
	if target == "" || target == "avatar" {
		cancelled = m.avatars.Cancel() || cancelled
	}
	if target == "" || target == "outfit" {
		cancelled = m.outfits.Cancel() || cancelled
	}

	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (m *Module) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"avatar_busy": m.avatars.Busy(),
		"outfit_busy": m.outfits.Busy(),
	})
}

func (m *Module) handleEvents(c *gin.Context) {
	m.hub.serveEvents(c.Writer, c.Request)
}

// respondGenerationError maps the error taxonomy onto HTTP. Cancellation is
// not an error banner: the gallery is untouched and the client just stops its
// spinner. Timeouts, service errors, and transport errors carry a retryable
// hint.
func (m *Module) respondGenerationError(c *gin.Context, kind string, err error) {
	switch {
	case errors.Is(err, ErrTimedOut):
		m.hub.publish(LifecycleEvent{Kind: kind, Phase: phaseFailed, Error: err.Error()})
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "generation timed out", "retryable": true})
	case IsCancellation(err):
		m.hub.publish(LifecycleEvent{Kind: kind, Phase: phaseCancelled})
		c.JSON(http.StatusOK, gin.H{"cancelled": true, "items": []gallery.GalleryItem{}})
	default:
		m.hub.publish(LifecycleEvent{Kind: kind, Phase: phaseFailed, Error: err.Error()})
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": IsRetryable(err)})
	}
}

func parseMode(raw string) (gallery.GenerationMode, bool) {
	switch gallery.GenerationMode(strings.ToLower(strings.TrimSpace(raw))) {
	case gallery.ModeStudioRandom, "":
		return gallery.ModeStudioRandom, true
	case gallery.ModeFromReference:
		return gallery.ModeFromReference, true
	case gallery.ModeFaceStyle:
		return gallery.ModeFaceStyle, true
	case gallery.ModeCreative:
		return gallery.ModeCreative, true
	default:
		return "", false
	}
}

func toBatchResults(results []ResultItem) []gallery.BatchResult {
	converted := make([]gallery.BatchResult, 0, len(results))
	for _, result := range results {
		converted = append(converted, gallery.BatchResult{URL: result.URL, Seed: result.Seed})
	}
	return converted
}
