package gallery

import "time"

// GenerationMode tags how an avatar was produced.
type GenerationMode string

const (
	// ModeStudioRandom generates without any user-provided input.
	ModeStudioRandom GenerationMode = "studio_random"
	// ModeFromReference varies an uploaded reference image.
	ModeFromReference GenerationMode = "from_reference"
	// ModeFaceStyle combines a face anchor with a style prompt.
	ModeFaceStyle GenerationMode = "face_style"
	// ModeCreative is fully text-driven generation.
	ModeCreative GenerationMode = "creative"
)

// GalleryItem is one generated artifact in the studio gallery.
//
// An item without ParentID is a root character; an item whose ParentID points
// at another item's ID is an outfit variation of that character. After
// creation only Tags (merge) and PersonaProjectID (promotion) are ever
// rewritten.
type GalleryItem struct {
	ID               string         `json:"id"`
	URL              string         `json:"url"`
	Seed             *int64         `json:"seed,omitempty"`
	Prompt           string         `json:"prompt,omitempty"`
	Mode             GenerationMode `json:"mode"`
	ReferenceURL     string         `json:"reference_url,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	Tags             []string       `json:"tags,omitempty"`
	ScenarioTag      string         `json:"scenario_tag,omitempty"`
	NSFW             *bool          `json:"nsfw,omitempty"`
	ParentID         string         `json:"parent_id,omitempty"`
	BatchID          string         `json:"batch_id,omitempty"`
	PersonaProjectID string         `json:"persona_project_id,omitempty"`
}

// BatchResult is one artifact returned by a generation call, before it is
// committed to the gallery.
type BatchResult struct {
	URL  string `json:"url"`
	Seed *int64 `json:"seed,omitempty"`
}

// BatchExtra carries the caller-side linkage and labels applied when outfit
// results are committed: only the caller knows which preset built the prompt.
type BatchExtra struct {
	ParentID string
	NSFW     *bool
	VibeTag  string
}
