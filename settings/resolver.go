package settings

import "strings"

// CheckpointSource selects where the effective checkpoint comes from.
type CheckpointSource string

const (
	// CheckpointSourceRecommended resolves through the curated catalog.
	CheckpointSourceRecommended CheckpointSource = "recommended"
	// CheckpointSourceGlobal passes the caller's global default through as-is.
	CheckpointSourceGlobal CheckpointSource = "global"
)

// AvatarSettings is the user's model-source preference for avatar generation.
type AvatarSettings struct {
	CheckpointSource        CheckpointSource `json:"checkpoint_source"`
	RecommendedCheckpointID string           `json:"recommended_checkpoint_id,omitempty"`
}

func defaultAvatarSettings() AvatarSettings {
	settings := AvatarSettings{CheckpointSource: CheckpointSourceRecommended}
	for _, option := range defaultCheckpointCatalog {
		if option.Recommended {
			settings.RecommendedCheckpointID = option.ID
			break
		}
	}
	return settings
}

// ResolveCheckpoint maps the layered settings onto a single checkpoint
// filename for a generation call. An empty return value means "no checkpoint",
// which the generation service treats as "use its own default".
//
// The global source passes globalDefault through verbatim, including the empty
// string: a caller that never configured a global checkpoint gets exactly
// that back. The recommended source resolves through the catalog and yields
// empty for ids the current catalog no longer carries.
func ResolveCheckpoint(catalog []CheckpointOption, settings AvatarSettings, globalDefault string) string {
	if settings.CheckpointSource == CheckpointSourceGlobal {
		return globalDefault
	}

	wanted := strings.TrimSpace(settings.RecommendedCheckpointID)
	if wanted == "" {
		return ""
	}
	for _, option := range catalog {
		if strings.EqualFold(option.ID, wanted) {
			return option.Filename
		}
	}
	return ""
}
