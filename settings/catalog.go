package settings

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CheckpointOption describes one curated model checkpoint the studio can
// generate avatars with.
type CheckpointOption struct {
	ID          string   `json:"id"`
	Filename    string   `json:"filename"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Recommended bool     `json:"recommended,omitempty"`
}

var defaultCheckpointCatalog = []CheckpointOption{
	{
		ID:          "studio-realism-v3",
		Filename:    "studioRealism_v30.safetensors",
		DisplayName: "Studio Realism v3",
		Description: "Balanced photorealistic portraits, the default for new users.",
		Tags:        []string{"portrait", "realistic"},
		Recommended: true,
	},
	{
		ID:          "dreamshaper-8",
		Filename:    "dreamshaper_8.safetensors",
		DisplayName: "DreamShaper 8",
		Description: "Versatile semi-realistic style with strong prompt adherence.",
		Tags:        []string{"versatile"},
	},
	{
		ID:          "anime-pastel",
		Filename:    "animePastelDream_soft.safetensors",
		DisplayName: "Anime Pastel Dream",
		Description: "Soft anime shading, suited for stylized personas.",
		Tags:        []string{"anime", "stylized"},
	},
	{
		ID:          "epic-photogasm",
		Filename:    "epicphotogasm_ultimateFidelity.safetensors",
		DisplayName: "epiCPhotoGasm",
		Description: "High-fidelity photography look, slower but detailed.",
		Tags:        []string{"photo", "detailed"},
	},
}

// loadCheckpointCatalog loads the curated catalog, honouring env overrides.
func loadCheckpointCatalog() []CheckpointOption {
	if catalog := loadCheckpointCatalogFromEnv(); len(catalog) > 0 {
		return catalog
	}
	return append([]CheckpointOption(nil), defaultCheckpointCatalog...)
}

// loadCheckpointCatalogFromEnv reads the catalog from an inline JSON env value
// or a JSON file.
func loadCheckpointCatalogFromEnv() []CheckpointOption {
	rawInline := strings.TrimSpace(os.Getenv("STUDIO_CHECKPOINT_CATALOG"))
	if rawInline != "" {
		if catalog := parseCheckpointCatalogJSON(rawInline); len(catalog) > 0 {
			return catalog
		}
		log.Printf("settings: failed to parse STUDIO_CHECKPOINT_CATALOG override")
	}

	rawPath := strings.TrimSpace(os.Getenv("STUDIO_CHECKPOINT_CATALOG_FILE"))
	if rawPath != "" {
		data, err := os.ReadFile(filepath.Clean(rawPath))
		if err != nil {
			log.Printf("settings: read STUDIO_CHECKPOINT_CATALOG_FILE failed: %v", err)
		} else if catalog := parseCheckpointCatalogJSON(string(data)); len(catalog) > 0 {
			return catalog
		} else {
			log.Printf("settings: failed to parse catalog file %s", rawPath)
		}
	}

	return nil
}

func parseCheckpointCatalogJSON(raw string) []CheckpointOption {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var wrapped struct {
		Checkpoints []CheckpointOption `json:"checkpoints"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil && len(wrapped.Checkpoints) > 0 {
		return normalizeCheckpointCatalog(wrapped.Checkpoints)
	}

	var list []CheckpointOption
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil && len(list) > 0 {
		return normalizeCheckpointCatalog(list)
	}

	return nil
}

func normalizeCheckpointCatalog(list []CheckpointOption) []CheckpointOption {
	if len(list) == 0 {
		return nil
	}

	result := make([]CheckpointOption, 0, len(list))
	seen := make(map[string]struct{}, len(list))

	for _, item := range list {
		id := strings.TrimSpace(item.ID)
		filename := strings.TrimSpace(item.Filename)
		if id == "" || filename == "" {
			continue
		}

		key := strings.ToLower(id)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}

		option := CheckpointOption{
			ID:          id,
			Filename:    filename,
			DisplayName: strings.TrimSpace(item.DisplayName),
			Description: strings.TrimSpace(item.Description),
			Tags:        normalizeStringSlice(item.Tags),
			Recommended: item.Recommended,
		}
		if option.DisplayName == "" {
			option.DisplayName = id
		}

		result = append(result, option)
	}

	return result
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		lowered := strings.ToLower(trimmed)
		if _, exists := seen[lowered]; exists {
			continue
		}
		seen[lowered] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
