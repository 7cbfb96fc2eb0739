package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testCatalog() []CheckpointOption {
	return []CheckpointOption{
		{ID: "studio-realism-v3", Filename: "studioRealism_v30.safetensors", Recommended: true},
		{ID: "anime-pastel", Filename: "animePastelDream_soft.safetensors"},
	}
}

func TestResolveCheckpoint(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		name          string
		settings      AvatarSettings
		globalDefault string
		want          string
	}{
		{
			name:          "global source passes default through",
			settings:      AvatarSettings{CheckpointSource: CheckpointSourceGlobal},
			globalDefault: "custom.safetensors",
			want:          "custom.safetensors",
		},
		{
			name:          "global source passes empty default through",
			settings:      AvatarSettings{CheckpointSource: CheckpointSourceGlobal},
			globalDefault: "",
			want:          "",
		},
		{
			name:          "recommended source resolves through catalog",
			settings:      AvatarSettings{CheckpointSource: CheckpointSourceRecommended, RecommendedCheckpointID: "anime-pastel"},
			globalDefault: "ignored.safetensors",
			want:          "animePastelDream_soft.safetensors",
		},
		{
			name:          "stale recommended id resolves to absent",
			settings:      AvatarSettings{CheckpointSource: CheckpointSourceRecommended, RecommendedCheckpointID: "unknown"},
			globalDefault: "x",
			want:          "",
		},
		{
			name:     "recommended source without id resolves to absent",
			settings: AvatarSettings{CheckpointSource: CheckpointSourceRecommended},
			want:     "",
		},
		{
			name:     "id lookup is case-insensitive",
			settings: AvatarSettings{CheckpointSource: CheckpointSourceRecommended, RecommendedCheckpointID: "Studio-Realism-V3"},
			want:     "studioRealism_v30.safetensors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolveCheckpoint(catalog, tt.settings, tt.globalDefault))
		})
	}
}

func TestResolveCheckpointEmptyCatalog(t *testing.T) {
	settings := AvatarSettings{CheckpointSource: CheckpointSourceRecommended, RecommendedCheckpointID: "anything"}
	require.Empty(t, ResolveCheckpoint(nil, settings, "fallback"))
}

func TestDefaultAvatarSettings(t *testing.T) {
	defaults := defaultAvatarSettings()
	require.Equal(t, CheckpointSourceRecommended, defaults.CheckpointSource)
	require.NotEmpty(t, defaults.RecommendedCheckpointID, "defaults point at the recommended catalog entry")

	resolved := ResolveCheckpoint(defaultCheckpointCatalog, defaults, "")
	require.NotEmpty(t, resolved, "default settings must resolve against the shipped catalog")
}
