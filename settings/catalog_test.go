package settings

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCheckpointCatalogJSONList(t *testing.T) {
	raw := `[
		{"id": "a", "filename": "a.safetensors", "display_name": "A"},
		{"id": "b", "filename": "b.safetensors"}
	]`

	catalog := parseCheckpointCatalogJSON(raw)
	require.Len(t, catalog, 2)
	require.Equal(t, "A", catalog[0].DisplayName)
	require.Equal(t, "b", catalog[1].DisplayName, "display name falls back to the id")
}

func TestParseCheckpointCatalogJSONWrapped(t *testing.T) {
	raw := `{"checkpoints": [{"id": "a", "filename": "a.safetensors"}]}`

	catalog := parseCheckpointCatalogJSON(raw)
	require.Len(t, catalog, 1)
	require.Equal(t, "a", catalog[0].ID)
}

func TestNormalizeCheckpointCatalogDropsInvalidAndDuplicates(t *testing.T) {
	catalog := normalizeCheckpointCatalog([]CheckpointOption{
		{ID: "a", Filename: "a.safetensors"},
		{ID: "A", Filename: "shadowed.safetensors"},
		{ID: "", Filename: "orphan.safetensors"},
		{ID: "no-file", Filename: ""},
		{ID: "b", Filename: "b.safetensors", Tags: []string{"Anime", "anime", " ", "soft"}},
	})

	require.Len(t, catalog, 2)
	require.Equal(t, "a.safetensors", catalog[0].Filename)
	require.Equal(t, []string{"Anime", "soft"}, catalog[1].Tags)
}

func TestParseCheckpointCatalogJSONRejectsGarbage(t *testing.T) {
	require.Nil(t, parseCheckpointCatalogJSON(""))
	require.Nil(t, parseCheckpointCatalogJSON("not json"))
	require.Nil(t, parseCheckpointCatalogJSON("[]"))
}
