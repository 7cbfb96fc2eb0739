package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestOutfitClient(t *testing.T, handler http.HandlerFunc) *OutfitClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &OutfitClient{remote: &remote{
		httpClient: &http.Client{},
		baseURL:    srv.URL,
		timeout:    5 * time.Second,
	}}
}

func TestOutfitGenerateDefaultsAndPayload(t *testing.T) {
	var received OutfitRequest
	client := newTestOutfitClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/outfits", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(OutfitResult{Results: []ResultItem{{URL: "/o.png"}}})
	})

	result, err := client.Generate(context.Background(), OutfitRequest{
		ReferenceURL: "/anchor.png",
		OutfitPrompt: "tailored business suit",
	})

	require.NoError(t, err)
	require.Len(t, result.Results, 1)

	require.Equal(t, "/anchor.png", received.ReferenceURL)
	require.Equal(t, "tailored business suit", received.OutfitPrompt)
	require.Equal(t, 1, received.Count, "count defaults to one")
	require.Equal(t, OutfitModeIdentity, received.GenerationMode, "mode hint defaults to identity-preserving")
}

func TestOutfitGenerateReportsWarningsVerbatim(t *testing.T) {
	warnings := []string{"low reference resolution", "checkpoint fallback applied"}
	client := newTestOutfitClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OutfitResult{
			Results:  []ResultItem{{URL: "/o.png"}},
			Warnings: warnings,
		})
	})

	result, err := client.Generate(context.Background(), OutfitRequest{
		ReferenceURL: "/anchor.png",
		OutfitPrompt: "casual",
	})

	require.NoError(t, err)
	require.Equal(t, warnings, result.Warnings)
}

func TestOutfitGenerateValidatesInput(t *testing.T) {
	client := newTestOutfitClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the service")
	})

	_, err := client.Generate(context.Background(), OutfitRequest{OutfitPrompt: "suit"})
	require.Error(t, err, "reference image is required")

	_, err = client.Generate(context.Background(), OutfitRequest{ReferenceURL: "/anchor.png"})
	require.Error(t, err, "outfit prompt is required")
}

func TestOutfitGenerateServiceError(t *testing.T) {
	client := newTestOutfitClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "reference image unreadable"})
	})

	_, err := client.Generate(context.Background(), OutfitRequest{
		ReferenceURL: "/anchor.png",
		OutfitPrompt: "suit",
	})

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "reference image unreadable", svcErr.Message)
	require.False(t, client.Busy())
}
