package generation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atelier_back/gallery"
	"atelier_back/settings"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestModule(t *testing.T, handler http.HandlerFunc) (*Module, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	settingsModule, err := settings.RegisterRoutes(gin.New(), nil)
	require.NoError(t, err)

	module := &Module{
		avatars:  &Client{remote: &remote{httpClient: &http.Client{}, baseURL: srv.URL, timeout: 5 * time.Second}},
		outfits:  &OutfitClient{remote: &remote{httpClient: &http.Client{}, baseURL: srv.URL, timeout: 5 * time.Second}},
		gallery:  gallery.NewStoreFromEnv(nil),
		settings: settingsModule,
		hub:      newEventHub(),
	}

	router := gin.New()
	router.POST("/avatars/generate", module.handleGenerate)
	router.POST("/avatars/outfits", module.handleOutfits)
	router.GET("/avatars/status", module.handleStatus)

	return module, router
}

func TestHandleGenerateCommitsBatch(t *testing.T) {
	module, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(GenerateResult{
			Results:  []ResultItem{{URL: "/a.png"}, {URL: "/b.png"}},
			Warnings: []string{"license warning"},
		})
	})

	recorder := httptest.NewRecorder()
	body := `{"mode": "studio_random", "count": 2, "prompt": "headshot"}`
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/avatars/generate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Items    []gallery.GalleryItem `json:"items"`
		Warnings []string              `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Len(t, response.Items, 2)
	require.Equal(t, []string{"license warning"}, response.Warnings)

	items := module.gallery.Items()
	require.Len(t, items, 2)
	require.Empty(t, items[0].ParentID, "generated avatars are root characters")
	require.Empty(t, items[0].ScenarioTag)
}

func TestHandleGenerateRejectsUnknownMode(t *testing.T) {
	_, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the service")
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/avatars/generate",
		strings.NewReader(`{"mode": "telepathy"}`)))

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleGenerateServiceFailureCommitsNothing(t *testing.T) {
	module, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/avatars/generate",
		strings.NewReader(`{"mode": "creative", "prompt": "x"}`)))

	require.Equal(t, http.StatusBadGateway, recorder.Code)
	require.Empty(t, module.gallery.Items(), "a failed generation must not insert partial results")
}

func TestHandleOutfitsPresetTagsAndLinksAtCommit(t *testing.T) {
	var received OutfitRequest
	module, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(OutfitResult{Results: []ResultItem{{URL: "/o.png"}}})
	})

	roots := module.gallery.AddBatch([]gallery.BatchResult{{URL: "/r.png"}}, gallery.ModeStudioRandom, "", "", "", nil)
	rootID := roots[0].ID

	recorder := httptest.NewRecorder()
	body := `{"reference_url": "/r.png", "parent_id": "` + rootID + `", "scenario_tag": "business"}`
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/avatars/outfits", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, outfitPresets["business"], received.OutfitPrompt, "preset builds the prompt")
	require.Equal(t, OutfitModeIdentity, received.GenerationMode)

	outfits := module.gallery.OutfitsOf(rootID)
	require.Len(t, outfits, 1)
	require.Equal(t, "business", outfits[0].ScenarioTag)
	require.Equal(t, rootID, outfits[0].ParentID)
}

func TestHandleOutfitsFreeTextBecomesCustom(t *testing.T) {
	module, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(OutfitResult{Results: []ResultItem{{URL: "/o.png"}}})
	})

	roots := module.gallery.AddBatch([]gallery.BatchResult{{URL: "/r.png"}}, gallery.ModeStudioRandom, "", "", "", nil)

	recorder := httptest.NewRecorder()
	body := `{"reference_url": "/r.png", "parent_id": "` + roots[0].ID + `", "outfit_prompt": "space suit"}`
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/avatars/outfits", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, recorder.Code)

	outfits := module.gallery.OutfitsOf(roots[0].ID)
	require.Len(t, outfits, 1)
	require.Equal(t, "custom", outfits[0].ScenarioTag)
}

func TestHandleOutfitsRequiresPromptOrPreset(t *testing.T) {
	_, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the service")
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/avatars/outfits",
		strings.NewReader(`{"reference_url": "/r.png"}`)))

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleStatus(t *testing.T) {
	_, router := newTestModule(t, func(w http.ResponseWriter, r *http.Request) {})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/avatars/status", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]bool
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.False(t, response["avatar_busy"])
	require.False(t, response["outfit_busy"])
}
