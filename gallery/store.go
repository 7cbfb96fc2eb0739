package gallery

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"atelier_back/persist"
	"github.com/google/uuid"
)

const (
	galleryKey          = "studio:gallery"
	defaultMaxItems     = 200
	galleryFlushTimeout = 5 * time.Second
)

// Store is the single source of truth for all gallery items. The in-memory
// collection is authoritative for the session; every mutation schedules an
// asynchronous flush of the full collection into durable storage, and a flush
// failure is logged and swallowed rather than rolled back.
//
// Items are kept newest-first. The collection is capped at maxItems; inserting
// past the cap evicts the oldest items.
type Store struct {
	mu        sync.Mutex
	items     []GalleryItem
	maxItems  int
	mediaBase string
	persist   persist.Store
	flushCh   chan struct{}
}

// NewStoreFromEnv loads the persisted collection and starts the background
// flusher. A missing, empty, or malformed persisted value yields an empty
// collection, never an error.
func NewStoreFromEnv(p persist.Store) *Store {
	maxItems := defaultMaxItems
	if raw := strings.TrimSpace(os.Getenv("GALLERY_MAX_ITEMS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxItems = parsed
		}
	}

	store := newStore(p, maxItems, strings.TrimSpace(os.Getenv("STUDIO_MEDIA_BASE_URL")))
	store.load()
	return store
}

func newStore(p persist.Store, maxItems int, mediaBase string) *Store {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	store := &Store{
		maxItems:  maxItems,
		mediaBase: strings.TrimSuffix(mediaBase, "/"),
		persist:   p,
		flushCh:   make(chan struct{}, 1),
	}
	go store.flushLoop()
	return store
}

func (s *Store) load() {
	if s.persist == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), galleryFlushTimeout)
	defer cancel()

	data, err := s.persist.Load(ctx, galleryKey)
	if err != nil {
		log.Printf("gallery: load persisted collection failed: %v", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var items []GalleryItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.Printf("gallery: malformed persisted collection, starting empty: %v", err)
		return
	}

	if len(items) > s.maxItems {
		items = items[:s.maxItems]
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// Items returns a copy of the collection, newest first.
func (s *Store) Items() []GalleryItem {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GalleryItem(nil), s.items...)
}

// ItemByID returns the item with the given id.
func (s *Store) ItemByID(id string) (GalleryItem, bool) {
	if s == nil {
		return GalleryItem{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return GalleryItem{}, false
}

// AddBatch commits the results of one generation call. Each result becomes a
// fresh GalleryItem sharing a batch id; the batch is prepended and the
// collection truncated to the capacity. The created items are returned newest
// first.
//
// A scenario tag is only meaningful on outfits, so it is dropped unless the
// batch links to a parent character.
func (s *Store) AddBatch(results []BatchResult, mode GenerationMode, prompt, referenceURL, scenarioTag string, extra *BatchExtra) []GalleryItem {
	if s == nil || len(results) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batchID := uuid.NewString()

	parentID := ""
	var nsfw *bool
	vibeTag := ""
	if extra != nil {
		parentID = strings.TrimSpace(extra.ParentID)
		nsfw = extra.NSFW
		vibeTag = strings.TrimSpace(extra.VibeTag)
	}
	if parentID == "" {
		scenarioTag = ""
	}

	created := make([]GalleryItem, 0, len(results))
	for _, result := range results {
		item := GalleryItem{
			ID:           uuid.NewString(),
			URL:          result.URL,
			Seed:         result.Seed,
			Prompt:       strings.TrimSpace(prompt),
			Mode:         mode,
			ReferenceURL: strings.TrimSpace(referenceURL),
			CreatedAt:    now,
			ScenarioTag:  scenarioTag,
			NSFW:         nsfw,
			ParentID:     parentID,
			BatchID:      batchID,
		}
		if vibeTag != "" {
			item.Tags = []string{vibeTag}
		}
		created = append(created, item)
	}

	s.mu.Lock()
	s.items = append(append([]GalleryItem(nil), created...), s.items...)
	if len(s.items) > s.maxItems {
		s.items = s.items[:s.maxItems]
	}
	s.mu.Unlock()

	s.requestFlush()
	return created
}

// RemoveItem deletes exactly one item. Removing an absent id is a no-op.
func (s *Store) RemoveItem(id string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	changed := false
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			changed = true
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.requestFlush()
	}
}

// ClearAll empties the collection unconditionally.
func (s *Store) ClearAll() {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	s.requestFlush()
}

// TagItem merges the given tags into the item's tag set, dropping duplicates
// and blanks. Unknown ids are a no-op.
func (s *Store) TagItem(id string, tags []string) {
	if s == nil || len(tags) == 0 {
		return
	}

	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		merged := s.items[i].Tags
		seen := make(map[string]struct{}, len(merged))
		for _, existing := range merged {
			seen[strings.ToLower(existing)] = struct{}{}
		}
		for _, tag := range tags {
			trimmed := strings.TrimSpace(tag)
			if trimmed == "" {
				continue
			}
			key := strings.ToLower(trimmed)
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, trimmed)
			changed = true
		}
		s.items[i].Tags = merged
		break
	}
	s.mu.Unlock()

	if changed {
		s.requestFlush()
	}
}

// LinkToPersona marks the item as promoted to a persona project's avatar.
func (s *Store) LinkToPersona(id, personaProjectID string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	changed := false
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].PersonaProjectID = strings.TrimSpace(personaProjectID)
			changed = true
			break
		}
	}
	s.mu.Unlock()

	if changed {
		s.requestFlush()
	}
}

// requestFlush schedules a background flush. The channel holds one pending
// signal; the flusher always writes the latest snapshot, so coalescing
// back-to-back mutations is fine.
func (s *Store) requestFlush() {
	if s.persist == nil {
		return
	}
	select {
	case s.flushCh <- struct{}{}:
	default:
	}
}

func (s *Store) flushLoop() {
	for range s.flushCh {
		s.flushNow()
	}
}

func (s *Store) flushNow() {
	if s.persist == nil {
		return
	}

	s.mu.Lock()
	snapshot := append([]GalleryItem(nil), s.items...)
	s.mu.Unlock()

	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("gallery: marshal collection failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), galleryFlushTimeout)
	defer cancel()

	if err := s.persist.Save(ctx, galleryKey, payload); err != nil {
		log.Printf("gallery: persist collection failed: %v", err)
	}
}
