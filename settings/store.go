package settings

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"atelier_back/persist"
)

const (
	settingsKey         = "studio:avatar_settings"
	settingsSaveTimeout = 3 * time.Second
	settingsLoadTimeout = 3 * time.Second
)

// Store holds the current avatar settings in memory and mirrors every change
// into durable storage. The in-memory value is authoritative for the session:
// a persistence failure is logged and swallowed, never propagated.
type Store struct {
	mu      sync.Mutex
	persist persist.Store
	current AvatarSettings
}

// NewStore loads the persisted settings, applying defaults for a missing,
// empty, or malformed value.
func NewStore(p persist.Store) *Store {
	store := &Store{persist: p, current: defaultAvatarSettings()}

	if p == nil {
		return store
	}

	ctx, cancel := context.WithTimeout(context.Background(), settingsLoadTimeout)
	defer cancel()

	data, err := p.Load(ctx, settingsKey)
	if err != nil {
		log.Printf("settings: load persisted settings failed: %v", err)
		return store
	}
	if len(data) == 0 {
		return store
	}

	var loaded AvatarSettings
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("settings: malformed persisted settings, using defaults: %v", err)
		return store
	}

	if loaded.CheckpointSource != CheckpointSourceGlobal && loaded.CheckpointSource != CheckpointSourceRecommended {
		loaded.CheckpointSource = defaultAvatarSettings().CheckpointSource
	}
	if loaded.RecommendedCheckpointID == "" {
		loaded.RecommendedCheckpointID = defaultAvatarSettings().RecommendedCheckpointID
	}
	store.current = loaded
	return store
}

// Current returns a copy of the settings in effect right now. Callers thread
// this snapshot through a generation call instead of re-reading mid-flight.
func (s *Store) Current() AvatarSettings {
	if s == nil {
		return defaultAvatarSettings()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update replaces the settings and persists them immediately.
func (s *Store) Update(settings AvatarSettings) AvatarSettings {
	if s == nil {
		return settings
	}
	s.mu.Lock()
	s.current = settings
	snapshot := s.current
	s.mu.Unlock()

	s.flush(snapshot)
	return snapshot
}

func (s *Store) flush(snapshot AvatarSettings) {
	if s.persist == nil {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("settings: marshal settings failed: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), settingsSaveTimeout)
	defer cancel()

	if err := s.persist.Save(ctx, settingsKey, payload); err != nil {
		log.Printf("settings: persist settings failed: %v", err)
	}
}
