package gallery

import (
	"net/url"
	"strings"
)

// OutfitsOf derives the wardrobe of a root character from the flat collection,
// newest first. The parent link is authoritative; items persisted before parent
// linkage existed are picked up by the legacy reference-URL match, which only
// applies when the candidate carries no parent link at all.
func (s *Store) OutfitsOf(rootID string) []GalleryItem {
	if s == nil {
		return nil
	}

	root, ok := s.ItemByID(rootID)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var outfits []GalleryItem
	for _, item := range s.items {
		if item.ID == root.ID {
			continue
		}
		if item.ParentID != "" {
			if item.ParentID == root.ID {
				outfits = append(outfits, item)
			}
			continue
		}
		if s.legacyReferenceMatch(root, item) {
			outfits = append(outfits, item)
		}
	}
	return outfits
}

// legacyReferenceMatch is the compatibility shim for pre-linkage data: an
// unparented item whose reference image resolves to the root's own URL is
// treated as that root's outfit. New data always carries ParentID; delete this
// once legacy galleries are migrated.
func (s *Store) legacyReferenceMatch(root, candidate GalleryItem) bool {
	if candidate.ReferenceURL == "" {
		return false
	}
	return s.absoluteLocator(candidate.ReferenceURL) == s.absoluteLocator(root.URL)
}

// absoluteLocator normalizes a locator against the media base URL so that
// relative and absolute references to the same artifact compare equal.
func (s *Store) absoluteLocator(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.Contains(trimmed, "://") {
		if parsed, err := url.Parse(trimmed); err == nil {
			parsed.RawQuery = ""
			parsed.Fragment = ""
			return parsed.String()
		}
		return trimmed
	}
	if s.mediaBase == "" {
		return "/" + strings.TrimPrefix(trimmed, "/")
	}
	return s.mediaBase + "/" + strings.TrimPrefix(trimmed, "/")
}

// AvailableScenarioTags computes the filter facet for a root character: the
// catalog entries, in catalog order, actually present among its outfits.
func (s *Store) AvailableScenarioTags(rootID string) []ScenarioTag {
	outfits := s.OutfitsOf(rootID)
	if len(outfits) == 0 {
		return nil
	}

	present := make(map[string]struct{}, len(outfits))
	for _, outfit := range outfits {
		if outfit.ScenarioTag != "" {
			present[outfit.ScenarioTag] = struct{}{}
		}
	}

	var available []ScenarioTag
	for _, tag := range scenarioCatalog {
		if _, ok := present[tag.ID]; ok {
			available = append(available, tag)
		}
	}
	return available
}

// FilterByScenario returns the outfits matching the tag. The ScenarioAll
// sentinel (or an empty tag) matches everything.
func FilterByScenario(items []GalleryItem, tag string) []GalleryItem {
	if tag == "" || tag == ScenarioAll {
		return items
	}
	var filtered []GalleryItem
	for _, item := range items {
		if MatchesScenario(item, tag) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
