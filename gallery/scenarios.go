package gallery

// ScenarioAll is the filter sentinel matching every outfit.
const ScenarioAll = "all"

// ScenarioCategory splits the wardrobe taxonomy for display gating.
type ScenarioCategory string

const (
	ScenarioCategorySFW  ScenarioCategory = "sfw"
	ScenarioCategoryNSFW ScenarioCategory = "nsfw"
)

// ScenarioTag is one entry of the fixed wardrobe taxonomy.
type ScenarioTag struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Icon     string           `json:"icon"`
	Category ScenarioCategory `json:"category"`
}

// scenarioCatalog is ordered; the order is the display order of the filter bar.
var scenarioCatalog = []ScenarioTag{
	{ID: "business", Label: "Business", Icon: "briefcase", Category: ScenarioCategorySFW},
	{ID: "casual", Label: "Casual", Icon: "shirt", Category: ScenarioCategorySFW},
	{ID: "evening", Label: "Evening", Icon: "sparkles", Category: ScenarioCategorySFW},
	{ID: "sporty", Label: "Sporty", Icon: "dumbbell", Category: ScenarioCategorySFW},
	{ID: "beach", Label: "Beach", Icon: "sun", Category: ScenarioCategorySFW},
	{ID: "fantasy", Label: "Fantasy", Icon: "wand", Category: ScenarioCategorySFW},
	{ID: "lingerie", Label: "Lingerie", Icon: "heart", Category: ScenarioCategoryNSFW},
	{ID: "custom", Label: "Custom", Icon: "pencil", Category: ScenarioCategorySFW},
}

// ScenarioTags returns the ordered wardrobe taxonomy.
func ScenarioTags() []ScenarioTag {
	return append([]ScenarioTag(nil), scenarioCatalog...)
}

// ScenarioTagByID looks up display metadata for a tag id.
func ScenarioTagByID(id string) (ScenarioTag, bool) {
	for _, tag := range scenarioCatalog {
		if tag.ID == id {
			return tag, true
		}
	}
	return ScenarioTag{}, false
}

// MatchesScenario is the filter predicate over an item's scenario tag.
func MatchesScenario(item GalleryItem, tag string) bool {
	if tag == "" || tag == ScenarioAll {
		return true
	}
	return item.ScenarioTag == tag
}
