// Package wine defines the canonical record model shared across subsystems.
package wine

// Record is the canonical shape every upstream variant is normalized into.
// Name is the only required field; a match without a resolvable name is
// dropped at construction time.
type Record struct {
	Name         string   `json:"name"`
	Winery       string   `json:"winery"`
	VintageYear  *int     `json:"vintage"`
	WineType     string   `json:"type"`
	Region       string   `json:"region"`
	RegionRaw    string   `json:"region_raw"`
	Rating       *float64 `json:"rating"`
	RatingsCount int      `json:"ratings_count"`
	Price        *string  `json:"price"`
	ImageURL     *string  `json:"image"`
	Grapes       *string  `json:"grape"`
	Description  *string  `json:"description"`
	ExternalURL  *string  `json:"vivino_url"`
}

// SearchResult is the response envelope returned to callers. On total
// failure Results is empty and Error/Details carry the per-strategy
// diagnostics.
type SearchResult struct {
	Query   string   `json:"query"`
	Results []Record `json:"results"`
	Count   int      `json:"count"`
	Source  string   `json:"source,omitempty"`
	Cached  bool     `json:"cached,omitempty"`
	Error   string   `json:"error,omitempty"`
	Details []string `json:"details,omitempty"`
}
