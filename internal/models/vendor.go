package models

// Vendor source kinds. Selects the source adapter at the orchestrator
// boundary.
const (
	SourceHTML = "html"
	SourceXML  = "xml"
	SourceJSON = "json"
)

// VendorConfig describes one upstream inventory source. Loaded from the
// vendor registry file; zero-valued limits fall back to global defaults.
type VendorConfig struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	Enabled      bool   `yaml:"enabled"`
	Source       string `yaml:"source"` // html, xml or json
	BaseURL      string `yaml:"base_url"`
	ListingPath  string `yaml:"listing_path"` // html: page template containing {page}; feeds: document path
	ItemsPerPage int    `yaml:"items_per_page"`
	MaxPages     int    `yaml:"max_pages"`
	DelayMS      int    `yaml:"delay_ms"`

	// LinkPattern accepts canonical detail-page paths; anything with a
	// query string is rejected regardless.
	LinkPattern string `yaml:"link_pattern"`

	// Rules maps RawListing fields to extraction expressions. For HTML
	// vendors the value is a regex with one capture group run against the
	// page body; for XML/JSON feeds it is the element/key name.
	Rules map[string]string `yaml:"rules"`

	// ItemPath is the feed element (XML) or array key (JSON) holding one
	// listing.
	ItemPath string `yaml:"item_path"`

	// Defaults fills fields the source never provides, e.g. fuel_type for
	// templates that only list gasoline vehicles. A source quirk kept
	// configurable on purpose.
	Defaults map[string]string `yaml:"defaults"`

	MaxImages       int `yaml:"max_images"`
	GraceDays       int `yaml:"grace_days"`
	RemoveAfterDays int `yaml:"remove_after_days"` // 0 leaves absent vehicles unlisted forever
}
