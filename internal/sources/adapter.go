// Package sources contains the per-vendor parsing logic that turns one
// fetched document into raw listings. Extraction rules are deliberately
// narrow and vendor-specific; everything behind the Adapter boundary
// normalizes into the same RawListing shape.
package sources

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"dealersync/server/internal/models"
	"dealersync/server/internal/normalize"
)

// Adapter parses one fetched document into zero or more raw listings. A
// malformed listing is skipped, never fatal for the whole document.
type Adapter interface {
	Parse(doc []byte, vendor *models.VendorConfig) ([]models.RawListing, error)
}

// LinkDiscoverer is implemented by adapters whose sources paginate over
// listing pages with per-listing detail links (HTML dealer templates).
type LinkDiscoverer interface {
	ListingLinks(doc []byte, vendor *models.VendorConfig) ([]string, error)
}

// ForVendor selects the adapter for a vendor configuration.
func ForVendor(vendor *models.VendorConfig) (Adapter, error) {
	switch vendor.Source {
	case models.SourceHTML:
		return NewHTMLAdapter()
	case models.SourceXML:
		return &XMLAdapter{}, nil
	case models.SourceJSON:
		return &JSONAdapter{}, nil
	default:
		return nil, fmt.Errorf("unknown vendor source %q", vendor.Source)
	}
}

var vinRe = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

// CleanVIN validates and canonicalizes a VIN. Returns "" for anything that
// is not a well-formed 17-character VIN; a bad VIN must not become an
// identity key.
func CleanVIN(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if vinRe.MatchString(v) {
		return v
	}
	return ""
}

// buildListing assembles a RawListing from extracted field strings,
// applying vocabulary normalization, vendor defaults and image filtering.
func buildListing(fields map[string]string, images []string, vendor *models.VendorConfig, sourceURL string) (models.RawListing, error) {
	get := func(name string) string {
		if v, ok := fields[name]; ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	withDefault := func(name, v string) string {
		if v == "" && vendor.Defaults != nil {
			return vendor.Defaults[name]
		}
		return v
	}

	raw := models.RawListing{
		VendorID:     vendor.ID,
		SourceURL:    sourceURL,
		Title:        get("title"),
		Make:         get("make"),
		Model:        get("model"),
		VIN:          CleanVIN(get("vin")),
		StockNumber:  get("stock_number"),
		EngineSize:   get("engine_size"),
		Description:  strings.TrimSpace(get("description")),
		BodyType:     normalize.BodyType(withDefault("body_type", get("body_type"))),
		Color:        normalize.Color(withDefault("color", get("color"))),
		FuelType:     normalize.FuelType(withDefault("fuel_type", get("fuel_type"))),
		Transmission: normalize.Transmission(withDefault("transmission", get("transmission"))),
		Drivetrain:   normalize.Drivetrain(withDefault("drivetrain", get("drivetrain"))),
		CapturedAt:   time.Now().UTC(),
	}

	if y := get("year"); y != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(y)); err == nil {
			raw.Year = n
		}
	}
	if c := get("cylinders"); c != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(c)); err == nil {
			raw.Cylinders = n
		}
	}
	raw.Price = normalize.Price(get("price"))
	raw.Odometer = normalize.Odometer(get("odometer"))
	raw.ImageURLs = FilterImages(images, vendor.MaxImages)

	if raw.Title == "" && raw.Make != "" {
		parts := make([]string, 0, 3)
		if raw.Year > 0 {
			parts = append(parts, strconv.Itoa(raw.Year))
		}
		parts = append(parts, raw.Make)
		if raw.Model != "" {
			parts = append(parts, raw.Model)
		}
		raw.Title = strings.Join(parts, " ")
	}

	// A listing we can neither identify nor describe is noise, not data.
	if raw.VIN == "" && (raw.Make == "" || raw.Model == "" || raw.Year == 0) {
		return raw, fmt.Errorf("listing at %s lacks VIN and make/model/year", sourceURL)
	}
	return raw, nil
}
