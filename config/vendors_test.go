package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"dealersync/server/internal/models"
)

func writeVendorsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vendors.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig() *Config {
	cfg := &Config{}
	cfg.Crawl.DelayMS = 1000
	cfg.Crawl.MaxPages = 50
	cfg.Crawl.GraceDays = 3
	cfg.Crawl.RemoveAfterDays = 7
	cfg.Images.MaxPerVehicle = 15
	return cfg
}

const validVendors = `
vendors:
  - id: 1
    name: "Dealer One"
    enabled: true
    source: html
    base_url: "https://one.example.com"
    listing_path: "/inventory?page={page}"
    link_pattern: "^/vehicle/"
    delay_ms: 2000
  - id: 2
    name: "Dealer Two"
    enabled: false
    source: json
    base_url: "https://two.example.com"
    listing_path: "/api/inventory"
    item_path: "vehicles"
    remove_after_days: -1
`

func TestLoadVendors(t *testing.T) {
	path := writeVendorsFile(t, validVendors)
	assert.NoError(t, LoadVendors(path, testConfig()))

	vendors := Vendors()
	assert.Len(t, vendors, 2)

	one := VendorByName("dealer one")
	assert.NotNil(t, one)
	assert.Equal(t, int64(1), one.ID)
	assert.Equal(t, 2000, one.DelayMS) // explicit value kept
	assert.Equal(t, 50, one.MaxPages)  // zero filled from global default
	assert.Equal(t, 3, one.GraceDays)
	assert.Equal(t, 7, one.RemoveAfterDays)
	assert.Equal(t, 15, one.MaxImages)

	two := VendorByName("Dealer Two")
	assert.NotNil(t, two)
	assert.Equal(t, 1000, two.DelayMS)
	// Negative means removal explicitly disabled, not the global default.
	assert.Equal(t, 0, two.RemoveAfterDays)

	enabled := EnabledVendors()
	assert.Len(t, enabled, 1)
	assert.Equal(t, "Dealer One", enabled[0].Name)

	assert.Nil(t, VendorByName("Dealer Three"))
}

func TestLoadVendorsValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "duplicate id",
			content: `
vendors:
  - {id: 1, name: "A", source: html}
  - {id: 1, name: "B", source: html}
`,
		},
		{
			name: "duplicate name",
			content: `
vendors:
  - {id: 1, name: "Same", source: html}
  - {id: 2, name: "same", source: html}
`,
		},
		{
			name: "missing id",
			content: `
vendors:
  - {name: "A", source: html}
`,
		},
		{
			name: "missing name",
			content: `
vendors:
  - {id: 1, source: html}
`,
		},
		{
			name: "unknown source",
			content: `
vendors:
  - {id: 1, name: "A", source: csv}
`,
		},
		{
			name:    "not yaml",
			content: `{{{`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeVendorsFile(t, tt.content)
			assert.Error(t, LoadVendors(path, testConfig()))
		})
	}
}

func TestLoadVendorsMissingFile(t *testing.T) {
	assert.Error(t, LoadVendors(filepath.Join(t.TempDir(), "nope.yaml"), testConfig()))
}

func TestLoadVendorsKeepsRegistryOnFailure(t *testing.T) {
	path := writeVendorsFile(t, validVendors)
	assert.NoError(t, LoadVendors(path, testConfig()))
	assert.Len(t, Vendors(), 2)

	bad := writeVendorsFile(t, `vendors: [{id: 1, name: "A", source: csv}]`)
	assert.Error(t, LoadVendors(bad, testConfig()))
	assert.Len(t, Vendors(), 2)
}

func TestVendorByNameReturnsCopy(t *testing.T) {
	path := writeVendorsFile(t, validVendors)
	assert.NoError(t, LoadVendors(path, testConfig()))

	v := VendorByName("Dealer One")
	v.Source = models.SourceJSON

	again := VendorByName("Dealer One")
	assert.Equal(t, models.SourceHTML, again.Source)
}
