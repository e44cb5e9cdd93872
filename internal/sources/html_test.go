package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dealersync/server/internal/models"
)

func htmlVendor() *models.VendorConfig {
	return &models.VendorConfig{
		ID:          1,
		Name:        "Test Dealer",
		Source:      models.SourceHTML,
		BaseURL:     "https://dealer.example.com",
		ListingPath: "/inventory?page={page}",
		LinkPattern: `^/vehicle/`,
		Rules: map[string]string{
			"title":    `<h1 class="vehicle-title">([^<]+)</h1>`,
			"price":    `<span class="price">([^<]+)</span>`,
			"year":     `<dt>Year</dt>\s*<dd>([^<]+)</dd>`,
			"make":     `<dt>Make</dt>\s*<dd>([^<]+)</dd>`,
			"model":    `<dt>Model</dt>\s*<dd>([^<]+)</dd>`,
			"odometer": `<dt>Odometer</dt>\s*<dd>([^<]+)</dd>`,
			"vin":      `<dt>VIN</dt>\s*<dd>([^<]+)</dd>`,
		},
	}
}

const detailPage = `<html><body>
<h1 class="vehicle-title">2021 Honda Civic LX</h1>
<span class="price">$24,995</span>
<dl>
<dt>Year</dt><dd>2021</dd>
<dt>Make</dt><dd>Honda</dd>
<dt>Model</dt><dd>Civic</dd>
<dt>Odometer</dt><dd>42,000 km</dd>
<dt>VIN</dt><dd>2HGFC2F59MH000001</dd>
</dl>
<img src="/photos/civic-front.jpg">
<img data-src="https://cdn.example.com/civic-side.jpg" src="/assets/placeholder.jpg">
<img src="/assets/logo.png">
</body></html>`

func TestHTMLAdapterParseDetail(t *testing.T) {
	adapter, err := NewHTMLAdapter()
	assert.NoError(t, err)

	listings, err := adapter.ParseDetail([]byte(detailPage), htmlVendor(), "https://dealer.example.com/vehicle/123")
	assert.NoError(t, err)
	assert.Len(t, listings, 1)

	l := listings[0]
	assert.Equal(t, "2021 Honda Civic LX", l.Title)
	assert.Equal(t, 24995, l.Price)
	assert.Equal(t, 2021, l.Year)
	assert.Equal(t, "Honda", l.Make)
	assert.Equal(t, "Civic", l.Model)
	assert.Equal(t, 42000, l.Odometer)
	assert.Equal(t, "2HGFC2F59MH000001", l.VIN)
	assert.Equal(t, "https://dealer.example.com/vehicle/123", l.SourceURL)
	assert.Equal(t, []string{
		"https://dealer.example.com/photos/civic-front.jpg",
		"https://cdn.example.com/civic-side.jpg",
	}, l.ImageURLs)
}

func TestHTMLAdapterParseUnidentifiablePage(t *testing.T) {
	adapter, err := NewHTMLAdapter()
	assert.NoError(t, err)

	_, err = adapter.Parse([]byte("<html><body><p>404</p></body></html>"), htmlVendor())
	assert.Error(t, err)
}

func TestHTMLAdapterParseBadRule(t *testing.T) {
	adapter, err := NewHTMLAdapter()
	assert.NoError(t, err)

	vendor := htmlVendor()
	vendor.Rules["title"] = `([unclosed`
	_, err = adapter.Parse([]byte(detailPage), vendor)
	assert.Error(t, err)
}

func TestHTMLAdapterListingLinks(t *testing.T) {
	adapter, err := NewHTMLAdapter()
	assert.NoError(t, err)

	page := `<html><body>
<a href="/vehicle/123">Civic</a>
<a href="/vehicle/123">Civic again</a>
<a href="/vehicle/456#photos">Corolla</a>
<a href="/vehicle/789?sort=price">Sorted duplicate</a>
<a href="https://other.example.com/vehicle/999">Off host</a>
<a href="/about-us">About</a>
<a href="#top">Top</a>
<a href="javascript:void(0)">Menu</a>
</body></html>`

	links, err := adapter.ListingLinks([]byte(page), htmlVendor())
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"https://dealer.example.com/vehicle/123",
		"https://dealer.example.com/vehicle/456",
	}, links)
}
