package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dealersync/server/internal/models"
)

func jsonVendor() *models.VendorConfig {
	return &models.VendorConfig{
		ID:       3,
		Name:     "API Dealer",
		Source:   models.SourceJSON,
		BaseURL:  "https://api.example.com",
		ItemPath: "data.vehicles",
		Rules: map[string]string{
			"title":      "name",
			"price":      "asking_price",
			"year":       "model_year",
			"make":       "brand",
			"model":      "model",
			"odometer":   "odometer_km",
			"vin":        "vin",
			"fuel_type":  "drivetrain.fuel",
			"images":     "photos",
			"source_url": "permalink",
		},
		Defaults: map[string]string{
			"fuel_type": "Gasoline",
		},
	}
}

const jsonFeed = `{
  "data": {
    "vehicles": [
      {
        "name": "2021 Honda Civic LX",
        "asking_price": 24995,
        "model_year": 2021,
        "brand": "Honda",
        "model": "Civic",
        "odometer_km": 42000,
        "vin": "2HGFC2F59MH000001",
        "drivetrain": {"fuel": "Essence"},
        "photos": ["https://cdn.example.com/civic-1.jpg", "https://cdn.example.com/civic-2.jpg"],
        "permalink": "https://dealer.example.com/vehicle/123"
      },
      {
        "name": "2019 Toyota Corolla",
        "model_year": 2019,
        "brand": "Toyota",
        "model": "Corolla"
      },
      {
        "name": "no identity"
      }
    ]
  }
}`

func TestJSONAdapterParse(t *testing.T) {
	adapter := &JSONAdapter{}

	listings, err := adapter.Parse([]byte(jsonFeed), jsonVendor())
	assert.NoError(t, err)
	assert.Len(t, listings, 2)

	civic := listings[0]
	assert.Equal(t, "2021 Honda Civic LX", civic.Title)
	assert.Equal(t, 24995, civic.Price)
	assert.Equal(t, 2021, civic.Year)
	assert.Equal(t, 42000, civic.Odometer)
	assert.Equal(t, "2HGFC2F59MH000001", civic.VIN)
	assert.Equal(t, "Gasoline", civic.FuelType) // normalized from "Essence"
	assert.Equal(t, "https://dealer.example.com/vehicle/123", civic.SourceURL)
	assert.Len(t, civic.ImageURLs, 2)

	// Missing fuel falls back to the vendor default.
	corolla := listings[1]
	assert.Equal(t, "Gasoline", corolla.FuelType)
}

func TestJSONAdapterBadPayload(t *testing.T) {
	adapter := &JSONAdapter{}

	_, err := adapter.Parse([]byte("not json"), jsonVendor())
	assert.Error(t, err)
}

func TestJSONAdapterWrongItemPath(t *testing.T) {
	adapter := &JSONAdapter{}
	vendor := jsonVendor()
	vendor.ItemPath = "data.nothing"

	_, err := adapter.Parse([]byte(jsonFeed), vendor)
	assert.Error(t, err)
}
