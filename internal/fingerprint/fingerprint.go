// Package fingerprint derives a short stable hash from the subset of
// listing fields that matter for change detection. Equal fingerprints mean
// "nothing changed" and let a re-crawl skip the write entirely.
//
// The field set, field order and the missing-field rule are a contract:
// changing any of them reclassifies every stored vehicle as changed on the
// next run. Bump Version when that happens so the event shows up in logs
// as a deliberate migration rather than an accident.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"dealersync/server/internal/models"
)

// Version identifies the current field-set contract.
const Version = 1

const maxImageFields = 3

// Compute returns the fingerprint for a raw listing. Pure and
// deterministic. Missing fields are omitted rather than serialized as
// empty strings, so two sparse listings do not collide on a run of
// separators.
func Compute(raw *models.RawListing) string {
	parts := make([]string, 0, 16)

	appendStr := func(name, v string) {
		if v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	appendInt := func(name string, v int) {
		if v != 0 {
			parts = append(parts, name+"="+strconv.Itoa(v))
		}
	}

	appendStr("title", raw.Title)
	appendInt("price", raw.Price)
	appendInt("year", raw.Year)
	appendStr("make", raw.Make)
	appendStr("model", raw.Model)
	appendInt("odometer", raw.Odometer)
	appendStr("vin", raw.VIN)
	appendStr("stock", raw.StockNumber)
	appendStr("transmission", raw.Transmission)
	appendStr("fuel", raw.FuelType)
	appendStr("body", raw.BodyType)
	appendStr("color", raw.Color)
	for i := 0; i < maxImageFields && i < len(raw.ImageURLs); i++ {
		appendStr("img"+strconv.Itoa(i), raw.ImageURLs[i])
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
