package sources

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"dealersync/server/internal/models"
)

// XMLAdapter walks a vendor feed document. Each vendor.ItemPath element is
// one listing; vendor.Rules maps listing fields to child element names.
// The images rule may name a repeated element.
type XMLAdapter struct{}

// Parse decodes every listing item in the feed. A malformed item is
// skipped; the rest of the feed still parses.
func (a *XMLAdapter) Parse(doc []byte, vendor *models.VendorConfig) ([]models.RawListing, error) {
	itemTag := vendor.ItemPath
	if itemTag == "" {
		return nil, fmt.Errorf("vendor %s: xml feed needs item_path", vendor.Name)
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	var listings []models.RawListing
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return listings, fmt.Errorf("decode feed: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != itemTag {
			continue
		}

		fields, repeats, err := decodeItem(dec, start)
		if err != nil {
			// Skip this item, keep walking the feed.
			continue
		}
		raw, err := fromFeedFields(fields, repeats, vendor)
		if err != nil {
			continue
		}
		listings = append(listings, raw)
	}
	return listings, nil
}

// decodeItem flattens one item element into name=>text, collecting every
// occurrence of repeated elements separately.
func decodeItem(dec *xml.Decoder, start xml.StartElement) (map[string]string, map[string][]string, error) {
	fields := make(map[string]string)
	repeats := make(map[string][]string)
	var current string
	var text strings.Builder
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			current = t.Name.Local
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			depth--
			if depth == 0 {
				break
			}
			value := strings.TrimSpace(text.String())
			if current == t.Name.Local && value != "" {
				if _, exists := fields[current]; !exists {
					fields[current] = value
				}
				repeats[current] = append(repeats[current], value)
			}
			text.Reset()
		}
	}
	return fields, repeats, nil
}

// fromFeedFields maps feed element names to RawListing fields through the
// vendor rules and builds the normalized listing.
func fromFeedFields(fields map[string]string, repeats map[string][]string, vendor *models.VendorConfig) (models.RawListing, error) {
	mapped := make(map[string]string, len(vendor.Rules))
	var images []string
	for field, name := range vendor.Rules {
		if field == "images" {
			images = append(images, repeats[name]...)
			continue
		}
		if v, ok := fields[name]; ok {
			mapped[field] = v
		}
	}
	sourceURL := mapped["source_url"]
	delete(mapped, "source_url")
	return buildListing(mapped, images, vendor, sourceURL)
}
