package sources

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dealersync/server/internal/models"
)

// JSONAdapter maps vendor API payloads directly onto listing fields.
// vendor.ItemPath is a dotted path to the listings array; vendor.Rules
// maps listing fields to (dotted) object keys.
type JSONAdapter struct{}

// Parse extracts every listing in the payload, skipping malformed entries.
func (a *JSONAdapter) Parse(doc []byte, vendor *models.VendorConfig) ([]models.RawListing, error) {
	var root any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	items, err := itemsAt(root, vendor.ItemPath)
	if err != nil {
		return nil, fmt.Errorf("vendor %s: %w", vendor.Name, err)
	}

	var listings []models.RawListing
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		raw, err := fromJSONItem(obj, vendor)
		if err != nil {
			continue
		}
		listings = append(listings, raw)
	}
	return listings, nil
}

func itemsAt(root any, path string) ([]any, error) {
	node := root
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("path %q does not resolve to an object", path)
			}
			node = obj[key]
		}
	}
	items, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("path %q does not resolve to an array", path)
	}
	return items, nil
}

func valueAt(obj map[string]any, path string) any {
	keys := strings.Split(path, ".")
	var node any = obj
	for _, key := range keys {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = m[key]
	}
	return node
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func fromJSONItem(obj map[string]any, vendor *models.VendorConfig) (models.RawListing, error) {
	fields := make(map[string]string, len(vendor.Rules))
	var images []string
	for field, key := range vendor.Rules {
		v := valueAt(obj, key)
		if v == nil {
			continue
		}
		if field == "images" {
			switch t := v.(type) {
			case []any:
				for _, e := range t {
					if s := asString(e); s != "" {
						images = append(images, s)
					}
				}
			case string:
				for _, s := range strings.Split(t, ",") {
					images = append(images, strings.TrimSpace(s))
				}
			}
			continue
		}
		if s := asString(v); s != "" {
			fields[field] = s
		}
	}
	sourceURL := fields["source_url"]
	delete(fields, "source_url")
	return buildListing(fields, images, vendor, sourceURL)
}
