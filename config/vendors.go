package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"dealersync/server/internal/models"
)

var (
	vendorRegistry []models.VendorConfig
	vendorLock     sync.RWMutex
)

type vendorsFile struct {
	Vendors []models.VendorConfig `yaml:"vendors"`
}

// LoadVendors reads the vendor registry from file, validates it and fills
// zero-valued limits from the global configuration.
func LoadVendors(path string, cfg *Config) error {
	vendorLock.Lock()
	defer vendorLock.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to read vendors file: %v", err)
	}

	var parsed vendorsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse vendors file: %v", err)
	}

	seenIDs := make(map[int64]struct{})
	seenNames := make(map[string]struct{})
	for i := range parsed.Vendors {
		v := &parsed.Vendors[i]
		if v.ID <= 0 {
			return fmt.Errorf("vendor %q needs a positive id", v.Name)
		}
		if v.Name == "" {
			return fmt.Errorf("vendor %d needs a name", v.ID)
		}
		if _, dup := seenIDs[v.ID]; dup {
			return fmt.Errorf("duplicate vendor id %d", v.ID)
		}
		if _, dup := seenNames[strings.ToLower(v.Name)]; dup {
			return fmt.Errorf("duplicate vendor name %q", v.Name)
		}
		seenIDs[v.ID] = struct{}{}
		seenNames[strings.ToLower(v.Name)] = struct{}{}

		switch v.Source {
		case models.SourceHTML, models.SourceXML, models.SourceJSON:
		default:
			return fmt.Errorf("vendor %q has unknown source %q", v.Name, v.Source)
		}

		if cfg != nil {
			if v.DelayMS <= 0 {
				v.DelayMS = cfg.Crawl.DelayMS
			}
			if v.MaxPages <= 0 {
				v.MaxPages = cfg.Crawl.MaxPages
			}
			if v.GraceDays <= 0 {
				v.GraceDays = cfg.Crawl.GraceDays
			}
			if v.RemoveAfterDays == 0 {
				v.RemoveAfterDays = cfg.Crawl.RemoveAfterDays
			}
			if v.RemoveAfterDays < 0 {
				// Explicitly disabled: absent vehicles stay unlisted forever.
				v.RemoveAfterDays = 0
			}
			if v.MaxImages <= 0 {
				v.MaxImages = cfg.Images.MaxPerVehicle
			}
		}
	}

	vendorRegistry = parsed.Vendors
	return nil
}

// Vendors returns all configured vendors.
func Vendors() []models.VendorConfig {
	vendorLock.RLock()
	defer vendorLock.RUnlock()

	out := make([]models.VendorConfig, len(vendorRegistry))
	copy(out, vendorRegistry)
	return out
}

// EnabledVendors returns the vendors the scheduler crawls.
func EnabledVendors() []models.VendorConfig {
	vendorLock.RLock()
	defer vendorLock.RUnlock()

	var out []models.VendorConfig
	for _, v := range vendorRegistry {
		if v.Enabled {
			out = append(out, v)
		}
	}
	return out
}

// VendorByName returns a vendor by case-insensitive name, or nil.
func VendorByName(name string) *models.VendorConfig {
	vendorLock.RLock()
	defer vendorLock.RUnlock()

	for _, v := range vendorRegistry {
		if strings.EqualFold(v.Name, name) {
			out := v
			return &out
		}
	}
	return nil
}
