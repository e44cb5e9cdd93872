package models

import (
	"strconv"
	"strings"
	"time"
)

// Vendor lifecycle states for a canonical vehicle. Independent of the
// staff-controlled IsSold flag.
const (
	StatusActive   = "active"
	StatusUnlisted = "unlisted"
	StatusRemoved  = "removed"
)

// Vehicle is the canonical record for one vendor listing.
type Vehicle struct {
	ID                 int64     `json:"id"`
	VIN                string    `json:"vin"`
	Make               string    `json:"make"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	Price              int       `json:"price"`
	Odometer           int       `json:"odometer"`
	BodyType           string    `json:"body_type"`
	Color              string    `json:"color"`
	FuelType           string    `json:"fuel_type"`
	Transmission       string    `json:"transmission"`
	Drivetrain         string    `json:"drivetrain"`
	EngineSize         string    `json:"engine_size"`
	Cylinders          int       `json:"cylinders"`
	Description        string    `json:"description"`
	Images             []string  `json:"images"`
	VendorID           int64     `json:"vendor_id"`
	VendorName         string    `json:"vendor_name"`
	VendorStockNumber  string    `json:"vendor_stock_number"`
	LastSeenFromVendor time.Time `json:"last_seen_from_vendor"`
	VendorStatus       string    `json:"vendor_status"`
	IsSold             bool      `json:"is_sold"`
	Fingerprint        string    `json:"fingerprint"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsExternalImage reports whether an images entry still points at the
// vendor's own hosting. Migrated entries are opaque media-store object
// keys and carry no URL scheme.
func IsExternalImage(entry string) bool {
	return strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://")
}

// HasExternalImages reports whether at least one image has not been
// migrated to the media store yet.
func (v *Vehicle) HasExternalImages() bool {
	for _, img := range v.Images {
		if IsExternalImage(img) {
			return true
		}
	}
	return false
}

// Label is a short human-readable identifier used for job progress.
func (v *Vehicle) Label() string {
	parts := make([]string, 0, 3)
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	if v.Make != "" {
		parts = append(parts, v.Make)
	}
	if v.Model != "" {
		parts = append(parts, v.Model)
	}
	if len(parts) == 0 {
		return "vehicle"
	}
	return strings.Join(parts, " ")
}
