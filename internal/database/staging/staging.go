// Package staging keeps a copy of the latest crawl's raw listings per
// vendor. The canonical store never depends on it; it exists so staff can
// diff what a vendor currently publishes against what reconciliation did
// with it.
package staging

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dealersync/server/internal/models"
)

// Listing is one staged raw listing row.
type Listing struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	VendorID    int64     `gorm:"index" json:"vendor_id"`
	SourceURL   string    `json:"source_url"`
	Title       string    `json:"title"`
	Make        string    `json:"make"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Price       int       `json:"price"`
	Odometer    int       `json:"odometer"`
	VIN         string    `gorm:"column:vin" json:"vin"`
	StockNumber string    `json:"stock_number"`
	Fingerprint string    `json:"fingerprint"`
	ImagesJSON  string    `gorm:"column:images" json:"-"`
	CapturedAt  time.Time `json:"captured_at"`
}

func (Listing) TableName() string {
	return "staging_listings"
}

// Images decodes the staged image URL list.
func (l *Listing) Images() []string {
	var images []string
	if err := json.Unmarshal([]byte(l.ImagesJSON), &images); err != nil {
		return nil
	}
	return images
}

type Store struct {
	db *gorm.DB
}

// Open connects the staging store to the same sqlite file as the
// canonical store and migrates its table.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open staging store: %w", err)
	}
	if err := db.AutoMigrate(&Listing{}); err != nil {
		return nil, fmt.Errorf("failed to migrate staging table: %w", err)
	}
	return &Store{db: db}, nil
}

// ReplaceRun atomically swaps the vendor's staged listings for the current
// run's output.
func (s *Store) ReplaceRun(vendorID int64, listings []models.RawListing, fingerprints []string) error {
	rows := make([]Listing, 0, len(listings))
	for i, raw := range listings {
		fp := ""
		if i < len(fingerprints) {
			fp = fingerprints[i]
		}
		imagesJSON, _ := json.Marshal(raw.ImageURLs)
		rows = append(rows, Listing{
			VendorID:    vendorID,
			SourceURL:   raw.SourceURL,
			Title:       raw.Title,
			Make:        raw.Make,
			Model:       raw.Model,
			Year:        raw.Year,
			Price:       raw.Price,
			Odometer:    raw.Odometer,
			VIN:         raw.VIN,
			StockNumber: raw.StockNumber,
			Fingerprint: fp,
			ImagesJSON:  string(imagesJSON),
			CapturedAt:  raw.CapturedAt,
		})
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vendor_id = ?", vendorID).Delete(&Listing{}).Error; err != nil {
			return fmt.Errorf("failed to clear staged listings: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to stage listings: %w", err)
		}
		return nil
	})
}

// ForVendor returns the staged listings of the vendor's latest run.
func (s *Store) ForVendor(vendorID int64) ([]Listing, error) {
	var rows []Listing
	err := s.db.Where("vendor_id = ?", vendorID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load staged listings: %w", err)
	}
	return rows, nil
}
