package models

import "time"

// RawListing is one listing as extracted from a vendor document. It lives
// for the duration of a crawl run; the staging table keeps a copy of the
// latest run for delta reporting.
type RawListing struct {
	VendorID     int64     `json:"vendor_id"`
	SourceURL    string    `json:"source_url"`
	Title        string    `json:"title"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	Price        int       `json:"price"`
	Odometer     int       `json:"odometer"` // kilometres after normalization
	VIN          string    `json:"vin"`
	StockNumber  string    `json:"stock_number"`
	BodyType     string    `json:"body_type"`
	Color        string    `json:"color"`
	FuelType     string    `json:"fuel_type"`
	Transmission string    `json:"transmission"`
	Drivetrain   string    `json:"drivetrain"`
	EngineSize   string    `json:"engine_size"`
	Cylinders    int       `json:"cylinders"`
	Description  string    `json:"description"`
	ImageURLs    []string  `json:"image_urls"`
	CapturedAt   time.Time `json:"captured_at"`
}
