package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dealersync/server/internal/models"
)

const vehicleColumns = `
	id, vin, make, model, year, price, odometer, body_type, color,
	fuel_type, transmission, drivetrain, engine_size, cylinders,
	description, images, vendor_id, vendor_name, vendor_stock_number,
	last_seen_from_vendor, vendor_status, is_sold, fingerprint,
	created_at, updated_at`

func encodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeImages(data string) []string {
	if data == "" {
		return []string{}
	}
	var images []string
	if err := json.Unmarshal([]byte(data), &images); err != nil {
		return []string{}
	}
	return images
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	var v models.Vehicle
	var vin, makeName, model, bodyType, color, fuelType sql.NullString
	var transmission, drivetrain, engineSize, description sql.NullString
	var images, vendorName, stockNumber, fingerprint sql.NullString
	var year, price, odometer, cylinders sql.NullInt64
	var lastSeen, createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&v.ID,
		&vin,
		&makeName,
		&model,
		&year,
		&price,
		&odometer,
		&bodyType,
		&color,
		&fuelType,
		&transmission,
		&drivetrain,
		&engineSize,
		&cylinders,
		&description,
		&images,
		&v.VendorID,
		&vendorName,
		&stockNumber,
		&lastSeen,
		&v.VendorStatus,
		&v.IsSold,
		&fingerprint,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.VIN = vin.String
	v.Make = makeName.String
	v.Model = model.String
	v.BodyType = bodyType.String
	v.Color = color.String
	v.FuelType = fuelType.String
	v.Transmission = transmission.String
	v.Drivetrain = drivetrain.String
	v.EngineSize = engineSize.String
	v.Description = description.String
	v.VendorName = vendorName.String
	v.VendorStockNumber = stockNumber.String
	v.Fingerprint = fingerprint.String
	v.Year = int(year.Int64)
	v.Price = int(price.Int64)
	v.Odometer = int(odometer.Int64)
	v.Cylinders = int(cylinders.Int64)
	v.Images = decodeImages(images.String)
	if lastSeen.Valid {
		v.LastSeenFromVendor = lastSeen.Time
	}
	if createdAt.Valid {
		v.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		v.UpdatedAt = updatedAt.Time
	}
	return &v, nil
}

// InsertVehicle creates a canonical record for a first sighting.
func (d *Database) InsertVehicle(v *models.Vehicle) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO vehicles
		(vin, make, model, year, price, odometer, body_type, color,
		 fuel_type, transmission, drivetrain, engine_size, cylinders,
		 description, images, vendor_id, vendor_name, vendor_stock_number,
		 last_seen_from_vendor, vendor_status, is_sold, fingerprint,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.VIN, v.Make, v.Model, v.Year, v.Price, v.Odometer, v.BodyType,
		v.Color, v.FuelType, v.Transmission, v.Drivetrain, v.EngineSize,
		v.Cylinders, v.Description, encodeImages(v.Images), v.VendorID,
		v.VendorName, v.VendorStockNumber, v.LastSeenFromVendor,
		v.VendorStatus, v.IsSold, v.Fingerprint,
		time.Now().UTC(), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert vehicle: %w", err)
	}
	return result.LastInsertId()
}

// UpdateVehicleFromListing overwrites the mutable listing-derived fields
// of an existing record and forces it back to active.
func (d *Database) UpdateVehicleFromListing(id int64, v *models.Vehicle) error {
	_, err := d.db.Exec(`
		UPDATE vehicles SET
			vin = ?, make = ?, model = ?, year = ?, price = ?, odometer = ?,
			body_type = ?, color = ?, fuel_type = ?, transmission = ?,
			drivetrain = ?, engine_size = ?, cylinders = ?, description = ?,
			images = ?, vendor_stock_number = ?, last_seen_from_vendor = ?,
			vendor_status = ?, fingerprint = ?, updated_at = ?
		WHERE id = ?
	`,
		v.VIN, v.Make, v.Model, v.Year, v.Price, v.Odometer, v.BodyType,
		v.Color, v.FuelType, v.Transmission, v.Drivetrain, v.EngineSize,
		v.Cylinders, v.Description, encodeImages(v.Images),
		v.VendorStockNumber, v.LastSeenFromVendor, models.StatusActive,
		v.Fingerprint, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle %d: %w", id, err)
	}
	return nil
}

// SetVehicleStatus moves one record through the lifecycle, optionally
// refreshing the last-seen timestamp (reappearance after unlisting).
func (d *Database) SetVehicleStatus(id int64, status string, seenAt *time.Time) error {
	var err error
	if seenAt != nil {
		_, err = d.db.Exec(`
			UPDATE vehicles
			SET vendor_status = ?, last_seen_from_vendor = ?, updated_at = ?
			WHERE id = ?
		`, status, *seenAt, time.Now().UTC(), id)
	} else {
		_, err = d.db.Exec(`
			UPDATE vehicles SET vendor_status = ?, updated_at = ? WHERE id = ?
		`, status, time.Now().UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to set vehicle %d status to %s: %w", id, status, err)
	}
	return nil
}

// FindByVIN resolves a listing identity by exact VIN, scoped to a vendor.
// Returns nil when there is no match.
func (d *Database) FindByVIN(vendorID int64, vin string) (*models.Vehicle, error) {
	row := d.db.QueryRow(`
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE vendor_id = ? AND vin = ? AND vin != ''
		ORDER BY id LIMIT 1
	`, vendorID, vin)
	v, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle by vin: %w", err)
	}
	return v, nil
}

// FindByComposite is the VIN-less fallback identity: exact match on
// (make, model, year) scoped to a vendor. First match wins.
func (d *Database) FindByComposite(vendorID int64, make, model string, year int) (*models.Vehicle, error) {
	row := d.db.QueryRow(`
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE vendor_id = ?
		AND LOWER(make) = LOWER(?)
		AND LOWER(model) = LOWER(?)
		AND year = ?
		ORDER BY id LIMIT 1
	`, vendorID, make, model, year)
	v, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicle by composite key: %w", err)
	}
	return v, nil
}

// VehiclesForVendor returns the vendor's live records (active or
// unlisted, not sold) for the absence sweep. Sold inventory is excluded
// from reconciliation entirely.
func (d *Database) VehiclesForVendor(vendorID int64) ([]models.Vehicle, error) {
	rows, err := d.db.Query(`
		SELECT `+vehicleColumns+`
		FROM vehicles
		WHERE vendor_id = ?
		AND is_sold = 0
		AND vendor_status IN (?, ?)
	`, vendorID, models.StatusActive, models.StatusUnlisted)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

// GetVehicle returns one record, or nil when it does not exist.
func (d *Database) GetVehicle(id int64) (*models.Vehicle, error) {
	row := d.db.QueryRow(`SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle %d: %w", id, err)
	}
	return v, nil
}

// ListVehicles returns records filtered by vendor, status and sold flag
// for the read API. Zero values and nil match everything.
func (d *Database) ListVehicles(vendorID int64, status string, sold *bool, limit int) ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE 1=1`
	var args []interface{}
	if vendorID > 0 {
		query += " AND vendor_id = ?"
		args = append(args, vendorID)
	}
	if status != "" {
		query += " AND vendor_status = ?"
		args = append(args, status)
	}
	if sold != nil {
		query += " AND is_sold = ?"
		args = append(args, *sold)
	}
	query += " ORDER BY updated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

// VehiclesNeedingImages selects records whose images still contain
// externally hosted URLs. When ids are given only those records are
// considered; otherwise up to limit candidates are returned.
func (d *Database) VehiclesNeedingImages(ids []int64, limit int) ([]models.Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE images LIKE '%http%'
	`
	var args []interface{}
	if len(ids) > 0 {
		query += " AND id IN (?" // expanded below
		args = append(args, ids[0])
		for _, id := range ids[1:] {
			query += ",?"
			args = append(args, id)
		}
		query += ")"
	}
	query += " ORDER BY id"
	if limit > 0 && len(ids) == 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles needing images: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		// LIKE '%http%' is a coarse prefilter; confirm in Go.
		if v.HasExternalImages() {
			vehicles = append(vehicles, *v)
		}
	}
	return vehicles, rows.Err()
}

// UpdateVehicleImages rewrites the images list after a migration batch.
func (d *Database) UpdateVehicleImages(id int64, images []string) error {
	_, err := d.db.Exec(`
		UPDATE vehicles SET images = ?, updated_at = ? WHERE id = ?
	`, encodeImages(images), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update vehicle %d images: %w", id, err)
	}
	return nil
}
