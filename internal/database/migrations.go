package database

import "fmt"

func (d *Database) RunMigrations() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS vehicles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vin TEXT,
			make TEXT,
			model TEXT,
			year INTEGER,
			price INTEGER,
			odometer INTEGER,
			body_type TEXT,
			color TEXT,
			fuel_type TEXT,
			transmission TEXT,
			drivetrain TEXT,
			engine_size TEXT,
			cylinders INTEGER,
			description TEXT,
			images TEXT,
			vendor_id INTEGER NOT NULL,
			vendor_name TEXT,
			vendor_stock_number TEXT,
			last_seen_from_vendor TIMESTAMP,
			vendor_status TEXT NOT NULL DEFAULT 'active',
			is_sold BOOLEAN NOT NULL DEFAULT 0,
			fingerprint TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create vehicles table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_vehicles_vendor_vin
		ON vehicles(vendor_id, vin);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_vehicles_vendor_status
		ON vehicles(vendor_id, vendor_status);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			vendor_id INTEGER NOT NULL,
			vendor_name TEXT,
			started_at TIMESTAMP NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			found INTEGER NOT NULL DEFAULT 0,
			new INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			unlisted INTEGER NOT NULL DEFAULT 0,
			removed INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_text TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sync_runs table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS image_jobs (
			id TEXT PRIMARY KEY,
			vendor_name TEXT,
			status TEXT NOT NULL,
			total_vehicles INTEGER NOT NULL DEFAULT 0,
			vehicles_processed INTEGER NOT NULL DEFAULT 0,
			images_uploaded INTEGER NOT NULL DEFAULT 0,
			images_failed INTEGER NOT NULL DEFAULT 0,
			current_vehicle TEXT,
			error_text TEXT,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create image_jobs table: %v", err)
	}

	// One row per vendor; in_progress keeps two overlapping runs for the
	// same vendor from independently unlisting each other's writes.
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS vendor_runs (
			vendor_id INTEGER PRIMARY KEY,
			in_progress BOOLEAN NOT NULL DEFAULT 0,
			started_at TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create vendor_runs table: %v", err)
	}

	return nil
}
