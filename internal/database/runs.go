package database

import (
	"database/sql"
	"fmt"
	"time"

	"dealersync/server/internal/models"
)

// InsertSyncRun appends one crawl attempt to the history. Rows are never
// mutated afterwards.
func (d *Database) InsertSyncRun(run *models.SyncRun) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO sync_runs
		(vendor_id, vendor_name, started_at, duration_ms, found, new,
		 updated, unlisted, removed, status, error_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.VendorID, run.VendorName, run.StartedAt,
		run.Duration.Milliseconds(), run.Found, run.New, run.Updated,
		run.Unlisted, run.Removed, run.Status, run.ErrorText,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sync run: %w", err)
	}
	return result.LastInsertId()
}

// SyncHistory returns recent runs, newest first. vendorID 0 means all
// vendors.
func (d *Database) SyncHistory(vendorID int64, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, vendor_id, vendor_name, started_at, duration_ms,
		       found, new, updated, unlisted, removed, status, error_text
		FROM sync_runs
	`
	var args []interface{}
	if vendorID > 0 {
		query += " WHERE vendor_id = ?"
		args = append(args, vendorID)
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var vendorName, errorText sql.NullString
		var durationMS int64
		err := rows.Scan(
			&run.ID, &run.VendorID, &vendorName, &run.StartedAt,
			&durationMS, &run.Found, &run.New, &run.Updated,
			&run.Unlisted, &run.Removed, &run.Status, &errorText,
		)
		if err != nil {
			return nil, err
		}
		run.VendorName = vendorName.String
		run.ErrorText = errorText.String
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
