package database

import (
	"errors"
	"fmt"
	"time"
)

// ErrRunInProgress means another run holds the vendor lock.
var ErrRunInProgress = errors.New("a sync run is already in progress for this vendor")

// Runs left locked longer than this are considered crashed and the lock
// is stolen.
const staleRunAfter = 2 * time.Hour

// TryBeginRun takes the per-vendor run lock. Overlapping runs for one
// vendor are not supported: two concurrent sweeps would unlist records
// the other just reinserted. The guarded upsert is a single statement, so
// two concurrent callers cannot both pass the in-progress check; a lock
// held longer than staleRunAfter belongs to a crashed run and is stolen.
func (d *Database) TryBeginRun(vendorID int64) error {
	now := time.Now().UTC()
	result, err := d.db.Exec(`
		INSERT INTO vendor_runs (vendor_id, in_progress, started_at)
		VALUES (?, 1, ?)
		ON CONFLICT(vendor_id) DO UPDATE
		SET in_progress = 1, started_at = excluded.started_at
		WHERE vendor_runs.in_progress = 0
		   OR vendor_runs.started_at IS NULL
		   OR vendor_runs.started_at < ?
	`, vendorID, now, now.Add(-staleRunAfter))
	if err != nil {
		return fmt.Errorf("failed to take vendor run lock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to take vendor run lock: %w", err)
	}
	if affected == 0 {
		return ErrRunInProgress
	}
	return nil
}

// EndRun releases the per-vendor run lock.
func (d *Database) EndRun(vendorID int64) error {
	_, err := d.db.Exec(`
		UPDATE vendor_runs SET in_progress = 0 WHERE vendor_id = ?
	`, vendorID)
	if err != nil {
		return fmt.Errorf("failed to release vendor run lock: %w", err)
	}
	return nil
}
