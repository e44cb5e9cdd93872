package database

import (
	"database/sql"
	"fmt"
	"time"

	"dealersync/server/internal/models"
)

// CreateImageJob inserts the job row at batch start.
func (d *Database) CreateImageJob(job *models.ImageJob) error {
	_, err := d.db.Exec(`
		INSERT INTO image_jobs
		(id, vendor_name, status, total_vehicles, vehicles_processed,
		 images_uploaded, images_failed, current_vehicle, error_text,
		 started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID, job.VendorName, job.Status, job.TotalVehicles,
		job.VehiclesProcessed, job.ImagesUploaded, job.ImagesFailed,
		job.CurrentVehicle, job.ErrorText, job.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create image job: %w", err)
	}
	return nil
}

// UpdateImageJob writes the current progress counters. The owning batch
// run is the only writer for a job id; readers may poll at any time.
func (d *Database) UpdateImageJob(job *models.ImageJob) error {
	_, err := d.db.Exec(`
		UPDATE image_jobs SET
			status = ?, total_vehicles = ?, vehicles_processed = ?,
			images_uploaded = ?, images_failed = ?, current_vehicle = ?,
			error_text = ?, completed_at = ?
		WHERE id = ?
	`,
		job.Status, job.TotalVehicles, job.VehiclesProcessed,
		job.ImagesUploaded, job.ImagesFailed, job.CurrentVehicle,
		job.ErrorText, job.CompletedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update image job %s: %w", job.ID, err)
	}
	return nil
}

// FinalizeImageJob marks the job terminal.
func (d *Database) FinalizeImageJob(job *models.ImageJob, status string) error {
	now := time.Now().UTC()
	job.Status = status
	job.CurrentVehicle = ""
	job.CompletedAt = &now
	return d.UpdateImageJob(job)
}

// GetImageJob returns one job row, or nil when it does not exist.
func (d *Database) GetImageJob(id string) (*models.ImageJob, error) {
	row := d.db.QueryRow(`
		SELECT id, vendor_name, status, total_vehicles, vehicles_processed,
		       images_uploaded, images_failed, current_vehicle, error_text,
		       started_at, completed_at
		FROM image_jobs WHERE id = ?
	`, id)

	var job models.ImageJob
	var vendorName, currentVehicle, errorText sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&job.ID, &vendorName, &job.Status, &job.TotalVehicles,
		&job.VehiclesProcessed, &job.ImagesUploaded, &job.ImagesFailed,
		&currentVehicle, &errorText, &job.StartedAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image job %s: %w", id, err)
	}
	job.VendorName = vendorName.String
	job.CurrentVehicle = currentVehicle.String
	job.ErrorText = errorText.String
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
