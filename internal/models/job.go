package models

import "time"

// Image job states. A job that ran to the end is completed even when every
// single upload failed; failed is reserved for a batch that could not
// execute at all.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// ImageJob tracks one image migration batch. Single writer per job id;
// readers may poll it at any point mid-run.
type ImageJob struct {
	ID                string     `json:"id"`
	VendorName        string     `json:"vendor_name"`
	Status            string     `json:"status"`
	TotalVehicles     int        `json:"total_vehicles"`
	VehiclesProcessed int        `json:"vehicles_processed"`
	ImagesUploaded    int        `json:"images_uploaded"`
	ImagesFailed      int        `json:"images_failed"`
	CurrentVehicle    string     `json:"current_vehicle"`
	ErrorText         string     `json:"error_text,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}
