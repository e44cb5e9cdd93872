package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dealersync/server/config"
	"dealersync/server/internal/crawler"
	"dealersync/server/internal/database"
	"dealersync/server/internal/database/staging"
	"dealersync/server/internal/media"
)

type Handler struct {
	db           *database.Database
	staging      *staging.Store
	orchestrator *crawler.Orchestrator
	pipeline     *media.Pipeline
	logger       *logrus.Logger
}

type ImageBatchRequest struct {
	VehicleIDs []int64 `json:"vehicle_ids"`
	BatchSize  int     `json:"batch_size"`
}

func NewHandler(db *database.Database, stagingStore *staging.Store, orchestrator *crawler.Orchestrator, pipeline *media.Pipeline, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		db:           db,
		staging:      stagingStore,
		orchestrator: orchestrator,
		pipeline:     pipeline,
		logger:       logger,
	}
}

// RunVendorSync triggers a crawl for one vendor and blocks until the run
// completes. Re-invoking while a run is in progress answers 409; the run
// lock makes the trigger safe to re-fire.
func (h *Handler) RunVendorSync(c *gin.Context) {
	vendor := config.VendorByName(c.Param("vendor"))
	if vendor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown vendor"})
		return
	}

	run, err := h.orchestrator.Run(c.Request.Context(), vendor)
	if err != nil {
		if errors.Is(err, database.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Failed to run vendor sync")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run sync"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetSyncHistory returns recent runs, newest first.
func (h *Handler) GetSyncHistory(c *gin.Context) {
	var vendorID int64
	if name := c.Query("vendor"); name != "" {
		vendor := config.VendorByName(name)
		if vendor == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown vendor"})
			return
		}
		vendorID = vendor.ID
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	runs, err := h.db.SyncHistory(vendorID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get sync history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get sync history"})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// GetStagedListings returns the raw snapshot of the vendor's latest run.
func (h *Handler) GetStagedListings(c *gin.Context) {
	vendor := config.VendorByName(c.Param("vendor"))
	if vendor == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown vendor"})
		return
	}

	listings, err := h.staging.ForVendor(vendor.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get staged listings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get staged listings"})
		return
	}

	c.JSON(http.StatusOK, listings)
}

// ProcessImages starts an image migration batch in the background and
// returns the job id for polling.
func (h *Handler) ProcessImages(c *gin.Context) {
	var req ImageBatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.WithError(err).Error("Failed to parse image batch request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
			return
		}
	}

	job, vehicles, err := h.pipeline.NewBatch(req.VehicleIDs, req.BatchSize, "")
	if err != nil {
		h.logger.WithError(err).Error("Failed to start image batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go h.pipeline.Process(context.Background(), job, vehicles)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":         job.ID,
		"total_vehicles": job.TotalVehicles,
	})
}

// GetImageJob returns the pollable state of one image job.
func (h *Handler) GetImageJob(c *gin.Context) {
	job, err := h.db.GetImageJob(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get image job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get image job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListVehicles returns canonical records filtered by vendor and status.
func (h *Handler) ListVehicles(c *gin.Context) {
	var vendorID int64
	if name := c.Query("vendor"); name != "" {
		vendor := config.VendorByName(name)
		if vendor == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown vendor"})
			return
		}
		vendorID = vendor.ID
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	var sold *bool
	if raw := c.Query("sold"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sold filter"})
			return
		}
		sold = &parsed
	}

	vehicles, err := h.db.ListVehicles(vendorID, c.Query("status"), sold, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list vehicles")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list vehicles"})
		return
	}

	c.JSON(http.StatusOK, vehicles)
}

// GetVehicle returns one canonical record.
func (h *Handler) GetVehicle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle id"})
		return
	}

	vehicle, err := h.db.GetVehicle(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get vehicle")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get vehicle"})
		return
	}
	if vehicle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	c.JSON(http.StatusOK, vehicle)
}
