package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"dealersync/server/internal/models"
	"dealersync/server/internal/retry"
)

const maxImageBytes = 20 << 20

// VehicleStore is the canonical-store surface the pipeline needs.
type VehicleStore interface {
	VehiclesNeedingImages(ids []int64, limit int) ([]models.Vehicle, error)
	UpdateVehicleImages(id int64, images []string) error
	CreateImageJob(job *models.ImageJob) error
	UpdateImageJob(job *models.ImageJob) error
	FinalizeImageJob(job *models.ImageJob, status string) error
}

// Pipeline migrates externally hosted vehicle images into the media
// store. Correctness rule: never lose a viewable image. An image whose
// upload fails after retries keeps its original external URL.
type Pipeline struct {
	store     VehicleStore
	media     Store
	client    *http.Client
	logger    *logrus.Logger
	policy    retry.Policy
	batchSize int
}

func NewPipeline(store VehicleStore, media Store, client *http.Client, policy retry.Policy, batchSize int, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Pipeline{
		store:     store,
		media:     media,
		client:    client,
		logger:    logger,
		policy:    policy,
		batchSize: batchSize,
	}
}

// NewBatch selects the batch and creates the pollable job row. The caller
// decides whether Process runs inline or in the background.
func (p *Pipeline) NewBatch(vehicleIDs []int64, batchSize int, vendorName string) (*models.ImageJob, []models.Vehicle, error) {
	if p.media == nil {
		return nil, nil, fmt.Errorf("media store is not configured")
	}
	if batchSize <= 0 {
		batchSize = p.batchSize
	}
	vehicles, err := p.store.VehiclesNeedingImages(vehicleIDs, batchSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select vehicles for image batch: %w", err)
	}

	job := &models.ImageJob{
		ID:            uuid.NewString(),
		VendorName:    vendorName,
		Status:        models.JobPending,
		TotalVehicles: len(vehicles),
		StartedAt:     time.Now().UTC(),
	}
	if err := p.store.CreateImageJob(job); err != nil {
		return nil, nil, err
	}
	return job, vehicles, nil
}

// ProcessBatch is the synchronous convenience used by the scheduler.
func (p *Pipeline) ProcessBatch(ctx context.Context, vehicleIDs []int64, batchSize int) (*models.ImageJob, error) {
	job, vehicles, err := p.NewBatch(vehicleIDs, batchSize, "")
	if err != nil {
		return nil, err
	}
	p.Process(ctx, job, vehicles)
	return job, nil
}

// Process runs the batch, updating the job row incrementally so it can be
// polled mid-run. The job ends completed even when every upload failed;
// failure is data. Only an aborted batch (context cancelled) finalizes as
// failed.
func (p *Pipeline) Process(ctx context.Context, job *models.ImageJob, vehicles []models.Vehicle) {
	job.Status = models.JobProcessing
	if err := p.store.UpdateImageJob(job); err != nil {
		p.logger.WithError(err).WithField("job", job.ID).Error("Failed to mark job processing")
	}

	var errs []string
	for i := range vehicles {
		v := &vehicles[i]

		if ctx.Err() != nil {
			job.ErrorText = fmt.Sprintf("batch aborted: %v", ctx.Err())
			if err := p.store.FinalizeImageJob(job, models.JobFailed); err != nil {
				p.logger.WithError(err).WithField("job", job.ID).Error("Failed to finalize job")
			}
			return
		}

		job.CurrentVehicle = v.Label()
		if err := p.store.UpdateImageJob(job); err != nil {
			p.logger.WithError(err).WithField("job", job.ID).Error("Failed to update job progress")
		}

		final, uploaded, failed := p.migrateVehicle(ctx, v)
		if uploaded > 0 {
			if err := p.store.UpdateVehicleImages(v.ID, final); err != nil {
				// The uploads stay in the media store; next batch will
				// retry this vehicle since its row still holds URLs.
				errs = append(errs, fmt.Sprintf("vehicle %d: %v", v.ID, err))
				failed += uploaded
				uploaded = 0
			}
		}

		job.VehiclesProcessed++
		job.ImagesUploaded += uploaded
		job.ImagesFailed += failed
		if err := p.store.UpdateImageJob(job); err != nil {
			p.logger.WithError(err).WithField("job", job.ID).Error("Failed to update job progress")
		}

		p.logger.WithFields(logrus.Fields{
			"job":      job.ID,
			"vehicle":  v.Label(),
			"uploaded": uploaded,
			"failed":   failed,
		}).Info("Processed vehicle images")
	}

	if len(errs) > 0 {
		job.ErrorText = strings.Join(errs, "; ")
	}
	if err := p.store.FinalizeImageJob(job, models.JobCompleted); err != nil {
		p.logger.WithError(err).WithField("job", job.ID).Error("Failed to finalize job")
	}
}

// migrateVehicle rewrites one vehicle's image list. Already-migrated keys
// pass through untouched; external URLs are uploaded concurrently and any
// failure keeps the original URL in place. Relative order is preserved.
func (p *Pipeline) migrateVehicle(ctx context.Context, v *models.Vehicle) (final []string, uploaded, failed int) {
	final = make([]string, len(v.Images))
	copy(final, v.Images)

	type outcome struct {
		index int
		key   string
		err   error
	}
	var wg sync.WaitGroup
	results := make(chan outcome, len(v.Images))

	for i, img := range v.Images {
		if !models.IsExternalImage(img) {
			continue
		}
		wg.Add(1)
		go func(index int, imageURL string) {
			defer wg.Done()
			key, err := p.migrateOne(ctx, v.ID, imageURL)
			results <- outcome{index: index, key: key, err: err}
		}(i, img)
	}
	wg.Wait()
	close(results)

	for out := range results {
		if out.err != nil {
			failed++
			p.logger.WithError(out.err).WithFields(logrus.Fields{
				"vehicle": v.ID,
				"image":   v.Images[out.index],
			}).Warn("Image kept on vendor hosting after failed migration")
			continue
		}
		final[out.index] = out.key
		uploaded++
	}
	return final, uploaded, failed
}

// migrateOne downloads one image and uploads it to the media store, with
// the shared retry policy wrapped around the whole attempt.
func (p *Pipeline) migrateOne(ctx context.Context, vehicleID int64, imageURL string) (string, error) {
	var key string
	err := p.policy.Do(ctx, func() error {
		data, contentType, err := p.download(ctx, imageURL)
		if err != nil {
			return err
		}
		k, err := p.media.Upload(ctx, objectKey(vehicleID, imageURL), bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			return err
		}
		key = k
		return nil
	})
	return key, err
}

func (p *Pipeline) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty response body")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// objectKey derives a stable media key from the source URL so a re-run
// overwrites rather than duplicates.
func objectKey(vehicleID int64, imageURL string) string {
	sum := sha1.Sum([]byte(imageURL))
	ext := ".jpg"
	if u, err := url.Parse(imageURL); err == nil {
		if e := strings.ToLower(path.Ext(u.Path)); e == ".png" || e == ".jpg" || e == ".jpeg" || e == ".webp" {
			ext = e
		}
	}
	return fmt.Sprintf("vehicles/%d/%s%s", vehicleID, hex.EncodeToString(sum[:])[:16], ext)
}
