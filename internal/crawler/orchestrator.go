// Package crawler drives one vendor sync end to end: paginate the source
// politely, parse listings with the vendor's adapter, hand the snapshot to
// the reconciliation engine, and record exactly one sync run row for the
// attempt.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"dealersync/server/internal/fingerprint"
	"dealersync/server/internal/models"
	"dealersync/server/internal/reconcile"
	"dealersync/server/internal/sources"
)

const (
	defaultDelayMS  = 1000
	defaultMaxPages = 50
	maxPageBytes    = 10 << 20
	userAgent       = "dealersync/1.0"
)

// RunStore is the canonical-store surface the orchestrator needs on top
// of reconciliation: the per-vendor run lock and the append-only run log.
type RunStore interface {
	reconcile.Store
	TryBeginRun(vendorID int64) error
	EndRun(vendorID int64) error
	InsertSyncRun(run *models.SyncRun) (int64, error)
}

// Stager receives the raw snapshot of each run for delta reporting.
// Staging failures are logged, never fatal for the run.
type Stager interface {
	ReplaceRun(vendorID int64, listings []models.RawListing, fingerprints []string) error
}

// Notifier is told about runs worth a human's attention.
type Notifier interface {
	NotifySyncRun(run *models.SyncRun) error
}

type Orchestrator struct {
	store    RunStore
	engine   *reconcile.Engine
	stager   Stager   // optional
	notifier Notifier // optional
	client   *http.Client
	logger   *logrus.Logger
}

func NewOrchestrator(store RunStore, stager Stager, notifier Notifier, client *http.Client, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Orchestrator{
		store:    store,
		engine:   reconcile.NewEngine(store, logger),
		stager:   stager,
		notifier: notifier,
		client:   client,
		logger:   logger,
	}
}

// Run crawls one vendor and reconciles the result. It returns the sync
// run row it recorded; the error is non-nil only when the run could not
// start at all (lock held, unknown adapter).
func (o *Orchestrator) Run(ctx context.Context, vendor *models.VendorConfig) (*models.SyncRun, error) {
	if err := o.store.TryBeginRun(vendor.ID); err != nil {
		return nil, err
	}
	defer func() {
		if err := o.store.EndRun(vendor.ID); err != nil {
			o.logger.WithError(err).WithField("vendor", vendor.Name).Error("Failed to release run lock")
		}
	}()

	adapter, err := sources.ForVendor(vendor)
	if err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	log := o.logger.WithFields(logrus.Fields{"vendor": vendor.Name, "source": vendor.Source})
	log.Info("Starting sync run")

	listings, fetchErrors, fatal := o.collect(ctx, vendor, adapter)

	run := &models.SyncRun{
		VendorID:   vendor.ID,
		VendorName: vendor.Name,
		StartedAt:  started,
	}

	if fatal != nil && len(listings) == 0 {
		run.Status = models.RunFailed
		run.ErrorText = fatal.Error()
		run.Duration = time.Since(started)
		o.record(run)
		log.WithError(fatal).Error("Sync run failed before producing any listings")
		return run, nil
	}

	result := o.engine.Run(vendor, listings)

	if o.stager != nil {
		fingerprints := make([]string, len(listings))
		for i := range listings {
			fingerprints[i] = fingerprint.Compute(&listings[i])
		}
		if err := o.stager.ReplaceRun(vendor.ID, listings, fingerprints); err != nil {
			log.WithError(err).Error("Failed to stage run snapshot")
		}
	}

	errors := append(fetchErrors, result.Errors...)
	run.Found = result.Found
	run.New = result.New
	run.Updated = result.Updated
	run.Unlisted = result.Unlisted
	run.Removed = result.Removed
	run.Duration = time.Since(started)
	if len(errors) == 0 {
		run.Status = models.RunSuccess
	} else {
		run.Status = models.RunPartial
		run.ErrorText = strings.Join(errors, "; ")
	}

	o.record(run)

	log.WithFields(logrus.Fields{
		"found":    run.Found,
		"new":      run.New,
		"updated":  run.Updated,
		"unlisted": run.Unlisted,
		"removed":  run.Removed,
		"status":   run.Status,
		"duration": run.Duration.String(),
	}).Info("Sync run completed")

	if o.notifier != nil && (run.New > 0 || run.ErrorText != "") {
		if err := o.notifier.NotifySyncRun(run); err != nil {
			log.WithError(err).Error("Failed to send run notification")
		}
	}
	return run, nil
}

func (o *Orchestrator) record(run *models.SyncRun) {
	id, err := o.store.InsertSyncRun(run)
	if err != nil {
		o.logger.WithError(err).WithField("vendor", run.VendorName).Error("Failed to record sync run")
		return
	}
	run.ID = id
}

// collect produces the run's listing snapshot. fetchErrors holds per-page
// and per-listing gaps; fatal is set when the source yielded nothing.
func (o *Orchestrator) collect(ctx context.Context, vendor *models.VendorConfig, adapter sources.Adapter) ([]models.RawListing, []string, error) {
	delay := vendor.DelayMS
	if delay <= 0 {
		delay = defaultDelayMS
	}
	limiter := rate.NewLimiter(rate.Every(time.Duration(delay)*time.Millisecond), 1)

	if discoverer, ok := adapter.(sources.LinkDiscoverer); ok {
		return o.collectPaginated(ctx, vendor, adapter, discoverer, limiter)
	}
	return o.collectFeed(ctx, vendor, adapter, limiter)
}

func (o *Orchestrator) collectFeed(ctx context.Context, vendor *models.VendorConfig, adapter sources.Adapter, limiter *rate.Limiter) ([]models.RawListing, []string, error) {
	feedURL := vendor.BaseURL + vendor.ListingPath
	body, err := o.fetch(ctx, limiter, feedURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch feed: %w", err)
	}
	listings, err := adapter.Parse(body, vendor)
	if err != nil && len(listings) == 0 {
		return nil, nil, fmt.Errorf("parse feed: %w", err)
	}
	var errors []string
	if err != nil {
		errors = append(errors, fmt.Sprintf("feed parsed partially: %v", err))
	}
	for i := range listings {
		if listings[i].SourceURL == "" {
			listings[i].SourceURL = feedURL
		}
	}
	return listings, errors, nil
}

// collectPaginated walks listing pages until a page yields no new detail
// links or the page ceiling is hit, fetching each detail page in between.
// Page order is strictly sequential; the termination condition depends on
// it.
func (o *Orchestrator) collectPaginated(ctx context.Context, vendor *models.VendorConfig, adapter sources.Adapter, discoverer sources.LinkDiscoverer, limiter *rate.Limiter) ([]models.RawListing, []string, error) {
	maxPages := vendor.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	htmlAdapter, _ := adapter.(*sources.HTMLAdapter)
	seenLinks := make(map[string]struct{})
	var listings []models.RawListing
	var errors []string

	for page := 1; page <= maxPages; page++ {
		pageURL := listingPageURL(vendor, page)
		body, err := o.fetch(ctx, limiter, pageURL)
		if err != nil {
			if page == 1 {
				return nil, nil, fmt.Errorf("fetch first listing page: %w", err)
			}
			// Listing pages are not retried; count the gap and move on.
			errors = append(errors, fmt.Sprintf("page %d: %v", page, err))
			continue
		}

		links, err := discoverer.ListingLinks(body, vendor)
		if err != nil {
			if page == 1 {
				return nil, nil, fmt.Errorf("parse first listing page: %w", err)
			}
			errors = append(errors, fmt.Sprintf("page %d: %v", page, err))
			continue
		}

		var fresh []string
		for _, link := range links {
			if _, dup := seenLinks[link]; dup {
				continue
			}
			seenLinks[link] = struct{}{}
			fresh = append(fresh, link)
		}
		if len(fresh) == 0 {
			break
		}

		for _, link := range fresh {
			detail, err := o.fetch(ctx, limiter, link)
			if err != nil {
				errors = append(errors, fmt.Sprintf("listing %s: %v", link, err))
				continue
			}
			var parsed []models.RawListing
			if htmlAdapter != nil {
				parsed, err = htmlAdapter.ParseDetail(detail, vendor, link)
			} else {
				parsed, err = adapter.Parse(detail, vendor)
			}
			if err != nil {
				errors = append(errors, fmt.Sprintf("listing %s: %v", link, err))
				continue
			}
			listings = append(listings, parsed...)
		}

		if vendor.ItemsPerPage > 0 && len(fresh) < vendor.ItemsPerPage {
			// Short page: the source has no further inventory.
			break
		}
		if !strings.Contains(vendor.ListingPath, "{page}") {
			break
		}
	}

	if len(listings) == 0 && len(errors) > 0 {
		return nil, errors, fmt.Errorf("no listings produced: %s", errors[0])
	}
	return listings, errors, nil
}

func listingPageURL(vendor *models.VendorConfig, page int) string {
	path := strings.ReplaceAll(vendor.ListingPath, "{page}", strconv.Itoa(page))
	return vendor.BaseURL + path
}

// fetch performs one polite GET with the run's rate limiter and the
// client's bounded timeout. Timeouts and non-2xx responses are failures
// the caller counts and skips.
func (o *Orchestrator) fetch(ctx context.Context, limiter *rate.Limiter, url string) ([]byte, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}
