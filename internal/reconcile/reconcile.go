// Package reconcile turns one crawl's worth of raw listings plus the
// vendor's current canonical state into insert/update/unlist/remove
// operations. Every decision is independent per record: one failed write
// never blocks the rest, and the run counters reflect what was actually
// persisted.
package reconcile

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"dealersync/server/internal/fingerprint"
	"dealersync/server/internal/models"
)

// Store is the slice of the canonical store the engine needs.
type Store interface {
	FindByVIN(vendorID int64, vin string) (*models.Vehicle, error)
	FindByComposite(vendorID int64, make, model string, year int) (*models.Vehicle, error)
	InsertVehicle(v *models.Vehicle) (int64, error)
	UpdateVehicleFromListing(id int64, v *models.Vehicle) error
	SetVehicleStatus(id int64, status string, seenAt *time.Time) error
	VehiclesForVendor(vendorID int64) ([]models.Vehicle, error)
}

// Result aggregates what one reconciliation pass persisted.
type Result struct {
	Found    int
	New      int
	Updated  int
	Unlisted int
	Removed  int
	Errors   []string
}

func (r *Result) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

type Engine struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewEngine(store Store, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Engine{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run reconciles the crawl snapshot against the canonical store. The
// snapshot is taken as one consistent view of "currently seen": a vehicle
// matched by any listing is exempt from the absence sweep of the same run.
func (e *Engine) Run(vendor *models.VendorConfig, listings []models.RawListing) *Result {
	result := &Result{Found: len(listings)}
	now := e.now()
	seen := make(map[int64]struct{}, len(listings))

	for i := range listings {
		raw := &listings[i]
		fp := fingerprint.Compute(raw)

		existing, err := e.resolve(vendor.ID, raw)
		if err != nil {
			result.addError("resolve %s: %v", raw.Title, err)
			continue
		}

		if existing == nil {
			v := vehicleFromListing(raw, vendor, fp, now)
			id, err := e.store.InsertVehicle(v)
			if err != nil {
				result.addError("insert %s: %v", raw.Title, err)
				continue
			}
			seen[id] = struct{}{}
			result.New++
			e.logger.WithFields(logrus.Fields{
				"vendor":  vendor.Name,
				"vehicle": v.Label(),
				"vin":     v.VIN,
			}).Info("Inserted new vehicle")
			continue
		}

		seen[existing.ID] = struct{}{}

		// Sold inventory is staff territory; the crawler leaves it alone.
		if existing.IsSold {
			continue
		}

		if existing.Fingerprint == fp {
			if existing.VendorStatus != models.StatusActive {
				// Reappeared unchanged, whether unlisted or removed;
				// bring it back without a full rewrite. The changed path
				// below forces active too, so reappearance always relists.
				if err := e.store.SetVehicleStatus(existing.ID, models.StatusActive, &now); err != nil {
					result.addError("relist vehicle %d: %v", existing.ID, err)
					continue
				}
				result.Updated++
			}
			// Identical fingerprint on an active record: zero writes.
			continue
		}

		v := vehicleFromListing(raw, vendor, fp, now)
		if err := e.store.UpdateVehicleFromListing(existing.ID, v); err != nil {
			result.addError("update vehicle %d: %v", existing.ID, err)
			continue
		}
		result.Updated++
	}

	e.sweepAbsent(vendor, seen, now, result)
	return result
}

// resolve maps a raw listing to an existing canonical record: exact VIN
// scoped to the vendor first, then the (make, model, year) composite for
// the many source templates that omit the VIN. First match wins.
//
// A well-formed VIN is authoritative. When it matches nothing, the
// composite may still claim a record stored without a VIN (the source
// started publishing VINs), but never a record carrying a different VIN:
// that is a different vehicle, and merging would overwrite its identity.
func (e *Engine) resolve(vendorID int64, raw *models.RawListing) (*models.Vehicle, error) {
	if raw.VIN != "" {
		v, err := e.store.FindByVIN(vendorID, raw.VIN)
		if err != nil || v != nil {
			return v, err
		}
		if raw.Make != "" && raw.Model != "" && raw.Year > 0 {
			v, err := e.store.FindByComposite(vendorID, raw.Make, raw.Model, raw.Year)
			if err != nil || v == nil {
				return v, err
			}
			if v.VIN == "" {
				return v, nil
			}
		}
		return nil, nil
	}
	if raw.Make != "" && raw.Model != "" && raw.Year > 0 {
		return e.store.FindByComposite(vendorID, raw.Make, raw.Model, raw.Year)
	}
	return nil, nil
}

// sweepAbsent walks the vendor's live records that no current listing
// resolved to. A record crosses to unlisted once it has been absent
// longer than the grace period and to removed after the extended
// threshold; removal is always a status change, never a delete.
func (e *Engine) sweepAbsent(vendor *models.VendorConfig, seen map[int64]struct{}, now time.Time, result *Result) {
	existing, err := e.store.VehiclesForVendor(vendor.ID)
	if err != nil {
		result.addError("load vendor vehicles for sweep: %v", err)
		return
	}

	unlistCutoff := now.AddDate(0, 0, -vendor.GraceDays)
	removeCutoff := now.AddDate(0, 0, -vendor.RemoveAfterDays)

	for i := range existing {
		v := &existing[i]
		if _, ok := seen[v.ID]; ok {
			continue
		}

		switch {
		case vendor.RemoveAfterDays > 0 && v.LastSeenFromVendor.Before(removeCutoff):
			if err := e.store.SetVehicleStatus(v.ID, models.StatusRemoved, nil); err != nil {
				result.addError("remove vehicle %d: %v", v.ID, err)
				continue
			}
			result.Removed++
			e.logger.WithFields(logrus.Fields{
				"vendor":    vendor.Name,
				"vehicle":   v.Label(),
				"last_seen": v.LastSeenFromVendor,
			}).Info("Vehicle removed after extended absence")
		case v.VendorStatus == models.StatusActive && v.LastSeenFromVendor.Before(unlistCutoff):
			if err := e.store.SetVehicleStatus(v.ID, models.StatusUnlisted, nil); err != nil {
				result.addError("unlist vehicle %d: %v", v.ID, err)
				continue
			}
			result.Unlisted++
			e.logger.WithFields(logrus.Fields{
				"vendor":    vendor.Name,
				"vehicle":   v.Label(),
				"last_seen": v.LastSeenFromVendor,
			}).Info("Vehicle unlisted after grace period")
		}
	}
}

// vehicleFromListing builds the canonical row for an insert or a full
// update. Images are reset to the vendor's current URLs; the image
// pipeline re-migrates them on its next batch. IsSold is never touched
// from listing data.
func vehicleFromListing(raw *models.RawListing, vendor *models.VendorConfig, fp string, now time.Time) *models.Vehicle {
	return &models.Vehicle{
		VIN:                raw.VIN,
		Make:               raw.Make,
		Model:              raw.Model,
		Year:               raw.Year,
		Price:              raw.Price,
		Odometer:           raw.Odometer,
		BodyType:           raw.BodyType,
		Color:              raw.Color,
		FuelType:           raw.FuelType,
		Transmission:       raw.Transmission,
		Drivetrain:         raw.Drivetrain,
		EngineSize:         raw.EngineSize,
		Cylinders:          raw.Cylinders,
		Description:        raw.Description,
		Images:             raw.ImageURLs,
		VendorID:           vendor.ID,
		VendorName:         vendor.Name,
		VendorStockNumber:  raw.StockNumber,
		LastSeenFromVendor: now,
		VendorStatus:       models.StatusActive,
		Fingerprint:        fp,
	}
}
