package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"dealersync/server/internal/models"
)

func testDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	assert.NoError(t, err)
	assert.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })
	return db
}

func testVehicle() *models.Vehicle {
	return &models.Vehicle{
		VIN:                "2HGFC2F59MH000001",
		Make:               "Honda",
		Model:              "Civic",
		Year:               2021,
		Price:              24995,
		Odometer:           42000,
		BodyType:           "Sedan",
		Color:              "Blue",
		FuelType:           "Gasoline",
		Transmission:       "Automatic",
		Images:             []string{"https://cdn.example.com/1.jpg"},
		VendorID:           1,
		VendorName:         "Test Dealer",
		VendorStockNumber:  "P1234",
		LastSeenFromVendor: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		VendorStatus:       models.StatusActive,
		Fingerprint:        "abcdef0123456789",
	}
}

func TestVehicleRoundTrip(t *testing.T) {
	db := testDB(t)

	id, err := db.InsertVehicle(testVehicle())
	assert.NoError(t, err)
	assert.Greater(t, id, int64(0))

	v, err := db.GetVehicle(id)
	assert.NoError(t, err)
	assert.NotNil(t, v)
	assert.Equal(t, "2HGFC2F59MH000001", v.VIN)
	assert.Equal(t, "Honda", v.Make)
	assert.Equal(t, 24995, v.Price)
	assert.Equal(t, []string{"https://cdn.example.com/1.jpg"}, v.Images)
	assert.Equal(t, models.StatusActive, v.VendorStatus)
	assert.False(t, v.IsSold)
	assert.Equal(t, "abcdef0123456789", v.Fingerprint)
}

func TestGetVehicleMissing(t *testing.T) {
	db := testDB(t)

	v, err := db.GetVehicle(999)
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestFindByVIN(t *testing.T) {
	db := testDB(t)
	_, err := db.InsertVehicle(testVehicle())
	assert.NoError(t, err)

	v, err := db.FindByVIN(1, "2HGFC2F59MH000001")
	assert.NoError(t, err)
	assert.NotNil(t, v)

	// Identity is scoped to the vendor.
	v, err = db.FindByVIN(2, "2HGFC2F59MH000001")
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestFindByCompositeCaseInsensitive(t *testing.T) {
	db := testDB(t)
	noVIN := testVehicle()
	noVIN.VIN = ""
	_, err := db.InsertVehicle(noVIN)
	assert.NoError(t, err)

	v, err := db.FindByComposite(1, "honda", "CIVIC", 2021)
	assert.NoError(t, err)
	assert.NotNil(t, v)

	v, err = db.FindByComposite(1, "Honda", "Civic", 2020)
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestUpdateVehicleFromListingForcesActive(t *testing.T) {
	db := testDB(t)
	id, err := db.InsertVehicle(testVehicle())
	assert.NoError(t, err)
	assert.NoError(t, db.SetVehicleStatus(id, models.StatusUnlisted, nil))

	changed := testVehicle()
	changed.Price = 23995
	assert.NoError(t, db.UpdateVehicleFromListing(id, changed))

	v, err := db.GetVehicle(id)
	assert.NoError(t, err)
	assert.Equal(t, 23995, v.Price)
	assert.Equal(t, models.StatusActive, v.VendorStatus)
}

func TestSetVehicleStatusWithSeenAt(t *testing.T) {
	db := testDB(t)
	id, err := db.InsertVehicle(testVehicle())
	assert.NoError(t, err)

	seen := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, db.SetVehicleStatus(id, models.StatusActive, &seen))

	v, err := db.GetVehicle(id)
	assert.NoError(t, err)
	assert.Equal(t, seen, v.LastSeenFromVendor.UTC())
}

func TestVehiclesForVendorExcludesSoldAndRemoved(t *testing.T) {
	db := testDB(t)

	active := testVehicle()
	_, err := db.InsertVehicle(active)
	assert.NoError(t, err)

	sold := testVehicle()
	sold.VIN = "2HGFC2F59MH000002"
	sold.IsSold = true
	_, err = db.InsertVehicle(sold)
	assert.NoError(t, err)

	removed := testVehicle()
	removed.VIN = "2HGFC2F59MH000003"
	removed.VendorStatus = models.StatusRemoved
	_, err = db.InsertVehicle(removed)
	assert.NoError(t, err)

	unlisted := testVehicle()
	unlisted.VIN = "2HGFC2F59MH000004"
	unlisted.VendorStatus = models.StatusUnlisted
	_, err = db.InsertVehicle(unlisted)
	assert.NoError(t, err)

	vehicles, err := db.VehiclesForVendor(1)
	assert.NoError(t, err)
	assert.Len(t, vehicles, 2)
}

func TestListVehiclesFilters(t *testing.T) {
	db := testDB(t)

	a := testVehicle()
	_, err := db.InsertVehicle(a)
	assert.NoError(t, err)

	b := testVehicle()
	b.VIN = "2HGFC2F59MH000002"
	b.VendorID = 2
	b.VendorStatus = models.StatusUnlisted
	b.IsSold = true
	_, err = db.InsertVehicle(b)
	assert.NoError(t, err)

	all, err := db.ListVehicles(0, "", nil, 0)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	vendorOnly, err := db.ListVehicles(2, "", nil, 0)
	assert.NoError(t, err)
	assert.Len(t, vendorOnly, 1)

	unlistedOnly, err := db.ListVehicles(0, models.StatusUnlisted, nil, 0)
	assert.NoError(t, err)
	assert.Len(t, unlistedOnly, 1)
	assert.Equal(t, "2HGFC2F59MH000002", unlistedOnly[0].VIN)

	sold := true
	soldOnly, err := db.ListVehicles(0, "", &sold, 0)
	assert.NoError(t, err)
	assert.Len(t, soldOnly, 1)
	assert.True(t, soldOnly[0].IsSold)

	unsold := false
	unsoldOnly, err := db.ListVehicles(0, "", &unsold, 0)
	assert.NoError(t, err)
	assert.Len(t, unsoldOnly, 1)
	assert.False(t, unsoldOnly[0].IsSold)
}

func TestVehiclesNeedingImages(t *testing.T) {
	db := testDB(t)

	external := testVehicle()
	_, err := db.InsertVehicle(external)
	assert.NoError(t, err)

	migrated := testVehicle()
	migrated.VIN = "2HGFC2F59MH000002"
	migrated.Images = []string{"vehicles/2/aaaa.jpg"}
	_, err = db.InsertVehicle(migrated)
	assert.NoError(t, err)

	none := testVehicle()
	none.VIN = "2HGFC2F59MH000003"
	none.Images = nil
	_, err = db.InsertVehicle(none)
	assert.NoError(t, err)

	vehicles, err := db.VehiclesNeedingImages(nil, 10)
	assert.NoError(t, err)
	assert.Len(t, vehicles, 1)
	assert.Equal(t, "2HGFC2F59MH000001", vehicles[0].VIN)
}

func TestUpdateVehicleImages(t *testing.T) {
	db := testDB(t)
	id, err := db.InsertVehicle(testVehicle())
	assert.NoError(t, err)

	assert.NoError(t, db.UpdateVehicleImages(id, []string{"vehicles/1/aaaa.jpg"}))

	v, err := db.GetVehicle(id)
	assert.NoError(t, err)
	assert.Equal(t, []string{"vehicles/1/aaaa.jpg"}, v.Images)
	assert.False(t, v.HasExternalImages())
}

func TestSyncRunHistory(t *testing.T) {
	db := testDB(t)

	first := &models.SyncRun{
		VendorID: 1, VendorName: "Test Dealer",
		StartedAt: time.Date(2026, 8, 1, 1, 0, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Found:     10, New: 10, Status: models.RunSuccess,
	}
	second := &models.SyncRun{
		VendorID: 2, VendorName: "Other Dealer",
		StartedAt: time.Date(2026, 8, 2, 1, 0, 0, 0, time.UTC),
		Duration:  5 * time.Second,
		Found:     3, Updated: 1, Status: models.RunPartial,
		ErrorText: "page 2: timeout",
	}
	_, err := db.InsertSyncRun(first)
	assert.NoError(t, err)
	_, err = db.InsertSyncRun(second)
	assert.NoError(t, err)

	runs, err := db.SyncHistory(0, 10)
	assert.NoError(t, err)
	assert.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, "Other Dealer", runs[0].VendorName)
	assert.Equal(t, 5*time.Second, runs[0].Duration)
	assert.Equal(t, "page 2: timeout", runs[0].ErrorText)

	scoped, err := db.SyncHistory(1, 10)
	assert.NoError(t, err)
	assert.Len(t, scoped, 1)
	assert.Equal(t, 10, scoped[0].New)
}

func TestImageJobLifecycle(t *testing.T) {
	db := testDB(t)

	job := &models.ImageJob{
		ID:            uuid.NewString(),
		Status:        models.JobPending,
		TotalVehicles: 2,
		StartedAt:     time.Now().UTC(),
	}
	assert.NoError(t, db.CreateImageJob(job))

	job.Status = models.JobProcessing
	job.VehiclesProcessed = 1
	job.ImagesUploaded = 3
	job.CurrentVehicle = "2021 Honda Civic"
	assert.NoError(t, db.UpdateImageJob(job))

	got, err := db.GetImageJob(job.ID)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, models.JobProcessing, got.Status)
	assert.Equal(t, 1, got.VehiclesProcessed)
	assert.Equal(t, "2021 Honda Civic", got.CurrentVehicle)
	assert.Nil(t, got.CompletedAt)

	assert.NoError(t, db.FinalizeImageJob(job, models.JobCompleted))

	got, err = db.GetImageJob(job.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Empty(t, got.CurrentVehicle)
	assert.NotNil(t, got.CompletedAt)
}

func TestGetImageJobMissing(t *testing.T) {
	db := testDB(t)

	job, err := db.GetImageJob("no-such-job")
	assert.NoError(t, err)
	assert.Nil(t, job)
}

func TestVendorRunLock(t *testing.T) {
	db := testDB(t)

	assert.NoError(t, db.TryBeginRun(1))
	assert.ErrorIs(t, db.TryBeginRun(1), ErrRunInProgress)

	// Another vendor is unaffected.
	assert.NoError(t, db.TryBeginRun(2))

	assert.NoError(t, db.EndRun(1))
	assert.NoError(t, db.TryBeginRun(1))
}

func TestVendorRunLockStealsStaleLock(t *testing.T) {
	db := testDB(t)

	assert.NoError(t, db.TryBeginRun(1))
	assert.ErrorIs(t, db.TryBeginRun(1), ErrRunInProgress)

	// A lock held past the staleness window belongs to a crashed run.
	_, err := db.GetDB().Exec(`
		UPDATE vendor_runs SET started_at = ? WHERE vendor_id = ?
	`, time.Now().UTC().Add(-3*time.Hour), int64(1))
	assert.NoError(t, err)

	assert.NoError(t, db.TryBeginRun(1))
	// The steal refreshed started_at, so the lock holds again.
	assert.ErrorIs(t, db.TryBeginRun(1), ErrRunInProgress)
}
