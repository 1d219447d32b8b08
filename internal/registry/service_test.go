package registry

import (
	"strconv"
	"testing"
	"time"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/database"
	"parceltrack-backend/internal/events"
	"parceltrack-backend/internal/logger"
	"parceltrack-backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	lg := logger.NewNop()
	svc := NewService(db, lg, events.NewEmitter(events.NewLogPublisher(lg), lg))
	return svc, db
}

func seedCatalog(t *testing.T, db *gorm.DB) (models.Provider, models.Location) {
	t.Helper()
	provider := models.Provider{Name: "Acme Logistics"}
	require.NoError(t, db.Create(&provider).Error)
	warehouse := models.Warehouse{Name: "Central"}
	require.NoError(t, db.Create(&warehouse).Error)
	location := models.Location{WarehouseID: warehouse.ID, Name: "Dock 1"}
	require.NoError(t, db.Create(&location).Error)
	return provider, location
}

func TestIntake_CreatesPackageAndLedgerRow(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	pkg, err := svc.Intake(IntakeInput{
		Ref:             " trk-001 ",
		ProviderID:      provider.ID,
		LocationID:      location.ID,
		CreateIfMissing: true,
		Actor:           "ops@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "TRK-001", pkg.TrackingNumber)
	require.Equal(t, models.PackageStatusIntake, pkg.Status)

	var movements []models.PackageMovement
	require.NoError(t, db.Where("package_id = ?", pkg.ID).Find(&movements).Error)
	require.Len(t, movements, 1)
	require.Equal(t, models.ActionIntake, movements[0].Action)
	require.Nil(t, movements[0].FromProviderID)
	require.Equal(t, provider.ID, *movements[0].ToProviderID)
}

func TestIntake_UnknownRefWithoutCreate(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	_, err := svc.Intake(IntakeInput{
		Ref:        "TRK-MISSING",
		ProviderID: provider.ID,
		LocationID: location.ID,
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolve_IDThenTracking(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	pkg, err := svc.Intake(IntakeInput{Ref: "TRK-77", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)

	byTracking, err := svc.Resolve("trk-77")
	require.NoError(t, err)
	require.Equal(t, pkg.ID, byTracking.ID)

	byID, err := svc.Resolve(strconv.FormatUint(uint64(pkg.ID), 10))
	require.NoError(t, err)
	require.Equal(t, pkg.ID, byID.ID)

	// A numeric ref that is not an id still falls back to tracking lookup.
	numeric, err := svc.Intake(IntakeInput{Ref: "99999", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	found, err := svc.Resolve("99999")
	require.NoError(t, err)
	require.Equal(t, numeric.ID, found.ID)
}

func TestTransferAndDeliver_LedgerPairing(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)
	other := models.Provider{Name: "Beta Freight"}
	require.NoError(t, db.Create(&other).Error)
	loc2 := models.Location{WarehouseID: location.WarehouseID, Name: "Dock 2"}
	require.NoError(t, db.Create(&loc2).Error)

	pkg, err := svc.Intake(IntakeInput{Ref: "TRK-010", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)

	moved, err := svc.Transfer("TRK-010", other.ID, loc2.ID, "rebalance", "ops")
	require.NoError(t, err)
	require.Equal(t, models.PackageStatusInTransfer, moved.Status)
	require.Equal(t, other.ID, *moved.CurrentProviderID)

	delivered, err := svc.Deliver("TRK-010", "", "courier")
	require.NoError(t, err)
	require.Equal(t, models.PackageStatusDelivered, delivered.Status)

	var movements []models.PackageMovement
	require.NoError(t, db.Where("package_id = ?", pkg.ID).Order("id").Find(&movements).Error)
	require.Len(t, movements, 3)

	// The transfer row snapshots the prior custodian on its from side.
	transfer := movements[1]
	require.Equal(t, provider.ID, *transfer.FromProviderID)
	require.Equal(t, other.ID, *transfer.ToProviderID)

	// Delivery closes the chain: to side is null.
	delivery := movements[2]
	require.Equal(t, models.ActionDelivery, delivery.Action)
	require.Equal(t, other.ID, *delivery.FromProviderID)
	require.Nil(t, delivery.ToProviderID)
}

func TestDeliver_Terminal(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	_, err := svc.Intake(IntakeInput{Ref: "TRK-020", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	_, err = svc.Deliver("TRK-020", "", "courier")
	require.NoError(t, err)

	_, err = svc.Deliver("TRK-020", "", "courier")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = svc.Transfer("TRK-020", provider.ID, location.ID, "", "ops")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestBulkTransfer_PerParcelSnapshots(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)
	other := models.Provider{Name: "Beta Freight"}
	require.NoError(t, db.Create(&other).Error)
	loc2 := models.Location{WarehouseID: location.WarehouseID, Name: "Dock 2"}
	require.NoError(t, db.Create(&loc2).Error)

	a, err := svc.Intake(IntakeInput{Ref: "TRK-A", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	b, err := svc.Intake(IntakeInput{Ref: "TRK-B", ProviderID: other.ID, LocationID: loc2.ID, CreateIfMissing: true})
	require.NoError(t, err)

	res, err := svc.BulkTransfer([]uint{a.ID, b.ID}, provider.ID, location.ID, "", "ops")
	require.NoError(t, err)
	require.Equal(t, 2, res.Updated)
	require.Equal(t, 2, res.Movements)

	// Each parcel's ledger row carries its own prior custodian, not a shared one.
	var ma, mb models.PackageMovement
	require.NoError(t, db.Where("package_id = ? AND action = ?", a.ID, models.ActionTransfer).First(&ma).Error)
	require.NoError(t, db.Where("package_id = ? AND action = ?", b.ID, models.ActionTransfer).First(&mb).Error)
	require.Equal(t, provider.ID, *ma.FromProviderID)
	require.Equal(t, other.ID, *mb.FromProviderID)
}

func TestBulkTransfer_Atomicity(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	a, err := svc.Intake(IntakeInput{Ref: "TRK-A", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)

	// One missing id aborts the whole batch.
	_, err = svc.BulkTransfer([]uint{a.ID, 9999}, provider.ID, location.ID, "", "ops")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	var pkg models.Package
	require.NoError(t, db.First(&pkg, a.ID).Error)
	require.Equal(t, models.PackageStatusIntake, pkg.Status)

	var count int64
	db.Model(&models.PackageMovement{}).Where("package_id = ? AND action = ?", a.ID, models.ActionTransfer).Count(&count)
	require.Zero(t, count)
}

func TestBulkDeliver_DeliveredParcelAborts(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	a, err := svc.Intake(IntakeInput{Ref: "TRK-A", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	b, err := svc.Intake(IntakeInput{Ref: "TRK-B", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	_, err = svc.Deliver("TRK-B", "", "courier")
	require.NoError(t, err)

	_, err = svc.BulkDeliver([]uint{a.ID, b.ID}, "", "courier")
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	var pkg models.Package
	require.NoError(t, db.First(&pkg, a.ID).Error)
	require.Equal(t, models.PackageStatusIntake, pkg.Status)
}

func TestBulk_EmptySelection(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.BulkTransfer(nil, 1, 1, "", "ops")
	require.ErrorIs(t, err, apperr.ErrEmptySelection)
	_, err = svc.BulkDeliver([]uint{}, "", "ops")
	require.ErrorIs(t, err, apperr.ErrEmptySelection)
	_, err = svc.BulkUpdateStatus(nil, models.PackageStatusStored, models.ActionTransfer, "", "ops")
	require.ErrorIs(t, err, apperr.ErrEmptySelection)
}

func TestBulkUpdateStatus_IdempotentPerParcel(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	a, err := svc.Intake(IntakeInput{Ref: "TRK-A", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	b, err := svc.Intake(IntakeInput{Ref: "TRK-B", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)

	res, err := svc.BulkUpdateStatus([]uint{a.ID, b.ID}, models.PackageStatusStored, models.ActionTransfer, "shelved", "ops")
	require.NoError(t, err)
	require.Equal(t, 2, res.Updated)
	require.Equal(t, 2, res.Movements)

	// Re-run: parcels are already at the target, no new ledger rows.
	res, err = svc.BulkUpdateStatus([]uint{a.ID, b.ID}, models.PackageStatusStored, models.ActionTransfer, "shelved", "ops")
	require.NoError(t, err)
	require.Zero(t, res.Movements)

	var count int64
	db.Model(&models.PackageMovement{}).Where("action = ? AND note = ?", models.ActionTransfer, "shelved").Count(&count)
	require.EqualValues(t, 2, count)
}

func TestBulkUpdateStatus_RejectsUnknownStatusAndAction(t *testing.T) {
	svc, _ := testService(t)

	_, err := svc.BulkUpdateStatus([]uint{1}, "teleported", models.ActionTransfer, "", "ops")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.BulkUpdateStatus([]uint{1}, models.PackageStatusStored, "beam", "", "ops")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGetWithHistory_NewestFirst(t *testing.T) {
	svc, db := testService(t)
	provider, location := seedCatalog(t, db)

	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	_, err := svc.Intake(IntakeInput{Ref: "TRK-H", ProviderID: provider.ID, LocationID: location.ID, CreateIfMissing: true})
	require.NoError(t, err)
	_, err = svc.Transfer("TRK-H", provider.ID, location.ID, "", "ops")
	require.NoError(t, err)
	_, err = svc.Deliver("TRK-H", "", "courier")
	require.NoError(t, err)

	pkg, err := svc.GetWithHistory("TRK-H")
	require.NoError(t, err)
	require.Len(t, pkg.Movements, 3)
	require.Equal(t, models.ActionDelivery, pkg.Movements[0].Action)
	require.Equal(t, models.ActionIntake, pkg.Movements[2].Action)
}
