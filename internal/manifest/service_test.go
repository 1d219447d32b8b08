package manifest

import (
	"testing"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
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

func seedProvider(t *testing.T, db *gorm.DB, name string) models.Provider {
	t.Helper()
	p := models.Provider{Name: name}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestLoadPreAlert_CreatesShipment(t *testing.T) {
	svc, db := testService(t)
	provider := seedProvider(t, db, "Acme")

	report, err := svc.LoadPreAlert(auth.Restricted(provider.ID), 0, 0, []PreAlertRowInput{
		{TrackingNumber: " pa-1 ", Buyer: "Alice", Weight: "1,5"},
		{TrackingNumber: "PA-2", Buyer: "Bob"},
	}, "vendor@acme.test")
	require.NoError(t, err)
	require.NotZero(t, report.ShipmentID)
	require.Equal(t, 2, report.Imported)
	require.Zero(t, report.Skipped)
	require.Empty(t, report.Errors)

	var shipment models.Shipment
	require.NoError(t, db.First(&shipment, report.ShipmentID).Error)
	require.Equal(t, provider.ID, shipment.ProviderID)
	require.Equal(t, models.ShipmentStatusPreAlert, shipment.Status)

	var row models.PreAlertRow
	require.NoError(t, db.Where("shipment_id = ? AND tracking_number = ?", shipment.ID, "PA-1").First(&row).Error)
	require.InDelta(t, 1.5, row.Weight, 1e-9)
}

func TestLoadPreAlert_DuplicateSkipOnRerun(t *testing.T) {
	svc, db := testService(t)
	provider := seedProvider(t, db, "Acme")
	scope := auth.Restricted(provider.ID)

	rows := []PreAlertRowInput{{TrackingNumber: "PA-1"}, {TrackingNumber: "PA-2"}}
	report, err := svc.LoadPreAlert(scope, 0, 0, rows, "vendor")
	require.NoError(t, err)
	require.Equal(t, 2, report.Imported)

	// Re-run against the same shipment with one new row.
	rerun, err := svc.LoadPreAlert(scope, report.ShipmentID, 0, append(rows, PreAlertRowInput{TrackingNumber: "PA-3"}), "vendor")
	require.NoError(t, err)
	require.Equal(t, 1, rerun.Imported)
	require.Equal(t, 2, rerun.Skipped)

	var count int64
	db.Model(&models.PreAlertRow{}).Where("shipment_id = ?", report.ShipmentID).Count(&count)
	require.EqualValues(t, 3, count)
}

func TestLoadPreAlert_RowErrorsReported(t *testing.T) {
	svc, db := testService(t)
	provider := seedProvider(t, db, "Acme")

	report, err := svc.LoadPreAlert(auth.Restricted(provider.ID), 0, 0, []PreAlertRowInput{
		{TrackingNumber: ""},
		{TrackingNumber: "PA-1", Weight: "heavy"},
		{TrackingNumber: "PA-2"},
	}, "vendor")
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Len(t, report.Errors, 2)
	require.Equal(t, "tracking_number", report.Errors[0].Field)
	require.Equal(t, "weight", report.Errors[1].Field)
}

func TestLoadPreAlert_EmptySelection(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.LoadPreAlert(auth.Unrestricted(), 1, 1, nil, "admin")
	require.ErrorIs(t, err, apperr.ErrEmptySelection)
}

func TestLoadPreAlert_AdminNeedsProviderForNewShipment(t *testing.T) {
	svc, db := testService(t)
	provider := seedProvider(t, db, "Acme")

	_, err := svc.LoadPreAlert(auth.Unrestricted(), 0, 0, []PreAlertRowInput{{TrackingNumber: "PA-1"}}, "admin")
	require.ErrorIs(t, err, apperr.ErrValidation)

	report, err := svc.LoadPreAlert(auth.Unrestricted(), 0, provider.ID, []PreAlertRowInput{{TrackingNumber: "PA-1"}}, "admin")
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
}

func TestLoadPreRoute_TenantMismatch(t *testing.T) {
	svc, db := testService(t)
	owner := seedProvider(t, db, "Acme")
	intruder := seedProvider(t, db, "Beta")

	report, err := svc.LoadPreAlert(auth.Restricted(owner.ID), 0, 0, []PreAlertRowInput{{TrackingNumber: "PA-1"}}, "vendor")
	require.NoError(t, err)

	_, err = svc.LoadPreRoute(auth.Restricted(intruder.ID), report.ShipmentID, []PreRouteRowInput{{TrackingNumber: "PR-1"}}, "other")
	require.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = svc.LoadPreRoute(auth.Restricted(owner.ID), 9999, []PreRouteRowInput{{TrackingNumber: "PR-1"}}, "vendor")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLoadPreRoute_AdvancesStatusForwardOnly(t *testing.T) {
	svc, db := testService(t)
	provider := seedProvider(t, db, "Acme")
	scope := auth.Restricted(provider.ID)

	report, err := svc.LoadPreAlert(scope, 0, 0, []PreAlertRowInput{{TrackingNumber: "PA-1"}}, "vendor")
	require.NoError(t, err)

	_, err = svc.LoadPreRoute(scope, report.ShipmentID, []PreRouteRowInput{
		{TrackingNumber: "PA-1", Vehicle: "V1", DeliveryDate: "2026-09-01", WeightKg: "2,5"},
	}, "vendor")
	require.NoError(t, err)

	var shipment models.Shipment
	require.NoError(t, db.First(&shipment, report.ShipmentID).Error)
	require.Equal(t, models.ShipmentStatusPreRoute, shipment.Status)

	// Finalize, then re-upload: the status must not move backward.
	require.NoError(t, db.Model(&shipment).Update("status", models.ShipmentStatusFinalized).Error)
	_, err = svc.LoadPreRoute(scope, report.ShipmentID, []PreRouteRowInput{{TrackingNumber: "PR-9"}}, "vendor")
	require.NoError(t, err)
	require.NoError(t, db.First(&shipment, report.ShipmentID).Error)
	require.Equal(t, models.ShipmentStatusFinalized, shipment.Status)
}
