package shipments

import (
	"testing"
	"time"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/database"
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
	return NewService(db, logger.NewNop()), db
}

func seedShipment(t *testing.T, db *gorm.DB, providerName string) (models.Provider, models.Shipment) {
	t.Helper()
	provider := models.Provider{Name: providerName}
	require.NoError(t, db.Create(&provider).Error)
	shipment := models.Shipment{ProviderID: provider.ID, Status: models.ShipmentStatusPreAlert}
	require.NoError(t, db.Create(&shipment).Error)
	return provider, shipment
}

func addManifests(t *testing.T, db *gorm.DB, shipmentID uint, preAlert, preRoute []string) {
	t.Helper()
	for _, tr := range preAlert {
		require.NoError(t, db.Create(&models.PreAlertRow{ShipmentID: shipmentID, TrackingNumber: tr}).Error)
	}
	for _, tr := range preRoute {
		require.NoError(t, db.Create(&models.PreRouteRow{ShipmentID: shipmentID, TrackingNumber: tr}).Error)
	}
}

func TestList_TenantFiltered(t *testing.T) {
	svc, db := testService(t)
	acme, _ := seedShipment(t, db, "Acme")
	_, _ = seedShipment(t, db, "Beta")

	mine, err := svc.List(auth.Restricted(acme.ID))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, acme.ID, mine[0].ProviderID)

	all, err := svc.List(auth.Unrestricted())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestGet_TenantDenied(t *testing.T) {
	svc, db := testService(t)
	_, shipment := seedShipment(t, db, "Acme")
	intruder := models.Provider{Name: "Beta"}
	require.NoError(t, db.Create(&intruder).Error)

	_, err := svc.Get(auth.Restricted(intruder.ID), shipment.ID)
	require.ErrorIs(t, err, apperr.ErrAccessDenied)

	_, err = svc.Get(auth.Unrestricted(), 9999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateStatus_ForwardOnly(t *testing.T) {
	svc, db := testService(t)
	provider, shipment := seedShipment(t, db, "Acme")
	scope := auth.Restricted(provider.ID)

	got, err := svc.UpdateStatus(scope, shipment.ID, models.ShipmentStatusPreRoute)
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusPreRoute, got.Status)

	_, err = svc.UpdateStatus(scope, shipment.ID, models.ShipmentStatusPreAlert)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.UpdateStatus(scope, shipment.ID, "shipped")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFinalize_Terminal(t *testing.T) {
	svc, db := testService(t)
	provider, shipment := seedShipment(t, db, "Acme")
	scope := auth.Restricted(provider.ID)

	fixed := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	got, err := svc.Finalize(scope, shipment.ID)
	require.NoError(t, err)
	require.Equal(t, models.ShipmentStatusFinalized, got.Status)
	require.NotNil(t, got.FinalizedAt)
	require.True(t, got.FinalizedAt.Equal(fixed))

	_, err = svc.Finalize(scope, shipment.ID)
	require.ErrorIs(t, err, apperr.ErrAlreadyFinalized)
}

func TestDelete_CascadesManifests(t *testing.T) {
	svc, db := testService(t)
	provider, shipment := seedShipment(t, db, "Acme")
	addManifests(t, db, shipment.ID, []string{"A1"}, []string{"A1", "A2"})

	require.NoError(t, svc.Delete(auth.Restricted(provider.ID), shipment.ID))

	var count int64
	db.Model(&models.PreAlertRow{}).Where("shipment_id = ?", shipment.ID).Count(&count)
	require.Zero(t, count)
	db.Model(&models.PreRouteRow{}).Where("shipment_id = ?", shipment.ID).Count(&count)
	require.Zero(t, count)
}

func TestCompareShipment(t *testing.T) {
	svc, db := testService(t)
	provider, shipment := seedShipment(t, db, "Acme")
	addManifests(t, db, shipment.ID, []string{"A1", "A2", "A3"}, []string{"A2", "A3", "A4"})

	result, err := svc.CompareShipment(auth.Restricted(provider.ID), shipment.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"A2", "A3"}, result.Matched)
	require.Equal(t, []string{"A1"}, result.OutOfCoverage)
	require.Equal(t, []string{"A4"}, result.Stale)
}

func TestVerifyScan_Categories(t *testing.T) {
	svc, db := testService(t)
	provider, shipment := seedShipment(t, db, "Acme")
	addManifests(t, db, shipment.ID, []string{"A1", "A2"}, []string{"A2", "A4"})
	scope := auth.Restricted(provider.ID)

	cases := []struct {
		tracking string
		want     models.VerificationStatus
	}{
		{"a2", models.VerifyMatched},
		{"A1", models.VerifyOutOfCoverage},
		{"A4", models.VerifyStale},
		{"A9", models.VerifyExcess},
	}
	for _, tc := range cases {
		got, err := svc.VerifyScan(scope, shipment.ID, tc.tracking, "operator")
		require.NoError(t, err, tc.tracking)
		require.Equal(t, tc.want, got.Status, tc.tracking)
	}

	// Matched rows are stamped on both manifests.
	var pa models.PreAlertRow
	require.NoError(t, db.Where("shipment_id = ? AND tracking_number = ?", shipment.ID, "A2").First(&pa).Error)
	require.True(t, pa.Verified)
	require.Equal(t, string(models.VerifyMatched), pa.VerifyStatus)

	// Every scan landed in the audit log, duplicates included.
	_, err := svc.VerifyScan(scope, shipment.ID, "A2", "operator")
	require.NoError(t, err)
	var scans int64
	db.Model(&models.VerificationScan{}).Where("shipment_id = ?", shipment.ID).Count(&scans)
	require.EqualValues(t, 5, scans)
}
