package shipments

import (
	"errors"
	"fmt"
	"time"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/logger"
	"parceltrack-backend/internal/models"

	"gorm.io/gorm"
)

// Service owns the Shipment aggregate: lifecycle, tenant-filtered queries and
// verification scanning against the two manifests.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

// getOwned loads a shipment and enforces the tenant boundary.
func (s *Service) getOwned(tx *gorm.DB, scope auth.TenantScope, id uint) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := tx.First(&shipment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("shipment %d", id)
		}
		return nil, err
	}
	if err := scope.Authorize(shipment.ProviderID); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (s *Service) Create(scope auth.TenantScope, providerID uint, actor string) (*models.Shipment, error) {
	owner := providerID
	if !scope.IsUnrestricted() {
		owner = *scope.ProviderID
	}
	if owner == 0 {
		return nil, apperr.Validationf("provider_id is required")
	}

	shipment := models.Shipment{
		ProviderID: owner,
		Status:     models.ShipmentStatusPreAlert,
		CreatedBy:  actor,
	}
	if err := s.db.Create(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// List returns the shipments visible to the scope, newest first.
func (s *Service) List(scope auth.TenantScope) ([]models.Shipment, error) {
	q := s.db.Preload("Provider").Order("created_at DESC")
	if !scope.IsUnrestricted() {
		q = q.Where("provider_id = ?", *scope.ProviderID)
	}
	var shipments []models.Shipment
	if err := q.Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

func (s *Service) Get(scope auth.TenantScope, id uint) (*models.Shipment, error) {
	shipment, err := s.getOwned(s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Preload("Provider").First(shipment, shipment.ID).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

// UpdateStatus moves a shipment forward through its lifecycle. Backward
// transitions are rejected; finalized is set via Finalize so the timestamp
// lands exactly once.
func (s *Service) UpdateStatus(scope auth.TenantScope, id uint, status models.ShipmentStatus) (*models.Shipment, error) {
	if models.ShipmentStatusRank(status) == 0 {
		return nil, apperr.Validationf("unknown shipment status %q", status)
	}

	var out *models.Shipment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.getOwned(tx, scope, id)
		if err != nil {
			return err
		}
		if models.ShipmentStatusRank(status) < models.ShipmentStatusRank(shipment.Status) {
			return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, shipment.Status, status)
		}
		if status == models.ShipmentStatusFinalized && shipment.Status != models.ShipmentStatusFinalized {
			now := s.now().UTC()
			shipment.FinalizedAt = &now
		}
		shipment.Status = status
		if err := tx.Save(shipment).Error; err != nil {
			return err
		}
		out = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Finalize closes the verification phase. Terminal: a second call fails with
// AlreadyFinalized.
func (s *Service) Finalize(scope auth.TenantScope, id uint) (*models.Shipment, error) {
	var out *models.Shipment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.getOwned(tx, scope, id)
		if err != nil {
			return err
		}
		if shipment.Status == models.ShipmentStatusFinalized {
			return apperr.ErrAlreadyFinalized
		}
		now := s.now().UTC()
		shipment.Status = models.ShipmentStatusFinalized
		shipment.FinalizedAt = &now
		if err := tx.Save(shipment).Error; err != nil {
			return err
		}
		out = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a shipment and everything under it (manifests, scans,
// batches). Administrative cleanup; cascades are declared on the model.
func (s *Service) Delete(scope auth.TenantScope, id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.getOwned(tx, scope, id)
		if err != nil {
			return err
		}
		return tx.Select("PreAlerts", "PreRoutes", "Scans", "Batches").Delete(shipment).Error
	})
}

// CompareShipment loads both manifests and runs the pure three-way
// comparison over their identifier sets.
func (s *Service) CompareShipment(scope auth.TenantScope, id uint) (*ComparisonResult, error) {
	if _, err := s.getOwned(s.db, scope, id); err != nil {
		return nil, err
	}

	var preAlert, preRoute []string
	if err := s.db.Model(&models.PreAlertRow{}).Where("shipment_id = ?", id).Pluck("tracking_number", &preAlert).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.PreRouteRow{}).Where("shipment_id = ?", id).Pluck("tracking_number", &preRoute).Error; err != nil {
		return nil, err
	}

	result := Compare(preAlert, preRoute)
	return &result, nil
}

// VerifyResult is the outcome of one verification scan.
type VerifyResult struct {
	TrackingNumber string                    `json:"tracking_number"`
	Status         models.VerificationStatus `json:"status"`
	PreAlert       *models.PreAlertRow       `json:"pre_alert,omitempty"`
	PreRoute       *models.PreRouteRow       `json:"pre_route,omitempty"`
}

// VerifyScan categorizes one physically scanned identifier against the
// shipment's manifests and appends the scan to the verification log. The
// matched manifest rows are stamped with the verification status.
func (s *Service) VerifyScan(scope auth.TenantScope, shipmentID uint, tracking, actor string) (*VerifyResult, error) {
	normalized := models.NormalizeTracking(tracking)
	if normalized == "" {
		return nil, apperr.Validationf("tracking number is required")
	}

	var out VerifyResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.getOwned(tx, scope, shipmentID); err != nil {
			return err
		}

		var preAlert models.PreAlertRow
		hasPreAlert := true
		if err := tx.Where("shipment_id = ? AND tracking_number = ?", shipmentID, normalized).First(&preAlert).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hasPreAlert = false
		}

		var preRoute models.PreRouteRow
		hasPreRoute := true
		if err := tx.Where("shipment_id = ? AND tracking_number = ?", shipmentID, normalized).First(&preRoute).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hasPreRoute = false
		}

		status := Categorize(hasPreAlert, hasPreRoute)
		scan := models.VerificationScan{
			ShipmentID:     shipmentID,
			TrackingNumber: normalized,
			Status:         status,
			ScannedBy:      actor,
		}
		if hasPreAlert {
			scan.PreAlertRowID = &preAlert.ID
			if err := tx.Model(&preAlert).Updates(map[string]any{"verified": true, "verify_status": status}).Error; err != nil {
				return err
			}
			out.PreAlert = &preAlert
		}
		if hasPreRoute {
			scan.PreRouteRowID = &preRoute.ID
			if err := tx.Model(&preRoute).Updates(map[string]any{"verified": true, "verify_status": status}).Error; err != nil {
				return err
			}
			out.PreRoute = &preRoute
		}
		if err := tx.Create(&scan).Error; err != nil {
			return err
		}

		out.TrackingNumber = normalized
		out.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
