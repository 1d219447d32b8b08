package reconcile

import (
	"errors"
	"time"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/logger"
	"parceltrack-backend/internal/models"

	"gorm.io/gorm"
)

// ScanStatus is the outcome of one classification scan.
type ScanStatus string

const (
	ScanClassified  ScanStatus = "CLASSIFIED"      // first scan, entry stamped now
	ScanAlreadyDone ScanStatus = "ALREADY_SCANNED" // entry keeps its original stamp
	ScanNoMatch     ScanStatus = "NO_MATCH"        // identifier not in this batch
)

// Service manages classification batches: the vehicle/stop-order assignment a
// finalized shipment's verified parcels are scanned against at the sorting
// belt.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewService(db *gorm.DB, log *logger.Logger) *Service {
	return &Service{db: db, log: log, now: time.Now}
}

func (s *Service) getBatch(tx *gorm.DB, scope auth.TenantScope, id uint) (*models.ClassificationBatch, error) {
	var batch models.ClassificationBatch
	if err := tx.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("classification batch %d", id)
		}
		return nil, err
	}
	if err := scope.Authorize(batch.ProviderID); err != nil {
		return nil, err
	}
	return &batch, nil
}

// BatchRowInput is one uploaded assignment row.
type BatchRowInput struct {
	TrackingNumber string `json:"tracking_number"`
	Vehicle        string `json:"vehicle"`
	VisitOrder     string `json:"visit_order"`
}

// UploadSummary reports what an upload kept and what it dropped.
type UploadSummary struct {
	BatchID           uint           `json:"batch_id"`
	ShipmentID        uint           `json:"shipment_id"`
	TotalRows         int            `json:"total_rows"`
	PerVehicle        map[string]int `json:"per_vehicle"`
	SkippedInvalid    int            `json:"skipped_invalid"`
	SkippedUnverified int            `json:"skipped_unverified"`
	SkippedDuplicate  int            `json:"skipped_duplicate"`
}

// UploadBatch snapshots a vehicle assignment for a finalized shipment. Only
// identifiers with a matched verification scan make it into the batch; the
// rest are counted, not inserted. Route order is assigned per vehicle in
// upload order, starting at 1.
func (s *Service) UploadBatch(scope auth.TenantScope, shipmentID uint, rows []BatchRowInput, actor string) (*UploadSummary, error) {
	if len(rows) == 0 {
		return nil, apperr.ErrEmptySelection
	}

	summary := &UploadSummary{ShipmentID: shipmentID, PerVehicle: map[string]int{}}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var shipment models.Shipment
		if err := tx.First(&shipment, shipmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("shipment %d", shipmentID)
			}
			return err
		}
		if err := scope.Authorize(shipment.ProviderID); err != nil {
			return err
		}
		if shipment.Status != models.ShipmentStatusFinalized {
			return apperr.Validationf("shipment %d is not finalized", shipmentID)
		}

		// Only identifiers that passed verification as matched are
		// classifiable.
		var matched []string
		if err := tx.Model(&models.VerificationScan{}).
			Where("shipment_id = ? AND status = ?", shipmentID, models.VerifyMatched).
			Distinct().Pluck("tracking_number", &matched).Error; err != nil {
			return err
		}
		verified := make(map[string]struct{}, len(matched))
		for _, t := range matched {
			verified[t] = struct{}{}
		}

		batch := models.ClassificationBatch{
			ShipmentID: shipmentID,
			ProviderID: shipment.ProviderID,
			UploadedBy: actor,
		}
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
		summary.BatchID = batch.ID

		orderPerVehicle := map[string]int{}
		seen := map[string]struct{}{}
		entries := make([]models.ClassificationEntry, 0, len(rows))
		for _, in := range rows {
			tracking := models.NormalizeTracking(in.TrackingNumber)
			if tracking == "" || in.Vehicle == "" {
				summary.SkippedInvalid++
				continue
			}
			if _, dup := seen[tracking]; dup {
				summary.SkippedDuplicate++
				continue
			}
			seen[tracking] = struct{}{}
			if _, ok := verified[tracking]; !ok {
				summary.SkippedUnverified++
				continue
			}

			orderPerVehicle[in.Vehicle]++
			entries = append(entries, models.ClassificationEntry{
				BatchID:        batch.ID,
				TrackingNumber: tracking,
				Vehicle:        in.Vehicle,
				VisitOrder:     in.VisitOrder,
				RouteOrder:     orderPerVehicle[in.Vehicle],
			})
			summary.PerVehicle[in.Vehicle]++
		}

		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		summary.TotalRows = len(entries)
		return tx.Model(&batch).Update("total_rows", summary.TotalRows).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("classification batch uploaded",
		"batch_id", summary.BatchID, "shipment_id", shipmentID,
		"rows", summary.TotalRows, "actor", actor)
	return summary, nil
}

// ScanResult is what the belt operator sees after one scan.
type ScanResult struct {
	Status         ScanStatus `json:"status"`
	TrackingNumber string     `json:"tracking_number"`
	Vehicle        string     `json:"vehicle,omitempty"`
	VisitOrder     string     `json:"visit_order,omitempty"`
	RouteOrder     int        `json:"route_order,omitempty"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
	ScannedBy      string     `json:"scanned_by,omitempty"`
}

// Scan resolves one identifier against a batch. First scan stamps the entry
// and returns CLASSIFIED; repeats return ALREADY_SCANNED with the original
// stamp. Two concurrent scans race on a conditional update over the scanned
// flag, so exactly one wins. An unknown identifier is a NO_MATCH outcome, not
// an error.
func (s *Service) Scan(scope auth.TenantScope, batchID uint, tracking, actor string) (*ScanResult, error) {
	normalized := models.NormalizeTracking(tracking)
	if normalized == "" {
		return nil, apperr.Validationf("tracking number is required")
	}

	if _, err := s.getBatch(s.db, scope, batchID); err != nil {
		return nil, err
	}

	var entry models.ClassificationEntry
	if err := s.db.Where("batch_id = ? AND tracking_number = ?", batchID, normalized).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ScanResult{Status: ScanNoMatch, TrackingNumber: normalized}, nil
		}
		return nil, err
	}

	result := &ScanResult{
		TrackingNumber: entry.TrackingNumber,
		Vehicle:        entry.Vehicle,
		VisitOrder:     entry.VisitOrder,
		RouteOrder:     entry.RouteOrder,
	}

	now := s.now().UTC()
	res := s.db.Model(&models.ClassificationEntry{}).
		Where("id = ? AND scanned = ?", entry.ID, false).
		Updates(map[string]any{"scanned": true, "scanned_at": now, "scanned_by": actor})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		result.Status = ScanClassified
		result.ScannedAt = &now
		result.ScannedBy = actor
		return result, nil
	}

	// Lost the race or a plain repeat: report the stamp already on record.
	if err := s.db.First(&entry, entry.ID).Error; err != nil {
		return nil, err
	}
	result.Status = ScanAlreadyDone
	result.ScannedAt = entry.ScannedAt
	result.ScannedBy = entry.ScannedBy
	return result, nil
}

// VehicleStats is the scan progress of one vehicle within a batch.
type VehicleStats struct {
	Vehicle string `json:"vehicle"`
	Total   int    `json:"total"`
	Scanned int    `json:"scanned"`
	Pending int    `json:"pending"`
}

// BatchStats is the scan progress of a whole batch. Per-vehicle rows always
// sum to the totals.
type BatchStats struct {
	BatchID   uint           `json:"batch_id"`
	Total     int            `json:"total"`
	Scanned   int            `json:"scanned"`
	Pending   int            `json:"pending"`
	Finalized bool           `json:"finalized"`
	Vehicles  []VehicleStats `json:"vehicles"`
}

// Stats aggregates scan progress for a batch, overall and per vehicle.
func (s *Service) Stats(scope auth.TenantScope, batchID uint) (*BatchStats, error) {
	batch, err := s.getBatch(s.db, scope, batchID)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Vehicle string
		Total   int
		Scanned int
	}
	if err := s.db.Model(&models.ClassificationEntry{}).
		Select("vehicle, COUNT(*) AS total, SUM(CASE WHEN scanned THEN 1 ELSE 0 END) AS scanned").
		Where("batch_id = ?", batchID).
		Group("vehicle").Order("vehicle").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &BatchStats{BatchID: batchID, Finalized: batch.Finalized, Vehicles: []VehicleStats{}}
	for _, r := range rows {
		stats.Vehicles = append(stats.Vehicles, VehicleStats{
			Vehicle: r.Vehicle,
			Total:   r.Total,
			Scanned: r.Scanned,
			Pending: r.Total - r.Scanned,
		})
		stats.Total += r.Total
		stats.Scanned += r.Scanned
	}
	stats.Pending = stats.Total - stats.Scanned
	return stats, nil
}

// FinalizeBatch marks a batch closed. Advisory only: it records who declared
// the belt done, it does not block further scans. Terminal per batch.
func (s *Service) FinalizeBatch(scope auth.TenantScope, batchID uint, actor string) (*models.ClassificationBatch, error) {
	var out *models.ClassificationBatch
	err := s.db.Transaction(func(tx *gorm.DB) error {
		batch, err := s.getBatch(tx, scope, batchID)
		if err != nil {
			return err
		}
		if batch.Finalized {
			return apperr.ErrAlreadyFinalized
		}
		now := s.now().UTC()
		batch.Finalized = true
		batch.FinalizedAt = &now
		batch.FinalizedBy = actor
		if err := tx.Save(batch).Error; err != nil {
			return err
		}
		out = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TrackingHit is one classification entry found by a cross-batch search.
type TrackingHit struct {
	Entry      models.ClassificationEntry `json:"entry"`
	BatchID    uint                       `json:"batch_id"`
	ShipmentID uint                       `json:"shipment_id"`
	Finalized  bool                       `json:"batch_finalized"`
}

// SearchTracking finds the most recent classification of an identifier across
// every batch the scope may see.
func (s *Service) SearchTracking(scope auth.TenantScope, tracking string) (*TrackingHit, error) {
	normalized := models.NormalizeTracking(tracking)
	if normalized == "" {
		return nil, apperr.Validationf("tracking number is required")
	}

	q := s.db.Model(&models.ClassificationEntry{}).
		Joins("JOIN classification_batches ON classification_batches.id = classification_entries.batch_id").
		Where("classification_entries.tracking_number = ?", normalized)
	if !scope.IsUnrestricted() {
		q = q.Where("classification_batches.provider_id = ?", *scope.ProviderID)
	}

	var entry models.ClassificationEntry
	if err := q.Order("classification_entries.created_at DESC, classification_entries.id DESC").First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("tracking %s", normalized)
		}
		return nil, err
	}

	var batch models.ClassificationBatch
	if err := s.db.First(&batch, entry.BatchID).Error; err != nil {
		return nil, err
	}
	return &TrackingHit{
		Entry:      entry,
		BatchID:    batch.ID,
		ShipmentID: batch.ShipmentID,
		Finalized:  batch.Finalized,
	}, nil
}

// ListBatches returns the batches of a shipment, newest first.
func (s *Service) ListBatches(scope auth.TenantScope, shipmentID uint) ([]models.ClassificationBatch, error) {
	var shipment models.Shipment
	if err := s.db.First(&shipment, shipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("shipment %d", shipmentID)
		}
		return nil, err
	}
	if err := scope.Authorize(shipment.ProviderID); err != nil {
		return nil, err
	}

	var batches []models.ClassificationBatch
	if err := s.db.Where("shipment_id = ?", shipmentID).Order("created_at DESC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// EntryFilter narrows ListEntries. Zero values mean "no filter".
type EntryFilter struct {
	Vehicle string
	Scanned *bool
}

// ListEntries returns a batch's entries ordered by vehicle then route order.
func (s *Service) ListEntries(scope auth.TenantScope, batchID uint, filter EntryFilter) ([]models.ClassificationEntry, error) {
	if _, err := s.getBatch(s.db, scope, batchID); err != nil {
		return nil, err
	}

	q := s.db.Where("batch_id = ?", batchID)
	if filter.Vehicle != "" {
		q = q.Where("vehicle = ?", filter.Vehicle)
	}
	if filter.Scanned != nil {
		q = q.Where("scanned = ?", *filter.Scanned)
	}

	var entries []models.ClassificationEntry
	if err := q.Order("vehicle, route_order").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
