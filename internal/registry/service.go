package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/events"
	"parceltrack-backend/internal/logger"
	"parceltrack-backend/internal/models"

	"gorm.io/gorm"
)

// Service owns current parcel state and the movement ledger. Every state
// change appends exactly one PackageMovement in the same transaction as the
// Package update; bulk operations are all-or-nothing.
type Service struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter *events.Emitter
	now     func() time.Time
}

func NewService(db *gorm.DB, log *logger.Logger, emitter *events.Emitter) *Service {
	return &Service{db: db, log: log, emitter: emitter, now: time.Now}
}

// Resolve finds a parcel by reference: numeric internal id first, external
// tracking code as fallback. Both are globally unique so the order only
// matters for compatibility with callers that pass either.
func (s *Service) Resolve(ref string) (*models.Package, error) {
	return s.resolve(s.db, ref)
}

func (s *Service) resolve(tx *gorm.DB, ref string) (*models.Package, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.NotFoundf("empty package reference")
	}

	var pkg models.Package
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		if err := tx.First(&pkg, uint(id)).Error; err == nil {
			return &pkg, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := tx.Where("tracking_number = ?", models.NormalizeTracking(ref)).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("package %q", ref)
		}
		return nil, err
	}
	return &pkg, nil
}

// GetWithHistory returns the parcel plus its full movement history, newest
// first, with the provider/location references each movement needs. This is
// the one aggregate shape the detail view uses; nothing else is fetched.
func (s *Service) GetWithHistory(ref string) (*models.Package, error) {
	pkg, err := s.Resolve(ref)
	if err != nil {
		return nil, err
	}

	err = s.db.
		Preload("CurrentProvider").
		Preload("CurrentLocation.Warehouse").
		Preload("Movements", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC, id DESC")
		}).
		Preload("Movements.FromProvider").
		Preload("Movements.ToProvider").
		Preload("Movements.FromLocation").
		Preload("Movements.ToLocation").
		First(pkg, pkg.ID).Error
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	Status     models.PackageStatus
	ProviderID uint
	LocationID uint
	Tracking   string // substring match
	Limit      int
	Offset     int
}

func (s *Service) List(f ListFilter) ([]models.Package, int64, error) {
	q := s.db.Model(&models.Package{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ProviderID != 0 {
		q = q.Where("current_provider_id = ?", f.ProviderID)
	}
	if f.LocationID != 0 {
		q = q.Where("current_location_id = ?", f.LocationID)
	}
	if f.Tracking != "" {
		q = q.Where("tracking_number LIKE ?", "%"+models.NormalizeTracking(f.Tracking)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var pkgs []models.Package
	err := q.
		Preload("CurrentProvider").
		Preload("CurrentLocation.Warehouse").
		Order("created_at DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&pkgs).Error
	return pkgs, total, err
}

// IntakeInput describes one intake operation. When CreateIfMissing is false
// the reference must resolve to an existing parcel.
type IntakeInput struct {
	Ref             string
	ProviderID      uint
	LocationID      uint
	CreateIfMissing bool
	Note            string
	Actor           string
}

// Intake registers a parcel's entry into the network: status intake, current
// custodian/location set, one ledger row with from* null.
func (s *Service) Intake(in IntakeInput) (*models.Package, error) {
	tracking := models.NormalizeTracking(in.Ref)
	if tracking == "" {
		return nil, apperr.Validationf("tracking number is required")
	}

	var out *models.Package
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pkg, err := s.resolve(tx, in.Ref)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotFound) || !in.CreateIfMissing {
				return err
			}
			pkg = &models.Package{TrackingNumber: tracking}
		}

		pkg.Status = models.PackageStatusIntake
		pkg.CurrentProviderID = &in.ProviderID
		pkg.CurrentLocationID = &in.LocationID
		if err := tx.Save(pkg).Error; err != nil {
			return err
		}

		movement := models.PackageMovement{
			PackageID:    pkg.ID,
			Action:       models.ActionIntake,
			ToProviderID: &in.ProviderID,
			ToLocationID: &in.LocationID,
			Note:         in.Note,
			PerformedBy:  in.Actor,
			Timestamp:    s.now().UTC(),
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}

		out = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transfer moves a parcel to another custodian/location. Delivered parcels
// are terminal for transfer.
func (s *Service) Transfer(ref string, toProviderID, toLocationID uint, note, actor string) (*models.Package, error) {
	var out *models.Package
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pkg, err := s.resolve(tx, ref)
		if err != nil {
			return err
		}
		if pkg.Status == models.PackageStatusDelivered {
			return fmt.Errorf("%w: package %s is delivered", apperr.ErrInvalidTransition, pkg.TrackingNumber)
		}

		movement := models.PackageMovement{
			PackageID:      pkg.ID,
			Action:         models.ActionTransfer,
			FromProviderID: pkg.CurrentProviderID,
			FromLocationID: pkg.CurrentLocationID,
			ToProviderID:   &toProviderID,
			ToLocationID:   &toLocationID,
			Note:           note,
			PerformedBy:    actor,
			Timestamp:      s.now().UTC(),
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}

		pkg.Status = models.PackageStatusInTransfer
		pkg.CurrentProviderID = &toProviderID
		pkg.CurrentLocationID = &toLocationID
		if err := tx.Save(pkg).Error; err != nil {
			return err
		}

		out = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Deliver marks a parcel delivered: terminal state, ledger row with to* null.
func (s *Service) Deliver(ref, note, actor string) (*models.Package, error) {
	var out *models.Package
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pkg, err := s.resolve(tx, ref)
		if err != nil {
			return err
		}
		if pkg.Status == models.PackageStatusDelivered {
			return fmt.Errorf("%w: package %s already delivered", apperr.ErrInvalidTransition, pkg.TrackingNumber)
		}

		movement := models.PackageMovement{
			PackageID:      pkg.ID,
			Action:         models.ActionDelivery,
			FromProviderID: pkg.CurrentProviderID,
			FromLocationID: pkg.CurrentLocationID,
			Note:           note,
			PerformedBy:    actor,
			Timestamp:      s.now().UTC(),
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}

		pkg.Status = models.PackageStatusDelivered
		if err := tx.Save(pkg).Error; err != nil {
			return err
		}

		out = pkg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(events.TypeParcelDelivered, out.TrackingNumber, events.ParcelDeliveredPayload{
		PackageID:      out.ID,
		TrackingNumber: out.TrackingNumber,
		DeliveredBy:    actor,
	})
	return out, nil
}

// BulkResult reports a bulk mutation: parcels updated and ledger rows written.
type BulkResult struct {
	Updated   int `json:"updated"`
	Movements int `json:"movements"`
}

// loadBulk fetches all referenced parcels inside the transaction and fails
// unless every id resolved, so a bulk operation can never partially apply.
func loadBulk(tx *gorm.DB, ids []uint) ([]models.Package, error) {
	if len(ids) == 0 {
		return nil, apperr.ErrEmptySelection
	}

	seen := make(map[uint]struct{}, len(ids))
	unique := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}

	var pkgs []models.Package
	if err := tx.Where("id IN ?", unique).Find(&pkgs).Error; err != nil {
		return nil, err
	}
	if len(pkgs) != len(unique) {
		return nil, apperr.NotFoundf("%d of %d packages not found", len(unique)-len(pkgs), len(unique))
	}
	return pkgs, nil
}

// BulkTransfer transfers every referenced parcel in one transaction. Each
// ledger row snapshots that parcel's own prior custodian/location, never a
// shared value. Any delivered parcel aborts the whole batch.
func (s *Service) BulkTransfer(ids []uint, toProviderID, toLocationID uint, note, actor string) (*BulkResult, error) {
	var result BulkResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pkgs, err := loadBulk(tx, ids)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		movements := make([]models.PackageMovement, 0, len(pkgs))
		for i := range pkgs {
			pkg := &pkgs[i]
			if pkg.Status == models.PackageStatusDelivered {
				return fmt.Errorf("%w: package %s is delivered", apperr.ErrInvalidTransition, pkg.TrackingNumber)
			}
			movements = append(movements, models.PackageMovement{
				PackageID:      pkg.ID,
				Action:         models.ActionTransfer,
				FromProviderID: pkg.CurrentProviderID,
				FromLocationID: pkg.CurrentLocationID,
				ToProviderID:   &toProviderID,
				ToLocationID:   &toLocationID,
				Note:           note,
				PerformedBy:    actor,
				Timestamp:      now,
			})
		}

		res := tx.Model(&models.Package{}).
			Where("id IN ?", collectIDs(pkgs)).
			Updates(map[string]any{
				"status":              models.PackageStatusInTransfer,
				"current_provider_id": toProviderID,
				"current_location_id": toLocationID,
			})
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Create(&movements).Error; err != nil {
			return err
		}

		result = BulkResult{Updated: int(res.RowsAffected), Movements: len(movements)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// BulkDeliver delivers every referenced parcel in one transaction and emits
// one ParcelDelivered event per parcel after commit.
func (s *Service) BulkDeliver(ids []uint, note, actor string) (*BulkResult, error) {
	var result BulkResult
	var delivered []models.Package
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pkgs, err := loadBulk(tx, ids)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		movements := make([]models.PackageMovement, 0, len(pkgs))
		for i := range pkgs {
			pkg := &pkgs[i]
			if pkg.Status == models.PackageStatusDelivered {
				return fmt.Errorf("%w: package %s already delivered", apperr.ErrInvalidTransition, pkg.TrackingNumber)
			}
			movements = append(movements, models.PackageMovement{
				PackageID:      pkg.ID,
				Action:         models.ActionDelivery,
				FromProviderID: pkg.CurrentProviderID,
				FromLocationID: pkg.CurrentLocationID,
				Note:           note,
				PerformedBy:    actor,
				Timestamp:      now,
			})
		}

		res := tx.Model(&models.Package{}).
			Where("id IN ?", collectIDs(pkgs)).
			Update("status", models.PackageStatusDelivered)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Create(&movements).Error; err != nil {
			return err
		}

		delivered = pkgs
		result = BulkResult{Updated: int(res.RowsAffected), Movements: len(movements)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range delivered {
		s.emitter.Emit(events.TypeParcelDelivered, delivered[i].TrackingNumber, events.ParcelDeliveredPayload{
			PackageID:      delivered[i].ID,
			TrackingNumber: delivered[i].TrackingNumber,
			DeliveredBy:    actor,
		})
	}
	return &result, nil
}

// BulkUpdateStatus sets a status across parcels. The ledger action is an
// explicit required parameter: it is never inferred from the target status.
// Idempotent per parcel — a parcel already at the target status is counted
// but gets no ledger row, so re-runs don't fabricate history.
func (s *Service) BulkUpdateStatus(ids []uint, status models.PackageStatus, action models.MovementAction, note, actor string) (*BulkResult, error) {
	if !models.ValidPackageStatus(status) {
		return nil, apperr.Validationf("unknown status %q", status)
	}
	if !models.ValidMovementAction(action) {
		return nil, apperr.Validationf("unknown movement action %q", action)
	}

	var result BulkResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		pkgs, err := loadBulk(tx, ids)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		var movements []models.PackageMovement
		for i := range pkgs {
			pkg := &pkgs[i]
			if pkg.Status == status {
				continue // no transition, no ledger row
			}
			movements = append(movements, models.PackageMovement{
				PackageID:      pkg.ID,
				Action:         action,
				FromProviderID: pkg.CurrentProviderID,
				FromLocationID: pkg.CurrentLocationID,
				ToProviderID:   pkg.CurrentProviderID,
				ToLocationID:   pkg.CurrentLocationID,
				Note:           note,
				PerformedBy:    actor,
				Timestamp:      now,
			})
		}

		res := tx.Model(&models.Package{}).
			Where("id IN ?", collectIDs(pkgs)).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if len(movements) > 0 {
			if err := tx.Create(&movements).Error; err != nil {
				return err
			}
		}

		result = BulkResult{Updated: int(res.RowsAffected), Movements: len(movements)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func collectIDs(pkgs []models.Package) []uint {
	ids := make([]uint, len(pkgs))
	for i := range pkgs {
		ids[i] = pkgs[i].ID
	}
	return ids
}
