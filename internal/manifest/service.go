package manifest

import (
	"errors"
	"fmt"

	"parceltrack-backend/internal/apperr"
	"parceltrack-backend/internal/auth"
	"parceltrack-backend/internal/events"
	"parceltrack-backend/internal/logger"
	"parceltrack-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service bulk-loads the two declarative manifests of a shipment. Uploads are
// re-runnable: rows whose (shipment, tracking) pair already exists are
// skipped, row-level validation failures are reported instead of aborting the
// batch.
type Service struct {
	db      *gorm.DB
	log     *logger.Logger
	emitter *events.Emitter
}

func NewService(db *gorm.DB, log *logger.Logger, emitter *events.Emitter) *Service {
	return &Service{db: db, log: log, emitter: emitter}
}

// PreAlertRowInput is one pre-alert row as uploaded. Weight and Value are
// loosely typed because spreadsheet exports serialize them inconsistently.
type PreAlertRowInput struct {
	TrackingNumber string `json:"tracking_number"`
	Client         string `json:"client"`
	Country        string `json:"country"`
	Buyer          string `json:"buyer"`
	BuyerAddress   string `json:"buyer_address"`
	BuyerCity      string `json:"buyer_city"`
	BuyerState     string `json:"buyer_state"`
	BuyerZip       string `json:"buyer_zip"`
	Weight         any    `json:"weight"`
	Value          any    `json:"value"`
}

// PreRouteRowInput is one pre-route row as uploaded.
type PreRouteRowInput struct {
	TrackingNumber string `json:"tracking_number"`
	ClientCode     string `json:"client_code"`
	ClientName     string `json:"client_name"`
	Address        string `json:"address"`
	Route          string `json:"route"`
	Vehicle        string `json:"vehicle"`
	Driver         string `json:"driver"`
	DeliveryDate   any    `json:"delivery_date"`
	WeightKg       any    `json:"weight_kg"`
	VolumeM3       any    `json:"volume_m3"`
	Amount         any    `json:"amount"`
}

type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// LoadReport is the per-upload outcome: how many rows landed, how many were
// duplicates of earlier uploads, and which rows failed validation.
type LoadReport struct {
	ShipmentID uint       `json:"shipment_id"`
	Imported   int        `json:"imported"`
	Skipped    int        `json:"skipped"`
	Errors     []RowError `json:"errors"`
}

// LoadPreAlert inserts pre-alert rows. shipmentID 0 creates a new shipment:
// for a restricted scope it belongs to the caller's provider, an unrestricted
// caller must pass providerID explicitly. Emits ShipmentUploaded.
func (s *Service) LoadPreAlert(scope auth.TenantScope, shipmentID, providerID uint, rows []PreAlertRowInput, actor string) (*LoadReport, error) {
	if len(rows) == 0 {
		return nil, apperr.ErrEmptySelection
	}

	report := &LoadReport{}
	parsed := make([]models.PreAlertRow, 0, len(rows))
	for i, in := range rows {
		tracking := models.NormalizeTracking(in.TrackingNumber)
		if tracking == "" {
			report.Errors = append(report.Errors, RowError{Row: i, Field: "tracking_number", Message: "required"})
			continue
		}

		row := models.PreAlertRow{
			TrackingNumber: tracking,
			Client:         in.Client,
			Country:        in.Country,
			Buyer:          in.Buyer,
			BuyerAddress:   in.BuyerAddress,
			BuyerCity:      in.BuyerCity,
			BuyerState:     in.BuyerState,
			BuyerZip:       in.BuyerZip,
		}
		ok := true
		if in.Weight != nil {
			w, err := ParseFlexibleNumber(in.Weight)
			if err != nil {
				report.Errors = append(report.Errors, RowError{Row: i, Field: "weight", Message: err.Error()})
				ok = false
			}
			row.Weight = w
		}
		if in.Value != nil {
			v, err := ParseFlexibleNumber(in.Value)
			if err != nil {
				report.Errors = append(report.Errors, RowError{Row: i, Field: "value", Message: err.Error()})
				ok = false
			}
			row.Value = v
		}
		if ok {
			parsed = append(parsed, row)
		}
	}

	var ownerProviderID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		shipment, err := s.resolveOrCreateShipment(tx, scope, shipmentID, providerID, actor)
		if err != nil {
			return err
		}
		report.ShipmentID = shipment.ID
		ownerProviderID = shipment.ProviderID

		if len(parsed) > 0 {
			for i := range parsed {
				parsed[i].ShipmentID = shipment.ID
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "shipment_id"}, {Name: "tracking_number"}},
				DoNothing: true,
			}).Create(&parsed)
			if res.Error != nil {
				return res.Error
			}
			report.Imported = int(res.RowsAffected)
			report.Skipped = len(parsed) - report.Imported
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(events.TypeShipmentUploaded, fmt.Sprintf("shipment-%d", report.ShipmentID), events.ShipmentUploadedPayload{
		ShipmentID: report.ShipmentID,
		ProviderID: ownerProviderID,
		Rows:       report.Imported,
		UploadedBy: actor,
	})
	return report, nil
}

// LoadPreRoute inserts pre-route rows into an existing shipment and advances
// its status to pre_route when it is still at pre_alert. Same duplicate-skip
// and row-report contract as LoadPreAlert.
func (s *Service) LoadPreRoute(scope auth.TenantScope, shipmentID uint, rows []PreRouteRowInput, actor string) (*LoadReport, error) {
	if len(rows) == 0 {
		return nil, apperr.ErrEmptySelection
	}

	report := &LoadReport{ShipmentID: shipmentID}
	parsed := make([]models.PreRouteRow, 0, len(rows))
	for i, in := range rows {
		tracking := models.NormalizeTracking(in.TrackingNumber)
		if tracking == "" {
			report.Errors = append(report.Errors, RowError{Row: i, Field: "tracking_number", Message: "required"})
			continue
		}

		row := models.PreRouteRow{
			ShipmentID:     shipmentID,
			TrackingNumber: tracking,
			ClientCode:     in.ClientCode,
			ClientName:     in.ClientName,
			Address:        in.Address,
			Route:          in.Route,
			Vehicle:        in.Vehicle,
			Driver:         in.Driver,
		}
		ok := true
		if in.DeliveryDate != nil {
			d, err := ParseFlexibleDate(in.DeliveryDate)
			if err != nil {
				report.Errors = append(report.Errors, RowError{Row: i, Field: "delivery_date", Message: err.Error()})
				ok = false
			}
			row.DeliveryDate = d
		}
		for _, f := range []struct {
			name string
			raw  any
			dst  **float64
		}{
			{"weight_kg", in.WeightKg, &row.WeightKg},
			{"volume_m3", in.VolumeM3, &row.VolumeM3},
			{"amount", in.Amount, &row.Amount},
		} {
			if f.raw == nil {
				continue
			}
			n, err := ParseFlexibleNumber(f.raw)
			if err != nil {
				report.Errors = append(report.Errors, RowError{Row: i, Field: f.name, Message: err.Error()})
				ok = false
				continue
			}
			*f.dst = &n
		}
		if ok {
			parsed = append(parsed, row)
		}
	}

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

		if len(parsed) > 0 {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "shipment_id"}, {Name: "tracking_number"}},
				DoNothing: true,
			}).Create(&parsed)
			if res.Error != nil {
				return res.Error
			}
			report.Imported = int(res.RowsAffected)
			report.Skipped = len(parsed) - report.Imported
		}

		// Forward-only: re-uploads against a later status leave it alone.
		if shipment.Status == models.ShipmentStatusPreAlert {
			if err := tx.Model(&shipment).Update("status", models.ShipmentStatusPreRoute).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) resolveOrCreateShipment(tx *gorm.DB, scope auth.TenantScope, shipmentID, providerID uint, actor string) (*models.Shipment, error) {
	if shipmentID != 0 {
		var shipment models.Shipment
		if err := tx.First(&shipment, shipmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFoundf("shipment %d", shipmentID)
			}
			return nil, err
		}
		if err := scope.Authorize(shipment.ProviderID); err != nil {
			return nil, err
		}
		return &shipment, nil
	}

	owner := providerID
	if !scope.IsUnrestricted() {
		owner = *scope.ProviderID
	}
	if owner == 0 {
		return nil, apperr.Validationf("provider_id is required to create a shipment")
	}

	shipment := models.Shipment{
		ProviderID: owner,
		Status:     models.ShipmentStatusPreAlert,
		CreatedBy:  actor,
	}
	if err := tx.Create(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}
