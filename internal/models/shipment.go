package models

import "time"

type ShipmentStatus string

const (
	ShipmentStatusPreAlert  ShipmentStatus = "pre_alert"
	ShipmentStatusPreRoute  ShipmentStatus = "pre_route"
	ShipmentStatusFinalized ShipmentStatus = "finalized"
)

// shipmentStatusRank orders the lifecycle. Transitions may only move forward.
var shipmentStatusRank = map[ShipmentStatus]int{
	ShipmentStatusPreAlert:  1,
	ShipmentStatusPreRoute:  2,
	ShipmentStatusFinalized: 3,
}

// ShipmentStatusRank returns the lifecycle rank of s, or 0 if unknown.
func ShipmentStatusRank(s ShipmentStatus) int { return shipmentStatusRank[s] }

// Shipment: a tenant-owned lot. Holds the pre-alert and pre-route manifests,
// the verification scans against them and the classification batches derived
// from them. Status only ever moves forward; finalization is terminal.
type Shipment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ProviderID  uint           `gorm:"index;not null" json:"provider_id"`
	Provider    *Provider      `json:"provider,omitempty"`
	Status      ShipmentStatus `gorm:"size:20;not null" json:"status"`
	CreatedBy   string         `gorm:"size:150" json:"created_by"`
	FinalizedAt *time.Time     `json:"finalized_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	PreAlerts []PreAlertRow         `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"pre_alerts,omitempty"`
	PreRoutes []PreRouteRow         `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"pre_routes,omitempty"`
	Scans     []VerificationScan    `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"scans,omitempty"`
	Batches   []ClassificationBatch `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE" json:"batches,omitempty"`
}

// PreAlertRow: one identifier the vendor declared as expected, with buyer
// metadata. Unique per (shipment, tracking); re-uploads skip duplicates.
type PreAlertRow struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	ShipmentID     uint    `gorm:"not null;uniqueIndex:idx_pre_alert_shipment_tracking" json:"shipment_id"`
	TrackingNumber string  `gorm:"size:100;not null;uniqueIndex:idx_pre_alert_shipment_tracking" json:"tracking_number"`
	Client         string  `gorm:"size:150" json:"client"`
	Country        string  `gorm:"size:100" json:"country"`
	Buyer          string  `gorm:"size:150" json:"buyer"`
	BuyerAddress   string  `gorm:"size:255" json:"buyer_address"`
	BuyerCity      string  `gorm:"size:100" json:"buyer_city"`
	BuyerState     string  `gorm:"size:100" json:"buyer_state"`
	BuyerZip       string  `gorm:"size:20" json:"buyer_zip"`
	Weight         float64 `json:"weight"`
	Value          float64 `json:"value"`
	Verified       bool    `gorm:"default:false" json:"verified"`
	VerifyStatus   string  `gorm:"size:20" json:"verify_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// PreRouteRow: one identifier actually scheduled onto a delivery route.
// Same uniqueness and duplicate-skip policy as PreAlertRow.
type PreRouteRow struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ShipmentID     uint      `gorm:"not null;uniqueIndex:idx_pre_route_shipment_tracking" json:"shipment_id"`
	TrackingNumber string    `gorm:"size:100;not null;uniqueIndex:idx_pre_route_shipment_tracking" json:"tracking_number"`
	ClientCode     string    `gorm:"size:100" json:"client_code"`
	ClientName     string    `gorm:"size:150" json:"client_name"`
	Address        string    `gorm:"size:255" json:"address"`
	Route          string    `gorm:"size:100" json:"route"`
	Vehicle        string    `gorm:"size:100" json:"vehicle"`
	Driver         string    `gorm:"size:150" json:"driver"`
	DeliveryDate   time.Time `json:"delivery_date"`
	WeightKg       *float64  `json:"weight_kg"`
	VolumeM3       *float64  `json:"volume_m3"`
	Amount         *float64  `json:"amount"`
	Verified       bool      `gorm:"default:false" json:"verified"`
	VerifyStatus   string    `gorm:"size:20" json:"verify_status"`
	CreatedAt      time.Time `json:"created_at"`
}

type VerificationStatus string

const (
	VerifyMatched       VerificationStatus = "matched"         // in both manifests
	VerifyExcess        VerificationStatus = "excess"          // in neither
	VerifyOutOfCoverage VerificationStatus = "out_of_coverage" // pre-alert only
	VerifyStale         VerificationStatus = "stale"           // pre-route only
)

// VerificationScan: append-only record of one physical scan against the two
// manifests of a shipment. Duplicate scans of the same identifier are allowed;
// this is an operator audit trail, not a state machine.
type VerificationScan struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	ShipmentID     uint               `gorm:"index;not null" json:"shipment_id"`
	TrackingNumber string             `gorm:"size:100;not null;index" json:"tracking_number"`
	Status         VerificationStatus `gorm:"size:20;not null" json:"status"`
	PreAlertRowID  *uint              `json:"pre_alert_row_id"`
	PreRouteRowID  *uint              `json:"pre_route_row_id"`
	ScannedBy      string             `gorm:"size:150" json:"scanned_by"`
	CreatedAt      time.Time          `json:"created_at"`
}
