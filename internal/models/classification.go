package models

import "time"

// ClassificationBatch: a snapshot binding a shipment to the vehicle/stop-order
// assignment its parcels get scanned against. ProviderID is denormalized from
// the shipment so tenant checks don't need a join. The finalized flag is its
// own terminal marker, independent of the shipment's finalization.
type ClassificationBatch struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ShipmentID  uint       `gorm:"index;not null" json:"shipment_id"`
	Shipment    *Shipment  `json:"shipment,omitempty"`
	ProviderID  uint       `gorm:"index;not null" json:"provider_id"`
	TotalRows   int        `gorm:"not null" json:"total_rows"`
	UploadedBy  string     `gorm:"size:150" json:"uploaded_by"`
	Finalized   bool       `gorm:"default:false" json:"finalized"`
	FinalizedAt *time.Time `json:"finalized_at"`
	FinalizedBy string     `gorm:"size:150" json:"finalized_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Entries []ClassificationEntry `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

// ClassificationEntry: one identifier's vehicle assignment plus its scan
// state. Unique per (batch, tracking) — the same identifier may appear in a
// later re-uploaded batch, never twice in one. The scanned flag flips exactly
// once; the unique index plus a conditional update serialize concurrent scans.
type ClassificationEntry struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	BatchID        uint       `gorm:"not null;uniqueIndex:idx_entry_batch_tracking" json:"batch_id"`
	TrackingNumber string     `gorm:"size:100;not null;uniqueIndex:idx_entry_batch_tracking" json:"tracking_number"`
	Vehicle        string     `gorm:"size:100;not null;index" json:"vehicle"`
	VisitOrder     string     `gorm:"size:50" json:"visit_order"`
	RouteOrder     int        `gorm:"not null" json:"route_order"`
	Scanned        bool       `gorm:"default:false" json:"scanned"`
	ScannedAt      *time.Time `json:"scanned_at"`
	ScannedBy      string     `gorm:"size:150" json:"scanned_by"`
	CreatedAt      time.Time  `json:"created_at"`
}
