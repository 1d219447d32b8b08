package models

import "time"

type PackageStatus string

const (
	PackageStatusIntake     PackageStatus = "intake"
	PackageStatusStored     PackageStatus = "stored"
	PackageStatusInTransfer PackageStatus = "in_transfer"
	PackageStatusDelivered  PackageStatus = "delivered"
)

// ValidPackageStatus reports whether s is one of the known lifecycle states.
func ValidPackageStatus(s PackageStatus) bool {
	switch s {
	case PackageStatusIntake, PackageStatusStored, PackageStatusInTransfer, PackageStatusDelivered:
		return true
	}
	return false
}

// Package: current state of one physical parcel. Tracking numbers are
// normalized to upper case before writing, so the unique index is effectively
// case-insensitive. Mutated only through registry operations, each of which
// appends a PackageMovement in the same transaction.
type Package struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	TrackingNumber    string `gorm:"size:100;not null;uniqueIndex" json:"tracking_number"`
	CurrentProviderID *uint  `gorm:"index" json:"current_provider_id"`
	CurrentProvider   *Provider `json:"current_provider,omitempty"`
	CurrentLocationID *uint  `gorm:"index" json:"current_location_id"`
	CurrentLocation   *Location `json:"current_location,omitempty"`
	Status            PackageStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Movements []PackageMovement `gorm:"foreignKey:PackageID" json:"movements,omitempty"`
}

type MovementAction string

const (
	ActionIntake   MovementAction = "intake"
	ActionTransfer MovementAction = "transfer"
	ActionDelivery MovementAction = "delivery"
)

// ValidMovementAction reports whether a is a known ledger action.
func ValidMovementAction(a MovementAction) bool {
	switch a {
	case ActionIntake, ActionTransfer, ActionDelivery:
		return true
	}
	return false
}

// PackageMovement: one immutable ledger row. from* capture the parcel's state
// before the transition, to* the state after. Intake has from* null, delivery
// has to* null. Never updated, never deleted.
type PackageMovement struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	PackageID      uint           `gorm:"index;not null" json:"package_id"`
	Action         MovementAction `gorm:"size:20;not null" json:"action"`
	FromProviderID *uint          `json:"from_provider_id"`
	FromProvider   *Provider      `json:"from_provider,omitempty"`
	ToProviderID   *uint          `json:"to_provider_id"`
	ToProvider     *Provider      `json:"to_provider,omitempty"`
	FromLocationID *uint          `json:"from_location_id"`
	FromLocation   *Location      `json:"from_location,omitempty"`
	ToLocationID   *uint          `json:"to_location_id"`
	ToLocation     *Location      `json:"to_location,omitempty"`
	Note           string         `gorm:"size:255" json:"note"`
	PerformedBy    string         `gorm:"size:150" json:"performed_by"`
	Timestamp      time.Time      `gorm:"index;not null" json:"timestamp"`
}
