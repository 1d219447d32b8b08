package models

import "time"

// Warehouse: a physical site holding one or more storage locations.
type Warehouse struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:150;not null" json:"name"`
	Address   string `gorm:"size:255" json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Locations []Location `gorm:"foreignKey:WarehouseID;constraint:OnDelete:CASCADE" json:"locations,omitempty"`
}

// Location: a named slot inside a warehouse (dock, rack, staging area).
type Location struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	WarehouseID uint   `gorm:"index;not null" json:"warehouse_id"`
	Warehouse   *Warehouse `json:"warehouse,omitempty"`
	Name        string `gorm:"size:150;not null" json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
