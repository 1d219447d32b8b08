package models

import "time"

// Provider: a vendor whose parcels move through the warehouse network. Also
// the tenant boundary for the VMS module (shipments, classifications).
type Provider struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Contact   string `gorm:"size:150" json:"contact"`
	Phone     string `gorm:"size:50" json:"phone"`
	Email     string `gorm:"size:150" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
