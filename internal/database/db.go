package database

import (
	"fmt"

	"parceltrack-backend/internal/config"
	"parceltrack-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres connection and runs migrations. The handle is
// returned to the caller and injected into the services; there is no package
// global, so the entry point owns the connection lifecycle.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema. Shared with tests, which run it on sqlite.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Provider{},
		&models.Warehouse{},
		&models.Location{},
		&models.User{},
		&models.Package{},
		&models.PackageMovement{},
		&models.Shipment{},
		&models.PreAlertRow{},
		&models.PreRouteRow{},
		&models.VerificationScan{},
		&models.ClassificationBatch{},
		&models.ClassificationEntry{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
