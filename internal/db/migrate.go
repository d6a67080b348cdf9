package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/gmr0780/bahamas-town-hall/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Citizen{},
		&models.Question{},
		&models.Response{},
		&models.SiteSetting{},
		&models.PageView{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
