// Package db provides database connection and schema management for the town hall server.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gmr0780/bahamas-town-hall/internal/config"
)

// DSN builds a MySQL DSN from database settings.
func DSN(cfg config.DatabaseConfig) string {
	cred := cfg.User
	if cfg.Pass != "" {
		cred += ":" + cfg.Pass
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", cred, cfg.Host, cfg.Port, cfg.Name)
}

// Connect opens a GORM connection for the configured driver. TranslateError
// is enabled so duplicate-key violations surface as gorm.ErrDuplicatedKey
// regardless of driver.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.Driver {
	case "mysql":
		conn, err = gorm.Open(mysql.Open(DSN(cfg)), gormCfg)
	default:
		conn, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("db: connect (%s): %w", cfg.Driver, err)
	}
	return conn, nil
}
