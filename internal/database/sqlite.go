package database

import (
	"github.com/binderbay/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	// Duplicate daily rows must be collapsed before AutoMigrate adds the
	// composite unique index, or index creation fails on old databases.
	if err := cleanupDuplicateDailySnapshots(DB); err != nil {
		return err
	}

	err = DB.AutoMigrate(
		&models.Holding{},
		&models.Listing{},
		&models.ExternalProductRef{},
		&models.PriceSnapshot{},
		&models.DailyPriceSnapshot{},
		&models.PortfolioSnapshot{},
		&models.PriceAlert{},
	)
	if err != nil {
		return err
	}

	return RunMigrations(DB)
}

func GetDB() *gorm.DB {
	return DB
}
