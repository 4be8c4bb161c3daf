package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateDailySnapshots removes duplicate daily_price_snapshots rows
// before the composite unique constraint is added. This runs BEFORE
// AutoMigrate to prevent constraint violations on databases written by older
// builds that inserted instead of upserting.
func cleanupDuplicateDailySnapshots(db *gorm.DB) error {
	if !db.Migrator().HasTable("daily_price_snapshots") {
		return nil
	}

	// Normalize NULL/empty language values before grouping on them
	result := db.Exec(`UPDATE daily_price_snapshots SET language = 'English' WHERE language IS NULL OR language = ''`)
	if result.Error != nil {
		log.Printf("Warning: failed to normalize language values: %v", result.Error)
	}

	// Keep the most recently captured row per key, drop the rest
	result = db.Exec(`
		DELETE FROM daily_price_snapshots
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM daily_price_snapshots
			GROUP BY card_id, language, source, day
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate daily_price_snapshots entries", result.RowsAffected)
	}

	return nil
}

// RunMigrations runs custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	return migrateLanguageField(db)
}

func migrateLanguageField(db *gorm.DB) error {
	// Backfill a default language on every table that carries one
	for _, table := range []string{"holdings", "listings", "price_alerts", "external_product_refs"} {
		if db.Migrator().HasColumn(table, "language") {
			db.Exec(`UPDATE ` + table + ` SET language = 'English' WHERE language IS NULL OR language = ''`)
		}
	}

	// Drop the legacy daily index that did not include language.
	// Note: AutoMigrate will not reliably drop old indexes.
	if db.Migrator().HasIndex("daily_price_snapshots", "idx_daily_card_source_day") {
		if err := db.Migrator().DropIndex("daily_price_snapshots", "idx_daily_card_source_day"); err != nil {
			log.Printf("Warning: failed to drop legacy daily snapshot index: %v", err)
		}
	}

	return nil
}
