package main

import (
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/rukztnp-boop/water-meter-app-sub000/models"
)

var db *gorm.DB

// initDB connects the optional database mirror of the ledger. The workbook
// stays the source of truth; without DB_DSN the service runs workbook-only.
func initDB() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Printf("DB_DSN not set; database mirror disabled")
		return
	}
	var err error
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.Reading{}); err != nil {
			log.Printf("migration warning (readings): %v", err)
		}
		if err := db.AutoMigrate(&models.DailyExport{}); err != nil {
			log.Printf("migration warning (daily_exports): %v", err)
		}
	}
}
