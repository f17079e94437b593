package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/etude-works/etude-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// defaultSQLitePath is the local database file used when DATABASE_URL is unset.
const defaultSQLitePath = "etude.db"

// Connect opens the database named by databaseURL. A postgres:// or
// postgresql:// URL selects the Postgres driver; anything else is treated as
// a SQLite file path. An empty URL falls back to a local etude.db file.
func Connect(databaseURL string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		log.Printf("✅ Connected to Postgres database")
	case databaseURL == "":
		db, err = gorm.Open(sqlite.Open(defaultSQLitePath), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", defaultSQLitePath, err)
		}
		log.Printf("✅ Connected to SQLite database at %s", defaultSQLitePath)
	default:
		db, err = gorm.Open(sqlite.Open(databaseURL), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", databaseURL, err)
		}
		log.Printf("✅ Connected to SQLite database at %s", databaseURL)
	}

	return db, nil
}

// Migrate runs schema migrations for all persisted models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Piece{},
		&models.AnalysisRecord{},
		&models.UsageLog{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("✅ Database migrations complete")
	return nil
}
