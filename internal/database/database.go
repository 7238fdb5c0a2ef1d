package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"armonia/internal/models"
)

// ErrStorageUnavailable wraps any failure to open the local database.
// Callers degrade to in-memory-only operation instead of aborting.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// Config holds DB configuration
type Config struct {
	Path     string
	LogLevel logger.LogLevel
}

// Init opens the SQLite DB, runs migrations and stamps the schema version.
func Init(cfg Config) (*gorm.DB, error) {
	if cfg.Path == "" {
		cfg.Path = GetDefaultDBPath()
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", cfg.Path)

	gormLogger := logger.New(
		log.New(loggerWriter{}, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrStorageUnavailable, err)
	}

	// Single connection keeps SQLite from returning "database is locked"
	// when the sweep goroutine and a save interleave.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: get sql db: %v", ErrStorageUnavailable, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return db, nil
}

// migrate runs all automigrations. Keep the model list in one place.
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Conversation{},
		&models.Settings{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return stampSchemaVersion(db)
}

// stampSchemaVersion ensures the single settings row exists and records the
// version this build writes.
func stampSchemaVersion(db *gorm.DB) error {
	settings := models.Settings{ID: 1, Version: models.SchemaVersion}
	if err := db.Where(models.Settings{ID: 1}).
		Assign(models.Settings{Version: models.SchemaVersion}).
		FirstOrCreate(&settings).Error; err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return nil
}

// loggerWriter satisfies io.Writer for GORM logger but delegates to std log.Printf
type loggerWriter struct{}

func (loggerWriter) Write(p []byte) (int, error) {
	log.Printf("%s", p)
	return len(p), nil
}
