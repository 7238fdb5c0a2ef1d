package models

import "time"

// SchemaVersion is the current on-disk schema version. Bump it when the
// conversation layout changes in a way AutoMigrate cannot express.
const SchemaVersion = 1

// Settings is a single-row table (ID=1) recording the schema version the
// database was last opened with.
type Settings struct {
	ID        uint `gorm:"primaryKey"`
	Version   int  `gorm:"not null;default:1"`
	UpdatedAt time.Time
}
