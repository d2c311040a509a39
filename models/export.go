package models

import "time"

// DailyExport is the result-sink row: one value per point per target date,
// upserted idempotently on (point_id, target_date).
type DailyExport struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PointID      string    `gorm:"size:64;not null;uniqueIndex:idx_point_date"`
	TargetDate   time.Time `gorm:"not null;uniqueIndex:idx_point_date"`
	Value        float64   `gorm:"not null"`
	ReportColumn string    `gorm:"size:32"`
}
