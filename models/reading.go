package models

import "time"

// Reading mirrors one ledger row in the database so the review console can
// query without opening the workbook. Rows are append-only.
type Reading struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	PointID     string `gorm:"size:64;not null;index"`
	Kind        string `gorm:"size:16;not null"`
	Inspector   string `gorm:"size:128"`
	ManualValue *float64
	AIValue     float64 `gorm:"not null"`
	Status      string  `gorm:"size:16;not null;index"`
	ImageRef    string  `gorm:"size:255"`
	Notes       string  `gorm:"size:255"`
}
