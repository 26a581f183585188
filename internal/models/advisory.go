// Package models defines the GORM models for the local advisory cache.
package models

import "time"

// AdvisoryRecord caches one advisory received from the backend so history
// and digests work offline.
type AdvisoryRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Crop           string `gorm:"size:64;not null;index"`
	Stage          string `gorm:"size:64;not null"`
	Recommendation string `gorm:"type:text"`
	DailyAdvice    string `gorm:"type:text"`
	// Payload holds the full advisory bundle as JSON for later display.
	Payload    string    `gorm:"type:text"`
	ReceivedAt time.Time `gorm:"index"`
}

// MarketPoint caches one dated market price observation per crop. The
// backend re-sends overlapping windows, so (crop, date) is unique and
// re-inserts update the price in place.
type MarketPoint struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	Crop      string  `gorm:"size:64;not null;uniqueIndex:idx_crop_date"`
	Date      string  `gorm:"size:10;not null;uniqueIndex:idx_crop_date"`
	Price     float64 `gorm:"not null"`
	Unit      string  `gorm:"size:32"`
	CreatedAt time.Time
}
