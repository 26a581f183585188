// Package store is the local advisory cache. Every successful submission
// and market series is recorded so `sathi history --cached` and watch-mode
// digests work without the backend. SQLite is the default backend; MySQL
// is available for shared deployments.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/models"
)

// Store wraps the cache database.
type Store struct {
	db *gorm.DB
}

// Opts holds connection parameters. Driver selects the backend: "sqlite"
// (default) uses Path, "mysql" uses the DSN fields.
type Opts struct {
	Driver string
	// Path is the SQLite database file. ":memory:" is valid for tests.
	Path string
	// MySQL settings.
	Host     string
	Port     int
	User     string
	Database string
}

// Open connects to the cache database and migrates the schema.
func Open(opts Opts) (*Store, error) {
	dial, err := dialector(opts)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open cache: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func dialector(opts Opts) (gorm.Dialector, error) {
	switch opts.Driver {
	case "", "sqlite":
		if opts.Path == "" {
			return nil, fmt.Errorf("store: sqlite path is required")
		}
		return sqlite.Open(opts.Path), nil
	case "mysql":
		if opts.Database == "" {
			return nil, fmt.Errorf("store: mysql database is required")
		}
		user := opts.User
		if user == "" {
			user = "root"
		}
		host := opts.Host
		if host == "" {
			host = "127.0.0.1"
		}
		port := opts.Port
		if port == 0 {
			port = 3306
		}
		dsn := fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", user, host, port, opts.Database)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// migrate creates or updates the cache tables.
func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&models.AdvisoryRecord{}, &models.MarketPoint{}); err != nil {
		return fmt.Errorf("store: auto-migrate: %w", err)
	}
	return nil
}

// DB exposes the underlying connection for read-only dashboard queries.
func (s *Store) DB() *gorm.DB { return s.db }

// RecordAdvisory caches one received advisory. Implements the
// orchestrator's Recorder seam.
func (s *Store) RecordAdvisory(crop, stage string, adv *api.Advisory) error {
	payload, err := json.Marshal(adv)
	if err != nil {
		return fmt.Errorf("store: marshal advisory: %w", err)
	}
	rec := models.AdvisoryRecord{
		Crop:           crop,
		Stage:          stage,
		Recommendation: adv.Recommendation,
		DailyAdvice:    adv.DailyAdvice,
		Payload:        string(payload),
		ReceivedAt:     time.Now(),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("store: record advisory: %w", err)
	}
	return nil
}

// RecordMarket upserts the series' price points for the crop.
func (s *Store) RecordMarket(crop string, mp *api.MarketPrice) error {
	for _, p := range mp.History {
		point := models.MarketPoint{
			Crop:  crop,
			Date:  p.Date,
			Price: p.Price,
			Unit:  mp.Unit,
		}
		result := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "crop"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "unit"}),
		}).Create(&point)
		if result.Error != nil {
			return fmt.Errorf("store: record price %s/%s: %w", crop, p.Date, result.Error)
		}
	}
	return nil
}

// RecentAdvisories returns the latest cached advisories, newest first.
func (s *Store) RecentAdvisories(limit int) ([]models.AdvisoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []models.AdvisoryRecord
	err := s.db.Order("received_at DESC").Limit(limit).Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent advisories: %w", err)
	}
	return recs, nil
}

// AdvisoriesSince returns cached advisories received at or after the
// cutoff, newest first.
func (s *Store) AdvisoriesSince(cutoff time.Time) ([]models.AdvisoryRecord, error) {
	var recs []models.AdvisoryRecord
	err := s.db.Where("received_at >= ?", cutoff).Order("received_at DESC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("store: advisories since %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return recs, nil
}

// PriceHistory returns the latest cached price points for a crop, oldest
// first, capped at limit.
func (s *Store) PriceHistory(crop string, limit int) ([]models.MarketPoint, error) {
	if limit <= 0 {
		limit = 30
	}
	var points []models.MarketPoint
	err := s.db.Where("crop = ?", crop).Order("date DESC").Limit(limit).Find(&points).Error
	if err != nil {
		return nil, fmt.Errorf("store: price history for %s: %w", crop, err)
	}
	// Reverse to oldest-first for charting and movement math.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// Counts returns the number of cached advisories and price points.
func (s *Store) Counts() (advisories int64, prices int64, err error) {
	if err = s.db.Model(&models.AdvisoryRecord{}).Count(&advisories).Error; err != nil {
		return 0, 0, fmt.Errorf("store: count advisories: %w", err)
	}
	if err = s.db.Model(&models.MarketPoint{}).Count(&prices).Error; err != nil {
		return 0, 0, fmt.Errorf("store: count prices: %w", err)
	}
	return advisories, prices, nil
}

// Reset drops all cached rows. Used by `sathi cache reset`.
func (s *Store) Reset() error {
	if err := s.db.Where("1 = 1").Delete(&models.AdvisoryRecord{}).Error; err != nil {
		return fmt.Errorf("store: reset advisories: %w", err)
	}
	if err := s.db.Where("1 = 1").Delete(&models.MarketPoint{}).Error; err != nil {
		return fmt.Errorf("store: reset prices: %w", err)
	}
	return nil
}
