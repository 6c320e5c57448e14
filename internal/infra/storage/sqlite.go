// Package storage archives compliance report snapshots in SQLite. The archive
// is write-mostly audit history; it is never loaded back into an analyzer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fix_analyzer/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ReportStore persists reports through gorm over pure-Go SQLite.
type ReportStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportStore opens (or creates) the archive at path.
func NewReportStore(path string) (*ReportStore, error) {
	if path == "" {
		return nil, &domain.ConfigError{Field: "storage.path", Err: errors.New("empty path")}
	}

	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newReportStore(db)
}

func newReportStore(db *gorm.DB) (*ReportStore, error) {
	if err := db.AutoMigrate(&domain.ReportRecord{}, &domain.SymbolRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &ReportStore{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *ReportStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Report Operations
// ======================================================================================

// SaveReport archives r with its symbol rows in one transaction.
func (s *ReportStore) SaveReport(ctx context.Context, r domain.Report) error {
	rec := domain.NewReportRecord(r, s.now())
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// LatestReport returns the most recent archived report, or nil if the archive
// is empty.
func (s *ReportStore) LatestReport(ctx context.Context) (*domain.ReportRecord, error) {
	var rec domain.ReportRecord
	err := s.db.WithContext(ctx).
		Preload("Symbols", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Empty archive is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	return &rec, nil
}

// SymbolHistory returns up to limit archived rows for symbol, newest first.
func (s *ReportStore) SymbolHistory(ctx context.Context, symbol string, limit int) ([]domain.SymbolRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []domain.SymbolRecord
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("report_id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("symbol history: %w", err)
	}
	return rows, nil
}

// CountReports returns the number of archived reports.
func (s *ReportStore) CountReports(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.ReportRecord{}).Count(&n).Error
	return n, err
}
