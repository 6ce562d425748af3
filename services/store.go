package services

import (
	"fmt"
	"time"

	"stock_monitor/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockStore is the narrow persistence surface the scheduler jobs use.
// Every operation is a single statement; no transaction spans calls.
type StockStore interface {
	UpsertStockInfo(info *models.StockInfo) error
	AppendPriceSnapshot(snapshot *models.StockPrice) error
	AppendHistoryPoint(point *models.PriceHistory) error
	LatestSnapshots(symbols []string) ([]models.StockPrice, error)
	AppendAlert(alert *models.PriceAlert) error
	DeleteHistoryOlderThan(cutoff time.Time) (int64, error)
	DeleteAlertsOlderThan(cutoff time.Time) (int64, error)
}

// GormStockStore implements StockStore on top of gorm.
type GormStockStore struct {
	db *gorm.DB
}

// NewGormStockStore creates a store backed by the given database handle.
func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db}
}

// UpsertStockInfo inserts or updates stock information keyed by symbol.
// updated_at advances on every refresh.
func (s *GormStockStore) UpsertStockInfo(info *models.StockInfo) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "market", "sector", "industry", "updated_at",
		}),
	}).Create(info).Error
	if err != nil {
		return fmt.Errorf("upsert stock info %s: %w", info.Symbol, err)
	}
	return nil
}

// AppendPriceSnapshot stores a realtime price snapshot.
func (s *GormStockStore) AppendPriceSnapshot(snapshot *models.StockPrice) error {
	if err := s.db.Create(snapshot).Error; err != nil {
		return fmt.Errorf("append snapshot %s: %w", snapshot.Symbol, err)
	}
	return nil
}

// AppendHistoryPoint stores a price history point.
func (s *GormStockStore) AppendHistoryPoint(point *models.PriceHistory) error {
	if err := s.db.Create(point).Error; err != nil {
		return fmt.Errorf("append history %s: %w", point.Symbol, err)
	}
	return nil
}

// LatestSnapshots returns the most recent snapshot per symbol, ordered
// by change percent descending.
func (s *GormStockStore) LatestSnapshots(symbols []string) ([]models.StockPrice, error) {
	var snapshots []models.StockPrice
	query := s.db.Model(&models.StockPrice{}).
		Where("timestamp = (SELECT MAX(timestamp) FROM stock_prices sp2 WHERE sp2.symbol = stock_prices.symbol)")
	if len(symbols) > 0 {
		query = query.Where("symbol IN ?", symbols)
	}
	if err := query.Order("change_percent DESC").Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("latest snapshots: %w", err)
	}
	return snapshots, nil
}

// AppendAlert stores a price alert.
func (s *GormStockStore) AppendAlert(alert *models.PriceAlert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("append alert %s: %w", alert.Symbol, err)
	}
	return nil
}

// DeleteHistoryOlderThan removes history points before the cutoff and
// returns the number of rows removed.
func (s *GormStockStore) DeleteHistoryOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("timestamp < ?", cutoff).Delete(&models.PriceHistory{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteAlertsOlderThan removes alerts triggered before the cutoff and
// returns the number of rows removed.
func (s *GormStockStore) DeleteAlertsOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("triggered_at < ?", cutoff).Delete(&models.PriceAlert{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old alerts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
