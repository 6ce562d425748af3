package services

import (
	"errors"
	"time"

	"stock_monitor/models"
)

// memStore is an in-memory StockStore for engine tests.
type memStore struct {
	infos    map[string]models.StockInfo
	history  []models.PriceHistory
	alerts   []models.PriceAlert
	failNext bool
}

func newMemStore() *memStore {
	return &memStore{infos: map[string]models.StockInfo{}}
}

func (m *memStore) UpsertStockInfo(info *models.StockInfo) error {
	m.infos[info.Symbol] = *info
	return nil
}

func (m *memStore) AppendPriceSnapshot(*models.StockPrice) error { return nil }

func (m *memStore) AppendHistoryPoint(point *models.PriceHistory) error {
	m.history = append(m.history, *point)
	return nil
}

func (m *memStore) LatestSnapshots([]string) ([]models.StockPrice, error) { return nil, nil }

func (m *memStore) AppendAlert(alert *models.PriceAlert) error {
	if m.failNext {
		m.failNext = false
		return errors.New("write failed")
	}
	m.alerts = append(m.alerts, *alert)
	return nil
}

func (m *memStore) DeleteHistoryOlderThan(cutoff time.Time) (int64, error) {
	var kept []models.PriceHistory
	var deleted int64
	for _, point := range m.history {
		if point.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, point)
	}
	m.history = kept
	return deleted, nil
}

func (m *memStore) DeleteAlertsOlderThan(cutoff time.Time) (int64, error) {
	var kept []models.PriceAlert
	var deleted int64
	for _, alert := range m.alerts {
		if alert.TriggeredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, alert)
	}
	m.alerts = kept
	return deleted, nil
}
