package services

import (
	"log"
	"time"
)

// RetentionSweeper prunes aged history points and alerts. Each run
// issues one bounded delete per table; re-running with nothing eligible
// is a no-op.
type RetentionSweeper struct {
	store       StockStore
	historyDays int
	alertDays   int
}

// NewRetentionSweeper creates a sweeper with the given retention windows.
func NewRetentionSweeper(store StockStore, historyDays, alertDays int) *RetentionSweeper {
	return &RetentionSweeper{
		store:       store,
		historyDays: historyDays,
		alertDays:   alertDays,
	}
}

// Sweep deletes history points and alerts older than their retention
// windows relative to now. A failure on one table does not prevent the
// sweep of the other.
func (s *RetentionSweeper) Sweep(now time.Time) {
	historyCutoff := now.AddDate(0, 0, -s.historyDays)
	if deleted, err := s.store.DeleteHistoryOlderThan(historyCutoff); err != nil {
		log.Printf("Error cleaning up price history: %v", err)
	} else if deleted > 0 {
		log.Printf("Deleted %d price history rows older than %s", deleted, historyCutoff.Format("2006-01-02"))
	}

	alertCutoff := now.AddDate(0, 0, -s.alertDays)
	if deleted, err := s.store.DeleteAlertsOlderThan(alertCutoff); err != nil {
		log.Printf("Error cleaning up alerts: %v", err)
	} else if deleted > 0 {
		log.Printf("Deleted %d alerts older than %s", deleted, alertCutoff.Format("2006-01-02"))
	}
}
