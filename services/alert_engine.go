package services

import (
	"log"
	"time"

	"stock_monitor/models"

	"github.com/shopspring/decimal"
)

// AlertEngine evaluates latest price snapshots against the configured
// change-percent threshold and records an alert for every breach. It is
// stateless across runs: a symbol that stays above the threshold
// produces one alert row per evaluation cycle.
type AlertEngine struct {
	store     StockStore
	threshold decimal.Decimal
}

// NewAlertEngine creates an alert engine with the given threshold percent.
func NewAlertEngine(store StockStore, thresholdPercent float64) *AlertEngine {
	return &AlertEngine{
		store:     store,
		threshold: decimal.NewFromFloat(thresholdPercent),
	}
}

// Evaluate checks every snapshot and appends an alert for each one whose
// absolute change percent meets the threshold. Store failures are logged
// per alert and do not abort the remaining snapshots. Returns the number
// of alerts recorded.
func (e *AlertEngine) Evaluate(snapshots []models.StockPrice) int {
	triggered := 0
	for _, snapshot := range snapshots {
		if snapshot.ChangePercent.Abs().LessThan(e.threshold) {
			continue
		}

		alertType := models.AlertTypeLoss
		if snapshot.ChangePercent.IsPositive() {
			alertType = models.AlertTypeGain
		}

		alert := &models.PriceAlert{
			Symbol:        snapshot.Symbol,
			AlertType:     alertType,
			Threshold:     e.threshold,
			CurrentChange: snapshot.ChangePercent,
			TriggeredAt:   time.Now(),
		}
		if err := e.store.AppendAlert(alert); err != nil {
			log.Printf("Error storing alert for %s: %v", snapshot.Symbol, err)
			continue
		}

		triggered++
		log.Printf("Price alert triggered for %s: %s%%", snapshot.Symbol, snapshot.ChangePercent.StringFixed(2))
	}
	return triggered
}
