package scheduler

import (
	"log"
	"time"

	"stock_monitor/models"
	"stock_monitor/services/datafetcher"

	"github.com/shopspring/decimal"
)

// refreshPrices fetches a batch quote for every monitored symbol and
// writes a snapshot plus a history point per returned record. Symbols
// missing from the provider response are logged and skipped.
func (s *Scheduler) refreshPrices() {
	if !IsSessionOpen(s.now()) {
		return
	}

	symbols := s.registry.List()
	if len(symbols) == 0 {
		return
	}

	quotes, err := s.source.FetchQuotesBatch(symbols)
	if err != nil {
		log.Printf("Error fetching realtime quotes: %v", err)
		return
	}
	if len(quotes) == 0 {
		log.Println("No realtime quote data received")
		return
	}

	stored := 0
	for _, symbol := range symbols {
		quote, ok := quotes[symbol]
		if !ok {
			log.Printf("No realtime data found for symbol %s", symbol)
			continue
		}

		snapshot := quoteToSnapshot(quote)
		if err := s.store.AppendPriceSnapshot(snapshot); err != nil {
			log.Printf("Error storing price data for %s: %v", symbol, err)
			continue
		}

		point := &models.PriceHistory{
			Symbol:        quote.Symbol,
			Price:         snapshot.CurrentPrice,
			ChangePercent: snapshot.ChangePercent,
			Volume:        quote.Volume,
			Timestamp:     quote.Timestamp,
		}
		if err := s.store.AppendHistoryPoint(point); err != nil {
			log.Printf("Error storing price history for %s: %v", symbol, err)
			continue
		}

		stored++
	}

	log.Printf("Updated realtime prices for %d symbols", stored)
}

// refreshStockInfo updates stock info for every monitored symbol, with
// a delay between symbols to respect provider rate limits. A failure
// for one symbol does not abort the rest.
func (s *Scheduler) refreshStockInfo() {
	symbols := s.registry.List()
	for i, symbol := range symbols {
		if i > 0 {
			time.Sleep(s.cfg.InfoFetchDelay)
		}
		s.refreshSymbolInfo(symbol)
	}
	log.Printf("Stock info update completed for %d symbols", len(symbols))
}

// refreshSymbolInfo fetches and upserts stock info for one symbol.
func (s *Scheduler) refreshSymbolInfo(symbol string) {
	info, err := s.source.FetchInfo(symbol)
	if err != nil {
		log.Printf("Error fetching stock info for %s: %v", symbol, err)
		return
	}

	record := &models.StockInfo{
		Symbol:    info.Symbol,
		Name:      info.Name,
		Market:    info.Market,
		Sector:    info.Sector,
		Industry:  info.Industry,
		UpdatedAt: time.Now(),
	}
	if err := s.store.UpsertStockInfo(record); err != nil {
		log.Printf("Error storing stock info for %s: %v", symbol, err)
	}
}

// checkAlerts evaluates the latest snapshots of the monitoring set
// against the alert threshold.
func (s *Scheduler) checkAlerts() {
	symbols := s.registry.List()
	if len(symbols) == 0 {
		return
	}

	snapshots, err := s.store.LatestSnapshots(symbols)
	if err != nil {
		log.Printf("Error loading latest snapshots: %v", err)
		return
	}
	s.alerts.Evaluate(snapshots)
}

// checkMarketHours recomputes the session state and rewrites the price
// refresh cadence when it no longer matches. Reapplying the current
// cadence is a no-op.
func (s *Scheduler) checkMarketHours() {
	desired := s.cfg.OffHoursInterval
	if IsSessionOpen(s.now()) {
		desired = s.cfg.RealtimeInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priceJob == nil || desired == s.priceInterval {
		return
	}

	updated, err := s.cron.Job(s.priceJob).Every(desired).Update()
	if err != nil {
		log.Printf("Error rescheduling price updates: %v", err)
		return
	}
	s.priceJob = updated
	s.priceInterval = desired

	if desired == s.cfg.RealtimeInterval {
		log.Println("Switched to trading session update frequency")
	} else {
		log.Println("Switched to off-session update frequency")
	}
}

// runCleanup delegates to the retention sweeper.
func (s *Scheduler) runCleanup() {
	s.sweeper.Sweep(s.now())
}

// quoteToSnapshot converts a provider quote into a stored snapshot.
func quoteToSnapshot(quote datafetcher.QuoteData) *models.StockPrice {
	return &models.StockPrice{
		Symbol:        quote.Symbol,
		CurrentPrice:  decimal.NewFromFloat(quote.CurrentPrice),
		OpenPrice:     decimal.NewFromFloat(quote.OpenPrice),
		HighPrice:     decimal.NewFromFloat(quote.HighPrice),
		LowPrice:      decimal.NewFromFloat(quote.LowPrice),
		ClosePrice:    decimal.NewFromFloat(quote.ClosePrice),
		Volume:        quote.Volume,
		Amount:        decimal.NewFromFloat(quote.Amount),
		ChangeAmount:  decimal.NewFromFloat(quote.ChangeAmount),
		ChangePercent: decimal.NewFromFloat(quote.ChangePercent),
		Timestamp:     quote.Timestamp,
	}
}
