package scheduler

// Package scheduler owns the periodic update jobs for the stock monitor:
// - Realtime price refresh during trading sessions (slowed when closed)
// - Hourly stock info refresh
// - Alert threshold monitoring
// - Minute-aligned session state check that adapts the price cadence
// - Daily retention cleanup at 03:00
//
// Each job runs single-flight: a slow run delays its own next tick and
// never overlaps with itself. Jobs fail independently; errors are logged
// and the next tick proceeds.

import (
	"fmt"
	"log"
	"sync"
	"time"

	"stock_monitor/config"
	"stock_monitor/services"
	"stock_monitor/services/datafetcher"

	"github.com/go-co-op/gocron"
)

// Job ids, also used as gocron tags.
const (
	JobPriceUpdate = "realtime_price_update"
	JobInfoUpdate  = "stock_info_update"
	JobAlertCheck  = "alert_monitoring"
	JobMarketHours = "market_hours_check"
	JobCleanup     = "daily_cleanup"
)

var jobNames = map[string]string{
	JobPriceUpdate: "Update Realtime Prices",
	JobInfoUpdate:  "Update Stock Info",
	JobAlertCheck:  "Monitor Price Alerts",
	JobMarketHours: "Check Market Hours",
	JobCleanup:     "Daily Database Cleanup",
}

// DataSource is the provider surface the scheduler consumes.
type DataSource interface {
	FetchInfo(symbol string) (*datafetcher.StockInfoData, error)
	FetchQuotesBatch(symbols []string) (map[string]datafetcher.QuoteData, error)
}

// Scheduler manages the recurring update jobs and the monitoring set.
type Scheduler struct {
	cron     *gocron.Scheduler
	store    services.StockStore
	source   DataSource
	alerts   *services.AlertEngine
	sweeper  *services.RetentionSweeper
	registry *SymbolRegistry
	cfg      *config.Config

	mu            sync.Mutex
	running       bool
	priceJob      *gocron.Job
	priceInterval time.Duration

	now func() time.Time
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	NextRun time.Time `json:"next_run"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running          bool        `json:"is_running"`
	MonitoredSymbols int         `json:"monitored_symbols"`
	Jobs             []JobStatus `json:"jobs"`
	MarketOpen       bool        `json:"market_hours"`
}

// NewScheduler creates a scheduler instance. Jobs are not registered
// until Start is called.
func NewScheduler(cfg *config.Config, store services.StockStore, source DataSource) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.Local),
		store:    store,
		source:   source,
		alerts:   services.NewAlertEngine(store, cfg.AlertThreshold),
		sweeper:  services.NewRetentionSweeper(store, cfg.HistoryRetention, cfg.AlertRetention),
		registry: NewSymbolRegistry(cfg.MonitorSymbols),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start validates the configuration, seeds stock info for the initial
// monitoring set, registers all jobs and begins scheduling. Calling
// Start on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scheduler config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	log.Println("Starting scheduler...")

	// Seed stock info synchronously so the dashboard has names to show
	// before the first periodic info refresh.
	s.refreshStockInfo()

	if err := s.registerJobs(); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	s.cron.StartAsync()
	s.running = true
	log.Println("Scheduler started successfully")
	return nil
}

// Stop disables future job scheduling. In-flight job runs finish on
// their own. Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	log.Println("Scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// registerJobs populates the gocron job table. Caller holds s.mu.
func (s *Scheduler) registerJobs() error {
	s.cron.Clear()

	priceJob, err := s.cron.Every(s.cfg.RealtimeInterval).
		Tag(JobPriceUpdate).SingletonMode().Do(s.refreshPrices)
	if err != nil {
		return err
	}
	s.priceJob = priceJob
	s.priceInterval = s.cfg.RealtimeInterval

	if _, err := s.cron.Every(s.cfg.InfoInterval).
		Tag(JobInfoUpdate).SingletonMode().Do(s.refreshStockInfo); err != nil {
		return err
	}

	if _, err := s.cron.Every(s.cfg.AlertInterval).
		Tag(JobAlertCheck).SingletonMode().Do(s.checkAlerts); err != nil {
		return err
	}

	// Minute-aligned so cadence switches track session transitions with
	// at most one minute of lag.
	if _, err := s.cron.Cron("* * * * *").
		Tag(JobMarketHours).Do(s.checkMarketHours); err != nil {
		return err
	}

	if _, err := s.cron.Every(1).Day().At("03:00").
		Tag(JobCleanup).Do(s.runCleanup); err != nil {
		return err
	}

	return nil
}

// Status returns the current scheduler state for the status endpoint.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	jobs := make([]JobStatus, 0, len(s.cron.Jobs()))
	for _, job := range s.cron.Jobs() {
		id := ""
		if tags := job.Tags(); len(tags) > 0 {
			id = tags[0]
		}
		jobs = append(jobs, JobStatus{
			ID:      id,
			Name:    jobNames[id],
			NextRun: job.NextRun(),
		})
	}

	return Status{
		Running:          running,
		MonitoredSymbols: s.registry.Count(),
		Jobs:             jobs,
		MarketOpen:       IsSessionOpen(s.now()),
	}
}

// AddSymbol adds a symbol to the monitoring set. For a new symbol the
// stock info is fetched asynchronously so the caller is not blocked on
// the provider.
func (s *Scheduler) AddSymbol(symbol string) {
	if !s.registry.Add(symbol) {
		return
	}
	log.Printf("Added symbol %s to monitoring list", symbol)
	go s.refreshSymbolInfo(symbol)
}

// RemoveSymbol removes a symbol from the monitoring set; no-op if the
// symbol is not monitored.
func (s *Scheduler) RemoveSymbol(symbol string) {
	if s.registry.Remove(symbol) {
		log.Printf("Removed symbol %s from monitoring list", symbol)
	}
}

// ListSymbols returns the monitored symbols in stable order.
func (s *Scheduler) ListSymbols() []string {
	return s.registry.List()
}
