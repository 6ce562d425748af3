package scheduler

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"stock_monitor/config"
	"stock_monitor/models"
	"stock_monitor/services/datafetcher"
)

var (
	openTime   = time.Date(2024, 1, 8, 10, 0, 0, 0, time.Local) // Monday, morning session
	closedTime = time.Date(2024, 1, 8, 12, 0, 0, 0, time.Local) // Monday, lunch break
)

// fakeStore is an in-memory StockStore.
type fakeStore struct {
	mu        sync.Mutex
	infos     map[string]models.StockInfo
	snapshots []models.StockPrice
	history   []models.PriceHistory
	alerts    []models.PriceAlert
}

func newFakeStore() *fakeStore {
	return &fakeStore{infos: map[string]models.StockInfo{}}
}

func (f *fakeStore) UpsertStockInfo(info *models.StockInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos[info.Symbol] = *info
	return nil
}

func (f *fakeStore) AppendPriceSnapshot(snapshot *models.StockPrice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, *snapshot)
	return nil
}

func (f *fakeStore) AppendHistoryPoint(point *models.PriceHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, *point)
	return nil
}

func (f *fakeStore) LatestSnapshots(symbols []string) ([]models.StockPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := map[string]bool{}
	for _, s := range symbols {
		wanted[s] = true
	}
	latest := map[string]models.StockPrice{}
	for _, snap := range f.snapshots {
		if len(wanted) > 0 && !wanted[snap.Symbol] {
			continue
		}
		if prev, ok := latest[snap.Symbol]; !ok || snap.Timestamp.After(prev.Timestamp) {
			latest[snap.Symbol] = snap
		}
	}
	out := make([]models.StockPrice, 0, len(latest))
	for _, snap := range latest {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChangePercent.GreaterThan(out[j].ChangePercent)
	})
	return out, nil
}

func (f *fakeStore) AppendAlert(alert *models.PriceAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeStore) DeleteHistoryOlderThan(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.PriceHistory
	var deleted int64
	for _, point := range f.history {
		if point.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, point)
	}
	f.history = kept
	return deleted, nil
}

func (f *fakeStore) DeleteAlertsOlderThan(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.PriceAlert
	var deleted int64
	for _, alert := range f.alerts {
		if alert.TriggeredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, alert)
	}
	f.alerts = kept
	return deleted, nil
}

// fakeSource is an in-memory DataSource.
type fakeSource struct {
	mu         sync.Mutex
	quotes     map[string]datafetcher.QuoteData
	infos      map[string]*datafetcher.StockInfoData
	batchErr   error
	batchCalls int
}

func (f *fakeSource) FetchInfo(symbol string) (*datafetcher.StockInfoData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.infos[symbol]
	if !ok {
		return nil, errors.New("no stock info found for symbol " + symbol)
	}
	return info, nil
}

func (f *fakeSource) FetchQuotesBatch(symbols []string) (map[string]datafetcher.QuoteData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := map[string]datafetcher.QuoteData{}
	for _, symbol := range symbols {
		if quote, ok := f.quotes[symbol]; ok {
			out[symbol] = quote
		}
	}
	return out, nil
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCalls
}

func testConfig(symbols ...string) *config.Config {
	return &config.Config{
		RealtimeInterval: 10 * time.Second,
		OffHoursInterval: 300 * time.Second,
		InfoInterval:     time.Hour,
		AlertInterval:    30 * time.Second,
		RequestTimeout:   10 * time.Second,
		InfoFetchDelay:   time.Millisecond,
		AlertThreshold:   5.0,
		HistoryRetention: 30,
		AlertRetention:   7,
		MonitorSymbols:   symbols,
	}
}

func mkQuote(symbol string, changePercent float64) datafetcher.QuoteData {
	price := 100.0 * (1 + changePercent/100)
	return datafetcher.QuoteData{
		Symbol:        symbol,
		CurrentPrice:  price,
		OpenPrice:     100,
		HighPrice:     price + 1,
		LowPrice:      99,
		ClosePrice:    100,
		Volume:        12345,
		Amount:        1234500,
		ChangeAmount:  price - 100,
		ChangePercent: changePercent,
		Timestamp:     openTime,
	}
}

func newTestScheduler(cfg *config.Config, store *fakeStore, source *fakeSource, at time.Time) *Scheduler {
	s := NewScheduler(cfg, store, source)
	s.now = func() time.Time { return at }
	return s
}

func TestRefreshPricesPartialBatch(t *testing.T) {
	symbols := []string{"000001", "000002", "000858", "600036", "600519"}
	store := newFakeStore()
	source := &fakeSource{quotes: map[string]datafetcher.QuoteData{
		"000001": mkQuote("000001", 1.0),
		"000858": mkQuote("000858", -2.0),
		"600519": mkQuote("600519", 3.0),
	}}
	s := newTestScheduler(testConfig(symbols...), store, source, openTime)

	s.refreshPrices()

	if len(store.snapshots) != 3 {
		t.Errorf("expected 3 snapshots for the symbols the provider returned, got %d", len(store.snapshots))
	}
	if len(store.history) != 3 {
		t.Errorf("expected 3 history points, got %d", len(store.history))
	}
	for _, snap := range store.snapshots {
		if snap.Symbol == "000002" || snap.Symbol == "600036" {
			t.Errorf("missing symbol %s should not have been stored", snap.Symbol)
		}
	}
}

func TestRefreshPricesSkipsClosedSession(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{quotes: map[string]datafetcher.QuoteData{
		"000001": mkQuote("000001", 1.0),
	}}
	s := newTestScheduler(testConfig("000001"), store, source, closedTime)

	s.refreshPrices()

	if source.calls() != 0 {
		t.Errorf("expected no provider call outside trading sessions, got %d", source.calls())
	}
	if len(store.snapshots) != 0 {
		t.Errorf("expected no snapshots outside trading sessions, got %d", len(store.snapshots))
	}
}

func TestRefreshPricesProviderError(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{batchErr: errors.New("connection refused")}
	s := newTestScheduler(testConfig("000001"), store, source, openTime)

	// Must not panic and must not store anything.
	s.refreshPrices()

	if len(store.snapshots) != 0 {
		t.Errorf("expected no snapshots on provider error, got %d", len(store.snapshots))
	}
}

func TestFullCycleProducesSingleGainAlert(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{quotes: map[string]datafetcher.QuoteData{
		"000001": mkQuote("000001", 6.0),
		"600519": mkQuote("600519", 2.0),
	}}
	s := newTestScheduler(testConfig("000001", "600519"), store, source, openTime)

	s.refreshPrices()
	s.checkAlerts()

	if len(store.alerts) != 1 {
		t.Fatalf("expected exactly 1 alert after full cycle, got %d", len(store.alerts))
	}
	alert := store.alerts[0]
	if alert.Symbol != "000001" {
		t.Errorf("expected alert for 000001, got %s", alert.Symbol)
	}
	if alert.AlertType != models.AlertTypeGain {
		t.Errorf("expected gain alert, got %s", alert.AlertType)
	}
}

func TestRefreshStockInfoContinuesPastFailures(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{infos: map[string]*datafetcher.StockInfoData{
		"000001": {Symbol: "000001", Name: "平安银行", Market: "SZ"},
		"600519": {Symbol: "600519", Name: "贵州茅台", Market: "SH"},
	}}
	// 000002 has no provider info and must not abort the rest.
	s := newTestScheduler(testConfig("000001", "000002", "600519"), store, source, openTime)

	s.refreshStockInfo()

	if len(store.infos) != 2 {
		t.Errorf("expected info for 2 symbols, got %d", len(store.infos))
	}
	if _, ok := store.infos["600519"]; !ok {
		t.Error("symbol after the failing one should still have been refreshed")
	}
}

func TestCheckMarketHoursAdaptsCadence(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{}
	cfg := testConfig("000001")
	s := newTestScheduler(cfg, store, source, closedTime)

	s.mu.Lock()
	if err := s.registerJobs(); err != nil {
		s.mu.Unlock()
		t.Fatalf("registerJobs failed: %v", err)
	}
	s.mu.Unlock()

	if s.priceInterval != cfg.RealtimeInterval {
		t.Fatalf("expected initial cadence %v, got %v", cfg.RealtimeInterval, s.priceInterval)
	}

	s.checkMarketHours()
	if s.priceInterval != cfg.OffHoursInterval {
		t.Errorf("expected off-session cadence %v, got %v", cfg.OffHoursInterval, s.priceInterval)
	}

	// Reapplying the same state is a no-op.
	s.checkMarketHours()
	if s.priceInterval != cfg.OffHoursInterval {
		t.Errorf("cadence changed on idempotent re-check: %v", s.priceInterval)
	}

	s.now = func() time.Time { return openTime }
	s.checkMarketHours()
	if s.priceInterval != cfg.RealtimeInterval {
		t.Errorf("expected session cadence %v after reopen, got %v", cfg.RealtimeInterval, s.priceInterval)
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("000001")
	cfg.AlertThreshold = 0
	s := newTestScheduler(cfg, newFakeStore(), &fakeSource{}, openTime)

	if err := s.Start(); err == nil {
		t.Error("expected Start to fail with invalid threshold")
	}
	if s.IsRunning() {
		t.Error("scheduler must not be running after failed Start")
	}
}

func TestStatusListsAllJobs(t *testing.T) {
	s := newTestScheduler(testConfig("000001", "600519"), newFakeStore(), &fakeSource{}, openTime)

	s.mu.Lock()
	if err := s.registerJobs(); err != nil {
		s.mu.Unlock()
		t.Fatalf("registerJobs failed: %v", err)
	}
	s.mu.Unlock()

	status := s.Status()
	if status.MonitoredSymbols != 2 {
		t.Errorf("expected 2 monitored symbols, got %d", status.MonitoredSymbols)
	}
	if !status.MarketOpen {
		t.Error("expected market open during morning session")
	}

	wantIDs := []string{JobPriceUpdate, JobInfoUpdate, JobAlertCheck, JobMarketHours, JobCleanup}
	if len(status.Jobs) != len(wantIDs) {
		t.Fatalf("expected %d jobs, got %d", len(wantIDs), len(status.Jobs))
	}
	seen := map[string]bool{}
	for _, job := range status.Jobs {
		seen[job.ID] = true
		if jobNames[job.ID] != job.Name {
			t.Errorf("job %s has unexpected name %q", job.ID, job.Name)
		}
	}
	for _, id := range wantIDs {
		if !seen[id] {
			t.Errorf("job %s missing from status", id)
		}
	}
}

func TestAddSymbolTriggersInfoRefresh(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{infos: map[string]*datafetcher.StockInfoData{
		"300750": {Symbol: "300750", Name: "宁德时代", Market: "SZ"},
	}}
	s := newTestScheduler(testConfig("000001"), store, source, openTime)

	s.AddSymbol("300750")

	symbols := s.ListSymbols()
	found := false
	for _, symbol := range symbols {
		if symbol == "300750" {
			found = true
		}
	}
	if !found {
		t.Fatal("added symbol missing from monitoring list")
	}

	// Info refresh runs asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		_, ok := store.infos["300750"]
		store.mu.Unlock()
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("info for added symbol was not refreshed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Adding again is a no-op.
	s.AddSymbol("300750")
	if len(s.ListSymbols()) != 2 {
		t.Errorf("expected 2 symbols after duplicate add, got %d", len(s.ListSymbols()))
	}

	s.RemoveSymbol("300750")
	if len(s.ListSymbols()) != 1 {
		t.Errorf("expected 1 symbol after remove, got %d", len(s.ListSymbols()))
	}
}
