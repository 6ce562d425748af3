package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RealtimeInterval != 10*time.Second {
		t.Errorf("expected realtime interval 10s, got %v", cfg.RealtimeInterval)
	}
	if cfg.OffHoursInterval != 300*time.Second {
		t.Errorf("expected off-hours interval 300s, got %v", cfg.OffHoursInterval)
	}
	if cfg.InfoInterval != 3600*time.Second {
		t.Errorf("expected info interval 3600s, got %v", cfg.InfoInterval)
	}
	if cfg.AlertInterval != 30*time.Second {
		t.Errorf("expected alert interval 30s, got %v", cfg.AlertInterval)
	}
	if cfg.AlertThreshold != 5.0 {
		t.Errorf("expected threshold 5.0, got %v", cfg.AlertThreshold)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("expected request timeout 10s, got %v", cfg.RequestTimeout)
	}
	if cfg.HistoryRetention != 30 || cfg.AlertRetention != 7 {
		t.Errorf("expected retention 30/7 days, got %d/%d", cfg.HistoryRetention, cfg.AlertRetention)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite driver by default, got %s", cfg.DBDriver)
	}
	if len(cfg.MonitorSymbols) == 0 {
		t.Error("expected a non-empty default monitoring set")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("REALTIME_UPDATE_INTERVAL", "5")
	t.Setenv("PRICE_CHANGE_THRESHOLD", "7.5")
	t.Setenv("MONITOR_SYMBOLS", "600519, 000001,  ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RealtimeInterval != 5*time.Second {
		t.Errorf("expected realtime interval 5s, got %v", cfg.RealtimeInterval)
	}
	if cfg.AlertThreshold != 7.5 {
		t.Errorf("expected threshold 7.5, got %v", cfg.AlertThreshold)
	}
	if len(cfg.MonitorSymbols) != 2 {
		t.Fatalf("expected 2 symbols from env, got %v", cfg.MonitorSymbols)
	}
	if cfg.MonitorSymbols[0] != "600519" || cfg.MonitorSymbols[1] != "000001" {
		t.Errorf("unexpected symbol list %v", cfg.MonitorSymbols)
	}
}

func TestLoadConfigInvalidNumberFallsBack(t *testing.T) {
	t.Setenv("ALERT_CHECK_INTERVAL", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.AlertInterval != 30*time.Second {
		t.Errorf("expected fallback to default 30s, got %v", cfg.AlertInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, _ := LoadConfig()
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got %v", err)
	}

	cfg = valid()
	cfg.AlertThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero threshold should be invalid")
	}

	cfg = valid()
	cfg.RealtimeInterval = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative realtime interval should be invalid")
	}

	cfg = valid()
	cfg.HistoryRetention = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero history retention should be invalid")
	}

	cfg = valid()
	cfg.MonitorSymbols = nil
	if err := cfg.Validate(); err == nil {
		t.Error("empty monitoring set should be invalid")
	}
}
