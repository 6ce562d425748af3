package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds all runtime settings. Every field is overridable via
// environment variables; defaults match a standalone local deployment.
type Config struct {
	Port        string
	Environment string

	DBDriver     string // "sqlite" or "postgres"
	DatabasePath string // sqlite file path
	DatabaseURL  string // postgres DSN, used when DBDriver is "postgres"

	RealtimeInterval time.Duration // price refresh cadence during trading sessions
	OffHoursInterval time.Duration // price refresh cadence outside trading sessions
	InfoInterval     time.Duration // stock info refresh cadence
	AlertInterval    time.Duration // alert evaluation cadence
	RequestTimeout   time.Duration // HTTP timeout for provider calls
	InfoFetchDelay   time.Duration // delay between per-symbol info fetches (rate limiting)
	AlertThreshold   float64       // abs change percent that triggers an alert
	HistoryRetention int           // days of price history to keep
	AlertRetention   int           // days of alerts to keep
	MonitorSymbols   []string      // initial monitoring set
}

var AppConfig *Config
var DB *gorm.DB

// Default monitoring set: popular A-share symbols.
var defaultMonitorSymbols = []string{
	"000001", // 平安银行
	"000002", // 万科A
	"000858", // 五粮液
	"002415", // 海康威视
	"600036", // 招商银行
	"600519", // 贵州茅台
	"600887", // 伊利股份
	"000858", // 五粮液
	"002142", // 宁波银行
	"300750", // 宁德时代
}

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:     getEnv("DB_DRIVER", "sqlite"),
		DatabasePath: getEnv("DATABASE_PATH", "stock_database.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		RealtimeInterval: getEnvSeconds("REALTIME_UPDATE_INTERVAL", 10),
		OffHoursInterval: getEnvSeconds("OFFHOURS_UPDATE_INTERVAL", 300),
		InfoInterval:     getEnvSeconds("STOCK_INFO_UPDATE_INTERVAL", 3600),
		AlertInterval:    getEnvSeconds("ALERT_CHECK_INTERVAL", 30),
		RequestTimeout:   getEnvSeconds("REQUEST_TIMEOUT", 10),
		InfoFetchDelay:   getEnvMillis("INFO_FETCH_DELAY", 500),
		AlertThreshold:   getEnvFloat("PRICE_CHANGE_THRESHOLD", 5.0),
		HistoryRetention: getEnvInt("HISTORY_RETENTION_DAYS", 30),
		AlertRetention:   getEnvInt("ALERT_RETENTION_DAYS", 7),
		MonitorSymbols:   getEnvList("MONITOR_SYMBOLS", defaultMonitorSymbols),
	}

	AppConfig = config
	return config, nil
}

// Validate checks settings the scheduler cannot run with. A validation
// failure is fatal at startup; nothing else in the config is fatal.
func (c *Config) Validate() error {
	if c.AlertThreshold <= 0 {
		return fmt.Errorf("PRICE_CHANGE_THRESHOLD must be positive, got %v", c.AlertThreshold)
	}
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"REALTIME_UPDATE_INTERVAL", c.RealtimeInterval},
		{"OFFHOURS_UPDATE_INTERVAL", c.OffHoursInterval},
		{"STOCK_INFO_UPDATE_INTERVAL", c.InfoInterval},
		{"ALERT_CHECK_INTERVAL", c.AlertInterval},
		{"REQUEST_TIMEOUT", c.RequestTimeout},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", iv.name, iv.d)
		}
	}
	if c.InfoFetchDelay < 0 {
		return fmt.Errorf("INFO_FETCH_DELAY must not be negative, got %v", c.InfoFetchDelay)
	}
	if c.HistoryRetention <= 0 || c.AlertRetention <= 0 {
		return fmt.Errorf("retention days must be positive (history=%d, alerts=%d)",
			c.HistoryRetention, c.AlertRetention)
	}
	if len(c.MonitorSymbols) == 0 {
		return fmt.Errorf("MONITOR_SYMBOLS must contain at least one symbol")
	}
	return nil
}

// InitDB initializes the database connection
func InitDB() (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if AppConfig.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error

	switch AppConfig.DBDriver {
	case "postgres":
		log.Printf("Connecting to postgres database %s", maskDSN(AppConfig.DatabaseURL))
		db, err = gorm.Open(postgres.Open(AppConfig.DatabaseURL), gormConfig)
	case "sqlite":
		log.Printf("Opening sqlite database at %s", AppConfig.DatabasePath)
		db, err = gorm.Open(sqlite.Open(AppConfig.DatabasePath), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", AppConfig.DBDriver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	// One writer at a time keeps sqlite happy under concurrent jobs.
	if AppConfig.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Println("Database connection verified successfully")
	DB = db
	return db, nil
}

// maskDSN masks credentials in a DSN for logging
func maskDSN(dsn string) string {
	if idx := strings.Index(dsn, "@"); idx > 0 {
		if start := strings.Index(dsn, "://"); start > 0 && start+3 < idx {
			return dsn[:start+3] + "***" + dsn[idx:]
		}
	}
	return dsn
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

func getEnvMillis(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMillis)) * time.Millisecond
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
