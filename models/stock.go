package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Alert types stored in PriceAlert.AlertType
const (
	AlertTypeGain = "gain"
	AlertTypeLoss = "loss"
)

// StockInfo represents basic information about an A-share stock.
// Upserted by symbol; never deleted.
type StockInfo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Symbol    string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Name      string    `json:"name"`
	Market    string    `json:"market"` // SH, SZ
	Sector    string    `json:"sector"`
	Industry  string    `json:"industry"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockPrice is an append-only realtime price snapshot. The latest
// snapshot for a symbol is the row with the max timestamp.
type StockPrice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"index;not null" json:"symbol"`
	CurrentPrice  decimal.Decimal `gorm:"type:decimal(15,2)" json:"current_price"`
	OpenPrice     decimal.Decimal `gorm:"type:decimal(15,2)" json:"open_price"`
	HighPrice     decimal.Decimal `gorm:"type:decimal(15,2)" json:"high_price"`
	LowPrice      decimal.Decimal `gorm:"type:decimal(15,2)" json:"low_price"`
	ClosePrice    decimal.Decimal `gorm:"type:decimal(15,2)" json:"close_price"`
	Volume        int64           `json:"volume"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount"`
	ChangeAmount  decimal.Decimal `gorm:"type:decimal(15,2)" json:"change_amount"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"change_percent"`
	Timestamp     time.Time       `gorm:"index" json:"timestamp"`
}

// PriceHistory is a narrow projection of a snapshot kept for charting.
// Subject to retention pruning.
type PriceHistory struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"index;not null" json:"symbol"`
	Price         decimal.Decimal `gorm:"type:decimal(15,2)" json:"price"`
	ChangePercent decimal.Decimal `gorm:"type:decimal(10,4)" json:"change_percent"`
	Volume        int64           `json:"volume"`
	Timestamp     time.Time       `gorm:"index" json:"timestamp"`
}

// PriceAlert records a threshold-crossing price movement.
// Subject to retention pruning.
type PriceAlert struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `gorm:"index;not null" json:"symbol"`
	AlertType     string          `json:"alert_type"` // gain or loss
	Threshold     decimal.Decimal `gorm:"type:decimal(10,4)" json:"threshold"`
	CurrentChange decimal.Decimal `gorm:"type:decimal(10,4)" json:"current_change"`
	TriggeredAt   time.Time       `gorm:"index" json:"triggered_at"`
}

// MigrateStockModels runs database migrations for stock-related models
func MigrateStockModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&StockInfo{},
		&StockPrice{},
		&PriceHistory{},
		&PriceAlert{},
	)
}
