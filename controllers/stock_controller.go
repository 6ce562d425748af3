package controllers

import (
	"net/http"
	"strconv"
	"time"

	"stock_monitor/models"
	"stock_monitor/services"
	"stock_monitor/services/datafetcher"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StockController handles stock data requests
type StockController struct {
	db          *gorm.DB
	store       *services.GormStockStore
	dataFetcher *datafetcher.DataFetcher
}

// NewStockController creates a new stock controller
func NewStockController(db *gorm.DB, fetcher *datafetcher.DataFetcher) *StockController {
	return &StockController{
		db:          db,
		store:       services.NewGormStockStore(db),
		dataFetcher: fetcher,
	}
}

// GetStockPrices returns the latest snapshot per symbol, ordered by
// change percent descending, enriched with stock names.
// GET /api/stocks/prices?symbols=000001&symbols=600519
func (sc *StockController) GetStockPrices(c *gin.Context) {
	symbols := c.QueryArray("symbols")

	snapshots, err := sc.store.LatestSnapshots(symbols)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch prices"})
		return
	}

	names := sc.stockNames(snapshots)
	data := make([]gin.H, 0, len(snapshots))
	for _, snapshot := range snapshots {
		data = append(data, gin.H{
			"symbol":         snapshot.Symbol,
			"name":           names[snapshot.Symbol],
			"current_price":  snapshot.CurrentPrice,
			"open_price":     snapshot.OpenPrice,
			"high_price":     snapshot.HighPrice,
			"low_price":      snapshot.LowPrice,
			"close_price":    snapshot.ClosePrice,
			"volume":         snapshot.Volume,
			"change_amount":  snapshot.ChangeAmount,
			"change_percent": snapshot.ChangePercent,
			"timestamp":      snapshot.Timestamp,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetStockInfo returns stored information for a symbol
// GET /api/stocks/info/:symbol
func (sc *StockController) GetStockInfo(c *gin.Context) {
	symbol := c.Param("symbol")

	var info models.StockInfo
	if err := sc.db.Where("symbol = ?", symbol).First(&info).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch stock info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": info})
}

// GetStockHistory returns recent price history for a symbol
// GET /api/stocks/history/:symbol?limit=100
func (sc *StockController) GetStockHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var history []models.PriceHistory
	if err := sc.db.Where("symbol = ?", symbol).
		Order("timestamp DESC").Limit(limit).Find(&history).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": history})
}

// SearchStocks searches symbols at the provider by keyword
// GET /api/stocks/search?q=keyword
func (sc *StockController) SearchStocks(c *gin.Context) {
	keyword := c.Query("q")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Search keyword is required"})
		return
	}

	results, err := sc.dataFetcher.SearchStocks(keyword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": results})
}

// GetAlerts returns recent price alerts, newest first
// GET /api/alerts?limit=50
func (sc *StockController) GetAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var alerts []models.PriceAlert
	if err := sc.db.Order("triggered_at DESC").Limit(limit).Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

// stockNames loads the display names for the snapshots' symbols.
func (sc *StockController) stockNames(snapshots []models.StockPrice) map[string]string {
	if len(snapshots) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		symbols = append(symbols, snapshot.Symbol)
	}

	var infos []models.StockInfo
	if err := sc.db.Where("symbol IN ?", symbols).Find(&infos).Error; err != nil {
		return nil
	}

	names := make(map[string]string, len(infos))
	for _, info := range infos {
		names[info.Symbol] = info.Name
	}
	return names
}
