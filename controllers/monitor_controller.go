package controllers

import (
	"net/http"
	"time"

	"stock_monitor/models"
	"stock_monitor/scheduler"
	"stock_monitor/services/datafetcher"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MonitorController handles monitoring-set and scheduler lifecycle
// requests.
type MonitorController struct {
	db          *gorm.DB
	scheduler   *scheduler.Scheduler
	dataFetcher *datafetcher.DataFetcher
}

// NewMonitorController creates a new monitor controller
func NewMonitorController(db *gorm.DB, sched *scheduler.Scheduler, fetcher *datafetcher.DataFetcher) *MonitorController {
	return &MonitorController{
		db:          db,
		scheduler:   sched,
		dataFetcher: fetcher,
	}
}

// GetSchedulerStatus returns scheduler state and the job table
// GET /api/scheduler/status
func (mc *MonitorController) GetSchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": mc.scheduler.Status()})
}

// StartScheduler activates the scheduler
// POST /api/scheduler/start
func (mc *MonitorController) StartScheduler(c *gin.Context) {
	if err := mc.scheduler.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Scheduler started"})
}

// StopScheduler deactivates the scheduler
// POST /api/scheduler/stop
func (mc *MonitorController) StopScheduler(c *gin.Context) {
	mc.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Scheduler stopped"})
}

// GetMonitoredSymbols lists the monitoring set
// GET /api/scheduler/symbols
func (mc *MonitorController) GetMonitoredSymbols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": mc.scheduler.ListSymbols()})
}

// AddMonitoredSymbol adds a symbol to the monitoring set
// POST /api/scheduler/symbols {"symbol": "600519"}
func (mc *MonitorController) AddMonitoredSymbol(c *gin.Context) {
	var body struct {
		Symbol string `json:"symbol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Symbol is required"})
		return
	}

	mc.scheduler.AddSymbol(body.Symbol)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Symbol " + body.Symbol + " added to monitoring"})
}

// RemoveMonitoredSymbol removes a symbol from the monitoring set
// DELETE /api/scheduler/symbols/:symbol
func (mc *MonitorController) RemoveMonitoredSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	mc.scheduler.RemoveSymbol(symbol)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Symbol " + symbol + " removed from monitoring"})
}

// GetStats returns system statistics for the dashboard
// GET /api/stats
func (mc *MonitorController) GetStats(c *gin.Context) {
	var totalSymbols int64
	mc.db.Model(&models.StockInfo{}).Count(&totalSymbols)

	var recentAlerts int64
	mc.db.Model(&models.PriceAlert{}).
		Where("triggered_at > ?", time.Now().AddDate(0, 0, -1)).Count(&recentAlerts)

	status := mc.scheduler.Status()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total_symbols":     totalSymbols,
			"monitored_symbols": status.MonitoredSymbols,
			"recent_alerts":     recentAlerts,
			"scheduler_running": status.Running,
			"market_hours":      status.MarketOpen,
			"last_update":       time.Now().Format(time.RFC3339),
		},
	})
}

// HealthCheck reports database and provider connectivity
// GET /api/health
func (mc *MonitorController) HealthCheck(c *gin.Context) {
	dbStatus := "connected"
	if sqlDB, err := mc.db.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "disconnected"
	}

	providerStatus := "disconnected"
	if mc.dataFetcher.CheckConnection() {
		providerStatus = "connected"
	}

	healthy := dbStatus == "connected"
	code := http.StatusOK
	status := "healthy"
	if !healthy {
		code = http.StatusInternalServerError
		status = "unhealthy"
	}

	c.JSON(code, gin.H{
		"success":   healthy,
		"status":    status,
		"database":  dbStatus,
		"provider":  providerStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
