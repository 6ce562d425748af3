package routes

import (
	"stock_monitor/controllers"
	"stock_monitor/scheduler"
	"stock_monitor/services"
	"stock_monitor/services/datafetcher"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, db *gorm.DB, sched *scheduler.Scheduler,
	fetcher *datafetcher.DataFetcher, stream *services.PriceStream) {

	stockController := controllers.NewStockController(db, fetcher)
	monitorController := controllers.NewMonitorController(db, sched, fetcher)

	api := router.Group("/api")
	{
		stocks := api.Group("/stocks")
		{
			stocks.GET("/prices", stockController.GetStockPrices)
			stocks.GET("/info/:symbol", stockController.GetStockInfo)
			stocks.GET("/history/:symbol", stockController.GetStockHistory)
			stocks.GET("/search", stockController.SearchStocks)
		}

		api.GET("/alerts", stockController.GetAlerts)

		sch := api.Group("/scheduler")
		{
			sch.GET("/status", monitorController.GetSchedulerStatus)
			sch.POST("/start", monitorController.StartScheduler)
			sch.POST("/stop", monitorController.StopScheduler)
			sch.GET("/symbols", monitorController.GetMonitoredSymbols)
			sch.POST("/symbols", monitorController.AddMonitoredSymbol)
			sch.DELETE("/symbols/:symbol", monitorController.RemoveMonitoredSymbol)
		}

		api.GET("/stats", monitorController.GetStats)
		api.GET("/health", monitorController.HealthCheck)
	}

	router.GET("/ws/prices", func(c *gin.Context) {
		stream.ServeWS(c.Writer, c.Request)
	})
}
