package api

import (
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/binderbay/backend/internal/api/handlers"
	"github.com/binderbay/backend/internal/metrics"
)

// SetupRouter wires the pricing, portfolio and alert endpoints. Session
// authentication is handled by middleware outside this core; handlers trust
// the user identity it injects.
func SetupRouter(corsOrigins []string, priceHandler *handlers.PriceHandler, portfolioHandler *handlers.PortfolioHandler, alertHandler *handlers.AlertHandler, jobHandler *handlers.JobHandler) *gin.Engine {
	router := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = corsOrigins
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"}
	config.AllowCredentials = false
	router.Use(cors.New(config))
	router.Use(requestMetrics())

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/:id/price", priceHandler.ResolvePrice)
			cards.GET("/:id/history", priceHandler.GetPriceHistory)
		}

		portfolio := api.Group("/portfolio")
		{
			portfolio.GET("", portfolioHandler.GetPortfolio)
			portfolio.GET("/history", portfolioHandler.GetHistory)
		}

		alerts := api.Group("/alerts")
		{
			alerts.POST("", alertHandler.CreateAlert)
			alerts.GET("", alertHandler.ListAlerts)
			alerts.PATCH("/:id", alertHandler.UpdateAlert)
			alerts.DELETE("/:id", alertHandler.DeleteAlert)
		}

		admin := api.Group("/admin/jobs")
		{
			admin.POST("/snapshots", jobHandler.RunSnapshotJob)
			admin.POST("/alerts", jobHandler.RunAlertEngine)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records per-request counters for Prometheus
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}
