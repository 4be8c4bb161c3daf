package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/binderbay/backend/internal/metrics"
	"github.com/binderbay/backend/internal/portfolio"
	"github.com/binderbay/backend/internal/pricing"
)

type PortfolioHandler struct {
	aggregator *portfolio.Aggregator
	store      *pricing.SnapshotStore
}

func NewPortfolioHandler(aggregator *portfolio.Aggregator, store *pricing.SnapshotStore) *PortfolioHandler {
	return &PortfolioHandler{
		aggregator: aggregator,
		store:      store,
	}
}

// GetPortfolio computes the caller's portfolio valuation. ?live=true lets
// unresolved pairs hit the upstream providers, within the live-call budget.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	live := c.Query("live") == "true"

	mode := "stored"
	if live {
		mode = "live"
	}
	metrics.PortfolioComputationsTotal.WithLabelValues(mode).Inc()

	start := time.Now()
	valuation, err := h.aggregator.Compute(c.Request.Context(), userID, live)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "portfolio computation failed"})
		return
	}
	metrics.PortfolioComputeDuration.Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, valuation)
}

// GetHistory returns the caller's portfolio value history, oldest first
func (h *PortfolioHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	days := 0 // all history by default
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	snapshots, err := h.store.PortfolioHistory(c.Request.Context(), userID, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load portfolio history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}
