package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/binderbay/backend/internal/models"
	"github.com/binderbay/backend/internal/pricing"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

type PriceHandler struct {
	resolver *pricing.Resolver
	store    *pricing.SnapshotStore
}

func NewPriceHandler(resolver *pricing.Resolver, store *pricing.SnapshotStore) *PriceHandler {
	return &PriceHandler{
		resolver: resolver,
		store:    store,
	}
}

// ResolvePrice resolves the current unit value for a (card, language) pair.
// ?live=true permits a synchronous upstream fetch on a stored-data miss.
func (h *PriceHandler) ResolvePrice(c *gin.Context) {
	cardID := c.Param("id")
	language := models.NormalizeLanguage(c.Query("language"))
	live := c.Query("live") == "true"

	res, err := h.resolver.Resolve(c.Request.Context(), cardID, language, pricing.ResolveOptions{Live: live})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "price resolution failed"})
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, gin.H{
			"card_id":  cardID,
			"language": language,
			"resolved": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"card_id":          cardID,
		"language":         language,
		"resolved":         true,
		"unit_value_cents": res.UnitValueCents,
		"source":           res.Source,
	})
}

// GetPriceHistory returns a per-day trend series for a pair plus aggregate
// stats. Days with no stored data are present with a null price.
func (h *PriceHandler) GetPriceHistory(c *gin.Context) {
	cardID := c.Param("id")
	language := models.NormalizeLanguage(c.Query("language"))

	days := defaultHistoryDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryDays {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}

	rows, err := h.store.DailySeries(c.Request.Context(), cardID, language, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load price history"})
		return
	}

	series := pricing.BuildSeries(rows, days, time.Now().UTC())
	stats := pricing.ComputeStats(series)

	c.JSON(http.StatusOK, gin.H{
		"card_id":  cardID,
		"language": language,
		"days":     days,
		"series":   series,
		"stats":    stats,
	})
}
