package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/binderbay/backend/internal/metrics"
	"github.com/binderbay/backend/internal/models"
	"github.com/binderbay/backend/internal/pricing"
)

// AlertSummary is the outcome of one alert engine run
type AlertSummary struct {
	Triggered int `json:"triggered"`
	Skipped   int `json:"skipped"`
	NoData    int `json:"no_data"`
	Total     int `json:"total"`
}

// AlertEngine evaluates active price alerts against the latest stored daily
// snapshot per pair, preferring the primary source and falling back to the
// secondary for pairs only the live secondary fallback has priced. No
// upstream calls happen here; the engine only reads what the snapshot job and
// live resolution have already persisted.
type AlertEngine struct {
	db       *gorm.DB
	store    *pricing.SnapshotStore
	notifier Notifier
	running  atomic.Bool
	log      zerolog.Logger
}

func NewAlertEngine(db *gorm.DB, store *pricing.SnapshotStore, notifier Notifier, log zerolog.Logger) *AlertEngine {
	return &AlertEngine{
		db:       db,
		store:    store,
		notifier: notifier,
		log:      log.With().Str("component", "alert-engine").Logger(),
	}
}

// Name identifies the job in scheduler logs
func (e *AlertEngine) Name() string { return "price-alerts" }

// Run evaluates every active alert once. Overlapping invocations return a
// zero summary immediately. An alert fires at most once: triggering flips it
// inactive, and nothing here re-arms it.
func (e *AlertEngine) Run(ctx context.Context) (AlertSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.log.Info().Msg("Alert engine already running, skipping")
		return AlertSummary{}, nil
	}
	defer e.running.Store(false)

	metrics.AlertRunsTotal.Inc()

	var alerts []models.PriceAlert
	if err := e.db.WithContext(ctx).Where("active = ?", true).Find(&alerts).Error; err != nil {
		e.log.Error().Err(err).Msg("Alert engine aborted: failed to load alerts")
		return AlertSummary{}, fmt.Errorf("failed to load active alerts: %w", err)
	}
	metrics.ActiveAlerts.Set(float64(len(alerts)))

	summary := AlertSummary{Total: len(alerts)}
	if len(alerts) == 0 {
		return summary, nil
	}

	// Batched latest-snapshot reads for all distinct pairs, never a query
	// per alert
	pairSet := make(map[pricing.PairKey]bool)
	var pairs []pricing.PairKey
	for _, a := range alerts {
		key := pricing.PairKey{CardID: a.CardID, Language: a.Language}
		if !pairSet[key] {
			pairSet[key] = true
			pairs = append(pairs, key)
		}
	}
	latest, err := e.store.LatestBatch(ctx, pairs, models.SourceCardmarket)
	if err != nil {
		e.log.Error().Err(err).Msg("Alert engine aborted: batch snapshot read failed")
		return AlertSummary{}, fmt.Errorf("batch snapshot read failed: %w", err)
	}

	// Pairs the primary source never priced may still have secondary rows
	// written by the live fallback
	var unpriced []pricing.PairKey
	for _, pair := range pairs {
		if row := latest[pair]; row == nil || row.TrendCents == nil {
			unpriced = append(unpriced, pair)
		}
	}
	if len(unpriced) > 0 {
		secondary, err := e.store.LatestBatch(ctx, unpriced, models.SourceCardTrader)
		if err != nil {
			e.log.Error().Err(err).Msg("Alert engine aborted: secondary batch read failed")
			return AlertSummary{}, fmt.Errorf("batch snapshot read failed: %w", err)
		}
		for pair, row := range secondary {
			latest[pair] = row
		}
	}

	for _, alert := range alerts {
		snapshot := latest[pricing.PairKey{CardID: alert.CardID, Language: alert.Language}]
		if snapshot == nil || snapshot.TrendCents == nil {
			summary.NoData++
			continue
		}

		if !thresholdCrossed(alert.Direction, *snapshot.TrendCents, alert.ThresholdCents) {
			summary.Skipped++
			continue
		}

		if err := e.trigger(ctx, alert, *snapshot.TrendCents); err != nil {
			e.log.Error().Err(err).Str("alert", alert.ID).Msg("Failed to trigger alert")
			summary.Skipped++
			continue
		}
		summary.Triggered++
	}

	metrics.AlertsEvaluatedTotal.WithLabelValues("triggered").Add(float64(summary.Triggered))
	metrics.AlertsEvaluatedTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))
	metrics.AlertsEvaluatedTotal.WithLabelValues("no_data").Add(float64(summary.NoData))

	e.log.Info().
		Int("triggered", summary.Triggered).
		Int("skipped", summary.Skipped).
		Int("no_data", summary.NoData).
		Msg("Alert engine finished")
	return summary, nil
}

// trigger deactivates the alert, stamps the trigger time, then notifies.
// Notification failure is logged, not fatal: the alert stays consumed.
func (e *AlertEngine) trigger(ctx context.Context, alert models.PriceAlert, trendCents int64) error {
	now := time.Now().UTC()
	result := e.db.WithContext(ctx).Model(&models.PriceAlert{}).
		Where("id = ? AND active = ?", alert.ID, true).
		Updates(map[string]interface{}{"active": false, "triggered_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Lost a race with another trigger path; the alert already fired
		return nil
	}

	alert.Active = false
	alert.TriggeredAt = &now
	if err := e.notifier.NotifyAlert(ctx, alert, trendCents); err != nil {
		e.log.Warn().Err(err).Str("alert", alert.ID).Msg("Alert notification failed")
	}
	return nil
}

// thresholdCrossed evaluates the alert condition; both boundaries are
// inclusive
func thresholdCrossed(direction models.AlertDirection, trendCents, thresholdCents int64) bool {
	switch direction {
	case models.AlertDrop:
		return trendCents <= thresholdCents
	case models.AlertRise:
		return trendCents >= thresholdCents
	default:
		return false
	}
}
