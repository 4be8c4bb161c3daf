// Package jobs contains the batch runners: the daily snapshot job and the
// alert engine. Each runner guards against self-overlap with an atomic flag
// owned by the runner instance, scoped per runner rather than shared, so a
// startup catch-up racing the schedule results in exactly one execution.
package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/binderbay/backend/internal/metrics"
	"github.com/binderbay/backend/internal/models"
	"github.com/binderbay/backend/internal/pricing"
)

// defaultPacing is the inter-call delay between primary provider fetches.
// Cooperative pacing, not a token bucket: the provider rate limits per
// second, and 4 calls/second stays well inside it.
const defaultPacing = 250 * time.Millisecond

// Summary is the outcome of one snapshot job run
type Summary struct {
	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// SnapshotJob fetches a daily price for every pair worth pricing and upserts
// it into the snapshot store under the primary source tag.
type SnapshotJob struct {
	store   *pricing.SnapshotStore
	primary pricing.PriceFetcher
	limiter *rate.Limiter
	running atomic.Bool
	log     zerolog.Logger
}

func NewSnapshotJob(store *pricing.SnapshotStore, primary pricing.PriceFetcher, pacing time.Duration, log zerolog.Logger) *SnapshotJob {
	if pacing <= 0 {
		pacing = defaultPacing
	}
	return &SnapshotJob{
		store:   store,
		primary: primary,
		limiter: rate.NewLimiter(rate.Every(pacing), 1),
		log:     log.With().Str("component", "snapshot-job").Logger(),
	}
}

// Name identifies the job in scheduler logs
func (j *SnapshotJob) Name() string { return "daily-price-snapshots" }

// Run executes one batch. A concurrent invocation returns a zero summary
// immediately instead of running twice. A failing pair never aborts the run;
// only a discovery failure is fatal.
func (j *SnapshotJob) Run(ctx context.Context) (Summary, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Info().Msg("Snapshot job already running, skipping")
		return Summary{}, nil
	}
	defer j.running.Store(false)

	start := time.Now()
	metrics.SnapshotJobRunsTotal.Inc()

	pairs, err := j.discoverPairs(ctx)
	if err != nil {
		j.log.Error().Err(err).Msg("Snapshot job aborted: pair discovery failed")
		return Summary{}, fmt.Errorf("pair discovery failed: %w", err)
	}

	summary := Summary{Total: len(pairs)}
	j.log.Info().Int("pairs", len(pairs)).Msg("Snapshot job started")

	for _, pair := range pairs {
		if err := j.limiter.Wait(ctx); err != nil {
			j.log.Warn().Err(err).Msg("Snapshot job cancelled")
			return summary, err
		}

		switch outcome := j.snapshotPair(ctx, pair); outcome {
		case "success":
			summary.Success++
		case "skipped":
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	metrics.SnapshotPairsTotal.WithLabelValues("success").Add(float64(summary.Success))
	metrics.SnapshotPairsTotal.WithLabelValues("skipped").Add(float64(summary.Skipped))
	metrics.SnapshotPairsTotal.WithLabelValues("failed").Add(float64(summary.Failed))
	metrics.SnapshotJobDuration.Observe(time.Since(start).Seconds())

	j.log.Info().
		Int("success", summary.Success).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Dur("took", time.Since(start)).
		Msg("Snapshot job finished")
	return summary, nil
}

// snapshotPair fetches and stores one pair. Outcomes: success, skipped
// (graceful no-data), failed (thrown provider or storage error).
func (j *SnapshotJob) snapshotPair(ctx context.Context, pair pricing.PairKey) string {
	data, err := j.primary.FetchPrice(ctx, pair.Language.ProviderCode(), pair.CardID)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(models.SourceCardmarket, "error").Inc()
		j.log.Warn().Err(err).Str("card", pair.CardID).Str("language", string(pair.Language)).Msg("Primary fetch failed")
		return "failed"
	}

	// Some catalog entries are indexed only under English
	if !data.HasTrend() && pair.Language.ProviderCode() != "en" {
		data, err = j.primary.FetchPrice(ctx, "en", pair.CardID)
		if err != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(models.SourceCardmarket, "error").Inc()
			j.log.Warn().Err(err).Str("card", pair.CardID).Msg("English-fallback fetch failed")
			return "failed"
		}
	}

	if !data.HasTrend() {
		metrics.ProviderRequestsTotal.WithLabelValues(models.SourceCardmarket, "miss").Inc()
		return "skipped"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(models.SourceCardmarket, "hit").Inc()

	err = j.store.UpsertDailySnapshot(ctx, pair.CardID, pair.Language, models.SourceCardmarket, data.CapturedAt, pricing.DailyFields{
		TrendCents: data.TrendCents,
		LowCents:   data.LowCents,
		AvgCents:   data.AvgCents,
		Avg1Cents:  data.Avg1Cents,
		Avg7Cents:  data.Avg7Cents,
		Avg30Cents: data.Avg30Cents,
		Payload:    data.Raw,
		CapturedAt: data.CapturedAt,
	})
	if err != nil {
		j.log.Error().Err(err).Str("card", pair.CardID).Msg("Failed to store daily snapshot")
		return "failed"
	}
	return "success"
}

// discoverPairs finds every pair worth pricing, stopping at the first
// non-empty source: user holdings, then published/sold listings, then the
// product-ref table.
func (j *SnapshotJob) discoverPairs(ctx context.Context) ([]pricing.PairKey, error) {
	pairs, err := j.store.DistinctHoldingPairs(ctx)
	if err != nil {
		return nil, err
	}
	if len(pairs) > 0 {
		return pairs, nil
	}

	pairs, err = j.store.DistinctListingPairs(ctx, []models.ListingStatus{models.ListingPublished, models.ListingSold})
	if err != nil {
		return nil, err
	}
	if len(pairs) > 0 {
		return pairs, nil
	}

	return j.store.DistinctRefPairs(ctx)
}
