// Package metrics provides Prometheus metrics for the Binderbay backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binderbay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Provider Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binderbay_provider_requests_total",
			Help: "Upstream price provider requests by source and result",
		},
		[]string{"source", "result"}, // result: "hit", "miss", "error"
	)

	// Snapshot Job Metrics
	SnapshotJobRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binderbay_snapshot_job_runs_total",
			Help: "Total number of snapshot job executions",
		},
	)

	SnapshotPairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binderbay_snapshot_pairs_total",
			Help: "Pairs processed by the snapshot job, by outcome",
		},
		[]string{"outcome"}, // "success", "skipped", "failed"
	)

	SnapshotJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "binderbay_snapshot_job_duration_seconds",
			Help:    "Time taken by a full snapshot job run",
			Buckets: []float64{1, 5, 15, 60, 300, 900},
		},
	)

	// Alert Engine Metrics
	AlertRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "binderbay_alert_runs_total",
			Help: "Total number of alert engine executions",
		},
	)

	AlertsEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binderbay_alerts_evaluated_total",
			Help: "Alerts evaluated by the engine, by outcome",
		},
		[]string{"outcome"}, // "triggered", "skipped", "no_data"
	)

	ActiveAlerts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "binderbay_active_alerts",
			Help: "Number of active price alerts at the last engine run",
		},
	)

	// Portfolio Metrics
	PortfolioComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binderbay_portfolio_computations_total",
			Help: "Portfolio valuations computed, by mode",
		},
		[]string{"mode"}, // "live", "stored"
	)

	PortfolioValueCents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "binderbay_portfolio_value_cents",
			Help: "Last computed portfolio value per user, in cents",
		},
		[]string{"user_id"},
	)

	PortfolioComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "binderbay_portfolio_compute_duration_seconds",
			Help:    "Time taken to compute a portfolio valuation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)
