package pricing

import (
	"sort"
	"time"

	"github.com/binderbay/backend/internal/models"
)

// SeriesPoint is one calendar day in a price history series. TrendCents is
// nil on days with no stored data.
type SeriesPoint struct {
	Day        time.Time `json:"day"`
	TrendCents *int64    `json:"trend_cents"`
	Source     string    `json:"source,omitempty"`
}

// SeriesStats are aggregates over the non-empty days of a series
type SeriesStats struct {
	MinCents    *int64 `json:"min_cents"`
	MedianCents *int64 `json:"median_cents"`
	MaxCents    *int64 `json:"max_cents"`
	Volume      int    `json:"volume"`
}

// BuildSeries expands stored daily snapshots into a contiguous per-day series
// ending today, one point per calendar day, oldest first. When both sources
// have a row for a day the primary source wins.
func BuildSeries(rows []models.DailyPriceSnapshot, days int, now time.Time) []SeriesPoint {
	byDay := make(map[time.Time]*models.DailyPriceSnapshot)
	for i := range rows {
		row := &rows[i]
		day := models.UTCDay(row.Day)
		existing, ok := byDay[day]
		if !ok || (existing.Source != models.SourceCardmarket && row.Source == models.SourceCardmarket) {
			byDay[day] = row
		}
	}

	series := make([]SeriesPoint, 0, days)
	start := models.UTCDay(now).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		point := SeriesPoint{Day: day}
		if row, ok := byDay[day]; ok {
			point.TrendCents = row.TrendCents
			point.Source = row.Source
		}
		series = append(series, point)
	}
	return series
}

// ComputeStats computes min/median/max over the days that have a trend price
// plus the count of such days. The median uses the standard midpoint-average
// rule for even-length inputs.
func ComputeStats(series []SeriesPoint) SeriesStats {
	var values []int64
	for _, p := range series {
		if p.TrendCents != nil {
			values = append(values, *p.TrendCents)
		}
	}
	stats := SeriesStats{Volume: len(values)}
	if len(values) == 0 {
		return stats
	}

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	minV := values[0]
	maxV := values[len(values)-1]
	var median int64
	mid := len(values) / 2
	if len(values)%2 == 1 {
		median = values[mid]
	} else {
		median = (values[mid-1] + values[mid]) / 2
	}

	stats.MinCents = &minV
	stats.MedianCents = &median
	stats.MaxCents = &maxV
	return stats
}
