package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binderbay/backend/internal/models"
)

func dailyRow(cardID string, source string, day time.Time, trend int64) models.DailyPriceSnapshot {
	return models.DailyPriceSnapshot{
		CardID:   cardID,
		Language: models.LanguageEnglish,
		Source:   source,
		Day:      models.UTCDay(day),
		TrendCents: func() *int64 {
			v := trend
			return &v
		}(),
	}
}

func TestBuildSeriesContiguousWithGaps(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	rows := []models.DailyPriceSnapshot{
		dailyRow("c1", models.SourceCardmarket, now.AddDate(0, 0, -4), 100),
		dailyRow("c1", models.SourceCardmarket, now, 140),
	}

	series := BuildSeries(rows, 5, now)
	require.Len(t, series, 5)

	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), series[0].Day)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), series[4].Day)

	assert.Equal(t, int64(100), *series[0].TrendCents)
	assert.Nil(t, series[1].TrendCents)
	assert.Nil(t, series[2].TrendCents)
	assert.Nil(t, series[3].TrendCents)
	assert.Equal(t, int64(140), *series[4].TrendCents)
}

func TestBuildSeriesPrimarySourceWins(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	rows := []models.DailyPriceSnapshot{
		dailyRow("c1", models.SourceCardTrader, now, 90),
		dailyRow("c1", models.SourceCardmarket, now, 110),
		dailyRow("c1", models.SourceCardTrader, now.AddDate(0, 0, -1), 85),
	}

	series := BuildSeries(rows, 2, now)
	require.Len(t, series, 2)

	assert.Equal(t, models.SourceCardTrader, series[0].Source)
	assert.Equal(t, int64(85), *series[0].TrendCents)
	assert.Equal(t, models.SourceCardmarket, series[1].Source)
	assert.Equal(t, int64(110), *series[1].TrendCents)
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name   string
		values []*int64
		min    *int64
		median *int64
		max    *int64
		volume int
	}{
		{name: "empty", values: nil, volume: 0},
		{name: "all gaps", values: []*int64{nil, nil}, volume: 0},
		{
			name:   "odd count",
			values: []*int64{cents(300), nil, cents(100), cents(200)},
			min:    cents(100), median: cents(200), max: cents(300), volume: 3,
		},
		{
			name:   "even count midpoint",
			values: []*int64{cents(100), cents(400), cents(200), cents(300)},
			min:    cents(100), median: cents(250), max: cents(400), volume: 4,
		},
		{
			name:   "single value",
			values: []*int64{cents(150)},
			min:    cents(150), median: cents(150), max: cents(150), volume: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := make([]SeriesPoint, len(tt.values))
			for i, v := range tt.values {
				series[i] = SeriesPoint{TrendCents: v}
			}

			stats := ComputeStats(series)
			assert.Equal(t, tt.volume, stats.Volume)
			if tt.min == nil {
				assert.Nil(t, stats.MinCents)
				assert.Nil(t, stats.MedianCents)
				assert.Nil(t, stats.MaxCents)
				return
			}
			assert.Equal(t, *tt.min, *stats.MinCents)
			assert.Equal(t, *tt.median, *stats.MedianCents)
			assert.Equal(t, *tt.max, *stats.MaxCents)
		})
	}
}
