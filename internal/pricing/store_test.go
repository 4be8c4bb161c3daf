package pricing

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/binderbay/backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Holding{},
		&models.Listing{},
		&models.ExternalProductRef{},
		&models.PriceSnapshot{},
		&models.DailyPriceSnapshot{},
		&models.PortfolioSnapshot{},
		&models.PriceAlert{},
	))
	return db
}

func cents(v int64) *int64 { return &v }

func TestUpsertDailySnapshotIdempotent(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC) // mid-day, must normalize

	err := store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, day, DailyFields{
		TrendCents: cents(500),
		LowCents:   cents(400),
	})
	require.NoError(t, err)

	// Second write to the same key with different values must replace, not
	// duplicate
	err = store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, day, DailyFields{
		TrendCents: cents(550),
		LowCents:   cents(420),
	})
	require.NoError(t, err)

	var rows []models.DailyPriceSnapshot
	require.NoError(t, store.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(550), *rows[0].TrendCents)
	assert.Equal(t, int64(420), *rows[0].LowCents)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), rows[0].Day.UTC())
}

func TestUpsertDailySnapshotDistinctKeys(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, day, DailyFields{TrendCents: cents(100)}))
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageGerman, models.SourceCardmarket, day, DailyFields{TrendCents: cents(110)}))
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardTrader, day, DailyFields{TrendCents: cents(120)}))
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, day.AddDate(0, 0, 1), DailyFields{TrendCents: cents(130)}))

	var count int64
	store.db.Model(&models.DailyPriceSnapshot{}).Count(&count)
	assert.Equal(t, int64(4), count)
}

func TestLatestDailySnapshot(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()

	row, err := store.LatestDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket)
	require.NoError(t, err)
	assert.Nil(t, row, "no data should be nil, not an error")

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, trend := range []int64{100, 120, 110} {
		require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, base.AddDate(0, 0, i), DailyFields{TrendCents: cents(trend)}))
	}

	row, err = store.LatestDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(110), *row.TrendCents, "latest by day wins, not highest")
}

func TestLatestBatch(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// card-1/en has two days; card-2/de has one; card-3 has none
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, base, DailyFields{TrendCents: cents(100)}))
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageEnglish, models.SourceCardmarket, base.AddDate(0, 0, 1), DailyFields{TrendCents: cents(150)}))
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-2", models.LanguageGerman, models.SourceCardmarket, base, DailyFields{TrendCents: cents(200)}))
	// Same card, different language: must not leak into card-1/en
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-1", models.LanguageGerman, models.SourceCardmarket, base.AddDate(0, 0, 2), DailyFields{TrendCents: cents(999)}))

	pairs := []PairKey{
		{CardID: "card-1", Language: models.LanguageEnglish},
		{CardID: "card-2", Language: models.LanguageGerman},
		{CardID: "card-3", Language: models.LanguageEnglish},
	}
	result, err := store.LatestBatch(ctx, pairs, models.SourceCardmarket)
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, int64(150), *result[pairs[0]].TrendCents)
	assert.Equal(t, int64(200), *result[pairs[1]].TrendCents)
	assert.Nil(t, result[pairs[2]])
}

func TestPortfolioSnapshots(t *testing.T) {
	store := NewSnapshotStore(openTestDB(t))
	ctx := context.Background()

	last, err := store.LatestPortfolioSnapshot(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, store.AppendPortfolioSnapshot(ctx, "user-1", PortfolioTotals{
		TotalValueCents: 1000, TotalCostCents: 800, PnlCents: 200,
		CapturedAt: time.Now().UTC().Add(-time.Hour),
	}))
	require.NoError(t, store.AppendPortfolioSnapshot(ctx, "user-1", PortfolioTotals{
		TotalValueCents: 1200, TotalCostCents: 800, PnlCents: 400,
		CapturedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.AppendPortfolioSnapshot(ctx, "user-2", PortfolioTotals{
		TotalValueCents: 5000,
	}))

	last, err = store.LatestPortfolioSnapshot(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, int64(1200), last.TotalValueCents)

	history, err := store.PortfolioHistory(ctx, "user-1", 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CapturedAt.Before(history[1].CapturedAt), "history is oldest first")
}

func TestDistinctPairDiscovery(t *testing.T) {
	db := openTestDB(t)
	store := NewSnapshotStore(db)
	ctx := context.Background()

	// Two users holding the same pair must yield one pair
	db.Create(&models.Holding{UserID: "u1", CardID: "card-1", Language: models.LanguageEnglish, Quantity: 1})
	db.Create(&models.Holding{UserID: "u2", CardID: "card-1", Language: models.LanguageEnglish, Quantity: 3})
	db.Create(&models.Holding{UserID: "u1", CardID: "card-2", Language: models.LanguageGerman, Quantity: 1})

	pairs, err := store.DistinctHoldingPairs(ctx)
	require.NoError(t, err)
	assert.Len(t, pairs, 2)

	db.Create(&models.Listing{SellerID: "u1", CardID: "card-3", Language: models.LanguageEnglish, Status: models.ListingPublished})
	db.Create(&models.Listing{SellerID: "u1", CardID: "card-4", Language: models.LanguageEnglish, Status: models.ListingDraft})

	listingPairs, err := store.DistinctListingPairs(ctx, []models.ListingStatus{models.ListingPublished, models.ListingSold})
	require.NoError(t, err)
	require.Len(t, listingPairs, 1, "draft listings are not priced")
	assert.Equal(t, "card-3", listingPairs[0].CardID)
}
