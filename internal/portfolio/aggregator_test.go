package portfolio

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/binderbay/backend/internal/models"
	"github.com/binderbay/backend/internal/pricing"
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

// newTestAggregator wires an aggregator whose resolver only sees stored data.
// Tests pass live=false so upstream fetchers are never reached.
func newTestAggregator(t *testing.T, db *gorm.DB) (*Aggregator, *pricing.SnapshotStore) {
	t.Helper()
	store := pricing.NewSnapshotStore(db)
	resolver := pricing.NewResolver(store, nil, nil, zerolog.Nop())
	return NewAggregator(db, resolver, store, zerolog.Nop()), store
}

func seedDaily(t *testing.T, store *pricing.SnapshotStore, cardID string, lang models.CardLanguage, trend int64) {
	t.Helper()
	require.NoError(t, store.UpsertDailySnapshot(context.Background(), cardID, lang, models.SourceCardTrader, time.Now(), pricing.DailyFields{TrendCents: cents(trend)}))
}

func TestComputeTotalsWithMissingPrice(t *testing.T) {
	db := openTestDB(t)
	agg, store := newTestAggregator(t, db)
	ctx := context.Background()

	// valued holding: 2 x 500 value, 2 x 300 cost
	require.NoError(t, db.Create(&models.Holding{
		UserID: "u1", CardID: "card-a", Language: models.LanguageEnglish,
		Quantity: 2, AcquisitionPriceCents: cents(300),
	}).Error)
	// unvalued holding with a cost: 1 x 1000 cost
	require.NoError(t, db.Create(&models.Holding{
		UserID: "u1", CardID: "card-b", Language: models.LanguageEnglish,
		Quantity: 1, AcquisitionPriceCents: cents(1000),
	}).Error)
	seedDaily(t, store, "card-a", models.LanguageEnglish, 500)

	v, err := agg.Compute(ctx, "u1", false)
	require.NoError(t, err)

	assert.Equal(t, int64(1000), v.TotalValueCents, "value counts resolved holdings only")
	assert.Equal(t, int64(1600), v.TotalCostCents, "cost counts every holding with a cost")
	assert.Equal(t, int64(400), v.PnlCents, "pnl runs over the value-and-cost subset")
	assert.Equal(t, 2, v.ItemCount)
	assert.Equal(t, 1, v.ValuedCount)
	assert.Equal(t, 1, v.MissingCount)
}

func TestComputeQuantityAndRoi(t *testing.T) {
	db := openTestDB(t)
	agg, store := newTestAggregator(t, db)

	require.NoError(t, db.Create(&models.Holding{
		UserID: "u1", CardID: "card-a", Language: models.LanguageEnglish,
		Quantity: 3, AcquisitionPriceCents: cents(200),
	}).Error)
	seedDaily(t, store, "card-a", models.LanguageEnglish, 250)

	v, err := agg.Compute(context.Background(), "u1", false)
	require.NoError(t, err)
	require.Len(t, v.Breakdown, 1)

	item := v.Breakdown[0]
	assert.Equal(t, int64(750), *item.TotalValueCents)
	assert.Equal(t, int64(600), *item.TotalCostCents)
	assert.Equal(t, int64(150), *item.PnlCents)
	require.NotNil(t, item.RoiPercent)
	assert.Equal(t, 25.0, *item.RoiPercent)
}

func TestComputeRoiRoundingAndZeroCost(t *testing.T) {
	db := openTestDB(t)
	agg, store := newTestAggregator(t, db)

	// pnl 100 on cost 300 is 33.333..., rounded to one decimal
	require.NoError(t, db.Create(&models.Holding{
		UserID: "u1", CardID: "card-a", Language: models.LanguageEnglish,
		Quantity: 1, AcquisitionPriceCents: cents(300),
	}).Error)
	// zero recorded cost yields no roi
	require.NoError(t, db.Create(&models.Holding{
		UserID: "u1", CardID: "card-b", Language: models.LanguageEnglish,
		Quantity: 1, AcquisitionPriceCents: cents(0),
	}).Error)
	seedDaily(t, store, "card-a", models.LanguageEnglish, 400)
	seedDaily(t, store, "card-b", models.LanguageEnglish, 100)

	v, err := agg.Compute(context.Background(), "u1", false)
	require.NoError(t, err)
	require.Len(t, v.Breakdown, 2)

	byCard := make(map[string]BreakdownItem)
	for _, item := range v.Breakdown {
		byCard[item.CardID] = item
	}

	require.NotNil(t, byCard["card-a"].RoiPercent)
	assert.Equal(t, 33.3, *byCard["card-a"].RoiPercent)
	assert.Nil(t, byCard["card-b"].RoiPercent)
}

func TestComputeBreakdownOrdering(t *testing.T) {
	db := openTestDB(t)
	agg, store := newTestAggregator(t, db)

	holdings := []models.Holding{
		{UserID: "u1", CardID: "low-value", Language: models.LanguageEnglish, Quantity: 1},
		{UserID: "u1", CardID: "no-value-cheap", Language: models.LanguageEnglish, Quantity: 1, AcquisitionPriceCents: cents(100)},
		{UserID: "u1", CardID: "high-value", Language: models.LanguageEnglish, Quantity: 1},
		{UserID: "u1", CardID: "no-value-dear", Language: models.LanguageEnglish, Quantity: 1, AcquisitionPriceCents: cents(900)},
	}
	for i := range holdings {
		require.NoError(t, db.Create(&holdings[i]).Error)
	}
	seedDaily(t, store, "low-value", models.LanguageEnglish, 200)
	seedDaily(t, store, "high-value", models.LanguageEnglish, 800)

	v, err := agg.Compute(context.Background(), "u1", false)
	require.NoError(t, err)
	require.Len(t, v.Breakdown, 4)

	var order []string
	for _, item := range v.Breakdown {
		order = append(order, item.CardID)
	}
	assert.Equal(t, []string{"high-value", "low-value", "no-value-dear", "no-value-cheap"}, order)
}

func TestComputeSharedPairResolvedOnce(t *testing.T) {
	db := openTestDB(t)
	agg, store := newTestAggregator(t, db)

	// two holdings of the same pair in different conditions
	for _, cond := range []string{"NM", "PL"} {
		require.NoError(t, db.Create(&models.Holding{
			UserID: "u1", CardID: "card-a", Language: models.LanguageEnglish,
			Condition: cond, Quantity: 1,
		}).Error)
	}
	seedDaily(t, store, "card-a", models.LanguageEnglish, 500)

	v, err := agg.Compute(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.TotalValueCents)
	assert.Equal(t, 2, v.ValuedCount)
}

func TestSnapshotPolicy(t *testing.T) {
	db := openTestDB(t)
	agg, store := newTestAggregator(t, db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Holding{
		UserID: "u1", CardID: "card-a", Language: models.LanguageEnglish, Quantity: 1,
	}).Error)
	seedDaily(t, store, "card-a", models.LanguageEnglish, 500)

	countSnapshots := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.PortfolioSnapshot{}).Where("user_id = ?", "u1").Count(&n).Error)
		return n
	}

	_, err := agg.Compute(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countSnapshots(), "first computation records a history point")

	_, err = agg.Compute(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), countSnapshots(), "unchanged totals do not grow the history")

	_, err = agg.Snapshot(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), countSnapshots(), "forced snapshots always append")

	// totals moved: regular computation appends again
	require.NoError(t, store.UpsertDailySnapshot(ctx, "card-a", models.LanguageEnglish, models.SourceCardTrader, time.Now(), pricing.DailyFields{TrendCents: cents(600)}))
	_, err = agg.Compute(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), countSnapshots())
}

func TestComputeEmptyPortfolio(t *testing.T) {
	db := openTestDB(t)
	agg, _ := newTestAggregator(t, db)

	v, err := agg.Compute(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Zero(t, v.TotalValueCents)
	assert.Zero(t, v.TotalCostCents)
	assert.Zero(t, v.ItemCount)
	assert.Empty(t, v.Breakdown)
}
