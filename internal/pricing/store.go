package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/binderbay/backend/internal/models"
)

// PairKey identifies a (card, language) pair, the unit of price resolution
type PairKey struct {
	CardID   string
	Language models.CardLanguage
}

// DailyFields carries the price fields for a daily snapshot upsert
type DailyFields struct {
	TrendCents *int64
	LowCents   *int64
	AvgCents   *int64
	Avg1Cents  *int64
	Avg7Cents  *int64
	Avg30Cents *int64
	Payload    json.RawMessage
	CapturedAt time.Time
}

// PortfolioTotals are the figures recorded in a portfolio history point
type PortfolioTotals struct {
	TotalValueCents int64
	TotalCostCents  int64
	PnlCents        int64
	CapturedAt      time.Time
}

// SnapshotStore persists and reads the price time series. All daily writes
// are upserts on the (card, language, source, day) unique key; the database
// constraint is the correctness mechanism, not application-level locking.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// UpsertDailySnapshot creates or replaces the daily row for the key. Safe
// under concurrent callers racing for the same day.
func (s *SnapshotStore) UpsertDailySnapshot(ctx context.Context, cardID string, language models.CardLanguage, source string, day time.Time, fields DailyFields) error {
	capturedAt := fields.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	row := models.DailyPriceSnapshot{
		CardID:     cardID,
		Language:   language,
		Source:     source,
		Day:        models.UTCDay(day),
		TrendCents: fields.TrendCents,
		LowCents:   fields.LowCents,
		AvgCents:   fields.AvgCents,
		Avg1Cents:  fields.Avg1Cents,
		Avg7Cents:  fields.Avg7Cents,
		Avg30Cents: fields.Avg30Cents,
		CapturedAt: capturedAt,
	}
	if err := row.SetPayload(source, fields.Payload); err != nil {
		return fmt.Errorf("failed to encode snapshot payload: %w", err)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "card_id"}, {Name: "language"}, {Name: "source"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"trend_cents", "low_cents", "avg_cents", "avg1_cents", "avg7_cents", "avg30_cents",
			"payload", "captured_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily snapshot: %w", err)
	}
	return nil
}

// LatestDailySnapshot returns the most recent row by day, or nil
func (s *SnapshotStore) LatestDailySnapshot(ctx context.Context, cardID string, language models.CardLanguage, source string) (*models.DailyPriceSnapshot, error) {
	var row models.DailyPriceSnapshot
	err := s.db.WithContext(ctx).
		Where("card_id = ? AND language = ? AND source = ?", cardID, language, source).
		Order("day DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LatestBatch returns the most recent daily snapshot per pair for the given
// source in one round trip. Pairs with no data are absent from the map.
func (s *SnapshotStore) LatestBatch(ctx context.Context, pairs []PairKey, source string) (map[PairKey]*models.DailyPriceSnapshot, error) {
	result := make(map[PairKey]*models.DailyPriceSnapshot, len(pairs))
	if len(pairs) == 0 {
		return result, nil
	}

	wanted := make(map[PairKey]bool, len(pairs))
	cardIDs := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !wanted[p] {
			cardIDs = append(cardIDs, p.CardID)
		}
		wanted[p] = true
	}

	var rows []models.DailyPriceSnapshot
	err := s.db.WithContext(ctx).
		Where("source = ? AND card_id IN ?", source, cardIDs).
		Order("day DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Rows arrive newest-first; the first row seen per pair wins
	for i := range rows {
		key := PairKey{CardID: rows[i].CardID, Language: rows[i].Language}
		if !wanted[key] {
			continue
		}
		if _, seen := result[key]; !seen {
			result[key] = &rows[i]
		}
	}
	return result, nil
}

// AppendPortfolioSnapshot inserts an append-only portfolio history point
func (s *SnapshotStore) AppendPortfolioSnapshot(ctx context.Context, userID string, totals PortfolioTotals) error {
	capturedAt := totals.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	row := models.PortfolioSnapshot{
		UserID:          userID,
		TotalValueCents: totals.TotalValueCents,
		TotalCostCents:  totals.TotalCostCents,
		PnlCents:        totals.PnlCents,
		CapturedAt:      capturedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// LatestPortfolioSnapshot returns the user's most recent history point, or nil
func (s *SnapshotStore) LatestPortfolioSnapshot(ctx context.Context, userID string) (*models.PortfolioSnapshot, error) {
	var row models.PortfolioSnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("captured_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// PortfolioHistory returns the user's history points within the last N days,
// oldest first
func (s *SnapshotStore) PortfolioHistory(ctx context.Context, userID string, days int) ([]models.PortfolioSnapshot, error) {
	var rows []models.PortfolioSnapshot
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("captured_at ASC")
	if days > 0 {
		query = query.Where("captured_at >= ?", time.Now().UTC().AddDate(0, 0, -days))
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindProductRef looks up the provider mapping for a pair, or nil
func (s *SnapshotStore) FindProductRef(ctx context.Context, cardID string, language models.CardLanguage, source string) (*models.ExternalProductRef, error) {
	var ref models.ExternalProductRef
	err := s.db.WithContext(ctx).
		Where("card_id = ? AND language = ? AND source = ?", cardID, language, source).
		First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// FindProductRefs returns the provider mappings for many pairs in one round
// trip. Pairs with no mapping are absent from the map.
func (s *SnapshotStore) FindProductRefs(ctx context.Context, pairs []PairKey, source string) (map[PairKey]*models.ExternalProductRef, error) {
	result := make(map[PairKey]*models.ExternalProductRef, len(pairs))
	if len(pairs) == 0 {
		return result, nil
	}

	wanted := make(map[PairKey]bool, len(pairs))
	cardIDs := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if !wanted[p] {
			cardIDs = append(cardIDs, p.CardID)
		}
		wanted[p] = true
	}

	var rows []models.ExternalProductRef
	err := s.db.WithContext(ctx).
		Where("source = ? AND card_id IN ?", source, cardIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		key := PairKey{CardID: rows[i].CardID, Language: rows[i].Language}
		if wanted[key] {
			result[key] = &rows[i]
		}
	}
	return result, nil
}

// SaveProductRef records a discovered provider mapping. Conflicts with an
// existing mapping are ignored rather than overwritten.
func (s *SnapshotStore) SaveProductRef(ctx context.Context, ref models.ExternalProductRef) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error
}

// LatestPriceSnapshot returns the newest point price for an external product,
// or nil
func (s *SnapshotStore) LatestPriceSnapshot(ctx context.Context, externalProductID string) (*models.PriceSnapshot, error) {
	var row models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("external_product_id = ?", externalProductID).
		Order("captured_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LatestPriceSnapshots returns the newest point price per external product in
// one round trip. Products with no rows are absent from the map.
func (s *SnapshotStore) LatestPriceSnapshots(ctx context.Context, externalProductIDs []string) (map[string]*models.PriceSnapshot, error) {
	result := make(map[string]*models.PriceSnapshot, len(externalProductIDs))
	if len(externalProductIDs) == 0 {
		return result, nil
	}

	var rows []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("external_product_id IN ?", externalProductIDs).
		Order("captured_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// Rows arrive newest-first; the first row seen per product wins
	for i := range rows {
		if _, seen := result[rows[i].ExternalProductID]; !seen {
			result[rows[i].ExternalProductID] = &rows[i]
		}
	}
	return result, nil
}

// AppendPriceSnapshot records a point-price observation for an external product
func (s *SnapshotStore) AppendPriceSnapshot(ctx context.Context, row models.PriceSnapshot) error {
	if row.CapturedAt.IsZero() {
		row.CapturedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// DailySeries returns all daily snapshots for a pair within the last N days,
// across every source, oldest first
func (s *SnapshotStore) DailySeries(ctx context.Context, cardID string, language models.CardLanguage, days int) ([]models.DailyPriceSnapshot, error) {
	since := models.UTCDay(time.Now().UTC().AddDate(0, 0, -(days - 1)))
	var rows []models.DailyPriceSnapshot
	err := s.db.WithContext(ctx).
		Where("card_id = ? AND language = ? AND day >= ?", cardID, language, since).
		Order("day ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DistinctHoldingPairs returns every (card, language) pair present in any
// user's holdings
func (s *SnapshotStore) DistinctHoldingPairs(ctx context.Context) ([]PairKey, error) {
	return s.distinctPairs(ctx, s.db.WithContext(ctx).Model(&models.Holding{}))
}

// DistinctListingPairs returns every pair across listings in the given states
func (s *SnapshotStore) DistinctListingPairs(ctx context.Context, statuses []models.ListingStatus) ([]PairKey, error) {
	return s.distinctPairs(ctx, s.db.WithContext(ctx).Model(&models.Listing{}).Where("status IN ?", statuses))
}

// DistinctRefPairs returns every pair known to the product-ref table
func (s *SnapshotStore) DistinctRefPairs(ctx context.Context) ([]PairKey, error) {
	return s.distinctPairs(ctx, s.db.WithContext(ctx).Model(&models.ExternalProductRef{}))
}

func (s *SnapshotStore) distinctPairs(ctx context.Context, query *gorm.DB) ([]PairKey, error) {
	var rows []struct {
		CardID   string
		Language models.CardLanguage
	}
	if err := query.Distinct("card_id", "language").Find(&rows).Error; err != nil {
		return nil, err
	}
	pairs := make([]PairKey, len(rows))
	for i, r := range rows {
		pairs[i] = PairKey{CardID: r.CardID, Language: r.Language}
	}
	return pairs, nil
}
