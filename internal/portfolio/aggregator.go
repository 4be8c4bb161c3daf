// Package portfolio turns a user's holdings into value, cost and
// profit-and-loss figures using the price resolution chain.
package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/binderbay/backend/internal/metrics"
	"github.com/binderbay/backend/internal/models"
	"github.com/binderbay/backend/internal/pricing"
)

// BreakdownItem is one holding's slice of the valuation
type BreakdownItem struct {
	HoldingID       uint                `json:"holding_id"`
	CardID          string              `json:"card_id"`
	Language        models.CardLanguage `json:"language"`
	CardName        string              `json:"card_name,omitempty"`
	SetCode         string              `json:"set_code,omitempty"`
	Condition       string              `json:"condition,omitempty"`
	Quantity        int                 `json:"quantity"`
	UnitValueCents  *int64              `json:"unit_value_cents"`
	TotalValueCents *int64              `json:"total_value_cents"`
	UnitCostCents   *int64              `json:"unit_cost_cents"`
	TotalCostCents  *int64              `json:"total_cost_cents"`
	PnlCents        *int64              `json:"pnl_cents"`
	RoiPercent      *float64            `json:"roi_percent"`
	Source          string              `json:"source,omitempty"`
}

// Valuation is the aggregate result of a portfolio computation
type Valuation struct {
	TotalValueCents int64           `json:"total_value_cents"`
	TotalCostCents  int64           `json:"total_cost_cents"`
	PnlCents        int64           `json:"pnl_cents"`
	ItemCount       int             `json:"item_count"`
	ValuedCount     int             `json:"valued_count"`
	MissingCount    int             `json:"missing_count"`
	Breakdown       []BreakdownItem `json:"breakdown"`
}

// Aggregator computes portfolio valuations. Prices are resolved once per
// distinct (card, language) pair, not once per holding row.
type Aggregator struct {
	db       *gorm.DB
	resolver *pricing.Resolver
	store    *pricing.SnapshotStore
	log      zerolog.Logger
}

func NewAggregator(db *gorm.DB, resolver *pricing.Resolver, store *pricing.SnapshotStore, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		db:       db,
		resolver: resolver,
		store:    store,
		log:      log.With().Str("component", "portfolio").Logger(),
	}
}

// Compute values every holding of the user and records a history point when
// the totals moved. With live set, stored-data misses may fan out into
// upstream calls, capped by the resolver's live budget.
func (a *Aggregator) Compute(ctx context.Context, userID string, live bool) (*Valuation, error) {
	return a.compute(ctx, userID, live, false)
}

// Snapshot computes the valuation and forces a history point even when the
// totals did not move. Used by scheduled snapshots.
func (a *Aggregator) Snapshot(ctx context.Context, userID string, live bool) (*Valuation, error) {
	return a.compute(ctx, userID, live, true)
}

func (a *Aggregator) compute(ctx context.Context, userID string, live, force bool) (*Valuation, error) {
	var holdings []models.Holding
	if err := a.db.WithContext(ctx).Where("user_id = ?", userID).Find(&holdings).Error; err != nil {
		return nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	pairs := distinctPairs(holdings)
	resolutions, err := a.resolver.ResolveMany(ctx, pairs, live)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve prices: %w", err)
	}

	valuation := &Valuation{ItemCount: len(holdings)}

	// pnl runs over a separate sum restricted to holdings with both a
	// resolved value and a recorded cost. totalCost stays complete: it
	// counts every holding with a cost, valued or not.
	var pnlValue, pnlCost int64

	for _, h := range holdings {
		item := BreakdownItem{
			HoldingID: h.ID,
			CardID:    h.CardID,
			Language:  h.Language,
			CardName:  h.CardName,
			SetCode:   h.SetCode,
			Condition: h.Condition,
			Quantity:  h.Quantity,
		}

		res := resolutions[pricing.PairKey{CardID: h.CardID, Language: h.Language}]
		if res != nil {
			unit := res.UnitValueCents
			total := unit * int64(h.Quantity)
			item.UnitValueCents = &unit
			item.TotalValueCents = &total
			item.Source = res.Source
			valuation.TotalValueCents += total
			valuation.ValuedCount++
		} else {
			valuation.MissingCount++
		}

		if h.AcquisitionPriceCents != nil {
			unitCost := *h.AcquisitionPriceCents
			totalCost := unitCost * int64(h.Quantity)
			item.UnitCostCents = &unitCost
			item.TotalCostCents = &totalCost
			valuation.TotalCostCents += totalCost

			if item.TotalValueCents != nil {
				pnl := *item.TotalValueCents - totalCost
				item.PnlCents = &pnl
				item.RoiPercent = roiPercent(pnl, totalCost)
				pnlValue += *item.TotalValueCents
				pnlCost += totalCost
			}
		}

		valuation.Breakdown = append(valuation.Breakdown, item)
	}

	valuation.PnlCents = pnlValue - pnlCost
	sortBreakdown(valuation.Breakdown)
	metrics.PortfolioValueCents.WithLabelValues(userID).Set(float64(valuation.TotalValueCents))

	if err := a.recordSnapshot(ctx, userID, valuation, force); err != nil {
		// History is a side effect; the valuation itself already succeeded
		a.log.Warn().Err(err).Str("user", userID).Msg("Failed to record portfolio snapshot")
	}

	return valuation, nil
}

// recordSnapshot appends a portfolio history point. Policy: append only when
// the computed totals differ from the latest stored point, so read-frequency
// computations do not grow the history with identical rows. force bypasses
// the comparison.
func (a *Aggregator) recordSnapshot(ctx context.Context, userID string, v *Valuation, force bool) error {
	if !force {
		last, err := a.store.LatestPortfolioSnapshot(ctx, userID)
		if err != nil {
			return err
		}
		if last != nil &&
			last.TotalValueCents == v.TotalValueCents &&
			last.TotalCostCents == v.TotalCostCents &&
			last.PnlCents == v.PnlCents {
			return nil
		}
	}
	return a.store.AppendPortfolioSnapshot(ctx, userID, pricing.PortfolioTotals{
		TotalValueCents: v.TotalValueCents,
		TotalCostCents:  v.TotalCostCents,
		PnlCents:        v.PnlCents,
		CapturedAt:      time.Now().UTC(),
	})
}

// roiPercent returns round(pnl/cost*1000)/10, one decimal place, or nil for
// zero cost
func roiPercent(pnlCents, costCents int64) *float64 {
	if costCents == 0 {
		return nil
	}
	roi := math.Round(float64(pnlCents)/float64(costCents)*1000) / 10
	return &roi
}

// sortBreakdown orders valued items first, descending by total value, then
// unvalued items descending by total cost
func sortBreakdown(items []BreakdownItem) {
	sort.SliceStable(items, func(i, j int) bool {
		iv, jv := items[i].TotalValueCents, items[j].TotalValueCents
		switch {
		case iv != nil && jv != nil:
			return *iv > *jv
		case iv != nil:
			return true
		case jv != nil:
			return false
		}
		ic, jc := items[i].TotalCostCents, items[j].TotalCostCents
		switch {
		case ic != nil && jc != nil:
			return *ic > *jc
		case ic != nil:
			return true
		default:
			return false
		}
	})
}

func distinctPairs(holdings []models.Holding) []pricing.PairKey {
	seen := make(map[pricing.PairKey]bool, len(holdings))
	var pairs []pricing.PairKey
	for _, h := range holdings {
		key := pricing.PairKey{CardID: h.CardID, Language: h.Language}
		if !seen[key] {
			seen[key] = true
			pairs = append(pairs, key)
		}
	}
	return pairs
}
