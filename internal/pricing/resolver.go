package pricing

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/binderbay/backend/internal/models"
	"github.com/binderbay/backend/internal/providers"
)

const (
	// DefaultLiveCallBudget caps live provider calls within one batched
	// resolution so a large portfolio cannot fan out into hundreds of
	// upstream requests.
	DefaultLiveCallBudget = 50

	refCacheSize = 1024
)

// PriceFetcher is the upstream client contract the resolver consumes
type PriceFetcher interface {
	FetchPrice(ctx context.Context, languageCode, cardID string) (*providers.PriceData, error)
}

// ResolveOptions controls a single resolution
type ResolveOptions struct {
	// Live permits synchronous upstream calls when stored data misses
	Live bool
}

// Resolution is a resolved unit value and the source tag that answered
type Resolution struct {
	UnitValueCents int64  `json:"unit_value_cents"`
	Source         string `json:"source"`
}

// Resolver resolves a current unit value for a (card, language) pair by
// walking a fixed fallback chain: primary reference snapshot, stored
// secondary snapshot, live primary fetch (with English retry), live
// secondary fetch. Provider failures degrade to "no data"; only storage
// errors propagate.
type Resolver struct {
	store      *SnapshotStore
	primary    PriceFetcher
	secondary  PriceFetcher
	refCache   *lru.Cache[string, string]
	liveBudget int
	log        zerolog.Logger
}

func NewResolver(store *SnapshotStore, primary, secondary PriceFetcher, log zerolog.Logger) *Resolver {
	cache, _ := lru.New[string, string](refCacheSize)
	return &Resolver{
		store:      store,
		primary:    primary,
		secondary:  secondary,
		refCache:   cache,
		liveBudget: DefaultLiveCallBudget,
		log:        log.With().Str("component", "resolver").Logger(),
	}
}

// SetLiveCallBudget overrides the per-batch live call cap
func (r *Resolver) SetLiveCallBudget(n int) {
	if n > 0 {
		r.liveBudget = n
	}
}

// Resolve resolves a unit value for one pair. Returns nil when no source
// can answer.
func (r *Resolver) Resolve(ctx context.Context, cardID string, language models.CardLanguage, opts ResolveOptions) (*Resolution, error) {
	budget := r.liveBudget
	return r.resolve(ctx, PairKey{CardID: cardID, Language: language}, opts.Live, &budget)
}

// ResolveMany resolves many pairs in one batch. The stored tiers are
// prefetched in bulk (one ref lookup, one point-price read, one secondary
// batch read) so the batch never degenerates into per-pair queries; only
// pairs both tiers miss fall through to per-pair live resolution. Live calls
// across the whole batch share one budget; pairs past the budget resolve from
// stored data only. Pairs that resolved are present in the returned map.
func (r *Resolver) ResolveMany(ctx context.Context, pairs []PairKey, live bool) (map[PairKey]*Resolution, error) {
	budget := r.liveBudget
	results := make(map[PairKey]*Resolution, len(pairs))
	if len(pairs) == 0 {
		return results, nil
	}

	refs, err := r.lookupRefs(ctx, pairs)
	if err != nil {
		return nil, err
	}
	productIDs := make([]string, 0, len(refs))
	for _, id := range refs {
		productIDs = append(productIDs, id)
	}
	points, err := r.store.LatestPriceSnapshots(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	secondary, err := r.store.LatestBatch(ctx, pairs, models.SourceCardTrader)
	if err != nil {
		return nil, err
	}

	for _, pair := range pairs {
		if id, ok := refs[pair]; ok {
			if point := points[id]; point != nil && point.TrendCents != nil {
				results[pair] = &Resolution{UnitValueCents: *point.TrendCents, Source: models.SourceCardmarket}
				continue
			}
		}
		if daily := secondary[pair]; daily != nil && daily.TrendCents != nil {
			results[pair] = &Resolution{UnitValueCents: *daily.TrendCents, Source: models.SourceCardTrader}
			continue
		}
		if !live || budget <= 0 {
			continue
		}
		if res := r.resolveLive(ctx, pair, &budget); res != nil {
			results[pair] = res
		}
	}
	return results, nil
}

func (r *Resolver) resolve(ctx context.Context, pair PairKey, live bool, liveBudget *int) (*Resolution, error) {
	// 1. Primary reference mapping + latest point price
	ref, err := r.lookupRef(ctx, pair)
	if err != nil {
		return nil, err
	}
	if ref != "" {
		point, err := r.store.LatestPriceSnapshot(ctx, ref)
		if err != nil {
			return nil, err
		}
		if point != nil && point.TrendCents != nil {
			return &Resolution{UnitValueCents: *point.TrendCents, Source: models.SourceCardmarket}, nil
		}
	}

	// 2. Stored secondary-source daily snapshot
	daily, err := r.store.LatestDailySnapshot(ctx, pair.CardID, pair.Language, models.SourceCardTrader)
	if err != nil {
		return nil, err
	}
	if daily != nil && daily.TrendCents != nil {
		return &Resolution{UnitValueCents: *daily.TrendCents, Source: models.SourceCardTrader}, nil
	}

	if !live || *liveBudget <= 0 {
		return nil, nil
	}
	return r.resolveLive(ctx, pair, liveBudget), nil
}

// resolveLive runs the live tiers of the chain: primary fetch with English
// retry, then the secondary fallback, both persisted so future non-live reads
// hit the stored tiers. Provider failures degrade to nil.
func (r *Resolver) resolveLive(ctx context.Context, pair PairKey, liveBudget *int) *Resolution {
	// 3. Live primary fetch, English retry when the pair's language misses
	*liveBudget--
	if data := r.livePrimary(ctx, pair); data.HasTrend() {
		r.persistPrimaryHit(ctx, pair, data)
		return &Resolution{UnitValueCents: *data.TrendCents, Source: models.SourceCardmarket}
	}

	// 4. Live secondary fallback, persisted so future non-live reads hit step 2
	data, err := r.secondary.FetchPrice(ctx, pair.Language.ProviderCode(), pair.CardID)
	if err != nil {
		r.log.Debug().Err(err).Str("card", pair.CardID).Msg("Secondary live fetch failed")
		return nil
	}
	if !data.HasTrend() {
		return nil
	}
	sideWrite(r.log, "secondary daily snapshot", func() error {
		return r.store.UpsertDailySnapshot(ctx, pair.CardID, pair.Language, models.SourceCardTrader, data.CapturedAt, dailyFieldsFrom(data))
	})
	return &Resolution{UnitValueCents: *data.TrendCents, Source: models.SourceCardTrader}
}

// livePrimary fetches from the primary provider. Cardmarket-style pricing is
// currency-denominated, not language-denominated, so catalog entries missing
// under the pair's language are retried once against the English endpoint.
// Provider errors degrade to no data.
func (r *Resolver) livePrimary(ctx context.Context, pair PairKey) *providers.PriceData {
	data, err := r.primary.FetchPrice(ctx, pair.Language.ProviderCode(), pair.CardID)
	if err != nil {
		r.log.Debug().Err(err).Str("card", pair.CardID).Msg("Primary live fetch failed")
		data = nil
	}
	if data.HasTrend() {
		return data
	}
	if pair.Language.ProviderCode() == "en" {
		return nil
	}
	data, err = r.primary.FetchPrice(ctx, "en", pair.CardID)
	if err != nil {
		r.log.Debug().Err(err).Str("card", pair.CardID).Msg("Primary English-fallback fetch failed")
		return nil
	}
	return data
}

// persistPrimaryHit records a live primary result so future non-live reads
// find it: the discovered product mapping, a point price under it, and the
// daily snapshot row. All best-effort.
func (r *Resolver) persistPrimaryHit(ctx context.Context, pair PairKey, data *providers.PriceData) {
	if data.ExternalID != "" {
		sideWrite(r.log, "product ref", func() error {
			return r.store.SaveProductRef(ctx, models.ExternalProductRef{
				CardID:            pair.CardID,
				Language:          pair.Language,
				Source:            models.SourceCardmarket,
				ExternalProductID: data.ExternalID,
			})
		})
		sideWrite(r.log, "point price snapshot", func() error {
			return r.store.AppendPriceSnapshot(ctx, models.PriceSnapshot{
				ExternalProductID: data.ExternalID,
				TrendCents:        data.TrendCents,
				LowCents:          data.LowCents,
				AvgCents:          data.AvgCents,
				CapturedAt:        data.CapturedAt,
			})
		})
		r.refCache.Add(refCacheKey(pair), data.ExternalID)
	}
	sideWrite(r.log, "primary daily snapshot", func() error {
		return r.store.UpsertDailySnapshot(ctx, pair.CardID, pair.Language, models.SourceCardmarket, data.CapturedAt, dailyFieldsFrom(data))
	})
}

// lookupRef resolves the primary-source product mapping for a pair, through
// the lru cache. Only positive lookups are cached.
func (r *Resolver) lookupRef(ctx context.Context, pair PairKey) (string, error) {
	if id, ok := r.refCache.Get(refCacheKey(pair)); ok {
		return id, nil
	}
	ref, err := r.store.FindProductRef(ctx, pair.CardID, pair.Language, models.SourceCardmarket)
	if err != nil {
		return "", err
	}
	if ref == nil {
		return "", nil
	}
	r.refCache.Add(refCacheKey(pair), ref.ExternalProductID)
	return ref.ExternalProductID, nil
}

// lookupRefs resolves primary-source product mappings for a whole batch:
// cache hits first, then one query for the remainder.
func (r *Resolver) lookupRefs(ctx context.Context, pairs []PairKey) (map[PairKey]string, error) {
	found := make(map[PairKey]string, len(pairs))
	var missing []PairKey
	for _, pair := range pairs {
		if id, ok := r.refCache.Get(refCacheKey(pair)); ok {
			found[pair] = id
		} else {
			missing = append(missing, pair)
		}
	}
	if len(missing) == 0 {
		return found, nil
	}

	refs, err := r.store.FindProductRefs(ctx, missing, models.SourceCardmarket)
	if err != nil {
		return nil, err
	}
	for pair, ref := range refs {
		found[pair] = ref.ExternalProductID
		r.refCache.Add(refCacheKey(pair), ref.ExternalProductID)
	}
	return found, nil
}

func refCacheKey(pair PairKey) string {
	return pair.CardID + "|" + string(pair.Language)
}

func dailyFieldsFrom(data *providers.PriceData) DailyFields {
	capturedAt := data.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	return DailyFields{
		TrendCents: data.TrendCents,
		LowCents:   data.LowCents,
		AvgCents:   data.AvgCents,
		Avg1Cents:  data.Avg1Cents,
		Avg7Cents:  data.Avg7Cents,
		Avg30Cents: data.Avg30Cents,
		Payload:    data.Raw,
		CapturedAt: capturedAt,
	}
}
