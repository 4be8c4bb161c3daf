// Package providers contains the upstream price API clients. Both providers
// share the same contract: a missing product or a payload without a usable
// trend price is "no data" (nil result, nil error), as are timeouts and
// network failures. Unexpected statuses and malformed payloads are errors;
// callers that batch decide whether to swallow them.
package providers

import (
	"encoding/json"
	"math"
	"time"
)

// PriceData is one provider observation, converted to minor currency units.
// Trend is the load-bearing field; everything else is best-effort.
type PriceData struct {
	// ExternalID is the provider's own product identifier, when the
	// response carries one. Used to discover product-ref mappings.
	ExternalID string
	TrendCents *int64
	LowCents   *int64
	AvgCents   *int64
	Avg1Cents  *int64
	Avg7Cents  *int64
	Avg30Cents *int64
	Raw        json.RawMessage
	CapturedAt time.Time
}

// HasTrend reports whether the observation carries a usable trend price
func (p *PriceData) HasTrend() bool {
	return p != nil && p.TrendCents != nil
}

// pricingBlock is the nested pricing object both providers return,
// denominated in decimal major currency units.
type pricingBlock struct {
	Trend *float64 `json:"trend"`
	Low   *float64 `json:"low"`
	Avg   *float64 `json:"avg"`
	Avg1  *float64 `json:"avg1"`
	Avg7  *float64 `json:"avg7"`
	Avg30 *float64 `json:"avg30"`
}

func (b *pricingBlock) toPriceData(raw json.RawMessage) *PriceData {
	return &PriceData{
		TrendCents: toCents(b.Trend),
		LowCents:   toCents(b.Low),
		AvgCents:   toCents(b.Avg),
		Avg1Cents:  toCents(b.Avg1),
		Avg7Cents:  toCents(b.Avg7),
		Avg30Cents: toCents(b.Avg30),
		Raw:        raw,
		CapturedAt: time.Now().UTC(),
	}
}

// toCents converts a decimal major-unit price to integer cents
func toCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	cents := int64(math.Round(*v * 100))
	return &cents
}
