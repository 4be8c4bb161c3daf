package models

import (
	"encoding/json"
	"time"
)

// Price source tags. Cardmarket is the primary reference source; CardTrader is
// consulted only when the primary chain yields nothing.
const (
	SourceCardmarket = "cardmarket"
	SourceCardTrader = "cardtrader"
)

// PayloadSchemaVersion tags stored provider payloads so the shape can evolve
// without guessing at old rows.
const PayloadSchemaVersion = 1

// ExternalProductRef maps a (card, language) pair to a provider's product ID.
// Populated by catalog import or discovered during live resolution.
type ExternalProductRef struct {
	ID                uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID            string       `json:"card_id" gorm:"not null;uniqueIndex:idx_ref_card_lang"`
	Language          CardLanguage `json:"language" gorm:"not null;uniqueIndex:idx_ref_card_lang"`
	Source            string       `json:"source" gorm:"not null;uniqueIndex:idx_ref_source_product"`
	ExternalProductID string       `json:"external_product_id" gorm:"not null;uniqueIndex:idx_ref_source_product"`
	CreatedAt         time.Time    `json:"created_at"`
}

// PriceSnapshot is one observed point price for an external product from the
// primary source. Rows accumulate; readers take the latest by CapturedAt.
type PriceSnapshot struct {
	ID                uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalProductID string    `json:"external_product_id" gorm:"not null;index"`
	TrendCents        *int64    `json:"trend_cents"`
	LowCents          *int64    `json:"low_cents"`
	AvgCents          *int64    `json:"avg_cents"`
	CapturedAt        time.Time `json:"captured_at" gorm:"not null;index"`
}

// SnapshotPayload is the typed, versioned provider payload stored alongside a
// daily snapshot for debugging. Body holds the raw provider response.
type SnapshotPayload struct {
	SchemaVersion int             `json:"schema_version"`
	Source        string          `json:"source"`
	Body          json.RawMessage `json:"body,omitempty"`
}

// DailyPriceSnapshot is one price observation per (card, language, source, day).
// Day is a calendar date at UTC midnight. The composite unique index is the
// sole consistency mechanism: all writes upsert on it, so concurrent writers
// to the same key both succeed with last-write-wins semantics.
type DailyPriceSnapshot struct {
	ID         uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID     string       `json:"card_id" gorm:"not null;uniqueIndex:idx_daily_card_lang_source_day"`
	Language   CardLanguage `json:"language" gorm:"not null;uniqueIndex:idx_daily_card_lang_source_day"`
	Source     string       `json:"source" gorm:"not null;uniqueIndex:idx_daily_card_lang_source_day"`
	Day        time.Time    `json:"day" gorm:"not null;uniqueIndex:idx_daily_card_lang_source_day"`
	TrendCents *int64       `json:"trend_cents"`
	LowCents   *int64       `json:"low_cents"`
	AvgCents   *int64       `json:"avg_cents"`
	Avg1Cents  *int64       `json:"avg1_cents"`
	Avg7Cents  *int64       `json:"avg7_cents"`
	Avg30Cents *int64       `json:"avg30_cents"`
	Payload    []byte       `json:"-" gorm:"type:blob"`
	CapturedAt time.Time    `json:"captured_at" gorm:"not null"`
}

// SetPayload marshals a versioned payload into the row
func (s *DailyPriceSnapshot) SetPayload(source string, body json.RawMessage) error {
	raw, err := json.Marshal(SnapshotPayload{
		SchemaVersion: PayloadSchemaVersion,
		Source:        source,
		Body:          body,
	})
	if err != nil {
		return err
	}
	s.Payload = raw
	return nil
}

// UTCDay truncates t to UTC midnight, the canonical day key
func UTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
