package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertDirection is the side of the threshold the user cares about
type AlertDirection string

const (
	AlertDrop AlertDirection = "DROP"
	AlertRise AlertDirection = "RISE"
)

// IsValid reports whether the direction is one of the two supported values
func (d AlertDirection) IsValid() bool {
	return d == AlertDrop || d == AlertRise
}

// PriceAlert is a user-defined stop-loss/take-profit threshold on a (card,
// language) pair. An alert fires at most once: the engine flips Active to
// false and stamps TriggeredAt, and only the owner can re-arm it.
type PriceAlert struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         string         `json:"user_id" gorm:"not null;index"`
	CardID         string         `json:"card_id" gorm:"not null;index"`
	Language       CardLanguage   `json:"language" gorm:"not null;default:'English'"`
	ThresholdCents int64          `json:"threshold_cents" gorm:"not null"`
	Direction      AlertDirection `json:"direction" gorm:"not null"`
	Active         bool           `json:"active" gorm:"not null;index;default:true"`
	TriggeredAt    *time.Time     `json:"triggered_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (a *PriceAlert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// CreateAlertRequest is the payload for creating a price alert
type CreateAlertRequest struct {
	CardID         string         `json:"card_id" binding:"required"`
	Language       CardLanguage   `json:"language"`
	ThresholdCents int64          `json:"threshold_cents"`
	Direction      AlertDirection `json:"direction"`
}

// Validate rejects malformed alert input before anything is persisted
func (r *CreateAlertRequest) Validate() error {
	if r.CardID == "" {
		return fmt.Errorf("card_id is required")
	}
	if r.ThresholdCents <= 0 {
		return fmt.Errorf("threshold_cents must be positive")
	}
	if !r.Direction.IsValid() {
		return fmt.Errorf("direction must be DROP or RISE")
	}
	if r.Language == "" {
		return fmt.Errorf("language is required")
	}
	if !r.Language.IsValid() {
		return fmt.Errorf("unsupported language %q", r.Language)
	}
	return nil
}

// UpdateAlertRequest accepts a subset of mutable alert fields
type UpdateAlertRequest struct {
	Active         *bool  `json:"active"`
	ThresholdCents *int64 `json:"threshold_cents"`
}

// Validate checks the fields that are present
func (r *UpdateAlertRequest) Validate() error {
	if r.Active == nil && r.ThresholdCents == nil {
		return fmt.Errorf("no fields to update")
	}
	if r.ThresholdCents != nil && *r.ThresholdCents <= 0 {
		return fmt.Errorf("threshold_cents must be positive")
	}
	return nil
}
