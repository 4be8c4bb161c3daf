package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PortfolioSnapshot is a point-in-time record of a user's collection value.
// Append-only history used for trend charts; rows are never updated.
type PortfolioSnapshot struct {
	ID              string    `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          string    `json:"user_id" gorm:"not null;index"`
	TotalValueCents int64     `json:"total_value_cents" gorm:"not null"`
	TotalCostCents  int64     `json:"total_cost_cents" gorm:"not null"`
	PnlCents        int64     `json:"pnl_cents" gorm:"not null"`
	CapturedAt      time.Time `json:"captured_at" gorm:"not null;index"`
}

func (p *PortfolioSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
