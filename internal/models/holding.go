package models

import (
	"time"
)

// Holding is a user's owned quantity of a specific (card, language, condition)
// combination. Rows are created and updated by the collection-management
// endpoints; the pricing core only reads them.
type Holding struct {
	ID                    uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID                string       `json:"user_id" gorm:"not null;index"`
	CardID                string       `json:"card_id" gorm:"not null;index"`
	Language              CardLanguage `json:"language" gorm:"not null;default:'English'"`
	Condition             string       `json:"condition" gorm:"default:'NM'"`
	Quantity              int          `json:"quantity" gorm:"not null;default:1"`
	AcquisitionPriceCents *int64       `json:"acquisition_price_cents"`
	AcquisitionCurrency   string       `json:"acquisition_currency"`
	CardName              string       `json:"card_name"`
	SetCode               string       `json:"set_code"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// ListingStatus is the lifecycle state of a marketplace listing
type ListingStatus string

const (
	ListingDraft     ListingStatus = "draft"
	ListingPublished ListingStatus = "published"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
)

// Listing is a marketplace sale offer. Listing CRUD lives in the marketplace
// handlers; the snapshot job reads listings to discover pairs worth pricing.
type Listing struct {
	ID         uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	SellerID   string        `json:"seller_id" gorm:"not null;index"`
	CardID     string        `json:"card_id" gorm:"not null;index"`
	Language   CardLanguage  `json:"language" gorm:"not null;default:'English'"`
	Status     ListingStatus `json:"status" gorm:"not null;index;default:'draft'"`
	PriceCents int64         `json:"price_cents"`
	Quantity   int           `json:"quantity" gorm:"default:1"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
