package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is the marketplace item record. The payments core reads it for
// price and ownership checks; the only field it writes is Stock, and only
// through the inventory reconciler. A nil Stock means stock tracking is
// disabled for the listing.
type Listing struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	Title       string          `gorm:"column:title;type:text;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Currency    string          `gorm:"column:currency;type:text;not null;default:'eur'"`
	Stock       *int            `gorm:"column:stock"`
	AllowOffers bool            `gorm:"column:allow_offers;not null;default:false"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
