package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid records a buyer's offer on a listing. Read-only for the payments core.
type Bid struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;index"`
	BidderID  uuid.UUID       `gorm:"column:bidder_id;type:uuid;not null"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
