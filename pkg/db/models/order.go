package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haggleport/haggleport-backend/pkg/enums"
	"github.com/haggleport/haggleport-backend/pkg/types"
)

// Order is the durable record of one escrow checkout attempt. Exactly one
// row exists per Stripe checkout session; the row is created once by the
// checkout service and mutated only by webhook-driven state transitions.
// Orders are never deleted, they stay around for dispute history.
type Order struct {
	ID                    uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID             uuid.UUID             `gorm:"column:listing_id;type:uuid;not null"`
	BuyerID               uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID              uuid.UUID             `gorm:"column:seller_id;type:uuid;not null"`
	PriceCents            int64                 `gorm:"column:price_cents;not null"`
	Currency              string                `gorm:"column:currency;type:text;not null;default:'eur'"`
	Quantity              int                   `gorm:"column:quantity;not null;default:1"`
	StripeSessionID       *string               `gorm:"column:stripe_session_id;uniqueIndex"`
	StripePaymentIntentID *string               `gorm:"column:stripe_payment_intent_id;index"`
	State                 enums.OrderState      `gorm:"column:state;type:text;not null;default:'created'"`
	ProtestStatus         *enums.ProtestStatus  `gorm:"column:protest_status;type:text"`
	StockReconciled       bool                  `gorm:"column:stock_reconciled;not null;default:false"`
	CaptureAfter          *time.Time            `gorm:"column:capture_after"`
	ReleasedAt            *time.Time            `gorm:"column:released_at"`
	Shipping              *types.ShippingDetails `gorm:"column:shipping;type:jsonb;serializer:json"`
	CreatedAt             time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
