package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerAccount holds the payout-side profile of a seller: the Stripe
// connected account reference plus the KYC fields forwarded to it. The row
// is created on first onboarding request and updated idempotently on
// repeated submissions.
type SellerAccount struct {
	SellerID        uuid.UUID  `gorm:"column:seller_id;type:uuid;primaryKey"`
	StripeAccountID *string    `gorm:"column:stripe_account_id;uniqueIndex"`
	ChargesEnabled  bool       `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled  bool       `gorm:"column:payouts_enabled;not null;default:false"`
	FirstName       *string    `gorm:"column:first_name"`
	LastName        *string    `gorm:"column:last_name"`
	Email           *string    `gorm:"column:email"`
	Phone           *string    `gorm:"column:phone"`
	BirthDate       *time.Time `gorm:"column:birth_date"`
	AddressLine1    *string    `gorm:"column:address_line1"`
	City            *string    `gorm:"column:city"`
	PostalCode      *string    `gorm:"column:postal_code"`
	Country         *string    `gorm:"column:country"`
	TOSAcceptedAt   *time.Time `gorm:"column:tos_accepted_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
