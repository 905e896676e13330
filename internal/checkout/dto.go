package checkout

import "github.com/haggleport/haggleport-backend/pkg/types"

// CheckoutRequest is the buyer's purchase intent for one listing.
type CheckoutRequest struct {
	ListingID           string                 `json:"listing_id" validate:"required,uuid4"`
	Quantity            int                    `json:"quantity" validate:"required,min=1"`
	AcceptanceMessageID *string                `json:"acceptance_message_id,omitempty" validate:"omitempty,uuid4"`
	Shipping            *types.ShippingDetails `json:"shipping,omitempty"`
}

// CheckoutResponse returns the provider redirect plus the order reference the
// client can poll.
type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
}
