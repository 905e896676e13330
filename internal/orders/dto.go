package orders

import (
	"time"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/types"
)

// OrderResponse is the buyer-facing view of an order row.
type OrderResponse struct {
	ID            string                 `json:"id"`
	ListingID     string                 `json:"listing_id"`
	SellerID      string                 `json:"seller_id"`
	PriceCents    int64                  `json:"price_cents"`
	Currency      string                 `json:"currency"`
	Quantity      int                    `json:"quantity"`
	State         string                 `json:"state"`
	ProtestStatus *string                `json:"protest_status,omitempty"`
	Shipping      *types.ShippingDetails `json:"shipping,omitempty"`
	ReleasedAt    *time.Time             `json:"released_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

func toOrderResponse(order models.Order) OrderResponse {
	resp := OrderResponse{
		ID:         order.ID.String(),
		ListingID:  order.ListingID.String(),
		SellerID:   order.SellerID.String(),
		PriceCents: order.PriceCents,
		Currency:   order.Currency,
		Quantity:   order.Quantity,
		State:      order.State.String(),
		Shipping:   order.Shipping,
		ReleasedAt: order.ReleasedAt,
		CreatedAt:  order.CreatedAt,
	}
	if order.ProtestStatus != nil {
		status := order.ProtestStatus.String()
		resp.ProtestStatus = &status
	}
	return resp
}

func toOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	return out
}
