package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/haggleport/haggleport-backend/internal/orders"
	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// orderEvent is the message body downstream consumers (mail, analytics)
// receive for every applied transition.
type orderEvent struct {
	OrderID    string    `json:"order_id"`
	ListingID  string    `json:"listing_id"`
	BuyerID    string    `json:"buyer_id"`
	SellerID   string    `json:"seller_id"`
	Event      string    `json:"event"`
	State      string    `json:"state"`
	PriceCents int64     `json:"price_cents"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderPublisher pushes order lifecycle events to Pub/Sub. Publishing is
// fire-and-forget: a broker outage must never fail a webhook delivery, so
// errors are logged and dropped.
type OrderPublisher struct {
	pub  publisher
	logg *logger.Logger
}

func NewOrderPublisher(pub publisher, logg *logger.Logger) *OrderPublisher {
	return &OrderPublisher{pub: pub, logg: logg}
}

// OrderTransition publishes one applied transition.
func (p *OrderPublisher) OrderTransition(ctx context.Context, order models.Order, event orders.Event) {
	if p == nil || p.pub == nil {
		return
	}
	body, err := json.Marshal(orderEvent{
		OrderID:    order.ID.String(),
		ListingID:  order.ListingID.String(),
		BuyerID:    order.BuyerID.String(),
		SellerID:   order.SellerID.String(),
		Event:      string(event),
		State:      order.State.String(),
		PriceCents: order.PriceCents,
		Currency:   order.Currency,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		if p.logg != nil {
			p.logg.Warn(ctx, fmt.Sprintf("order event marshal failed: %v", err))
		}
		return
	}

	result := p.pub.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event":    string(event),
			"order_id": order.ID.String(),
		},
	})
	go func() {
		if _, err := result.Get(context.Background()); err != nil && p.logg != nil {
			p.logg.Warn(ctx, fmt.Sprintf("order event publish failed: %v", err))
		}
	}()
}
