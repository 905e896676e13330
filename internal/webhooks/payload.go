package webhooks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/haggleport/haggleport-backend/internal/orders"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
)

// Stripe event types the gateway understands. Everything else is
// acknowledged and ignored.
const (
	TypeSessionCompleted  = "checkout.session.completed"
	TypeCapturableUpdated = "payment_intent.amount_capturable_updated"
	TypePaymentSucceeded  = "payment_intent.succeeded"
	TypePaymentCanceled   = "payment_intent.canceled"
	TypeDisputeCreated    = "charge.dispute.created"
	TypeDisputeClosed     = "charge.dispute.closed"
	TypeAccountUpdated    = "account.updated"
)

const metadataOrderID = "order_id"

// decodeOrderEvent turns a raw Stripe payload into the order event reference
// the state machine consumes. One decoder per event kind keeps payload
// branching compile-time checked instead of asserted at runtime.
func decodeOrderEvent(event stripe.Event) (orders.EventRef, bool, error) {
	switch string(event.Type) {
	case TypeSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return orders.EventRef{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		ref := orders.EventRef{
			Event:     orders.EventSessionCompleted,
			SessionID: session.ID,
			OrderID:   metadataOrder(session.Metadata),
		}
		if session.PaymentIntent != nil {
			ref.PaymentIntentID = session.PaymentIntent.ID
		}
		return ref, true, nil
	case TypeCapturableUpdated, TypePaymentSucceeded, TypePaymentCanceled:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return orders.EventRef{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		return orders.EventRef{
			Event:           intentEvent(string(event.Type)),
			PaymentIntentID: intent.ID,
			OrderID:         metadataOrder(intent.Metadata),
		}, true, nil
	case TypeDisputeCreated, TypeDisputeClosed:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return orders.EventRef{}, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode dispute")
		}
		ref := orders.EventRef{Event: orders.EventDisputeOpened}
		if string(event.Type) == TypeDisputeClosed {
			ref.Event = orders.EventDisputeClosed
		}
		if dispute.PaymentIntent != nil {
			ref.PaymentIntentID = dispute.PaymentIntent.ID
		}
		return ref, true, nil
	default:
		return orders.EventRef{}, false, nil
	}
}

func intentEvent(eventType string) orders.Event {
	switch eventType {
	case TypeCapturableUpdated:
		return orders.EventCapturableUpdated
	case TypePaymentSucceeded:
		return orders.EventPaymentSucceeded
	default:
		return orders.EventPaymentCanceled
	}
}

func metadataOrder(metadata map[string]string) uuid.UUID {
	raw, ok := metadata[metadataOrderID]
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
