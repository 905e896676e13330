package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/haggleport/haggleport-backend/api/responses"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

const signatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	Process(ctx context.Context, event stripe.Event) (bool, error)
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook verifies and dispatches provider events. An unverifiable
// request is rejected before any state is touched; once the signature holds
// the delivery is acknowledged with 200 even when the handler fails, because
// the provider retry plus the event-id claim released on failure is the
// recovery path, not a 5xx.
func StripeWebhook(svc StripeWebhookService, client stripeClient, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(signatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "stripe signature missing"))
			return
		}

		// The account's pinned API version rarely matches the SDK's, so only
		// the signature and timestamp are enforced here.
		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "invalid stripe signature"))
			return
		}

		if _, err := svc.Process(ctx, event); err != nil {
			if logg != nil {
				ctx = logg.WithField(ctx, "event_id", event.ID)
				logg.Error(ctx, "webhook.handler_failed", err)
			}
			// Acknowledged anyway; the released event-id claim lets the
			// provider retry reprocess it.
			responses.WriteSuccess(w, nil)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed", event.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
