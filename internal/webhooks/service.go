package webhooks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/haggleport/haggleport-backend/internal/orders"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
	"github.com/haggleport/haggleport-backend/pkg/metrics"
)

type eventApplier interface {
	Apply(ctx context.Context, ref orders.EventRef) (bool, error)
}

type accountSync interface {
	SyncCapabilities(ctx context.Context, stripeAccountID string, chargesEnabled, payoutsEnabled bool) (bool, error)
}

// ServiceParams wires the webhook dispatch service.
type ServiceParams struct {
	Machine  eventApplier
	Accounts accountSync
	Guard    *Guard
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

// Service dispatches verified Stripe events. Signature verification happens
// at the transport edge; by the time an event reaches Process it is
// authentic.
type Service struct {
	machine  eventApplier
	accounts accountSync
	guard    *Guard
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Machine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state machine required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account sync required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		machine:  params.Machine,
		accounts: params.Accounts,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process applies one event. Re-deliveries of an already processed event id
// are dropped here; a failed handler releases the claim so the provider
// retry reprocesses it. The returned error reports the failure for logging
// and metrics, the transport acknowledges the delivery either way.
func (s *Service) Process(ctx context.Context, event stripe.Event) (bool, error) {
	eventType := string(event.Type)
	s.metrics.IncEventReceived(eventType)

	claimed, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		// Redis trouble must not drop money movement; process anyway and
		// rely on the state machine's conditional writes for safety.
		s.logg.Warn(ctx, fmt.Sprintf("idempotency check failed for %s: %v", event.ID, err))
	} else if !claimed {
		s.logg.Info(ctx, fmt.Sprintf("duplicate delivery of %s dropped", event.ID))
		return false, nil
	}

	applied, err := s.dispatch(ctx, event)
	if err != nil {
		s.metrics.IncEventFailed(eventType)
		if relErr := s.guard.Release(ctx, event.ID); relErr != nil {
			s.logg.Warn(ctx, fmt.Sprintf("releasing claim on %s failed: %v", event.ID, relErr))
		}
		return false, err
	}
	if applied {
		s.metrics.IncEventApplied(eventType)
	}
	return applied, nil
}

func (s *Service) dispatch(ctx context.Context, event stripe.Event) (bool, error) {
	if string(event.Type) == TypeAccountUpdated {
		return s.syncAccount(ctx, event)
	}

	ref, handled, err := decodeOrderEvent(event)
	if err != nil {
		return false, err
	}
	if !handled {
		s.logg.Info(ctx, fmt.Sprintf("ignoring unhandled event type %s", event.Type))
		return false, nil
	}
	return s.machine.Apply(ctx, ref)
}

func (s *Service) syncAccount(ctx context.Context, event stripe.Event) (bool, error) {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account")
	}
	updated, err := s.accounts.SyncCapabilities(ctx, account.ID, account.ChargesEnabled, account.PayoutsEnabled)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync account capabilities")
	}
	return updated, nil
}
