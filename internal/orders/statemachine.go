package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/enums"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

// Event enumerates the provider signals the order state machine understands.
type Event string

const (
	EventSessionCompleted  Event = "session_completed"
	EventCapturableUpdated Event = "capturable_updated"
	EventPaymentSucceeded  Event = "payment_succeeded"
	EventPaymentCanceled   Event = "payment_canceled"
	EventDisputeOpened     Event = "dispute_opened"
	EventDisputeClosed     Event = "dispute_closed"
)

// EventRef correlates one provider event with an order row. SessionID is set
// for the completion event; everything later carries the payment intent id.
// OrderID is the metadata fallback for intent events that arrive before the
// completion event had a chance to record the intent id on the row.
type EventRef struct {
	Event           Event
	SessionID       string
	PaymentIntentID string
	OrderID         uuid.UUID
}

type transition struct {
	from   []enums.OrderState
	target enums.OrderState
}

// transitions is the full state graph for provider-driven events. Terminal
// states never appear as a source, which is what makes re-delivery and
// out-of-order delivery converge: an event whose source set no longer matches
// the row is a no-op.
var transitions = map[Event]transition{
	EventSessionCompleted: {
		from:   []enums.OrderState{enums.OrderStateCreated},
		target: enums.OrderStateRequiresCapture,
	},
	EventCapturableUpdated: {
		from:   []enums.OrderState{enums.OrderStateCreated, enums.OrderStateRequiresCapture},
		target: enums.OrderStateRequiresCapture,
	},
	EventPaymentSucceeded: {
		from:   []enums.OrderState{enums.OrderStateCreated, enums.OrderStateRequiresCapture},
		target: enums.OrderStateCaptured,
	},
	EventPaymentCanceled: {
		from:   []enums.OrderState{enums.OrderStateCreated, enums.OrderStateRequiresCapture},
		target: enums.OrderStateCanceled,
	},
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReconciler interface {
	Decrement(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) (bool, error)
}

// Notifier receives applied transitions. Implementations must be
// fire-and-forget; they run inside the webhook delivery budget.
type Notifier interface {
	OrderTransition(ctx context.Context, order models.Order, event Event)
}

// StateMachineParams wires the state machine dependencies.
type StateMachineParams struct {
	Repo      Repository
	Tx        txRunner
	Inventory stockReconciler
	Notifier  Notifier
	Logger    *logger.Logger
}

// StateMachine applies provider events to order rows. Every transition is
// idempotent and terminal states are sticky; the provider is the source of
// truth for whether money moved, so a transition that no longer matches the
// persisted state has no effect rather than raising an error.
type StateMachine struct {
	repo      Repository
	tx        txRunner
	inventory stockReconciler
	notifier  Notifier
	logg      *logger.Logger
}

// NewStateMachine builds the order state machine.
func NewStateMachine(params StateMachineParams) (*StateMachine, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory reconciler required")
	}
	return &StateMachine{
		repo:      params.Repo,
		tx:        params.Tx,
		inventory: params.Inventory,
		notifier:  params.Notifier,
		logg:      params.Logger,
	}, nil
}

// Apply locates the order referenced by the event and applies the matching
// transition. It reports whether the row changed. An unknown order is a no-op
// so a foreign or stale delivery never fails the webhook.
func (m *StateMachine) Apply(ctx context.Context, ref EventRef) (bool, error) {
	order, err := m.locate(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if m.logg != nil {
				m.logg.Warn(ctx, fmt.Sprintf("no order for %s event", ref.Event))
			}
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locate order")
	}

	switch ref.Event {
	case EventDisputeOpened:
		applied, err := m.repo.FileProtest(ctx, order.ID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "file protest")
		}
		m.notify(ctx, applied, *order, ref.Event)
		return applied, nil
	case EventDisputeClosed:
		applied, err := m.repo.ResolveProtest(ctx, order.ID)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve protest")
		}
		m.notify(ctx, applied, *order, ref.Event)
		return applied, nil
	}

	tr, ok := transitions[ref.Event]
	if !ok {
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unhandled event %q", ref.Event))
	}

	updates := map[string]any{"state": tr.target}
	if ref.PaymentIntentID != "" && (order.StripePaymentIntentID == nil || *order.StripePaymentIntentID == "") {
		updates["stripe_payment_intent_id"] = ref.PaymentIntentID
	}

	if tr.target != enums.OrderStateCaptured {
		applied, err := m.repo.TransitionState(ctx, order.ID, tr.from, updates)
		if err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply transition")
		}
		order.State = tr.target
		m.notify(ctx, applied, *order, ref.Event)
		return applied, nil
	}

	// Capture and the stock decrement commit together: the reconcile flag
	// flips at most once per order, and the decrement rides the same
	// transaction, so re-delivery cannot decrement twice.
	var applied bool
	err = m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := m.repo.WithTx(tx)
		updates["released_at"] = time.Now().UTC()

		var txErr error
		applied, txErr = repo.TransitionState(ctx, order.ID, tr.from, updates)
		if txErr != nil {
			return txErr
		}

		marked, txErr := repo.MarkStockReconciled(ctx, order.ID)
		if txErr != nil {
			return txErr
		}
		if !marked {
			return nil
		}

		decremented, txErr := m.inventory.Decrement(ctx, tx, order.ListingID, order.Quantity)
		if txErr != nil {
			return txErr
		}
		if !decremented && m.logg != nil {
			m.logg.Warn(ctx, fmt.Sprintf("stock not decremented for listing %s (untracked or insufficient)", order.ListingID))
		}
		return nil
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply capture")
	}
	order.State = tr.target
	m.notify(ctx, applied, *order, ref.Event)
	return applied, nil
}

func (m *StateMachine) locate(ctx context.Context, ref EventRef) (*models.Order, error) {
	if ref.Event == EventSessionCompleted && ref.SessionID != "" {
		return m.repo.FindBySessionID(ctx, ref.SessionID)
	}
	if ref.PaymentIntentID != "" {
		order, err := m.repo.FindByPaymentIntentID(ctx, ref.PaymentIntentID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) || ref.OrderID == uuid.Nil {
			return nil, err
		}
	}
	if ref.OrderID != uuid.Nil {
		return m.repo.FindByID(ctx, ref.OrderID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *StateMachine) notify(ctx context.Context, applied bool, order models.Order, event Event) {
	if !applied || m.notifier == nil {
		return
	}
	m.notifier.OrderTransition(ctx, order, event)
}
