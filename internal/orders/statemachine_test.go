package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/enums"
)

type stubRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubRepo(orders ...*models.Order) *stubRepo {
	repo := &stubRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *stubRepo) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.StripeSessionID != nil && *order.StripeSessionID == sessionID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindByPaymentIntentID(_ context.Context, paymentIntentID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.StripePaymentIntentID != nil && *order.StripePaymentIntentID == paymentIntentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.orders {
		if order.BuyerID == buyerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (r *stubRepo) TransitionState(_ context.Context, id uuid.UUID, from []enums.OrderState, updates map[string]any) (bool, error) {
	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, state := range from {
		if order.State == state {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	if state, ok := updates["state"].(enums.OrderState); ok {
		order.State = state
	}
	if pi, ok := updates["stripe_payment_intent_id"].(string); ok {
		order.StripePaymentIntentID = &pi
	}
	if released, ok := updates["released_at"].(time.Time); ok {
		order.ReleasedAt = &released
	}
	return true, nil
}

func (r *stubRepo) FileProtest(_ context.Context, id uuid.UUID) (bool, error) {
	order, ok := r.orders[id]
	if !ok || order.State != enums.OrderStateCaptured || order.ProtestStatus != nil {
		return false, nil
	}
	status := enums.ProtestStatusFiled
	order.ProtestStatus = &status
	return true, nil
}

func (r *stubRepo) ResolveProtest(_ context.Context, id uuid.UUID) (bool, error) {
	order, ok := r.orders[id]
	if !ok || order.ProtestStatus == nil || *order.ProtestStatus != enums.ProtestStatusFiled {
		return false, nil
	}
	status := enums.ProtestStatusResolved
	order.ProtestStatus = &status
	return true, nil
}

func (r *stubRepo) MarkStockReconciled(_ context.Context, id uuid.UUID) (bool, error) {
	order, ok := r.orders[id]
	if !ok || order.State != enums.OrderStateCaptured || order.StockReconciled {
		return false, nil
	}
	order.StockReconciled = true
	return true, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubInventory struct {
	calls []int
}

func (s *stubInventory) Decrement(_ context.Context, _ *gorm.DB, _ uuid.UUID, qty int) (bool, error) {
	s.calls = append(s.calls, qty)
	return true, nil
}

type recordedNotification struct {
	orderID uuid.UUID
	event   Event
}

type stubNotifier struct {
	seen []recordedNotification
}

func (s *stubNotifier) OrderTransition(_ context.Context, order models.Order, event Event) {
	s.seen = append(s.seen, recordedNotification{orderID: order.ID, event: event})
}

func strPtr(v string) *string { return &v }

func newOrder(state enums.OrderState) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		ListingID:       uuid.New(),
		BuyerID:         uuid.New(),
		SellerID:        uuid.New(),
		PriceCents:      2500,
		Currency:        "eur",
		Quantity:        2,
		State:           state,
		StripeSessionID: strPtr("cs_test_" + uuid.NewString()),
	}
}

func newMachine(t *testing.T, repo Repository, inv *stubInventory, notifier Notifier) *StateMachine {
	t.Helper()
	machine, err := NewStateMachine(StateMachineParams{
		Repo:      repo,
		Tx:        stubTx{},
		Inventory: inv,
		Notifier:  notifier,
	})
	if err != nil {
		t.Fatalf("NewStateMachine: %v", err)
	}
	return machine
}

func TestApplySessionCompleted(t *testing.T) {
	order := newOrder(enums.OrderStateCreated)
	repo := newStubRepo(order)
	machine := newMachine(t, repo, &stubInventory{}, nil)

	applied, err := machine.Apply(context.Background(), EventRef{
		Event:           EventSessionCompleted,
		SessionID:       *order.StripeSessionID,
		PaymentIntentID: "pi_123",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied {
		t.Fatal("expected transition to apply")
	}
	got := repo.orders[order.ID]
	if got.State != enums.OrderStateRequiresCapture {
		t.Fatalf("state = %s, want requires_capture", got.State)
	}
	if got.StripePaymentIntentID == nil || *got.StripePaymentIntentID != "pi_123" {
		t.Fatal("payment intent id not recorded")
	}
}

func TestApplyCaptureDecrementsStockOnce(t *testing.T) {
	order := newOrder(enums.OrderStateRequiresCapture)
	order.StripePaymentIntentID = strPtr("pi_cap")
	repo := newStubRepo(order)
	inv := &stubInventory{}
	machine := newMachine(t, repo, inv, nil)

	ref := EventRef{Event: EventPaymentSucceeded, PaymentIntentID: "pi_cap"}
	applied, err := machine.Apply(context.Background(), ref)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied {
		t.Fatal("expected capture to apply")
	}
	got := repo.orders[order.ID]
	if got.State != enums.OrderStateCaptured {
		t.Fatalf("state = %s, want captured", got.State)
	}
	if got.ReleasedAt == nil {
		t.Fatal("released_at not set")
	}
	if !got.StockReconciled {
		t.Fatal("stock not marked reconciled")
	}

	// Re-delivery: no second decrement, no state change.
	applied, err = machine.Apply(context.Background(), ref)
	if err != nil {
		t.Fatalf("Apply redelivery: %v", err)
	}
	if applied {
		t.Fatal("redelivery should be a no-op")
	}
	if len(inv.calls) != 1 {
		t.Fatalf("Decrement called %d times, want 1", len(inv.calls))
	}
	if inv.calls[0] != order.Quantity {
		t.Fatalf("Decrement qty = %d, want %d", inv.calls[0], order.Quantity)
	}
}

func TestApplyOutOfOrderConverges(t *testing.T) {
	order := newOrder(enums.OrderStateCreated)
	repo := newStubRepo(order)
	inv := &stubInventory{}
	machine := newMachine(t, repo, inv, nil)
	ctx := context.Background()

	// The success event lands first, correlated only through metadata.
	applied, err := machine.Apply(ctx, EventRef{
		Event:           EventPaymentSucceeded,
		PaymentIntentID: "pi_early",
		OrderID:         order.ID,
	})
	if err != nil {
		t.Fatalf("Apply success: %v", err)
	}
	if !applied {
		t.Fatal("expected early success event to apply")
	}

	// The completion event straggles in afterwards.
	applied, err = machine.Apply(ctx, EventRef{
		Event:           EventSessionCompleted,
		SessionID:       *order.StripeSessionID,
		PaymentIntentID: "pi_early",
	})
	if err != nil {
		t.Fatalf("Apply completion: %v", err)
	}
	if applied {
		t.Fatal("stale completion event should be a no-op")
	}
	got := repo.orders[order.ID]
	if got.State != enums.OrderStateCaptured {
		t.Fatalf("state = %s, want captured", got.State)
	}
	if got.StripePaymentIntentID == nil || *got.StripePaymentIntentID != "pi_early" {
		t.Fatal("payment intent id not backfilled from metadata path")
	}
	if len(inv.calls) != 1 {
		t.Fatalf("Decrement called %d times, want 1", len(inv.calls))
	}
}

func TestApplyCancelIsTerminal(t *testing.T) {
	order := newOrder(enums.OrderStateRequiresCapture)
	order.StripePaymentIntentID = strPtr("pi_cancel")
	repo := newStubRepo(order)
	inv := &stubInventory{}
	machine := newMachine(t, repo, inv, nil)
	ctx := context.Background()

	applied, err := machine.Apply(ctx, EventRef{Event: EventPaymentCanceled, PaymentIntentID: "pi_cancel"})
	if err != nil {
		t.Fatalf("Apply cancel: %v", err)
	}
	if !applied {
		t.Fatal("expected cancel to apply")
	}

	// Money never moved, so a late capturable notification changes nothing.
	applied, err = machine.Apply(ctx, EventRef{Event: EventCapturableUpdated, PaymentIntentID: "pi_cancel"})
	if err != nil {
		t.Fatalf("Apply capturable: %v", err)
	}
	if applied {
		t.Fatal("terminal state must be sticky")
	}
	if repo.orders[order.ID].State != enums.OrderStateCanceled {
		t.Fatalf("state = %s, want canceled", repo.orders[order.ID].State)
	}
	if len(inv.calls) != 0 {
		t.Fatal("canceled order must not touch stock")
	}
}

func TestApplyDisputeLifecycle(t *testing.T) {
	order := newOrder(enums.OrderStateCaptured)
	order.StripePaymentIntentID = strPtr("pi_disp")
	repo := newStubRepo(order)
	machine := newMachine(t, repo, &stubInventory{}, nil)
	ctx := context.Background()

	applied, err := machine.Apply(ctx, EventRef{Event: EventDisputeOpened, PaymentIntentID: "pi_disp"})
	if err != nil {
		t.Fatalf("Apply open: %v", err)
	}
	if !applied {
		t.Fatal("expected protest to be filed")
	}
	if repo.orders[order.ID].ProtestStatus == nil || *repo.orders[order.ID].ProtestStatus != enums.ProtestStatusFiled {
		t.Fatal("protest not filed")
	}

	// Duplicate open is ignored.
	applied, err = machine.Apply(ctx, EventRef{Event: EventDisputeOpened, PaymentIntentID: "pi_disp"})
	if err != nil {
		t.Fatalf("Apply duplicate open: %v", err)
	}
	if applied {
		t.Fatal("duplicate protest filing should be a no-op")
	}

	applied, err = machine.Apply(ctx, EventRef{Event: EventDisputeClosed, PaymentIntentID: "pi_disp"})
	if err != nil {
		t.Fatalf("Apply close: %v", err)
	}
	if !applied {
		t.Fatal("expected protest to resolve")
	}
	if *repo.orders[order.ID].ProtestStatus != enums.ProtestStatusResolved {
		t.Fatal("protest not resolved")
	}
}

func TestApplyUnknownOrderIsNoOp(t *testing.T) {
	repo := newStubRepo()
	machine := newMachine(t, repo, &stubInventory{}, nil)

	applied, err := machine.Apply(context.Background(), EventRef{
		Event:           EventPaymentSucceeded,
		PaymentIntentID: "pi_foreign",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied {
		t.Fatal("foreign delivery should be a no-op")
	}
}

func TestApplyNotifiesOnTransition(t *testing.T) {
	order := newOrder(enums.OrderStateCreated)
	repo := newStubRepo(order)
	notifier := &stubNotifier{}
	machine := newMachine(t, repo, &stubInventory{}, notifier)

	ref := EventRef{Event: EventSessionCompleted, SessionID: *order.StripeSessionID}
	if _, err := machine.Apply(context.Background(), ref); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(notifier.seen) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.seen))
	}
	if notifier.seen[0].orderID != order.ID || notifier.seen[0].event != EventSessionCompleted {
		t.Fatal("wrong notification recorded")
	}

	// A no-op delivery stays silent.
	if _, err := machine.Apply(context.Background(), ref); err != nil {
		t.Fatalf("Apply redelivery: %v", err)
	}
	if len(notifier.seen) != 1 {
		t.Fatal("no-op must not notify")
	}
}
