package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/internal/orders"
	"github.com/haggleport/haggleport-backend/pkg/config"
	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/enums"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

type stubRepo struct {
	listings map[uuid.UUID]*models.Listing
	sellers  map[uuid.UUID]*models.SellerAccount
}

func (r *stubRepo) FindListing(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, ok := r.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return listing, nil
}

func (r *stubRepo) FindSellerAccount(_ context.Context, sellerID uuid.UUID) (*models.SellerAccount, error) {
	account, ok := r.sellers[sellerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return account, nil
}

type stubOrders struct {
	created []*models.Order
}

func (r *stubOrders) WithTx(_ *gorm.DB) orders.Repository { return r }

func (r *stubOrders) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	r.created = append(r.created, order)
	return order, nil
}

func (r *stubOrders) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrders) FindBySessionID(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrders) FindByPaymentIntentID(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrders) ListByBuyer(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (r *stubOrders) TransitionState(context.Context, uuid.UUID, []enums.OrderState, map[string]any) (bool, error) {
	return false, nil
}

func (r *stubOrders) FileProtest(context.Context, uuid.UUID) (bool, error)    { return false, nil }
func (r *stubOrders) ResolveProtest(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (r *stubOrders) MarkStockReconciled(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

type stubPricing struct {
	cents int64
}

func (p stubPricing) Resolve(context.Context, models.Listing, uuid.UUID, *uuid.UUID) (int64, error) {
	return p.cents, nil
}

type fakeSessions struct {
	params  *stripe.CheckoutSessionCreateParams
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeSessions) Create(_ context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func fixtures() (*stubRepo, *models.Listing) {
	listing := &models.Listing{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Title:    "road bike",
		Price:    decimal.NewFromFloat(250.00),
		Currency: "eur",
		Stock:    intPtr(3),
	}
	repo := &stubRepo{
		listings: map[uuid.UUID]*models.Listing{listing.ID: listing},
		sellers: map[uuid.UUID]*models.SellerAccount{
			listing.SellerID: {
				SellerID:        listing.SellerID,
				StripeAccountID: strPtr("acct_seller"),
				ChargesEnabled:  true,
			},
		},
	}
	return repo, listing
}

func newService(t *testing.T, repo Repository, ords orders.Repository, sessions sessionCreator, cents int64) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Orders:   ords,
		Pricing:  stubPricing{cents: cents},
		Sessions: sessions,
		Config: config.CheckoutConfig{
			SuccessURL:    "https://shop.test/success",
			CancelURL:     "https://shop.test/cancel",
			CaptureWindow: 144 * time.Hour,
		},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateHappyPath(t *testing.T) {
	repo, listing := fixtures()
	ords := &stubOrders{}
	sessions := &fakeSessions{session: &stripe.CheckoutSession{
		ID:  "cs_test_ok",
		URL: "https://checkout.stripe.test/cs_test_ok",
	}}
	svc := newService(t, repo, ords, sessions, 25000)

	buyerID := uuid.New()
	resp, err := svc.Create(context.Background(), buyerID, CheckoutRequest{
		ListingID: listing.ID.String(),
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.RedirectURL != "https://checkout.stripe.test/cs_test_ok" {
		t.Fatalf("redirect = %s", resp.RedirectURL)
	}
	if resp.PriceCents != 25000 {
		t.Fatalf("price = %d, want 25000", resp.PriceCents)
	}

	if len(ords.created) != 1 {
		t.Fatalf("orders created = %d, want 1", len(ords.created))
	}
	order := ords.created[0]
	if order.State != enums.OrderStateCreated {
		t.Fatalf("state = %s, want created", order.State)
	}
	if order.StripeSessionID == nil || *order.StripeSessionID != "cs_test_ok" {
		t.Fatal("session id not recorded on order")
	}
	if order.CaptureAfter == nil || time.Until(*order.CaptureAfter) < 143*time.Hour {
		t.Fatal("capture_after not set to the hold window")
	}

	params := sessions.params
	if params == nil {
		t.Fatal("session params not sent")
	}
	pid := params.PaymentIntentData
	if pid == nil || pid.CaptureMethod == nil || *pid.CaptureMethod != string(stripe.PaymentIntentCaptureMethodManual) {
		t.Fatal("manual capture not requested")
	}
	if pid.TransferData == nil || pid.TransferData.Destination == nil || *pid.TransferData.Destination != "acct_seller" {
		t.Fatal("destination transfer not set")
	}
	if params.Metadata[metaOrderID] != order.ID.String() {
		t.Fatal("order id missing from session metadata")
	}
	if pid.Metadata[metaOrderID] != order.ID.String() {
		t.Fatal("order id missing from payment intent metadata")
	}
	if params.LineItems[0].PriceData.UnitAmount == nil || *params.LineItems[0].PriceData.UnitAmount != 25000 {
		t.Fatal("unit amount mismatch")
	}
}

func TestCreatePreconditionFailures(t *testing.T) {
	repo, listing := fixtures()
	soldOut := &models.Listing{
		ID:       uuid.New(),
		SellerID: listing.SellerID,
		Title:    "empty shelf",
		Price:    decimal.NewFromFloat(10.00),
		Currency: "eur",
		Stock:    intPtr(0),
	}
	repo.listings[soldOut.ID] = soldOut

	orphanListing := &models.Listing{
		ID:       uuid.New(),
		SellerID: uuid.New(),
		Title:    "unonboarded seller item",
		Price:    decimal.NewFromFloat(10.00),
		Currency: "eur",
	}
	repo.listings[orphanListing.ID] = orphanListing

	buyerID := uuid.New()

	cases := []struct {
		name     string
		buyer    uuid.UUID
		req      CheckoutRequest
		wantCode pkgerrors.Code
	}{
		{
			name:     "listing missing",
			buyer:    buyerID,
			req:      CheckoutRequest{ListingID: uuid.NewString(), Quantity: 1},
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:     "self purchase",
			buyer:    listing.SellerID,
			req:      CheckoutRequest{ListingID: listing.ID.String(), Quantity: 1},
			wantCode: pkgerrors.CodeValidation,
		},
		{
			name:     "insufficient stock",
			buyer:    buyerID,
			req:      CheckoutRequest{ListingID: soldOut.ID.String(), Quantity: 1},
			wantCode: pkgerrors.CodeConflict,
		},
		{
			name:     "seller not onboarded",
			buyer:    buyerID,
			req:      CheckoutRequest{ListingID: orphanListing.ID.String(), Quantity: 1},
			wantCode: pkgerrors.CodeOnboarding,
		},
		{
			name:     "zero quantity",
			buyer:    buyerID,
			req:      CheckoutRequest{ListingID: listing.ID.String(), Quantity: 0},
			wantCode: pkgerrors.CodeValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ords := &stubOrders{}
			sessions := &fakeSessions{session: &stripe.CheckoutSession{ID: "cs_x"}}
			svc := newService(t, repo, ords, sessions, 1000)

			_, err := svc.Create(context.Background(), tc.buyer, tc.req)
			if err == nil {
				t.Fatal("expected error")
			}
			coded := pkgerrors.As(err)
			if coded == nil || coded.Code() != tc.wantCode {
				t.Fatalf("code = %v, want %s", err, tc.wantCode)
			}
			if len(ords.created) != 0 {
				t.Fatal("no order row may be created on a failed precondition")
			}
			if sessions.params != nil {
				t.Fatal("no provider session may be opened on a failed precondition")
			}
		})
	}
}

func TestCreateUntrackedStockSkipsCheck(t *testing.T) {
	repo, listing := fixtures()
	listing.Stock = nil
	ords := &stubOrders{}
	sessions := &fakeSessions{session: &stripe.CheckoutSession{ID: "cs_untracked"}}
	svc := newService(t, repo, ords, sessions, 1500)

	_, err := svc.Create(context.Background(), uuid.New(), CheckoutRequest{
		ListingID: listing.ID.String(),
		Quantity:  99,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(ords.created) != 1 {
		t.Fatal("order not created for untracked listing")
	}
}
