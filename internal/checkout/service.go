package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/internal/orders"
	"github.com/haggleport/haggleport-backend/pkg/config"
	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/enums"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
	"github.com/haggleport/haggleport-backend/pkg/metrics"
)

// Metadata keys stamped onto the session and its payment intent so webhooks
// can be correlated without a second provider round-trip.
const (
	metaOrderID   = "order_id"
	metaListingID = "listing_id"
	metaBuyerID   = "buyer_id"
	metaSellerID  = "seller_id"
	metaQuantity  = "quantity"
	metaShipping  = "shipping"
)

type priceResolver interface {
	Resolve(ctx context.Context, listing models.Listing, buyerID uuid.UUID, acceptanceMessageID *uuid.UUID) (int64, error)
}

type sessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// ServiceParams wires the checkout session builder.
type ServiceParams struct {
	Repo     Repository
	Orders   orders.Repository
	Pricing  priceResolver
	Sessions sessionCreator
	Config   config.CheckoutConfig
	Metrics  *metrics.PaymentMetrics
	Logger   *logger.Logger
}

// Service validates purchase preconditions and opens an escrow checkout
// session with manual capture and a destination transfer to the seller's
// connected account.
type Service struct {
	repo     Repository
	orders   orders.Repository
	pricing  priceResolver
	sessions sessionCreator
	cfg      config.CheckoutConfig
	metrics  *metrics.PaymentMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Pricing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "price resolver required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		repo:     params.Repo,
		orders:   params.Orders,
		pricing:  params.Pricing,
		sessions: params.Sessions,
		cfg:      params.Config,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Create resolves the charge amount, opens the provider session and inserts
// the order row in state created. The price is fixed here; nothing downstream
// recomputes it from client input.
func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, req CheckoutRequest) (*CheckoutResponse, error) {
	if req.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing id")
	}

	listing, err := s.repo.FindListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.SellerID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot purchase your own listing")
	}
	if listing.Stock != nil && *listing.Stock < req.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}

	seller, err := s.sellerDestination(ctx, listing.SellerID)
	if err != nil {
		return nil, err
	}

	var acceptanceID *uuid.UUID
	if req.AcceptanceMessageID != nil {
		parsed, parseErr := uuid.Parse(*req.AcceptanceMessageID)
		if parseErr != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid acceptance message id")
		}
		acceptanceID = &parsed
	}

	priceCents, err := s.pricing.Resolve(ctx, *listing, buyerID, acceptanceID)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	metadata := s.buildMetadata(ctx, orderID, *listing, buyerID, req)

	session, err := s.sessions.Create(ctx, s.sessionParams(*listing, priceCents, req.Quantity, seller, metadata))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProvider, err, "create checkout session")
	}

	captureAfter := time.Now().UTC().Add(s.cfg.CaptureWindow)
	order := &models.Order{
		ID:              orderID,
		ListingID:       listing.ID,
		BuyerID:         buyerID,
		SellerID:        listing.SellerID,
		PriceCents:      priceCents,
		Currency:        listing.Currency,
		Quantity:        req.Quantity,
		State:           enums.OrderStateCreated,
		StripeSessionID: &session.ID,
		CaptureAfter:    &captureAfter,
		Shipping:        req.Shipping,
	}
	if _, err := s.orders.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	s.metrics.IncSessionCreated(listing.Currency)
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "checkout session created")

	return &CheckoutResponse{
		OrderID:     orderID.String(),
		SessionID:   session.ID,
		RedirectURL: session.URL,
		PriceCents:  priceCents,
		Currency:    listing.Currency,
	}, nil
}

// sellerDestination resolves the connected account the funds transfer to. A
// seller without a connected account that can take charges is an onboarding
// failure, not a generic one, so the client can route the seller to KYC.
func (s *Service) sellerDestination(ctx context.Context, sellerID uuid.UUID) (string, error) {
	account, err := s.repo.FindSellerAccount(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeOnboarding, "seller onboarding incomplete")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller account")
	}
	if account.StripeAccountID == nil || *account.StripeAccountID == "" || !account.ChargesEnabled {
		return "", pkgerrors.New(pkgerrors.CodeOnboarding, "seller onboarding incomplete")
	}
	return *account.StripeAccountID, nil
}

func (s *Service) sessionParams(listing models.Listing, priceCents int64, quantity int, destination string, metadata map[string]string) *stripe.CheckoutSessionCreateParams {
	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(int64(quantity)),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(listing.Currency),
					UnitAmount: stripe.Int64(priceCents),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(listing.Title),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
			TransferData: &stripe.CheckoutSessionCreatePaymentIntentDataTransferDataParams{
				Destination: stripe.String(destination),
			},
			Metadata: metadata,
		},
	}
	params.Metadata = metadata
	return params
}

func (s *Service) buildMetadata(ctx context.Context, orderID uuid.UUID, listing models.Listing, buyerID uuid.UUID, req CheckoutRequest) map[string]string {
	metadata := map[string]string{
		metaOrderID:   orderID.String(),
		metaListingID: listing.ID.String(),
		metaBuyerID:   buyerID.String(),
		metaSellerID:  listing.SellerID.String(),
		metaQuantity:  strconv.Itoa(req.Quantity),
	}
	if req.Shipping != nil && !req.Shipping.Empty() {
		raw, err := json.Marshal(req.Shipping)
		if err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("shipping metadata dropped: %v", err))
		} else {
			metadata[metaShipping] = string(raw)
		}
	}
	return metadata
}
