package pricing

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

type stubRepo struct {
	messages map[uuid.UUID]*models.ChatMessage
	bids     []*models.Bid
	bidErr   error
}

func (r *stubRepo) FindChatMessage(_ context.Context, id uuid.UUID) (*models.ChatMessage, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return msg, nil
}

func (r *stubRepo) HighestBid(_ context.Context, listingID, bidderID uuid.UUID) (*models.Bid, error) {
	if r.bidErr != nil {
		return nil, r.bidErr
	}
	var best *models.Bid
	for _, bid := range r.bids {
		if bid.ListingID != listingID || bid.BidderID != bidderID {
			continue
		}
		if best == nil || bid.Amount.GreaterThan(best.Amount) {
			best = bid
		}
	}
	return best, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newResolver(t *testing.T, repo Repository) *Resolver {
	t.Helper()
	resolver, err := NewResolver(ResolverParams{Repo: repo, Logger: testLogger()})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return resolver
}

func TestResolveAcceptedBid(t *testing.T) {
	buyerID := uuid.New()
	listing := models.Listing{
		ID:          uuid.New(),
		SellerID:    uuid.New(),
		Price:       decimal.NewFromFloat(40.00),
		AllowOffers: true,
	}
	msgID := uuid.New()
	repo := &stubRepo{
		messages: map[uuid.UUID]*models.ChatMessage{
			msgID: {ID: msgID, ListingID: listing.ID, SenderID: listing.SellerID, Body: "Deal!"},
		},
		bids: []*models.Bid{
			{ListingID: listing.ID, BidderID: buyerID, Amount: decimal.NewFromFloat(25.00)},
			{ListingID: listing.ID, BidderID: buyerID, Amount: decimal.NewFromFloat(32.50)},
			{ListingID: listing.ID, BidderID: uuid.New(), Amount: decimal.NewFromFloat(38.00)},
		},
	}

	cents, err := newResolver(t, repo).Resolve(context.Background(), listing, buyerID, &msgID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cents != 3250 {
		t.Fatalf("cents = %d, want 3250 (buyer's highest bid)", cents)
	}
}

func TestResolveFallbacks(t *testing.T) {
	buyerID := uuid.New()
	sellerID := uuid.New()
	otherID := uuid.New()
	listing := models.Listing{
		ID:          uuid.New(),
		SellerID:    sellerID,
		Price:       decimal.NewFromFloat(19.99),
		AllowOffers: true,
	}

	bid := &models.Bid{ListingID: listing.ID, BidderID: buyerID, Amount: decimal.NewFromFloat(15.00)}

	cases := []struct {
		name    string
		listing models.Listing
		message *models.ChatMessage
		bids    []*models.Bid
		bidErr  error
		msgID   *uuid.UUID
	}{
		{name: "no acceptance reference", listing: listing, bids: []*models.Bid{bid}},
		{
			name:    "offers disabled",
			listing: models.Listing{ID: listing.ID, SellerID: sellerID, Price: listing.Price},
			message: &models.ChatMessage{ListingID: listing.ID, SenderID: sellerID, Body: "accept"},
			bids:    []*models.Bid{bid},
		},
		{
			name:    "message authored by buyer",
			listing: listing,
			message: &models.ChatMessage{ListingID: listing.ID, SenderID: otherID, Body: "accept"},
			bids:    []*models.Bid{bid},
		},
		{
			name:    "message for another listing",
			listing: listing,
			message: &models.ChatMessage{ListingID: uuid.New(), SenderID: sellerID, Body: "accept"},
			bids:    []*models.Bid{bid},
		},
		{
			name:    "body not an acceptance",
			listing: listing,
			message: &models.ChatMessage{ListingID: listing.ID, SenderID: sellerID, Body: "i can't accept that"},
			bids:    []*models.Bid{bid},
		},
		{
			name:    "buyer never bid",
			listing: listing,
			message: &models.ChatMessage{ListingID: listing.ID, SenderID: sellerID, Body: "accepted"},
		},
		{
			name:    "bid lookup fails",
			listing: listing,
			message: &models.ChatMessage{ListingID: listing.ID, SenderID: sellerID, Body: "accepted"},
			bidErr:  errors.New("boom"),
		},
		{name: "message missing", listing: listing, msgID: ptrUUID(uuid.New())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubRepo{messages: map[uuid.UUID]*models.ChatMessage{}, bids: tc.bids, bidErr: tc.bidErr}
			msgID := tc.msgID
			if tc.message != nil {
				id := uuid.New()
				tc.message.ID = id
				repo.messages[id] = tc.message
				msgID = &id
			}

			cents, err := newResolver(t, repo).Resolve(context.Background(), tc.listing, buyerID, msgID)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cents != 1999 {
				t.Fatalf("cents = %d, want listing price 1999", cents)
			}
		})
	}
}

func TestIsAcceptancePhrase(t *testing.T) {
	accepted := []string{"accept", "Accepted.", "  DEAL!  ", "I accept your offer", "offer   accepted"}
	for _, body := range accepted {
		if !IsAcceptancePhrase(body) {
			t.Errorf("IsAcceptancePhrase(%q) = false, want true", body)
		}
	}
	rejected := []string{"", "no deal", "i might accept later", "acceptable"}
	for _, body := range rejected {
		if IsAcceptancePhrase(body) {
			t.Errorf("IsAcceptancePhrase(%q) = true, want false", body)
		}
	}
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }
