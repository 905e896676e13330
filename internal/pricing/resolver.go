package pricing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haggleport/haggleport-backend/pkg/db/models"
	pkgerrors "github.com/haggleport/haggleport-backend/pkg/errors"
	"github.com/haggleport/haggleport-backend/pkg/logger"
)

// acceptancePhrases are the normalized chat bodies treated as a seller
// accepting the buyer's offer. Matching is exact after lowering and trimming
// surrounding punctuation; substring matching would turn "I can't accept"
// into an acceptance.
var acceptancePhrases = map[string]struct{}{
	"accept":              {},
	"accepted":            {},
	"deal":                {},
	"i accept":            {},
	"i accept your offer": {},
	"offer accepted":      {},
}

// Repository is the chat and bid lookup surface the resolver needs.
type Repository interface {
	FindChatMessage(ctx context.Context, id uuid.UUID) (*models.ChatMessage, error)
	HighestBid(ctx context.Context, listingID, bidderID uuid.UUID) (*models.Bid, error)
}

// ResolverParams wires the price resolver.
type ResolverParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Resolver determines the authoritative charge amount for a listing. The
// amount is fixed here and never recomputed from client input afterwards.
type Resolver struct {
	repo Repository
	logg *logger.Logger
}

func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing repo required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Resolver{repo: params.Repo, logg: params.Logger}, nil
}

// Resolve returns the unit price in cents for the buyer. When an acceptance
// message is referenced and qualifies (authored by the listing's seller, body
// matching an acceptance phrase), the buyer's highest bid on the listing
// replaces the listing price. Any miss along the way falls back to the
// listing price silently; ambiguous chat history must never block checkout.
func (r *Resolver) Resolve(ctx context.Context, listing models.Listing, buyerID uuid.UUID, acceptanceMessageID *uuid.UUID) (int64, error) {
	listed := toCents(listing.Price)
	if acceptanceMessageID == nil || !listing.AllowOffers {
		return listed, nil
	}

	msg, err := r.repo.FindChatMessage(ctx, *acceptanceMessageID)
	if err != nil {
		r.logg.Warn(ctx, "acceptance message lookup failed, using listing price")
		return listed, nil
	}
	if msg.ListingID != listing.ID || msg.SenderID != listing.SellerID {
		return listed, nil
	}
	if !IsAcceptancePhrase(msg.Body) {
		return listed, nil
	}

	bid, err := r.repo.HighestBid(ctx, listing.ID, buyerID)
	if err != nil || bid == nil {
		return listed, nil
	}
	return toCents(bid.Amount), nil
}

// IsAcceptancePhrase reports whether a chat body reads as the seller
// accepting an offer.
func IsAcceptancePhrase(body string) bool {
	normalized := strings.ToLower(strings.TrimSpace(body))
	normalized = strings.Trim(normalized, ".,!?")
	normalized = strings.Join(strings.Fields(normalized), " ")
	_, ok := acceptancePhrases[normalized]
	return ok
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
