package webhooks

import (
	"context"
	"time"

	"github.com/haggleport/haggleport-backend/pkg/redis"
)

const (
	eventScope = "stripe-event"
	eventTTL   = 24 * time.Hour
)

// Guard deduplicates provider deliveries by event id. The mark is written
// before the handler runs and removed again when the handler fails, so the
// provider's retry gets a fresh attempt instead of a silent drop.
type Guard struct {
	store redis.IdempotencyStore
}

func NewGuard(store redis.IdempotencyStore) *Guard {
	return &Guard{store: store}
}

// CheckAndMark claims the event id. It reports false when another delivery
// already claimed it.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if g == nil || g.store == nil {
		return true, nil
	}
	key := g.store.IdempotencyKey(eventScope, eventID)
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), eventTTL)
}

// Release drops the claim so the provider retry can reprocess the event.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	if g == nil || g.store == nil {
		return nil
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(eventScope, eventID))
}
