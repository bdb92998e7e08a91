package publish

import (
	"context"

	"github.com/studydeck/studydeck/internal/domain"
)

// PendingStore keeps the pending-request flag per deck.
type PendingStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
}

// DeckPatcher flips the privacy flag on approval.
type DeckPatcher interface {
	Patch(ctx context.Context, id string, p domain.DeckPatch) (domain.Deck, error)
}

// Notifier delivers the moderation webhook.
type Notifier interface {
	NotifyPublishRequest(ctx context.Context, userID, deckID string) error
}
