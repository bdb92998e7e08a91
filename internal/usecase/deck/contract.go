package deck

import (
	"context"

	"github.com/studydeck/studydeck/internal/domain"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

// Repository defines the storage contract for decks.
type Repository interface {
	Create(ctx context.Context, d *domain.Deck) error
	Get(ctx context.Context, id string) (domain.Deck, error)
	GetMulti(ctx context.Context, ids []string) ([]*domain.Deck, error)
	List(ctx context.Context, f deckrepo.Filter, orderBy domain.OrderBy, cursor string, limit int) (
		decks []domain.Deck, nextCursor string, err error,
	)
	Patch(ctx context.Context, id string, p domain.DeckPatch) (domain.Deck, error)
	Delete(ctx context.Context, id string) error
}

// SavedRepository stores the user↔deck save joins.
type SavedRepository interface {
	Save(ctx context.Context, s domain.SavedDeck) error
	Exists(ctx context.Context, userID, deckID string) (bool, error)
	Delete(ctx context.Context, userID, deckID string) error
	List(ctx context.Context, userID, cursor string, limit int) (
		deckIDs []string, nextCursor string, err error,
	)
	DeleteByDeck(ctx context.Context, deckID string) error
}

// FlashcardCascade removes a deck's flashcards on deck delete.
type FlashcardCascade interface {
	DeleteByDeck(ctx context.Context, deckID string) error
}

// ActivityCascade removes a deck's study events and quiz attempts on deck
// delete.
type ActivityCascade interface {
	DeleteByDeck(ctx context.Context, deckID string) error
}

// NameResolver maps user IDs to display names.
type NameResolver interface {
	ResolveName(ctx context.Context, userID string) (string, error)
	ResolveNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Embedder vectorizes deck text at creation (document mode).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// PublishRequester intercepts private→public transitions and runs the
// moderation state machine.
type PublishRequester interface {
	Request(ctx context.Context, userID, deckID string) error
}
