package flashcard

import (
	"context"

	"github.com/studydeck/studydeck/internal/domain"
)

// Repository defines the storage contract for flashcards.
type Repository interface {
	Create(ctx context.Context, c *domain.Flashcard) error
	CreateMulti(ctx context.Context, cards []domain.Flashcard) error
	Get(ctx context.Context, deckID, cardID string) (domain.Flashcard, error)
	List(ctx context.Context, deckID, cursor string, limit int) (
		cards []domain.Flashcard, nextCursor string, err error,
	)
	ListAll(ctx context.Context, deckID string) ([]domain.Flashcard, error)
	CountLive(ctx context.Context, deckID string) (int, error)
	Patch(ctx context.Context, deckID, cardID string, p domain.FlashcardPatch) (domain.Flashcard, error)
	SetDeleted(ctx context.Context, deckID string, cardIDs []string, deleted bool) (changed int, err error)
}

// DeckStore reads decks for guard checks and adjusts the denormalized
// flashcard counter.
type DeckStore interface {
	Get(ctx context.Context, id string) (domain.Deck, error)
	AdjustCardCount(ctx context.Context, id string, delta int) (int, error)
}
