package activity

import (
	"context"

	"github.com/studydeck/studydeck/internal/domain"
)

// Repository defines the storage contract for activity streams.
type Repository interface {
	AppendDeckLog(ctx context.Context, l domain.DeckActivityLog) error
	LatestDeckLog(ctx context.Context, userID string) (domain.DeckActivityLog, error)
	AppendQuizAttempt(ctx context.Context, a domain.QuizAttempt) error
	LatestQuizAttempt(ctx context.Context, userID, deckID string) (domain.QuizAttempt, error)
}

// DeckReader joins activity records with their decks.
type DeckReader interface {
	Get(ctx context.Context, id string) (domain.Deck, error)
}
