package search

import (
	"context"

	"github.com/studydeck/studydeck/internal/domain"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

// DeckSearcher runs the two halves of a hybrid search over deck documents.
type DeckSearcher interface {
	SearchExactTitle(ctx context.Context, f deckrepo.Filter, title string, limit int) ([]domain.Deck, error)
	SearchVector(ctx context.Context, f deckrepo.Filter, vector []float32, limit int) ([]domain.Deck, error)
}

// SavedReader resolves the saved-scope deck ID set.
type SavedReader interface {
	AllDeckIDs(ctx context.Context, userID string) ([]string, error)
}

// SearchLogStore appends search logs and reads them back for
// recommendations.
type SearchLogStore interface {
	AppendSearchLog(ctx context.Context, l domain.SearchLog) error
	RecentSearchLogs(ctx context.Context, userID string, n int) ([]domain.SearchLog, error)
}

// NameResolver maps user IDs to display names.
type NameResolver interface {
	ResolveNames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// Embedder vectorizes the raw query (query mode).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
