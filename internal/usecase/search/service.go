package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studydeck/studydeck/internal/domain"
	"github.com/studydeck/studydeck/internal/logger"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

// Scope selects which deck population a search runs over.
type Scope string

const (
	// ScopeOwner searches the requester's own live decks.
	ScopeOwner Scope = "owner"
	// ScopePublic searches all live public decks.
	ScopePublic Scope = "public"
	// ScopeSaved searches the decks the requester has saved.
	ScopeSaved Scope = "saved"
	// ScopeDeleted searches the requester's soft-deleted decks.
	ScopeDeleted Scope = "deleted"
)

// Valid reports whether the scope is a known value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeOwner, ScopePublic, ScopeSaved, ScopeDeleted:
		return true
	}
	return false
}

// recommendLogCount is how many recent search logs feed the mean vector.
const recommendLogCount = 5

// Service runs hybrid exact+vector deck search and query-history
// recommendations.
type Service struct {
	decks    DeckSearcher
	saved    SavedReader
	logs     SearchLogStore
	users    NameResolver
	embedder Embedder
	now      func() time.Time
}

// New creates a search service. The embedder must be the query-mode
// decorator.
func New(decks DeckSearcher, saved SavedReader, logs SearchLogStore, users NameResolver, embedder Embedder) *Service {
	return &Service{
		decks:    decks,
		saved:    saved,
		logs:     logs,
		users:    users,
		embedder: embedder,
		now:      time.Now,
	}
}

// WithClock injects a deterministic clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Search runs the exact and vector halves in parallel and merges them:
// exact title matches first in natural order, then vector matches whose IDs
// were not already seen, truncated to limit. The query and its embedding are
// appended to the requester's search history.
func (s *Service) Search(
	ctx context.Context, userID string, scope Scope, query string, limit int,
) ([]domain.Deck, error) {
	if err := domain.ValidatePageSize(limit); err != nil {
		return nil, err
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("scope %q: %w", scope, domain.ErrInvalidInput)
	}

	normalized := domain.NormalizeTitle(query)
	if normalized == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	filter, empty, err := s.scopeFilter(ctx, userID, scope)
	if err != nil {
		return nil, err
	}
	if empty {
		// Saved scope with nothing saved: no embedding call, no store query.
		return nil, nil
	}

	var (
		exact     []domain.Deck
		vector    []domain.Deck
		embedding []float32
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exact, err = s.decks.SearchExactTitle(gctx, filter, normalized, limit)
		if err != nil {
			return fmt.Errorf("exact search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		result, err := s.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		embedding = result.Embedding

		vector, err = s.decks.SearchVector(gctx, filter, embedding, limit)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeResults(exact, vector, limit)

	if err := s.enrichOwnerNames(ctx, merged); err != nil {
		return nil, err
	}

	s.appendLog(ctx, userID, query, embedding)
	return merged, nil
}

// Recommend averages the embeddings of the user's recent search logs and
// runs a public-scope vector search with the mean. No history means an
// empty result, not an error.
func (s *Service) Recommend(ctx context.Context, userID string, limit int) ([]domain.Deck, error) {
	if err := domain.ValidatePageSize(limit); err != nil {
		return nil, err
	}

	logs, err := s.logs.RecentSearchLogs(ctx, userID, recommendLogCount)
	if err != nil {
		return nil, fmt.Errorf("recent search logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(logs))
	for _, l := range logs {
		vectors = append(vectors, l.Embedding)
	}
	mean := domain.MeanVector(vectors)
	if mean == nil {
		return nil, nil
	}

	decks, err := s.decks.SearchVector(ctx, deckrepo.Filter{PublicOnly: true}, mean, limit)
	if err != nil {
		return nil, fmt.Errorf("recommend search: %w", err)
	}

	if err := s.enrichOwnerNames(ctx, decks); err != nil {
		return nil, err
	}
	return decks, nil
}

// scopeFilter maps a scope to a repository filter. The saved scope resolves
// its ID set up front; empty=true short-circuits the search.
func (s *Service) scopeFilter(ctx context.Context, userID string, scope Scope) (deckrepo.Filter, bool, error) {
	switch scope {
	case ScopeOwner:
		return deckrepo.Filter{OwnerID: userID}, false, nil
	case ScopePublic:
		return deckrepo.Filter{PublicOnly: true}, false, nil
	case ScopeDeleted:
		return deckrepo.Filter{OwnerID: userID, Deleted: true}, false, nil
	case ScopeSaved:
		ids, err := s.saved.AllDeckIDs(ctx, userID)
		if err != nil {
			return deckrepo.Filter{}, false, fmt.Errorf("resolve saved scope: %w", err)
		}
		if len(ids) == 0 {
			return deckrepo.Filter{}, true, nil
		}
		return deckrepo.Filter{IDs: ids}, false, nil
	}
	return deckrepo.Filter{}, false, fmt.Errorf("scope %q: %w", scope, domain.ErrInvalidInput)
}

// mergeResults keeps exact matches first, appends unseen vector matches, and
// truncates to limit.
func mergeResults(exact, vector []domain.Deck, limit int) []domain.Deck {
	merged := make([]domain.Deck, 0, limit)
	seen := make(map[string]struct{}, limit)

	for _, d := range exact {
		if len(merged) >= limit {
			return merged
		}
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		merged = append(merged, d)
	}
	for _, d := range vector {
		if len(merged) >= limit {
			return merged
		}
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		merged = append(merged, d)
	}
	return merged
}

// appendLog records the query in the user's search history. History is an
// enrichment, so failures are logged and swallowed.
func (s *Service) appendLog(ctx context.Context, userID, query string, embedding []float32) {
	err := s.logs.AppendSearchLog(ctx, domain.SearchLog{
		ID:          uuid.NewString(),
		UserID:      userID,
		SearchQuery: query,
		Embedding:   embedding,
		SearchedAt:  s.now().UnixMilli(),
	})
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to append search log",
			zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) enrichOwnerNames(ctx context.Context, decks []domain.Deck) error {
	if len(decks) == 0 {
		return nil
	}

	ownerIDs := make([]string, 0, len(decks))
	for i := range decks {
		ownerIDs = append(ownerIDs, decks[i].OwnerID)
	}

	names, err := s.users.ResolveNames(ctx, ownerIDs)
	if err != nil {
		return fmt.Errorf("resolve owner names: %w", err)
	}
	for i := range decks {
		decks[i].OwnerName = names[decks[i].OwnerID]
	}
	return nil
}
