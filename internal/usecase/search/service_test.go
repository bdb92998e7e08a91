package search

import (
	"context"
	"errors"
	"testing"

	"github.com/studydeck/studydeck/internal/domain"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

// --- Validation ---

func TestSearch_BadLimit(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Search(context.Background(), "u-1", ScopePublic, "spanish", 1)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearch_UnknownScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Search(context.Background(), "u-1", "everything", "spanish", 10)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSearch_BlankQuery(t *testing.T) {
	svc, env := newTestService(t)

	_, err := svc.Search(context.Background(), "u-1", ScopePublic, "   ", 10)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if env.embedder.calls != 0 {
		t.Fatal("no embedding call expected for blank query")
	}
}

// --- Merge semantics ---

func TestSearch_ExactFirstThenVectorDeduped(t *testing.T) {
	svc, env := newTestService(t)

	env.decks.exactFn = func(_ context.Context, _ deckrepo.Filter, title string, _ int) ([]domain.Deck, error) {
		if title != "Spanish Basics" {
			t.Errorf("expected normalized title, got %q", title)
		}
		return []domain.Deck{deck("d-1", "u-2"), deck("d-2", "u-3")}, nil
	}
	env.embedder.embedFn = func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		if text != "spanish   BASICS" {
			t.Errorf("vector half must embed the raw query, got %q", text)
		}
		return domain.EmbeddingResult{Embedding: []float32{0.9}}, nil
	}
	env.decks.vectorFn = func(_ context.Context, _ deckrepo.Filter, vec []float32, _ int) ([]domain.Deck, error) {
		if len(vec) != 1 || vec[0] != 0.9 {
			t.Errorf("unexpected query vector: %v", vec)
		}
		return []domain.Deck{deck("d-2", "u-3"), deck("d-3", "u-4")}, nil
	}

	out, err := svc.Search(context.Background(), "u-1", ScopePublic, "spanish   BASICS", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 merged decks, got %d", len(out))
	}
	if out[0].ID != "d-1" || out[1].ID != "d-2" || out[2].ID != "d-3" {
		t.Fatalf("unexpected merge order: %v", []string{out[0].ID, out[1].ID, out[2].ID})
	}
	if out[0].OwnerName != "user-u-2" {
		t.Fatalf("expected enriched owner name, got %q", out[0].OwnerName)
	}
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	svc, env := newTestService(t)

	env.decks.exactFn = func(_ context.Context, _ deckrepo.Filter, _ string, _ int) ([]domain.Deck, error) {
		return []domain.Deck{deck("d-1", "u-2"), deck("d-2", "u-2")}, nil
	}
	env.decks.vectorFn = func(_ context.Context, _ deckrepo.Filter, _ []float32, _ int) ([]domain.Deck, error) {
		return []domain.Deck{deck("d-3", "u-2"), deck("d-4", "u-2")}, nil
	}

	out, err := svc.Search(context.Background(), "u-1", ScopePublic, "q", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(out))
	}
}

// --- Scopes ---

func TestSearch_OwnerScopeFilter(t *testing.T) {
	svc, env := newTestService(t)

	env.decks.exactFn = func(_ context.Context, f deckrepo.Filter, _ string, _ int) ([]domain.Deck, error) {
		if f.OwnerID != "u-1" || f.PublicOnly || f.Deleted {
			t.Errorf("unexpected filter: %+v", f)
		}
		return nil, nil
	}

	if _, err := svc.Search(context.Background(), "u-1", ScopeOwner, "q", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_DeletedScopeFilter(t *testing.T) {
	svc, env := newTestService(t)

	env.decks.exactFn = func(_ context.Context, f deckrepo.Filter, _ string, _ int) ([]domain.Deck, error) {
		if f.OwnerID != "u-1" || !f.Deleted {
			t.Errorf("unexpected filter: %+v", f)
		}
		return nil, nil
	}

	if _, err := svc.Search(context.Background(), "u-1", ScopeDeleted, "q", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_SavedScopeEmptyShortCircuits(t *testing.T) {
	svc, env := newTestService(t)

	env.saved.allDeckIDsFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, nil
	}
	env.decks.exactFn = func(_ context.Context, _ deckrepo.Filter, _ string, _ int) ([]domain.Deck, error) {
		t.Fatal("no store query expected for empty saved scope")
		return nil, nil
	}

	out, err := svc.Search(context.Background(), "u-1", ScopeSaved, "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Fatalf("expected empty result, got %v", out)
	}
	if env.embedder.calls != 0 {
		t.Fatal("no embedding call expected for empty saved scope")
	}
	if len(env.logs.appended) != 0 {
		t.Fatal("no search log expected for short-circuited search")
	}
}

func TestSearch_SavedScopeRestrictsToIDSet(t *testing.T) {
	svc, env := newTestService(t)

	env.saved.allDeckIDsFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"d-7", "d-9"}, nil
	}
	env.decks.exactFn = func(_ context.Context, f deckrepo.Filter, _ string, _ int) ([]domain.Deck, error) {
		if len(f.IDs) != 2 {
			t.Errorf("expected ID set filter, got %+v", f)
		}
		return nil, nil
	}

	if _, err := svc.Search(context.Background(), "u-1", ScopeSaved, "q", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- History ---

func TestSearch_AppendsSearchLog(t *testing.T) {
	svc, env := newTestService(t)

	env.embedder.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{Embedding: []float32{0.3}}, nil
	}

	if _, err := svc.Search(context.Background(), "u-1", ScopePublic, "spanish", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.logs.appended) != 1 {
		t.Fatalf("expected 1 search log, got %d", len(env.logs.appended))
	}
	l := env.logs.appended[0]
	if l.UserID != "u-1" || l.SearchQuery != "spanish" || l.SearchedAt != 1700000000000 {
		t.Fatalf("unexpected log: %+v", l)
	}
	if len(l.Embedding) != 1 || l.Embedding[0] != 0.3 {
		t.Fatalf("log must carry the query embedding: %+v", l)
	}
}

func TestSearch_LogFailureDoesNotFailSearch(t *testing.T) {
	svc, env := newTestService(t)

	env.logs.appendFn = func(_ context.Context, _ domain.SearchLog) error {
		return errors.New("store down")
	}

	if _, err := svc.Search(context.Background(), "u-1", ScopePublic, "q", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSearch_EmbedFailureFailsSearch(t *testing.T) {
	svc, env := newTestService(t)

	env.embedder.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProvider
	}

	_, err := svc.Search(context.Background(), "u-1", ScopePublic, "q", 10)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected embedding provider error, got %v", err)
	}
}

// --- Recommend ---

func TestRecommend_NoHistoryMeansEmpty(t *testing.T) {
	svc, env := newTestService(t)

	env.decks.vectorFn = func(_ context.Context, _ deckrepo.Filter, _ []float32, _ int) ([]domain.Deck, error) {
		t.Fatal("no vector search expected without history")
		return nil, nil
	}

	out, err := svc.Recommend(context.Background(), "u-1", 10)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected empty result, got %v", out)
	}
}

func TestRecommend_UsesMeanOfRecentEmbeddings(t *testing.T) {
	svc, env := newTestService(t)

	env.logs.recentFn = func(_ context.Context, userID string, n int) ([]domain.SearchLog, error) {
		if userID != "u-1" || n != recommendLogCount {
			t.Errorf("unexpected history query: %s %d", userID, n)
		}
		return []domain.SearchLog{
			{Embedding: []float32{0.2, 0.4}},
			{Embedding: []float32{0.4, 0.8}},
		}, nil
	}
	env.decks.vectorFn = func(_ context.Context, f deckrepo.Filter, vec []float32, _ int) ([]domain.Deck, error) {
		if !f.PublicOnly {
			t.Errorf("recommendations must be public scope, got %+v", f)
		}
		const eps = 1e-6
		if len(vec) != 2 || vec[0]-0.3 > eps || 0.3-vec[0] > eps {
			t.Errorf("expected component-wise mean, got %v", vec)
		}
		return []domain.Deck{deck("d-1", "u-2")}, nil
	}

	out, err := svc.Recommend(context.Background(), "u-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].OwnerName != "user-u-2" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestRecommend_SkipsMismatchedDimensions(t *testing.T) {
	svc, env := newTestService(t)

	env.logs.recentFn = func(_ context.Context, _ string, _ int) ([]domain.SearchLog, error) {
		return []domain.SearchLog{
			{Embedding: []float32{0.5, 0.5}},
			{Embedding: []float32{0.1}}, // predates a dimensionality change
		}, nil
	}
	env.decks.vectorFn = func(_ context.Context, _ deckrepo.Filter, vec []float32, _ int) ([]domain.Deck, error) {
		if len(vec) != 2 || vec[0] != 0.5 {
			t.Errorf("expected mean over matching dims only, got %v", vec)
		}
		return nil, nil
	}

	if _, err := svc.Recommend(context.Background(), "u-1", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
