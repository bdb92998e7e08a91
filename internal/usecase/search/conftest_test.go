package search

import (
	"context"
	"testing"
	"time"

	"github.com/studydeck/studydeck/internal/domain"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

type mockDeckSearcher struct {
	exactFn  func(ctx context.Context, f deckrepo.Filter, title string, limit int) ([]domain.Deck, error)
	vectorFn func(ctx context.Context, f deckrepo.Filter, vector []float32, limit int) ([]domain.Deck, error)
}

func (m *mockDeckSearcher) SearchExactTitle(
	ctx context.Context, f deckrepo.Filter, title string, limit int,
) ([]domain.Deck, error) {
	if m.exactFn != nil {
		return m.exactFn(ctx, f, title, limit)
	}
	return nil, nil
}

func (m *mockDeckSearcher) SearchVector(
	ctx context.Context, f deckrepo.Filter, vector []float32, limit int,
) ([]domain.Deck, error) {
	if m.vectorFn != nil {
		return m.vectorFn(ctx, f, vector, limit)
	}
	return nil, nil
}

type mockSavedReader struct {
	allDeckIDsFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockSavedReader) AllDeckIDs(ctx context.Context, userID string) ([]string, error) {
	if m.allDeckIDsFn != nil {
		return m.allDeckIDsFn(ctx, userID)
	}
	return nil, nil
}

type mockSearchLogs struct {
	appendFn func(ctx context.Context, l domain.SearchLog) error
	recentFn func(ctx context.Context, userID string, n int) ([]domain.SearchLog, error)
	appended []domain.SearchLog
}

func (m *mockSearchLogs) AppendSearchLog(ctx context.Context, l domain.SearchLog) error {
	m.appended = append(m.appended, l)
	if m.appendFn != nil {
		return m.appendFn(ctx, l)
	}
	return nil
}

func (m *mockSearchLogs) RecentSearchLogs(ctx context.Context, userID string, n int) ([]domain.SearchLog, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, userID, n)
	}
	return nil, nil
}

type mockNameResolver struct {
	resolveNamesFn func(ctx context.Context, userIDs []string) (map[string]string, error)
}

func (m *mockNameResolver) ResolveNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if m.resolveNamesFn != nil {
		return m.resolveNamesFn(ctx, userIDs)
	}
	names := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		names[id] = "user-" + id
	}
	return names, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type testEnv struct {
	decks    *mockDeckSearcher
	saved    *mockSavedReader
	logs     *mockSearchLogs
	users    *mockNameResolver
	embedder *mockEmbedder
}

func newTestService(t *testing.T) (*Service, *testEnv) {
	t.Helper()
	env := &testEnv{
		decks:    &mockDeckSearcher{},
		saved:    &mockSavedReader{},
		logs:     &mockSearchLogs{},
		users:    &mockNameResolver{},
		embedder: &mockEmbedder{},
	}
	svc := New(env.decks, env.saved, env.logs, env.users, env.embedder).
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return svc, env
}

func deck(id, ownerID string) domain.Deck {
	return domain.Deck{ID: id, Title: "Deck " + id, OwnerID: ownerID}
}
