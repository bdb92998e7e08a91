package deck

import (
	"context"
	"testing"
	"time"

	"github.com/studydeck/studydeck/internal/domain"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

type mockDeckRepo struct {
	createFn   func(ctx context.Context, d *domain.Deck) error
	getFn      func(ctx context.Context, id string) (domain.Deck, error)
	getMultiFn func(ctx context.Context, ids []string) ([]*domain.Deck, error)
	listFn     func(ctx context.Context, f deckrepo.Filter, orderBy domain.OrderBy, cursor string, limit int) ([]domain.Deck, string, error)
	patchFn    func(ctx context.Context, id string, p domain.DeckPatch) (domain.Deck, error)
	deleteFn   func(ctx context.Context, id string) error
}

func (m *mockDeckRepo) Create(ctx context.Context, d *domain.Deck) error {
	if m.createFn != nil {
		return m.createFn(ctx, d)
	}
	return nil
}

func (m *mockDeckRepo) Get(ctx context.Context, id string) (domain.Deck, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Deck{}, domain.ErrDeckNotFound
}

func (m *mockDeckRepo) GetMulti(ctx context.Context, ids []string) ([]*domain.Deck, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, ids)
	}
	return make([]*domain.Deck, len(ids)), nil
}

func (m *mockDeckRepo) List(
	ctx context.Context, f deckrepo.Filter, orderBy domain.OrderBy, cursor string, limit int,
) ([]domain.Deck, string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f, orderBy, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockDeckRepo) Patch(ctx context.Context, id string, p domain.DeckPatch) (domain.Deck, error) {
	if m.patchFn != nil {
		return m.patchFn(ctx, id, p)
	}
	return domain.Deck{}, nil
}

func (m *mockDeckRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockSavedRepo struct {
	saveFn         func(ctx context.Context, s domain.SavedDeck) error
	existsFn       func(ctx context.Context, userID, deckID string) (bool, error)
	deleteFn       func(ctx context.Context, userID, deckID string) error
	listFn         func(ctx context.Context, userID, cursor string, limit int) ([]string, string, error)
	deleteByDeckFn func(ctx context.Context, deckID string) error
}

func (m *mockSavedRepo) Save(ctx context.Context, s domain.SavedDeck) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, s)
	}
	return nil
}

func (m *mockSavedRepo) Exists(ctx context.Context, userID, deckID string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, userID, deckID)
	}
	return false, nil
}

func (m *mockSavedRepo) Delete(ctx context.Context, userID, deckID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, deckID)
	}
	return nil
}

func (m *mockSavedRepo) List(ctx context.Context, userID, cursor string, limit int) ([]string, string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockSavedRepo) DeleteByDeck(ctx context.Context, deckID string) error {
	if m.deleteByDeckFn != nil {
		return m.deleteByDeckFn(ctx, deckID)
	}
	return nil
}

type mockCascade struct {
	deleteByDeckFn func(ctx context.Context, deckID string) error
}

func (m *mockCascade) DeleteByDeck(ctx context.Context, deckID string) error {
	if m.deleteByDeckFn != nil {
		return m.deleteByDeckFn(ctx, deckID)
	}
	return nil
}

type mockNameResolver struct {
	resolveNameFn  func(ctx context.Context, userID string) (string, error)
	resolveNamesFn func(ctx context.Context, userIDs []string) (map[string]string, error)
}

func (m *mockNameResolver) ResolveName(ctx context.Context, userID string) (string, error) {
	if m.resolveNameFn != nil {
		return m.resolveNameFn(ctx, userID)
	}
	return "user-" + userID, nil
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
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

type mockPublisher struct {
	requestFn func(ctx context.Context, userID, deckID string) error
	requests  int
}

func (m *mockPublisher) Request(ctx context.Context, userID, deckID string) error {
	m.requests++
	if m.requestFn != nil {
		return m.requestFn(ctx, userID, deckID)
	}
	return nil
}

type testEnv struct {
	decks     *mockDeckRepo
	saved     *mockSavedRepo
	cards     *mockCascade
	activity  *mockCascade
	users     *mockNameResolver
	embedder  *mockEmbedder
	publisher *mockPublisher
}

func newTestService(t *testing.T) (*Service, *testEnv) {
	t.Helper()
	env := &testEnv{
		decks:     &mockDeckRepo{},
		saved:     &mockSavedRepo{},
		cards:     &mockCascade{},
		activity:  &mockCascade{},
		users:     &mockNameResolver{},
		embedder:  &mockEmbedder{},
		publisher: &mockPublisher{},
	}
	svc := New(env.decks, env.saved, env.cards, env.activity, env.users, env.embedder, env.publisher).
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return svc, env
}

func ownedDeck(id, ownerID string) domain.Deck {
	return domain.Deck{
		ID:        id,
		Title:     "Spanish Basics",
		OwnerID:   ownerID,
		CreatedAt: 1690000000000,
	}
}
