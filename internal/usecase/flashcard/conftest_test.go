package flashcard

import (
	"context"
	"testing"
	"time"

	"github.com/studydeck/studydeck/internal/domain"
)

type mockCardRepo struct {
	createFn      func(ctx context.Context, c *domain.Flashcard) error
	createMultiFn func(ctx context.Context, cards []domain.Flashcard) error
	getFn         func(ctx context.Context, deckID, cardID string) (domain.Flashcard, error)
	listFn        func(ctx context.Context, deckID, cursor string, limit int) ([]domain.Flashcard, string, error)
	listAllFn     func(ctx context.Context, deckID string) ([]domain.Flashcard, error)
	countLiveFn   func(ctx context.Context, deckID string) (int, error)
	patchFn       func(ctx context.Context, deckID, cardID string, p domain.FlashcardPatch) (domain.Flashcard, error)
	setDeletedFn  func(ctx context.Context, deckID string, cardIDs []string, deleted bool) (int, error)
}

func (m *mockCardRepo) Create(ctx context.Context, c *domain.Flashcard) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCardRepo) CreateMulti(ctx context.Context, cards []domain.Flashcard) error {
	if m.createMultiFn != nil {
		return m.createMultiFn(ctx, cards)
	}
	return nil
}

func (m *mockCardRepo) Get(ctx context.Context, deckID, cardID string) (domain.Flashcard, error) {
	if m.getFn != nil {
		return m.getFn(ctx, deckID, cardID)
	}
	return domain.Flashcard{}, domain.ErrFlashcardNotFound
}

func (m *mockCardRepo) List(
	ctx context.Context, deckID, cursor string, limit int,
) ([]domain.Flashcard, string, error) {
	if m.listFn != nil {
		return m.listFn(ctx, deckID, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockCardRepo) ListAll(ctx context.Context, deckID string) ([]domain.Flashcard, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx, deckID)
	}
	return nil, nil
}

func (m *mockCardRepo) CountLive(ctx context.Context, deckID string) (int, error) {
	if m.countLiveFn != nil {
		return m.countLiveFn(ctx, deckID)
	}
	return 0, nil
}

func (m *mockCardRepo) Patch(
	ctx context.Context, deckID, cardID string, p domain.FlashcardPatch,
) (domain.Flashcard, error) {
	if m.patchFn != nil {
		return m.patchFn(ctx, deckID, cardID, p)
	}
	return domain.Flashcard{}, nil
}

func (m *mockCardRepo) SetDeleted(
	ctx context.Context, deckID string, cardIDs []string, deleted bool,
) (int, error) {
	if m.setDeletedFn != nil {
		return m.setDeletedFn(ctx, deckID, cardIDs, deleted)
	}
	return 0, nil
}

type mockDeckStore struct {
	getFn    func(ctx context.Context, id string) (domain.Deck, error)
	adjustFn func(ctx context.Context, id string, delta int) (int, error)
	deltas   []int
}

func (m *mockDeckStore) Get(ctx context.Context, id string) (domain.Deck, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Deck{ID: id, OwnerID: "u-1"}, nil
}

func (m *mockDeckStore) AdjustCardCount(ctx context.Context, id string, delta int) (int, error) {
	m.deltas = append(m.deltas, delta)
	if m.adjustFn != nil {
		return m.adjustFn(ctx, id, delta)
	}
	return delta, nil
}

func newTestService(t *testing.T) (*Service, *mockCardRepo, *mockDeckStore) {
	t.Helper()
	cards := &mockCardRepo{}
	decks := &mockDeckStore{}
	svc := New(cards, decks).WithClock(func() time.Time { return time.UnixMilli(1700000000000) })
	return svc, cards, decks
}
