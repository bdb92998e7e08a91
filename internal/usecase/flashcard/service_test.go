package flashcard

import (
	"context"
	"errors"
	"testing"

	"github.com/studydeck/studydeck/internal/domain"
)

// --- Guards ---

func TestCreate_DeckGuards(t *testing.T) {
	tests := []struct {
		name    string
		deck    func() (domain.Deck, error)
		wantErr error
	}{
		{
			name:    "missing deck",
			deck:    func() (domain.Deck, error) { return domain.Deck{}, domain.ErrDeckNotFound },
			wantErr: domain.ErrDeckNotFound,
		},
		{
			name: "deleted deck",
			deck: func() (domain.Deck, error) {
				return domain.Deck{ID: "d-1", OwnerID: "u-1", IsDeleted: true}, nil
			},
			wantErr: domain.ErrDeckDeleted,
		},
		{
			name: "foreign deck",
			deck: func() (domain.Deck, error) {
				return domain.Deck{ID: "d-1", OwnerID: "u-2"}, nil
			},
			wantErr: domain.ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, decks := newTestService(t)
			decks.getFn = func(_ context.Context, _ string) (domain.Deck, error) {
				return tt.deck()
			}

			_, err := svc.Create(context.Background(), "u-1", "d-1",
				domain.FlashcardInput{Term: "a", Definition: "b"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreate_InputValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "u-1", "d-1", domain.FlashcardInput{Term: "a"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// --- Create ---

func TestCreate_BumpsCounter(t *testing.T) {
	svc, cards, decks := newTestService(t)

	var created *domain.Flashcard
	cards.createFn = func(_ context.Context, c *domain.Flashcard) error {
		created = c
		return nil
	}

	c, err := svc.Create(context.Background(), "u-1", "d-1",
		domain.FlashcardInput{Term: "hola", Definition: "hello", IsStarred: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID == "" || c.DeckID != "d-1" || c.CreatedAt != 1700000000000 {
		t.Fatalf("unexpected card: %+v", c)
	}
	if created == nil || !created.IsStarred {
		t.Fatalf("card not persisted as given: %+v", created)
	}
	if len(decks.deltas) != 1 || decks.deltas[0] != 1 {
		t.Fatalf("expected +1 counter adjustment, got %v", decks.deltas)
	}
}

func TestCreateBatch_AllOrNothingValidation(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.createMultiFn = func(_ context.Context, _ []domain.Flashcard) error {
		t.Fatal("no write expected for invalid batch")
		return nil
	}

	_, err := svc.CreateBatch(context.Background(), "u-1", "d-1", []domain.FlashcardInput{
		{Term: "a", Definition: "b"},
		{Term: "", Definition: "c"},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(decks.deltas) != 0 {
		t.Fatalf("counter must be untouched, got %v", decks.deltas)
	}
}

func TestCreateBatch_BumpsCounterByBatchSize(t *testing.T) {
	svc, cards, decks := newTestService(t)

	var batch []domain.Flashcard
	cards.createMultiFn = func(_ context.Context, cs []domain.Flashcard) error {
		batch = cs
		return nil
	}

	out, err := svc.CreateBatch(context.Background(), "u-1", "d-1", []domain.FlashcardInput{
		{Term: "a", Definition: "1"},
		{Term: "b", Definition: "2"},
		{Term: "c", Definition: "3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || len(batch) != 3 {
		t.Fatalf("expected 3 cards persisted, got %d/%d", len(out), len(batch))
	}
	if len(decks.deltas) != 1 || decks.deltas[0] != 3 {
		t.Fatalf("expected +3 counter adjustment, got %v", decks.deltas)
	}
}

// --- Update counter transitions ---

func TestUpdate_SoftDeleteDecrements(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.getFn = func(_ context.Context, _, _ string) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", DeckID: "d-1"}, nil
	}
	cards.patchFn = func(_ context.Context, _, _ string, _ domain.FlashcardPatch) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", DeckID: "d-1", IsDeleted: true}, nil
	}

	del := true
	_, err := svc.Update(context.Background(), "u-1", "d-1", "c-1", domain.FlashcardPatch{IsDeleted: &del})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decks.deltas) != 1 || decks.deltas[0] != -1 {
		t.Fatalf("expected -1 adjustment, got %v", decks.deltas)
	}
}

func TestUpdate_RestoreIncrements(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.getFn = func(_ context.Context, _, _ string) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", DeckID: "d-1", IsDeleted: true}, nil
	}
	cards.patchFn = func(_ context.Context, _, _ string, _ domain.FlashcardPatch) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", DeckID: "d-1"}, nil
	}

	restore := false
	_, err := svc.Update(context.Background(), "u-1", "d-1", "c-1", domain.FlashcardPatch{IsDeleted: &restore})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decks.deltas) != 1 || decks.deltas[0] != 1 {
		t.Fatalf("expected +1 adjustment, got %v", decks.deltas)
	}
}

func TestUpdate_NoTransitionNoCounterOp(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.getFn = func(_ context.Context, _, _ string) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", DeckID: "d-1", Term: "old"}, nil
	}
	cards.patchFn = func(_ context.Context, _, _ string, _ domain.FlashcardPatch) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", DeckID: "d-1", Term: "new"}, nil
	}

	term := "new"
	c, err := svc.Update(context.Background(), "u-1", "d-1", "c-1", domain.FlashcardPatch{Term: &term})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Term != "new" {
		t.Fatalf("unexpected card: %+v", c)
	}
	if len(decks.deltas) != 0 {
		t.Fatalf("counter must be untouched, got %v", decks.deltas)
	}
}

// --- DeleteBatch ---

func TestDeleteBatch_DecrementsByActualTransitions(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.setDeletedFn = func(_ context.Context, _ string, ids []string, deleted bool) (int, error) {
		if !deleted {
			t.Error("expected soft delete")
		}
		if len(ids) != 3 {
			t.Errorf("expected 3 IDs, got %v", ids)
		}
		return 2, nil // one was already deleted or missing
	}

	err := svc.DeleteBatch(context.Background(), "u-1", "d-1", []string{"c-1", "c-2", "c-3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decks.deltas) != 1 || decks.deltas[0] != -2 {
		t.Fatalf("expected -2 adjustment, got %v", decks.deltas)
	}
}

func TestDeleteBatch_NothingChangedNoCounterOp(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.setDeletedFn = func(_ context.Context, _ string, _ []string, _ bool) (int, error) {
		return 0, nil
	}

	if err := svc.DeleteBatch(context.Background(), "u-1", "d-1", []string{"c-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decks.deltas) != 0 {
		t.Fatalf("counter must be untouched, got %v", decks.deltas)
	}
}

// --- Reads ---

func TestList_BadLimit(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.List(context.Background(), "d-1", "", 1)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestList_DeletedDeckIsNotFound(t *testing.T) {
	svc, _, decks := newTestService(t)

	decks.getFn = func(_ context.Context, _ string) (domain.Deck, error) {
		return domain.Deck{ID: "d-1", IsDeleted: true}, nil
	}

	_, _, err := svc.List(context.Background(), "d-1", "", 10)
	if !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("expected ErrDeckNotFound, got %v", err)
	}
}

func TestGet_SoftDeletedCardIsNotFound(t *testing.T) {
	svc, cards, _ := newTestService(t)

	cards.getFn = func(_ context.Context, _, _ string) (domain.Flashcard, error) {
		return domain.Flashcard{ID: "c-1", IsDeleted: true}, nil
	}

	_, err := svc.Get(context.Background(), "d-1", "c-1")
	if !errors.Is(err, domain.ErrFlashcardNotFound) {
		t.Fatalf("expected ErrFlashcardNotFound, got %v", err)
	}
}

func TestCount_LiveDeckOnly(t *testing.T) {
	svc, cards, decks := newTestService(t)

	cards.countLiveFn = func(_ context.Context, deckID string) (int, error) {
		if deckID != "d-1" {
			t.Errorf("unexpected deck: %s", deckID)
		}
		return 7, nil
	}

	n, err := svc.Count(context.Background(), "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7, got %d", n)
	}

	decks.getFn = func(_ context.Context, _ string) (domain.Deck, error) {
		return domain.Deck{ID: "d-1", IsDeleted: true}, nil
	}
	if _, err := svc.Count(context.Background(), "d-1"); !errors.Is(err, domain.ErrDeckNotFound) {
		t.Fatalf("expected ErrDeckNotFound, got %v", err)
	}
}
