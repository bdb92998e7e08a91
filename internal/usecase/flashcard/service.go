package flashcard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studydeck/studydeck/internal/domain"
)

// Service handles flashcard CRUD and keeps the deck's denormalized counter
// in step with card lifetimes.
type Service struct {
	cards Repository
	decks DeckStore
	now   func() time.Time
}

// New creates a flashcard service.
func New(cards Repository, decks DeckStore) *Service {
	return &Service{cards: cards, decks: decks, now: time.Now}
}

// WithClock injects a deterministic clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// List returns one page of a deck's live flashcards in creation order.
func (s *Service) List(ctx context.Context, deckID, cursor string, limit int) ([]domain.Flashcard, string, error) {
	if err := domain.ValidatePageSize(limit); err != nil {
		return nil, "", err
	}
	if _, err := s.liveDeck(ctx, deckID); err != nil {
		return nil, "", err
	}

	cards, nextCursor, err := s.cards.List(ctx, deckID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list flashcards: %w", err)
	}
	return cards, nextCursor, nil
}

// Count returns the authoritative live-card count straight from the index.
// Clients reconcile the deck's denormalized counter against it.
func (s *Service) Count(ctx context.Context, deckID string) (int, error) {
	if _, err := s.liveDeck(ctx, deckID); err != nil {
		return 0, err
	}

	n, err := s.cards.CountLive(ctx, deckID)
	if err != nil {
		return 0, fmt.Errorf("count flashcards: %w", err)
	}
	return n, nil
}

// ListAll returns every live flashcard of a deck, for quiz sampling.
func (s *Service) ListAll(ctx context.Context, deckID string) ([]domain.Flashcard, error) {
	if _, err := s.liveDeck(ctx, deckID); err != nil {
		return nil, err
	}

	cards, err := s.cards.ListAll(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("list all flashcards: %w", err)
	}
	return cards, nil
}

// Get returns one live flashcard.
func (s *Service) Get(ctx context.Context, deckID, cardID string) (domain.Flashcard, error) {
	if _, err := s.liveDeck(ctx, deckID); err != nil {
		return domain.Flashcard{}, err
	}

	c, err := s.cards.Get(ctx, deckID, cardID)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("get flashcard: %w", err)
	}
	if c.IsDeleted {
		return domain.Flashcard{}, domain.ErrFlashcardNotFound
	}
	return c, nil
}

// Create inserts one flashcard into an owned deck and bumps the counter.
func (s *Service) Create(
	ctx context.Context, actingUserID, deckID string, in domain.FlashcardInput,
) (domain.Flashcard, error) {
	if err := in.Validate(); err != nil {
		return domain.Flashcard{}, err
	}
	if err := s.guardOwnedDeck(ctx, actingUserID, deckID); err != nil {
		return domain.Flashcard{}, err
	}

	c := s.newCard(deckID, in)
	if err := s.cards.Create(ctx, &c); err != nil {
		return domain.Flashcard{}, fmt.Errorf("create flashcard: %w", err)
	}

	if _, err := s.decks.AdjustCardCount(ctx, deckID, 1); err != nil {
		return domain.Flashcard{}, fmt.Errorf("bump card count: %w", err)
	}
	return c, nil
}

// CreateBatch inserts many flashcards at once and bumps the counter by the
// batch size. Validation failures reject the whole batch before any write.
func (s *Service) CreateBatch(
	ctx context.Context, actingUserID, deckID string, inputs []domain.FlashcardInput,
) ([]domain.Flashcard, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no flashcards given: %w", domain.ErrInvalidInput)
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("flashcard %d: %w", i, err)
		}
	}
	if err := s.guardOwnedDeck(ctx, actingUserID, deckID); err != nil {
		return nil, err
	}

	cards := make([]domain.Flashcard, len(inputs))
	for i, in := range inputs {
		cards[i] = s.newCard(deckID, in)
	}

	if err := s.cards.CreateMulti(ctx, cards); err != nil {
		return nil, fmt.Errorf("create flashcards: %w", err)
	}
	if _, err := s.decks.AdjustCardCount(ctx, deckID, len(cards)); err != nil {
		return nil, fmt.Errorf("bump card count: %w", err)
	}
	return cards, nil
}

// Update patches a flashcard. An is_deleted transition moves the deck
// counter: false→true decrements, true→false increments, no change leaves
// it alone.
func (s *Service) Update(
	ctx context.Context, actingUserID, deckID, cardID string, p domain.FlashcardPatch,
) (domain.Flashcard, error) {
	if p.IsEmpty() {
		return domain.Flashcard{}, fmt.Errorf("empty patch: %w", domain.ErrInvalidInput)
	}
	if err := s.guardOwnedDeck(ctx, actingUserID, deckID); err != nil {
		return domain.Flashcard{}, err
	}

	prev, err := s.cards.Get(ctx, deckID, cardID)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("get flashcard: %w", err)
	}

	updated, err := s.cards.Patch(ctx, deckID, cardID, p)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("patch flashcard: %w", err)
	}

	switch {
	case !prev.IsDeleted && updated.IsDeleted:
		if _, err := s.decks.AdjustCardCount(ctx, deckID, -1); err != nil {
			return domain.Flashcard{}, fmt.Errorf("drop card count: %w", err)
		}
	case prev.IsDeleted && !updated.IsDeleted:
		if _, err := s.decks.AdjustCardCount(ctx, deckID, 1); err != nil {
			return domain.Flashcard{}, fmt.Errorf("bump card count: %w", err)
		}
	}

	return updated, nil
}

// DeleteBatch soft-deletes the given cards and decrements the counter by the
// number of cards that actually transitioned. Missing IDs are skipped.
func (s *Service) DeleteBatch(ctx context.Context, actingUserID, deckID string, cardIDs []string) error {
	if len(cardIDs) == 0 {
		return fmt.Errorf("no flashcard IDs given: %w", domain.ErrInvalidInput)
	}
	if err := s.guardOwnedDeck(ctx, actingUserID, deckID); err != nil {
		return err
	}

	changed, err := s.cards.SetDeleted(ctx, deckID, cardIDs, true)
	if err != nil {
		return fmt.Errorf("delete flashcards: %w", err)
	}
	if changed > 0 {
		if _, err := s.decks.AdjustCardCount(ctx, deckID, -changed); err != nil {
			return fmt.Errorf("drop card count: %w", err)
		}
	}
	return nil
}

func (s *Service) newCard(deckID string, in domain.FlashcardInput) domain.Flashcard {
	return domain.Flashcard{
		ID:         uuid.NewString(),
		DeckID:     deckID,
		Term:       in.Term,
		Definition: in.Definition,
		IsStarred:  in.IsStarred,
		CreatedAt:  s.now().UnixMilli(),
	}
}

// liveDeck resolves a deck for read paths; soft-deleted decks are not found.
func (s *Service) liveDeck(ctx context.Context, deckID string) (domain.Deck, error) {
	d, err := s.decks.Get(ctx, deckID)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("get deck: %w", err)
	}
	if d.IsDeleted {
		return domain.Deck{}, domain.ErrDeckNotFound
	}
	return d, nil
}

// guardOwnedDeck gates mutations: the deck must exist, be live, and belong
// to the acting user.
func (s *Service) guardOwnedDeck(ctx context.Context, actingUserID, deckID string) error {
	d, err := s.decks.Get(ctx, deckID)
	if err != nil {
		return fmt.Errorf("get deck: %w", err)
	}
	if d.IsDeleted {
		return domain.ErrDeckDeleted
	}
	if d.OwnerID != actingUserID {
		return domain.ErrUnauthorized
	}
	return nil
}
