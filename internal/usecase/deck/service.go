package deck

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studydeck/studydeck/internal/domain"
	"github.com/studydeck/studydeck/internal/logger"
	deckrepo "github.com/studydeck/studydeck/internal/repository/deck"
)

// Service handles deck CRUD, listings, saves, and the delete cascade.
type Service struct {
	decks     Repository
	saved     SavedRepository
	cards     FlashcardCascade
	activity  ActivityCascade
	users     NameResolver
	embedder  Embedder
	publisher PublishRequester
	now       func() time.Time
}

// New creates a deck service. The embedder must be the document-mode
// decorator.
func New(
	decks Repository,
	saved SavedRepository,
	cards FlashcardCascade,
	activity ActivityCascade,
	users NameResolver,
	embedder Embedder,
	publisher PublishRequester,
) *Service {
	return &Service{
		decks:     decks,
		saved:     saved,
		cards:     cards,
		activity:  activity,
		users:     users,
		embedder:  embedder,
		publisher: publisher,
		now:       time.Now,
	}
}

// WithClock injects a deterministic clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateInput is the deck creation payload.
type CreateInput struct {
	Title       string
	Description string
	CoverPhoto  string
	IsPrivate   bool
}

// UpdateResult reports the outcome of an update. PublishPending is true when
// the privacy change was diverted into the moderation flow instead of being
// applied.
type UpdateResult struct {
	Deck           domain.Deck
	PublishPending bool
}

// ListOwner returns one page of the owner's non-deleted decks.
func (s *Service) ListOwner(
	ctx context.Context, ownerID string, orderBy domain.OrderBy, cursor string, limit int,
) ([]domain.Deck, string, error) {
	return s.listOwnerScoped(ctx, ownerID, orderBy, cursor, limit, false)
}

// ListOwnerDeleted returns one page of the owner's soft-deleted decks, for
// the recovery view.
func (s *Service) ListOwnerDeleted(
	ctx context.Context, ownerID string, orderBy domain.OrderBy, cursor string, limit int,
) ([]domain.Deck, string, error) {
	return s.listOwnerScoped(ctx, ownerID, orderBy, cursor, limit, true)
}

func (s *Service) listOwnerScoped(
	ctx context.Context, ownerID string, orderBy domain.OrderBy, cursor string, limit int, deleted bool,
) ([]domain.Deck, string, error) {
	if ownerID == "" {
		return nil, "", fmt.Errorf("owner ID is required: %w", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePageSize(limit); err != nil {
		return nil, "", err
	}
	if !orderBy.Valid() {
		return nil, "", fmt.Errorf("order %q: %w", orderBy, domain.ErrInvalidInput)
	}

	decks, nextCursor, err := s.decks.List(
		ctx, deckrepo.Filter{OwnerID: ownerID, Deleted: deleted}, orderBy, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list owner decks: %w", err)
	}

	// Single owner, single lookup.
	name, err := s.users.ResolveName(ctx, ownerID)
	if err != nil {
		return nil, "", fmt.Errorf("resolve owner name: %w", err)
	}
	for i := range decks {
		decks[i].OwnerName = name
	}

	return decks, nextCursor, nil
}

// ListPublic returns one page of public decks ordered by title.
func (s *Service) ListPublic(ctx context.Context, cursor string, limit int) ([]domain.Deck, string, error) {
	if err := domain.ValidatePageSize(limit); err != nil {
		return nil, "", err
	}

	decks, nextCursor, err := s.decks.List(
		ctx, deckrepo.Filter{PublicOnly: true}, domain.OrderByTitle, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list public decks: %w", err)
	}

	if err := s.enrichOwnerNames(ctx, decks); err != nil {
		return nil, "", err
	}
	return decks, nextCursor, nil
}

// ListSaved returns one page of decks the user saved, most recently saved
// first. Decks deleted since saving are skipped.
func (s *Service) ListSaved(ctx context.Context, userID, cursor string, limit int) ([]domain.Deck, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("user ID is required: %w", domain.ErrInvalidInput)
	}
	if err := domain.ValidatePageSize(limit); err != nil {
		return nil, "", err
	}

	deckIDs, nextCursor, err := s.saved.List(ctx, userID, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list saved decks: %w", err)
	}
	if len(deckIDs) == 0 {
		return nil, "", nil
	}

	resolved, err := s.decks.GetMulti(ctx, deckIDs)
	if err != nil {
		return nil, "", fmt.Errorf("resolve saved decks: %w", err)
	}

	decks := make([]domain.Deck, 0, len(resolved))
	for _, d := range resolved {
		if d == nil || d.IsDeleted {
			continue
		}
		decks = append(decks, *d)
	}

	if err := s.enrichOwnerNames(ctx, decks); err != nil {
		return nil, "", err
	}
	return decks, nextCursor, nil
}

// Get returns one deck with its owner name resolved. Soft-deleted decks are
// not found.
func (s *Service) Get(ctx context.Context, deckID string) (domain.Deck, error) {
	d, err := s.decks.Get(ctx, deckID)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("get deck: %w", err)
	}
	if d.IsDeleted {
		return domain.Deck{}, domain.ErrDeckNotFound
	}

	name, err := s.users.ResolveName(ctx, d.OwnerID)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("resolve owner name: %w", err)
	}
	d.OwnerName = name
	return d, nil
}

// Create validates input, embeds the deck text once, and persists the deck.
// Embedding failure fails the create.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (domain.Deck, error) {
	d, err := domain.NewDeck(ownerID, in.Title, in.Description, in.CoverPhoto, in.IsPrivate)
	if err != nil {
		return domain.Deck{}, err
	}

	result, err := s.embedder.Embed(ctx, d.EmbeddingText())
	if err != nil {
		return domain.Deck{}, fmt.Errorf("vectorize deck: %w", err)
	}
	d.Embedding = result.Embedding

	name, err := s.users.ResolveName(ctx, ownerID)
	if err != nil {
		return domain.Deck{}, fmt.Errorf("resolve owner name: %w", err)
	}
	d.OwnerName = name

	d.ID = uuid.NewString()
	d.CreatedAt = s.now().UnixMilli()

	if err := s.decks.Create(ctx, &d); err != nil {
		return domain.Deck{}, fmt.Errorf("create deck: %w", err)
	}
	return d, nil
}

// Update patches an owned deck. A private→public privacy change is diverted
// into the publish flow: the flag stays private, the remaining fields are
// applied, and the result is marked pending.
func (s *Service) Update(ctx context.Context, actingUserID, deckID string, p domain.DeckPatch) (UpdateResult, error) {
	if p.IsEmpty() {
		return UpdateResult{}, fmt.Errorf("empty patch: %w", domain.ErrInvalidInput)
	}

	d, err := s.decks.Get(ctx, deckID)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("get deck: %w", err)
	}
	if d.OwnerID != actingUserID {
		return UpdateResult{}, domain.ErrUnauthorized
	}
	if d.IsDeleted && (p.IsDeleted == nil || *p.IsDeleted) {
		return UpdateResult{}, domain.ErrDeckDeleted
	}

	pending := false
	if p.IsPrivate != nil && !*p.IsPrivate && d.IsPrivate {
		if err := s.publisher.Request(ctx, actingUserID, deckID); err != nil {
			return UpdateResult{}, fmt.Errorf("request publish: %w", err)
		}
		pending = true
		p.IsPrivate = nil
	}

	if p.IsEmpty() {
		return UpdateResult{Deck: d, PublishPending: pending}, nil
	}

	updated, err := s.decks.Patch(ctx, deckID, p)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("patch deck: %w", err)
	}
	return UpdateResult{Deck: updated, PublishPending: pending}, nil
}

// Delete hard-deletes the caller's decks with full cascade: flashcards,
// saved-deck joins, study events, and quiz attempts. Invalid, missing, and
// unowned IDs are skipped with a log line; only empty input is an error.
func (s *Service) Delete(ctx context.Context, actingUserID string, deckIDs []string) error {
	if len(deckIDs) == 0 {
		return fmt.Errorf("no deck IDs given: %w", domain.ErrInvalidInput)
	}

	log := logger.FromContext(ctx)
	for _, id := range deckIDs {
		if id == "" {
			log.Warn("Skipping empty deck ID in batch delete")
			continue
		}

		d, err := s.decks.Get(ctx, id)
		if err != nil {
			log.Warn("Skipping unresolvable deck in batch delete",
				zap.String("deck_id", id), zap.Error(err))
			continue
		}
		if d.OwnerID != actingUserID {
			log.Warn("Skipping unowned deck in batch delete",
				zap.String("deck_id", id), zap.String("owner_id", d.OwnerID))
			continue
		}

		if err := s.cards.DeleteByDeck(ctx, id); err != nil {
			return fmt.Errorf("cascade flashcards for %s: %w", id, err)
		}
		if err := s.saved.DeleteByDeck(ctx, id); err != nil {
			return fmt.Errorf("cascade saved joins for %s: %w", id, err)
		}
		if err := s.activity.DeleteByDeck(ctx, id); err != nil {
			return fmt.Errorf("cascade activity for %s: %w", id, err)
		}
		if err := s.decks.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete deck %s: %w", id, err)
		}
	}
	return nil
}

// Save records that the user saved a public deck. Own, private, deleted, and
// already-saved decks are conflicts.
func (s *Service) Save(ctx context.Context, userID, deckID string) error {
	d, err := s.decks.Get(ctx, deckID)
	if err != nil {
		return fmt.Errorf("get deck: %w", err)
	}
	if d.IsDeleted {
		return domain.ErrDeckDeleted
	}
	if d.OwnerID == userID {
		return domain.ErrCannotSaveOwnDeck
	}
	if d.IsPrivate {
		return domain.ErrDeckNotPublic
	}

	exists, err := s.saved.Exists(ctx, userID, deckID)
	if err != nil {
		return fmt.Errorf("check saved: %w", err)
	}
	if exists {
		return domain.ErrAlreadySaved
	}

	if err := s.saved.Save(ctx, domain.SavedDeck{
		DeckID:  deckID,
		UserID:  userID,
		SavedAt: s.now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	return nil
}

// Unsave removes the user's save of a deck.
func (s *Service) Unsave(ctx context.Context, userID, deckID string) error {
	exists, err := s.saved.Exists(ctx, userID, deckID)
	if err != nil {
		return fmt.Errorf("check saved: %w", err)
	}
	if !exists {
		return domain.ErrNotSaved
	}

	if err := s.saved.Delete(ctx, userID, deckID); err != nil {
		return fmt.Errorf("unsave deck: %w", err)
	}
	return nil
}

// enrichOwnerNames resolves owner display names for a deck page in batched
// lookups.
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
