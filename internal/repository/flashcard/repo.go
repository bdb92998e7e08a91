package flashcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studydeck/studydeck/internal/db"
	"github.com/studydeck/studydeck/internal/domain"
	"github.com/studydeck/studydeck/internal/repository/pagination"
)

// scanWindow is the page size for full-deck scans.
const scanWindow = 100

// store is the consumer interface for flashcards (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	DelMulti(ctx context.Context, keys []string) error
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements flashcard storage on top of the document store.
type Repo struct {
	store store
}

func New(s store) *Repo {
	return &Repo{store: s}
}

// IndexDefinition returns the FT index over flashcard documents.
func IndexDefinition() *db.IndexDefinition {
	return db.NewIndex(indexName()).
		Prefix(keyPrefix()).
		Tag("$.id", "id", false).
		Tag("$.deck_id", "deck_id", false).
		Tag("$.is_deleted", "is_deleted", false).
		Numeric("$.created_at", "created_at", true).
		MustBuild()
}

// Create persists a single flashcard.
func (r *Repo) Create(ctx context.Context, c *domain.Flashcard) error {
	doc := toDoc(c)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal flashcard: %w", err)
	}
	if err := r.store.JSONSet(ctx, Key(c.DeckID, c.ID), "$", data); err != nil {
		return fmt.Errorf("json.set flashcard %s: %w", c.ID, err)
	}
	return nil
}

// CreateMulti persists a batch of flashcards in one pipelined round trip.
func (r *Repo) CreateMulti(ctx context.Context, cards []domain.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}

	items := make([]db.JSONSetItem, len(cards))
	for i := range cards {
		data, err := json.Marshal(toDoc(&cards[i]))
		if err != nil {
			return fmt.Errorf("marshal flashcard %s: %w", cards[i].ID, err)
		}
		items[i] = db.JSONSetItem{Key: Key(cards[i].DeckID, cards[i].ID), Path: "$", Data: data}
	}

	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("json.set flashcards: %w", err)
	}
	return nil
}

// Get returns one flashcard of a deck.
func (r *Repo) Get(ctx context.Context, deckID, cardID string) (domain.Flashcard, error) {
	raw, err := r.store.JSONGet(ctx, Key(deckID, cardID), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Flashcard{}, domain.ErrFlashcardNotFound
		}
		return domain.Flashcard{}, fmt.Errorf("json.get flashcard %s: %w", cardID, err)
	}
	return parseJSONGetResult(raw)
}

// List returns one page of live flashcards in creation order. The cursor is
// the last flashcard ID of the previous page.
func (r *Repo) List(ctx context.Context, deckID, cursor string, limit int) ([]domain.Flashcard, string, error) {
	query := liveQuery(deckID)

	offset := 0
	if cursor != "" {
		found, err := pagination.FindOffset(
			ctx, r.store, indexName(), query, "created_at", false, Key(deckID, cursor))
		if err != nil {
			if errors.Is(err, pagination.ErrCursorNotFound) {
				return nil, "", fmt.Errorf("cursor %q: %w", cursor, domain.ErrInvalidInput)
			}
			return nil, "", fmt.Errorf("resolve cursor: %w", err)
		}
		offset = found
	}

	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName(),
		Query:        query,
		SortBy:       "created_at",
		Offset:       offset,
		Limit:        limit + 1,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("list flashcards: %w", err)
	}

	cards := make([]domain.Flashcard, 0, limit)
	for i, entry := range res.Entries {
		if i >= limit {
			break
		}
		c, err := parseEntryJSON(entry.Fields["$"])
		if err != nil {
			return nil, "", fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		cards = append(cards, c)
	}

	var nextCursor string
	if len(res.Entries) > limit && len(cards) > 0 {
		nextCursor = cards[len(cards)-1].ID
	}

	return cards, nextCursor, nil
}

// ListAll returns every live flashcard of a deck in creation order.
func (r *Repo) ListAll(ctx context.Context, deckID string) ([]domain.Flashcard, error) {
	var cards []domain.Flashcard
	offset := 0
	for {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    indexName(),
			Query:        liveQuery(deckID),
			SortBy:       "created_at",
			Offset:       offset,
			Limit:        scanWindow,
			ReturnFields: []string{"$"},
		})
		if err != nil {
			return nil, fmt.Errorf("scan flashcards: %w", err)
		}
		for _, entry := range res.Entries {
			c, err := parseEntryJSON(entry.Fields["$"])
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
			}
			cards = append(cards, c)
		}
		offset += len(res.Entries)
		if len(res.Entries) == 0 || offset >= res.Total {
			return cards, nil
		}
	}
}

// CountLive counts live flashcards of a deck straight from the index.
func (r *Repo) CountLive(ctx context.Context, deckID string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(), liveQuery(deckID))
	if err != nil {
		return 0, fmt.Errorf("count flashcards: %w", err)
	}
	return n, nil
}

// Patch merges non-nil patch fields into a stored flashcard and returns the
// updated card.
func (r *Repo) Patch(ctx context.Context, deckID, cardID string, p domain.FlashcardPatch) (domain.Flashcard, error) {
	raw, err := r.store.JSONGet(ctx, Key(deckID, cardID), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Flashcard{}, domain.ErrFlashcardNotFound
		}
		return domain.Flashcard{}, fmt.Errorf("json.get flashcard %s: %w", cardID, err)
	}

	var docs []cardDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domain.Flashcard{}, fmt.Errorf("unmarshal for patch: %w", err)
	}
	if len(docs) == 0 {
		return domain.Flashcard{}, domain.ErrFlashcardNotFound
	}

	doc := docs[0]
	if p.Term != nil {
		doc.Term = *p.Term
	}
	if p.Definition != nil {
		doc.Definition = *p.Definition
	}
	if p.IsStarred != nil {
		doc.IsStarred = *p.IsStarred
	}
	if p.IsDeleted != nil {
		doc.IsDeleted = *p.IsDeleted
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("marshal patched flashcard: %w", err)
	}
	if err := r.store.JSONSet(ctx, Key(deckID, cardID), "$", data); err != nil {
		return domain.Flashcard{}, fmt.Errorf("json.set flashcard %s: %w", cardID, err)
	}

	return doc.toDomain(), nil
}

// SetDeleted flips the is_deleted flag on the given cards and returns how
// many actually changed state. Missing cards are skipped.
func (r *Repo) SetDeleted(ctx context.Context, deckID string, cardIDs []string, deleted bool) (int, error) {
	if len(cardIDs) == 0 {
		return 0, nil
	}

	keys := make([]string, len(cardIDs))
	for i, id := range cardIDs {
		keys[i] = Key(deckID, id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return 0, fmt.Errorf("json.get flashcards: %w", err)
	}

	var items []db.JSONSetItem
	changed := 0
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		var docs []cardDoc
		if err := json.Unmarshal(raw, &docs); err != nil || len(docs) == 0 {
			continue
		}
		doc := docs[0]
		if doc.IsDeleted == deleted {
			continue
		}
		doc.IsDeleted = deleted
		data, err := json.Marshal(doc)
		if err != nil {
			return 0, fmt.Errorf("marshal flashcard %s: %w", doc.ID, err)
		}
		items = append(items, db.JSONSetItem{Key: keys[i], Path: "$", Data: data})
		changed++
	}

	if len(items) == 0 {
		return 0, nil
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("json.set flashcards: %w", err)
	}
	return changed, nil
}

// DeleteByDeck hard-deletes every flashcard document of a deck, including
// soft-deleted ones. Used by the deck delete cascade.
func (r *Repo) DeleteByDeck(ctx context.Context, deckID string) error {
	query := db.TagFilter("deck_id", deckID)
	for {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName: indexName(),
			Query:     query,
			Limit:     scanWindow,
			NoContent: true,
		})
		if err != nil {
			return fmt.Errorf("scan deck flashcards: %w", err)
		}
		if len(res.Entries) == 0 {
			return nil
		}
		keys := make([]string, len(res.Entries))
		for i, entry := range res.Entries {
			keys[i] = entry.Key
		}
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete deck flashcards: %w", err)
		}
		if len(res.Entries) >= res.Total {
			return nil
		}
	}
}

func liveQuery(deckID string) string {
	return db.And(db.TagFilter("deck_id", deckID), db.BoolFilter("is_deleted", false))
}

// Key returns the store key for a flashcard.
func Key(deckID, cardID string) string {
	return keyPrefix() + deckID + ":" + cardID
}

func keyPrefix() string {
	return domain.KeyPrefix + "card:"
}

func indexName() string {
	return domain.KeyPrefix + "card:idx"
}
