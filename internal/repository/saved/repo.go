package saved

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studydeck/studydeck/internal/db"
	"github.com/studydeck/studydeck/internal/domain"
	"github.com/studydeck/studydeck/internal/repository/pagination"
)

// scanWindow is the page size for full-scope scans.
const scanWindow = 100

// store is the consumer interface for saved-deck joins (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// savedDoc is the persisted JSON shape of a saved-deck join.
type savedDoc struct {
	DeckID  string `json:"deck_id"`
	UserID  string `json:"user_id"`
	SavedAt int64  `json:"saved_at"`
}

// Repo stores which public decks a user has saved.
type Repo struct {
	store store
}

func New(s store) *Repo {
	return &Repo{store: s}
}

// IndexDefinition returns the FT index over saved-deck joins.
func IndexDefinition() *db.IndexDefinition {
	return db.NewIndex(indexName()).
		Prefix(keyPrefix()).
		Tag("$.user_id", "user_id", false).
		Tag("$.deck_id", "deck_id", false).
		Numeric("$.saved_at", "saved_at", true).
		MustBuild()
}

// Save persists the join. Saving twice overwrites the timestamp, so callers
// check Exists first to report conflicts.
func (r *Repo) Save(ctx context.Context, s domain.SavedDeck) error {
	data, err := json.Marshal(savedDoc{DeckID: s.DeckID, UserID: s.UserID, SavedAt: s.SavedAt})
	if err != nil {
		return fmt.Errorf("marshal saved deck: %w", err)
	}
	if err := r.store.JSONSet(ctx, Key(s.UserID, s.DeckID), "$", data); err != nil {
		return fmt.Errorf("json.set saved deck: %w", err)
	}
	return nil
}

// Exists reports whether the user has saved the deck.
func (r *Repo) Exists(ctx context.Context, userID, deckID string) (bool, error) {
	ok, err := r.store.Exists(ctx, Key(userID, deckID))
	if err != nil {
		return false, fmt.Errorf("exists saved deck: %w", err)
	}
	return ok, nil
}

// Delete removes the join.
func (r *Repo) Delete(ctx context.Context, userID, deckID string) error {
	if err := r.store.Del(ctx, Key(userID, deckID)); err != nil {
		return fmt.Errorf("del saved deck: %w", err)
	}
	return nil
}

// List returns one page of the user's saved deck IDs, most recently saved
// first. The cursor is the last deck ID of the previous page.
func (r *Repo) List(ctx context.Context, userID, cursor string, limit int) ([]string, string, error) {
	query := db.TagFilter("user_id", userID)

	offset := 0
	if cursor != "" {
		found, err := pagination.FindOffset(
			ctx, r.store, indexName(), query, "saved_at", true, Key(userID, cursor))
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
		SortBy:       "saved_at",
		Desc:         true,
		Offset:       offset,
		Limit:        limit + 1,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("list saved decks: %w", err)
	}

	deckIDs := make([]string, 0, limit)
	for i, entry := range res.Entries {
		if i >= limit {
			break
		}
		var doc savedDoc
		if err := json.Unmarshal([]byte(entry.Fields["$"]), &doc); err != nil {
			return nil, "", fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		deckIDs = append(deckIDs, doc.DeckID)
	}

	var nextCursor string
	if len(res.Entries) > limit && len(deckIDs) > 0 {
		nextCursor = deckIDs[len(deckIDs)-1]
	}

	return deckIDs, nextCursor, nil
}

// AllDeckIDs returns every deck ID the user has saved. Feeds the saved-scope
// search filter.
func (r *Repo) AllDeckIDs(ctx context.Context, userID string) ([]string, error) {
	var deckIDs []string
	query := db.TagFilter("user_id", userID)
	offset := 0
	for {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName:    indexName(),
			Query:        query,
			Offset:       offset,
			Limit:        scanWindow,
			ReturnFields: []string{"$"},
		})
		if err != nil {
			return nil, fmt.Errorf("scan saved decks: %w", err)
		}
		for _, entry := range res.Entries {
			var doc savedDoc
			if err := json.Unmarshal([]byte(entry.Fields["$"]), &doc); err != nil {
				return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
			}
			deckIDs = append(deckIDs, doc.DeckID)
		}
		offset += len(res.Entries)
		if len(res.Entries) == 0 || offset >= res.Total {
			return deckIDs, nil
		}
	}
}

// DeleteByDeck removes the join for every user who saved the deck. Used by
// the deck delete cascade.
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
			return fmt.Errorf("scan saved joins: %w", err)
		}
		if len(res.Entries) == 0 {
			return nil
		}
		keys := make([]string, len(res.Entries))
		for i, entry := range res.Entries {
			keys[i] = entry.Key
		}
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete saved joins: %w", err)
		}
		if len(res.Entries) >= res.Total {
			return nil
		}
	}
}

// Key returns the store key for a saved-deck join.
func Key(userID, deckID string) string {
	return keyPrefix() + userID + ":" + deckID
}

func keyPrefix() string {
	return domain.KeyPrefix + "saved:"
}

func indexName() string {
	return domain.KeyPrefix + "saved:idx"
}
