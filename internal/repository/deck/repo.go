package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/studydeck/studydeck/internal/db"
	"github.com/studydeck/studydeck/internal/domain"
	"github.com/studydeck/studydeck/internal/repository/pagination"
)

// store is the consumer interface for decks (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	JSONNumIncrBy(ctx context.Context, key, path string, delta float64) (float64, error)
	Del(ctx context.Context, key string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Filter restricts a deck listing or search to a scope.
type Filter struct {
	OwnerID    string   // restrict to one owner
	PublicOnly bool     // is_private == false
	Deleted    bool     // is_deleted value to match
	IDs        []string // restrict to an ID set (saved scope)
}

// Repo implements the deck storage contracts of the usecase layer.
type Repo struct {
	store store
}

// New creates a deck repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// IndexDefinition returns the FT index over deck documents.
func IndexDefinition(hnswM, efConstruct int) *db.IndexDefinition {
	return db.NewIndex(indexName()).
		Prefix(keyPrefix()).
		Tag("$.id", "id", false).
		Tag("$.owner_id", "owner_id", false).
		Tag("$.title", "title", true).
		Tag("$.is_private", "is_private", false).
		Tag("$.is_deleted", "is_deleted", false).
		Numeric("$.created_at", "created_at", true).
		VectorHNSW("$.embedding", "embedding", domain.VectorDim, db.DistanceCosine, hnswM, efConstruct).
		MustBuild()
}

// Create persists a new deck document.
func (r *Repo) Create(ctx context.Context, d *domain.Deck) error {
	doc := toDoc(d)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}
	if err := r.store.JSONSet(ctx, Key(d.ID), "$", data); err != nil {
		return fmt.Errorf("json.set deck %s: %w", d.ID, err)
	}
	return nil
}

// Get returns a deck by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Deck, error) {
	raw, err := r.store.JSONGet(ctx, Key(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Deck{}, domain.ErrDeckNotFound
		}
		return domain.Deck{}, fmt.Errorf("json.get deck %s: %w", id, err)
	}
	return parseJSONGetResult(raw)
}

// GetMulti resolves deck IDs in one round trip. Vanished decks yield nil
// entries so callers can skip them.
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]*domain.Deck, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = Key(id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("json.get decks: %w", err)
	}

	decks := make([]*domain.Deck, len(ids))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		d, err := parseJSONGetResult(raw)
		if err != nil {
			continue
		}
		decks[i] = &d
	}
	return decks, nil
}

// List returns one sorted page of decks matching the filter. The cursor is
// the last deck ID of the previous page; nextCursor is empty when the
// listing is exhausted.
func (r *Repo) List(
	ctx context.Context, f Filter, orderBy domain.OrderBy, cursor string, limit int,
) ([]domain.Deck, string, error) {
	query := filterQuery(f)
	sortBy, desc := sortSpec(orderBy)

	offset := 0
	if cursor != "" {
		found, err := pagination.FindOffset(ctx, r.store, indexName(), query, sortBy, desc, Key(cursor))
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
		SortBy:       sortBy,
		Desc:         desc,
		Offset:       offset,
		Limit:        limit + 1,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("list decks: %w", err)
	}

	decks := make([]domain.Deck, 0, limit)
	for i, entry := range res.Entries {
		if i >= limit {
			break
		}
		d, err := parseEntryJSON(entry.Fields["$"])
		if err != nil {
			return nil, "", fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		decks = append(decks, d)
	}

	var nextCursor string
	if len(res.Entries) > limit && len(decks) > 0 {
		nextCursor = decks[len(decks)-1].ID
	}

	return decks, nextCursor, nil
}

// SearchExactTitle returns decks in the filter scope whose normalized title
// equals the cleaned query, in listing order.
func (r *Repo) SearchExactTitle(ctx context.Context, f Filter, title string, limit int) ([]domain.Deck, error) {
	query := db.And(filterQuery(f), db.TagFilter("title", title))

	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    indexName(),
		Query:        query,
		Limit:        limit,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("exact title search: %w", err)
	}

	return parseEntries(res)
}

// SearchVector returns decks in the filter scope within MaxCosineDistance of
// the query vector, nearest first.
func (r *Repo) SearchVector(ctx context.Context, f Filter, vector []float32, limit int) ([]domain.Deck, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(),
		Filter:       filterQuery(f),
		Vector:       vector,
		K:            limit,
		MaxDistance:  domain.MaxCosineDistance,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	return parseEntries(res)
}

// Patch writes only the changed fields, one JSON.SET per path pipelined in a
// single round trip, and returns the updated deck. Untouched paths, the
// flashcard counter and the embedding included, are never rewritten, so a
// JSON.NUMINCRBY landing between the read and the write survives.
func (r *Repo) Patch(ctx context.Context, id string, p domain.DeckPatch) (domain.Deck, error) {
	raw, err := r.store.JSONGet(ctx, Key(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Deck{}, domain.ErrDeckNotFound
		}
		return domain.Deck{}, fmt.Errorf("json.get deck %s: %w", id, err)
	}

	var docs []deckDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domain.Deck{}, fmt.Errorf("unmarshal for patch: %w", err)
	}
	if len(docs) == 0 {
		return domain.Deck{}, domain.ErrDeckNotFound
	}

	doc := docs[0]
	fields := make(map[string]any, 6)
	if p.Title != nil {
		doc.Title = domain.NormalizeTitle(*p.Title)
		fields["$.title"] = doc.Title
	}
	if p.Description != nil {
		doc.Description = *p.Description
		fields["$.description"] = doc.Description
	}
	if p.IsPrivate != nil {
		doc.IsPrivate = *p.IsPrivate
		fields["$.is_private"] = doc.IsPrivate
	}
	if p.IsDeleted != nil {
		doc.IsDeleted = *p.IsDeleted
		fields["$.is_deleted"] = doc.IsDeleted
	}
	if p.CoverPhoto != nil {
		doc.CoverPhoto = *p.CoverPhoto
		fields["$.cover_photo"] = doc.CoverPhoto
	}
	if p.MadeToQuizAt != nil {
		doc.MadeToQuizAt = *p.MadeToQuizAt
		fields["$.made_to_quiz_at"] = doc.MadeToQuizAt
	}
	if len(fields) == 0 {
		return doc.toDomain(), nil
	}

	items := make([]db.JSONSetItem, 0, len(fields))
	for path, v := range fields {
		data, err := json.Marshal(v)
		if err != nil {
			return domain.Deck{}, fmt.Errorf("marshal %s: %w", path, err)
		}
		items = append(items, db.JSONSetItem{Key: Key(id), Path: path, Data: data})
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return domain.Deck{}, fmt.Errorf("json.set deck %s: %w", id, err)
	}

	return doc.toDomain(), nil
}

// AdjustCardCount atomically shifts the denormalized flashcard counter and
// returns the new value. A negative result is clamped back to zero.
func (r *Repo) AdjustCardCount(ctx context.Context, id string, delta int) (int, error) {
	val, err := r.store.JSONNumIncrBy(ctx, Key(id), "$.flashcard_count", float64(delta))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, domain.ErrDeckNotFound
		}
		return 0, fmt.Errorf("adjust card count %s: %w", id, err)
	}
	if val < 0 {
		if _, err := r.store.JSONNumIncrBy(ctx, Key(id), "$.flashcard_count", -val); err != nil {
			return 0, fmt.Errorf("clamp card count %s: %w", id, err)
		}
		return 0, nil
	}
	return int(val), nil
}

// Delete removes the deck document.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, Key(id)); err != nil {
		return fmt.Errorf("del deck %s: %w", id, err)
	}
	return nil
}

func parseEntries(res *db.SearchResult) ([]domain.Deck, error) {
	if res == nil || len(res.Entries) == 0 {
		return nil, nil
	}
	decks := make([]domain.Deck, 0, len(res.Entries))
	for _, entry := range res.Entries {
		d, err := parseEntryJSON(entry.Fields["$"])
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		decks = append(decks, d)
	}
	return decks, nil
}

// filterQuery translates a Filter into an FT.SEARCH pre-filter string.
func filterQuery(f Filter) string {
	conds := make([]string, 0, 4)
	if f.OwnerID != "" {
		conds = append(conds, db.TagFilter("owner_id", f.OwnerID))
	}
	if f.PublicOnly {
		conds = append(conds, db.BoolFilter("is_private", false))
	}
	conds = append(conds, db.BoolFilter("is_deleted", f.Deleted))
	if len(f.IDs) > 0 {
		conds = append(conds, idSetFilter(f.IDs))
	}
	return db.And(conds...)
}

// idSetFilter builds @id:{a|b|c} over an ID set.
func idSetFilter(ids []string) string {
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = db.EscapeTag(id)
	}
	return fmt.Sprintf("@id:{%s}", strings.Join(escaped, "|"))
}

func sortSpec(orderBy domain.OrderBy) (field string, desc bool) {
	if orderBy == domain.OrderByCreatedAt {
		return "created_at", true
	}
	return "title", false
}

// Key returns the store key for a deck ID.
func Key(id string) string {
	return keyPrefix() + id
}

func keyPrefix() string {
	return domain.KeyPrefix + "deck:"
}

func indexName() string {
	return domain.KeyPrefix + "deck:idx"
}
