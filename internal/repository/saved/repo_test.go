package saved

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/studydeck/studydeck/internal/db"
	"github.com/studydeck/studydeck/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn    func(ctx context.Context, key, path string, data []byte) error
	delFn        func(ctx context.Context, key string) error
	delMultiFn   func(ctx context.Context, keys []string) error
	existsFn     func(ctx context.Context, key string) (bool, error)
	searchListFn func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) error {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func savedEntry(userID, deckID string, savedAt int64) db.SearchEntry {
	return db.SearchEntry{
		Key: Key(userID, deckID),
		Fields: map[string]string{
			"$": `{"deck_id":"` + deckID + `","user_id":"` + userID +
				`","saved_at":` + strconv.FormatInt(savedAt, 10) + `}`,
		},
	}
}

// --- Save / Exists / Delete ---

func TestSave_KeyShape(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		if key != "studydeck:saved:u-1:d-1" {
			t.Errorf("unexpected key: %s", key)
		}
		if !strings.Contains(string(data), `"deck_id":"d-1"`) {
			t.Errorf("deck_id missing: %s", data)
		}
		return nil
	}

	err := repo.Save(context.Background(), domain.SavedDeck{
		DeckID: "d-1", UserID: "u-1", SavedAt: 1700000000000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, key string) (bool, error) {
		return key == "studydeck:saved:u-1:d-1", nil
	}

	ok, err := repo.Exists(context.Background(), "u-1", "d-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected join to exist")
	}
}

// --- List ---

func TestList_NewestFirst(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if q.SortBy != "saved_at" || !q.Desc {
			t.Errorf("expected saved_at desc, got %s desc=%v", q.SortBy, q.Desc)
		}
		if !strings.Contains(q.Query, "@user_id:{u\\-1}") {
			t.Errorf("query %q missing user scope", q.Query)
		}
		return &db.SearchResult{
			Total: 3,
			Entries: []db.SearchEntry{
				savedEntry("u-1", "d-3", 3),
				savedEntry("u-1", "d-2", 2),
				savedEntry("u-1", "d-1", 1),
			},
		}, nil
	}

	ids, next, err := repo.List(context.Background(), "u-1", "", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "d-3" || ids[1] != "d-2" {
		t.Fatalf("unexpected page: %v", ids)
	}
	if next != "d-2" {
		t.Fatalf("expected cursor d-2, got %q", next)
	}
}

func TestList_StaleCursor(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total:   1,
			Entries: []db.SearchEntry{{Key: Key("u-1", "d-1")}},
		}, nil
	}

	_, _, err := repo.List(context.Background(), "u-1", "gone", 2)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// --- AllDeckIDs ---

func TestAllDeckIDs(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				savedEntry("u-1", "d-1", 1),
				savedEntry("u-1", "d-2", 2),
			},
		}, nil
	}

	ids, err := repo.AllDeckIDs(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 IDs, got %v", ids)
	}
}

// --- DeleteByDeck ---

func TestDeleteByDeck(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchListFn = func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
		if !strings.Contains(q.Query, "@deck_id:{d\\-1}") {
			t.Errorf("query %q missing deck scope", q.Query)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: Key("u-1", "d-1")},
				{Key: Key("u-2", "d-1")},
			},
		}, nil
	}

	var deleted []string
	ms.delMultiFn = func(_ context.Context, keys []string) error {
		deleted = append(deleted, keys...)
		return nil
	}

	if err := repo.DeleteByDeck(context.Background(), "d-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("expected 2 deleted joins, got %v", deleted)
	}
}
