package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/studydeck/studydeck/internal/db"
	"github.com/studydeck/studydeck/internal/domain"
)

// scanWindow is the page size for cascade scans.
const scanWindow = 100

// store is the consumer interface for activity logs (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	DelMulti(ctx context.Context, keys []string) error
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
}

// Repo stores the three append-only activity streams: search logs, study
// events, and quiz attempts.
type Repo struct {
	store store
}

func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchLogIndex returns the FT index over search logs.
func SearchLogIndex() *db.IndexDefinition {
	return db.NewIndex(searchLogIndexName()).
		Prefix(searchLogPrefix()).
		Tag("$.user_id", "user_id", false).
		Numeric("$.searched_at", "searched_at", true).
		MustBuild()
}

// DeckLogIndex returns the FT index over study events.
func DeckLogIndex() *db.IndexDefinition {
	return db.NewIndex(deckLogIndexName()).
		Prefix(deckLogPrefix()).
		Tag("$.user_id", "user_id", false).
		Tag("$.deck_id", "deck_id", false).
		Numeric("$.occurred_at", "occurred_at", true).
		MustBuild()
}

// AttemptIndex returns the FT index over quiz attempts.
func AttemptIndex() *db.IndexDefinition {
	return db.NewIndex(attemptIndexName()).
		Prefix(attemptPrefix()).
		Tag("$.user_id", "user_id", false).
		Tag("$.deck_id", "deck_id", false).
		Numeric("$.attempted_at", "attempted_at", true).
		MustBuild()
}

// AppendSearchLog persists one search log entry.
func (r *Repo) AppendSearchLog(ctx context.Context, l domain.SearchLog) error {
	doc := searchLogDoc{
		ID:          l.ID,
		UserID:      l.UserID,
		SearchQuery: l.SearchQuery,
		Embedding:   l.Embedding,
		SearchedAt:  l.SearchedAt,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal search log: %w", err)
	}
	if err := r.store.JSONSet(ctx, searchLogPrefix()+l.ID, "$", data); err != nil {
		return fmt.Errorf("json.set search log: %w", err)
	}
	return nil
}

// RecentSearchLogs returns the user's n most recent search logs, newest
// first. Feeds the recommendation mean vector.
func (r *Repo) RecentSearchLogs(ctx context.Context, userID string, n int) ([]domain.SearchLog, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    searchLogIndexName(),
		Query:        db.TagFilter("user_id", userID),
		SortBy:       "searched_at",
		Desc:         true,
		Limit:        n,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, fmt.Errorf("recent search logs: %w", err)
	}

	logs := make([]domain.SearchLog, 0, len(res.Entries))
	for _, entry := range res.Entries {
		var doc searchLogDoc
		if err := json.Unmarshal([]byte(entry.Fields["$"]), &doc); err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		logs = append(logs, doc.toDomain())
	}
	return logs, nil
}

// AppendDeckLog persists one study event.
func (r *Repo) AppendDeckLog(ctx context.Context, l domain.DeckActivityLog) error {
	doc := deckLogDoc{
		ID:         l.ID,
		UserID:     l.UserID,
		DeckID:     l.DeckID,
		EventType:  string(l.EventType),
		OccurredAt: l.OccurredAt,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal deck log: %w", err)
	}
	if err := r.store.JSONSet(ctx, deckLogPrefix()+l.ID, "$", data); err != nil {
		return fmt.Errorf("json.set deck log: %w", err)
	}
	return nil
}

// LatestDeckLog returns the user's most recent study event, or ErrNotFound
// when the user has none.
func (r *Repo) LatestDeckLog(ctx context.Context, userID string) (domain.DeckActivityLog, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    deckLogIndexName(),
		Query:        db.TagFilter("user_id", userID),
		SortBy:       "occurred_at",
		Desc:         true,
		Limit:        1,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return domain.DeckActivityLog{}, fmt.Errorf("latest deck log: %w", err)
	}
	if len(res.Entries) == 0 {
		return domain.DeckActivityLog{}, domain.ErrNotFound
	}

	var doc deckLogDoc
	if err := json.Unmarshal([]byte(res.Entries[0].Fields["$"]), &doc); err != nil {
		return domain.DeckActivityLog{}, fmt.Errorf("entry %s: %w", res.Entries[0].Key, err)
	}
	return doc.toDomain(), nil
}

// AppendQuizAttempt persists one finished quiz.
func (r *Repo) AppendQuizAttempt(ctx context.Context, a domain.QuizAttempt) error {
	doc := attemptDoc{
		ID:                   a.ID,
		UserID:               a.UserID,
		DeckID:               a.DeckID,
		AttemptedAt:          a.AttemptedAt,
		QuizType:             string(a.QuizType),
		Score:                a.Score,
		TotalQuestions:       a.TotalQuestions,
		CorrectQuestionIDs:   a.CorrectQuestionIDs,
		IncorrectQuestionIDs: a.IncorrectQuestionIDs,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal quiz attempt: %w", err)
	}
	if err := r.store.JSONSet(ctx, attemptPrefix()+a.ID, "$", data); err != nil {
		return fmt.Errorf("json.set quiz attempt: %w", err)
	}
	return nil
}

// LatestQuizAttempt returns the user's most recent attempt, scoped to one
// deck when deckID is non-empty. ErrNotFound when there is none.
func (r *Repo) LatestQuizAttempt(ctx context.Context, userID, deckID string) (domain.QuizAttempt, error) {
	query := db.TagFilter("user_id", userID)
	if deckID != "" {
		query = db.And(query, db.TagFilter("deck_id", deckID))
	}

	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    attemptIndexName(),
		Query:        query,
		SortBy:       "attempted_at",
		Desc:         true,
		Limit:        1,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("latest quiz attempt: %w", err)
	}
	if len(res.Entries) == 0 {
		return domain.QuizAttempt{}, domain.ErrNotFound
	}

	var doc attemptDoc
	if err := json.Unmarshal([]byte(res.Entries[0].Fields["$"]), &doc); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("entry %s: %w", res.Entries[0].Key, err)
	}
	return doc.toDomain(), nil
}

// DeleteByDeck removes study events and quiz attempts referencing a deck.
// Search logs carry no deck reference and are untouched.
func (r *Repo) DeleteByDeck(ctx context.Context, deckID string) error {
	if err := r.deleteScoped(ctx, deckLogIndexName(), deckID); err != nil {
		return fmt.Errorf("delete deck logs: %w", err)
	}
	if err := r.deleteScoped(ctx, attemptIndexName(), deckID); err != nil {
		return fmt.Errorf("delete quiz attempts: %w", err)
	}
	return nil
}

func (r *Repo) deleteScoped(ctx context.Context, index, deckID string) error {
	query := db.TagFilter("deck_id", deckID)
	for {
		res, err := r.store.SearchList(ctx, &db.ListQuery{
			IndexName: index,
			Query:     query,
			Limit:     scanWindow,
			NoContent: true,
		})
		if err != nil {
			return fmt.Errorf("scan %s: %w", index, err)
		}
		if len(res.Entries) == 0 {
			return nil
		}
		keys := make([]string, len(res.Entries))
		for i, entry := range res.Entries {
			keys[i] = entry.Key
		}
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete from %s: %w", index, err)
		}
		if len(res.Entries) >= res.Total {
			return nil
		}
	}
}

func searchLogPrefix() string { return domain.KeyPrefix + "searchlog:" }
func deckLogPrefix() string   { return domain.KeyPrefix + "decklog:" }
func attemptPrefix() string   { return domain.KeyPrefix + "attempt:" }

func searchLogIndexName() string { return domain.KeyPrefix + "searchlog:idx" }
func deckLogIndexName() string   { return domain.KeyPrefix + "decklog:idx" }
func attemptIndexName() string   { return domain.KeyPrefix + "attempt:idx" }
