package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/studydeck/studydeck/internal/domain"
)

// Service records study events and quiz attempts and reads them back joined
// with their decks.
type Service struct {
	repo  Repository
	decks DeckReader
	now   func() time.Time
}

// New creates an activity service.
func New(repo Repository, decks DeckReader) *Service {
	return &Service{repo: repo, decks: decks, now: time.Now}
}

// WithClock injects a deterministic clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LatestActivity is an activity record joined with its deck.
type LatestActivity struct {
	Log  domain.DeckActivityLog
	Deck domain.Deck
}

// LatestAttempt is a quiz attempt joined with its deck.
type LatestAttempt struct {
	Attempt domain.QuizAttempt
	Deck    domain.Deck
}

// LogDeckActivity appends one study event against a live deck.
func (s *Service) LogDeckActivity(
	ctx context.Context, userID, deckID string, eventType domain.EventType,
) (domain.DeckActivityLog, error) {
	if !eventType.Valid() {
		return domain.DeckActivityLog{}, fmt.Errorf("event type %q: %w", eventType, domain.ErrInvalidActivity)
	}
	if _, err := s.liveDeck(ctx, deckID); err != nil {
		return domain.DeckActivityLog{}, err
	}

	l := domain.DeckActivityLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		DeckID:     deckID,
		EventType:  eventType,
		OccurredAt: s.now().UnixMilli(),
	}
	if err := s.repo.AppendDeckLog(ctx, l); err != nil {
		return domain.DeckActivityLog{}, fmt.Errorf("append deck log: %w", err)
	}
	return l, nil
}

// LatestDeckActivity returns the user's most recent study event joined with
// its deck. A vanished deck means NotFound.
func (s *Service) LatestDeckActivity(ctx context.Context, userID string) (LatestActivity, error) {
	l, err := s.repo.LatestDeckLog(ctx, userID)
	if err != nil {
		return LatestActivity{}, fmt.Errorf("latest deck log: %w", err)
	}

	d, err := s.liveDeck(ctx, l.DeckID)
	if err != nil {
		return LatestActivity{}, err
	}
	return LatestActivity{Log: l, Deck: d}, nil
}

// LogQuizAttempt validates and appends one finished quiz.
func (s *Service) LogQuizAttempt(ctx context.Context, a domain.QuizAttempt) (domain.QuizAttempt, error) {
	a.ID = uuid.NewString()
	a.AttemptedAt = s.now().UnixMilli()
	if err := a.Validate(); err != nil {
		return domain.QuizAttempt{}, err
	}
	if _, err := s.liveDeck(ctx, a.DeckID); err != nil {
		return domain.QuizAttempt{}, err
	}

	if err := s.repo.AppendQuizAttempt(ctx, a); err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("append quiz attempt: %w", err)
	}
	return a, nil
}

// LatestQuizAttempt returns the user's most recent attempt joined with its
// deck.
func (s *Service) LatestQuizAttempt(ctx context.Context, userID string) (LatestAttempt, error) {
	a, err := s.repo.LatestQuizAttempt(ctx, userID, "")
	if err != nil {
		return LatestAttempt{}, fmt.Errorf("latest quiz attempt: %w", err)
	}

	d, err := s.liveDeck(ctx, a.DeckID)
	if err != nil {
		return LatestAttempt{}, err
	}
	return LatestAttempt{Attempt: a, Deck: d}, nil
}

// liveDeck resolves a deck; soft-deleted decks are not found.
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
