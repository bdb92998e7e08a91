package publish

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studydeck/studydeck/internal/domain"
)

// notifyTimeout bounds the detached webhook call.
const notifyTimeout = 10 * time.Second

// Service runs the deck privacy state machine: PRIVATE → PUBLISH_PENDING →
// PUBLIC/PRIVATE. The pending flag lives in the KV store; resolution comes
// from the moderation collaborator.
type Service struct {
	pending  PendingStore
	decks    DeckPatcher
	notifier Notifier
	logger   *zap.Logger
}

// New creates a publish service.
func New(pending PendingStore, decks DeckPatcher, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		pending:  pending,
		decks:    decks,
		notifier: notifier,
		logger:   logger,
	}
}

// Request records a pending publish request and notifies moderation. A deck
// with a request already pending is a conflict. The webhook call is
// fire-and-forget: failures are logged, never surfaced, and the deck stays
// pending either way.
func (s *Service) Request(ctx context.Context, userID, deckID string) error {
	key := Key(deckID)

	exists, err := s.pending.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check pending flag: %w", err)
	}
	if exists {
		return domain.ErrPublishPending
	}

	if err := s.pending.Set(ctx, key, []byte(userID)); err != nil {
		return fmt.Errorf("set pending flag: %w", err)
	}

	go s.notify(userID, deckID)
	return nil
}

// Pending reports whether a publish request is open for the deck.
func (s *Service) Pending(ctx context.Context, deckID string) (bool, error) {
	exists, err := s.pending.Exists(ctx, Key(deckID))
	if err != nil {
		return false, fmt.Errorf("check pending flag: %w", err)
	}
	return exists, nil
}

// Resolve closes a pending request. Approval flips the deck public;
// rejection leaves it private. The flag is cleared either way. Resolving a
// deck with no open request is NotFound.
func (s *Service) Resolve(ctx context.Context, deckID string, approved bool) error {
	key := Key(deckID)

	exists, err := s.pending.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check pending flag: %w", err)
	}
	if !exists {
		return fmt.Errorf("no pending request for deck %s: %w", deckID, domain.ErrNotFound)
	}

	if approved {
		public := false
		if _, err := s.decks.Patch(ctx, deckID, domain.DeckPatch{IsPrivate: &public}); err != nil {
			return fmt.Errorf("publish deck: %w", err)
		}
	}

	if err := s.pending.Del(ctx, key); err != nil {
		return fmt.Errorf("clear pending flag: %w", err)
	}
	return nil
}

// notify runs detached from the request that triggered it.
func (s *Service) notify(userID, deckID string) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyPublishRequest(ctx, userID, deckID); err != nil {
		s.logger.Warn("Moderation webhook failed",
			zap.String("deck_id", deckID),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

// Key returns the pending-flag store key for a deck.
func Key(deckID string) string {
	return domain.KeyPrefix + "publish:" + deckID
}
