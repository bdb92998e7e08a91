package domain

import "errors"

var (
	// ErrInvalidInput signals a malformed or out-of-range request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDeckNotFound signals a missing deck.
	ErrDeckNotFound = errors.New("deck not found")
	// ErrFlashcardNotFound signals a missing flashcard.
	ErrFlashcardNotFound = errors.New("flashcard not found")
	// ErrUnauthorized signals that the acting user does not own the resource.
	ErrUnauthorized = errors.New("not the resource owner")
	// ErrDeckDeleted signals a mutation attempt on a soft-deleted deck.
	ErrDeckDeleted = errors.New("deck is deleted")

	// ErrAlreadySaved signals a duplicate save of the same deck.
	ErrAlreadySaved = errors.New("deck already saved")
	// ErrNotSaved signals an unsave of a deck that was never saved.
	ErrNotSaved = errors.New("deck not saved")
	// ErrCannotSaveOwnDeck signals a save attempt on the user's own deck.
	ErrCannotSaveOwnDeck = errors.New("cannot save own deck")
	// ErrDeckNotPublic signals a save attempt on a private deck.
	ErrDeckNotPublic = errors.New("deck is not public")
	// ErrPublishPending signals a publish request on a deck that already has one.
	ErrPublishPending = errors.New("publish request already pending")

	// ErrInvalidActivity signals an unknown activity event type.
	ErrInvalidActivity = errors.New("invalid activity value")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
)
