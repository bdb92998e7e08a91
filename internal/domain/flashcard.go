package domain

import "fmt"

// Flashcard is a term/definition card contained in exactly one deck.
type Flashcard struct {
	ID         string
	DeckID     string
	Term       string
	Definition string
	IsDeleted  bool
	IsStarred  bool
	CreatedAt  int64 // unix millis
}

// FlashcardInput is the creation payload for a single card.
type FlashcardInput struct {
	Term       string
	Definition string
	IsStarred  bool
}

// Validate checks required fields.
func (in FlashcardInput) Validate() error {
	if in.Term == "" {
		return fmt.Errorf("term is required: %w", ErrInvalidInput)
	}
	if in.Definition == "" {
		return fmt.Errorf("definition is required: %w", ErrInvalidInput)
	}
	return nil
}

// FlashcardPatch is a partial flashcard update. Nil fields are left untouched.
type FlashcardPatch struct {
	Term       *string
	Definition *string
	IsDeleted  *bool
	IsStarred  *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p FlashcardPatch) IsEmpty() bool {
	return p.Term == nil && p.Definition == nil && p.IsDeleted == nil && p.IsStarred == nil
}
