package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "studydeck:"

// VectorDim is the embedding dimensionality for deck vectors.
const VectorDim = 768

// Page size bounds for every listing operation.
const (
	MinPageSize = 2
	MaxPageSize = 50
)

// OrderBy selects the sort key for deck listings.
type OrderBy string

const (
	// OrderByTitle sorts by normalized title, ascending.
	OrderByTitle OrderBy = "title"
	// OrderByCreatedAt sorts by creation time, descending (newest first).
	OrderByCreatedAt OrderBy = "created_at"
)

// Valid reports whether the order key is a known value.
func (o OrderBy) Valid() bool {
	return o == OrderByTitle || o == OrderByCreatedAt
}

// Deck is a flashcard deck document.
type Deck struct {
	ID             string
	Title          string
	Description    string
	OwnerID        string
	OwnerName      string // resolved, not persisted
	IsPrivate      bool
	IsDeleted      bool
	CoverPhoto     string
	CreatedAt      int64 // unix millis
	FlashcardCount int
	Embedding      []float32
	OriginalDeckID string
	MadeToQuizAt   int64 // unix millis, 0 when never quizzed
}

// DeckPatch is a partial deck update. Nil fields are left untouched.
type DeckPatch struct {
	Title        *string
	Description  *string
	IsPrivate    *bool
	IsDeleted    *bool
	CoverPhoto   *string
	MadeToQuizAt *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p DeckPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.IsPrivate == nil &&
		p.IsDeleted == nil && p.CoverPhoto == nil && p.MadeToQuizAt == nil
}

// NewDeck validates creation input and returns an unpersisted deck with a
// normalized title. The ID, timestamps, and embedding are assigned later.
func NewDeck(ownerID, title, description, coverPhoto string, isPrivate bool) (Deck, error) {
	if ownerID == "" {
		return Deck{}, fmt.Errorf("owner ID is required: %w", ErrInvalidInput)
	}
	normalized := NormalizeTitle(title)
	if normalized == "" {
		return Deck{}, fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	return Deck{
		Title:       normalized,
		Description: description,
		OwnerID:     ownerID,
		IsPrivate:   isPrivate,
		CoverPhoto:  coverPhoto,
	}, nil
}

// NormalizeTitle collapses whitespace and capitalizes each word:
// "  data   structures " -> "Data Structures".
func NormalizeTitle(title string) string {
	words := strings.Fields(title)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// EmbeddingText is the text a deck's embedding is computed from, once, at
// creation. Updates never recompute it.
func (d *Deck) EmbeddingText() string {
	return d.Title + "\n" + d.Description
}

// ValidatePageSize rejects page sizes outside [MinPageSize, MaxPageSize]
// before any store access.
func ValidatePageSize(limit int) error {
	if limit < MinPageSize || limit > MaxPageSize {
		return fmt.Errorf("limit must be between %d and %d, got %d: %w",
			MinPageSize, MaxPageSize, limit, ErrInvalidInput)
	}
	return nil
}
