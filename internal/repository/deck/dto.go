package deck

import (
	"encoding/json"
	"fmt"

	"github.com/studydeck/studydeck/internal/domain"
)

// deckDoc is the persisted JSON shape of a deck.
type deckDoc struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	OwnerID        string    `json:"owner_id"`
	IsPrivate      bool      `json:"is_private"`
	IsDeleted      bool      `json:"is_deleted"`
	CoverPhoto     string    `json:"cover_photo,omitempty"`
	CreatedAt      int64     `json:"created_at"`
	FlashcardCount int       `json:"flashcard_count"`
	Embedding      []float32 `json:"embedding"`
	OriginalDeckID string    `json:"original_deck_id,omitempty"`
	MadeToQuizAt   int64     `json:"made_to_quiz_at,omitempty"`
}

func toDoc(d *domain.Deck) deckDoc {
	return deckDoc{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		OwnerID:        d.OwnerID,
		IsPrivate:      d.IsPrivate,
		IsDeleted:      d.IsDeleted,
		CoverPhoto:     d.CoverPhoto,
		CreatedAt:      d.CreatedAt,
		FlashcardCount: d.FlashcardCount,
		Embedding:      d.Embedding,
		OriginalDeckID: d.OriginalDeckID,
		MadeToQuizAt:   d.MadeToQuizAt,
	}
}

func (doc *deckDoc) toDomain() domain.Deck {
	return domain.Deck{
		ID:             doc.ID,
		Title:          doc.Title,
		Description:    doc.Description,
		OwnerID:        doc.OwnerID,
		IsPrivate:      doc.IsPrivate,
		IsDeleted:      doc.IsDeleted,
		CoverPhoto:     doc.CoverPhoto,
		CreatedAt:      doc.CreatedAt,
		FlashcardCount: doc.FlashcardCount,
		Embedding:      doc.Embedding,
		OriginalDeckID: doc.OriginalDeckID,
		MadeToQuizAt:   doc.MadeToQuizAt,
	}
}

// parseJSONGetResult handles the JSONPath array wrapper returned by
// JSON.GET with a "$" path: [{...}].
func parseJSONGetResult(raw []byte) (domain.Deck, error) {
	var docs []deckDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domain.Deck{}, fmt.Errorf("unmarshal deck: %w", err)
	}
	if len(docs) == 0 {
		return domain.Deck{}, domain.ErrDeckNotFound
	}
	return docs[0].toDomain(), nil
}

// parseEntryJSON parses the "$" field of an FT.SEARCH entry.
func parseEntryJSON(jsonStr string) (domain.Deck, error) {
	var doc deckDoc
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return domain.Deck{}, fmt.Errorf("unmarshal deck entry: %w", err)
	}
	return doc.toDomain(), nil
}
