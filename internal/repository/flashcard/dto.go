package flashcard

import (
	"encoding/json"
	"fmt"

	"github.com/studydeck/studydeck/internal/domain"
)

// cardDoc is the persisted JSON shape of a flashcard.
type cardDoc struct {
	ID         string `json:"id"`
	DeckID     string `json:"deck_id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	IsDeleted  bool   `json:"is_deleted"`
	IsStarred  bool   `json:"is_starred"`
	CreatedAt  int64  `json:"created_at"`
}

func toDoc(c *domain.Flashcard) cardDoc {
	return cardDoc{
		ID:         c.ID,
		DeckID:     c.DeckID,
		Term:       c.Term,
		Definition: c.Definition,
		IsDeleted:  c.IsDeleted,
		IsStarred:  c.IsStarred,
		CreatedAt:  c.CreatedAt,
	}
}

func (doc *cardDoc) toDomain() domain.Flashcard {
	return domain.Flashcard{
		ID:         doc.ID,
		DeckID:     doc.DeckID,
		Term:       doc.Term,
		Definition: doc.Definition,
		IsDeleted:  doc.IsDeleted,
		IsStarred:  doc.IsStarred,
		CreatedAt:  doc.CreatedAt,
	}
}

// parseJSONGetResult handles the JSONPath array wrapper returned by
// JSON.GET with a "$" path.
func parseJSONGetResult(raw []byte) (domain.Flashcard, error) {
	var docs []cardDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return domain.Flashcard{}, fmt.Errorf("unmarshal flashcard: %w", err)
	}
	if len(docs) == 0 {
		return domain.Flashcard{}, domain.ErrFlashcardNotFound
	}
	return docs[0].toDomain(), nil
}

func parseEntryJSON(jsonStr string) (domain.Flashcard, error) {
	var doc cardDoc
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return domain.Flashcard{}, fmt.Errorf("unmarshal flashcard entry: %w", err)
	}
	return doc.toDomain(), nil
}
