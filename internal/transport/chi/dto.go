package chi

import (
	"github.com/studydeck/studydeck/internal/domain"
	activityuc "github.com/studydeck/studydeck/internal/usecase/activity"
)

// errorResponse is the wire shape of every error reply.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type deckResponse struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	OwnerID        string `json:"owner_id"`
	OwnerName      string `json:"owner_name,omitempty"`
	IsPrivate      bool   `json:"is_private"`
	IsDeleted      bool   `json:"is_deleted,omitempty"`
	CoverPhoto     string `json:"cover_photo,omitempty"`
	CreatedAt      int64  `json:"created_at"`
	FlashcardCount int    `json:"flashcard_count"`
	OriginalDeckID string `json:"original_deck_id,omitempty"`
	MadeToQuizAt   int64  `json:"made_to_quiz_at,omitempty"`
}

func deckToWire(d domain.Deck) deckResponse {
	return deckResponse{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		OwnerID:        d.OwnerID,
		OwnerName:      d.OwnerName,
		IsPrivate:      d.IsPrivate,
		IsDeleted:      d.IsDeleted,
		CoverPhoto:     d.CoverPhoto,
		CreatedAt:      d.CreatedAt,
		FlashcardCount: d.FlashcardCount,
		OriginalDeckID: d.OriginalDeckID,
		MadeToQuizAt:   d.MadeToQuizAt,
	}
}

type deckListResponse struct {
	Items      []deckResponse `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

func deckListToWire(decks []domain.Deck, nextCursor string) deckListResponse {
	items := make([]deckResponse, len(decks))
	for i, d := range decks {
		items[i] = deckToWire(d)
	}
	return deckListResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}
}

type createDeckRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CoverPhoto  string `json:"cover_photo"`
	IsPrivate   bool   `json:"is_private"`
}

type patchDeckRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	IsPrivate    *bool   `json:"is_private"`
	IsDeleted    *bool   `json:"is_deleted"`
	CoverPhoto   *string `json:"cover_photo"`
	MadeToQuizAt *int64  `json:"made_to_quiz_at"`
}

func (r patchDeckRequest) toPatch() domain.DeckPatch {
	return domain.DeckPatch{
		Title:        r.Title,
		Description:  r.Description,
		IsPrivate:    r.IsPrivate,
		IsDeleted:    r.IsDeleted,
		CoverPhoto:   r.CoverPhoto,
		MadeToQuizAt: r.MadeToQuizAt,
	}
}

type updateDeckResponse struct {
	Deck           deckResponse `json:"deck"`
	PublishPending bool         `json:"publish_pending"`
}

type deleteDecksRequest struct {
	DeckIDs []string `json:"deck_ids"`
}

type resolvePublishRequest struct {
	Approved bool `json:"approved"`
}

type publishStatusResponse struct {
	Pending bool `json:"pending"`
}

type flashcardResponse struct {
	ID         string `json:"id"`
	DeckID     string `json:"deck_id"`
	Term       string `json:"term"`
	Definition string `json:"definition"`
	IsStarred  bool   `json:"is_starred"`
	CreatedAt  int64  `json:"created_at"`
}

func flashcardToWire(c domain.Flashcard) flashcardResponse {
	return flashcardResponse{
		ID:         c.ID,
		DeckID:     c.DeckID,
		Term:       c.Term,
		Definition: c.Definition,
		IsStarred:  c.IsStarred,
		CreatedAt:  c.CreatedAt,
	}
}

type flashcardListResponse struct {
	Items      []flashcardResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func flashcardListToWire(cards []domain.Flashcard, nextCursor string) flashcardListResponse {
	items := make([]flashcardResponse, len(cards))
	for i, c := range cards {
		items[i] = flashcardToWire(c)
	}
	return flashcardListResponse{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	}
}

type flashcardInput struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	IsStarred  bool   `json:"is_starred"`
}

func (r flashcardInput) toDomain() domain.FlashcardInput {
	return domain.FlashcardInput{Term: r.Term, Definition: r.Definition, IsStarred: r.IsStarred}
}

type createFlashcardBatchRequest struct {
	Cards []flashcardInput `json:"cards"`
}

type patchFlashcardRequest struct {
	Term       *string `json:"term"`
	Definition *string `json:"definition"`
	IsDeleted  *bool   `json:"is_deleted"`
	IsStarred  *bool   `json:"is_starred"`
}

func (r patchFlashcardRequest) toPatch() domain.FlashcardPatch {
	return domain.FlashcardPatch{
		Term:       r.Term,
		Definition: r.Definition,
		IsDeleted:  r.IsDeleted,
		IsStarred:  r.IsStarred,
	}
}

type deleteFlashcardsRequest struct {
	CardIDs []string `json:"card_ids"`
}

type flashcardCountResponse struct {
	Count int `json:"count"`
}

type searchRequest struct {
	Query string `json:"query"`
	Scope string `json:"scope"`
	Limit int    `json:"limit"`
}

type deckActivityRequest struct {
	DeckID    string `json:"deck_id"`
	EventType string `json:"event_type"`
}

type deckActivityResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	DeckID     string `json:"deck_id"`
	EventType  string `json:"event_type"`
	OccurredAt int64  `json:"occurred_at"`
}

func deckActivityToWire(l domain.DeckActivityLog) deckActivityResponse {
	return deckActivityResponse{
		ID:         l.ID,
		UserID:     l.UserID,
		DeckID:     l.DeckID,
		EventType:  string(l.EventType),
		OccurredAt: l.OccurredAt,
	}
}

type latestActivityResponse struct {
	Log  deckActivityResponse `json:"log"`
	Deck deckResponse         `json:"deck"`
}

func latestActivityToWire(out activityuc.LatestActivity) latestActivityResponse {
	return latestActivityResponse{
		Log:  deckActivityToWire(out.Log),
		Deck: deckToWire(out.Deck),
	}
}

type quizAttemptRequest struct {
	DeckID               string   `json:"deck_id"`
	QuizType             string   `json:"quiz_type"`
	Score                int      `json:"score"`
	TotalQuestions       int      `json:"total_questions"`
	CorrectQuestionIDs   []string `json:"correct_question_ids"`
	IncorrectQuestionIDs []string `json:"incorrect_question_ids"`
}

func (r quizAttemptRequest) toDomain(userID string) domain.QuizAttempt {
	return domain.QuizAttempt{
		UserID:               userID,
		DeckID:               r.DeckID,
		QuizType:             domain.EventType(r.QuizType),
		Score:                r.Score,
		TotalQuestions:       r.TotalQuestions,
		CorrectQuestionIDs:   r.CorrectQuestionIDs,
		IncorrectQuestionIDs: r.IncorrectQuestionIDs,
	}
}

type quizAttemptResponse struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	DeckID               string   `json:"deck_id"`
	AttemptedAt          int64    `json:"attempted_at"`
	QuizType             string   `json:"quiz_type"`
	Score                int      `json:"score"`
	TotalQuestions       int      `json:"total_questions"`
	CorrectQuestionIDs   []string `json:"correct_question_ids,omitempty"`
	IncorrectQuestionIDs []string `json:"incorrect_question_ids,omitempty"`
}

func quizAttemptToWire(a domain.QuizAttempt) quizAttemptResponse {
	return quizAttemptResponse{
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
}

type latestAttemptResponse struct {
	Attempt quizAttemptResponse `json:"attempt"`
	Deck    deckResponse        `json:"deck"`
}

func latestAttemptToWire(out activityuc.LatestAttempt) latestAttemptResponse {
	return latestAttemptResponse{
		Attempt: quizAttemptToWire(out.Attempt),
		Deck:    deckToWire(out.Deck),
	}
}
