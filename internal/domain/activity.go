package domain

import "fmt"

// EventType enumerates loggable study activities.
type EventType string

const (
	// EventIdentificationQuiz is an identification quiz session.
	EventIdentificationQuiz EventType = "IDENTIFICATION_QUIZ"
	// EventMultipleChoiceQuiz is a multiple-choice quiz session.
	EventMultipleChoiceQuiz EventType = "MULTIPLE_CHOICE_QUIZ"
	// EventStudy is a plain study session.
	EventStudy EventType = "STUDY"
)

// Valid reports whether the event type is a known value.
func (e EventType) Valid() bool {
	switch e {
	case EventIdentificationQuiz, EventMultipleChoiceQuiz, EventStudy:
		return true
	}
	return false
}

// SavedDeck joins a user to a public deck they saved.
type SavedDeck struct {
	DeckID  string
	UserID  string
	SavedAt int64 // unix millis
}

// SearchLog records one search query and its embedding, append-only.
// Recent logs feed the recommendation engine.
type SearchLog struct {
	ID          string
	UserID      string
	SearchQuery string
	Embedding   []float32
	SearchedAt  int64 // unix millis
}

// DeckActivityLog records one study event against a deck, append-only.
type DeckActivityLog struct {
	ID         string
	UserID     string
	DeckID     string
	EventType  EventType
	OccurredAt int64 // unix millis
}

// QuizAttempt records one finished quiz, append-only.
type QuizAttempt struct {
	ID                   string
	UserID               string
	DeckID               string
	AttemptedAt          int64 // unix millis
	QuizType             EventType
	Score                int
	TotalQuestions       int
	CorrectQuestionIDs   []string
	IncorrectQuestionIDs []string
}

// Validate checks every attempt field's type and range.
func (a *QuizAttempt) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("user ID is required: %w", ErrInvalidInput)
	}
	if a.DeckID == "" {
		return fmt.Errorf("deck ID is required: %w", ErrInvalidInput)
	}
	if a.QuizType != EventIdentificationQuiz && a.QuizType != EventMultipleChoiceQuiz {
		return fmt.Errorf("quiz type %q: %w", a.QuizType, ErrInvalidActivity)
	}
	if a.Score < 0 {
		return fmt.Errorf("score must be >= 0, got %d: %w", a.Score, ErrInvalidInput)
	}
	if a.TotalQuestions <= 0 {
		return fmt.Errorf("total questions must be > 0, got %d: %w", a.TotalQuestions, ErrInvalidInput)
	}
	return nil
}
