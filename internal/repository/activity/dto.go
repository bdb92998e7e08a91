package activity

import (
	"github.com/studydeck/studydeck/internal/domain"
)

// searchLogDoc is the persisted shape of one search log.
type searchLogDoc struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SearchQuery string    `json:"search_query"`
	Embedding   []float32 `json:"embedding,omitempty"`
	SearchedAt  int64     `json:"searched_at"`
}

func (d *searchLogDoc) toDomain() domain.SearchLog {
	return domain.SearchLog{
		ID:          d.ID,
		UserID:      d.UserID,
		SearchQuery: d.SearchQuery,
		Embedding:   d.Embedding,
		SearchedAt:  d.SearchedAt,
	}
}

// deckLogDoc is the persisted shape of one study event.
type deckLogDoc struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	DeckID     string `json:"deck_id"`
	EventType  string `json:"event_type"`
	OccurredAt int64  `json:"occurred_at"`
}

func (d *deckLogDoc) toDomain() domain.DeckActivityLog {
	return domain.DeckActivityLog{
		ID:         d.ID,
		UserID:     d.UserID,
		DeckID:     d.DeckID,
		EventType:  domain.EventType(d.EventType),
		OccurredAt: d.OccurredAt,
	}
}

// attemptDoc is the persisted shape of one quiz attempt.
type attemptDoc struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	DeckID               string   `json:"deck_id"`
	AttemptedAt          int64    `json:"attempted_at"`
	QuizType             string   `json:"quiz_type"`
	Score                int      `json:"score"`
	TotalQuestions       int      `json:"total_questions"`
	CorrectQuestionIDs   []string `json:"correct_question_ids"`
	IncorrectQuestionIDs []string `json:"incorrect_question_ids"`
}

func (d *attemptDoc) toDomain() domain.QuizAttempt {
	return domain.QuizAttempt{
		ID:                   d.ID,
		UserID:               d.UserID,
		DeckID:               d.DeckID,
		AttemptedAt:          d.AttemptedAt,
		QuizType:             domain.EventType(d.QuizType),
		Score:                d.Score,
		TotalQuestions:       d.TotalQuestions,
		CorrectQuestionIDs:   d.CorrectQuestionIDs,
		IncorrectQuestionIDs: d.IncorrectQuestionIDs,
	}
}
