package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studydeck/studydeck/internal/domain"
	activityuc "github.com/studydeck/studydeck/internal/usecase/activity"
	deckuc "github.com/studydeck/studydeck/internal/usecase/deck"
	flashcarduc "github.com/studydeck/studydeck/internal/usecase/flashcard"
	healthuc "github.com/studydeck/studydeck/internal/usecase/health"
	publishuc "github.com/studydeck/studydeck/internal/usecase/publish"
	searchuc "github.com/studydeck/studydeck/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP surface over the usecase services.
type Server struct {
	decks         *deckuc.Service
	cards         *flashcarduc.Service
	search        *searchuc.Service
	activity      *activityuc.Service
	publish       *publishuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	pageSize      int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. pageSize is the listing default when
// the client sends no limit.
func NewServer(
	decks *deckuc.Service,
	cards *flashcarduc.Service,
	search *searchuc.Service,
	activity *activityuc.Service,
	publish *publishuc.Service,
	health *healthuc.Service,
	pageSize int,
	logger *zap.Logger,
) *Server {
	s := &Server{
		decks:    decks,
		cards:    cards,
		search:   search,
		activity: activity,
		publish:  publish,
		health:   health,
		logger:   logger,
		pageSize: pageSize,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrInvalidActivity, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrDeckNotFound, http.StatusNotFound, "deck_not_found"),
		sentinelHandler(domain.ErrFlashcardNotFound, http.StatusNotFound, "flashcard_not_found"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrUnauthorized, http.StatusForbidden, "forbidden"),
		sentinelHandler(domain.ErrDeckDeleted, http.StatusConflict, "deck_deleted"),
		sentinelHandler(domain.ErrAlreadySaved, http.StatusConflict, "already_saved"),
		sentinelHandler(domain.ErrNotSaved, http.StatusConflict, "not_saved"),
		sentinelHandler(domain.ErrCannotSaveOwnDeck, http.StatusConflict, "cannot_save_own_deck"),
		sentinelHandler(domain.ErrDeckNotPublic, http.StatusConflict, "deck_not_public"),
		sentinelHandler(domain.ErrPublishPending, http.StatusConflict, "publish_pending"),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Routes builds the router. Auth and observability middleware are mounted by
// the composition root around this.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(IdentityMiddleware())

		api.Route("/decks", func(dr chi.Router) {
			dr.Get("/", s.handleListPublicDecks)
			dr.Post("/", s.handleCreateDeck)
			dr.Delete("/", s.handleDeleteDecks)

			dr.Route("/{deckID}", func(d chi.Router) {
				d.Get("/", s.handleGetDeck)
				d.Patch("/", s.handleUpdateDeck)
				d.Post("/save", s.handleSaveDeck)
				d.Delete("/save", s.handleUnsaveDeck)
				d.Get("/publish", s.handlePublishStatus)
				d.Post("/publish/resolve", s.handleResolvePublish)

				d.Route("/cards", func(c chi.Router) {
					c.Get("/", s.handleListFlashcards)
					c.Get("/count", s.handleCountFlashcards)
					c.Post("/", s.handleCreateFlashcard)
					c.Post("/batch", s.handleCreateFlashcardBatch)
					c.Delete("/batch", s.handleDeleteFlashcards)
					c.Get("/{cardID}", s.handleGetFlashcard)
					c.Patch("/{cardID}", s.handleUpdateFlashcard)
				})
			})
		})

		api.Get("/me/decks", s.handleListOwnerDecks)
		api.Get("/me/saved-decks", s.handleListSavedDecks)

		api.Post("/search", s.handleSearch)
		api.Get("/recommendations", s.handleRecommend)

		api.Route("/activity", func(a chi.Router) {
			a.Post("/decks", s.handleLogDeckActivity)
			a.Get("/decks/latest", s.handleLatestDeckActivity)
			a.Post("/quizzes", s.handleLogQuizAttempt)
			a.Get("/quizzes/latest", s.handleLatestQuizAttempt)
		})
	})

	return r
}

// --- Decks ---

func (s *Server) handleListPublicDecks(w http.ResponseWriter, r *http.Request) {
	decks, next, err := s.decks.ListPublic(r.Context(), r.URL.Query().Get("cursor"), s.limit(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deckListToWire(decks, next))
}

func (s *Server) handleListOwnerDecks(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	orderBy := domain.OrderBy(r.URL.Query().Get("order_by"))
	if orderBy == "" {
		orderBy = domain.OrderByCreatedAt
	}
	cursor := r.URL.Query().Get("cursor")

	var (
		decks []domain.Deck
		next  string
		err   error
	)
	if r.URL.Query().Get("deleted") == "true" {
		decks, next, err = s.decks.ListOwnerDeleted(r.Context(), userID, orderBy, cursor, s.limit(r))
	} else {
		decks, next, err = s.decks.ListOwner(r.Context(), userID, orderBy, cursor, s.limit(r))
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deckListToWire(decks, next))
}

func (s *Server) handleListSavedDecks(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	decks, next, err := s.decks.ListSaved(r.Context(), userID, r.URL.Query().Get("cursor"), s.limit(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deckListToWire(decks, next))
}

func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	d, err := s.decks.Get(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deckToWire(d))
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	d, err := s.decks.Create(r.Context(), UserIDFromContext(r.Context()), deckuc.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		CoverPhoto:  req.CoverPhoto,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deckToWire(d))
}

func (s *Server) handleUpdateDeck(w http.ResponseWriter, r *http.Request) {
	var req patchDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	out, err := s.decks.Update(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "deckID"), req.toPatch())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updateDeckResponse{
		Deck:           deckToWire(out.Deck),
		PublishPending: out.PublishPending,
	})
}

func (s *Server) handleDeleteDecks(w http.ResponseWriter, r *http.Request) {
	var req deleteDecksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	if err := s.decks.Delete(r.Context(), UserIDFromContext(r.Context()), req.DeckIDs); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveDeck(w http.ResponseWriter, r *http.Request) {
	if err := s.decks.Save(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "deckID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsaveDeck(w http.ResponseWriter, r *http.Request) {
	if err := s.decks.Unsave(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "deckID")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublishStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.publish.Pending(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publishStatusResponse{Pending: pending})
}

func (s *Server) handleResolvePublish(w http.ResponseWriter, r *http.Request) {
	var req resolvePublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	if err := s.publish.Resolve(r.Context(), chi.URLParam(r, "deckID"), req.Approved); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Flashcards ---

func (s *Server) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	deckID := chi.URLParam(r, "deckID")

	if r.URL.Query().Get("all") == "true" {
		cards, err := s.cards.ListAll(r.Context(), deckID)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, flashcardListToWire(cards, ""))
		return
	}

	cards, next, err := s.cards.List(r.Context(), deckID, r.URL.Query().Get("cursor"), s.limit(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flashcardListToWire(cards, next))
}

func (s *Server) handleCountFlashcards(w http.ResponseWriter, r *http.Request) {
	n, err := s.cards.Count(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flashcardCountResponse{Count: n})
}

func (s *Server) handleGetFlashcard(w http.ResponseWriter, r *http.Request) {
	c, err := s.cards.Get(r.Context(), chi.URLParam(r, "deckID"), chi.URLParam(r, "cardID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flashcardToWire(c))
}

func (s *Server) handleCreateFlashcard(w http.ResponseWriter, r *http.Request) {
	var req flashcardInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	c, err := s.cards.Create(
		r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "deckID"), req.toDomain(),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, flashcardToWire(c))
}

func (s *Server) handleCreateFlashcardBatch(w http.ResponseWriter, r *http.Request) {
	var req createFlashcardBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	inputs := make([]domain.FlashcardInput, len(req.Cards))
	for i, c := range req.Cards {
		inputs[i] = c.toDomain()
	}

	cards, err := s.cards.CreateBatch(
		r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "deckID"), inputs,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, flashcardListToWire(cards, ""))
}

func (s *Server) handleUpdateFlashcard(w http.ResponseWriter, r *http.Request) {
	var req patchFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	c, err := s.cards.Update(
		r.Context(), UserIDFromContext(r.Context()),
		chi.URLParam(r, "deckID"), chi.URLParam(r, "cardID"), req.toPatch(),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flashcardToWire(c))
}

func (s *Server) handleDeleteFlashcards(w http.ResponseWriter, r *http.Request) {
	var req deleteFlashcardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	err := s.cards.DeleteBatch(
		r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "deckID"), req.CardIDs,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Search ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.Limit == 0 {
		req.Limit = s.pageSize
	}

	decks, err := s.search.Search(
		r.Context(), UserIDFromContext(r.Context()), searchuc.Scope(req.Scope), req.Query, req.Limit,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deckListToWire(decks, ""))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	decks, err := s.search.Recommend(r.Context(), UserIDFromContext(r.Context()), s.limit(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deckListToWire(decks, ""))
}

// --- Activity ---

func (s *Server) handleLogDeckActivity(w http.ResponseWriter, r *http.Request) {
	var req deckActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	l, err := s.activity.LogDeckActivity(
		r.Context(), UserIDFromContext(r.Context()), req.DeckID, domain.EventType(req.EventType),
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deckActivityToWire(l))
}

func (s *Server) handleLatestDeckActivity(w http.ResponseWriter, r *http.Request) {
	out, err := s.activity.LatestDeckActivity(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latestActivityToWire(out))
}

func (s *Server) handleLogQuizAttempt(w http.ResponseWriter, r *http.Request) {
	var req quizAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	a, err := s.activity.LogQuizAttempt(r.Context(), req.toDomain(UserIDFromContext(r.Context())))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quizAttemptToWire(a))
}

func (s *Server) handleLatestQuizAttempt(w http.ResponseWriter, r *http.Request) {
	out, err := s.activity.LatestQuizAttempt(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latestAttemptToWire(out))
}

// --- Health & metrics ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

// limit reads the page size from the query, falling back to the configured
// default. Range validation happens in the usecases.
func (s *Server) limit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return s.pageSize
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return s.pageSize
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrInvalidActivity,
		domain.ErrDeckNotFound,
		domain.ErrFlashcardNotFound,
		domain.ErrNotFound,
		domain.ErrUnauthorized,
		domain.ErrDeckDeleted,
		domain.ErrAlreadySaved,
		domain.ErrNotSaved,
		domain.ErrCannotSaveOwnDeck,
		domain.ErrDeckNotPublic,
		domain.ErrPublishPending,
		domain.ErrEmbeddingProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
