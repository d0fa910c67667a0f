// Package web exposes the review engine over a JSON HTTP API. Handlers stay
// thin: decoding, id parsing, and status codes here, everything else in the
// session and storage packages.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/session"
	"github.com/recallkit/recallkit/internal/storage"
	syncpkg "github.com/recallkit/recallkit/internal/sync"
)

// completedSessionTTL bounds how long a finished session whose summary is
// already durable stays in the registry waiting for a finalize call.
const completedSessionTTL = time.Hour

// Server holds the dependencies for the HTTP server.
type Server struct {
	db           *storage.DB
	router       *http.ServeMux
	loop         *session.Loop
	deckDefaults domain.DeckSettings

	mu         sync.Mutex
	sessions   map[int64]*session.Session
	nextSessID int64
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, loop *session.Loop, deckDefaults domain.DeckSettings) *Server {
	s := &Server{
		db:           db,
		router:       http.NewServeMux(),
		loop:         loop,
		deckDefaults: deckDefaults,
		sessions:     make(map[int64]*session.Session),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/decks", s.handleDecks())
	s.router.HandleFunc("/decks/", s.handleDeckSubresource())
	s.router.HandleFunc("/sessions/", s.handleSessionSubresource())
	s.router.HandleFunc("/sources", s.handleSources())
	s.router.HandleFunc("/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/sync", s.handlePostSync())
}

type deckView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type cardView struct {
	ID           int64     `json:"id"`
	Prompt       string    `json:"prompt"`
	Answer       string    `json:"answer"`
	Context      string    `json:"context,omitempty"`
	Phase        string    `json:"phase"`
	NextReviewAt time.Time `json:"next_review_at"`
	ReviewCount  int       `json:"review_count"`
}

func viewCard(c domain.Card) cardView {
	return cardView{
		ID:           int64(c.ID),
		Prompt:       string(c.Prompt),
		Answer:       string(c.Answer),
		Context:      c.Context,
		Phase:        c.Phase.String(),
		NextReviewAt: c.NextReviewAt,
		ReviewCount:  c.ReviewCount,
	}
}

// handleDecks lists decks on GET and creates one on POST.
func (s *Server) handleDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			decks, err := s.db.ListDecks()
			if err != nil {
				s.internalError(w, "failed to list decks", err)
				return
			}
			views := make([]deckView, 0, len(decks))
			for _, d := range decks {
				views = append(views, deckView{
					ID:          int64(d.ID),
					Name:        d.Name,
					Description: d.Description,
					CreatedAt:   d.CreatedAt,
				})
			}
			writeJSON(w, http.StatusOK, views)

		case http.MethodPost:
			var req struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid JSON body", http.StatusBadRequest)
				return
			}
			deck, err := domain.NewDeck(0, req.Name, req.Description, s.deckDefaults, time.Now())
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			id, err := s.db.InsertDeck(deck.Name, deck.Description, deck.Settings, deck.CreatedAt)
			if err != nil {
				s.internalError(w, "failed to insert deck", err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]int64{"id": int64(id)})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleDeckSubresource dispatches /decks/{id}/counts, /decks/{id}/sessions,
// and /decks/{id}/summaries.
func (s *Server) handleDeckSubresource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/decks/")
		idStr, sub, _ := strings.Cut(rest, "/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid deck ID", http.StatusBadRequest)
			return
		}
		deckID := domain.DeckID(id)

		switch {
		case sub == "counts" && r.Method == http.MethodGet:
			s.handleGetCounts(w, deckID)
		case sub == "sessions" && r.Method == http.MethodPost:
			s.handleStartSession(w, r, deckID)
		case sub == "summaries" && r.Method == http.MethodGet:
			s.handleListSummaries(w, r, deckID)
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) handleGetCounts(w http.ResponseWriter, deckID domain.DeckID) {
	counts, err := s.db.GetPracticeCounts(deckID, time.Now())
	if err != nil {
		s.internalError(w, "failed to count cards", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total": counts.Total,
		"due":   counts.Due,
		"new":   counts.New,
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request, deckID domain.DeckID) {
	sess, err := s.loop.StartSession(deckID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrEmptySession):
			http.Error(w, "Nothing to review", http.StatusConflict)
		case errors.Is(err, storage.ErrNotFound):
			http.NotFound(w, r)
		default:
			s.internalError(w, "failed to start session", err)
		}
		return
	}

	s.mu.Lock()
	s.evictFinishedLocked(time.Now())
	s.nextSessID++
	sessID := s.nextSessID
	s.sessions[sessID] = sess
	s.mu.Unlock()

	current, _ := sess.CurrentCard()
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sessID,
		"total":      sess.TotalCards(),
		"current":    viewCard(current),
	})
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request, deckID domain.DeckID) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := s.db.ListSummaries(deckID, time.Time{}, time.Time{}, limit)
	if err != nil {
		s.internalError(w, "failed to list summaries", err)
		return
	}

	type summaryView struct {
		ID           int64     `json:"id"`
		StartedAt    time.Time `json:"started_at"`
		CompletedAt  time.Time `json:"completed_at"`
		TotalReviews int       `json:"total_reviews"`
		Again        int       `json:"again"`
		Hard         int       `json:"hard"`
		Good         int       `json:"good"`
		Easy         int       `json:"easy"`
	}
	views := make([]summaryView, 0, len(rows))
	for _, row := range rows {
		views = append(views, summaryView{
			ID:           int64(row.ID),
			StartedAt:    row.Summary.StartedAt,
			CompletedAt:  row.Summary.CompletedAt,
			TotalReviews: row.Summary.TotalReviews,
			Again:        row.Summary.Again,
			Hard:         row.Summary.Hard,
			Good:         row.Summary.Good,
			Easy:         row.Summary.Easy,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleSessionSubresource dispatches /sessions/{id}, /sessions/{id}/answer,
// and /sessions/{id}/finalize. Session mutation happens under the registry
// lock; callers of one session are serialized here.
func (s *Server) handleSessionSubresource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
		idStr, sub, _ := strings.Cut(rest, "/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid session ID", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		sess, ok := s.sessions[id]
		if !ok {
			http.NotFound(w, r)
			return
		}

		switch {
		case sub == "" && r.Method == http.MethodGet:
			s.handleGetSession(w, sess)
		case sub == "answer" && r.Method == http.MethodPost:
			s.handleAnswer(w, r, sess)
		case sub == "finalize" && r.Method == http.MethodPost:
			s.handleFinalize(w, id, sess)
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, sess *session.Session) {
	resp := map[string]any{
		"total":     sess.TotalCards(),
		"answered":  sess.AnsweredCount(),
		"remaining": sess.Remaining(),
		"complete":  sess.IsComplete(),
	}
	if current, ok := sess.CurrentCard(); ok {
		resp["current"] = viewCard(current)
	}
	if id, ok := sess.SummaryID(); ok {
		resp["summary_id"] = int64(id)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req struct {
		Grade int `json:"grade"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	grade, err := domain.GradeFromInt(req.Grade)
	if err != nil {
		http.Error(w, "Invalid grade", http.StatusBadRequest)
		return
	}

	res, err := s.loop.AnswerCurrent(sess, grade)
	if err != nil {
		if errors.Is(err, session.ErrSessionCompleted) {
			http.Error(w, "Session already complete", http.StatusConflict)
			return
		}
		s.internalError(w, "failed to answer card", err)
		return
	}

	resp := map[string]any{
		"card_id":        int64(res.Result.CardID),
		"next_review_at": res.Result.Applied.Outcome.NextReview,
		"scheduled_days": res.Result.Applied.Outcome.ScheduledDays,
		"complete":       res.IsComplete,
	}
	if res.SummaryID != nil {
		resp["summary_id"] = int64(*res.SummaryID)
	}
	if current, ok := sess.CurrentCard(); ok {
		resp["current"] = viewCard(current)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalize(w http.ResponseWriter, sessID int64, sess *session.Session) {
	summaryID, err := s.loop.FinalizeSummary(sess)
	if err != nil {
		if errors.Is(err, session.ErrSessionCompleted) {
			http.Error(w, "Session is not complete", http.StatusConflict)
			return
		}
		s.internalError(w, "failed to finalize summary", err)
		return
	}
	// The session's work is fully durable now; drop it from the registry.
	// The dispatcher holds the lock.
	delete(s.sessions, sessID)
	writeJSON(w, http.StatusOK, map[string]int64{"summary_id": int64(summaryID)})
}

// evictFinishedLocked drops sessions whose summary is already durable and
// whose completion is older than the TTL, in case the client never called
// finalize. Callers hold s.mu.
func (s *Server) evictFinishedLocked(now time.Time) {
	for id, sess := range s.sessions {
		completedAt, ok := sess.CompletedAt()
		if !ok {
			continue
		}
		if _, done := sess.SummaryID(); done && now.Sub(completedAt) > completedSessionTTL {
			delete(s.sessions, id)
		}
	}
}

// handleSources lists sources on GET and registers one on POST.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			sources, err := s.db.GetAllSources()
			if err != nil {
				s.internalError(w, "failed to get sources", err)
				return
			}
			type sourceView struct {
				ID     int64  `json:"id"`
				Type   string `json:"type"`
				Path   string `json:"path"`
				DeckID int64  `json:"deck_id"`
			}
			views := make([]sourceView, 0, len(sources))
			for _, src := range sources {
				views = append(views, sourceView{
					ID:     src.ID,
					Type:   src.Type,
					Path:   src.Path,
					DeckID: int64(src.DeckID),
				})
			}
			writeJSON(w, http.StatusOK, views)

		case http.MethodPost:
			var req struct {
				Path   string `json:"path"`
				DeckID int64  `json:"deck_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid JSON body", http.StatusBadRequest)
				return
			}
			if req.Path == "" {
				http.Error(w, "Path cannot be empty", http.StatusBadRequest)
				return
			}
			id, err := s.db.InsertSource(syncpkg.SourceType(req.Path), req.Path, domain.DeckID(req.DeckID))
			if err != nil {
				s.internalError(w, "failed to insert source", err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]int64{"id": id})

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleDeleteSource removes a source registration.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid source ID", http.StatusBadRequest)
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			s.internalError(w, "failed to delete source", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostSync triggers a full source sync in the foreground.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := syncpkg.RunSync(s.db, time.Now()); err != nil {
			s.internalError(w, "sync failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
