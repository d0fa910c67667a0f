package session

import (
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/fsrs"
	"github.com/recallkit/recallkit/internal/review"
)

// Result captures the outcome of answering a single card.
type Result struct {
	CardID  domain.CardID
	Applied fsrs.AppliedReview
}

// Progress is an aggregate view of how far a session has advanced.
type Progress struct {
	Total      int
	Answered   int
	Remaining  int
	IsComplete bool
}

// Session steps through a planned card queue, applying grades via the
// review applicator. A session is Active until its last card is answered,
// then Complete; the summary id records whether the final summary has been
// durably persisted.
//
// A session instance must be driven by a single logical actor; callers
// serialize access.
type Session struct {
	deckID      domain.DeckID
	settings    domain.DeckSettings
	cards       []domain.Card
	current     int
	results     []Result
	startedAt   time.Time
	completedAt *time.Time
	summaryID   *domain.SummaryID
	applicator  *review.Applicator
}

// New creates a session over an already-planned card queue.
// Returns ErrEmptySession when the queue is empty.
func New(deck domain.Deck, cards []domain.Card, applicator *review.Applicator, startedAt time.Time) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrEmptySession
	}
	queue := make([]domain.Card, len(cards))
	copy(queue, cards)
	return &Session{
		deckID:     deck.ID,
		settings:   deck.Settings,
		cards:      queue,
		startedAt:  startedAt,
		applicator: applicator,
	}, nil
}

// DeckID returns the deck this session practices.
func (s *Session) DeckID() domain.DeckID { return s.deckID }

// StartedAt returns when the session began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// CompletedAt returns the completion timestamp, or zero time and false while
// the session is still active.
func (s *Session) CompletedAt() (time.Time, bool) {
	if s.completedAt == nil {
		return time.Time{}, false
	}
	return *s.completedAt, true
}

// IsComplete reports whether every card has been answered.
func (s *Session) IsComplete() bool { return s.completedAt != nil }

// SummaryID returns the persisted summary id once the final summary has been
// durably recorded.
func (s *Session) SummaryID() (domain.SummaryID, bool) {
	if s.summaryID == nil {
		return 0, false
	}
	return *s.summaryID, true
}

// Results returns a copy of the per-card outcomes recorded so far. The
// session's own ledger stays private; summaries are derived from it alone.
func (s *Session) Results() []Result {
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// TotalCards returns the session queue length.
func (s *Session) TotalCards() int { return len(s.cards) }

// AnsweredCount returns how many cards have been answered.
func (s *Session) AnsweredCount() int { return len(s.results) }

// Remaining returns how many cards are still unanswered.
func (s *Session) Remaining() int { return len(s.cards) - s.current }

// Progress returns an aggregate progress view.
func (s *Session) Progress() Progress {
	return Progress{
		Total:      s.TotalCards(),
		Answered:   s.AnsweredCount(),
		Remaining:  s.Remaining(),
		IsComplete: s.IsComplete(),
	}
}

// CurrentCard returns a copy of the card awaiting an answer, or false when
// the session is complete.
func (s *Session) CurrentCard() (domain.Card, bool) {
	if s.current >= len(s.cards) {
		return domain.Card{}, false
	}
	return s.cards[s.current], true
}

// AnswerCurrent applies a grade to the current card and advances the queue.
// Answering the last card marks the session complete with completedAt set to
// the review timestamp. Returns ErrSessionCompleted once complete.
func (s *Session) AnswerCurrent(grade domain.Grade, reviewedAt time.Time) (Result, error) {
	return s.answer(grade, reviewedAt, nil)
}

// answer is the single mutation path for both the in-memory and persisted
// variants. With a non-nil store, the review log and updated card are
// committed together before the in-memory mutation becomes visible.
func (s *Session) answer(grade domain.Grade, reviewedAt time.Time, store ReviewStore) (Result, error) {
	if s.IsComplete() || s.current >= len(s.cards) {
		return Result{}, ErrSessionCompleted
	}

	card := &s.cards[s.current]
	original := *card
	applied, err := s.applicator.ReviewWithSettings(card, grade, reviewedAt, s.settings)
	if err != nil {
		return Result{}, err
	}

	if store != nil {
		// Durable first, in one commit: a failed persist leaves no log row
		// behind, the queue card is rolled back, and the grade is not
		// counted, so a retry cannot double-apply the review.
		if _, err := store.ApplyReview(*card, applied.Log, applied.Outcome); err != nil {
			*card = original
			return Result{}, err
		}
	}

	res := Result{CardID: card.ID, Applied: applied}
	s.results = append(s.results, res)
	s.current++
	if s.current == len(s.cards) {
		t := reviewedAt
		s.completedAt = &t
	}
	return res, nil
}

// BuildSummary derives the session summary from the orchestrator's own
// recorded results, never from an external source, so the grade counts are
// always internally consistent.
func (s *Session) BuildSummary() (domain.SessionSummary, error) {
	completedAt, ok := s.CompletedAt()
	if !ok {
		return domain.SessionSummary{}, ErrSessionCompleted
	}
	logs := make([]domain.ReviewLog, 0, len(s.results))
	for _, r := range s.results {
		logs = append(logs, r.Applied.Log)
	}
	return domain.SummaryFromLogs(s.deckID, s.startedAt, completedAt, logs)
}
