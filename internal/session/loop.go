package session

import (
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/review"
)

// AnswerResult is the outcome of one persisted answer within a loop.
type AnswerResult struct {
	Result     Result
	IsComplete bool
	SummaryID  *domain.SummaryID
}

// RunSummary reports a session driven to completion by RunPersisted.
type RunSummary struct {
	Total       int
	Answered    int
	StartedAt   time.Time
	CompletedAt time.Time
	Results     []Result
	SummaryID   domain.SummaryID
}

// Loop orchestrates persisted sessions end to end: it plans from storage,
// persists every answered review, and appends the session summary exactly
// once on completion.
type Loop struct {
	clock      Clock
	decks      DeckSource
	cards      CardSource
	reviews    ReviewStore
	summaries  SummaryStore
	applicator *review.Applicator
	shuffleNew bool
}

// NewLoop wires a loop over its storage collaborators.
func NewLoop(clock Clock, decks DeckSource, cards CardSource, reviews ReviewStore, summaries SummaryStore, applicator *review.Applicator) *Loop {
	if clock == nil {
		clock = time.Now
	}
	return &Loop{
		clock:      clock,
		decks:      decks,
		cards:      cards,
		reviews:    reviews,
		summaries:  summaries,
		applicator: applicator,
	}
}

// WithShuffleNew enables shuffling among new cards during planning.
func (l *Loop) WithShuffleNew(shuffle bool) *Loop {
	l.shuffleNew = shuffle
	return l
}

// BuildPlan fetches candidate pools from storage and runs the planner.
// On the deck's easy days both fetch limits are scaled down by the
// configured load factor.
func (l *Loop) BuildPlan(deckID domain.DeckID) (domain.Deck, Plan, error) {
	deck, err := l.decks.GetDeck(deckID)
	if err != nil {
		return domain.Deck{}, Plan{}, fmt.Errorf("load deck %d: %w", deckID, err)
	}

	now := l.clock()
	reviewLimit, newLimit := deck.Settings.EffectiveDailyLimits(now)
	due, err := l.cards.DueCards(deckID, now, reviewLimit)
	if err != nil {
		return domain.Deck{}, Plan{}, fmt.Errorf("load due cards for deck %d: %w", deckID, err)
	}
	newCards, err := l.cards.NewCards(deckID, newLimit)
	if err != nil {
		return domain.Deck{}, Plan{}, fmt.Errorf("load new cards for deck %d: %w", deckID, err)
	}

	plan := NewPlanner(deck.Settings).WithShuffleNew(l.shuffleNew).Build(due, newCards)
	return deck, plan, nil
}

// StartSession plans and opens a session for the deck.
// Returns ErrEmptySession when nothing is due and no new cards remain.
func (l *Loop) StartSession(deckID domain.DeckID) (*Session, error) {
	deck, plan, err := l.BuildPlan(deckID)
	if err != nil {
		return nil, err
	}
	return New(deck, plan.Cards, l.applicator, l.clock())
}

// AnswerCurrent grades the session's current card, committing the review log
// and the card's update in one durable write; on the transition to Complete
// it persists the session summary exactly once.
func (l *Loop) AnswerCurrent(s *Session, grade domain.Grade) (AnswerResult, error) {
	res, err := s.answer(grade, l.clock(), l.reviews)
	if err != nil {
		return AnswerResult{}, err
	}

	if s.IsComplete() {
		if _, err := l.FinalizeSummary(s); err != nil {
			// The review itself is durable; the caller can retry summary
			// persistence via FinalizeSummary.
			return AnswerResult{}, err
		}
	}

	return AnswerResult{
		Result:     res,
		IsComplete: s.IsComplete(),
		SummaryID:  s.summaryID,
	}, nil
}

// FinalizeSummary persists the completed session's summary if it has not
// been recorded yet. Idempotent: once a summary id is set, it is returned
// without appending a second row. This is the recovery path after a
// transient storage failure on completion.
func (l *Loop) FinalizeSummary(s *Session) (domain.SummaryID, error) {
	if id, ok := s.SummaryID(); ok {
		return id, nil
	}
	if !s.IsComplete() {
		return 0, ErrSessionCompleted
	}

	summary, err := s.BuildSummary()
	if err != nil {
		return 0, err
	}
	id, err := l.summaries.AppendSummary(summary)
	if err != nil {
		return 0, fmt.Errorf("append summary for deck %d: %w", s.deckID, err)
	}
	s.summaryID = &id
	return id, nil
}

// RunPersisted drives the session with the given grade sequence until it
// completes. Returns ErrInsufficientGrades if the grades run out first.
func (l *Loop) RunPersisted(s *Session, grades []domain.Grade) (RunSummary, error) {
	for _, g := range grades {
		if s.IsComplete() {
			break
		}
		if _, err := l.AnswerCurrent(s, g); err != nil {
			return RunSummary{}, err
		}
	}

	if !s.IsComplete() {
		return RunSummary{}, ErrInsufficientGrades
	}

	completedAt, _ := s.CompletedAt()
	id, _ := s.SummaryID()
	return RunSummary{
		Total:       s.TotalCards(),
		Answered:    s.AnsweredCount(),
		StartedAt:   s.StartedAt(),
		CompletedAt: completedAt,
		Results:     s.Results(),
		SummaryID:   id,
	}, nil
}
