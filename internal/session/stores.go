package session

import (
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Clock supplies the current time. Injected everywhere a session needs
// "now" so tests can fix it; the engine never reads a global clock.
type Clock func() time.Time

// CardSource supplies candidate card pools for planning. The planner treats
// both pools as unordered and imposes its own ordering.
type CardSource interface {
	// DueCards returns reviewed cards with next_review_at <= now.
	DueCards(deckID domain.DeckID, now time.Time, limit int) ([]domain.Card, error)
	// NewCards returns cards that have never been reviewed.
	NewCards(deckID domain.DeckID, limit int) ([]domain.Card, error)
}

// DeckSource resolves a deck and its settings.
type DeckSource interface {
	GetDeck(deckID domain.DeckID) (domain.Deck, error)
}

// ReviewStore durably records a single applied review. The appended log and
// the card's updated scheduling state must be committed together: a failure
// leaves neither behind, so a retried answer cannot double-count the review.
type ReviewStore interface {
	ApplyReview(card domain.Card, log domain.ReviewLog, outcome domain.ReviewOutcome) (domain.LogID, error)
}

// SummaryStore appends and reads completed-session summaries.
type SummaryStore interface {
	AppendSummary(summary domain.SessionSummary) (domain.SummaryID, error)
	GetSummary(id domain.SummaryID) (domain.SessionSummary, error)
}
