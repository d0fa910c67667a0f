package domain

import (
	"fmt"
	"time"
)

// Summary validation errors.
var (
	ErrSummaryTimeRange     = fmt.Errorf("summary completed_at is before started_at")
	ErrSummaryCountMismatch = fmt.Errorf("summary total does not match grade counts")
)

// SessionSummary aggregates one completed practice session. The grade counts
// always sum to TotalReviews; both constructors enforce it.
type SessionSummary struct {
	DeckID       DeckID
	StartedAt    time.Time
	CompletedAt  time.Time
	TotalReviews int
	Again        int
	Hard         int
	Good         int
	Easy         int
}

// SummaryFromPersisted rehydrates a summary from storage, re-checking the
// invariants so a corrupted row cannot round-trip silently.
func SummaryFromPersisted(deckID DeckID, startedAt, completedAt time.Time, total, again, hard, good, easy int) (SessionSummary, error) {
	if completedAt.Before(startedAt) {
		return SessionSummary{}, ErrSummaryTimeRange
	}
	if sum := again + hard + good + easy; sum != total {
		return SessionSummary{}, fmt.Errorf("%w: total=%d sum=%d", ErrSummaryCountMismatch, total, sum)
	}
	return SessionSummary{
		DeckID:       deckID,
		StartedAt:    startedAt,
		CompletedAt:  completedAt,
		TotalReviews: total,
		Again:        again,
		Hard:         hard,
		Good:         good,
		Easy:         easy,
	}, nil
}

// SummaryFromLogs builds a summary by counting grades over the session's
// own review logs.
func SummaryFromLogs(deckID DeckID, startedAt, completedAt time.Time, logs []ReviewLog) (SessionSummary, error) {
	if completedAt.Before(startedAt) {
		return SessionSummary{}, ErrSummaryTimeRange
	}
	var again, hard, good, easy int
	for _, l := range logs {
		switch l.Grade {
		case Again:
			again++
		case Hard:
			hard++
		case Good:
			good++
		case Easy:
			easy++
		}
	}
	return SummaryFromPersisted(deckID, startedAt, completedAt, len(logs), again, hard, good, easy)
}
