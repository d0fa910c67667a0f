// Package session composes bounded practice sessions and sequences their
// answering, including durable persistence of reviews and the final summary.
package session

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Plan is the ephemeral selection result for one practice session. It is
// consumed immediately by a Session and never persisted.
type Plan struct {
	Cards          []domain.Card
	DueSelected    int
	NewSelected    int
	FutureSelected int
}

// Total returns the number of cards in the plan.
func (p Plan) Total() int {
	return len(p.Cards)
}

// IsEmpty reports whether no cards were selected.
func (p Plan) IsEmpty() bool {
	return len(p.Cards) == 0
}

// Planner selects a bounded, prioritized, deduplicated set of cards for one
// micro-session. Due cards always come before new cards so review backlog is
// never starved by new-card intake.
type Planner struct {
	settings   domain.DeckSettings
	shuffleNew bool
	rng        *rand.Rand
}

// NewPlanner creates a planner for the given deck settings.
func NewPlanner(settings domain.DeckSettings) *Planner {
	return &Planner{
		settings: settings,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithShuffleNew enables or disables shuffling among new cards.
func (pl *Planner) WithShuffleNew(shuffle bool) *Planner {
	pl.shuffleNew = shuffle
	return pl
}

// WithRand replaces the shuffle source, fixing it for deterministic tests.
func (pl *Planner) WithRand(rng *rand.Rand) *Planner {
	pl.rng = rng
	return pl
}

// Build selects cards from the supplied due and new pools.
//
// Due cards are sorted by (next_review_at, card id) and capped by the daily
// review limit (when overload protection is on) and the micro-session size.
// New cards fill the remaining micro-session slots up to the daily new-card
// cap, either shuffled or in (created_at, card id) order, skipping any id
// already selected.
func (pl *Planner) Build(dueCards, newCards []domain.Card) Plan {
	microCap := pl.settings.MicroSessionSize
	dueCap := math.MaxInt
	if pl.settings.ProtectOverload {
		dueCap = pl.settings.ReviewLimitPerDay
	}
	newCap := pl.settings.NewCardsPerDay

	due := make([]domain.Card, len(dueCards))
	copy(due, dueCards)
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextReviewAt.Equal(due[j].NextReviewAt) {
			return due[i].NextReviewAt.Before(due[j].NextReviewAt)
		}
		return due[i].ID < due[j].ID
	})

	dueTake := min(dueCap, microCap)
	if dueTake > len(due) {
		dueTake = len(due)
	}
	selected := append([]domain.Card(nil), due[:dueTake]...)

	selectedIDs := make(map[domain.CardID]bool, len(selected))
	for _, c := range selected {
		selectedIDs[c.ID] = true
	}

	newCount := 0
	remaining := microCap - len(selected)
	if remaining > 0 && newCap > 0 {
		candidates := make([]domain.Card, 0, len(newCards))
		for _, c := range newCards {
			if !selectedIDs[c.ID] {
				candidates = append(candidates, c)
			}
		}

		if pl.shuffleNew {
			pl.rng.Shuffle(len(candidates), func(i, j int) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			})
		} else {
			sort.Slice(candidates, func(i, j int) bool {
				if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
					return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
				}
				return candidates[i].ID < candidates[j].ID
			})
		}

		take := min(newCap, remaining)
		if take > len(candidates) {
			take = len(candidates)
		}
		selected = append(selected, candidates[:take]...)
		newCount = take
	}

	return Plan{
		Cards:          selected,
		DueSelected:    dueTake,
		NewSelected:    newCount,
		FutureSelected: 0,
	}
}
