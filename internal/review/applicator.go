// Package review applies graded reviews to cards: it computes elapsed time,
// invokes the memory-model scheduler, and commits the outcome to the card's
// in-memory state in one step.
package review

import (
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/fsrs"
)

const secondsPerDay = 86400.0

// ComputeElapsedDays returns the real time in days between a card's previous
// review and the current one, 0 for a first review. The result is negative
// when reviewedAt precedes the stored last-review timestamp; the scheduler
// rejects that case.
func ComputeElapsedDays(lastReviewAt *time.Time, reviewedAt time.Time) float64 {
	if lastReviewAt == nil {
		return 0
	}
	return reviewedAt.Sub(*lastReviewAt).Seconds() / secondsPerDay
}

// Applicator glues the scheduler to card state. It holds no mutable state of
// its own; all card mutation is local to the passed card.
type Applicator struct {
	scheduler *fsrs.Scheduler
}

// NewApplicator creates an applicator around the given scheduler.
func NewApplicator(scheduler *fsrs.Scheduler) *Applicator {
	return &Applicator{scheduler: scheduler}
}

// Review applies a grade with default deck settings. See ReviewWithSettings.
func (a *Applicator) Review(card *domain.Card, grade domain.Grade, reviewedAt time.Time) (fsrs.AppliedReview, error) {
	settings := domain.DefaultSettings()
	return a.ReviewWithSettings(card, grade, reviewedAt, settings)
}

// ReviewWithSettings applies a grade to the card under the deck's lapse
// policy and commits the outcome: phase, memory state, timestamps, and
// review count all change together. On error the card is left untouched.
func (a *Applicator) ReviewWithSettings(card *domain.Card, grade domain.Grade, reviewedAt time.Time, settings domain.DeckSettings) (fsrs.AppliedReview, error) {
	prev := card.Memory
	isLapse := card.Phase.IsLapse(grade)
	if isLapse && !settings.PreserveStabilityOnLapse {
		// Reschedule the lapsed card as if it were brand new.
		prev = nil
	}

	elapsedDays := ComputeElapsedDays(card.LastReviewAt, reviewedAt)
	if prev == nil {
		elapsedDays = 0
	}

	// A negative elapsed (backdated review) is rejected by the scheduler,
	// the authoritative gate; the card stays unmodified in that case.
	applied, err := a.scheduler.ApplyReview(card.ID, prev, grade, reviewedAt, elapsedDays)
	if err != nil {
		return fsrs.AppliedReview{}, err
	}

	if isLapse {
		applyLapseMinInterval(&applied, reviewedAt, settings.LapseMinIntervalDays)
	}

	card.ApplyReview(grade, applied.Outcome, reviewedAt)
	return applied, nil
}

// applyLapseMinInterval floors a lapse outcome at the deck's minimum lapse
// interval so a forgotten card is not hammered on consecutive days.
func applyLapseMinInterval(applied *fsrs.AppliedReview, reviewedAt time.Time, minDays int) {
	if minDays <= 0 {
		return
	}
	if applied.Outcome.ScheduledDays < float64(minDays) {
		applied.Outcome.ScheduledDays = float64(minDays)
		applied.Outcome.NextReview = reviewedAt.Add(time.Duration(minDays) * 24 * time.Hour)
	}
}
