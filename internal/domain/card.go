package domain

import (
	"fmt"
	"time"
)

// ErrCorruptMemoryState reports a persisted card whose review count and
// memory state disagree: a card with reviews must carry a memory state, and
// an unreviewed card must not.
var ErrCorruptMemoryState = fmt.Errorf("card memory state inconsistent with review count")

// Card is a single prompt/answer entry owned by one deck. The scheduler
// treats its content as opaque; only ApplyReview mutates scheduling fields.
type Card struct {
	ID           CardID
	DeckID       DeckID
	Prompt       PromptText
	Answer       AnswerText
	Context      string // Optional supporting notes shown with the answer.
	Phase        Phase
	CreatedAt    time.Time
	NextReviewAt time.Time
	LastReviewAt *time.Time // nil before first review.
	ReviewCount  int
	Memory       *MemoryState // nil before first review.
}

// NewCard creates a card in the New phase, due immediately.
func NewCard(id CardID, deckID DeckID, prompt PromptText, answer AnswerText, createdAt time.Time) Card {
	return Card{
		ID:           id,
		DeckID:       deckID,
		Prompt:       prompt,
		Answer:       answer,
		Phase:        PhaseNew,
		CreatedAt:    createdAt,
		NextReviewAt: createdAt,
	}
}

// CheckMemoryInvariant verifies review_count == 0 <=> memory state absent.
// Violations indicate persistence corruption, not a valid card.
func (c *Card) CheckMemoryInvariant() error {
	if (c.ReviewCount == 0) != (c.Memory == nil) {
		return fmt.Errorf("%w: card %d has %d reviews, memory present=%t",
			ErrCorruptMemoryState, c.ID, c.ReviewCount, c.Memory != nil)
	}
	return nil
}

// ApplyReview records a scheduler outcome on the card: phase transition,
// replaced memory state, review timestamps and counter, all in one step.
func (c *Card) ApplyReview(grade Grade, out ReviewOutcome, reviewedAt time.Time) {
	c.Phase = c.Phase.Next(grade)
	mem := MemoryStateFromOutcome(out)
	c.Memory = &mem
	t := reviewedAt
	c.LastReviewAt = &t
	c.NextReviewAt = out.NextReview
	c.ReviewCount++
}
