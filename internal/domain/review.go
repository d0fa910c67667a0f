package domain

import "time"

// MemoryState is the memory-model estimate attached to a reviewed card.
// It is replaced wholesale on every review, never merged.
type MemoryState struct {
	Stability  float64 // Estimated days until recall probability decays to the target.
	Difficulty float64 // Intrinsic recall difficulty, bounded to [0, 10].
}

// ReviewOutcome is the result of one scheduler invocation.
type ReviewOutcome struct {
	NextReview    time.Time // reviewed_at + ScheduledDays, in calendar days.
	Stability     float64
	Difficulty    float64
	ElapsedDays   float64 // 0 for a first review.
	ScheduledDays float64 // Never below 1.0.
}

// MemoryStateFromOutcome extracts the replacement memory state.
func MemoryStateFromOutcome(out ReviewOutcome) MemoryState {
	return MemoryState{Stability: out.Stability, Difficulty: out.Difficulty}
}

// ReviewLog is the immutable record of a single graded review.
type ReviewLog struct {
	CardID     CardID
	ReviewedAt time.Time
	Grade      Grade
}

// NewReviewLog creates a review log entry.
func NewReviewLog(cardID CardID, grade Grade, reviewedAt time.Time) ReviewLog {
	return ReviewLog{CardID: cardID, Grade: grade, ReviewedAt: reviewedAt}
}
