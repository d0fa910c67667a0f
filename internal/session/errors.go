package session

import "errors"

// Sentinel errors for the session package. Check with errors.Is.
var (
	// ErrEmptySession reports a plan that selected zero cards.
	ErrEmptySession = errors.New("session: no cards available")

	// ErrSessionCompleted reports an answer submitted after the last card.
	ErrSessionCompleted = errors.New("session: already completed")

	// ErrInsufficientGrades reports a grade sequence that ran out before the
	// session's queue was drained.
	ErrInsufficientGrades = errors.New("session: not enough grades to complete session")
)
