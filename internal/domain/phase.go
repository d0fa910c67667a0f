package domain

import (
	"encoding"
	"fmt"
)

// Phase is the lifecycle stage of a card. New is the only initial phase;
// every review moves the card through the cyclic machine below.
type Phase int

const (
	PhaseNew        Phase = iota // Created, never reviewed.
	PhaseLearning                // First review applied.
	PhaseReviewing               // Graduated into the long-term review cycle.
	PhaseRelearning              // Forgotten, relearning.
)

var phaseNames = [...]string{
	PhaseNew:        "New",
	PhaseLearning:   "Learning",
	PhaseReviewing:  "Reviewing",
	PhaseRelearning: "Relearning",
}

var phaseByName = map[string]Phase{
	"New":        PhaseNew,
	"Learning":   PhaseLearning,
	"Reviewing":  PhaseReviewing,
	"Relearning": PhaseRelearning,
}

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Phase(0)
	_ encoding.TextMarshaler   = Phase(0)
	_ encoding.TextUnmarshaler = (*Phase)(nil)
)

// IsValid reports whether p is a defined phase.
func (p Phase) IsValid() bool {
	return p >= PhaseNew && p <= PhaseRelearning
}

// String returns the phase name, or "Phase(n)" for invalid values.
func (p Phase) String() string {
	if p.IsValid() {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid phase: %d", int(p))
	}
	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	v, ok := phaseByName[string(text)]
	if !ok {
		return fmt.Errorf("invalid phase: %q", text)
	}
	*p = v
	return nil
}

// Next returns the phase a card moves to when graded. Exhaustive over the
// four phases:
//
//	New        -> Learning (any grade, first review)
//	Learning   -> Relearning on Again, Reviewing otherwise
//	Relearning -> Relearning on Again, Reviewing otherwise
//	Reviewing  -> Relearning on Again, Reviewing otherwise
func (p Phase) Next(grade Grade) Phase {
	switch p {
	case PhaseNew:
		return PhaseLearning
	case PhaseLearning, PhaseRelearning:
		if grade == Again {
			return PhaseRelearning
		}
		return PhaseReviewing
	case PhaseReviewing:
		if grade == Again {
			return PhaseRelearning
		}
		return PhaseReviewing
	default:
		return p
	}
}

// IsLapse reports whether answering from this phase with the given grade
// counts as a lapse (a forgotten card re-entering relearning).
func (p Phase) IsLapse(grade Grade) bool {
	return grade == Again && (p == PhaseReviewing || p == PhaseRelearning)
}
