package domain

import (
	"encoding"
	"fmt"
)

// Grade is the reviewer's assessment of recall quality, ordered from
// complete failure (Again) to effortless recall (Easy).
type Grade int

const (
	Again Grade = iota + 1 // Failed to recall.
	Hard                   // Recalled with significant difficulty.
	Good                   // Recalled with some effort.
	Easy                   // Recalled effortlessly.
)

// ErrInvalidGrade reports a grade outside the 0-3 input range.
var ErrInvalidGrade = fmt.Errorf("invalid review grade")

var gradeNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy"}

var gradeByName = map[string]Grade{
	"Again": Again,
	"Hard":  Hard,
	"Good":  Good,
	"Easy":  Easy,
}

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Grade(0)
	_ encoding.TextMarshaler   = Grade(0)
	_ encoding.TextUnmarshaler = (*Grade)(nil)
)

// GradeFromInt converts external numeric input (0=Again .. 3=Easy) to a Grade.
func GradeFromInt(v int) (Grade, error) {
	if v < 0 || v > 3 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidGrade, v)
	}
	return Grade(v + 1), nil
}

// IsValid reports whether g is one of the four defined grades.
func (g Grade) IsValid() bool {
	return g >= Again && g <= Easy
}

// Rating returns the 1-4 rating used by the memory model (Again=1 .. Easy=4).
func (g Grade) Rating() int {
	return int(g)
}

// String returns the grade name, or "Grade(n)" for invalid values.
func (g Grade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}
	return []byte(gradeNames[g]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	v, ok := gradeByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGrade, text)
	}
	*g = v
	return nil
}
