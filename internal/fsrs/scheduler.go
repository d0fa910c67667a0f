package fsrs

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Sentinel errors for the fsrs package. Check with errors.Is.
var (
	ErrInvalidElapsedDays = errors.New("fsrs: elapsed days must be non-negative and finite")
	ErrInvalidRetention   = errors.New("fsrs: desired retention must be in (0, 1]")
	ErrInvalidParams      = errors.New("fsrs: parameters out of bounds")
)

// defaultMaxIntervalDays caps any computed interval at roughly 100 years.
const defaultMaxIntervalDays = 36500

// Scheduler turns a review grade into an updated memory state and next due
// date. It holds only immutable configuration, so a single instance is safe
// to share across goroutines.
type Scheduler struct {
	params           Params
	desiredRetention float64
	maxIntervalDays  float64
	decay            float64 // negative exponent of the forgetting curve
	factor           float64 // 0.9^(1/decay) - 1
}

// New returns a scheduler with default parameters and 0.9 desired retention.
func New() *Scheduler {
	s, err := NewWithRetention(0.9)
	if err != nil {
		// Unreachable with a valid constant retention.
		panic(err)
	}
	return s
}

// NewWithRetention returns a scheduler targeting the given recall probability.
func NewWithRetention(retention float64) (*Scheduler, error) {
	return NewWithParams(DefaultParams(), retention)
}

// NewWithParams returns a scheduler with custom coefficients.
func NewWithParams(params Params, retention float64) (*Scheduler, error) {
	if !(retention > 0 && retention <= 1) || math.IsNaN(retention) {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidRetention, retention)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	decay := -params.Decay
	return &Scheduler{
		params:           params,
		desiredRetention: retention,
		maxIntervalDays:  defaultMaxIntervalDays,
		decay:            decay,
		factor:           math.Pow(0.9, 1.0/decay) - 1.0,
	}, nil
}

// DesiredRetention returns the configured recall-probability target.
func (s *Scheduler) DesiredRetention() float64 {
	return s.desiredRetention
}

// ScheduledStates holds the four possible outcomes of one review, keyed by
// grade. Select picks the outcome matching the reviewer's answer.
type ScheduledStates struct {
	CardID domain.CardID
	Again  domain.ReviewOutcome
	Hard   domain.ReviewOutcome
	Good   domain.ReviewOutcome
	Easy   domain.ReviewOutcome
}

// Select returns the outcome for the given grade.
func (st ScheduledStates) Select(grade domain.Grade) domain.ReviewOutcome {
	switch grade {
	case domain.Again:
		return st.Again
	case domain.Hard:
		return st.Hard
	case domain.Easy:
		return st.Easy
	default:
		return st.Good
	}
}

// AppliedReview bundles the selected outcome, the replacement memory state,
// and the log entry for one graded review.
type AppliedReview struct {
	Outcome domain.ReviewOutcome
	Memory  domain.MemoryState
	Log     domain.ReviewLog
}

// ApplyReview applies a grade to a card's memory state.
//
// A nil previous state marks a first-ever review; the initial stability and
// difficulty then depend only on the grade. elapsedDays is the real time in
// days since the previous review and must be non-negative and finite. A
// negative value means the review is backdated relative to the stored
// last-review timestamp and is rejected with ErrInvalidElapsedDays.
func (s *Scheduler) ApplyReview(cardID domain.CardID, prev *domain.MemoryState, grade domain.Grade, reviewedAt time.Time, elapsedDays float64) (AppliedReview, error) {
	if !grade.IsValid() {
		return AppliedReview{}, fmt.Errorf("%w: %d", domain.ErrInvalidGrade, int(grade))
	}
	states, err := s.Schedule(cardID, prev, reviewedAt, elapsedDays)
	if err != nil {
		return AppliedReview{}, err
	}

	outcome := states.Select(grade)
	return AppliedReview{
		Outcome: outcome,
		Memory:  domain.MemoryStateFromOutcome(outcome),
		Log:     domain.NewReviewLog(cardID, grade, reviewedAt),
	}, nil
}

// Schedule computes all four next states for a card without choosing one.
// Useful for previewing intervals before the reviewer answers.
func (s *Scheduler) Schedule(cardID domain.CardID, prev *domain.MemoryState, reviewedAt time.Time, elapsedDays float64) (ScheduledStates, error) {
	if math.IsNaN(elapsedDays) || math.IsInf(elapsedDays, 0) || elapsedDays < 0 {
		return ScheduledStates{}, fmt.Errorf("%w: got %f", ErrInvalidElapsedDays, elapsedDays)
	}
	if prev == nil {
		elapsedDays = 0
	}

	states := ScheduledStates{CardID: cardID}
	for _, g := range []domain.Grade{domain.Again, domain.Hard, domain.Good, domain.Easy} {
		mem := s.nextMemory(prev, g, elapsedDays)
		out := s.outcome(mem, reviewedAt, elapsedDays)
		switch g {
		case domain.Again:
			states.Again = out
		case domain.Hard:
			states.Hard = out
		case domain.Good:
			states.Good = out
		case domain.Easy:
			states.Easy = out
		}
	}
	return states, nil
}

// Retrievability returns the modeled recall probability after elapsedDays
// for the given memory state.
func (s *Scheduler) Retrievability(state domain.MemoryState, elapsedDays float64) float64 {
	return s.retrievability(elapsedDays, state.Stability)
}

// retrievability computes R(t, S) = (1 + factor * t / S) ^ decay.
func (s *Scheduler) retrievability(elapsedDays, stability float64) float64 {
	return math.Pow(1+s.factor*elapsedDays/stability, s.decay)
}

// nextMemory updates stability and difficulty for one hypothetical grade.
func (s *Scheduler) nextMemory(prev *domain.MemoryState, grade domain.Grade, elapsedDays float64) domain.MemoryState {
	if prev == nil {
		return domain.MemoryState{
			Stability:  s.initStability(grade),
			Difficulty: s.initDifficulty(grade, true),
		}
	}

	var stability float64
	if elapsedDays < 1 {
		// Same-day review: the forgetting curve has not meaningfully decayed.
		stability = s.shortTermStability(prev.Stability, grade)
	} else {
		r := s.retrievability(elapsedDays, prev.Stability)
		if grade == domain.Again {
			stability = s.forgetStability(prev.Difficulty, prev.Stability, r)
		} else {
			stability = s.recallStability(prev.Difficulty, prev.Stability, r, grade)
		}
	}
	return domain.MemoryState{
		Stability:  stability,
		Difficulty: s.nextDifficulty(prev.Difficulty, grade),
	}
}

// outcome converts a memory state into a scheduled review outcome anchored
// at the review timestamp. The interval is floored at one day so a noisy
// grade can never reschedule a card for the same day.
func (s *Scheduler) outcome(mem domain.MemoryState, reviewedAt time.Time, elapsedDays float64) domain.ReviewOutcome {
	days := s.intervalDays(mem.Stability)
	return domain.ReviewOutcome{
		NextReview:    reviewedAt.Add(time.Duration(days) * 24 * time.Hour),
		Stability:     mem.Stability,
		Difficulty:    mem.Difficulty,
		ElapsedDays:   elapsedDays,
		ScheduledDays: float64(days),
	}
}

// intervalDays computes I(r, S) = (S / factor) * (r^(1/decay) - 1),
// rounded and clamped to [1, maxIntervalDays].
func (s *Scheduler) intervalDays(stability float64) int {
	ivl := stability / s.factor * (math.Pow(s.desiredRetention, 1.0/s.decay) - 1)
	days := int(math.Round(ivl))
	if days < 1 {
		days = 1
	}
	if float64(days) > s.maxIntervalDays {
		days = int(s.maxIntervalDays)
	}
	return days
}

func (s *Scheduler) initStability(grade domain.Grade) float64 {
	return clampStability(s.params.InitialStability[grade.Rating()-1])
}

func (s *Scheduler) initDifficulty(grade domain.Grade, clamp bool) float64 {
	d := s.params.InitialDifficulty - math.Exp(s.params.DifficultySlope*float64(grade.Rating()-1)) + 1
	if clamp {
		return clampDifficulty(d)
	}
	return d
}

func (s *Scheduler) nextDifficulty(difficulty float64, grade domain.Grade) float64 {
	deltaD := -s.params.DifficultyDelta * (float64(grade.Rating()) - 3)
	damped := difficulty + (10-difficulty)*deltaD/9
	// Mean reversion toward the unclamped D0(Easy).
	target := s.initDifficulty(domain.Easy, false)
	return clampDifficulty(s.params.MeanReversion*target + (1-s.params.MeanReversion)*damped)
}

func (s *Scheduler) recallStability(difficulty, stability, retrievability float64, grade domain.Grade) float64 {
	hardPenalty := 1.0
	if grade == domain.Hard {
		hardPenalty = s.params.HardPenalty
	}
	easyBonus := 1.0
	if grade == domain.Easy {
		easyBonus = s.params.EasyBonus
	}
	return clampStability(stability * (1 + math.Exp(s.params.RecallFactor)*
		(11-difficulty)*
		math.Pow(stability, -s.params.RecallStabilityExp)*
		(math.Exp((1-retrievability)*s.params.RecallRetentionScale)-1)*
		hardPenalty*easyBonus))
}

func (s *Scheduler) forgetStability(difficulty, stability, retrievability float64) float64 {
	long := s.params.ForgetFactor *
		math.Pow(difficulty, -s.params.ForgetDifficultyExp) *
		(math.Pow(stability+1, s.params.ForgetStabilityExp) - 1) *
		math.Exp((1-retrievability)*s.params.ForgetRetentionScale)
	short := stability / math.Exp(s.params.ShortTermFactor*s.params.ShortTermOffset)
	return clampStability(math.Min(long, short))
}

func (s *Scheduler) shortTermStability(stability float64, grade domain.Grade) float64 {
	inc := math.Exp(s.params.ShortTermFactor*(float64(grade.Rating())-3+s.params.ShortTermOffset)) *
		math.Pow(stability, -s.params.ShortTermStabilityExp)
	if grade == domain.Good || grade == domain.Easy {
		inc = math.Max(inc, 1.0)
	}
	return clampStability(stability * inc)
}
