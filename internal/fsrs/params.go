// Package fsrs implements the FSRS-style memory model used for scheduling.
//
// The scheduler is a pure function: identical inputs always produce identical
// outcomes, which keeps review replay and testing deterministic. Interval
// fuzzing is intentionally not implemented for that reason.
package fsrs

import (
	"fmt"
	"math"
)

// Params holds the coefficients of the memory model. The defaults are the
// published FSRS v6 parameter set.
type Params struct {
	// InitialStability is the first-review stability per grade (Again..Easy).
	InitialStability [4]float64

	// Initial difficulty D0(G) = InitialDifficulty - e^(DifficultySlope*(G-1)) + 1.
	InitialDifficulty float64
	DifficultySlope   float64

	// Difficulty update: linear damping scaled by DifficultyDelta, then mean
	// reversion toward D0(Easy) weighted by MeanReversion.
	DifficultyDelta float64
	MeanReversion   float64

	// Stability growth after a successful recall.
	RecallFactor         float64
	RecallStabilityExp   float64
	RecallRetentionScale float64

	// Stability after forgetting.
	ForgetFactor         float64
	ForgetDifficultyExp  float64
	ForgetStabilityExp   float64
	ForgetRetentionScale float64

	HardPenalty float64
	EasyBonus   float64

	// Same-day review stability adjustment.
	ShortTermFactor       float64
	ShortTermOffset       float64
	ShortTermStabilityExp float64

	// Decay is the (positive) exponent of the forgetting curve.
	Decay float64
}

// DefaultParams returns the FSRS v6 default coefficients.
func DefaultParams() Params {
	return Params{
		InitialStability:      [4]float64{0.212, 1.2931, 2.3065, 8.2956},
		InitialDifficulty:     6.4133,
		DifficultySlope:       0.8334,
		DifficultyDelta:       3.0194,
		MeanReversion:         0.001,
		RecallFactor:          1.8722,
		RecallStabilityExp:    0.1666,
		RecallRetentionScale:  0.796,
		ForgetFactor:          1.4835,
		ForgetDifficultyExp:   0.0614,
		ForgetStabilityExp:    0.2629,
		ForgetRetentionScale:  1.6483,
		HardPenalty:           0.6014,
		EasyBonus:             1.8729,
		ShortTermFactor:       0.5425,
		ShortTermOffset:       0.0912,
		ShortTermStabilityExp: 0.0658,
		Decay:                 0.1542,
	}
}

// Validate checks the parameter set for values the model cannot work with.
func (p Params) Validate() error {
	for i, s := range p.InitialStability {
		if s <= 0 {
			return fmt.Errorf("%w: initial stability[%d] = %f", ErrInvalidParams, i, s)
		}
	}
	if p.Decay <= 0 {
		return fmt.Errorf("%w: decay = %f", ErrInvalidParams, p.Decay)
	}
	return nil
}

// clampStability keeps stability strictly positive.
func clampStability(s float64) float64 {
	return math.Max(s, 0.001)
}

// clampDifficulty bounds difficulty to [1, 10], inside the stored [0, 10] range.
func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, 1), 10)
}
