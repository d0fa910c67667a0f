package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
)

var settingsValidator = validator.New()

// Weekdays is a set of days of the week, one bit per time.Weekday.
type Weekdays uint8

// WeekdaySet builds a set from the given days.
func WeekdaySet(days ...time.Weekday) Weekdays {
	var s Weekdays
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// Contains reports whether the set includes the given day.
func (s Weekdays) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// DeckSettings controls daily limits and session sizing for a deck.
// All counts must be positive; violations are rejected at construction.
type DeckSettings struct {
	NewCardsPerDay    int  `koanf:"new_cards_per_day" validate:"gt=0"`
	ReviewLimitPerDay int  `koanf:"review_limit_per_day" validate:"gt=0"`
	MicroSessionSize  int  `koanf:"micro_session_size" validate:"gt=0"`
	ProtectOverload   bool `koanf:"protect_overload"`

	// Lapse policy: when preservation is off, a lapsed card is rescheduled
	// as if it were brand new; either way the lapse interval never drops
	// below LapseMinIntervalDays.
	PreserveStabilityOnLapse bool `koanf:"preserve_stability_on_lapse"`
	LapseMinIntervalDays     int  `koanf:"lapse_min_interval_days" validate:"gt=0"`

	// Easy days: on the listed weekdays both daily limits are scaled down
	// by the load factor before planning.
	EasyDaysEnabled   bool     `koanf:"easy_days_enabled"`
	EasyDayLoadFactor float64  `koanf:"easy_day_load_factor" validate:"gt=0,lte=1"`
	EasyDays          Weekdays `koanf:"easy_days"`
}

// DefaultSettings returns calm defaults: small daily goals, a short
// micro-session, and overload protection on.
func DefaultSettings() DeckSettings {
	return DeckSettings{
		NewCardsPerDay:           5,
		ReviewLimitPerDay:        30,
		MicroSessionSize:         5,
		ProtectOverload:          true,
		PreserveStabilityOnLapse: true,
		LapseMinIntervalDays:     1,
		EasyDaysEnabled:          true,
		EasyDayLoadFactor:        0.5,
		EasyDays:                 WeekdaySet(time.Saturday, time.Sunday),
	}
}

// NewDeckSettings validates and returns custom deck settings.
func NewDeckSettings(s DeckSettings) (DeckSettings, error) {
	if err := settingsValidator.Struct(s); err != nil {
		return DeckSettings{}, fmt.Errorf("invalid deck settings: %w", err)
	}
	if s.EasyDaysEnabled && s.EasyDays == 0 {
		return DeckSettings{}, fmt.Errorf("invalid deck settings: easy days enabled with no days listed")
	}
	return s, nil
}

// IsEasyDay reports whether the weekday carries a reduced load.
func (s DeckSettings) IsEasyDay(d time.Weekday) bool {
	return s.EasyDaysEnabled && s.EasyDays.Contains(d)
}

// EffectiveDailyLimits returns the review and new-card limits in effect at
// the given time, scaled down by the load factor on easy days.
func (s DeckSettings) EffectiveDailyLimits(now time.Time) (reviewLimit, newLimit int) {
	if !s.IsEasyDay(now.Weekday()) {
		return s.ReviewLimitPerDay, s.NewCardsPerDay
	}
	return scaleLimit(s.ReviewLimitPerDay, s.EasyDayLoadFactor),
		scaleLimit(s.NewCardsPerDay, s.EasyDayLoadFactor)
}

func scaleLimit(limit int, factor float64) int {
	scaled := float64(limit) * factor
	if scaled <= 0 {
		return 0
	}
	return int(math.Floor(scaled))
}

// Deck groups cards and carries the settings SessionPlanner consumes.
type Deck struct {
	ID          DeckID
	Name        string
	Description string
	Settings    DeckSettings
	CreatedAt   time.Time
}

// NewDeck creates a deck after validating its name and settings.
func NewDeck(id DeckID, name, description string, settings DeckSettings, createdAt time.Time) (Deck, error) {
	if name == "" {
		return Deck{}, fmt.Errorf("deck name cannot be empty")
	}
	validated, err := NewDeckSettings(settings)
	if err != nil {
		return Deck{}, err
	}
	return Deck{
		ID:          id,
		Name:        name,
		Description: description,
		Settings:    validated,
		CreatedAt:   createdAt,
	}, nil
}
