package domain

import (
	"testing"
	"time"
)

func TestNewDeckSettings(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*DeckSettings)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(s *DeckSettings) {}},
		{name: "zero new cards rejected", mutate: func(s *DeckSettings) { s.NewCardsPerDay = 0 }, wantErr: true},
		{name: "negative review limit rejected", mutate: func(s *DeckSettings) { s.ReviewLimitPerDay = -1 }, wantErr: true},
		{name: "zero micro session rejected", mutate: func(s *DeckSettings) { s.MicroSessionSize = 0 }, wantErr: true},
		{name: "zero lapse interval rejected", mutate: func(s *DeckSettings) { s.LapseMinIntervalDays = 0 }, wantErr: true},
		{name: "zero load factor rejected", mutate: func(s *DeckSettings) { s.EasyDayLoadFactor = 0 }, wantErr: true},
		{name: "load factor above one rejected", mutate: func(s *DeckSettings) { s.EasyDayLoadFactor = 1.5 }, wantErr: true},
		{name: "easy days enabled without days rejected", mutate: func(s *DeckSettings) { s.EasyDays = 0 }, wantErr: true},
		{name: "no easy days fine when disabled", mutate: func(s *DeckSettings) {
			s.EasyDaysEnabled = false
			s.EasyDays = 0
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := DefaultSettings()
			tc.mutate(&settings)
			_, err := NewDeckSettings(settings)
			if tc.wantErr && err == nil {
				t.Fatal("Expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Expected settings to validate, got %v", err)
			}
		})
	}
}

func TestEffectiveDailyLimits(t *testing.T) {
	settings := DefaultSettings()
	settings.ReviewLimitPerDay = 30
	settings.NewCardsPerDay = 5
	settings.EasyDayLoadFactor = 0.5
	settings.EasyDays = WeekdaySet(time.Saturday, time.Sunday)

	sunday := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if sunday.Weekday() != time.Sunday {
		t.Fatalf("Expected a Sunday, got %v", sunday.Weekday())
	}
	monday := sunday.Add(24 * time.Hour)

	reviews, fresh := settings.EffectiveDailyLimits(monday)
	if reviews != 30 || fresh != 5 {
		t.Errorf("Expected full limits on a regular day, got %d/%d", reviews, fresh)
	}

	// Scaled limits floor: 5 * 0.5 = 2.5 rounds down to 2.
	reviews, fresh = settings.EffectiveDailyLimits(sunday)
	if reviews != 15 || fresh != 2 {
		t.Errorf("Expected scaled limits on an easy day, got %d/%d", reviews, fresh)
	}

	settings.EasyDaysEnabled = false
	reviews, fresh = settings.EffectiveDailyLimits(sunday)
	if reviews != 30 || fresh != 5 {
		t.Errorf("Expected full limits when easy days are disabled, got %d/%d", reviews, fresh)
	}
}

func TestWeekdaySet(t *testing.T) {
	set := WeekdaySet(time.Saturday, time.Sunday)
	if !set.Contains(time.Saturday) || !set.Contains(time.Sunday) {
		t.Error("Expected the weekend days in the set")
	}
	if set.Contains(time.Wednesday) {
		t.Error("Expected Wednesday outside the set")
	}
}

func TestNewDeck(t *testing.T) {
	now := time.Now()

	if _, err := NewDeck(1, "", "", DefaultSettings(), now); err == nil {
		t.Error("Expected an error for an empty deck name")
	}

	deck, err := NewDeck(1, "Go basics", "language fundamentals", DefaultSettings(), now)
	if err != nil {
		t.Fatalf("NewDeck returned an unexpected error: %v", err)
	}
	if deck.Name != "Go basics" || deck.Settings.NewCardsPerDay != 5 {
		t.Errorf("Unexpected deck: %+v", deck)
	}
}
