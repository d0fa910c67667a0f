// Package config loads application configuration from an optional YAML file,
// RECALLKIT_* environment variables, and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/recallkit/recallkit/internal/domain"
)

const envPrefix = "RECALLKIT_"

// Config is the full application configuration.
type Config struct {
	DBPath           string  `koanf:"db_path" validate:"required"`
	ListenAddr       string  `koanf:"listen_addr" validate:"required"`
	DesiredRetention float64 `koanf:"desired_retention" validate:"gt=0,lt=1"`
	ShuffleNew       bool    `koanf:"shuffle_new"`

	DeckDefaults DeckDefaults `koanf:"deck_defaults"`
}

// DeckDefaults seeds the settings of decks created without explicit ones.
// EasyDays holds lowercase weekday names, e.g. "saturday".
type DeckDefaults struct {
	NewCardsPerDay           int      `koanf:"new_cards_per_day" validate:"gt=0"`
	ReviewLimitPerDay        int      `koanf:"review_limit_per_day" validate:"gt=0"`
	MicroSessionSize         int      `koanf:"micro_session_size" validate:"gt=0"`
	ProtectOverload          bool     `koanf:"protect_overload"`
	PreserveStabilityOnLapse bool     `koanf:"preserve_stability_on_lapse"`
	LapseMinIntervalDays     int      `koanf:"lapse_min_interval_days" validate:"gt=0"`
	EasyDaysEnabled          bool     `koanf:"easy_days_enabled"`
	EasyDayLoadFactor        float64  `koanf:"easy_day_load_factor" validate:"gt=0,lte=1"`
	EasyDays                 []string `koanf:"easy_days"`
}

// Default returns the configuration used when no file, env, or flag
// overrides anything.
func Default() Config {
	settings := domain.DefaultSettings()
	return Config{
		DBPath:           "recallkit.db",
		ListenAddr:       ":8080",
		DesiredRetention: 0.9,
		ShuffleNew:       false,
		DeckDefaults: DeckDefaults{
			NewCardsPerDay:           settings.NewCardsPerDay,
			ReviewLimitPerDay:        settings.ReviewLimitPerDay,
			MicroSessionSize:         settings.MicroSessionSize,
			ProtectOverload:          settings.ProtectOverload,
			PreserveStabilityOnLapse: settings.PreserveStabilityOnLapse,
			LapseMinIntervalDays:     settings.LapseMinIntervalDays,
			EasyDaysEnabled:          settings.EasyDaysEnabled,
			EasyDayLoadFactor:        settings.EasyDayLoadFactor,
			EasyDays:                 []string{"saturday", "sunday"},
		},
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) (domain.Weekdays, error) {
	var set domain.Weekdays
	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", name)
		}
		set |= domain.WeekdaySet(day)
	}
	return set, nil
}

// DeckSettings converts the configured deck defaults into domain settings.
func (c Config) DeckSettings() (domain.DeckSettings, error) {
	easyDays, err := parseWeekdays(c.DeckDefaults.EasyDays)
	if err != nil {
		return domain.DeckSettings{}, fmt.Errorf("invalid deck defaults: %w", err)
	}
	return domain.NewDeckSettings(domain.DeckSettings{
		NewCardsPerDay:           c.DeckDefaults.NewCardsPerDay,
		ReviewLimitPerDay:        c.DeckDefaults.ReviewLimitPerDay,
		MicroSessionSize:         c.DeckDefaults.MicroSessionSize,
		ProtectOverload:          c.DeckDefaults.ProtectOverload,
		PreserveStabilityOnLapse: c.DeckDefaults.PreserveStabilityOnLapse,
		LapseMinIntervalDays:     c.DeckDefaults.LapseMinIntervalDays,
		EasyDaysEnabled:          c.DeckDefaults.EasyDaysEnabled,
		EasyDayLoadFactor:        c.DeckDefaults.EasyDayLoadFactor,
		EasyDays:                 easyDays,
	})
}

var validate = validator.New()

// Load builds the configuration: defaults, then the YAML file at configPath
// (missing files are fine unless explicitly requested), then environment
// variables, then flags. The result is validated before being returned.
func Load(configPath string, explicitPath bool, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	// Unmarshal below only overwrites keys that were actually loaded, so
	// starting from the default struct gives layered precedence.
	cfg := Default()

	if configPath != "" {
		err := k.Load(file.Provider(configPath), yaml.Parser())
		if err != nil && (explicitPath || !errors.Is(err, fs.ErrNotExist)) {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
