package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", false, nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.DBPath != "recallkit.db" {
		t.Errorf("Expected default db path 'recallkit.db', got %q", cfg.DBPath)
	}
	if cfg.DesiredRetention != 0.9 {
		t.Errorf("Expected default retention 0.9, got %v", cfg.DesiredRetention)
	}
	if cfg.DeckDefaults.NewCardsPerDay != 5 {
		t.Errorf("Expected default new cards per day 5, got %d", cfg.DeckDefaults.NewCardsPerDay)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
db_path: custom.db
desired_retention: 0.85
deck_defaults:
  new_cards_per_day: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, true, nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.DBPath != "custom.db" {
		t.Errorf("Expected db path 'custom.db', got %q", cfg.DBPath)
	}
	if cfg.DesiredRetention != 0.85 {
		t.Errorf("Expected retention 0.85, got %v", cfg.DesiredRetention)
	}
	if cfg.DeckDefaults.NewCardsPerDay != 10 {
		t.Errorf("Expected new cards per day 10, got %d", cfg.DeckDefaults.NewCardsPerDay)
	}
	// Untouched keys keep their defaults.
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default listen addr ':8080', got %q", cfg.ListenAddr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true, nil)
	if err == nil {
		t.Fatal("Expected an error for an explicitly requested missing config file")
	}
}

func TestLoadMissingImplicitFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), false, nil)
	if err != nil {
		t.Fatalf("Expected missing implicit config file to be ignored, got: %v", err)
	}
	if cfg.DBPath != "recallkit.db" {
		t.Errorf("Expected defaults, got db path %q", cfg.DBPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("db_path: from_file.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RECALLKIT_DB_PATH", "from_env.db")

	cfg, err := Load(path, true, nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.DBPath != "from_env.db" {
		t.Errorf("Expected env to override file, got db path %q", cfg.DBPath)
	}
}

func TestLoadNestedEnv(t *testing.T) {
	t.Setenv("RECALLKIT_DECK_DEFAULTS__MICRO_SESSION_SIZE", "7")

	cfg, err := Load("", false, nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.DeckDefaults.MicroSessionSize != 7 {
		t.Errorf("Expected micro session size 7, got %d", cfg.DeckDefaults.MicroSessionSize)
	}
}

func TestLoadFlagsOverrideAll(t *testing.T) {
	t.Setenv("RECALLKIT_LISTEN_ADDR", ":9999")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen_addr", ":8080", "")
	if err := flags.Parse([]string{"--listen_addr", ":7777"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", false, flags)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Errorf("Expected flag to win, got listen addr %q", cfg.ListenAddr)
	}
}

func TestDeckSettingsEasyDays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
deck_defaults:
  easy_day_load_factor: 0.7
  easy_days:
    - wednesday
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, true, nil)
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	settings, err := cfg.DeckSettings()
	if err != nil {
		t.Fatalf("DeckSettings() returned an unexpected error: %v", err)
	}
	if settings.EasyDayLoadFactor != 0.7 {
		t.Errorf("Expected load factor 0.7, got %v", settings.EasyDayLoadFactor)
	}
	if !settings.EasyDays.Contains(time.Wednesday) || settings.EasyDays.Contains(time.Saturday) {
		t.Errorf("Expected only Wednesday as an easy day, got %v", settings.EasyDays)
	}

	cfg.DeckDefaults.EasyDays = []string{"humpday"}
	if _, err := cfg.DeckSettings(); err == nil {
		t.Error("Expected an error for an unknown weekday name")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("RECALLKIT_DESIRED_RETENTION", "1.5")

	if _, err := Load("", false, nil); err == nil {
		t.Fatal("Expected validation error for retention above 1")
	}
}
