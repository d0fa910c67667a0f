package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/recallkit/recallkit/internal/config"
	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/fingerprint"
	"github.com/recallkit/recallkit/internal/fsrs"
	"github.com/recallkit/recallkit/internal/parser"
	"github.com/recallkit/recallkit/internal/review"
	"github.com/recallkit/recallkit/internal/session"
	"github.com/recallkit/recallkit/internal/storage"
	"github.com/recallkit/recallkit/internal/sync"
	"github.com/recallkit/recallkit/internal/web"
)

func main() {
	flags := pflag.NewFlagSet("recallkit", pflag.ExitOnError)
	configPath := flags.String("config", "recallkit.yaml", "Path to the YAML config file")

	// Config keys; these feed the posflag provider and win over env and file.
	flags.String("db_path", "recallkit.db", "Path to the SQLite database file")
	flags.String("listen_addr", ":8080", "Address for the HTTP server")
	flags.Float64("desired_retention", 0.9, "Target recall probability for scheduling")
	flags.Bool("shuffle_new", false, "Shuffle new cards when planning a session")

	// Modes. Without one of these the server is started.
	runSync := flags.Bool("sync", false, "Reconcile all registered sources and exit")
	addSource := flags.String("add-source", "", "Register a source (local path or git URL) and exit")
	seedDir := flags.String("seed", "", "Import markdown cards from a directory and exit")
	deckID := flags.Int64("deck", 0, "Deck id for --add-source and --seed")
	createDeck := flags.String("create-deck", "", "Create a deck with the given name and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fatal("failed to parse flags", err)
	}

	cfg, err := config.Load(*configPath, flags.Changed("config"), flags)
	if err != nil {
		fatal("failed to load configuration", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		fatal("failed to open database", err)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	switch {
	case *createDeck != "":
		if err := createDeckCmd(db, cfg, *createDeck); err != nil {
			fatal("failed to create deck", err)
		}

	case *addSource != "":
		if err := addSourceCmd(db, *addSource, *deckID); err != nil {
			fatal("failed to add source", err)
		}

	case *seedDir != "":
		if err := seedCmd(db, *seedDir, *deckID); err != nil {
			fatal("failed to seed cards", err)
		}

	case *runSync:
		if err := sync.RunSync(db, time.Now()); err != nil {
			fatal("sync failed", err)
		}

	default:
		if err := serve(db, cfg); err != nil {
			fatal("server failed", err)
		}
	}
}

func serve(db *storage.DB, cfg config.Config) error {
	scheduler, err := fsrs.NewWithRetention(cfg.DesiredRetention)
	if err != nil {
		return err
	}
	applicator := review.NewApplicator(scheduler)
	loop := session.NewLoop(nil, db, db, db, db, applicator).WithShuffleNew(cfg.ShuffleNew)

	settings, err := cfg.DeckSettings()
	if err != nil {
		return err
	}

	server := web.NewServer(db, loop, settings)
	slog.Info("listening", "addr", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, server)
}

func createDeckCmd(db *storage.DB, cfg config.Config, name string) error {
	settings, err := cfg.DeckSettings()
	if err != nil {
		return err
	}
	deck, err := domain.NewDeck(0, name, "", settings, time.Now())
	if err != nil {
		return err
	}
	id, err := db.InsertDeck(deck.Name, deck.Description, deck.Settings, deck.CreatedAt)
	if err != nil {
		return err
	}
	fmt.Printf("Created deck %d (%s)\n", id, name)
	return nil
}

func addSourceCmd(db *storage.DB, path string, deckID int64) error {
	if deckID == 0 {
		return fmt.Errorf("--add-source requires --deck")
	}
	if _, err := db.GetDeck(domain.DeckID(deckID)); err != nil {
		return err
	}

	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Printf("Source already registered with id %d\n", existing.ID)
		return nil
	}

	sourceType := sync.SourceType(path)
	id, err := db.InsertSource(sourceType, path, domain.DeckID(deckID))
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s source %d: %s\n", sourceType, id, path)
	return nil
}

// seedCmd is a one-shot import: markdown entries under dir become cards in
// the deck, deduplicated by fingerprint. No source row is registered, so
// later syncs will not touch these cards.
func seedCmd(db *storage.DB, dir string, deckID int64) error {
	if deckID == 0 {
		return fmt.Errorf("--seed requires --deck")
	}
	if _, err := db.GetDeck(domain.DeckID(deckID)); err != nil {
		return err
	}

	now := time.Now()
	var parsed, inserted int
	var errs []error

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, entry := range entries {
			parsed++
			fp := fingerprint.Hash(entry)

			existing, findErr := db.FindCardByFingerprint(domain.DeckID(deckID), fp)
			if findErr != nil {
				errs = append(errs, findErr)
				continue
			}
			if existing != nil {
				continue
			}

			prompt, perr := domain.NewPromptText(entry.Question)
			if perr != nil {
				errs = append(errs, fmt.Errorf("entry in %s: %w", path, perr))
				continue
			}
			answer, aerr := domain.NewAnswerText(entry.Answer)
			if aerr != nil {
				errs = append(errs, fmt.Errorf("entry in %s: %w", path, aerr))
				continue
			}
			card := domain.NewCard(0, domain.DeckID(deckID), prompt, answer, now)
			card.Context = entry.Context

			if _, insErr := db.InsertCard(card, fp, sql.NullInt64{}); insErr != nil {
				errs = append(errs, insErr)
				continue
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	fmt.Printf("Parsed %d entries, inserted %d new cards, %d errors.\n", parsed, inserted, len(errs))
	for _, e := range errs {
		fmt.Printf("- %v\n", e)
	}
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
