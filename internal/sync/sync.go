// Package sync reconciles registered card sources with the card store:
// markdown files are parsed, fingerprinted, and matched against existing
// cards so that reviews survive re-imports of unchanged content.
package sync

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/fingerprint"
	"github.com/recallkit/recallkit/internal/gitsource"
	"github.com/recallkit/recallkit/internal/parser"
	"github.com/recallkit/recallkit/internal/storage"
)

// ReposDir is where git-backed sources are cloned.
const ReposDir = "repos"

// SourceType classifies a source path as git or local.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// RunSync iterates over all registered sources and reconciles each against
// its files on disk. Per-source failures are logged and skipped so one bad
// source does not block the rest.
func RunSync(db *storage.DB, now time.Time) error {
	slog.Info("starting sync for all sources")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("no sources configured, add one with --add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(ReposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		localPath := source.Path
		if source.Type == "git" {
			localPath, err = gitURLToLocalPath(ReposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				slog.Error("failed to sync git repo", "url", source.Path, "error", err)
				continue
			}
		}

		if err := ReconcileSource(db, source, localPath, now); err != nil {
			slog.Error("failed to reconcile source", "id", source.ID, "error", err)
		}
	}
	slog.Info("sync complete")
	return nil
}

// ReconcileSource walks the source directory, inserts cards for entries not
// seen before, and deletes cards whose entries disappeared from disk.
// Matching is by content fingerprint, so an unchanged entry keeps its card
// and its review history across syncs.
func ReconcileSource(db *storage.DB, source storage.Source, localPath string, now time.Time) error {
	var parsed, inserted int
	var entryErrors []error
	foundFingerprints := make(map[string]bool)

	walkErr := filepath.WalkDir(localPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			entryErrors = append(entryErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, entry := range entries {
			parsed++
			fp := fingerprint.Hash(entry)
			foundFingerprints[fp] = true

			existing, findErr := db.FindCardByFingerprint(source.DeckID, fp)
			if findErr != nil {
				entryErrors = append(entryErrors, fmt.Errorf("lookup for %s: %w", fp, findErr))
				continue
			}
			if existing != nil {
				continue
			}

			card, buildErr := buildCard(source.DeckID, entry, now)
			if buildErr != nil {
				entryErrors = append(entryErrors, fmt.Errorf("entry in %s: %w", path, buildErr))
				continue
			}
			slog.Info("new card found, inserting", "fingerprint", fp)
			sourceID := sql.NullInt64{Int64: source.ID, Valid: true}
			if _, insertErr := db.InsertCard(card, fp, sourceID); insertErr != nil {
				entryErrors = append(entryErrors, fmt.Errorf("insert for %s: %w", fp, insertErr))
				continue
			}
			inserted++
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", localPath, walkErr)
	}

	known, err := db.CardFingerprints(source.ID)
	if err != nil {
		return fmt.Errorf("failed to get fingerprints for source %d: %w", source.ID, err)
	}

	var orphaned int
	for fp, cardID := range known {
		if foundFingerprints[fp] {
			continue
		}
		slog.Info("orphaned card, deleting", "fingerprint", fp, "card_id", cardID)
		orphaned++
		if err := db.DeleteCard(cardID); err != nil {
			slog.Warn("failed to delete orphaned card", "card_id", cardID, "error", err)
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID, now); err != nil {
		slog.Warn("failed to update last scanned", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", localPath,
		"parsed", parsed,
		"inserted", inserted,
		"orphaned_deleted", orphaned,
		"errors", len(entryErrors),
	)
	return nil
}

func buildCard(deckID domain.DeckID, entry parser.Entry, now time.Time) (domain.Card, error) {
	prompt, err := domain.NewPromptText(entry.Question)
	if err != nil {
		return domain.Card{}, err
	}
	answer, err := domain.NewAnswerText(entry.Answer)
	if err != nil {
		return domain.Card{}, err
	}
	card := domain.NewCard(0, deckID, prompt, answer, now)
	card.Context = entry.Context
	return card, nil
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-style URLs like git@host:user/repo.git do not parse as URLs.
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
