package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/storage"
)

var syncT0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestSourceType(t *testing.T) {
	testCases := []struct {
		path     string
		expected string
	}{
		{path: "/home/user/cards", expected: "local"},
		{path: "./relative/dir", expected: "local"},
		{path: "https://github.com/user/cards.git", expected: "git"},
		{path: "https://github.com/user/cards", expected: "git"},
		{path: "git@github.com:user/cards.git", expected: "git"},
		{path: "/local/checkout.git", expected: "git"},
	}

	for _, tc := range testCases {
		if got := SourceType(tc.path); got != tc.expected {
			t.Errorf("SourceType(%q) = %q, want %q", tc.path, got, tc.expected)
		}
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		name     string
		url      string
		expected string
		wantErr  bool
	}{
		{
			name:     "https url",
			url:      "https://github.com/user/cards.git",
			expected: filepath.Join("repos", "github.com", "user", "cards"),
		},
		{
			name:     "scp style",
			url:      "git@github.com:user/cards.git",
			expected: filepath.Join("repos", "github.com", "user", "cards"),
		},
		{
			name:    "unparseable",
			url:     "not a url",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gitURLToLocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %q", tc.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("gitURLToLocalPath returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestReconcileSource(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	deckID, err := db.InsertDeck("synced", "", domain.DefaultSettings(), syncT0)
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	sourceID, err := db.InsertSource("local", dir, deckID)
	if err != nil {
		t.Fatal(err)
	}
	source := storage.Source{ID: sourceID, Type: "local", Path: dir, DeckID: deckID}

	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writeFile("a.md", "Q: First question\nA: First answer\n")
	writeFile("b.md", "Q: Second question\nA: Second answer\n")

	if err := ReconcileSource(db, source, dir, syncT0); err != nil {
		t.Fatalf("ReconcileSource failed: %v", err)
	}

	counts, err := db.GetPracticeCounts(deckID, syncT0)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Total != 2 || counts.New != 2 {
		t.Fatalf("Expected 2 new cards after the first sync, got %+v", counts)
	}

	t.Run("unchanged entries keep their cards", func(t *testing.T) {
		before, err := db.CardFingerprints(sourceID)
		if err != nil {
			t.Fatal(err)
		}

		if err := ReconcileSource(db, source, dir, syncT0.Add(time.Hour)); err != nil {
			t.Fatalf("Second reconcile failed: %v", err)
		}

		after, err := db.CardFingerprints(sourceID)
		if err != nil {
			t.Fatal(err)
		}
		if len(after) != len(before) {
			t.Fatalf("Expected card count unchanged, got %d -> %d", len(before), len(after))
		}
		for fp, id := range before {
			if after[fp] != id {
				t.Errorf("Expected fingerprint %s to keep card %d, got %d", fp, id, after[fp])
			}
		}
	})

	t.Run("removed entries are orphaned and deleted", func(t *testing.T) {
		if err := os.Remove(filepath.Join(dir, "b.md")); err != nil {
			t.Fatal(err)
		}

		if err := ReconcileSource(db, source, dir, syncT0.Add(2*time.Hour)); err != nil {
			t.Fatalf("Third reconcile failed: %v", err)
		}

		counts, err := db.GetPracticeCounts(deckID, syncT0)
		if err != nil {
			t.Fatal(err)
		}
		if counts.Total != 1 {
			t.Errorf("Expected one card after orphan removal, got %+v", counts)
		}
	})

	t.Run("last scanned is stamped", func(t *testing.T) {
		got, err := db.FindSourceByPath(dir)
		if err != nil {
			t.Fatal(err)
		}
		if !got.LastScanned.Valid {
			t.Error("Expected the last-scanned time set after reconciliation")
		}
	})
}
