package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// Source is a card origin: a local directory or a git repository of
// markdown files, feeding cards into one deck.
type Source struct {
	ID          int64
	Type        string // "local" or "git"
	Path        string
	DeckID      domain.DeckID
	LastScanned sql.NullTime
}

// InsertSource registers a new source and returns its id.
func (db *DB) InsertSource(sourceType, path string, deckID domain.DeckID) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (type, path, deck_id)
		VALUES (?, ?, ?)
	`, sourceType, path, int64(deckID))
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get source id for %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, nil when not found.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, type, path, deck_id, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Type, &s.Path, &s.DeckID, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all registered sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, type, path, deck_id, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Type, &s.Path, &s.DeckID, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned stamps a source's last successful scan time.
func (db *DB) UpdateSourceLastScanned(sourceID int64, scannedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, scannedAt.UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source registration. Cards imported from it keep
// their rows until the next sync reconciles them.
func (db *DB) DeleteSource(sourceID int64) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", sourceID, err)
	}
	return nil
}
