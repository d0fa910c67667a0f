package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// InsertDeck inserts a new deck and returns its assigned id.
func (db *DB) InsertDeck(name, description string, settings domain.DeckSettings, createdAt time.Time) (domain.DeckID, error) {
	res, err := db.conn.Exec(`
		INSERT INTO decks (name, description, created_at,
			new_cards_per_day, review_limit_per_day, micro_session_size,
			protect_overload, preserve_stability_on_lapse, lapse_min_interval_days,
			easy_days_enabled, easy_day_load_factor, easy_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		name,
		description,
		createdAt.UTC(),
		settings.NewCardsPerDay,
		settings.ReviewLimitPerDay,
		settings.MicroSessionSize,
		settings.ProtectOverload,
		settings.PreserveStabilityOnLapse,
		settings.LapseMinIntervalDays,
		settings.EasyDaysEnabled,
		settings.EasyDayLoadFactor,
		int(settings.EasyDays),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert deck %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get deck id for %q: %w", name, err)
	}
	return domain.DeckID(id), nil
}

// GetDeck retrieves a deck by id. Returns ErrNotFound for a missing deck.
func (db *DB) GetDeck(id domain.DeckID) (domain.Deck, error) {
	row := db.conn.QueryRow(`
		SELECT id, name, description, created_at,
			new_cards_per_day, review_limit_per_day, micro_session_size,
			protect_overload, preserve_stability_on_lapse, lapse_min_interval_days,
			easy_days_enabled, easy_day_load_factor, easy_days
		FROM decks WHERE id = ?
	`, int64(id))

	deck, err := scanDeck(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Deck{}, fmt.Errorf("deck %d: %w", id, ErrNotFound)
		}
		return domain.Deck{}, fmt.Errorf("failed to get deck %d: %w", id, err)
	}
	return deck, nil
}

// ListDecks retrieves all decks ordered by creation time.
func (db *DB) ListDecks() ([]domain.Deck, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, description, created_at,
			new_cards_per_day, review_limit_per_day, micro_session_size,
			protect_overload, preserve_stability_on_lapse, lapse_min_interval_days,
			easy_days_enabled, easy_day_load_factor, easy_days
		FROM decks ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck row: %w", err)
		}
		decks = append(decks, deck)
	}
	return decks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (domain.Deck, error) {
	var d domain.Deck
	var easyDays int
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&d.CreatedAt,
		&d.Settings.NewCardsPerDay,
		&d.Settings.ReviewLimitPerDay,
		&d.Settings.MicroSessionSize,
		&d.Settings.ProtectOverload,
		&d.Settings.PreserveStabilityOnLapse,
		&d.Settings.LapseMinIntervalDays,
		&d.Settings.EasyDaysEnabled,
		&d.Settings.EasyDayLoadFactor,
		&easyDays,
	)
	if err != nil {
		return domain.Deck{}, err
	}
	d.Settings.EasyDays = domain.Weekdays(easyDays)
	return d, nil
}
