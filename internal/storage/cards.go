package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// InsertCard inserts a card with its content fingerprint and optional source,
// returning the assigned id. The card's scheduling fields are stored as-is;
// a brand-new card carries no memory state.
func (db *DB) InsertCard(card domain.Card, fingerprint string, sourceID sql.NullInt64) (domain.CardID, error) {
	var stability, difficulty sql.NullFloat64
	if card.Memory != nil {
		stability = sql.NullFloat64{Float64: card.Memory.Stability, Valid: true}
		difficulty = sql.NullFloat64{Float64: card.Memory.Difficulty, Valid: true}
	}
	var lastReview sql.NullTime
	if card.LastReviewAt != nil {
		lastReview = sql.NullTime{Time: card.LastReviewAt.UTC(), Valid: true}
	}

	res, err := db.conn.Exec(`
		INSERT INTO cards (deck_id, prompt, answer, context, fingerprint, phase,
			created_at, next_review_at, last_review_at, review_count,
			stability, difficulty, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(card.DeckID),
		string(card.Prompt),
		string(card.Answer),
		card.Context,
		fingerprint,
		int(card.Phase),
		card.CreatedAt.UTC(),
		card.NextReviewAt.UTC(),
		lastReview,
		card.ReviewCount,
		stability,
		difficulty,
		sourceID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get card id: %w", err)
	}
	return domain.CardID(id), nil
}

// UpsertCard writes a card's mutable scheduling state back to its row.
func (db *DB) UpsertCard(card domain.Card) error {
	return updateCard(db.conn, card)
}

// execer is satisfied by both *sql.DB and *sql.Tx, so card and log writes
// can run standalone or inside a transaction.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func updateCard(e execer, card domain.Card) error {
	var stability, difficulty sql.NullFloat64
	if card.Memory != nil {
		stability = sql.NullFloat64{Float64: card.Memory.Stability, Valid: true}
		difficulty = sql.NullFloat64{Float64: card.Memory.Difficulty, Valid: true}
	}
	var lastReview sql.NullTime
	if card.LastReviewAt != nil {
		lastReview = sql.NullTime{Time: card.LastReviewAt.UTC(), Valid: true}
	}

	_, err := e.Exec(`
		UPDATE cards
		SET phase = ?, next_review_at = ?, last_review_at = ?, review_count = ?,
			stability = ?, difficulty = ?
		WHERE id = ?
	`,
		int(card.Phase),
		card.NextReviewAt.UTC(),
		lastReview,
		card.ReviewCount,
		stability,
		difficulty,
		int64(card.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}
	return nil
}

const cardColumns = `id, deck_id, prompt, answer, context, phase,
	created_at, next_review_at, last_review_at, review_count, stability, difficulty`

// GetCard retrieves a single card by id. Returns ErrNotFound when missing.
func (db *DB) GetCard(id domain.CardID) (domain.Card, error) {
	row := db.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, int64(id))
	card, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Card{}, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to get card %d: %w", id, err)
	}
	return card, nil
}

// DueCards returns reviewed cards of the deck due at or before now, ordered
// by due time then id, capped at limit.
func (db *DB) DueCards(deckID domain.DeckID, now time.Time, limit int) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards
		WHERE deck_id = ? AND review_count > 0 AND next_review_at <= ?
		ORDER BY next_review_at, id
		LIMIT ?
	`, int64(deckID), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due cards for deck %d: %w", deckID, err)
	}
	return collectCards(rows)
}

// NewCards returns never-reviewed cards of the deck in creation order,
// capped at limit.
func (db *DB) NewCards(deckID domain.DeckID, limit int) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards
		WHERE deck_id = ? AND review_count = 0
		ORDER BY created_at, id
		LIMIT ?
	`, int64(deckID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query new cards for deck %d: %w", deckID, err)
	}
	return collectCards(rows)
}

// PracticeCounts aggregates a deck's card totals at the given time.
type PracticeCounts struct {
	Total int
	Due   int
	New   int
}

// GetPracticeCounts returns total/due/new counts for a deck.
func (db *DB) GetPracticeCounts(deckID domain.DeckID, now time.Time) (PracticeCounts, error) {
	var counts PracticeCounts
	err := db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN review_count > 0 AND next_review_at <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN review_count = 0 THEN 1 ELSE 0 END), 0)
		FROM cards WHERE deck_id = ?
	`, now.UTC(), int64(deckID)).Scan(&counts.Total, &counts.Due, &counts.New)
	if err != nil {
		return PracticeCounts{}, fmt.Errorf("failed to count cards for deck %d: %w", deckID, err)
	}
	return counts, nil
}

// FindCardByFingerprint looks a card up by its content fingerprint within a
// deck. Returns a nil card when not found.
func (db *DB) FindCardByFingerprint(deckID domain.DeckID, fingerprint string) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+` FROM cards WHERE deck_id = ? AND fingerprint = ?
	`, int64(deckID), fingerprint)
	card, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find card by fingerprint %s: %w", fingerprint, err)
	}
	return &card, nil
}

// CardFingerprints returns fingerprint -> card id for all cards of a source.
func (db *DB) CardFingerprints(sourceID int64) (map[string]domain.CardID, error) {
	rows, err := db.conn.Query(`
		SELECT fingerprint, id FROM cards WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprints for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	out := make(map[string]domain.CardID)
	for rows.Next() {
		var fp string
		var id int64
		if err := rows.Scan(&fp, &id); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint row: %w", err)
		}
		out[fp] = domain.CardID(id)
	}
	return out, rows.Err()
}

// DeleteCard removes a card by id. Deletion is a storage concern only; the
// engine never deletes cards.
func (db *DB) DeleteCard(id domain.CardID) error {
	_, err := db.conn.Exec(`DELETE FROM cards WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete card %d: %w", id, err)
	}
	return nil
}

func collectCards(rows *sql.Rows) ([]domain.Card, error) {
	defer rows.Close()
	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func scanCard(row rowScanner) (domain.Card, error) {
	var c domain.Card
	var lastReview sql.NullTime
	var stability, difficulty sql.NullFloat64

	err := row.Scan(
		&c.ID,
		&c.DeckID,
		&c.Prompt,
		&c.Answer,
		&c.Context,
		&c.Phase,
		&c.CreatedAt,
		&c.NextReviewAt,
		&lastReview,
		&c.ReviewCount,
		&stability,
		&difficulty,
	)
	if err != nil {
		return domain.Card{}, err
	}

	if lastReview.Valid {
		t := lastReview.Time
		c.LastReviewAt = &t
	}
	if stability.Valid && difficulty.Valid {
		c.Memory = &domain.MemoryState{Stability: stability.Float64, Difficulty: difficulty.Float64}
	}
	// A reviewed card without memory state (or the reverse) is a corrupt row.
	if err := c.CheckMemoryInvariant(); err != nil {
		return domain.Card{}, err
	}
	return c, nil
}
