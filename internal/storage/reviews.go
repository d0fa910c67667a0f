package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
)

// ApplyReview commits one graded review atomically: the appended log row and
// the card's updated scheduling state land in a single transaction, so a
// failure leaves neither behind and a retried answer cannot leave a stray
// log without its card update.
func (db *DB) ApplyReview(card domain.Card, log domain.ReviewLog, outcome domain.ReviewOutcome) (domain.LogID, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin review transaction for card %d: %w", card.ID, err)
	}
	defer tx.Rollback()

	id, err := insertReviewLog(tx, log, outcome)
	if err != nil {
		return 0, err
	}
	if err := updateCard(tx, card); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit review for card %d: %w", card.ID, err)
	}
	return id, nil
}

// AppendReviewLog appends one graded review together with its scheduler
// outcome and returns the log id. Rows are never updated or deleted.
func (db *DB) AppendReviewLog(log domain.ReviewLog, outcome domain.ReviewOutcome) (domain.LogID, error) {
	return insertReviewLog(db.conn, log, outcome)
}

func insertReviewLog(e execer, log domain.ReviewLog, outcome domain.ReviewOutcome) (domain.LogID, error) {
	res, err := e.Exec(`
		INSERT INTO review_logs (card_id, reviewed_at, grade,
			stability, difficulty, elapsed_days, scheduled_days)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		int64(log.CardID),
		log.ReviewedAt.UTC(),
		log.Grade.Rating(),
		outcome.Stability,
		outcome.Difficulty,
		outcome.ElapsedDays,
		outcome.ScheduledDays,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append review log for card %d: %w", log.CardID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get review log id: %w", err)
	}
	return domain.LogID(id), nil
}

// ReviewLogs returns all logs for a card in review order.
func (db *DB) ReviewLogs(cardID domain.CardID) ([]domain.ReviewLog, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, reviewed_at, grade
		FROM review_logs WHERE card_id = ?
		ORDER BY reviewed_at, id
	`, int64(cardID))
	if err != nil {
		return nil, fmt.Errorf("failed to query review logs for card %d: %w", cardID, err)
	}
	defer rows.Close()

	var logs []domain.ReviewLog
	for rows.Next() {
		var l domain.ReviewLog
		var rating int
		if err := rows.Scan(&l.CardID, &l.ReviewedAt, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan review log row: %w", err)
		}
		grade, err := domain.GradeFromInt(rating - 1)
		if err != nil {
			return nil, fmt.Errorf("review log for card %d: %w", cardID, err)
		}
		l.Grade = grade
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// AppendSummary persists a completed session summary and returns its id.
func (db *DB) AppendSummary(summary domain.SessionSummary) (domain.SummaryID, error) {
	res, err := db.conn.Exec(`
		INSERT INTO session_summaries (deck_id, started_at, completed_at,
			total_reviews, again, hard, good, easy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(summary.DeckID),
		summary.StartedAt.UTC(),
		summary.CompletedAt.UTC(),
		summary.TotalReviews,
		summary.Again,
		summary.Hard,
		summary.Good,
		summary.Easy,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append summary for deck %d: %w", summary.DeckID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get summary id: %w", err)
	}
	return domain.SummaryID(id), nil
}

// GetSummary retrieves a persisted summary by id, re-validating its
// invariants on the way out.
func (db *DB) GetSummary(id domain.SummaryID) (domain.SessionSummary, error) {
	row := db.conn.QueryRow(`
		SELECT deck_id, started_at, completed_at, total_reviews, again, hard, good, easy
		FROM session_summaries WHERE id = ?
	`, int64(id))

	summary, err := scanSummary(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.SessionSummary{}, fmt.Errorf("summary %d: %w", id, ErrNotFound)
		}
		return domain.SessionSummary{}, fmt.Errorf("failed to get summary %d: %w", id, err)
	}
	return summary, nil
}

// SummaryRow pairs a persisted summary with its id for history listings.
type SummaryRow struct {
	ID      domain.SummaryID
	Summary domain.SessionSummary
}

// ListSummaries returns summaries for a deck completed within [from, until],
// newest first, capped at limit. Zero from/until bounds are open.
func (db *DB) ListSummaries(deckID domain.DeckID, from, until time.Time, limit int) ([]SummaryRow, error) {
	query := `
		SELECT id, deck_id, started_at, completed_at, total_reviews, again, hard, good, easy
		FROM session_summaries
		WHERE deck_id = ?`
	args := []any{int64(deckID)}
	if !from.IsZero() {
		query += ` AND completed_at >= ?`
		args = append(args, from.UTC())
	}
	if !until.IsZero() {
		query += ` AND completed_at <= ?`
		args = append(args, until.UTC())
	}
	query += `
		ORDER BY completed_at DESC, id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries for deck %d: %w", deckID, err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var id domain.SummaryID
		var deck domain.DeckID
		var startedAt, completedAt time.Time
		var total, again, hard, good, easy int
		if err := rows.Scan(&id, &deck, &startedAt, &completedAt, &total, &again, &hard, &good, &easy); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary, err := domain.SummaryFromPersisted(deck, startedAt, completedAt, total, again, hard, good, easy)
		if err != nil {
			return nil, fmt.Errorf("summary %d: %w", id, err)
		}
		out = append(out, SummaryRow{ID: id, Summary: summary})
	}
	return out, rows.Err()
}

func scanSummary(row rowScanner) (domain.SessionSummary, error) {
	var deckID domain.DeckID
	var startedAt, completedAt time.Time
	var total, again, hard, good, easy int
	if err := row.Scan(&deckID, &startedAt, &completedAt, &total, &again, &hard, &good, &easy); err != nil {
		return domain.SessionSummary{}, err
	}
	return domain.SummaryFromPersisted(deckID, startedAt, completedAt, total, again, hard, good, easy)
}
