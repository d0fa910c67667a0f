package storage

const schema = `
-- Decks own cards and carry the per-deck scheduling settings.
CREATE TABLE IF NOT EXISTS decks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    new_cards_per_day INTEGER NOT NULL,
    review_limit_per_day INTEGER NOT NULL,
    micro_session_size INTEGER NOT NULL,
    protect_overload INTEGER NOT NULL DEFAULT 1,
    preserve_stability_on_lapse INTEGER NOT NULL DEFAULT 1,
    lapse_min_interval_days INTEGER NOT NULL DEFAULT 1,
    easy_days_enabled INTEGER NOT NULL DEFAULT 1,
    easy_day_load_factor REAL NOT NULL DEFAULT 0.5,
    easy_days INTEGER NOT NULL DEFAULT 65 -- weekday bitmask, bit 0 = Sunday
);

-- Cards hold content plus the scheduling state the engine mutates on review.
-- stability/difficulty are NULL exactly while review_count = 0.
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    prompt TEXT NOT NULL,
    answer TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    fingerprint TEXT NOT NULL,
    phase INTEGER NOT NULL DEFAULT 0, -- 0: New, 1: Learning, 2: Reviewing, 3: Relearning
    created_at DATETIME NOT NULL,
    next_review_at DATETIME NOT NULL,
    last_review_at DATETIME,
    review_count INTEGER NOT NULL DEFAULT 0,
    stability REAL,
    difficulty REAL,
    source_id INTEGER,

    UNIQUE(deck_id, fingerprint),
    FOREIGN KEY(deck_id) REFERENCES decks(id),
    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_due
    ON cards(deck_id, next_review_at);

-- Append-only log of graded reviews with the scheduler outcome.
CREATE TABLE IF NOT EXISTS review_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id INTEGER NOT NULL,
    reviewed_at DATETIME NOT NULL,
    grade INTEGER NOT NULL, -- 1: Again, 2: Hard, 3: Good, 4: Easy
    stability REAL NOT NULL,
    difficulty REAL NOT NULL,
    elapsed_days REAL NOT NULL,
    scheduled_days REAL NOT NULL,

    FOREIGN KEY(card_id) REFERENCES cards(id)
);

-- One row per completed practice session.
CREATE TABLE IF NOT EXISTS session_summaries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    deck_id INTEGER NOT NULL,
    started_at DATETIME NOT NULL,
    completed_at DATETIME NOT NULL,
    total_reviews INTEGER NOT NULL,
    again INTEGER NOT NULL,
    hard INTEGER NOT NULL,
    good INTEGER NOT NULL,
    easy INTEGER NOT NULL,

    FOREIGN KEY(deck_id) REFERENCES decks(id)
);

-- Card sources: local directories or git repositories of markdown files.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL, -- 'local' or 'git'
    path TEXT NOT NULL UNIQUE,
    deck_id INTEGER NOT NULL,
    last_scanned DATETIME,

    FOREIGN KEY(deck_id) REFERENCES decks(id)
);
`
